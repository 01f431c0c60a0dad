package enemy

// Instance is the enemy a battle session is fighting.
// It shares the template and owns only its current HP.
type Instance struct {
	*Template
	CurrentHP int
}

// NewInstance creates a live instance from tmpl.
//
// Precondition: tmpl must be non-nil.
// Postcondition: CurrentHP equals tmpl.MaxHP.
func NewInstance(tmpl *Template) *Instance {
	if tmpl == nil {
		panic("enemy.NewInstance: tmpl must not be nil")
	}
	return &Instance{Template: tmpl, CurrentHP: tmpl.MaxHP}
}

// ApplyDamage reduces CurrentHP by n, flooring at 0.
//
// Precondition: n >= 0.
// Postcondition: Returns the new CurrentHP.
func (i *Instance) ApplyDamage(n int) int {
	i.CurrentHP = max(i.CurrentHP-n, 0)
	return i.CurrentHP
}

// IsDefeated reports whether the instance has been reduced to 0 HP.
func (i *Instance) IsDefeated() bool {
	return i.CurrentHP <= 0
}

// HPRatio returns CurrentHP / MaxHP.
func (i *Instance) HPRatio() float64 {
	return float64(i.CurrentHP) / float64(i.MaxHP)
}
