// Package player defines the persistent player progress aggregate and the
// pure mutations applied to it by battles, items and the campaign.
package player

import (
	"fmt"
	"maps"
	"math"
	"slices"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
)

// Emotions holds the four persistent emotion counters. Each counter is
// floored at 0 and has no ceiling.
type Emotions struct {
	Hope       int `yaml:"hope" json:"hope"`
	Empathy    int `yaml:"empathy" json:"empathy"`
	Despair    int `yaml:"despair" json:"despair"`
	Loneliness int `yaml:"loneliness" json:"loneliness"`
}

// Get returns the counter for tag, or 0 for a non-counter tag.
func (e Emotions) Get(tag emotion.Tag) int {
	switch tag {
	case emotion.Hope:
		return e.Hope
	case emotion.Empathy:
		return e.Empathy
	case emotion.Despair:
		return e.Despair
	case emotion.Loneliness:
		return e.Loneliness
	}
	return 0
}

func (e *Emotions) ptr(tag emotion.Tag) *int {
	switch tag {
	case emotion.Hope:
		return &e.Hope
	case emotion.Empathy:
		return &e.Empathy
	case emotion.Despair:
		return &e.Despair
	case emotion.Loneliness:
		return &e.Loneliness
	}
	return nil
}

// State is the player's progress across battles.
//
// Invariants: 0 <= CurrentHP <= MaxHP, 0 <= CurrentMP <= MaxMP, every emotion
// counter >= 0, Experience < ExperienceToNext after GainExperience returns.
type State struct {
	Name             string         `yaml:"name" json:"name"`
	Level            int            `yaml:"level" json:"level"`
	Experience       int            `yaml:"experience" json:"experience"`
	ExperienceToNext int            `yaml:"experience_to_next" json:"experience_to_next"`
	MaxHP            int            `yaml:"max_hp" json:"max_hp"`
	CurrentHP        int            `yaml:"current_hp" json:"current_hp"`
	MaxMP            int            `yaml:"max_mp" json:"max_mp"`
	CurrentMP        int            `yaml:"current_mp" json:"current_mp"`
	Emotions         Emotions       `yaml:"emotions" json:"emotions"`
	SavedCount       int            `yaml:"saved_count" json:"saved_count"`
	BattlesWon       int            `yaml:"battles_won" json:"battles_won"`
	TotalBattles     int            `yaml:"total_battles" json:"total_battles"`
	UnlockedSkills   []string       `yaml:"unlocked_skills" json:"unlocked_skills"`
	Items            map[string]int `yaml:"items" json:"items"`
	// SeenEndings survives replays.
	SeenEndings []string `yaml:"seen_endings,omitempty" json:"seen_endings,omitempty"`
}

// LevelUp describes one step of the level-up loop.
type LevelUp struct {
	Level            int
	HPGain           int
	MPGain           int
	ExperienceToNext int
}

// New builds a fresh level 1 player from the configured starting values.
//
// Postcondition: HP and MP are full; all emotion counters and battle counts are 0.
func New(cfg config.NewGameConfig) *State {
	items := make(map[string]int, len(cfg.Items))
	maps.Copy(items, cfg.Items)
	return &State{
		Name:             cfg.Name,
		Level:            1,
		ExperienceToNext: cfg.ExperienceToNext,
		MaxHP:            cfg.MaxHP,
		CurrentHP:        cfg.MaxHP,
		MaxMP:            cfg.MaxMP,
		CurrentMP:        cfg.MaxMP,
		UnlockedSkills:   slices.Clone(cfg.UnlockedSkills),
		Items:            items,
	}
}

// Clone returns a deep copy of s.
func (s *State) Clone() *State {
	c := *s
	c.UnlockedSkills = slices.Clone(s.UnlockedSkills)
	c.SeenEndings = slices.Clone(s.SeenEndings)
	c.Items = make(map[string]int, len(s.Items))
	maps.Copy(c.Items, s.Items)
	return &c
}

// Validate reports the first invariant s violates, if any. Used on loaded saves.
func (s *State) Validate() error {
	switch {
	case s.Level < 1:
		return fmt.Errorf("level must be >= 1, got %d", s.Level)
	case s.MaxHP < 1:
		return fmt.Errorf("max_hp must be >= 1, got %d", s.MaxHP)
	case s.CurrentHP < 0 || s.CurrentHP > s.MaxHP:
		return fmt.Errorf("current_hp %d outside [0, %d]", s.CurrentHP, s.MaxHP)
	case s.MaxMP < 0:
		return fmt.Errorf("max_mp must be >= 0, got %d", s.MaxMP)
	case s.CurrentMP < 0 || s.CurrentMP > s.MaxMP:
		return fmt.Errorf("current_mp %d outside [0, %d]", s.CurrentMP, s.MaxMP)
	case s.ExperienceToNext < 1:
		return fmt.Errorf("experience_to_next must be >= 1, got %d", s.ExperienceToNext)
	}
	for _, tag := range emotion.Counters {
		if v := s.Emotions.Get(tag); v < 0 {
			return fmt.Errorf("emotion %s must be >= 0, got %d", tag, v)
		}
	}
	for id, n := range s.Items {
		if n < 0 {
			return fmt.Errorf("item %s count must be >= 0, got %d", id, n)
		}
	}
	return nil
}

// ApplyDamage reduces CurrentHP by n, flooring at 0.
//
// Precondition: n >= 0.
// Postcondition: Returns the new CurrentHP.
func (s *State) ApplyDamage(n int) int {
	s.CurrentHP = max(s.CurrentHP-n, 0)
	return s.CurrentHP
}

// Heal raises CurrentHP by n, capped at MaxHP.
func (s *State) Heal(n int) int {
	s.CurrentHP = min(s.CurrentHP+n, s.MaxHP)
	return s.CurrentHP
}

// RestoreMP raises CurrentMP by n, capped at MaxMP.
func (s *State) RestoreMP(n int) int {
	s.CurrentMP = min(s.CurrentMP+n, s.MaxMP)
	return s.CurrentMP
}

// SpendMP deducts cost from CurrentMP.
//
// Postcondition: Returns false and leaves s unchanged when CurrentMP < cost.
func (s *State) SpendMP(cost int) bool {
	if s.CurrentMP < cost {
		return false
	}
	s.CurrentMP -= cost
	return true
}

// HPRatio returns CurrentHP / MaxHP.
func (s *State) HPRatio() float64 {
	if s.MaxHP <= 0 {
		return 0
	}
	return float64(s.CurrentHP) / float64(s.MaxHP)
}

// AdjustEmotion adds delta to the counter for tag, flooring at 0.
//
// Postcondition: Returns the new value, or an error if tag is not a counter.
func (s *State) AdjustEmotion(tag emotion.Tag, delta int) (int, error) {
	p := s.Emotions.ptr(tag)
	if p == nil {
		return 0, fmt.Errorf("emotion %q is not a player counter", tag)
	}
	*p = max(*p+delta, 0)
	return *p, nil
}

// HasSkill reports whether id is unlocked.
func (s *State) HasSkill(id string) bool {
	return slices.Contains(s.UnlockedSkills, id)
}

// UnlockSkill adds id to the unlocked set; unlocking twice is a no-op.
func (s *State) UnlockSkill(id string) {
	if !s.HasSkill(id) {
		s.UnlockedSkills = append(s.UnlockedSkills, id)
	}
}

// RecordEnding adds id to the seen endings.
//
// Postcondition: Returns true if id had not been seen before.
func (s *State) RecordEnding(id string) bool {
	if slices.Contains(s.SeenEndings, id) {
		return false
	}
	s.SeenEndings = append(s.SeenEndings, id)
	return true
}

// ItemCount returns the stock of id.
func (s *State) ItemCount(id string) int {
	return s.Items[id]
}

// ConsumeItem removes one unit of id.
//
// Postcondition: Returns false and leaves s unchanged when the stock is 0.
func (s *State) ConsumeItem(id string) bool {
	if s.Items[id] <= 0 {
		return false
	}
	s.Items[id]--
	return true
}

// AddItem adds n units of id.
func (s *State) AddItem(id string, n int) {
	if s.Items == nil {
		s.Items = make(map[string]int)
	}
	s.Items[id] += n
}

// GainExperience adds amount and runs the level-up loop. The threshold of
// each level is subtracted so excess experience carries into the next level.
//
// Precondition: amount >= 0.
// Postcondition: Experience < ExperienceToNext; returns one LevelUp per level gained, in order.
func (s *State) GainExperience(amount int) []LevelUp {
	s.Experience += amount
	var ups []LevelUp
	for s.Experience >= s.ExperienceToNext {
		s.Experience -= s.ExperienceToNext
		ups = append(ups, s.levelUp())
	}
	return ups
}

func (s *State) levelUp() LevelUp {
	s.Level++
	exp := float64(s.Level - 1)
	hpGain := int(math.Floor(20 * math.Pow(1.2, exp)))
	mpGain := int(math.Floor(10 * math.Pow(1.1, exp)))
	s.MaxHP += hpGain
	s.MaxMP += mpGain
	s.CurrentHP = s.MaxHP
	s.CurrentMP = s.MaxMP
	s.ExperienceToNext = int(math.Floor(100 * math.Pow(1.8, exp)))
	return LevelUp{
		Level:            s.Level,
		HPGain:           hpGain,
		MPGain:           mpGain,
		ExperienceToNext: s.ExperienceToNext,
	}
}
