// Package ai selects the action an enemy takes on its turn.
//
// A Behavior is an ordered rule list loaded from YAML. Rules are tried in
// declaration order; the first rule whose conditions hold wins. Conditions are
// HP-ratio thresholds, an optional Lua precondition hook and an optional
// probability. The built-in default behavior reproduces the classic nightmare
// AI: a special ability when badly hurt, a power attack against a healthy
// player, otherwise a normal attack.
package ai

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dreamrealm/internal/config"
)

// DefaultBehaviorID names the built-in behavior used when an enemy has none.
const DefaultBehaviorID = "default"

// Action is the kind of move an enemy makes.
type Action string

const (
	// ActionAttack deals floor(attack_power × power × spread) damage.
	ActionAttack Action = "attack"
	// ActionSpecial invokes the enemy's special ability.
	ActionSpecial Action = "special"
)

// Rule is one candidate action and the conditions that enable it.
type Rule struct {
	ID     string `yaml:"id"`
	Action Action `yaml:"action"`
	// Power multiplies the enemy attack power for ActionAttack; 0 means 1.
	Power float64 `yaml:"power"`
	// EnemyHPBelow requires enemy current HP < max HP × value.
	EnemyHPBelow *float64 `yaml:"enemy_hp_below"`
	// PlayerHPAbove requires player current HP > max HP × value.
	PlayerHPAbove *float64 `yaml:"player_hp_above"`
	// Chance is the probability the rule fires once its other conditions
	// hold; nil means always.
	Chance *float64 `yaml:"chance"`
	// Precondition is a Lua function name; empty means always applicable.
	Precondition string `yaml:"precondition"`
}

// EffectivePower returns Power, treating 0 as 1.
func (r *Rule) EffectivePower() float64 {
	if r.Power == 0 {
		return 1
	}
	return r.Power
}

// Behavior is a named, ordered rule list.
//
// Invariant: rule IDs are unique within the behavior.
type Behavior struct {
	ID          string  `yaml:"id"`
	Description string  `yaml:"description"`
	Rules       []*Rule `yaml:"rules"`
}

// Validate checks all required fields.
//
// Postcondition: nil return guarantees a non-empty ID, at least one rule, unique
// rule IDs, known actions, non-negative power and ratios and chances within [0, 1].
func (b *Behavior) Validate() error {
	if b.ID == "" {
		return errors.New("ai.Behavior: ID must not be empty")
	}
	if len(b.Rules) == 0 {
		return fmt.Errorf("ai.Behavior %q: must have at least one rule", b.ID)
	}
	seen := make(map[string]struct{}, len(b.Rules))
	for i, r := range b.Rules {
		if r.ID == "" {
			return fmt.Errorf("ai.Behavior %q: rule %d has empty ID", b.ID, i)
		}
		if _, dup := seen[r.ID]; dup {
			return fmt.Errorf("ai.Behavior %q: duplicate rule ID %q", b.ID, r.ID)
		}
		seen[r.ID] = struct{}{}
		if r.Action != ActionAttack && r.Action != ActionSpecial {
			return fmt.Errorf("ai.Behavior %q rule %q: unknown action %q", b.ID, r.ID, r.Action)
		}
		if r.Power < 0 {
			return fmt.Errorf("ai.Behavior %q rule %q: power must be >= 0", b.ID, r.ID)
		}
		for name, p := range map[string]*float64{
			"enemy_hp_below":  r.EnemyHPBelow,
			"player_hp_above": r.PlayerHPAbove,
			"chance":          r.Chance,
		} {
			if p != nil && (*p < 0 || *p > 1) {
				return fmt.Errorf("ai.Behavior %q rule %q: %s must be within [0, 1], got %g", b.ID, r.ID, name, *p)
			}
		}
	}
	return nil
}

// DefaultBehavior builds the built-in behavior from the configured thresholds.
//
// Postcondition: Returns a behavior that passes Validate for any valid cfg.
func DefaultBehavior(cfg config.AIConfig) *Behavior {
	f := func(v float64) *float64 { return &v }
	return &Behavior{
		ID:          DefaultBehaviorID,
		Description: "special when badly hurt, power attack a healthy player, else attack",
		Rules: []*Rule{
			{ID: "desperate_special", Action: ActionSpecial, EnemyHPBelow: f(cfg.SpecialBelow), Chance: f(cfg.SpecialChance)},
			{ID: "power_attack", Action: ActionAttack, Power: cfg.PowerMultiplier, PlayerHPAbove: f(cfg.PowerAbove), Chance: f(cfg.PowerChance)},
			{ID: "attack", Action: ActionAttack, Power: 1},
		},
	}
}

// yamlBehaviorFile wraps the YAML top-level key.
type yamlBehaviorFile struct {
	Behavior *Behavior `yaml:"behavior"`
}

// LoadBehaviors reads all *.yaml files from dir and returns parsed Behaviors.
//
// Precondition: dir must be a readable directory.
// Postcondition: returns error if any YAML file fails to parse or validate.
func LoadBehaviors(dir string) ([]*Behavior, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("ai.LoadBehaviors: reading %q: %w", dir, err)
	}
	var behaviors []*Behavior
	for _, e := range entries {
		if e.IsDir() || !strings.HasSuffix(e.Name(), ".yaml") {
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, fmt.Errorf("ai.LoadBehaviors: reading %s: %w", e.Name(), err)
		}
		var f yamlBehaviorFile
		if err := yaml.Unmarshal(data, &f); err != nil {
			return nil, fmt.Errorf("ai.LoadBehaviors: parsing %s: %w", e.Name(), err)
		}
		if f.Behavior == nil {
			return nil, fmt.Errorf("ai.LoadBehaviors: %s missing top-level 'behavior' key", e.Name())
		}
		if err := f.Behavior.Validate(); err != nil {
			return nil, err
		}
		behaviors = append(behaviors, f.Behavior)
	}
	return behaviors, nil
}
