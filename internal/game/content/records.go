package content

import (
	"fmt"

	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
)

// Skill is a memory skill the player can use in battle.
type Skill struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	NameEN      string      `yaml:"name_en"`
	BasePower   int         `yaml:"base_power"`
	Emotion     emotion.Tag `yaml:"emotion"`
	MPCost      int         `yaml:"mp_cost"`
	Description string      `yaml:"description"`
	// Unlock describes how the skill is earned; informational only.
	Unlock string `yaml:"unlock"`
}

func (s *Skill) validate() error {
	if s.ID == "" {
		return fmt.Errorf("skill: id must not be empty")
	}
	if s.BasePower < 0 || s.MPCost < 0 {
		return fmt.Errorf("skill %q: base_power and mp_cost must be >= 0", s.ID)
	}
	if !s.Emotion.Valid() {
		return fmt.Errorf("skill %q: unknown emotion %q", s.ID, s.Emotion)
	}
	return nil
}

// Item is a consumable with healing and emotion effects.
type Item struct {
	ID          string         `yaml:"id"`
	Name        string         `yaml:"name"`
	Description string         `yaml:"description"`
	HP          int            `yaml:"hp"`
	MP          int            `yaml:"mp"`
	Emotions    emotion.Deltas `yaml:"emotions"`
}

func (i *Item) validate() error {
	if i.ID == "" {
		return fmt.Errorf("item: id must not be empty")
	}
	if i.HP < 0 || i.MP < 0 {
		return fmt.Errorf("item %q: hp and mp must be >= 0", i.ID)
	}
	if err := i.Emotions.Validate(); err != nil {
		return fmt.Errorf("item %q: %w", i.ID, err)
	}
	return nil
}

// Resonance is the fixed-damage emotion attack keyed by emotion tag.
type Resonance struct {
	Emotion  emotion.Tag    `yaml:"emotion"`
	Name     string         `yaml:"name"`
	Damage   int            `yaml:"damage"`
	Emotions emotion.Deltas `yaml:"emotions"`
}

func (r *Resonance) validate() error {
	if !r.Emotion.Valid() {
		return fmt.Errorf("resonance: unknown emotion %q", r.Emotion)
	}
	if r.Damage < 0 {
		return fmt.Errorf("resonance %q: damage must be >= 0", r.Emotion)
	}
	if err := r.Emotions.Validate(); err != nil {
		return fmt.Errorf("resonance %q: %w", r.Emotion, err)
	}
	return nil
}

// Ability is an enemy special ability.
type Ability struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
	// PowerMultiplier scales the enemy attack power into fixed damage; 0 deals none.
	PowerMultiplier float64        `yaml:"power_multiplier"`
	Emotions        emotion.Deltas `yaml:"emotions"`
	// Lines are narrated after the ability name.
	Lines []string `yaml:"lines"`
}

func (a *Ability) validate() error {
	if a.ID == "" {
		return fmt.Errorf("ability: id must not be empty")
	}
	if a.PowerMultiplier < 0 {
		return fmt.Errorf("ability %q: power_multiplier must be >= 0", a.ID)
	}
	if err := a.Emotions.Validate(); err != nil {
		return fmt.Errorf("ability %q: %w", a.ID, err)
	}
	return nil
}

// Stage is one battle of the campaign.
type Stage struct {
	ID    string `yaml:"id"`
	Enemy string `yaml:"enemy"`
	// Intro lines are shown before the battle starts.
	Intro []string `yaml:"intro"`
}

// Campaign is the ordered list of stages.
type Campaign struct {
	Stages []Stage `yaml:"stages"`
}
