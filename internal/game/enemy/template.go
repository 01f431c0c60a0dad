// Package enemy provides nightmare templates loaded from YAML and the live
// instances a battle fights against.
package enemy

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
)

// Template defines an immutable enemy archetype.
type Template struct {
	ID          string      `yaml:"id"`
	Name        string      `yaml:"name"`
	Description string      `yaml:"description"`
	MaxHP       int         `yaml:"max_hp"`
	AttackPower int         `yaml:"attack_power"`
	Weakness    emotion.Tag `yaml:"weakness"`
	Resist      emotion.Tag `yaml:"resist"`
	// SpecialAbility names an ability record; unknown names only narrate.
	SpecialAbility string `yaml:"special_ability"`
	// Behavior is the AI behavior ID; empty selects the built-in rules.
	Behavior string `yaml:"behavior"`
}

// Validate checks that the template satisfies basic invariants.
//
// Precondition: t must not be nil.
// Postcondition: Returns nil iff ID and Name are non-empty, MaxHP >= 1,
// AttackPower >= 0, and any weakness/resist tag is a known emotion.
func (t *Template) Validate() error {
	if t.ID == "" {
		return fmt.Errorf("enemy template: id must not be empty")
	}
	if t.Name == "" {
		return fmt.Errorf("enemy template %q: name must not be empty", t.ID)
	}
	if t.MaxHP < 1 {
		return fmt.Errorf("enemy template %q: max_hp must be >= 1", t.ID)
	}
	if t.AttackPower < 0 {
		return fmt.Errorf("enemy template %q: attack_power must be >= 0", t.ID)
	}
	if t.Weakness != "" && !t.Weakness.Valid() {
		return fmt.Errorf("enemy template %q: unknown weakness %q", t.ID, t.Weakness)
	}
	if t.Resist != "" && !t.Resist.Valid() {
		return fmt.Errorf("enemy template %q: unknown resist %q", t.ID, t.Resist)
	}
	if t.Weakness != "" && t.Weakness == t.Resist {
		return fmt.Errorf("enemy template %q: weakness and resist must differ", t.ID)
	}
	return nil
}

// LoadTemplatesFromBytes parses a YAML list of templates.
//
// Postcondition: Returns validated templates, or an error on the first failure.
func LoadTemplatesFromBytes(data []byte) ([]*Template, error) {
	var list []*Template
	if err := yaml.Unmarshal(data, &list); err != nil {
		return nil, fmt.Errorf("parsing enemy YAML: %w", err)
	}
	for _, t := range list {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return list, nil
}

// LoadTemplates reads all *.yaml files in dir and returns the parsed templates.
//
// Precondition: dir must be a readable directory.
// Postcondition: Returns all templates or an error on the first parse or validate
// failure; on error, the partial result is discarded.
func LoadTemplates(dir string) ([]*Template, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("reading enemy dir %q: %w", dir, err)
	}

	var templates []*Template
	for _, entry := range entries {
		if entry.IsDir() || !strings.HasSuffix(entry.Name(), ".yaml") {
			continue
		}
		path := filepath.Join(dir, entry.Name())
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("reading %q: %w", path, err)
		}
		list, err := LoadTemplatesFromBytes(data)
		if err != nil {
			return nil, fmt.Errorf("loading %q: %w", path, err)
		}
		templates = append(templates, list...)
	}
	return templates, nil
}
