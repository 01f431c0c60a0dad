// Package content loads and indexes the immutable game data: enemies,
// skills, items, resonances, skill emotion effects, special abilities,
// ending rules and the campaign.
package content

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"slices"

	"gopkg.in/yaml.v3"

	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
)

// File names inside the content directory.
const (
	EnemiesDir     = "enemies"
	SkillsFile     = "skills.yaml"
	ItemsFile      = "items.yaml"
	ResonancesFile = "resonances.yaml"
	EffectsFile    = "skill_effects.yaml"
	AbilitiesFile  = "abilities.yaml"
	EndingsFile    = "endings.yaml"
	CampaignFile   = "campaign.yaml"
)

// Store is the validated, read-only content set. Safe for concurrent reads.
type Store struct {
	enemies    map[string]*enemy.Template
	skills     map[string]*Skill
	skillOrder []string
	items      map[string]*Item
	resonances map[emotion.Tag]*Resonance
	effects    map[emotion.Tag]emotion.Deltas
	abilities  map[string]*Ability
	endings    []ending.Rule
	campaign   Campaign
}

// Data is the raw content used to build a Store.
type Data struct {
	Enemies    []*enemy.Template
	Skills     []*Skill
	Items      []*Item
	Resonances []*Resonance
	Effects    map[emotion.Tag]emotion.Deltas
	Abilities  []*Ability
	Endings    []ending.Rule
	Campaign   Campaign
}

// New validates data and builds a Store from it.
//
// Postcondition: Returns an error describing every violation, or a Store whose
// campaign stages all name known enemies.
func New(data Data) (*Store, error) {
	s := &Store{
		enemies:    make(map[string]*enemy.Template, len(data.Enemies)),
		skills:     make(map[string]*Skill, len(data.Skills)),
		items:      make(map[string]*Item, len(data.Items)),
		resonances: make(map[emotion.Tag]*Resonance, len(data.Resonances)),
		effects:    make(map[emotion.Tag]emotion.Deltas, len(data.Effects)),
		abilities:  make(map[string]*Ability, len(data.Abilities)),
		endings:    slices.Clone(data.Endings),
		campaign:   data.Campaign,
	}
	var errs []error

	for _, e := range data.Enemies {
		if err := e.Validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.enemies[e.ID]; dup {
			errs = append(errs, fmt.Errorf("enemy %q: duplicate id", e.ID))
			continue
		}
		s.enemies[e.ID] = e
	}
	for _, sk := range data.Skills {
		if err := sk.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.skills[sk.ID]; dup {
			errs = append(errs, fmt.Errorf("skill %q: duplicate id", sk.ID))
			continue
		}
		s.skills[sk.ID] = sk
		s.skillOrder = append(s.skillOrder, sk.ID)
	}
	for _, it := range data.Items {
		if err := it.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.items[it.ID]; dup {
			errs = append(errs, fmt.Errorf("item %q: duplicate id", it.ID))
			continue
		}
		s.items[it.ID] = it
	}
	for _, r := range data.Resonances {
		if err := r.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.resonances[r.Emotion]; dup {
			errs = append(errs, fmt.Errorf("resonance %q: duplicate id", r.Emotion))
			continue
		}
		s.resonances[r.Emotion] = r
	}
	for tag, d := range data.Effects {
		if !tag.Valid() {
			errs = append(errs, fmt.Errorf("skill effect: unknown emotion %q", tag))
			continue
		}
		if err := d.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("skill effect %q: %w", tag, err))
			continue
		}
		s.effects[tag] = d
	}
	for _, a := range data.Abilities {
		if err := a.validate(); err != nil {
			errs = append(errs, err)
			continue
		}
		if _, dup := s.abilities[a.ID]; dup {
			errs = append(errs, fmt.Errorf("ability %q: duplicate id", a.ID))
			continue
		}
		s.abilities[a.ID] = a
	}
	for _, r := range data.Endings {
		if err := r.Validate(); err != nil {
			errs = append(errs, err)
		}
	}
	for i, st := range data.Campaign.Stages {
		if _, ok := s.enemies[st.Enemy]; !ok {
			errs = append(errs, fmt.Errorf("campaign stage %d (%q): unknown enemy %q", i, st.ID, st.Enemy))
		}
	}

	if len(errs) > 0 {
		return nil, fmt.Errorf("invalid content: %w", errors.Join(errs...))
	}
	return s, nil
}

// Load reads the content tree rooted at dir.
//
// Precondition: dir must contain an enemies/ directory; every other file is optional.
// Postcondition: Returns a validated Store or an error naming the failing file.
func Load(dir string) (*Store, error) {
	var data Data
	var err error

	data.Enemies, err = enemy.LoadTemplates(filepath.Join(dir, EnemiesDir))
	if err != nil {
		return nil, err
	}
	if err := readYAML(dir, SkillsFile, &data.Skills); err != nil {
		return nil, err
	}
	if err := readYAML(dir, ItemsFile, &data.Items); err != nil {
		return nil, err
	}
	if err := readYAML(dir, ResonancesFile, &data.Resonances); err != nil {
		return nil, err
	}
	if err := readYAML(dir, EffectsFile, &data.Effects); err != nil {
		return nil, err
	}
	if err := readYAML(dir, AbilitiesFile, &data.Abilities); err != nil {
		return nil, err
	}
	if err := readYAML(dir, CampaignFile, &data.Campaign); err != nil {
		return nil, err
	}
	raw, err := os.ReadFile(filepath.Join(dir, EndingsFile))
	switch {
	case errors.Is(err, os.ErrNotExist):
	case err != nil:
		return nil, fmt.Errorf("reading %q: %w", EndingsFile, err)
	default:
		if data.Endings, err = ending.LoadRules(raw); err != nil {
			return nil, fmt.Errorf("loading %q: %w", EndingsFile, err)
		}
	}
	return New(data)
}

// readYAML decodes dir/name into out; a missing file leaves out untouched.
func readYAML(dir, name string, out any) error {
	path := filepath.Join(dir, name)
	raw, err := os.ReadFile(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("reading %q: %w", path, err)
	}
	if err := yaml.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("parsing %q: %w", path, err)
	}
	return nil
}

// Enemy returns the enemy template with id.
func (s *Store) Enemy(id string) (*enemy.Template, bool) {
	e, ok := s.enemies[id]
	return e, ok
}

// Skill returns the skill with id.
func (s *Store) Skill(id string) (*Skill, bool) {
	sk, ok := s.skills[id]
	return sk, ok
}

// Skills returns every skill in load order.
func (s *Store) Skills() []*Skill {
	out := make([]*Skill, 0, len(s.skillOrder))
	for _, id := range s.skillOrder {
		out = append(out, s.skills[id])
	}
	return out
}

// Item returns the item definition with id.
func (s *Store) Item(id string) (*Item, bool) {
	it, ok := s.items[id]
	return it, ok
}

// Resonance returns the resonance for tag.
func (s *Store) Resonance(tag emotion.Tag) (*Resonance, bool) {
	r, ok := s.resonances[tag]
	return r, ok
}

// SkillEffect returns the emotion deltas applied when a skill of type tag is used.
func (s *Store) SkillEffect(tag emotion.Tag) (emotion.Deltas, bool) {
	d, ok := s.effects[tag]
	return d, ok
}

// Ability returns the special ability with id.
func (s *Store) Ability(id string) (*Ability, bool) {
	a, ok := s.abilities[id]
	return a, ok
}

// EndingRules returns a copy of the ending rules in load order.
func (s *Store) EndingRules() []ending.Rule {
	return slices.Clone(s.endings)
}

// Stages returns the campaign stages in play order.
func (s *Store) Stages() []Stage {
	return slices.Clone(s.campaign.Stages)
}
