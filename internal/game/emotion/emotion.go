// Package emotion defines the emotion tags that drive skill effects,
// resonances and endings, and the delta tables applied to a player's counters.
package emotion

import (
	"cmp"
	"fmt"
	"slices"
)

// Tag names an emotion. Four tags are persistent counters on the player;
// courage and compassion only appear as skill emotion types.
type Tag string

const (
	Hope       Tag = "hope"
	Empathy    Tag = "empathy"
	Despair    Tag = "despair"
	Loneliness Tag = "loneliness"
	Courage    Tag = "courage"
	Compassion Tag = "compassion"
)

// Counters lists the tags the player accumulates, in display order.
var Counters = []Tag{Hope, Empathy, Despair, Loneliness}

// IsCounter reports whether t is one of the four persistent player counters.
func (t Tag) IsCounter() bool {
	switch t {
	case Hope, Empathy, Despair, Loneliness:
		return true
	}
	return false
}

// Valid reports whether t is any known tag.
func (t Tag) Valid() bool {
	return t.IsCounter() || t == Courage || t == Compassion
}

// Parse converts s to a Tag.
//
// Postcondition: Returns an error if s is not a known tag.
func Parse(s string) (Tag, error) {
	t := Tag(s)
	if !t.Valid() {
		return "", fmt.Errorf("unknown emotion %q", s)
	}
	return t, nil
}

// Deltas maps counter tags to signed adjustments.
type Deltas map[Tag]int

// Validate reports an error if any key is not a counter tag.
func (d Deltas) Validate() error {
	for t := range d {
		if !t.IsCounter() {
			return fmt.Errorf("emotion delta key %q is not a counter", t)
		}
	}
	return nil
}

// Sorted returns the delta tags in Counters order so effects apply and
// notify deterministically.
func (d Deltas) Sorted() []Tag {
	out := make([]Tag, 0, len(d))
	for t := range d {
		out = append(out, t)
	}
	rank := func(t Tag) int {
		if i := slices.Index(Counters, t); i >= 0 {
			return i
		}
		return len(Counters)
	}
	slices.SortStableFunc(out, func(a, b Tag) int {
		return cmp.Or(cmp.Compare(rank(a), rank(b)), cmp.Compare(a, b))
	})
	return out
}
