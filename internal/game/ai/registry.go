package ai

import (
	"fmt"
	"maps"
	"slices"
)

// Registry indexes Behaviors by ID.
//
// Invariant: each behavior ID is registered at most once.
type Registry struct {
	behaviors map[string]*Behavior
}

// NewRegistry returns an empty Registry.
func NewRegistry() *Registry {
	return &Registry{behaviors: make(map[string]*Behavior)}
}

// Register validates and stores b.
//
// Precondition: b must not be nil.
// Postcondition: returns error on validation failure or ID collision.
func (r *Registry) Register(b *Behavior) error {
	if err := b.Validate(); err != nil {
		return err
	}
	if _, exists := r.behaviors[b.ID]; exists {
		return fmt.Errorf("ai.Registry: behavior %q already registered", b.ID)
	}
	r.behaviors[b.ID] = b
	return nil
}

// Behavior returns the behavior for id, or false if not registered.
func (r *Registry) Behavior(id string) (*Behavior, bool) {
	b, ok := r.behaviors[id]
	return b, ok
}

// Len returns the number of registered behaviors.
func (r *Registry) Len() int { return len(r.behaviors) }

// IDs returns the registered behavior IDs in sorted order.
func (r *Registry) IDs() []string {
	return slices.Sorted(maps.Keys(r.behaviors))
}
