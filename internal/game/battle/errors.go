package battle

import (
	"errors"
	"fmt"
)

// Game-logic failures. They are recoverable: the action is a no-op and a log
// line is emitted. Match them with errors.Is.
var (
	// ErrNotFound reports an unknown enemy, skill, item or resonance.
	ErrNotFound = errors.New("not found")
	// ErrInsufficientResource reports too little MP for a skill.
	ErrInsufficientResource = errors.New("insufficient resource")
	// ErrOutOfStock reports an item with no units left.
	ErrOutOfStock = errors.New("out of stock")
	// ErrInvalidState reports an action attempted outside the phase that allows it.
	ErrInvalidState = errors.New("invalid state")
)

// ActionError describes a rejected action.
type ActionError struct {
	// Op is the rejected operation, e.g. "use_skill".
	Op string
	// ID is the skill, item, emotion or enemy the operation named.
	ID  string
	Err error
}

func (e *ActionError) Error() string {
	if e.ID == "" {
		return fmt.Sprintf("battle %s: %v", e.Op, e.Err)
	}
	return fmt.Sprintf("battle %s %q: %v", e.Op, e.ID, e.Err)
}

func (e *ActionError) Unwrap() error { return e.Err }
