package ai

import (
	"context"
	"fmt"

	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
)

// ScriptCaller is the interface required by the Selector to evaluate Lua preconditions.
type ScriptCaller interface {
	// CallHook calls a named Lua function in the given scope's VM.
	// Returns (LNil, nil) if the function is not defined.
	CallHook(ctx context.Context, scope, hook string, args ...lua.LValue) (lua.LValue, error)
}

// Decision is the action chosen for one enemy turn.
type Decision struct {
	Action Action
	// Power is the attack power multiplier; meaningful for ActionAttack.
	Power float64
	// Rule is the ID of the rule that fired, empty for the last-resort attack.
	Rule string
}

// Selector picks enemy actions from the registered behaviors.
//
// Invariant: registry, src and logger are non-nil.
type Selector struct {
	registry *Registry
	fallback *Behavior
	caller   ScriptCaller
	src      dice.Source
	logger   *zap.Logger
}

// NewSelector constructs a Selector.
//
// Precondition: registry, fallback, src and logger must be non-nil. caller may be
// nil, in which case rules with a precondition never fire.
func NewSelector(registry *Registry, fallback *Behavior, caller ScriptCaller, src dice.Source, logger *zap.Logger) *Selector {
	if registry == nil {
		panic("ai.NewSelector: registry must not be nil")
	}
	if fallback == nil {
		panic("ai.NewSelector: fallback must not be nil")
	}
	if src == nil {
		panic("ai.NewSelector: src must not be nil")
	}
	if logger == nil {
		panic("ai.NewSelector: logger must not be nil")
	}
	return &Selector{registry: registry, fallback: fallback, caller: caller, src: src, logger: logger}
}

// Select evaluates behaviorID's rules against sit and returns the first that fires.
// An unknown or empty behaviorID uses the fallback behavior.
//
// A random value is drawn only for a rule whose other conditions hold and
// whose chance lies strictly between 0 and 1.
//
// Postcondition: Always returns a decision; a plain attack when no rule fires.
func (s *Selector) Select(ctx context.Context, behaviorID string, sit Situation) Decision {
	b := s.fallback
	if behaviorID != "" {
		if found, ok := s.registry.Behavior(behaviorID); ok {
			b = found
		} else {
			s.logger.Warn("ai: unknown behavior, using fallback",
				zap.String("behavior", behaviorID),
				zap.String("enemy", sit.EnemyID),
			)
		}
	}

	for _, r := range b.Rules {
		if !s.applies(ctx, b.ID, r, sit) {
			continue
		}
		d := Decision{Action: r.Action, Power: r.EffectivePower(), Rule: r.ID}
		s.logger.Debug("ai: rule fired",
			zap.String("behavior", b.ID),
			zap.String("rule", r.ID),
			zap.String("action", string(d.Action)),
			zap.Float64("power", d.Power),
		)
		return d
	}
	return Decision{Action: ActionAttack, Power: 1}
}

func (s *Selector) applies(ctx context.Context, scope string, r *Rule, sit Situation) bool {
	if r.Action == ActionSpecial && !sit.HasSpecial {
		return false
	}
	if r.EnemyHPBelow != nil && !sit.EnemyHPBelow(*r.EnemyHPBelow) {
		return false
	}
	if r.PlayerHPAbove != nil && !sit.PlayerHPAbove(*r.PlayerHPAbove) {
		return false
	}
	if r.Precondition != "" {
		if s.caller == nil {
			return false
		}
		val, err := s.caller.CallHook(ctx, scope, r.Precondition, sit.LuaArgs()...)
		if err != nil || val != lua.LTrue {
			return false
		}
	}
	if r.Chance != nil {
		switch p := *r.Chance; {
		case p <= 0:
			return false
		case p >= 1:
			return true
		default:
			return dice.Chance(s.src, p)
		}
	}
	return true
}

// String implements fmt.Stringer.
func (d Decision) String() string {
	return fmt.Sprintf("%s×%g", d.Action, d.Power)
}
