// Package battle implements the turn-based battle loop: action-point
// budgeting, skill, resonance and item resolution, the automatic enemy turn,
// and the victory, defeat and timeout rewards applied to the player.
//
// An Engine runs at most one Session at a time. All effects of an action are
// committed before the action returns; the package spawns no goroutines.
package battle

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/game/ai"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
	"github.com/cory-johannsen/dreamrealm/internal/observability"
)

// Content is the read-only game data a battle consults.
type Content interface {
	Enemy(id string) (*enemy.Template, bool)
	Skill(id string) (*content.Skill, bool)
	Item(id string) (*content.Item, bool)
	Resonance(tag emotion.Tag) (*content.Resonance, bool)
	SkillEffect(tag emotion.Tag) (emotion.Deltas, bool)
	Ability(id string) (*content.Ability, bool)
}

// Decider chooses the enemy action for a turn.
type Decider interface {
	Select(ctx context.Context, behaviorID string, sit ai.Situation) ai.Decision
}

// Engine creates battle sessions and tracks the active one.
type Engine struct {
	cfg     config.BattleConfig
	content Content
	decider Decider
	src     dice.Source
	sink    Sink
	logger  *zap.Logger
	active  *Session
}

// NewEngine constructs an Engine.
//
// Precondition: content, decider, src, sink and logger must be non-nil; cfg must
// have passed config validation.
func NewEngine(cfg config.BattleConfig, content Content, decider Decider, src dice.Source, sink Sink, logger *zap.Logger) *Engine {
	switch {
	case content == nil:
		panic("battle.NewEngine: content must not be nil")
	case decider == nil:
		panic("battle.NewEngine: decider must not be nil")
	case src == nil:
		panic("battle.NewEngine: src must not be nil")
	case sink == nil:
		panic("battle.NewEngine: sink must not be nil")
	case logger == nil:
		panic("battle.NewEngine: logger must not be nil")
	}
	return &Engine{cfg: cfg, content: content, decider: decider, src: src, sink: sink, logger: logger}
}

// Active returns the open session, if any.
func (e *Engine) Active() (*Session, bool) {
	return e.active, e.active != nil
}

// Start opens a battle between p and a fresh instance of enemyID.
//
// Precondition: p must be non-nil and satisfy player.State invariants.
// Postcondition: On success the session is in PhasePlayerTurn with turn 1 and
// full action points. Returns ErrInvalidState if a session is already open and
// ErrNotFound if enemyID is unknown; neither emits anything to the sink.
func (e *Engine) Start(ctx context.Context, p *player.State, enemyID string) (*Session, error) {
	if p == nil {
		panic("battle.Engine.Start: player must not be nil")
	}
	if e.active != nil {
		return nil, &ActionError{Op: "start", ID: enemyID, Err: ErrInvalidState}
	}
	tmpl, ok := e.content.Enemy(enemyID)
	if !ok {
		return nil, &ActionError{Op: "start", ID: enemyID, Err: ErrNotFound}
	}

	id := uuid.NewString()
	s := &Session{
		id:     id,
		engine: e,
		player: p,
		enemy:  enemy.NewInstance(tmpl),
		turn:   1,
		ap:     e.cfg.MaxActionPoints,
		logger: observability.ForBattle(e.logger, id, enemyID),
	}
	s.fsm = newPhaseMachine(func(ph Phase) { e.sink.OnPhaseChanged(ph) })
	e.active = s

	s.logger.Info("battle started",
		zap.Int("enemy_hp", s.enemy.CurrentHP),
		zap.Int("player_hp", p.CurrentHP),
		zap.Int("player_level", p.Level),
	)
	s.say("Battle start!")
	s.say(fmt.Sprintf("%s appeared!", tmpl.Name))
	if hint := matchupHint(tmpl); hint != "" {
		s.say(hint)
	}
	e.sink.OnHPChanged(SideEnemy, s.enemy.CurrentHP)
	e.sink.OnHPChanged(SidePlayer, p.CurrentHP)
	e.sink.OnMPChanged(p.CurrentMP)
	e.sink.OnPhaseChanged(PhasePlayerTurn)
	return s, nil
}

func matchupHint(t *enemy.Template) string {
	switch {
	case t.Weakness != "" && t.Resist != "":
		return fmt.Sprintf("It seems weak to %s and resistant to %s.", t.Weakness, t.Resist)
	case t.Weakness != "":
		return fmt.Sprintf("It seems weak to %s.", t.Weakness)
	case t.Resist != "":
		return fmt.Sprintf("It seems resistant to %s.", t.Resist)
	}
	return ""
}

func (e *Engine) release(s *Session) {
	if e.active == s {
		e.active = nil
	}
}
