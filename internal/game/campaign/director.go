// Package campaign sequences the battles of a playthrough, autosaves the
// player between them and selects the ending once the last stage is done.
package campaign

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

var (
	// ErrNoSave is returned by a SaveStore when the slot holds no game.
	ErrNoSave = errors.New("no saved game")
	// ErrCampaignComplete is returned when every stage has been fought.
	ErrCampaignComplete = errors.New("campaign complete")
	// ErrBattleOpen is returned when a battle is finished before it has ended.
	ErrBattleOpen = errors.New("battle still in progress")
	// ErrNoGame is returned when an operation needs a player and none is loaded.
	ErrNoGame = errors.New("no game in progress")
)

// SaveStore persists player progress by slot.
type SaveStore interface {
	// Save stores a snapshot of p under slot, replacing any previous save.
	Save(ctx context.Context, slot string, p *player.State) error
	// Load returns the state saved under slot, or an error wrapping ErrNoSave.
	Load(ctx context.Context, slot string) (*player.State, error)
}

// Content is the campaign data the director consults.
type Content interface {
	Stages() []content.Stage
	Skills() []*content.Skill
}

// Result summarises a finished battle.
type Result struct {
	Outcome battle.Outcome
	// Stage is the stage the battle was fought for.
	Stage content.Stage
	// Unlocked lists skills earned by this battle.
	Unlocked []string
	// Ending is set once the final stage has been fought.
	Ending *ending.Rule
	// FirstTime reports whether Ending had never been seen before.
	FirstTime bool
}

// Director drives one playthrough.
//
// Invariant: player is nil until NewGame, Load or Replay succeeds.
type Director struct {
	newGame   config.NewGameConfig
	content   Content
	engine    *battle.Engine
	evaluator *ending.Evaluator
	store     SaveStore
	slot      string
	logger    *zap.Logger

	player  *player.State
	current *content.Stage
}

// NewDirector constructs a Director saving to slot.
//
// Precondition: content, engine, evaluator, store and logger must be non-nil;
// slot must be non-empty.
func NewDirector(newGame config.NewGameConfig, c Content, engine *battle.Engine, evaluator *ending.Evaluator, store SaveStore, slot string, logger *zap.Logger) *Director {
	switch {
	case c == nil:
		panic("campaign.NewDirector: content must not be nil")
	case engine == nil:
		panic("campaign.NewDirector: engine must not be nil")
	case evaluator == nil:
		panic("campaign.NewDirector: evaluator must not be nil")
	case store == nil:
		panic("campaign.NewDirector: store must not be nil")
	case slot == "":
		panic("campaign.NewDirector: slot must not be empty")
	case logger == nil:
		panic("campaign.NewDirector: logger must not be nil")
	}
	return &Director{
		newGame:   newGame,
		content:   c,
		engine:    engine,
		evaluator: evaluator,
		store:     store,
		slot:      slot,
		logger:    logger.With(zap.String("slot", slot)),
	}
}

// Player returns the loaded player state, or nil.
func (d *Director) Player() *player.State { return d.player }

// NewGame replaces the current player with a fresh one and saves it.
func (d *Director) NewGame(ctx context.Context) error {
	d.player = player.New(d.newGame)
	d.logger.Info("new game")
	return d.Save(ctx)
}

// Replay starts over with fresh stats. Seen endings are kept.
func (d *Director) Replay(ctx context.Context) error {
	var seen []string
	if d.player != nil {
		seen = d.player.SeenEndings
	}
	d.player = player.New(d.newGame)
	d.player.SeenEndings = seen
	d.logger.Info("replay", zap.Int("seen_endings", len(seen)))
	return d.Save(ctx)
}

// Load restores the player from the save slot.
//
// Postcondition: Returns an error wrapping ErrNoSave when the slot is empty,
// or an error when the save violates player invariants.
func (d *Director) Load(ctx context.Context) error {
	p, err := d.store.Load(ctx, d.slot)
	if err != nil {
		return fmt.Errorf("loading slot %q: %w", d.slot, err)
	}
	if err := p.Validate(); err != nil {
		return fmt.Errorf("save in slot %q is corrupt: %w", d.slot, err)
	}
	d.player = p
	d.logger.Info("game loaded",
		zap.Int("level", p.Level),
		zap.Int("total_battles", p.TotalBattles),
	)
	return nil
}

// Save writes the current player to the save slot.
func (d *Director) Save(ctx context.Context) error {
	if d.player == nil {
		return ErrNoGame
	}
	if err := d.store.Save(ctx, d.slot, d.player); err != nil {
		return fmt.Errorf("saving slot %q: %w", d.slot, err)
	}
	d.logger.Debug("game saved", zap.Int("total_battles", d.player.TotalBattles))
	return nil
}

// NextStage returns the stage the next battle is fought for. Counted battles
// advance the campaign whatever their outcome.
func (d *Director) NextStage() (content.Stage, bool) {
	stages := d.content.Stages()
	if d.player == nil || d.player.TotalBattles >= len(stages) {
		return content.Stage{}, false
	}
	return stages[d.player.TotalBattles], true
}

// Complete reports whether every stage has been fought.
func (d *Director) Complete() bool {
	return d.player != nil && d.player.TotalBattles >= len(d.content.Stages())
}

// StartNextBattle opens the battle for the next stage.
//
// Postcondition: Returns ErrNoGame without a player, ErrCampaignComplete after
// the last stage, or the engine's error.
func (d *Director) StartNextBattle(ctx context.Context) (*battle.Session, content.Stage, error) {
	if d.player == nil {
		return nil, content.Stage{}, ErrNoGame
	}
	stage, ok := d.NextStage()
	if !ok {
		return nil, content.Stage{}, ErrCampaignComplete
	}
	s, err := d.engine.Start(ctx, d.player, stage.Enemy)
	if err != nil {
		return nil, stage, fmt.Errorf("starting stage %q: %w", stage.ID, err)
	}
	d.current = &stage
	d.logger.Info("stage started", zap.String("stage", stage.ID), zap.String("session", s.ID()))
	return s, stage, nil
}

// FinishBattle applies the campaign consequences of a closed session: skill
// unlocks on victory, an autosave, and the ending after the final stage. An
// aborted battle changes nothing and is not saved.
//
// Precondition: s must come from StartNextBattle.
// Postcondition: Returns ErrBattleOpen if s has not ended.
func (d *Director) FinishBattle(ctx context.Context, s *battle.Session) (Result, error) {
	if s == nil || d.current == nil {
		panic("campaign.Director.FinishBattle: no battle was started")
	}
	if !s.Closed() {
		return Result{}, ErrBattleOpen
	}
	res := Result{Outcome: s.Outcome(), Stage: *d.current}
	d.current = nil
	if res.Outcome == battle.OutcomeAborted {
		d.logger.Info("stage abandoned", zap.String("stage", res.Stage.ID))
		return res, nil
	}

	if res.Outcome == battle.OutcomeVictory {
		for _, sk := range d.content.Skills() {
			if sk.Unlock == res.Stage.ID && !d.player.HasSkill(sk.ID) {
				d.player.UnlockSkill(sk.ID)
				res.Unlocked = append(res.Unlocked, sk.ID)
			}
		}
	}

	if d.Complete() {
		id := d.evaluator.Determine(d.player)
		rule, ok := d.evaluator.Rule(id)
		if !ok {
			rule = ending.Rule{ID: id}
		}
		res.Ending = &rule
		res.FirstTime = d.player.RecordEnding(id)
		d.logger.Info("ending reached",
			zap.String("ending", id),
			zap.Bool("first_time", res.FirstTime),
			zap.Float64("save_rate", ending.SaveRate(d.player.SavedCount, d.player.TotalBattles)),
		)
	}

	d.logger.Info("stage finished",
		zap.String("stage", res.Stage.ID),
		zap.String("outcome", string(res.Outcome)),
		zap.Strings("unlocked", res.Unlocked),
	)
	if err := d.Save(ctx); err != nil {
		return res, err
	}
	return res, nil
}
