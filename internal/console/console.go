// Package console provides the interactive terminal front end: it reads
// commands line by line, drives the campaign director and renders the battle
// log as it happens.
package console

import (
	"context"
	"errors"
	"fmt"
	"io"
	"strings"

	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/campaign"
	"github.com/cory-johannsen/dreamrealm/internal/game/command"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
)

// Catalog is the content the console renders.
type Catalog interface {
	Skills() []*content.Skill
	Item(id string) (*content.Item, bool)
	EndingRules() []ending.Rule
}

// Console is a single-player read-eval-print loop.
//
// Invariant: battle is non-nil only while a session opened by fight is running.
type Console struct {
	director *campaign.Director
	catalog  Catalog
	registry *command.Registry
	term     Terminal
	logger   *zap.Logger

	battle *battle.Session
}

// New constructs a Console reading commands from and writing to term.
//
// Precondition: director, catalog, term and logger must be non-nil.
func New(director *campaign.Director, catalog Catalog, term Terminal, logger *zap.Logger) *Console {
	switch {
	case director == nil:
		panic("console.New: director must not be nil")
	case catalog == nil:
		panic("console.New: catalog must not be nil")
	case term == nil:
		panic("console.New: term must not be nil")
	case logger == nil:
		panic("console.New: logger must not be nil")
	}
	return &Console{
		director: director,
		catalog:  catalog,
		registry: command.DefaultRegistry(),
		term:     term,
		logger:   logger,
	}
}

// Run loads the saved game, or starts a new one, and processes commands until
// quit, end of input or ctx is cancelled.
//
// Postcondition: Returns nil on quit or end of input, ctx.Err() on
// cancellation, or a wrapped error when the save slot cannot be used.
func (c *Console) Run(ctx context.Context) error {
	c.writeLine(Colorize(BrightMagenta, "~ Dream Realm Guardians ~"))
	if err := c.director.Load(ctx); err != nil {
		if !errors.Is(err, campaign.ErrNoSave) {
			return err
		}
		if err := c.director.NewGame(ctx); err != nil {
			return err
		}
		c.writeLine("A new dream begins.")
	} else {
		c.writeLine("Your dream continues.")
	}
	c.writeLine(Colorize(Dim, "Type 'help' for a list of commands."))

	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		c.prompt()
		raw, err := c.term.ReadLine()
		if err != nil {
			if ctx.Err() != nil {
				return ctx.Err()
			}
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("reading input: %w", err)
		}
		line := strings.TrimSpace(raw)
		if line == "" {
			continue
		}

		quit, err := c.dispatch(ctx, command.Parse(line))
		if err != nil {
			c.logger.Warn("command failed", zap.String("line", line), zap.Error(err))
			c.writeLine(Colorf(Red, "%v", err))
		}
		if quit {
			c.writeLine("Sweet dreams.")
			return nil
		}
	}
}

func (c *Console) prompt() {
	p := c.director.Player()
	var prompt string
	if c.battle != nil {
		prompt = Colorf(BrightCyan, "[HP %d/%d MP %d/%d AP %d]> ", p.CurrentHP, p.MaxHP, p.CurrentMP, p.MaxMP, c.battle.ActionPoints())
	} else {
		prompt = Colorf(BrightCyan, "[%s]> ", p.Name)
	}
	c.write(prompt)
}

func (c *Console) writeLine(text string) {
	c.write(text + "\n")
}

func (c *Console) write(text string) {
	if err := c.term.Write([]byte(text)); err != nil {
		c.logger.Debug("write failed", zap.Error(err))
	}
}

// dispatch runs one parsed command. It reports whether the loop should stop.
func (c *Console) dispatch(ctx context.Context, parsed command.ParseResult) (bool, error) {
	cmd, ok := c.registry.Resolve(parsed.Command)
	if !ok {
		c.writeLine(Colorf(Dim, "You don't know how to '%s'.", parsed.Command))
		return false, nil
	}
	if command.NeedsBattle(cmd.Handler) && c.battle == nil {
		c.writeLine(Colorize(Dim, "There is nothing to fight here. Type 'fight' to enter the next dream."))
		return false, nil
	}

	switch cmd.Handler {
	case command.HandlerSkill:
		return false, c.battleAction(ctx, cmd, parsed, func(id string) error {
			if !c.director.Player().HasSkill(id) {
				c.writeLine(Colorize(Yellow, "You have not remembered that skill yet."))
				return nil
			}
			return c.battle.UseSkill(ctx, id)
		})
	case command.HandlerResonate:
		return false, c.battleAction(ctx, cmd, parsed, func(arg string) error {
			return c.battle.UseEmotionResonance(ctx, emotion.Tag(arg))
		})
	case command.HandlerItem:
		return false, c.battleAction(ctx, cmd, parsed, func(id string) error {
			return c.battle.UseItem(ctx, id)
		})
	case command.HandlerAbandon:
		c.battle.Abort(ctx)
		return false, c.finishBattle(ctx)

	case command.HandlerStatus:
		c.write(RenderStatus(c.director.Player()))
		if c.battle != nil {
			c.write(RenderBattle(c.battle))
		}
	case command.HandlerSkills:
		c.write(RenderSkills(c.director.Player(), c.catalog.Skills()))
	case command.HandlerInventory:
		c.write(RenderInventory(c.director.Player(), c.catalog.Item))
	case command.HandlerEndings:
		c.write(RenderEndings(c.director.Player().SeenEndings, c.catalog.EndingRules()))
	case command.HandlerFight:
		return false, c.fight(ctx)
	case command.HandlerNew, command.HandlerLoad, command.HandlerReplay, command.HandlerSave:
		if c.battle != nil {
			c.writeLine(Colorize(Yellow, "Finish the battle first."))
			return false, nil
		}
		return false, c.manageGame(ctx, cmd.Handler)

	case command.HandlerHelp:
		c.write(RenderHelp(c.registry.Sorted()))
	case command.HandlerQuit:
		if c.battle != nil {
			c.battle.Abort(ctx)
			c.battle = nil
		}
		return true, nil
	default:
		c.writeLine(Colorf(Dim, "You don't know how to '%s'.", parsed.Command))
	}
	return false, nil
}

// battleAction runs act with the command's target id, then settles the
// battle if the action ended it. Rejected actions are already narrated by the
// battle log, so they are logged rather than returned.
func (c *Console) battleAction(ctx context.Context, cmd *command.Command, parsed command.ParseResult, act func(string) error) error {
	if parsed.Target == "" {
		c.writeLine(Colorf(Yellow, "Usage: %s", cmd.Usage))
		return nil
	}
	if err := act(parsed.Target); err != nil {
		var ae *battle.ActionError
		if !errors.As(err, &ae) {
			return err
		}
		c.logger.Debug("action rejected", zap.Error(err))
	}
	if c.battle.Closed() {
		return c.finishBattle(ctx)
	}
	return nil
}

func (c *Console) fight(ctx context.Context) error {
	if c.battle != nil {
		c.writeLine(Colorize(Yellow, "You are already in a battle."))
		return nil
	}
	stage, ok := c.director.NextStage()
	if !ok {
		c.writeLine(Colorize(BrightMagenta, "Every nightmare has been faced. Type 'replay' to dream again."))
		return nil
	}
	for _, line := range stage.Intro {
		c.writeLine(Colorize(Dim, line))
	}
	s, _, err := c.director.StartNextBattle(ctx)
	if err != nil {
		return err
	}
	c.battle = s
	return nil
}

func (c *Console) finishBattle(ctx context.Context) error {
	s := c.battle
	c.battle = nil
	res, err := c.director.FinishBattle(ctx, s)
	if err != nil {
		return err
	}
	for _, id := range res.Unlocked {
		name := id
		for _, sk := range c.catalog.Skills() {
			if sk.ID == id && sk.NameEN != "" {
				name = sk.NameEN
			}
		}
		c.writeLine(Colorf(BrightGreen, "A memory returns: %s", name))
	}
	if res.Ending != nil {
		c.write(RenderEnding(res.Ending, res.FirstTime))
		c.writeLine(Colorize(Dim, "Type 'replay' to dream again."))
	}
	return nil
}

func (c *Console) manageGame(ctx context.Context, handler string) error {
	switch handler {
	case command.HandlerNew:
		if err := c.director.NewGame(ctx); err != nil {
			return err
		}
		c.writeLine("A new dream begins.")
	case command.HandlerLoad:
		if err := c.director.Load(ctx); err != nil {
			return err
		}
		c.writeLine("Your dream continues.")
	case command.HandlerReplay:
		if err := c.director.Replay(ctx); err != nil {
			return err
		}
		c.writeLine("You close your eyes and dream again.")
	case command.HandlerSave:
		if err := c.director.Save(ctx); err != nil {
			return err
		}
		c.writeLine("Progress saved.")
	}
	return nil
}

// Sink prints battle narration to a terminal as it happens.
type Sink struct {
	battle.NopSink
	term Terminal
}

// NewSink creates a Sink writing to term.
//
// Precondition: term must be non-nil.
func NewSink(term Terminal) *Sink {
	if term == nil {
		panic("console.NewSink: term must not be nil")
	}
	return &Sink{term: term}
}

func (s *Sink) OnLogLine(text string) {
	color := White
	switch {
	case strings.HasPrefix(text, "---"):
		color = BrightYellow
	case strings.HasPrefix(text, "You took"):
		color = Red
	case strings.HasPrefix(text, "Level up"):
		color = BrightGreen
	}
	_ = s.term.Write([]byte(Colorize(color, text) + "\n"))
}

func (s *Sink) OnBattleEnded(outcome battle.Outcome) {
	_ = s.term.Write([]byte(Colorf(Dim, "(battle ended: %s)", outcome) + "\n"))
}
