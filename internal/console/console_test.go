package console_test

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/console"
	"github.com/cory-johannsen/dreamrealm/internal/game/ai"
	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/campaign"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/ending"
	"github.com/cory-johannsen/dreamrealm/internal/storage/savefile"
)

const repoContent = "../../content"

// fixedSource always draws 0.5.
type fixedSource struct{}

func (fixedSource) Float64() float64 { return 0.5 }

type harness struct {
	store *content.Store
	saves *savefile.Store
	ai    *ai.Registry
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store, err := content.Load(repoContent)
	require.NoError(t, err)
	saves, err := savefile.New(t.TempDir(), zap.NewNop())
	require.NoError(t, err)
	reg := ai.NewRegistry()
	return &harness{store: store, saves: saves, ai: reg}
}

// newDirector builds a director for slot whose battles narrate to sink.
func (h *harness) newDirector(slot string, sink battle.Sink) *campaign.Director {
	cfg := config.Default()
	src := fixedSource{}
	selector := ai.NewSelector(h.ai, ai.DefaultBehavior(cfg.Battle.AI), nil, src, zap.NewNop())
	engine := battle.NewEngine(cfg.Battle, h.store, selector, src, sink, zap.NewNop())
	evaluator := ending.NewEvaluator(h.store.EndingRules(), cfg.Content.FallbackEnding, zap.NewNop())
	return campaign.NewDirector(cfg.NewGame, h.store, engine, evaluator, h.saves, slot, zap.NewNop())
}

func (h *harness) factory(slot string, sink battle.Sink) (*campaign.Director, func(), error) {
	return h.newDirector(slot, sink), nil, nil
}

// run plays input through a fresh console and returns the uncolored output.
func (h *harness) run(t *testing.T, ctx context.Context, input string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	term := console.NewStdio(strings.NewReader(input), &out)
	c := console.New(h.newDirector("test", console.NewSink(term)), h.store, term, zap.NewNop())
	err := c.Run(ctx)
	return console.StripANSI(out.String()), err
}

func TestConsole_WinFirstBattle(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, context.Background(), strings.Join([]string{
		"fight",
		"skill mem_childhood",
		"u MEM-Childhood",
		"quit",
	}, "\n"))
	require.NoError(t, err)

	assert.Contains(t, out, "A new dream begins.")
	assert.Contains(t, out, "A child's dream has turned cold and grey.")
	assert.Contains(t, out, "Battle start!")
	assert.Contains(t, out, "--- Victory! ---")
	assert.Contains(t, out, "A memory returns: Friendship Memory")
	assert.Contains(t, out, "Sweet dreams.")
	assert.Less(t, strings.Index(out, "cold and grey"), strings.Index(out, "Battle start!"),
		"stage intro precedes the battle narration")

	p, err := h.saves.Load(context.Background(), "test")
	require.NoError(t, err)
	assert.Equal(t, 1, p.TotalBattles)
	assert.True(t, p.HasSkill("mem_friendship"))
}

func TestConsole_ResumesSave(t *testing.T) {
	h := newHarness(t)
	_, err := h.run(t, context.Background(), "fight\nskill mem_childhood\nskill mem_childhood\n")
	require.NoError(t, err)

	out, err := h.run(t, context.Background(), "status\n")
	require.NoError(t, err)
	assert.Contains(t, out, "Your dream continues.")
	assert.Contains(t, out, "Saved 1 of 1 battles (won 1)")
}

func TestConsole_Guards(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, context.Background(), strings.Join([]string{
		"dance",
		"skill mem_childhood",
		"fight",
		"fight",
		"skill mem_kindness",
		"skill",
		"save",
		"resonate nothing",
		"abandon",
	}, "\n"))
	require.NoError(t, err, "end of input stops the loop")

	assert.Contains(t, out, "You don't know how to 'dance'.")
	assert.Contains(t, out, "There is nothing to fight here.")
	assert.Contains(t, out, "You are already in a battle.")
	assert.Contains(t, out, "You have not remembered that skill yet.")
	assert.Contains(t, out, "Usage: skill <id>")
	assert.Contains(t, out, "Finish the battle first.")
	assert.Contains(t, out, "Nothing resonates with nothing.")
	assert.Contains(t, out, "The battle was abandoned.")

	p, err := h.saves.Load(context.Background(), "test")
	require.NoError(t, err)
	assert.Zero(t, p.TotalBattles, "an abandoned battle is not counted")
}

func TestConsole_InfoCommands(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, context.Background(), "help\nskills\ninventory\nendings\nstatus\n")
	require.NoError(t, err)

	assert.Contains(t, out, "Battle")
	assert.Contains(t, out, "resonate <emotion>")
	assert.Contains(t, out, "Childhood Memory")
	assert.NotContains(t, out, "Kindness Memory", "locked skills are hidden")
	assert.Contains(t, out, "healing_potion")
	assert.Contains(t, out, "Endings seen: 0/4")
	assert.Contains(t, out, "HP [####################] 100/100")
}

func TestConsole_CancelledContext(t *testing.T) {
	h := newHarness(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := h.run(t, ctx, "status\n")
	assert.ErrorIs(t, err, context.Canceled)
}

func TestConsole_GameManagement(t *testing.T) {
	h := newHarness(t)
	out, err := h.run(t, context.Background(), "replay\nnew\nsave\nload\n")
	require.NoError(t, err)
	assert.Contains(t, out, "You close your eyes and dream again.")
	assert.Contains(t, out, "Progress saved.")
	assert.Contains(t, out, "Your dream continues.")
}

func TestNew_PanicsOnNil(t *testing.T) {
	assert.Panics(t, func() { console.New(nil, nil, nil, nil) })
	assert.Panics(t, func() { console.NewSink(nil) })
	assert.Panics(t, func() { console.NewStdio(nil, nil) })
}
