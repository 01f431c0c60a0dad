package battle_test

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/game/ai"
	"github.com/cory-johannsen/dreamrealm/internal/game/battle"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// seq replays a fixed list of draws.
type seq struct {
	vals []float64
	n    int
}

func (s *seq) Float64() float64 {
	v := s.vals[s.n%len(s.vals)]
	s.n++
	return v
}

// fakeContent serves a small fixed content set.
type fakeContent struct {
	enemies    map[string]*enemy.Template
	skills     map[string]*content.Skill
	items      map[string]*content.Item
	resonances map[emotion.Tag]*content.Resonance
	effects    map[emotion.Tag]emotion.Deltas
	abilities  map[string]*content.Ability
}

func (c *fakeContent) Enemy(id string) (*enemy.Template, bool) {
	t, ok := c.enemies[id]
	return t, ok
}

func (c *fakeContent) Skill(id string) (*content.Skill, bool) {
	s, ok := c.skills[id]
	return s, ok
}

func (c *fakeContent) Item(id string) (*content.Item, bool) {
	i, ok := c.items[id]
	return i, ok
}

func (c *fakeContent) Resonance(tag emotion.Tag) (*content.Resonance, bool) {
	r, ok := c.resonances[tag]
	return r, ok
}

func (c *fakeContent) SkillEffect(tag emotion.Tag) (emotion.Deltas, bool) {
	d, ok := c.effects[tag]
	return d, ok
}

func (c *fakeContent) Ability(id string) (*content.Ability, bool) {
	a, ok := c.abilities[id]
	return a, ok
}

func newContent() *fakeContent {
	return &fakeContent{
		enemies: map[string]*enemy.Template{
			"shadow": {ID: "shadow", Name: "Shadow", MaxHP: 100, AttackPower: 10, Weakness: emotion.Hope, Resist: emotion.Empathy, SpecialAbility: "wave"},
			"wisp":   {ID: "wisp", Name: "Wisp", MaxHP: 10, AttackPower: 10, Weakness: emotion.Hope},
			"mute":   {ID: "mute", Name: "Mute", MaxHP: 100, AttackPower: 10, SpecialAbility: "silence"},
		},
		skills: map[string]*content.Skill{
			"mem_childhood": {ID: "mem_childhood", Name: "Childhood Memory", BasePower: 10, Emotion: emotion.Hope, MPCost: 5},
			"mem_friend":    {ID: "mem_friend", Name: "Friend Memory", BasePower: 10, Emotion: emotion.Empathy, MPCost: 5},
			"mem_costly":    {ID: "mem_costly", Name: "Costly Memory", BasePower: 50, Emotion: emotion.Courage, MPCost: 999},
		},
		items: map[string]*content.Item{
			"hope_fragment":  {ID: "hope_fragment", Name: "Hope Fragment", HP: 30, Emotions: emotion.Deltas{emotion.Hope: 5}},
			"memory_crystal": {ID: "memory_crystal", Name: "Memory Crystal", MP: 25, Emotions: emotion.Deltas{emotion.Empathy: 3}},
		},
		resonances: map[emotion.Tag]*content.Resonance{
			emotion.Hope: {Emotion: emotion.Hope, Name: "Hope Resonance", Damage: 30, Emotions: emotion.Deltas{emotion.Hope: 8, emotion.Despair: -5}},
		},
		effects: map[emotion.Tag]emotion.Deltas{
			emotion.Hope:    {emotion.Hope: 5, emotion.Despair: -2},
			emotion.Empathy: {emotion.Empathy: 5, emotion.Loneliness: -2},
		},
		abilities: map[string]*content.Ability{
			"wave": {ID: "wave", Name: "Wave of Despair", PowerMultiplier: 1.5, Emotions: emotion.Deltas{emotion.Despair: 5}, Lines: []string{"A cold wave washes over you."}},
		},
	}
}

// stubDecider always returns d and counts its calls.
type stubDecider struct {
	d     ai.Decision
	calls int
}

func (s *stubDecider) Select(context.Context, string, ai.Situation) ai.Decision {
	s.calls++
	return s.d
}

// recorder captures every notification.
type recorder struct {
	battle.NopSink
	lines    []string
	phases   []battle.Phase
	emotions map[emotion.Tag]int
	hp       map[battle.Side]int
	levelUps []player.LevelUp
	ended    []battle.Outcome
}

func newRecorder() *recorder {
	return &recorder{emotions: map[emotion.Tag]int{}, hp: map[battle.Side]int{}}
}

func (r *recorder) OnLogLine(text string) { r.lines = append(r.lines, text) }
func (r *recorder) OnPhaseChanged(p battle.Phase) { r.phases = append(r.phases, p) }
func (r *recorder) OnEmotionChanged(tag emotion.Tag, v int) { r.emotions[tag] = v }
func (r *recorder) OnHPChanged(side battle.Side, v int) { r.hp[side] = v }
func (r *recorder) OnLevelUp(up player.LevelUp) { r.levelUps = append(r.levelUps, up) }
func (r *recorder) OnBattleEnded(outcome battle.Outcome) { r.ended = append(r.ended, outcome) }

func (r *recorder) count(p battle.Phase) int {
	n := 0
	for _, ph := range r.phases {
		if ph == p {
			n++
		}
	}
	return n
}

type fixture struct {
	engine  *battle.Engine
	player  *player.State
	rec     *recorder
	decider *stubDecider
	src     *seq
}

func newFixture(t *testing.T, cfg config.BattleConfig) *fixture {
	t.Helper()
	f := &fixture{
		player:  player.New(config.Default().NewGame),
		rec:     newRecorder(),
		decider: &stubDecider{d: ai.Decision{Action: ai.ActionAttack, Power: 1}},
		src:     &seq{vals: []float64{0.5}},
	}
	f.engine = battle.NewEngine(cfg, newContent(), f.decider, f.src, f.rec, zap.NewNop())
	return f
}

func (f *fixture) start(t *testing.T, enemyID string) *battle.Session {
	t.Helper()
	s, err := f.engine.Start(context.Background(), f.player, enemyID)
	require.NoError(t, err)
	return s
}

func TestStart_InitialState(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")

	assert.NotEmpty(t, s.ID())
	assert.Equal(t, battle.PhasePlayerTurn, s.Phase())
	assert.Equal(t, 1, s.Turn())
	assert.Equal(t, 3, s.ActionPoints())
	assert.Equal(t, 100, s.Enemy().CurrentHP)
	assert.Contains(t, s.Log(), "Shadow appeared!")
	assert.Equal(t, []battle.Phase{battle.PhasePlayerTurn}, f.rec.phases)

	active, ok := f.engine.Active()
	require.True(t, ok)
	assert.Same(t, s, active)
}

func TestStart_UnknownEnemy(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	_, err := f.engine.Start(context.Background(), f.player, "nobody")
	assert.ErrorIs(t, err, battle.ErrNotFound)
	assert.Empty(t, f.rec.lines)
}

func TestStart_RejectsSecondSession(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.start(t, "shadow")
	_, err := f.engine.Start(context.Background(), f.player, "wisp")
	assert.ErrorIs(t, err, battle.ErrInvalidState)

	var ae *battle.ActionError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "start", ae.Op)
}

func TestStart_FreshInstancePerBattle(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")
	require.NoError(t, s.UseSkill(context.Background(), "mem_childhood"))
	s.Abort(context.Background())

	s2 := f.start(t, "shadow")
	assert.Equal(t, 100, s2.Enemy().CurrentHP)
}

func TestUseSkill_DamageFormula(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")

	require.NoError(t, s.UseSkill(context.Background(), "mem_childhood"))

	// floor(10 × 1.1 × 1.5 × 1.0)
	assert.Equal(t, 84, s.Enemy().CurrentHP)
	assert.Equal(t, 45, f.player.CurrentMP)
	assert.Equal(t, 5, f.player.Emotions.Hope)
	assert.Equal(t, 0, f.player.Emotions.Despair)
	assert.Equal(t, 2, s.ActionPoints())
	assert.Contains(t, s.Log(), "Shadow took 16 damage!")
	assert.Contains(t, s.Log(), "It's super effective!")
	assert.Equal(t, 84, f.rec.hp[battle.SideEnemy])
	assert.Equal(t, 5, f.rec.emotions[emotion.Hope])
}

func TestUseSkill_Resisted(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")

	require.NoError(t, s.UseSkill(context.Background(), "mem_friend"))
	assert.Equal(t, 95, s.Enemy().CurrentHP)
	assert.Contains(t, s.Log(), "It's not very effective...")
}

func TestUseSkill_LevelScalesDamage(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.player.Level = 5
	s := f.start(t, "mute")

	// floor(10 × 1.5 × 1.0 × 1.0)
	require.NoError(t, s.UseSkill(context.Background(), "mem_childhood"))
	assert.Equal(t, 85, s.Enemy().CurrentHP)
}

func TestUseSkill_UnknownIsIdempotent(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")
	before := f.player.Clone()

	err1 := s.UseSkill(context.Background(), "mem_nothing")
	err2 := s.UseSkill(context.Background(), "mem_nothing")
	assert.ErrorIs(t, err1, battle.ErrNotFound)
	assert.ErrorIs(t, err2, battle.ErrNotFound)

	assert.Equal(t, before, f.player)
	assert.Equal(t, 3, s.ActionPoints())
	log := s.Log()
	require.GreaterOrEqual(t, len(log), 2)
	assert.Equal(t, log[len(log)-1], log[len(log)-2])
	assert.Equal(t, "Unknown skill: mem_nothing", log[len(log)-1])
}

func TestUseSkill_InsufficientMP(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")
	before := f.player.Clone()

	err := s.UseSkill(context.Background(), "mem_costly")
	assert.ErrorIs(t, err, battle.ErrInsufficientResource)
	assert.Equal(t, before, f.player)
	assert.Equal(t, 100, s.Enemy().CurrentHP)
	assert.Equal(t, 3, s.ActionPoints())
}

func TestThreeActions_OneEnemyTurn(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")
	ctx := context.Background()

	require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	assert.Equal(t, 0, f.rec.count(battle.PhaseEnemyTurn))
	require.NoError(t, s.UseSkill(ctx, "mem_childhood"))

	assert.Equal(t, 1, f.rec.count(battle.PhaseEnemyTurn))
	assert.Equal(t, 1, f.decider.calls)
	assert.Equal(t, battle.PhasePlayerTurn, s.Phase())
	assert.Equal(t, 2, s.Turn())
	assert.Equal(t, 3, s.ActionPoints())
	// floor(10 × 1 × (0.8 + 0.5×0.4))
	assert.Equal(t, 90, f.player.CurrentHP)
	assert.Equal(t, 52, s.Enemy().CurrentHP)
	assert.Contains(t, s.Log(), "--- Enemy turn ---")
}

func TestVictory_Rewards(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "wisp")

	require.NoError(t, s.UseSkill(context.Background(), "mem_childhood"))

	assert.Equal(t, battle.PhaseVictory, s.Phase())
	assert.Equal(t, battle.OutcomeVictory, s.Outcome())
	assert.True(t, s.Closed())
	assert.Equal(t, 0, s.Enemy().CurrentHP)
	// 50 + 10/4, truncated
	assert.Equal(t, 52, f.player.Experience)
	assert.Equal(t, 1, f.player.SavedCount)
	assert.Equal(t, 1, f.player.BattlesWon)
	assert.Equal(t, 1, f.player.TotalBattles)
	assert.Equal(t, 20, f.player.Emotions.Hope)
	assert.Equal(t, 10, f.player.Emotions.Empathy)
	assert.Equal(t, []battle.Outcome{battle.OutcomeVictory}, f.rec.ended)
	assert.Zero(t, f.decider.calls, "no enemy turn after the finishing blow")

	_, ok := f.engine.Active()
	assert.False(t, ok)
}

func TestVictory_ExperienceTruncatesHPShare(t *testing.T) {
	cases := []struct {
		maxHP int
		want  int
	}{
		{maxHP: 90, want: 72},
		{maxHP: 91, want: 72},
		{maxHP: 92, want: 73},
		{maxHP: 3, want: 50},
	}
	for _, tc := range cases {
		t.Run(fmt.Sprintf("hp %d", tc.maxHP), func(t *testing.T) {
			c := newContent()
			c.enemies["husk"] = &enemy.Template{ID: "husk", Name: "Husk", MaxHP: tc.maxHP, AttackPower: 1}
			c.skills["mem_burst"] = &content.Skill{ID: "mem_burst", Name: "Burst", BasePower: 1000, Emotion: emotion.Hope}
			p := player.New(config.Default().NewGame)
			e := battle.NewEngine(config.Default().Battle, c, &stubDecider{}, &seq{vals: []float64{0.5}}, battle.NopSink{}, zap.NewNop())
			s, err := e.Start(context.Background(), p, "husk")
			require.NoError(t, err)

			require.NoError(t, s.UseSkill(context.Background(), "mem_burst"))

			require.Equal(t, battle.OutcomeVictory, s.Outcome())
			assert.Equal(t, tc.want, p.Experience)
		})
	}
}

func TestVictory_LevelUpCarriesExperience(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.player.Experience = 90
	s := f.start(t, "wisp")

	require.NoError(t, s.UseSkill(context.Background(), "mem_childhood"))

	assert.Equal(t, 2, f.player.Level)
	assert.Equal(t, 42, f.player.Experience)
	assert.Equal(t, 124, f.player.MaxHP)
	assert.Equal(t, 124, f.player.CurrentHP)
	require.Len(t, f.rec.levelUps, 1)
	assert.Equal(t, player.LevelUp{Level: 2, HPGain: 24, MPGain: 11, ExperienceToNext: 180}, f.rec.levelUps[0])
}

func TestDefeat_Penalties(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.player.CurrentHP = 5
	s := f.start(t, "mute")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	}

	assert.Equal(t, battle.PhaseDefeat, s.Phase())
	assert.Equal(t, battle.OutcomeDefeat, s.Outcome())
	assert.Equal(t, 0, f.player.CurrentHP)
	assert.Equal(t, 10, f.player.Emotions.Despair)
	assert.Equal(t, 5, f.player.Emotions.Loneliness)
	assert.Equal(t, 10, f.player.Emotions.Hope)
	assert.Equal(t, 1, f.player.TotalBattles)
	assert.Zero(t, f.player.SavedCount)
	assert.Equal(t, 1, s.Turn(), "turn does not advance past a defeat")
}

func TestTimeout(t *testing.T) {
	cfg := config.Default().Battle
	cfg.MaxTurns = 1
	f := newFixture(t, cfg)
	s := f.start(t, "mute")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	}

	assert.Equal(t, battle.PhaseTimeout, s.Phase())
	assert.Equal(t, battle.OutcomeTimeout, s.Outcome())
	assert.Equal(t, 20, f.player.Experience)
	assert.Equal(t, 1, f.player.TotalBattles)
	assert.Zero(t, f.player.SavedCount)
	assert.Equal(t, []battle.Outcome{battle.OutcomeTimeout}, f.rec.ended)
}

func TestEnemySpecial(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.decider.d = ai.Decision{Action: ai.ActionSpecial}
	s := f.start(t, "shadow")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UseItem(ctx, "memory_crystal"), "stock %d", i)
		f.player.AddItem("memory_crystal", 1)
	}

	// floor(10 × 1.5)
	assert.Equal(t, 85, f.player.CurrentHP)
	assert.Equal(t, 5, f.player.Emotions.Despair)
	assert.Contains(t, s.Log(), "Shadow uses Wave of Despair!")
	assert.Contains(t, s.Log(), "A cold wave washes over you.")
}

func TestEnemySpecial_UnknownAbilityOnlyNarrates(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.decider.d = ai.Decision{Action: ai.ActionSpecial}
	s := f.start(t, "mute")
	ctx := context.Background()

	for i := 0; i < 3; i++ {
		require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	}

	assert.Equal(t, 100, f.player.CurrentHP)
	assert.Contains(t, s.Log(), "Mute uses silence!")
}

func TestUseEmotionResonance(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")
	mp := f.player.CurrentMP

	require.NoError(t, s.UseEmotionResonance(context.Background(), emotion.Hope))
	assert.Equal(t, 70, s.Enemy().CurrentHP)
	assert.Equal(t, mp, f.player.CurrentMP)
	assert.Equal(t, 8, f.player.Emotions.Hope)
	assert.Equal(t, 2, s.ActionPoints())

	err := s.UseEmotionResonance(context.Background(), emotion.Courage)
	assert.ErrorIs(t, err, battle.ErrNotFound)
	assert.Equal(t, 2, s.ActionPoints())
}

func TestUseItem_HealsAndConsumes(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.player.CurrentHP = 50
	s := f.start(t, "shadow")

	require.NoError(t, s.UseItem(context.Background(), "hope_fragment"))
	assert.Equal(t, 80, f.player.CurrentHP)
	assert.Equal(t, 5, f.player.Emotions.Hope)
	assert.Equal(t, 2, f.player.ItemCount("hope_fragment"))
	assert.Equal(t, 2, s.ActionPoints())
	assert.Contains(t, s.Log(), "Recovered 30 HP!")
}

func TestUseItem_HealCappedAtMax(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.player.CurrentHP = 95
	s := f.start(t, "shadow")

	require.NoError(t, s.UseItem(context.Background(), "hope_fragment"))
	assert.Equal(t, 100, f.player.CurrentHP)
	assert.Contains(t, s.Log(), "Recovered 5 HP!")
}

func TestUseItem_OutOfStock(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	f.player.Items["hope_fragment"] = 0
	s := f.start(t, "shadow")
	before := f.player.Clone()

	err := s.UseItem(context.Background(), "hope_fragment")
	assert.ErrorIs(t, err, battle.ErrOutOfStock)
	assert.Equal(t, before, f.player)
	assert.Equal(t, "You don't have that item...", s.Log()[len(s.Log())-1])
}

func TestUseItem_StockCheckedBeforeDefinition(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")

	assert.ErrorIs(t, s.UseItem(context.Background(), "mystery"), battle.ErrOutOfStock)

	f.player.AddItem("mystery", 1)
	assert.ErrorIs(t, s.UseItem(context.Background(), "mystery"), battle.ErrNotFound)
	assert.Equal(t, 1, f.player.ItemCount("mystery"), "unknown items are not consumed")
	assert.Equal(t, 3, s.ActionPoints())
}

func TestAbort(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "shadow")
	ctx := context.Background()
	require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	before := f.player.Clone()

	s.Abort(ctx)
	assert.Equal(t, battle.PhaseAborted, s.Phase())
	assert.Equal(t, battle.OutcomeAborted, s.Outcome())
	assert.True(t, s.Closed())
	assert.Equal(t, before, f.player, "abort applies no effects and does not count the battle")

	_, ok := f.engine.Active()
	assert.False(t, ok)

	s.Abort(ctx)
	assert.Len(t, f.rec.ended, 1)
}

func TestClosedSession_Panics(t *testing.T) {
	f := newFixture(t, config.Default().Battle)
	s := f.start(t, "wisp")
	ctx := context.Background()
	require.NoError(t, s.UseSkill(ctx, "mem_childhood"))
	require.True(t, s.Closed())

	assert.Panics(t, func() { _ = s.UseSkill(ctx, "mem_childhood") })
	assert.Panics(t, func() { _ = s.UseEmotionResonance(ctx, emotion.Hope) })
	assert.Panics(t, func() { _ = s.UseItem(ctx, "hope_fragment") })
}

func TestNewEngine_PanicsOnNil(t *testing.T) {
	cfg := config.Default().Battle
	c, d, src, sink := newContent(), &stubDecider{}, &seq{vals: []float64{0}}, battle.NopSink{}
	assert.Panics(t, func() { battle.NewEngine(cfg, nil, d, src, sink, zap.NewNop()) })
	assert.Panics(t, func() { battle.NewEngine(cfg, c, nil, src, sink, zap.NewNop()) })
	assert.Panics(t, func() { battle.NewEngine(cfg, c, d, nil, sink, zap.NewNop()) })
	assert.Panics(t, func() { battle.NewEngine(cfg, c, d, src, nil, zap.NewNop()) })
	assert.Panics(t, func() { battle.NewEngine(cfg, c, d, src, sink, nil) })
}

func TestSinks_FanOut(t *testing.T) {
	a, b := newRecorder(), newRecorder()
	battle.Sinks{a, b}.OnLogLine("hello")
	battle.Sinks{a, b}.OnBattleEnded(battle.OutcomeDefeat)
	assert.Equal(t, []string{"hello"}, a.lines)
	assert.Equal(t, []string{"hello"}, b.lines)
	assert.Equal(t, []battle.Outcome{battle.OutcomeDefeat}, b.ended)
}

func TestPhaseTerminal(t *testing.T) {
	assert.False(t, battle.PhasePlayerTurn.Terminal())
	assert.False(t, battle.PhaseEnemyTurn.Terminal())
	for _, p := range []battle.Phase{battle.PhaseVictory, battle.PhaseDefeat, battle.PhaseTimeout, battle.PhaseAborted} {
		assert.True(t, p.Terminal(), p)
	}
}

// TestProperty_PlayerInvariantsHold drives random action sequences through the
// real AI selector and checks the player and session bounds after every step.
func TestProperty_PlayerInvariantsHold(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		cfg := config.Default().Battle
		src := dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed"))
		selector := ai.NewSelector(ai.NewRegistry(), ai.DefaultBehavior(cfg.AI), nil, src, zap.NewNop())
		engine := battle.NewEngine(cfg, newContent(), selector, src, battle.NopSink{}, zap.NewNop())

		p := player.New(config.Default().NewGame)
		p.CurrentHP = rapid.IntRange(1, p.MaxHP).Draw(rt, "hp")
		p.CurrentMP = rapid.IntRange(0, p.MaxMP).Draw(rt, "mp")
		enemyID := rapid.SampledFrom([]string{"shadow", "wisp", "mute"}).Draw(rt, "enemy")
		s, err := engine.Start(context.Background(), p, enemyID)
		if err != nil {
			rt.Fatalf("start: %v", err)
		}

		ctx := context.Background()
		for step := 0; step < 60 && !s.Closed(); step++ {
			switch rapid.IntRange(0, 5).Draw(rt, "action") {
			case 0:
				_ = s.UseSkill(ctx, "mem_childhood")
			case 1:
				_ = s.UseSkill(ctx, "mem_friend")
			case 2:
				_ = s.UseSkill(ctx, "mem_nothing")
			case 3:
				_ = s.UseEmotionResonance(ctx, emotion.Hope)
			case 4:
				_ = s.UseItem(ctx, "hope_fragment")
			case 5:
				_ = s.UseItem(ctx, "memory_crystal")
			}

			if p.CurrentHP < 0 || p.CurrentHP > p.MaxHP {
				rt.Fatalf("hp %d outside [0, %d]", p.CurrentHP, p.MaxHP)
			}
			if p.CurrentMP < 0 || p.CurrentMP > p.MaxMP {
				rt.Fatalf("mp %d outside [0, %d]", p.CurrentMP, p.MaxMP)
			}
			for _, tag := range emotion.Counters {
				if p.Emotions.Get(tag) < 0 {
					rt.Fatalf("%s went negative", tag)
				}
			}
			if s.ActionPoints() < 0 || s.ActionPoints() > cfg.MaxActionPoints {
				rt.Fatalf("action points %d out of range", s.ActionPoints())
			}
			if e := s.Enemy(); e.CurrentHP < 0 || e.CurrentHP > e.MaxHP {
				rt.Fatalf("enemy hp %d out of range", e.CurrentHP)
			}
		}
		if s.Closed() {
			assert.Equal(rt, 1, p.TotalBattles)
		}
	})
}
