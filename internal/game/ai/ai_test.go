package ai_test

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	lua "github.com/yuin/gopher-lua"
	"go.uber.org/zap"
	"pgregory.net/rapid"

	"github.com/cory-johannsen/dreamrealm/internal/config"
	"github.com/cory-johannsen/dreamrealm/internal/game/ai"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
	"github.com/cory-johannsen/dreamrealm/internal/scripting"
)

// seq replays a fixed list of draws and counts them.
type seq struct {
	vals []float64
	n    int
}

func (s *seq) Float64() float64 {
	v := s.vals[s.n%len(s.vals)]
	s.n++
	return v
}

// stubCaller answers every hook with ret and records the calls.
type stubCaller struct {
	ret   lua.LValue
	calls []string
}

func (c *stubCaller) CallHook(_ context.Context, scope, hook string, _ ...lua.LValue) (lua.LValue, error) {
	c.calls = append(c.calls, scope+"/"+hook)
	return c.ret, nil
}

const repoContent = "../../../content"

func defaultSelector(src dice.Source, caller ai.ScriptCaller) (*ai.Selector, *ai.Registry) {
	reg := ai.NewRegistry()
	return ai.NewSelector(reg, ai.DefaultBehavior(config.Default().Battle.AI), caller, src, zap.NewNop()), reg
}

func situation(enemyHP, playerHP int) ai.Situation {
	return ai.Situation{EnemyID: "n", EnemyHP: enemyHP, EnemyMaxHP: 100, PlayerHP: playerHP, PlayerMaxHP: 100, Turn: 1, HasSpecial: true}
}

func TestDefaultBehavior_Validates(t *testing.T) {
	assert.NoError(t, ai.DefaultBehavior(config.Default().Battle.AI).Validate())
}

func TestSelect_SpecialWhenHurt(t *testing.T) {
	src := &seq{vals: []float64{0.69}}
	sel, _ := defaultSelector(src, nil)
	d := sel.Select(context.Background(), "", situation(29, 50))
	assert.Equal(t, ai.ActionSpecial, d.Action)
	assert.Equal(t, "desperate_special", d.Rule)
	assert.Equal(t, 1, src.n)
}

func TestSelect_SpecialChanceMissFallsThrough(t *testing.T) {
	// special misses (0.7 >= 0.7); player at 50% skips the power rule without a draw
	src := &seq{vals: []float64{0.7}}
	sel, _ := defaultSelector(src, nil)
	d := sel.Select(context.Background(), "", situation(10, 50))
	assert.Equal(t, ai.ActionAttack, d.Action)
	assert.Equal(t, 1.0, d.Power)
	assert.Equal(t, 1, src.n)
}

func TestSelect_PowerAttackAgainstHealthyPlayer(t *testing.T) {
	src := &seq{vals: []float64{0.49}}
	sel, _ := defaultSelector(src, nil)
	d := sel.Select(context.Background(), "", situation(100, 81))
	assert.Equal(t, ai.ActionAttack, d.Action)
	assert.InDelta(t, 1.2, d.Power, 1e-9)
	assert.Equal(t, "power_attack", d.Rule)
	assert.Equal(t, 1, src.n, "enemy HP condition failed so only the power rule drew")
}

func TestSelect_NoDrawWhenNoConditionHolds(t *testing.T) {
	src := &seq{vals: []float64{0.0}}
	sel, _ := defaultSelector(src, nil)
	// enemy at exactly 30% is not below 0.3; player at exactly 80% is not above 0.8
	d := sel.Select(context.Background(), "", situation(30, 80))
	assert.Equal(t, "attack", d.Rule)
	assert.Equal(t, 0, src.n)
}

func TestSelect_SkipsSpecialWithoutAbility(t *testing.T) {
	src := &seq{vals: []float64{0.0}}
	sel, _ := defaultSelector(src, nil)
	sit := situation(5, 50)
	sit.HasSpecial = false
	d := sel.Select(context.Background(), "", sit)
	assert.Equal(t, ai.ActionAttack, d.Action)
	assert.Equal(t, 0, src.n)
}

func TestSelect_PreconditionGatesRule(t *testing.T) {
	yes := 1.0
	b := &ai.Behavior{ID: "cunning", Rules: []*ai.Rule{
		{ID: "scripted", Action: ai.ActionSpecial, Precondition: "should_special", Chance: &yes},
		{ID: "fallback", Action: ai.ActionAttack},
	}}
	for _, tc := range []struct {
		ret  lua.LValue
		want ai.Action
	}{{lua.LTrue, ai.ActionSpecial}, {lua.LFalse, ai.ActionAttack}, {lua.LNil, ai.ActionAttack}} {
		caller := &stubCaller{ret: tc.ret}
		src := &seq{vals: []float64{0.5}}
		sel, reg := defaultSelector(src, caller)
		require.NoError(t, reg.Register(b))
		assert.Equal(t, tc.want, sel.Select(context.Background(), "cunning", situation(100, 100)).Action)
		assert.Equal(t, []string{"cunning/should_special"}, caller.calls)
		assert.Equal(t, 0, src.n, "chance of 1 never draws")
	}
}

func TestSelect_PreconditionWithoutCallerNeverFires(t *testing.T) {
	b := &ai.Behavior{ID: "cunning", Rules: []*ai.Rule{
		{ID: "scripted", Action: ai.ActionSpecial, Precondition: "should_special"},
	}}
	sel, reg := defaultSelector(&seq{vals: []float64{0}}, nil)
	require.NoError(t, reg.Register(b))
	assert.Equal(t, ai.ActionAttack, sel.Select(context.Background(), "cunning", situation(100, 100)).Action)
}

func TestSelect_ZeroChanceNeverFires(t *testing.T) {
	zero := 0.0
	b := &ai.Behavior{ID: "timid", Rules: []*ai.Rule{{ID: "never", Action: ai.ActionSpecial, Chance: &zero}}}
	src := &seq{vals: []float64{0}}
	sel, reg := defaultSelector(src, nil)
	require.NoError(t, reg.Register(b))
	assert.Equal(t, ai.Decision{Action: ai.ActionAttack, Power: 1}, sel.Select(context.Background(), "timid", situation(1, 100)))
	assert.Equal(t, 0, src.n)
}

func TestSelect_UnknownBehaviorUsesFallback(t *testing.T) {
	sel, _ := defaultSelector(&seq{vals: []float64{0.1}}, nil)
	d := sel.Select(context.Background(), "missing", situation(10, 50))
	assert.Equal(t, "desperate_special", d.Rule)
}

func TestSelect_LuaPreconditionThroughManager(t *testing.T) {
	src := dice.NewSeededSource(3)
	mgr := scripting.NewManager(src, zap.NewNop(), 0)
	defer mgr.Close()
	require.NoError(t, mgr.LoadString("berserk", `
		function late_game(enemy_id, enemy_hp, enemy_max_hp, player_hp, player_max_hp, turn)
			return turn >= 3 and enemy_id == "n"
		end
	`))
	b := &ai.Behavior{ID: "berserk", Rules: []*ai.Rule{
		{ID: "frenzy", Action: ai.ActionAttack, Power: 2, Precondition: "late_game"},
	}}
	reg := ai.NewRegistry()
	require.NoError(t, reg.Register(b))
	sel := ai.NewSelector(reg, ai.DefaultBehavior(config.Default().Battle.AI), mgr, src, zap.NewNop())

	sit := situation(100, 50)
	assert.Equal(t, 1.0, sel.Select(context.Background(), "berserk", sit).Power)
	sit.Turn = 3
	assert.Equal(t, 2.0, sel.Select(context.Background(), "berserk", sit).Power)
}

func TestBehaviorValidate(t *testing.T) {
	bad := 1.5
	cases := map[string]*ai.Behavior{
		"no id":          {Rules: []*ai.Rule{{ID: "a", Action: ai.ActionAttack}}},
		"no rules":       {ID: "b"},
		"empty rule id":  {ID: "b", Rules: []*ai.Rule{{Action: ai.ActionAttack}}},
		"dup rule":       {ID: "b", Rules: []*ai.Rule{{ID: "a", Action: ai.ActionAttack}, {ID: "a", Action: ai.ActionAttack}}},
		"unknown action": {ID: "b", Rules: []*ai.Rule{{ID: "a", Action: "flee"}}},
		"bad chance":     {ID: "b", Rules: []*ai.Rule{{ID: "a", Action: ai.ActionAttack, Chance: &bad}}},
		"negative power": {ID: "b", Rules: []*ai.Rule{{ID: "a", Action: ai.ActionAttack, Power: -1}}},
	}
	for name, b := range cases {
		t.Run(name, func(t *testing.T) {
			assert.Error(t, b.Validate())
		})
	}
}

func TestRegistry_DuplicateRejected(t *testing.T) {
	reg := ai.NewRegistry()
	b := &ai.Behavior{ID: "x", Rules: []*ai.Rule{{ID: "a", Action: ai.ActionAttack}}}
	require.NoError(t, reg.Register(b))
	assert.Error(t, reg.Register(b))
	assert.Equal(t, 1, reg.Len())
}

func TestRegistry_IDsSorted(t *testing.T) {
	reg := ai.NewRegistry()
	for _, id := range []string{"tormentor", "cautious", "brute"} {
		require.NoError(t, reg.Register(&ai.Behavior{ID: id, Rules: []*ai.Rule{{ID: "a", Action: ai.ActionAttack}}}))
	}
	assert.Equal(t, []string{"brute", "cautious", "tormentor"}, reg.IDs())
}

func TestLoadBehaviors(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "aggressive.yaml"), []byte(`
behavior:
  id: aggressive
  rules:
    - id: smash
      action: attack
      power: 1.5
      player_hp_above: 0.5
      chance: 0.6
    - id: attack
      action: attack
`), 0644))
	list, err := ai.LoadBehaviors(dir)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1.5, list[0].Rules[0].Power)
	require.NotNil(t, list[0].Rules[0].Chance)
	assert.Equal(t, 0.6, *list[0].Rules[0].Chance)
	assert.Nil(t, list[0].Rules[1].Chance)
	assert.Equal(t, 1.0, list[0].Rules[1].EffectivePower())

	require.NoError(t, os.WriteFile(filepath.Join(dir, "broken.yaml"), []byte("id: x\n"), 0644))
	_, err = ai.LoadBehaviors(dir)
	assert.Error(t, err)
}

// campaignSelector builds a selector over the shipped content the way the
// binary does: behaviors from content/ai when that directory exists.
func campaignSelector(t *testing.T, src dice.Source) *ai.Selector {
	t.Helper()
	reg := ai.NewRegistry()
	dir := filepath.Join(repoContent, "ai")
	if _, err := os.Stat(dir); err == nil {
		behaviors, err := ai.LoadBehaviors(dir)
		require.NoError(t, err)
		for _, b := range behaviors {
			require.NoError(t, reg.Register(b))
		}
	}
	return ai.NewSelector(reg, ai.DefaultBehavior(config.Default().Battle.AI), nil, src, zap.NewNop())
}

func TestCampaignEnemies_FollowNightmarePolicy(t *testing.T) {
	store, err := content.Load(repoContent)
	require.NoError(t, err)
	require.NotEmpty(t, store.Stages())

	for _, stage := range store.Stages() {
		e, ok := store.Enemy(stage.Enemy)
		require.True(t, ok, stage.Enemy)
		at := func(enemyPct, playerPct int) ai.Situation {
			return ai.Situation{
				EnemyID:     e.ID,
				EnemyHP:     e.MaxHP * enemyPct / 100,
				EnemyMaxHP:  e.MaxHP,
				PlayerHP:    playerPct,
				PlayerMaxHP: 100,
				Turn:        2,
				HasSpecial:  e.SpecialAbility != "",
			}
		}

		for _, tc := range []struct {
			name      string
			draw      float64
			sit       ai.Situation
			want      ai.Action
			power     float64
			wantDraws int
		}{
			{"healthy player, draw hits", 0, at(100, 100), ai.ActionAttack, 1.2, 1},
			{"healthy player, draw misses", 0.5, at(100, 100), ai.ActionAttack, 1, 1},
			{"enemy at 40%", 0, at(40, 50), ai.ActionAttack, 1, 0},
			{"enemy at 20%, draw hits", 0.69, at(20, 50), ai.ActionSpecial, 1, 1},
			{"enemy at 20%, draw misses", 0.7, at(20, 50), ai.ActionAttack, 1, 1},
			{"player at 25%", 0, at(100, 25), ai.ActionAttack, 1, 0},
		} {
			src := &seq{vals: []float64{tc.draw}}
			d := campaignSelector(t, src).Select(context.Background(), e.Behavior, tc.sit)
			assert.Equal(t, tc.want, d.Action, "%s: %s", e.ID, tc.name)
			if tc.want == ai.ActionAttack {
				assert.InDelta(t, tc.power, d.Power, 1e-9, "%s: %s", e.ID, tc.name)
			}
			assert.Equal(t, tc.wantDraws, src.n, "%s: %s", e.ID, tc.name)
		}
	}
}

func TestProperty_SelectAlwaysDecides(t *testing.T) {
	rapid.Check(t, func(rt *rapid.T) {
		sel, _ := defaultSelector(dice.NewSeededSource(rapid.Uint64().Draw(rt, "seed")), nil)
		sit := ai.Situation{
			EnemyHP:     rapid.IntRange(0, 200).Draw(rt, "ehp"),
			EnemyMaxHP:  200,
			PlayerHP:    rapid.IntRange(0, 150).Draw(rt, "php"),
			PlayerMaxHP: 150,
			HasSpecial:  rapid.Bool().Draw(rt, "special"),
		}
		d := sel.Select(context.Background(), "", sit)
		if !sit.HasSpecial {
			assert.Equal(rt, ai.ActionAttack, d.Action)
		}
		if d.Action == ai.ActionSpecial {
			assert.True(rt, sit.EnemyHPBelow(0.3))
		}
		if d.Power > 1 {
			assert.True(rt, sit.PlayerHPAbove(0.8))
		}
	})
}
