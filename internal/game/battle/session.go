package battle

import (
	"context"
	"fmt"
	"math"
	"slices"

	"github.com/looplab/fsm"
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/game/ai"
	"github.com/cory-johannsen/dreamrealm/internal/game/content"
	"github.com/cory-johannsen/dreamrealm/internal/game/dice"
	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/enemy"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// Session is one battle against one enemy instance.
//
// Invariant: 0 <= ap <= MaxActionPoints; turn only increases at the end of an
// enemy turn. Once closed, every action method panics.
type Session struct {
	id      string
	engine  *Engine
	player  *player.State
	enemy   *enemy.Instance
	fsm     *fsm.FSM
	turn    int
	ap      int
	log     []string
	outcome Outcome
	closed  bool
	logger  *zap.Logger
}

// ID returns the session's unique identifier.
func (s *Session) ID() string { return s.id }

// Phase returns the current phase.
func (s *Session) Phase() Phase { return Phase(s.fsm.Current()) }

// Turn returns the 1-based turn counter.
func (s *Session) Turn() int { return s.turn }

// ActionPoints returns the actions left before the enemy acts.
func (s *Session) ActionPoints() int { return s.ap }

// Enemy returns a snapshot of the enemy instance.
func (s *Session) Enemy() enemy.Instance { return *s.enemy }

// Player returns the player state the session mutates.
func (s *Session) Player() *player.State { return s.player }

// Log returns a copy of every line emitted so far.
func (s *Session) Log() []string { return slices.Clone(s.log) }

// Outcome returns how the battle ended, or "" while it is open.
func (s *Session) Outcome() Outcome { return s.outcome }

// Closed reports whether the battle has ended.
func (s *Session) Closed() bool { return s.closed }

// UseSkill spends MP to hit the enemy with a memory skill.
//
// Precondition: the session must be open.
// Postcondition: On error nothing but a log line changes. On success MP is
// deducted, damage and the skill's emotion effect are applied, and the battle
// advances (victory, enemy turn, or one fewer action point).
func (s *Session) UseSkill(ctx context.Context, skillID string) error {
	s.mustBeOpen("UseSkill")
	if err := s.requirePlayerTurn("use_skill", skillID); err != nil {
		return err
	}
	sk, ok := s.engine.content.Skill(skillID)
	if !ok {
		return s.reject("use_skill", skillID, ErrNotFound, fmt.Sprintf("Unknown skill: %s", skillID))
	}
	if !s.player.SpendMP(sk.MPCost) {
		return s.reject("use_skill", skillID, ErrInsufficientResource, "Not enough memory power...")
	}
	s.engine.sink.OnMPChanged(s.player.CurrentMP)

	mult := s.matchup(sk.Emotion)
	dmg := s.skillDamage(sk, mult)
	s.enemy.ApplyDamage(dmg)

	s.say(fmt.Sprintf("Used %s!", sk.Name))
	s.say(fmt.Sprintf("%s took %d damage!", s.enemy.Name, dmg))
	switch sk.Emotion {
	case s.enemy.Weakness:
		s.say("It's super effective!")
	case s.enemy.Resist:
		s.say("It's not very effective...")
	}
	s.engine.sink.OnHPChanged(SideEnemy, s.enemy.CurrentHP)
	if effect, ok := s.engine.content.SkillEffect(sk.Emotion); ok {
		s.applyEmotions(effect)
	}
	s.logger.Debug("skill resolved",
		zap.String("skill", sk.ID),
		zap.Float64("matchup", mult),
		zap.Int("damage", dmg),
		zap.Int("enemy_hp", s.enemy.CurrentHP),
	)
	return s.afterAttack(ctx)
}

// UseEmotionResonance strikes with a fixed-damage emotion resonance. It costs
// no MP and ignores matchups.
//
// Precondition: the session must be open.
func (s *Session) UseEmotionResonance(ctx context.Context, tag emotion.Tag) error {
	s.mustBeOpen("UseEmotionResonance")
	if err := s.requirePlayerTurn("resonate", string(tag)); err != nil {
		return err
	}
	r, ok := s.engine.content.Resonance(tag)
	if !ok {
		return s.reject("resonate", string(tag), ErrNotFound, fmt.Sprintf("Nothing resonates with %s.", tag))
	}

	s.enemy.ApplyDamage(r.Damage)
	s.say(fmt.Sprintf("Resonated with the power of %s!", tag))
	s.say(fmt.Sprintf("%s took %d damage!", s.enemy.Name, r.Damage))
	s.engine.sink.OnHPChanged(SideEnemy, s.enemy.CurrentHP)
	s.applyEmotions(r.Emotions)
	return s.afterAttack(ctx)
}

// UseItem consumes one unit of an item to heal HP/MP and gain emotions.
// Items never damage, so they never end the battle in victory.
//
// Precondition: the session must be open.
// Postcondition: ErrOutOfStock is checked before ErrNotFound; an unknown item
// is not consumed.
func (s *Session) UseItem(ctx context.Context, itemID string) error {
	s.mustBeOpen("UseItem")
	if err := s.requirePlayerTurn("use_item", itemID); err != nil {
		return err
	}
	if s.player.ItemCount(itemID) <= 0 {
		return s.reject("use_item", itemID, ErrOutOfStock, "You don't have that item...")
	}
	it, ok := s.engine.content.Item(itemID)
	if !ok {
		return s.reject("use_item", itemID, ErrNotFound, fmt.Sprintf("Unknown item: %s", itemID))
	}
	s.player.ConsumeItem(itemID)
	s.say(fmt.Sprintf("Used %s!", it.Name))

	if it.HP > 0 {
		before := s.player.CurrentHP
		healed := s.player.Heal(it.HP) - before
		s.say(fmt.Sprintf("Recovered %d HP!", healed))
		s.engine.sink.OnHPChanged(SidePlayer, s.player.CurrentHP)
	}
	if it.MP > 0 {
		before := s.player.CurrentMP
		restored := s.player.RestoreMP(it.MP) - before
		s.say(fmt.Sprintf("Recovered %d memory power!", restored))
		s.engine.sink.OnMPChanged(s.player.CurrentMP)
	}
	s.applyEmotions(it.Emotions)
	return s.spendActionPoint(ctx)
}

// Abort force-ends the battle without rewards, penalties or counting it.
// Aborting a closed session is a no-op.
func (s *Session) Abort(ctx context.Context) {
	if s.closed {
		return
	}
	s.transition(ctx, evAbort)
	s.say("The battle was abandoned.")
	s.logger.Info("battle aborted", zap.Int("turn", s.turn))
	s.close(OutcomeAborted)
}

func (s *Session) mustBeOpen(op string) {
	if s.closed {
		panic(fmt.Sprintf("battle.Session.%s: session %s is closed", op, s.id))
	}
}

func (s *Session) requirePlayerTurn(op, id string) error {
	if s.Phase() != PhasePlayerTurn {
		return s.reject(op, id, ErrInvalidState, "You can't act right now.")
	}
	return nil
}

func (s *Session) reject(op, id string, err error, line string) error {
	s.say(line)
	s.logger.Debug("action rejected", zap.String("op", op), zap.String("id", id), zap.Error(err))
	return &ActionError{Op: op, ID: id, Err: err}
}

func (s *Session) say(line string) {
	s.log = append(s.log, line)
	s.engine.sink.OnLogLine(line)
}

func (s *Session) transition(ctx context.Context, event string) {
	if err := s.fsm.Event(ctx, event); err != nil {
		panic(fmt.Sprintf("battle: transition %q from %q: %v", event, s.fsm.Current(), err))
	}
}

func (s *Session) matchup(tag emotion.Tag) float64 {
	d := s.engine.cfg.Damage
	switch {
	case tag == s.enemy.Weakness:
		return d.Weakness
	case tag == s.enemy.Resist:
		return d.Resist
	}
	return d.Neutral
}

// skillDamage is floor(base × (1 + level × bonus) × matchup × spread).
func (s *Session) skillDamage(sk *content.Skill, mult float64) int {
	d := s.engine.cfg.Damage
	dmg := float64(sk.BasePower)
	dmg *= 1 + float64(s.player.Level)*d.LevelBonus
	dmg *= mult
	dmg *= dice.Spread(s.engine.src, d.SkillSpreadMin, d.SkillSpreadWidth)
	return max(int(math.Floor(dmg)), 0)
}

func (s *Session) applyEmotions(d emotion.Deltas) {
	for _, tag := range d.Sorted() {
		v, err := s.player.AdjustEmotion(tag, d[tag])
		if err != nil {
			// content validation rejects non-counter keys
			panic(fmt.Sprintf("battle: %v", err))
		}
		s.engine.sink.OnEmotionChanged(tag, v)
	}
}

func (s *Session) afterAttack(ctx context.Context) error {
	if s.enemy.IsDefeated() {
		s.transition(ctx, evSave)
		s.victory()
		return nil
	}
	return s.spendActionPoint(ctx)
}

func (s *Session) spendActionPoint(ctx context.Context) error {
	s.ap--
	if s.ap <= 0 {
		s.enemyTurn(ctx)
	}
	return nil
}

func (s *Session) enemyTurn(ctx context.Context) {
	s.transition(ctx, evEndPlayerTurn)
	s.say("--- Enemy turn ---")

	decision := s.engine.decider.Select(ctx, s.enemy.Behavior, ai.Situation{
		EnemyID:     s.enemy.ID,
		EnemyHP:     s.enemy.CurrentHP,
		EnemyMaxHP:  s.enemy.MaxHP,
		PlayerHP:    s.player.CurrentHP,
		PlayerMaxHP: s.player.MaxHP,
		Turn:        s.turn,
		HasSpecial:  s.enemy.SpecialAbility != "",
	})
	s.logger.Debug("enemy decision", zap.Stringer("decision", decision), zap.String("rule", decision.Rule))

	switch decision.Action {
	case ai.ActionSpecial:
		s.special()
	default:
		s.attack(decision.Power)
	}

	if s.player.CurrentHP <= 0 {
		s.transition(ctx, evFall)
		s.defeat()
		return
	}

	s.turn++
	s.ap = s.engine.cfg.MaxActionPoints
	if s.turn > s.engine.cfg.MaxTurns {
		s.transition(ctx, evTimeUp)
		s.timeout()
		return
	}
	s.transition(ctx, evBeginPlayerTurn)
	s.say("--- Your turn ---")
}

func (s *Session) attack(power float64) {
	d := s.engine.cfg.Damage
	raw := float64(s.enemy.AttackPower) * power * dice.Spread(s.engine.src, d.EnemySpreadMin, d.EnemySpreadWidth)
	dmg := max(int(math.Floor(raw)), 0)
	s.player.ApplyDamage(dmg)
	s.say(fmt.Sprintf("%s attacks!", s.enemy.Name))
	s.say(fmt.Sprintf("You took %d damage!", dmg))
	s.engine.sink.OnHPChanged(SidePlayer, s.player.CurrentHP)
}

func (s *Session) special() {
	ab, ok := s.engine.content.Ability(s.enemy.SpecialAbility)
	if !ok {
		s.say(fmt.Sprintf("%s uses %s!", s.enemy.Name, s.enemy.SpecialAbility))
		return
	}
	s.say(fmt.Sprintf("%s uses %s!", s.enemy.Name, ab.Name))
	if ab.PowerMultiplier > 0 {
		dmg := int(math.Floor(float64(s.enemy.AttackPower) * ab.PowerMultiplier))
		s.player.ApplyDamage(dmg)
		s.say(fmt.Sprintf("You took %d damage!", dmg))
		s.engine.sink.OnHPChanged(SidePlayer, s.player.CurrentHP)
	}
	s.applyEmotions(ab.Emotions)
	for _, line := range ab.Lines {
		s.say(line)
	}
}

// victory awards BaseExperience + MaxHP/HPDivisor experience. The division
// truncates because player experience is a whole number; a 90 HP enemy with
// the default divisor of 4 is worth 72, not 72.5.
func (s *Session) victory() {
	v := s.engine.cfg.Victory
	s.say("--- Victory! ---")
	s.say(fmt.Sprintf("You saved %s!", s.enemy.Name))
	s.gainExperience(v.BaseExperience + s.enemy.MaxHP/v.HPDivisor)
	s.player.SavedCount++
	s.player.BattlesWon++
	s.applyEmotions(emotion.Deltas{emotion.Hope: v.Hope, emotion.Empathy: v.Empathy})
	s.finish(OutcomeVictory)
}

func (s *Session) defeat() {
	d := s.engine.cfg.Defeat
	s.say("--- Defeat... ---")
	s.say("Your strength was not enough...")
	s.applyEmotions(emotion.Deltas{emotion.Despair: d.Despair, emotion.Loneliness: d.Loneliness, emotion.Hope: d.Hope})
	s.finish(OutcomeDefeat)
}

func (s *Session) timeout() {
	s.say("--- Time's up ---")
	s.say("The battle ended without a resolution...")
	s.gainExperience(s.engine.cfg.Timeout.Experience)
	s.finish(OutcomeTimeout)
}

func (s *Session) gainExperience(amount int) {
	s.say(fmt.Sprintf("Gained %d EXP.", amount))
	for _, up := range s.player.GainExperience(amount) {
		s.say(fmt.Sprintf("Level up! Now level %d. Max HP +%d, max memory power +%d.", up.Level, up.HPGain, up.MPGain))
		s.engine.sink.OnLevelUp(up)
		s.engine.sink.OnHPChanged(SidePlayer, s.player.CurrentHP)
		s.engine.sink.OnMPChanged(s.player.CurrentMP)
	}
}

// finish applies the bookkeeping shared by every counted outcome.
func (s *Session) finish(outcome Outcome) {
	s.player.TotalBattles++
	s.logger.Info("battle finished",
		zap.String("outcome", string(outcome)),
		zap.Int("turn", s.turn),
		zap.Int("player_hp", s.player.CurrentHP),
		zap.Int("total_battles", s.player.TotalBattles),
	)
	s.close(outcome)
}

func (s *Session) close(outcome Outcome) {
	s.outcome = outcome
	s.closed = true
	s.engine.release(s)
	s.engine.sink.OnBattleEnded(outcome)
}
