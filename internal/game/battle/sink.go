package battle

import (
	"go.uber.org/zap"

	"github.com/cory-johannsen/dreamrealm/internal/game/emotion"
	"github.com/cory-johannsen/dreamrealm/internal/game/player"
)

// Side identifies whose HP changed.
type Side string

const (
	SidePlayer Side = "player"
	SideEnemy  Side = "enemy"
)

// Sink receives fire-and-forget battle notifications. Implementations must
// not call back into the session.
type Sink interface {
	OnLogLine(text string)
	OnHPChanged(side Side, value int)
	OnMPChanged(value int)
	OnEmotionChanged(tag emotion.Tag, value int)
	OnPhaseChanged(phase Phase)
	OnLevelUp(up player.LevelUp)
	OnBattleEnded(outcome Outcome)
}

// NopSink ignores every notification. Embed it to implement only some methods.
type NopSink struct{}

func (NopSink) OnLogLine(string) {}
func (NopSink) OnHPChanged(Side, int) {}
func (NopSink) OnMPChanged(int) {}
func (NopSink) OnEmotionChanged(emotion.Tag, int) {}
func (NopSink) OnPhaseChanged(Phase) {}
func (NopSink) OnLevelUp(player.LevelUp) {}
func (NopSink) OnBattleEnded(Outcome) {}

// Sinks fans every notification out to each member in order.
type Sinks []Sink

func (s Sinks) OnLogLine(text string) {
	for _, k := range s {
		k.OnLogLine(text)
	}
}

func (s Sinks) OnHPChanged(side Side, value int) {
	for _, k := range s {
		k.OnHPChanged(side, value)
	}
}

func (s Sinks) OnMPChanged(value int) {
	for _, k := range s {
		k.OnMPChanged(value)
	}
}

func (s Sinks) OnEmotionChanged(tag emotion.Tag, value int) {
	for _, k := range s {
		k.OnEmotionChanged(tag, value)
	}
}

func (s Sinks) OnPhaseChanged(phase Phase) {
	for _, k := range s {
		k.OnPhaseChanged(phase)
	}
}

func (s Sinks) OnLevelUp(up player.LevelUp) {
	for _, k := range s {
		k.OnLevelUp(up)
	}
}

func (s Sinks) OnBattleEnded(outcome Outcome) {
	for _, k := range s {
		k.OnBattleEnded(outcome)
	}
}

// LogSink mirrors notifications to a zap logger at debug level; level-ups and
// battle endings are logged at info.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink creates a LogSink.
//
// Precondition: logger must be non-nil.
func NewLogSink(logger *zap.Logger) *LogSink {
	if logger == nil {
		panic("battle.NewLogSink: logger must not be nil")
	}
	return &LogSink{logger: logger}
}

func (l *LogSink) OnLogLine(text string) {
	l.logger.Debug("battle log", zap.String("text", text))
}

func (l *LogSink) OnHPChanged(side Side, value int) {
	l.logger.Debug("hp changed", zap.String("side", string(side)), zap.Int("hp", value))
}

func (l *LogSink) OnMPChanged(value int) {
	l.logger.Debug("mp changed", zap.Int("mp", value))
}

func (l *LogSink) OnEmotionChanged(tag emotion.Tag, value int) {
	l.logger.Debug("emotion changed", zap.String("emotion", string(tag)), zap.Int("value", value))
}

func (l *LogSink) OnPhaseChanged(phase Phase) {
	l.logger.Debug("phase changed", zap.String("phase", string(phase)))
}

func (l *LogSink) OnLevelUp(up player.LevelUp) {
	l.logger.Info("level up",
		zap.Int("level", up.Level),
		zap.Int("hp_gain", up.HPGain),
		zap.Int("mp_gain", up.MPGain),
		zap.Int("experience_to_next", up.ExperienceToNext),
	)
}

func (l *LogSink) OnBattleEnded(outcome Outcome) {
	l.logger.Info("battle ended", zap.String("outcome", string(outcome)))
}
