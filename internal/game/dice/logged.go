package dice

import "go.uber.org/zap"

// LoggedSource wraps a Source and logs every draw at debug level.
type LoggedSource struct {
	src    Source
	logger *zap.Logger
	draws  uint64
}

// NewLoggedSource creates a LoggedSource drawing from src and logging to logger.
//
// Precondition: src and logger must be non-nil.
func NewLoggedSource(src Source, logger *zap.Logger) *LoggedSource {
	if src == nil {
		panic("dice.NewLoggedSource: src must not be nil")
	}
	if logger == nil {
		panic("dice.NewLoggedSource: logger must not be nil")
	}
	return &LoggedSource{src: src, logger: logger}
}

// Float64 draws from the wrapped source and logs the value with its sequence number.
func (l *LoggedSource) Float64() float64 {
	v := l.src.Float64()
	l.draws++
	l.logger.Debug("random draw",
		zap.Uint64("seq", l.draws),
		zap.Float64("value", v),
	)
	return v
}

// Draws returns how many values have been drawn so far.
func (l *LoggedSource) Draws() uint64 { return l.draws }
