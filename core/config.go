package core

import "errors"

// Tuning defaults for the zero-crossing filter.
const (
	DefaultFilterLength = 16
	DefaultBlankingUS   = 100
)

var (
	ErrInvalidFilterLength = errors.New("zcd filter length out of range")
	ErrInvalidThreshold    = errors.New("zcd low threshold must be >= 0")
)

// Config holds the sampling-interrupt tuning.
type Config struct {
	// FilterLength is the ZCD moving-average length, 1..MaxFilterLength.
	FilterLength int

	// BlankingTicks is the demagnetization window after each swap.
	BlankingTicks uint32

	// LowThreshold arms the hysteresis latch once the running sum drops
	// below -LowThreshold.
	LowThreshold int32

	// HighThreshold qualifies the crossing once the running sum rises above it.
	HighThreshold int32

	// TraceMask selects which events reach the trace sink.
	TraceMask TraceKind
}

// DefaultConfig returns the tuning the firmware boots with.
func DefaultConfig() Config {
	return Config{
		FilterLength:  DefaultFilterLength,
		BlankingTicks: TimerFromUS(DefaultBlankingUS),
	}
}

// Validate checks the configuration before any filter state is allocated.
func (c Config) Validate() error {
	if c.FilterLength < 1 || c.FilterLength > MaxFilterLength {
		return ErrInvalidFilterLength
	}
	if c.LowThreshold < 0 {
		return ErrInvalidThreshold
	}
	return nil
}
