package commutation

import (
	"errors"

	"goesc/core"
)

var (
	ErrInvalidDuty     = errors.New("commutation: duty cycle out of range")
	ErrInvalidRamp     = errors.New("commutation: invalid open-loop ramp")
	ErrInvalidSetpoint = errors.New("commutation: full-scale setpoint must be > 0")
	ErrInvalidStall    = errors.New("commutation: lock and stall counts must be > 0")
)

// Config tunes start-up and running behavior. Times are in core timer ticks.
type Config struct {
	// Rotor alignment before the open-loop ramp.
	AlignDuty  float32
	AlignTicks uint32

	// Open-loop forced commutation. The step period starts at RampStartTicks
	// and shrinks by period>>RampShift each step down to RampEndTicks.
	RampDuty         float32
	RampStartTicks   uint32
	RampEndTicks     uint32
	RampShift        uint8
	RampTimeoutTicks uint32

	// LockCount consecutive detections hand over to closed loop.
	LockCount uint32

	// A closed-loop motor with no detection for StallPeriods measured
	// intervals is stopped and restarted after RetryTicks.
	StallPeriods uint32
	RetryTicks   uint32

	// Running duty is linear in the setpoint between MinDuty and MaxDuty.
	MinDuty      float32
	MaxDuty      float32
	FullSetpoint uint32
}

// DefaultConfig suits a small outrunner on 3S.
func DefaultConfig() Config {
	return Config{
		AlignDuty:        0.10,
		AlignTicks:       core.TimerFromUS(200000),
		RampDuty:         0.15,
		RampStartTicks:   core.TimerFromUS(10000),
		RampEndTicks:     core.TimerFromUS(1000),
		RampShift:        4,
		RampTimeoutTicks: core.TimerFromUS(2000000),
		LockCount:        6,
		StallPeriods:     4,
		RetryTicks:       core.TimerFromUS(500000),
		MinDuty:          0.05,
		MaxDuty:          0.95,
		FullSetpoint:     core.ThrottleToSetpoint(2000),
	}
}

func validDuty(d float32) bool { return d > 0 && d <= 1 }

// Validate checks cfg before any state is allocated.
func (c Config) Validate() error {
	if !validDuty(c.AlignDuty) || !validDuty(c.RampDuty) ||
		!validDuty(c.MinDuty) || !validDuty(c.MaxDuty) || c.MinDuty > c.MaxDuty {
		return ErrInvalidDuty
	}
	if c.RampEndTicks == 0 || c.RampEndTicks > c.RampStartTicks || c.RampShift > 31 {
		return ErrInvalidRamp
	}
	if c.FullSetpoint == 0 {
		return ErrInvalidSetpoint
	}
	if c.LockCount == 0 || c.StallPeriods == 0 {
		return ErrInvalidStall
	}
	return nil
}
