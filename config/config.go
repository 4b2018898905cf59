// Package config loads the JSON board description and converts it into the
// tuning structures used by the firmware.
package config

import (
	"encoding/json"
	"errors"
	"strconv"
	"strings"

	"goesc/commutation"
	"goesc/core"
)

var (
	ErrInvalidPin   = errors.New("config: invalid pin name")
	ErrInvalidTrace = errors.New("config: unknown trace kind")
)

// LoadConfig parses a JSON configuration and returns a BoardConfig
func LoadConfig(jsonData []byte) (*BoardConfig, error) {
	var config BoardConfig

	err := json.Unmarshal(jsonData, &config)
	if err != nil {
		return nil, err
	}

	// Apply defaults
	applyDefaults(&config)

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return &config, nil
}

// applyDefaults fills in missing configuration values with sensible defaults
func applyDefaults(config *BoardConfig) {
	if config.Name == "" {
		config.Name = "esc"
	}
	if config.PWMFrequency == 0 {
		config.PWMFrequency = 24000
	}
	if config.ReceiverChannel == 0 {
		config.ReceiverChannel = core.DefaultThrottleChannel
	}

	if config.ZCD.FilterLength == 0 {
		config.ZCD.FilterLength = core.DefaultFilterLength
	}
	if config.ZCD.BlankingUS == nil {
		us := uint32(core.DefaultBlankingUS)
		config.ZCD.BlankingUS = &us
	}

	if config.SelfTest.LowMax == 0 {
		config.SelfTest.LowMax = core.DefaultSelfTestLowMax
	}
	if config.SelfTest.HighMin == 0 {
		config.SelfTest.HighMin = core.DefaultSelfTestHighMin
	}

	def := commutation.DefaultConfig()
	s := &config.Startup
	if s.AlignDuty == 0 {
		s.AlignDuty = def.AlignDuty
	}
	if s.AlignUS == 0 {
		s.AlignUS = core.TimerToUS(def.AlignTicks)
	}
	if s.RampDuty == 0 {
		s.RampDuty = def.RampDuty
	}
	if s.RampStartUS == 0 {
		s.RampStartUS = core.TimerToUS(def.RampStartTicks)
	}
	if s.RampEndUS == 0 {
		s.RampEndUS = core.TimerToUS(def.RampEndTicks)
	}
	if s.RampShift == 0 {
		s.RampShift = def.RampShift
	}
	if s.RampTimeoutUS == 0 {
		s.RampTimeoutUS = core.TimerToUS(def.RampTimeoutTicks)
	}
	if s.LockCount == 0 {
		s.LockCount = def.LockCount
	}
	if s.StallPeriods == 0 {
		s.StallPeriods = def.StallPeriods
	}
	if s.RetryUS == 0 {
		s.RetryUS = core.TimerToUS(def.RetryTicks)
	}
	if s.MinDuty == 0 {
		s.MinDuty = def.MinDuty
	}
	if s.MaxDuty == 0 {
		s.MaxDuty = def.MaxDuty
	}
}

// Validate checks pin names and the derived tuning.
func (c *BoardConfig) Validate() error {
	required := []string{
		c.Pins.GateAHigh, c.Pins.GateALow, c.Pins.GateBHigh,
		c.Pins.GateBLow, c.Pins.GateCHigh, c.Pins.GateCLow,
		c.Pins.Receiver, c.Pins.ErrorLED,
	}
	for _, name := range required {
		if _, err := ParsePin(name); err != nil {
			return err
		}
	}
	for _, name := range []string{c.Pins.StatusLED, c.Pins.DebugPin, c.Pins.NeoPixel} {
		if name == "" {
			continue
		}
		if _, err := ParsePin(name); err != nil {
			return err
		}
	}

	cc, err := c.CoreConfig()
	if err != nil {
		return err
	}
	if err := cc.Validate(); err != nil {
		return err
	}
	return c.CommutationConfig().Validate()
}

// ReceiverPin returns the throttle input pin.
func (c *BoardConfig) ReceiverPin() (uint8, error) {
	return ParsePin(c.Pins.Receiver)
}

// ParsePin converts "gpioN" (or a bare number) to a pin number.
func ParsePin(name string) (uint8, error) {
	n := strings.TrimPrefix(strings.ToLower(strings.TrimSpace(name)), "gpio")
	v, err := strconv.ParseUint(n, 10, 8)
	if err != nil || v > 29 {
		return 0, ErrInvalidPin
	}
	return uint8(v), nil
}

// ParseTrace converts trace kind names into a mask.
func ParseTrace(names []string) (core.TraceKind, error) {
	var mask core.TraceKind
	for _, n := range names {
		switch strings.ToLower(n) {
		case "adc":
			mask |= core.TraceADC
		case "diff":
			mask |= core.TraceDiff
		case "zcd":
			mask |= core.TraceZCD
		case "all":
			mask |= core.TraceAll
		default:
			return 0, ErrInvalidTrace
		}
	}
	return mask, nil
}

// CoreConfig returns the sampling-interrupt tuning.
func (c *BoardConfig) CoreConfig() (core.Config, error) {
	mask, err := ParseTrace(c.ZCD.Trace)
	if err != nil {
		return core.Config{}, err
	}
	var blanking uint32 = core.DefaultBlankingUS
	if c.ZCD.BlankingUS != nil {
		blanking = *c.ZCD.BlankingUS
	}
	return core.Config{
		FilterLength:  c.ZCD.FilterLength,
		BlankingTicks: core.TimerFromUS(blanking),
		LowThreshold:  c.ZCD.LowThreshold,
		HighThreshold: c.ZCD.HighThreshold,
		TraceMask:     mask,
	}, nil
}

// SelfTestLimits returns the gate self-test bounds.
func (c *BoardConfig) SelfTestLimits() core.SelfTestLimits {
	return core.SelfTestLimits{LowMax: c.SelfTest.LowMax, HighMin: c.SelfTest.HighMin}
}

// CommutationConfig returns the start-up and running tuning.
func (c *BoardConfig) CommutationConfig() commutation.Config {
	s := c.Startup
	return commutation.Config{
		AlignDuty:        s.AlignDuty,
		AlignTicks:       core.TimerFromUS(s.AlignUS),
		RampDuty:         s.RampDuty,
		RampStartTicks:   core.TimerFromUS(s.RampStartUS),
		RampEndTicks:     core.TimerFromUS(s.RampEndUS),
		RampShift:        s.RampShift,
		RampTimeoutTicks: core.TimerFromUS(s.RampTimeoutUS),
		LockCount:        s.LockCount,
		StallPeriods:     s.StallPeriods,
		RetryTicks:       core.TimerFromUS(s.RetryUS),
		MinDuty:          s.MinDuty,
		MaxDuty:          s.MaxDuty,
		FullSetpoint:     core.ThrottleToSetpoint(2000),
	}
}

// TelemetryPeriodTicks returns the status frame period, 0 when disabled.
func (c *BoardConfig) TelemetryPeriodTicks() uint32 {
	return core.TimerFromUS(c.TelemetryPeriodMS * 1000)
}

// DefaultConfig returns the reference board layout.
func DefaultConfig() *BoardConfig {
	config := &BoardConfig{
		Name: "goesc-rp2040",
		Pins: PinConfig{
			GateAHigh: "gpio0",
			GateALow:  "gpio1",
			GateBHigh: "gpio2",
			GateBLow:  "gpio3",
			GateCHigh: "gpio4",
			GateCLow:  "gpio5",
			Receiver:  "gpio6",
			StatusLED: "gpio25",
			ErrorLED:  "gpio15",
			DebugPin:  "gpio14",
		},
		TelemetryPeriodMS: 100,
	}
	applyDefaults(config)
	return config
}
