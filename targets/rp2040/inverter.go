//go:build rp2040

package main

import (
	"machine"

	"goesc/config"
	"goesc/core"
)

// pwmPeripheral abstracts over TinyGo's unexported *pwmGroup type.
type pwmPeripheral interface {
	Configure(config machine.PWMConfig) error
	Channel(pin machine.Pin) (uint8, error)
	Top() uint32
	Set(channel uint8, value uint32)
}

// highGate is a high-side switch driven by a PWM channel.
type highGate struct {
	pwm pwmPeripheral
	ch  uint8
}

// pwmInverter drives three half bridges: high sides chop at the PWM
// frequency, low sides are plain GPIO.
type pwmInverter struct {
	high  [3]highGate
	low   [3]machine.Pin
	armed bool
	duty  float32

	// active high-side phase, or -1
	active int
}

// newPWMInverter leaves every gate off. On error the low sides are already
// configured and Off is still safe to call.
func newPWMInverter(board *config.BoardConfig) (*pwmInverter, error) {
	inv := &pwmInverter{active: -1}
	p := board.Pins
	lows := [3]string{p.GateALow, p.GateBLow, p.GateCLow}
	highs := [3]string{p.GateAHigh, p.GateBHigh, p.GateCHigh}

	for i, name := range lows {
		n, err := config.ParsePin(name)
		if err != nil {
			return inv, err
		}
		inv.low[i] = machine.Pin(n)
		inv.low[i].Configure(machine.PinConfig{Mode: machine.PinOutput})
		inv.low[i].Low()
	}

	period := uint64(1000000000) / uint64(board.PWMFrequency)
	for i, name := range highs {
		n, err := config.ParsePin(name)
		if err != nil {
			return inv, err
		}
		pin := machine.Pin(n)
		pwm := pwmForPin(n)
		if err := pwm.Configure(machine.PWMConfig{Period: period}); err != nil {
			return inv, err
		}
		ch, err := pwm.Channel(pin)
		if err != nil {
			return inv, err
		}
		pwm.Set(ch, 0)
		inv.high[i] = highGate{pwm: pwm, ch: ch}
	}
	return inv, nil
}

// pwmForPin maps a GPIO to its PWM slice: slice = (pin >> 1) & 7.
func pwmForPin(pin uint8) pwmPeripheral {
	switch (pin >> 1) & 0x7 {
	case 0:
		return machine.PWM0
	case 1:
		return machine.PWM1
	case 2:
		return machine.PWM2
	case 3:
		return machine.PWM3
	case 4:
		return machine.PWM4
	case 5:
		return machine.PWM5
	case 6:
		return machine.PWM6
	default:
		return machine.PWM7
	}
}

func (inv *pwmInverter) allOff() {
	for i := range inv.high {
		if inv.high[i].pwm != nil {
			inv.high[i].pwm.Set(inv.high[i].ch, 0)
		}
	}
	for _, pin := range inv.low {
		pin.Low()
	}
	inv.active = -1
}

func (inv *pwmInverter) Off() {
	inv.armed = false
	inv.allOff()
}

func (inv *pwmInverter) Arm() { inv.armed = true }

func (inv *pwmInverter) SetDutyCycle(fraction float32) {
	if fraction < 0 {
		fraction = 0
	} else if fraction > 1 {
		fraction = 1
	}
	inv.duty = fraction
	if inv.active >= 0 {
		inv.applyHigh(inv.active)
	}
}

func (inv *pwmInverter) applyHigh(phase int) {
	g := inv.high[phase]
	g.pwm.Set(g.ch, uint32(float32(g.pwm.Top())*inv.duty))
}

func (inv *pwmInverter) TestGate(g core.GateTest) {
	inv.allOff()
	if !inv.armed {
		return
	}
	p := int(g.Phase())
	if g.High() {
		inv.active = p
		inv.applyHigh(p)
	} else {
		inv.low[p].High()
	}
}

// Drive switches off every gate before energizing the new pair so a half
// bridge is never shorted.
func (inv *pwmInverter) Drive(s core.CommutationState) {
	inv.allOff()
	high, low, ok := s.Pair()
	if !ok || !inv.armed {
		return
	}
	inv.low[low].High()
	inv.active = int(high)
	inv.applyHigh(inv.active)
}
