//go:build rp2040

package main

import (
	"machine"
	"sync/atomic"

	rp2pio "github.com/tinygo-org/pio/rp2-pio"
)

// Receiver pulse capture. The state machine waits for a rising edge, then
// counts down X every two cycles while the pin stays high and pushes the
// count. At 2MHz state machine clock one count is one microsecond.
//
//	.wrap_target
//	    wait 0 pin 0
//	    wait 1 pin 0
//	    mov x, ~null
//	high:
//	    jmp pin, dec
//	    jmp done
//	dec:
//	    jmp x--, high
//	done:
//	    mov isr, ~x
//	    push noblock
//	.wrap
func buildPulseProgram(origin uint8) []uint16 {
	asm := rp2pio.AssemblerV0{SidesetBits: 0}
	return []uint16{
		asm.Wait(false, rp2pio.WaitSrcPin, 0, false).Encode(),          // 0
		asm.Wait(true, rp2pio.WaitSrcPin, 0, false).Encode(),           // 1
		asm.MovInvertBits(rp2pio.MovDestX, rp2pio.MovSrcNull).Encode(), // 2
		asm.Jmp(origin+5, rp2pio.JmpPinInput).Encode(),                 // 3: high
		asm.Jmp(origin+6, rp2pio.JmpAlways).Encode(),                   // 4
		asm.Jmp(origin+3, rp2pio.JmpXNZeroDec).Encode(),                // 5: dec
		asm.MovInvertBits(rp2pio.MovDestISR, rp2pio.MovSrcX).Encode(),  // 6: done
		asm.Push(false, false).Encode(),                                // 7
	}
}

const (
	pulseProgramOrigin = 0

	// 125MHz / 62.5 = 2MHz
	pulseClkDivInt  = 62
	pulseClkDivFrac = 128

	// Pulses outside this range are glitches, not servo frames.
	pulseMinUS = 800
	pulseMaxUS = 2500
)

// pioReceiver measures a single PWM receiver channel with one state machine.
type pioReceiver struct {
	pio   *rp2pio.PIO
	sm    rp2pio.StateMachine
	pin   machine.Pin
	width atomic.Uint32
}

func newPIOReceiver(pin machine.Pin) (*pioReceiver, error) {
	r := &pioReceiver{
		pio: rp2pio.PIO0,
		sm:  rp2pio.PIO0.StateMachine(0),
		pin: pin,
	}
	r.sm.TryClaim()

	program := buildPulseProgram(pulseProgramOrigin)
	offset, err := r.pio.AddProgram(program, pulseProgramOrigin)
	if err != nil {
		return nil, err
	}

	pin.Configure(machine.PinConfig{Mode: r.pio.PinMode()})

	cfg := rp2pio.DefaultStateMachineConfig()
	cfg.SetInPins(pin)
	cfg.SetJmpPin(pin)
	cfg.SetInShift(false, false, 32)
	cfg.SetWrap(offset+uint8(len(program))-1, offset)
	cfg.SetClkDivIntFrac(pulseClkDivInt, pulseClkDivFrac)

	r.sm.Init(offset, cfg)
	r.sm.SetPindirsConsecutive(pin, 1, false)
	r.sm.SetEnabled(true)
	return r, nil
}

// Poll drains the RX FIFO and keeps the newest plausible width. Called from
// the main loop.
func (r *pioReceiver) Poll() {
	for !r.sm.IsRxFIFOEmpty() {
		w := r.sm.RxGet()
		if w >= pulseMinUS && w <= pulseMaxUS {
			r.width.Store(w)
		}
	}
}

// Read implements core.Receiver. There is one physical channel; the
// channel argument is accepted for the interface.
func (r *pioReceiver) Read(channel uint8) uint16 {
	r.Poll()
	return uint16(r.width.Load())
}
