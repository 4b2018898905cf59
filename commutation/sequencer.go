// Package commutation drives the six-step sequence of a sensorless BLDC
// motor: rotor alignment, open-loop ramp, then closed-loop commutation timed
// from back-EMF zero crossings.
package commutation

import (
	"sync/atomic"

	"goesc/core"
)

// Mode is the sequencer's run phase.
type Mode uint32

const (
	ModeStopped Mode = iota
	ModeAlign
	ModeRamp
	ModeRun
	ModeRetry
	ModeFaulted
)

var modeNames = [...]string{"stopped", "align", "ramp", "run", "retry", "faulted"}

func (m Mode) String() string {
	if int(m) < len(modeNames) {
		return modeNames[m]
	}
	return "unknown"
}

// sequence is the drive order. Each state's floating phase alternates
// falling and rising.
var sequence = [...]core.CommutationState{
	core.StateAB, core.StateAC, core.StateBC, core.StateBA, core.StateCA, core.StateCB,
}

func nextState(s core.CommutationState) core.CommutationState {
	for i, st := range sequence {
		if st == s {
			return sequence[(i+1)%len(sequence)]
		}
	}
	return sequence[0]
}

// Sequencer implements core.Commutator.
//
// State and mode are read from the sampling interrupt and stored atomically.
// Detection bookkeeping is written by InjectEvent in interrupt context and by
// timer handlers, which run with interrupts masked; the main loop reads it
// inside core.Critical.
type Sequencer struct {
	cfg  Config
	inv  core.Inverter
	ctrl *core.Controller

	state atomic.Uint32
	mode  atomic.Uint32

	modeStart  uint32
	stepPeriod uint32

	lastZCD   uint32
	interval  uint32
	haveZCD   bool
	locked    uint32
	zcdCount  uint32
	stalls    uint32
	swapCount uint32

	swapTimer core.Timer
	rampTimer core.Timer
}

// Init allocates the shared controller state and a stopped sequencer.
func Init(cfg Config, inv core.Inverter) (*core.Controller, *Sequencer, error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}
	s := &Sequencer{
		cfg:  cfg,
		inv:  inv,
		ctrl: core.NewController(),
	}
	s.swapTimer.Handler = s.swapEvent
	s.rampTimer.Handler = s.rampEvent
	inv.Off()
	return s.ctrl, s, nil
}

// State returns the drive state; safe from interrupt context.
func (s *Sequencer) State() core.CommutationState {
	return core.CommutationState(s.state.Load())
}

// Mode returns the run phase.
func (s *Sequencer) Mode() Mode {
	return Mode(s.mode.Load())
}

// Controller returns the shared controller state.
func (s *Sequencer) Controller() *core.Controller { return s.ctrl }

// Stats returns detection count, swap count, stall count and the last
// measured detection interval in ticks.
func (s *Sequencer) Stats() (detections, swaps, stalls, interval uint32) {
	core.Critical(func() {
		detections, swaps, stalls, interval = s.zcdCount, s.swapCount, s.stalls, s.interval
	})
	return
}

// InjectEvent consumes a zero-crossing detection. payload is the timer
// value at detection. In closed loop the next swap is scheduled half an
// interval later, 30 electrical degrees.
func (s *Sequencer) InjectEvent(ev core.Event, payload uint32) {
	if ev != core.EventZCD {
		return
	}
	mode := s.Mode()
	if mode != ModeRamp && mode != ModeRun {
		return
	}
	if s.haveZCD {
		s.interval = core.Elapsed(s.lastZCD, payload)
	}
	s.lastZCD = payload
	s.haveZCD = true
	s.zcdCount++

	if mode == ModeRamp {
		s.locked++
		if s.locked < s.cfg.LockCount || s.interval == 0 {
			return
		}
		core.CancelTimer(&s.rampTimer)
		s.setMode(ModeRun, payload)
	}
	if s.interval == 0 {
		return
	}
	s.swapTimer.WakeTime = payload + s.interval/2
	core.ScheduleTimer(&s.swapTimer)
}

// ProcessReactionStep runs the start-up and stall state machine and updates
// the duty cycle. Swaps are dispatched by the timer alarm interrupt; the
// ProcessTimers call here only catches timers on targets without one.
func (s *Sequencer) ProcessReactionStep() {
	now := core.GetTime()
	sp := s.ctrl.SpeedSetpoint()

	switch s.Mode() {
	case ModeStopped:
		if sp > 0 {
			s.startAlign(now)
		}
	case ModeAlign:
		if sp == 0 {
			s.stop(ModeStopped)
		} else if core.Elapsed(s.modeStart, now) >= s.cfg.AlignTicks {
			s.startRamp(now)
		}
	case ModeRamp:
		if sp == 0 {
			s.stop(ModeStopped)
		} else if core.Elapsed(s.modeStart, now) >= s.cfg.RampTimeoutTicks {
			core.DebugPrintln("[COMM] ramp timeout")
			s.stall()
		}
	case ModeRun:
		if sp == 0 {
			s.stop(ModeStopped)
			break
		}
		s.inv.SetDutyCycle(s.duty(sp))
		if s.stalled() {
			core.DebugPrintln("[COMM] stall")
			s.stall()
		}
	case ModeRetry:
		if sp == 0 {
			s.setMode(ModeStopped, now)
		} else if core.Elapsed(s.modeStart, now) >= s.cfg.RetryTicks {
			s.startAlign(now)
		}
	}

	core.ProcessTimers()
}

// Fault stops the motor for good. Only a reset leaves this state.
func (s *Sequencer) Fault() {
	s.stop(ModeFaulted)
	s.state.Store(uint32(core.StateFault))
}

func (s *Sequencer) duty(sp uint32) float32 {
	if sp >= s.cfg.FullSetpoint {
		return s.cfg.MaxDuty
	}
	span := s.cfg.MaxDuty - s.cfg.MinDuty
	return s.cfg.MinDuty + span*float32(sp)/float32(s.cfg.FullSetpoint)
}

func (s *Sequencer) stalled() bool {
	var late bool
	core.Critical(func() {
		now := core.GetTime()
		limit := s.interval * s.cfg.StallPeriods
		late = s.interval > 0 && core.Elapsed(s.lastZCD, now) > limit
	})
	return late
}

func (s *Sequencer) setMode(m Mode, now uint32) {
	s.modeStart = now
	s.mode.Store(uint32(m))
}

func (s *Sequencer) startAlign(now uint32) {
	s.inv.Arm()
	s.inv.SetDutyCycle(s.cfg.AlignDuty)
	// Hold the last state so the first ramp step drives sequence[0].
	last := sequence[len(sequence)-1]
	s.ctrl.MarkSwap(now)
	s.inv.Drive(last)
	s.state.Store(uint32(last))
	s.setMode(ModeAlign, now)
}

func (s *Sequencer) startRamp(now uint32) {
	core.Critical(func() {
		s.haveZCD = false
		s.interval = 0
		s.locked = 0
		s.stepPeriod = s.cfg.RampStartTicks
		s.setMode(ModeRamp, now)
	})
	s.inv.SetDutyCycle(s.cfg.RampDuty)
	core.Critical(func() { s.advance(now) })
	s.rampTimer.WakeTime = now + s.stepPeriod
	core.ScheduleTimer(&s.rampTimer)
}

func (s *Sequencer) stall() {
	s.stop(ModeRetry)
	core.Critical(func() { s.stalls++ })
}

func (s *Sequencer) stop(m Mode) {
	core.CancelTimer(&s.swapTimer)
	core.CancelTimer(&s.rampTimer)
	s.inv.Off()
	core.Critical(func() {
		s.state.Store(uint32(core.StateOff))
		s.haveZCD = false
		s.interval = 0
		s.locked = 0
		s.setMode(m, core.GetTime())
	})
}

// advance swaps to the next state. The swap time is recorded before the new
// state is published so the sampling interrupt blanks the first samples.
func (s *Sequencer) advance(now uint32) {
	next := nextState(s.State())
	s.inv.Drive(next)
	s.ctrl.MarkSwap(now)
	s.state.Store(uint32(next))
	s.swapCount++
}

// swapEvent runs from the timer alarm interrupt. The swap is stamped with
// its scheduled time so dispatch latency does not leak into blanking or the
// next interval.
func (s *Sequencer) swapEvent(t *core.Timer) uint8 {
	if s.Mode() == ModeRun {
		s.advance(t.WakeTime)
	}
	return core.SF_DONE
}

func (s *Sequencer) rampEvent(t *core.Timer) uint8 {
	if s.Mode() != ModeRamp {
		return core.SF_DONE
	}
	if !s.ctrl.Detected() {
		s.locked = 0
	}
	s.advance(t.WakeTime)

	if s.stepPeriod > s.cfg.RampEndTicks {
		dec := s.stepPeriod >> s.cfg.RampShift
		if dec == 0 {
			dec = 1
		}
		s.stepPeriod -= dec
		if s.stepPeriod < s.cfg.RampEndTicks {
			s.stepPeriod = s.cfg.RampEndTicks
		}
	}
	t.WakeTime += s.stepPeriod
	return core.SF_RESCHEDULE
}
