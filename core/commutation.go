package core

import "sync/atomic"

// CommutationState is the six-step inverter drive pattern. The two letters
// name the high-side and low-side phases.
type CommutationState uint8

const (
	StateOff CommutationState = iota
	StateAB
	StateAC
	StateBC
	StateBA
	StateCA
	StateCB
	StateFault
)

var stateNames = [...]string{"OFF", "AB", "AC", "BC", "BA", "CA", "CB", "FAULT"}

func (s CommutationState) String() string {
	if int(s) < len(stateNames) {
		return stateNames[s]
	}
	return "STATE(" + itoa(int(s)) + ")"
}

// Driving reports whether s is one of the six drive patterns.
func (s CommutationState) Driving() bool {
	return s >= StateAB && s <= StateCB
}

// Phase indexes a motor phase; it doubles as the offset into the phase
// readings of a SampleFrame.
type Phase uint8

const (
	PhaseA Phase = iota
	PhaseB
	PhaseC
)

func (p Phase) String() string {
	return string(rune('A' + p))
}

// Polarity is the expected direction of the back-EMF on the floating phase.
type Polarity uint8

const (
	Falling Polarity = iota
	Rising
)

func (p Polarity) String() string {
	if p == Rising {
		return "rising"
	}
	return "falling"
}

// UndrivenPhase is the floating phase of a drive state and the direction its
// back-EMF crosses the reference.
type UndrivenPhase struct {
	Phase    Phase
	Polarity Polarity
}

type stateEntry struct {
	high, low Phase
	undriven  UndrivenPhase
}

// commutationTable is indexed by CommutationState. Swapping a polarity here
// inverts the crossing sense for that state.
var commutationTable = [...]stateEntry{
	StateAB: {high: PhaseA, low: PhaseB, undriven: UndrivenPhase{PhaseC, Falling}},
	StateAC: {high: PhaseA, low: PhaseC, undriven: UndrivenPhase{PhaseB, Rising}},
	StateBC: {high: PhaseB, low: PhaseC, undriven: UndrivenPhase{PhaseA, Falling}},
	StateBA: {high: PhaseB, low: PhaseA, undriven: UndrivenPhase{PhaseC, Rising}},
	StateCA: {high: PhaseC, low: PhaseA, undriven: UndrivenPhase{PhaseB, Falling}},
	StateCB: {high: PhaseC, low: PhaseB, undriven: UndrivenPhase{PhaseA, Rising}},
}

// Undriven looks up the floating phase for a drive state. ok is false for
// Off and Fault.
func (s CommutationState) Undriven() (u UndrivenPhase, ok bool) {
	if !s.Driving() {
		return UndrivenPhase{}, false
	}
	return commutationTable[s].undriven, true
}

// Pair returns the high-side and low-side phases energized in state s.
func (s CommutationState) Pair() (high, low Phase, ok bool) {
	if !s.Driving() {
		return 0, 0, false
	}
	e := commutationTable[s]
	return e.high, e.low, true
}

// Event is posted to the commutation module.
type Event uint8

const (
	// EventZCD reports a qualified back-EMF zero crossing. The payload is
	// the timer value at detection.
	EventZCD Event = 1
)

// Commutator is the external commutation state machine.
type Commutator interface {
	// State returns the latest state; never blocks.
	State() CommutationState

	// InjectEvent posts an event; never blocks. May schedule the next swap.
	InjectEvent(ev Event, payload uint32)

	// ProcessReactionStep advances work not driven by interrupts. Called
	// once per main-loop pass.
	ProcessReactionStep()
}

// Controller is the state shared between the sampling interrupt, the
// commutation module and the main loop.
type Controller struct {
	speedSetpoint atomic.Uint32
	current       atomic.Int32
	detected      atomic.Bool
	lastSwapTime  atomic.Uint32
}

// NewController allocates the shared controller state.
func NewController() *Controller {
	return &Controller{}
}

func (c *Controller) SpeedSetpoint() uint32     { return c.speedSetpoint.Load() }
func (c *Controller) SetSpeedSetpoint(v uint32) { c.speedSetpoint.Store(v) }
func (c *Controller) Current() int32            { return c.current.Load() }
func (c *Controller) SetCurrent(v int32)        { c.current.Store(v) }
func (c *Controller) LastSwapTime() uint32      { return c.lastSwapTime.Load() }

// Detected reports whether a zero crossing was already raised for the
// current state.
func (c *Controller) Detected() bool { return c.detected.Load() }

// SetDetected latches (or clears) the per-state detection flag.
func (c *Controller) SetDetected(v bool) { c.detected.Store(v) }

// MarkSwap records a state change at time now and releases the detection
// latch for the new state.
func (c *Controller) MarkSwap(now uint32) {
	c.lastSwapTime.Store(now)
	c.detected.Store(false)
}
