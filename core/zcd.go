package core

// ZCDFilter is the zero-crossing working set for one commutation state:
// a moving sum of the back-EMF difference on the floating phase and the
// hysteresis latch. It is rebuilt on every state change.
type ZCDFilter struct {
	filter   RunningFilter
	samples  uint32
	negative bool

	state    CommutationState
	undriven UndrivenPhase
	valid    bool

	low, high int32
}

// Init applies the filter length and thresholds and drops any session.
func (z *ZCDFilter) Init(cfg Config) error {
	if err := cfg.Validate(); err != nil {
		return err
	}
	if err := z.filter.Init(cfg.FilterLength); err != nil {
		return err
	}
	z.low = cfg.LowThreshold
	z.high = cfg.HighThreshold
	z.Reset(StateOff)
	return nil
}

// SetThresholds replaces the hysteresis thresholds.
func (z *ZCDFilter) SetThresholds(low, high int32) {
	z.low = low
	z.high = high
}

// Observe resets the session if state differs from the one being tracked.
// It reports whether a reset happened.
func (z *ZCDFilter) Observe(state CommutationState) bool {
	if state == z.state {
		return false
	}
	z.Reset(state)
	return true
}

// Reset starts a new session for state.
func (z *ZCDFilter) Reset(state CommutationState) {
	z.filter.Reset()
	z.samples = 0
	z.negative = false
	z.state = state
	z.undriven, z.valid = state.Undriven()
}

// Active reports whether the tracked state has a floating phase.
func (z *ZCDFilter) Active() bool { return z.valid }

// Diff returns the floating phase measured against the mean of the two
// driven phases, signed so a true crossing always rises.
func (z *ZCDFilter) Diff(f *SampleFrame) int32 {
	p := z.undriven.Phase
	undriven := int32(f.Phase(p))
	reference := (int32(f.Phase((p+1)%3)) + int32(f.Phase((p+2)%3))) / 2
	if z.undriven.Polarity == Rising {
		return undriven - reference
	}
	return reference - undriven
}

// Push adds one difference sample. crossed is true when the sum rises
// above the high threshold after having been latched below the low one.
// The window must have filled since the last reset before either
// threshold is evaluated.
func (z *ZCDFilter) Push(diff int32) (crossed bool) {
	sum := z.filter.Push(diff)
	z.samples++

	if z.samples <= uint32(z.filter.Len()) {
		return false
	}
	if sum < -z.low {
		z.negative = true
	} else if sum > z.high && z.negative {
		return true
	}
	return false
}

// State returns the commutation state of the current session.
func (z *ZCDFilter) State() CommutationState { return z.state }

// Sum returns the running sum of the session.
func (z *ZCDFilter) Sum() int32 { return z.filter.Sum() }

// Samples returns the samples pushed since the last reset.
func (z *ZCDFilter) Samples() uint32 { return z.samples }

// Negative reports the hysteresis latch.
func (z *ZCDFilter) Negative() bool { return z.negative }

// Undriven returns the floating phase of the session.
func (z *ZCDFilter) Undriven() UndrivenPhase { return z.undriven }
