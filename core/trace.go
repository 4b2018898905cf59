package core

// TraceKind selects a class of trace event; kinds combine into a mask.
type TraceKind uint8

const (
	TraceADC TraceKind = 1 << iota
	TraceDiff
	TraceZCD

	TraceAll = TraceADC | TraceDiff | TraceZCD
)

func (k TraceKind) String() string {
	switch k {
	case TraceADC:
		return "ADC"
	case TraceDiff:
		return "DIFF"
	case TraceZCD:
		return "ZCD"
	}
	return "TRACE(" + itoa(int(k)) + ")"
}

// TraceEvent is one record from the sampling interrupt.
//
//	TraceADC:  Values = raw frame
//	TraceDiff: Values[0] = diff, Values[1] = running sum
//	TraceZCD:  Values[0] = running sum, Values[1] = samples since swap,
//	           Values[2] = speed setpoint
type TraceEvent struct {
	Kind   TraceKind
	State  CommutationState
	Clock  uint32
	Values [4]int32
}

// TraceSink receives trace events from interrupt context. Record must not
// block or allocate.
type TraceSink interface {
	Record(ev TraceEvent)
}

// TraceRingSize is the capacity of TraceRing.
const TraceRingSize = 256

// TraceRing keeps the most recent TraceRingSize events.
type TraceRing struct {
	events [TraceRingSize]TraceEvent
	head   uint16
	count  uint16
}

// Record stores ev, overwriting the oldest event when full.
func (r *TraceRing) Record(ev TraceEvent) {
	r.events[r.head] = ev
	r.head = (r.head + 1) % TraceRingSize
	if r.count < TraceRingSize {
		r.count++
	}
}

// Len returns the number of stored events.
func (r *TraceRing) Len() int { return int(r.count) }

// Events copies the stored events out, oldest first. Call with the sampling
// interrupt masked or stopped.
func (r *TraceRing) Events() []TraceEvent {
	out := make([]TraceEvent, 0, r.count)
	start := (r.head + TraceRingSize - r.count) % TraceRingSize
	for i := uint16(0); i < r.count; i++ {
		out = append(out, r.events[(start+i)%TraceRingSize])
	}
	return out
}

// Clear empties the ring.
func (r *TraceRing) Clear() {
	r.events = [TraceRingSize]TraceEvent{}
	r.head = 0
	r.count = 0
}
