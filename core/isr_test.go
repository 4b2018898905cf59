package core

import (
	"testing"
)

type fakeDMA struct {
	flags  DMAFlags
	frames [3]SampleFrame
	next   BufferHalf
}

func (d *fakeDMA) Flags() DMAFlags                 { return d.flags }
func (d *fakeDMA) ClearFlags(f DMAFlags)           { d.flags &^= f }
func (d *fakeDMA) Frame(h BufferHalf) *SampleFrame { return &d.frames[h] }

// complete writes f into the other half and raises its flag, as the DMA
// engine does at the end of each scan.
func (d *fakeDMA) complete(f SampleFrame) {
	if d.next == HalfLower {
		d.next = HalfUpper
	} else {
		d.next = HalfLower
	}
	d.frames[d.next] = f
	d.raise()
}

// repeat raises the flag of the half completed last, without swapping.
func (d *fakeDMA) repeat() { d.raise() }

func (d *fakeDMA) raise() {
	if d.next == HalfLower {
		d.flags |= FlagHalf
	} else {
		d.flags |= FlagFull
	}
}

type fakeComm struct {
	state  CommutationState
	events []uint32
	steps  int
}

func (c *fakeComm) State() CommutationState { return c.state }
func (c *fakeComm) InjectEvent(ev Event, payload uint32) {
	if ev == EventZCD {
		c.events = append(c.events, payload)
	}
}
func (c *fakeComm) ProcessReactionStep() { c.steps++ }

type countingIndicator struct{ on, off, toggles int }

func (i *countingIndicator) On()     { i.on++ }
func (i *countingIndicator) Off()    { i.off++ }
func (i *countingIndicator) Toggle() { i.toggles++ }

type isrHarness struct {
	isr  *SamplingISR
	dma  *fakeDMA
	comm *fakeComm
	ctrl *Controller
}

func newISRHarness(t *testing.T, cfg Config, state CommutationState) *isrHarness {
	t.Helper()
	SetTime(1000)
	h := &isrHarness{
		dma:  &fakeDMA{},
		comm: &fakeComm{state: state},
		ctrl: NewController(),
	}
	isr, err := NewSamplingISR(cfg, h.dma, h.ctrl, h.comm)
	if err != nil {
		t.Fatalf("NewSamplingISR: %v", err)
	}
	h.isr = isr
	return h
}

func (h *isrHarness) sample(f SampleFrame) {
	h.dma.complete(f)
	h.isr.Handle()
}

func noBlanking() Config {
	cfg := DefaultConfig()
	cfg.BlankingTicks = 0
	return cfg
}

// phaseFrame builds a frame for state AC where the floating phase B sits
// diff counts above the mean of A and C.
func phaseFrame(diff int32) SampleFrame {
	return SampleFrame{0, 2048, int16(2048 + diff), 2048}
}

func TestNewSamplingISRRejectsBadConfig(t *testing.T) {
	cfg := DefaultConfig()
	cfg.FilterLength = 0
	if _, err := NewSamplingISR(cfg, &fakeDMA{}, NewController(), &fakeComm{}); err == nil {
		t.Error("expected error for filter length 0")
	}
	cfg = DefaultConfig()
	cfg.LowThreshold = -1
	if _, err := NewSamplingISR(cfg, &fakeDMA{}, NewController(), &fakeComm{}); err == nil {
		t.Error("expected error for negative low threshold")
	}
}

func TestRampProducesSingleDetection(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateAC)
	dbg := &countingIndicator{}
	h.isr.SetDebugPin(dbg)

	for i := 0; i < 20; i++ {
		d := int32(-2000 + i*4000/19)
		h.sample(phaseFrame(d))
		t.Logf("sample %2d diff %5d sum %6d negative=%v", i+1, d, h.isr.Filter().Sum(), h.isr.Filter().Negative())
	}

	if len(h.comm.events) != 1 {
		t.Fatalf("events = %d, want 1", len(h.comm.events))
	}
	if !h.ctrl.Detected() {
		t.Error("detection latch not set")
	}
	if dbg.toggles != 1 {
		t.Errorf("debug pin toggles = %d, want 1", dbg.toggles)
	}

	snap := h.isr.Snapshot()
	if snap.DetectionCount != 1 {
		t.Errorf("DetectionCount = %d, want 1", snap.DetectionCount)
	}
	// The sum first crosses zero on the 19th sample.
	if snap.LastDetectionInterval != 19 {
		t.Errorf("LastDetectionInterval = %d, want 19", snap.LastDetectionInterval)
	}
	// The 20th sample arrives with the latch set and is not processed.
	if snap.Samples != 19 {
		t.Errorf("Samples = %d, want 19", snap.Samples)
	}
}

func TestAtMostOneDetectionPerState(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateAC)

	for i := 0; i < 20; i++ {
		h.sample(phaseFrame(-500))
	}
	for i := 0; i < 40; i++ {
		h.sample(phaseFrame(500))
	}
	if len(h.comm.events) != 1 {
		t.Fatalf("events = %d, want 1", len(h.comm.events))
	}

	// A swap releases the latch for the next state.
	h.ctrl.MarkSwap(GetTime())
	h.comm.state = StateBC
	h.sample(SampleFrame{0, 2048, 2048, 2048})
	f := h.isr.Filter()
	if f.State() != StateBC || f.Samples() != 1 {
		t.Errorf("after swap state=%v samples=%d, want BC and 1", f.State(), f.Samples())
	}
}

func TestBlankingIsNoOp(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlankingTicks = 100
	h := newISRHarness(t, cfg, StateAC)
	h.isr.SetZeroCurrent(0)
	h.ctrl.MarkSwap(1000)

	SetTime(1050)
	h.sample(SampleFrame{640, 2048, 1000, 2048})
	f := h.isr.Filter()
	if f.Samples() != 0 || f.Sum() != 0 {
		t.Errorf("blanked sample reached zcd filter: samples=%d sum=%d", f.Samples(), f.Sum())
	}
	if got := h.isr.CurrentFilter().Average(); got != 0 {
		t.Errorf("blanked sample reached current filter: avg=%d", got)
	}

	SetTime(1100)
	h.sample(SampleFrame{640, 2048, 1000, 2048})
	if f.Samples() != 1 {
		t.Errorf("samples after blanking = %d, want 1", f.Samples())
	}
	if got := h.ctrl.Current(); got != 640/CurrentFilterLength {
		t.Errorf("current = %d, want %d", got, 640/CurrentFilterLength)
	}
}

func TestBadFlipSkipsFilters(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateAC)
	h.sample(phaseFrame(-100))
	h.sample(phaseFrame(-100))

	before := h.isr.Snapshot()
	sum := h.isr.Filter().Sum()
	avg := h.isr.CurrentFilter().Average()

	h.dma.repeat()
	h.isr.Handle()

	after := h.isr.Snapshot()
	if after.BadFlipCount != before.BadFlipCount+1 {
		t.Errorf("BadFlipCount = %d, want %d", after.BadFlipCount, before.BadFlipCount+1)
	}
	if after.Samples != before.Samples {
		t.Errorf("bad flip counted as a sample")
	}
	if h.isr.Filter().Sum() != sum || h.isr.Filter().Samples() != 2 {
		t.Errorf("zcd filter changed on bad flip")
	}
	if h.isr.CurrentFilter().Average() != avg {
		t.Errorf("current filter changed on bad flip")
	}
	if h.dma.flags != 0 {
		t.Errorf("flags not cleared: %#x", h.dma.flags)
	}
}

func TestSpuriousInterrupt(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateAC)
	h.dma.flags = FlagError
	h.isr.Handle()

	snap := h.isr.Snapshot()
	if snap.SpuriousCount != 1 || snap.Samples != 0 {
		t.Errorf("spurious=%d samples=%d, want 1 and 0", snap.SpuriousCount, snap.Samples)
	}
	if h.dma.flags != 0 {
		t.Errorf("error flag not cleared")
	}
}

func TestStateChangeResetsSession(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateAC)
	for i := 0; i < 5; i++ {
		h.sample(phaseFrame(-300))
	}

	h.comm.state = StateBA
	h.sample(SampleFrame{0, 2000, 2100, 2200})
	f := h.isr.Filter()
	if f.State() != StateBA || f.Samples() != 1 {
		t.Fatalf("state=%v samples=%d, want BA and 1", f.State(), f.Samples())
	}
	// C rising against mean(A, B).
	if f.Sum() != 2200-2050 {
		t.Errorf("sum = %d, want %d", f.Sum(), 2200-2050)
	}
}

func TestOffStateIgnoresSamples(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateOff)
	for i := 0; i < 40; i++ {
		h.sample(phaseFrame(int32(i*100 - 2000)))
	}
	if len(h.comm.events) != 0 || h.isr.Filter().Samples() != 0 {
		t.Errorf("off state produced events=%d samples=%d", len(h.comm.events), h.isr.Filter().Samples())
	}
}

func TestTraceSink(t *testing.T) {
	cfg := noBlanking()
	cfg.TraceMask = TraceZCD
	h := newISRHarness(t, cfg, StateAC)
	var ring TraceRing
	h.isr.SetTraceSink(&ring)

	for i := 0; i < 20; i++ {
		h.sample(phaseFrame(int32(-2000 + i*4000/19)))
	}
	events := ring.Events()
	if len(events) != 1 || events[0].Kind != TraceZCD || events[0].State != StateAC {
		t.Fatalf("trace = %+v, want one ZCD event in AC", events)
	}
	if events[0].Values[1] != 19 {
		t.Errorf("samples since swap = %d, want 19", events[0].Values[1])
	}
}

func TestSetThresholdsRejectsNegativeLow(t *testing.T) {
	h := newISRHarness(t, noBlanking(), StateAC)
	if err := h.isr.SetThresholds(-5, 10); err != ErrInvalidThreshold {
		t.Errorf("SetThresholds(-5) = %v", err)
	}
	if err := h.isr.SetThresholds(5, 10); err != nil {
		t.Fatal(err)
	}
	if low, high := h.isr.Thresholds(); low != 5 || high != 10 {
		t.Errorf("thresholds = %d,%d", low, high)
	}
}

func TestLatchSkipsCountersAndTrace(t *testing.T) {
	cfg := DefaultConfig()
	cfg.BlankingTicks = 100
	cfg.TraceMask = TraceADC
	h := newISRHarness(t, cfg, StateAC)
	var ring TraceRing
	h.isr.SetTraceSink(&ring)
	h.ctrl.MarkSwap(1000)

	SetTime(1010)
	h.sample(phaseFrame(-100))
	if snap := h.isr.Snapshot(); snap.Samples != 0 || ring.Len() != 0 {
		t.Errorf("blanked sample: samples=%d traced=%d, want 0 and 0", snap.Samples, ring.Len())
	}

	SetTime(1200)
	h.ctrl.SetDetected(true)
	h.sample(phaseFrame(-100))
	if snap := h.isr.Snapshot(); snap.Samples != 0 || ring.Len() != 0 {
		t.Errorf("latched sample: samples=%d traced=%d, want 0 and 0", snap.Samples, ring.Len())
	}

	h.ctrl.SetDetected(false)
	h.sample(phaseFrame(-100))
	if snap := h.isr.Snapshot(); snap.Samples != 1 || ring.Len() != 1 {
		t.Errorf("processed sample: samples=%d traced=%d, want 1 and 1", snap.Samples, ring.Len())
	}
}
