package core

// SamplingISR owns every piece of state the ADC-complete interrupt mutates.
// Its Handle method is the only writer; other contexts read through
// Snapshot or change tuning with interrupts masked.
type SamplingISR struct {
	buffer  *SampleBuffer
	current *CurrentFilter
	zcd     ZCDFilter

	ctrl *Controller
	comm Commutator

	blanking  uint32
	traceMask TraceKind
	trace     TraceSink
	debugPin  Indicator

	telemetry      Telemetry
	sinceDetection uint32
}

// NewSamplingISR validates cfg and allocates the filter state. A non-nil
// error means the motor must not be armed.
func NewSamplingISR(cfg Config, dma SampleDMA, ctrl *Controller, comm Commutator) (*SamplingISR, error) {
	s := &SamplingISR{
		buffer:    NewSampleBuffer(dma),
		current:   NewCurrentFilter(),
		ctrl:      ctrl,
		comm:      comm,
		blanking:  cfg.BlankingTicks,
		traceMask: cfg.TraceMask,
		debugPin:  nopIndicator{},
	}
	if err := s.zcd.Init(cfg); err != nil {
		return nil, err
	}
	return s, nil
}

// SetZeroCurrent installs the quiescent current measured by the self-test.
func (s *SamplingISR) SetZeroCurrent(zero int16) {
	state := disableInterrupts()
	s.current.SetZero(zero)
	restoreInterrupts(state)
}

// SetDebugPin sets the output toggled on every detection.
func (s *SamplingISR) SetDebugPin(pin Indicator) {
	if pin == nil {
		pin = nopIndicator{}
	}
	s.debugPin = pin
}

// SetTraceSink installs an optional trace sink; nil disables tracing.
func (s *SamplingISR) SetTraceSink(sink TraceSink) {
	state := disableInterrupts()
	s.trace = sink
	restoreInterrupts(state)
}

// SetThresholds changes the hysteresis band at runtime.
func (s *SamplingISR) SetThresholds(low, high int32) error {
	if low < 0 {
		return ErrInvalidThreshold
	}
	state := disableInterrupts()
	s.zcd.SetThresholds(low, high)
	restoreInterrupts(state)
	return nil
}

// Thresholds returns the hysteresis band.
func (s *SamplingISR) Thresholds() (low, high int32) {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.zcd.low, s.zcd.high
}

// SetBlanking changes the demagnetization window.
func (s *SamplingISR) SetBlanking(ticks uint32) {
	state := disableInterrupts()
	s.blanking = ticks
	restoreInterrupts(state)
}

// Blanking returns the demagnetization window in ticks.
func (s *SamplingISR) Blanking() uint32 {
	state := disableInterrupts()
	defer restoreInterrupts(state)
	return s.blanking
}

// Handle runs once per ADC DMA completion interrupt.
func (s *SamplingISR) Handle() {
	frame, ok := s.buffer.Acquire()
	if !ok {
		return
	}
	now := GetTime()
	if s.ctrl.Detected() || Elapsed(s.ctrl.LastSwapTime(), now) < s.blanking {
		return
	}
	state := s.comm.State()

	s.telemetry.samples.Add(1)
	s.sinceDetection++
	if s.traced(TraceADC) {
		s.trace.Record(TraceEvent{Kind: TraceADC, State: state, Clock: now, Values: [4]int32{
			int32(frame[0]), int32(frame[1]), int32(frame[2]), int32(frame[3]),
		}})
	}

	avg := s.current.Update(frame.Current())
	s.ctrl.SetCurrent(avg)
	s.telemetry.current.Store(avg)

	s.zcd.Observe(state)
	if !s.zcd.Active() {
		return
	}

	diff := s.zcd.Diff(frame)
	crossed := s.zcd.Push(diff)
	if s.traced(TraceDiff) {
		s.trace.Record(TraceEvent{Kind: TraceDiff, State: state, Clock: now, Values: [4]int32{diff, s.zcd.Sum()}})
	}
	if !crossed {
		return
	}

	s.ctrl.SetDetected(true)
	s.telemetry.recordDetection(s.sinceDetection)
	s.sinceDetection = 0
	s.comm.InjectEvent(EventZCD, now)
	s.debugPin.Toggle()
	if s.traced(TraceZCD) {
		s.trace.Record(TraceEvent{Kind: TraceZCD, State: state, Clock: now, Values: [4]int32{
			s.zcd.Sum(), int32(s.zcd.Samples()), int32(s.ctrl.SpeedSetpoint()),
		}})
	}
}

func (s *SamplingISR) traced(kind TraceKind) bool {
	return s.trace != nil && s.traceMask&kind != 0
}

// Snapshot copies the diagnostic counters.
func (s *SamplingISR) Snapshot() TelemetrySnapshot {
	return TelemetrySnapshot{
		Current:               s.telemetry.current.Load(),
		DetectionCount:        s.telemetry.detections.Load(),
		LastDetectionInterval: s.telemetry.lastInterval.Load(),
		BadFlipCount:          s.buffer.BadFlips(),
		SpuriousCount:         s.buffer.Spurious(),
		Samples:               s.telemetry.samples.Load(),
	}
}

// Filter exposes the zero-crossing session for inspection.
func (s *SamplingISR) Filter() *ZCDFilter { return &s.zcd }

// CurrentFilter exposes the current filter for inspection.
func (s *SamplingISR) CurrentFilter() *CurrentFilter { return s.current }
