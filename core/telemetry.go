package core

import "sync/atomic"

// Telemetry holds the diagnostic counters written by the sampling
// interrupt. They are never reset during normal operation.
type Telemetry struct {
	current      atomic.Int32
	detections   atomic.Uint32
	lastInterval atomic.Uint32
	samples      atomic.Uint32
}

// TelemetrySnapshot is a consistent-enough copy for reporting.
type TelemetrySnapshot struct {
	Current               int32
	DetectionCount        uint32
	LastDetectionInterval uint32
	BadFlipCount          uint32
	SpuriousCount         uint32
	Samples               uint32 // past blanking and the detection latch
}

func (t *Telemetry) recordDetection(interval uint32) {
	t.detections.Add(1)
	t.lastInterval.Store(interval)
}

// DetectionCount returns the number of zero crossings raised.
func (t *Telemetry) DetectionCount() uint32 { return t.detections.Load() }
