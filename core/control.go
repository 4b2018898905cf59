package core

import "goesc/protocol"

// Throttle mapping of the receiver pulse width, in microseconds.
const (
	ThrottleDeadband     = 1050
	ThrottleBaseSetpoint = 400
	ThrottleGainShift    = 3

	DefaultThrottleChannel = 1
)

// ThrottleToSetpoint maps a raw receiver value to a speed setpoint: zero
// below the deadband, then linear above it.
func ThrottleToSetpoint(raw uint16) uint32 {
	if raw < ThrottleDeadband {
		return 0
	}
	return ThrottleBaseSetpoint + uint32(raw-ThrottleDeadband)<<ThrottleGainShift
}

// TelemetryWriter receives encoded frames from the main loop.
type TelemetryWriter interface {
	Write(frame []byte) (int, error)
}

// ControlLoop is the low-priority cooperative loop. It never blocks and
// never mutates filter state.
type ControlLoop struct {
	rx      Receiver
	channel uint8
	ctrl    *Controller
	comm    Commutator

	isr         *SamplingISR
	out         TelemetryWriter
	period      uint32
	lastReport  uint32
	trace       *TraceRing
	reportCount uint32

	scratch protocol.ScratchOutput
}

// NewControlLoop wires the receiver and the commutation module.
func NewControlLoop(rx Receiver, channel uint8, ctrl *Controller, comm Commutator) *ControlLoop {
	return &ControlLoop{rx: rx, channel: channel, ctrl: ctrl, comm: comm}
}

// SetTelemetry enables a status frame every period ticks.
func (l *ControlLoop) SetTelemetry(isr *SamplingISR, out TelemetryWriter, period uint32) {
	l.isr = isr
	l.out = out
	l.period = period
	l.lastReport = GetTime()
}

// SetTraceRing exposes a trace ring to the dump command.
func (l *ControlLoop) SetTraceRing(r *TraceRing) { l.trace = r }

// Step is one loop pass: throttle to setpoint, reaction step, telemetry.
func (l *ControlLoop) Step() {
	l.ctrl.SetSpeedSetpoint(ThrottleToSetpoint(l.rx.Read(l.channel)))
	l.comm.ProcessReactionStep()

	if l.out == nil || l.period == 0 {
		return
	}
	now := GetTime()
	if Elapsed(l.lastReport, now) < l.period {
		return
	}
	l.lastReport = now
	l.Report()
}

// Run loops forever.
func (l *ControlLoop) Run() {
	for {
		l.Step()
	}
}

// Report sends one status frame immediately.
func (l *ControlLoop) Report() {
	if l.out == nil || l.isr == nil {
		return
	}
	snap := l.isr.Snapshot()
	st := protocol.Status{
		Clock:                 GetTime(),
		State:                 uint8(l.comm.State()),
		Setpoint:              l.ctrl.SpeedSetpoint(),
		Current:               snap.Current,
		DetectionCount:        snap.DetectionCount,
		LastDetectionInterval: snap.LastDetectionInterval,
		BadFlipCount:          snap.BadFlipCount,
		SpuriousCount:         snap.SpuriousCount,
		Samples:               snap.Samples,
	}
	l.send(protocol.MsgStatus, st.Encode)
	l.reportCount++
}

// ReportFault sends the fault frame for a fatal diagnostic code.
func (l *ControlLoop) ReportFault(code int, detail string) {
	f := protocol.Fault{Code: uint8(code), Detail: detail}
	l.send(protocol.MsgFault, f.Encode)
}

func (l *ControlLoop) send(id protocol.MsgID, payload func(protocol.OutputBuffer)) {
	if l.out == nil {
		return
	}
	l.scratch.Reset()
	if err := protocol.EncodeFrame(&l.scratch, id, payload); err != nil {
		DebugPrintln("[TELEM] encode failed: " + err.Error())
		return
	}
	if _, err := l.out.Write(l.scratch.Result()); err != nil {
		DebugPrintln("[TELEM] write failed: " + err.Error())
	}
}
