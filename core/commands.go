package core

import (
	"errors"

	"goesc/protocol"
)

var ErrUnknownMessage = errors.New("unknown message id")

// HandleFrame applies a host command received over the telemetry link.
func (l *ControlLoop) HandleFrame(f protocol.Frame) error {
	data := f.Payload
	switch f.ID {
	case protocol.MsgSetThresholds:
		th, err := protocol.DecodeThresholds(&data)
		if err != nil {
			return err
		}
		if l.isr == nil {
			return nil
		}
		return l.isr.SetThresholds(th.Low, th.High)

	case protocol.MsgSetBlanking:
		ticks, err := protocol.DecodeVLQUint(&data)
		if err != nil {
			return err
		}
		if l.isr != nil {
			l.isr.SetBlanking(ticks)
		}
		return nil

	case protocol.MsgDumpTrace:
		l.dumpTrace()
		return nil

	case protocol.MsgGetStatus:
		l.Report()
		return nil
	}
	return ErrUnknownMessage
}

// dumpTrace streams the trace ring as MsgTrace frames, oldest first.
func (l *ControlLoop) dumpTrace() {
	if l.trace == nil {
		return
	}
	state := disableInterrupts()
	events := l.trace.Events()
	l.trace.Clear()
	restoreInterrupts(state)

	for i := range events {
		ev := &events[i]
		entry := protocol.TraceEntry{
			Kind:   uint8(ev.Kind),
			State:  uint8(ev.State),
			Clock:  ev.Clock,
			Values: ev.Values,
		}
		l.send(protocol.MsgTrace, entry.Encode)
	}
}
