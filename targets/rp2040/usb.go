//go:build rp2040

package main

import (
	"machine"

	"goesc/protocol"
)

// InitUSB configures USB CDC (machine.Serial on RP2040).
func InitUSB() {
	err := machine.Serial.Configure(machine.UARTConfig{})
	if err != nil {
		return
	}
}

// usbLink carries telemetry frames out and host commands in.
type usbLink struct {
	in       *protocol.FifoBuffer
	dec      protocol.Decoder
	failures uint32
	dropped  uint32
}

func newUSBLink() *usbLink {
	return &usbLink{in: protocol.NewFifoBuffer(256)}
}

// Write implements core.TelemetryWriter. Frames are dropped rather than
// blocking the control loop when the host is not reading.
func (u *usbLink) Write(frame []byte) (int, error) {
	written := 0
	for written < len(frame) {
		n, err := machine.Serial.Write(frame[written:])
		if err != nil || n == 0 {
			u.failures++
			u.dropped++
			return written, err
		}
		written += n
	}
	u.failures = 0
	return written, nil
}

// Poll moves buffered USB bytes into the FIFO and returns every complete
// host frame.
func (u *usbLink) Poll() []protocol.Frame {
	for machine.Serial.Buffered() > 0 && u.in.Free() > 0 {
		b, err := machine.Serial.ReadByte()
		if err != nil {
			break
		}
		u.in.Write([]byte{b})
	}
	if u.in.IsEmpty() {
		return nil
	}
	data := u.in.Data()
	u.in.Pop(len(data))
	return u.dec.Feed(data)
}
