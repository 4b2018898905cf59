package protocol

import "errors"

// MsgID identifies the payload of a frame.
type MsgID uint8

// ESC to host.
const (
	MsgStatus MsgID = 0x01
	MsgFault  MsgID = 0x02
	MsgTrace  MsgID = 0x03
)

// Host to ESC.
const (
	MsgSetThresholds MsgID = 0x10
	MsgSetBlanking   MsgID = 0x11
	MsgDumpTrace     MsgID = 0x12
	MsgGetStatus     MsgID = 0x13
)

func (id MsgID) String() string {
	switch id {
	case MsgStatus:
		return "status"
	case MsgFault:
		return "fault"
	case MsgTrace:
		return "trace"
	case MsgSetThresholds:
		return "set_thresholds"
	case MsgSetBlanking:
		return "set_blanking"
	case MsgDumpTrace:
		return "dump_trace"
	case MsgGetStatus:
		return "get_status"
	}
	return "unknown"
}

var (
	ErrFrameTooLarge = errors.New("frame exceeds maximum size")
	ErrBadCRC        = errors.New("frame crc mismatch")
	ErrBadSync       = errors.New("frame missing sync byte")
)

// Frame is one decoded message.
type Frame struct {
	ID      MsgID
	Payload []byte
}

// EncodeFrame writes a complete frame to out. payload may be nil.
// On overflow the partial frame is left in place and ErrFrameTooLarge returned.
func EncodeFrame(out OutputBuffer, id MsgID, payload func(OutputBuffer)) error {
	start := out.CurPosition()
	out.Output([]byte{0, byte(id)})
	if payload != nil {
		payload(out)
	}
	n := out.CurPosition() - start + FrameTrailerSize
	if n > FrameMax {
		return ErrFrameTooLarge
	}
	out.Update(start+FramePosLen, byte(n))
	crc := CRC16(out.DataSince(start))
	out.Output([]byte{byte(crc >> 8), byte(crc), SyncByte})
	if out.CurPosition()-start != n {
		return ErrFrameTooLarge
	}
	return nil
}

// Decoder splits a byte stream into frames. After a corrupt frame it drops
// bytes up to the next sync byte and continues.
type Decoder struct {
	pending []byte
	errors  uint32
}

// Errors returns how many corrupt frames have been discarded.
func (d *Decoder) Errors() uint32 { return d.errors }

// Feed appends data to the decoder and returns every complete frame it now
// holds. Returned payloads do not alias data.
func (d *Decoder) Feed(data []byte) []Frame {
	d.pending = append(d.pending, data...)
	var frames []Frame
	for {
		f, n, err := parseFrame(d.pending)
		if n == 0 {
			break
		}
		if err != nil {
			d.errors++
			n = resync(d.pending)
		} else {
			frames = append(frames, f)
		}
		d.pending = d.pending[n:]
	}
	if len(d.pending) == 0 {
		d.pending = nil
	}
	return frames
}

// Reset drops any buffered partial frame.
func (d *Decoder) Reset() { d.pending = nil }

// ParseFrame decodes one frame from the front of data. It returns the number
// of bytes the frame occupies, or 0 if more data is needed.
func ParseFrame(data []byte) (Frame, int, error) {
	return parseFrame(data)
}

func parseFrame(data []byte) (Frame, int, error) {
	if len(data) == 0 {
		return Frame{}, 0, nil
	}
	n := int(data[FramePosLen])
	if n < FrameMin || n > FrameMax {
		return Frame{}, 1, ErrFrameTooLarge
	}
	if len(data) < n {
		return Frame{}, 0, nil
	}
	if data[n-1] != SyncByte {
		return Frame{}, n, ErrBadSync
	}
	crc := CRC16(data[:n-FrameTrailerSize])
	if data[n-3] != byte(crc>>8) || data[n-2] != byte(crc) {
		return Frame{}, n, ErrBadCRC
	}
	return Frame{
		ID:      MsgID(data[FramePosID]),
		Payload: append([]byte(nil), data[FrameHeaderSize:n-FrameTrailerSize]...),
	}, n, nil
}

// resync returns how many bytes to skip to land just past the next sync byte.
func resync(data []byte) int {
	for i, b := range data {
		if b == SyncByte {
			return i + 1
		}
	}
	return len(data)
}
