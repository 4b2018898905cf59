// Package protocol implements the framed telemetry link between the ESC and
// a host: VLQ-encoded integers inside CRC16-checked frames.
package protocol

// Version of the telemetry protocol.
const Version = "1"

// Frame layout: [len][msg id][payload...][crc hi][crc lo][sync]
// len counts every byte of the frame.
const (
	FrameHeaderSize  = 2
	FrameTrailerSize = 3
	FrameMin         = FrameHeaderSize + FrameTrailerSize
	FrameMax         = 64

	FramePosLen = 0
	FramePosID  = 1

	SyncByte = 0x7E

	// MessageMax bounds a ScratchOutput; several frames may be batched.
	MessageMax = 512
)
