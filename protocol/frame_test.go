package protocol

import (
	"testing"

	"github.com/google/go-cmp/cmp"
)

func encodeTestFrame(t *testing.T, id MsgID, payload func(OutputBuffer)) []byte {
	t.Helper()
	out := NewScratchOutput()
	if err := EncodeFrame(out, id, payload); err != nil {
		t.Fatalf("EncodeFrame: %v", err)
	}
	return append([]byte(nil), out.Result()...)
}

func TestEncodeFrameLayout(t *testing.T) {
	raw := encodeTestFrame(t, MsgSetBlanking, func(out OutputBuffer) {
		EncodeVLQUint(out, 50)
	})

	if int(raw[FramePosLen]) != len(raw) {
		t.Errorf("length byte %d, frame is %d bytes", raw[FramePosLen], len(raw))
	}
	if MsgID(raw[FramePosID]) != MsgSetBlanking {
		t.Errorf("id = %v", MsgID(raw[FramePosID]))
	}
	if raw[len(raw)-1] != SyncByte {
		t.Errorf("missing sync byte")
	}
	crc := CRC16(raw[:len(raw)-FrameTrailerSize])
	if raw[len(raw)-3] != byte(crc>>8) || raw[len(raw)-2] != byte(crc) {
		t.Errorf("crc mismatch")
	}
}

func TestEncodeFrameTooLarge(t *testing.T) {
	out := NewScratchOutput()
	err := EncodeFrame(out, MsgFault, func(out OutputBuffer) {
		out.Output(make([]byte, FrameMax))
	})
	if err != ErrFrameTooLarge {
		t.Errorf("expected ErrFrameTooLarge, got %v", err)
	}
}

func TestParseFrame(t *testing.T) {
	raw := encodeTestFrame(t, MsgGetStatus, nil)

	f, n, err := ParseFrame(raw[:len(raw)-1])
	if n != 0 || err != nil {
		t.Fatalf("partial frame: n=%d err=%v", n, err)
	}

	f, n, err = ParseFrame(raw)
	if err != nil {
		t.Fatalf("ParseFrame: %v", err)
	}
	if n != len(raw) || f.ID != MsgGetStatus || len(f.Payload) != 0 {
		t.Errorf("got %+v n=%d", f, n)
	}

	raw[FramePosID] ^= 0xFF
	if _, _, err := ParseFrame(raw); err != ErrBadCRC {
		t.Errorf("expected ErrBadCRC, got %v", err)
	}
}

func TestDecoderSplitsStream(t *testing.T) {
	a := encodeTestFrame(t, MsgSetBlanking, func(out OutputBuffer) { EncodeVLQUint(out, 120) })
	b := encodeTestFrame(t, MsgDumpTrace, nil)
	stream := append(append([]byte(nil), a...), b...)

	var d Decoder
	var got []Frame
	for i := range stream {
		got = append(got, d.Feed(stream[i:i+1])...)
	}

	want := []Frame{
		{ID: MsgSetBlanking, Payload: []byte{0x80, 0x78}},
		{ID: MsgDumpTrace},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("frames mismatch (-want +got):\n%s", diff)
	}
}

func TestDecoderResync(t *testing.T) {
	good := encodeTestFrame(t, MsgGetStatus, nil)
	bad := encodeTestFrame(t, MsgDumpTrace, nil)
	bad[len(bad)-2] ^= 0x55

	var d Decoder
	stream := append([]byte{0xFF, 0x03}, bad...)
	stream = append(stream, good...)
	frames := d.Feed(stream)

	if len(frames) != 1 || frames[0].ID != MsgGetStatus {
		t.Fatalf("expected one status request, got %+v", frames)
	}
	if d.Errors() == 0 {
		t.Error("expected corrupt data to be counted")
	}
}
