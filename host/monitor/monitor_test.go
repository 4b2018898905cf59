package monitor

import (
	"bytes"
	"context"
	"math"
	"testing"

	"github.com/google/go-cmp/cmp"

	"goesc/protocol"
)

type fakePort struct {
	in  bytes.Reader
	out bytes.Buffer
}

func (p *fakePort) Read(b []byte) (int, error)  { return p.in.Read(b) }
func (p *fakePort) Write(b []byte) (int, error) { return p.out.Write(b) }

func frame(t *testing.T, id protocol.MsgID, payload func(protocol.OutputBuffer)) []byte {
	t.Helper()
	out := protocol.NewScratchOutput()
	if err := protocol.EncodeFrame(out, id, payload); err != nil {
		t.Fatal(err)
	}
	return append([]byte(nil), out.Result()...)
}

func statusFrame(t *testing.T, detections, interval uint32) []byte {
	st := protocol.Status{DetectionCount: detections, LastDetectionInterval: interval, State: 2}
	return frame(t, protocol.MsgStatus, st.Encode)
}

func TestStatsOverDetectionIntervals(t *testing.T) {
	m := New(&fakePort{}, 0)

	if _, err := m.Stats(); err != ErrNoData {
		t.Fatalf("expected ErrNoData, got %v", err)
	}

	var stream []byte
	stream = append(stream, statusFrame(t, 1, 10)...)
	stream = append(stream, statusFrame(t, 2, 20)...)
	stream = append(stream, statusFrame(t, 2, 20)...) // no new detection
	stream = append(stream, statusFrame(t, 3, 30)...)
	stream = append(stream, statusFrame(t, 4, 40)...)
	if n := m.Feed(stream); n != 5 {
		t.Fatalf("applied %d frames, want 5", n)
	}

	got, err := m.Stats()
	if err != nil {
		t.Fatal(err)
	}
	want := Stats{Count: 3, Mean: 30, StdDev: 10, Median: 30, Min: 20, Max: 40}
	approx := cmp.Comparer(func(a, b float64) bool { return math.Abs(a-b) < 1e-9 })
	if diff := cmp.Diff(want, got, approx); diff != "" {
		t.Errorf("stats mismatch (-want +got):\n%s", diff)
	}

	st, ok := m.Status()
	if !ok || st.DetectionCount != 4 || st.State != 2 {
		t.Errorf("latest status = %+v, %v", st, ok)
	}
}

func TestIntervalWindowIsBounded(t *testing.T) {
	m := New(&fakePort{}, 2)
	for i := uint32(1); i <= 5; i++ {
		m.Feed(statusFrame(t, i, i*100))
	}
	got, err := m.Stats()
	if err != nil {
		t.Fatal(err)
	}
	if got.Count != 2 || got.Min != 400 || got.Max != 500 {
		t.Errorf("window stats = %+v", got)
	}
}

func TestFaultFrames(t *testing.T) {
	m := New(&fakePort{}, 0)
	var seen []protocol.Fault
	m.OnFault(func(f protocol.Fault) { seen = append(seen, f) })

	f := protocol.Fault{Code: 2, Detail: "A_LOW reads 750"}
	m.Feed(frame(t, protocol.MsgFault, f.Encode))

	want := []protocol.Fault{f}
	if diff := cmp.Diff(want, seen); diff != "" {
		t.Errorf("callback mismatch (-want +got):\n%s", diff)
	}
	if diff := cmp.Diff(want, m.Faults()); diff != "" {
		t.Errorf("faults mismatch (-want +got):\n%s", diff)
	}
}

func TestTraceIsDrained(t *testing.T) {
	m := New(&fakePort{}, 0)
	e := protocol.TraceEntry{Kind: 4, State: 1, Clock: 99, Values: [4]int32{1, 2, 3, 4}}
	m.Feed(frame(t, protocol.MsgTrace, e.Encode))
	m.Feed(frame(t, protocol.MsgTrace, e.Encode))

	if got := m.Trace(); len(got) != 2 || got[1] != e {
		t.Errorf("trace = %+v", got)
	}
	if got := m.Trace(); len(got) != 0 {
		t.Errorf("trace not cleared: %+v", got)
	}
}

func TestUnknownFrameCounted(t *testing.T) {
	m := New(&fakePort{}, 0)
	m.Feed(frame(t, protocol.MsgID(0x7F), nil))
	if frames, bad, _ := m.Counters(); frames != 1 || bad != 1 {
		t.Errorf("frames=%d bad=%d", frames, bad)
	}
}

func TestCommandsAreFramed(t *testing.T) {
	port := &fakePort{}
	m := New(port, 0)

	if err := m.SetThresholds(-1, 10); err == nil {
		t.Fatal("negative low threshold accepted")
	}
	if err := m.SetThresholds(25, 40); err != nil {
		t.Fatal(err)
	}
	if err := m.SetBlanking(150); err != nil {
		t.Fatal(err)
	}
	if err := m.RequestTrace(); err != nil {
		t.Fatal(err)
	}

	var dec protocol.Decoder
	frames := dec.Feed(port.out.Bytes())
	if len(frames) != 3 {
		t.Fatalf("decoded %d frames, want 3", len(frames))
	}

	data := frames[0].Payload
	th, err := protocol.DecodeThresholds(&data)
	if err != nil || th != (protocol.Thresholds{Low: 25, High: 40}) {
		t.Errorf("thresholds = %+v, %v", th, err)
	}
	data = frames[1].Payload
	if ticks, err := protocol.DecodeVLQUint(&data); err != nil || ticks != 150 {
		t.Errorf("blanking = %d, %v", ticks, err)
	}
	if frames[2].ID != protocol.MsgDumpTrace {
		t.Errorf("third frame = %v", frames[2].ID)
	}
}

func TestRunStopsAtEOF(t *testing.T) {
	port := &fakePort{}
	port.in.Reset(append(statusFrame(t, 1, 5), statusFrame(t, 2, 6)...))
	m := New(port, 0)

	if err := m.Run(context.Background()); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st, ok := m.Status(); !ok || st.DetectionCount != 2 {
		t.Errorf("status = %+v, %v", st, ok)
	}
}

func TestRunHonorsCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	m := New(&fakePort{}, 0)
	if err := m.Run(ctx); err != context.Canceled {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}
