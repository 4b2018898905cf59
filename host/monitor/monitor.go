// Package monitor decodes the ESC telemetry stream and sends tuning commands.
package monitor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"sort"
	"sync"

	"gonum.org/v1/gonum/stat"

	"goesc/protocol"
)

// DefaultWindow is the number of detection intervals kept for statistics.
const DefaultWindow = 256

// traceLimit bounds the buffered trace entries.
const traceLimit = 4096

var ErrNoData = errors.New("monitor: no detection intervals yet")

// Stats summarizes recent detection intervals, in samples.
type Stats struct {
	Count  int
	Mean   float64
	StdDev float64
	Median float64
	Min    float64
	Max    float64
}

// Monitor owns one connection to an ESC.
type Monitor struct {
	port io.ReadWriter

	wmu     sync.Mutex
	scratch protocol.ScratchOutput

	mu         sync.Mutex
	dec        protocol.Decoder
	status     protocol.Status
	haveStatus bool
	faults     []protocol.Fault
	trace      []protocol.TraceEntry
	intervals  []float64
	next       int
	window     int
	frames     uint64
	bad        uint64
	onFault    func(protocol.Fault)
}

// New creates a monitor keeping window detection intervals.
func New(port io.ReadWriter, window int) *Monitor {
	if window <= 0 {
		window = DefaultWindow
	}
	return &Monitor{port: port, window: window}
}

// OnFault registers a callback for fault frames. It runs on the reader.
func (m *Monitor) OnFault(fn func(protocol.Fault)) {
	m.mu.Lock()
	m.onFault = fn
	m.mu.Unlock()
}

// Run reads the port until ctx is cancelled or a read fails.
func (m *Monitor) Run(ctx context.Context) error {
	buf := make([]byte, 256)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		n, err := m.port.Read(buf)
		if n > 0 {
			m.Feed(buf[:n])
		}
		if err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return fmt.Errorf("read telemetry: %w", err)
		}
	}
}

// Feed decodes data and applies every complete frame. It returns the
// number of frames applied.
func (m *Monitor) Feed(data []byte) int {
	m.mu.Lock()
	frames := m.dec.Feed(data)
	var faults []protocol.Fault
	for _, f := range frames {
		if fault, ok := m.apply(f); ok {
			faults = append(faults, fault)
		}
	}
	cb := m.onFault
	m.mu.Unlock()

	if cb != nil {
		for _, f := range faults {
			cb(f)
		}
	}
	return len(frames)
}

// apply handles one frame; m.mu is held.
func (m *Monitor) apply(f protocol.Frame) (protocol.Fault, bool) {
	m.frames++
	data := f.Payload
	switch f.ID {
	case protocol.MsgStatus:
		st, err := protocol.DecodeStatus(&data)
		if err != nil {
			m.bad++
			return protocol.Fault{}, false
		}
		if m.haveStatus && st.DetectionCount != m.status.DetectionCount && st.LastDetectionInterval > 0 {
			m.addInterval(float64(st.LastDetectionInterval))
		}
		m.status = st
		m.haveStatus = true

	case protocol.MsgFault:
		fault, err := protocol.DecodeFault(&data)
		if err != nil {
			m.bad++
			return protocol.Fault{}, false
		}
		m.faults = append(m.faults, fault)
		return fault, true

	case protocol.MsgTrace:
		e, err := protocol.DecodeTraceEntry(&data)
		if err != nil {
			m.bad++
			return protocol.Fault{}, false
		}
		if len(m.trace) < traceLimit {
			m.trace = append(m.trace, e)
		}

	default:
		m.bad++
	}
	return protocol.Fault{}, false
}

func (m *Monitor) addInterval(v float64) {
	if len(m.intervals) < m.window {
		m.intervals = append(m.intervals, v)
		return
	}
	m.intervals[m.next] = v
	m.next = (m.next + 1) % m.window
}

// Status returns the latest status frame.
func (m *Monitor) Status() (protocol.Status, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.status, m.haveStatus
}

// Faults returns every fault frame received.
func (m *Monitor) Faults() []protocol.Fault {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]protocol.Fault(nil), m.faults...)
}

// Trace returns the buffered trace entries and clears the buffer.
func (m *Monitor) Trace() []protocol.TraceEntry {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := m.trace
	m.trace = nil
	return out
}

// Counters returns frames applied and frames rejected, plus the decoder's
// count of corrupt frames.
func (m *Monitor) Counters() (frames, bad uint64, corrupt uint32) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.frames, m.bad, m.dec.Errors()
}

// Stats summarizes the detection interval window.
func (m *Monitor) Stats() (Stats, error) {
	m.mu.Lock()
	xs := append([]float64(nil), m.intervals...)
	m.mu.Unlock()

	if len(xs) == 0 {
		return Stats{}, ErrNoData
	}
	sort.Float64s(xs)
	mean, std := stat.MeanStdDev(xs, nil)
	if len(xs) == 1 {
		std = 0
	}
	return Stats{
		Count:  len(xs),
		Mean:   mean,
		StdDev: std,
		Median: stat.Quantile(0.5, stat.Empirical, xs, nil),
		Min:    xs[0],
		Max:    xs[len(xs)-1],
	}, nil
}

// SetThresholds sends new hysteresis thresholds.
func (m *Monitor) SetThresholds(low, high int32) error {
	if low < 0 {
		return fmt.Errorf("low threshold %d: must be >= 0", low)
	}
	th := protocol.Thresholds{Low: low, High: high}
	return m.send(protocol.MsgSetThresholds, th.Encode)
}

// SetBlanking sends a new blanking window in timer ticks.
func (m *Monitor) SetBlanking(ticks uint32) error {
	return m.send(protocol.MsgSetBlanking, func(out protocol.OutputBuffer) {
		protocol.EncodeVLQUint(out, ticks)
	})
}

// RequestTrace asks the ESC to stream and clear its trace ring.
func (m *Monitor) RequestTrace() error {
	return m.send(protocol.MsgDumpTrace, nil)
}

// RequestStatus asks for an immediate status frame.
func (m *Monitor) RequestStatus() error {
	return m.send(protocol.MsgGetStatus, nil)
}

func (m *Monitor) send(id protocol.MsgID, payload func(protocol.OutputBuffer)) error {
	m.wmu.Lock()
	defer m.wmu.Unlock()

	m.scratch.Reset()
	if err := protocol.EncodeFrame(&m.scratch, id, payload); err != nil {
		return fmt.Errorf("encode %v: %w", id, err)
	}
	if _, err := m.port.Write(m.scratch.Result()); err != nil {
		return fmt.Errorf("send %v: %w", id, err)
	}
	return nil
}
