package protocol

// Status is the periodic telemetry report.
type Status struct {
	Clock                 uint32
	State                 uint8
	Setpoint              uint32
	Current               int32
	DetectionCount        uint32
	LastDetectionInterval uint32
	BadFlipCount          uint32
	SpuriousCount         uint32
	Samples               uint32
}

func (s *Status) Encode(out OutputBuffer) {
	EncodeVLQUint(out, s.Clock)
	EncodeVLQUint(out, uint32(s.State))
	EncodeVLQUint(out, s.Setpoint)
	EncodeVLQInt(out, s.Current)
	EncodeVLQUint(out, s.DetectionCount)
	EncodeVLQUint(out, s.LastDetectionInterval)
	EncodeVLQUint(out, s.BadFlipCount)
	EncodeVLQUint(out, s.SpuriousCount)
	EncodeVLQUint(out, s.Samples)
}

func DecodeStatus(data *[]byte) (Status, error) {
	var s Status
	var state uint32
	fields := []*uint32{
		&s.Clock, &state, &s.Setpoint, nil, &s.DetectionCount,
		&s.LastDetectionInterval, &s.BadFlipCount, &s.SpuriousCount, &s.Samples,
	}
	for _, f := range fields {
		if f == nil {
			v, err := DecodeVLQInt(data)
			if err != nil {
				return Status{}, err
			}
			s.Current = v
			continue
		}
		v, err := DecodeVLQUint(data)
		if err != nil {
			return Status{}, err
		}
		*f = v
	}
	s.State = uint8(state)
	return s, nil
}

// FaultDetailMax bounds the detail string so a fault always fits one frame.
const FaultDetailMax = 40

// Fault reports a fatal diagnostic code.
type Fault struct {
	Code   uint8
	Detail string
}

func (f *Fault) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(f.Code))
	d := f.Detail
	if len(d) > FaultDetailMax {
		d = d[:FaultDetailMax]
	}
	EncodeVLQBytes(out, []byte(d))
}

func DecodeFault(data *[]byte) (Fault, error) {
	code, err := DecodeVLQUint(data)
	if err != nil {
		return Fault{}, err
	}
	detail, err := DecodeVLQBytes(data)
	if err != nil {
		return Fault{}, err
	}
	return Fault{Code: uint8(code), Detail: string(detail)}, nil
}

// TraceEntry is one recorded sampling event. Values holds the raw frame for
// ADC entries, or the diff and filter sum for detector entries.
type TraceEntry struct {
	Kind   uint8
	State  uint8
	Clock  uint32
	Values [4]int32
}

func (e *TraceEntry) Encode(out OutputBuffer) {
	EncodeVLQUint(out, uint32(e.Kind))
	EncodeVLQUint(out, uint32(e.State))
	EncodeVLQUint(out, e.Clock)
	for _, v := range e.Values {
		EncodeVLQInt(out, v)
	}
}

func DecodeTraceEntry(data *[]byte) (TraceEntry, error) {
	var e TraceEntry
	kind, err := DecodeVLQUint(data)
	if err != nil {
		return e, err
	}
	state, err := DecodeVLQUint(data)
	if err != nil {
		return e, err
	}
	if e.Clock, err = DecodeVLQUint(data); err != nil {
		return e, err
	}
	for i := range e.Values {
		if e.Values[i], err = DecodeVLQInt(data); err != nil {
			return e, err
		}
	}
	e.Kind = uint8(kind)
	e.State = uint8(state)
	return e, nil
}

// Thresholds carries the detector hysteresis pair.
type Thresholds struct {
	Low  int32
	High int32
}

func (t *Thresholds) Encode(out OutputBuffer) {
	EncodeVLQInt(out, t.Low)
	EncodeVLQInt(out, t.High)
}

func DecodeThresholds(data *[]byte) (Thresholds, error) {
	low, err := DecodeVLQInt(data)
	if err != nil {
		return Thresholds{}, err
	}
	high, err := DecodeVLQInt(data)
	if err != nil {
		return Thresholds{}, err
	}
	return Thresholds{Low: low, High: high}, nil
}
