package core

import (
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
)

type fakeInverter struct {
	armed  bool
	gateOn bool
	gate   GateTest
	duty   float32
	offs   int
	driven CommutationState
}

func (f *fakeInverter) Off() {
	f.armed = false
	f.gateOn = false
	f.offs++
	f.driven = StateOff
}
func (f *fakeInverter) Arm()                     { f.armed = true }
func (f *fakeInverter) SetDutyCycle(d float32)   { f.duty = d }
func (f *fakeInverter) TestGate(g GateTest)      { f.gate = g; f.gateOn = true }
func (f *fakeInverter) Drive(s CommutationState) { f.driven = s }

// fakeBridge models a healthy power stage: the phase of the switched gate
// follows it, the others float at mid-rail.
type fakeBridge struct {
	inv      *fakeInverter
	zero     int16
	high     int16
	low      int16
	override map[GateTest]int16
	err      error
}

func (b *fakeBridge) ReadChannel(ch ADCChannel) (int16, error) {
	if b.err != nil {
		return 0, b.err
	}
	if ch == ChannelCurrent {
		return b.zero, nil
	}
	p := Phase(ch - ChannelPhaseA)
	if !b.inv.gateOn || b.inv.gate.Phase() != p {
		return 900, nil
	}
	if v, ok := b.override[b.inv.gate]; ok {
		return v, nil
	}
	if b.inv.gate.High() {
		return b.high, nil
	}
	return b.low, nil
}

func newSelfTestHarness(override map[GateTest]int16) (*SelfTest, *fakeInverter, *[]time.Duration) {
	inv := &fakeInverter{}
	bridge := &fakeBridge{inv: inv, zero: 31, high: 1100, low: 650, override: override}
	st := NewSelfTest(inv, bridge, DefaultSelfTestLimits())
	var delays []time.Duration
	st.SetDelay(func(d time.Duration) { delays = append(delays, d) })
	return st, inv, &delays
}

func TestSelfTestPasses(t *testing.T) {
	st, inv, delays := newSelfTestHarness(nil)

	res, err := st.Run()
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if st.State() != SelfTestPass {
		t.Errorf("state = %v, want pass", st.State())
	}
	if inv.armed || inv.gateOn {
		t.Error("inverter left on after self-test")
	}
	if res.ZeroCurrent != 31 {
		t.Errorf("ZeroCurrent = %d, want 31", res.ZeroCurrent)
	}
	if diff := cmp.Diff([3]int16{650, 650, 650}, res.NoLoad); diff != "" {
		t.Errorf("NoLoad mismatch (-want +got):\n%s", diff)
	}
	for g := GateALow; g < NumGateTests; g++ {
		t.Logf("%v: %v", g, res.Voltages[g])
	}
	if got := res.Voltages[GateBHigh][PhaseB]; got != 1100 {
		t.Errorf("B_HIGH on B = %d, want 1100", got)
	}
	if (*delays)[0] != SelfTestQuiesce {
		t.Errorf("first delay = %v, want %v", (*delays)[0], SelfTestQuiesce)
	}
}

func TestSelfTestFaultCodes(t *testing.T) {
	tests := []struct {
		name     string
		override map[GateTest]int16
		code     int
		gate     GateTest
	}{
		{"a high stuck low", map[GateTest]int16{GateAHigh: 400}, 1, GateAHigh},
		{"a low stuck high", map[GateTest]int16{GateALow: 750}, 2, GateALow},
		{"b high stuck low", map[GateTest]int16{GateBHigh: 900}, 2, GateBHigh},
		{"b low stuck high", map[GateTest]int16{GateBLow: 1200}, 3, GateBLow},
		{"c high stuck low", map[GateTest]int16{GateCHigh: 10}, 4, GateCHigh},
		{"c low stuck high", map[GateTest]int16{GateCLow: 701}, 5, GateCLow},
		{"first failure wins", map[GateTest]int16{GateCLow: 2000, GateBLow: 2000}, 3, GateBLow},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			st, inv, _ := newSelfTestHarness(tt.override)
			_, err := st.Run()

			var se *SelfTestError
			if !errors.As(err, &se) {
				t.Fatalf("err = %v, want *SelfTestError", err)
			}
			if se.Code != tt.code || se.Gate != tt.gate {
				t.Errorf("code=%d gate=%v, want %d %v", se.Code, se.Gate, tt.code, tt.gate)
			}
			if se.Reading != tt.override[tt.gate] {
				t.Errorf("reading = %d, want %d", se.Reading, tt.override[tt.gate])
			}
			if st.State() != SelfTestFaulted {
				t.Errorf("state = %v, want faulted", st.State())
			}
			if inv.armed || inv.gateOn {
				t.Error("inverter not off after failure")
			}
		})
	}
}

func TestSelfTestStaysFaulted(t *testing.T) {
	st, _, _ := newSelfTestHarness(map[GateTest]int16{GateALow: 750})
	if _, err := st.Run(); err == nil {
		t.Fatal("expected failure")
	}
	if _, err := st.Run(); !errors.Is(err, ErrSelfTestFaulted) {
		t.Errorf("second Run = %v, want ErrSelfTestFaulted", err)
	}
}

func TestSelfTestADCError(t *testing.T) {
	inv := &fakeInverter{}
	adcErr := errors.New("adc timeout")
	st := NewSelfTest(inv, &fakeBridge{inv: inv, err: adcErr}, DefaultSelfTestLimits())
	st.SetDelay(func(time.Duration) {})

	_, err := st.Run()
	if !errors.Is(err, adcErr) {
		t.Fatalf("err = %v, want wrapped adc error", err)
	}
	var se *SelfTestError
	if errors.As(err, &se) && se.Code != FaultCodeADC {
		t.Errorf("code = %d, want %d", se.Code, FaultCodeADC)
	}
	if inv.armed {
		t.Error("inverter armed after ADC failure")
	}
}

func TestBlinkCode(t *testing.T) {
	led := &countingIndicator{}
	var delays []time.Duration
	BlinkCode(led, 3, func(d time.Duration) { delays = append(delays, d) })

	if led.toggles != 6 {
		t.Errorf("toggles = %d, want 6", led.toggles)
	}
	want := []time.Duration{
		BlinkHalfPeriod, BlinkHalfPeriod,
		BlinkHalfPeriod, BlinkHalfPeriod,
		BlinkHalfPeriod, BlinkHalfPeriod,
		BlinkPause,
	}
	if diff := cmp.Diff(want, delays); diff != "" {
		t.Errorf("delays mismatch (-want +got):\n%s", diff)
	}
}
