package core

import "testing"

func TestCommutationTable(t *testing.T) {
	tests := []struct {
		state     CommutationState
		high, low Phase
		undriven  UndrivenPhase
	}{
		{StateAB, PhaseA, PhaseB, UndrivenPhase{PhaseC, Falling}},
		{StateAC, PhaseA, PhaseC, UndrivenPhase{PhaseB, Rising}},
		{StateBC, PhaseB, PhaseC, UndrivenPhase{PhaseA, Falling}},
		{StateBA, PhaseB, PhaseA, UndrivenPhase{PhaseC, Rising}},
		{StateCA, PhaseC, PhaseA, UndrivenPhase{PhaseB, Falling}},
		{StateCB, PhaseC, PhaseB, UndrivenPhase{PhaseA, Rising}},
	}
	for _, tt := range tests {
		high, low, ok := tt.state.Pair()
		if !ok || high != tt.high || low != tt.low {
			t.Errorf("%v: pair = %v%v ok=%v", tt.state, high, low, ok)
		}
		u, ok := tt.state.Undriven()
		if !ok || u != tt.undriven {
			t.Errorf("%v: undriven = %v %v, want %v %v", tt.state, u.Phase, u.Polarity, tt.undriven.Phase, tt.undriven.Polarity)
		}
		if u.Phase == high || u.Phase == low {
			t.Errorf("%v: floating phase %v is driven", tt.state, u.Phase)
		}
	}
}

func TestNonDrivingStates(t *testing.T) {
	for _, s := range []CommutationState{StateOff, StateFault} {
		if s.Driving() {
			t.Errorf("%v reports driving", s)
		}
		if _, ok := s.Undriven(); ok {
			t.Errorf("%v has a floating phase", s)
		}
		if _, _, ok := s.Pair(); ok {
			t.Errorf("%v has a drive pair", s)
		}
	}
	if got := CommutationState(42).String(); got != "STATE(42)" {
		t.Errorf("String() = %q", got)
	}
}

func TestControllerSwapReleasesLatch(t *testing.T) {
	c := NewController()
	c.SetDetected(true)
	c.MarkSwap(1234)
	if c.Detected() {
		t.Error("latch still set after swap")
	}
	if c.LastSwapTime() != 1234 {
		t.Errorf("LastSwapTime = %d", c.LastSwapTime())
	}
}

func TestGateTestMapping(t *testing.T) {
	for g := GateALow; g < NumGateTests; g++ {
		t.Logf("%v phase=%v high=%v", g, g.Phase(), g.High())
	}
	if GateBHigh.Phase() != PhaseB || !GateBHigh.High() {
		t.Error("B_HIGH mapping")
	}
	if GateCLow.Phase() != PhaseC || GateCLow.High() {
		t.Error("C_LOW mapping")
	}
}
