package core

import (
	"errors"
	"time"
)

// Self-test timing and default limits, in raw ADC units.
const (
	SelfTestQuiesce    = 150 * time.Millisecond
	SelfTestGateSettle = 250 * time.Microsecond
	SelfTestFullDuty   = 100 * time.Microsecond

	DefaultSelfTestLowMax  = 700
	DefaultSelfTestHighMin = 1000

	// FaultCodeADC is blinked when the ADC cannot be read during the
	// self-test; codes 1-5 identify a failed gate check.
	FaultCodeADC = 6
)

var ErrSelfTestFaulted = errors.New("self-test already faulted")

// SelfTestState is the sequencer state.
type SelfTestState uint8

const (
	SelfTestIdle SelfTestState = iota
	SelfTestPhase
	SelfTestEvaluate
	SelfTestPass
	SelfTestFaulted
)

func (s SelfTestState) String() string {
	switch s {
	case SelfTestIdle:
		return "idle"
	case SelfTestPhase:
		return "phase-test"
	case SelfTestEvaluate:
		return "evaluate"
	case SelfTestPass:
		return "pass"
	case SelfTestFaulted:
		return "faulted"
	}
	return "unknown"
}

// SelfTestLimits bounds the phase voltage with a gate switched on.
type SelfTestLimits struct {
	// LowMax is the highest acceptable reading with the low gate on.
	LowMax int16
	// HighMin is the lowest acceptable reading with the high gate on.
	HighMin int16
}

// DefaultSelfTestLimits returns the limits for the reference board.
func DefaultSelfTestLimits() SelfTestLimits {
	return SelfTestLimits{LowMax: DefaultSelfTestLowMax, HighMin: DefaultSelfTestHighMin}
}

// SelfTestResult holds everything measured by one run.
type SelfTestResult struct {
	ZeroCurrent int16
	// NoLoad is each phase with only its own low gate on.
	NoLoad [3]int16
	// Voltages is indexed by GateTest, then by Phase.
	Voltages [NumGateTests][3]int16
}

// SelfTestError reports the first failed check.
type SelfTestError struct {
	Code    int
	Gate    GateTest
	Reading int16
	Err     error
}

func (e *SelfTestError) Error() string {
	if e.Err != nil {
		return "self-test: " + e.Err.Error()
	}
	return "self-test: gate " + e.Gate.String() + " read " + itoa(int(e.Reading)) +
		" (code " + itoa(e.Code) + ")"
}

func (e *SelfTestError) Unwrap() error { return e.Err }

// selfTestCheck is evaluated in table order; the first failure wins.
type selfTestCheck struct {
	gate GateTest
	code int
}

var selfTestChecks = [...]selfTestCheck{
	{GateAHigh, 1},
	{GateALow, 2},
	{GateBHigh, 2},
	{GateBLow, 3},
	{GateCHigh, 4},
	{GateCLow, 5},
}

// SelfTest drives each gate in turn and checks the phase it belongs to
// follows, catching miswired leads and dead FETs before arming.
type SelfTest struct {
	inv    Inverter
	adc    ADCReader
	limits SelfTestLimits
	delay  func(time.Duration)

	state  SelfTestState
	gate   GateTest
	result SelfTestResult
}

// NewSelfTest creates an idle sequencer.
func NewSelfTest(inv Inverter, adc ADCReader, limits SelfTestLimits) *SelfTest {
	return &SelfTest{
		inv:    inv,
		adc:    adc,
		limits: limits,
		delay:  time.Sleep,
	}
}

// SetDelay replaces the wait function (tests use a recorder).
func (t *SelfTest) SetDelay(delay func(time.Duration)) { t.delay = delay }

// State returns the sequencer state.
func (t *SelfTest) State() SelfTestState { return t.state }

// Gate returns the sub-test in progress, or the last one run.
func (t *SelfTest) Gate() GateTest { return t.gate }

// Result returns the readings of the last run.
func (t *SelfTest) Result() SelfTestResult { return t.result }

// Run executes the full sequence. The inverter is off when Run returns.
// On failure the sequencer stays Faulted and the error is a *SelfTestError.
func (t *SelfTest) Run() (SelfTestResult, error) {
	if t.state == SelfTestFaulted {
		return t.result, ErrSelfTestFaulted
	}
	t.result = SelfTestResult{}

	t.inv.Off()
	t.delay(SelfTestQuiesce)
	zero, err := t.adc.ReadChannel(ChannelCurrent)
	if err != nil {
		return t.result, t.fail(&SelfTestError{Code: FaultCodeADC, Err: err})
	}
	t.result.ZeroCurrent = zero

	t.inv.Arm()
	for p := PhaseA; p <= PhaseC; p++ {
		t.inv.TestGate(GateTest(p) * 2)
		t.delay(SelfTestGateSettle)
		v, err := t.adc.ReadChannel(ChannelPhaseA + ADCChannel(p))
		if err != nil {
			return t.result, t.fail(&SelfTestError{Code: FaultCodeADC, Err: err})
		}
		t.result.NoLoad[p] = v
	}

	t.state = SelfTestPhase
	for g := GateALow; g < NumGateTests; g++ {
		t.gate = g
		if err := t.runGate(g); err != nil {
			return t.result, t.fail(&SelfTestError{Code: FaultCodeADC, Gate: g, Err: err})
		}
	}
	t.inv.Off()

	t.state = SelfTestEvaluate
	if err := t.evaluate(); err != nil {
		return t.result, t.fail(err)
	}
	t.state = SelfTestPass
	return t.result, nil
}

// runGate disables drive, lets the bridge settle, then switches the gate on
// at half duty before going to full duty and sampling all three phases.
func (t *SelfTest) runGate(g GateTest) error {
	t.inv.Off()
	t.delay(SelfTestGateSettle)
	t.inv.Arm()
	t.inv.SetDutyCycle(0.5)
	t.inv.TestGate(g)
	t.delay(SelfTestGateSettle)
	t.inv.SetDutyCycle(1)
	t.delay(SelfTestFullDuty)

	for p := PhaseA; p <= PhaseC; p++ {
		v, err := t.adc.ReadChannel(ChannelPhaseA + ADCChannel(p))
		if err != nil {
			return err
		}
		t.result.Voltages[g][p] = v
	}
	return nil
}

func (t *SelfTest) evaluate() *SelfTestError {
	for _, c := range selfTestChecks {
		v := t.result.Voltages[c.gate][c.gate.Phase()]
		if c.gate.High() && v < t.limits.HighMin || !c.gate.High() && v > t.limits.LowMax {
			return &SelfTestError{Code: c.code, Gate: c.gate, Reading: v}
		}
	}
	return nil
}

func (t *SelfTest) fail(err *SelfTestError) error {
	t.inv.Off()
	t.state = SelfTestFaulted
	return err
}
