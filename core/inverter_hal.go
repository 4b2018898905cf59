package core

// GateTest selects one gate of the three half bridges for the self-test.
type GateTest uint8

const (
	GateALow GateTest = iota
	GateAHigh
	GateBLow
	GateBHigh
	GateCLow
	GateCHigh

	NumGateTests = 6
)

var gateNames = [NumGateTests]string{"A_LOW", "A_HIGH", "B_LOW", "B_HIGH", "C_LOW", "C_HIGH"}

func (g GateTest) String() string {
	if g < NumGateTests {
		return gateNames[g]
	}
	return "GATE(" + itoa(int(g)) + ")"
}

// Phase returns the half bridge the gate belongs to.
func (g GateTest) Phase() Phase {
	return Phase(g / 2)
}

// High reports whether the gate is a high-side switch.
func (g GateTest) High() bool {
	return g%2 == 1
}

// Inverter is the abstract three-phase gate driver.
// Platform-specific implementations handle the PWM slices and gate pins.
type Inverter interface {
	// Off disables every gate.
	Off()

	// Arm enables the gate driver outputs; gates stay off until driven.
	Arm()

	// SetDutyCycle sets the PWM duty applied to the driven high side, 0..1.
	SetDutyCycle(fraction float32)

	// TestGate switches on a single gate, all others off.
	TestGate(g GateTest)

	// Drive energizes the phase pair of a six-step state.
	Drive(s CommutationState)
}
