package core

import "time"

// Blink timing of the fatal diagnostic code.
const (
	BlinkHalfPeriod = 250 * time.Millisecond
	BlinkPause      = 1000 * time.Millisecond

	// FaultCodeInit is blinked when boot-time allocation or configuration
	// fails and the motor must not be armed.
	FaultCodeInit = 7
)

// BlinkCode renders one repetition of a diagnostic code: code blinks, then
// a pause.
func BlinkCode(led Indicator, code int, delay func(time.Duration)) {
	for i := 0; i < code; i++ {
		led.Toggle()
		delay(BlinkHalfPeriod)
		led.Toggle()
		delay(BlinkHalfPeriod)
	}
	delay(BlinkPause)
}

// Panic is the fail-stop reaction to a fatal fault: the inverter is
// disabled and the code is blinked forever. It never returns.
func Panic(inv Inverter, led Indicator, code int) {
	inv.Off()
	led.On()
	DebugPrintln("[FAULT] code=" + itoa(code))
	for {
		BlinkCode(led, code, time.Sleep)
	}
}
