//go:build rp2040

package main

import (
	"machine"

	"goesc/core"
)

// initDebug routes core debug output to UART0 on GPIO12/13 so it never
// mixes with the telemetry frames on USB. The default UART0 pins carry
// gate signals.
func initDebug(enabled bool) {
	if !enabled {
		return
	}
	uart := machine.UART0
	if err := uart.Configure(machine.UARTConfig{BaudRate: 115200, TX: machine.GPIO12, RX: machine.GPIO13}); err != nil {
		return
	}
	core.SetDebugWriter(func(s string) {
		uart.Write([]byte(s))
		uart.Write([]byte{'\r', '\n'})
	})
	core.SetDebugEnabled(true)
}
