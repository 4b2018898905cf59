//go:build tinygo

package core

import "runtime/interrupt"

// disableInterrupts masks interrupts so main-loop writers cannot tear state
// the sampling handler reads.
func disableInterrupts() interrupt.State {
	return interrupt.Disable()
}

// restoreInterrupts restores the interrupt state
func restoreInterrupts(state interrupt.State) {
	interrupt.Restore(state)
}
