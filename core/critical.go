package core

// Critical runs fn with interrupts masked. Main-loop code uses it to update
// state that the sampling interrupt also touches.
func Critical(fn func()) {
	state := disableInterrupts()
	fn()
	restoreInterrupts(state)
}
