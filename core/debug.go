package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

var (
	// debugPrintln is set by the target (USB serial); no-op by default.
	debugPrintln DebugWriter = func(s string) {}

	// debugEnabled is off by default; printing from the main loop costs
	// loop latency.
	debugEnabled bool
)

// SetDebugWriter sets the platform-specific debug output function
func SetDebugWriter(writer DebugWriter) {
	if writer == nil {
		writer = func(string) {}
	}
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// DebugPrintln writes a debug message when debug output is enabled.
// Never call it from the sampling interrupt.
func DebugPrintln(msg string) {
	if debugEnabled {
		debugPrintln(msg)
	}
}

// DumpTrace prints a trace ring, oldest first. Call with the sampling
// interrupt stopped.
func DumpTrace(r *TraceRing) {
	debugPrintln("[TRACE] === " + itoa(r.Len()) + " events ===")
	for _, ev := range r.Events() {
		debugPrintln("[TRACE] " + ev.Kind.String() +
			" state=" + ev.State.String() +
			" clock=" + utoa(ev.Clock) +
			" v=" + itoa(int(ev.Values[0])) +
			"," + itoa(int(ev.Values[1])) +
			"," + itoa(int(ev.Values[2])) +
			"," + itoa(int(ev.Values[3])))
	}
	debugPrintln("[TRACE] === end ===")
}
