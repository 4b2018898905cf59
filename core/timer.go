package core

// TimerFreq is the rate of the free-running system timer. Targets feed the
// microsecond hardware counter into SetTime.
const (
	TimerFreq = 1000000
)

var (
	systemTicks uint32
	bootTime    uint32
)

// GetTime returns the current system time in timer ticks
func GetTime() uint32 {
	return getSystemTicks()
}

// SetTime sets the current system time (for testing/hardware integration)
func SetTime(ticks uint32) {
	setSystemTicks(ticks)
}

// Elapsed returns the ticks between since and now, correct across wrap.
func Elapsed(since, now uint32) uint32 {
	return now - since
}

// TimerFromUS converts microseconds to timer ticks
func TimerFromUS(us uint32) uint32 {
	return uint32((uint64(us) * TimerFreq) / 1000000)
}

// TimerToUS converts timer ticks to microseconds
func TimerToUS(ticks uint32) uint32 {
	return uint32((uint64(ticks) * 1000000) / TimerFreq)
}

// TimerInit records the boot time. Call once the target clock is running.
func TimerInit() {
	bootTime = GetTime()
}

// Uptime returns ticks since TimerInit.
func Uptime() uint32 {
	return Elapsed(bootTime, GetTime())
}

// ProcessTimers runs every scheduled timer that is due. It is called from
// the target's alarm interrupt and, as a fallback, from the main loop.
func ProcessTimers() {
	state := disableInterrupts()
	currentTime = GetTime()
	dispatch()
	restoreInterrupts(state)
}
