package core

// Timer represents a scheduled event
type Timer struct {
	WakeTime uint32
	Handler  func(*Timer) uint8
	Next     *Timer
}

const (
	SF_DONE       = 0
	SF_RESCHEDULE = 1
)

var (
	timerList   *Timer
	currentTime uint32

	timerAlarm AlarmFunc = func(uint32) {}
)

// AlarmFunc arms a hardware compare interrupt at wake. The interrupt
// handler refreshes the clock and calls ProcessTimers. Arming a new wake
// time replaces the previous one; an alarm that fires with nothing due is
// harmless.
type AlarmFunc func(wake uint32)

// SetTimerAlarm installs the target's compare interrupt. Without one, timers
// only run when the main loop calls ProcessTimers.
func SetTimerAlarm(fn AlarmFunc) {
	if fn == nil {
		fn = func(uint32) {}
	}
	state := disableInterrupts()
	timerAlarm = fn
	rearm()
	restoreInterrupts(state)
}

// rearm points the alarm at the head of the list. Interrupts must be masked.
func rearm() {
	if timerList != nil {
		timerAlarm(timerList.WakeTime)
	}
}

// ScheduleTimer adds a timer to the schedule. Safe to call from the
// sampling interrupt. A timer that is already queued is moved.
func ScheduleTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	removeTimer(t)
	insertTimer(t)
	if timerList == t {
		rearm()
	}
}

// CancelTimer removes a timer from the schedule if it is queued.
func CancelTimer(t *Timer) {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	removeTimer(t)
}

// insertTimer inserts a timer in wake order. Comparisons are made relative to
// currentTime so the order survives counter wrap.
func insertTimer(t *Timer) {
	due := t.WakeTime - currentTime
	if timerList == nil || int32(due) < int32(timerList.WakeTime-currentTime) {
		t.Next = timerList
		timerList = t
		return
	}

	cur := timerList
	for cur.Next != nil && int32(cur.Next.WakeTime-currentTime) <= int32(due) {
		cur = cur.Next
	}
	t.Next = cur.Next
	cur.Next = t
}

func removeTimer(t *Timer) {
	if timerList == t {
		timerList = t.Next
		t.Next = nil
		return
	}
	for cur := timerList; cur != nil; cur = cur.Next {
		if cur.Next == t {
			cur.Next = t.Next
			t.Next = nil
			return
		}
	}
	t.Next = nil
}

// TimerDispatch runs handlers whose wake time has passed, then re-arms the
// alarm for the next one.
func TimerDispatch() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	dispatch()
}

func dispatch() {
	for timerList != nil && int32(timerList.WakeTime-currentTime) <= 0 {
		timer := timerList
		timerList = timer.Next
		timer.Next = nil

		if timer.Handler(timer) == SF_RESCHEDULE {
			insertTimer(timer)
		}
	}
	rearm()
}

// ResetTimers drops every scheduled timer.
func ResetTimers() {
	state := disableInterrupts()
	defer restoreInterrupts(state)

	for timerList != nil {
		t := timerList
		timerList = t.Next
		t.Next = nil
	}
}
