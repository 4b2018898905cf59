//go:build rp2040

package main

import (
	"device/rp"
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"goesc/core"
)

// RP2040 Timer peripheral memory map
const (
	timerBase     = 0x40054000
	timerALARM1   = timerBase + 0x14
	timerTIMERAWL = timerBase + 0x28 // Raw timer low word
	timerINTR     = timerBase + 0x34
	timerINTE     = timerBase + 0x38
	timerINTF     = timerBase + 0x3C

	// ALARM0 belongs to the TinyGo runtime's sleep.
	swapAlarm = 1
)

var (
	timerRAWL   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerTIMERAWL)))
	alarmReg    = (*volatile.Register32)(unsafe.Pointer(uintptr(timerALARM1)))
	timerIntr   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTR)))
	timerInte   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTE)))
	timerIntf   = (*volatile.Register32)(unsafe.Pointer(uintptr(timerINTF)))
	alarmEnable = uint32(1 << swapAlarm)
)

// InitClock seeds the core clock. The RP2040 timer is a free-running 1MHz
// counter, which matches core.TimerFreq.
func InitClock() {
	UpdateSystemTime()
}

// GetHardwareTime returns the low 32 bits of the microsecond counter.
func GetHardwareTime() uint32 {
	return timerRAWL.Get()
}

// UpdateSystemTime copies the hardware counter into core. Called from the
// main loop and at the top of the sampling and alarm interrupts.
func UpdateSystemTime() {
	core.SetTime(GetHardwareTime())
}

// InitTimerAlarm routes the core timer list to ALARM1 so commutation swaps
// fire from interrupt context at their scheduled time.
func InitTimerAlarm() {
	timerIntr.Set(alarmEnable)
	timerInte.SetBits(alarmEnable)

	intr := interrupt.New(rp.IRQ_TIMER_IRQ_1, alarmIRQ)
	intr.SetPriority(0x00)
	intr.Enable()

	core.SetTimerAlarm(armAlarm)
}

// armAlarm compares only the low 32 bits. A wake time already in the past
// would not match until the counter wraps, so it forces the interrupt.
func armAlarm(wake uint32) {
	alarmReg.Set(wake)
	if int32(wake-GetHardwareTime()) <= 0 {
		timerIntf.SetBits(alarmEnable)
	}
}

func alarmIRQ(interrupt.Interrupt) {
	timerIntf.ClearBits(alarmEnable)
	timerIntr.Set(alarmEnable)

	UpdateSystemTime()
	core.ProcessTimers()
}
