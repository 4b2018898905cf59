//go:build rp2040

package main

import (
	_ "embed"
	"errors"
	"machine"

	"goesc/commutation"
	"goesc/config"
	"goesc/core"
)

//go:embed esc.json
var boardJSON []byte

// maxFrameRate is the ADC limit: 500k conversions/s over four inputs.
const maxFrameRate = 125000

func main() {
	// Clear any watchdog state left by a previous reset
	if err := machine.Watchdog.Configure(machine.WatchdogConfig{TimeoutMillis: 0}); err != nil {
		return
	}

	InitUSB()
	InitClock()
	core.TimerInit()
	InitTimerAlarm()

	board, cfgErr := config.LoadConfig(boardJSON)
	if cfgErr != nil {
		board = config.DefaultConfig()
	}
	initDebug(board.Debug)
	if cfgErr != nil {
		core.DebugPrintln("[BOOT] config rejected, using defaults: " + cfgErr.Error())
	}

	errLED, status, debugPin := boardIndicators(board)

	inv, err := newPWMInverter(board)
	if err != nil {
		core.DebugPrintln("[BOOT] inverter: " + err.Error())
		core.Panic(inv, errLED, core.FaultCodeInit)
	}

	ctrl, seq, err := commutation.Init(board.CommutationConfig(), inv)
	if err != nil {
		core.DebugPrintln("[BOOT] commutation: " + err.Error())
		core.Panic(inv, errLED, core.FaultCodeInit)
	}

	coreCfg, err := board.CoreConfig()
	if err != nil {
		core.Panic(inv, errLED, core.FaultCodeInit)
	}
	isr, err := core.NewSamplingISR(coreCfg, &sampler, ctrl, seq)
	if err != nil {
		core.DebugPrintln("[BOOT] sampling: " + err.Error())
		core.Panic(inv, errLED, core.FaultCodeInit)
	}
	isr.SetDebugPin(debugPin)

	var ring *core.TraceRing
	if coreCfg.TraceMask != 0 {
		ring = &core.TraceRing{}
		isr.SetTraceSink(ring)
	}

	rxPin, err := board.ReceiverPin()
	if err != nil {
		core.DebugPrintln("[BOOT] receiver pin: " + err.Error())
		core.Panic(inv, errLED, core.FaultCodeInit)
	}
	rx, err := newPIOReceiver(machine.Pin(rxPin))
	if err != nil {
		core.DebugPrintln("[BOOT] receiver: " + err.Error())
		core.Panic(inv, errLED, core.FaultCodeInit)
	}

	link := newUSBLink()
	loop := core.NewControlLoop(rx, board.ReceiverChannel, ctrl, seq)
	loop.SetTelemetry(isr, link, board.TelemetryPeriodTicks())
	loop.SetTraceRing(ring)

	sampler.InitADC()
	if !board.SelfTest.Skip {
		st := core.NewSelfTest(inv, &sampler, board.SelfTestLimits())
		result, err := st.Run()
		if err != nil {
			code := core.FaultCodeADC
			var ste *core.SelfTestError
			if errors.As(err, &ste) {
				code = ste.Code
			}
			seq.Fault()
			loop.ReportFault(code, err.Error())
			core.Panic(inv, errLED, code)
		}
		isr.SetZeroCurrent(result.ZeroCurrent)
	}
	showRunning(errLED)
	status.On()

	rate := board.PWMFrequency
	if rate > maxFrameRate {
		rate = maxFrameRate
	}
	sampler.Start(rate, isr)
	core.DebugPrintln("[BOOT] running")

	for {
		UpdateSystemTime()
		for _, f := range link.Poll() {
			if err := loop.HandleFrame(f); err != nil {
				core.DebugPrintln("[CMD] " + err.Error())
			}
		}
		loop.Step()
	}
}
