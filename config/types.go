package config

// PinConfig names the board pins as "gpioN". Optional outputs may be empty.
type PinConfig struct {
	GateAHigh string `json:"gate_a_high"`
	GateALow  string `json:"gate_a_low"`
	GateBHigh string `json:"gate_b_high"`
	GateBLow  string `json:"gate_b_low"`
	GateCHigh string `json:"gate_c_high"`
	GateCLow  string `json:"gate_c_low"`

	Receiver  string `json:"receiver"`   // PWM receiver input
	StatusLED string `json:"status_led"` // optional
	ErrorLED  string `json:"error_led"`  // blink-code output
	DebugPin  string `json:"debug_pin"`  // toggled on every detection, optional
	NeoPixel  string `json:"neopixel"`   // WS2812 status pixel, optional
}

// ZCDConfig tunes the zero-crossing detector.
type ZCDConfig struct {
	FilterLength  int      `json:"filter_length"`
	BlankingUS    *uint32  `json:"blanking_us"` // nil selects the default; 0 disables blanking
	LowThreshold  int32    `json:"low_threshold"`
	HighThreshold int32    `json:"high_threshold"`
	Trace         []string `json:"trace"` // any of "adc", "diff", "zcd", "all"
}

// SelfTestConfig bounds the gate self-test readings in raw ADC units.
type SelfTestConfig struct {
	LowMax  int16 `json:"low_max"`
	HighMin int16 `json:"high_min"`
	Skip    bool  `json:"skip"` // bench supplies without a motor only
}

// StartupConfig tunes alignment, the open-loop ramp and stall recovery.
// Times are microseconds, duties 0..1.
type StartupConfig struct {
	AlignDuty     float32 `json:"align_duty"`
	AlignUS       uint32  `json:"align_us"`
	RampDuty      float32 `json:"ramp_duty"`
	RampStartUS   uint32  `json:"ramp_start_us"`
	RampEndUS     uint32  `json:"ramp_end_us"`
	RampShift     uint8   `json:"ramp_shift"`
	RampTimeoutUS uint32  `json:"ramp_timeout_us"`
	LockCount     uint32  `json:"lock_count"`
	StallPeriods  uint32  `json:"stall_periods"`
	RetryUS       uint32  `json:"retry_us"`
	MinDuty       float32 `json:"min_duty"`
	MaxDuty       float32 `json:"max_duty"`
}

// BoardConfig is the complete board description. The ADC round-robin order
// is fixed: current on ADC0, phases A, B and C on ADC1..ADC3.
type BoardConfig struct {
	Name              string         `json:"name"`
	Pins              PinConfig      `json:"pins"`
	PWMFrequency      uint32         `json:"pwm_frequency"` // Hz
	ReceiverChannel   uint8          `json:"receiver_channel"`
	TelemetryPeriodMS uint32         `json:"telemetry_period_ms"` // 0 disables status frames
	Debug             bool           `json:"debug"`               // debug text on UART0
	ZCD               ZCDConfig      `json:"zcd"`
	SelfTest          SelfTestConfig `json:"self_test"`
	Startup           StartupConfig  `json:"startup"`
}
