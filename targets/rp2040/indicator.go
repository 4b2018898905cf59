//go:build rp2040

package main

import (
	"image/color"
	"machine"

	"tinygo.org/x/drivers/ws2812"

	"goesc/config"
	"goesc/core"
)

// pinIndicator is a plain GPIO output.
type pinIndicator struct {
	pin machine.Pin
	on  bool
}

func newPinIndicator(pin machine.Pin) *pinIndicator {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	pin.Low()
	return &pinIndicator{pin: pin}
}

func (p *pinIndicator) On()     { p.set(true) }
func (p *pinIndicator) Off()    { p.set(false) }
func (p *pinIndicator) Toggle() { p.set(!p.on) }

func (p *pinIndicator) set(on bool) {
	p.on = on
	p.pin.Set(on)
}

// pixelIndicator renders on/off on a single WS2812 in one color.
type pixelIndicator struct {
	dev   ws2812.Device
	color color.RGBA
	on    bool
	buf   [1]color.RGBA
}

func newPixelIndicator(pin machine.Pin, c color.RGBA) *pixelIndicator {
	pin.Configure(machine.PinConfig{Mode: machine.PinOutput})
	p := &pixelIndicator{dev: ws2812.New(pin), color: c}
	p.Off()
	return p
}

func (p *pixelIndicator) On()     { p.set(true) }
func (p *pixelIndicator) Off()    { p.set(false) }
func (p *pixelIndicator) Toggle() { p.set(!p.on) }

func (p *pixelIndicator) set(on bool) {
	p.on = on
	p.buf[0] = color.RGBA{}
	if on {
		p.buf[0] = p.color
	}
	p.dev.WriteColors(p.buf[:])
}

var (
	colorFault  = color.RGBA{R: 0x40}
	colorStatus = color.RGBA{G: 0x20}
)

// fanout drives several indicators as one.
type fanout []core.Indicator

func (f fanout) On() {
	for _, i := range f {
		i.On()
	}
}

func (f fanout) Off() {
	for _, i := range f {
		i.Off()
	}
}

func (f fanout) Toggle() {
	for _, i := range f {
		i.Toggle()
	}
}

// boardIndicators builds the error, status and debug outputs from the
// board pins. A NeoPixel mirrors the error and status LEDs in color.
func boardIndicators(board *config.BoardConfig) (errLED, status, debug core.Indicator) {
	var pixel *pixelIndicator
	if n, err := config.ParsePin(board.Pins.NeoPixel); err == nil && board.Pins.NeoPixel != "" {
		pixel = newPixelIndicator(machine.Pin(n), colorFault)
	}

	errs := fanout{}
	if n, err := config.ParsePin(board.Pins.ErrorLED); err == nil {
		errs = append(errs, newPinIndicator(machine.Pin(n)))
	}
	if pixel != nil {
		errs = append(errs, pixel)
	}

	stat := fanout{}
	if n, err := config.ParsePin(board.Pins.StatusLED); err == nil && board.Pins.StatusLED != "" {
		stat = append(stat, newPinIndicator(machine.Pin(n)))
	}

	dbg := fanout{}
	if n, err := config.ParsePin(board.Pins.DebugPin); err == nil && board.Pins.DebugPin != "" {
		dbg = append(dbg, newPinIndicator(machine.Pin(n)))
	}
	return errs, stat, dbg
}

// showRunning switches the NeoPixel to the status color once the self-test
// has passed.
func showRunning(errLED core.Indicator) {
	if f, ok := errLED.(fanout); ok {
		for _, i := range f {
			if p, ok := i.(*pixelIndicator); ok {
				p.color = colorStatus
				p.On()
			}
		}
	}
}
