package core

// Indicator is a single on/off status output (LED or debug pin).
type Indicator interface {
	On()
	Off()
	Toggle()
}

// Receiver decodes the pilot's throttle input.
type Receiver interface {
	// Read returns the latest raw pulse width for a channel, in microseconds.
	Read(channel uint8) uint16
}

// nopIndicator is used when a target does not wire an output.
type nopIndicator struct{}

func (nopIndicator) On()     {}
func (nopIndicator) Off()    {}
func (nopIndicator) Toggle() {}
