// Package serial opens the ESC's USB CDC telemetry port.
package serial

import (
	"io"
)

// Port is the byte stream to the ESC. Tests substitute an in-memory pipe.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input.
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	// Device path (e.g., "/dev/ttyACM0", "COM3")
	Device string

	// Baud rate; USB CDC ignores it, UART bridges do not
	Baud int

	// Read timeout in milliseconds (0 = blocking)
	ReadTimeout int
}

// DefaultConfig returns the settings for the ESC's USB port
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 100,
	}
}
