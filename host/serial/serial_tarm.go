package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

var ErrNilConfig = errors.New("serial: config cannot be nil")

// tarmPort wraps github.com/tarm/serial. A read timeout surfaces as a zero
// length read rather than io.EOF.
type tarmPort struct {
	port *serial.Port
	cfg  *Config
}

// Open opens a native serial port
func Open(cfg *Config) (Port, error) {
	if cfg == nil {
		return nil, ErrNilConfig
	}

	serialConfig := &serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	}

	port, err := serial.OpenPort(serialConfig)
	if err != nil {
		return nil, fmt.Errorf("open serial port %s: %w", cfg.Device, err)
	}

	return &tarmPort{port: port, cfg: cfg}, nil
}

func (p *tarmPort) Read(b []byte) (int, error) {
	n, err := p.port.Read(b)
	if err == io.EOF && p.cfg.ReadTimeout > 0 {
		return n, nil
	}
	return n, err
}

func (p *tarmPort) Write(b []byte) (int, error) {
	return p.port.Write(b)
}

func (p *tarmPort) Close() error {
	if p.port != nil {
		return p.port.Close()
	}
	return nil
}

func (p *tarmPort) Flush() error {
	return p.port.Flush()
}
