// Package serial opens the USB CDC port of a coil driver.
package serial

import (
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/tarm/serial"
)

// Port is an open link to the device. Tests substitute in-memory ports.
type Port interface {
	io.ReadWriteCloser

	// Flush discards data received but not yet read
	Flush() error
}

// Config holds serial port configuration
type Config struct {
	Device      string // e.g. "/dev/ttyACM0", "COM3"
	Baud        int    // Ignored by USB CDC but required by the OS
	ReadTimeout int    // Milliseconds; 0 blocks
}

// DefaultConfig returns the configuration for a coil driver on device
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        115200,
		ReadTimeout: 50,
	}
}

// Validate rejects configurations the OS would fail on less clearly
func (c *Config) Validate() error {
	if c == nil {
		return errors.New("serial config cannot be nil")
	}
	if c.Device == "" {
		return errors.New("serial device not set")
	}
	if c.Baud <= 0 {
		return fmt.Errorf("invalid baud rate %d", c.Baud)
	}
	if c.ReadTimeout < 0 {
		return fmt.Errorf("invalid read timeout %dms", c.ReadTimeout)
	}
	return nil
}

// Open opens the device with tarm/serial
func Open(cfg *Config) (Port, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	port, err := serial.OpenPort(&serial.Config{
		Name:        cfg.Device,
		Baud:        cfg.Baud,
		ReadTimeout: time.Duration(cfg.ReadTimeout) * time.Millisecond,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open serial port %s: %w", cfg.Device, err)
	}
	return port, nil
}
