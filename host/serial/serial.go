// Package serial opens the USART link to bridge firmware.
package serial

import (
	"io"
	"time"
)

// Port is an open serial link.
type Port interface {
	io.ReadWriteCloser

	// Flush discards unread input left over from a previous session.
	Flush() error
}

// Config holds serial port configuration.
type Config struct {
	// Device path, e.g. /dev/ttyUSB0 or COM3.
	Device string

	// Baud rate. The firmware runs its USART at DefaultBaud.
	Baud int

	// ReadTimeout bounds a single read. Zero blocks.
	ReadTimeout time.Duration
}

// DefaultBaud matches the bridge firmware.
const DefaultBaud = 115200

// DefaultConfig returns the configuration the bridge firmware expects.
func DefaultConfig(device string) *Config {
	return &Config{
		Device:      device,
		Baud:        DefaultBaud,
		ReadTimeout: 100 * time.Millisecond,
	}
}
