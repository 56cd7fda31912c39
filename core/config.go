package core

import "time"

// DefaultPeripheralClock is the TWI peripheral clock of an ATmega4809
// running from the 16 MHz internal oscillator without prescaling.
const DefaultPeripheralClock = 16000000

// Config holds the static configuration of a Bus.
type Config struct {
	// PeripheralClockHz is the clock feeding the baud generator.
	PeripheralClockHz uint32

	// Timeout bounds the completion wait. Zero waits forever.
	Timeout time.Duration

	// Polled arms no interrupt sources; the completion wait polls
	// MSTATUS and runs the event handler itself.
	Polled bool

	// Router switches the pins to the peripheral on Start/Stop.
	Router PinRouter
}

// applyDefaults fills in missing configuration values
func applyDefaults(cfg *Config) {
	if cfg.PeripheralClockHz == 0 {
		cfg.PeripheralClockHz = DefaultPeripheralClock
	}
	if cfg.Router == nil {
		cfg.Router = noRouter{}
	}
}
