//go:build !tinygo

package core

import (
	"errors"

	"periph.io/x/conn/v3/i2c"
	"periph.io/x/conn/v3/physic"
)

// PeriphBus exposes a Bus as a periph.io i2c.Bus so periph device
// drivers (i2c.Dev, devices/...) can run on top of it.
type PeriphBus struct {
	bus  *Bus
	name string
}

var _ i2c.BusCloser = (*PeriphBus)(nil)

// NewPeriphBus wraps b. name is returned by String.
func NewPeriphBus(b *Bus, name string) *PeriphBus {
	if name == "" {
		name = "TWI0"
	}
	return &PeriphBus{bus: b, name: name}
}

func (p *PeriphBus) String() string {
	return p.name
}

// Tx implements i2c.Bus.
func (p *PeriphBus) Tx(addr uint16, w, r []byte) error {
	return p.bus.Tx(addr, w, r)
}

// SetSpeed reprograms the baud generator. Frequencies other than the
// preset profiles use the standard-mode rise time.
func (p *PeriphBus) SetSpeed(f physic.Frequency) error {
	if f < physic.Hertz {
		return errors.New("twi: invalid bus speed " + f.String())
	}
	p.bus.SetFrequency(uint32(f / physic.Hertz))
	return nil
}

// Close stops the peripheral.
func (p *PeriphBus) Close() error {
	return p.bus.Stop().Err()
}
