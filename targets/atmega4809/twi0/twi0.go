//go:build tinygo && atmega4809

// Package twi0 binds core.Bus to the TWI0 peripheral of the ATmega4809.
package twi0

import (
	"runtime/interrupt"
	"runtime/volatile"
	"unsafe"

	"megatwi/core"
)

// IRQ is the TWI0 master interrupt vector (TWI0_TWIM).
const IRQ = 15

// routeMask selects the alternate SDA/SCL position in TWISPIROUTEA.
const routeMask = 0x03

var portmux = (*volatile.Register8)(unsafe.Pointer(uintptr(core.PortmuxRoute)))

func register(r core.Register) *volatile.Register8 {
	return (*volatile.Register8)(unsafe.Pointer(uintptr(core.TWI0Base) + uintptr(r)))
}

// Registers is the memory-mapped TWI0 master register file.
type Registers struct{}

func (Registers) Get(r core.Register) uint8 {
	return register(r).Get()
}

func (Registers) Set(r core.Register, v uint8) {
	register(r).Set(v)
}

// Router switches TWI0 onto its alternate pins through PORTMUX.
type Router struct{}

func (Router) RouteTWI(enable bool) {
	if enable {
		portmux.SetBits(routeMask)
	} else {
		portmux.ClearBits(routeMask)
	}
}

var bus *core.Bus

// Bus returns the TWI0 bus. The first call creates it and, unless cfg
// selects polled mode, attaches the master interrupt vector. Later calls
// ignore cfg.
func Bus(cfg core.Config) *core.Bus {
	if bus != nil {
		return bus
	}
	if cfg.Router == nil {
		cfg.Router = Router{}
	}
	bus = core.New(Registers{}, cfg)
	if !cfg.Polled {
		intr := interrupt.New(IRQ, handleTWIM)
		intr.Enable()
	}
	return bus
}

func handleTWIM(interrupt.Interrupt) {
	bus.HandleInterrupt()
}
