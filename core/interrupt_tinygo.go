//go:build tinygo

package core

import "runtime/interrupt"

// irqMask gates the TWIM vector through the global interrupt enable.
type irqMask struct{}

// disable disables interrupts and returns the previous state
func (irqMask) disable() interrupt.State {
	return interrupt.Disable()
}

// restore restores the interrupt state
func (irqMask) restore(state interrupt.State) {
	interrupt.Restore(state)
}

// enter is empty on hardware: the vector already runs with interrupts off
func (irqMask) enter() {}

func (irqMask) exit() {}

// relax is empty on hardware: the TWIM vector preempts the spin
func relax() {}
