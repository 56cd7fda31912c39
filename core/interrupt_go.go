//go:build !tinygo

package core

import (
	"runtime"
	"sync"
)

// State is a placeholder for interrupt state on regular Go
type State uintptr

// irqMask stands in for the global interrupt enable on regular Go. The
// simulator delivers interrupts on its own goroutine, so the handler and
// foreground critical sections exclude each other through this lock.
type irqMask struct {
	mu sync.Mutex
}

// disable enters a foreground critical section
func (m *irqMask) disable() State {
	m.mu.Lock()
	return 0
}

// restore leaves a foreground critical section
func (m *irqMask) restore(state State) {
	m.mu.Unlock()
}

// enter is called on entry to the event handler
func (m *irqMask) enter() {
	m.mu.Lock()
}

// exit is called on return from the event handler
func (m *irqMask) exit() {
	m.mu.Unlock()
}

// relax yields while spinning so the simulated interrupt goroutine runs
func relax() {
	runtime.Gosched()
}
