package core

import (
	"sync/atomic"
	"time"
)

// wait blocks until the event handler publishes a terminal result or the
// configured timeout expires.
func (b *Bus) wait() Result {
	var deadline time.Time
	if b.cfg.Timeout > 0 {
		deadline = time.Now().Add(b.cfg.Timeout)
	}

	for {
		if r := b.LastResult(); r.Terminal() {
			if r != ResultOk && debugEnabled {
				DebugPrintln("[TWI] addr=0x" + hex8(b.address>>1) + " " + r.String())
			}
			return r
		}

		if b.cfg.Polled {
			b.poll()
		} else {
			relax()
		}

		if !deadline.IsZero() && time.Now().After(deadline) {
			return b.abort()
		}
	}
}

// poll runs the event handler when the peripheral has raised a cause.
func (b *Bus) poll() {
	b.irq.enter()
	defer b.irq.exit()
	if status := b.regs.Get(RegMasterStatus); status&statusCauses != 0 {
		b.handle(status)
	}
}

// abort takes the transaction back from the event handler after a
// timeout and resets the master. It runs with the TWIM interrupt masked,
// so a handler invocation either completes before it, in which case its
// result wins, or finds the bus disarmed afterwards.
func (b *Bus) abort() Result {
	state := b.irq.disable()
	defer b.irq.restore(state)

	if !atomic.CompareAndSwapUint32(&b.result, uint32(ResultUnknown), uint32(ResultTimeout)) {
		return b.LastResult()
	}
	atomic.StoreUint32(&b.armed, 0)

	b.regs.Set(RegMasterControlB, CmdFlush)
	b.regs.Set(RegMasterStatus, statusCauses|uint8(BusIdle))
	b.trace.record(0, CmdFlush, b.buf.progress, ResultTimeout)
	if debugEnabled {
		DebugPrintln("[TWI] addr=0x" + hex8(b.address>>1) + " timeout")
	}
	return ResultTimeout
}
