package core

import "sync/atomic"

// HandleInterrupt runs the transaction state machine for one TWIM
// interrupt. Target code attaches it to the interrupt vector; it must not
// be reentered. Events raised while no transaction is in flight are
// acknowledged and dropped.
//
// Error causes are checked before the read/write dispatch, bus error
// first. A snapshot that carries BUSERR and ARBLOST together reports
// ResultBusError, and a write-complete raised alongside an error bit
// resolves to the error.
func (b *Bus) HandleInterrupt() {
	b.irq.enter()
	defer b.irq.exit()
	b.handle(b.regs.Get(RegMasterStatus))
}

func (b *Bus) handle(status uint8) {
	if !b.InFlight() || b.LastResult().Terminal() {
		// Nothing in flight: acknowledge so a level interrupt does not storm.
		b.regs.Set(RegMasterStatus, status&statusCauses)
		return
	}

	switch {
	case status&StatusBusError != 0:
		b.regs.Set(RegMasterStatus, status&statusCauses)
		b.finish(status, CmdNoAction, ResultBusError)
	case status&StatusArbLost != 0:
		b.regs.Set(RegMasterStatus, status&statusCauses)
		b.finish(status, CmdNoAction, ResultArbitrationLost)
	default:
		switch status & statusCauses {
		case StatusWriteInt:
			b.handleWrite(status)
		case StatusReadInt:
			b.handleRead(status)
		default:
			b.regs.Set(RegMasterStatus, status&statusCauses)
			b.finish(status, CmdNoAction, ResultFail)
		}
	}
}

func (b *Bus) handleWrite(status uint8) {
	if status&StatusRxNack != 0 {
		b.finish(status, b.end(0), ResultNackReceived)
		return
	}

	// A read only raises WIF when the address is NACKed.
	if b.reading() {
		b.regs.Set(RegMasterStatus, status&statusCauses)
		b.finish(status, CmdNoAction, ResultFail)
		return
	}

	if b.buf.pending() {
		b.regs.Set(RegMasterData, b.buf.shift())
		b.trace.record(status, CmdNoAction, b.buf.progress, ResultUnknown)
		return
	}

	b.finish(status, b.end(0), ResultOk)
}

func (b *Bus) handleRead(status uint8) {
	if b.buf.full() {
		b.buf.progress = 0
		b.buf.cursor = 0
		b.finish(status, b.end(CmdAckActionNack), ResultBufferOverflow)
		return
	}

	b.buf.store(b.regs.Get(RegMasterData))

	if !b.buf.full() {
		b.regs.Set(RegMasterControlB, CmdReceive)
		b.trace.record(status, CmdReceive, b.buf.progress, ResultUnknown)
		return
	}

	b.finish(status, b.end(CmdAckActionNack), ResultOk)
}

// end issues STOP or REPSTART, with flags, and returns the command written.
func (b *Bus) end(flags uint8) uint8 {
	cmd := flags | CmdRepeatedStart
	if b.sendStop {
		cmd = flags | CmdStop
	}
	b.regs.Set(RegMasterControlB, cmd)
	return cmd
}

// finish publishes the terminal result. Ownership of the transaction goes
// back to the foreground with the store, so it must come last. A result
// already published by a timeout is kept.
func (b *Bus) finish(status, cmd uint8, r Result) {
	b.trace.record(status, cmd, b.buf.progress, r)
	atomic.StoreUint32(&b.armed, 0)
	atomic.CompareAndSwapUint32(&b.result, uint32(ResultUnknown), uint32(r))
}
