// Package core implements an interrupt-driven master driver for the
// ATmega4809 TWI peripheral.
//
// A Bus is built once at startup around a Registers implementation and
// its HandleInterrupt method is attached to the TWIM vector. Transactions
// are composed and triggered from the foreground, which then waits until
// the event handler publishes a terminal Result.
package core

import (
	"bytes"
	"encoding/binary"
	"sync/atomic"
)

// Bus is the handle for one TWI master peripheral.
//
// Ownership of the transaction fields (address, sendStop, buf) passes to
// the event handler when the address register is written and returns to
// the foreground once result is terminal. armed marks that interval; the
// handler acknowledges and ignores events outside it. Foreground code that
// races the handler (trigger, timeout abort, trace access) runs with the
// TWIM interrupt masked.
type Bus struct {
	regs Registers
	cfg  Config

	began     bool
	frequency uint32

	address  uint8 // 7-bit address << 1 | direction
	sendStop bool
	buf      txBuffer
	result   uint32 // atomic Result
	armed    uint32 // atomic, 1 while the handler owns the transaction

	irq   irqMask
	trace traceRing
}

// New creates the bus handle. Call it once per peripheral.
func New(regs Registers, cfg Config) *Bus {
	applyDefaults(&cfg)
	return &Bus{
		regs: regs,
		cfg:  cfg,
	}
}

// Start enables the peripheral at frequencyHz.
// It fails without touching the hardware if the bus is already started.
func (b *Bus) Start(frequencyHz uint32) Result {
	if b.began {
		return ResultFail
	}

	b.began = true
	b.SetFrequency(frequencyHz)
	b.cfg.Router.RouteTWI(true)

	ctrl := CtrlEnable
	if !b.cfg.Polled {
		ctrl |= CtrlReadIntEnable | CtrlWriteIntEnable
	}
	b.regs.Set(RegMasterControlA, ctrl)
	b.regs.Set(RegMasterStatus, uint8(BusIdle))
	return ResultOk
}

// Stop disables the peripheral. It fails if the bus is not started.
func (b *Bus) Stop() Result {
	if !b.began {
		return ResultFail
	}

	state := b.irq.disable()
	defer b.irq.restore(state)

	b.began = false
	atomic.StoreUint32(&b.armed, 0)
	b.cfg.Router.RouteTWI(false)
	b.regs.Set(RegMasterControlA, 0)
	b.regs.Set(RegMasterStatus, uint8(BusIdle))
	return ResultOk
}

// SetFrequency reprograms the baud generator.
// Do not call it while a transaction is in flight.
func (b *Bus) SetFrequency(frequencyHz uint32) {
	b.frequency = frequencyHz
	b.regs.Set(RegMasterBaud, ComputeDivisor(b.cfg.PeripheralClockHz, frequencyHz))
}

// Frequency returns the last frequency passed to Start or SetFrequency.
func (b *Bus) Frequency() uint32 {
	return b.frequency
}

// Started reports whether Start has been called without a matching Stop.
func (b *Bus) Started() bool {
	return b.began
}

// BeginTransmission starts composing a write to the 7-bit address addr.
func (b *Bus) BeginTransmission(addr uint8) {
	atomic.StoreUint32(&b.result, uint32(ResultUnknown))
	b.address = addr << 1
	b.buf.reset(0)
}

// Write stages one byte.
func (b *Bus) Write(v byte) Result {
	return b.buf.push(v)
}

// WriteUint16 stages v least significant byte first.
func (b *Bus) WriteUint16(v uint16) Result {
	return b.buf.pushUint16(v)
}

// WriteUint32 stages v least significant byte first.
func (b *Bus) WriteUint32(v uint32) Result {
	return b.buf.pushUint32(v)
}

// WriteBytes stages p. On overflow the bytes that fit stay staged.
func (b *Bus) WriteBytes(p []byte) Result {
	return b.buf.pushBytes(p)
}

// WriteValue stages the little-endian memory image of a fixed-size value
// (see encoding/binary). Values without a fixed size report ResultFail.
func (b *Bus) WriteValue(v any) Result {
	var p bytes.Buffer
	if err := binary.Write(&p, binary.LittleEndian, v); err != nil {
		return ResultFail
	}
	return b.buf.pushBytes(p.Bytes())
}

// EndTransmission sends the staged bytes and blocks until the transaction
// ends. With sendStop false the bus is kept with a repeated start.
// Calling it again without BeginTransmission resends the same bytes.
func (b *Bus) EndTransmission(sendStop bool) Result {
	if !b.began {
		return ResultFail
	}
	b.sendStop = sendStop
	b.trigger()
	return b.wait()
}

// End is EndTransmission(true).
func (b *Bus) End() Result {
	return b.EndTransmission(true)
}

// RequestFrom reads count bytes from the 7-bit address addr and blocks
// until the transaction ends. It reports ResultBufferOverflow without
// touching the hardware when count exceeds BufferSize. Once the wait
// completes it reports ResultOk; the transaction outcome is LastResult.
func (b *Bus) RequestFrom(addr uint8, count uint8, sendStop bool) Result {
	if count > BufferSize {
		return ResultBufferOverflow
	}
	if !b.began {
		return ResultFail
	}

	b.address = addr<<1 | 1
	b.buf.reset(count)
	b.sendStop = sendStop
	b.trigger()
	b.wait()
	return ResultOk
}

// Request is RequestFrom(addr, count, true).
func (b *Bus) Request(addr uint8, count uint8) Result {
	return b.RequestFrom(addr, count, true)
}

// Available returns the number of received bytes not yet read.
func (b *Bus) Available() int {
	if !b.reading() || !b.LastResult().Terminal() {
		return 0
	}
	return b.buf.available()
}

// Read returns the next received byte, or 0 if none is available.
func (b *Bus) Read() byte {
	if b.Available() == 0 {
		return 0
	}
	return b.buf.next()
}

// LastResult returns the result of the most recent transaction. Start and
// Stop leave it unchanged.
func (b *Bus) LastResult() Result {
	return Result(atomic.LoadUint32(&b.result))
}

// InFlight reports whether a triggered transaction has not yet ended.
func (b *Bus) InFlight() bool {
	return atomic.LoadUint32(&b.armed) != 0
}

// BusState decodes the bus state reported by the peripheral.
func (b *Bus) BusState() BusState {
	return BusState(b.regs.Get(RegMasterStatus) & StatusBusStateMsk)
}

// Trace returns the recorded event handler invocations, oldest first.
func (b *Bus) Trace() []TraceEvent {
	state := b.irq.disable()
	defer b.irq.restore(state)
	return b.trace.snapshot()
}

// DumpTrace writes the event trace through the debug writer.
func (b *Bus) DumpTrace() {
	dumpTrace(b.Trace())
}

// ClearTrace empties the event trace.
func (b *Bus) ClearTrace() {
	state := b.irq.disable()
	defer b.irq.restore(state)
	b.trace.clear()
}

func (b *Bus) reading() bool {
	return b.address&1 != 0
}

// trigger hands the transaction to the event handler. Writing MADDR
// starts the bus transaction, so everything the handler reads must be in
// place before it.
func (b *Bus) trigger() {
	state := b.irq.disable()
	defer b.irq.restore(state)

	b.buf.progress = 0
	b.buf.cursor = 0
	atomic.StoreUint32(&b.result, uint32(ResultUnknown))
	atomic.StoreUint32(&b.armed, 1)
	b.regs.Set(RegMasterAddress, b.address)
}

// release drops a bus held by a repeated start.
func (b *Bus) release() {
	if b.began && !b.sendStop {
		b.regs.Set(RegMasterControlB, CmdStop)
	}
}
