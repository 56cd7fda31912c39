package core

import (
	"testing"
	"time"
)

type regWrite struct {
	reg   Register
	value uint8
}

// fakeRegs records writes and never raises an interrupt on its own.
type fakeRegs struct {
	vals   map[Register]uint8
	writes []regWrite
}

func newFakeRegs() *fakeRegs {
	return &fakeRegs{vals: make(map[Register]uint8)}
}

func (f *fakeRegs) Get(reg Register) uint8 {
	return f.vals[reg]
}

func (f *fakeRegs) Set(reg Register, value uint8) {
	f.writes = append(f.writes, regWrite{reg, value})
	if reg != RegMasterStatus {
		f.vals[reg] = value
	}
}

func (f *fakeRegs) writesTo(reg Register) []uint8 {
	var out []uint8
	for _, w := range f.writes {
		if w.reg == reg {
			out = append(out, w.value)
		}
	}
	return out
}

type fakeRouter struct {
	calls []bool
}

func (r *fakeRouter) RouteTWI(enable bool) {
	r.calls = append(r.calls, enable)
}

func newStartedBus(t *testing.T) (*Bus, *fakeRegs) {
	t.Helper()
	regs := newFakeRegs()
	b := New(regs, Config{})
	if r := b.Start(FrequencyStandard); r != ResultOk {
		t.Fatalf("Start failed: %v", r)
	}
	regs.writes = nil
	return b, regs
}

func TestStartConfiguresPeripheral(t *testing.T) {
	regs := newFakeRegs()
	router := &fakeRouter{}
	b := New(regs, Config{Router: router})

	if r := b.Start(FrequencyFast); r != ResultOk {
		t.Fatalf("Start returned %v", r)
	}

	if got := regs.vals[RegMasterBaud]; got != 13 {
		t.Errorf("Expected MBAUD 13 for 400kHz, got %d", got)
	}
	if got := regs.vals[RegMasterControlA]; got != CtrlReadIntEnable|CtrlWriteIntEnable|CtrlEnable {
		t.Errorf("Expected MCTRLA 0x%02x, got 0x%02x", CtrlReadIntEnable|CtrlWriteIntEnable|CtrlEnable, got)
	}
	if st := regs.writesTo(RegMasterStatus); len(st) != 1 || st[0] != uint8(BusIdle) {
		t.Errorf("Expected bus state forced idle, got %v", st)
	}
	if len(router.calls) != 1 || !router.calls[0] {
		t.Errorf("Expected pins routed on start, got %v", router.calls)
	}
	if !b.Started() {
		t.Error("Started() = false after Start")
	}
}

func TestStartTwiceFails(t *testing.T) {
	regs := newFakeRegs()
	b := New(regs, Config{})

	if r := b.Start(FrequencyFast); r != ResultOk {
		t.Fatalf("First Start returned %v", r)
	}
	regs.writes = nil

	if r := b.Start(FrequencyStandard); r != ResultFail {
		t.Errorf("Second Start returned %v, want fail", r)
	}
	if len(regs.writes) != 0 {
		t.Errorf("Second Start touched hardware: %v", regs.writes)
	}
	if b.Frequency() != FrequencyFast {
		t.Errorf("Frequency changed to %d", b.Frequency())
	}
	if regs.vals[RegMasterBaud] != 13 {
		t.Errorf("MBAUD changed to %d", regs.vals[RegMasterBaud])
	}
}

func TestStartPolledArmsNoInterrupts(t *testing.T) {
	regs := newFakeRegs()
	b := New(regs, Config{Polled: true})
	b.Start(FrequencyStandard)

	if got := regs.vals[RegMasterControlA]; got != CtrlEnable {
		t.Errorf("Expected MCTRLA 0x01 in polled mode, got 0x%02x", got)
	}
}

func TestStopLifecycle(t *testing.T) {
	regs := newFakeRegs()
	router := &fakeRouter{}
	b := New(regs, Config{Router: router})

	if r := b.Stop(); r != ResultFail {
		t.Errorf("Stop before Start returned %v", r)
	}

	b.Start(FrequencyStandard)
	if r := b.Stop(); r != ResultOk {
		t.Errorf("Stop returned %v", r)
	}
	if regs.vals[RegMasterControlA] != 0 {
		t.Errorf("Expected MCTRLA cleared, got 0x%02x", regs.vals[RegMasterControlA])
	}
	if len(router.calls) != 2 || router.calls[1] {
		t.Errorf("Expected pins released on stop, got %v", router.calls)
	}
	if r := b.Stop(); r != ResultFail {
		t.Errorf("Second Stop returned %v", r)
	}

	// A stopped bus can be started again.
	if r := b.Start(FrequencyStandard); r != ResultOk {
		t.Errorf("Restart returned %v", r)
	}
}

func TestWriteOverflowKeepsStagedBytes(t *testing.T) {
	b, _ := newStartedBus(t)
	b.BeginTransmission(0x50)

	for i := 0; i < BufferSize; i++ {
		if r := b.Write(byte(i)); r != ResultOk {
			t.Fatalf("Write %d returned %v", i, r)
		}
	}
	if r := b.Write(0xFF); r != ResultBufferOverflow {
		t.Errorf("33rd Write returned %v, want buffer overflow", r)
	}

	if b.buf.length != BufferSize {
		t.Fatalf("Expected %d staged bytes, got %d", BufferSize, b.buf.length)
	}
	for i := 0; i < BufferSize; i++ {
		if b.buf.data[i] != byte(i) {
			t.Errorf("Staged byte %d = %d", i, b.buf.data[i])
		}
	}
}

func TestCompositeWritesStopAtOverflow(t *testing.T) {
	b, _ := newStartedBus(t)
	b.BeginTransmission(0x50)

	b.WriteBytes(make([]byte, BufferSize-2))
	if r := b.WriteUint32(0x44332211); r != ResultBufferOverflow {
		t.Errorf("WriteUint32 returned %v, want buffer overflow", r)
	}
	if b.buf.length != BufferSize {
		t.Fatalf("Expected buffer full, got %d", b.buf.length)
	}
	if b.buf.data[BufferSize-2] != 0x11 || b.buf.data[BufferSize-1] != 0x22 {
		t.Errorf("Expected low bytes staged, got %02x %02x", b.buf.data[BufferSize-2], b.buf.data[BufferSize-1])
	}
}

func TestWriteEncodings(t *testing.T) {
	b, _ := newStartedBus(t)
	b.BeginTransmission(0x50)

	b.WriteUint16(0x0201)
	b.WriteUint32(0x06050403)
	if r := b.WriteValue(struct {
		A uint8
		B uint16
	}{0x07, 0x0908}); r != ResultOk {
		t.Fatalf("WriteValue returned %v", r)
	}
	if r := b.WriteValue([]int{1}); r != ResultFail {
		t.Errorf("WriteValue of a slice of int returned %v, want fail", r)
	}

	want := []byte{1, 2, 3, 4, 5, 6, 7, 8, 9}
	got := b.buf.data[:b.buf.length]
	if string(got) != string(want) {
		t.Errorf("Staged %v, want %v", got, want)
	}
}

func TestRequestFromRejectsOversizedCount(t *testing.T) {
	b, regs := newStartedBus(t)

	if r := b.RequestFrom(0x50, BufferSize+1, true); r != ResultBufferOverflow {
		t.Errorf("RequestFrom returned %v, want buffer overflow", r)
	}
	if len(regs.writes) != 0 {
		t.Errorf("Hardware touched: %v", regs.writes)
	}
}

func TestTransactionsRequireStart(t *testing.T) {
	regs := newFakeRegs()
	b := New(regs, Config{})

	b.BeginTransmission(0x50)
	b.Write(1)
	if r := b.End(); r != ResultFail {
		t.Errorf("End on stopped bus returned %v", r)
	}
	if r := b.Request(0x50, 1); r != ResultFail {
		t.Errorf("Request on stopped bus returned %v", r)
	}
	if len(regs.writesTo(RegMasterAddress)) != 0 {
		t.Error("Address register written on stopped bus")
	}
}

func TestEndTransmissionTimeout(t *testing.T) {
	regs := newFakeRegs()
	b := New(regs, Config{Timeout: 5 * time.Millisecond})
	b.Start(FrequencyStandard)

	b.BeginTransmission(0x50)
	b.Write(0xAA)
	if r := b.End(); r != ResultTimeout {
		t.Fatalf("End returned %v, want timeout", r)
	}
	if cmds := regs.writesTo(RegMasterControlB); len(cmds) != 1 || cmds[0] != CmdFlush {
		t.Errorf("Expected a FLUSH command, got %v", cmds)
	}

	// A late interrupt must not revive the aborted transaction.
	regs.vals[RegMasterStatus] = StatusWriteInt
	b.HandleInterrupt()
	if b.LastResult() != ResultTimeout {
		t.Errorf("Late interrupt changed result to %v", b.LastResult())
	}
	if data := regs.writesTo(RegMasterData); len(data) != 0 {
		t.Errorf("Late interrupt pushed data: %v", data)
	}
}

func TestRequestFromTimeoutReportsOk(t *testing.T) {
	regs := newFakeRegs()
	b := New(regs, Config{Timeout: 5 * time.Millisecond})
	b.Start(FrequencyStandard)

	if r := b.Request(0x50, 2); r != ResultOk {
		t.Errorf("Request returned %v, want ok", r)
	}
	if b.LastResult() != ResultTimeout {
		t.Errorf("LastResult = %v, want timeout", b.LastResult())
	}
	if b.Available() != 0 {
		t.Errorf("Available = %d after timeout", b.Available())
	}
}

func TestBusState(t *testing.T) {
	b, regs := newStartedBus(t)
	regs.vals[RegMasterStatus] = StatusClockHold | uint8(BusOwner)
	if s := b.BusState(); s != BusOwner {
		t.Errorf("BusState = %v, want owner", s)
	}
}

func TestSetFrequency(t *testing.T) {
	b, regs := newStartedBus(t)
	b.SetFrequency(FrequencyFastPlus)
	if regs.vals[RegMasterBaud] != 2 {
		t.Errorf("Expected MBAUD 2 for 1MHz, got %d", regs.vals[RegMasterBaud])
	}
	if b.Frequency() != FrequencyFastPlus {
		t.Errorf("Frequency = %d", b.Frequency())
	}
}

func TestStrayEventsWhileIdle(t *testing.T) {
	b, regs := newStartedBus(t)

	regs.vals[RegMasterStatus] = StatusBusError | StatusWriteInt
	b.HandleInterrupt()
	if b.LastResult() != ResultUnknown || b.InFlight() {
		t.Errorf("Stray event after Start: result %v, in flight %v", b.LastResult(), b.InFlight())
	}
	if len(regs.writes) != 1 || regs.writes[0].reg != RegMasterStatus {
		t.Errorf("Expected only a status clear, got %v", regs.writes)
	}

	// Composing a transaction does not arm the handler.
	b.BeginTransmission(0x50)
	b.Write(0xAA)
	regs.vals[RegMasterStatus] = StatusWriteInt
	b.HandleInterrupt()
	if data := regs.writesTo(RegMasterData); len(data) != 0 {
		t.Errorf("Stray event pushed data: %v", data)
	}
	if len(b.Trace()) != 0 {
		t.Errorf("Stray events traced: %+v", b.Trace())
	}
}

func TestStartStopKeepLastResult(t *testing.T) {
	b, regs := newStartedBus(t)
	b.BeginTransmission(0x50)
	b.sendStop = true
	b.trigger()
	b.handle(StatusWriteInt)
	if b.LastResult() != ResultOk {
		t.Fatalf("Result = %v", b.LastResult())
	}

	b.Stop()
	if b.LastResult() != ResultOk {
		t.Errorf("LastResult after Stop = %v", b.LastResult())
	}
	b.Start(FrequencyStandard)
	if b.LastResult() != ResultOk {
		t.Errorf("LastResult after Start = %v", b.LastResult())
	}

	regs.vals[RegMasterStatus] = StatusBusError
	b.HandleInterrupt()
	if b.LastResult() != ResultOk {
		t.Errorf("Stray bus error changed result to %v", b.LastResult())
	}
}
