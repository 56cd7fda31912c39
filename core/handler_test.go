package core

import "testing"

// armWrite stages a write transaction and hands it to the handler
// without waiting, so events can be fed one at a time.
func armWrite(b *Bus, addr uint8, sendStop bool, data ...byte) {
	b.BeginTransmission(addr)
	b.WriteBytes(data)
	b.sendStop = sendStop
	b.trigger()
}

func armRead(b *Bus, addr uint8, count uint8, sendStop bool) {
	b.address = addr<<1 | 1
	b.buf.reset(count)
	b.sendStop = sendStop
	b.trigger()
}

func TestHandlerWriteSequence(t *testing.T) {
	b, regs := newStartedBus(t)
	armWrite(b, 0x50, true, 0xAA, 0x55)

	if got := regs.writesTo(RegMasterAddress); len(got) != 1 || got[0] != 0xA0 {
		t.Fatalf("Expected MADDR 0xA0, got %v", got)
	}

	b.handle(StatusWriteInt)
	b.handle(StatusWriteInt)
	if b.LastResult() != ResultUnknown {
		t.Fatalf("Transaction ended early with %v", b.LastResult())
	}
	b.handle(StatusWriteInt)

	if b.LastResult() != ResultOk {
		t.Errorf("Result = %v, want ok", b.LastResult())
	}
	if data := regs.writesTo(RegMasterData); len(data) != 2 || data[0] != 0xAA || data[1] != 0x55 {
		t.Errorf("Data writes = %v", data)
	}
	if cmds := regs.writesTo(RegMasterControlB); len(cmds) != 1 || cmds[0] != CmdStop {
		t.Errorf("Commands = %v, want [STOP]", cmds)
	}
}

func TestHandlerWriteRepeatedStart(t *testing.T) {
	b, regs := newStartedBus(t)
	armWrite(b, 0x50, false, 0x01)

	b.handle(StatusWriteInt)
	b.handle(StatusWriteInt)

	if b.LastResult() != ResultOk {
		t.Errorf("Result = %v", b.LastResult())
	}
	if cmds := regs.writesTo(RegMasterControlB); len(cmds) != 1 || cmds[0] != CmdRepeatedStart {
		t.Errorf("Commands = %v, want [REPSTART]", cmds)
	}
}

func TestHandlerNack(t *testing.T) {
	testCases := []struct {
		name     string
		sendStop bool
		command  uint8
	}{
		{"stop", true, CmdStop},
		{"repeated start", false, CmdRepeatedStart},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, regs := newStartedBus(t)
			armWrite(b, 0x50, tc.sendStop, 0xAA, 0x55)

			// Address ACKed, first data byte NACKed.
			b.handle(StatusWriteInt)
			b.handle(StatusWriteInt | StatusRxNack)

			if b.LastResult() != ResultNackReceived {
				t.Errorf("Result = %v, want nack", b.LastResult())
			}
			if cmds := regs.writesTo(RegMasterControlB); len(cmds) != 1 || cmds[0] != tc.command {
				t.Errorf("Commands = %v, want [0x%02x]", cmds, tc.command)
			}
			if data := regs.writesTo(RegMasterData); len(data) != 1 {
				t.Errorf("Expected one data write before the NACK, got %v", data)
			}
		})
	}
}

func TestHandlerRead(t *testing.T) {
	b, regs := newStartedBus(t)
	armRead(b, 0x50, 3, true)

	if got := regs.writesTo(RegMasterAddress); len(got) != 1 || got[0] != 0xA1 {
		t.Fatalf("Expected MADDR 0xA1, got %v", got)
	}

	for _, v := range []byte{0x10, 0x20, 0x30} {
		regs.vals[RegMasterData] = v
		b.handle(StatusReadInt)
	}

	if b.LastResult() != ResultOk {
		t.Fatalf("Result = %v", b.LastResult())
	}
	want := []uint8{CmdReceive, CmdReceive, CmdAckActionNack | CmdStop}
	if cmds := regs.writesTo(RegMasterControlB); string(cmds) != string(want) {
		t.Errorf("Commands = %v, want %v", cmds, want)
	}

	// Bytes come back in arrival order.
	for i, v := range []byte{0x10, 0x20, 0x30} {
		if n := b.Available(); n != 3-i {
			t.Errorf("Available = %d before read %d", n, i)
		}
		if got := b.Read(); got != v {
			t.Errorf("Read %d = 0x%02x, want 0x%02x", i, got, v)
		}
	}
	if b.Available() != 0 {
		t.Errorf("Available = %d after all reads", b.Available())
	}
	if got := b.Read(); got != 0 {
		t.Errorf("Read past end = 0x%02x, want 0", got)
	}
}

func TestHandlerReadOverflow(t *testing.T) {
	b, regs := newStartedBus(t)
	armRead(b, 0x50, 0, false)

	regs.vals[RegMasterData] = 0x99
	b.handle(StatusReadInt)

	if b.LastResult() != ResultBufferOverflow {
		t.Errorf("Result = %v, want buffer overflow", b.LastResult())
	}
	if cmds := regs.writesTo(RegMasterControlB); len(cmds) != 1 || cmds[0] != CmdAckActionNack|CmdRepeatedStart {
		t.Errorf("Commands = %v, want [NACK|REPSTART]", cmds)
	}
	if b.buf.progress != 0 || b.Available() != 0 {
		t.Errorf("Progress not reset: progress=%d available=%d", b.buf.progress, b.Available())
	}
}

func TestHandlerErrors(t *testing.T) {
	testCases := []struct {
		name   string
		status uint8
		want   Result
	}{
		{"arbitration lost", StatusArbLost, ResultArbitrationLost},
		{"arbitration lost with WIF", StatusWriteInt | StatusArbLost, ResultArbitrationLost},
		{"bus error", StatusBusError, ResultBusError},
		{"bus error with RIF", StatusReadInt | StatusBusError, ResultBusError},
		{"bus error wins over arbitration", StatusBusError | StatusArbLost, ResultBusError},
		{"both data flags", StatusWriteInt | StatusReadInt, ResultFail},
		{"no cause", uint8(BusOwner), ResultFail},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			b, regs := newStartedBus(t)
			armWrite(b, 0x50, true, 0x01)

			b.handle(tc.status)

			if b.LastResult() != tc.want {
				t.Errorf("Result = %v, want %v", b.LastResult(), tc.want)
			}
			cleared := regs.writesTo(RegMasterStatus)
			if len(cleared) != 1 || cleared[0] != tc.status&statusCauses {
				t.Errorf("Status writes = %v, want [0x%02x]", cleared, tc.status&statusCauses)
			}
			if data := regs.writesTo(RegMasterData); len(data) != 0 {
				t.Errorf("Data pushed on error: %v", data)
			}
		})
	}
}

func TestHandlerWriteFlagDuringRead(t *testing.T) {
	b, regs := newStartedBus(t)
	armRead(b, 0x50, 2, true)

	b.handle(StatusWriteInt)
	if b.LastResult() != ResultFail {
		t.Errorf("Result = %v, want fail", b.LastResult())
	}
	if data := regs.writesTo(RegMasterData); len(data) != 0 {
		t.Errorf("Read transaction pushed data: %v", data)
	}
}

func TestHandlerReadAddressNack(t *testing.T) {
	b, regs := newStartedBus(t)
	armRead(b, 0x50, 2, true)

	b.handle(StatusWriteInt | StatusRxNack)
	if b.LastResult() != ResultNackReceived {
		t.Errorf("Result = %v, want nack", b.LastResult())
	}
	if cmds := regs.writesTo(RegMasterControlB); len(cmds) != 1 || cmds[0] != CmdStop {
		t.Errorf("Commands = %v, want [STOP]", cmds)
	}
}

func TestHandlerIgnoresEventsWhenIdle(t *testing.T) {
	b, regs := newStartedBus(t)
	armWrite(b, 0x50, true)
	b.handle(StatusWriteInt)
	if b.LastResult() != ResultOk {
		t.Fatalf("Result = %v", b.LastResult())
	}
	regs.writes = nil

	b.handle(StatusWriteInt | StatusRxNack)

	if b.LastResult() != ResultOk {
		t.Errorf("Spurious event changed result to %v", b.LastResult())
	}
	if len(regs.writes) != 1 || regs.writes[0].reg != RegMasterStatus {
		t.Errorf("Expected only a status clear, got %v", regs.writes)
	}
}

func TestHandlerTrace(t *testing.T) {
	b, _ := newStartedBus(t)
	armWrite(b, 0x50, true, 0xAA)
	b.handle(StatusWriteInt)
	b.handle(StatusWriteInt)

	trace := b.Trace()
	if len(trace) != 2 {
		t.Fatalf("Expected 2 trace events, got %d", len(trace))
	}
	if trace[0].Result != ResultUnknown || trace[0].Progress != 1 {
		t.Errorf("First event = %+v", trace[0])
	}
	if trace[1].Result != ResultOk || trace[1].Command != CmdStop {
		t.Errorf("Last event = %+v", trace[1])
	}

	var lines []string
	SetDebugWriter(func(s string) { lines = append(lines, s) })
	defer SetDebugWriter(func(string) {})
	b.DumpTrace()
	if len(lines) != 4 {
		t.Errorf("Expected header, 2 events and footer, got %v", lines)
	}

	b.ClearTrace()
	if len(b.Trace()) != 0 {
		t.Error("Trace not cleared")
	}
}
