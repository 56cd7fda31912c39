package core

// DebugWriter is a function type for writing debug messages
type DebugWriter func(string)

// TraceEvent captures one event handler invocation for post-mortem analysis
type TraceEvent struct {
	Seq      uint32 // Invocation counter, 0 marks an empty slot
	Status   uint8  // MSTATUS snapshot
	Command  uint8  // MCTRLB value issued, CmdNoAction if none
	Progress uint8  // Bytes processed after the event
	Result   Result // Result published by this event, ResultUnknown if none
}

const (
	TraceRingSize = 32 // Keep last 32 events for post-mortem
)

var (
	// debugPrintln is the global debug print function (can be set by platform code)
	debugPrintln DebugWriter = func(s string) {} // No-op by default

	// debugEnabled controls whether debug output is active
	debugEnabled bool = false

	// Async debug output channel
	debugChan chan string
)

// SetDebugWriter sets the platform-specific debug output function
// This allows platforms to redirect debug output to UART, USB, etc.
func SetDebugWriter(writer DebugWriter) {
	debugPrintln = writer
}

// SetDebugEnabled enables or disables debug output
func SetDebugEnabled(enabled bool) {
	debugEnabled = enabled
}

// IsDebugEnabled returns whether debug output is enabled
func IsDebugEnabled() bool {
	return debugEnabled
}

// InitAsyncDebug starts the async debug output goroutine. It captures the
// current writer, so call it from main() after SetDebugWriter.
func InitAsyncDebug() {
	debugChan = make(chan string, 16)
	go debugOutputWorker(debugChan, debugPrintln)
}

// StopAsyncDebug stops the worker once the queued messages are written.
func StopAsyncDebug() {
	ch := debugChan
	debugChan = nil
	if ch != nil {
		close(ch)
	}
}

func debugOutputWorker(ch <-chan string, writer DebugWriter) {
	for msg := range ch {
		if writer != nil {
			writer(msg)
		}
	}
}

// DebugPrintln writes a debug message using the platform-specific writer
func DebugPrintln(msg string) {
	if debugEnabled && debugPrintln != nil {
		debugPrintln(msg)
	}
}

// DebugAsync queues a debug message for async output (non-blocking)
// Drops the message if debug is disabled, the channel is full or not started
func DebugAsync(msg string) {
	if debugEnabled && debugChan != nil {
		select {
		case debugChan <- msg:
		default:
		}
	}
}

// traceRing is a fixed ring of handler events. It is written by the
// event handler and by the timeout abort, and read with the TWIM
// interrupt masked.
type traceRing struct {
	events [TraceRingSize]TraceEvent
	head   uint8
	seq    uint32
}

func (r *traceRing) record(status, command, progress uint8, result Result) {
	r.seq++
	r.events[r.head] = TraceEvent{
		Seq:      r.seq,
		Status:   status,
		Command:  command,
		Progress: progress,
		Result:   result,
	}
	r.head = (r.head + 1) % TraceRingSize
}

// snapshot returns the recorded events, oldest first.
func (r *traceRing) snapshot() []TraceEvent {
	out := make([]TraceEvent, 0, TraceRingSize)
	for i := uint8(0); i < TraceRingSize; i++ {
		evt := r.events[(r.head+i)%TraceRingSize]
		if evt.Seq == 0 {
			continue
		}
		out = append(out, evt)
	}
	return out
}

func (r *traceRing) clear() {
	*r = traceRing{}
}

// dumpTrace writes events through the debug writer.
func dumpTrace(events []TraceEvent) {
	if debugPrintln == nil {
		return
	}
	debugPrintln("[TWI] === Event Trace ===")
	for _, evt := range events {
		debugPrintln("[TWI] #" + itoa(int(evt.Seq)) +
			" status=0x" + hex8(evt.Status) +
			" cmd=0x" + hex8(evt.Command) +
			" progress=" + itoa(int(evt.Progress)) +
			" result=" + evt.Result.String())
	}
	debugPrintln("[TWI] === End Trace ===")
}
