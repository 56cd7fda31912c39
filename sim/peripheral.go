// Package sim models the ATmega4809 TWI master register file in software,
// with attached slave devices and fault injection. It implements
// core.Registers and core.PinRouter so a core.Bus can run unchanged on a
// host, in tests and in the twi-host tool.
package sim

import (
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"megatwi/core"
)

// FaultKind selects the failure a Fault injects.
type FaultKind uint8

const (
	FaultNack            FaultKind = iota + 1 // slave NACKs the byte
	FaultArbitrationLost                      // another master wins the bus
	FaultBusError                             // illegal bus condition
	FaultStall                                // no flag is raised at all
	FaultLate                                 // write-complete arrives after Delay
)

func (k FaultKind) String() string {
	switch k {
	case FaultNack:
		return "nack"
	case FaultArbitrationLost:
		return "arbitration-lost"
	case FaultBusError:
		return "bus-error"
	case FaultStall:
		return "stall"
	case FaultLate:
		return "late"
	default:
		return "none"
	}
}

// Fault is a one-shot failure injected at a byte of a transaction.
// Byte 0 is the address byte, byte n the n-th data byte in either
// direction.
type Fault struct {
	Kind FaultKind
	Byte int

	// Delay applies to FaultLate. The byte is not delivered to the device.
	Delay time.Duration
}

// Op is one logged register write.
type Op struct {
	Reg   core.Register
	Value uint8
}

const flagMask = core.StatusReadInt | core.StatusWriteInt | core.StatusArbLost | core.StatusBusError

// Peripheral is the simulated TWI master.
type Peripheral struct {
	mu sync.Mutex

	ctrlA  uint8
	ctrlB  uint8
	status uint8
	baud   uint8
	addr   uint8
	data   uint8
	routed bool

	devices   map[uint8]Device
	active    Device
	reading   bool
	byteIndex int
	faults    []Fault
	ops       []Op

	handler func()
	irq     chan struct{}
	done    chan struct{}
	running bool
	closed  sync.Once

	log logrus.FieldLogger
}

var (
	_ core.Registers = (*Peripheral)(nil)
	_ core.PinRouter = (*Peripheral)(nil)
)

// New creates an idle peripheral. A nil logger uses the logrus standard
// logger.
func New(log logrus.FieldLogger) *Peripheral {
	if log == nil {
		log = logrus.StandardLogger()
	}
	return &Peripheral{
		devices: make(map[uint8]Device),
		irq:     make(chan struct{}, 1),
		done:    make(chan struct{}),
		log:     log.WithField("component", "twi-sim"),
	}
}

// Attach connects d at the 7-bit address addr.
func (p *Peripheral) Attach(addr uint8, d Device) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.devices[addr&0x7F] = d
}

// Detach removes the device at addr.
func (p *Peripheral) Detach(addr uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.devices, addr&0x7F)
}

// Inject queues a one-shot fault. Faults apply to every later transaction
// until they trigger.
func (p *Peripheral) Inject(f Fault) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = append(p.faults, f)
}

// ClearFaults drops faults that have not triggered.
func (p *Peripheral) ClearFaults() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.faults = nil
}

// SetInterruptHandler attaches the TWIM vector. Interrupts are delivered
// one at a time on a dedicated goroutine, never reentrant, for every flag
// raised while the matching RIEN/WIEN bit is set.
func (p *Peripheral) SetInterruptHandler(h func()) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.handler = h
	if !p.running {
		p.running = true
		go p.interruptLoop()
	}
}

// Close stops interrupt delivery.
func (p *Peripheral) Close() {
	p.closed.Do(func() { close(p.done) })
}

func (p *Peripheral) interruptLoop() {
	for {
		select {
		case <-p.irq:
			p.mu.Lock()
			h := p.handler
			p.mu.Unlock()
			if h != nil {
				h()
			}
		case <-p.done:
			return
		}
	}
}

// RouteTWI implements core.PinRouter.
func (p *Peripheral) RouteTWI(enable bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.routed = enable
	p.log.WithField("enable", enable).Debug("pin routing")
}

// Routed reports the pin routing state.
func (p *Peripheral) Routed() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.routed
}

// Ops returns the register writes logged since the last ResetOps.
func (p *Peripheral) Ops() []Op {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]Op, len(p.ops))
	copy(out, p.ops)
	return out
}

// ResetOps clears the register write log.
func (p *Peripheral) ResetOps() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.ops = nil
}

// Get implements core.Registers.
func (p *Peripheral) Get(reg core.Register) uint8 {
	p.mu.Lock()
	defer p.mu.Unlock()
	switch reg {
	case core.RegMasterControlA:
		return p.ctrlA
	case core.RegMasterControlB:
		return p.ctrlB
	case core.RegMasterStatus:
		return p.status
	case core.RegMasterBaud:
		return p.baud
	case core.RegMasterAddress:
		return p.addr
	case core.RegMasterData:
		return p.data
	}
	return 0
}

// Set implements core.Registers.
func (p *Peripheral) Set(reg core.Register, value uint8) {
	p.mu.Lock()
	defer p.mu.Unlock()

	p.ops = append(p.ops, Op{Reg: reg, Value: value})
	p.log.WithFields(logrus.Fields{
		"reg":   reg.String(),
		"value": value,
	}).Debug("register write")

	switch reg {
	case core.RegMasterControlA:
		p.ctrlA = value
	case core.RegMasterControlB:
		p.command(value)
	case core.RegMasterStatus:
		p.status &^= value & flagMask
		if st := value & core.StatusBusStateMsk; st != 0 {
			p.setBusState(core.BusState(st))
		}
	case core.RegMasterBaud:
		p.baud = value
	case core.RegMasterAddress:
		p.startPhase(value)
	case core.RegMasterData:
		p.shiftOut(value)
	}
}

func (p *Peripheral) enabled() bool {
	return p.ctrlA&core.CtrlEnable != 0
}

func (p *Peripheral) setBusState(s core.BusState) {
	p.status = p.status&^core.StatusBusStateMsk | uint8(s)
}

func (p *Peripheral) clearFlags() {
	p.status &^= flagMask | core.StatusClockHold | core.StatusRxNack
}

// startPhase emits a (repeated) start and the address byte.
func (p *Peripheral) startPhase(addr uint8) {
	p.addr = addr
	if !p.enabled() {
		return
	}

	p.clearFlags()
	p.setBusState(core.BusOwner)
	p.reading = addr&1 != 0
	p.byteIndex = 0
	p.active = nil

	if p.fault(0) {
		return
	}

	dev := p.devices[addr>>1]
	if dev == nil || !dev.Start(p.reading) {
		p.raise(core.StatusWriteInt | core.StatusRxNack)
		return
	}
	p.active = dev

	if p.reading {
		p.fetch()
		return
	}
	p.raise(core.StatusWriteInt | core.StatusClockHold)
}

// shiftOut sends one data byte to the addressed device.
func (p *Peripheral) shiftOut(v uint8) {
	p.data = v
	if !p.enabled() || p.reading || p.active == nil {
		return
	}

	p.clearFlags()
	p.byteIndex++
	if p.fault(p.byteIndex) {
		return
	}

	if p.active.Receive(v) {
		p.raise(core.StatusWriteInt | core.StatusClockHold)
	} else {
		p.raise(core.StatusWriteInt | core.StatusRxNack)
	}
}

// fetch clocks one byte in from the addressed device.
func (p *Peripheral) fetch() {
	p.byteIndex++
	if p.fault(p.byteIndex) {
		return
	}
	p.data = p.active.Transmit()
	p.raise(core.StatusReadInt | core.StatusClockHold)
}

func (p *Peripheral) command(v uint8) {
	p.ctrlB = v

	if v&core.CmdFlush != 0 {
		p.release()
		p.clearFlags()
		p.setBusState(core.BusIdle)
		return
	}

	switch v & core.CmdMask {
	case core.CmdRepeatedStart:
		p.clearFlags()
		p.release()
	case core.CmdStop:
		p.clearFlags()
		p.release()
		p.setBusState(core.BusIdle)
	case core.CmdReceive:
		if p.reading && p.active != nil {
			p.clearFlags()
			p.fetch()
		}
	}
}

func (p *Peripheral) release() {
	if p.active != nil {
		p.active.Stop()
		p.active = nil
	}
}

// fault applies the first pending fault at byte index i.
func (p *Peripheral) fault(i int) bool {
	for n, f := range p.faults {
		if f.Byte != i {
			continue
		}
		p.faults = append(p.faults[:n], p.faults[n+1:]...)
		p.log.WithFields(logrus.Fields{
			"fault": f.Kind.String(),
			"byte":  i,
		}).Debug("fault injected")

		switch f.Kind {
		case FaultNack:
			p.raise(core.StatusWriteInt | core.StatusRxNack)
		case FaultArbitrationLost:
			p.release()
			p.setBusState(core.BusBusy)
			p.raise(core.StatusWriteInt | core.StatusArbLost)
		case FaultBusError:
			p.release()
			p.setBusState(core.BusIdle)
			p.raise(core.StatusWriteInt | core.StatusBusError)
		case FaultStall:
		case FaultLate:
			time.AfterFunc(f.Delay, func() {
				p.mu.Lock()
				defer p.mu.Unlock()
				p.raise(core.StatusWriteInt | core.StatusClockHold)
			})
		}
		return true
	}
	return false
}

// raise sets status flags and queues an interrupt if it is armed.
func (p *Peripheral) raise(flags uint8) {
	p.status |= flags
	if p.handler == nil {
		return
	}
	armed := (flags&core.StatusWriteInt != 0 && p.ctrlA&core.CtrlWriteIntEnable != 0) ||
		(flags&core.StatusReadInt != 0 && p.ctrlA&core.CtrlReadIntEnable != 0)
	if !armed {
		return
	}
	select {
	case p.irq <- struct{}{}:
	default:
	}
}
