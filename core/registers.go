package core

// Register identifies one register of the TWI master block by its offset
// from the peripheral base address (TWI0 = 0x08A0 on the ATmega4809).
type Register uint8

// Peripheral base addresses on the ATmega4809.
const (
	TWI0Base     = 0x08A0
	PortmuxRoute = 0x05E3 // PORTMUX.TWISPIROUTEA
)

// Master register offsets
const (
	RegMasterControlA Register = 0x03 // MCTRLA: enable + interrupt mask
	RegMasterControlB Register = 0x04 // MCTRLB: commands
	RegMasterStatus   Register = 0x05 // MSTATUS
	RegMasterBaud     Register = 0x06 // MBAUD: clock divisor
	RegMasterAddress  Register = 0x07 // MADDR: writing starts a transaction
	RegMasterData     Register = 0x08 // MDATA
)

func (r Register) String() string {
	switch r {
	case RegMasterControlA:
		return "MCTRLA"
	case RegMasterControlB:
		return "MCTRLB"
	case RegMasterStatus:
		return "MSTATUS"
	case RegMasterBaud:
		return "MBAUD"
	case RegMasterAddress:
		return "MADDR"
	case RegMasterData:
		return "MDATA"
	default:
		return "REG(0x" + hex8(uint8(r)) + ")"
	}
}

// MCTRLA bits
const (
	CtrlReadIntEnable  uint8 = 0x80 // RIEN
	CtrlWriteIntEnable uint8 = 0x40 // WIEN
	CtrlQuickCommand   uint8 = 0x10 // QCEN
	CtrlSmartMode      uint8 = 0x02 // SMEN
	CtrlEnable         uint8 = 0x01 // ENABLE
)

// MCTRLB commands and flags
const (
	CmdNoAction      uint8 = 0x00
	CmdRepeatedStart uint8 = 0x01 // REPSTART
	CmdReceive       uint8 = 0x02 // RECVTRANS: ACK and clock in the next byte
	CmdStop          uint8 = 0x03 // STOP
	CmdMask          uint8 = 0x03
	CmdAckActionNack uint8 = 0x04 // ACKACT: send NACK with the next command
	CmdFlush         uint8 = 0x08 // FLUSH: reset master state
)

// MSTATUS bits
const (
	StatusReadInt     uint8 = 0x80 // RIF
	StatusWriteInt    uint8 = 0x40 // WIF
	StatusClockHold   uint8 = 0x20 // CLKHOLD
	StatusRxNack      uint8 = 0x10 // RXACK: set when the slave NACKed
	StatusArbLost     uint8 = 0x08 // ARBLOST
	StatusBusError    uint8 = 0x04 // BUSERR
	StatusBusStateMsk uint8 = 0x03 // BUSSTATE
)

// statusCauses is the set of bits the event handler dispatches on.
const statusCauses = StatusWriteInt | StatusReadInt | StatusArbLost | StatusBusError

// BusState is the BUSSTATE field of MSTATUS.
type BusState uint8

const (
	BusUnknown BusState = 0
	BusIdle    BusState = 1
	BusOwner   BusState = 2
	BusBusy    BusState = 3
)

func (s BusState) String() string {
	switch s {
	case BusIdle:
		return "idle"
	case BusOwner:
		return "owner"
	case BusBusy:
		return "busy"
	default:
		return "unknown"
	}
}

// Registers is the hardware register surface the driver needs.
// Targets back it with memory-mapped I/O, the simulator with a software
// model and the bridge client with a serial link.
type Registers interface {
	// Get reads a register.
	Get(reg Register) uint8

	// Set writes a register. Writing RegMasterAddress starts a bus
	// transaction; writing RegMasterStatus clears the flags set in value.
	Set(reg Register, value uint8)
}

// PinRouter routes the SDA/SCL pins to the TWI peripheral.
type PinRouter interface {
	RouteTWI(enable bool)
}

type noRouter struct{}

func (noRouter) RouteTWI(bool) {}
