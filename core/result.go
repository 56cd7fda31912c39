package core

import "errors"

// Result is the outcome of a bus operation. ResultUnknown marks a
// transaction still in flight; every other value is terminal.
type Result uint8

const (
	ResultUnknown Result = iota
	ResultOk
	ResultFail
	ResultBufferOverflow
	ResultNackReceived
	ResultArbitrationLost
	ResultBusError
	ResultTimeout
)

var (
	ErrFail            = errors.New("twi: operation failed")
	ErrBufferOverflow  = errors.New("twi: buffer overflow")
	ErrNack            = errors.New("twi: NACK received")
	ErrArbitrationLost = errors.New("twi: arbitration lost")
	ErrBusError        = errors.New("twi: bus error")
	ErrTimeout         = errors.New("twi: transaction timed out")
	ErrInFlight        = errors.New("twi: transaction in flight")
)

func (r Result) String() string {
	switch r {
	case ResultUnknown:
		return "unknown"
	case ResultOk:
		return "ok"
	case ResultFail:
		return "fail"
	case ResultBufferOverflow:
		return "buffer overflow"
	case ResultNackReceived:
		return "nack received"
	case ResultArbitrationLost:
		return "arbitration lost"
	case ResultBusError:
		return "bus error"
	case ResultTimeout:
		return "timeout"
	default:
		return "result(" + itoa(int(r)) + ")"
	}
}

// Terminal reports whether r ends a transaction.
func (r Result) Terminal() bool {
	return r != ResultUnknown
}

// Err maps r to a sentinel error, nil for ResultOk.
func (r Result) Err() error {
	switch r {
	case ResultOk:
		return nil
	case ResultUnknown:
		return ErrInFlight
	case ResultBufferOverflow:
		return ErrBufferOverflow
	case ResultNackReceived:
		return ErrNack
	case ResultArbitrationLost:
		return ErrArbitrationLost
	case ResultBusError:
		return ErrBusError
	case ResultTimeout:
		return ErrTimeout
	default:
		return ErrFail
	}
}
