package core

import "errors"

// ErrAddress is returned for addresses outside the 7-bit range.
var ErrAddress = errors.New("twi: only 7-bit addresses are supported")

// Scan range excludes the reserved addresses at both ends.
const (
	ScanFirst = 0x08
	ScanLast  = 0x77
)

// Tx writes w to addr, then reads len(r) bytes after a repeated start.
// Either slice may be empty. It is the transfer shape periph.io and the
// TinyGo drivers expect.
func (b *Bus) Tx(addr uint16, w, r []byte) error {
	if addr > 0x7F {
		return ErrAddress
	}
	if len(w) > BufferSize || len(r) > BufferSize {
		return ErrBufferOverflow
	}

	if len(w) > 0 || len(r) == 0 {
		b.BeginTransmission(uint8(addr))
		if res := b.WriteBytes(w); res != ResultOk {
			return res.Err()
		}
		if res := b.EndTransmission(len(r) == 0); res != ResultOk {
			b.release()
			return res.Err()
		}
	}

	if len(r) == 0 {
		return nil
	}

	if res := b.RequestFrom(uint8(addr), uint8(len(r)), true); res != ResultOk {
		return res.Err()
	}
	if res := b.LastResult(); res != ResultOk {
		return res.Err()
	}
	for i := range r {
		r[i] = b.Read()
	}
	return nil
}

// ReadRegister reads len(buf) bytes starting at register reg.
func (b *Bus) ReadRegister(addr uint8, reg uint8, buf []byte) error {
	return b.Tx(uint16(addr), []byte{reg}, buf)
}

// WriteRegister writes buf starting at register reg.
func (b *Bus) WriteRegister(addr uint8, reg uint8, buf []byte) error {
	w := make([]byte, 0, len(buf)+1)
	w = append(w, reg)
	w = append(w, buf...)
	return b.Tx(uint16(addr), w, nil)
}

// Scan probes every non-reserved address with an empty write and returns
// the ones that ACKed.
func (b *Bus) Scan() []uint8 {
	var found []uint8
	for addr := uint8(ScanFirst); addr <= ScanLast; addr++ {
		b.BeginTransmission(addr)
		if b.End() == ResultOk {
			found = append(found, addr)
		}
	}
	return found
}
