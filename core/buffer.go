package core

import "encoding/binary"

// BufferSize is the capacity of the transaction buffer.
const BufferSize = 32

// txBuffer stages outgoing bytes and collects incoming ones. Only one
// direction is populated at a time.
//
// Write phase: length is the number of staged bytes and progress counts
// bytes already shifted out. Read phase: length is the requested count,
// progress counts bytes received and cursor counts bytes consumed.
type txBuffer struct {
	data     [BufferSize]byte
	length   uint8
	progress uint8
	cursor   uint8
}

func (b *txBuffer) reset(length uint8) {
	b.length = length
	b.progress = 0
	b.cursor = 0
}

// push appends one outgoing byte.
func (b *txBuffer) push(v byte) Result {
	if b.length >= BufferSize {
		return ResultBufferOverflow
	}
	b.data[b.length] = v
	b.length++
	return ResultOk
}

// pushBytes stops at the first byte that does not fit; earlier bytes stay.
func (b *txBuffer) pushBytes(p []byte) Result {
	for _, v := range p {
		if r := b.push(v); r != ResultOk {
			return r
		}
	}
	return ResultOk
}

func (b *txBuffer) pushUint16(v uint16) Result {
	var tmp [2]byte
	binary.LittleEndian.PutUint16(tmp[:], v)
	return b.pushBytes(tmp[:])
}

func (b *txBuffer) pushUint32(v uint32) Result {
	var tmp [4]byte
	binary.LittleEndian.PutUint32(tmp[:], v)
	return b.pushBytes(tmp[:])
}

// pending reports whether staged bytes remain to be shifted out.
func (b *txBuffer) pending() bool {
	return b.progress < b.length
}

// shift returns the next staged byte and advances progress.
func (b *txBuffer) shift() byte {
	v := b.data[b.progress]
	b.progress++
	return v
}

// full reports whether the requested read count has been received.
func (b *txBuffer) full() bool {
	return b.progress >= b.length
}

// store appends one received byte. The caller checks full first.
func (b *txBuffer) store(v byte) {
	b.data[b.progress] = v
	b.progress++
}

// available is the number of received bytes not yet consumed.
func (b *txBuffer) available() int {
	return int(b.progress) - int(b.cursor)
}

// next consumes a received byte, or returns 0 when none is left.
func (b *txBuffer) next() byte {
	if b.available() <= 0 {
		return 0
	}
	v := b.data[b.cursor]
	b.cursor++
	return v
}
