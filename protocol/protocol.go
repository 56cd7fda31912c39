// Package protocol frames the register bridge link. A frame carries one
// VLQ-encoded command or response block:
//
//	[len][seq][payload...][crc hi][crc lo][0x7E]
//
// len counts the whole frame, seq carries 0x10 in its high nibble, and the
// CRC covers len, seq and payload.
package protocol

import "errors"

const (
	FrameMax    = 64
	HeaderSize  = 2
	TrailerSize = 3
	FrameMin    = HeaderSize + TrailerSize
	PayloadMax  = FrameMax - FrameMin

	Sync    = 0x7E
	SeqMask = 0x0F
	SeqDest = 0x10

	posLen = 0
	posSeq = 1
)

var (
	ErrFrameTooLong = errors.New("protocol: payload exceeds frame size")
	ErrTruncated    = errors.New("protocol: truncated VLQ")
)

// Frame is one decoded frame.
type Frame struct {
	Seq     uint8
	Payload []byte
}

// NextSeq returns the sequence that follows seq, wrapping within the low
// nibble.
func NextSeq(seq uint8) uint8 {
	return (seq+1)&SeqMask | SeqDest
}
