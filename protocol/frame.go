package protocol

import "bytes"

// AppendFrame appends payload framed under seq to dst.
func AppendFrame(dst []byte, seq uint8, payload []byte) ([]byte, error) {
	n := len(payload) + FrameMin
	if n > FrameMax {
		return dst, ErrFrameTooLong
	}
	start := len(dst)
	dst = append(dst, uint8(n), seq&SeqMask|SeqDest)
	dst = append(dst, payload...)
	crc := CRC16(dst[start:])
	return append(dst, uint8(crc>>8), uint8(crc), Sync), nil
}

// Decoder reassembles frames from a byte stream. Corrupt frames are
// dropped and the decoder resynchronizes on the next sync byte.
type Decoder struct {
	in      *FifoBuffer
	synced  bool
	dropped int
	payload [PayloadMax]byte
}

// NewDecoder creates a decoder with room for a few frames in flight.
func NewDecoder() *Decoder {
	return &Decoder{
		in:     NewFifoBuffer(FrameMax * 4),
		synced: true,
	}
}

// Write buffers raw link bytes and returns the count accepted. Bytes that
// do not fit are discarded.
func (d *Decoder) Write(p []byte) int {
	return d.in.Write(p)
}

// Dropped returns the number of frames rejected for a bad length,
// destination, trailer or CRC.
func (d *Decoder) Dropped() int {
	return d.dropped
}

// Next returns the next valid frame. The payload is only valid until the
// following call to Next.
func (d *Decoder) Next() (Frame, bool) {
	data := d.in.Data()
	total := len(data)
	defer func() {
		d.in.Pop(total - len(data))
	}()

	for len(data) > 0 {
		if !d.synced {
			i := bytes.IndexByte(data, Sync)
			if i < 0 {
				data = data[len(data):]
				break
			}
			data = data[i+1:]
			d.synced = true
			continue
		}

		if data[0] == Sync {
			data = data[1:]
			continue
		}
		if len(data) < FrameMin {
			break
		}

		n := int(data[posLen])
		if n < FrameMin || n > FrameMax || data[posSeq]&^SeqMask != SeqDest {
			d.resync()
			continue
		}
		if len(data) < n {
			break
		}

		crc := uint16(data[n-3])<<8 | uint16(data[n-2])
		if data[n-1] != Sync || crc != CRC16(data[:n-TrailerSize]) {
			d.resync()
			continue
		}

		f := Frame{
			Seq:     data[posSeq],
			Payload: d.payload[:copy(d.payload[:], data[HeaderSize:n-TrailerSize])],
		}
		data = data[n:]
		return f, true
	}
	return Frame{}, false
}

func (d *Decoder) resync() {
	d.synced = false
	d.dropped++
}
