package protocol

// AppendInt appends v in Klipper's VLQ encoding: seven bits per byte, most
// significant group first, continuation in bit 7. A lead byte with bits
// 5 and 6 set is sign extended on decode.
func AppendInt(dst []byte, v int32) []byte {
	for _, shift := range [...]uint{28, 21, 14, 7} {
		lim := int32(1) << (shift - 2)
		if v < -lim || v >= 3*lim {
			dst = append(dst, byte(v>>shift)&0x7F|0x80)
		}
	}
	return append(dst, byte(v)&0x7F)
}

// AppendUint appends v using the signed encoding, as the wire format has
// no separate unsigned form.
func AppendUint(dst []byte, v uint32) []byte {
	return AppendInt(dst, int32(v))
}

// AppendBytes appends a length-prefixed byte string.
func AppendBytes(dst []byte, p []byte) []byte {
	dst = AppendUint(dst, uint32(len(p)))
	return append(dst, p...)
}

// Reader decodes VLQ values from a payload.
type Reader struct {
	buf []byte
}

// NewReader returns a Reader over p. p is not copied.
func NewReader(p []byte) Reader {
	return Reader{buf: p}
}

// Len returns the number of undecoded bytes.
func (r *Reader) Len() int {
	return len(r.buf)
}

// Int decodes a signed value.
func (r *Reader) Int() (int32, error) {
	if len(r.buf) == 0 {
		return 0, ErrTruncated
	}
	c := uint32(r.buf[0])
	r.buf = r.buf[1:]

	v := c & 0x7F
	if c&0x60 == 0x60 {
		v |= ^uint32(0x1F)
	}
	for c&0x80 != 0 {
		if len(r.buf) == 0 {
			return 0, ErrTruncated
		}
		c = uint32(r.buf[0])
		r.buf = r.buf[1:]
		v = v<<7 | c&0x7F
	}
	return int32(v), nil
}

// Uint decodes an unsigned value.
func (r *Reader) Uint() (uint32, error) {
	v, err := r.Int()
	return uint32(v), err
}

// Bytes decodes a length-prefixed byte string. The result aliases the
// payload.
func (r *Reader) Bytes() ([]byte, error) {
	n, err := r.Uint()
	if err != nil {
		return nil, err
	}
	if uint32(len(r.buf)) < n {
		return nil, ErrTruncated
	}
	p := r.buf[:n]
	r.buf = r.buf[n:]
	return p, nil
}
