package protocol

// FifoBuffer is a byte ring used to reassemble frames from a serial link.
type FifoBuffer struct {
	buf   []byte
	head  int
	count int
}

// NewFifoBuffer creates a ring holding up to capacity bytes.
func NewFifoBuffer(capacity int) *FifoBuffer {
	return &FifoBuffer{buf: make([]byte, capacity)}
}

// Write appends as much of data as fits and returns the count stored.
func (f *FifoBuffer) Write(data []byte) int {
	n := 0
	for _, b := range data {
		if f.count == len(f.buf) {
			break
		}
		f.buf[(f.head+f.count)%len(f.buf)] = b
		f.count++
		n++
	}
	return n
}

// Available returns the number of buffered bytes.
func (f *FifoBuffer) Available() int {
	return f.count
}

// Free returns the remaining capacity.
func (f *FifoBuffer) Free() int {
	return len(f.buf) - f.count
}

// Data returns the buffered bytes in order. When the ring has wrapped the
// contents are first rotated to the front so the result is contiguous.
func (f *FifoBuffer) Data() []byte {
	if f.head+f.count > len(f.buf) {
		f.compact()
	}
	return f.buf[f.head : f.head+f.count]
}

// Pop discards n bytes from the front.
func (f *FifoBuffer) Pop(n int) {
	if n > f.count {
		n = f.count
	}
	f.head = (f.head + n) % len(f.buf)
	f.count -= n
	if f.count == 0 {
		f.head = 0
	}
}

// Reset empties the ring.
func (f *FifoBuffer) Reset() {
	f.head = 0
	f.count = 0
}

func (f *FifoBuffer) compact() {
	tmp := make([]byte, f.count)
	first := copy(tmp, f.buf[f.head:])
	copy(tmp[first:], f.buf[:f.count-first])
	copy(f.buf, tmp)
	f.head = 0
}
