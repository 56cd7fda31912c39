package sim

import "sync"

// Device is a slave attached to the simulated bus.
type Device interface {
	// Start is called when the device is addressed. Returning false NACKs
	// the address.
	Start(read bool) bool

	// Receive takes a byte from the master and returns the ACK bit.
	Receive(b byte) bool

	// Transmit supplies the next byte to the master.
	Transmit() byte

	// Stop is called on a stop or repeated start.
	Stop()
}

// Memory is a 24xx-style EEPROM: the first byte of a write sets the
// address pointer, following bytes are stored with auto-increment, reads
// continue from the pointer.
type Memory struct {
	mu      sync.Mutex
	data    []byte
	pointer int
	started bool // pointer byte expected next
}

// NewMemory creates a memory of size bytes (at most 256).
func NewMemory(size int) *Memory {
	if size <= 0 || size > 256 {
		size = 256
	}
	return &Memory{data: make([]byte, size)}
}

func (m *Memory) Start(read bool) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.started = !read
	return true
}

func (m *Memory) Receive(b byte) bool {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.started {
		m.pointer = int(b) % len(m.data)
		m.started = false
		return true
	}
	m.data[m.pointer] = b
	m.pointer = (m.pointer + 1) % len(m.data)
	return true
}

func (m *Memory) Transmit() byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	b := m.data[m.pointer]
	m.pointer = (m.pointer + 1) % len(m.data)
	return b
}

func (m *Memory) Stop() {}

// Bytes returns a copy of the memory contents.
func (m *Memory) Bytes() []byte {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]byte, len(m.data))
	copy(out, m.data)
	return out
}

// Load copies p into memory at offset.
func (m *Memory) Load(offset int, p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	copy(m.data[offset:], p)
}

// Loopback ACKs every byte and plays written bytes back in order.
type Loopback struct {
	mu      sync.Mutex
	fifo    []byte
	written []byte
}

func (l *Loopback) Start(read bool) bool { return true }

func (l *Loopback) Receive(b byte) bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.fifo = append(l.fifo, b)
	l.written = append(l.written, b)
	return true
}

// Transmit returns 0xFF once the written bytes are exhausted, like an
// idle bus.
func (l *Loopback) Transmit() byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	if len(l.fifo) == 0 {
		return 0xFF
	}
	b := l.fifo[0]
	l.fifo = l.fifo[1:]
	return b
}

func (l *Loopback) Stop() {}

// Written returns every byte received since creation.
func (l *Loopback) Written() []byte {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]byte, len(l.written))
	copy(out, l.written)
	return out
}
