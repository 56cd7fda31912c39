package protocol

import "testing"

func TestFifoBuffer(t *testing.T) {
	fifo := NewFifoBuffer(4)

	if n := fifo.Write([]byte{1, 2, 3, 4, 5}); n != 4 {
		t.Errorf("Write stored %d bytes, expected 4", n)
	}
	if fifo.Free() != 0 {
		t.Errorf("Free = %d on a full ring", fifo.Free())
	}

	fifo.Pop(3)
	if fifo.Available() != 1 {
		t.Errorf("Available = %d after Pop(3)", fifo.Available())
	}

	// Wrap around and check the contents come back contiguous.
	fifo.Write([]byte{5, 6, 7})
	data := fifo.Data()
	if string(data) != string([]byte{4, 5, 6, 7}) {
		t.Errorf("Data = %v, expected [4 5 6 7]", data)
	}

	fifo.Pop(10)
	if fifo.Available() != 0 {
		t.Errorf("Available = %d after over-pop", fifo.Available())
	}

	fifo.Write([]byte{9})
	fifo.Reset()
	if len(fifo.Data()) != 0 {
		t.Error("Reset left data behind")
	}
}
