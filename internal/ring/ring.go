// Package ring implements the bounded single-producer/single-consumer
// byte ring buffer shared between an interrupt handler (producer) and a
// blocking/non-blocking consumer, as used by the keyboard subsystem.
// Modeled on the teacher's single-writer/single-reader index discipline:
// the producer only ever advances head after writing a cell, the
// consumer only ever advances tail after reading one.
package ring

// Buffer is a fixed-capacity ring of bytes. Capacity is rounded up
// internally to a power of two so index wraparound is a cheap mask
// instead of a modulo, matching the kind of micro-idiom a freestanding
// ISR handler wants.
type Buffer struct {
	data []byte
	mask uint32
	head uint32 // next write position; advanced by the producer only
	tail uint32 // next read position; advanced by the consumer only
}

// New creates a Buffer whose size is capacity rounded up to a power of
// two; one slot stays empty to tell full from empty, so it holds
// size-1 bytes before appearing full.
func New(capacity uint32) *Buffer {
	size := uint32(1)
	for size < capacity {
		size <<= 1
	}
	return &Buffer{
		data: make([]byte, size),
		mask: size - 1,
	}
}

// Empty reports whether the buffer currently holds no bytes.
func (b *Buffer) Empty() bool { return b.head == b.tail }

// Full reports whether the buffer has no room for another byte,
// equivalent to (head+1) mod N == tail.
func (b *Buffer) Full() bool {
	return (b.head+1)&b.mask == b.tail&b.mask
}

// Push appends c to the buffer. If the buffer is full the byte is
// dropped and Push reports false; the existing contents are left
// untouched.
func (b *Buffer) Push(c byte) bool {
	if b.Full() {
		return false
	}
	b.data[b.head&b.mask] = c
	b.head++
	return true
}

// Pop removes and returns the oldest byte in the buffer. ok is false if
// the buffer was empty.
func (b *Buffer) Pop() (c byte, ok bool) {
	if b.Empty() {
		return 0, false
	}
	c = b.data[b.tail&b.mask]
	b.tail++
	return c, true
}
