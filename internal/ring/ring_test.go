package ring

import "testing"

func TestEmptyIffHeadEqualsTail(t *testing.T) {
	b := New(4)
	if !b.Empty() {
		t.Fatalf("fresh buffer should be Empty()")
	}
	b.Push('a')
	if b.Empty() {
		t.Errorf("buffer with one byte should not be Empty()")
	}
	b.Pop()
	if !b.Empty() {
		t.Errorf("buffer should be Empty() again after draining")
	}
}

func TestFullAtCapacityMinusOne(t *testing.T) {
	b := New(4) // rounds up to a power of two, usable capacity = size-1

	for i := 0; i < 3; i++ {
		if !b.Push(byte('a' + i)) {
			t.Fatalf("Push() %d unexpectedly reported full", i)
		}
	}
	if !b.Full() {
		t.Fatalf("buffer should report Full() once one slot remains to disambiguate from empty")
	}
}

func TestDroppedByteDoesNotCorruptBuffer(t *testing.T) {
	b := New(4)
	for i := 0; i < 3; i++ {
		b.Push(byte('a' + i))
	}
	// buffer is now full; this push must be dropped, not overwrite data
	if ok := b.Push('z'); ok {
		t.Fatalf("Push() on a full buffer should report false")
	}

	for i := 0; i < 3; i++ {
		c, ok := b.Pop()
		if !ok || c != byte('a'+i) {
			t.Errorf("Pop() %d = %q, %v, want %q, true", i, c, ok, byte('a'+i))
		}
	}
	if !b.Empty() {
		t.Errorf("buffer should be empty after draining all pushed bytes")
	}
}

func TestWraparound(t *testing.T) {
	b := New(4)
	for round := 0; round < 10; round++ {
		if !b.Push(byte(round)) {
			t.Fatalf("round %d: Push() failed", round)
		}
		c, ok := b.Pop()
		if !ok || c != byte(round) {
			t.Fatalf("round %d: Pop() = %v, %v, want %d, true", round, c, ok, round)
		}
	}
}
