package kheap

import "unsafe"

import "testing"

func newTestHeap(t *testing.T, size uintptr) (*Heap, uintptr) {
	t.Helper()
	buf := make([]byte, size+Alignment)
	base := uintptr(unsafe.Pointer(&buf[0]))
	base = (base + Alignment - 1) &^ (Alignment - 1)

	h := &Heap{}
	h.Init(base, size)
	return h, base
}

func TestUsedPlusFreeEqualsTotal(t *testing.T) {
	const regionSize = 4096
	h, _ := newTestHeap(t, regionSize)

	a := h.Alloc(64)
	b := h.Alloc(128)
	if a == 0 || b == 0 {
		t.Fatalf("Alloc() failed: a=0x%x b=0x%x", a, b)
	}
	if h.Used()+h.FreeBytes() != regionSize {
		t.Errorf("used(%d)+free(%d) != total(%d)", h.Used(), h.FreeBytes(), regionSize)
	}

	h.Free(a)
	if h.Used()+h.FreeBytes() != regionSize {
		t.Errorf("after free: used(%d)+free(%d) != total(%d)", h.Used(), h.FreeBytes(), regionSize)
	}
}

func TestSplitAndCoalesce(t *testing.T) {
	const oneMiB = 1024 * 1024
	h, _ := newTestHeap(t, oneMiB)

	a := h.Alloc(64)
	b := h.Alloc(64)
	c := h.Alloc(64)
	if a == 0 || b == 0 || c == 0 {
		t.Fatalf("Alloc() failed")
	}

	h.Free(b)
	h.Free(a)
	h.Free(c)

	if h.BlockCount() != 1 {
		t.Fatalf("BlockCount() after freeing all blocks = %d, want 1 (fully coalesced)", h.BlockCount())
	}
	if h.FreeBytes() != oneMiB {
		t.Errorf("FreeBytes() = %d, want %d", h.FreeBytes(), oneMiB)
	}
}

func TestAllocZeroReturnsNull(t *testing.T) {
	h, _ := newTestHeap(t, 4096)
	if ptr := h.Alloc(0); ptr != 0 {
		t.Errorf("Alloc(0) = 0x%x, want 0", ptr)
	}
}

func TestDoubleFreeIsNoOp(t *testing.T) {
	h, _ := newTestHeap(t, 4096)
	ptr := h.Alloc(32)
	if ptr == 0 {
		t.Fatalf("Alloc() failed")
	}

	h.Free(ptr)
	usedAfterFirstFree := h.Used()
	freeAfterFirstFree := h.FreeBytes()

	h.Free(ptr) // double free

	if h.Used() != usedAfterFirstFree || h.FreeBytes() != freeAfterFirstFree {
		t.Errorf("double free changed heap state: used %d->%d, free %d->%d",
			usedAfterFirstFree, h.Used(), freeAfterFirstFree, h.FreeBytes())
	}
}

func TestFreeNilIsNoOp(t *testing.T) {
	h, _ := newTestHeap(t, 4096)
	before := h.Used()
	h.Free(0)
	if h.Used() != before {
		t.Errorf("Free(0) changed Used(): %d -> %d", before, h.Used())
	}
}

func TestOutOfMemoryReturnsNull(t *testing.T) {
	h, _ := newTestHeap(t, 128)
	if ptr := h.Alloc(4096); ptr != 0 {
		t.Errorf("Alloc(4096) on a 128-byte heap = 0x%x, want 0", ptr)
	}
}

func TestCallocZeroesMemory(t *testing.T) {
	h, _ := newTestHeap(t, 4096)
	ptr := h.Calloc(4, 16)
	if ptr == 0 {
		t.Fatalf("Calloc() failed")
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), 64)
	for i, b := range buf {
		if b != 0 {
			t.Fatalf("Calloc() byte %d = %d, want 0", i, b)
		}
	}
}

func TestSmallRemainderIsNotSplit(t *testing.T) {
	// Region sized so that after one alloc, the remainder cannot host
	// header+16 bytes and must be folded into the allocated block.
	h, _ := newTestHeap(t, 111)
	ptr := h.Alloc(64)
	if ptr == 0 {
		t.Fatalf("Alloc() failed")
	}
	if h.BlockCount() != 1 {
		t.Errorf("BlockCount() = %d, want 1 (remainder too small to split)", h.BlockCount())
	}
}
