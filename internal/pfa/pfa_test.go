package pfa

import "testing"

const testBase = uintptr(0x100000)

func newTestAllocator(frames uint32) *Allocator {
	a := &Allocator{}
	a.Init(testBase, uintptr(frames)*FrameSize)
	return a
}

func TestAllocPageAlignedAndInWindow(t *testing.T) {
	a := newTestAllocator(4)

	addr, ok := a.AllocPage()
	if !ok {
		t.Fatalf("AllocPage() failed on a fresh allocator")
	}
	if addr%FrameSize != 0 {
		t.Errorf("AllocPage() = 0x%x, want 4 KiB aligned", addr)
	}
	if addr < testBase || addr >= testBase+4*FrameSize {
		t.Errorf("AllocPage() = 0x%x, want in [0x%x, 0x%x)", addr, testBase, testBase+4*FrameSize)
	}
}

func TestFreeCountTracksClearedBits(t *testing.T) {
	a := newTestAllocator(8)
	if a.FreeCount() != 8 {
		t.Fatalf("FreeCount() = %d, want 8", a.FreeCount())
	}

	addr, ok := a.AllocPage()
	if !ok {
		t.Fatalf("AllocPage() failed")
	}
	if a.FreeCount() != 7 {
		t.Errorf("FreeCount() after one alloc = %d, want 7", a.FreeCount())
	}

	a.FreePage(addr)
	if a.FreeCount() != 8 {
		t.Errorf("FreeCount() after free = %d, want 8", a.FreeCount())
	}
}

func TestFreePageThenAllocPageReturnsSameAddress(t *testing.T) {
	a := newTestAllocator(4)

	addr, ok := a.AllocPage()
	if !ok {
		t.Fatalf("AllocPage() failed")
	}
	before := a.FreeCount()

	a.FreePage(addr)
	if a.FreeCount() != before+1 {
		t.Fatalf("FreeCount() after free = %d, want %d", a.FreeCount(), before+1)
	}

	got, ok := a.AllocPage()
	if !ok || got != addr {
		t.Errorf("AllocPage() after free = 0x%x, ok=%v, want 0x%x, true", got, ok, addr)
	}
}

func TestAllocPagesExactContiguousRun(t *testing.T) {
	a := newTestAllocator(256)

	first, ok := a.AllocPages(4)
	if !ok || first != testBase {
		t.Fatalf("AllocPages(4) = 0x%x, ok=%v, want 0x%x, true", first, ok, testBase)
	}

	second, ok := a.AllocPages(4)
	if !ok || second != testBase+4*FrameSize {
		t.Fatalf("AllocPages(4) second call = 0x%x, ok=%v, want 0x%x, true", second, ok, testBase+4*FrameSize)
	}

	a.FreePages(first, 4)
	third, ok := a.AllocPages(4)
	if !ok || third != first {
		t.Errorf("AllocPages(4) after FreePages = 0x%x, ok=%v, want 0x%x, true", third, ok, first)
	}
}

func TestAllocPagesFailsWithoutPartialAllocation(t *testing.T) {
	a := newTestAllocator(4)

	// consume exactly one frame so only a 3-long run remains
	if _, ok := a.AllocPage(); !ok {
		t.Fatalf("AllocPage() failed")
	}
	before := a.FreeCount()

	if _, ok := a.AllocPages(4); ok {
		t.Fatalf("AllocPages(4) unexpectedly succeeded with only 3 contiguous frames free")
	}
	if a.FreeCount() != before {
		t.Errorf("AllocPages() failure changed FreeCount from %d to %d, want no partial allocation", before, a.FreeCount())
	}
}

func TestAllocPagesZeroReturnsFalse(t *testing.T) {
	a := newTestAllocator(4)
	if _, ok := a.AllocPages(0); ok {
		t.Errorf("AllocPages(0) succeeded, want false")
	}
}

func TestFreePageOutOfRangeIsNoOp(t *testing.T) {
	a := newTestAllocator(4)
	before := a.FreeCount()

	a.FreePage(testBase - FrameSize) // below window
	a.FreePage(testBase + 100*FrameSize) // above window
	a.FreePage(testBase + 1) // not frame-aligned

	if a.FreeCount() != before {
		t.Errorf("FreeCount() changed after no-op frees: got %d, want %d", a.FreeCount(), before)
	}
}

func TestDoubleFreeIsNoOp(t *testing.T) {
	a := newTestAllocator(4)
	addr, _ := a.AllocPage()
	a.FreePage(addr)
	before := a.FreeCount()
	a.FreePage(addr) // already free
	if a.FreeCount() != before {
		t.Errorf("double free changed FreeCount: got %d, want %d", a.FreeCount(), before)
	}
}
