package virtqueue

import (
	"testing"
	"unsafe"
)

func newTestQueue(t *testing.T, size uint16) *Queue {
	t.Helper()
	descBytes, availBytes, usedBytes, total := Sizes(size)
	if descBytes == 0 || availBytes == 0 || usedBytes == 0 {
		t.Fatalf("Sizes(%d) returned a zero size", size)
	}

	buf := make([]byte, total+4096)
	base := uintptr(unsafe.Pointer(&buf[0]))
	base = (base + 4095) &^ 4095

	descBase := base
	availBase := descBase + descBytes
	usedBase := (availBase + availBytes + 4095) &^ 4095

	q := &Queue{}
	q.Init(size, descBase, availBase, usedBase)
	return q
}

func TestInitThreadsFullFreeList(t *testing.T) {
	q := newTestQueue(t, 8)
	for i := 0; i < 8; i++ {
		idx := q.AddDesc(uint64(i), 4, 0, 0xFFFF, 0)
		if idx == 0xFFFF {
			t.Fatalf("AddDesc() %d unexpectedly reported the queue full", i)
		}
	}
	if idx := q.AddDesc(99, 4, 0, 0xFFFF, 0); idx != 0xFFFF {
		t.Errorf("AddDesc() on an exhausted queue = %d, want 0xFFFF", idx)
	}
}

func TestPublishAvailableAdvancesIdx(t *testing.T) {
	q := newTestQueue(t, 4)
	idx := q.AddDesc(0x1000, 128, DescFWrite, 0xFFFF, 0xCAFE)
	q.PublishAvailable(idx)
	if q.AvailIdx() != 1 {
		t.Errorf("AvailIdx() = %d, want 1", q.AvailIdx())
	}
}

func TestHasUsedAndPopUsed(t *testing.T) {
	q := newTestQueue(t, 4)
	idx := q.AddDesc(0x2000, 64, 0, 0xFFFF, 0xBEEF)
	q.PublishAvailable(idx)

	if q.HasUsed() {
		t.Fatalf("HasUsed() before the device consumed anything should be false")
	}

	q.PushUsed(uint32(idx), 64)

	if !q.HasUsed() {
		t.Fatalf("HasUsed() after PushUsed should be true")
	}
	gotIdx, gotLen, ok := q.PopUsed()
	if !ok || gotIdx != uint32(idx) || gotLen != 64 {
		t.Errorf("PopUsed() = (%d, %d, %v), want (%d, 64, true)", gotIdx, gotLen, ok, idx)
	}
	if q.HasUsed() {
		t.Errorf("HasUsed() should be false again once the only entry is drained")
	}
}

func TestFreeDescChainFollowsNextAndReplenishesFreeList(t *testing.T) {
	q := newTestQueue(t, 4)

	// Build a two-descriptor chain: head -> tail, with DescFNext set on
	// the head so FreeDescChain must follow Next rather than stopping.
	tail := q.AddDesc(0x3000, 16, 0, 0xFFFF, 0)
	head := q.AddDesc(0x4000, 16, DescFNext, tail, 0)

	for i := 0; i < 2; i++ {
		if idx := q.AddDesc(0x5000, 16, 0, 0xFFFF, 0); idx == 0xFFFF {
			t.Fatalf("queue unexpectedly exhausted after only %d AddDesc calls", i+3)
		}
	}
	if idx := q.AddDesc(0x6000, 16, 0, 0xFFFF, 0); idx != 0xFFFF {
		t.Fatalf("queue of size 4 should be exhausted after 4 AddDesc calls, got idx %d", idx)
	}

	q.FreeDescChain(head)

	reclaimed := 0
	for {
		idx := q.AddDesc(0x7000, 16, 0, 0xFFFF, 0)
		if idx == 0xFFFF {
			break
		}
		reclaimed++
	}
	if reclaimed != 2 {
		t.Errorf("reclaimed %d descriptors after freeing a 2-entry chain, want 2", reclaimed)
	}
}

func TestHostBufferRoundTrips(t *testing.T) {
	q := newTestQueue(t, 4)
	idx := q.AddDesc(0x1000, 128, DescFWrite, 0xFFFF, 0xDEADBEEF)
	if got := q.HostBuffer(idx); got != 0xDEADBEEF {
		t.Errorf("HostBuffer(%d) = 0x%x, want 0xDEADBEEF", idx, got)
	}
}

func TestSizesTotalIsPageMultiple(t *testing.T) {
	descBytes, availBytes, _, total := Sizes(256)
	if descBytes == 0 || availBytes == 0 || total == 0 {
		t.Fatalf("Sizes(256) returned zero sizes")
	}
	if total%4096 != 0 {
		t.Errorf("Sizes(256) total = %d, want a multiple of 4096", total)
	}
}
