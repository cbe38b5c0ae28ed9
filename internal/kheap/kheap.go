// Package kheap implements the kernel heap: a first-fit, singly linked,
// coalescing allocator over a caller-supplied byte region. It keeps the
// teacher's heap.go shape (a header placed immediately before each
// block's payload, a forward-only linked list built once over the whole
// region) but switches the search policy from best-fit to the spec's
// first-fit, and coalesces on free instead of leaving that to a separate
// pass.
package kheap

import "unsafe"

// Alignment is the payload alignment the spec requires; headers
// themselves carry no such guarantee.
const Alignment = 16

// minSplitPayload is the smallest payload a split-off remainder block
// must be able to host; a remainder that can't fit a header plus this
// many bytes is left un-split and folded into the allocated block.
const minSplitPayload = 16

// header precedes every block's payload. It is intentionally a plain
// Go struct laid out by the compiler, not hand-packed, since nothing
// outside this package ever interprets its bytes.
type header struct {
	size    uint32 // payload size in bytes, excludes this header
	free    bool
	next    *header
}

var headerSize = uint32(unsafe.Sizeof(header{}))

// Heap is a first-fit coalescing allocator over [base, base+size).
// Zero value is not usable; call Init.
type Heap struct {
	head *header
	used uint32 // bytes in non-free blocks, header+payload
}

// Init carves the single initial block covering the whole region
// [base, base+size) and marks it free. base should already satisfy
// Alignment; the caller (boot-time heap bring-up) is responsible for
// that, exactly as the teacher's heapInit expects an aligned heapStart.
func (h *Heap) Init(base uintptr, size uintptr) {
	first := (*header)(unsafe.Pointer(base))
	first.size = uint32(size) - headerSize
	first.free = true
	first.next = nil
	h.head = first
	h.used = 0
}

func headerPtr(p unsafe.Pointer) *header {
	return (*header)(p)
}

func payloadOf(h *header) unsafe.Pointer {
	return unsafe.Pointer(uintptr(unsafe.Pointer(h)) + uintptr(headerSize))
}

func roundUp16(n uint32) uint32 {
	return (n + Alignment - 1) &^ (Alignment - 1)
}

// Alloc rounds size up to a 16-byte multiple, walks the block list for
// the first free block with enough capacity, splits it when the
// remainder can host a header plus minSplitPayload bytes, marks it used
// and returns the payload address. Returns 0 on out-of-memory; Alloc(0)
// returns 0.
func (h *Heap) Alloc(size uint32) uintptr {
	if size == 0 {
		return 0
	}
	want := roundUp16(size)

	for b := h.head; b != nil; b = b.next {
		if !b.free || b.size < want {
			continue
		}

		remainder := b.size - want
		if remainder >= headerSize+minSplitPayload {
			newBlockAddr := uintptr(unsafe.Pointer(b)) + uintptr(headerSize) + uintptr(want)
			newBlock := headerPtr(unsafe.Pointer(newBlockAddr))
			newBlock.size = remainder - headerSize
			newBlock.free = true
			newBlock.next = b.next

			b.size = want
			b.next = newBlock
		}

		b.free = false
		h.used += headerSize + b.size
		return uintptr(payloadOf(b))
	}
	return 0
}

// Calloc allocates n*size bytes and zeroes them.
func (h *Heap) Calloc(n, size uint32) uintptr {
	total := n * size
	ptr := h.Alloc(total)
	if ptr == 0 {
		return 0
	}
	buf := unsafe.Slice((*byte)(unsafe.Pointer(ptr)), total)
	for i := range buf {
		buf[i] = 0
	}
	return ptr
}

// Free marks the block owning ptr as free, then performs a single
// left-to-right coalescing pass merging any adjacent free blocks that
// resulted. A nil ptr, or a ptr to an already-free block, is a no-op.
func (h *Heap) Free(ptr uintptr) {
	if ptr == 0 {
		return
	}
	b := headerPtr(unsafe.Pointer(ptr - uintptr(headerSize)))
	if b.free {
		return
	}

	h.used -= headerSize + b.size
	b.free = true

	for cur := h.head; cur != nil; cur = cur.next {
		for cur.free && cur.next != nil && cur.next.free {
			merged := cur.next
			cur.size += headerSize + merged.size
			cur.next = merged.next
		}
	}
}

// Used returns the number of bytes (header+payload) currently held by
// non-free blocks.
func (h *Heap) Used() uint32 { return h.used }

// FreeBytes reports the number of bytes (header+payload) held by free
// blocks. Used()+FreeBytes() equals the size of the region passed to
// Init at all times.
func (h *Heap) FreeBytes() uint32 {
	var total uint32
	for b := h.head; b != nil; b = b.next {
		if b.free {
			total += headerSize + b.size
		}
	}
	return total
}

// BlockCount reports the number of blocks (free and used) currently in
// the list; used by tests asserting on coalescing behavior.
func (h *Heap) BlockCount() int {
	n := 0
	for b := h.head; b != nil; b = b.next {
		n++
	}
	return n
}
