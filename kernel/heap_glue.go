//go:build amd64 && multiboot2

package main

import (
	"novakernel/internal/kheap"
	"novakernel/internal/pfa"
)

// heapSizeFrames is the number of 4 KiB physical frames reserved for
// the kernel heap at boot. A fixed frame count, rather than "whatever
// is left," keeps the heap region and the general frame pool from
// fighting over the same memory the way a single best-effort region
// would, matching the teacher's own pattern of carving out a
// dedicated, fixed heap region up front (heapInit(heapStart)) instead
// of growing the heap from the page allocator on demand.
const heapSizeFrames = 256 // 1 MiB

var kernelHeap kheap.Heap

// initKernelHeap claims heapSizeFrames contiguous frames from the
// frame allocator and initializes the kernel heap over them.
func initKernelHeap() {
	base, ok := physicalFrames.AllocPages(heapSizeFrames)
	if !ok {
		consolePuts("FATAL: could not reserve kernel heap frames\n")
		for {
			hlt()
		}
	}

	kernelHeap.Init(base, uintptr(heapSizeFrames)*pfa.FrameSize)

	consolePuts("heap: ")
	consolePutUint32(heapSizeFrames * 4)
	consolePuts(" KiB at 0x")
	consolePutHex64(uint64(base))
	consolePuts("\n")
}

// kmalloc/kfree are the package-main-facing names the rest of the
// kernel (virtqueue buffers, PCI scratch space, driver state) calls,
// matching the teacher's kmalloc/kfree naming even though the
// implementation now lives in internal/kheap.
func kmalloc(size uint32) uintptr { return kernelHeap.Alloc(size) }
func kfree(ptr uintptr)           { kernelHeap.Free(ptr) }
