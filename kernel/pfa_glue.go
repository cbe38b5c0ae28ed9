//go:build amd64 && multiboot2

package main

import "novakernel/internal/pfa"

// Reserve the first 4 MiB of physical memory for the kernel image and
// its boot structures (the kernel heap is carved from the frame
// allocator above it, see heap_glue.go), the same
// below-the-image carve-out the teacher's heapInit comment describes
// (heap placed "well above the stack") before trusting the rest of RAM
// to the frame allocator.
const reservedLowMemory = 4 * 1024 * 1024

var physicalFrames pfa.Allocator

// initFrameAllocator finds the largest Multiboot2-reported available
// region, clips it to start no lower than reservedLowMemory, and hands
// the remainder to the bitmap allocator.
func initFrameAllocator(bootInfoAddr uintptr) {
	base, length := largestAvailableRegion(bootInfoAddr)

	if base < reservedLowMemory {
		shrink := reservedLowMemory - base
		if shrink >= length {
			consolePuts("FATAL: no usable memory above the kernel reservation\n")
			for {
				hlt()
			}
		}
		base += shrink
		length -= shrink
	}

	physicalFrames.Init(base, length)

	consolePuts("pfa: ")
	consolePutUint32(physicalFrames.TotalFrames())
	consolePuts(" frames available starting at 0x")
	consolePutHex64(uint64(base))
	consolePuts("\n")
}
