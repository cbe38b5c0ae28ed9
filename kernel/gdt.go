//go:build amd64 && multiboot2

package main

import (
	"unsafe"

	"novakernel/internal/bitfield"
)

// gdtEntry is one 8-byte Global Descriptor Table entry. In long mode
// the base/limit fields are mostly ignored by the CPU (segmentation is
// effectively flat), but the access byte and the 64-bit-code flag in
// Flags still gate privilege level and executability, so they are the
// only fields this kernel actually computes.
type gdtEntry struct {
	LimitLow  uint16
	BaseLow   uint16
	BaseMid   uint8
	Access    uint8
	FlagsLim  uint8 // high nibble: flags, low nibble: limit bits 16-19
	BaseHigh  uint8
}

// Flags occupy the high nibble of FlagsLim; setGDTEntry shifts them
// into place, so these are nibble-relative bit positions (bit 1 = L,
// bit 3 = G), not the byte-relative positions the flags occupy once
// shifted.
const (
	gdtFlagLongMode = 1 << 1
	gdtFlagGranular = 1 << 3
)

// gdtPointer matches the operand LGDT expects: a 16-bit limit followed
// by a 64-bit linear base address.
type gdtPointer struct {
	Limit uint16
	Base  uint64
}

var gdtTable [5]gdtEntry
var gdtPtr gdtPointer

//go:linkname loadGDT loadGDT
//go:nosplit
func loadGDT(ptr uintptr, codeSelector uint16, dataSelector uint16)

func mustPackAccess(a bitfield.SegmentAccess) uint8 {
	b, err := bitfield.PackSegmentAccess(a)
	if err != nil {
		// Every field width here is fixed by this file, so a packing
		// error can only mean a programming mistake in the access byte
		// layout, not bad runtime input; fail loud rather than boot
		// with a corrupt GDT.
		consolePuts("FATAL: GDT access byte packing failed\n")
		for {
			hlt()
		}
	}
	return b
}

func setGDTEntry(i int, access bitfield.SegmentAccess, flags uint8) {
	gdtTable[i] = gdtEntry{
		LimitLow: 0,
		BaseLow:  0,
		BaseMid:  0,
		Access:   mustPackAccess(access),
		FlagsLim: flags << 4,
		BaseHigh: 0,
	}
}

// initGDT installs a flat 64-bit GDT: null, kernel code, kernel data,
// user code, user data. Segmentation is otherwise disabled by the
// long-mode flag, so every non-null entry spans the full address
// space; only Access and the long-mode flag carry meaning.
func initGDT() {
	gdtTable[0] = gdtEntry{}

	setGDTEntry(1, bitfield.SegmentAccess{
		ReadWrite: true, Executable: true, Descriptor: true, Present: true,
	}, gdtFlagLongMode)

	setGDTEntry(2, bitfield.SegmentAccess{
		ReadWrite: true, Descriptor: true, Present: true,
	}, 0)

	setGDTEntry(3, bitfield.SegmentAccess{
		ReadWrite: true, Executable: true, Descriptor: true, Present: true, DPL: 3,
	}, gdtFlagLongMode)

	setGDTEntry(4, bitfield.SegmentAccess{
		ReadWrite: true, Descriptor: true, Present: true, DPL: 3,
	}, 0)

	gdtPtr.Limit = uint16(len(gdtTable)*8 - 1)
	gdtPtr.Base = uint64(uintptr(unsafe.Pointer(&gdtTable[0])))

	loadGDT(uintptr(unsafe.Pointer(&gdtPtr)), 0x08, 0x10)
}
