//go:build amd64 && multiboot2

package main

import _ "unsafe" // required by go:linkname

// Port I/O and control primitives linked from the kernel's assembly
// stub, following the same //go:linkname + //go:nosplit contract the
// teacher uses for its mmio_read/mmio_write/delay/dsb/bzero externs.
// The only difference is these wrap x86 IN/OUT instead of ARM MMIO
// loads and stores, since this platform's peripherals live in port
// space rather than being universally memory-mapped.

//go:linkname outb outb
//go:nosplit
func outb(port uint16, data uint8)

//go:linkname inb inb
//go:nosplit
func inb(port uint16) uint8

//go:linkname outw outw
//go:nosplit
func outw(port uint16, data uint16)

//go:linkname inw inw
//go:nosplit
func inw(port uint16) uint16

//go:linkname outl outl
//go:nosplit
func outl(port uint16, data uint32)

//go:linkname inl inl
//go:nosplit
func inl(port uint16) uint32

//go:linkname mmioRead32 mmioRead32
//go:nosplit
func mmioRead32(addr uintptr) uint32

//go:linkname mmioWrite32 mmioWrite32
//go:nosplit
func mmioWrite32(addr uintptr, val uint32)

//go:linkname delay delay
//go:nosplit
func delay(count int32)

//go:linkname bzero bzero
//go:nosplit
func bzero(ptr uintptr, size uint32)

//go:linkname cli cli
//go:nosplit
func cli()

//go:linkname sti sti
//go:nosplit
func sti()

//go:linkname hlt hlt
//go:nosplit
func hlt()

// ioWaitDelay gives a device a few microseconds to latch a port write,
// using a throwaway write to an unused port (0x80, the POST-code port)
// the way BIOS-era drivers traditionally do it rather than a counted
// spin loop the compiler might fold away.
//
//go:nosplit
func ioWaitDelay() {
	outb(0x80, 0)
}
