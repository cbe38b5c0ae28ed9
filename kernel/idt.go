//go:build amd64 && multiboot2

package main

import "unsafe"

// idtEntry is one 16-byte IDT gate descriptor (AMD64 Vol.2 §4.8.4,
// interrupt-gate shape). Contract mirrors gopher-os's gate_amd64.go:
// a flat array of gates, one stub per vector, dispatching into a
// single Go-level handler that receives a Registers-shaped frame.
type idtEntry struct {
	OffsetLow  uint16
	Selector   uint16
	IST        uint8
	TypeAttr   uint8
	OffsetMid  uint16
	OffsetHigh uint32
	Reserved   uint32
}

type idtPointer struct {
	Limit uint16
	Base  uint64
}

const (
	idtGateInterrupt64 = 0x8E // present, DPL0, 64-bit interrupt gate
	idtEntryCount      = 256
)

var idtTable [idtEntryCount]idtEntry
var idtPtr idtPointer

//go:linkname loadIDT loadIDT
//go:nosplit
func loadIDT(ptr uintptr)

// isrStubTable is filled in by assembly with the address of each
// vector's trampoline (it saves registers, pushes the vector number,
// and calls dispatchInterrupt). Exposed here so Go code can read the
// addresses back when building gate descriptors, following the same
// "assembly owns the entry trampoline, Go owns the table" split the
// teacher's exception_vectors_start uses.
//
//go:linkname isrStubTable isrStubTable
var isrStubTable [idtEntryCount]uintptr

func setIDTGate(vector int, handlerAddr uintptr, selector uint16, typeAttr uint8) {
	idtTable[vector] = idtEntry{
		OffsetLow:  uint16(handlerAddr),
		Selector:   selector,
		IST:        0,
		TypeAttr:   typeAttr,
		OffsetMid:  uint16(handlerAddr >> 16),
		OffsetHigh: uint32(handlerAddr >> 32),
		Reserved:   0,
	}
}

// initIDT installs a vector for every gate from the assembly stub
// table, then loads IDTR.
func initIDT() {
	for v := 0; v < idtEntryCount; v++ {
		setIDTGate(v, isrStubTable[v], 0x08, idtGateInterrupt64)
	}

	idtPtr.Limit = uint16(unsafe.Sizeof(idtTable) - 1)
	idtPtr.Base = uint64(uintptr(unsafe.Pointer(&idtTable[0])))
	loadIDT(uintptr(unsafe.Pointer(&idtPtr)))
}

// Registers is the CPU state saved by an ISR stub before it calls
// dispatchInterrupt, shaped after gopher-os's gate_amd64.go Registers
// struct: general-purpose registers first, then the vector/error code
// the stub pushes, then the hardware-pushed interrupt frame.
type Registers struct {
	R15, R14, R13, R12, R11, R10, R9, R8 uint64
	RBP, RDI, RSI, RDX, RCX, RBX, RAX    uint64

	InterruptNumber uint64
	ErrorCode       uint64

	RIP, CS, RFLAGS, RSP, SS uint64
}

// CPU exception vectors (AMD64 Vol.3 §6.15).
const (
	excDivideError       = 0
	excDebug             = 1
	excNMI               = 2
	excBreakpoint        = 3
	excOverflow          = 4
	excBoundRange        = 5
	excInvalidOpcode     = 6
	excDeviceNotAvail    = 7
	excDoubleFault       = 8
	excInvalidTSS        = 10
	excSegmentNotPresent = 11
	excStackFault        = 12
	excGeneralProtection = 13
	excPageFault         = 14
)

// irqBase is the vector the PIC's master line is remapped to start at
// (see pic.go); IRQ n arrives as vector irqBase+n.
const irqBase = 32

type irqHandlerFn func(*Registers)

var irqHandlers [16]irqHandlerFn

// registerIRQHandler installs fn as the handler for the given IRQ
// line (0-15). Drivers call this during their own init instead of the
// dispatch table hard-coding every device, mirroring how the teacher
// keeps GIC dispatch (IRQHandler) separate from device-specific logic.
func registerIRQHandler(irq int, fn irqHandlerFn) {
	irqHandlers[irq] = fn
}

// dispatchInterrupt is called by every ISR stub with the saved frame.
// It routes CPU exceptions to handleException and device interrupts
// to the registered IRQ handler, then acknowledges the PIC for IRQs.
//
//go:nosplit
func dispatchInterrupt(regs *Registers) {
	v := regs.InterruptNumber

	if v < irqBase {
		handleException(regs)
		return
	}

	irq := int(v - irqBase)
	if irq < 16 {
		if picIsSpurious(irq) {
			return
		}
		if h := irqHandlers[irq]; h != nil {
			h(regs)
		}
		picSendEOI(irq)
	}
}

func handleException(regs *Registers) {
	consolePuts("EXCEPTION vector=")
	consolePutUint32(uint32(regs.InterruptNumber))
	consolePuts(" error=0x")
	consolePutHex64(regs.ErrorCode)
	consolePuts(" rip=0x")
	consolePutHex64(regs.RIP)
	consolePuts("\n")

	switch regs.InterruptNumber {
	case excPageFault:
		consolePuts("page fault at 0x")
		consolePutHex64(readCR2())
		consolePuts("\n")
	case excGeneralProtection:
		consolePuts("general protection fault\n")
	case excDoubleFault:
		consolePuts("double fault - halting\n")
		for {
			hlt()
		}
	}

	if regs.InterruptNumber < irqBase {
		consolePuts("unrecoverable exception - halting\n")
		for {
			hlt()
		}
	}
}

//go:linkname readCR2 readCR2
//go:nosplit
func readCR2() uint64
