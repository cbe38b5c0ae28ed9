//go:build amd64 && multiboot2

package main

import "novakernel/internal/ring"

// PS/2 keyboard driver: an IRQ1 handler that reads scancodes off port
// 0x60 and pushes decoded ASCII into a ring buffer, the same
// producer/consumer split the teacher keeps between an interrupt
// source and whatever drains it (e.g. its echo loop reading uartGetc
// off a polled UART). Here the producer is the ISR instead of a poll
// loop, so the ring buffer in internal/ring is what keeps the two
// sides from racing.

const (
	kbDataPort   = 0x60
	kbStatusPort = 0x64

	scancodeReleaseBit = 0x80

	scanLeftShift  = 0x2A
	scanRightShift = 0x36
	scanCapsLock   = 0x3A
	scanLeftCtrl   = 0x1D
	scanLeftAlt    = 0x38
	scanC          = 0x2E

	asciiCtrlC = 3
)

// scancodeSet1 maps a set-1 make-code to its unshifted ASCII value; 0
// marks a code this driver does not translate (function keys, arrows,
// etc. are left to a fuller driver than the spec requires).
var scancodeSet1 = [128]byte{
	0x02: '1', 0x03: '2', 0x04: '3', 0x05: '4', 0x06: '5',
	0x07: '6', 0x08: '7', 0x09: '8', 0x0A: '9', 0x0B: '0',
	0x0C: '-', 0x0D: '=', 0x0E: '\b',
	0x0F: '\t',
	0x10: 'q', 0x11: 'w', 0x12: 'e', 0x13: 'r', 0x14: 't',
	0x15: 'y', 0x16: 'u', 0x17: 'i', 0x18: 'o', 0x19: 'p',
	0x1A: '[', 0x1B: ']', 0x1C: '\n',
	0x1E: 'a', 0x1F: 's', 0x20: 'd', 0x21: 'f', 0x22: 'g',
	0x23: 'h', 0x24: 'j', 0x25: 'k', 0x26: 'l', 0x27: ';',
	0x28: '\'', 0x29: '`',
	0x2B: '\\',
	0x2C: 'z', 0x2D: 'x', 0x2E: 'c', 0x2F: 'v', 0x30: 'b',
	0x31: 'n', 0x32: 'm', 0x33: ',', 0x34: '.', 0x35: '/',
	0x39: ' ',
}

var scancodeSet1Shifted = [128]byte{
	0x02: '!', 0x03: '@', 0x04: '#', 0x05: '$', 0x06: '%',
	0x07: '^', 0x08: '&', 0x09: '*', 0x0A: '(', 0x0B: ')',
	0x0C: '_', 0x0D: '+',
	0x10: 'Q', 0x11: 'W', 0x12: 'E', 0x13: 'R', 0x14: 'T',
	0x15: 'Y', 0x16: 'U', 0x17: 'I', 0x18: 'O', 0x19: 'P',
	0x1A: '{', 0x1B: '}',
	0x1E: 'A', 0x1F: 'S', 0x20: 'D', 0x21: 'F', 0x22: 'G',
	0x23: 'H', 0x24: 'J', 0x25: 'K', 0x26: 'L', 0x27: ':',
	0x28: '"', 0x29: '~',
	0x2B: '|',
	0x2C: 'Z', 0x2D: 'X', 0x2E: 'C', 0x2F: 'V', 0x30: 'B',
	0x31: 'N', 0x32: 'M', 0x33: '<', 0x34: '>', 0x35: '?',
}

// keyboardModifiers tracks the live shift/ctrl/alt/caps state the ISR
// needs across calls; it is only ever touched with interrupts disabled
// (we run inside the ISR), so no lock is needed.
type keyboardModifiers struct {
	shift    bool
	ctrl     bool
	alt      bool
	capsLock bool
}

var kbMods keyboardModifiers
var kbBuffer = ring.New(256)

func keyboardInit() {
	registerIRQHandler(1, keyboardIRQHandler)
	picSetMask(1, false)
}

func keyboardIRQHandler(_ *Registers) {
	code := inb(kbDataPort)

	switch code {
	case scanLeftShift, scanRightShift:
		kbMods.shift = true
		return
	case scanLeftShift | scancodeReleaseBit, scanRightShift | scancodeReleaseBit:
		kbMods.shift = false
		return
	case scanLeftCtrl:
		kbMods.ctrl = true
		return
	case scanLeftCtrl | scancodeReleaseBit:
		kbMods.ctrl = false
		return
	case scanLeftAlt:
		kbMods.alt = true
		return
	case scanLeftAlt | scancodeReleaseBit:
		kbMods.alt = false
		return
	case scanCapsLock:
		kbMods.capsLock = !kbMods.capsLock
		return
	}

	if code&scancodeReleaseBit != 0 {
		return // key release, nothing further to decode
	}

	if kbMods.ctrl && code == scanC {
		kbBuffer.Push(asciiCtrlC)
		return
	}

	var ascii byte
	if kbMods.shift {
		ascii = scancodeSet1Shifted[code]
	} else {
		ascii = scancodeSet1[code]
	}
	if ascii == 0 {
		return
	}
	if kbMods.capsLock && ascii >= 'a' && ascii <= 'z' {
		ascii -= 'a' - 'A'
	} else if kbMods.capsLock && ascii >= 'A' && ascii <= 'Z' {
		ascii += 'a' - 'A'
	}

	kbBuffer.Push(ascii)
}

// HasChar reports whether a decoded byte is waiting in the ring buffer.
func HasChar() bool {
	return !kbBuffer.Empty()
}

// GetChar blocks by halting the CPU until the next interrupt delivers a
// byte, then returns it.
func GetChar() byte {
	for {
		c, ok := kbBuffer.Pop()
		if ok {
			return c
		}
		hlt()
	}
}

// ReadLine blocks (halting in GetChar between interrupts) until a line has
// been committed, then returns the line without the trailing newline.
// Backspace edits the in-progress line the way a shell's line editor
// expects; the buffer itself only ever holds raw decoded bytes, so all
// editing happens here rather than in the ISR. A Ctrl+C chord cancels
// the line in progress: ReadLine returns immediately with n=0 and
// cancelled=true, discarding whatever had been typed.
func ReadLine(dst []byte) (n int, cancelled bool) {
	for {
		c := GetChar()
		if c == asciiCtrlC {
			return 0, true
		}
		if c == '\n' || c == '\r' {
			return n, false
		}
		if c == '\b' {
			if n > 0 {
				n--
			}
			continue
		}
		if n < len(dst) {
			dst[n] = c
			n++
		}
	}
}
