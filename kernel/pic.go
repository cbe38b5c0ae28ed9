//go:build amd64 && multiboot2

package main

// 8259 PIC driver: remaps the master/slave pair off their power-on
// vectors (which collide with CPU exceptions) and onto irqBase..
// irqBase+15, and handles end-of-interrupt signaling including the
// spurious-IRQ7/IRQ15 case a real PIC can raise on a noisy bus.
// Register layout and the ICW1-4/OCW2/OCW3 state machine are grounded
// on the guest-visible side of BigBossBoolingB/VDATABPro's pic.go
// (PICController.writeCommandPort/writeDataPort), read here as "what a
// correct driver must write to reach that emulated state."

const (
	picMasterCmd  = 0x20
	picMasterData = 0x21
	picSlaveCmd   = 0xA0
	picSlaveData  = 0xA1

	icw1Init = 0x10
	icw1ICW4 = 0x01
	icw4_8086 = 0x01

	ocw3ReadISR = 0x0B // read register command + select ISR
	ocw3ReadIRR = 0x0A

	picEOI = 0x20

	// spuriousIRQMaster/Slave are the IRQ lines (7 and 15) a real 8259
	// can assert with no corresponding ISR bit set when the interrupt
	// line glitches low before the CPU samples it.
	spuriousIRQMaster = 7
	spuriousIRQSlave   = 15
)

// picRemap reprograms both PICs so IRQ0-7 land on vectors
// irqBase..irqBase+7 and IRQ8-15 on irqBase+8..irqBase+15, cascading
// the slave on IRQ2 the standard PC/AT way.
func picRemap() {
	masterMask := inb(picMasterData)
	slaveMask := inb(picSlaveData)

	outb(picMasterCmd, icw1Init|icw1ICW4)
	ioWaitDelay()
	outb(picSlaveCmd, icw1Init|icw1ICW4)
	ioWaitDelay()

	outb(picMasterData, irqBase) // ICW2: master vector offset
	ioWaitDelay()
	outb(picSlaveData, irqBase+8) // ICW2: slave vector offset
	ioWaitDelay()

	outb(picMasterData, 1<<2) // ICW3: slave attached to IRQ2
	ioWaitDelay()
	outb(picSlaveData, 2) // ICW3: slave's cascade identity
	ioWaitDelay()

	outb(picMasterData, icw4_8086)
	ioWaitDelay()
	outb(picSlaveData, icw4_8086)
	ioWaitDelay()

	outb(picMasterData, masterMask)
	outb(picSlaveData, slaveMask)
}

// picSetMask masks (disables) or unmasks a single IRQ line via OCW1.
func picSetMask(irq int, masked bool) {
	port := uint16(picMasterData)
	line := uint(irq)
	if irq >= 8 {
		port = picSlaveData
		line -= 8
	}
	cur := inb(port)
	if masked {
		cur |= 1 << line
	} else {
		cur &^= 1 << line
	}
	outb(port, cur)
}

// picReadISR reads the in-service register via OCW3, used only to
// disambiguate a real interrupt from a spurious one.
func picReadISR(master bool) uint8 {
	if master {
		outb(picMasterCmd, ocw3ReadISR)
		return inb(picMasterCmd)
	}
	outb(picSlaveCmd, ocw3ReadISR)
	return inb(picSlaveCmd)
}

// picIsSpurious reports whether the IRQ that just fired is a spurious
// IRQ7 (master) or IRQ15 (slave): the CPU was told an interrupt is
// pending but the corresponding ISR bit never got set. A spurious
// slave IRQ still requires an EOI to the master (to clear the cascade
// line) but never to the slave itself.
func picIsSpurious(irq int) bool {
	switch irq {
	case spuriousIRQMaster:
		if picReadISR(true)&(1<<7) == 0 {
			return true
		}
	case spuriousIRQSlave:
		if picReadISR(false)&(1<<7) == 0 {
			outb(picMasterCmd, picEOI)
			return true
		}
	}
	return false
}

// picSendEOI acknowledges IRQ irq at the master, first issuing an EOI
// to the slave as well when the interrupt came from it (IRQ8-15).
func picSendEOI(irq int) {
	if irq >= 8 {
		outb(picSlaveCmd, picEOI)
	}
	outb(picMasterCmd, picEOI)
}
