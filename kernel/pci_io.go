//go:build amd64 && multiboot2

package main

import "novakernel/internal/pciregistry"

// PCI configuration space access via the legacy port-I/O mechanism
// (0xCF8/0xCFC), grounded on the teacher's pci_qemu.go config-read
// helper, same bus/slot/func/offset addressing, but through real I/O
// ports instead of the AArch64 virt machine's memory-mapped ECAM
// window, since this kernel targets a PC/AT-compatible chipset.
const (
	pciConfigAddress = 0xCF8
	pciConfigData    = 0xCFC

	pciOffsetVendorDevice = 0x00
	pciOffsetClassRev     = 0x08
	pciOffsetHeaderType   = 0x0E
	pciOffsetBAR0         = 0x10
	pciOffsetIRQLine      = 0x3C
	pciOffsetCommand      = 0x04

	pciCommandBusMaster = 1 << 2
)

func pciConfigReadDWord(bus, slot, fn uint8, offset uint8) uint32 {
	addr := uint32(1<<31) |
		uint32(bus)<<16 |
		uint32(slot)<<11 |
		uint32(fn)<<8 |
		uint32(offset&0xFC)
	outl(pciConfigAddress, addr)
	return inl(pciConfigData)
}

func pciConfigWriteDWord(bus, slot, fn uint8, offset uint8, value uint32) {
	addr := uint32(1<<31) |
		uint32(bus)<<16 |
		uint32(slot)<<11 |
		uint32(fn)<<8 |
		uint32(offset&0xFC)
	outl(pciConfigAddress, addr)
	outl(pciConfigData, value)
}

var pciDevices pciregistry.Registry

// pciEnableBusMaster sets the bus-master bit in a device's command
// register, required before any DMA-capable device (ATA PIO needs
// none, but virtio-net does) can write guest memory.
func pciEnableBusMaster(dev *pciregistry.Device) {
	cmd := pciConfigReadDWord(dev.Bus, dev.Slot, dev.Func, pciOffsetCommand)
	cmd |= pciCommandBusMaster
	pciConfigWriteDWord(dev.Bus, dev.Slot, dev.Func, pciOffsetCommand, cmd)
	dev.BusMaster = true
}

// pciScan walks every bus/slot/function and records every function
// that responds (vendor ID != 0xFFFF) into the registry.
func pciScan() {
	for bus := 0; bus < 256; bus++ {
		for slot := 0; slot < 32; slot++ {
			for fn := 0; fn < 8; fn++ {
				b, s, f := uint8(bus), uint8(slot), uint8(fn)

				idWord := pciConfigReadDWord(b, s, f, pciOffsetVendorDevice)
				vendorID := uint16(idWord & 0xFFFF)
				if vendorID == 0xFFFF {
					if fn == 0 {
						break // no device in this slot at all
					}
					continue
				}
				deviceID := uint16(idWord >> 16)

				classRev := pciConfigReadDWord(b, s, f, pciOffsetClassRev)
				irqWord := pciConfigReadDWord(b, s, f, pciOffsetIRQLine)

				dev := pciregistry.Device{
					Bus: b, Slot: s, Func: f,
					VendorID: vendorID, DeviceID: deviceID,
					ProgIF:   uint8(classRev >> 8),
					Subclass: uint8(classRev >> 16),
					Class:    uint8(classRev >> 24),
					IRQLine:  uint8(irqWord & 0xFF),
					IRQPin:   uint8((irqWord >> 8) & 0xFF),
				}
				for bar := 0; bar < 6; bar++ {
					dev.BAR[bar] = pciConfigReadDWord(b, s, f, uint8(pciOffsetBAR0+bar*4))
				}

				pciDevices.Add(dev)

				headerType := pciConfigReadDWord(b, s, f, pciOffsetHeaderType) >> 16 & 0xFF
				if fn == 0 && headerType&0x80 == 0 {
					break // not multi-function, skip remaining functions
				}
			}
		}
	}

	consolePuts("pci: found ")
	consolePutUint32(uint32(pciDevices.Count()))
	consolePuts(" device(s)\n")
}
