//go:build amd64 && multiboot2

package main

import (
	_ "unsafe" // required by go:linkname

	"novakernel/internal/pciregistry"
	"novakernel/internal/virtqueue"
)

// Legacy (transitional) virtio-pci NIC driver. Bring-up sequence
// (status register ACK/DRIVER/FEATURES_OK/DRIVER_OK, queue select,
// queue PFN) and the 10-byte virtio-net header come from
// bobuhiro11/gokvm's virtio/net.go; the split-ring mechanics reuse
// internal/virtqueue, whose own layout is grounded on the teacher's
// virtqueue.go.

const (
	virtioVendorID    = 0x1AF4
	virtioNetDeviceID = 0x1000 // legacy transitional ID (0x1040 is the 1.0 ID)

	virtioClassNetwork     = 0x02
	virtioSubclassEthernet = 0x00
)

// Legacy virtio-pci I/O-space register offsets (virtio legacy spec
// §4.1.4.8, "Legacy Interfaces: A Note on PCI Device Layout").
const (
	vioRegDeviceFeatures = 0x00
	vioRegDriverFeatures = 0x04
	vioRegQueueAddr      = 0x08
	vioRegQueueSize      = 0x0C
	vioRegQueueSelect    = 0x0E
	vioRegQueueNotify    = 0x10
	vioRegStatus         = 0x12
	vioRegISR            = 0x13
)

const (
	vioStatusAck        = 1
	vioStatusDriver     = 2
	vioStatusDriverOK   = 4
	vioStatusFeaturesOK = 8
	vioStatusFailed     = 0x80
)

const (
	netQueueRX = 0
	netQueueTX = 1

	netQueueSize = 256
)

// netHeader is the virtio-net per-packet header every buffer must be
// prefixed with (virtio legacy spec §5.1.6.1). No offload flags are
// negotiated, so every field is zeroed and ignored.
type netHeader struct {
	Flags      uint8
	GSOType    uint8
	HdrLen     uint16
	GSOSize    uint16
	CsumStart  uint16
	CsumOffset uint16
}

const netHeaderSize = 10 // explicit, since padding would break wire layout

type NetDevice struct {
	ioBase uint16
	rx, tx virtqueue.Queue
	mac    [6]byte
}

var netDev NetDevice
var netInitialized bool

// NetIsInitialized reports whether virtioNetInit completed bring-up.
func NetIsInitialized() bool {
	return netInitialized
}

// virtioNetInit locates the first virtio-net function on the PCI bus,
// negotiates it into the driver-ok state with no optional features,
// and stands up its RX/TX virtqueues.
func virtioNetInit() bool {
	// Every virtqueue publication below must be visible to the device
	// before avail.idx advances; install the real fence before any
	// queue is touched (barrier.go's no-op default is only for
	// virtqueue's own host-side unit tests).
	virtqueue.Barrier = mfence

	dev, ok := pciDevices.FindByID(virtioVendorID, virtioNetDeviceID)
	if !ok {
		dev, ok = pciDevices.FindByClass(virtioClassNetwork, virtioSubclassEthernet)
		if !ok {
			return false
		}
	}

	pciEnableBusMaster(&dev)
	netDev.ioBase = uint16(dev.BAR[0] &^ 0x3) // BAR0 low bit marks I/O space; mask it off

	outb(netDev.ioBase+vioRegStatus, 0)
	outb(netDev.ioBase+vioRegStatus, vioStatusAck)
	outb(netDev.ioBase+vioRegStatus, vioStatusAck|vioStatusDriver)

	// No optional features (checksum offload, MRG_RXBUF, ...) are
	// requested; writing back 0 tells the device to fall back to the
	// baseline legacy-net contract.
	outl(netDev.ioBase+vioRegDriverFeatures, 0)

	outb(netDev.ioBase+vioRegStatus, vioStatusAck|vioStatusDriver|vioStatusFeaturesOK)
	if inb(netDev.ioBase+vioRegStatus)&vioStatusFeaturesOK == 0 {
		outb(netDev.ioBase+vioRegStatus, vioStatusFailed)
		return false
	}

	if !setupQueue(netQueueRX, &netDev.rx) || !setupQueue(netQueueTX, &netDev.tx) {
		outb(netDev.ioBase+vioRegStatus, vioStatusFailed)
		return false
	}

	outb(netDev.ioBase+vioRegStatus, vioStatusAck|vioStatusDriver|vioStatusFeaturesOK|vioStatusDriverOK)

	postRXBuffers()

	registerIRQHandler(int(dev.IRQLine), netDev.irqHandler)
	picSetMask(int(dev.IRQLine), false)

	netInitialized = true
	return true
}

// setupQueue selects queueIdx on the device, reads back its negotiated
// size, carves DMA-visible memory from the kernel heap for the three
// virtqueue structures, and tells the device their physical (here,
// identity-mapped so numerically equal to virtual) page frame number.
func setupQueue(queueIdx uint16, q *virtqueue.Queue) bool {
	outw(netDev.ioBase+vioRegQueueSelect, queueIdx)
	size := inw(netDev.ioBase + vioRegQueueSize)
	if size == 0 || size > netQueueSize {
		size = netQueueSize // absent or unreasonable hint: fall back to a small default
	}

	descBytes, availBytes, _, total := virtqueue.Sizes(size)
	region := kmalloc(uint32(total) + 4096)
	if region == 0 {
		return false
	}
	aligned := (region + 4095) &^ 4095
	bzero(aligned, uint32(total))

	// Legacy virtio places the available ring immediately after the
	// descriptor table (no padding between them) and only page-aligns
	// the used ring; the device derives both offsets the same way from
	// the single queue-PFN it's given, so the driver's layout here must
	// match exactly rather than just happening to land on a page
	// boundary for the common queueSize==256 case.
	descBase := aligned
	availBase := descBase + descBytes
	usedBase := (availBase + availBytes + 4095) &^ 4095

	q.Init(size, descBase, availBase, usedBase)

	const pageShift = 12
	outl(netDev.ioBase+vioRegQueueAddr, uint32(descBase>>pageShift))
	return true
}

// rxBufSize is header-plus-max-standard-Ethernet-frame, the size every
// RX descriptor is allocated at and re-posted at after being drained.
const rxBufSize = netHeaderSize + 1514

// postRXBuffers hands every RX descriptor to the device up front so
// incoming packets have somewhere to land before the first interrupt.
func postRXBuffers() {
	const bufSize = rxBufSize
	for i := 0; i < netQueueSize; i++ {
		buf := kmalloc(bufSize)
		if buf == 0 {
			break
		}
		idx := netDev.rx.AddDesc(uint64(buf), bufSize, virtqueue.DescFWrite, 0xFFFF, buf)
		if idx == 0xFFFF {
			kfree(buf)
			break
		}
		netDev.rx.PublishAvailable(idx)
	}
	outw(netDev.ioBase+vioRegQueueNotify, netQueueRX)
}

// Send transmits one Ethernet frame, prefixing it with a zeroed
// virtio-net header as the legacy baseline contract requires.
func (n *NetDevice) Send(frame []byte) bool {
	total := uint32(netHeaderSize + len(frame))
	buf := kmalloc(total)
	if buf == 0 {
		return false
	}
	bzero(buf, netHeaderSize)
	copyToPhys(buf+netHeaderSize, frame)

	idx := n.tx.AddDesc(uint64(buf), total, 0, 0xFFFF, buf)
	if idx == 0xFFFF {
		kfree(buf)
		return false
	}
	n.tx.PublishAvailable(idx)
	outw(n.ioBase+vioRegQueueNotify, netQueueTX)
	return true
}

// Receive pops the next completed RX descriptor, strips the 10-byte
// virtio-net header and copies the payload into dst, bounded by
// len(dst). ok reports whether a completed descriptor was available at
// all; a device-reported length shorter than the header (including 0,
// an empty slot) yields a 0-byte copy but still ok, and the slot is
// always returned to the device regardless of how much was copied.
func (n *NetDevice) Receive(dst []byte) (length int, ok bool) {
	descIdx, total, has := n.rx.PopUsed()
	if !has {
		return 0, false
	}
	buf := n.rx.HostBuffer(uint16(descIdx))

	if total >= netHeaderSize {
		length = copyFromPhys(dst, buf+netHeaderSize, total-netHeaderSize)
	}

	n.rx.FreeDescChain(uint16(descIdx))
	idx := n.rx.AddDesc(uint64(buf), rxBufSize, virtqueue.DescFWrite, 0xFFFF, buf)
	if idx != 0xFFFF {
		n.rx.PublishAvailable(idx)
		outw(n.ioBase+vioRegQueueNotify, netQueueRX)
	}
	return length, true
}

// irqHandler drains the used ring for both queues: TX entries just
// free their buffer, RX entries are handed to Receive's caller via a
// registered callback (kept minimal since a full protocol stack is out
// of scope for this driver).
func (n *NetDevice) irqHandler(_ *Registers) {
	inb(n.ioBase + vioRegISR) // reading ISR clears it and acks the device

	for {
		descIdx, _, ok := n.tx.PopUsed()
		if !ok {
			break
		}
		kfree(n.tx.HostBuffer(uint16(descIdx)))
	}

	for {
		var frame [rxBufSize - netHeaderSize]byte
		length, ok := n.Receive(frame[:])
		if !ok {
			break
		}
		onFrameReceived(frame[:length])
	}
}

// onFrameReceived is overridable by whatever higher-level networking
// the kernel eventually grows; the default just logs arrival length,
// matching the spec's stance that the driver's job ends at delivering
// raw frames. frame is already header-stripped and bounded by the
// caller's buffer, per Receive's contract.
var onFrameReceived = func(frame []byte) {
	consolePuts("net: rx ")
	consolePutUint32(uint32(len(frame)))
	consolePuts(" bytes\n")
}

//go:linkname copyToPhys copyToPhys
//go:nosplit
func copyToPhys(dst uintptr, src []byte)

// copyFromPhys copies min(len(dst), n) bytes from the identity-mapped
// physical address src into dst and returns the number of bytes
// copied, the inverse of copyToPhys.
//
//go:linkname copyFromPhys copyFromPhys
//go:nosplit
func copyFromPhys(dst []byte, src uintptr, n uint32) int

// mfence is a full memory fence, installed as internal/virtqueue's
// Barrier before this driver touches any queue, ordering the writes
// that build a descriptor/ring entry before the store that advances
// avail.idx the way the split-ring protocol requires.
//
//go:linkname mfence mfence
//go:nosplit
func mfence()
