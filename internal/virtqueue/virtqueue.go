// Package virtqueue implements the split virtqueue primitive shared by
// the virtio-net driver: a descriptor table, an available ring (guest to
// host) and a used ring (host to guest), laid out exactly as the virtio
// 1.0 legacy transport expects so the structures can be handed to the
// device as DMA-visible memory. Grounded on the teacher's virtqueue.go
// (same three-structure split, same free-descriptor-chain bookkeeping)
// and on bobuhiro11/gokvm's virtio/net.go ring struct tags, adapted from
// a host-device emulator's view of the rings to the guest-driver view
// this kernel needs.
package virtqueue

import "unsafe"

// Descriptor flags (virtio 1.0 §2.6.5).
const (
	DescFNext     = 1 << 0 // descriptor continues via Next
	DescFWrite    = 1 << 1 // device writes this buffer (RX slots)
	DescFIndirect = 1 << 2
)

// Desc is one entry in the descriptor table: the address, length and
// chaining flags for one guest buffer.
type Desc struct {
	Addr  uint64
	Len   uint32
	Flags uint16
	Next  uint16
}

// UsedElem is one entry the device writes into the used ring after
// consuming a descriptor chain.
type UsedElem struct {
	ID  uint32
	Len uint32
}

// alignUp rounds n up to the given power-of-two alignment.
func alignUp(n, align uintptr) uintptr {
	return (n + align - 1) &^ (align - 1)
}

// Sizes returns the byte sizes of the descriptor table, available ring
// and used ring for a queue of the given size, plus the total a caller
// should reserve so DescTable, Avail and Used can each be placed at the
// alignment virtio's legacy PCI transport requires: the descriptor
// table and the available ring are contiguous with no padding between
// them, and only the used ring is page-aligned, placed immediately
// after the available ring. This matches how the device itself derives
// all three offsets from the single page-frame-number the driver
// writes to QueueAddr.
func Sizes(queueSize uint16) (descBytes, availBytes, usedBytes, total uintptr) {
	descBytes = uintptr(queueSize) * unsafe.Sizeof(Desc{})
	availBytes = 2 + 2 + uintptr(queueSize)*2 + 2                       // flags+idx+ring+used_event
	usedBytes = 2 + 2 + uintptr(queueSize)*unsafe.Sizeof(UsedElem{}) + 2 // flags+idx+ring+avail_event

	usedStart := alignUp(descBytes+availBytes, 4096)
	total = usedStart + alignUp(usedBytes, 4096)
	return
}

// Queue is a guest-side handle onto a virtqueue's three structures,
// which must already be laid out in DMA-visible memory at the addresses
// recorded here (see Sizes for the layout a caller should reserve).
type Queue struct {
	Size uint16

	descBase  uintptr
	availBase uintptr
	usedBase  uintptr

	freeHead    uint16
	numFree     uint16
	lastUsedIdx uint16

	// slots records the host-owned buffer address backing each
	// descriptor slot, so Send/Receive can hand callers a typed view
	// without re-deriving it from the descriptor table each time.
	slots []uintptr
}

// Init binds q to three already-allocated, zeroed regions at descBase,
// availBase and usedBase (whose sizes and alignment must match Sizes),
// and threads every descriptor onto the free list.
func (q *Queue) Init(size uint16, descBase, availBase, usedBase uintptr) {
	q.Size = size
	q.descBase = descBase
	q.availBase = availBase
	q.usedBase = usedBase
	q.slots = make([]uintptr, size)

	for i := uint16(0); i < size-1; i++ {
		q.desc(i).Next = i + 1
	}
	q.desc(size - 1).Next = 0xFFFF
	q.freeHead = 0
	q.numFree = size

	q.avail().Idx = 0
	q.used().Idx = 0
	q.lastUsedIdx = 0
}

type availRing struct {
	Flags uint16
	Idx   uint16
	// Ring and UsedEvent follow directly in memory; accessed via
	// ringSlot/usedEvent helpers rather than a flexible array member,
	// since Go structs can't express trailing variable-length arrays
	// the way the teacher's C-derived VirtQAvailable.Ring[0] does.
}

type usedRingHeader struct {
	Flags uint16
	Idx   uint16
}

func (q *Queue) desc(i uint16) *Desc {
	return (*Desc)(unsafe.Pointer(q.descBase + uintptr(i)*unsafe.Sizeof(Desc{})))
}

func (q *Queue) avail() *availRing {
	return (*availRing)(unsafe.Pointer(q.availBase))
}

func (q *Queue) availRingSlot(i uint16) *uint16 {
	base := q.availBase + unsafe.Sizeof(availRing{})
	return (*uint16)(unsafe.Pointer(base + uintptr(i)*2))
}

func (q *Queue) used() *usedRingHeader {
	return (*usedRingHeader)(unsafe.Pointer(q.usedBase))
}

func (q *Queue) usedRingSlot(i uint16) *UsedElem {
	base := q.usedBase + unsafe.Sizeof(usedRingHeader{})
	return (*UsedElem)(unsafe.Pointer(base + uintptr(i)*unsafe.Sizeof(UsedElem{})))
}

// AddDesc claims a descriptor from the free list, fills it in and
// returns its index, or 0xFFFF if the queue has no free descriptors.
func (q *Queue) AddDesc(addr uint64, length uint32, flags uint16, next uint16, hostBuf uintptr) uint16 {
	if q.numFree == 0 {
		return 0xFFFF
	}
	idx := q.freeHead
	d := q.desc(idx)
	q.freeHead = d.Next
	q.numFree--

	d.Addr = addr
	d.Len = length
	d.Flags = flags
	d.Next = next
	q.slots[idx] = hostBuf
	return idx
}

// FreeDescChain returns a descriptor chain starting at descIdx to the
// free list, following DescFNext links.
func (q *Queue) FreeDescChain(descIdx uint16) {
	cur := descIdx
	for {
		d := q.desc(cur)
		next := d.Next
		hasNext := d.Flags&DescFNext != 0
		d.Next = q.freeHead
		q.freeHead = cur
		q.numFree++
		if !hasNext || next == 0xFFFF {
			break
		}
		cur = next
	}
}

// PublishAvailable writes descIdx into the next available-ring slot and
// advances avail.Idx. The write to the ring slot happens-before the
// index bump: PublishAvailable calls Barrier() between the two (see
// Barrier) so the device never observes an advanced index with a stale
// ring entry.
func (q *Queue) PublishAvailable(descIdx uint16) {
	a := q.avail()
	*q.availRingSlot(a.Idx % q.Size) = descIdx
	Barrier()
	a.Idx++
}

// HasUsed reports whether the device has advanced used.Idx past the
// guest's last-seen position.
func (q *Queue) HasUsed() bool {
	idx := q.used().Idx
	Barrier()
	return idx != q.lastUsedIdx
}

// PopUsed returns the next used-ring entry's descriptor index and
// length, advancing lastUsedIdx. ok is false if HasUsed() was false.
func (q *Queue) PopUsed() (descIdx uint32, length uint32, ok bool) {
	if !q.HasUsed() {
		return 0, 0, false
	}
	elem := q.usedRingSlot(q.lastUsedIdx % q.Size)
	descIdx, length = elem.ID, elem.Len
	q.lastUsedIdx++
	return descIdx, length, true
}

// HostBuffer returns the host-owned buffer address recorded for slot i
// by AddDesc.
func (q *Queue) HostBuffer(i uint16) uintptr { return q.slots[i] }

// AvailIdx and UsedIdx expose the free-running ring counters for tests
// and diagnostics.
func (q *Queue) AvailIdx() uint16 { return q.avail().Idx }
func (q *Queue) UsedIdx() uint16  { return q.used().Idx }

// PushUsed is the device-side counterpart used only by the loopback
// test harness to simulate a device consuming a descriptor: it is not
// part of the guest driver's contract, which never writes the used ring.
func (q *Queue) PushUsed(descIdx uint32, length uint32) {
	u := q.used()
	slot := q.usedRingSlot(u.Idx % q.Size)
	slot.ID = descIdx
	slot.Len = length
	Barrier()
	u.Idx++
}
