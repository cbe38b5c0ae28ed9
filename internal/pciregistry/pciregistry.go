// Package pciregistry holds the fixed-capacity table of devices
// discovered by a PCI configuration-space scan, and the two lookups the
// rest of the kernel needs: by (vendor, device) and by (class, subclass).
// Grounded on the teacher's pci_qemu.go, which walks every bus/slot/
// function and keeps a small in-memory device list, and on
// bobuhiro11/gokvm's pci.DeviceHeader, whose field set (vendor/device
// IDs, class triple, BARs, IRQ line/pin, command register) this
// package's Device mirrors.
package pciregistry

import "novakernel/internal/bitfield"

// MaxDevices bounds the registry the way a freestanding kernel must:
// no slice growth once paged memory is scarce, just a fixed backing
// array sized for any bus/slot/function combination QEMU's default
// machine types actually populate.
const MaxDevices = 64

// Device is everything the kernel cares about for one function found
// during enumeration.
type Device struct {
	Bus, Slot, Func uint8

	VendorID, DeviceID uint16

	Class, Subclass, ProgIF uint8

	// BAR holds up to six 32-bit base address registers as read from
	// config space, unmasked (flag bits still present in BAR[n]&0xF).
	BAR [6]uint32

	IRQLine, IRQPin uint8

	BusMaster bool
}

// classKey packs the lookup-relevant fields through the shared
// bitfield primitive, so class/subclass comparison is a single integer
// compare rather than a field-by-field one. The pack can only fail if a
// field overflows its bit width, which config-space bytes never do, so
// a failure here collapses to the key 0 (the legacy/unclassified
// class), which no real device triggers.
func classKey(class, subclass, progIF uint8) uint32 {
	packed, err := bitfield.PackClassKey(bitfield.ClassKey{
		Class:    uint32(class),
		Subclass: uint32(subclass),
		ProgIF:   uint32(progIF),
	})
	if err != nil {
		return 0
	}
	return packed
}

// Registry is a fixed-capacity, append-only vector of discovered
// devices, built once during boot-time PCI enumeration.
type Registry struct {
	devices [MaxDevices]Device
	count   int
}

// Add appends dev to the registry. It is a no-op once MaxDevices has
// been reached, mirroring the teacher's bounded device array rather
// than growing storage after paging is live.
func (r *Registry) Add(dev Device) bool {
	if r.count >= MaxDevices {
		return false
	}
	r.devices[r.count] = dev
	r.count++
	return true
}

// Count returns the number of devices currently recorded.
func (r *Registry) Count() int { return r.count }

// At returns the device at index i and true, or a zero Device and false
// if i is out of range.
func (r *Registry) At(i int) (Device, bool) {
	if i < 0 || i >= r.count {
		return Device{}, false
	}
	return r.devices[i], true
}

// FindByID returns the first recorded device whose vendor/device ID
// pair matches, and true. Repeated calls with the same pair return an
// identical Device value, since the registry never mutates entries
// after Add.
func (r *Registry) FindByID(vendorID, deviceID uint16) (Device, bool) {
	for i := 0; i < r.count; i++ {
		d := r.devices[i]
		if d.VendorID == vendorID && d.DeviceID == deviceID {
			return d, true
		}
	}
	return Device{}, false
}

// FindByClass returns the first recorded device whose class/subclass
// pair matches, ignoring ProgIF (callers that also need to
// disambiguate on ProgIF should compare it themselves on the returned
// Device).
func (r *Registry) FindByClass(class, subclass uint8) (Device, bool) {
	want := classKey(class, subclass, 0)
	for i := 0; i < r.count; i++ {
		d := r.devices[i]
		if classKey(d.Class, d.Subclass, 0) == want {
			return d, true
		}
	}
	return Device{}, false
}

// AllByClass appends every recorded device matching class/subclass into
// dst and returns the extended slice, for callers that must consider
// more than one matching function (e.g. more than one NIC).
func (r *Registry) AllByClass(class, subclass uint8, dst []Device) []Device {
	for i := 0; i < r.count; i++ {
		d := r.devices[i]
		if d.Class == class && d.Subclass == subclass {
			dst = append(dst, d)
		}
	}
	return dst
}
