package bitfield

// SegmentAccess represents the access byte of a GDT descriptor (AMD64
// Vol.2 §4.8). Packed/unpacked with the same tag convention the teacher
// used for PageFlags, but sized to the 8-bit access byte rather than a
// 32-bit word.
type SegmentAccess struct {
	Accessed   bool   `bitfield:",1"`
	ReadWrite  bool   `bitfield:",1"`
	Direction  bool   `bitfield:",1"` // conforming (code) / expand-down (data)
	Executable bool   `bitfield:",1"`
	Descriptor bool   `bitfield:",1"` // 1 = code/data, 0 = system
	DPL        uint32 `bitfield:",2"`
	Present    bool   `bitfield:",1"`
}

// PackSegmentAccess packs a SegmentAccess into the single access byte
// stored in a GDT entry.
func PackSegmentAccess(a SegmentAccess) (byte, error) {
	packed, err := Pack(a, &Config{NumBits: 8})
	if err != nil {
		return 0, err
	}
	return byte(packed), nil
}

// UnpackSegmentAccess is the inverse of PackSegmentAccess.
func UnpackSegmentAccess(access byte) (SegmentAccess, error) {
	var a SegmentAccess
	err := Unpack(&a, uint64(access), &Config{NumBits: 8})
	return a, err
}

// ClassKey represents a PCI (class_code, subclass, prog_if) triple packed
// into a single comparable integer for registry lookup, mirroring how the
// teacher packed multi-field hardware state (PageFlags) into one word
// instead of comparing fields individually.
type ClassKey struct {
	ProgIF   uint32 `bitfield:",8"`
	Subclass uint32 `bitfield:",8"`
	Class    uint32 `bitfield:",8"`
}

// PackClassKey packs a PCI class triple into a lookup key.
func PackClassKey(k ClassKey) (uint32, error) {
	packed, err := Pack(k, &Config{NumBits: 32})
	if err != nil {
		return 0, err
	}
	return uint32(packed), nil
}
