package bitfield

import "testing"

func TestPackSegmentAccess(t *testing.T) {
	tests := []struct {
		name     string
		access   SegmentAccess
		expected byte
	}{
		{
			name:     "null descriptor",
			access:   SegmentAccess{},
			expected: 0x00,
		},
		{
			name: "ring0 64-bit code segment",
			access: SegmentAccess{
				ReadWrite:  true,
				Executable: true,
				Descriptor: true,
				Present:    true,
			},
			expected: 0x9A,
		},
		{
			name: "ring0 writable data segment",
			access: SegmentAccess{
				ReadWrite:  true,
				Descriptor: true,
				Present:    true,
			},
			expected: 0x92,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			packed, err := PackSegmentAccess(tt.access)
			if err != nil {
				t.Fatalf("PackSegmentAccess() error = %v", err)
			}
			if packed != tt.expected {
				t.Errorf("PackSegmentAccess() = 0x%02x, want 0x%02x", packed, tt.expected)
			}
		})
	}
}

func TestPackUnpackSegmentAccessRoundTrip(t *testing.T) {
	original := SegmentAccess{
		Accessed:   true,
		ReadWrite:  true,
		Executable: true,
		Descriptor: true,
		DPL:        3,
		Present:    true,
	}

	packed, err := PackSegmentAccess(original)
	if err != nil {
		t.Fatalf("PackSegmentAccess() error = %v", err)
	}

	unpacked, err := UnpackSegmentAccess(packed)
	if err != nil {
		t.Fatalf("UnpackSegmentAccess() error = %v", err)
	}

	if unpacked != original {
		t.Errorf("round trip mismatch: got %+v, want %+v", unpacked, original)
	}
}

func TestPackClassKeyDistinguishesDevices(t *testing.T) {
	mass, err := PackClassKey(ClassKey{Class: 0x01, Subclass: 0x01, ProgIF: 0x80}) // IDE controller
	if err != nil {
		t.Fatalf("PackClassKey() error = %v", err)
	}
	net, err := PackClassKey(ClassKey{Class: 0x02, Subclass: 0x00, ProgIF: 0x00}) // ethernet controller
	if err != nil {
		t.Fatalf("PackClassKey() error = %v", err)
	}

	if mass == net {
		t.Fatalf("distinct device classes packed to the same key: 0x%x", mass)
	}
}
