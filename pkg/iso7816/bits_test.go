package iso7816

import "testing"

func TestBitHelpers(t *testing.T) {
	tests := []struct {
		name string
		got  byte
		want byte
	}{
		{"bit 1", bit(1), 0x01},
		{"bit 8", bit(8), 0x80},
		{"bit out of range", bit(9), 0x00},
		{"range 4-3", bitRange(0b0000_1100, 4, 3), 0b11},
		{"range 8-5", bitRange(0x63, 8, 5), 0x06},
		{"inverted range", bitRange(0xFF, 3, 4), 0x00},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.got != tt.want {
				t.Errorf("got %08b, want %08b", tt.got, tt.want)
			}
		})
	}

	if !isSet(0x10, 5) || isSet(0x10, 4) {
		t.Error("isSet mismatch on 0x10")
	}
}
