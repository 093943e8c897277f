package tlv

import (
	"bytes"
	"testing"
)

func TestParseHex(t *testing.T) {
	tests := []struct {
		name    string
		inputs  []string
		want    []byte
		wantErr bool
	}{
		{
			name:   "Simple Join",
			inputs: []string{"00", "A4"},
			want:   []byte{0x00, 0xA4},
		},
		{
			name:   "With Spaces",
			inputs: []string{"00 A4", " 04 00 "},
			want:   []byte{0x00, 0xA4, 0x04, 0x00},
		},
		{
			name:   "Colon Separated",
			inputs: []string{"3B:8F:80"},
			want:   []byte{0x3B, 0x8F, 0x80},
		},
		{
			name:   "Mixed Case",
			inputs: []string{"ca", "FE"},
			want:   []byte{0xCA, 0xFE},
		},
		{
			name:   "Empty",
			inputs: []string{""},
			want:   []byte{},
		},
		{
			name:    "Invalid Hex",
			inputs:  []string{"ZZ"},
			wantErr: true,
		},
		{
			name:    "Odd Length",
			inputs:  []string{"123"},
			wantErr: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseHex(tt.inputs...)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseHex() error = %v, wantErr %v", err, tt.wantErr)
			}
			if !tt.wantErr && !bytes.Equal(got, tt.want) {
				t.Errorf("ParseHex() = %X, want %X", got, tt.want)
			}
		})
	}
}

func TestHexPanics(t *testing.T) {
	defer func() {
		if recover() == nil {
			t.Error("Hex() with invalid input did not panic")
		}
	}()
	Hex("ZZ")
}

func TestFormatHex(t *testing.T) {
	if got := FormatHex([]byte{0x6f, 0x0a, 0xff}); got != "6F0AFF" {
		t.Errorf("FormatHex() = %s, want 6F0AFF", got)
	}
	if got := FormatHex(nil); got != "" {
		t.Errorf("FormatHex(nil) = %q, want empty", got)
	}
}
