package iso7816

import (
	"bytes"
	"strings"
	"testing"

	"github.com/gregLibert/seproxy/pkg/tlv"
)

func TestCommandAPDU_Encoding(t *testing.T) {
	cls, _ := NewClass(0x00)
	insSelect, _ := NewInstruction(INS_SELECT)
	insRead, _ := NewInstruction(INS_READ_BINARY)

	longData := make([]byte, 260)

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name:     "Case 1: header only",
			cmd:      NewCommandAPDU(cls, insSelect, 0x01, 0x02, nil, 0),
			expected: tlv.Hex("00A40102"),
		},
		{
			name:     "Case 2 short: Le=256 encoded as 00",
			cmd:      NewCommandAPDU(cls, insRead, 0x00, 0x00, nil, MaxShortLe),
			expected: tlv.Hex("00B00000 00"),
		},
		{
			name:     "Case 3 short: Lc and data",
			cmd:      NewCommandAPDU(cls, insSelect, 0x04, 0x00, []byte{0xA0, 0x00}, 0),
			expected: tlv.Hex("00A40400 02 A000"),
		},
		{
			name:     "Case 4 short: data and Le",
			cmd:      NewCommandAPDU(cls, insSelect, 0x00, 0x00, []byte{0x01}, 10),
			expected: tlv.Hex("00A40000 01 01 0A"),
		},
		{
			name:     "Case 3 extended: Nc above 255",
			cmd:      NewCommandAPDU(cls, insSelect, 0x00, 0x00, longData, 0),
			expected: append(tlv.Hex("00A40000 000104"), longData...),
		},
		{
			name:     "Case 2 extended: Le=65536 encoded as 000000",
			cmd:      NewCommandAPDU(cls, insRead, 0x00, 0x00, nil, MaxExtendedLe),
			expected: tlv.Hex("00B00000 00 0000"),
		},
		{
			name:     "Case 4 extended: Le above 256 forces extended Lc",
			cmd:      NewCommandAPDU(cls, insRead, 0x00, 0x00, []byte{0xAA}, 512),
			expected: tlv.Hex("00B00000 000001 AA 0200"),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Encoding failed: %v", err)
			}
			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch\nExpected: %s\nGot:      %s", abbreviate(tlv.FormatHex(tt.expected)), abbreviate(tlv.FormatHex(got)))
			}
		})
	}
}

func abbreviate(s string) string {
	if len(s) > 50 {
		return s[:20] + "..." + s[len(s)-10:]
	}
	return s
}

func TestCommandAPDU_EncodingErrors(t *testing.T) {
	cls, _ := NewClass(0x00)
	ins, _ := NewInstruction(INS_READ_BINARY)

	tests := []struct {
		name string
		cmd  *CommandAPDU
	}{
		{"Negative Ne", NewCommandAPDU(cls, ins, 0, 0, nil, -1)},
		{"Ne above extended maximum", NewCommandAPDU(cls, ins, 0, 0, nil, MaxExtendedLe+1)},
		{"Data above extended maximum", NewCommandAPDU(cls, ins, 0, 0, make([]byte, MaxExtendedLc+1), 0)},
		{"Channel out of range", NewCommandAPDU(Class{Channel: 20}, ins, 0, 0, nil, 0)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := tt.cmd.Bytes(); err == nil {
				t.Error("Expected encoding error, got nil")
			}
		})
	}
}

func TestCommandAPDU_String(t *testing.T) {
	cls, _ := NewClass(0x00)
	cmd := SelectByAID(cls, tlv.Hex("A000000003"))

	got := cmd.String()
	for _, want := range []string{"INS_SELECT", "P1: 04, P2: 00", "Lc: 5", "Le: 0"} {
		if !strings.Contains(got, want) {
			t.Errorf("String() = %q, missing %q", got, want)
		}
	}
}

func TestParseResponseAPDU(t *testing.T) {
	tests := []struct {
		name     string
		raw      []byte
		wantData []byte
		wantSW   StatusWord
		wantErr  bool
	}{
		{"Data and status", tlv.Hex("010203 9000"), tlv.Hex("010203"), SW_NO_ERROR, false},
		{"Status only", tlv.Hex("6A82"), []byte{}, SW_ERR_FILE_NOT_FOUND, false},
		{"Single byte", []byte{0x90}, nil, 0, true},
		{"Empty", nil, nil, 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponseAPDU(tt.raw)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseResponseAPDU() error = %v, wantErr %v", err, tt.wantErr)
			}
			if tt.wantErr {
				return
			}
			if !bytes.Equal(resp.Data, tt.wantData) {
				t.Errorf("Data = %X, want %X", resp.Data, tt.wantData)
			}
			if resp.Status != tt.wantSW {
				t.Errorf("Status = %04X, want %04X", uint16(resp.Status), uint16(tt.wantSW))
			}
			if !bytes.Equal(resp.Bytes(), tt.raw) {
				t.Errorf("Bytes() = %X, want %X", resp.Bytes(), tt.raw)
			}
		})
	}
}
