package iso7816

import (
	"bytes"
	"testing"

	"github.com/gregLibert/seproxy/pkg/tlv"
)

func TestNewSelectCommand(t *testing.T) {
	cls, _ := NewClass(0x00)
	ch2, _ := NewInterindustryClass(false, SMNone, 2)

	tests := []struct {
		name     string
		cmd      *CommandAPDU
		expected []byte
	}{
		{
			name: "Select by AID (1PAY.SYS.DDF01)",
			cmd:  SelectByAID(cls, []byte("1PAY.SYS.DDF01")),
			expected: tlv.Hex(
				"00 A4 04 00",
				"0E",
				"31 50 41 59 2E 53 59 53 2E 44 44 46 30 31",
				// no Le: T=0 cards answer 61XX
			),
		},
		{
			name: "Select Master File (MF)",
			cmd:  SelectMF(cls),
			expected: tlv.Hex(
				"00 A4 00 00",
				"00", // Le=256, no data sent
			),
		},
		{
			name: "Select next application sharing a partial AID, FCP",
			cmd:  SelectApplication(cls, tlv.Hex("A000000291"), NextOccurrence, ReturnFCP),
			expected: tlv.Hex(
				"00 A4 04 06", // P2 = FCP 04 | Next 02
				"05",
				"A0 00 00 02 91",
			),
		},
		{
			name: "Select last occurrence on logical channel 2",
			cmd:  SelectApplication(ch2, tlv.Hex("A000000291"), LastOccurrence, ReturnFCI),
			expected: tlv.Hex(
				"02 A4 04 01",
				"05",
				"A0 00 00 02 91",
			),
		},
		{
			name: "Select No Data",
			cmd: NewSelectCommand(
				cls,
				SelectByFileID,
				FirstOrOnlyOccurrence,
				ReturnNoData,
				[]byte{0x3F, 0x00},
			),
			expected: tlv.Hex(
				"00 A4 00 0C",
				"02",
				"3F 00",
			),
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.cmd.Bytes()
			if err != nil {
				t.Fatalf("Failed to encode bytes: %v", err)
			}

			if !bytes.Equal(got, tt.expected) {
				t.Errorf("Mismatch:\nExpected: %s\nGot:      %s", tlv.FormatHex(tt.expected), tlv.FormatHex(got))
			}
		})
	}
}

func TestSelectP2(t *testing.T) {
	tests := []struct {
		occ  FileOccurrence
		ctrl SelectionControl
		want byte
	}{
		{FirstOrOnlyOccurrence, ReturnFCI, 0x00},
		{LastOccurrence, ReturnFCI, 0x01},
		{NextOccurrence, ReturnFCP, 0x06},
		{PreviousOccurrence, ReturnFMD, 0x0B},
		{FirstOrOnlyOccurrence, ReturnNoData, 0x0C},
	}

	for _, tt := range tests {
		t.Run(tt.occ.String()+"/"+tt.ctrl.String(), func(t *testing.T) {
			if got := SelectP2(tt.occ, tt.ctrl); got != tt.want {
				t.Errorf("SelectP2() = %02X, want %02X", got, tt.want)
			}
		})
	}
}
