package tlv

import (
	"encoding/hex"
	"strings"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/moov-io/bertlv"
)

type customType struct {
	Val string
}

func (c *customType) UnmarshalTLV(data []byte) error {
	c.Val = "custom:" + hex.EncodeToString(data)
	return nil
}

type nestedStruct struct {
	Version []byte `tlv:"82"`
}

type testStruct struct {
	AID     []byte       `tlv:"84"`
	Label   string       `tlv:"50"`
	Details nestedStruct `tlv:"A5"`
	Custom  customType   `tlv:"9F02"`
	Other   []bertlv.TLV `tlv:",unknown"`
}

type repeatedStruct struct {
	Entries []nestedStruct `tlv:"61"`
}

func TestUnmarshal(t *testing.T) {
	rawData := Hex(
		"84", "02", "1122", // AID
		"50", "03", "414243", // Label "ABC"
		"A5", "03", "8201FF", // Template A5 with tag 82
		"9F02", "01", "AA",
		"DF01", "01", "BB", // not mapped
	)

	var result testStruct
	if err := Unmarshal(rawData, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	if got := FormatHex(result.AID); got != "1122" {
		t.Errorf("AID = %s, want 1122", got)
	}
	if result.Label != "414243" {
		t.Errorf("Label = %s, want 414243", result.Label)
	}
	if got := FormatHex(result.Details.Version); got != "FF" {
		t.Errorf("nested Version = %s, want FF", got)
	}
	if result.Custom.Val != "custom:aa" {
		t.Errorf("Custom = %s, want custom:aa", result.Custom.Val)
	}
	if len(result.Other) != 1 || strings.ToUpper(result.Other[0].Tag) != "DF01" {
		t.Errorf("unknown tag DF01 not captured: %+v", result.Other)
	}
}

func TestUnmarshalRepeatedTags(t *testing.T) {
	rawData := Hex(
		"61", "03", "820101",
		"61", "03", "820102",
	)

	var result repeatedStruct
	if err := Unmarshal(rawData, &result); err != nil {
		t.Fatalf("Unmarshal failed: %v", err)
	}

	want := repeatedStruct{Entries: []nestedStruct{
		{Version: []byte{0x01}},
		{Version: []byte{0x02}},
	}}
	if diff := cmp.Diff(want, result); diff != "" {
		t.Errorf("Mismatch (-want +got):\n%s", diff)
	}
}

func TestGetValue(t *testing.T) {
	rawData := Hex(
		"84", "02", "1122",
		"50", "03", "414243",
	)

	t.Run("Existing Tag", func(t *testing.T) {
		val, err := GetValue(rawData, 0x84)
		if err != nil {
			t.Fatalf("GetValue failed: %v", err)
		}
		if FormatHex(val) != "1122" {
			t.Errorf("Expected 1122, got %X", val)
		}
	})

	t.Run("Missing Tag", func(t *testing.T) {
		if _, err := GetValue(rawData, 0x99); err == nil {
			t.Error("Expected error for missing tag, got nil")
		}
	})
}

func TestFindPath(t *testing.T) {
	packets := []bertlv.TLV{
		{Tag: "6F", TLVs: []bertlv.TLV{
			{Tag: "84", Value: []byte{0xA0, 0x00}},
			{Tag: "A5", TLVs: []bertlv.TLV{
				{Tag: "BF0C", TLVs: []bertlv.TLV{
					{Tag: "C7", Value: []byte{0x01}},
				}},
			}},
		}},
	}

	tests := []struct {
		name   string
		path   []string
		wantOK bool
		want   string
	}{
		{"Top level", []string{"6f"}, true, "6F"},
		{"Nested primitive", []string{"6F", "84"}, true, "84"},
		{"Deep template", []string{"6F", "A5", "BF0C"}, true, "BF0C"},
		{"Missing leaf", []string{"6F", "A5", "88"}, false, ""},
		{"Missing root", []string{"62"}, false, ""},
		{"Empty path", nil, false, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := FindPath(packets, tt.path...)
			if ok != tt.wantOK {
				t.Fatalf("FindPath() ok = %v, want %v", ok, tt.wantOK)
			}
			if ok && got.Tag != tt.want {
				t.Errorf("FindPath() tag = %s, want %s", got.Tag, tt.want)
			}
		})
	}
}

func TestUnmarshalErrors(t *testing.T) {
	t.Run("Non-pointer target", func(t *testing.T) {
		err := Unmarshal([]byte{0x84, 0x00}, testStruct{})
		if err == nil || !strings.Contains(err.Error(), "pointer") {
			t.Errorf("Expected pointer error, got %v", err)
		}
	})

	t.Run("Pointer to non-struct", func(t *testing.T) {
		var n int
		err := Unmarshal([]byte{0x84, 0x00}, &n)
		if err == nil || !strings.Contains(err.Error(), "struct") {
			t.Errorf("Expected struct error, got %v", err)
		}
	})
}
