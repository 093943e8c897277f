package iso7816

import (
	"bytes"
	"testing"

	"github.com/gregLibert/seproxy/pkg/tlv"
)

func TestManageChannelCommands(t *testing.T) {
	cls, _ := NewClass(0x00)

	open, err := OpenChannelCommand(cls).Bytes()
	if err != nil {
		t.Fatalf("OpenChannelCommand() error = %v", err)
	}
	if !bytes.Equal(open, tlv.Hex("0070000001")) {
		t.Errorf("open = %X, want 0070000001", open)
	}

	closeCmd, err := CloseChannelCommand(cls, 3)
	if err != nil {
		t.Fatalf("CloseChannelCommand() error = %v", err)
	}
	raw, _ := closeCmd.Bytes()
	if !bytes.Equal(raw, tlv.Hex("00708003")) {
		t.Errorf("close = %X, want 00708003", raw)
	}

	for _, ch := range []uint8{0, 20} {
		if _, err := CloseChannelCommand(cls, ch); err == nil {
			t.Errorf("CloseChannelCommand(%d) should fail", ch)
		}
	}
}

func TestParseOpenChannelResponse(t *testing.T) {
	tests := []struct {
		name    string
		raw     string
		want    uint8
		wantErr bool
	}{
		{"Channel 1", "019000", 1, false},
		{"Channel 19", "139000", 19, false},
		{"No channel available", "6881", 0, true},
		{"Channel 0 is invalid", "009000", 0, true},
		{"Out of range", "149000", 0, true},
		{"Missing data", "9000", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			resp, err := ParseResponseAPDU(tlv.Hex(tt.raw))
			if err != nil {
				t.Fatalf("ParseResponseAPDU() error = %v", err)
			}
			got, err := ParseOpenChannelResponse(resp)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseOpenChannelResponse() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("channel = %d, want %d", got, tt.want)
			}
		})
	}

	if _, err := ParseOpenChannelResponse(nil); err == nil {
		t.Error("nil response should fail")
	}
}
