package seproxy

import (
	"testing"
)

func TestProtocol(t *testing.T) {
	tests := []struct {
		key  string
		want Protocol
		name string
		mode TransmissionMode
	}{
		{"iso14443-4", ProtocolISO14443_4, "ISO 14443-4", ModeContactless},
		{"MIFARE-UL", ProtocolMifareUL, "Mifare Ultra Light", ModeContactless},
		{" any ", ProtocolAny, "Any protocol", ModeContactless},
		{"iso7816-3", ProtocolISO7816_3, "ISO 7816-3", ModeContacts},
		{"", ProtocolUnspecified, "Unspecified", ModeUnknown},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseProtocol(tt.key)
			if err != nil {
				t.Fatalf("ParseProtocol(%q) error = %v", tt.key, err)
			}
			if got != tt.want {
				t.Errorf("ParseProtocol(%q) = %v, want %v", tt.key, got, tt.want)
			}
			if got.Name() != tt.name || got.Mode() != tt.mode {
				t.Errorf("%v: name %q mode %s, want %q %s", got, got.Name(), got.Mode(), tt.name, tt.mode)
			}
		})
	}

	if _, err := ParseProtocol("felica"); err == nil {
		t.Error("ParseProtocol(felica) should fail")
	}
	if Protocol(99).Name() != "Protocol(99)" {
		t.Errorf("unknown protocol name = %q", Protocol(99).Name())
	}
}

func TestParsePolicies(t *testing.T) {
	for in, want := range map[string]ChannelControl{"keep-open": KeepOpen, "CLOSE_AFTER": CloseAfter} {
		got, err := ParseChannelControl(in)
		if err != nil || got != want {
			t.Errorf("ParseChannelControl(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseChannelControl("sometimes"); err == nil {
		t.Error("ParseChannelControl(sometimes) should fail")
	}

	for in, want := range map[string]MultiSeRequestProcessing{"first-match": FirstMatch, "Process_All": ProcessAll} {
		got, err := ParseProcessing(in)
		if err != nil || got != want {
			t.Errorf("ParseProcessing(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
	if _, err := ParseProcessing("all"); err == nil {
		t.Error("ParseProcessing(all) should fail")
	}

	if KeepOpen.String() != "KEEP_OPEN" || ProcessAll.String() != "PROCESS_ALL" {
		t.Error("policy names mismatch")
	}
}
