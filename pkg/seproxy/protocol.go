package seproxy

import (
	"fmt"
	"strings"
)

// TransmissionMode tells how the card is coupled to the reader.
type TransmissionMode int

const (
	ModeUnknown TransmissionMode = iota
	ModeContactless
	ModeContacts
)

func (m TransmissionMode) String() string {
	switch m {
	case ModeContactless:
		return "CONTACTLESS"
	case ModeContacts:
		return "CONTACTS"
	default:
		return "UNKNOWN"
	}
}

// Protocol identifies the communication protocol of a card. The zero value
// places no constraint on the card.
type Protocol int

const (
	ProtocolUnspecified Protocol = iota
	ProtocolISO14443_4
	ProtocolISO14443_3A
	ProtocolISO14443_3B
	ProtocolBPrime
	ProtocolMifareClassic
	ProtocolMifareUL
	ProtocolMifareDesfire
	ProtocolMemoryST25
	ProtocolAny // any contactless protocol
	ProtocolISO7816_3
)

type protocolInfo struct {
	name string
	mode TransmissionMode
}

var protocols = map[Protocol]protocolInfo{
	ProtocolISO14443_4:    {"ISO 14443-4", ModeContactless},
	ProtocolISO14443_3A:   {"ISO 14443-3 Type A", ModeContactless},
	ProtocolISO14443_3B:   {"ISO 14443-3 Type B", ModeContactless},
	ProtocolBPrime:        {"Old Calypso B Prime", ModeContactless},
	ProtocolMifareClassic: {"Mifare Classic", ModeContactless},
	ProtocolMifareUL:      {"Mifare Ultra Light", ModeContactless},
	ProtocolMifareDesfire: {"Mifare Desfire", ModeContactless},
	ProtocolMemoryST25:    {"Memory ST25", ModeContactless},
	ProtocolAny:           {"Any protocol", ModeContactless},
	ProtocolISO7816_3:     {"ISO 7816-3", ModeContacts},
}

// Name returns the display name of the protocol.
func (p Protocol) Name() string {
	if info, ok := protocols[p]; ok {
		return info.name
	}
	if p == ProtocolUnspecified {
		return "Unspecified"
	}
	return fmt.Sprintf("Protocol(%d)", int(p))
}

// Mode returns the transmission mode of the protocol.
func (p Protocol) Mode() TransmissionMode {
	return protocols[p].mode
}

func (p Protocol) String() string {
	return p.Name()
}

// Accepts reports whether a card speaking actual satisfies p.
func (p Protocol) Accepts(actual Protocol) bool {
	switch p {
	case ProtocolUnspecified:
		return true
	case ProtocolAny:
		return actual.Mode() == ModeContactless
	default:
		return p == actual
	}
}

var protocolKeys = map[string]Protocol{
	"iso14443-4":     ProtocolISO14443_4,
	"iso14443-3a":    ProtocolISO14443_3A,
	"iso14443-3b":    ProtocolISO14443_3B,
	"b-prime":        ProtocolBPrime,
	"mifare-classic": ProtocolMifareClassic,
	"mifare-ul":      ProtocolMifareUL,
	"mifare-desfire": ProtocolMifareDesfire,
	"memory-st25":    ProtocolMemoryST25,
	"any":            ProtocolAny,
	"iso7816-3":      ProtocolISO7816_3,
}

// ParseProtocol maps a configuration key such as "iso7816-3" to a Protocol.
// The empty string yields ProtocolUnspecified.
func ParseProtocol(s string) (Protocol, error) {
	key := strings.ToLower(strings.TrimSpace(s))
	if key == "" {
		return ProtocolUnspecified, nil
	}
	if p, ok := protocolKeys[key]; ok {
		return p, nil
	}
	return ProtocolUnspecified, fmt.Errorf("unknown protocol %q", s)
}
