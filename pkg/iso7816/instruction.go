package iso7816

import (
	"fmt"
)

// Instruction Byte (INS) according to ISO/IEC 7816-4.
//
// Bit 1 of an interindustry INS often selects the data field format
// (0: standard, 1: BER-TLV), e.g. READ BINARY B0 vs B1.
// Values whose high nibble is '6' or '9' are reserved for SW1 and transport
// procedure bytes (ISO/IEC 7816-3) and are rejected.

// InsCode is a typed representation of the instruction byte.
type InsCode byte

// Instruction codes used by the selection and exchange layers.
const (
	INS_VERIFY               InsCode = 0x20
	INS_MANAGE_CHANNEL       InsCode = 0x70
	INS_EXTERNAL_AUTH        InsCode = 0x82
	INS_GET_CHALLENGE        InsCode = 0x84
	INS_INTERNAL_AUTH        InsCode = 0x88
	INS_SELECT               InsCode = 0xA4
	INS_READ_BINARY          InsCode = 0xB0
	INS_READ_BINARY_BER      InsCode = 0xB1
	INS_READ_RECORD          InsCode = 0xB2
	INS_GET_RESPONSE         InsCode = 0xC0
	INS_ENVELOPE             InsCode = 0xC2
	INS_GET_DATA             InsCode = 0xCA
	INS_UPDATE_BINARY        InsCode = 0xD6
	INS_PUT_DATA             InsCode = 0xDA
	INS_UPDATE_RECORD        InsCode = 0xDC
	INS_APPEND_RECORD        InsCode = 0xE2
	INS_TERMINATE_CARD_USAGE InsCode = 0xFE
)

var insNames = map[InsCode]string{
	INS_VERIFY:               "INS_VERIFY",
	INS_MANAGE_CHANNEL:       "INS_MANAGE_CHANNEL",
	INS_EXTERNAL_AUTH:        "INS_EXTERNAL_AUTH",
	INS_GET_CHALLENGE:        "INS_GET_CHALLENGE",
	INS_INTERNAL_AUTH:        "INS_INTERNAL_AUTH",
	INS_SELECT:               "INS_SELECT",
	INS_READ_BINARY:          "INS_READ_BINARY",
	INS_READ_BINARY_BER:      "INS_READ_BINARY_BER",
	INS_READ_RECORD:          "INS_READ_RECORD",
	INS_GET_RESPONSE:         "INS_GET_RESPONSE",
	INS_ENVELOPE:             "INS_ENVELOPE",
	INS_GET_DATA:             "INS_GET_DATA",
	INS_UPDATE_BINARY:        "INS_UPDATE_BINARY",
	INS_PUT_DATA:             "INS_PUT_DATA",
	INS_UPDATE_RECORD:        "INS_UPDATE_RECORD",
	INS_APPEND_RECORD:        "INS_APPEND_RECORD",
	INS_TERMINATE_CARD_USAGE: "INS_TERMINATE_CARD_USAGE",
}

// String returns the constant name of a known instruction, or InsCode(0xXX).
func (i InsCode) String() string {
	if name, ok := insNames[i]; ok {
		return name
	}
	return fmt.Sprintf("InsCode(0x%02X)", byte(i))
}

// Instruction represents the parsed ISO 7816-4 Instruction byte (INS).
type Instruction struct {
	Raw      InsCode
	IsBERTLV bool
}

// NewInstruction creates an Instruction, rejecting the reserved 6X and 9X values.
func NewInstruction(ins InsCode) (Instruction, error) {
	switch byte(ins) & 0xF0 {
	case 0x60, 0x90:
		return Instruction{}, fmt.Errorf("invalid INS 0x%02X: 6X and 9X are reserved", byte(ins))
	}

	return Instruction{
		Raw:      ins,
		IsBERTLV: isSet(byte(ins), 1),
	}, nil
}

// mustInstruction is used for the package's own well-known codes.
func mustInstruction(ins InsCode) Instruction {
	i, err := NewInstruction(ins)
	if err != nil {
		panic(err)
	}
	return i
}

// Verbose returns a human-readable description of the instruction.
func (i Instruction) Verbose() string {
	format := "Standard"
	if i.IsBERTLV {
		format = "BER-TLV"
	}
	return fmt.Sprintf("INS: 0x%02X | Command: %s | Format: %s", byte(i.Raw), i.Raw, format)
}
