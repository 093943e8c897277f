package iso7816

import (
	"bytes"
	"fmt"
)

// APDU structures and encodings according to ISO/IEC 7816-3 and 7816-4.
//
// COMMAND APDU (C-APDU):
// A mandatory 4-byte header (CLA INS P1 P2) followed by an optional body
// (Lc + Data + Le).
//
// ENCODING CASES (ISO 7816-3):
// - Case 1: Header only.
// - Case 2: Header + Le.
// - Case 3: Header + Lc + Data.
// - Case 4: Header + Lc + Data + Le.
//
// Short length mode encodes Lc/Le on one byte, extended mode on two or three.
// Extended mode is used as soon as Lc > 255 or Le > 256.
//
// RESPONSE APDU (R-APDU):
// An optional data field followed by the mandatory 2-byte trailer SW1 SW2.
// The proxy layer treats the data field as opaque payload and only splits the
// trailer off.

// APDU limits according to ISO 7816-3.
const (
	// MaxShortLc is the maximum Nc encodable in short length mode.
	MaxShortLc = 255

	// MaxShortLe is the maximum Ne encodable in short length mode (Le=00).
	MaxShortLe = 256

	// MaxExtendedLc is the maximum Nc encodable in extended length mode.
	MaxExtendedLc = 65535

	// MaxExtendedLe is the maximum Ne encodable in extended length mode (Le=0000).
	MaxExtendedLe = 65536

	// HeaderLength is the size of the mandatory C-APDU header.
	HeaderLength = 4

	// TrailerLength is the size of the status word ending every R-APDU.
	TrailerLength = 2
)

// CommandAPDU represents a command sent to the card.
type CommandAPDU struct {
	Class       Class
	Instruction Instruction
	P1, P2      byte
	Data        []byte
	Ne          int // Expected response length (0 means none)
}

// NewCommandAPDU creates a command from its individual fields.
func NewCommandAPDU(cla Class, ins Instruction, p1, p2 byte, data []byte, ne int) *CommandAPDU {
	return &CommandAPDU{
		Class:       cla,
		Instruction: ins,
		P1:          p1,
		P2:          p2,
		Data:        data,
		Ne:          ne,
	}
}

// Bytes encodes the command, selecting short or extended length encoding
// from Nc and Ne.
func (c *CommandAPDU) Bytes() ([]byte, error) {
	nc := len(c.Data)
	ne := c.Ne

	if nc > MaxExtendedLc {
		return nil, fmt.Errorf("data too long: %d bytes (max %d)", nc, MaxExtendedLc)
	}
	if ne < 0 || ne > MaxExtendedLe {
		return nil, fmt.Errorf("invalid Ne %d", ne)
	}

	cla, err := c.Class.Encode()
	if err != nil {
		return nil, fmt.Errorf("failed to encode Class: %w", err)
	}

	buf := new(bytes.Buffer)
	buf.Write([]byte{cla, byte(c.Instruction.Raw), c.P1, c.P2})

	extended := nc > MaxShortLc || ne > MaxShortLe

	if nc > 0 {
		if extended {
			buf.Write([]byte{0x00, byte(nc >> 8), byte(nc)})
		} else {
			buf.WriteByte(byte(nc))
		}
		buf.Write(c.Data)
	}

	if ne > 0 {
		switch {
		case !extended:
			// 0x00 encodes 256
			buf.WriteByte(byte(ne))
		default:
			// Case 2 extended needs the leading 00 that Lc would otherwise carry.
			if nc == 0 {
				buf.WriteByte(0x00)
			}
			// 0x0000 encodes 65536
			buf.Write([]byte{byte(ne >> 8), byte(ne)})
		}
	}

	return buf.Bytes(), nil
}

// String returns a readable representation of the command meta-data.
func (c *CommandAPDU) String() string {
	return fmt.Sprintf("%s | P1: %02X, P2: %02X | Lc: %d | Le: %d",
		c.Instruction.Verbose(), c.P1, c.P2, len(c.Data), c.Ne)
}

// ResponseAPDU represents the reply from the card (R-APDU).
type ResponseAPDU struct {
	Data   []byte
	Status StatusWord
}

// ParseResponseAPDU splits raw card output into data field and status word.
// The input must contain at least the 2-byte trailer.
func ParseResponseAPDU(raw []byte) (*ResponseAPDU, error) {
	if len(raw) < TrailerLength {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}

	i := len(raw) - TrailerLength
	return &ResponseAPDU{
		Data:   raw[:i],
		Status: NewStatusWord(raw[i], raw[i+1]),
	}, nil
}

// Bytes re-assembles the raw R-APDU (data followed by SW1 SW2).
func (r *ResponseAPDU) Bytes() []byte {
	out := make([]byte, 0, len(r.Data)+TrailerLength)
	out = append(out, r.Data...)
	return append(out, r.Status.SW1(), r.Status.SW2())
}

// String returns a readable representation of the response.
func (r *ResponseAPDU) String() string {
	return fmt.Sprintf("Data (%d bytes) | Status: %s", len(r.Data), r.Status.Verbose())
}
