package tlv

import (
	"encoding/hex"
	"fmt"
	"strings"
)

var hexSeparators = strings.NewReplacer(" ", "", ":", "", "\t", "", "\n", "")

// ParseHex decodes a hex string. Spaces, tabs, newlines and colons are
// ignored so both "00 A4 04 00" and "00:A4:04:00" are accepted.
func ParseHex(parts ...string) ([]byte, error) {
	clean := hexSeparators.Replace(strings.Join(parts, ""))

	data, err := hex.DecodeString(clean)
	if err != nil {
		return nil, fmt.Errorf("invalid hex %q: %w", clean, err)
	}
	return data, nil
}

// Hex is ParseHex for literals known to be valid. It panics otherwise.
func Hex(parts ...string) []byte {
	data, err := ParseHex(parts...)
	if err != nil {
		panic(err.Error())
	}
	return data
}

// FormatHex renders data as upper case hex without separators.
func FormatHex(data []byte) string {
	return strings.ToUpper(hex.EncodeToString(data))
}
