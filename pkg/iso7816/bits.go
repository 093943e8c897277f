package iso7816

// Bit positions follow the ISO 7816 convention: b8 is the most significant bit,
// b1 the least significant one.

func bit(n uint) byte {
	if n < 1 || n > 8 {
		return 0
	}
	return 1 << (n - 1)
}

func isSet(b byte, n uint) bool {
	return b&bit(n) != 0
}

// bitRange extracts bits high..low, e.g. bitRange(0b00001100, 4, 3) == 3.
func bitRange(b byte, high, low uint) byte {
	if high < low || high > 8 || low < 1 {
		return 0
	}
	width := high - low + 1
	mask := byte((1 << width) - 1)
	return (b >> (low - 1)) & mask
}
