package iso7816

import (
	"fmt"
)

// Dynamic Status Word Logic:
//
// Most status words are static 2-byte values (e.g. 0x9000), but ISO 7816-4
// defines ranges carrying a parameter in SW2:
//
// 1. '61XX': Process completed, XX response bytes still available (GET RESPONSE).
// 2. '6CXX': Wrong Le, XX is the exact length.
// 3. '62XX' / '64XX' with XX in [0x02, 0x80]: triggering by the card.
// 4. '63CX': Counter value X (e.g. remaining PIN tries).

// StatusWord represents the two-byte status (SW1-SW2) returned by the card.
type StatusWord uint16

// NewStatusWord creates a StatusWord from its two bytes.
func NewStatusWord(sw1, sw2 byte) StatusWord {
	return StatusWord(uint16(sw1)<<8 | uint16(sw2))
}

// SW1 returns the high byte of the status word.
func (sw StatusWord) SW1() byte {
	return byte(sw >> 8)
}

// SW2 returns the low byte of the status word.
func (sw StatusWord) SW2() byte {
	return byte(sw)
}

// IsTriggeringByCard checks if the status indicates a "Triggering by the card" event.
func (sw StatusWord) IsTriggeringByCard() bool {
	sw2 := sw.SW2()
	if sw2 < 0x02 || sw2 > 0x80 {
		return false
	}
	return sw.SW1() == 0x62 || sw.SW1() == 0x64
}

// IsCounter checks if the status carries a counter in the low nibble (63CX).
func (sw StatusWord) IsCounter() bool {
	return sw.SW1() == 0x63 && bitRange(sw.SW2(), 8, 5) == 0x0C
}

// IsResponseAvailable reports a '61XX' status.
func (sw StatusWord) IsResponseAvailable() bool {
	return sw.SW1() == 0x61
}

// IsSuccess returns true for 9000 and for 61XX (data available).
func (sw StatusWord) IsSuccess() bool {
	return sw == SW_NO_ERROR || sw.IsResponseAvailable()
}

// IsWarning returns true for 62XX and 63XX.
func (sw StatusWord) IsWarning() bool {
	sw1 := sw.SW1()
	return sw1 == 0x62 || sw1 == 0x63
}

// IsError returns true for execution and checking errors (64XX to 6FXX).
func (sw StatusWord) IsError() bool {
	sw1 := sw.SW1()
	return sw1 >= 0x64 && sw1 <= 0x6F
}

// In reports whether sw is one of codes.
func (sw StatusWord) In(codes ...StatusWord) bool {
	for _, c := range codes {
		if sw == c {
			return true
		}
	}
	return false
}

// String returns the constant name of a known status word, or StatusWord(0xXXXX).
func (sw StatusWord) String() string {
	if name, ok := statusWordNames[sw]; ok {
		return name
	}
	return fmt.Sprintf("StatusWord(0x%04X)", uint16(sw))
}

// Verbose returns a human-readable description of the status word.
// Dynamic ISO definitions take precedence over the constant names.
func (sw StatusWord) Verbose() string {
	sw1 := sw.SW1()
	sw2 := sw.SW2()

	switch {
	case sw.IsTriggeringByCard():
		action := "Warning (Triggering)"
		if sw1 == 0x64 {
			action = "Error/Abort (Triggering)"
		}
		return fmt.Sprintf("%s: Card expects query of %d bytes", action, sw2)
	case sw.IsCounter():
		return fmt.Sprintf("Warning: State changed, counter = %d", bitRange(sw2, 4, 1))
	case sw1 == 0x61:
		return fmt.Sprintf("Process completed, %d bytes available", sw2)
	case sw1 == 0x6C:
		return fmt.Sprintf("Wrong length, correct Le is %d", sw2)
	}

	if name, ok := statusWordNames[sw]; ok {
		return fmt.Sprintf("[%04X] %s", uint16(sw), name)
	}
	return fmt.Sprintf("[%04X] %s", uint16(sw), sw.category())
}

func (sw StatusWord) category() string {
	switch sw.SW1() {
	case 0x62:
		return "Warning: NV memory unchanged"
	case 0x63:
		return "Warning: NV memory changed"
	case 0x64:
		return "Execution Error: NV memory unchanged"
	case 0x65:
		return "Execution Error: NV memory changed"
	case 0x66:
		return "Execution Error: Security issue"
	case 0x68:
		return "Checking Error: Function not supported"
	case 0x69:
		return "Checking Error: Command not allowed"
	case 0x6A:
		return "Checking Error: Wrong parameters"
	default:
		return "Unknown Status"
	}
}

// Standard Status Word codes defined in ISO/IEC 7816-4.
const (
	SW_NO_ERROR StatusWord = 0x9000

	SW_WARN_NO_INFO            StatusWord = 0x6200
	SW_WARN_TRIGGERING_BY_CARD StatusWord = 0x6202
	SW_WARN_DATA_CORRUPTED     StatusWord = 0x6281
	SW_WARN_EOF_REACHED        StatusWord = 0x6282
	SW_WARN_FILE_DEACTIVATED   StatusWord = 0x6283
	SW_WARN_FCI_BAD_FORMAT     StatusWord = 0x6284

	SW_WARN_NV_CHANGED_NO_INFO StatusWord = 0x6300
	SW_WARN_COUNTER_0          StatusWord = 0x63C0

	SW_ERR_EXEC_NO_INFO     StatusWord = 0x6400
	SW_ERR_MEMORY_FAILURE   StatusWord = 0x6581
	SW_ERR_SECURITY_ISSUE   StatusWord = 0x6600
	SW_ERR_WRONG_LENGTH     StatusWord = 0x6700
	SW_ERR_CHECKING_NO_INFO StatusWord = 0x6800

	SW_ERR_LOGICAL_CHANNEL_NOT_SUPP StatusWord = 0x6881
	SW_ERR_CHAINING_NOT_SUPP        StatusWord = 0x6884

	SW_ERR_CMD_NOT_ALLOWED_NO_INFO StatusWord = 0x6900
	SW_ERR_SECURITY_STATUS_NOT_SAT StatusWord = 0x6982
	SW_ERR_AUTH_METHOD_BLOCKED     StatusWord = 0x6983
	SW_ERR_COND_OF_USE_NOT_SAT     StatusWord = 0x6985

	SW_ERR_WRONG_PARAMS_NO_INFO  StatusWord = 0x6A00
	SW_ERR_INCORRECT_PARAMS_DATA StatusWord = 0x6A80
	SW_ERR_FUNC_NOT_SUPPORTED    StatusWord = 0x6A81
	SW_ERR_FILE_NOT_FOUND        StatusWord = 0x6A82
	SW_ERR_RECORD_NOT_FOUND      StatusWord = 0x6A83
	SW_ERR_INCORRECT_PARAMS_P1P2 StatusWord = 0x6A86
	SW_ERR_REF_DATA_NOT_FOUND    StatusWord = 0x6A88

	SW_ERR_WRONG_P1P2        StatusWord = 0x6B00
	SW_ERR_INS_INVALID       StatusWord = 0x6D00
	SW_ERR_CLA_NOT_SUPPORTED StatusWord = 0x6E00
	SW_ERR_UNKNOWN           StatusWord = 0x6F00
)

var statusWordNames = map[StatusWord]string{
	SW_NO_ERROR:                     "SW_NO_ERROR",
	SW_WARN_NO_INFO:                 "SW_WARN_NO_INFO",
	SW_WARN_TRIGGERING_BY_CARD:      "SW_WARN_TRIGGERING_BY_CARD",
	SW_WARN_DATA_CORRUPTED:          "SW_WARN_DATA_CORRUPTED",
	SW_WARN_EOF_REACHED:             "SW_WARN_EOF_REACHED",
	SW_WARN_FILE_DEACTIVATED:        "SW_WARN_FILE_DEACTIVATED",
	SW_WARN_FCI_BAD_FORMAT:          "SW_WARN_FCI_BAD_FORMAT",
	SW_WARN_NV_CHANGED_NO_INFO:      "SW_WARN_NV_CHANGED_NO_INFO",
	SW_WARN_COUNTER_0:               "SW_WARN_COUNTER_0",
	SW_ERR_EXEC_NO_INFO:             "SW_ERR_EXEC_NO_INFO",
	SW_ERR_MEMORY_FAILURE:           "SW_ERR_MEMORY_FAILURE",
	SW_ERR_SECURITY_ISSUE:           "SW_ERR_SECURITY_ISSUE",
	SW_ERR_WRONG_LENGTH:             "SW_ERR_WRONG_LENGTH",
	SW_ERR_CHECKING_NO_INFO:         "SW_ERR_CHECKING_NO_INFO",
	SW_ERR_LOGICAL_CHANNEL_NOT_SUPP: "SW_ERR_LOGICAL_CHANNEL_NOT_SUPP",
	SW_ERR_CHAINING_NOT_SUPP:        "SW_ERR_CHAINING_NOT_SUPP",
	SW_ERR_CMD_NOT_ALLOWED_NO_INFO:  "SW_ERR_CMD_NOT_ALLOWED_NO_INFO",
	SW_ERR_SECURITY_STATUS_NOT_SAT:  "SW_ERR_SECURITY_STATUS_NOT_SAT",
	SW_ERR_AUTH_METHOD_BLOCKED:      "SW_ERR_AUTH_METHOD_BLOCKED",
	SW_ERR_COND_OF_USE_NOT_SAT:      "SW_ERR_COND_OF_USE_NOT_SAT",
	SW_ERR_WRONG_PARAMS_NO_INFO:     "SW_ERR_WRONG_PARAMS_NO_INFO",
	SW_ERR_INCORRECT_PARAMS_DATA:    "SW_ERR_INCORRECT_PARAMS_DATA",
	SW_ERR_FUNC_NOT_SUPPORTED:       "SW_ERR_FUNC_NOT_SUPPORTED",
	SW_ERR_FILE_NOT_FOUND:           "SW_ERR_FILE_NOT_FOUND",
	SW_ERR_RECORD_NOT_FOUND:         "SW_ERR_RECORD_NOT_FOUND",
	SW_ERR_INCORRECT_PARAMS_P1P2:    "SW_ERR_INCORRECT_PARAMS_P1P2",
	SW_ERR_REF_DATA_NOT_FOUND:       "SW_ERR_REF_DATA_NOT_FOUND",
	SW_ERR_WRONG_P1P2:               "SW_ERR_WRONG_P1P2",
	SW_ERR_INS_INVALID:              "SW_ERR_INS_INVALID",
	SW_ERR_CLA_NOT_SUPPORTED:        "SW_ERR_CLA_NOT_SUPPORTED",
	SW_ERR_UNKNOWN:                  "SW_ERR_UNKNOWN",
}
