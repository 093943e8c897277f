package seproxy

import (
	"fmt"
	"strings"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/tlv"
)

// ApduRequest is one command of a SeRequest. Bytes are sent as is.
type ApduRequest struct {
	Bytes []byte

	// Case4 marks an ISO 7816-4 case 4 command. A card answering it with a
	// bare 9000 is asked for the data with GET RESPONSE.
	Case4 bool

	// Name is only used in logs and reports.
	Name string

	// SuccessfulStatusCodes are accepted in addition to 9000.
	SuccessfulStatusCodes []iso7816.StatusWord
}

func (r ApduRequest) String() string {
	var sb strings.Builder
	sb.WriteString("ApduRequest")
	if r.Name != "" {
		sb.WriteString(" " + r.Name)
	}
	sb.WriteString(fmt.Sprintf(": %s, case4: %t", tlv.FormatHex(r.Bytes), r.Case4))
	if len(r.SuccessfulStatusCodes) > 0 {
		codes := make([]string, len(r.SuccessfulStatusCodes))
		for i, sw := range r.SuccessfulStatusCodes {
			codes[i] = fmt.Sprintf("%04X", uint16(sw))
		}
		sb.WriteString(", additional successful codes: " + strings.Join(codes, " "))
	}
	return sb.String()
}

// ApduResponse is the raw answer of the card, status word included.
type ApduResponse struct {
	Bytes []byte
}

// NewApduResponse validates that raw ends with a status word.
func NewApduResponse(raw []byte) (*ApduResponse, error) {
	if len(raw) < iso7816.TrailerLength {
		return nil, fmt.Errorf("response too short: length %d", len(raw))
	}
	return &ApduResponse{Bytes: raw}, nil
}

// Data returns the payload without the status word.
func (r *ApduResponse) Data() []byte {
	if len(r.Bytes) < iso7816.TrailerLength {
		return nil
	}
	return r.Bytes[:len(r.Bytes)-iso7816.TrailerLength]
}

// StatusWord returns the trailing two bytes.
func (r *ApduResponse) StatusWord() iso7816.StatusWord {
	n := len(r.Bytes)
	if n < iso7816.TrailerLength {
		return 0
	}
	return iso7816.NewStatusWord(r.Bytes[n-2], r.Bytes[n-1])
}

// IsSuccessful reports 9000 or one of additional.
func (r *ApduResponse) IsSuccessful(additional ...iso7816.StatusWord) bool {
	sw := r.StatusWord()
	return sw == iso7816.SW_NO_ERROR || sw.In(additional...)
}

func (r *ApduResponse) String() string {
	return fmt.Sprintf("ApduResponse: %s, sw: %04X", tlv.FormatHex(r.Data()), uint16(r.StatusWord()))
}

// SeRequest is one unit of work of a batch.
type SeRequest struct {
	Selector     CardSelector
	ApduRequests []ApduRequest
}

// SelectionStatus describes how the card was selected.
type SelectionStatus struct {
	// ATR is set when the transport can report it.
	ATR []byte

	// FCI is the answer to the SELECT command, nil on a basic channel.
	FCI *ApduResponse

	HasMatched bool
}

// SeResponse is the outcome of a matched SeRequest.
type SeResponse struct {
	// ChannelPreviouslyOpen is true when the request reused a channel left
	// open by an earlier request or batch.
	ChannelPreviouslyOpen bool

	Selection     SelectionStatus
	ApduResponses []*ApduResponse
}
