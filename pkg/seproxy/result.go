package seproxy

import "fmt"

// SlotResult is the outcome of one request: Matched or NotMatched.
type SlotResult interface {
	slotResult()
}

// Matched carries the response of a request whose selector applied.
type Matched struct {
	Response *SeResponse
}

// NotMatched tells why a request produced no response.
type NotMatched struct {
	Reason Reason
}

func (Matched) slotResult()    {}
func (NotMatched) slotResult() {}

// Reason explains a NotMatched slot.
type Reason int

const (
	// CardAbsent: no card in the reader.
	CardAbsent Reason = iota + 1
	// ProtocolMismatch: the card does not speak the requested protocol.
	ProtocolMismatch
	// ApplicationNotFound: the transport reported no such AID or channel.
	ApplicationNotFound
	// SelectionRejected: the SELECT status word was not successful.
	SelectionRejected
	// NotProcessed: an earlier request matched under FirstMatch.
	NotProcessed
)

var reasonNames = map[Reason]string{
	CardAbsent:          "card absent",
	ProtocolMismatch:    "protocol mismatch",
	ApplicationNotFound: "application not found",
	SelectionRejected:   "selection rejected",
	NotProcessed:        "not processed",
}

func (r Reason) String() string {
	if name, ok := reasonNames[r]; ok {
		return name
	}
	return fmt.Sprintf("Reason(%d)", int(r))
}

// Results holds one SlotResult per request, in request order.
type Results []SlotResult

// Matches returns the matched responses indexed by request position.
func (r Results) Matches() map[int]*SeResponse {
	out := make(map[int]*SeResponse)
	for i, res := range r {
		if m, ok := res.(Matched); ok {
			out[i] = m.Response
		}
	}
	return out
}

// Responses returns one entry per request, nil for unmatched slots.
func (r Results) Responses() []*SeResponse {
	out := make([]*SeResponse, len(r))
	for i, res := range r {
		if m, ok := res.(Matched); ok {
			out[i] = m.Response
		}
	}
	return out
}
