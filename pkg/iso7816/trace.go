package iso7816

// TRANSACTION:
// One C-APDU sent by the terminal followed by one R-APDU sent back by the card.
//
// TRACE:
// A chronological sequence of transactions fulfilling one logical request.
// A single request may need several physical exchanges: a card answering
// '61 XX' has XX more bytes waiting for a GET RESPONSE, and a T=0 card may
// answer a case 4 command with a bare '90 00' and keep its data for the same
// GET RESPONSE. The last transaction carries the final outcome.

// Transaction represents a completed Command-Response pair.
// Command is nil when the command was supplied as raw bytes.
type Transaction struct {
	Command    *CommandAPDU
	RawCommand []byte
	Response   *ResponseAPDU
}

// IsSuccess checks if the transaction ended with a successful status.
// It returns false if the response is missing.
func (t *Transaction) IsSuccess() bool {
	if t.Response == nil {
		return false
	}
	return t.Response.Status.IsSuccess()
}

// Trace is a sequence of transactions for one logical exchange.
type Trace []Transaction

// Last returns the final transaction of the trace, or nil if it is empty.
func (t Trace) Last() *Transaction {
	if len(t) == 0 {
		return nil
	}
	return &t[len(t)-1]
}

// IsSuccess checks if the final transaction of the trace was successful.
func (t Trace) IsSuccess() bool {
	last := t.Last()
	if last == nil {
		return false
	}
	return last.IsSuccess()
}

// Response returns the final response of the trace, or nil if it is empty.
func (t Trace) Response() *ResponseAPDU {
	last := t.Last()
	if last == nil {
		return nil
	}
	return last.Response
}
