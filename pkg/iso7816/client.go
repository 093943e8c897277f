package iso7816

import (
	"fmt"
)

// CLIENT & PROTOCOL LOGIC:
// The Client drives one card connection and handles the ISO 7816-3 transport
// behaviours that T=0 pushes up to the application layer:
//
// 1. "61 XX" (Response Available):
//    XX bytes are waiting; a GET RESPONSE with Le = XX retrieves them
//    (XX = 00 means 256).
//
// 2. "90 00" with no data after a case 4 command:
//    the card kept the response data, a GET RESPONSE with Le = 00 fetches it.
//
// 3. "6C XX" (Wrong Length), structured commands only:
//    the command is re-issued once with Le = XX.
//
// Raw commands supplied by an application are written exactly once; only
// GET RESPONSE follows them.

// Transmitter abstracts the physical card connection.
type Transmitter interface {
	Transmit(cmd []byte) ([]byte, error)
}

// Client manages the communication with the card.
type Client struct {
	Card Transmitter
}

// NewClient creates a new Client instance.
func NewClient(card Transmitter) *Client {
	return &Client{Card: card}
}

// Send transmits a structured command and follows 61XX / 6CXX answers.
func (c *Client) Send(cmd *CommandAPDU) (Trace, error) {
	raw, err := cmd.Bytes()
	if err != nil {
		return nil, fmt.Errorf("encoding error: %w", err)
	}

	resp, err := c.transmit(raw)
	if err != nil {
		return nil, err
	}

	trace := Trace{{Command: cmd, RawCommand: raw, Response: resp}}

	switch {
	case resp.Status.IsResponseAvailable():
		return c.getResponse(trace, cmd.Class, leFromSW2(resp.Status.SW2()))

	case resp.Status.SW1() == 0x6C:
		retry := *cmd
		retry.Ne = leFromSW2(resp.Status.SW2())

		rawRetry, err := retry.Bytes()
		if err != nil {
			return trace, fmt.Errorf("encoding error: %w", err)
		}
		resp, err := c.transmit(rawRetry)
		if err != nil {
			return trace, err
		}
		trace = append(trace, Transaction{Command: &retry, RawCommand: rawRetry, Response: resp})
		if resp.Status.IsResponseAvailable() {
			return c.getResponse(trace, cmd.Class, leFromSW2(resp.Status.SW2()))
		}
	}

	return trace, nil
}

// SendRaw transmits an application supplied command once. When case4 is set
// and the card answers a bare 9000, the data is fetched with GET RESPONSE.
func (c *Client) SendRaw(raw []byte, case4 bool) (Trace, error) {
	if len(raw) == 0 {
		return nil, fmt.Errorf("empty command")
	}

	resp, err := c.transmit(raw)
	if err != nil {
		return nil, err
	}

	trace := Trace{{RawCommand: raw, Response: resp}}

	cls, err := NewClass(raw[0])
	if err != nil {
		// CLA FF (PC/SC pseudo APDUs) has no GET RESPONSE semantic.
		return trace, nil
	}

	switch {
	case resp.Status.IsResponseAvailable():
		return c.getResponse(trace, cls, leFromSW2(resp.Status.SW2()))
	case case4 && resp.Status == SW_NO_ERROR && len(resp.Data) == 0:
		return c.getResponse(trace, cls, MaxShortLe)
	}

	return trace, nil
}

// getResponse appends the GET RESPONSE exchanges to trace. GET RESPONSE must
// use the logical channel of the original command, without chaining.
func (c *Client) getResponse(trace Trace, cls Class, ne int) (Trace, error) {
	cls.IsChained = false
	cmd := NewCommandAPDU(cls, mustInstruction(INS_GET_RESPONSE), 0x00, 0x00, nil, ne)

	sub, err := c.Send(cmd)
	if err != nil {
		return trace, err
	}
	return append(trace, sub...), nil
}

func (c *Client) transmit(raw []byte) (*ResponseAPDU, error) {
	rawResp, err := c.Card.Transmit(raw)
	if err != nil {
		return nil, fmt.Errorf("transmission error: %w", err)
	}
	return ParseResponseAPDU(rawResp)
}

func leFromSW2(sw2 byte) int {
	if sw2 == 0 {
		return MaxShortLe
	}
	return int(sw2)
}
