package iso7816

import (
	"fmt"
)

// MANAGE CHANNEL (ISO 7816-4, INS '70'):
// - P1 = '00' opens a logical channel. With P2 = '00' the card assigns the
//   number and returns it in a one-byte data field (Le = 01).
// - P1 = '80' closes the logical channel given in P2. The command itself is
//   sent on the basic channel or on the channel being closed.
//
// The basic channel (0) is always open and cannot be closed with this command.

const (
	manageChannelOpen  byte = 0x00
	manageChannelClose byte = 0x80
)

// OpenChannelCommand asks the card to allocate a new logical channel.
func OpenChannelCommand(cla Class) *CommandAPDU {
	return NewCommandAPDU(cla, mustInstruction(INS_MANAGE_CHANNEL), manageChannelOpen, 0x00, nil, 1)
}

// CloseChannelCommand releases logical channel ch.
func CloseChannelCommand(cla Class, ch uint8) (*CommandAPDU, error) {
	if ch == 0 {
		return nil, fmt.Errorf("basic channel cannot be closed")
	}
	if ch > MaxLogicalChannel {
		return nil, fmt.Errorf("channel %d out of range (max %d)", ch, MaxLogicalChannel)
	}
	return NewCommandAPDU(cla, mustInstruction(INS_MANAGE_CHANNEL), manageChannelClose, ch, nil, 0), nil
}

// ParseOpenChannelResponse extracts the channel number assigned by the card.
func ParseOpenChannelResponse(resp *ResponseAPDU) (uint8, error) {
	if resp == nil {
		return 0, fmt.Errorf("no response")
	}
	if resp.Status != SW_NO_ERROR {
		return 0, fmt.Errorf("open channel refused: %s", resp.Status.Verbose())
	}
	if len(resp.Data) != 1 {
		return 0, fmt.Errorf("open channel: unexpected data length %d", len(resp.Data))
	}
	ch := resp.Data[0]
	if ch == 0 || ch > MaxLogicalChannel {
		return 0, fmt.Errorf("open channel: invalid channel number %d", ch)
	}
	return ch, nil
}
