package seproxy

import (
	"fmt"

	"github.com/gregLibert/seproxy/pkg/iso7816"
)

// channelTransmitter binds a Transport to one open channel so the iso7816
// client can drive it.
type channelTransmitter struct {
	transport Transport
	channel   Channel
}

func (c channelTransmitter) Transmit(cmd []byte) ([]byte, error) {
	return c.transport.Exchange(c.channel, cmd)
}

// exchange sends req once on ch. A 61XX answer, or a bare 9000 to a case 4
// command, is completed with GET RESPONSE. The returned response is the last
// answer of the card.
func exchange(t Transport, ch Channel, req ApduRequest) (*ApduResponse, error) {
	client := iso7816.NewClient(channelTransmitter{transport: t, channel: ch})

	trace, err := client.SendRaw(req.Bytes, req.Case4)
	if err != nil {
		return nil, err
	}

	final := trace.Response()
	if final == nil {
		return nil, fmt.Errorf("no response recorded")
	}
	return &ApduResponse{Bytes: final.Bytes()}, nil
}
