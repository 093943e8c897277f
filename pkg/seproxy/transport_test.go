package seproxy

import (
	"errors"
	"fmt"

	"github.com/gregLibert/seproxy/pkg/tlv"
)

// fakeChannel is a channel handed out by fakeTransport.
type fakeChannel struct {
	id  int
	aid []byte
	sel []byte
}

func (c *fakeChannel) SelectResponse() []byte {
	return c.sel
}

// fakeTransport is a scripted Transport. Each field injects one behaviour;
// calls records every operation in order.
type fakeTransport struct {
	absent   bool
	protocol Protocol
	atr      []byte

	presenceErr error
	protocolErr error
	sessionErr  error

	basicErr   error
	basicNil   bool
	logicalErr error
	logicalNil bool

	// selectResponses maps an AID (hex) to the SELECT answer. A missing AID
	// answers 6A82.
	selectResponses map[string]string

	// responses maps a command (hex) to the answer (hex). Unknown commands
	// answer 9000.
	responses   map[string]string
	exchangeErr error
	closeErr    error

	nextID int
	open   map[int]bool
	calls  []string
}

func newFakeTransport() *fakeTransport {
	return &fakeTransport{
		protocol:        ProtocolISO7816_3,
		selectResponses: map[string]string{},
		responses:       map[string]string{},
		open:            map[int]bool{},
	}
}

func (f *fakeTransport) record(format string, args ...interface{}) {
	f.calls = append(f.calls, fmt.Sprintf(format, args...))
}

func (f *fakeTransport) IsCardPresent() (bool, error) {
	f.record("present")
	return !f.absent, f.presenceErr
}

func (f *fakeTransport) CardProtocol() (Protocol, error) {
	f.record("protocol")
	return f.protocol, f.protocolErr
}

func (f *fakeTransport) OpenSession() error {
	f.record("session")
	return f.sessionErr
}

func (f *fakeTransport) OpenBasicChannel() (Channel, error) {
	f.record("open basic")
	if f.basicErr != nil {
		return nil, f.basicErr
	}
	if f.basicNil {
		return nil, nil
	}
	return f.newChannel(nil, nil), nil
}

func (f *fakeTransport) OpenLogicalChannel(sel AidSelector) (Channel, error) {
	aid := tlv.FormatHex(sel.AID)
	f.record("open logical %s", aid)
	if f.logicalErr != nil {
		return nil, f.logicalErr
	}
	if f.logicalNil {
		return nil, nil
	}
	resp, ok := f.selectResponses[aid]
	if !ok {
		resp = "6A82"
	}
	return f.newChannel(sel.AID, tlv.Hex(resp)), nil
}

func (f *fakeTransport) newChannel(aid, sel []byte) *fakeChannel {
	f.nextID++
	f.open[f.nextID] = true
	return &fakeChannel{id: f.nextID, aid: aid, sel: sel}
}

func (f *fakeTransport) Exchange(ch Channel, command []byte) ([]byte, error) {
	c := ch.(*fakeChannel)
	cmd := tlv.FormatHex(command)
	f.record("exchange %d %s", c.id, cmd)
	if !f.open[c.id] {
		return nil, errors.New("channel closed")
	}
	if f.exchangeErr != nil {
		return nil, f.exchangeErr
	}
	if resp, ok := f.responses[cmd]; ok {
		return tlv.Hex(resp), nil
	}
	return tlv.Hex("9000"), nil
}

func (f *fakeTransport) CloseChannel(ch Channel) error {
	c := ch.(*fakeChannel)
	f.record("close %d", c.id)
	if f.closeErr != nil {
		return f.closeErr
	}
	delete(f.open, c.id)
	return nil
}

// atrTransport adds ATR reporting to fakeTransport.
type atrTransport struct {
	*fakeTransport
	err error
}

func (a atrTransport) ATR() ([]byte, error) {
	return a.atr, a.err
}
