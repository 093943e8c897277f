// Package pcsc implements seproxy.Transport on top of PC/SC readers.
package pcsc

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/ebfe/scard"
	"github.com/rs/zerolog"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/seproxy"
)

// cardConn is the part of *scard.Card the reader uses.
type cardConn interface {
	Transmit(cmd []byte) ([]byte, error)
	Status() (*scard.CardStatus, error)
	Disconnect(d scard.Disposition) error
}

// statusWatcher is the part of *scard.Context the reader uses.
type statusWatcher interface {
	GetStatusChange(states []scard.ReaderState, timeout time.Duration) error
}

// Reader is one PC/SC reader seen as a seproxy.Transport.
// Only one card connection is kept at a time.
type Reader struct {
	name    string
	ctx     statusWatcher
	connect func(reader string) (cardConn, error)
	log     zerolog.Logger

	contactless     bool
	logicalChannels bool

	card cardConn
}

// channel is a PC/SC channel. Number 0 is the basic channel.
type channel struct {
	number   uint8
	selected []byte
}

// SelectResponse is the SELECT answer, nil for the basic channel.
func (c *channel) SelectResponse() []byte {
	return c.selected
}

// Option configures a Reader.
type Option func(*Reader)

// WithContactless makes the reader report ISO 14443-4 cards.
func WithContactless(contactless bool) Option {
	return func(r *Reader) { r.contactless = contactless }
}

// WithLogicalChannels opens logical channels with MANAGE CHANNEL instead of
// selecting applications on the basic channel. Commands are moved onto the
// channel through their CLA, proprietary classes included.
func WithLogicalChannels(enabled bool) Option {
	return func(r *Reader) { r.logicalChannels = enabled }
}

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(r *Reader) { r.log = l }
}

// NewReader binds reader name of ctx.
func NewReader(ctx *scard.Context, name string, opts ...Option) *Reader {
	connect := func(reader string) (cardConn, error) {
		// T=0 or T=1 explicitly, some drivers reject ProtocolAny (error 57).
		card, err := ctx.Connect(reader, scard.ShareShared, scard.ProtocolT0|scard.ProtocolT1)
		if err != nil {
			return nil, err
		}
		return card, nil
	}
	return newReader(ctx, name, connect, opts...)
}

func newReader(ctx statusWatcher, name string, connect func(string) (cardConn, error), opts ...Option) *Reader {
	r := &Reader{
		name:    name,
		ctx:     ctx,
		connect: connect,
		log:     zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(r)
	}
	r.log = r.log.With().Str("reader", name).Logger()
	return r
}

// Name returns the PC/SC reader name.
func (r *Reader) Name() string {
	return r.name
}

// IsCardPresent queries the reader state without waiting.
func (r *Reader) IsCardPresent() (bool, error) {
	states := []scard.ReaderState{{
		Reader:       r.name,
		CurrentState: scard.StateUnaware,
	}}
	if err := r.ctx.GetStatusChange(states, 0); err != nil {
		return false, fmt.Errorf("reader status: %w", err)
	}
	present := states[0].EventState&scard.StatePresent != 0
	if !present && r.card != nil {
		r.log.Debug().Msg("card removed, dropping connection")
		r.card = nil
	}
	return present, nil
}

// CardProtocol reports ISO 14443-4 for contactless readers, ISO 7816-3 otherwise.
func (r *Reader) CardProtocol() (seproxy.Protocol, error) {
	if r.contactless {
		return seproxy.ProtocolISO14443_4, nil
	}
	return seproxy.ProtocolISO7816_3, nil
}

// OpenSession connects to the card if not connected yet.
func (r *Reader) OpenSession() error {
	if r.card != nil {
		return nil
	}
	card, err := r.connect(r.name)
	if err != nil {
		return fmt.Errorf("connect %q: %w", r.name, err)
	}
	r.card = card
	r.log.Debug().Msg("card connected")
	return nil
}

// OpenBasicChannel reconnects first when a previous close dropped the
// connection.
func (r *Reader) OpenBasicChannel() (seproxy.Channel, error) {
	if err := r.OpenSession(); err != nil {
		return nil, err
	}
	return &channel{}, nil
}

// OpenLogicalChannel selects sel.AID, on a new logical channel when enabled.
// A card answering 6A82 reports seproxy.ErrNoSuchElement.
func (r *Reader) OpenLogicalChannel(sel seproxy.AidSelector) (seproxy.Channel, error) {
	if err := r.OpenSession(); err != nil {
		return nil, err
	}
	client := iso7816.NewClient(basicTransmitter{r})

	ch := &channel{}
	if r.logicalChannels {
		number, err := r.manageChannelOpen(client)
		if err != nil {
			return nil, err
		}
		ch.number = number
	}

	cla, err := iso7816.NewInterindustryClass(false, iso7816.SMNone, ch.number)
	if err != nil {
		return nil, err
	}

	trace, err := iso7816.NewClient(channelTransmitter{r, ch}).Send(sel.SelectCommand(cla))
	if err != nil {
		if cerr := r.closeLogical(ch); cerr != nil {
			r.log.Warn().Err(cerr).Uint8("channel", ch.number).Msg("channel left open")
		}
		return nil, fmt.Errorf("select %X: %w", sel.AID, err)
	}
	resp := trace.Response()

	if resp.Status == iso7816.SW_ERR_FILE_NOT_FOUND {
		if err := r.closeLogical(ch); err != nil {
			return nil, err
		}
		return nil, fmt.Errorf("AID %X: %w", sel.AID, seproxy.ErrNoSuchElement)
	}

	ch.selected = resp.Bytes()
	r.log.Debug().Uint8("channel", ch.number).Hex("aid", sel.AID).Stringer("sw", resp.Status).Msg("application selected")
	return ch, nil
}

func (r *Reader) manageChannelOpen(client *iso7816.Client) (uint8, error) {
	cla, _ := iso7816.NewClass(0x00)
	trace, err := client.Send(iso7816.OpenChannelCommand(cla))
	if err != nil {
		return 0, fmt.Errorf("manage channel: %w", err)
	}
	return iso7816.ParseOpenChannelResponse(trace.Response())
}

// Exchange moves command onto the channel's CLA and transmits it.
func (r *Reader) Exchange(ch seproxy.Channel, command []byte) ([]byte, error) {
	c, ok := ch.(*channel)
	if !ok {
		return nil, fmt.Errorf("foreign channel %T", ch)
	}
	return r.transmit(c, command)
}

func (r *Reader) transmit(c *channel, command []byte) ([]byte, error) {
	if r.card == nil {
		return nil, errNotConnected
	}
	if c.number > 0 {
		var err error
		if command, err = iso7816.RewriteChannel(command, c.number); err != nil {
			return nil, err
		}
	}
	return r.card.Transmit(command)
}

// CloseChannel releases a logical channel with MANAGE CHANNEL, or
// disconnects (leaving the card powered) for channel 0.
func (r *Reader) CloseChannel(ch seproxy.Channel) error {
	c, ok := ch.(*channel)
	if !ok {
		return fmt.Errorf("foreign channel %T", ch)
	}
	if c.number > 0 {
		return r.closeLogical(c)
	}
	return r.Disconnect()
}

func (r *Reader) closeLogical(c *channel) error {
	if c.number == 0 {
		return nil
	}
	cla, _ := iso7816.NewClass(0x00)
	cmd, err := iso7816.CloseChannelCommand(cla, c.number)
	if err != nil {
		return err
	}
	trace, err := iso7816.NewClient(basicTransmitter{r}).Send(cmd)
	if err != nil {
		return fmt.Errorf("close channel %d: %w", c.number, err)
	}
	if sw := trace.Response().Status; sw != iso7816.SW_NO_ERROR {
		return fmt.Errorf("close channel %d: %s", c.number, sw.Verbose())
	}
	r.log.Debug().Uint8("channel", c.number).Msg("logical channel closed")
	return nil
}

// ATR returns the answer to reset of the connected card.
func (r *Reader) ATR() ([]byte, error) {
	if r.card == nil {
		return nil, errNotConnected
	}
	st, err := r.card.Status()
	if err != nil {
		return nil, fmt.Errorf("card status: %w", err)
	}
	return st.Atr, nil
}

// Disconnect drops the card connection, if any.
func (r *Reader) Disconnect() error {
	if r.card == nil {
		return nil
	}
	card := r.card
	r.card = nil
	if err := card.Disconnect(scard.LeaveCard); err != nil {
		return fmt.Errorf("disconnect: %w", err)
	}
	r.log.Debug().Msg("card disconnected")
	return nil
}

var errNotConnected = errors.New("no card connection")

type basicTransmitter struct{ r *Reader }

func (b basicTransmitter) Transmit(cmd []byte) ([]byte, error) {
	return b.r.transmit(&channel{}, cmd)
}

type channelTransmitter struct {
	r  *Reader
	ch *channel
}

func (c channelTransmitter) Transmit(cmd []byte) ([]byte, error) {
	return c.r.transmit(c.ch, cmd)
}

// PickReader chooses a reader by name substring, else by index.
func PickReader(readers []string, name string, index int) (string, error) {
	if len(readers) == 0 {
		return "", errors.New("no PC/SC reader found")
	}
	if name != "" {
		for _, r := range readers {
			if strings.Contains(r, name) {
				return r, nil
			}
		}
		return "", fmt.Errorf("no reader matching %q", name)
	}
	if index < 0 || index >= len(readers) {
		return "", fmt.Errorf("reader index %d out of range (0..%d)", index, len(readers)-1)
	}
	return readers[index], nil
}
