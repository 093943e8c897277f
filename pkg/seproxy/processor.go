package seproxy

import (
	"errors"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gregLibert/seproxy/pkg/tlv"
)

// Processor runs batches of SeRequest against one Transport.
//
// It owns at most one open channel. A channel kept open at the end of a batch
// is reused by the next request with the same selector, otherwise it is
// closed before another channel is opened. A Processor is not safe for
// concurrent use; batches against one reader must be serialized.
type Processor struct {
	transport Transport
	log       zerolog.Logger

	held *heldChannel
}

type heldChannel struct {
	channel   Channel
	selector  CardSelector
	selection SelectionStatus

	// slot is the last request served by the channel.
	slot int
}

// Option configures a Processor.
type Option func(*Processor)

// WithLogger sets the logger. The default discards everything.
func WithLogger(l zerolog.Logger) Option {
	return func(p *Processor) {
		p.log = l
	}
}

// NewProcessor creates a Processor driving t.
func NewProcessor(t Transport, opts ...Option) *Processor {
	p := &Processor{
		transport: t,
		log:       zerolog.Nop(),
	}
	for _, opt := range opts {
		opt(p)
	}
	return p
}

// batch holds the per call state of Process.
type batch struct {
	*Processor
	log zerolog.Logger

	sessionOpen bool
	protocol    *Protocol
}

// Process runs requests in order and returns one result per request. The
// caller gets either the complete results or a *TransportError.
func (p *Processor) Process(requests []SeRequest, processing MultiSeRequestProcessing, control ChannelControl) (Results, error) {
	if len(requests) == 0 {
		return Results{}, nil
	}

	b := &batch{
		Processor: p,
		log: p.log.With().
			Str("batch", uuid.NewString()).
			Stringer("processing", processing).
			Stringer("control", control).
			Logger(),
	}
	b.log.Debug().Int("requests", len(requests)).Msg("batch started")

	results := make(Results, len(requests))

	present, err := p.transport.IsCardPresent()
	if err != nil {
		te := transportError(ErrSessionUnreachable, 0, err)
		b.abort(te)
		return nil, te
	}
	if !present {
		b.log.Warn().Msg("no card in reader")
		// Channels do not survive a card removal.
		p.held = nil
		for i := range results {
			results[i] = NotMatched{Reason: CardAbsent}
		}
		return results, nil
	}

	for i, req := range requests {
		res, err := b.processRequest(i, req)
		if err != nil {
			b.abort(err)
			return nil, err
		}
		results[i] = res

		if _, ok := res.(Matched); ok && processing == FirstMatch {
			for j := i + 1; j < len(results); j++ {
				results[j] = NotMatched{Reason: NotProcessed}
			}
			break
		}
	}

	if control == CloseAfter && p.held != nil {
		if err := p.closeHeld(p.held.slot); err != nil {
			return nil, err
		}
	}

	b.log.Debug().Int("matched", len(results.Matches())).Msg("batch done")
	return results, nil
}

// abort drops the held channel of a failed batch so that no later batch
// reuses it. The close is best effort, err is what the caller gets.
func (b *batch) abort(err error) {
	b.log.Error().Err(err).Msg("batch aborted")
	if b.held == nil {
		return
	}
	ch := b.held.channel
	b.held = nil
	if cerr := b.transport.CloseChannel(ch); cerr != nil {
		b.log.Warn().Err(cerr).Msg("channel of aborted batch not closed")
	}
}

// Release closes the channel left open by the last batch, if any.
func (p *Processor) Release() error {
	return p.closeHeld(-1)
}

func (p *Processor) closeHeld(slot int) error {
	if p.held == nil {
		return nil
	}
	ch := p.held.channel
	p.held = nil

	if err := p.transport.CloseChannel(ch); err != nil {
		return transportError(ErrCloseFailed, slot, err)
	}
	p.log.Debug().Int("slot", slot).Msg("channel closed")
	return nil
}

func (b *batch) processRequest(slot int, req SeRequest) (SlotResult, error) {
	log := b.log.With().Int("slot", slot).Stringer("selector", req.Selector).Logger()

	if req.Selector.Protocol != ProtocolUnspecified {
		actual, err := b.cardProtocol(slot)
		if err != nil {
			return nil, err
		}
		if !req.Selector.Protocol.Accepts(actual) {
			log.Warn().Stringer("card", actual).Msg("protocol mismatch")
			return NotMatched{Reason: ProtocolMismatch}, nil
		}
	}

	held, previouslyOpen, reason, err := b.acquireChannel(slot, req.Selector, log)
	if err != nil {
		return nil, err
	}
	if held == nil {
		log.Warn().Stringer("reason", reason).Msg("request not matched")
		return NotMatched{Reason: reason}, nil
	}

	resp := &SeResponse{
		ChannelPreviouslyOpen: previouslyOpen,
		Selection:             held.selection,
		ApduResponses:         make([]*ApduResponse, 0, len(req.ApduRequests)),
	}

	for _, apdu := range req.ApduRequests {
		r, err := exchange(b.transport, held.channel, apdu)
		if err != nil {
			return nil, transportError(ErrExchangeFailed, slot, err)
		}
		log.Debug().
			Str("apdu", apdu.Name).
			Str("command", tlv.FormatHex(apdu.Bytes)).
			Str("response", tlv.FormatHex(r.Bytes)).
			Msg("apdu exchanged")
		resp.ApduResponses = append(resp.ApduResponses, r)
	}

	return Matched{Response: resp}, nil
}

// acquireChannel returns the channel serving sel. A nil channel with a nil
// error means the request is not matched for reason.
func (b *batch) acquireChannel(slot int, sel CardSelector, log zerolog.Logger) (*heldChannel, bool, Reason, error) {
	if b.held != nil {
		if b.held.selector.sameChannel(sel) {
			log.Debug().Msg("reusing open channel")
			b.held.slot = slot
			return b.held, true, 0, nil
		}
		if err := b.closeHeld(slot); err != nil {
			return nil, false, 0, err
		}
	}

	if !b.sessionOpen {
		if err := b.transport.OpenSession(); err != nil {
			return nil, false, 0, transportError(ErrSessionUnreachable, slot, err)
		}
		b.sessionOpen = true
	}

	var (
		ch  Channel
		err error
	)
	if sel.NeedsLogicalChannel() {
		ch, err = b.transport.OpenLogicalChannel(*sel.AidSelector)
	} else {
		ch, err = b.transport.OpenBasicChannel()
	}
	switch {
	case errors.Is(err, ErrNoSuchElement):
		return nil, false, ApplicationNotFound, nil
	case err != nil:
		return nil, false, 0, transportError(ErrChannelOpenFailed, slot, err)
	case ch == nil:
		return nil, false, 0, transportError(ErrChannelOpenFailed, slot, errNilChannel)
	}

	held := &heldChannel{
		channel:  ch,
		selector: sel,
		slot:     slot,
		selection: SelectionStatus{
			ATR:        b.atr(log),
			HasMatched: true,
		},
	}

	if raw := ch.SelectResponse(); raw != nil {
		fci, err := NewApduResponse(raw)
		if err != nil {
			if cerr := b.transport.CloseChannel(ch); cerr != nil {
				log.Warn().Err(cerr).Msg("channel with malformed selection not closed")
			}
			return nil, false, 0, transportError(ErrChannelOpenFailed, slot, err)
		}
		held.selection.FCI = fci

		if sel.AidSelector != nil && !sel.AidSelector.Accepts(fci) {
			log.Debug().Stringer("sw", fci.StatusWord()).Msg("selection refused by card")
			if err := b.transport.CloseChannel(ch); err != nil {
				return nil, false, 0, transportError(ErrCloseFailed, slot, err)
			}
			return nil, false, SelectionRejected, nil
		}
	}

	log.Debug().Msg("channel opened")
	b.held = held
	return held, false, 0, nil
}

func (b *batch) cardProtocol(slot int) (Protocol, error) {
	if b.protocol != nil {
		return *b.protocol, nil
	}
	actual, err := b.transport.CardProtocol()
	if err != nil {
		return ProtocolUnspecified, transportError(ErrSessionUnreachable, slot, err)
	}
	b.protocol = &actual
	return actual, nil
}

func (b *batch) atr(log zerolog.Logger) []byte {
	provider, ok := b.transport.(ATRProvider)
	if !ok {
		return nil
	}
	atr, err := provider.ATR()
	if err != nil {
		log.Warn().Err(err).Msg("ATR not available")
		return nil
	}
	return atr
}
