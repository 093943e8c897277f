/*
Package seproxy turns a batch of card selection requests into APDU exchanges
over a reader technology supplied by the caller.

A Transport opens basic or logical channels on one card, exchanges raw byte
buffers and closes channels. The Processor drives it for each SeRequest:
check the card presence and protocol, open a channel (selecting the AID when
one is given), send every APDU once, then keep or close the channel.

Each request yields a SlotResult: Matched with its SeResponse, or NotMatched
with the reason the selector did not apply. Fatal transport failures abort
the whole batch and are returned as a *TransportError.

# Usage Example

	p := seproxy.NewProcessor(reader, seproxy.WithLogger(log))
	defer p.Release()

	results, err := p.Process([]seproxy.SeRequest{{
	    Selector: seproxy.CardSelector{
	        AidSelector: &seproxy.AidSelector{AID: aid},
	    },
	    ApduRequests: []seproxy.ApduRequest{{Bytes: getData, Case4: false}},
	}}, seproxy.FirstMatch, seproxy.CloseAfter)
	if err != nil {
	    log.Fatal().Err(err).Msg("batch aborted")
	}

	for i, resp := range results.Matches() {
	    fmt.Printf("slot %d: %X\n", i, resp.ApduResponses[0].Bytes)
	}
*/
package seproxy
