package seproxy

// Channel is a channel opened on the card by a Transport.
type Channel interface {
	// SelectResponse is the raw answer to the SELECT issued when the channel
	// was opened, status word included. Nil for a basic channel.
	SelectResponse() []byte
}

// Transport is a reader technology able to reach one card. Calls block until
// the reader answers; deadlines belong to the implementation.
//
// Failures are classified with ErrNoSuchElement and ErrSecurity, anything
// else is an I/O error.
type Transport interface {
	IsCardPresent() (bool, error)

	// CardProtocol reports the protocol the inserted card speaks.
	CardProtocol() (Protocol, error)

	// OpenSession reaches the card. It is called before the first channel of
	// a batch is opened and must be idempotent.
	OpenSession() error

	OpenBasicChannel() (Channel, error)

	// OpenLogicalChannel opens a channel and selects sel.AID on it.
	OpenLogicalChannel(sel AidSelector) (Channel, error)

	// Exchange writes command on ch and returns the raw answer.
	Exchange(ch Channel, command []byte) ([]byte, error)

	CloseChannel(ch Channel) error
}

// ATRProvider is implemented by transports able to report the card ATR.
type ATRProvider interface {
	ATR() ([]byte, error)
}
