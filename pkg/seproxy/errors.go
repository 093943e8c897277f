package seproxy

import (
	"errors"
	"fmt"
)

// Sentinels a Transport wraps (with %w) to classify its failures. Any other
// error is handled as an I/O failure.
var (
	// ErrNoSuchElement: the application or the basic channel is not available
	// on this card. The request is not matched, the batch goes on.
	ErrNoSuchElement = errors.New("no such element")

	// ErrSecurity: access to the card or application was refused.
	ErrSecurity = errors.New("security error")
)

// Kinds of fatal errors. A *TransportError matches its kind with errors.Is.
var (
	ErrSessionUnreachable = errors.New("session unreachable")
	ErrChannelOpenFailed  = errors.New("channel open failed")
	ErrExchangeFailed     = errors.New("exchange failed")
	ErrCloseFailed        = errors.New("close failed")
)

var errNilChannel = errors.New("transport returned no channel")

// TransportError aborts a batch. Slot is the index of the request being
// processed, -1 outside of a batch.
type TransportError struct {
	Kind  error
	Slot  int
	Cause error
}

func (e *TransportError) Error() string {
	if e.Slot < 0 {
		return fmt.Sprintf("%v: %v", e.Kind, e.Cause)
	}
	return fmt.Sprintf("request %d: %v: %v", e.Slot, e.Kind, e.Cause)
}

// Unwrap exposes the transport cause, so errors.Is(err, ErrSecurity) works too.
func (e *TransportError) Unwrap() error {
	return e.Cause
}

// Is matches the error kind.
func (e *TransportError) Is(target error) bool {
	return target == e.Kind
}

func transportError(kind error, slot int, cause error) *TransportError {
	return &TransportError{Kind: kind, Slot: slot, Cause: cause}
}
