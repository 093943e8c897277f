package seproxy

import (
	"errors"
	"io"
	"testing"
)

func TestTransportError(t *testing.T) {
	err := error(transportError(ErrExchangeFailed, 2, io.ErrUnexpectedEOF))

	if got := err.Error(); got != "request 2: exchange failed: unexpected EOF" {
		t.Errorf("Error() = %q", got)
	}
	if !errors.Is(err, ErrExchangeFailed) {
		t.Error("kind not matched")
	}
	if errors.Is(err, ErrCloseFailed) {
		t.Error("other kind matched")
	}
	if !errors.Is(err, io.ErrUnexpectedEOF) {
		t.Error("cause not reachable")
	}

	release := transportError(ErrCloseFailed, -1, io.ErrClosedPipe)
	if got := release.Error(); got != "close failed: io: read/write on closed pipe" {
		t.Errorf("Error() = %q", got)
	}
}

func TestResults(t *testing.T) {
	a, b := &SeResponse{}, &SeResponse{ChannelPreviouslyOpen: true}
	results := Results{
		Matched{Response: a},
		NotMatched{Reason: ApplicationNotFound},
		Matched{Response: b},
	}

	matches := results.Matches()
	if len(matches) != 2 || matches[0] != a || matches[2] != b {
		t.Errorf("Matches() = %v", matches)
	}

	responses := results.Responses()
	if len(responses) != 3 || responses[1] != nil || responses[2] != b {
		t.Errorf("Responses() = %v", responses)
	}

	if NotProcessed.String() != "not processed" || Reason(0).String() != "Reason(0)" {
		t.Error("reason names mismatch")
	}
}
