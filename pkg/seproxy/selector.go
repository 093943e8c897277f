package seproxy

import (
	"bytes"
	"fmt"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/tlv"
)

// AidSelector names the application to select on a logical channel.
type AidSelector struct {
	AID []byte

	// FileOccurrence and FileControl build the SELECT P2 byte.
	FileOccurrence iso7816.FileOccurrence
	FileControl    iso7816.SelectionControl

	// SuccessfulStatusCodes are accepted as a successful selection in
	// addition to 9000 (e.g. 6283 for an invalidated application).
	SuccessfulStatusCodes []iso7816.StatusWord
}

// P2 returns the SELECT P2 byte for this selector.
func (a AidSelector) P2() byte {
	return iso7816.SelectP2(a.FileOccurrence, a.FileControl)
}

// SelectCommand builds the SELECT by DF name for channel cla.
func (a AidSelector) SelectCommand(cla iso7816.Class) *iso7816.CommandAPDU {
	return iso7816.SelectApplication(cla, a.AID, a.FileOccurrence, a.FileControl)
}

// Accepts reports whether a SELECT answer means the application is selected.
func (a AidSelector) Accepts(resp *ApduResponse) bool {
	return resp.IsSuccessful(a.SuccessfulStatusCodes...)
}

func (a AidSelector) String() string {
	return fmt.Sprintf("AID %s, occurrence %s, control %s", tlv.FormatHex(a.AID), a.FileOccurrence, a.FileControl)
}

// CardSelector is the criterion a card must meet for a request to apply.
// A selector with neither protocol nor AID matches any inserted card and uses
// the basic channel.
type CardSelector struct {
	Protocol    Protocol
	AidSelector *AidSelector
}

// NeedsLogicalChannel is true when an AID has to be selected.
func (s CardSelector) NeedsLogicalChannel() bool {
	return s.AidSelector != nil && len(s.AidSelector.AID) > 0
}

// sameChannel reports whether a channel opened for s can serve other without
// a new selection. A NEXT or PREVIOUS occurrence always needs a fresh SELECT.
func (s CardSelector) sameChannel(other CardSelector) bool {
	if s.NeedsLogicalChannel() != other.NeedsLogicalChannel() {
		return false
	}
	if !s.NeedsLogicalChannel() {
		return true
	}
	a, b := s.AidSelector, other.AidSelector
	switch b.FileOccurrence {
	case iso7816.NextOccurrence, iso7816.PreviousOccurrence:
		return false
	}
	return bytes.Equal(a.AID, b.AID) &&
		a.FileOccurrence == b.FileOccurrence &&
		a.FileControl == b.FileControl
}

func (s CardSelector) String() string {
	target := "basic channel"
	if s.NeedsLogicalChannel() {
		target = s.AidSelector.String()
	}
	if s.Protocol == ProtocolUnspecified {
		return target
	}
	return fmt.Sprintf("%s, protocol %s", target, s.Protocol)
}
