package seproxy

import (
	"strings"
	"testing"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/tlv"
)

func TestDescribe(t *testing.T) {
	f := newFakeTransport()
	f.selectResponses[poAID] = poFCI
	f.responses["00B2010C00"] = "0102039000"
	f.responses["00B2020C00"] = "6A83"

	read := aidRequest(ProtocolISO7816_3, poAID)
	read.ApduRequests = []ApduRequest{
		{Bytes: tlv.Hex("00B2010C00"), Name: "Read Record 1"},
		{Bytes: tlv.Hex("00B2020C00")},
	}
	requests := []SeRequest{
		aidRequest(ProtocolMifareUL, poAID),
		read,
	}

	results, err := NewProcessor(f).Process(requests, ProcessAll, CloseAfter)
	if err != nil {
		t.Fatalf("Process() error = %v", err)
	}

	report := Describe(requests, results)

	for _, want := range []string{
		"=== SE BATCH REPORT ===",
		"    + Requests: 2 | Matched: 1",
		"[1] Request: AID A000000291A000000191, occurrence First/Only, control Return FCI, protocol Mifare Ultra Light",
		"    + Outcome: [--] Not matched, protocol mismatch",
		"[2] Request: AID A000000291A000000191",
		"    + Outcome: [OK] Matched",
		"    + Select:  [90 00] [OK] SW_NO_ERROR",
		"    - FCP.DFName (84): A000000291A00000019102",
		"    - FCP.ProprietaryDataBER (A5): BF0C13C70800000000C0E11FA653070A3C230C141001",
		"    + APDU Read Record 1: 00B2010C00",
		"      Result:  [90 00] [OK] SW_NO_ERROR",
		"      Dump:    010203",
		"    + APDU #2: 00B2020C00",
		"      Result:  [6A 83] [!!] [6A83] SW_ERR_RECORD_NOT_FOUND",
	} {
		if !strings.Contains(report, want) {
			t.Errorf("report missing line %q:\n%s", want, report)
		}
	}
}

func TestDescribeUnparsableFCI(t *testing.T) {
	resp := &SeResponse{Selection: SelectionStatus{
		FCI:        &ApduResponse{Bytes: tlv.Hex("6F05840300009000")},
		HasMatched: true,
	}}
	req := aidRequest(ProtocolUnspecified, poAID)
	req.Selector.AidSelector.FileControl = iso7816.ReturnFCP

	report := Describe([]SeRequest{req}, Results{Matched{Response: resp}})
	if !strings.Contains(report, "    - FCI Parsing Failed:") {
		t.Errorf("report should flag the FCI:\n%s", report)
	}
}
