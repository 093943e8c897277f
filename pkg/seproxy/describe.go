package seproxy

import (
	"fmt"
	"strings"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/tlv"
)

// Describe renders an ASCII report of a batch: one block per request with its
// outcome, the selection answer (FCI decoded when possible) and every APDU
// exchanged. requests and results must come from the same Process call.
func Describe(requests []SeRequest, results Results) string {
	var sb strings.Builder

	sb.WriteString("=== SE BATCH REPORT ===\n")
	sb.WriteString(fmt.Sprintf("    + Requests: %d | Matched: %d\n", len(requests), len(results.Matches())))

	for i, req := range requests {
		sb.WriteString("\n")
		sb.WriteString(fmt.Sprintf("[%d] Request: %s\n", i+1, req.Selector))

		var res SlotResult
		if i < len(results) {
			res = results[i]
		}

		switch r := res.(type) {
		case Matched:
			describeMatched(&sb, req, r.Response)
		case NotMatched:
			sb.WriteString(fmt.Sprintf("    + Outcome: [--] Not matched, %s\n", r.Reason))
		default:
			sb.WriteString("    + Outcome: [??] No result\n")
		}
	}

	return sb.String()
}

func describeMatched(sb *strings.Builder, req SeRequest, resp *SeResponse) {
	outcome := "[OK] Matched"
	if resp.ChannelPreviouslyOpen {
		outcome += " (channel previously open)"
	}
	sb.WriteString(fmt.Sprintf("    + Outcome: %s\n", outcome))

	if len(resp.Selection.ATR) > 0 {
		sb.WriteString(fmt.Sprintf("    + ATR:     %s\n", tlv.FormatHex(resp.Selection.ATR)))
	}

	if fci := resp.Selection.FCI; fci != nil {
		var additional []iso7816.StatusWord
		ctrl := iso7816.ReturnFCI
		if req.Selector.AidSelector != nil {
			additional = req.Selector.AidSelector.SuccessfulStatusCodes
			ctrl = req.Selector.AidSelector.FileControl
		}
		sb.WriteString(fmt.Sprintf("    + Select:  %s\n", statusLine(fci, additional)))
		describeFCI(sb, fci, ctrl)
	}

	for j, r := range resp.ApduResponses {
		var apdu ApduRequest
		if j < len(req.ApduRequests) {
			apdu = req.ApduRequests[j]
		}
		name := apdu.Name
		if name == "" {
			name = fmt.Sprintf("#%d", j+1)
		}
		sb.WriteString(fmt.Sprintf("    + APDU %s: %s\n", name, tlv.FormatHex(apdu.Bytes)))
		sb.WriteString(fmt.Sprintf("      Result:  %s\n", statusLine(r, apdu.SuccessfulStatusCodes)))
		if data := r.Data(); len(data) > 0 {
			sb.WriteString(fmt.Sprintf("      Dump:    %s\n", tlv.FormatHex(data)))
		}
	}
}

func describeFCI(sb *strings.Builder, resp *ApduResponse, ctrl iso7816.SelectionControl) {
	data := resp.Data()
	if len(data) == 0 {
		return
	}

	fci, err := iso7816.ParseSelectData(data, ctrl)
	if err != nil {
		sb.WriteString(fmt.Sprintf("    - FCI Parsing Failed: %v\n", err))
		return
	}
	if fci == nil {
		return
	}
	if desc := fci.Describe(); desc != "" {
		sb.WriteString(desc)
		sb.WriteString("\n")
	}
}

func statusLine(r *ApduResponse, additional []iso7816.StatusWord) string {
	sw := r.StatusWord()
	swHex := fmt.Sprintf("%02X %02X", sw.SW1(), sw.SW2())
	if r.IsSuccessful(additional...) {
		return fmt.Sprintf("[%s] [OK] %s", swHex, sw)
	}
	return fmt.Sprintf("[%s] [!!] %s", swHex, sw.Verbose())
}
