package iso7816

import (
	"fmt"
)

// SELECT COMMAND LOGIC (ISO 7816-4):
// The SELECT command (INS 'A4') makes a file or an application current on a
// logical channel.
//
// P1 (Selection Method): how the target is named (file id, DF name/AID, path).
// P2 (Selection Control):
// - Bits 4-3: response type (FCI, FCP, FMD or no data).
// - Bits 2-1: occurrence (first, last, next, previous). Selecting the NEXT
//   occurrence of a partial AID walks all applications sharing that prefix.

// SelectionMethod defines how the file is targeted (P1).
type SelectionMethod byte

const (
	SelectByFileID          SelectionMethod = 0x00
	SelectChildDF           SelectionMethod = 0x01
	SelectEFUnderCurrentDF  SelectionMethod = 0x02
	SelectParentDF          SelectionMethod = 0x03
	SelectByDFName          SelectionMethod = 0x04 // Select by AID
	SelectPathFromMF        SelectionMethod = 0x08
	SelectPathFromCurrentDF SelectionMethod = 0x09
)

func (s SelectionMethod) String() string {
	switch s {
	case SelectByFileID:
		return "Select by File ID"
	case SelectChildDF:
		return "Select Child DF"
	case SelectEFUnderCurrentDF:
		return "Select EF under current DF"
	case SelectParentDF:
		return "Select Parent DF"
	case SelectByDFName:
		return "Select by DF Name (AID)"
	case SelectPathFromMF:
		return "Select Path from MF"
	case SelectPathFromCurrentDF:
		return "Select Path from Current DF"
	default:
		return fmt.Sprintf("Unknown Method (0x%02X)", byte(s))
	}
}

// FileOccurrence defines which instance of the file to select (bits 2-1 of P2).
type FileOccurrence byte

const (
	FirstOrOnlyOccurrence FileOccurrence = 0b0000_00_00
	LastOccurrence        FileOccurrence = 0b0000_00_01
	NextOccurrence        FileOccurrence = 0b0000_00_10
	PreviousOccurrence    FileOccurrence = 0b0000_00_11
)

func (f FileOccurrence) String() string {
	switch f {
	case FirstOrOnlyOccurrence:
		return "First/Only"
	case LastOccurrence:
		return "Last"
	case NextOccurrence:
		return "Next"
	case PreviousOccurrence:
		return "Previous"
	default:
		return "Unknown Occurrence"
	}
}

// SelectionControl defines what data to return (bits 4-3 of P2).
type SelectionControl byte

const (
	ReturnFCI    SelectionControl = 0b0000_00_00
	ReturnFCP    SelectionControl = 0b0000_01_00
	ReturnFMD    SelectionControl = 0b0000_10_00
	ReturnNoData SelectionControl = 0b0000_11_00
)

func (s SelectionControl) String() string {
	switch s {
	case ReturnFCI:
		return "Return FCI"
	case ReturnFCP:
		return "Return FCP"
	case ReturnFMD:
		return "Return FMD"
	case ReturnNoData:
		return "No Response Data"
	default:
		return "Unknown Control"
	}
}

// SelectP2 combines occurrence and control into the SELECT P2 byte.
func SelectP2(occurrence FileOccurrence, ctrl SelectionControl) byte {
	return byte(ctrl) | byte(occurrence)
}

// NewSelectCommand creates a generic SELECT command.
//
// T=0 compatibility: a command carrying data is sent without Le (case 3) and
// the card answers '61 XX'; the Client then fetches the data. Callers talking
// T=1 or ISO 14443-4 may set Ne on the returned command to send a true case 4.
func NewSelectCommand(
	cla Class,
	method SelectionMethod,
	occurrence FileOccurrence,
	ctrl SelectionControl,
	data []byte,
) *CommandAPDU {
	ne := 0
	if len(data) == 0 && ctrl != ReturnNoData {
		ne = MaxShortLe
	}

	return NewCommandAPDU(cla, mustInstruction(INS_SELECT), byte(method), SelectP2(occurrence, ctrl), data, ne)
}

// SelectByAID selects the first application matching aid and asks for its FCI.
func SelectByAID(cla Class, aid []byte) *CommandAPDU {
	return SelectApplication(cla, aid, FirstOrOnlyOccurrence, ReturnFCI)
}

// SelectApplication selects an application by DF name with explicit
// occurrence and response control.
func SelectApplication(cla Class, aid []byte, occurrence FileOccurrence, ctrl SelectionControl) *CommandAPDU {
	return NewSelectCommand(cla, SelectByDFName, occurrence, ctrl, aid)
}

// SelectMF creates a command to select the Master File.
func SelectMF(cla Class) *CommandAPDU {
	return NewSelectCommand(cla, SelectByFileID, FirstOrOnlyOccurrence, ReturnFCI, nil)
}
