package iso7816

import (
	"fmt"
	"strings"

	"github.com/gregLibert/seproxy/pkg/tlv"
	"github.com/moov-io/bertlv"
)

// FILE CONTROL INFORMATION according to ISO/IEC 7816-4.
//
// A successful SELECT answers with data describing the selected file or
// application. Its shape is chosen by the SELECT P2 control bits:
// - FCI: template '6F' holding '62' and/or '64', or flat tags (GlobalPlatform
//   and EMV cards put '84' and 'A5' directly under '6F').
// - FCP: mandatory template '62' (technical attributes).
// - FMD: mandatory template '64' (administrative data).
// - No data.

// FCPTemplate (File Control Parameters) - Tag '62'.
type FCPTemplate struct {
	DataSizeExcludingStruct []byte `tlv:"80" fmt:"int"`
	TotalFileSize           []byte `tlv:"81" fmt:"int"`
	FileDescriptor          []byte `tlv:"82"`
	FileIdentifier          []byte `tlv:"83"`
	DFName                  []byte `tlv:"84"`
	ProprietaryInfoRaw      []byte `tlv:"85"`
	SecurityAttrProprietary []byte `tlv:"86"`
	ExtFileControlInfoID    []byte `tlv:"87"`
	ShortEFIdentifier       []byte `tlv:"88"`
	LifeCycleStatus         []byte `tlv:"8A"`
	SecAttrRefExpanded      []byte `tlv:"8B"`
	SecurityAttrCompact     []byte `tlv:"8C"`
	SecEnvTemplateID        []byte `tlv:"8D"`
	ChannelSecurityAttr     []byte `tlv:"8E"`
	SecAttrTemplateData     []byte `tlv:"A0"`
	SecAttrTemplateProp     []byte `tlv:"A1"`
	OneOrMorePairs          []byte `tlv:"A2"`
	ProprietaryDataBER      []byte `tlv:"A5"`
	SecurityAttrExpanded    []byte `tlv:"AB"`
	CryptoMechanismID       []byte `tlv:"AC"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FMDTemplate (File Management Data) - Tag '64'.
type FMDTemplate struct {
	ApplicationIdentifier []byte `tlv:"84"`
	ApplicationLabel      []byte `tlv:"50" fmt:"ascii"`
	ProprietaryData53     []byte `tlv:"53"`
	ProprietaryData73     []byte `tlv:"73"`

	Unknown []bertlv.TLV `tlv:",unknown"`
}

// FileControlInfo represents the parsed result of a SELECT command.
type FileControlInfo struct {
	FCP *FCPTemplate
	FMD *FMDTemplate

	// Unknown contains TLV tags that did not match FCP or FMD definitions
	Unknown []bertlv.TLV // (only populated in "flat" FCI parsing mode).

	ProprietaryRawData []byte
}

// AID returns the application identifier (tag 84) from FCP or FMD.
func (fci *FileControlInfo) AID() []byte {
	if fci.FCP != nil && len(fci.FCP.DFName) > 0 {
		return fci.FCP.DFName
	}
	if fci.FMD != nil && len(fci.FMD.ApplicationIdentifier) > 0 {
		return fci.FMD.ApplicationIdentifier
	}
	return nil
}

// DFName returns the Dedicated File Name (Tag 84) from FCP.
func (fci *FileControlInfo) DFName() []byte {
	if fci.FCP != nil {
		return fci.FCP.DFName
	}
	return nil
}

// ApplicationLabel returns the Application Label (Tag 50) from FMD.
func (fci *FileControlInfo) ApplicationLabel() []byte {
	if fci.FMD != nil {
		return fci.FMD.ApplicationLabel
	}
	return nil
}

// ParseSelectData decodes the data field of a SELECT response according to
// the requested response control. Empty data yields a nil result.
func ParseSelectData(data []byte, ctrl SelectionControl) (*FileControlInfo, error) {
	if len(data) == 0 || ctrl == ReturnNoData {
		return nil, nil
	}

	if data[0] >= 0xC0 {
		return &FileControlInfo{ProprietaryRawData: data}, nil
	}

	packets, err := bertlv.Decode(data)
	if err != nil {
		return nil, fmt.Errorf("BER-TLV decode failed: %w", err)
	}

	fci := &FileControlInfo{
		FCP: &FCPTemplate{},
		FMD: &FMDTemplate{},
	}

	switch ctrl {
	case ReturnFCP:
		return fci, unmarshalMandatory(packets, "62", fci.FCP)
	case ReturnFMD:
		return fci, unmarshalMandatory(packets, "64", fci.FMD)
	}

	working := packets
	if p, ok := tlv.Find(packets, "6F"); ok {
		working = p.TLVs
	}

	foundFCP, err := unmarshalTemplate(working, "62", fci.FCP)
	if err != nil {
		return nil, err
	}
	foundFMD, err := unmarshalTemplate(working, "64", fci.FMD)
	if err != nil {
		return nil, err
	}
	if foundFCP || foundFMD {
		return fci, nil
	}

	// Flat layout: FCP tags first, what remains is tried as FMD.
	if err := tlv.UnmarshalFromPackets(working, fci.FCP); err != nil {
		return nil, fmt.Errorf("flat FCP unmarshal failed: %w", err)
	}
	rest := fci.FCP.Unknown
	fci.FCP.Unknown = nil

	if err := tlv.UnmarshalFromPackets(rest, fci.FMD); err != nil {
		return nil, fmt.Errorf("flat FMD unmarshal failed: %w", err)
	}
	fci.Unknown = fci.FMD.Unknown
	fci.FMD.Unknown = nil

	return fci, nil
}

// Describe renders the populated FCI fields, one per line.
func (fci *FileControlInfo) Describe() string {
	if fci == nil {
		return ""
	}
	var sb strings.Builder
	if len(fci.ProprietaryRawData) > 0 {
		sb.WriteString("    - Proprietary: " + tlv.FormatHex(fci.ProprietaryRawData))
		return sb.String()
	}
	tlv.WriteStructFields(&sb, "FCP", fci.FCP)
	tlv.WriteStructFields(&sb, "FMD", fci.FMD)
	for _, u := range fci.Unknown {
		if sb.Len() > 0 {
			sb.WriteString("\n")
		}
		sb.WriteString(fmt.Sprintf("    - Unknown Tag %s: %s", strings.ToUpper(u.Tag), tlv.FormatHex(tlv.RawValue(u))))
	}
	return sb.String()
}

func unmarshalMandatory(packets []bertlv.TLV, tag string, target interface{}) error {
	found, err := unmarshalTemplate(packets, tag, target)
	if err != nil {
		return err
	}
	if !found {
		return fmt.Errorf("mandatory tag '%s' not found", tag)
	}
	return nil
}

func unmarshalTemplate(packets []bertlv.TLV, tag string, target interface{}) (bool, error) {
	p, ok := tlv.Find(packets, tag)
	if !ok {
		return false, nil
	}
	if err := tlv.UnmarshalFromPackets(p.TLVs, target); err != nil {
		return true, fmt.Errorf("template '%s': %w", tag, err)
	}
	return true, nil
}
