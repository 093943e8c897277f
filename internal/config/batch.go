package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/seproxy"
	"github.com/gregLibert/seproxy/pkg/tlv"
)

// BatchFile is the file form of a batch. Byte strings are hex.
type BatchFile struct {
	Processing string        `yaml:"processing" toml:"processing"`
	Channel    string        `yaml:"channel" toml:"channel"`
	Requests   []RequestFile `yaml:"requests" toml:"requests"`
}

// RequestFile describes one SeRequest. Without protocol and aid the request
// runs on the basic channel of any card.
type RequestFile struct {
	Protocol        string     `yaml:"protocol" toml:"protocol"`
	AID             string     `yaml:"aid" toml:"aid"`
	Occurrence      string     `yaml:"occurrence" toml:"occurrence"`
	Control         string     `yaml:"control" toml:"control"`
	SuccessfulCodes []string   `yaml:"successful_codes" toml:"successful_codes"`
	Apdus           []ApduFile `yaml:"apdus" toml:"apdus"`
}

// ApduFile is one command of a request, sent as is.
type ApduFile struct {
	Name            string   `yaml:"name" toml:"name"`
	Hex             string   `yaml:"hex" toml:"hex"`
	Case4           bool     `yaml:"case4" toml:"case4"`
	SuccessfulCodes []string `yaml:"successful_codes" toml:"successful_codes"`
}

// Batch is a parsed batch ready for seproxy.Processor.Process.
type Batch struct {
	Requests   []seproxy.SeRequest
	Processing seproxy.MultiSeRequestProcessing
	Control    seproxy.ChannelControl
}

// LoadBatch reads a batch file, TOML or YAML depending on the extension.
func LoadBatch(path string) (*Batch, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var bf BatchFile
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &bf)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &bf)
	default:
		return nil, fmt.Errorf("unsupported batch file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return bf.Build()
}

// Build converts the file form. Policies default to first-match and
// close-after.
func (bf BatchFile) Build() (*Batch, error) {
	b := &Batch{Processing: seproxy.FirstMatch, Control: seproxy.CloseAfter}

	var err error
	if bf.Processing != "" {
		if b.Processing, err = seproxy.ParseProcessing(bf.Processing); err != nil {
			return nil, err
		}
	}
	if bf.Channel != "" {
		if b.Control, err = seproxy.ParseChannelControl(bf.Channel); err != nil {
			return nil, err
		}
	}

	for i, rf := range bf.Requests {
		req, err := rf.build()
		if err != nil {
			return nil, fmt.Errorf("request %d: %w", i, err)
		}
		b.Requests = append(b.Requests, req)
	}
	return b, nil
}

// Override replaces the batch policies with the non-empty ones of cfg.
func (b *Batch) Override(cfg Config) error {
	var err error
	if cfg.Processing != "" {
		if b.Processing, err = seproxy.ParseProcessing(cfg.Processing); err != nil {
			return err
		}
	}
	if cfg.ChannelControl != "" {
		if b.Control, err = seproxy.ParseChannelControl(cfg.ChannelControl); err != nil {
			return err
		}
	}
	return nil
}

func (rf RequestFile) build() (seproxy.SeRequest, error) {
	var req seproxy.SeRequest

	if rf.Protocol != "" {
		p, err := seproxy.ParseProtocol(rf.Protocol)
		if err != nil {
			return req, err
		}
		req.Selector.Protocol = p
	}

	if rf.AID != "" {
		aid, err := tlv.ParseHex(rf.AID)
		if err != nil {
			return req, fmt.Errorf("aid: %w", err)
		}
		occ, err := ParseOccurrence(rf.Occurrence)
		if err != nil {
			return req, err
		}
		ctrl, err := ParseSelectionControl(rf.Control)
		if err != nil {
			return req, err
		}
		codes, err := parseStatusWords(rf.SuccessfulCodes)
		if err != nil {
			return req, err
		}
		req.Selector.AidSelector = &seproxy.AidSelector{
			AID:                   aid,
			FileOccurrence:        occ,
			FileControl:           ctrl,
			SuccessfulStatusCodes: codes,
		}
	}

	for j, af := range rf.Apdus {
		raw, err := tlv.ParseHex(af.Hex)
		if err != nil {
			return req, fmt.Errorf("apdu %d: %w", j, err)
		}
		if len(raw) == 0 {
			return req, fmt.Errorf("apdu %d: empty command", j)
		}
		codes, err := parseStatusWords(af.SuccessfulCodes)
		if err != nil {
			return req, fmt.Errorf("apdu %d: %w", j, err)
		}
		req.ApduRequests = append(req.ApduRequests, seproxy.ApduRequest{
			Bytes:                 raw,
			Case4:                 af.Case4,
			Name:                  af.Name,
			SuccessfulStatusCodes: codes,
		})
	}
	return req, nil
}

// ParseOccurrence accepts first (the default), last, next and previous.
func ParseOccurrence(s string) (iso7816.FileOccurrence, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "", "first":
		return iso7816.FirstOrOnlyOccurrence, nil
	case "last":
		return iso7816.LastOccurrence, nil
	case "next":
		return iso7816.NextOccurrence, nil
	case "previous", "prev":
		return iso7816.PreviousOccurrence, nil
	}
	return 0, fmt.Errorf("unknown occurrence %q", s)
}

// ParseSelectionControl accepts fci (the default), fcp, fmd and no-data.
func ParseSelectionControl(s string) (iso7816.SelectionControl, error) {
	switch strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-") {
	case "", "fci":
		return iso7816.ReturnFCI, nil
	case "fcp":
		return iso7816.ReturnFCP, nil
	case "fmd":
		return iso7816.ReturnFMD, nil
	case "no-data", "none":
		return iso7816.ReturnNoData, nil
	}
	return 0, fmt.Errorf("unknown selection control %q", s)
}

func parseStatusWords(codes []string) ([]iso7816.StatusWord, error) {
	var out []iso7816.StatusWord
	for _, c := range codes {
		b, err := tlv.ParseHex(c)
		if err != nil || len(b) != 2 {
			return nil, fmt.Errorf("status word %q: want 2 hex bytes", c)
		}
		out = append(out, iso7816.NewStatusWord(b[0], b[1]))
	}
	return out, nil
}
