// Package stub simulates a Secure Element behind a seproxy.Transport. Cards
// are described in YAML or TOML so batches can be replayed without a reader.
package stub

import (
	"bytes"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"github.com/gregLibert/seproxy/pkg/iso7816"
	"github.com/gregLibert/seproxy/pkg/seproxy"
	"github.com/gregLibert/seproxy/pkg/tlv"
)

// Definition is the file form of a simulated card. Byte strings are hex.
type Definition struct {
	ATR          string            `yaml:"atr" toml:"atr"`
	Protocol     string            `yaml:"protocol" toml:"protocol"`
	Absent       bool              `yaml:"absent" toml:"absent"`
	Applications []Application     `yaml:"applications" toml:"applications"`
	Commands     map[string]string `yaml:"commands" toml:"commands"`
	Failures     Failures          `yaml:"failures" toml:"failures"`
}

// Application is one selectable application. Status defaults to 9000.
type Application struct {
	AID      string            `yaml:"aid" toml:"aid"`
	FCI      string            `yaml:"fci" toml:"fci"`
	Status   string            `yaml:"status" toml:"status"`
	Commands map[string]string `yaml:"commands" toml:"commands"`
}

// Failures injects transport errors. Each value is "io", "security" or
// "no-such-element"; empty means the call succeeds.
type Failures struct {
	Present  string `yaml:"present" toml:"present"`
	Session  string `yaml:"session" toml:"session"`
	Basic    string `yaml:"basic" toml:"basic"`
	Logical  string `yaml:"logical" toml:"logical"`
	Exchange string `yaml:"exchange" toml:"exchange"`
	Close    string `yaml:"close" toml:"close"`
}

type application struct {
	aid      []byte
	fci      []byte
	status   iso7816.StatusWord
	commands map[string][]byte
}

type failures struct {
	present, session, basic, logical, exchange, close error
}

// Card is a simulated card. It is not safe for concurrent use.
type Card struct {
	atr      []byte
	protocol seproxy.Protocol
	present  bool
	apps     []application
	commands map[string][]byte
	fail     failures

	// cursor is the index of the last selected application, -1 when none.
	cursor int
	open   map[*channel]bool
	sent   []string
}

type channel struct {
	app      *application
	selected []byte
}

// SelectResponse is the FCI and status word answered at selection.
func (c *channel) SelectResponse() []byte {
	return c.selected
}

// Load reads a card definition, YAML or TOML depending on the extension.
func Load(path string) (*Card, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var def Definition
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".toml":
		err = toml.Unmarshal(data, &def)
	case ".yaml", ".yml":
		err = yaml.Unmarshal(data, &def)
	default:
		return nil, fmt.Errorf("unsupported card file extension %q", ext)
	}
	if err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return New(def)
}

// New builds a card from its definition.
func New(def Definition) (*Card, error) {
	c := &Card{
		present:  !def.Absent,
		protocol: seproxy.ProtocolISO7816_3,
		cursor:   -1,
		open:     make(map[*channel]bool),
	}

	var err error
	if def.ATR != "" {
		if c.atr, err = tlv.ParseHex(def.ATR); err != nil {
			return nil, fmt.Errorf("atr: %w", err)
		}
	}
	if def.Protocol != "" {
		if c.protocol, err = seproxy.ParseProtocol(def.Protocol); err != nil {
			return nil, err
		}
	}
	if c.commands, err = parseCommands(def.Commands); err != nil {
		return nil, err
	}
	for i, a := range def.Applications {
		app, err := parseApplication(a)
		if err != nil {
			return nil, fmt.Errorf("application %d: %w", i, err)
		}
		c.apps = append(c.apps, app)
	}
	if c.fail, err = parseFailures(def.Failures); err != nil {
		return nil, err
	}
	return c, nil
}

func parseApplication(a Application) (application, error) {
	aid, err := tlv.ParseHex(a.AID)
	if err != nil {
		return application{}, fmt.Errorf("aid: %w", err)
	}
	if len(aid) == 0 {
		return application{}, errors.New("aid is required")
	}
	fci, err := tlv.ParseHex(a.FCI)
	if err != nil {
		return application{}, fmt.Errorf("fci: %w", err)
	}
	status := iso7816.SW_NO_ERROR
	if a.Status != "" {
		sw, err := tlv.ParseHex(a.Status)
		if err != nil || len(sw) != 2 {
			return application{}, fmt.Errorf("status %q: want 2 hex bytes", a.Status)
		}
		status = iso7816.NewStatusWord(sw[0], sw[1])
	}
	commands, err := parseCommands(a.Commands)
	if err != nil {
		return application{}, err
	}
	return application{aid: aid, fci: fci, status: status, commands: commands}, nil
}

func parseCommands(table map[string]string) (map[string][]byte, error) {
	out := make(map[string][]byte, len(table))
	for cmd, resp := range table {
		key, err := tlv.ParseHex(cmd)
		if err != nil {
			return nil, fmt.Errorf("command %q: %w", cmd, err)
		}
		r, err := tlv.ParseHex(resp)
		if err != nil {
			return nil, fmt.Errorf("response to %q: %w", cmd, err)
		}
		if len(r) < iso7816.TrailerLength {
			return nil, fmt.Errorf("response to %q has no status word", cmd)
		}
		out[tlv.FormatHex(key)] = r
	}
	return out, nil
}

func parseFailures(f Failures) (failures, error) {
	var out failures
	fields := []struct {
		name  string
		value string
		dst   *error
	}{
		{"present", f.Present, &out.present},
		{"session", f.Session, &out.session},
		{"basic", f.Basic, &out.basic},
		{"logical", f.Logical, &out.logical},
		{"exchange", f.Exchange, &out.exchange},
		{"close", f.Close, &out.close},
	}
	for _, fl := range fields {
		err, ok := failureKinds[strings.ToLower(fl.value)]
		if !ok {
			return failures{}, fmt.Errorf("failures.%s: unknown kind %q", fl.name, fl.value)
		}
		*fl.dst = err
	}
	return out, nil
}

var failureKinds = map[string]error{
	"":                nil,
	"io":              errors.New("simulated i/o error"),
	"security":        fmt.Errorf("simulated: %w", seproxy.ErrSecurity),
	"no-such-element": fmt.Errorf("simulated: %w", seproxy.ErrNoSuchElement),
}

// SetPresent inserts or removes the card.
func (c *Card) SetPresent(present bool) {
	c.present = present
	if !present {
		c.open = make(map[*channel]bool)
		c.cursor = -1
	}
}

// Sent lists the commands exchanged so far, in hex.
func (c *Card) Sent() []string {
	return c.sent
}

// OpenChannels counts the channels not closed yet.
func (c *Card) OpenChannels() int {
	return len(c.open)
}

// IsCardPresent reports the simulated insertion state.
func (c *Card) IsCardPresent() (bool, error) {
	if c.fail.present != nil {
		return false, c.fail.present
	}
	return c.present, nil
}

// CardProtocol returns the protocol of the definition, ISO 7816-3 by default.
func (c *Card) CardProtocol() (seproxy.Protocol, error) {
	return c.protocol, nil
}

// OpenSession fails when the card is absent.
func (c *Card) OpenSession() error {
	if c.fail.session != nil {
		return c.fail.session
	}
	if !c.present {
		return errors.New("no card")
	}
	return nil
}

// OpenBasicChannel opens a channel bound to no application.
func (c *Card) OpenBasicChannel() (seproxy.Channel, error) {
	if c.fail.basic != nil {
		return nil, c.fail.basic
	}
	ch := &channel{}
	c.open[ch] = true
	return ch, nil
}

// OpenLogicalChannel selects the application matching sel. sel.AID may be a
// prefix; NEXT and PREVIOUS move from the last selected application.
func (c *Card) OpenLogicalChannel(sel seproxy.AidSelector) (seproxy.Channel, error) {
	if c.fail.logical != nil {
		return nil, c.fail.logical
	}

	idx := c.find(sel)
	if idx < 0 {
		return nil, fmt.Errorf("AID %s: %w", tlv.FormatHex(sel.AID), seproxy.ErrNoSuchElement)
	}
	c.cursor = idx
	app := &c.apps[idx]

	var selected []byte
	if sel.FileControl != iso7816.ReturnNoData {
		selected = append(selected, app.fci...)
	}
	selected = append(selected, app.status.SW1(), app.status.SW2())

	ch := &channel{app: app, selected: selected}
	c.open[ch] = true
	return ch, nil
}

func (c *Card) find(sel seproxy.AidSelector) int {
	var matches []int
	for i, app := range c.apps {
		if bytes.HasPrefix(app.aid, sel.AID) {
			matches = append(matches, i)
		}
	}
	if len(matches) == 0 {
		return -1
	}

	switch sel.FileOccurrence {
	case iso7816.LastOccurrence:
		return matches[len(matches)-1]
	case iso7816.NextOccurrence:
		for _, i := range matches {
			if i > c.cursor {
				return i
			}
		}
		return -1
	case iso7816.PreviousOccurrence:
		for j := len(matches) - 1; j >= 0; j-- {
			if matches[j] < c.cursor {
				return matches[j]
			}
		}
		return -1
	default:
		return matches[0]
	}
}

// Exchange answers from the selected application table, then the card
// table. Unknown commands get 6D00.
func (c *Card) Exchange(ch seproxy.Channel, command []byte) ([]byte, error) {
	if c.fail.exchange != nil {
		return nil, c.fail.exchange
	}
	sc, ok := ch.(*channel)
	if !ok || !c.open[sc] {
		return nil, errors.New("channel is not open")
	}

	key := tlv.FormatHex(command)
	c.sent = append(c.sent, key)

	if sc.app != nil {
		if resp, ok := sc.app.commands[key]; ok {
			return resp, nil
		}
	}
	if resp, ok := c.commands[key]; ok {
		return resp, nil
	}
	return []byte{0x6D, 0x00}, nil
}

// CloseChannel forgets ch. Closing it twice is an error.
func (c *Card) CloseChannel(ch seproxy.Channel) error {
	if c.fail.close != nil {
		return c.fail.close
	}
	sc, ok := ch.(*channel)
	if !ok || !c.open[sc] {
		return errors.New("channel is not open")
	}
	delete(c.open, sc)
	return nil
}

// ATR returns the answer to reset of the definition.
func (c *Card) ATR() ([]byte, error) {
	if !c.present {
		return nil, errors.New("no card")
	}
	return c.atr, nil
}
