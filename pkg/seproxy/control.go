package seproxy

import (
	"fmt"
	"strings"
)

// ChannelControl tells what happens to the channel once the batch is done.
type ChannelControl int

const (
	KeepOpen ChannelControl = iota
	CloseAfter
)

func (c ChannelControl) String() string {
	switch c {
	case KeepOpen:
		return "KEEP_OPEN"
	case CloseAfter:
		return "CLOSE_AFTER"
	default:
		return fmt.Sprintf("ChannelControl(%d)", int(c))
	}
}

// ParseChannelControl accepts "keep-open" or "close-after" (any case, '_' or '-').
func ParseChannelControl(s string) (ChannelControl, error) {
	switch normalizeKey(s) {
	case "keep-open":
		return KeepOpen, nil
	case "close-after":
		return CloseAfter, nil
	}
	return KeepOpen, fmt.Errorf("unknown channel control %q", s)
}

// MultiSeRequestProcessing is the batch policy.
type MultiSeRequestProcessing int

const (
	// FirstMatch stops at the first request whose selector matched.
	FirstMatch MultiSeRequestProcessing = iota
	// ProcessAll runs every request whatever the previous outcomes.
	ProcessAll
)

func (m MultiSeRequestProcessing) String() string {
	switch m {
	case FirstMatch:
		return "FIRST_MATCH"
	case ProcessAll:
		return "PROCESS_ALL"
	default:
		return fmt.Sprintf("MultiSeRequestProcessing(%d)", int(m))
	}
}

// ParseProcessing accepts "first-match" or "process-all".
func ParseProcessing(s string) (MultiSeRequestProcessing, error) {
	switch normalizeKey(s) {
	case "first-match":
		return FirstMatch, nil
	case "process-all":
		return ProcessAll, nil
	}
	return FirstMatch, fmt.Errorf("unknown processing %q", s)
}

func normalizeKey(s string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(s)), "_", "-")
}
