package control

import (
	"strconv"
	"strings"
)

// Recognized message keys. Anything else is logged and dropped.
const (
	KeyStart    = "START"
	KeyStop     = "STOP"
	KeyClose    = "CLOSE"
	KeyExposure = "EXPOSURE"
)

// messageSeparator splits a key from its value on the wire.
const messageSeparator = " = "

// Message is one parsed control instruction.
type Message struct {
	Key   string
	Value uint64
}

// ParseMessage parses a single control line. Lines look like "KEY = VALUE";
// when no separator is present the whole line is the key and the value is 0.
// A malformed value also yields 0 so the key still reaches the controller,
// which decides whether the message makes sense without one.
func ParseMessage(line string) Message {
	trimmed := strings.TrimRight(line, "\r\n\x00")
	key, rawValue, found := strings.Cut(trimmed, messageSeparator)
	key = strings.TrimSpace(key)
	if !found {
		return Message{Key: key}
	}
	value, err := strconv.ParseUint(strings.TrimSpace(rawValue), 10, 64)
	if err != nil {
		return Message{Key: key}
	}
	return Message{Key: key, Value: value}
}

// Line renders the message in wire format, without a trailing newline.
func (m Message) Line() string {
	switch m.Key {
	case KeyExposure:
		return m.Key + messageSeparator + strconv.FormatUint(m.Value, 10)
	default:
		return m.Key
	}
}
