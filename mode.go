package httpmocker

import (
	"fmt"
	"strings"
)

// Mode selects how the Mocker handles requests.
type Mode int32

const (
	// Disabled passes every request through to the real transport.
	Disabled Mode = iota
	// Enabled answers every request from the scenarios, with a 404 fallback.
	Enabled
	// Mixed answers from the scenarios and passes unanswered requests through.
	Mixed
	// Record passes requests through and records the real exchanges.
	Record
)

var modeNames = [...]string{"DISABLED", "ENABLED", "MIXED", "RECORD"}

func (m Mode) String() string {
	if m < 0 || int(m) >= len(modeNames) {
		return fmt.Sprintf("Mode(%d)", int32(m))
	}
	return modeNames[m]
}

// ParseMode reads a mode name, ignoring case.
func ParseMode(s string) (Mode, error) {
	for i, name := range modeNames {
		if strings.EqualFold(strings.TrimSpace(s), name) {
			return Mode(i), nil
		}
	}
	return Disabled, fmt.Errorf("%w: %q", ErrInvalidMode, s)
}

// MarshalText encodes the mode as its name.
func (m Mode) MarshalText() ([]byte, error) {
	if m < 0 || int(m) >= len(modeNames) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidMode, int32(m))
	}
	return []byte(m.String()), nil
}

// UnmarshalText decodes a mode name.
func (m *Mode) UnmarshalText(text []byte) error {
	parsed, err := ParseMode(string(text))
	if err != nil {
		return err
	}
	*m = parsed
	return nil
}
