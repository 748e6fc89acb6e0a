package urlcheck

import (
	"fmt"
	"strings"

	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// Level is the severity of a diagnostic.
type Level int

const (
	// LevelNone is below every diagnostic. Used as a threshold it means
	// "never fail".
	LevelNone Level = iota

	// LevelWarning marks findings that limit what can be checked.
	LevelWarning

	// LevelError marks route/handler mismatches.
	LevelError
)

// String returns the level name.
func (l Level) String() string {
	switch l {
	case LevelWarning:
		return "warning"
	case LevelError:
		return "error"
	default:
		return "none"
	}
}

// MarshalText implements encoding.TextMarshaler.
func (l Level) MarshalText() ([]byte, error) {
	return []byte(l.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (l *Level) UnmarshalText(text []byte) error {
	parsed, err := ParseLevel(string(text))
	if err != nil {
		return err
	}
	*l = parsed
	return nil
}

// ParseLevel parses "error", "warning" or "never"/"none".
func ParseLevel(s string) (Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "error":
		return LevelError, nil
	case "warning", "warn":
		return LevelWarning, nil
	case "never", "none", "":
		return LevelNone, nil
	default:
		return LevelNone, fmt.Errorf("unknown level %q", s)
	}
}

// Diagnostic is one finding of a check run.
type Diagnostic struct {
	// ID is the stable identifier, e.g. "urlchecker.E002".
	ID string

	// Level is the severity.
	Level Level

	// Message is the human readable finding.
	Message string

	// Hint is an optional fix suggestion. Empty means unset.
	Hint string

	// Entry is the route entry the diagnostic concerns.
	Entry *urlconf.Entry

	// Route is the full route of Entry.
	Route string
}

// Handler returns the name of the entry's handler, or "" for groups.
func (d Diagnostic) Handler() string {
	if d.Entry == nil {
		return ""
	}
	return d.Entry.HandlerName()
}

// Equal reports whether d and other have the same ID, message, hint and
// structurally equal entries.
func (d Diagnostic) Equal(other Diagnostic) bool {
	if d.ID != other.ID || d.Message != other.Message || d.Hint != other.Hint {
		return false
	}
	if d.Entry == nil || other.Entry == nil {
		return d.Entry == other.Entry
	}
	return d.Entry.Equal(other.Entry)
}

// String returns the compact form of the diagnostic.
func (d Diagnostic) String() string {
	return FormatCompact(d)
}

// IsError reports whether the diagnostic is an error.
func (d Diagnostic) IsError() bool {
	return d.Level == LevelError
}

func newDiagnostic(id string, entry *urlconf.Entry, route, format string, args ...any) Diagnostic {
	return Diagnostic{
		ID:      id,
		Level:   levelOf(id),
		Message: fmt.Sprintf(format, args...),
		Entry:   entry,
		Route:   route,
	}
}
