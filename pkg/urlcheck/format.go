package urlcheck

import (
	"fmt"
	"io"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vango-dev/routecheck/internal/term"
)

// OutputFormat selects how a report is rendered.
type OutputFormat string

const (
	OutputText    OutputFormat = "text"
	OutputCompact OutputFormat = "compact"
	OutputJSON    OutputFormat = "json"
	OutputGitHub  OutputFormat = "github"
)

// OutputFormats lists the supported formats.
func OutputFormats() []OutputFormat {
	return []OutputFormat{OutputText, OutputCompact, OutputJSON, OutputGitHub}
}

// ParseOutputFormat validates a format name.
func ParseOutputFormat(s string) (OutputFormat, error) {
	for _, f := range OutputFormats() {
		if string(f) == s {
			return f, nil
		}
	}
	return "", fmt.Errorf("unknown format %q", s)
}

// Format returns a multi-line, colored rendering of d for terminals.
func Format(d Diagnostic) string {
	var b strings.Builder

	// Header line
	if d.Level == LevelError {
		b.WriteString(term.Red(term.Bold("ERROR ")))
	} else {
		b.WriteString(term.Yellow(term.Bold("WARNING ")))
	}
	b.WriteString(term.White(term.Bold(d.ID + ": ")))
	b.WriteString(term.White(d.Message))
	b.WriteString("\n")

	// Location
	b.WriteString("  ")
	b.WriteString(term.Cyan(d.Route))
	if h := d.Handler(); h != "" {
		b.WriteString(term.Gray(" → "))
		b.WriteString(h)
	}
	b.WriteString("\n")

	if d.Hint != "" {
		b.WriteString("  ")
		b.WriteString(term.Cyan("Hint: "))
		b.WriteString(d.Hint)
		b.WriteString("\n")
	}
	return b.String()
}

// FormatCompact returns a single-line rendering of d.
func FormatCompact(d Diagnostic) string {
	var b strings.Builder
	b.WriteString(d.Route)
	if h := d.Handler(); h != "" {
		b.WriteString(" (")
		b.WriteString(h)
		b.WriteString(")")
	}
	b.WriteString(": ")
	b.WriteString(d.ID)
	b.WriteString(": ")
	b.WriteString(d.Message)
	if d.Hint != "" {
		b.WriteString(" [hint: ")
		b.WriteString(d.Hint)
		b.WriteString("]")
	}
	return b.String()
}

// FormatGitHub returns d as a GitHub Actions workflow command.
func FormatGitHub(d Diagnostic) string {
	cmd := "error"
	if d.Level == LevelWarning {
		cmd = "warning"
	}
	msg := d.Route
	if h := d.Handler(); h != "" {
		msg += " (" + h + ")"
	}
	msg += ": " + d.Message
	if d.Hint != "" {
		msg += ". " + d.Hint
	}
	return fmt.Sprintf("::%s title=%s::%s", cmd, githubEscape(d.ID, true), githubEscape(msg, false))
}

// githubEscape escapes workflow command data and properties.
func githubEscape(s string, property bool) string {
	s = strings.ReplaceAll(s, "%", "%25")
	s = strings.ReplaceAll(s, "\r", "%0D")
	s = strings.ReplaceAll(s, "\n", "%0A")
	if property {
		s = strings.ReplaceAll(s, ":", "%3A")
		s = strings.ReplaceAll(s, ",", "%2C")
	}
	return s
}

type diagnosticJSON struct {
	ID      string     `json:"id"`
	Level   Level      `json:"level"`
	Message string     `json:"message"`
	Hint    string     `json:"hint,omitempty"`
	Route   string     `json:"route"`
	Entry   *entryJSON `json:"entry,omitempty"`
}

type entryJSON struct {
	Route    string         `json:"route"`
	Name     string         `json:"name,omitempty"`
	Handler  string         `json:"handler,omitempty"`
	Defaults map[string]any `json:"defaults,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (d Diagnostic) MarshalJSON() ([]byte, error) {
	out := diagnosticJSON{
		ID:      d.ID,
		Level:   d.Level,
		Message: d.Message,
		Hint:    d.Hint,
		Route:   d.Route,
	}
	if d.Entry != nil {
		out.Entry = &entryJSON{
			Route:    d.Entry.Route,
			Name:     d.Entry.Name,
			Handler:  d.Entry.HandlerName(),
			Defaults: d.Entry.Defaults,
		}
	}
	return json.Marshal(out)
}

// Render writes the report in the given format.
func Render(w io.Writer, format OutputFormat, r *Report) error {
	switch format {
	case OutputText, "":
		return renderText(w, r)
	case OutputCompact:
		for _, d := range r.Diagnostics {
			if _, err := fmt.Fprintln(w, FormatCompact(d)); err != nil {
				return err
			}
		}
		return nil
	case OutputJSON:
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(r)
	case OutputGitHub:
		for _, d := range r.Diagnostics {
			if _, err := fmt.Fprintln(w, FormatGitHub(d)); err != nil {
				return err
			}
		}
		return nil
	default:
		return fmt.Errorf("unknown format %q", format)
	}
}

func renderText(w io.Writer, r *Report) error {
	var b strings.Builder
	for _, d := range r.Diagnostics {
		b.WriteString("\n")
		b.WriteString(Format(d))
	}
	b.WriteString("\n")

	summary := fmt.Sprintf("%d endpoints checked: %d errors, %d warnings", r.Endpoints, r.Errors, r.Warnings)
	switch {
	case r.HasErrors():
		b.WriteString(term.Red("✗ " + summary))
	case !r.Clean():
		b.WriteString(term.Yellow("⚠ " + summary))
	default:
		b.WriteString(term.Green("✓ " + summary))
	}
	b.WriteString("\n")

	_, err := io.WriteString(w, b.String())
	return err
}
