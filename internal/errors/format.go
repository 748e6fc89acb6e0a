package errors

import (
	stderrors "errors"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vango-dev/routecheck/internal/term"
)

// Format returns a formatted error message for terminal display.
func (e *CodedError) Format() string {
	var b strings.Builder

	b.WriteString("\n")
	if e.Code != "" {
		b.WriteString(term.Red(term.Bold("ERROR ")))
		b.WriteString(term.White(term.Bold(e.Code + ": ")))
	} else {
		b.WriteString(term.Red(term.Bold("ERROR: ")))
	}
	b.WriteString(term.White(e.Message))
	b.WriteString("\n\n")

	if e.Location != nil {
		fmt.Fprintf(&b, "  %s\n\n", term.Cyan(e.Location.String()))
		e.writeContext(&b)
	}

	if e.Detail != "" {
		for _, line := range wrapText(e.Detail, 70) {
			fmt.Fprintf(&b, "  %s\n", line)
		}
		b.WriteString("\n")
	}

	if e.Wrapped != nil {
		writeLabeled(&b, term.Gray("Cause: "), e.Wrapped.Error())
	}
	if e.Suggestion != "" {
		writeLabeled(&b, term.Cyan("Hint: "), e.Suggestion)
	}
	if e.DocURL != "" {
		fmt.Fprintf(&b, "  %s%s\n", term.Gray("Learn more: "), term.Blue(e.DocURL))
	}

	return b.String()
}

// writeContext renders the source lines around the location, marking the
// error line and, when known, the column.
func (e *CodedError) writeContext(b *strings.Builder) {
	if len(e.Context) == 0 {
		return
	}
	first := max(e.Location.Line-len(e.Context)/2, 1)
	for i, line := range e.Context {
		n := first + i
		marker := "  "
		if n == e.Location.Line {
			marker = term.Red("→ ")
		}
		fmt.Fprintf(b, "  %s%4d%s%s\n", marker, n, term.Gray(" │ "), line)
		if n == e.Location.Line && e.Location.Column > 0 {
			fmt.Fprintf(b, "       %s%s%s\n", term.Gray("│ "), strings.Repeat(" ", e.Location.Column-1), term.Red("^"))
		}
	}
	b.WriteString("\n")
}

func writeLabeled(b *strings.Builder, label, text string) {
	fmt.Fprintf(b, "  %s%s\n\n", label, text)
}

// FormatCompact returns a compact single-line error format.
func (e *CodedError) FormatCompact() string {
	var b strings.Builder

	if e.Location != nil {
		b.WriteString(e.Location.String())
		b.WriteString(": ")
	}
	b.WriteString(e.Error())

	return b.String()
}

type errorJSON struct {
	Code       string        `json:"code,omitempty"`
	Category   Category      `json:"category"`
	Message    string        `json:"message"`
	Detail     string        `json:"detail,omitempty"`
	Cause      string        `json:"cause,omitempty"`
	Location   *locationJSON `json:"location,omitempty"`
	Suggestion string        `json:"suggestion,omitempty"`
	DocURL     string        `json:"docUrl,omitempty"`
}

type locationJSON struct {
	File   string `json:"file"`
	Line   int    `json:"line,omitempty"`
	Column int    `json:"column,omitempty"`
}

// MarshalJSON implements json.Marshaler.
func (e *CodedError) MarshalJSON() ([]byte, error) {
	out := errorJSON{
		Code:       e.Code,
		Category:   e.Category,
		Message:    e.Message,
		Detail:     e.Detail,
		Suggestion: e.Suggestion,
		DocURL:     e.DocURL,
	}
	if e.Wrapped != nil {
		out.Cause = e.Wrapped.Error()
	}
	if e.Location != nil {
		out.Location = &locationJSON{File: e.Location.File, Line: e.Location.Line, Column: e.Location.Column}
	}
	return json.Marshal(out)
}

// FormatJSON returns the error as a JSON object.
func (e *CodedError) FormatJSON() string {
	data, err := e.MarshalJSON()
	if err != nil {
		return fmt.Sprintf(`{"message":%q}`, e.Error())
	}
	return string(data)
}

// wrapText breaks text into lines of at most width columns at word
// boundaries. Words longer than width get a line of their own.
func wrapText(text string, width int) []string {
	words := strings.Fields(text)
	if len(words) == 0 {
		return nil
	}

	lines := []string{words[0]}
	for _, word := range words[1:] {
		last := &lines[len(lines)-1]
		if len(*last)+1+len(word) > width {
			lines = append(lines, word)
			continue
		}
		*last += " " + word
	}
	return lines
}

// Fprint writes a formatted error to w.
func Fprint(w io.Writer, err error) {
	var ce *CodedError
	if stderrors.As(err, &ce) {
		fmt.Fprint(w, ce.Format())
		return
	}
	fmt.Fprintf(w, "\n%s %s\n\n", term.Red(term.Bold("ERROR:")), err.Error())
}

// PrintError prints a formatted error to stderr.
func PrintError(err error) {
	Fprint(os.Stderr, err)
}
