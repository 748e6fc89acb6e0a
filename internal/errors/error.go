package errors

import (
	"bufio"
	stderrors "errors"
	"fmt"
	"os"
	"strings"

	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// Category represents the type of error.
type Category string

const (
	CategoryConfig  Category = "config"
	CategoryRoutes  Category = "routes"
	CategorySource  Category = "source"
	CategoryCheck   Category = "check"
	CategoryPublish Category = "publish"
)

// Location represents a source code location.
type Location struct {
	File   string
	Line   int
	Column int
}

// String returns the location as a formatted string.
func (l *Location) String() string {
	if l == nil {
		return ""
	}
	if l.Line == 0 {
		return l.File
	}
	if l.Column > 0 {
		return fmt.Sprintf("%s:%d:%d", l.File, l.Line, l.Column)
	}
	return fmt.Sprintf("%s:%d", l.File, l.Line)
}

// CodedError is a host error with a registered code, an optional
// location and a fix suggestion.
type CodedError struct {
	// Code is a unique error identifier (e.g., "RC110").
	Code string

	// Category is the error type.
	Category Category

	// Message is a short description of the error.
	Message string

	// Detail is a longer explanation of the error.
	Detail string

	// Location is the file (and position) the error concerns.
	Location *Location

	// Context contains surrounding source lines.
	Context []string

	// Suggestion is a hint on how to fix the error.
	Suggestion string

	// DocURL is a link to documentation about this error.
	DocURL string

	// Wrapped is the underlying error, if any.
	Wrapped error
}

// Error implements the error interface.
func (e *CodedError) Error() string {
	var b strings.Builder
	if e.Code != "" {
		b.WriteString(e.Code)
		b.WriteString(": ")
	}
	b.WriteString(e.Message)
	if e.Wrapped != nil {
		b.WriteString(": ")
		b.WriteString(e.Wrapped.Error())
	}
	return b.String()
}

// Unwrap returns the wrapped error for errors.Is/As support.
func (e *CodedError) Unwrap() error {
	return e.Wrapped
}

// WithLocation adds a source location to the error and reads the
// surrounding lines.
func (e *CodedError) WithLocation(file string, line, column int) *CodedError {
	e.Location = &Location{File: file, Line: line, Column: column}
	if line > 0 {
		e.Context = readContextLines(file, line, 5)
	}
	return e
}

// WithFile sets a location without a position.
func (e *CodedError) WithFile(file string) *CodedError {
	if file == "" {
		return e
	}
	e.Location = &Location{File: file}
	return e
}

// WithLocationFromError extracts a location from errors formatted as
// "file.go:line:column: message", as go/parser and go/scanner report them.
func (e *CodedError) WithLocationFromError(err error) *CodedError {
	if err == nil {
		return e
	}
	msg := err.Error()
	parts := strings.SplitN(msg, ":", 4)
	if len(parts) >= 3 {
		var line, col int
		fmt.Sscanf(parts[1], "%d", &line)
		fmt.Sscanf(parts[2], "%d", &col)
		if line > 0 {
			e.WithLocation(parts[0], line, col)
		}
	}
	return e
}

// WithSuggestion adds a fix suggestion to the error.
func (e *CodedError) WithSuggestion(s string) *CodedError {
	e.Suggestion = s
	return e
}

// WithDetail replaces the detailed explanation.
func (e *CodedError) WithDetail(d string) *CodedError {
	e.Detail = d
	return e
}

// Wrap wraps another error.
func (e *CodedError) Wrap(err error) *CodedError {
	e.Wrapped = err
	return e
}

// readContextLines reads lines around the specified line number from a file.
func readContextLines(filename string, targetLine, contextSize int) []string {
	file, err := os.Open(filename)
	if err != nil {
		return nil
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)
	lineNum := 0
	startLine := targetLine - contextSize/2
	endLine := targetLine + contextSize/2

	for scanner.Scan() {
		lineNum++
		if lineNum >= startLine && lineNum <= endLine {
			lines = append(lines, scanner.Text())
		}
		if lineNum > endLine {
			break
		}
	}

	return lines
}

// New creates a CodedError from a registered error code.
func New(code string) *CodedError {
	template, ok := registry[code]
	if !ok {
		return &CodedError{
			Code:    code,
			Message: "Unknown error",
		}
	}
	return &CodedError{
		Code:     code,
		Category: template.Category,
		Message:  template.Message,
		Detail:   template.Detail,
		DocURL:   template.DocURL,
	}
}

// FromError wraps err in a CodedError with the given code. Errors that
// already carry a code are returned as-is.
func FromError(err error, code string) *CodedError {
	if err == nil {
		return nil
	}
	var ce *CodedError
	if stderrors.As(err, &ce) {
		return ce
	}
	return New(code).Wrap(err)
}

// Code returns the code of the first CodedError in err's chain, or "".
func Code(err error) string {
	var ce *CodedError
	if stderrors.As(err, &ce) {
		return ce.Code
	}
	return ""
}

// FromCheck converts a fatal check run error. Invalid trees become
// RC130; other uncoded errors come from the route provider and become
// RC111.
func FromCheck(err error) *CodedError {
	if err == nil {
		return nil
	}
	var treeErr *urlconf.TreeError
	if stderrors.As(err, &treeErr) {
		ce := New(CodeTreeInvalid).WithDetail(treeErr.Error())
		switch treeErr.Kind {
		case urlconf.TreeCycle:
			ce.WithSuggestion(fmt.Sprintf("Remove the include that leads back to route %q", treeErr.Route))
		case urlconf.TreeMixedEntry:
			ce.WithSuggestion(fmt.Sprintf("Give route %q either a handler or child routes", treeErr.Route))
		}
		return ce
	}
	return FromError(err, CodeRoutesInvalid)
}
