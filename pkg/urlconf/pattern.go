package urlconf

import (
	"fmt"
	"strings"
	"unicode"
)

// Placeholder is a named, typed slot in a route pattern.
type Placeholder struct {
	// Name is the parameter name passed to the handler.
	Name string

	// Converter is the converter name as written in the pattern.
	Converter string

	// Type is the converter's output type.
	Type Type

	// Offset is the byte offset of the opening '<' in the raw pattern.
	Offset int
}

// Part is one piece of a parsed pattern: either a literal or a placeholder.
type Part struct {
	Literal     string
	Placeholder *Placeholder
}

// Pattern is a parsed route pattern. Patterns are immutable.
type Pattern struct {
	// Raw is the template as written.
	Raw string

	// Parts are the literal segments and placeholders in order.
	Parts []Part

	// Placeholders are the placeholders in declaration order.
	Placeholders []Placeholder

	// IsEndpoint is true when the pattern belongs to a handler rather than
	// to a group.
	IsEndpoint bool
}

// Placeholder returns the placeholder named name.
func (p *Pattern) Placeholder(name string) (Placeholder, bool) {
	for _, ph := range p.Placeholders {
		if ph.Name == name {
			return ph, true
		}
	}
	return Placeholder{}, false
}

// ParseError reports a malformed placeholder token.
type ParseError struct {
	// Route is the raw pattern.
	Route string

	// Token is the offending token as written.
	Token string

	// Offset is the byte offset of the token in Route.
	Offset int

	// Reason describes what is wrong with the token.
	Reason string
}

func (e *ParseError) Error() string {
	return fmt.Sprintf("route %q: %s in %q at offset %d", e.Route, e.Reason, e.Token, e.Offset)
}

// Parse parses a route template against the converters in reg.
//
// Placeholders are written <converter:name>; <name> is shorthand for
// <str:name>. Unknown converters, missing or invalid names, duplicate names
// and unbalanced brackets are reported as *ParseError.
func Parse(reg *Registry, raw string, isEndpoint bool) (*Pattern, error) {
	p := &Pattern{Raw: raw, IsEndpoint: isEndpoint}
	seen := make(map[string]bool)

	var literal strings.Builder
	flush := func() {
		if literal.Len() > 0 {
			p.Parts = append(p.Parts, Part{Literal: literal.String()})
			literal.Reset()
		}
	}
	fail := func(token string, offset int, reason string) (*Pattern, error) {
		return nil, &ParseError{Route: raw, Token: token, Offset: offset, Reason: reason}
	}

	for i := 0; i < len(raw); {
		switch raw[i] {
		case '>':
			return fail(">", i, "unmatched '>'")

		case '<':
			end := strings.IndexByte(raw[i+1:], '>')
			if end < 0 {
				return fail(raw[i:], i, "unclosed '<'")
			}
			end += i + 1
			token := raw[i : end+1]
			inner := raw[i+1 : end]
			if strings.IndexByte(inner, '<') >= 0 {
				return fail(token, i, "nested '<'")
			}

			conv, name := string(TypeStr), inner
			if idx := strings.IndexByte(inner, ':'); idx >= 0 {
				conv, name = inner[:idx], inner[idx+1:]
				if conv == "" {
					return fail(token, i, "missing converter")
				}
			}
			switch {
			case name == "":
				return fail(token, i, "missing parameter name")
			case !isIdentifier(name):
				return fail(token, i, fmt.Sprintf("invalid parameter name %q", name))
			case seen[name]:
				return fail(token, i, fmt.Sprintf("duplicate parameter name %q", name))
			}

			c, ok := reg.Lookup(conv)
			if !ok {
				return fail(token, i, fmt.Sprintf("unknown converter %q", conv))
			}
			seen[name] = true

			flush()
			ph := Placeholder{Name: name, Converter: conv, Type: c.Output, Offset: i}
			p.Placeholders = append(p.Placeholders, ph)
			p.Parts = append(p.Parts, Part{Placeholder: &p.Placeholders[len(p.Placeholders)-1]})
			i = end + 1

		default:
			literal.WriteByte(raw[i])
			i++
		}
	}
	flush()

	// Placeholder parts must point into the final Placeholders array.
	n := 0
	for k := range p.Parts {
		if p.Parts[k].Placeholder != nil {
			p.Parts[k].Placeholder = &p.Placeholders[n]
			n++
		}
	}
	return p, nil
}

// isIdentifier reports whether s is a valid parameter identifier.
func isIdentifier(s string) bool {
	if s == "" {
		return false
	}
	for i, r := range s {
		if r == '_' || unicode.IsLetter(r) {
			continue
		}
		if i > 0 && unicode.IsDigit(r) {
			continue
		}
		return false
	}
	return true
}
