package urlcheck

import (
	"errors"
	"fmt"
	"math"
	"reflect"
	"sort"
	"strconv"

	"github.com/google/uuid"

	"github.com/vango-dev/routecheck/pkg/signature"
	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// Check compares the bindings and default arguments of one endpoint with
// its handler's signature.
//
// Diagnostics come out in a fixed order: the catch-all warning, then one
// finding per binding in declaration order, then default arguments sorted
// by name, then required handler parameters nothing supplies.
//
// A leading "self" and then a leading "request" parameter are treated as
// injected even when the signature does not mark them.
func Check(reg *urlconf.Registry, ep *urlconf.ResolvedEndpoint, sig signature.Signature) []Diagnostic {
	if reg == nil {
		reg = urlconf.DefaultRegistry()
	}
	sig = sig.WithConventionalInjected()
	var diags []Diagnostic
	at := func(id, format string, args ...any) {
		diags = append(diags, newDiagnostic(id, ep.Entry, ep.Route, format, args...))
	}

	if sig.CatchAll {
		at(W002, "Handler accepts arbitrary route parameters, can't properly check args")
	}

	for _, b := range ep.Bindings {
		if ep.HasDefault(b.Name) {
			continue
		}
		p, ok := sig.Lookup(b.Name)
		if !ok {
			if !sig.CatchAll {
				at(E001, "Route declares parameter `%s` but handler has no matching parameter", b.Name)
			}
			continue
		}
		if !p.Typed() {
			continue
		}
		if !reg.Compatible(b.Type, p.Type) {
			at(E002, "For parameter `%s`, annotated type %s does not match expected `%s` from urlconf", b.Name, p.Type, b.Type)
		}
	}

	for _, name := range sortedKeys(ep.Defaults) {
		if _, bound := ep.Binding(name); bound {
			continue
		}
		p, ok := sig.Lookup(name)
		if !ok {
			if !sig.CatchAll {
				at(E006, "Handler is being passed additional unexpected parameter `%s` from default arguments in urlconf", name)
			}
			continue
		}
		value := ep.Defaults[name]
		if p.Typed() && !valueFits(reg, value, p.Type) {
			at(E005, "For parameter `%s`, default argument %s in urlconf, type %s, does not match annotated type %s from handler signature",
				name, formatValue(value), valueType(value), p.Type)
		}
	}

	if !ep.Incomplete {
		for _, p := range sig.Params {
			if !p.Required() {
				continue
			}
			if _, bound := ep.Binding(p.Name); bound || ep.HasDefault(p.Name) {
				continue
			}
			at(E003, "Handler requires parameter `%s` but no route placeholder or default supplies it", p.Name)
		}
	}

	return diags
}

// CheckEndpoint resolves the endpoint's handler and checks it. A failed
// resolution yields a single E004.
func CheckEndpoint(reg *urlconf.Registry, resolver signature.Resolver, ep *urlconf.ResolvedEndpoint) []Diagnostic {
	sig, err := resolver.Resolve(ep.Callback)
	if err != nil {
		d := newDiagnostic(E004, ep.Entry, ep.Route, "Could not resolve signature of handler")
		d.Hint = resolutionReason(err)
		return []Diagnostic{d}
	}
	return Check(reg, ep, sig)
}

func resolutionReason(err error) string {
	var rerr *signature.ResolutionError
	if errors.As(err, &rerr) {
		if rerr.Err != nil {
			return rerr.Reason + ": " + rerr.Err.Error()
		}
		return rerr.Reason
	}
	return err.Error()
}

// shadowDiagnostic reports a placeholder redeclared with a different type.
func shadowDiagnostic(step urlconf.Step) Diagnostic {
	s := step.Shadow
	d := newDiagnostic(W001, step.Entry, step.Route,
		"Placeholder `%s` is shadowed with incompatible type: `%s` declares `%s`, `%s` declared `%s`",
		s.Name, s.Inner.Route, s.Inner.Type, s.Outer.Route, s.Outer.Type)
	d.Hint = fmt.Sprintf("Rename one of the placeholders or use the same converter for `%s`", s.Name)
	return d
}

// malformedDiagnostic reports a pattern that failed to parse.
func malformedDiagnostic(step urlconf.Step) Diagnostic {
	perr := step.Err
	d := newDiagnostic(E007, step.Entry, step.Route, "Route pattern `%s` is malformed: %s", perr.Route, perr.Reason)
	d.Hint = fmt.Sprintf("Offending token %q at offset %d", perr.Token, perr.Offset)
	return d
}

// valueFits reports whether a default argument can be passed to a
// parameter declared as declared. Values of types the checker does not
// know are assumed to fit.
func valueFits(reg *urlconf.Registry, value any, declared string) bool {
	if value == nil {
		return true
	}
	if valueType(value) == declared {
		return true
	}

	v := reflect.ValueOf(value)
	switch {
	case reg.Compatible(urlconf.TypeStr, declared):
		return v.Kind() == reflect.String
	case declared == string(urlconf.TypeUUID):
		switch val := value.(type) {
		case uuid.UUID, [16]byte:
			return true
		case string:
			_, err := uuid.Parse(val)
			return err == nil
		}
		return false
	case isIntType(declared):
		return isInteger(v)
	case declared == "float32" || declared == "float64":
		return isInteger(v) || v.Kind() == reflect.Float32 || v.Kind() == reflect.Float64
	case declared == "bool":
		return v.Kind() == reflect.Bool
	}
	return true
}

func isIntType(t string) bool {
	switch t {
	case "int", "int8", "int16", "int32", "int64",
		"uint", "uint8", "uint16", "uint32", "uint64":
		return true
	}
	return false
}

// isInteger reports whether v holds an integer. Integral floats count
// since JSON decoders produce float64 for every number.
func isInteger(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return true
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		return f == math.Trunc(f) && !math.IsInf(f, 0)
	}
	return false
}

func valueType(value any) string {
	if value == nil {
		return "nil"
	}
	return reflect.TypeOf(value).String()
}

func formatValue(value any) string {
	if s, ok := value.(string); ok {
		return strconv.Quote(s)
	}
	return fmt.Sprintf("%v", value)
}

func sortedKeys(m map[string]any) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
