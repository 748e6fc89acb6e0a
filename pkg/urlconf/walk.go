package urlconf

import (
	"errors"
	"iter"
	"maps"
)

// Binding is a placeholder visible to an endpoint.
type Binding struct {
	// Name is the parameter name.
	Name string

	// Converter is the converter name as written.
	Converter string

	// Type is the converter's output type.
	Type Type

	// Route is the raw pattern that declared the placeholder.
	Route string
}

// ResolvedEndpoint is an endpoint together with every placeholder visible
// to it. It is created fresh for each walk.
type ResolvedEndpoint struct {
	// Entry is the endpoint's route entry.
	Entry *Entry

	// Route is the full route: the concatenation of every ancestor's
	// pattern and the endpoint's own.
	Route string

	// Bindings are the visible placeholders, outermost first. A placeholder
	// redeclared by a nested pattern keeps the outer position but takes the
	// inner converter.
	Bindings []Binding

	// Callback is the handler reference.
	Callback *Callback

	// Defaults are the static default arguments merged from every ancestor
	// and the endpoint itself. Inner values replace outer ones.
	Defaults map[string]any

	// Incomplete is set when the endpoint's pattern, or one of its
	// ancestors', failed to parse. Its bindings are then partial.
	Incomplete bool
}

// Binding returns the binding named name.
func (ep *ResolvedEndpoint) Binding(name string) (Binding, bool) {
	for _, b := range ep.Bindings {
		if b.Name == name {
			return b, true
		}
	}
	return Binding{}, false
}

// HasDefault reports whether the route table supplies name as a default
// argument.
func (ep *ResolvedEndpoint) HasDefault(name string) bool {
	_, ok := ep.Defaults[name]
	return ok
}

// Shadow describes a placeholder redeclared with a different type by a
// nested pattern.
type Shadow struct {
	Name  string
	Outer Binding
	Inner Binding
}

// StepKind identifies what a walk step reports.
type StepKind int

const (
	// StepEndpoint carries a resolved endpoint.
	StepEndpoint StepKind = iota

	// StepShadowed reports a placeholder shadowed with a different type.
	StepShadowed

	// StepMalformed reports a pattern that failed to parse.
	StepMalformed
)

func (k StepKind) String() string {
	switch k {
	case StepEndpoint:
		return "endpoint"
	case StepShadowed:
		return "shadowed"
	case StepMalformed:
		return "malformed"
	default:
		return "unknown"
	}
}

// Step is one item produced by Walk.
type Step struct {
	Kind StepKind

	// Entry is the route entry the step concerns.
	Entry *Entry

	// Route is the full route of Entry.
	Route string

	// Endpoint is set for StepEndpoint.
	Endpoint *ResolvedEndpoint

	// Shadow is set for StepShadowed.
	Shadow *Shadow

	// Err is set for StepMalformed.
	Err *ParseError
}

// Walker traverses route trees.
type Walker struct {
	reg *Registry
}

// NewWalker creates a walker that parses patterns with reg.
// A nil registry means DefaultRegistry.
func NewWalker(reg *Registry) *Walker {
	if reg == nil {
		reg = DefaultRegistry()
	}
	return &Walker{reg: reg}
}

// Walk returns the steps for the tree rooted at root in depth-first
// pre-order, children in the order they are listed. The sequence can be
// ranged over any number of times and always yields the same steps.
//
// Walk expects a tree accepted by Validate. It never descends into an entry
// that is already on the current path, so a cyclic tree is cut short rather
// than walked forever.
func (w *Walker) Walk(root *Entry) iter.Seq[Step] {
	return func(yield func(Step) bool) {
		if root == nil {
			return
		}
		w.walk(root, "", nil, nil, false, make(map[*Entry]bool), yield)
	}
}

// Endpoints returns only the resolved endpoints of the tree.
func (w *Walker) Endpoints(root *Entry) iter.Seq[*ResolvedEndpoint] {
	return func(yield func(*ResolvedEndpoint) bool) {
		for step := range w.Walk(root) {
			if step.Kind != StepEndpoint {
				continue
			}
			if !yield(step.Endpoint) {
				return
			}
		}
	}
}

func (w *Walker) walk(e *Entry, prefix string, inherited []Binding, inheritedDefaults map[string]any, incomplete bool, onPath map[*Entry]bool, yield func(Step) bool) bool {
	if onPath[e] {
		return true
	}
	onPath[e] = true
	defer delete(onPath, e)

	route := prefix + e.Route
	bindings := inherited
	defaults := mergeDefaults(inheritedDefaults, e.Defaults)

	pattern, err := Parse(w.reg, e.Route, e.IsEndpoint())
	if err != nil {
		var perr *ParseError
		if !errors.As(err, &perr) {
			perr = &ParseError{Route: e.Route, Token: e.Route, Reason: err.Error()}
		}
		if !yield(Step{Kind: StepMalformed, Entry: e, Route: route, Err: perr}) {
			return false
		}
		incomplete = true
	} else if len(pattern.Placeholders) > 0 {
		bindings = make([]Binding, len(inherited), len(inherited)+len(pattern.Placeholders))
		copy(bindings, inherited)

		for _, ph := range pattern.Placeholders {
			b := Binding{Name: ph.Name, Converter: ph.Converter, Type: ph.Type, Route: e.Route}
			idx := indexBinding(bindings, ph.Name)
			if idx < 0 {
				bindings = append(bindings, b)
				continue
			}
			if outer := bindings[idx]; outer.Type != b.Type {
				shadow := &Shadow{Name: ph.Name, Outer: outer, Inner: b}
				if !yield(Step{Kind: StepShadowed, Entry: e, Route: route, Shadow: shadow}) {
					return false
				}
			}
			bindings[idx] = b
		}
	}

	if e.IsEndpoint() {
		ep := &ResolvedEndpoint{
			Entry:      e,
			Route:      route,
			Bindings:   bindings,
			Callback:   e.Callback,
			Defaults:   defaults,
			Incomplete: incomplete,
		}
		return yield(Step{Kind: StepEndpoint, Entry: e, Route: route, Endpoint: ep})
	}

	for _, child := range e.Children {
		if child == nil {
			continue
		}
		if !w.walk(child, route, bindings, defaults, incomplete, onPath, yield) {
			return false
		}
	}
	return true
}

// mergeDefaults overlays own on inherited. Neither map is modified; the
// result is shared only when one side is empty.
func mergeDefaults(inherited, own map[string]any) map[string]any {
	if len(own) == 0 {
		return inherited
	}
	if len(inherited) == 0 {
		return own
	}
	merged := make(map[string]any, len(inherited)+len(own))
	maps.Copy(merged, inherited)
	maps.Copy(merged, own)
	return merged
}

func indexBinding(bindings []Binding, name string) int {
	for i, b := range bindings {
		if b.Name == name {
			return i
		}
	}
	return -1
}
