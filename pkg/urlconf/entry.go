package urlconf

import (
	"reflect"
)

// Callback references the handler an endpoint dispatches to.
type Callback struct {
	// Name is the qualified handler name (e.g. "blog.YearArchive" or
	// "blog.Handler.Show"). It identifies the handler for equality,
	// silencing and signature lookup.
	Name string

	// Func is the in-process handler value, if the host has one.
	Func any
}

// Handler creates a callback reference.
func Handler(name string, fn any) *Callback {
	return &Callback{Name: name, Func: fn}
}

// String returns the handler name.
func (c *Callback) String() string {
	if c == nil {
		return ""
	}
	return c.Name
}

// Entry is one node of a route tree. An entry with a Callback is an
// endpoint; an entry without one groups Children under its route.
type Entry struct {
	// Route is the raw pattern for this node.
	Route string

	// Name is the optional route name.
	Name string

	// Callback is the handler for endpoints, nil for groups.
	Callback *Callback

	// Defaults are arguments the route table passes to the handler
	// regardless of the request path. Defaults on a group apply to every
	// endpoint below it.
	Defaults map[string]any

	// Children are the nested entries of a group.
	Children []*Entry
}

// Path creates an endpoint entry.
func Path(route string, cb *Callback, defaults map[string]any) *Entry {
	return &Entry{Route: route, Callback: cb, Defaults: defaults}
}

// Include creates a group entry.
func Include(route string, children ...*Entry) *Entry {
	return &Entry{Route: route, Children: children}
}

// Named sets the route name and returns e.
func (e *Entry) Named(name string) *Entry {
	e.Name = name
	return e
}

// IsEndpoint reports whether e dispatches to a handler.
func (e *Entry) IsEndpoint() bool {
	return e.Callback != nil
}

// HandlerName returns the callback name, or "" for groups.
func (e *Entry) HandlerName() string {
	if e == nil {
		return ""
	}
	return e.Callback.String()
}

// Equal reports whether two entries are structurally equal: same route,
// same endpoint flag, same callback name, same defaults and equal children.
func (e *Entry) Equal(o *Entry) bool {
	return entriesEqual(e, o, make(map[[2]*Entry]bool))
}

func entriesEqual(a, b *Entry, visiting map[[2]*Entry]bool) bool {
	if a == b {
		return true
	}
	if a == nil || b == nil {
		return false
	}
	key := [2]*Entry{a, b}
	if visiting[key] {
		return true
	}
	visiting[key] = true

	if a.Route != b.Route || a.IsEndpoint() != b.IsEndpoint() || a.HandlerName() != b.HandlerName() {
		return false
	}
	if len(a.Defaults) != 0 || len(b.Defaults) != 0 {
		if !reflect.DeepEqual(a.Defaults, b.Defaults) {
			return false
		}
	}
	if len(a.Children) != len(b.Children) {
		return false
	}
	for i := range a.Children {
		if !entriesEqual(a.Children[i], b.Children[i], visiting) {
			return false
		}
	}
	return true
}
