package urlconf

import (
	"fmt"
	"sort"
	"sync"
)

// Type is the semantic type a converter produces, named the way handler
// signatures spell it (e.g. "int", "uuid.UUID").
type Type string

// Semantic types produced by the built-in converters.
const (
	TypeInt  Type = "int"
	TypeStr  Type = "str"
	TypeUUID Type = "uuid.UUID"
)

// String returns the type name.
func (t Type) String() string {
	return string(t)
}

// Converter maps placeholder syntax to a semantic type.
type Converter struct {
	// Name is the converter name used in patterns (e.g. "int").
	Name string `json:"name"`

	// Output is the type the converter hands to the handler.
	Output Type `json:"type"`

	// Regexp documents the segment the converter accepts. It is never used
	// for matching.
	Regexp string `json:"regexp,omitempty"`
}

// Registry maps converter names to converters.
// A Registry is safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	converters  map[string]Converter
	textAliases map[string]struct{}
}

// NewRegistry creates an empty registry. Only the str type name itself is
// accepted as text until more aliases are added.
func NewRegistry() *Registry {
	return &Registry{
		converters:  make(map[string]Converter),
		textAliases: map[string]struct{}{string(TypeStr): {}},
	}
}

// DefaultRegistry returns a registry holding the standard converters:
// int, str, slug, path and uuid. "string" is registered as a text alias.
func DefaultRegistry() *Registry {
	r := NewRegistry()
	for _, c := range []Converter{
		{Name: "int", Output: TypeInt, Regexp: "[0-9]+"},
		{Name: "str", Output: TypeStr, Regexp: "[^/]+"},
		{Name: "slug", Output: TypeStr, Regexp: "[-a-zA-Z0-9_]+"},
		{Name: "path", Output: TypeStr, Regexp: ".+"},
		{Name: "uuid", Output: TypeUUID, Regexp: "[0-9a-f]{8}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{4}-[0-9a-f]{12}"},
	} {
		r.converters[c.Name] = c
	}
	r.textAliases["string"] = struct{}{}
	return r
}

// Register adds a converter. Names must be non-empty and unique.
func (r *Registry) Register(c Converter) error {
	if c.Name == "" {
		return fmt.Errorf("converter name is empty")
	}
	if !isIdentifier(c.Name) {
		return fmt.Errorf("converter name %q is not an identifier", c.Name)
	}
	if c.Output == "" {
		return fmt.Errorf("converter %q has no output type", c.Name)
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.converters[c.Name]; ok {
		return fmt.Errorf("converter %q already registered", c.Name)
	}
	r.converters[c.Name] = c
	return nil
}

// Lookup returns the converter registered under name.
func (r *Registry) Lookup(name string) (Converter, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.converters[name]
	return c, ok
}

// Converters returns all registered converters sorted by name.
func (r *Registry) Converters() []Converter {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]Converter, 0, len(r.converters))
	for _, c := range r.converters {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out
}

// AddTextAlias registers declared type names that accept values of the
// str type.
func (r *Registry) AddTextAlias(names ...string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, n := range names {
		if n != "" {
			r.textAliases[n] = struct{}{}
		}
	}
}

// TextAliases returns the declared type names accepted for str, sorted.
func (r *Registry) TextAliases() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.textAliases))
	for n := range r.textAliases {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Compatible reports whether a handler parameter declared as declared can
// receive a value of the route type. Types must be identical, except that
// str is accepted by every registered text alias.
func (r *Registry) Compatible(route Type, declared string) bool {
	if string(route) == declared {
		return true
	}
	if route != TypeStr {
		return false
	}
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.textAliases[declared]
	return ok
}
