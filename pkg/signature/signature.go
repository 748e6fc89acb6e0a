// Package signature describes handler signatures and resolves them from
// route callbacks.
//
// The checker never inspects handlers itself. It asks a Resolver for a
// normalized Signature: the ordered parameters a handler accepts by name,
// their declared types and whether each one may be omitted.
//
// Three resolvers are provided:
//   - Static: descriptors supplied by the host, keyed by handler name
//   - Reflect: reflection over in-process handler values
//   - Source: go/ast inspection of handler source files
//
// Chain combines them; the first resolver that knows a handler wins.
package signature

import (
	"errors"
	"fmt"
	"slices"

	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// DefaultTag is the struct tag that names route parameters in a params
// struct.
const DefaultTag = "param"

// DefaultInjected lists the parameter types the HTTP framework supplies
// itself. A route can never supply them.
var DefaultInjected = []string{
	"context.Context",
	"*http.Request",
	"http.ResponseWriter",
}

// Param is one formal parameter of a handler.
type Param struct {
	// Name is the parameter name routes refer to.
	Name string `json:"name" yaml:"name" toml:"name"`

	// Type is the declared type, or "" when the parameter is untyped.
	Type string `json:"type,omitempty" yaml:"type,omitempty" toml:"type,omitempty"`

	// HasDefault is set when the handler can be called without the
	// parameter.
	HasDefault bool `json:"hasDefault,omitempty" yaml:"hasDefault,omitempty" toml:"hasDefault,omitempty"`

	// Injected is set for receivers, requests, response writers and
	// contexts: values the framework passes, never the route.
	Injected bool `json:"injected,omitempty" yaml:"injected,omitempty" toml:"injected,omitempty"`
}

// Typed reports whether the parameter has a declared type.
func (p Param) Typed() bool {
	return p.Type != ""
}

// Required reports whether a route must supply the parameter.
func (p Param) Required() bool {
	return !p.HasDefault && !p.Injected
}

// Signature is the normalized parameter contract of a handler.
type Signature struct {
	// Handler is the qualified handler name.
	Handler string `json:"handler,omitempty" yaml:"handler,omitempty" toml:"handler,omitempty"`

	// Params are the formal parameters in declaration order.
	Params []Param `json:"params" yaml:"params" toml:"params"`

	// CatchAll is set when the handler accepts arbitrary route values,
	// e.g. through a map[string]string parameter.
	CatchAll bool `json:"catchAll,omitempty" yaml:"catchAll,omitempty" toml:"catchAll,omitempty"`
}

// Lookup returns the parameter a route value named name would be passed
// to. Injected parameters never match.
func (s Signature) Lookup(name string) (Param, bool) {
	for _, p := range s.Params {
		if p.Name == name && !p.Injected {
			return p, true
		}
	}
	return Param{}, false
}

// WithConventionalInjected returns s with a leading "self" parameter and
// then a leading "request" parameter marked Injected, the receiver and
// request every handler is called with. s is not modified.
func (s Signature) WithConventionalInjected() Signature {
	i := 0
	if i < len(s.Params) && s.Params[i].Name == "self" {
		i++
	}
	if i < len(s.Params) && s.Params[i].Name == "request" {
		i++
	}
	if i == 0 {
		return s
	}
	params := slices.Clone(s.Params)
	for j := range i {
		params[j].Injected = true
	}
	s.Params = params
	return s
}

// Validate checks that parameter names are non-empty and unique.
func (s Signature) Validate() error {
	seen := make(map[string]bool, len(s.Params))
	for i, p := range s.Params {
		if p.Name == "" {
			return fmt.Errorf("parameter %d of %s has no name", i, s.Handler)
		}
		if seen[p.Name] {
			return fmt.Errorf("parameter %q of %s is declared twice", p.Name, s.Handler)
		}
		seen[p.Name] = true
	}
	return nil
}

// Describer is implemented by handler values that describe their own
// signature.
type Describer interface {
	Signature() Signature
}

// ResolutionError reports a handler whose signature cannot be determined.
type ResolutionError struct {
	// Handler is the handler name.
	Handler string

	// Reason explains why resolution failed.
	Reason string

	// Err is the underlying error, if any.
	Err error
}

func (e *ResolutionError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("cannot resolve signature of %s: %s: %v", e.Handler, e.Reason, e.Err)
	}
	return fmt.Sprintf("cannot resolve signature of %s: %s", e.Handler, e.Reason)
}

// Unwrap returns the underlying error.
func (e *ResolutionError) Unwrap() error {
	return e.Err
}

func unresolved(cb *urlconf.Callback, format string, args ...any) *ResolutionError {
	return &ResolutionError{Handler: cb.String(), Reason: fmt.Sprintf(format, args...)}
}

// Resolver resolves handler signatures. Implementations must be safe for
// concurrent use once constructed.
type Resolver interface {
	Resolve(cb *urlconf.Callback) (Signature, error)
}

// ResolverFunc adapts a function to Resolver.
type ResolverFunc func(cb *urlconf.Callback) (Signature, error)

// Resolve implements Resolver.
func (f ResolverFunc) Resolve(cb *urlconf.Callback) (Signature, error) {
	return f(cb)
}

// Static resolves handlers from descriptors keyed by handler name.
type Static map[string]Signature

// Resolve implements Resolver.
func (s Static) Resolve(cb *urlconf.Callback) (Signature, error) {
	if cb == nil {
		return Signature{}, &ResolutionError{Reason: "no callback"}
	}
	sig, ok := s[cb.Name]
	if !ok {
		return Signature{}, unresolved(cb, "no signature descriptor")
	}
	if sig.Handler == "" {
		sig.Handler = cb.Name
	}
	if err := sig.Validate(); err != nil {
		return Signature{}, &ResolutionError{Handler: cb.Name, Reason: "invalid descriptor", Err: err}
	}
	return sig, nil
}

// Chain tries each resolver in order. The first one that does not fail
// with a *ResolutionError wins; other errors stop the chain.
type Chain []Resolver

// Resolve implements Resolver.
func (c Chain) Resolve(cb *urlconf.Callback) (Signature, error) {
	var last error = unresolved(cb, "no resolver configured")
	for _, r := range c {
		sig, err := r.Resolve(cb)
		if err == nil {
			return sig, nil
		}
		var rerr *ResolutionError
		if !errors.As(err, &rerr) {
			return Signature{}, err
		}
		last = err
	}
	return Signature{}, last
}
