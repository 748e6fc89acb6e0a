package signature

import (
	"reflect"
	"strings"

	"github.com/muir/reflectutils"

	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// Reflect resolves signatures from in-process handler values.
//
// Go function types carry no parameter names, so a handler is accepted
// when it either implements Describer or has the shape
//
//	func(<injected>..., params ParamsStruct) ...
//
// where every leading parameter is an injected type and route values are
// named by `param` tags on the struct fields:
//
//	type YearParams struct {
//	    Year   int    `param:"year"`
//	    Format string `param:"format,optional"`
//	}
//
// A map[string]string parameter marks the handler as catch-all.
type Reflect struct {
	tag      string
	injected map[string]bool
}

// NewReflect creates a reflection resolver. extraInjected adds type names
// (as reflect.Type.String spells them) to DefaultInjected.
func NewReflect(extraInjected ...string) *Reflect {
	r := &Reflect{tag: DefaultTag, injected: make(map[string]bool)}
	for _, name := range DefaultInjected {
		r.injected[name] = true
	}
	for _, name := range extraInjected {
		r.injected[name] = true
	}
	return r
}

// WithTag changes the struct tag used to name route parameters.
func (r *Reflect) WithTag(tag string) *Reflect {
	r.tag = tag
	return r
}

// Resolve implements Resolver.
func (r *Reflect) Resolve(cb *urlconf.Callback) (Signature, error) {
	if cb == nil {
		return Signature{}, &ResolutionError{Reason: "no callback"}
	}
	if cb.Func == nil {
		return Signature{}, unresolved(cb, "no handler value")
	}
	if d, ok := cb.Func.(Describer); ok {
		sig := d.Signature()
		if sig.Handler == "" {
			sig.Handler = cb.Name
		}
		if err := sig.Validate(); err != nil {
			return Signature{}, &ResolutionError{Handler: cb.Name, Reason: "invalid descriptor", Err: err}
		}
		return sig, nil
	}

	ft := reflect.TypeOf(cb.Func)
	if ft.Kind() != reflect.Func {
		return Signature{}, unresolved(cb, "handler is a %s, not a func", ft.Kind())
	}

	sig := Signature{Handler: cb.Name}
	paramsStructs := 0
	for i := 0; i < ft.NumIn(); i++ {
		in := ft.In(i)
		switch {
		case r.injected[in.String()]:
			sig.Params = append(sig.Params, Param{Name: in.String(), Type: in.String(), Injected: true})

		case isStringMap(in):
			sig.CatchAll = true

		case structType(in) != nil:
			paramsStructs++
			if paramsStructs > 1 {
				return Signature{}, unresolved(cb, "more than one params struct")
			}
			params, err := r.structParams(structType(in))
			if err != nil {
				return Signature{}, &ResolutionError{Handler: cb.Name, Reason: "invalid params struct " + in.String(), Err: err}
			}
			sig.Params = append(sig.Params, params...)

		default:
			return Signature{}, unresolved(cb, "parameter %d (%s) has no name; declare route parameters as `%s` tagged fields of a struct", i, in, r.tag)
		}
	}

	if err := sig.Validate(); err != nil {
		return Signature{}, &ResolutionError{Handler: cb.Name, Reason: "invalid params struct", Err: err}
	}
	return sig, nil
}

// structParams lists the tagged fields of a params struct, including the
// fields of embedded structs.
func (r *Reflect) structParams(st reflect.Type) ([]Param, error) {
	var params []Param
	reflectutils.WalkStructElements(st, func(field reflect.StructField) bool {
		tag, ok := field.Tag.Lookup(r.tag)
		if !ok {
			return true
		}
		name, hasDefault := parseParamTag(tag)
		if name == "-" {
			return false
		}
		if name == "" {
			name = field.Name
		}
		p := Param{Name: name, HasDefault: hasDefault}
		if field.Type.Kind() != reflect.Interface {
			p.Type = field.Type.String()
		}
		params = append(params, p)
		return false
	})
	if len(params) == 0 {
		return nil, errNoTaggedFields(r.tag)
	}
	return params, nil
}

type errNoTaggedFields string

func (e errNoTaggedFields) Error() string {
	return "no fields tagged `" + string(e) + "`"
}

// parseParamTag splits `name,optional` style tags. Both "optional" and
// "default=..." mark the parameter as having a default.
func parseParamTag(tag string) (name string, hasDefault bool) {
	parts := strings.Split(tag, ",")
	name = strings.TrimSpace(parts[0])
	for _, opt := range parts[1:] {
		opt = strings.TrimSpace(opt)
		if opt == "optional" || opt == "omitempty" || strings.HasPrefix(opt, "default=") {
			hasDefault = true
		}
	}
	return name, hasDefault
}

func isStringMap(t reflect.Type) bool {
	return t.Kind() == reflect.Map && t.Key().Kind() == reflect.String && t.Elem().Kind() == reflect.String
}

// structType returns the struct type behind t or *t, or nil.
func structType(t reflect.Type) reflect.Type {
	if t.Kind() == reflect.Ptr {
		t = t.Elem()
	}
	if t.Kind() != reflect.Struct {
		return nil
	}
	return t
}
