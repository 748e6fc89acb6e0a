// Package routetable loads route trees from YAML, TOML and JSON files.
//
// A route table declares converters, routes and, optionally, handler
// signatures:
//
//	converters:
//	  - {name: year, type: int, regexp: "[0-9]{4}"}
//	routes:
//	  - route: "articles/"
//	    include:
//	      - route: "<year:year>/"
//	        handler: blog.YearArchive
//	  - route: "api/"
//	    includeFile: api.yaml
//	signatures:
//	  blog.YearArchive:
//	    params:
//	      - {name: year, type: int}
//
// Every route has exactly one of handler, include or includeFile.
// Included files are resolved relative to the including file and loaded
// once, so a file that includes itself, directly or not, produces a cyclic
// tree.
package routetable

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"os"
	"path/filepath"
	"reflect"
	"sort"
	"strings"

	"github.com/BurntSushi/toml"
	"github.com/goccy/go-json"
	"github.com/goccy/go-yaml"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/validate"
	"github.com/vango-dev/routecheck/pkg/signature"
	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// Format is a route table file format.
type Format string

const (
	FormatYAML Format = "yaml"
	FormatTOML Format = "toml"
	FormatJSON Format = "json"
)

// FormatOf returns the format for a file name by extension.
func FormatOf(path string) (Format, bool) {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		return FormatYAML, true
	case ".toml":
		return FormatTOML, true
	case ".json":
		return FormatJSON, true
	}
	return "", false
}

// Table is the decoded content of one route table file.
type Table struct {
	Converters  []Converter                    `json:"converters,omitempty" yaml:"converters,omitempty" toml:"converters,omitempty" validate:"dive"`
	TextAliases []string                       `json:"textAliases,omitempty" yaml:"textAliases,omitempty" toml:"textAliases,omitempty" validate:"dive,required"`
	Routes      []Route                        `json:"routes" yaml:"routes" toml:"routes" validate:"dive"`
	Signatures  map[string]signature.Signature `json:"signatures,omitempty" yaml:"signatures,omitempty" toml:"signatures,omitempty" validate:"dive,keys,required,endkeys"`
}

// Converter declares a custom converter.
type Converter struct {
	Name   string `json:"name" yaml:"name" toml:"name" validate:"required,identifier"`
	Type   string `json:"type" yaml:"type" toml:"type" validate:"required"`
	Regexp string `json:"regexp,omitempty" yaml:"regexp,omitempty" toml:"regexp,omitempty"`
}

// Route is one route table entry.
type Route struct {
	Route       string         `json:"route" yaml:"route" toml:"route"`
	Name        string         `json:"name,omitempty" yaml:"name,omitempty" toml:"name,omitempty"`
	Handler     string         `json:"handler,omitempty" yaml:"handler,omitempty" toml:"handler,omitempty" validate:"required_without_all=Include IncludeFile,excluded_with=Include IncludeFile"`
	Include     []Route        `json:"include,omitempty" yaml:"include,omitempty" toml:"include,omitempty" validate:"dive"`
	IncludeFile string         `json:"includeFile,omitempty" yaml:"includeFile,omitempty" toml:"includeFile,omitempty" validate:"excluded_with=Include"`
	Defaults    map[string]any `json:"defaults,omitempty" yaml:"defaults,omitempty" toml:"defaults,omitempty"`
}

// Decode decodes and validates a route table.
func Decode(data []byte, format Format) (*Table, error) {
	var t Table
	switch format {
	case FormatYAML:
		if err := yaml.UnmarshalWithOptions(data, &t, yaml.DisallowUnknownField()); err != nil {
			return nil, err
		}
	case FormatTOML:
		meta, err := toml.Decode(string(data), &t)
		if err != nil {
			return nil, err
		}
		if undecoded := meta.Undecoded(); len(undecoded) > 0 {
			return nil, fmt.Errorf("unknown field %q", undecoded[0].String())
		}
	case FormatJSON:
		dec := json.NewDecoder(bytes.NewReader(data))
		dec.DisallowUnknownFields()
		if err := dec.Decode(&t); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unsupported format %q", format)
	}

	if err := validate.Struct(&t); err != nil {
		return nil, err
	}
	for name, sig := range t.Signatures {
		if err := sig.Validate(); err != nil {
			return nil, fmt.Errorf("signatures.%s: %w", name, err)
		}
	}
	return &t, nil
}

// Result is a loaded route tree with everything the route table files
// declared alongside it.
type Result struct {
	// Root is the group entry of the top-level file.
	Root *urlconf.Entry

	// Registry holds the default converters plus the declared ones.
	Registry *urlconf.Registry

	// Signatures are the declared handler signatures.
	Signatures signature.Static

	// Files are the loaded files in load order.
	Files []string
}

// Load reads the route table at path and every file it includes.
// Converters and text aliases are added to reg; nil means a fresh
// urlconf.DefaultRegistry.
func Load(path string, reg *urlconf.Registry) (*Result, error) {
	if reg == nil {
		reg = urlconf.DefaultRegistry()
	}
	l := &loader{
		reg:   reg,
		sigs:  signature.Static{},
		files: make(map[string]*urlconf.Entry),
	}

	root, err := l.loadFile(path, "")
	if err != nil {
		return nil, err
	}

	return &Result{
		Root:       root,
		Registry:   reg,
		Signatures: l.sigs,
		Files:      l.order,
	}, nil
}

type loader struct {
	reg   *urlconf.Registry
	sigs  signature.Static
	files map[string]*urlconf.Entry
	order []string
}

// loadFile returns the group entry for path. The entry is cached before
// its routes are built so that include cycles become pointer cycles.
func (l *loader) loadFile(path, from string) (*urlconf.Entry, error) {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = path
	}
	if entry, ok := l.files[abs]; ok {
		return entry, nil
	}

	format, ok := FormatOf(path)
	if !ok {
		return nil, errors.New(errors.CodeRoutesFormat).
			WithFile(path).
			WithSuggestion("Rename the file to .yaml, .yml, .toml or .json")
	}

	data, err := os.ReadFile(path)
	if err != nil {
		ce := errors.New(errors.CodeRoutesInvalid)
		if os.IsNotExist(err) {
			ce = errors.New(errors.CodeRoutesNotFound)
			if from != "" {
				ce.WithSuggestion("Included from " + from)
			}
		}
		return nil, ce.WithFile(path).Wrap(err)
	}

	table, err := Decode(data, format)
	if err != nil {
		ce := errors.New(errors.CodeRoutesInvalid).WithFile(path).Wrap(err)
		var verr *validate.Error
		if stderrors.As(err, &verr) {
			ce.WithSuggestion("Each route needs exactly one of handler, include or includeFile")
		}
		return nil, ce
	}

	entry := &urlconf.Entry{}
	l.files[abs] = entry
	l.order = append(l.order, path)

	if err := l.declare(path, table); err != nil {
		return nil, err
	}

	children, err := l.build(path, table.Routes)
	if err != nil {
		return nil, err
	}
	entry.Children = children
	return entry, nil
}

func (l *loader) declare(path string, t *Table) error {
	for _, c := range t.Converters {
		conv := urlconf.Converter{Name: c.Name, Output: urlconf.Type(c.Type), Regexp: c.Regexp}
		if existing, ok := l.reg.Lookup(c.Name); ok {
			if existing != conv {
				return errors.New(errors.CodeRoutesInvalid).
					WithFile(path).
					WithDetail(fmt.Sprintf("Converter %q is already registered with type %s.", c.Name, existing.Output))
			}
			continue
		}
		if err := l.reg.Register(conv); err != nil {
			return errors.New(errors.CodeRoutesInvalid).WithFile(path).Wrap(err)
		}
	}
	l.reg.AddTextAlias(t.TextAliases...)

	names := make([]string, 0, len(t.Signatures))
	for name := range t.Signatures {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		sig := t.Signatures[name]
		if sig.Handler == "" {
			sig.Handler = name
		}
		if existing, ok := l.sigs[name]; ok && !reflect.DeepEqual(existing, sig) {
			return errors.New(errors.CodeRoutesInvalid).
				WithFile(path).
				WithDetail(fmt.Sprintf("Signature of %s is declared twice with different parameters.", name))
		}
		l.sigs[name] = sig
	}
	return nil
}

func (l *loader) build(path string, routes []Route) ([]*urlconf.Entry, error) {
	entries := make([]*urlconf.Entry, 0, len(routes))
	for _, r := range routes {
		var entry *urlconf.Entry
		switch {
		case r.Handler != "":
			entry = urlconf.Path(r.Route, urlconf.Handler(r.Handler, nil), r.Defaults)
		case r.IncludeFile != "":
			target := r.IncludeFile
			if !filepath.IsAbs(target) {
				target = filepath.Join(filepath.Dir(path), target)
			}
			included, err := l.loadFile(target, path)
			if err != nil {
				return nil, err
			}
			entry = urlconf.Include(r.Route, included)
		default:
			children, err := l.build(path, r.Include)
			if err != nil {
				return nil, err
			}
			entry = urlconf.Include(r.Route, children...)
		}
		entry.Defaults = r.Defaults
		entries = append(entries, entry.Named(r.Name))
	}
	return entries, nil
}
