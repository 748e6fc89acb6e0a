package signature

import (
	"fmt"
	"go/ast"
	"go/parser"
	"go/token"
	"go/types"
	"io/fs"
	"path/filepath"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// Source resolves signatures by parsing handler source files.
//
// Handlers are indexed as "pkg.Func" for functions and "pkg.Type.Method"
// for methods, where pkg is the package name. Callback names may carry a
// full import path ("example.com/app/blog.YearArchive"); only the last
// path element is used for lookup.
//
// Parameters keep their source names and types. Receivers are not
// parameters. A parameter whose type is a struct declared in the same
// package with `param` tags is expanded into its tagged fields.
type Source struct {
	dirs     []string
	tag      string
	injected map[string]bool

	funcs     map[string]*sourceFunc
	ambiguous map[string][]string
	structs   map[string]map[string]*ast.StructType
	files     int
}

type sourceFunc struct {
	pkg  string
	decl *ast.FuncDecl
	pos  token.Position
}

// NewSource creates a source resolver over the given directories.
// extraInjected adds type expressions (as written in source, e.g.
// "server.Ctx") to DefaultInjected. Call Load before resolving.
func NewSource(dirs []string, extraInjected ...string) *Source {
	s := &Source{
		dirs:     dirs,
		tag:      DefaultTag,
		injected: make(map[string]bool),
	}
	for _, name := range DefaultInjected {
		s.injected[name] = true
	}
	for _, name := range extraInjected {
		s.injected[name] = true
	}
	return s
}

// Load parses every non-test Go file under the source directories.
// Directories named vendor or testdata and hidden directories are skipped.
func (s *Source) Load() error {
	s.funcs = make(map[string]*sourceFunc)
	s.ambiguous = make(map[string][]string)
	s.structs = make(map[string]map[string]*ast.StructType)
	s.files = 0

	fset := token.NewFileSet()
	for _, dir := range s.dirs {
		err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
			if err != nil {
				return err
			}

			if d.IsDir() {
				name := d.Name()
				if path != dir && (name == "vendor" || name == "testdata" || strings.HasPrefix(name, ".")) {
					return filepath.SkipDir
				}
				return nil
			}

			// Skip non-Go files and tests
			if !strings.HasSuffix(path, ".go") || strings.HasSuffix(path, "_test.go") {
				return nil
			}

			return s.scanFile(fset, path)
		})
		if err != nil {
			return err
		}
	}
	return nil
}

// scanFile indexes the functions, methods and struct types of one file.
func (s *Source) scanFile(fset *token.FileSet, path string) error {
	f, err := parser.ParseFile(fset, path, nil, parser.SkipObjectResolution)
	if err != nil {
		return err
	}
	s.files++
	pkg := f.Name.Name

	for _, decl := range f.Decls {
		switch d := decl.(type) {
		case *ast.FuncDecl:
			if d.Name == nil {
				continue
			}
			key := pkg + "." + d.Name.Name
			if recv := receiverName(d); recv != "" {
				key = pkg + "." + recv + "." + d.Name.Name
			}
			pos := fset.Position(d.Pos())
			if prev, ok := s.funcs[key]; ok {
				if len(s.ambiguous[key]) == 0 {
					s.ambiguous[key] = append(s.ambiguous[key], prev.pos.String())
				}
				s.ambiguous[key] = append(s.ambiguous[key], pos.String())
				continue
			}
			s.funcs[key] = &sourceFunc{pkg: pkg, decl: d, pos: pos}

		case *ast.GenDecl:
			if d.Tok != token.TYPE {
				continue
			}
			for _, spec := range d.Specs {
				ts, ok := spec.(*ast.TypeSpec)
				if !ok {
					continue
				}
				st, ok := ts.Type.(*ast.StructType)
				if !ok {
					continue
				}
				if s.structs[pkg] == nil {
					s.structs[pkg] = make(map[string]*ast.StructType)
				}
				s.structs[pkg][ts.Name.Name] = st
			}
		}
	}
	return nil
}

// Files returns the number of files parsed by the last Load.
func (s *Source) Files() int {
	return s.files
}

// Handlers returns the indexed handler names, sorted.
func (s *Source) Handlers() []string {
	names := make([]string, 0, len(s.funcs))
	for name := range s.funcs {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Resolve implements Resolver.
func (s *Source) Resolve(cb *urlconf.Callback) (Signature, error) {
	if cb == nil {
		return Signature{}, &ResolutionError{Reason: "no callback"}
	}
	if s.funcs == nil {
		return Signature{}, unresolved(cb, "sources not loaded")
	}

	key := cb.Name
	if idx := strings.LastIndex(key, "/"); idx >= 0 {
		key = key[idx+1:]
	}
	if where := s.ambiguous[key]; len(where) > 0 {
		return Signature{}, unresolved(cb, "ambiguous: %s is declared at %s", key, strings.Join(where, ", "))
	}
	fn, ok := s.funcs[key]
	if !ok {
		return Signature{}, unresolved(cb, "no function %s found in %s", key, strings.Join(s.dirs, ", "))
	}

	sig := Signature{Handler: cb.Name}
	for i, field := range fn.decl.Type.Params.List {
		typ := types.ExprString(field.Type)

		if s.injected[typ] {
			names := fieldNames(field)
			if len(names) == 0 {
				names = []string{typ}
			}
			for _, n := range names {
				sig.Params = append(sig.Params, Param{Name: n, Type: typ, Injected: true})
			}
			continue
		}

		if isStringMapExpr(field.Type) {
			sig.CatchAll = true
			continue
		}

		if st := s.paramsStruct(fn.pkg, field.Type); st != nil {
			params, err := s.structParams(fn.pkg, st, make(map[*ast.StructType]bool))
			if err != nil {
				return Signature{}, &ResolutionError{Handler: cb.Name, Reason: "invalid params struct " + typ, Err: err}
			}
			sig.Params = append(sig.Params, params...)
			continue
		}

		names := fieldNames(field)
		if len(names) == 0 {
			return Signature{}, unresolved(cb, "parameter %d (%s) at %s has no name", i, typ, fn.pos)
		}
		for _, n := range names {
			if n == "_" {
				return Signature{}, unresolved(cb, "parameter %d (%s) at %s is blank", i, typ, fn.pos)
			}
			p := Param{Name: n, Type: declaredType(field.Type)}
			if ell, ok := field.Type.(*ast.Ellipsis); ok {
				// Variadic parameters may receive nothing.
				p.Type = "[]" + types.ExprString(ell.Elt)
				p.HasDefault = true
			}
			sig.Params = append(sig.Params, p)
		}
	}

	if err := sig.Validate(); err != nil {
		return Signature{}, &ResolutionError{Handler: cb.Name, Reason: "invalid signature", Err: err}
	}
	return sig, nil
}

// paramsStruct returns the same-package struct behind expr (T or *T) if
// it declares at least one tagged field.
func (s *Source) paramsStruct(pkg string, expr ast.Expr) *ast.StructType {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	ident, ok := expr.(*ast.Ident)
	if !ok {
		return nil
	}
	st := s.structs[pkg][ident.Name]
	if st == nil || !s.hasTaggedField(pkg, st, make(map[*ast.StructType]bool)) {
		return nil
	}
	return st
}

func (s *Source) hasTaggedField(pkg string, st *ast.StructType, seen map[*ast.StructType]bool) bool {
	if seen[st] {
		return false
	}
	seen[st] = true
	for _, f := range st.Fields.List {
		if _, ok := s.fieldTag(f); ok {
			return true
		}
		if len(f.Names) == 0 {
			if embedded := s.embeddedStruct(pkg, f.Type); embedded != nil && s.hasTaggedField(pkg, embedded, seen) {
				return true
			}
		}
	}
	return false
}

// structParams lists the tagged fields of st, walking untagged embedded
// structs of the same package.
func (s *Source) structParams(pkg string, st *ast.StructType, seen map[*ast.StructType]bool) ([]Param, error) {
	if seen[st] {
		return nil, nil
	}
	seen[st] = true

	var params []Param
	for _, f := range st.Fields.List {
		tag, ok := s.fieldTag(f)
		if !ok {
			if len(f.Names) == 0 {
				if embedded := s.embeddedStruct(pkg, f.Type); embedded != nil {
					nested, err := s.structParams(pkg, embedded, seen)
					if err != nil {
						return nil, err
					}
					params = append(params, nested...)
				}
			}
			continue
		}

		name, hasDefault := parseParamTag(tag)
		if name == "-" {
			continue
		}
		if name == "" {
			if len(f.Names) != 1 {
				return nil, fmt.Errorf("tag %q needs a name on an embedded or multi-name field", tag)
			}
			name = f.Names[0].Name
		}
		if len(f.Names) > 1 {
			return nil, fmt.Errorf("tag %q is shared by %d fields", tag, len(f.Names))
		}
		params = append(params, Param{Name: name, Type: declaredType(f.Type), HasDefault: hasDefault})
	}
	return params, nil
}

func (s *Source) fieldTag(f *ast.Field) (string, bool) {
	if f.Tag == nil {
		return "", false
	}
	raw, err := strconv.Unquote(f.Tag.Value)
	if err != nil {
		return "", false
	}
	return reflect.StructTag(raw).Lookup(s.tag)
}

func (s *Source) embeddedStruct(pkg string, expr ast.Expr) *ast.StructType {
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	if ident, ok := expr.(*ast.Ident); ok {
		return s.structs[pkg][ident.Name]
	}
	return nil
}

// declaredType renders a parameter type. Empty interfaces are untyped.
func declaredType(expr ast.Expr) string {
	typ := types.ExprString(expr)
	switch typ {
	case "any", "interface{}":
		return ""
	}
	return typ
}

func fieldNames(f *ast.Field) []string {
	names := make([]string, len(f.Names))
	for i, n := range f.Names {
		names[i] = n.Name
	}
	return names
}

func isStringMapExpr(expr ast.Expr) bool {
	m, ok := expr.(*ast.MapType)
	if !ok {
		return false
	}
	return types.ExprString(m.Key) == "string" && types.ExprString(m.Value) == "string"
}

// receiverName returns the receiver's type name, without pointer or type
// parameters, or "" for plain functions.
func receiverName(d *ast.FuncDecl) string {
	if d.Recv == nil || len(d.Recv.List) == 0 {
		return ""
	}
	expr := d.Recv.List[0].Type
	if star, ok := expr.(*ast.StarExpr); ok {
		expr = star.X
	}
	switch t := expr.(type) {
	case *ast.Ident:
		return t.Name
	case *ast.IndexExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	case *ast.IndexListExpr:
		if id, ok := t.X.(*ast.Ident); ok {
			return id.Name
		}
	}
	return ""
}
