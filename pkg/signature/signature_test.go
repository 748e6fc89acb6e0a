package signature

import (
	"context"
	"errors"
	"net/http"
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/google/uuid"

	"github.com/vango-dev/routecheck/pkg/urlconf"
)

// =============================================================================
// Static and Chain Tests
// =============================================================================

func TestStaticResolve(t *testing.T) {
	s := Static{
		"blog.YearArchive": {Params: []Param{{Name: "year", Type: "int"}}},
		"blog.Broken":      {Params: []Param{{Name: "x"}, {Name: "x"}}},
	}

	sig, err := s.Resolve(urlconf.Handler("blog.YearArchive", nil))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if sig.Handler != "blog.YearArchive" {
		t.Errorf("Handler = %q", sig.Handler)
	}
	if p, ok := sig.Lookup("year"); !ok || p.Type != "int" || !p.Required() {
		t.Errorf("Lookup(year) = %+v, %v", p, ok)
	}

	_, err = s.Resolve(urlconf.Handler("blog.Missing", nil))
	var rerr *ResolutionError
	if !errors.As(err, &rerr) {
		t.Fatalf("expected *ResolutionError, got %v", err)
	}
	if rerr.Handler != "blog.Missing" {
		t.Errorf("Handler = %q", rerr.Handler)
	}

	if _, err := s.Resolve(urlconf.Handler("blog.Broken", nil)); !errors.As(err, &rerr) {
		t.Errorf("duplicate params should fail resolution, got %v", err)
	}
}

func TestChainResolve(t *testing.T) {
	first := Static{"a.A": {Params: []Param{{Name: "a"}}}}
	second := Static{"a.A": {Params: []Param{{Name: "shadowed"}}}, "b.B": {Params: []Param{{Name: "b"}}}}
	chain := Chain{first, second}

	sig, err := chain.Resolve(urlconf.Handler("a.A", nil))
	if err != nil || sig.Params[0].Name != "a" {
		t.Errorf("a.A resolved to %+v, %v", sig, err)
	}
	sig, err = chain.Resolve(urlconf.Handler("b.B", nil))
	if err != nil || sig.Params[0].Name != "b" {
		t.Errorf("b.B resolved to %+v, %v", sig, err)
	}
	if _, err := chain.Resolve(urlconf.Handler("c.C", nil)); err == nil {
		t.Error("expected error for unknown handler")
	}

	boom := errors.New("boom")
	stop := Chain{
		ResolverFunc(func(*urlconf.Callback) (Signature, error) { return Signature{}, boom }),
		second,
	}
	if _, err := stop.Resolve(urlconf.Handler("b.B", nil)); !errors.Is(err, boom) {
		t.Errorf("non-resolution errors should stop the chain, got %v", err)
	}

	if _, err := (Chain{}).Resolve(urlconf.Handler("x.X", nil)); err == nil {
		t.Error("empty chain should fail")
	}
}

func TestWithConventionalInjected(t *testing.T) {
	tests := []struct {
		name     string
		params   []string
		injected []bool
	}{
		{"request", []string{"request", "year"}, []bool{true, false}},
		{"self and request", []string{"self", "request", "slug"}, []bool{true, true, false}},
		{"self only", []string{"self", "id"}, []bool{true, false}},
		{"request later", []string{"id", "request"}, []bool{false, false}},
		{"none", []string{"id"}, []bool{false}},
		{"empty", nil, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig := Signature{Handler: "h.H"}
			for _, name := range tt.params {
				sig.Params = append(sig.Params, Param{Name: name})
			}
			got := sig.WithConventionalInjected()
			for i, p := range got.Params {
				if p.Injected != tt.injected[i] {
					t.Errorf("param %s: Injected = %v, want %v", p.Name, p.Injected, tt.injected[i])
				}
				if sig.Params[i].Injected {
					t.Errorf("param %s of the original was modified", p.Name)
				}
			}
		})
	}
}

func TestSignatureValidate(t *testing.T) {
	if err := (Signature{Handler: "h", Params: []Param{{Name: ""}}}).Validate(); err == nil {
		t.Error("empty name should fail")
	}
	if err := (Signature{Handler: "h", Params: []Param{{Name: "a"}, {Name: "b"}}}).Validate(); err != nil {
		t.Errorf("unexpected error: %v", err)
	}
}

// =============================================================================
// Reflect Tests
// =============================================================================

type yearParams struct {
	Year   int    `param:"year"`
	Format string `param:"format,optional"`
	Ignore string `param:"-"`
	Plain  string
}

type postParams struct {
	pageParams
	ID    uuid.UUID `param:"id"`
	Extra any       `param:"extra,default=x"`
}

type pageParams struct {
	Page int `param:"page,omitempty"`
}

type describedHandler struct{}

func (describedHandler) Signature() Signature {
	return Signature{Params: []Param{{Name: "slug", Type: "str"}}}
}

func TestReflectResolve(t *testing.T) {
	r := NewReflect()

	tests := []struct {
		name       string
		fn         any
		wantParams []Param
		catchAll   bool
	}{
		{
			name: "params struct",
			fn:   func(ctx context.Context, p yearParams) error { return nil },
			wantParams: []Param{
				{Name: "context.Context", Type: "context.Context", Injected: true},
				{Name: "year", Type: "int"},
				{Name: "format", Type: "string", HasDefault: true},
			},
		},
		{
			name: "embedded and uuid",
			fn:   func(w http.ResponseWriter, r *http.Request, p *postParams) {},
			wantParams: []Param{
				{Name: "http.ResponseWriter", Type: "http.ResponseWriter", Injected: true},
				{Name: "*http.Request", Type: "*http.Request", Injected: true},
				{Name: "page", Type: "int", HasDefault: true},
				{Name: "id", Type: "uuid.UUID"},
				{Name: "extra", HasDefault: true},
			},
		},
		{
			name:     "catch all",
			fn:       func(r *http.Request, values map[string]string) {},
			catchAll: true,
			wantParams: []Param{
				{Name: "*http.Request", Type: "*http.Request", Injected: true},
			},
		},
		{
			name:       "describer",
			fn:         describedHandler{},
			wantParams: []Param{{Name: "slug", Type: "str"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sig, err := r.Resolve(urlconf.Handler("h.Handler", tt.fn))
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if !reflect.DeepEqual(sig.Params, tt.wantParams) {
				t.Errorf("Params = %+v\nwant %+v", sig.Params, tt.wantParams)
			}
			if sig.CatchAll != tt.catchAll {
				t.Errorf("CatchAll = %v, want %v", sig.CatchAll, tt.catchAll)
			}
			if sig.Handler != "h.Handler" {
				t.Errorf("Handler = %q", sig.Handler)
			}
		})
	}
}

func TestReflectResolveErrors(t *testing.T) {
	type untagged struct{ Year int }

	tests := []struct {
		name string
		fn   any
		want string
	}{
		{"nil value", nil, "no handler value"},
		{"not a func", 42, "not a func"},
		{"unnamed scalar", func(year int) {}, "has no name"},
		{"two structs", func(a yearParams, b postParams) {}, "more than one params struct"},
		{"untagged struct", func(p untagged) {}, "no fields tagged"},
	}

	r := NewReflect()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := r.Resolve(urlconf.Handler("h.Bad", tt.fn))
			var rerr *ResolutionError
			if !errors.As(err, &rerr) {
				t.Fatalf("expected *ResolutionError, got %v", err)
			}
			if !strings.Contains(err.Error(), tt.want) {
				t.Errorf("Error() = %q, want it to contain %q", err.Error(), tt.want)
			}
		})
	}
}

func TestReflectCustomTagAndInjected(t *testing.T) {
	type ctx struct{ ID string }
	type params struct {
		Slug string `route:"slug"`
	}

	r := NewReflect("*signature.ctx").WithTag("route")
	sig, err := r.Resolve(urlconf.Handler("h.H", func(c *ctx, p params) {}))
	if err != nil {
		t.Fatalf("Resolve error: %v", err)
	}
	if len(sig.Params) != 2 || !sig.Params[0].Injected || sig.Params[1].Name != "slug" {
		t.Errorf("Params = %+v", sig.Params)
	}
}

// =============================================================================
// Source Tests
// =============================================================================

const blogSource = `package blog

import (
	"context"
	"net/http"

	"github.com/google/uuid"
)

type Views struct{}

type ListParams struct {
	Page  int    ` + "`param:\"page,optional\"`" + `
	Order string ` + "`param:\"order\"`" + `
}

type DetailParams struct {
	ListParams
	ID uuid.UUID ` + "`param:\"id\"`" + `
}

func YearArchive(w http.ResponseWriter, r *http.Request, year int) {}

func Search(ctx context.Context, q string, tags ...string) {}

func Anything(_ *http.Request, kwargs map[string]string) {}

func Loose(r *http.Request, value any) {}

func (v *Views) Detail(ctx context.Context, p DetailParams) error { return nil }

func Blank(_ int) {}
`

func writeSource(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	pkg := filepath.Join(dir, "blog")
	if err := os.MkdirAll(pkg, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(pkg, "views.go"), []byte(blogSource), 0o644); err != nil {
		t.Fatal(err)
	}
	// Never indexed.
	if err := os.WriteFile(filepath.Join(pkg, "views_test.go"), []byte("package blog\n\nfunc TestOnly(x int) {}\n"), 0o644); err != nil {
		t.Fatal(err)
	}
	hidden := filepath.Join(dir, ".cache")
	if err := os.MkdirAll(hidden, 0o755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(filepath.Join(hidden, "broken.go"), []byte("not go"), 0o644); err != nil {
		t.Fatal(err)
	}
	return dir
}

func TestSourceResolve(t *testing.T) {
	s := NewSource([]string{writeSource(t)})
	if err := s.Load(); err != nil {
		t.Fatalf("Load error: %v", err)
	}
	if s.Files() != 1 {
		t.Errorf("Files = %d, want 1", s.Files())
	}

	tests := []struct {
		handler    string
		wantParams []Param
		catchAll   bool
	}{
		{
			handler: "blog.YearArchive",
			wantParams: []Param{
				{Name: "w", Type: "http.ResponseWriter", Injected: true},
				{Name: "r", Type: "*http.Request", Injected: true},
				{Name: "year", Type: "int"},
			},
		},
		{
			handler: "example.com/app/blog.Search",
			wantParams: []Param{
				{Name: "ctx", Type: "context.Context", Injected: true},
				{Name: "q", Type: "string"},
				{Name: "tags", Type: "[]string", HasDefault: true},
			},
		},
		{
			handler:  "blog.Anything",
			catchAll: true,
			wantParams: []Param{
				{Name: "_", Type: "*http.Request", Injected: true},
			},
		},
		{
			handler: "blog.Loose",
			wantParams: []Param{
				{Name: "r", Type: "*http.Request", Injected: true},
				{Name: "value"},
			},
		},
		{
			handler: "blog.Views.Detail",
			wantParams: []Param{
				{Name: "ctx", Type: "context.Context", Injected: true},
				{Name: "page", Type: "int", HasDefault: true},
				{Name: "order", Type: "string"},
				{Name: "id", Type: "uuid.UUID"},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.handler, func(t *testing.T) {
			sig, err := s.Resolve(urlconf.Handler(tt.handler, nil))
			if err != nil {
				t.Fatalf("Resolve error: %v", err)
			}
			if !reflect.DeepEqual(sig.Params, tt.wantParams) {
				t.Errorf("Params = %+v\nwant %+v", sig.Params, tt.wantParams)
			}
			if sig.CatchAll != tt.catchAll {
				t.Errorf("CatchAll = %v", sig.CatchAll)
			}
		})
	}
}

func TestSourceResolveErrors(t *testing.T) {
	s := NewSource([]string{writeSource(t)})
	if _, err := s.Resolve(urlconf.Handler("blog.YearArchive", nil)); err == nil {
		t.Error("resolving before Load should fail")
	}
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}

	for _, name := range []string{"blog.Missing", "blog.Blank", "blog.TestOnly"} {
		_, err := s.Resolve(urlconf.Handler(name, nil))
		var rerr *ResolutionError
		if !errors.As(err, &rerr) {
			t.Errorf("%s: expected *ResolutionError, got %v", name, err)
		}
	}
}

func TestSourceAmbiguous(t *testing.T) {
	dir := t.TempDir()
	for _, sub := range []string{"a", "b"} {
		pkg := filepath.Join(dir, sub)
		if err := os.MkdirAll(pkg, 0o755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(filepath.Join(pkg, "views.go"), []byte("package views\n\nfunc Index(page int) {}\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}

	s := NewSource([]string{dir})
	if err := s.Load(); err != nil {
		t.Fatal(err)
	}
	_, err := s.Resolve(urlconf.Handler("views.Index", nil))
	if err == nil || !strings.Contains(err.Error(), "ambiguous") {
		t.Errorf("expected ambiguity error, got %v", err)
	}
	if got := s.Handlers(); !reflect.DeepEqual(got, []string{"views.Index"}) {
		t.Errorf("Handlers = %v", got)
	}
}

func TestSourceLoadParseError(t *testing.T) {
	dir := t.TempDir()
	if err := os.WriteFile(filepath.Join(dir, "bad.go"), []byte("package bad\nfunc {"), 0o644); err != nil {
		t.Fatal(err)
	}
	if err := NewSource([]string{dir}).Load(); err == nil {
		t.Error("expected parse error")
	}
}
