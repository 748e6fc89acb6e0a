package routetable

import (
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/pkg/urlconf"
)

func writeFile(t *testing.T, dir, name, content string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatal(err)
	}
	return path
}

func endpoints(t *testing.T, res *Result) map[string]*urlconf.ResolvedEndpoint {
	t.Helper()
	out := make(map[string]*urlconf.ResolvedEndpoint)
	for ep := range urlconf.NewWalker(res.Registry).Endpoints(res.Root) {
		out[ep.Route] = ep
	}
	return out
}

// =============================================================================
// Format Tests
// =============================================================================

func TestFormatOf(t *testing.T) {
	tests := []struct {
		path string
		want Format
		ok   bool
	}{
		{"routes.yaml", FormatYAML, true},
		{"routes.YML", FormatYAML, true},
		{"conf/routes.toml", FormatTOML, true},
		{"routes.json", FormatJSON, true},
		{"routes.xml", "", false},
		{"routes", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.path, func(t *testing.T) {
			got, ok := FormatOf(tt.path)
			if got != tt.want || ok != tt.ok {
				t.Errorf("FormatOf(%q) = %q, %v; want %q, %v", tt.path, got, ok, tt.want, tt.ok)
			}
		})
	}
}

// =============================================================================
// Load Tests
// =============================================================================

const blogYAML = `
converters:
  - {name: year, type: int, regexp: "[0-9]{4}"}
textAliases: [Slug]
routes:
  - route: "articles/"
    include:
      - route: "<year:year>/"
        handler: blog.YearArchive
        name: year-archive
      - route: "<slug:slug>/"
        handler: blog.Detail
        defaults: {format: html, page: 1}
  - route: "api/"
    includeFile: api/routes.toml
signatures:
  blog.YearArchive:
    params:
      - {name: request, injected: true}
      - {name: year, type: int}
`

const apiTOML = `
[[routes]]
route = "users/<int:id>/"
handler = "api.UserDetail"

[[routes]]
route = "health/"
handler = "api.Health"

[signatures."api.UserDetail"]
catchAll = true

[[signatures."api.UserDetail".params]]
name = "id"
type = "int"
`

func TestLoadYAMLWithTOMLInclude(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.yaml", blogYAML)
	writeFile(t, dir, "api/routes.toml", apiTOML)

	res, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(res.Files) != 2 {
		t.Errorf("Files = %v, want 2 files", res.Files)
	}
	if err := urlconf.Validate(res.Root); err != nil {
		t.Fatalf("Validate: %v", err)
	}

	conv, ok := res.Registry.Lookup("year")
	if !ok || conv.Output != urlconf.TypeInt {
		t.Errorf("year converter = %+v, %v", conv, ok)
	}
	if !res.Registry.Compatible(urlconf.TypeStr, "Slug") {
		t.Error("Slug should be a text alias")
	}

	eps := endpoints(t, res)
	if len(eps) != 4 {
		t.Fatalf("got %d endpoints, want 4: %v", len(eps), eps)
	}

	year := eps["articles/<year:year>/"]
	if year == nil || year.Callback.Name != "blog.YearArchive" || year.Entry.Name != "year-archive" {
		t.Fatalf("year endpoint = %+v", year)
	}
	if b, ok := year.Binding("year"); !ok || b.Type != urlconf.TypeInt {
		t.Errorf("year binding = %+v, %v", b, ok)
	}

	detail := eps["articles/<slug:slug>/"]
	if detail == nil || detail.Defaults["format"] != "html" {
		t.Errorf("detail defaults = %+v", detail)
	}

	if eps["api/users/<int:id>/"] == nil || eps["api/health/"] == nil {
		t.Errorf("included endpoints missing: %v", eps)
	}

	sig, ok := res.Signatures["blog.YearArchive"]
	if !ok || sig.Handler != "blog.YearArchive" || len(sig.Params) != 2 || !sig.Params[0].Injected {
		t.Errorf("blog.YearArchive signature = %+v", sig)
	}
	if api := res.Signatures["api.UserDetail"]; !api.CatchAll || api.Params[0].Type != "int" {
		t.Errorf("api.UserDetail signature = %+v", api)
	}
}

func TestLoadJSON(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.json", `{
  "routes": [
    {"route": "<uuid:id>/", "handler": "files.Download", "defaults": {"inline": true}}
  ]
}`)

	res, err := Load(path, urlconf.DefaultRegistry())
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	eps := endpoints(t, res)
	ep := eps["<uuid:id>/"]
	if ep == nil || ep.Defaults["inline"] != true {
		t.Fatalf("endpoint = %+v", ep)
	}
}

func TestLoadGroupDefaults(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.yaml", `
routes:
  - route: "blog/"
    name: blog
    defaults: {year: 2020, format: html}
    include:
      - route: "latest/"
        handler: blog.Latest
        defaults: {format: rss}
`)

	res, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if group := res.Root.Children[0]; group.Name != "blog" || len(group.Defaults) != 2 {
		t.Errorf("group = %+v", group)
	}

	ep := endpoints(t, res)["blog/latest/"]
	if ep == nil {
		t.Fatal("blog/latest/ missing")
	}
	if !ep.HasDefault("year") || ep.Defaults["format"] != "rss" {
		t.Errorf("Defaults = %v, want the group year and the endpoint format", ep.Defaults)
	}
}

func TestLoadSharedIncludeLoadedOnce(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.yaml", `
routes:
  - route: "v1/"
    includeFile: common.yaml
  - route: "v2/"
    includeFile: common.yaml
`)
	writeFile(t, dir, "common.yaml", `
routes:
  - route: "ping/"
    handler: common.Ping
`)

	res, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if len(res.Files) != 2 {
		t.Errorf("Files = %v, want the shared file loaded once", res.Files)
	}
	v1, v2 := res.Root.Children[0].Children[0], res.Root.Children[1].Children[0]
	if v1 != v2 {
		t.Error("shared include should produce one entry")
	}
	if err := urlconf.Validate(res.Root); err != nil {
		t.Errorf("shared subtree should be valid: %v", err)
	}
}

func TestLoadIncludeCycle(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "a.yaml", `
routes:
  - route: "a/"
    includeFile: b.yaml
`)
	writeFile(t, dir, "b.yaml", `
routes:
  - route: "b/"
    includeFile: a.yaml
`)

	res, err := Load(path, nil)
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}

	err = urlconf.Validate(res.Root)
	var treeErr *urlconf.TreeError
	if !stderrors.As(err, &treeErr) || treeErr.Kind != urlconf.TreeCycle {
		t.Errorf("Validate = %v, want a cycle", err)
	}
}

func TestLoadErrors(t *testing.T) {
	tests := []struct {
		name     string
		files    map[string]string
		load     string
		wantCode string
		wantText string
	}{
		{
			name:     "missing file",
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesNotFound,
		},
		{
			name:     "missing include",
			files:    map[string]string{"routes.yaml": "routes:\n  - {route: \"x/\", includeFile: gone.yaml}\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesNotFound,
		},
		{
			name:     "unsupported extension",
			files:    map[string]string{"routes.xml": "<routes/>"},
			load:     "routes.xml",
			wantCode: errors.CodeRoutesFormat,
		},
		{
			name:     "syntax error",
			files:    map[string]string{"routes.json": `{"routes": [`},
			load:     "routes.json",
			wantCode: errors.CodeRoutesInvalid,
		},
		{
			name:     "unknown field",
			files:    map[string]string{"routes.toml": "[[routes]]\nroute = \"x/\"\nhandler = \"a.B\"\nview = \"a.C\"\n"},
			load:     "routes.toml",
			wantCode: errors.CodeRoutesInvalid,
			wantText: "view",
		},
		{
			name:     "route without target",
			files:    map[string]string{"routes.yaml": "routes:\n  - route: \"x/\"\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesInvalid,
			wantText: "routes[0].handler: is required",
		},
		{
			name:     "handler and include",
			files:    map[string]string{"routes.yaml": "routes:\n  - route: \"x/\"\n    handler: a.B\n    include:\n      - {route: \"y/\", handler: a.C}\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesInvalid,
			wantText: "routes[0].handler: cannot be combined with",
		},
		{
			name:     "nested route without target",
			files:    map[string]string{"routes.yaml": "routes:\n  - route: \"x/\"\n    include:\n      - route: \"y/\"\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesInvalid,
			wantText: "routes[0].include[0].handler",
		},
		{
			name:     "bad converter name",
			files:    map[string]string{"routes.yaml": "converters:\n  - {name: \"4d\", type: int}\nroutes: []\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesInvalid,
			wantText: "converters[0].name",
		},
		{
			name:     "converter conflicts with default",
			files:    map[string]string{"routes.yaml": "converters:\n  - {name: int, type: str}\nroutes: []\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesInvalid,
		},
		{
			name:     "invalid signature",
			files:    map[string]string{"routes.yaml": "routes: []\nsignatures:\n  a.B:\n    params:\n      - {name: x}\n      - {name: x}\n"},
			load:     "routes.yaml",
			wantCode: errors.CodeRoutesInvalid,
			wantText: "signatures.a.B",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			for name, content := range tt.files {
				writeFile(t, dir, name, content)
			}

			_, err := Load(filepath.Join(dir, tt.load), nil)
			if err == nil {
				t.Fatal("expected error")
			}
			if code := errors.Code(err); code != tt.wantCode {
				t.Errorf("code = %q, want %q (err: %v)", code, tt.wantCode, err)
			}
			if tt.wantText != "" && !strings.Contains(err.Error(), tt.wantText) {
				t.Errorf("error %q does not contain %q", err.Error(), tt.wantText)
			}
		})
	}
}

func TestLoadConflictingSignatures(t *testing.T) {
	dir := t.TempDir()
	path := writeFile(t, dir, "routes.yaml", `
routes:
  - {route: "x/", includeFile: other.yaml}
signatures:
  a.B:
    params: [{name: id, type: int}]
`)
	writeFile(t, dir, "other.yaml", `
routes:
  - {route: "y/", handler: a.B}
signatures:
  a.B:
    params: [{name: id, type: str}]
`)

	_, err := Load(path, nil)
	if errors.Code(err) != errors.CodeRoutesInvalid {
		t.Errorf("err = %v, want %s", err, errors.CodeRoutesInvalid)
	}
}
