package main

import (
	"bytes"
	stderrors "errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vango-dev/routecheck/internal/errors"
	"github.com/vango-dev/routecheck/internal/term"
)

const blogSource = `package blog

import "net/http"

func YearArchive(w http.ResponseWriter, r *http.Request, year int) {}

func Detail(w http.ResponseWriter, r *http.Request, slug string) {}
`

func writeProject(t *testing.T, routes string, extraConfig string) string {
	t.Helper()
	dir := t.TempDir()
	files := map[string]string{
		"routecheck.json":  `{"routes": "routes.yaml", "sources": ["blog"]` + extraConfig + `}`,
		"routes.yaml":      routes,
		"blog/handlers.go": blogSource,
	}
	for name, content := range files {
		path := filepath.Join(dir, name)
		if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
			t.Fatal(err)
		}
		if err := os.WriteFile(path, []byte(content), 0644); err != nil {
			t.Fatal(err)
		}
	}
	return dir
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	term.DisableColors()
	t.Cleanup(term.EnableColors)

	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.Execute()
	return out.String(), err
}

const soundRoutes = `
routes:
  - route: "articles/<int:year>/"
    handler: blog.YearArchive
  - route: "articles/<slug:slug>/"
    handler: blog.Detail
`

const mismatchRoutes = `
routes:
  - route: "articles/<str:year>/"
    handler: blog.YearArchive
  - route: "articles/<slug:slug>/"
    handler: blog.Detail
`

// =============================================================================
// Check Command Tests
// =============================================================================

func TestCheckClean(t *testing.T) {
	dir := writeProject(t, soundRoutes, "")

	out, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"))
	if err != nil {
		t.Fatalf("check failed: %v\n%s", err, out)
	}
	if !strings.Contains(out, "✓ 2 endpoints checked: 0 errors, 0 warnings") {
		t.Errorf("output = %q", out)
	}
}

func TestCheckFails(t *testing.T) {
	dir := writeProject(t, mismatchRoutes, "")

	out, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"), "--format", "compact")
	if !stderrors.Is(err, errChecksFailed) {
		t.Fatalf("err = %v, want errChecksFailed", err)
	}
	want := "articles/<str:year>/ (blog.YearArchive): urlchecker.E002: For parameter `year`, annotated type int does not match expected `str` from urlconf"
	if !strings.Contains(out, want) {
		t.Errorf("output = %q, want it to contain %q", out, want)
	}
}

func TestCheckFailOnNever(t *testing.T) {
	dir := writeProject(t, mismatchRoutes, "")

	if _, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"), "--fail-on", "never"); err != nil {
		t.Errorf("err = %v, want nil with --fail-on never", err)
	}
}

func TestCheckSilenced(t *testing.T) {
	dir := writeProject(t, mismatchRoutes, `, "silenced": {"blog.Year*": "E002"}`)

	out, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"))
	if err != nil {
		t.Errorf("err = %v, want the E002 silenced\n%s", err, out)
	}
}

func TestCheckJSONAndPublish(t *testing.T) {
	dir := writeProject(t, mismatchRoutes, `, "failOn": "never", "publish": {"dir": "reports"}`)

	out, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"), "--format", "json", "--publish")
	if err != nil {
		t.Fatalf("check failed: %v", err)
	}

	var report struct {
		Root      string `json:"root"`
		Endpoints int    `json:"endpoints"`
		Errors    int    `json:"errors"`
	}
	if err := json.Unmarshal([]byte(out), &report); err != nil {
		t.Fatalf("decode: %v\n%s", err, out)
	}
	if report.Root != "routes.yaml" || report.Endpoints != 2 || report.Errors != 1 {
		t.Errorf("report = %+v", report)
	}

	var published []string
	filepath.Walk(filepath.Join(dir, "reports"), func(path string, info os.FileInfo, err error) error {
		if err == nil && strings.HasSuffix(path, ".json") {
			published = append(published, path)
		}
		return nil
	})
	if len(published) != 1 {
		t.Errorf("published = %v, want one report", published)
	}
}

func TestCheckPublishWithoutTarget(t *testing.T) {
	dir := writeProject(t, soundRoutes, "")

	_, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"), "--publish")
	if errors.Code(err) != errors.CodePublishFailed {
		t.Errorf("err = %v, want %s", err, errors.CodePublishFailed)
	}
}

func TestCheckHostErrors(t *testing.T) {
	tests := []struct {
		name     string
		routes   string
		args     func(dir string) []string
		wantCode string
	}{
		{
			name:     "missing config",
			routes:   soundRoutes,
			args:     func(dir string) []string { return []string{"check", "--config", filepath.Join(dir, "nope.json")} },
			wantCode: errors.CodeConfigNotFound,
		},
		{
			name:   "missing route table",
			routes: soundRoutes,
			args: func(dir string) []string {
				return []string{"check", "--config", filepath.Join(dir, "routecheck.json"), "--routes", filepath.Join(dir, "gone.yaml")}
			},
			wantCode: errors.CodeRoutesNotFound,
		},
		{
			name:     "cyclic include",
			routes:   "routes:\n  - {route: \"again/\", includeFile: routes.yaml}\n",
			args:     func(dir string) []string { return []string{"check", "--config", filepath.Join(dir, "routecheck.json")} },
			wantCode: errors.CodeTreeInvalid,
		},
		{
			name:   "bad format flag",
			routes: soundRoutes,
			args: func(dir string) []string {
				return []string{"check", "--config", filepath.Join(dir, "routecheck.json"), "--format", "xml"}
			},
			wantCode: errors.CodeConfigValue,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := writeProject(t, tt.routes, "")
			_, err := execute(t, tt.args(dir)...)
			if code := errors.Code(err); code != tt.wantCode {
				t.Errorf("code = %q, want %q (err: %v)", code, tt.wantCode, err)
			}
		})
	}
}

func TestCheckSourceParseError(t *testing.T) {
	dir := writeProject(t, soundRoutes, "")
	broken := filepath.Join(dir, "blog", "broken.go")
	if err := os.WriteFile(broken, []byte("package blog\n\nfunc Broken( {\n"), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := execute(t, "check", "--config", filepath.Join(dir, "routecheck.json"))
	ce := errors.FromError(err, "")
	if ce == nil || ce.Code != errors.CodeSourceParse {
		t.Fatalf("err = %v, want %s", err, errors.CodeSourceParse)
	}
	if ce.Location == nil || ce.Location.File != broken || ce.Location.Line == 0 {
		t.Errorf("Location = %+v", ce.Location)
	}
}

// =============================================================================
// Listing Command Tests
// =============================================================================

func TestConvertersCommand(t *testing.T) {
	dir := writeProject(t, "converters:\n  - {name: year, type: int, regexp: \"[0-9]{4}\"}\nroutes: []\n", `, "textAliases": ["Slug"]`)

	out, err := execute(t, "converters", "--config", filepath.Join(dir, "routecheck.json"))
	if err != nil {
		t.Fatalf("converters failed: %v", err)
	}
	for _, want := range []string{"NAME", "uuid", "uuid.UUID", "year", "[0-9]{4}", "Slug"} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %q:\n%s", want, out)
		}
	}
}

func TestCodesCommand(t *testing.T) {
	out, err := execute(t, "codes")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "urlchecker.E002") || !strings.Contains(out, "urlchecker.W002") {
		t.Errorf("output = %s", out)
	}

	out, err = execute(t, "codes", "--host")
	if err != nil {
		t.Fatal(err)
	}
	if !strings.Contains(out, "RC130") || strings.Contains(out, "urlchecker") {
		t.Errorf("output = %s", out)
	}
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version", "--short")
	if err != nil {
		t.Fatal(err)
	}
	if strings.TrimSpace(out) != version {
		t.Errorf("version = %q, want %q", out, version)
	}
}
