package urlconf

import (
	"errors"
	"strings"
	"testing"
)

// =============================================================================
// Pattern Parsing Tests
// =============================================================================

func TestParsePlaceholders(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		name  string
		route string
		want  []Placeholder
	}{
		{
			name:  "no placeholders",
			route: "articles/",
			want:  nil,
		},
		{
			name:  "single int",
			route: "articles/<int:year>/",
			want:  []Placeholder{{Name: "year", Converter: "int", Type: TypeInt, Offset: 9}},
		},
		{
			name:  "bare name defaults to str",
			route: "users/<name>/",
			want:  []Placeholder{{Name: "name", Converter: "str", Type: TypeStr, Offset: 6}},
		},
		{
			name:  "several converters",
			route: "<int:year>/<slug:title>/<uuid:id>",
			want: []Placeholder{
				{Name: "year", Converter: "int", Type: TypeInt, Offset: 0},
				{Name: "title", Converter: "slug", Type: TypeStr, Offset: 11},
				{Name: "id", Converter: "uuid", Type: TypeUUID, Offset: 24},
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p, err := Parse(reg, tt.route, true)
			if err != nil {
				t.Fatalf("Parse(%q) error: %v", tt.route, err)
			}
			if p.Raw != tt.route {
				t.Errorf("Raw = %q, want %q", p.Raw, tt.route)
			}
			if !p.IsEndpoint {
				t.Error("IsEndpoint = false, want true")
			}
			if len(p.Placeholders) != len(tt.want) {
				t.Fatalf("got %d placeholders, want %d", len(p.Placeholders), len(tt.want))
			}
			for i, want := range tt.want {
				if p.Placeholders[i] != want {
					t.Errorf("Placeholders[%d] = %+v, want %+v", i, p.Placeholders[i], want)
				}
			}
		})
	}
}

func TestParseParts(t *testing.T) {
	p, err := Parse(DefaultRegistry(), "articles/<int:year>/<slug:title>/", false)
	if err != nil {
		t.Fatal(err)
	}

	var rendered strings.Builder
	for _, part := range p.Parts {
		if part.Placeholder != nil {
			rendered.WriteString("{" + part.Placeholder.Name + "}")
			continue
		}
		rendered.WriteString(part.Literal)
	}
	if got := rendered.String(); got != "articles/{year}/{title}/" {
		t.Errorf("parts render as %q", got)
	}

	if ph, ok := p.Placeholder("title"); !ok || ph.Converter != "slug" {
		t.Errorf("Placeholder(title) = %+v, %v", ph, ok)
	}
	if _, ok := p.Placeholder("missing"); ok {
		t.Error("Placeholder(missing) should not be found")
	}
}

func TestParseErrors(t *testing.T) {
	reg := DefaultRegistry()

	tests := []struct {
		route      string
		wantToken  string
		wantReason string
	}{
		{"articles/<float:x>/", "<float:x>", "unknown converter"},
		{"articles/<int:>/", "<int:>", "missing parameter name"},
		{"articles/<:year>/", "<:year>", "missing converter"},
		{"articles/<int:year>/<str:year>/", "<str:year>", "duplicate parameter name"},
		{"articles/<int:year/", "<int:year/", "unclosed '<'"},
		{"articles/int:year>/", ">", "unmatched '>'"},
		{"articles/<int:<year>/", "<int:<year>", "nested '<'"},
		{"articles/<int:2year>/", "<int:2year>", "invalid parameter name"},
		{"articles/<int:my year>/", "<int:my year>", "invalid parameter name"},
	}

	for _, tt := range tests {
		t.Run(tt.route, func(t *testing.T) {
			_, err := Parse(reg, tt.route, true)
			if err == nil {
				t.Fatalf("Parse(%q) expected error", tt.route)
			}
			var perr *ParseError
			if !errors.As(err, &perr) {
				t.Fatalf("expected *ParseError, got %T", err)
			}
			if perr.Token != tt.wantToken {
				t.Errorf("Token = %q, want %q", perr.Token, tt.wantToken)
			}
			if !strings.Contains(perr.Reason, tt.wantReason) {
				t.Errorf("Reason = %q, want it to contain %q", perr.Reason, tt.wantReason)
			}
			if perr.Route != tt.route {
				t.Errorf("Route = %q, want %q", perr.Route, tt.route)
			}
		})
	}
}

// =============================================================================
// Converter Registry Tests
// =============================================================================

func TestDefaultRegistry(t *testing.T) {
	reg := DefaultRegistry()

	want := map[string]Type{
		"int":  TypeInt,
		"str":  TypeStr,
		"slug": TypeStr,
		"path": TypeStr,
		"uuid": TypeUUID,
	}
	for name, typ := range want {
		c, ok := reg.Lookup(name)
		if !ok {
			t.Errorf("converter %q not registered", name)
			continue
		}
		if c.Output != typ {
			t.Errorf("converter %q outputs %q, want %q", name, c.Output, typ)
		}
	}

	names := make([]string, 0)
	for _, c := range reg.Converters() {
		names = append(names, c.Name)
	}
	if got := strings.Join(names, ","); got != "int,path,slug,str,uuid" {
		t.Errorf("Converters() = %s", got)
	}
}

func TestRegistryRegister(t *testing.T) {
	reg := DefaultRegistry()

	if err := reg.Register(Converter{Name: "year", Output: TypeInt}); err != nil {
		t.Fatalf("Register(year) error: %v", err)
	}
	p, err := Parse(reg, "<year:y>", true)
	if err != nil {
		t.Fatalf("custom converter not usable: %v", err)
	}
	if p.Placeholders[0].Type != TypeInt {
		t.Errorf("Type = %q, want int", p.Placeholders[0].Type)
	}

	for _, bad := range []Converter{
		{Name: "", Output: TypeInt},
		{Name: "int", Output: TypeInt},
		{Name: "two words", Output: TypeInt},
		{Name: "nooutput"},
	} {
		if err := reg.Register(bad); err == nil {
			t.Errorf("Register(%+v) expected error", bad)
		}
	}
}

func TestRegistryCompatible(t *testing.T) {
	reg := DefaultRegistry()
	reg.AddTextAlias("template.HTML")

	tests := []struct {
		route    Type
		declared string
		want     bool
	}{
		{TypeInt, "int", true},
		{TypeInt, "int64", false},
		{TypeInt, "string", false},
		{TypeStr, "str", true},
		{TypeStr, "string", true},
		{TypeStr, "template.HTML", true},
		{TypeStr, "int", false},
		{TypeUUID, "uuid.UUID", true},
		{TypeUUID, "string", false},
	}
	for _, tt := range tests {
		if got := reg.Compatible(tt.route, tt.declared); got != tt.want {
			t.Errorf("Compatible(%s, %s) = %v, want %v", tt.route, tt.declared, got, tt.want)
		}
	}

	if got := strings.Join(reg.TextAliases(), ","); got != "str,string,template.HTML" {
		t.Errorf("TextAliases() = %s", got)
	}
}
