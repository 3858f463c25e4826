package pongo_test

import (
	"errors"
	"io"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/flosch/pongo2/v6"
	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tplengine/pkg/compiler/pongo"
	"github.com/goliatone/go-tplengine/pkg/engine"
	"github.com/goliatone/go-tplengine/pkg/model"
	"github.com/goliatone/go-tplengine/pkg/template"
	"github.com/goliatone/go-tplengine/pkg/testsupport"
)

func render(t *testing.T, c *pongo.Compiler, source string, value any, partial template.PartialFunc) string {
	t.Helper()

	artifact, err := c.Compile("test", source)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}
	ctx := template.NewContext(model.Wrap(value), partial)
	if err := artifact.Execute(ctx); err != nil {
		t.Fatalf("execute: %v", err)
	}
	return ctx.Body()
}

func TestPongoCompiler_Render(t *testing.T) {
	c := newCompiler(t)

	got := render(t, c, "Hello, {{ Name }}!", struct{ Name string }{Name: "Ada"}, nil)
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "hello.golden"))
	if got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}

	got = render(t, c, "Hello, {{ model.Name }}!", map[string]any{"Name": "Ada"}, nil)
	if got != want {
		t.Fatalf("render via model mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestPongoCompiler_ThroughEngine(t *testing.T) {
	c := newCompiler(t)
	reader := testsupport.NewMapReader(map[string]string{
		"page":   `{{ partial("header", model) }}<p>{{ Body }}</p>`,
		"header": "<h1>{{ Title }}</h1>",
	})
	counting := testsupport.NewCountingCompiler(c)

	e, err := engine.New(reader, counting)
	if err != nil {
		t.Fatalf("new engine: %v", err)
	}

	result, written := testsupport.CaptureTemplateOutput(t, func(w io.Writer) (string, error) {
		return e.Render("page", map[string]any{"Title": "News", "Body": "a & b"}, w)
	})

	want := "<h1>News</h1><p>a &amp; b</p>"
	if result != want {
		t.Fatalf("render mismatch result\nwant: %q\n got: %q", want, result)
	}
	if written != want {
		t.Fatalf("render mismatch writer\nwant: %q\n got: %q", want, written)
	}

	if _, err := e.Render("page", map[string]any{"Title": "Again"}); err != nil {
		t.Fatalf("second render: %v", err)
	}
	if counting.Count("page") != 1 || counting.Count("header") != 1 {
		t.Fatalf("expected one compile per template, got page=%d header=%d", counting.Count("page"), counting.Count("header"))
	}
}

func TestPongoCompiler_Partial(t *testing.T) {
	c := newCompiler(t)

	type call struct {
		Name  string
		Model any
	}
	var calls []call
	partial := func(name string, m any) (string, error) {
		calls = append(calls, call{Name: name, Model: m})
		return "<" + name + ">", nil
	}

	got := render(t, c, `{{ partial("nav") }}|{{ partial("user", User) }}`, map[string]any{
		"User": map[string]any{"Name": "Ada"},
	}, partial)

	if got != "<nav>|<user>" {
		t.Fatalf("unexpected output %q", got)
	}
	want := []call{
		{Name: "nav"},
		{Name: "user", Model: map[string]any{"Name": "Ada"}},
	}
	if diff := cmp.Diff(want, calls); diff != "" {
		t.Fatalf("partial calls mismatch (-want +got):\n%s", diff)
	}
}

func TestPongoCompiler_PartialErrorPropagates(t *testing.T) {
	c := newCompiler(t)
	artifact, err := c.Compile("page", `before {{ partial("broken") }} after`)
	if err != nil {
		t.Fatalf("compile: %v", err)
	}

	boom := errors.New("boom")
	ctx := template.NewContext(nil, func(string, any) (string, error) {
		return "", boom
	})
	if err := artifact.Execute(ctx); !errors.Is(err, boom) {
		t.Fatalf("expected partial error, got %v", err)
	}
}

func TestPongoCompiler_CompileError(t *testing.T) {
	c := newCompiler(t)

	_, err := c.Compile("bad", "{% if %}never closed")
	if err == nil {
		t.Fatalf("expected compile error")
	}

	var cerr *template.CompilationError
	if !errors.As(err, &cerr) {
		t.Fatalf("expected *template.CompilationError, got %T", err)
	}
	if cerr.Name != "bad" || len(cerr.Diagnostics) != 1 {
		t.Fatalf("unexpected compilation error %+v", cerr)
	}
	if !strings.HasPrefix(cerr.Diagnostics[0].Location, "bad") {
		t.Fatalf("expected location to name the template, got %q", cerr.Diagnostics[0].Location)
	}

	var perr *pongo2.Error
	if !errors.As(err, &perr) {
		t.Fatalf("expected underlying *pongo2.Error")
	}
}

func TestPongoCompiler_Filters(t *testing.T) {
	c := newCompiler(t)
	value := map[string]any{
		"Title": "  Hello  ",
		"Bio":   `<b>hi</b><script>alert(1)</script>`,
	}

	tests := []struct {
		name   string
		source string
		want   string
	}{
		{name: "trim", source: "[{{ Title|trim }}]", want: "[Hello]"},
		{name: "lowerfirst", source: "{{ Title|trim|lowerfirst }}", want: "hello"},
		{name: "autoescape", source: "{{ Bio }}", want: "&lt;b&gt;hi&lt;/b&gt;&lt;script&gt;alert(1)&lt;/script&gt;"},
		{name: "sanitize", source: "{{ Bio|sanitize }}", want: "<b>hi</b>"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := render(t, c, tt.source, value, nil)
			if got != tt.want {
				t.Fatalf("output mismatch\nwant: %q\n got: %q", tt.want, got)
			}
		})
	}
}

func TestPongoCompiler_GlobalContext(t *testing.T) {
	c, err := pongo.New(pongo.WithGlobalData(map[string]any{
		"settings": map[string]any{"env": "dev"},
	}))
	if err != nil {
		t.Fatalf("new compiler: %v", err)
	}
	if err := c.GlobalContext(map[string]any{
		"settings": map[string]any{"env": "staging"},
	}); err != nil {
		t.Fatalf("global context: %v", err)
	}

	got := render(t, c, "env={{ settings.env }} user={{ Name }}", map[string]any{"Name": "Ada"}, nil)
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-global.golden"))
	if got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func TestPongoCompiler_FunctionsAndFilters(t *testing.T) {
	c, err := pongo.New(
		pongo.WithFunctions(map[string]any{
			"upper": func(s string) string { return strings.ToUpper(s) },
		}),
		pongo.WithFilters(map[string]pongo2.FilterFunction{
			"tplengine_initial": func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
				return pongo2.AsValue(in.String()[:1]), nil
			},
		}),
	)
	if err != nil {
		t.Fatalf("new compiler: %v", err)
	}
	if err := c.RegisterFilter("tplengine_shout", func(s string) string { return s + "!" }); err != nil {
		t.Fatalf("register filter: %v", err)
	}

	got := render(t, c, "{{ upper(Name)|tplengine_shout }}", map[string]any{"Name": "Ada"}, nil)
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "use-filter.golden"))
	if got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
	if got := render(t, c, "{{ Name|tplengine_initial }}", map[string]any{"Name": "Ada"}, nil); got != "A" {
		t.Fatalf("unexpected filter output %q", got)
	}

	if err := c.RegisterFilter("tplengine_shout", strings.ToLower); err == nil {
		t.Fatalf("expected duplicate filter error")
	}
}

func TestPongoCompiler_RejectsNonFunctions(t *testing.T) {
	_, err := pongo.New(pongo.WithFunctions(map[string]any{"version": "1.0"}))
	if err == nil || !strings.Contains(err.Error(), `"version"`) {
		t.Fatalf("expected not callable error, got %v", err)
	}
}

func TestPongoCompiler_Include(t *testing.T) {
	c, err := pongo.New(pongo.WithFS(os.DirFS(filepath.Join("testdata", "includes"))))
	if err != nil {
		t.Fatalf("new compiler: %v", err)
	}

	got := render(t, c, "<main>{{ Name }}</main>\n{% include \"footer.tpl\" %}", map[string]any{"Name": "Ada"}, nil)
	want := testsupport.MustReadGoldenString(t, filepath.Join("testdata", "include.golden"))
	if got != want {
		t.Fatalf("render mismatch\nwant: %q\n got: %q", want, got)
	}
}

func newCompiler(t *testing.T) *pongo.Compiler {
	t.Helper()

	c, err := pongo.New()
	if err != nil {
		t.Fatalf("new compiler: %v", err)
	}
	return c
}
