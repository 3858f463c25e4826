// Package pongo compiles Django-syntax templates with pongo2.
package pongo

import (
	"errors"
	"fmt"
	"io/fs"
	"reflect"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"
	"unicode/utf8"

	"github.com/flosch/pongo2/v6"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-tplengine/pkg/model"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// Option configures the pongo2 compiler before construction.
type Option func(*config)

type config struct {
	baseDir    string
	templates  fs.FS
	functions  map[string]any
	filters    map[string]pongo2.FilterFunction
	globalData map[string]any
}

// WithBaseDir lets {% include %} and {% extends %} tags resolve files under
// dir.
func WithBaseDir(dir string) Option {
	return func(cfg *config) {
		cfg.baseDir = strings.TrimSpace(dir)
	}
}

// WithFS lets {% include %} and {% extends %} tags resolve files from files.
func WithFS(files fs.FS) Option {
	return func(cfg *config) {
		cfg.templates = files
	}
}

// WithFunctions exposes callables to every template, so
// {{ upper(Name) }} calls funcs["upper"]. Non-function values make New fail.
func WithFunctions(funcs map[string]any) Option {
	return func(cfg *config) {
		if cfg.functions == nil {
			cfg.functions = make(map[string]any, len(funcs))
		}
		for name, fn := range funcs {
			cfg.functions[strings.TrimSpace(name)] = fn
		}
	}
}

// WithFilters registers pongo2 filters. pongo2 keeps filters process wide,
// so a name that is already registered keeps its first definition.
func WithFilters(filters map[string]pongo2.FilterFunction) Option {
	return func(cfg *config) {
		if cfg.filters == nil {
			cfg.filters = make(map[string]pongo2.FilterFunction, len(filters))
		}
		for name, fn := range filters {
			cfg.filters[strings.TrimSpace(name)] = fn
		}
	}
}

// WithGlobalData seeds values visible to every template.
func WithGlobalData(data map[string]any) Option {
	return func(cfg *config) {
		if cfg.globalData == nil {
			cfg.globalData = make(map[string]any, len(data))
		}
		for key, value := range data {
			cfg.globalData[strings.TrimSpace(key)] = value
		}
	}
}

// Compiler turns Django-syntax sources into artifacts using a pongo2
// template set. Inside a template the model's fields are top-level
// variables, the whole model is also available as "model", and
// partial("name") or partial("name", value) renders another template through
// the engine.
type Compiler struct {
	templateSet *pongo2.TemplateSet

	// globals is replaced, never mutated, so artifacts executing
	// concurrently (including nested partial renders) read it without
	// locking.
	globals atomic.Pointer[pongo2.Context]
}

// Ensure Compiler implements the template.Compiler interface.
var _ template.Compiler = (*Compiler)(nil)

// New constructs a Compiler using the provided configuration options.
func New(options ...Option) (*Compiler, error) {
	cfg := &config{}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}

	var loaders []pongo2.TemplateLoader
	if cfg.baseDir != "" {
		loader, err := pongo2.NewLocalFileSystemLoader(cfg.baseDir)
		if err != nil {
			return nil, fmt.Errorf("pongo: create local loader: %w", err)
		}
		loaders = append(loaders, loader)
	}
	if cfg.templates != nil {
		loaders = append(loaders, pongo2.NewFSLoader(cfg.templates))
	}
	if len(loaders) == 0 {
		loaders = append(loaders, pongo2.NewFSLoader(emptyFS{}))
	}

	globals := pongo2.Context{}
	for key, value := range cfg.globalData {
		if key != "" {
			globals[key] = value
		}
	}
	for name, fn := range cfg.functions {
		if name == "" || fn == nil || reflect.TypeOf(fn).Kind() != reflect.Func {
			return nil, fmt.Errorf("pongo: function %q is not callable", name)
		}
		globals[name] = fn
	}

	registerDefaultFilters()
	for name, fn := range cfg.filters {
		if name == "" || fn == nil {
			return nil, errors.New("pongo: filter name and function required")
		}
		if !pongo2.FilterExists(name) {
			if err := pongo2.RegisterFilter(name, fn); err != nil {
				return nil, fmt.Errorf("pongo: register filter %q: %w", name, err)
			}
		}
	}

	c := &Compiler{
		templateSet: pongo2.NewSet("tplengine", loaders...),
	}
	c.globals.Store(&globals)
	return c, nil
}

// Compile parses source. Syntax errors are reported as a
// *template.CompilationError located at name:line:col.
func (c *Compiler) Compile(name, source string) (template.Artifact, error) {
	if c == nil || c.templateSet == nil {
		return nil, errors.New("pongo: compiler is nil")
	}

	tmpl, err := c.templateSet.FromString(source)
	if err != nil {
		cerr := template.NewCompilationError(name, diagnostic(name, err))
		cerr.Err = err
		return nil, cerr
	}
	return &artifact{name: name, tmpl: tmpl, compiler: c}, nil
}

// RegisterFilter registers a string filter such as {{ Title|slug }}. Its
// output is still autoescaped. Filters are process wide in pongo2, so
// registering an existing name fails.
func (c *Compiler) RegisterFilter(name string, fn func(string) string) error {
	name = strings.TrimSpace(name)
	if name == "" || fn == nil {
		return errors.New("pongo: filter name and function required")
	}
	if pongo2.FilterExists(name) {
		return fmt.Errorf("pongo: filter %q already exists", name)
	}
	return pongo2.RegisterFilter(name, func(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
		return pongo2.AsValue(fn(valueString(in))), nil
	})
}

// GlobalContext merges data into the values visible to every template.
// Artifacts already executing keep the snapshot they started with.
func (c *Compiler) GlobalContext(data map[string]any) error {
	if c == nil || c.templateSet == nil {
		return errors.New("pongo: compiler is nil")
	}

	values := make(pongo2.Context, len(data))
	for key, value := range data {
		if key = strings.TrimSpace(key); key != "" {
			values[key] = value
		}
	}
	if len(values) == 0 {
		return nil
	}
	for {
		current := c.globals.Load()
		next := make(pongo2.Context, len(*current)+len(values))
		next.Update(*current)
		next.Update(values)
		if c.globals.CompareAndSwap(current, &next) {
			return nil
		}
	}
}

type artifact struct {
	name     string
	tmpl     *pongo2.Template
	compiler *Compiler
}

func (a *artifact) Execute(ctx *template.Context) error {
	fields := model.ToMap(ctx.Model())

	globals := *a.compiler.globals.Load()
	viewContext := make(pongo2.Context, len(globals)+len(fields)+2)
	viewContext.Update(globals)
	for key, value := range fields {
		if isIdentifier(key) {
			viewContext[key] = value
		}
	}
	viewContext["model"] = fields

	// pongo2 reports function errors as its own *Error; the first partial
	// failure is kept so callers see the original error.
	var partialErr error
	viewContext["partial"] = func(name *pongo2.Value, args ...*pongo2.Value) (*pongo2.Value, error) {
		var arg any
		if len(args) > 0 && args[0] != nil {
			arg = args[0].Interface()
		}
		out, err := ctx.RenderPartial(name.String(), arg)
		if err != nil {
			if partialErr == nil {
				partialErr = err
			}
			return nil, err
		}
		return pongo2.AsSafeValue(out), nil
	}

	if err := a.tmpl.ExecuteWriter(viewContext, ctx); err != nil {
		if partialErr != nil {
			return partialErr
		}
		return fmt.Errorf("pongo: execute template %q: %w", a.name, err)
	}
	return nil
}

func diagnostic(name string, err error) template.Diagnostic {
	var perr *pongo2.Error
	if !errors.As(err, &perr) {
		return template.Diagnostic{Location: name, Message: err.Error()}
	}

	location := name
	if perr.Line > 0 {
		location = fmt.Sprintf("%s:%d:%d", name, perr.Line, perr.Column)
	}
	message := perr.Error()
	if perr.OrigError != nil {
		message = perr.OrigError.Error()
	}
	return template.Diagnostic{Location: location, Message: message}
}

// isIdentifier reports whether pongo2 accepts key as a context variable.
func isIdentifier(key string) bool {
	if key == "" {
		return false
	}
	for _, r := range key {
		if r != '_' && (r < '0' || r > '9') && (r < 'a' || r > 'z') && (r < 'A' || r > 'Z') {
			return false
		}
	}
	return true
}

type emptyFS struct{}

func (emptyFS) Open(name string) (fs.File, error) {
	return nil, &fs.PathError{Op: "open", Path: name, Err: fs.ErrNotExist}
}

var (
	sanitizePolicyOnce sync.Once
	sanitizePolicy     *bluemonday.Policy
)

func sanitizer() *bluemonday.Policy {
	sanitizePolicyOnce.Do(func() {
		sanitizePolicy = bluemonday.UGCPolicy()
	})
	return sanitizePolicy
}

func registerDefaultFilters() {
	for name, fn := range map[string]pongo2.FilterFunction{
		"trim":       filterTrim,
		"lowerfirst": filterLowerFirst,
		"sanitize":   filterSanitize,
	} {
		if !pongo2.FilterExists(name) {
			_ = pongo2.RegisterFilter(name, fn)
		}
	}
}

func valueString(in *pongo2.Value) string {
	if in == nil || in.IsNil() {
		return ""
	}
	return in.String()
}

func filterTrim(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsValue(strings.TrimSpace(valueString(in))), nil
}

// filterLowerFirst lowercases the first non-space rune.
func filterLowerFirst(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	s := valueString(in)
	i := strings.IndexFunc(s, func(r rune) bool { return !unicode.IsSpace(r) })
	if i < 0 {
		return pongo2.AsValue(s), nil
	}
	r, size := utf8.DecodeRuneInString(s[i:])
	return pongo2.AsValue(s[:i] + string(unicode.ToLower(r)) + s[i+size:]), nil
}

// filterSanitize strips unsafe markup and marks the rest safe so autoescape
// leaves it alone.
func filterSanitize(in *pongo2.Value, _ *pongo2.Value) (*pongo2.Value, *pongo2.Error) {
	return pongo2.AsSafeValue(sanitizer().Sanitize(valueString(in))), nil
}
