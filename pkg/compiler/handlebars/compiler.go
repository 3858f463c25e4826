// Package handlebars compiles Handlebars templates with aymerick/raymond.
package handlebars

import (
	"errors"
	"fmt"
	"reflect"
	"regexp"
	"strings"
	"sync"

	"github.com/aymerick/raymond"
	"github.com/microcosm-cc/bluemonday"

	"github.com/goliatone/go-tplengine/pkg/model"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// contextKey is the private data frame entry holding the *template.Context of
// the render in progress.
const contextKey = "tplengine_context"

// Option configures the compiler.
type Option func(*Compiler)

// WithHelpers registers helpers on every compiled template. Helpers follow
// raymond's conventions: a function returning exactly one value. New rejects
// anything else, as well as the reserved names "partial" and "sanitize".
func WithHelpers(helpers map[string]any) Option {
	return func(c *Compiler) {
		for name, helper := range helpers {
			c.helpers[strings.TrimSpace(name)] = helper
		}
	}
}

// Compiler turns Handlebars sources into artifacts. Inside a template the
// model's fields are top-level, the whole model is also available as
// "model", {{partial "name"}} or {{partial "name" model=value}} renders
// another template through the engine, and {{sanitize value}} strips unsafe
// markup.
type Compiler struct {
	helpers map[string]any
}

// Ensure Compiler implements the template.Compiler interface.
var _ template.Compiler = (*Compiler)(nil)

// New constructs a Compiler. Invalid helpers are reported here rather than
// when a template is first compiled.
func New(options ...Option) (*Compiler, error) {
	c := &Compiler{helpers: make(map[string]any)}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	for name, helper := range c.helpers {
		if err := validateHelper(name, helper); err != nil {
			return nil, err
		}
	}
	return c, nil
}

func validateHelper(name string, helper any) error {
	switch name {
	case "":
		return errors.New("handlebars: helper name is required")
	case "partial", "sanitize":
		return fmt.Errorf("handlebars: helper %q is reserved", name)
	}
	if helper == nil {
		return fmt.Errorf("handlebars: helper %q is nil", name)
	}
	fn := reflect.TypeOf(helper)
	if fn.Kind() != reflect.Func {
		return fmt.Errorf("handlebars: helper %q must be a function, got %T", name, helper)
	}
	if fn.NumOut() != 1 {
		return fmt.Errorf("handlebars: helper %q must return exactly one value", name)
	}
	return nil
}

// Compile parses source. Parse failures become a *template.CompilationError
// located at name:line when raymond reports a line.
func (c *Compiler) Compile(name, source string) (template.Artifact, error) {
	tpl, err := raymond.Parse(source)
	if err != nil {
		return nil, template.WrapCompilationError(name, location(name, err), err)
	}

	tpl.RegisterHelper("partial", partialHelper)
	tpl.RegisterHelper("sanitize", sanitizeHelper)
	for helperName, helper := range c.helpers {
		tpl.RegisterHelper(helperName, helper)
	}
	return &artifact{name: name, tpl: tpl}, nil
}

type artifact struct {
	name string
	tpl  *raymond.Template
}

func (a *artifact) Execute(ctx *template.Context) error {
	fields := model.ToMap(ctx.Model())
	data := make(map[string]any, len(fields)+1)
	for key, value := range fields {
		data[key] = value
	}
	data["model"] = fields

	frame := raymond.NewDataFrame()
	frame.Set(contextKey, ctx)

	out, err := a.tpl.ExecWith(data, frame)
	if err != nil {
		var perr partialError
		if errors.As(err, &perr) {
			return perr.err
		}
		return fmt.Errorf("handlebars: execute template %q: %w", a.name, err)
	}
	_, err = ctx.WriteString(out)
	return err
}

// partialError marks failures raised from the partial helper; raymond
// recovers the panic and returns the value as the Exec error.
type partialError struct {
	err error
}

func (e partialError) Error() string {
	return e.err.Error()
}

func (e partialError) Unwrap() error {
	return e.err
}

func partialHelper(name string, options *raymond.Options) raymond.SafeString {
	ctx, ok := options.DataFrame().Get(contextKey).(*template.Context)
	if !ok || ctx == nil {
		panic(partialError{err: template.ErrNoPartialRenderer})
	}
	out, err := ctx.RenderPartial(name, options.HashProp("model"))
	if err != nil {
		panic(partialError{err: err})
	}
	return raymond.SafeString(out)
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

func sanitizeHelper(value any) raymond.SafeString {
	return raymond.SafeString(sanitizer().Sanitize(raymond.Str(value)))
}

var lineRe = regexp.MustCompile(`on line (\d+)`)

func location(name string, err error) string {
	if m := lineRe.FindStringSubmatch(err.Error()); m != nil {
		return name + ":" + m[1]
	}
	return name
}
