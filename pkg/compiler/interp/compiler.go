package interp

import (
	"github.com/goliatone/go-tplengine/pkg/template"
)

// Option configures the compiler.
type Option func(*Compiler)

// WithHTMLEscape escapes selector output with html.EscapeString. Partial
// output is never escaped again.
func WithHTMLEscape() Option {
	return func(c *Compiler) {
		c.opts.escape = true
	}
}

// Compiler compiles interp templates.
type Compiler struct {
	opts execOptions
}

// Ensure Compiler implements the template.Compiler interface.
var _ template.Compiler = (*Compiler)(nil)

// New constructs a Compiler.
func New(options ...Option) *Compiler {
	c := &Compiler{}
	for _, opt := range options {
		if opt != nil {
			opt(c)
		}
	}
	return c
}

// Compile parses source. Every syntax problem is reported in a single
// *template.CompilationError. Empty source compiles to an artifact that
// writes nothing.
func (c *Compiler) Compile(name, source string) (template.Artifact, error) {
	nodes, diags := parse(name, source)
	if len(diags) > 0 {
		return nil, template.NewCompilationError(name, diags...)
	}
	return &artifact{
		name:  name,
		nodes: nodes,
		opts:  c.opts,
	}, nil
}

type artifact struct {
	name  string
	nodes executeList
	opts  execOptions
}

func (a *artifact) Execute(ctx *template.Context) error {
	return a.nodes.Execute(ctx, &a.opts)
}

func (a *artifact) String() string {
	return a.nodes.String()
}
