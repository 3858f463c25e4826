package template

import (
	"strings"

	"github.com/goliatone/go-tplengine/pkg/model"
)

// PartialFunc renders another template by name against model and returns the
// produced text.
type PartialFunc func(name string, model any) (string, error)

// Context is the mutable state of a single render: the output buffer, the
// wrapped model and the callback used for partial renders. A Context belongs
// to exactly one render call and is not safe for concurrent use.
type Context struct {
	buf     strings.Builder
	model   model.Fields
	partial PartialFunc
}

// NewContext binds a fresh, empty buffer to m and partial.
func NewContext(m model.Fields, partial PartialFunc) *Context {
	return &Context{
		model:   m,
		partial: partial,
	}
}

// Write appends p to the output buffer. It never fails, which lets compilers
// hand the Context to anything that wants an io.Writer.
func (c *Context) Write(p []byte) (int, error) {
	return c.buf.Write(p)
}

// WriteString appends s to the output buffer.
func (c *Context) WriteString(s string) (int, error) {
	return c.buf.WriteString(s)
}

// Model returns the wrapped model bound to this render. It may be nil.
func (c *Context) Model() model.Fields {
	return c.model
}

// Lookup reads name from the bound model; a nil model has no fields.
func (c *Context) Lookup(name string) (any, bool) {
	if c.model == nil {
		return nil, false
	}
	return c.model.Get(name)
}

// RenderPartial synchronously renders name against m through the bound
// callback. The result is returned, not appended; callers decide where it
// goes.
func (c *Context) RenderPartial(name string, m any) (string, error) {
	if c.partial == nil {
		return "", ErrNoPartialRenderer
	}
	return c.partial(name, m)
}

// Body returns everything written so far.
func (c *Context) Body() string {
	return c.buf.String()
}
