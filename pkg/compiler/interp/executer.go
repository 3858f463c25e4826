package interp

import (
	"fmt"
	"html"
	"reflect"
	"strings"

	"github.com/goliatone/go-tplengine/pkg/model"
	"github.com/goliatone/go-tplengine/pkg/template"
)

type executer interface {
	fmt.Stringer
	Execute(ctx *template.Context, opts *execOptions) error
}

type execOptions struct {
	escape bool
}

// ****************
// * Execute List *
// ****************

type executeList []executer

func (e *executeList) push(ex executer) {
	// adjacent text nodes are merged so artifacts do fewer writes
	if text, ok := ex.(textNode); ok && len(*e) > 0 {
		if prev, ok := (*e)[len(*e)-1].(textNode); ok {
			(*e)[len(*e)-1] = prev + text
			return
		}
	}
	*e = append(*e, ex)
}

func (e executeList) Execute(ctx *template.Context, opts *execOptions) error {
	for _, ex := range e {
		if err := ex.Execute(ctx, opts); err != nil {
			return err
		}
	}
	return nil
}

func (e executeList) String() string {
	var buf strings.Builder
	buf.WriteString("[list")
	for _, ex := range e {
		fmt.Fprintf(&buf, "\n\t%s", strings.ReplaceAll(ex.String(), "\n", "\n\t"))
	}
	buf.WriteString("\n]")
	return buf.String()
}

// *************
// * Text Node *
// *************

type textNode string

func (t textNode) Execute(ctx *template.Context, _ *execOptions) error {
	_, err := ctx.WriteString(string(t))
	return err
}

func (t textNode) String() string {
	return fmt.Sprintf("[text %q]", string(t))
}

// *****************
// * Selector Node *
// *****************

// selectorNode reads a dotted path. A leading "model" segment is optional:
// ${model.Name} and ${Name} resolve the same field, and ${model} alone is the
// whole bound model.
type selectorNode struct {
	path []string
}

func newSelector(path []string) selectorNode {
	if len(path) > 0 && path[0] == rootIdent {
		path = path[1:]
	}
	return selectorNode{path: path}
}

func (s selectorNode) Value(ctx *template.Context) (any, bool) {
	if len(s.path) == 0 {
		m := ctx.Model()
		return m, m != nil
	}
	value, ok := ctx.Lookup(s.path[0])
	if !ok {
		return nil, false
	}
	return walkPath(value, s.path[1:])
}

func (s selectorNode) Execute(ctx *template.Context, opts *execOptions) error {
	value, ok := s.Value(ctx)
	if !ok || value == nil {
		return nil
	}
	text := fmt.Sprint(value)
	if opts != nil && opts.escape {
		text = html.EscapeString(text)
	}
	_, err := ctx.WriteString(text)
	return err
}

func (s selectorNode) String() string {
	return fmt.Sprintf("[selector %s]", strings.Join(append([]string{rootIdent}, s.path...), "."))
}

// ****************
// * Partial Node *
// ****************

type partialNode struct {
	name  string
	model *selectorNode
}

func (p partialNode) Execute(ctx *template.Context, _ *execOptions) error {
	var arg any
	if p.model != nil {
		arg, _ = p.model.Value(ctx)
	}
	out, err := ctx.RenderPartial(p.name, arg)
	if err != nil {
		return err
	}
	_, err = ctx.WriteString(out)
	return err
}

func (p partialNode) String() string {
	if p.model == nil {
		return fmt.Sprintf("[partial %q]", p.name)
	}
	return fmt.Sprintf("[partial %q %s]", p.name, p.model)
}

// walkPath follows keys through Fields, string-keyed maps, structs and
// pointers. Any dead end reports the value as absent.
func walkPath(value any, keys []string) (any, bool) {
	for _, key := range keys {
		next, ok := access(value, key)
		if !ok {
			return nil, false
		}
		value = next
	}
	return value, true
}

func access(value any, key string) (any, bool) {
	if value == nil {
		return nil, false
	}
	if fields, ok := value.(model.Fields); ok {
		return fields.Get(key)
	}

	rv := reflect.ValueOf(value)
	for rv.Kind() == reflect.Pointer || rv.Kind() == reflect.Interface {
		if rv.IsNil() {
			return nil, false
		}
		rv = rv.Elem()
	}

	switch rv.Kind() {
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return nil, false
		}
		entry := rv.MapIndex(reflect.ValueOf(key).Convert(rv.Type().Key()))
		if !entry.IsValid() {
			return nil, false
		}
		return entry.Interface(), true
	case reflect.Struct:
		field, ok := rv.Type().FieldByName(key)
		if !ok || !field.IsExported() {
			return nil, false
		}
		fv, err := rv.FieldByIndexErr(field.Index)
		if err != nil || !fv.CanInterface() {
			return nil, false
		}
		return fv.Interface(), true
	default:
		return nil, false
	}
}
