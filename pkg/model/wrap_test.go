package model_test

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tplengine/pkg/model"
)

type Audit struct {
	CreatedBy string
}

type article struct {
	Audit
	Title   string
	Tags    []string
	Draft   *bool
	secret  string
}

type dynamicModel struct {
	values map[string]any
}

func (d *dynamicModel) Get(name string) (any, bool) {
	v, ok := d.values[name]
	return v, ok
}

func (d *dynamicModel) Set(name string, value any) { d.values[name] = value }

func (d *dynamicModel) Names() []string { return nil }

func TestWrap_Nil(t *testing.T) {
	if got := model.Wrap(nil); got != nil {
		t.Fatalf("expected nil, got %#v", got)
	}
	var ptr *article
	if got := model.Wrap(ptr); got != nil {
		t.Fatalf("expected nil for typed nil pointer, got %#v", got)
	}
}

func TestWrap_PassThroughPreservesIdentity(t *testing.T) {
	dyn := &dynamicModel{values: map[string]any{"Name": "Ada"}}
	got := model.Wrap(dyn)
	if got != model.Fields(dyn) {
		t.Fatalf("expected the dynamic model to be returned unchanged")
	}

	shaped := model.Map{"Name": "Ada"}
	wrapped := model.Wrap(shaped)
	wrapped.Set("Age", 36)
	if _, ok := shaped["Age"]; !ok {
		t.Fatalf("expected model.Map to pass through without copying")
	}
}

func TestWrap_StructSnapshot(t *testing.T) {
	src := &article{
		Audit:  Audit{CreatedBy: "grace"},
		Title:  "Hello",
		Tags:   []string{"go"},
		secret: "hidden",
	}

	wrapped := model.Wrap(src)
	src.Title = "Changed"
	src.CreatedBy = "someone else"

	want := map[string]any{
		"CreatedBy": "grace",
		"Title":     "Hello",
		"Tags":      []string{"go"},
		"Draft":     (*bool)(nil),
	}
	if diff := cmp.Diff(want, model.ToMap(wrapped)); diff != "" {
		t.Fatalf("snapshot mismatch (-want +got):\n%s", diff)
	}
	if _, ok := wrapped.Get("secret"); ok {
		t.Fatalf("unexported fields must not be exposed")
	}
}

func TestWrap_MapSnapshot(t *testing.T) {
	src := map[string]any{"Name": "Ada"}
	wrapped := model.Wrap(src)
	src["Name"] = "Grace"

	got, ok := wrapped.Get("Name")
	if !ok || got != "Ada" {
		t.Fatalf("expected snapshot value Ada, got %v (ok=%v)", got, ok)
	}
}

func TestWrap_UnsupportedKindsYieldEmptyMap(t *testing.T) {
	for _, v := range []any{42, "text", []int{1}, map[int]string{1: "a"}} {
		wrapped := model.Wrap(v)
		if wrapped == nil {
			t.Fatalf("expected empty fields for %T, got nil", v)
		}
		if names := wrapped.Names(); len(names) != 0 {
			t.Fatalf("expected no fields for %T, got %v", v, names)
		}
	}
}

func TestMap_AbsentVersusNil(t *testing.T) {
	wrapped := model.Wrap(struct{ Name string }{Name: "Ada"})
	wrapped.Set("Nickname", nil)

	if _, ok := wrapped.Get("Missing"); ok {
		t.Fatalf("expected Missing to be absent")
	}
	value, ok := wrapped.Get("Nickname")
	if !ok {
		t.Fatalf("expected Nickname to be present")
	}
	if value != nil {
		t.Fatalf("expected nil value, got %v", value)
	}

	if diff := cmp.Diff([]string{"Name", "Nickname"}, wrapped.Names()); diff != "" {
		t.Fatalf("names mismatch (-want +got):\n%s", diff)
	}
}

func TestToMap_CopiesFields(t *testing.T) {
	src := model.Map{"Name": "Ada"}
	out := model.ToMap(src)
	out["Name"] = "Grace"
	if src["Name"] != "Ada" {
		t.Fatalf("ToMap must not alias the source map")
	}
	if got := model.ToMap(nil); len(got) != 0 {
		t.Fatalf("expected empty map for nil fields, got %v", got)
	}
}
