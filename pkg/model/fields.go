package model

import (
	"sort"
)

// Fields is the dynamic field surface consumed by template code. Types that
// want first-class support implement it directly; everything else goes
// through Wrap.
type Fields interface {
	// Get returns the stored value and true, or nil and false when name was
	// never set.
	Get(name string) (any, bool)
	// Set inserts or overwrites name. It never fails.
	Set(name string, value any)
	// Names lists every currently known field name.
	Names() []string
}

// Map is the default Fields implementation. A Map passed to Wrap is returned
// unchanged.
type Map map[string]any

// Ensure Map implements Fields.
var _ Fields = Map(nil)

// Get returns the value stored under name.
func (m Map) Get(name string) (any, bool) {
	value, ok := m[name]
	return value, ok
}

// Set stores value under name. Setting on a nil Map is a no-op.
func (m Map) Set(name string, value any) {
	if m == nil {
		return
	}
	m[name] = value
}

// Names returns the field names in sorted order.
func (m Map) Names() []string {
	names := make([]string, 0, len(m))
	for name := range m {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// ToMap flattens any Fields into a plain map. Compilers whose runtime wants a
// map (pongo2, raymond) use it to build their execution context.
func ToMap(fields Fields) map[string]any {
	if fields == nil {
		return map[string]any{}
	}
	if m, ok := fields.(Map); ok {
		out := make(map[string]any, len(m))
		for key, value := range m {
			out[key] = value
		}
		return out
	}

	names := fields.Names()
	out := make(map[string]any, len(names))
	for _, name := range names {
		if value, ok := fields.Get(name); ok {
			out[name] = value
		}
	}
	return out
}
