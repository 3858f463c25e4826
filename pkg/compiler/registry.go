// Package compiler keeps the named template compilers an application can
// choose between.
package compiler

import (
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/goliatone/go-tplengine/pkg/compiler/handlebars"
	"github.com/goliatone/go-tplengine/pkg/compiler/interp"
	"github.com/goliatone/go-tplengine/pkg/compiler/pongo"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// Names of the built-in compilers.
const (
	Interp     = "interp"
	Pongo      = "pongo"
	Handlebars = "handlebars"
)

// Registry stores compilers by name, providing discovery and duplication
// safeguards. Names are case-insensitive.
type Registry struct {
	mu        sync.RWMutex
	compilers map[string]template.Compiler
}

// NewRegistry creates an empty registry instance.
func NewRegistry() *Registry {
	return &Registry{
		compilers: make(map[string]template.Compiler),
	}
}

// NewDefaultRegistry returns a registry holding the interp, pongo and
// handlebars compilers with their default options.
func NewDefaultRegistry() (*Registry, error) {
	pongoCompiler, err := pongo.New()
	if err != nil {
		return nil, err
	}
	handlebarsCompiler, err := handlebars.New()
	if err != nil {
		return nil, err
	}

	r := NewRegistry()
	r.MustRegister(Interp, interp.New())
	r.MustRegister(Pongo, pongoCompiler)
	r.MustRegister(Handlebars, handlebarsCompiler)
	return r, nil
}

// Register adds a compiler under name. Duplicate names return an error.
func (r *Registry) Register(name string, c template.Compiler) error {
	if c == nil {
		return fmt.Errorf("compiler: compiler is required")
	}
	key := normalize(name)
	if key == "" {
		return fmt.Errorf("compiler: compiler name is required")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.compilers[key]; exists {
		return fmt.Errorf("compiler: compiler %q already registered", key)
	}

	r.compilers[key] = c
	return nil
}

// MustRegister panics on registration failure. Useful for init-time wiring.
func (r *Registry) MustRegister(name string, c template.Compiler) {
	if err := r.Register(name, c); err != nil {
		panic(err)
	}
}

// Get retrieves a compiler by name.
func (r *Registry) Get(name string) (template.Compiler, error) {
	key := normalize(name)

	r.mu.RLock()
	defer r.mu.RUnlock()

	c, ok := r.compilers[key]
	if !ok {
		return nil, fmt.Errorf("compiler: compiler %q not found (available: %s)", key, strings.Join(r.listLocked(), ", "))
	}
	return c, nil
}

// List returns a sorted list of compiler names.
func (r *Registry) List() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.listLocked()
}

// Has reports whether a compiler is registered.
func (r *Registry) Has(name string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	_, ok := r.compilers[normalize(name)]
	return ok
}

func (r *Registry) listLocked() []string {
	names := make([]string, 0, len(r.compilers))
	for name := range r.compilers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

func normalize(name string) string {
	return strings.ToLower(strings.TrimSpace(name))
}
