// Package tplengine compiles named templates once, caches the artifacts and
// renders them against arbitrary models, with partial renders that re-enter
// the same engine.
package tplengine

import (
	"embed"
	"fmt"
	"io/fs"

	"github.com/goliatone/go-tplengine/pkg/compiler"
	"github.com/goliatone/go-tplengine/pkg/engine"
	"github.com/goliatone/go-tplengine/pkg/model"
	"github.com/goliatone/go-tplengine/pkg/source"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// Engine aliases engine.Engine so callers only import the root package.
type Engine = engine.Engine

// Option configures an Engine.
type Option = engine.Option

// Fields is the uniform model view handed to templates.
type Fields = model.Fields

// Map is the pass-through Fields implementation.
type Map = model.Map

// Context is the per-render state passed to artifacts.
type Context = template.Context

// Artifact is a compiled, reusable template.
type Artifact = template.Artifact

// Compiler turns template source into an Artifact.
type Compiler = template.Compiler

// SourceReader fetches raw template source.
type SourceReader = template.SourceReader

// CompilationError reports a template that failed to compile.
type CompilationError = template.CompilationError

// SourceError reports a template whose source could not be read.
type SourceError = engine.SourceError

// Re-exported engine options.
var (
	WithSuffix   = engine.WithSuffix
	WithLogger   = engine.WithLogger
	WithCache    = engine.WithCache
	WithMaxDepth = engine.WithMaxDepth
)

//go:embed templates/*.tpl
var embeddedTemplates embed.FS

// New constructs an Engine from explicit collaborators.
func New(reader SourceReader, c Compiler, options ...Option) (*Engine, error) {
	return engine.New(reader, c, options...)
}

// NewFromDir reads templates from dir (see source.NewFileSystem) and compiles
// them with the named built-in compiler: "interp", "pongo" or "handlebars".
func NewFromDir(dir, compilerName string, options ...Option) (*Engine, error) {
	reader, err := source.NewFileSystem(dir)
	if err != nil {
		return nil, err
	}
	return newWithCompiler(reader, compilerName, options...)
}

// NewFromFS is NewFromDir over an fs.FS.
func NewFromFS(files fs.FS, compilerName string, options ...Option) (*Engine, error) {
	reader, err := source.NewFS(files)
	if err != nil {
		return nil, err
	}
	return newWithCompiler(reader, compilerName, options...)
}

// NewFromMap serves templates from memory, compiled with the named built-in
// compiler.
func NewFromMap(sources map[string]string, compilerName string, options ...Option) (*Engine, error) {
	return newWithCompiler(source.NewMap(sources), compilerName, options...)
}

// EmbeddedTemplates exposes the bundled interp starter templates (greet,
// page, header, footer).
func EmbeddedTemplates() fs.FS {
	sub, err := fs.Sub(embeddedTemplates, "templates")
	if err != nil {
		return embeddedTemplates
	}
	return sub
}

func newWithCompiler(reader SourceReader, compilerName string, options ...Option) (*Engine, error) {
	if compilerName == "" {
		compilerName = compiler.Interp
	}
	registry, err := compiler.NewDefaultRegistry()
	if err != nil {
		return nil, fmt.Errorf("tplengine: build compilers: %w", err)
	}
	c, err := registry.Get(compilerName)
	if err != nil {
		return nil, err
	}
	return engine.New(reader, c, options...)
}
