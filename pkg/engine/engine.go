package engine

import (
	"fmt"
	"io"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/goliatone/go-tplengine/pkg/cache"
	"github.com/goliatone/go-tplengine/pkg/model"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// Engine resolves template names to compiled artifacts, caching each artifact
// for the life of the engine, and executes them against wrapped models.
// Partials rendered from inside an artifact re-enter the same engine and
// therefore share its cache. An Engine is safe for concurrent use.
type Engine struct {
	reader   template.SourceReader
	compiler template.Compiler
	suffix   string
	maxDepth int

	cache  *cache.Cache[template.Artifact]
	logger *zap.Logger
}

// Ensure Engine implements the Renderer interface.
var _ template.Renderer = (*Engine)(nil)

// New constructs an Engine reading sources from reader and compiling them
// with compiler. Compilers must not call back into the engine while
// compiling; rendering happens only after compilation returns.
func New(reader template.SourceReader, compiler template.Compiler, options ...Option) (*Engine, error) {
	if reader == nil {
		return nil, ErrSourceReaderRequired
	}
	if compiler == nil {
		return nil, ErrCompilerRequired
	}

	cfg := &config{
		logger:   zap.NewNop(),
		maxDepth: DefaultMaxDepth,
	}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	if cfg.cache == nil {
		cfg.cache = cache.New[template.Artifact](cache.WithLogger(cfg.logger))
	}

	return &Engine{
		reader:   reader,
		compiler: compiler,
		suffix:   cfg.suffix,
		maxDepth: cfg.maxDepth,
		cache:    cfg.cache,
		logger:   cfg.logger,
	}, nil
}

// Render executes the template called name against model and returns the
// produced text, also copying it to every out writer. A missing template is
// whatever the compiler makes of empty source, normally empty output.
func (e *Engine) Render(name string, model any, out ...io.Writer) (string, error) {
	rendered, err := e.render(name, model, 0)
	if err != nil {
		return "", err
	}

	for _, w := range out {
		if _, err := io.WriteString(w, rendered); err != nil {
			return "", fmt.Errorf("engine: write output for %q: %w", name, err)
		}
	}
	return rendered, nil
}

// Cache exposes the artifact cache so embedding applications can inspect,
// bound or clear it.
func (e *Engine) Cache() *cache.Cache[template.Artifact] {
	return e.cache
}

// Invalidate drops the compiled artifact for name so the next render reads
// and compiles the source again.
func (e *Engine) Invalidate(name string) bool {
	return e.cache.Delete(name)
}

// Reset drops every compiled artifact.
func (e *Engine) Reset() {
	e.cache.Clear()
}

// Suffix returns the configured variant suffix.
func (e *Engine) Suffix() string {
	return e.suffix
}

func (e *Engine) render(name string, value any, depth int) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrTemplateNameRequired
	}
	if e.maxDepth > 0 && depth > e.maxDepth {
		return "", fmt.Errorf("%w: %q at depth %d", ErrMaxDepthExceeded, name, depth)
	}

	wrapped := model.Wrap(value)

	artifact, err := e.cache.GetOrCompile(name, func() (template.Artifact, error) {
		return e.compile(name)
	})
	if err != nil {
		return "", err
	}

	ctx := template.NewContext(wrapped, func(partial string, partialModel any) (string, error) {
		return e.render(partial, partialModel, depth+1)
	})
	if err := artifact.Execute(ctx); err != nil {
		return "", err
	}
	return ctx.Body(), nil
}

// compiledName is the name handed to the compiler: the template name plus
// the variant suffix, dot separated.
func (e *Engine) compiledName(name string) string {
	if e.suffix == "" {
		return name
	}
	return name + "." + e.suffix
}

func (e *Engine) compile(name string) (template.Artifact, error) {
	start := time.Now()

	source, err := e.reader.Read(name, e.suffix)
	if err != nil {
		return nil, &SourceError{Name: name, Suffix: e.suffix, Err: err}
	}

	compiledName := e.compiledName(name)
	artifact, err := e.compiler.Compile(compiledName, source)
	if err != nil {
		return nil, err
	}
	if artifact == nil {
		return nil, template.NewCompilationError(compiledName, template.Diagnostic{
			Location: compiledName,
			Message:  "compiler returned no artifact",
		})
	}

	e.logger.Debug("template compiled",
		zap.String("template", name),
		zap.String("suffix", e.suffix),
		zap.Int("source_bytes", len(source)),
		zap.Duration("elapsed", time.Since(start)))
	return artifact, nil
}
