package testsupport

import (
	"bytes"
	"io"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/google/go-cmp/cmp"

	"github.com/goliatone/go-tplengine/pkg/template"
)

// CompareGolden returns a diff string if the values differ.
func CompareGolden(want, got any) string {
	return cmp.Diff(want, got)
}

// MustReadGolden reads a golden file and returns its raw bytes.
func MustReadGolden(t *testing.T, path string) []byte {
	t.Helper()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read golden: %v", err)
	}
	return data
}

// MustReadGoldenString reads a golden file and returns its string content.
func MustReadGoldenString(t *testing.T, path string) string {
	t.Helper()
	return string(MustReadGolden(t, path))
}

// WriteMaybeGolden updates a golden file when UPDATE_GOLDENS is set. Returns
// true if the golden was written (test should exit early).
func WriteMaybeGolden(t *testing.T, path string, data []byte) bool {
	t.Helper()
	if os.Getenv("UPDATE_GOLDENS") == "" {
		return false
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		t.Fatalf("mkdir golden dir: %v", err)
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		t.Fatalf("write golden: %v", err)
	}
	return true
}

// CaptureTemplateOutput executes a render function that writes to an io.Writer,
// returning both the string result and the writer contents. Tests can assert
// the renderer returns and writes the same payload without duplicating buffer
// setup.
func CaptureTemplateOutput(t *testing.T, render func(io.Writer) (string, error)) (string, string) {
	t.Helper()

	var buf bytes.Buffer
	out, err := render(&buf)
	if err != nil {
		t.Fatalf("render template: %v", err)
	}

	return out, buf.String()
}

// WriteTemplates writes name -> content pairs under dir, creating parent
// directories as needed, and returns dir.
func WriteTemplates(t *testing.T, dir string, files map[string]string) string {
	t.Helper()
	for name, content := range files {
		path := filepath.Join(dir, filepath.FromSlash(name))
		if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
			t.Fatalf("mkdir template dir: %v", err)
		}
		if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
			t.Fatalf("write template %s: %v", name, err)
		}
	}
	return dir
}

// MapReader is a mutable, concurrency-safe in-memory SourceReader. Keys are
// matched case-insensitively; a key of "name.suffix" wins over "name" when a
// suffix is requested. Tests swap content with Set to simulate a corrected
// source.
type MapReader struct {
	mu      sync.RWMutex
	sources map[string]string
	reads   atomic.Int64
}

// Ensure MapReader implements the template.SourceReader interface.
var _ template.SourceReader = (*MapReader)(nil)

// NewMapReader seeds a reader with sources.
func NewMapReader(sources map[string]string) *MapReader {
	r := &MapReader{sources: make(map[string]string, len(sources))}
	for name, content := range sources {
		r.sources[strings.ToLower(name)] = content
	}
	return r
}

// Set replaces the source for name.
func (r *MapReader) Set(name, content string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sources[strings.ToLower(name)] = content
}

// Read implements template.SourceReader.
func (r *MapReader) Read(name, suffix string) (string, error) {
	r.reads.Add(1)

	r.mu.RLock()
	defer r.mu.RUnlock()

	key := strings.ToLower(name)
	if suffix != "" {
		if content, ok := r.sources[key+"."+strings.ToLower(suffix)]; ok {
			return content, nil
		}
	}
	return r.sources[key], nil
}

// Reads reports how many times Read was called.
func (r *MapReader) Reads() int64 {
	return r.reads.Load()
}

// CountingCompiler wraps a compiler and counts Compile calls per name.
type CountingCompiler struct {
	Compiler template.Compiler

	mu     sync.Mutex
	counts map[string]int
	total  atomic.Int64
}

// Ensure CountingCompiler implements the template.Compiler interface.
var _ template.Compiler = (*CountingCompiler)(nil)

// NewCountingCompiler wraps compiler.
func NewCountingCompiler(compiler template.Compiler) *CountingCompiler {
	return &CountingCompiler{
		Compiler: compiler,
		counts:   make(map[string]int),
	}
}

// Compile implements template.Compiler.
func (c *CountingCompiler) Compile(name, source string) (template.Artifact, error) {
	c.total.Add(1)
	c.mu.Lock()
	c.counts[name]++
	c.mu.Unlock()
	return c.Compiler.Compile(name, source)
}

// Count reports how often name was compiled.
func (c *CountingCompiler) Count(name string) int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.counts[name]
}

// Total reports how many compiles ran overall.
func (c *CountingCompiler) Total() int64 {
	return c.total.Load()
}
