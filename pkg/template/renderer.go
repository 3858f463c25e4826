package template

import (
	"io"
)

// Renderer is the seam callers depend on. The engine satisfies it and so can
// any test double; out writers receive a copy of the rendered text.
type Renderer interface {
	Render(name string, model any, out ...io.Writer) (string, error)
}

// SourceReader returns raw template text for a name and an optional variant
// suffix. Absent content is reported as an empty string and a nil error; an
// error is reserved for invalid names or storage faults.
type SourceReader interface {
	Read(name, suffix string) (string, error)
}

// SourceReaderFunc adapts a function to SourceReader.
type SourceReaderFunc func(name, suffix string) (string, error)

// Read calls fn.
func (fn SourceReaderFunc) Read(name, suffix string) (string, error) {
	return fn(name, suffix)
}

// Compiler turns template text into an executable Artifact. Failures should
// be reported as *CompilationError so callers can surface diagnostics.
type Compiler interface {
	Compile(name, source string) (Artifact, error)
}

// CompilerFunc adapts a function to Compiler.
type CompilerFunc func(name, source string) (Artifact, error)

// Compile calls fn.
func (fn CompilerFunc) Compile(name, source string) (Artifact, error) {
	return fn(name, source)
}

// Artifact is compiled template logic. Artifacts are immutable and shared by
// every concurrent render of the same name, so Execute must keep all state in
// the supplied Context.
type Artifact interface {
	Execute(ctx *Context) error
}

// ArtifactFunc adapts a function to Artifact.
type ArtifactFunc func(ctx *Context) error

// Execute calls fn.
func (fn ArtifactFunc) Execute(ctx *Context) error {
	return fn(ctx)
}
