// Package template defines the engine-agnostic contracts shared by the
// template engine, its source readers and its compilers: the executable
// Artifact, the per-render Context an artifact writes into, and the
// CompilationError compilers report. Compiler and reader implementations live
// under pkg/compiler and pkg/source and only depend on this package.
package template
