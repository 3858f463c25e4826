// Package engine renders named templates. Sources come from a
// template.SourceReader, are compiled once by a template.Compiler and kept in
// a case-insensitive artifact cache. Partials re-enter the engine with the
// depth tracked, so recursion stops at the configured limit.
package engine
