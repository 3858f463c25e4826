package engine

import (
	"errors"
	"fmt"
)

var (
	// ErrSourceReaderRequired is returned by New when no reader is supplied.
	ErrSourceReaderRequired = errors.New("engine: source reader is required")
	// ErrCompilerRequired is returned by New when no compiler is supplied.
	ErrCompilerRequired = errors.New("engine: compiler is required")
	// ErrTemplateNameRequired is returned by Render for a blank name.
	ErrTemplateNameRequired = errors.New("engine: template name is required")
	// ErrMaxDepthExceeded is returned when partials nest past the limit.
	ErrMaxDepthExceeded = errors.New("engine: maximum partial depth exceeded")
)

// SourceError reports that the source reader failed for a template.
type SourceError struct {
	Name   string
	Suffix string
	Err    error
}

func (e *SourceError) Error() string {
	if e.Suffix == "" {
		return fmt.Sprintf("engine: read template %q: %v", e.Name, e.Err)
	}
	return fmt.Sprintf("engine: read template %q (suffix %q): %v", e.Name, e.Suffix, e.Err)
}

func (e *SourceError) Unwrap() error {
	return e.Err
}
