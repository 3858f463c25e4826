package template

import (
	"errors"
	"fmt"
	"strings"
)

// ErrNoPartialRenderer is returned by Context.RenderPartial when the context
// was built without a partial callback.
var ErrNoPartialRenderer = errors.New("template: partial renderer is not configured")

// Diagnostic locates a single compiler complaint.
type Diagnostic struct {
	Location string
	Message  string
}

// String renders the diagnostic as "location:\nmessage", or just the message
// when no location is known.
func (d Diagnostic) String() string {
	location := strings.TrimSpace(d.Location)
	if location == "" {
		return d.Message
	}
	return location + ":\n" + d.Message
}

// CompilationError reports that a template could not be turned into an
// artifact, either because the source failed to parse or because the
// compiled form could not be instantiated.
type CompilationError struct {
	Name        string
	Diagnostics []Diagnostic
	// Err is the underlying compiler error, when there is one.
	Err error
}

// NewCompilationError builds a CompilationError for name with the given
// diagnostics.
func NewCompilationError(name string, diagnostics ...Diagnostic) *CompilationError {
	return &CompilationError{
		Name:        name,
		Diagnostics: append([]Diagnostic(nil), diagnostics...),
	}
}

// WrapCompilationError builds a CompilationError carrying err as both the
// single diagnostic and the unwrap target.
func WrapCompilationError(name, location string, err error) *CompilationError {
	if err == nil {
		return nil
	}
	return &CompilationError{
		Name:        name,
		Diagnostics: []Diagnostic{{Location: location, Message: err.Error()}},
		Err:         err,
	}
}

func (e *CompilationError) Error() string {
	if e == nil {
		return "<nil>"
	}
	parts := make([]string, 0, len(e.Diagnostics))
	for _, diag := range e.Diagnostics {
		parts = append(parts, diag.String())
	}
	detail := strings.Join(parts, "\n\n")
	if detail == "" && e.Err != nil {
		detail = e.Err.Error()
	}
	if detail == "" {
		return fmt.Sprintf("template: compile %q failed", e.Name)
	}
	return fmt.Sprintf("template: compile %q:\n%s", e.Name, detail)
}

func (e *CompilationError) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.Err
}

// IsCompilationError reports whether err carries a *CompilationError.
func IsCompilationError(err error) bool {
	var target *CompilationError
	return errors.As(err, &target)
}
