package source

import "github.com/goliatone/go-tplengine/pkg/template"

// Chain consults readers in order and returns the first non-empty content.
// An error from any reader stops the lookup.
type Chain []template.SourceReader

// Ensure Chain implements the template.SourceReader interface.
var _ template.SourceReader = Chain(nil)

// NewChain drops nil readers.
func NewChain(readers ...template.SourceReader) Chain {
	out := make(Chain, 0, len(readers))
	for _, r := range readers {
		if r != nil {
			out = append(out, r)
		}
	}
	return out
}

// Read implements template.SourceReader.
func (c Chain) Read(name, suffix string) (string, error) {
	for _, r := range c {
		content, err := r.Read(name, suffix)
		if err != nil {
			return "", err
		}
		if content != "" {
			return content, nil
		}
	}
	return "", nil
}
