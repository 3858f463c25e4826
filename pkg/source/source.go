package source

import (
	"errors"
	"path"
	"strings"
)

const (
	// DefaultDirectory is the conventional template directory name.
	DefaultDirectory = "templates"
	// DefaultExtension is appended to template names by file based readers.
	DefaultExtension = ".tpl"
)

var (
	// ErrTemplateNameRequired is returned when Read receives a blank name.
	ErrTemplateNameRequired = errors.New("source: template name is required")
	// ErrInvalidTemplateName is returned for names that would escape the
	// reader's root.
	ErrInvalidTemplateName = errors.New("source: invalid template name")
)

// Option configures file and URL based readers.
type Option func(*options)

type options struct {
	extension string
}

// WithExtension overrides DefaultExtension. An empty extension means names
// are used verbatim.
func WithExtension(ext string) Option {
	return func(opts *options) {
		trimmed := strings.TrimSpace(ext)
		if trimmed != "" && !strings.HasPrefix(trimmed, ".") {
			trimmed = "." + trimmed
		}
		opts.extension = trimmed
	}
}

func resolveOptions(opts []Option) options {
	out := options{extension: DefaultExtension}
	for _, opt := range opts {
		if opt != nil {
			opt(&out)
		}
	}
	return out
}

// FileName builds "<name>[.<suffix>]<ext>" the way every reader in this
// package names templates.
func FileName(name, suffix, ext string) string {
	fileName := name
	if s := strings.TrimSpace(suffix); s != "" {
		fileName += "." + s
	}
	return fileName + ext
}

// cleanName validates name and suffix and returns name as a slash separated
// relative path.
func cleanName(name, suffix string) (string, error) {
	if strings.ContainsAny(suffix, "/\\") {
		return "", ErrInvalidTemplateName
	}
	trimmed := strings.TrimSpace(name)
	if trimmed == "" {
		return "", ErrTemplateNameRequired
	}
	slashed := strings.ReplaceAll(trimmed, "\\", "/")
	cleaned := path.Clean(slashed)
	if path.IsAbs(slashed) || cleaned == ".." || strings.HasPrefix(cleaned, "../") {
		return "", ErrInvalidTemplateName
	}
	return cleaned, nil
}
