package source

import (
	"errors"
	"fmt"
	"io/fs"
	"sort"
	"strings"

	"github.com/goliatone/go-tplengine/pkg/template"
)

// FS reads templates from an fs.FS such as an embed.FS.
type FS struct {
	files     fs.FS
	extension string
}

// Ensure FS implements the template.SourceReader interface.
var _ template.SourceReader = (*FS)(nil)

// NewFS returns a reader over files.
func NewFS(files fs.FS, opts ...Option) (*FS, error) {
	if files == nil {
		return nil, errors.New("source: fs is nil")
	}
	cfg := resolveOptions(opts)
	return &FS{files: files, extension: cfg.extension}, nil
}

// Read returns the content of <name>[.<suffix>]<ext>, or "" when absent.
func (f *FS) Read(name, suffix string) (string, error) {
	cleaned, err := cleanName(name, suffix)
	if err != nil {
		return "", err
	}

	fileName := FileName(cleaned, suffix, f.extension)
	info, err := fs.Stat(f.files, fileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}

	data, err := fs.ReadFile(f.files, fileName)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("source: %w", err)
	}
	return string(data), nil
}

// List returns the template names found in the file system, without
// extension, sorted.
func (f *FS) List() ([]string, error) {
	var names []string
	err := fs.WalkDir(f.files, ".", func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if f.extension != "" && !strings.HasSuffix(path, f.extension) {
			return nil
		}
		names = append(names, strings.TrimSuffix(path, f.extension))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: list: %w", err)
	}
	sort.Strings(names)
	return names, nil
}
