package source

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/goliatone/go-tplengine/pkg/template"
)

// FileSystem reads templates from a directory on disk.
type FileSystem struct {
	dir       string
	extension string
}

// Ensure FileSystem implements the template.SourceReader interface.
var _ template.SourceReader = (*FileSystem)(nil)

// NewFileSystem validates dir and returns a reader rooted at it. Relative
// directories are resolved against the working directory. A blank dir or one
// that does not exist fails immediately.
func NewFileSystem(dir string, opts ...Option) (*FileSystem, error) {
	trimmed := strings.TrimSpace(dir)
	if trimmed == "" {
		return nil, errors.New("source: template directory is required")
	}

	abs, err := filepath.Abs(trimmed)
	if err != nil {
		return nil, fmt.Errorf("source: resolve %q: %w", trimmed, err)
	}

	info, err := os.Stat(abs)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("source: %q does not exist", abs)
		}
		return nil, fmt.Errorf("source: stat %q: %w", abs, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("source: %q is not a directory", abs)
	}

	cfg := resolveOptions(opts)
	return &FileSystem{
		dir:       abs,
		extension: cfg.extension,
	}, nil
}

// Dir returns the absolute template directory.
func (f *FileSystem) Dir() string {
	return f.dir
}

// Read returns the content of <dir>/<name>[.<suffix>]<ext>, or "" when no
// regular file exists at that path.
func (f *FileSystem) Read(name, suffix string) (string, error) {
	path, err := f.path(name, suffix)
	if err != nil {
		return "", err
	}

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("source: %w", err)
	}
	if !info.Mode().IsRegular() {
		return "", nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return "", nil
		}
		return "", fmt.Errorf("source: %w", err)
	}
	return string(data), nil
}

// List returns the template names found under the directory, without
// extension, slash separated and sorted. Suffixed variants are listed as
// "name.suffix".
func (f *FileSystem) List() ([]string, error) {
	var names []string
	err := filepath.WalkDir(f.dir, func(path string, entry fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if entry.IsDir() {
			return nil
		}
		if f.extension != "" && !strings.HasSuffix(entry.Name(), f.extension) {
			return nil
		}
		rel, err := filepath.Rel(f.dir, path)
		if err != nil {
			return err
		}
		names = append(names, strings.TrimSuffix(filepath.ToSlash(rel), f.extension))
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("source: list %s: %w", f.dir, err)
	}
	sort.Strings(names)
	return names, nil
}

func (f *FileSystem) path(name, suffix string) (string, error) {
	cleaned, err := cleanName(name, suffix)
	if err != nil {
		return "", err
	}
	return filepath.Join(f.dir, filepath.FromSlash(FileName(cleaned, suffix, f.extension))), nil
}
