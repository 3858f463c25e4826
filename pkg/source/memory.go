package source

import (
	"encoding/json"
	"fmt"
	"io/fs"
	"os"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/goliatone/go-tplengine/pkg/template"
)

// Map is an immutable in-memory reader. Keys are matched case-insensitively;
// for a suffixed read "name.suffix" is tried before "name".
type Map struct {
	sources map[string]string
}

// Ensure Map implements the template.SourceReader interface.
var _ template.SourceReader = (*Map)(nil)

// NewMap copies sources into a reader.
func NewMap(sources map[string]string) *Map {
	m := &Map{sources: make(map[string]string, len(sources))}
	for name, content := range sources {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			continue
		}
		m.sources[key] = content
	}
	return m
}

// Read implements template.SourceReader.
func (m *Map) Read(name, suffix string) (string, error) {
	key := strings.ToLower(strings.TrimSpace(name))
	if key == "" {
		return "", ErrTemplateNameRequired
	}
	if s := strings.ToLower(strings.TrimSpace(suffix)); s != "" {
		if content, ok := m.sources[key+"."+s]; ok {
			return content, nil
		}
	}
	return m.sources[key], nil
}

// Len returns the number of stored templates.
func (m *Map) Len() int {
	return len(m.sources)
}

type bundleFile struct {
	Templates map[string]string `json:"templates" yaml:"templates"`
}

// ParseBundle decodes a JSON or YAML bundle of the form
//
//	templates:
//	  greet: "Hello, ${model.Name}!"
//	  greet.mobile: "Hi ${Name}"
//
// into a Map. origin is only used in error messages.
func ParseBundle(data []byte, origin string) (*Map, error) {
	if len(strings.TrimSpace(string(data))) == 0 {
		return nil, fmt.Errorf("source: bundle %s is empty", origin)
	}

	var doc bundleFile
	if err := json.Unmarshal(data, &doc); err != nil {
		doc = bundleFile{}
		if yamlErr := yaml.Unmarshal(data, &doc); yamlErr != nil {
			return nil, fmt.Errorf("source: parse bundle %s: invalid JSON or YAML: %w", origin, yamlErr)
		}
	}
	if len(doc.Templates) == 0 {
		return nil, fmt.Errorf("source: bundle %s defines no templates", origin)
	}

	seen := make(map[string]string, len(doc.Templates))
	for name := range doc.Templates {
		key := strings.ToLower(strings.TrimSpace(name))
		if key == "" {
			return nil, fmt.Errorf("source: bundle %s defines an empty template name", origin)
		}
		if prev, exists := seen[key]; exists {
			return nil, fmt.Errorf("source: bundle %s defines %q and %q which differ only by case", origin, prev, name)
		}
		seen[key] = name
	}
	return NewMap(doc.Templates), nil
}

// LoadBundleFile reads and parses a bundle from disk.
func LoadBundleFile(path string) (*Map, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("source: read bundle: %w", err)
	}
	return ParseBundle(data, path)
}

// LoadBundleFS reads and parses a bundle from files.
func LoadBundleFS(files fs.FS, name string) (*Map, error) {
	data, err := fs.ReadFile(files, name)
	if err != nil {
		return nil, fmt.Errorf("source: read bundle: %w", err)
	}
	return ParseBundle(data, name)
}
