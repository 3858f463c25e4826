// Package config loads the CLI configuration file and turns it into engine
// collaborators.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"go.uber.org/zap"
	"gopkg.in/yaml.v3"

	tplengine "github.com/goliatone/go-tplengine"
	"github.com/goliatone/go-tplengine/pkg/cache"
	"github.com/goliatone/go-tplengine/pkg/compiler"
	"github.com/goliatone/go-tplengine/pkg/engine"
	"github.com/goliatone/go-tplengine/pkg/source"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// Source kinds.
const (
	KindDir      = "dir"
	KindEmbedded = "embedded"
	KindBundle   = "bundle"
	KindHTTP     = "http"
	KindRedis    = "redis"
)

// Config is the on-disk CLI configuration.
type Config struct {
	Source   Source `json:"source" yaml:"source"`
	Compiler string `json:"compiler" yaml:"compiler"`
	Suffix   string `json:"suffix" yaml:"suffix"`
	MaxDepth int    `json:"maxDepth" yaml:"maxDepth"`
	Cache    Cache  `json:"cache" yaml:"cache"`
}

// Source selects and configures the template reader.
type Source struct {
	Kind      string `json:"kind" yaml:"kind"`
	Dir       string `json:"dir" yaml:"dir"`
	Extension string `json:"extension" yaml:"extension"`
	Bundle    string `json:"bundle" yaml:"bundle"`
	URL       string `json:"url" yaml:"url"`
	Timeout   string `json:"timeout" yaml:"timeout"`
	Redis     Redis  `json:"redis" yaml:"redis"`
}

// Redis configures the redis reader.
type Redis struct {
	Address  string `json:"address" yaml:"address"`
	Prefix   string `json:"prefix" yaml:"prefix"`
	Password string `json:"password" yaml:"password"`
	Database int    `json:"database" yaml:"database"`
}

// Cache bounds the artifact cache. Zero means unbounded.
type Cache struct {
	MaxEntries int `json:"maxEntries" yaml:"maxEntries"`
}

// Default returns the configuration used when no file is given.
func Default() Config {
	return Config{
		Source: Source{
			Kind:      KindDir,
			Dir:       source.DefaultDirectory,
			Extension: source.DefaultExtension,
		},
		Compiler: compiler.Interp,
		MaxDepth: engine.DefaultMaxDepth,
	}
}

// Load reads path and overlays it on Default.
func Load(path string) (Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Config{}, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data, path)
}

// Parse decodes JSON or YAML over Default and validates the result.
func Parse(data []byte, origin string) (Config, error) {
	cfg := Default()
	if len(strings.TrimSpace(string(data))) == 0 {
		return Config{}, fmt.Errorf("config: file %s is empty", origin)
	}
	if err := DecodeDocument(data, &cfg); err != nil {
		return Config{}, fmt.Errorf("config: parse %s: %w", origin, err)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// DecodeDocument tries JSON first and falls back to YAML.
func DecodeDocument(data []byte, out any) error {
	if err := json.Unmarshal(data, out); err == nil {
		return nil
	}
	if err := yaml.Unmarshal(data, out); err != nil {
		return fmt.Errorf("invalid JSON or YAML: %w", err)
	}
	return nil
}

// LoadModel reads a JSON or YAML document to render against.
func LoadModel(path string) (map[string]any, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read model %s: %w", path, err)
	}
	out := map[string]any{}
	if len(strings.TrimSpace(string(data))) == 0 {
		return out, nil
	}
	if err := DecodeDocument(data, &out); err != nil {
		return nil, fmt.Errorf("config: parse model %s: %w", path, err)
	}
	return out, nil
}

// Validate checks the fields that would otherwise fail late.
func (c Config) Validate() error {
	switch strings.ToLower(strings.TrimSpace(c.Source.Kind)) {
	case KindDir:
		if strings.TrimSpace(c.Source.Dir) == "" {
			return fmt.Errorf("config: source.dir is required for kind %q", KindDir)
		}
	case KindBundle:
		if strings.TrimSpace(c.Source.Bundle) == "" {
			return fmt.Errorf("config: source.bundle is required for kind %q", KindBundle)
		}
	case KindHTTP:
		if strings.TrimSpace(c.Source.URL) == "" {
			return fmt.Errorf("config: source.url is required for kind %q", KindHTTP)
		}
	case KindEmbedded, KindRedis:
	default:
		return fmt.Errorf("config: unknown source kind %q", c.Source.Kind)
	}
	if c.Source.Timeout != "" {
		if _, err := time.ParseDuration(c.Source.Timeout); err != nil {
			return fmt.Errorf("config: source.timeout: %w", err)
		}
	}
	if c.MaxDepth < 0 {
		return fmt.Errorf("config: maxDepth must not be negative")
	}
	if c.Cache.MaxEntries < 0 {
		return fmt.Errorf("config: cache.maxEntries must not be negative")
	}
	return nil
}

// Reader builds the configured SourceReader.
func (c Config) Reader() (template.SourceReader, error) {
	ext := source.WithExtension(c.Source.Extension)
	switch strings.ToLower(strings.TrimSpace(c.Source.Kind)) {
	case KindDir:
		return source.NewFileSystem(c.Source.Dir, ext)
	case KindEmbedded:
		return source.NewFS(tplengine.EmbeddedTemplates())
	case KindBundle:
		return source.LoadBundleFile(c.Source.Bundle)
	case KindHTTP:
		var opts []source.HTTPOption
		opts = append(opts, source.WithHTTPExtension(c.Source.Extension))
		if c.Source.Timeout != "" {
			timeout, err := time.ParseDuration(c.Source.Timeout)
			if err != nil {
				return nil, fmt.Errorf("config: source.timeout: %w", err)
			}
			opts = append(opts, source.WithTimeout(timeout))
		}
		return source.NewHTTP(c.Source.URL, opts...)
	case KindRedis:
		return source.NewRedis(source.RedisConfig{
			Address:  c.Source.Redis.Address,
			Prefix:   c.Source.Redis.Prefix,
			Password: c.Source.Redis.Password,
			Database: c.Source.Redis.Database,
		}), nil
	default:
		return nil, fmt.Errorf("config: unknown source kind %q", c.Source.Kind)
	}
}

// EngineOptions translates the configuration into engine options.
func (c Config) EngineOptions(logger *zap.Logger) []engine.Option {
	opts := []engine.Option{
		engine.WithSuffix(c.Suffix),
		engine.WithMaxDepth(c.MaxDepth),
		engine.WithLogger(logger),
	}
	if c.Cache.MaxEntries > 0 {
		opts = append(opts, engine.WithCache(cache.New[template.Artifact](
			cache.WithLogger(logger),
			cache.WithMaxEntries(c.Cache.MaxEntries),
		)))
	}
	return opts
}
