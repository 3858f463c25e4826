package engine

import (
	"strings"

	"go.uber.org/zap"

	"github.com/goliatone/go-tplengine/pkg/cache"
	"github.com/goliatone/go-tplengine/pkg/template"
)

// DefaultMaxDepth bounds nested partial renders unless WithMaxDepth says
// otherwise.
const DefaultMaxDepth = 64

// Option configures the engine before construction.
type Option func(*config)

type config struct {
	suffix   string
	logger   *zap.Logger
	cache    *cache.Cache[template.Artifact]
	maxDepth int
}

// WithSuffix sets the variant suffix passed to the source reader and appended
// (dot separated) to the name handed to the compiler. The default is empty.
func WithSuffix(suffix string) Option {
	return func(cfg *config) {
		cfg.suffix = strings.TrimSpace(suffix)
	}
}

// WithLogger routes engine diagnostics to logger. The default discards them.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithCache supplies the artifact cache, letting callers bound or share it.
func WithCache(c *cache.Cache[template.Artifact]) Option {
	return func(cfg *config) {
		if c != nil {
			cfg.cache = c
		}
	}
}

// WithMaxDepth limits how deeply partials may nest. Zero or a negative value
// removes the limit.
func WithMaxDepth(depth int) Option {
	return func(cfg *config) {
		if depth < 0 {
			depth = 0
		}
		cfg.maxDepth = depth
	}
}
