// Package cache stores compiled template artifacts by name and guarantees
// that concurrent first requests for the same name compile it only once.
package cache

import (
	"sort"
	"strings"
	"sync"
	"sync/atomic"

	"go.uber.org/zap"
)

// CompileFunc produces the value for a missing entry.
type CompileFunc[T any] func() (T, error)

// Option configures a Cache.
type Option func(*config)

type config struct {
	logger     *zap.Logger
	maxEntries int
}

// WithLogger routes cache diagnostics to logger.
func WithLogger(logger *zap.Logger) Option {
	return func(cfg *config) {
		if logger != nil {
			cfg.logger = logger
		}
	}
}

// WithMaxEntries caps the number of stored entries. Once full, misses still
// compile and return their value but nothing new is stored. Zero or a
// negative value means unbounded, which is the default.
func WithMaxEntries(n int) Option {
	return func(cfg *config) {
		if n < 0 {
			n = 0
		}
		cfg.maxEntries = n
	}
}

// Stats is a point-in-time view of cache activity.
type Stats struct {
	Hits     uint64
	Misses   uint64
	Compiles uint64
	Failures uint64
	Entries  int
}

// Cache is a case-insensitive name to value map with get-or-compile
// semantics. The zero value is not usable; call New.
type Cache[T any] struct {
	mu      sync.RWMutex
	entries map[string]T

	logger     *zap.Logger
	maxEntries int

	hits     atomic.Uint64
	misses   atomic.Uint64
	compiles atomic.Uint64
	failures atomic.Uint64
}

// New constructs an empty cache.
func New[T any](options ...Option) *Cache[T] {
	cfg := &config{logger: zap.NewNop()}
	for _, opt := range options {
		if opt == nil {
			continue
		}
		opt(cfg)
	}
	return &Cache[T]{
		entries:    make(map[string]T),
		logger:     cfg.logger,
		maxEntries: cfg.maxEntries,
	}
}

// GetOrCompile returns the entry for name, running compile to produce it on
// a miss. Hits only take the shared lock. On a miss the exclusive lock is
// taken and presence is checked again before compiling, so racing callers
// for the same name trigger a single compile and all receive the stored
// value. A failed compile stores nothing; its error goes to the caller that
// ran it, and callers that were waiting repeat the lookup themselves.
func (c *Cache[T]) GetOrCompile(name string, compile CompileFunc[T]) (T, error) {
	key := normalizeKey(name)

	c.mu.RLock()
	value, ok := c.entries[key]
	c.mu.RUnlock()
	if ok {
		c.hits.Add(1)
		return value, nil
	}

	return c.compileLocked(key, name, compile)
}

func (c *Cache[T]) compileLocked(key, name string, compile CompileFunc[T]) (T, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if value, ok := c.entries[key]; ok {
		c.hits.Add(1)
		return value, nil
	}

	c.misses.Add(1)
	c.logger.Debug("cache miss, compiling", zap.String("name", name))

	c.compiles.Add(1)
	value, err := compile()
	if err != nil {
		c.failures.Add(1)
		c.logger.Warn("compile failed", zap.String("name", name), zap.Error(err))
		var zero T
		return zero, err
	}

	if c.maxEntries > 0 && len(c.entries) >= c.maxEntries {
		c.logger.Warn("cache full, entry not stored",
			zap.String("name", name),
			zap.Int("max_entries", c.maxEntries))
		return value, nil
	}

	c.entries[key] = value
	return value, nil
}

// Get returns the stored entry for name without compiling.
func (c *Cache[T]) Get(name string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	value, ok := c.entries[normalizeKey(name)]
	return value, ok
}

// Has reports whether name is stored.
func (c *Cache[T]) Has(name string) bool {
	_, ok := c.Get(name)
	return ok
}

// Delete evicts name and reports whether it was present.
func (c *Cache[T]) Delete(name string) bool {
	key := normalizeKey(name)

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.entries[key]; !ok {
		return false
	}
	delete(c.entries, key)
	return true
}

// Clear evicts every entry.
func (c *Cache[T]) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]T)
}

// Len returns the number of stored entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}

// Names returns the normalized keys in sorted order.
func (c *Cache[T]) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.entries))
	for name := range c.entries {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Stats reports counters accumulated since construction.
func (c *Cache[T]) Stats() Stats {
	return Stats{
		Hits:     c.hits.Load(),
		Misses:   c.misses.Load(),
		Compiles: c.compiles.Load(),
		Failures: c.failures.Load(),
		Entries:  c.Len(),
	}
}

func normalizeKey(name string) string {
	return strings.ToLower(name)
}
