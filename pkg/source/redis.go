package source

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/gomodule/redigo/redis"

	"github.com/goliatone/go-tplengine/pkg/template"
)

// DefaultRedisPrefix namespaces template keys.
const DefaultRedisPrefix = "templates:"

// RedisConfig describes the connection used by NewRedis.
type RedisConfig struct {
	// Network address, like localhost:6379.
	Address string

	// Prefix prepended to every key. Defaults to DefaultRedisPrefix.
	Prefix string

	Password string
	Database int

	// Maximum number of idle connections in the pool.
	MaxIdle int

	// Idle connections are closed after this duration.
	IdleTimeout time.Duration

	// Bounds connect, read and write on each connection.
	Timeout time.Duration

	DialOptions []redis.DialOption
}

// Redis reads templates stored as plain string values under
// <prefix><name>[.<suffix>].
type Redis struct {
	pool   *redis.Pool
	prefix string
}

// Ensure Redis implements the template.SourceReader interface.
var _ template.SourceReader = (*Redis)(nil)

// NewRedis builds a connection pool from cfg. No connection is made until the
// first Read.
func NewRedis(cfg RedisConfig) *Redis {
	if cfg.Address == "" {
		cfg.Address = "localhost:6379"
	}
	if cfg.MaxIdle == 0 {
		cfg.MaxIdle = 3
	}
	if cfg.IdleTimeout == 0 {
		cfg.IdleTimeout = 2 * time.Minute
	}

	dialOpts := append([]redis.DialOption{}, cfg.DialOptions...)
	if cfg.Password != "" {
		dialOpts = append(dialOpts, redis.DialPassword(cfg.Password))
	}
	if cfg.Database != 0 {
		dialOpts = append(dialOpts, redis.DialDatabase(cfg.Database))
	}
	if cfg.Timeout > 0 {
		dialOpts = append(dialOpts,
			redis.DialConnectTimeout(cfg.Timeout),
			redis.DialReadTimeout(cfg.Timeout),
			redis.DialWriteTimeout(cfg.Timeout),
		)
	}

	pool := &redis.Pool{
		MaxIdle:     cfg.MaxIdle,
		IdleTimeout: cfg.IdleTimeout,
		Dial: func() (redis.Conn, error) {
			return redis.Dial("tcp", cfg.Address, dialOpts...)
		},
		TestOnBorrow: func(c redis.Conn, t time.Time) error {
			if time.Since(t) < time.Minute {
				return nil
			}
			_, err := c.Do("PING")
			return err
		},
	}
	return NewRedisPool(pool, cfg.Prefix)
}

// NewRedisPool wraps an existing pool. An empty prefix selects
// DefaultRedisPrefix.
func NewRedisPool(pool *redis.Pool, prefix string) *Redis {
	if prefix == "" {
		prefix = DefaultRedisPrefix
	}
	return &Redis{pool: pool, prefix: prefix}
}

// Key returns the redis key a template is stored under.
func (r *Redis) Key(name, suffix string) string {
	return r.prefix + FileName(strings.TrimSpace(name), suffix, "")
}

// Read implements template.SourceReader. A missing key is absent content.
func (r *Redis) Read(name, suffix string) (string, error) {
	if strings.TrimSpace(name) == "" {
		return "", ErrTemplateNameRequired
	}
	if strings.ContainsAny(suffix, "/\\") {
		return "", ErrInvalidTemplateName
	}

	key := r.Key(name, suffix)
	conn := r.pool.Get()
	defer conn.Close()

	content, err := redis.String(conn.Do("GET", key))
	if err != nil {
		if errors.Is(err, redis.ErrNil) {
			return "", nil
		}
		return "", fmt.Errorf("source: redis get %s: %w", key, err)
	}
	return content, nil
}

// Close releases the pool's connections.
func (r *Redis) Close() error {
	return r.pool.Close()
}
