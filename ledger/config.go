package ledger

import (
	"context"
	"time"
)

// DefaultCacheSize is the number of lineage valuations kept in memory.
const DefaultCacheSize = 256

// Config holds ledger settings.
type Config struct {
	// Now returns the time stamped into updated_at. Defaults to time.Now.
	Now func() time.Time

	// CacheSize bounds the valuation cache. Zero or less disables caching.
	CacheSize int
}

// NewConfig creates a Config with defaults.
func NewConfig() *Config {
	return &Config{
		Now:       time.Now,
		CacheSize: DefaultCacheSize,
	}
}

func (c *Config) now() time.Time {
	if c.Now == nil {
		return time.Now().UTC()
	}
	return c.Now().UTC()
}

// contextKey is a private type to avoid key collisions in context.
type contextKey struct{}

// WithContext returns a new context with the Config attached.
func (c *Config) WithContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, contextKey{}, c)
}

// ConfigFromContext retrieves the Config from context.
// Returns a default Config if not found.
func ConfigFromContext(ctx context.Context) *Config {
	if cfg, ok := ctx.Value(contextKey{}).(*Config); ok {
		return cfg
	}
	return NewConfig()
}
