// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package types

import "time"

// HTTPConfig holds shared HTTP settings used by both fetchers.
type HTTPConfig struct {
	// BaseURL is the PUG REST root (e.g. "https://pubchem.ncbi.nlm.nih.gov/rest/pug").
	BaseURL string `json:"base_url" yaml:"base_url"`

	// Timeout is the per-request HTTP timeout.
	Timeout time.Duration `json:"timeout" yaml:"timeout"`

	// UserAgent is the User-Agent header sent with every request.
	UserAgent string `json:"user_agent" yaml:"user_agent"`
}

// FetchConfig holds the retry, throttling and batching parameters shared by
// the property and bioassay fetchers.
type FetchConfig struct {
	HTTPConfig `yaml:",inline"`

	// MaxRetries is the maximum number of attempts per identifier (default 3).
	MaxRetries int `json:"max_retries" yaml:"max_retries"`

	// Delay throttles consecutive identifiers, regardless of outcome (default 300ms).
	Delay time.Duration `json:"delay" yaml:"delay"`

	// RetryWait is the pause between failed attempts for one identifier.
	// Zero means use Delay.
	RetryWait time.Duration `json:"retry_wait" yaml:"retry_wait"`

	// BatchSize is the number of identifiers per batch (default 100).
	BatchSize int `json:"batch_size" yaml:"batch_size"`
}

// Wait returns the pause applied between failed attempts.
func (c FetchConfig) Wait() time.Duration {
	if c.RetryWait > 0 {
		return c.RetryWait
	}
	return c.Delay
}

// CacheConfig holds settings for the optional Redis response cache.
type CacheConfig struct {
	// RedisAddr is host:port of the Redis server. Empty disables caching.
	RedisAddr string `json:"redis_addr" yaml:"redis_addr"`

	// RedisPassword is read from .secrets/redis-password when not set.
	RedisPassword string `json:"-" yaml:"-"`

	// RedisDB selects the Redis logical database.
	RedisDB int `json:"redis_db" yaml:"redis_db"`

	// TTL is how long a cached response body stays valid (default 24h).
	TTL time.Duration `json:"ttl" yaml:"ttl"`
}

// Enabled reports whether a cache backend is configured.
func (c CacheConfig) Enabled() bool {
	return c.RedisAddr != ""
}

// StoreConfig holds settings for the SQLite result store.
type StoreConfig struct {
	// Path is the SQLite database file. Empty disables persistence.
	Path string `json:"path" yaml:"path"`
}

// ExportFormat selects the table serialization.
type ExportFormat string

const (
	FormatCSV  ExportFormat = "csv"
	FormatJSON ExportFormat = "json"
	FormatYAML ExportFormat = "yaml"
)
