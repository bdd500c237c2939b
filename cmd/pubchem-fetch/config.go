// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubchem-fetch/internal/cache"
	"github.com/pdiddy/pubchem-fetch/internal/cidfile"
	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/internal/pubchem"
	"github.com/pdiddy/pubchem-fetch/internal/secrets"
	"github.com/pdiddy/pubchem-fetch/internal/store"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

const (
	defaultMaxRetries = 3
	defaultDelay      = 0.3
	defaultBatchSize  = 100
	defaultTimeout    = 30.0
)

// fetchFlags maps the flags shared by the fetch commands to config keys.
var fetchFlags = map[string]string{
	"base-url":    "base_url",
	"user-agent":  "user_agent",
	"max-retries": "max_retries",
	"delay":       "delay",
	"retry-wait":  "retry_wait",
	"batch-size":  "batch_size",
	"timeout":     "timeout",
	"redis-addr":  "cache.redis_addr",
	"redis-db":    "cache.redis_db",
	"cache-ttl":   "cache.ttl",
	"db":          "store.path",
	"secrets-dir": "secrets_dir",
}

// addFetchFlags registers the retry, throttle, cache and store flags.
func addFetchFlags(cmd *cobra.Command) {
	f := cmd.Flags()
	f.String("base-url", pubchem.DefaultBaseURL, "PUG REST base URL")
	f.String("user-agent", pubchem.DefaultUserAgent, "User-Agent header sent with every request")
	f.Int("max-retries", defaultMaxRetries, "maximum attempts per identifier (>= 1)")
	f.Float64("delay", defaultDelay, "seconds to wait between consecutive identifiers")
	f.Float64("retry-wait", 0, "seconds to wait between failed attempts (0 = use --delay)")
	f.Int("batch-size", defaultBatchSize, "identifiers per batch (>= 1)")
	f.Float64("timeout", defaultTimeout, "per-request HTTP timeout in seconds")
	f.String("redis-addr", "", "Redis host:port for the response cache (empty disables caching)")
	f.Int("redis-db", 0, "Redis logical database")
	f.Float64("cache-ttl", cache.DefaultTTL.Seconds(), "seconds a cached response stays valid")
	f.String("db", "", "SQLite database recording runs and records (empty disables; runs and export default to "+store.DefaultPath+")")
	f.String("secrets-dir", secrets.DefaultDir, "directory holding credential files")
}

// bindFlags binds the executing command's flags to their config keys. It
// runs per invocation because several commands register the same flags.
func bindFlags(cmd *cobra.Command) error {
	for name, key := range fetchFlags {
		if fl := cmd.Flags().Lookup(name); fl != nil {
			if err := viper.BindPFlag(key, fl); err != nil {
				return fmt.Errorf("binding --%s: %w", name, err)
			}
		}
	}
	return nil
}

// seconds converts a float seconds setting to a duration.
func seconds(key string) (time.Duration, error) {
	v := viper.GetFloat64(key)
	if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
		return 0, fmt.Errorf("%s must be a non-negative number of seconds, got %v", key, v)
	}
	return time.Duration(v * float64(time.Second)), nil
}

// fetchConfig assembles and validates the fetch settings.
func fetchConfig() (types.FetchConfig, error) {
	cfg := types.FetchConfig{
		HTTPConfig: types.HTTPConfig{
			BaseURL:   viper.GetString("base_url"),
			UserAgent: viper.GetString("user_agent"),
		},
		MaxRetries: viper.GetInt("max_retries"),
		BatchSize:  viper.GetInt("batch_size"),
	}
	if cfg.MaxRetries < 1 {
		return cfg, fmt.Errorf("max_retries must be at least 1, got %d", cfg.MaxRetries)
	}
	if cfg.BatchSize < 1 {
		return cfg, fmt.Errorf("batch_size must be at least 1, got %d", cfg.BatchSize)
	}

	var err error
	if cfg.Delay, err = seconds("delay"); err != nil {
		return cfg, err
	}
	if cfg.RetryWait, err = seconds("retry_wait"); err != nil {
		return cfg, err
	}
	if cfg.Timeout, err = seconds("timeout"); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func cacheConfig() (types.CacheConfig, error) {
	cfg := types.CacheConfig{
		RedisAddr: viper.GetString("cache.redis_addr"),
		RedisDB:   viper.GetInt("cache.redis_db"),
	}
	if !cfg.Enabled() {
		return cfg, nil
	}
	ttl, err := seconds("cache.ttl")
	if err != nil {
		return cfg, err
	}
	cfg.TTL = ttl
	pw, err := secrets.Fill(viper.GetString("cache.redis_password"), viper.GetString("secrets_dir"), secrets.RedisPassword)
	if err != nil {
		return cfg, err
	}
	cfg.RedisPassword = pw
	return cfg, nil
}

// openCache connects to Redis when configured. The returned Cache is a nil
// interface when caching is disabled.
func openCache(ctx context.Context) (cache.Cache, func(), error) {
	cfg, err := cacheConfig()
	if err != nil {
		return nil, func() {}, err
	}
	if !cfg.Enabled() {
		return nil, func() {}, nil
	}
	r, err := cache.Dial(ctx, cfg)
	if err != nil {
		return nil, func() {}, err
	}
	log.Info().Str("addr", cfg.RedisAddr).Msg("response cache enabled")
	return r, func() { r.Close() }, nil
}

// openStore opens the result store when --db or store.path is set.
func openStore() (*store.Store, error) {
	path := viper.GetString("store.path")
	if path == "" {
		return nil, nil
	}
	return store.Open(types.StoreConfig{Path: path})
}

// outputFlags returns the output path and the parsed --format. It runs
// before any request so a bad format fails fast.
func outputFlags(cmd *cobra.Command) (string, types.ExportFormat, error) {
	output, _ := cmd.Flags().GetString("output")
	name, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(name)
	if err != nil {
		return "", "", err
	}
	return output, format, nil
}

// loadCIDs reads identifiers from --cids or --input and returns them with a
// description of their source.
func loadCIDs(cmd *cobra.Command) ([]int, string, error) {
	list, _ := cmd.Flags().GetString("cids")
	input, _ := cmd.Flags().GetString("input")
	switch {
	case list != "" && input != "":
		return nil, "", fmt.Errorf("use either --cids or --input, not both")
	case list != "":
		cids, err := cidfile.ParseList(list)
		if err != nil {
			return nil, "", fmt.Errorf("parsing --cids: %w", err)
		}
		return cids, "--cids", nil
	case input != "":
		cids, err := cidfile.ReadCIDs(input)
		if err != nil {
			return nil, "", err
		}
		return cids, input, nil
	default:
		return nil, "", fmt.Errorf("provide identifiers with --input FILE or --cids LIST")
	}
}
