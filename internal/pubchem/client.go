// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package pubchem fetches compound properties and bioassay results from the
// PubChem PUG REST API, one identifier at a time, with per-identifier retry
// and a fixed throttle between identifiers.
package pubchem

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubchem-fetch/internal/cache"
	"github.com/pdiddy/pubchem-fetch/internal/logging"
	"github.com/pdiddy/pubchem-fetch/internal/metrics"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

const (
	// DefaultBaseURL is the PUG REST root.
	DefaultBaseURL = "https://pubchem.ncbi.nlm.nih.gov/rest/pug"

	// DefaultUserAgent is sent when HTTPConfig.UserAgent is empty.
	DefaultUserAgent = "pubchem-fetch/0.1"

	defaultTimeout = 30 * time.Second

	// maxBodyBytes bounds a single response; property and single-CID assay
	// payloads are a few kilobytes.
	maxBodyBytes = 8 << 20
)

// Client issues single requests against PUG REST. It does not retry; the
// Fetcher wraps it in the retry loop.
type Client struct {
	http      *http.Client
	baseURL   string
	userAgent string
	cache     cache.Cache
	log       zerolog.Logger
}

// NewClient builds a Client from cfg. c may be nil to disable caching.
func NewClient(cfg types.HTTPConfig, c cache.Cache) *Client {
	base := strings.TrimRight(cfg.BaseURL, "/")
	if base == "" {
		base = DefaultBaseURL
	}
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	ua := cfg.UserAgent
	if ua == "" {
		ua = DefaultUserAgent
	}
	return &Client{
		http:      &http.Client{Timeout: timeout},
		baseURL:   base,
		userAgent: ua,
		cache:     c,
		log:       logging.NewLogger("pubchem"),
	}
}

// fetch retrieves url and hands the body to parse. A cached body is used
// when it parses; otherwise the request goes to PubChem and a body that
// parses is written back to the cache. Cache failures are logged and
// bypassed.
func (c *Client) fetch(ctx context.Context, endpoint, url string, parse func([]byte) error) error {
	key := cache.Key(url)
	if c.cache != nil {
		body, err := c.cache.Get(ctx, key)
		switch {
		case err == nil:
			if perr := parse(body); perr == nil {
				metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheHit).Inc()
				c.log.Debug().Str("url", url).Msg("cache hit")
				return nil
			}
			c.log.Warn().Str("url", url).Msg("cached body unparseable, refetching")
			metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheMiss).Inc()
		case errors.Is(err, cache.ErrCacheMiss):
			metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheMiss).Inc()
		default:
			metrics.CacheLookupsTotal.WithLabelValues(metrics.CacheError).Inc()
			c.log.Warn().Err(err).Str("url", url).Msg("cache lookup failed")
		}
	}

	body, err := c.get(ctx, endpoint, url)
	if err != nil {
		return err
	}
	if err := parse(body); err != nil {
		return err
	}

	if c.cache != nil {
		if err := c.cache.Set(ctx, key, body); err != nil {
			c.log.Warn().Err(err).Str("url", url).Msg("cache store failed")
		}
	}
	return nil
}

// get performs one GET and returns the body of an HTTP 200 response.
func (c *Client) get(ctx context.Context, endpoint, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)

	c.log.Debug().Str("endpoint", endpoint).Str("url", url).Msg("request")
	start := time.Now()
	resp, err := c.http.Do(req)
	metrics.RequestDuration.WithLabelValues(endpoint).Observe(time.Since(start).Seconds())
	if err != nil {
		metrics.RequestsTotal.WithLabelValues(endpoint, "error").Inc()
		return nil, &RequestError{URL: url, Err: err}
	}
	defer resp.Body.Close()
	metrics.RequestsTotal.WithLabelValues(endpoint, strconv.Itoa(resp.StatusCode)).Inc()

	if resp.StatusCode != http.StatusOK {
		io.Copy(io.Discard, io.LimitReader(resp.Body, maxBodyBytes))
		return nil, &RequestError{URL: url, StatusCode: resp.StatusCode}
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &RequestError{URL: url, StatusCode: resp.StatusCode, Err: fmt.Errorf("reading body: %w", err)}
	}
	return body, nil
}
