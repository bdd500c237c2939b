// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package metrics defines the Prometheus collectors recorded during a fetch
// run. A CLI run is short-lived, so instead of serving /metrics the registry
// is written once at exit in text exposition format, suitable for the
// node_exporter textfile collector.
package metrics

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Endpoint label values.
const (
	EndpointProperty = "property"
	EndpointAssay    = "assay"
)

// Cache lookup label values.
const (
	CacheHit   = "hit"
	CacheMiss  = "miss"
	CacheError = "error"
)

var (
	// RequestsTotal counts HTTP requests sent to PubChem by endpoint and
	// outcome ("200", "404", ..., or "error" for transport failures).
	RequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubchem_requests_total",
		Help: "PubChem requests by endpoint and status",
	}, []string{"endpoint", "status"})

	// RequestDuration observes request latency by endpoint.
	RequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "pubchem_request_duration_seconds",
		Help:    "PubChem request duration in seconds by endpoint",
		Buckets: []float64{0.05, 0.1, 0.25, 0.5, 1, 2, 5, 10},
	}, []string{"endpoint"})

	// RetriesTotal counts failed attempts by endpoint and error class.
	RetriesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubchem_retries_total",
		Help: "Failed PubChem attempts by endpoint and error class",
	}, []string{"endpoint", "error_class"})

	// NARecordsTotal counts identifiers downgraded to an NA record.
	NARecordsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubchem_na_records_total",
		Help: "Records emitted with the NA placeholder by endpoint",
	}, []string{"endpoint"})

	// CacheLookupsTotal counts response cache lookups by result.
	CacheLookupsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "pubchem_cache_lookups_total",
		Help: "Response cache lookups by result",
	}, []string{"result"})
)

// WriteTextfile writes every metric in g to path, creating parent
// directories as needed. The write is atomic.
func WriteTextfile(path string, g prometheus.Gatherer) error {
	if dir := filepath.Dir(path); dir != "" {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return fmt.Errorf("creating metrics directory: %w", err)
		}
	}
	if err := prometheus.WriteToTextfile(path, g); err != nil {
		return fmt.Errorf("writing metrics to %s: %w", path, err)
	}
	return nil
}
