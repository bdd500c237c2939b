// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package pubchem

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog"

	"github.com/pdiddy/pubchem-fetch/internal/batch"
	"github.com/pdiddy/pubchem-fetch/internal/httputil"
	"github.com/pdiddy/pubchem-fetch/internal/logging"
	"github.com/pdiddy/pubchem-fetch/internal/metrics"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

const (
	defaultMaxRetries = 3
	defaultBatchSize  = 100
)

// Result holds the records of one fetch run and its counts.
type Result[R any] struct {
	// Records has one entry per input identifier, in input order.
	Records   []R
	Succeeded int
	NA        int
	Batches   int
}

// Total returns the number of records produced.
func (r Result[R]) Total() int { return len(r.Records) }

// Fetcher runs the per-identifier retry loop over batches of CIDs. It is
// strictly sequential: one request in flight, identifiers in input order.
type Fetcher struct {
	client *Client
	cfg    types.FetchConfig
	out    io.Writer
	log    zerolog.Logger

	// requested tracks whether any identifier has been processed, so the
	// throttle applies between identifiers across calls.
	requested bool
}

// NewFetcher returns a Fetcher. Per-identifier status lines are written to
// out; pass nil to discard them.
func NewFetcher(client *Client, cfg types.FetchConfig, out io.Writer) *Fetcher {
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = defaultMaxRetries
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = defaultBatchSize
	}
	if out == nil {
		out = io.Discard
	}
	return &Fetcher{
		client: client,
		cfg:    cfg,
		out:    out,
		log:    logging.NewLogger("fetcher"),
	}
}

// FetchProperties retrieves molecular properties for every CID. Each CID
// yields exactly one record: the fetched properties, or the NA placeholder
// once its attempts are spent or its payload is malformed.
//
// The only error returned is a context error; the records fetched before
// cancellation are returned with it. A lookup that succeeded before the
// cancellation keeps its record.
func (f *Fetcher) FetchProperties(ctx context.Context, cids []int) (Result[types.PropertyRecord], error) {
	res := Result[types.PropertyRecord]{Records: make([]types.PropertyRecord, 0, len(cids))}
	batches := batch.Split(cids, f.cfg.BatchSize)

	for i, b := range batches {
		f.log.Info().Int("batch", i+1).Int("batches", len(batches)).Int("size", len(b)).Msg("fetching properties")
		for _, cid := range b {
			if err := f.throttle(ctx); err != nil {
				return res, err
			}
			rec, err := f.fetchProperty(ctx, cid)
			if err != nil {
				return res, err
			}
			res.Records = append(res.Records, rec)
			if rec.Status == types.StatusOK {
				res.Succeeded++
				fmt.Fprintf(f.out, "ok      CID %d\n", cid)
			} else {
				res.NA++
				fmt.Fprintf(f.out, "NA      CID %d (%s)\n", cid, rec.Error)
			}
		}
		res.Batches++
	}
	return res, nil
}

// FetchAssays retrieves the summary statistics of assay aid for every CID,
// with the same one-record-per-CID contract as FetchProperties.
func (f *Fetcher) FetchAssays(ctx context.Context, aid int, cids []int) (Result[types.AssayRecord], error) {
	res := Result[types.AssayRecord]{Records: make([]types.AssayRecord, 0, len(cids))}
	batches := batch.Split(cids, f.cfg.BatchSize)

	for i, b := range batches {
		f.log.Info().Int("aid", aid).Int("batch", i+1).Int("batches", len(batches)).Int("size", len(b)).Msg("fetching bioassays")
		for _, cid := range b {
			if err := f.throttle(ctx); err != nil {
				return res, err
			}
			rec, err := f.fetchAssay(ctx, aid, cid)
			if err != nil {
				return res, err
			}
			res.Records = append(res.Records, rec)
			if rec.Status == types.StatusOK {
				res.Succeeded++
				fmt.Fprintf(f.out, "ok      AID %d CID %d\n", aid, cid)
			} else {
				res.NA++
				fmt.Fprintf(f.out, "NA      AID %d CID %d (%s)\n", aid, cid, rec.Error)
			}
		}
		res.Batches++
	}
	return res, nil
}

func (f *Fetcher) fetchProperty(ctx context.Context, cid int) (types.PropertyRecord, error) {
	var rec types.PropertyRecord
	logger := f.log.With().Int("cid", cid).Logger()

	attempts, err := httputil.Retry(ctx, f.policy(metrics.EndpointProperty, logger), func(ctx context.Context, _ int) error {
		r, err := f.client.Properties(ctx, cid)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return types.PropertyRecord{}, ctx.Err()
	}
	if err != nil {
		rec = types.NAPropertyRecord(cid)
		rec.Error = err.Error()
		metrics.NARecordsTotal.WithLabelValues(metrics.EndpointProperty).Inc()
		logger.Error().Err(err).Int("attempts", attempts).Msg("returning NA record")
	} else if attempts > 1 {
		logger.Info().Int("attempts", attempts).Msg("succeeded after retry")
	}
	rec.Attempts = attempts
	return rec, nil
}

func (f *Fetcher) fetchAssay(ctx context.Context, aid, cid int) (types.AssayRecord, error) {
	var rec types.AssayRecord
	logger := f.log.With().Int("aid", aid).Int("cid", cid).Logger()

	attempts, err := httputil.Retry(ctx, f.policy(metrics.EndpointAssay, logger), func(ctx context.Context, _ int) error {
		r, err := f.client.Assay(ctx, aid, cid)
		if err != nil {
			return err
		}
		rec = r
		return nil
	})
	if err != nil && ctx.Err() != nil {
		return types.AssayRecord{}, ctx.Err()
	}
	if err != nil {
		rec = types.NAAssayRecord(aid, cid)
		rec.Error = err.Error()
		metrics.NARecordsTotal.WithLabelValues(metrics.EndpointAssay).Inc()
		logger.Error().Err(err).Int("attempts", attempts).Msg("returning NA record")
	} else if attempts > 1 {
		logger.Info().Int("attempts", attempts).Msg("succeeded after retry")
	}
	rec.Attempts = attempts
	return rec, nil
}

// policy builds the retry policy for one identifier. Failed attempts are
// logged and counted by error class.
func (f *Fetcher) policy(endpoint string, logger zerolog.Logger) httputil.Policy {
	return httputil.Policy{
		MaxAttempts: f.cfg.MaxRetries,
		Wait:        f.cfg.Wait(),
		OnFailure: func(attempt int, class httputil.Class, err error) {
			metrics.RetriesTotal.WithLabelValues(endpoint, string(class)).Inc()
			logger.Warn().
				Err(err).
				Int("attempt", attempt).
				Int("max_attempts", f.cfg.MaxRetries).
				Int("status_code", statusCode(err)).
				Str("error_class", string(class)).
				Msg("attempt failed")
		},
	}
}

// throttle sleeps for the configured delay before every identifier but the
// first of the Fetcher's lifetime.
func (f *Fetcher) throttle(ctx context.Context) error {
	if !f.requested {
		f.requested = true
		return ctx.Err()
	}
	return httputil.Sleep(ctx, f.cfg.Delay)
}
