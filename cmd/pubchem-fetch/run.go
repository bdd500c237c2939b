// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"context"
	"fmt"
	"io"

	"github.com/rs/zerolog/log"

	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/internal/pubchem"
	"github.com/pdiddy/pubchem-fetch/internal/store"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

// finishFetch persists the records of a fetch, writes the output table and
// prints the run summary. It runs on a context detached from cancellation
// so an interrupted run still keeps what it fetched.
func finishFetch[R export.Record](
	ctx context.Context,
	w io.Writer,
	kind, input, output string,
	format types.ExportFormat,
	res pubchem.Result[R],
	save func(*store.Store, context.Context, string, []R) error,
) error {
	ctx = context.WithoutCancel(ctx)

	if err := export.Write(output, format, export.NewTable(res.Records)); err != nil {
		return err
	}
	fmt.Fprintf(w, "\nwrote %d record(s) to %s\n", res.Total(), output)

	s, err := openStore()
	if err != nil {
		return err
	}
	if s != nil {
		defer s.Close()
		runID, err := s.BeginRun(ctx, kind, input)
		if err != nil {
			return err
		}
		if err := save(s, ctx, runID, res.Records); err != nil {
			return err
		}
		if err := s.FinishRun(ctx, runID, res.Total(), res.Succeeded, res.NA, res.Batches); err != nil {
			return err
		}
		fmt.Fprintf(w, "run:     %s\n", runID)
		log.Info().Str("run_id", runID).Str("kind", kind).Msg("run recorded")
	}

	fmt.Fprintf(w, "total: %d, succeeded: %d, NA: %d, batches: %d\n",
		res.Total(), res.Succeeded, res.NA, res.Batches)
	return nil
}
