// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/internal/pubchem"
	"github.com/pdiddy/pubchem-fetch/internal/store"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

var assaysCmd = &cobra.Command{
	Use:   "assays",
	Short: "Fetch bioassay summary statistics for a list of CIDs",
	Long: `Assays fetches the assay CSV of every (AID, CID) pair and extracts the
mean and standard deviation columns of the compound's data row. Rows for
pairs that fail hold AID, CID and Data=NA instead of the statistics.

Repeat --aid to query several assays; rows are grouped by AID in flag order.`,
	RunE: runAssays,
}

func init() {
	assaysCmd.Flags().IntSlice("aid", nil, "assay identifier (repeatable)")
	assaysCmd.Flags().String("input", "", "CSV file with a CID column")
	assaysCmd.Flags().String("cids", "", "comma-separated CIDs, instead of --input")
	assaysCmd.Flags().String("output", export.DefaultAssaysPath, "output file")
	assaysCmd.Flags().String("format", "csv", "output format: csv, json or yaml")
	addFetchFlags(assaysCmd)

	rootCmd.AddCommand(assaysCmd)
}

func runAssays(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
	}
	aids, _ := cmd.Flags().GetIntSlice("aid")
	if len(aids) == 0 {
		return fmt.Errorf("provide at least one --aid")
	}
	for _, aid := range aids {
		if aid < 1 {
			return fmt.Errorf("AID %d is not positive", aid)
		}
	}
	cids, input, err := loadCIDs(cmd)
	if err != nil {
		return err
	}
	cfg, err := fetchConfig()
	if err != nil {
		return err
	}
	output, format, err := outputFlags(cmd)
	if err != nil {
		return err
	}

	ctx := cmd.Context()
	c, closeCache, err := openCache(ctx)
	if err != nil {
		return err
	}
	defer closeCache()

	fetcher := pubchem.NewFetcher(pubchem.NewClient(cfg.HTTPConfig, c), cfg, cmd.OutOrStdout())

	var all pubchem.Result[types.AssayRecord]
	var fetchErr error
	for _, aid := range aids {
		res, err := fetcher.FetchAssays(ctx, aid, cids)
		all.Records = append(all.Records, res.Records...)
		all.Succeeded += res.Succeeded
		all.NA += res.NA
		all.Batches += res.Batches
		if err != nil {
			fetchErr = err
			break
		}
	}

	if err := finishFetch(ctx, cmd.OutOrStdout(), store.KindAssays, assayInput(aids, input), output, format, all,
		(*store.Store).SaveAssayRecords); err != nil {
		return err
	}
	return fetchErr
}

// assayInput describes an assay run for the store, e.g. "aid=1000,1001 cids.csv".
func assayInput(aids []int, input string) string {
	parts := make([]string, len(aids))
	for i, aid := range aids {
		parts[i] = strconv.Itoa(aid)
	}
	return "aid=" + strings.Join(parts, ",") + " " + input
}
