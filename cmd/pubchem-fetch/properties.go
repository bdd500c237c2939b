// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"github.com/spf13/cobra"

	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/internal/pubchem"
	"github.com/pdiddy/pubchem-fetch/internal/store"
)

var propertiesCmd = &cobra.Command{
	Use:   "properties",
	Short: "Fetch molecular properties for a list of CIDs",
	Long: `Properties fetches MolecularFormula, MolecularWeight, CanonicalSMILES and
InChIKey for every CID, in input order, and writes one row per CID.
CIDs whose lookups fail after all attempts get NA in every property column.`,
	RunE: runProperties,
}

func init() {
	propertiesCmd.Flags().String("input", "", "CSV file with a CID column")
	propertiesCmd.Flags().String("cids", "", "comma-separated CIDs, instead of --input")
	propertiesCmd.Flags().String("output", export.DefaultPropertiesPath, "output file")
	propertiesCmd.Flags().String("format", "csv", "output format: csv, json or yaml")
	addFetchFlags(propertiesCmd)

	rootCmd.AddCommand(propertiesCmd)
}

func runProperties(cmd *cobra.Command, args []string) error {
	if err := bindFlags(cmd); err != nil {
		return err
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
	res, fetchErr := fetcher.FetchProperties(ctx, cids)

	if err := finishFetch(ctx, cmd.OutOrStdout(), store.KindProperties, input, output, format, res,
		(*store.Store).SavePropertyRecords); err != nil {
		return err
	}
	return fetchErr
}
