// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubchem-fetch/internal/export"
	"github.com/pdiddy/pubchem-fetch/internal/store"
	"github.com/pdiddy/pubchem-fetch/pkg/types"
)

var runsCmd = &cobra.Command{
	Use:   "runs",
	Short: "List fetch runs recorded in the result store",
	RunE:  runRuns,
}

var exportCmd = &cobra.Command{
	Use:   "export RUN_ID",
	Short: "Re-export the records of a recorded run",
	Long: `Export writes the records of a run from the result store. By default it
writes the same table the fetch command produced. With --full it writes the
run summary and every record, including attempt counts and the last error
of NA records, as JSON or YAML.`,
	Args: cobra.ExactArgs(1),
	RunE: runExport,
}

func init() {
	for _, c := range []*cobra.Command{runsCmd, exportCmd} {
		c.Flags().String("db", store.DefaultPath, "SQLite result store")
	}
	runsCmd.Flags().Bool("json", false, "output runs as JSON")
	exportCmd.Flags().String("output", "", "output file (required)")
	exportCmd.Flags().String("format", "csv", "output format: csv, json or yaml")
	exportCmd.Flags().Bool("full", false, "write run metadata and full records (json or yaml)")

	rootCmd.AddCommand(runsCmd, exportCmd)
}

// storeFromFlag opens an existing result store. It never creates one, so a
// mistyped path is reported instead of listing an empty database.
func storeFromFlag(cmd *cobra.Command) (*store.Store, error) {
	if err := viper.BindPFlag("store.path", cmd.Flags().Lookup("db")); err != nil {
		return nil, err
	}
	path := viper.GetString("store.path")
	if path == "" {
		return nil, fmt.Errorf("no result store configured (set --db or store.path)")
	}
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("no result store at %s: fetch commands record runs only with --db or store.path: %w", path, err)
		}
		return nil, fmt.Errorf("checking result store: %w", err)
	}
	return openStore()
}

func runRuns(cmd *cobra.Command, args []string) error {
	s, err := storeFromFlag(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	runs, err := s.ListRuns(cmd.Context())
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	if asJSON, _ := cmd.Flags().GetBool("json"); asJSON {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		if runs == nil {
			runs = []store.Run{}
		}
		return enc.Encode(runs)
	}

	if len(runs) == 0 {
		fmt.Fprintln(w, "no runs recorded")
		return nil
	}
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "ID\tKIND\tSTARTED\tTOTAL\tOK\tNA\tINPUT")
	for _, r := range runs {
		total := fmt.Sprint(r.Total)
		if !r.Finished() {
			total = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%d\t%d\t%s\n",
			r.ID, r.Kind, r.StartedAt.Local().Format(time.DateTime), total, r.Succeeded, r.NA, r.Input)
	}
	return tw.Flush()
}

func runExport(cmd *cobra.Command, args []string) error {
	runID := args[0]
	output, _ := cmd.Flags().GetString("output")
	if output == "" {
		return fmt.Errorf("--output is required")
	}
	formatName, _ := cmd.Flags().GetString("format")
	format, err := export.ParseFormat(formatName)
	if err != nil {
		return err
	}
	full, _ := cmd.Flags().GetBool("full")

	s, err := storeFromFlag(cmd)
	if err != nil {
		return err
	}
	defer s.Close()

	ctx := cmd.Context()
	switch {
	case full && format == types.FormatJSON:
		err = s.ExportJSON(ctx, runID, output)
	case full && format == types.FormatYAML:
		err = s.ExportYAML(ctx, runID, output)
	case full:
		return fmt.Errorf("--full needs --format json or yaml")
	default:
		var e store.RunExport
		if e, err = s.Export(ctx, runID); err == nil {
			err = export.Write(output, format, e.Table())
		}
	}
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "exported run %s to %s\n", runID, output)
	return nil
}
