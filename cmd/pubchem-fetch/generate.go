// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

package main

import (
	"fmt"
	"math/rand/v2"
	"time"

	"github.com/spf13/cobra"

	"github.com/pdiddy/pubchem-fetch/internal/cidfile"
)

var generateCmd = &cobra.Command{
	Use:   "generate",
	Short: "Generate a CSV of random CIDs for test runs",
	Long: `Generate draws distinct random CIDs from [1, 10000000) and writes them to a
CSV file with a CID header, ready for the properties and assays commands.
Most random CIDs do not exist, so runs on this data exercise the NA path.`,
	RunE: runGenerate,
}

func init() {
	generateCmd.Flags().IntP("count", "n", 100, "number of CIDs to generate")
	generateCmd.Flags().String("output", cidfile.DefaultRandomPath, "output file")
	generateCmd.Flags().Uint64("seed", 0, "random seed (0 = time-based)")

	rootCmd.AddCommand(generateCmd)
}

func runGenerate(cmd *cobra.Command, args []string) error {
	count, _ := cmd.Flags().GetInt("count")
	output, _ := cmd.Flags().GetString("output")
	seed, _ := cmd.Flags().GetUint64("seed")
	if seed == 0 {
		seed = uint64(time.Now().UnixNano())
	}

	cids, err := cidfile.Random(count, rand.New(rand.NewPCG(seed, seed>>1)))
	if err != nil {
		return err
	}
	if err := cidfile.WriteCIDs(output, cids); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Random CIDs generated and saved to %s\n", output)
	return nil
}
