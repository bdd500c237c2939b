// Copyright Mesh Intelligence Inc., 2026. All rights reserved.

// Package main is the entry point for the pubchem-fetch CLI.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog/log"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/pdiddy/pubchem-fetch/internal/logging"
	"github.com/pdiddy/pubchem-fetch/internal/metrics"
)

// version is set at build time via ldflags.
var version = "dev"

// rootCmd is the base command for the pubchem-fetch CLI.
var rootCmd = &cobra.Command{
	Use:   "pubchem-fetch",
	Short: "Fetch compound properties and bioassay results from PubChem",
	Long: `pubchem-fetch queries the PubChem PUG REST API for molecular properties
and bioassay summary statistics given lists of compound identifiers (CIDs),
and writes the results as CSV, JSON or YAML tables.

Requests are strictly sequential with a fixed delay between identifiers.
Each identifier is retried up to --max-retries times; identifiers that
still fail produce an NA record so output rows line up with input rows.`,
	SilenceUsage: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		logging.Setup(logging.Config{
			Level:  viper.GetString("log.level"),
			Pretty: viper.GetBool("log.pretty"),
			Output: os.Stderr,
		})
		return nil
	},
}

func init() {
	cobra.OnInitialize(initConfig)

	pf := rootCmd.PersistentFlags()
	pf.String("config", "", "config file (default: ./pubchem-fetch.yaml or ~/.config/pubchem-fetch/config.yaml)")
	pf.String("log-level", "info", "log level: debug, info, warn, error")
	pf.Bool("log-pretty", false, "human-readable console logs instead of JSON")
	pf.String("metrics-file", "", "write Prometheus metrics in text format to this file on exit")

	viper.BindPFlag("log.level", pf.Lookup("log-level"))
	viper.BindPFlag("log.pretty", pf.Lookup("log-pretty"))
	viper.BindPFlag("metrics_file", pf.Lookup("metrics-file"))
}

func initConfig() {
	cfgFile, _ := rootCmd.PersistentFlags().GetString("config")
	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.SetConfigName("pubchem-fetch")
		viper.SetConfigType("yaml")
		viper.AddConfigPath(".")

		home, err := os.UserHomeDir()
		if err == nil {
			viper.AddConfigPath(filepath.Join(home, ".config", "pubchem-fetch"))
		}
	}

	viper.SetEnvPrefix("PUBCHEM_FETCH")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}

// writeMetrics dumps the default registry when --metrics-file is set.
func writeMetrics() {
	path := viper.GetString("metrics_file")
	if path == "" {
		return
	}
	if err := metrics.WriteTextfile(path, prometheus.DefaultGatherer); err != nil {
		log.Error().Err(err).Str("path", path).Msg("writing metrics file")
	}
}

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := rootCmd.ExecuteContext(ctx)
	stop()
	writeMetrics()
	if err != nil {
		os.Exit(1)
	}
}
