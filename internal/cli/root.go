// Package cli wires the analyzer's three shells behind one cobra binary:
// a one-shot analyze command, an HTTP server, and an MCP stdio server.
package cli

import (
	"fmt"
	"os"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/pkg/version"
)

var (
	cfgFile string
	debug   bool

	cfg    *config.Settings
	logger zerolog.Logger
)

var rootCmd = &cobra.Command{
	Use:   "ngram",
	Short: "Search-term report analyzer for sponsored-product advertising",
	Long: `ngram ingests advertising search-term reports (.csv, .tsv, .xlsx),
normalizes their messy headers and cells, classifies terms, aggregates
spend/sales/orders/clicks, rolls up n-grams, and writes a multi-sheet
analysis workbook.`,
	Version:       version.Version(),
	SilenceUsage:  true,
	SilenceErrors: true,
}

// Execute is the entry point called by main.main().
func Execute() {
	cobra.OnInitialize(loadConfig)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default searches .ngram.yaml in . and $HOME)")
	rootCmd.PersistentFlags().BoolVar(&debug, "debug", false, "enable debug logging")
}

func loadConfig() {
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	logger = zerolog.New(os.Stderr).Level(level).With().Timestamp().Str("service", "ngram").Logger()

	c, err := config.Load(cfgFile)
	if err != nil {
		logger.Error().Err(err).Msg("config load failed")
		fmt.Fprintln(os.Stderr, "invalid configuration:", err)
		os.Exit(1)
	}
	cfg = c
}

// analysisDefaults translates settings into pipeline parameters, loading the
// alias profile when configured.
func analysisDefaults() (map[string][]string, error) {
	if cfg == nil || cfg.AliasFile == "" {
		return nil, nil
	}
	profile, err := config.LoadAliases(cfg.AliasFile)
	if err != nil {
		return nil, err
	}
	return profile, nil
}
