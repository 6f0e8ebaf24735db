package cli

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/export"
	"github.com/praballama89182-collab/NGRAM/internal/ingest"
)

var (
	flagOut       string
	flagBrand     string
	flagGramSizes string
	flagWastedMin float64
	flagTopK      int
	flagACOS      float64
	flagDedupe    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <report>",
	Short: "Analyze a search-term report and write the workbook",
	Args:  cobra.ExactArgs(1),
	RunE:  runAnalyze,
}

func init() {
	analyzeCmd.Flags().StringVarP(&flagOut, "out", "o", "", "output .xlsx path (default <report>_analysis.xlsx)")
	analyzeCmd.Flags().StringVar(&flagBrand, "brand", "", "brand token for branded/generic tagging")
	analyzeCmd.Flags().StringVar(&flagGramSizes, "gram-sizes", "", "comma-separated gram sizes (default 1,2,3)")
	analyzeCmd.Flags().Float64Var(&flagWastedMin, "wasted-spend-min", 0, "inclusive wasted-spend threshold")
	analyzeCmd.Flags().IntVar(&flagTopK, "top-k", 0, "rows per match type in ranked sheets")
	analyzeCmd.Flags().Float64Var(&flagACOS, "acos-limit", 0, "inclusive ACOS ceiling for the efficient sheet")
	analyzeCmd.Flags().BoolVar(&flagDedupe, "dedupe-within-row", false, "count each distinct gram once per row")
	rootCmd.AddCommand(analyzeCmd)
}

func runAnalyze(cmd *cobra.Command, args []string) error {
	in := args[0]

	params, err := buildParams(cmd)
	if err != nil {
		return err
	}

	f, err := os.Open(in)
	if err != nil {
		return fmt.Errorf("open report: %w", err)
	}
	defer func() { _ = f.Close() }()

	maxRows := config.DefaultMaxReportRows
	if cfg != nil && cfg.MaxReportRows > 0 {
		maxRows = cfg.MaxReportRows
	}
	tbl, err := ingest.Read(filepath.Base(in), f, ingest.Options{MaxRows: maxRows})
	if err != nil {
		return err
	}
	logger.Debug().Int("records", len(tbl.Records)).Msg("report ingested")

	res, err := analysis.BuildReport(tbl.Headers, tbl.Records, params)
	if err != nil {
		return err
	}

	out := flagOut
	if out == "" {
		base := strings.TrimSuffix(in, filepath.Ext(in))
		out = base + "_analysis.xlsx"
	}
	if err := export.WriteFile(res.Payload, out); err != nil {
		return err
	}
	logger.Info().Str("out", out).Int("rows", res.Rows).Int("terms", res.Terms).Msg("analysis written")

	fmt.Fprintln(cmd.OutOrStdout(), renderSummary(res, out))
	return nil
}

// buildParams merges config-file defaults with flag overrides.
func buildParams(cmd *cobra.Command) (analysis.Params, error) {
	var p analysis.Params
	if cfg != nil {
		p = analysis.Params{
			Brand:           cfg.Brand,
			GramSizes:       cfg.GramSizes,
			WastedSpendMin:  cfg.WastedSpendMin,
			TopK:            cfg.TopK,
			ACOSLimit:       cfg.ACOSLimit,
			DedupeWithinRow: cfg.DedupeWithinRow,
		}
	}
	aliases, err := analysisDefaults()
	if err != nil {
		return p, err
	}
	p.ExtraAliases = aliases

	flags := cmd.Flags()
	if flags.Changed("brand") {
		p.Brand = flagBrand
	}
	if flags.Changed("gram-sizes") {
		sizes, err := parseSizes(flagGramSizes)
		if err != nil {
			return p, err
		}
		p.GramSizes = sizes
	}
	if flags.Changed("wasted-spend-min") {
		p.WastedSpendMin = flagWastedMin
	}
	if flags.Changed("top-k") {
		p.TopK = flagTopK
	}
	if flags.Changed("acos-limit") {
		p.ACOSLimit = flagACOS
	}
	if flags.Changed("dedupe-within-row") {
		p.DedupeWithinRow = flagDedupe
	}
	return p, nil
}

func parseSizes(s string) ([]int, error) {
	var sizes []int
	for _, part := range strings.Split(s, ",") {
		n, err := strconv.Atoi(strings.TrimSpace(part))
		if err != nil || n < 1 || n > config.MaxGramSize {
			return nil, fmt.Errorf("invalid gram size %q (allowed 1..%d)", part, config.MaxGramSize)
		}
		sizes = append(sizes, n)
	}
	return sizes, nil
}
