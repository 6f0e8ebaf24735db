package cli

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/praballama89182-collab/NGRAM/config"
	"github.com/praballama89182-collab/NGRAM/internal/analysis"
	"github.com/praballama89182-collab/NGRAM/internal/httpx"
	"github.com/praballama89182-collab/NGRAM/internal/telemetry"
)

var flagAddr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the HTTP analysis server",
	Long: `Serve exposes POST /v1/analyze (multipart report upload, workbook
download), /healthz, /readyz, and Prometheus /metrics.`,
	RunE: runServe,
}

func init() {
	serveCmd.Flags().StringVar(&flagAddr, "addr", "", "listen address (default :8080)")
	rootCmd.AddCommand(serveCmd)
}

func runServe(cmd *cobra.Command, args []string) error {
	addr := config.DefaultHTTPAddr
	if cfg != nil && cfg.HTTPAddr != "" {
		addr = cfg.HTTPAddr
	}
	if cmd.Flags().Changed("addr") {
		addr = flagAddr
	}

	aliases, err := analysisDefaults()
	if err != nil {
		return err
	}
	defaults := analysis.Params{ExtraAliases: aliases}
	var opts httpx.Options
	if cfg != nil {
		defaults.Brand = cfg.Brand
		defaults.GramSizes = cfg.GramSizes
		defaults.WastedSpendMin = cfg.WastedSpendMin
		defaults.TopK = cfg.TopK
		defaults.ACOSLimit = cfg.ACOSLimit
		defaults.DedupeWithinRow = cfg.DedupeWithinRow
		opts.MaxUploadBytes = cfg.MaxUploadBytes
		opts.MaxReportRows = cfg.MaxReportRows
	}
	opts.Defaults = defaults

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	metrics := telemetry.NewMetrics(reg)

	srv := &http.Server{
		Addr:    addr,
		Handler: httpx.NewRouter(logger, metrics, reg, opts),
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info().Str("addr", addr).Msg("http server listening")
		errCh <- srv.ListenAndServe()
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-errCh:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	case sig := <-stop:
		logger.Info().Str("signal", sig.String()).Msg("shutting down")
		ctx, cancel := context.WithTimeout(context.Background(), config.DefaultHTTPShutdownTimeout)
		defer cancel()
		return srv.Shutdown(ctx)
	}
}
