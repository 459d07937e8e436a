package cmd

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rustyeddy/riskgate/config"
	"github.com/rustyeddy/riskgate/logging"
	"github.com/rustyeddy/riskgate/metrics"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the execution loop",
	Long: `Run the risk-gated execution loop with settings from a configuration file.

The loop polls the broker every execution.poll_interval. On SIGINT or SIGTERM
it stops polling, flattens any open position and exits.

Example:
  riskgate run -c riskgate.yaml`,
	Args: cobra.NoArgs,
	RunE: runRun,
}

var runMetricsAddr string

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVar(&runMetricsAddr, "metrics-addr", "", "serve metrics on this address (overrides metrics.addr)")
}

func runRun(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFromFile(configPath)
	if err != nil {
		return fmt.Errorf("load config: %w", err)
	}
	if runMetricsAddr != "" {
		cfg.Metrics.Enabled = true
		cfg.Metrics.Addr = runMetricsAddr
	}

	log, syncLog, err := logging.New(cfg.LoggingOptions())
	if err != nil {
		return fmt.Errorf("logging: %w", err)
	}
	defer syncLog()
	slog.SetDefault(log)

	ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := buildApp(ctx, cfg, log)
	if err != nil {
		log.Error("startup failed", "err", err)
		return err
	}
	defer a.Close()

	if err := a.gate.Reconcile(ctx); err != nil {
		log.Error("startup reconcile failed", "err", err)
		return err
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return a.gate.Run(gctx)
	})
	if cfg.Metrics.Enabled {
		serveMetrics(gctx, g, cfg.Metrics, a.metrics, log)
	}

	err = g.Wait()
	snap := a.gate.Snapshot()
	log.Info("riskgate stopped",
		"state", a.gate.State().String(),
		"position", snap.Position.Quantity,
		"realized", snap.RealizedPnL.String(),
		"equity", snap.Equity.String(),
	)
	return err
}

// serveMetrics runs the metrics endpoint until ctx is done. A listen failure
// cancels ctx, which stops the gate.
func serveMetrics(ctx context.Context, g *errgroup.Group, cfg config.MetricsConfig, m *metrics.Metrics, log *slog.Logger) {
	if cfg.Path == "" {
		cfg.Path = "/metrics"
	}
	mux := http.NewServeMux()
	mux.Handle(cfg.Path, m.Handler())
	srv := &http.Server{
		Addr:              cfg.Addr,
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
	}

	g.Go(func() error {
		log.Info("metrics listening", "addr", cfg.Addr, "path", cfg.Path)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("metrics server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		sctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(sctx)
	})
}
