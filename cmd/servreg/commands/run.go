package commands

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/spf13/cobra"

	"github.com/junioryono/servreg"
	"github.com/junioryono/servreg/config"
	"github.com/junioryono/servreg/container"
	"github.com/junioryono/servreg/hosting"
)

var (
	runFor        time.Duration
	runAll        bool
	heartbeatTick time.Duration
)

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Run the demo host",
	Long: `Run a host with one demo component per role until interrupted.

Which roles are registered and how setups run come from the
ServiceRegistrationOptions and AsyncSetupServicesOptions sections of the
config file. Without a config file every role is registered.

Examples:
  # Run until Ctrl+C with defaults
  servreg run

  # Run for ten seconds with debug logging
  SERVREG_LOGGING_LEVEL=DEBUG servreg run --for 10s`,
	RunE: runHost,
}

func init() {
	runCmd.Flags().DurationVar(&runFor, "for", 0, "Stop after this duration (0 runs until interrupted)")
	runCmd.Flags().BoolVar(&runAll, "all", false, "Register every role regardless of the config file")
	runCmd.Flags().DurationVar(&heartbeatTick, "heartbeat", 2*time.Second, "Interval of the demo heartbeat")
}

func runHost(cmd *cobra.Command, args []string) error {
	src, err := config.Open(cfgFile)
	if err != nil {
		return err
	}
	cfg, err := src.Config()
	if err != nil {
		return err
	}

	logger, err := cfg.Logging.NewLogger(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	slog.SetDefault(logger)

	source := src.File()
	if source == "" {
		source = "defaults"
	}
	logger.Info("configuration loaded", "source", source, "level", cfg.Logging.Level)

	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	if runFor > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, runFor)
		defer cancel()
	}

	tp, shutdownTracing, err := newTracerProvider(ctx, cfg.Tracing, logger)
	if err != nil {
		return err
	}
	defer func() {
		if err := shutdownTracing(context.Background()); err != nil {
			logger.Error("tracing shutdown error", "error", err)
		}
	}()

	catalog, err := demoCatalog(logger, heartbeatTick)
	if err != nil {
		return err
	}

	orchOpts := []servreg.Option{
		servreg.WithLogger(logger),
		servreg.WithTracerProvider(tp),
	}

	var reg *prometheus.Registry
	if cfg.Metrics.Enabled {
		reg = prometheus.NewRegistry()
		reg.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		orchOpts = append(orchOpts, servreg.WithMetrics(servreg.NewMetrics(reg)))
	}

	c := container.New(container.WithLogger(logger))
	defer func() {
		if err := c.Close(); err != nil {
			logger.Warn("container close error", "error", err)
		}
	}()
	lt := hosting.NewLifetime()

	b := servreg.NewBuilder().
		UseCatalog(catalog).
		ConfigureRegistrationOptionsFrom(src).
		ConfigureSetupOptionsFrom(src).
		WithRegistrarOptions(servreg.WithRegistrarLogger(logger)).
		WithOrchestratorOptions(orchOpts...)
	if runAll || src.File() == "" {
		b.RegisterAllServices()
	}

	orch, err := b.Build(c, lt)
	if err != nil {
		return err
	}

	regs := orch.Registries()
	logger.Info("components registered",
		"bindings", c.Len(),
		"setups", len(regs.AsyncSetup),
		"resolver_setups", len(regs.AsyncSetupWithResolver),
		"hosted", len(regs.LifetimeHosted),
		"disposables", len(regs.Disposables)+len(regs.AsyncDisposables),
		"order", orch.Options().Order())

	var metricsSrv *http.Server
	if reg != nil {
		metricsSrv = serveTelemetry(cfg.Metrics, newRouter(cfg.Metrics.Path, reg, orch.State, logger), logger)
	}

	runErr := hosting.RunWithSignals(ctx, orch, lt, hosting.RunOptions{
		ShutdownTimeout: cfg.ShutdownTimeout,
		Logger:          logger,
	})

	if metricsSrv != nil {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := metricsSrv.Shutdown(shutdownCtx); err != nil {
			logger.Warn("metrics server shutdown error", "error", err)
		}
	}

	return runErr
}
