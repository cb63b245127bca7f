package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"arcadehall/drawbridge/pkg/audit"
	"arcadehall/drawbridge/pkg/cli"
	"arcadehall/drawbridge/pkg/config"
	"arcadehall/drawbridge/pkg/gate"
	"arcadehall/drawbridge/pkg/probe"
	"arcadehall/drawbridge/pkg/proxy"
	"arcadehall/drawbridge/pkg/router"
	"arcadehall/drawbridge/pkg/supervise"
	"arcadehall/drawbridge/pkg/telemetry/logging"
	"arcadehall/drawbridge/pkg/telemetry/metrics"
	"arcadehall/drawbridge/pkg/upstream"
)

var runFlags struct {
	listenAddress string
	logLevel      string
	dryRun        bool
}

var runCmd = &cobra.Command{
	Use:   "run",
	Short: "Start the drawbridge front door",
	Long: `Start the front door with the specified configuration.

The server serves static assets, proxies API traffic across the upstream
pool, and runs the datastore readiness gate. When a backend command is
configured it is started once the gate opens.

Examples:
  # Start with default config
  drawbridge run

  # Start with custom config
  drawbridge run --config /etc/drawbridge/config.yaml

  # Override listen address
  drawbridge run --listen 0.0.0.0:8080

  # Validate config without starting
  drawbridge run --dry-run`,
	RunE: runFrontDoor,
}

func init() {
	rootCmd.AddCommand(runCmd)

	runCmd.Flags().StringVarP(&runFlags.listenAddress, "listen", "l", "", "override listen address")
	runCmd.Flags().StringVar(&runFlags.logLevel, "log-level", "", "override log level (debug, info, warn, error)")
	runCmd.Flags().BoolVar(&runFlags.dryRun, "dry-run", false, "validate config without starting")
}

func runFrontDoor(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	if runFlags.listenAddress != "" {
		cfg.Server.ListenAddress = runFlags.listenAddress
	}
	if runFlags.logLevel != "" {
		cfg.Telemetry.Logging.Level = runFlags.logLevel
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}

	logger, err := logging.Setup(logging.Config{
		Level:     cfg.Telemetry.Logging.Level,
		Format:    cfg.Telemetry.Logging.Format,
		AddSource: cfg.Telemetry.Logging.AddSource,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	if runFlags.dryRun {
		fmt.Println("Configuration valid")
		return nil
	}

	ctx := cli.SetupSignalHandler()

	collector := metrics.NewCollector(metrics.Config{Namespace: cfg.Telemetry.Metrics.Namespace})

	// Audit trail: persistent when a path is configured, in-memory
	// otherwise so the recorder wiring stays identical.
	var recorder *audit.Recorder
	if cfg.Audit.Enabled {
		storage, err := auditStorage(cfg)
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		defer storage.Close()

		recorder = audit.NewRecorder(storage, &audit.RecorderConfig{Buffer: cfg.Audit.Buffer})
		defer recorder.Close()

		pruner := audit.NewPruner(storage, &audit.PrunerConfig{
			RetentionDays: cfg.Audit.RetentionDays,
			Schedule:      cfg.Audit.PruneSchedule,
		})
		if err := pruner.Start(ctx); err != nil {
			return cli.NewConfigError("audit.prune_schedule", err.Error())
		}
	}

	// Datastore readiness gate, driven by the probe runner.
	g := gate.New("datastore", cfg.Probe.MaxFailures, logger)
	collector.SetGateState("datastore", int(gate.StatusWaiting))

	prober, err := buildProber(cfg)
	if err != nil {
		return cli.NewConfigError("probe", err.Error())
	}

	runner := probe.NewRunner(prober, probe.RunnerConfig{
		Interval: cfg.Probe.Interval,
		Timeout:  cfg.Probe.Timeout,
	}, logger)
	runner.AddSink(g)
	runner.AddObserver(func(res probe.Result) {
		collector.ObserveProbe(res.Probe, res.Err, res.Latency)
		if recorder != nil {
			rec := audit.NewRecord(audit.KindProbe, res.Probe, probeOutcome(res))
			rec.LatencyMS = res.Latency.Milliseconds()
			recorder.Record(rec)
		}
	})
	go func() {
		if err := runner.Run(ctx); err != nil && ctx.Err() == nil {
			logger.Error("probe runner stopped", "error", err)
		}
	}()
	go watchGate(ctx, g, collector, recorder, logger)

	// Upstream pool. Endpoints register only once the gate opens; until
	// then API dispatches answer 503.
	pool := upstream.NewPool(logger)
	pool.OnChange(collector.SetPoolSize)

	backendErr := make(chan error, 1)
	go func() {
		backendErr <- openPool(ctx, cfg, g, pool, logger)
	}()

	rules, err := config.RouteRules(cfg)
	if err != nil {
		return cli.NewConfigError("routes", err.Error())
	}
	routeTable, err := router.NewTable(rules)
	if err != nil {
		return cli.NewConfigError("routes", err.Error())
	}

	forwarder := proxy.NewForwarder(pool, nil, logger)
	if recorder != nil {
		forwarder.OnDispatch(func(e upstream.Endpoint, path string, status int, latency time.Duration) {
			rec := audit.NewRecord(audit.KindDispatch, e.Addr(), path)
			rec.Status = status
			rec.LatencyMS = latency.Milliseconds()
			recorder.Record(rec)
		})
	}

	opts := proxy.Options{
		Table:          routeTable,
		Static:         proxy.NewStaticHandler(cfg.Static.Root, cfg.Static.Index),
		Forwarder:      forwarder,
		Pool:           pool,
		ObserveRequest: collector.ObserveRequest,
		Logger:         logger,
	}
	if cfg.Telemetry.Metrics.Enabled {
		opts.MetricsHandler = collector.Handler()
	}

	server := proxy.NewServer(&cfg.Server, opts)

	serverErr := make(chan error, 1)
	go func() {
		serverErr <- server.Start(ctx)
	}()

	select {
	case err := <-serverErr:
		if err != nil {
			return cli.NewCommandError("run", err)
		}
		return nil
	case err := <-backendErr:
		if err != nil {
			shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
			defer cancel()
			_ = server.Shutdown(shutdownCtx)
			return cli.NewCommandError("run", err)
		}
		// Backend finished cleanly (or none is managed); keep serving.
		return <-serverErr
	}
}

// openPool waits for the gate and then populates the pool: static
// endpoints from the config, plus the watch file when configured. When a
// backend command is managed it is supervised here and its exit is the
// return value.
func openPool(ctx context.Context, cfg *config.Config, g *gate.Gate, pool *upstream.Pool, logger *slog.Logger) error {
	// A managed backend must be running before its endpoints are
	// registered, so supervision wraps registration.
	if len(cfg.Backend.Command) > 0 {
		sup, err := supervise.New(supervise.Config{
			Command:         cfg.Backend.Command,
			Env:             cfg.Backend.Env,
			StopGracePeriod: cfg.Backend.StopGracePeriod,
		}, g, logger)
		if err != nil {
			return err
		}

		go func() {
			if err := registerWhenReady(ctx, cfg, g, pool, logger); err != nil && ctx.Err() == nil {
				logger.Error("upstream registration failed", "error", err)
			}
		}()
		return sup.Run(ctx)
	}

	return registerWhenReady(ctx, cfg, g, pool, logger)
}

func registerWhenReady(ctx context.Context, cfg *config.Config, g *gate.Gate, pool *upstream.Pool, logger *slog.Logger) error {
	if err := g.Wait(ctx); err != nil {
		return err
	}

	if cfg.Backend.HealthURL != "" {
		if err := waitHealthy(ctx, cfg, logger); err != nil {
			return err
		}
	}

	for _, e := range config.Endpoints(cfg) {
		pool.Register(e)
	}

	if cfg.Upstreams.WatchFile != "" {
		watcher, err := upstream.NewWatcher(pool, upstream.WatcherConfig{
			Path:             cfg.Upstreams.WatchFile,
			DebounceInterval: cfg.Upstreams.WatchDebounce,
		}, logger)
		if err != nil {
			return fmt.Errorf("endpoints watcher: %w", err)
		}
		if err := watcher.Start(); err != nil {
			return fmt.Errorf("endpoints watcher: %w", err)
		}
		go func() {
			<-ctx.Done()
			watcher.Stop()
		}()
	}

	return nil
}

// waitHealthy polls the backend health endpoint until it answers,
// reusing the probe machinery with the gate's failure budget.
func waitHealthy(ctx context.Context, cfg *config.Config, logger *slog.Logger) error {
	backendGate := gate.New("backend", cfg.Probe.MaxFailures, logger)
	runner := probe.NewRunner(
		probe.NewHTTPProbe("backend", cfg.Backend.HealthURL, nil),
		probe.RunnerConfig{Interval: cfg.Probe.Interval, Timeout: cfg.Probe.Timeout},
		logger,
	)
	runner.AddSink(backendGate)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = runner.Run(runCtx) }()

	return backendGate.Wait(ctx)
}

// watchGate mirrors gate transitions into metrics and the audit trail.
func watchGate(ctx context.Context, g *gate.Gate, collector *metrics.Collector, recorder *audit.Recorder, logger *slog.Logger) {
	record := func(outcome string) {
		if recorder != nil {
			recorder.Record(audit.NewRecord(audit.KindGate, "datastore", outcome))
		}
	}

	select {
	case <-g.Ready():
		collector.SetGateState("datastore", int(gate.StatusReady))
		collector.ObserveGateTransition("datastore", gate.StatusReady.String())
		record("ready")
	case <-g.Failed():
		collector.SetGateState("datastore", int(gate.StatusFailed))
		collector.ObserveGateTransition("datastore", gate.StatusFailed.String())
		record("exhausted")
		logger.Error("datastore gate exhausted its failure budget",
			"failures", g.Failures())
	case <-ctx.Done():
	}
}

func auditStorage(cfg *config.Config) (audit.Storage, error) {
	if cfg.Audit.Path == "" {
		return audit.NewMemoryStorage(), nil
	}
	return audit.NewSQLiteStorage(&audit.SQLiteConfig{Path: cfg.Audit.Path})
}

func buildProber(cfg *config.Config) (probe.Prober, error) {
	switch cfg.Probe.Kind {
	case "postgres":
		return probe.NewPostgresProbe("datastore", config.ProbeDSN(cfg))
	case "http":
		return probe.NewHTTPProbe("datastore", cfg.Probe.URL, nil), nil
	case "tcp":
		return probe.NewTCPProbe("datastore", cfg.Probe.Address), nil
	default:
		return nil, fmt.Errorf("unknown probe kind %q", cfg.Probe.Kind)
	}
}

func probeOutcome(res probe.Result) string {
	if res.Ok() {
		return "ready"
	}
	return res.Err.Error()
}
