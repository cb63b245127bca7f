package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"arcadehall/drawbridge/pkg/cli"
	"arcadehall/drawbridge/pkg/config"
	"arcadehall/drawbridge/pkg/gate"
	"arcadehall/drawbridge/pkg/probe"
	"arcadehall/drawbridge/pkg/telemetry/logging"
)

var waitFlags struct {
	timeout time.Duration
}

var waitCmd = &cobra.Command{
	Use:   "wait",
	Short: "Block until the datastore readiness gate resolves",
	Long: `Probe the configured datastore until the readiness gate resolves,
then exit. External supervisors run this before starting the backend.

Exit codes:
  0  the datastore is ready
  4  the failure budget was exhausted

Examples:
  drawbridge wait
  drawbridge wait --timeout 2m`,
	RunE: runWait,
}

func init() {
	rootCmd.AddCommand(waitCmd)

	waitCmd.Flags().DurationVar(&waitFlags.timeout, "timeout", 0, "overall deadline (0 means none)")
}

func runWait(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(cfgFile)
	if err != nil {
		return cli.NewConfigError("", fmt.Sprintf("failed to load config: %v", err))
	}

	logger, err := logging.Setup(logging.Config{
		Level:  cfg.Telemetry.Logging.Level,
		Format: cfg.Telemetry.Logging.Format,
	})
	if err != nil {
		return cli.NewConfigError("telemetry.logging", err.Error())
	}

	ctx := cli.SetupSignalHandler()
	if waitFlags.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, waitFlags.timeout)
		defer cancel()
	}

	prober, err := buildProber(cfg)
	if err != nil {
		return cli.NewConfigError("probe", err.Error())
	}

	g := gate.New("datastore", cfg.Probe.MaxFailures, logger)
	runner := probe.NewRunner(prober, probe.RunnerConfig{
		Interval: cfg.Probe.Interval,
		Timeout:  cfg.Probe.Timeout,
	}, logger)
	runner.AddSink(g)

	runCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	go func() { _ = runner.Run(runCtx) }()

	if err := g.Wait(ctx); err != nil {
		return err
	}

	fmt.Println("datastore ready")
	return nil
}
