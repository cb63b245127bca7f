package probe

import (
	"context"
	"log/slog"
	"time"
)

// RunnerConfig contains configuration for the periodic probe runner.
type RunnerConfig struct {
	// Interval is the fixed polling interval between attempts.
	// Default: 2 seconds.
	Interval time.Duration

	// Timeout is the per-attempt budget. An attempt that exceeds it is
	// reported as a failure; it never blocks the runner past the budget.
	// Default: 1 second.
	Timeout time.Duration
}

// Runner drives a Prober on a fixed interval and reports every result to
// its sinks. It runs independently of any caller and never blocks the
// request path: sinks are expected to be non-blocking (the gate's Report
// and the metrics observer both are).
type Runner struct {
	prober    Prober
	config    RunnerConfig
	sinks     []Sink
	observers []func(Result)
	logger    *slog.Logger
}

// NewRunner creates a runner for the given prober.
func NewRunner(prober Prober, config RunnerConfig, logger *slog.Logger) *Runner {
	if config.Interval <= 0 {
		config.Interval = 2 * time.Second
	}
	if config.Timeout <= 0 {
		config.Timeout = time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		prober: prober,
		config: config,
		logger: logger.With("component", "probe.runner", "probe", prober.Name()),
	}
}

// AddSink registers a sink for probe results. Must be called before Run.
func (r *Runner) AddSink(s Sink) {
	r.sinks = append(r.sinks, s)
}

// AddObserver registers a callback receiving the full Result, including
// latency. Must be called before Run. Used for metrics and audit.
func (r *Runner) AddObserver(fn func(Result)) {
	r.observers = append(r.observers, fn)
}

// Run probes immediately, then on every interval tick, until ctx is
// cancelled. It always returns nil after a cancellation: stopping the
// runner is not an error.
func (r *Runner) Run(ctx context.Context) error {
	r.logger.Info("probe runner started",
		"interval", r.config.Interval,
		"timeout", r.config.Timeout,
	)

	ticker := time.NewTicker(r.config.Interval)
	defer ticker.Stop()

	// First attempt runs immediately so a ready dependency does not cost
	// a full interval of startup latency.
	r.attempt(ctx)

	for {
		select {
		case <-ctx.Done():
			r.logger.Debug("probe runner stopped")
			return nil
		case <-ticker.C:
			r.attempt(ctx)
		}
	}
}

// attempt performs one probe with the per-attempt timeout and fans the
// result out to sinks and observers.
func (r *Runner) attempt(ctx context.Context) {
	attemptCtx, cancel := context.WithTimeout(ctx, r.config.Timeout)
	defer cancel()

	start := time.Now()
	err := r.prober.Probe(attemptCtx)
	latency := time.Since(start)

	// A cancelled parent context means shutdown, not unreadiness.
	if ctx.Err() != nil {
		return
	}

	if err != nil {
		r.logger.Debug("probe attempt failed", "error", err, "latency", latency)
	} else {
		r.logger.Debug("probe attempt succeeded", "latency", latency)
	}

	result := Result{Probe: r.prober.Name(), Err: err, Latency: latency}
	for _, s := range r.sinks {
		s.Report(err)
	}
	for _, fn := range r.observers {
		fn(result)
	}
}
