// Package gate implements the startup-readiness gate that sequences a
// dependent process behind an asynchronously-ready dependency.
//
// The gate is a small state machine driven by probe results:
//
//	Waiting → Ready   (exactly once, irreversible)
//	Waiting → Failed  (terminal, after the failure budget is exhausted)
//
// Readiness, once achieved, is never re-checked: a later failed probe is
// ignored. The Failed verdict is the only condition in the system allowed
// to be fatal, and only during startup sequencing.
package gate

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"
)

// Status is the gate's current state. Transitions are monotonic: once a
// terminal state (Ready or Failed) is reached, the status never changes.
type Status int32

const (
	// StatusWaiting means no successful probe has been observed yet.
	StatusWaiting Status = iota

	// StatusReady means the dependency accepted a probe; the dependent
	// process may start.
	StatusReady

	// StatusFailed means the failure budget was exhausted before any
	// successful probe. Terminal: the dependent process is never started.
	StatusFailed
)

// String returns the status name for logs.
func (s Status) String() string {
	switch s {
	case StatusWaiting:
		return "waiting"
	case StatusReady:
		return "ready"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// ErrExhausted is returned by Wait when the gate reached Failed.
// The CLI maps it to a distinct exit code so an orchestrating supervisor
// can tell "dependency never became ready" apart from other failures.
var ErrExhausted = errors.New("gate: dependency readiness attempts exhausted")

// Gate blocks a dependent process until its dependency is ready.
//
// Report is the single write path and is normally called by a probe
// runner; State, Wait, Ready and Failed may be called from any goroutine.
// The state word is atomic, so no reader ever observes a stale Waiting
// after a true Ready transition.
type Gate struct {
	state atomic.Int32

	mu       sync.Mutex
	failures int

	maxFailures int

	ready  chan struct{}
	failed chan struct{}

	logger *slog.Logger
}

// New creates a gate that tolerates up to maxFailures unsuccessful probe
// reports before declaring Failed. The maxFailures+1'th consecutive
// failure without an intervening success is terminal.
func New(name string, maxFailures int, logger *slog.Logger) *Gate {
	if logger == nil {
		logger = slog.Default()
	}
	return &Gate{
		maxFailures: maxFailures,
		ready:       make(chan struct{}),
		failed:      make(chan struct{}),
		logger:      logger.With("component", "gate", "gate", name),
	}
}

// Report feeds one probe result into the gate. A nil error is a
// successful probe. Reports after a terminal state are ignored.
//
// Report implements probe.Sink.
func (g *Gate) Report(err error) {
	if s := g.State(); s != StatusWaiting {
		// Readiness is not re-checked; terminal states never revert.
		g.logger.Debug("probe report ignored in terminal state",
			"state", s.String(),
			"probe_ok", err == nil,
		)
		return
	}

	if err == nil {
		if g.state.CompareAndSwap(int32(StatusWaiting), int32(StatusReady)) {
			close(g.ready)
			g.logger.Info("dependency ready, releasing dependent process")
		}
		return
	}

	g.mu.Lock()
	g.failures++
	failures := g.failures
	g.mu.Unlock()

	g.logger.Warn("dependency not ready",
		"error", err,
		"failures", failures,
		"max_failures", g.maxFailures,
	)

	if failures > g.maxFailures {
		if g.state.CompareAndSwap(int32(StatusWaiting), int32(StatusFailed)) {
			close(g.failed)
			g.logger.Error("readiness budget exhausted, dependent process will not start",
				"failures", failures,
			)
		}
	}
}

// State returns the current gate status.
func (g *Gate) State() Status {
	return Status(g.state.Load())
}

// Failures returns the number of unsuccessful probes observed so far.
func (g *Gate) Failures() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.failures
}

// Ready returns a channel closed when the gate transitions to Ready.
func (g *Gate) Ready() <-chan struct{} {
	return g.ready
}

// Failed returns a channel closed when the gate transitions to Failed.
func (g *Gate) Failed() <-chan struct{} {
	return g.failed
}

// Wait blocks until the gate reaches a terminal state or the context is
// cancelled. It returns nil on Ready, ErrExhausted on Failed, and the
// context error on cancellation.
func (g *Gate) Wait(ctx context.Context) error {
	select {
	case <-g.ready:
		return nil
	case <-g.failed:
		return ErrExhausted
	case <-ctx.Done():
		return ctx.Err()
	}
}
