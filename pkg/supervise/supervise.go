// Package supervise launches the backend process once its startup gate
// opens and shepherds it through shutdown.
package supervise

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"os/exec"
	"syscall"
	"time"

	"arcadehall/drawbridge/pkg/gate"
)

// Config describes the backend process to run.
type Config struct {
	// Command is the backend argv. Command[0] is the executable.
	Command []string

	// Env is extra environment in KEY=VALUE form, appended to the
	// inherited environment.
	Env []string

	// StopGracePeriod is how long the process gets between SIGTERM and
	// SIGKILL when the context is cancelled. Default: 10 seconds.
	StopGracePeriod time.Duration
}

// Supervisor runs the backend process behind a startup gate.
type Supervisor struct {
	config Config
	gate   *gate.Gate
	logger *slog.Logger
}

// New creates a supervisor for the given command and gate.
func New(config Config, g *gate.Gate, logger *slog.Logger) (*Supervisor, error) {
	if len(config.Command) == 0 {
		return nil, fmt.Errorf("backend command is empty")
	}
	if config.StopGracePeriod <= 0 {
		config.StopGracePeriod = 10 * time.Second
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Supervisor{
		config: config,
		gate:   g,
		logger: logger.With("component", "supervise"),
	}, nil
}

// Run waits for the gate, then starts the backend and blocks until it
// exits or ctx is cancelled. A cancelled context sends SIGTERM and
// escalates to SIGKILL after the grace period.
//
// If the gate ends up Failed the backend is never started and
// gate.ErrExhausted is returned.
func (s *Supervisor) Run(ctx context.Context) error {
	s.logger.Info("waiting for startup gate", "command", s.config.Command[0])

	if err := s.gate.Wait(ctx); err != nil {
		if errors.Is(err, gate.ErrExhausted) {
			s.logger.Error("startup gate exhausted, backend will not start")
		}
		return err
	}

	cmd := exec.CommandContext(ctx, s.config.Command[0], s.config.Command[1:]...)
	cmd.Env = append(os.Environ(), s.config.Env...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	cmd.Cancel = func() error {
		s.logger.Info("stopping backend", "grace_period", s.config.StopGracePeriod.String())
		return cmd.Process.Signal(syscall.SIGTERM)
	}
	cmd.WaitDelay = s.config.StopGracePeriod

	s.logger.Info("starting backend", "command", s.config.Command)
	if err := cmd.Start(); err != nil {
		return fmt.Errorf("failed to start backend: %w", err)
	}

	err := cmd.Wait()
	if err != nil && ctx.Err() == nil {
		return fmt.Errorf("backend exited: %w", err)
	}
	if err == nil {
		s.logger.Info("backend exited cleanly")
	}
	return nil
}
