package audit

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

// PrunerConfig contains configuration for scheduled retention pruning.
type PrunerConfig struct {
	// RetentionDays is how long records are kept. Zero disables pruning.
	RetentionDays int

	// Schedule is a standard cron expression, e.g. "0 3 * * *" for
	// daily at 3 AM. Empty disables the scheduler.
	Schedule string
}

// Pruner deletes audit records older than the retention window on a
// cron schedule.
type Pruner struct {
	storage Storage
	config  *PrunerConfig

	cron    *cron.Cron
	mu      sync.Mutex
	running bool

	logger *slog.Logger
}

// NewPruner creates a pruner over the given storage.
func NewPruner(storage Storage, config *PrunerConfig) *Pruner {
	return &Pruner{
		storage: storage,
		config:  config,
		cron:    cron.New(),
		logger:  slog.Default().With("component", "audit.pruner"),
	}
}

// Start schedules pruning runs. It returns an error for an invalid cron
// expression and does nothing when the schedule or retention is unset.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" || p.config.RetentionDays <= 0 {
		p.logger.Info("retention pruning not configured, skipping scheduler")
		return nil
	}

	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid prune schedule %q: %w", p.config.Schedule, err)
	}

	if _, err := p.cron.AddFunc(p.config.Schedule, func() {
		p.runOnce(ctx)
	}); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}

	p.cron.Start()
	p.running = true

	p.logger.Info("retention pruner started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()

	return nil
}

// Stop halts the scheduler. Safe to call when not running.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()

	if !p.running {
		return
	}
	stopCtx := p.cron.Stop()
	<-stopCtx.Done()
	p.running = false
	p.logger.Info("retention pruner stopped")
}

// Prune deletes records older than the retention window immediately.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	cutoff := time.Now().UTC().AddDate(0, 0, -p.config.RetentionDays)
	return p.storage.DeleteOlderThan(ctx, cutoff)
}

func (p *Pruner) runOnce(ctx context.Context) {
	removed, err := p.Prune(ctx)
	if err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	p.logger.Info("scheduled pruning completed", "removed", removed)
}
