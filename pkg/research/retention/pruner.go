// Package retention prunes old research task records on a cron schedule.
package retention

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"

	"zoi/sentinel/pkg/research/storage"
)

// Config configures retention.
type Config struct {
	// RetentionDays is how long task records are kept. 0 keeps them forever.
	RetentionDays int

	// MaxRecords caps the number of records kept. 0 means unlimited.
	MaxRecords int64

	// Schedule is a standard cron expression, e.g. "0 3 * * *".
	// Empty disables scheduled pruning.
	Schedule string
}

// DefaultConfig returns the default retention configuration.
func DefaultConfig() Config {
	return Config{RetentionDays: 30, Schedule: "0 3 * * *"}
}

// Pruner deletes task records that fall outside the retention policy.
type Pruner struct {
	store  storage.Store
	config Config
	logger *slog.Logger
	now    func() time.Time

	mu      sync.Mutex
	cron    *cron.Cron
	running bool
}

// NewPruner creates a pruner over store.
func NewPruner(store storage.Store, config Config) *Pruner {
	return &Pruner{
		store:  store,
		config: config,
		logger: slog.Default().With("component", "research.retention"),
		now:    time.Now,
	}
}

// Prune applies the age limit, then the count limit, and returns the number
// of records deleted.
func (p *Pruner) Prune(ctx context.Context) (int64, error) {
	var total int64

	if p.config.RetentionDays > 0 {
		cutoff := p.now().AddDate(0, 0, -p.config.RetentionDays)
		n, err := p.store.DeleteBefore(ctx, cutoff)
		if err != nil {
			return total, fmt.Errorf("prune by age: %w", err)
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned task records by age", "deleted", n, "cutoff", cutoff)
		}
	}

	if p.config.MaxRecords > 0 {
		n, err := p.store.DeleteOldest(ctx, p.config.MaxRecords)
		if err != nil {
			return total, fmt.Errorf("prune by count: %w", err)
		}
		total += n
		if n > 0 {
			p.logger.Info("pruned task records by count", "deleted", n, "max_records", p.config.MaxRecords)
		}
	}

	return total, nil
}

// Start schedules Prune. It returns immediately; the schedule stops when ctx
// is cancelled or Stop is called. An empty schedule is a no-op.
func (p *Pruner) Start(ctx context.Context) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.config.Schedule == "" {
		p.logger.Info("prune schedule not configured, skipping scheduler")
		return nil
	}
	if p.running {
		return nil
	}
	if _, err := cron.ParseStandard(p.config.Schedule); err != nil {
		return fmt.Errorf("invalid cron schedule %q: %w", p.config.Schedule, err)
	}

	p.cron = cron.New()
	if _, err := p.cron.AddFunc(p.config.Schedule, func() { p.run(ctx) }); err != nil {
		return fmt.Errorf("failed to schedule pruning: %w", err)
	}
	p.cron.Start()
	p.running = true

	p.logger.Info("retention scheduler started",
		"schedule", p.config.Schedule,
		"retention_days", p.config.RetentionDays,
		"max_records", p.config.MaxRecords,
	)

	go func() {
		<-ctx.Done()
		p.Stop()
	}()
	return nil
}

func (p *Pruner) run(ctx context.Context) {
	deleted, err := p.Prune(ctx)
	if err != nil {
		p.logger.Error("scheduled pruning failed", "error", err)
		return
	}
	p.logger.Debug("scheduled pruning completed", "deleted", deleted)
}

// Stop stops the schedule and waits for a running prune to finish.
func (p *Pruner) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return
	}
	<-p.cron.Stop().Done()
	p.running = false
	p.logger.Info("retention scheduler stopped")
}

// NextRun returns the next scheduled prune, or the zero time when not
// scheduled.
func (p *Pruner) NextRun() time.Time {
	p.mu.Lock()
	defer p.mu.Unlock()
	if !p.running {
		return time.Time{}
	}
	entries := p.cron.Entries()
	if len(entries) == 0 {
		return time.Time{}
	}
	return entries[0].Next
}
