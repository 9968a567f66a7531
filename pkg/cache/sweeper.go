package cache

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/robfig/cron/v3"
)

const (
	DefaultSweepSchedule  = "*/30 * * * *"
	DefaultStaleRetention = 168 * time.Hour
)

// Sweeper evicts entries that are too old to serve even as a stale
// fallback.
type Sweeper struct {
	cache     *Cache
	retention time.Duration
	schedule  string
	logger    *slog.Logger

	mu      sync.Mutex
	cron    *cron.Cron
	entryID cron.EntryID
	cancel  context.CancelFunc
}

// NewSweeper creates a sweeper. Zero arguments take the defaults.
func NewSweeper(c *Cache, retention time.Duration, schedule string) *Sweeper {
	if retention <= 0 {
		retention = DefaultStaleRetention
	}
	if schedule == "" {
		schedule = DefaultSweepSchedule
	}
	return &Sweeper{
		cache:     c,
		retention: retention,
		schedule:  schedule,
		logger:    slog.Default().With("component", "cache.sweeper"),
	}
}

// Sweep runs one eviction pass.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	start := time.Now()
	n, err := s.cache.Evict(ctx, s.retention)
	if err != nil {
		s.logger.Error("cache sweep failed", "error", err)
		return 0, err
	}
	s.logger.Info("cache sweep completed",
		"evicted", n,
		"retention", s.retention,
		"duration", time.Since(start),
	)
	return n, nil
}

// Start schedules Sweep. It returns an error if the schedule does not
// parse or the sweeper is already running.
func (s *Sweeper) Start(ctx context.Context) error {
	sched, err := cron.ParseStandard(s.schedule)
	if err != nil {
		return fmt.Errorf("invalid sweep schedule %q: %w", s.schedule, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron != nil {
		return fmt.Errorf("sweeper already running")
	}

	ctx, cancel := context.WithCancel(ctx)
	s.cancel = cancel
	s.cron = cron.New()
	s.entryID = s.cron.Schedule(sched, cron.FuncJob(func() {
		_, _ = s.Sweep(ctx)
	}))
	s.cron.Start()

	s.logger.Info("cache sweeper started", "schedule", s.schedule, "next_run", s.cron.Entry(s.entryID).Next)
	return nil
}

// Stop halts the schedule and waits for a running sweep.
func (s *Sweeper) Stop() {
	s.mu.Lock()
	c, cancel := s.cron, s.cancel
	s.cron, s.cancel = nil, nil
	s.mu.Unlock()

	if c == nil {
		return
	}
	cancel()
	<-c.Stop().Done()
	s.logger.Info("cache sweeper stopped")
}

// NextRun returns the next scheduled sweep, or the zero time when stopped.
func (s *Sweeper) NextRun() time.Time {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.cron == nil {
		return time.Time{}
	}
	return s.cron.Entry(s.entryID).Next
}
