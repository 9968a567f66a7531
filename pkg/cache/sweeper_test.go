package cache

import (
	"context"
	"testing"
	"time"
)

func TestSweeper_Sweep(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := newClock()
			c := New(store, WithClock(clk.Now))

			_ = c.Set(ctx, "old", record("old", 80))
			clk.Advance(100 * time.Hour)
			_ = c.Set(ctx, "stale", record("stale", 80))
			clk.Advance(70 * time.Hour)
			_ = c.Set(ctx, "fresh", record("fresh", 80))

			s := NewSweeper(c, 168*time.Hour, "")
			n, err := s.Sweep(ctx)
			if err != nil {
				t.Fatalf("Sweep() error = %v", err)
			}
			if n != 1 {
				t.Errorf("Sweep() = %d, want 1", n)
			}
			if _, ok := c.Peek(ctx, "old"); ok {
				t.Error("old entry survived sweep")
			}
			if _, ok := c.Peek(ctx, "stale"); !ok {
				t.Error("stale entry within retention was swept")
			}
		})
	}
}

func TestSweeper_Schedule(t *testing.T) {
	s := NewSweeper(New(NewMemoryStore()), 0, "*/30 * * * *")
	if err := s.Start(context.Background()); err != nil {
		t.Fatalf("Start() error = %v", err)
	}
	if err := s.Start(context.Background()); err == nil {
		t.Error("second Start() error = nil")
	}

	next := s.NextRun()
	if next.IsZero() || next.Minute()%30 != 0 {
		t.Errorf("NextRun() = %v", next)
	}
	s.Stop()
	s.Stop()
	if !s.NextRun().IsZero() {
		t.Error("NextRun() after Stop should be zero")
	}
}

func TestSweeper_InvalidSchedule(t *testing.T) {
	s := NewSweeper(New(NewMemoryStore()), time.Hour, "half past never")
	if err := s.Start(context.Background()); err == nil {
		s.Stop()
		t.Fatal("Start() error = nil for invalid schedule")
	}
}
