package research

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	mocks "zoi/sentinel/internal/providers"
	"zoi/sentinel/pkg/providers"
)

type runnerFunc func(ctx context.Context, req Request) *Outcome

func (f runnerFunc) Run(ctx context.Context, req Request) *Outcome { return f(ctx, req) }

func waitFor(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() {
		if time.Now().After(deadline) {
			t.Fatal("condition not met in time")
		}
		time.Sleep(time.Millisecond)
	}
}

func TestSupervisor_ScheduleDedupes(t *testing.T) {
	fb := &mocks.FakeBackend{
		Gate:    make(chan struct{}),
		Results: []*providers.PollResult{mocks.Completed(acaiAnswer())},
	}
	f := newFixture(fb, time.Second)

	var mu sync.Mutex
	var outcomes []*Outcome
	sup := NewSupervisor(f.orch, SupervisorConfig{
		OnDone: func(o *Outcome) {
			mu.Lock()
			outcomes = append(outcomes, o)
			mu.Unlock()
		},
	})

	if !sup.Schedule(Request{Key: "acai"}) {
		t.Fatal("first Schedule(acai) = false")
	}
	if sup.Schedule(Request{Key: "acai"}) {
		t.Error("second Schedule(acai) = true while pending")
	}
	if !sup.Schedule(Request{Key: "cafe"}) {
		t.Error("Schedule(cafe) = false")
	}
	if !sup.Pending("acai") {
		t.Error("Pending(acai) = false")
	}

	close(fb.Gate)
	if err := sup.Close(context.Background()); err != nil {
		t.Fatalf("Close() = %v", err)
	}

	if len(outcomes) != 2 {
		t.Fatalf("outcomes = %d, want 2", len(outcomes))
	}
	for _, o := range outcomes {
		if !o.OK() || !o.Task.Background {
			t.Errorf("outcome %s = %s background=%v", o.Task.Key, o.Task.Status, o.Task.Background)
		}
	}
	if fb.Submits() != 2 {
		t.Errorf("Submits() = %d, want 2", fb.Submits())
	}
	if sup.Pending("acai") {
		t.Error("Pending(acai) after completion")
	}
	if sup.Schedule(Request{Key: "acai"}) {
		t.Error("Schedule after Close = true")
	}
}

func TestSupervisor_BoundsConcurrency(t *testing.T) {
	fb := &mocks.FakeBackend{
		Gate:    make(chan struct{}),
		Results: []*providers.PollResult{mocks.Completed(acaiAnswer())},
	}
	f := newFixture(fb, time.Second)
	sup := NewSupervisor(f.orch, SupervisorConfig{MaxConcurrent: 1, Metrics: f.metrics})

	for _, key := range []string{"acai", "cafe", "soja_grao"} {
		sup.Schedule(Request{Key: key})
	}

	waitFor(t, func() bool { return fb.Submits() == 1 })
	time.Sleep(20 * time.Millisecond)
	if n := fb.Submits(); n != 1 {
		t.Errorf("Submits() = %d with MaxConcurrent 1", n)
	}
	if n := sup.InFlight(); n != 1 {
		t.Errorf("InFlight() = %d, want 1", n)
	}

	close(fb.Gate)
	if err := sup.Close(context.Background()); err != nil {
		t.Fatalf("Close() = %v", err)
	}
	if fb.Submits() != 3 || sup.InFlight() != 0 {
		t.Errorf("Submits/InFlight = %d/%d", fb.Submits(), sup.InFlight())
	}

	f.metrics.mu.Lock()
	defer f.metrics.mu.Unlock()
	for _, n := range f.metrics.inFlight {
		if n > 1 {
			t.Errorf("in-flight gauge reached %d", n)
		}
	}
}

func TestSupervisor_RunSharesAttempt(t *testing.T) {
	gate := make(chan struct{})
	var calls atomic.Int32
	runner := runnerFunc(func(ctx context.Context, req Request) *Outcome {
		calls.Add(1)
		<-gate
		return &Outcome{Task: Task{Key: req.Key, Status: StatusCompleted}}
	})
	var done atomic.Int32
	sup := NewSupervisor(runner, SupervisorConfig{OnDone: func(*Outcome) { done.Add(1) }})

	var wg sync.WaitGroup
	results := make([]*Outcome, 2)
	wg.Go(func() { results[0] = sup.Run(context.Background(), Request{Key: "acai"}) })
	waitFor(t, func() bool { return calls.Load() == 1 })
	wg.Go(func() { results[1] = sup.Run(context.Background(), Request{Key: "acai"}) })

	time.Sleep(20 * time.Millisecond)
	close(gate)
	wg.Wait()

	if calls.Load() != 1 {
		t.Errorf("runner calls = %d, want 1", calls.Load())
	}
	if results[0] != results[1] {
		t.Error("callers received different outcomes")
	}
	if done.Load() != 1 {
		t.Errorf("OnDone calls = %d, want 1", done.Load())
	}
	if err := sup.Close(context.Background()); err != nil {
		t.Fatalf("Close() = %v", err)
	}
}

func TestSupervisor_RunCallerTimeout(t *testing.T) {
	gate := make(chan struct{})
	runner := runnerFunc(func(ctx context.Context, req Request) *Outcome {
		<-gate
		return &Outcome{Task: Task{Key: req.Key, Status: StatusCompleted}}
	})
	sup := NewSupervisor(runner, SupervisorConfig{})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	out := sup.Run(ctx, Request{Key: "acai"})
	if out.Task.Status != StatusTimedOut || out.Task.Reason != ReasonTimedOut {
		t.Errorf("task = %s/%s, want TIMED_OUT", out.Task.Status, out.Task.Reason)
	}
	if !errors.Is(out.Err, context.DeadlineExceeded) {
		t.Errorf("Err = %v", out.Err)
	}

	close(gate)
	if err := sup.Close(context.Background()); err != nil {
		t.Fatalf("Close() = %v", err)
	}
}

func TestSupervisor_CloseCancelsStragglers(t *testing.T) {
	var cancelled atomic.Bool
	runner := runnerFunc(func(ctx context.Context, req Request) *Outcome {
		<-ctx.Done()
		cancelled.Store(true)
		return &Outcome{Task: Task{Key: req.Key, Status: StatusFailed, Reason: ReasonCancelled}}
	})
	sup := NewSupervisor(runner, SupervisorConfig{})
	sup.Schedule(Request{Key: "acai"})
	waitFor(t, func() bool { return sup.InFlight() == 1 })

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := sup.Close(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Errorf("Close() = %v, want deadline exceeded", err)
	}
	if !cancelled.Load() {
		t.Error("running task was not cancelled")
	}

	out := sup.Run(context.Background(), Request{Key: "cafe"})
	if !errors.Is(out.Err, ErrClosed) {
		t.Errorf("Run after Close: Err = %v", out.Err)
	}
}
