package research

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"sync/atomic"

	"golang.org/x/sync/singleflight"
)

// DefaultMaxConcurrent bounds concurrently running background tasks.
const DefaultMaxConcurrent = 4

// ErrClosed is returned by a Supervisor after Close.
var ErrClosed = errors.New("research supervisor closed")

// Runner runs one research attempt.
type Runner interface {
	Run(ctx context.Context, req Request) *Outcome
}

// SupervisorConfig tunes a Supervisor.
type SupervisorConfig struct {
	// MaxConcurrent bounds running background tasks. Extra requests queue.
	MaxConcurrent int

	// OnDone is called with the outcome of every run, background or not,
	// before the run is reported finished.
	OnDone func(*Outcome)

	Metrics Metrics
}

// Supervisor owns research goroutines. Background runs are deduplicated
// per key; concurrent synchronous runs for the same key share one attempt.
// All runs stop when Close gives up waiting.
type Supervisor struct {
	runner  Runner
	onDone  func(*Outcome)
	metrics Metrics
	logger  *slog.Logger

	sem   chan struct{}
	group singleflight.Group
	wg    sync.WaitGroup

	ctx    context.Context
	cancel context.CancelFunc

	mu      sync.Mutex
	closed  bool
	pending map[string]struct{}

	inFlight atomic.Int64
}

// NewSupervisor creates a supervisor over runner.
func NewSupervisor(runner Runner, cfg SupervisorConfig) *Supervisor {
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.OnDone == nil {
		cfg.OnDone = func(*Outcome) {}
	}
	if cfg.Metrics == nil {
		cfg.Metrics = noopMetrics{}
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Supervisor{
		runner:  runner,
		onDone:  cfg.OnDone,
		metrics: cfg.Metrics,
		logger:  slog.Default().With("component", "research.supervisor"),
		sem:     make(chan struct{}, cfg.MaxConcurrent),
		ctx:     ctx,
		cancel:  cancel,
		pending: make(map[string]struct{}),
	}
}

// Schedule starts a background run for req unless one is already pending
// for req.Key. It reports whether a new run was started.
func (s *Supervisor) Schedule(req Request) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	if _, ok := s.pending[req.Key]; ok {
		return false
	}
	s.pending[req.Key] = struct{}{}
	s.wg.Add(1)

	req.Background = true
	go func() {
		defer s.wg.Done()
		defer s.release(req.Key)

		select {
		case s.sem <- struct{}{}:
		case <-s.ctx.Done():
			s.logger.Warn("background research dropped at shutdown", "key", req.Key)
			return
		}
		defer func() { <-s.sem }()

		s.track(1)
		defer s.track(-1)
		s.onDone(s.runner.Run(s.ctx, req))
	}()
	return true
}

// Run performs a synchronous run and waits for it. Callers that arrive
// while a synchronous run for the same key is in progress share its
// outcome. If ctx ends first, Run returns an outcome carrying ctx's error
// and the shared attempt continues under its own deadline.
func (s *Supervisor) Run(ctx context.Context, req Request) *Outcome {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return &Outcome{Task: Task{Key: req.Key, Status: StatusFailed, Reason: ReasonCancelled}, Err: ErrClosed}
	}
	s.wg.Add(1)
	s.mu.Unlock()

	req.Background = false
	ch := s.group.DoChan(req.Key, func() (any, error) {
		out := s.runner.Run(s.ctx, req)
		s.onDone(out)
		return out, nil
	})

	select {
	case res := <-ch:
		s.wg.Done()
		return res.Val.(*Outcome)
	case <-ctx.Done():
		go func() {
			<-ch
			s.wg.Done()
		}()
		reason := ReasonCancelled
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			reason = ReasonTimedOut
		}
		return &Outcome{
			Task: Task{Key: req.Key, Status: statusFor(reason), Reason: reason},
			Err:  ctx.Err(),
		}
	}
}

// Pending reports whether a background run is pending for key.
func (s *Supervisor) Pending(key string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.pending[key]
	return ok
}

// InFlight returns the number of background runs currently executing.
func (s *Supervisor) InFlight() int {
	return int(s.inFlight.Load())
}

// Close stops accepting runs and waits for running ones. If ctx ends first,
// the remaining runs are cancelled and Close waits for them to return.
func (s *Supervisor) Close(ctx context.Context) error {
	s.mu.Lock()
	s.closed = true
	s.mu.Unlock()

	done := make(chan struct{})
	go func() {
		s.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		s.cancel()
		return nil
	case <-ctx.Done():
		s.cancel()
		<-done
		return ctx.Err()
	}
}

func (s *Supervisor) release(key string) {
	s.mu.Lock()
	delete(s.pending, key)
	s.mu.Unlock()
}

func (s *Supervisor) track(delta int64) {
	s.metrics.SetInFlight(int(s.inFlight.Add(delta)))
}
