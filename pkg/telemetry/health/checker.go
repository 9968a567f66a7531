// Package health aggregates component checks into a service status.
//
// A check that fails marks the service degraded when it is advisory and
// unhealthy when it is required. Sentinel stays useful with a failing
// research backend (reference, stale and placeholder records are still
// served), so the backend check is advisory while the stores are required.
package health

import (
	"context"
	"errors"
	"maps"
	"slices"
	"sync"
	"time"
)

// Status values, from best to worst.
const (
	StatusHealthy   = "healthy"
	StatusDegraded  = "degraded"
	StatusUnhealthy = "unhealthy"
)

// CheckFunc reports a problem with a component, or nil.
type CheckFunc func(ctx context.Context) error

// Check is a registered component check.
type Check struct {
	Name string
	Func CheckFunc

	// Required checks make the service unhealthy when they fail; the others
	// only degrade it.
	Required bool
}

// CheckResult is the outcome of one check.
type CheckResult struct {
	Status   string  `json:"status"`
	Message  string  `json:"message,omitempty"`
	Required bool    `json:"required"`
	Duration float64 `json:"duration_ms"`
}

// Report is the aggregated status.
type Report struct {
	Status    string                 `json:"status"`
	Checks    map[string]CheckResult `json:"checks,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
}

// ErrCheckTimeout is reported for a check that did not return in time.
var ErrCheckTimeout = errors.New("health check timeout")

// Checker runs registered checks concurrently.
type Checker struct {
	mu      sync.RWMutex
	checks  map[string]Check
	timeout time.Duration
	now     func() time.Time
}

// New creates a checker. A zero timeout defaults to 5 seconds per check.
func New(timeout time.Duration) *Checker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &Checker{
		checks:  make(map[string]Check),
		timeout: timeout,
		now:     time.Now,
	}
}

// Register adds or replaces a check.
func (c *Checker) Register(check Check) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.checks[check.Name] = check
}

// Names returns the registered check names in order.
func (c *Checker) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return slices.Sorted(maps.Keys(c.checks))
}

// Run executes every check and aggregates the results.
func (c *Checker) Run(ctx context.Context) Report {
	c.mu.RLock()
	checks := slices.Collect(maps.Values(c.checks))
	c.mu.RUnlock()

	results := make(map[string]CheckResult, len(checks))
	var mu sync.Mutex
	var wg sync.WaitGroup
	for _, check := range checks {
		wg.Go(func() {
			res := c.run(ctx, check)
			mu.Lock()
			results[check.Name] = res
			mu.Unlock()
		})
	}
	wg.Wait()

	status := StatusHealthy
	for _, res := range results {
		switch {
		case res.Status == StatusHealthy:
		case res.Required:
			status = StatusUnhealthy
		case status == StatusHealthy:
			status = StatusDegraded
		}
	}
	return Report{Status: status, Checks: results, Timestamp: c.now().UTC()}
}

func (c *Checker) run(ctx context.Context, check Check) CheckResult {
	ctx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	start := time.Now()
	errCh := make(chan error, 1)
	go func() { errCh <- check.Func(ctx) }()

	var err error
	select {
	case err = <-errCh:
	case <-ctx.Done():
		err = ErrCheckTimeout
	}

	res := CheckResult{
		Status:   StatusHealthy,
		Required: check.Required,
		Duration: float64(time.Since(start).Microseconds()) / 1000,
	}
	if err != nil {
		res.Status = StatusUnhealthy
		res.Message = err.Error()
	}
	return res
}
