package providers

import (
	"context"
	"strconv"
	"sync"
	"sync/atomic"

	"zoi/sentinel/pkg/providers"
)

// FakeBackend is a scripted providers.Backend.
//
// Submit returns SubmitErr if set, otherwise a handle for task "fake-N" or,
// when Sync is set, that result directly. Poll walks Results, repeating the
// last one; PollErr short-circuits it. Gate, when set, blocks every Submit
// until it is closed or the context ends.
type FakeBackend struct {
	BackendName  string
	Unconfigured bool
	SubmitErr    error
	PollErr      error
	Sync         *providers.PollResult
	Results      []*providers.PollResult
	Gate         chan struct{}

	mu      sync.Mutex
	prompts []string
	polls   map[string]int

	submits atomic.Int64
	seq     atomic.Int64
}

// Completed is a completed poll result carrying payload.
func Completed(payload any) *providers.PollResult {
	return &providers.PollResult{Status: providers.PollCompleted, Payload: payload}
}

// Running is an in-progress poll result.
func Running() *providers.PollResult {
	return &providers.PollResult{Status: providers.PollRunning}
}

// Failed is a failed poll result.
func Failed(reason string) *providers.PollResult {
	return &providers.PollResult{Status: providers.PollFailed, Reason: reason}
}

func (f *FakeBackend) Name() string {
	if f.BackendName == "" {
		return "fake"
	}
	return f.BackendName
}

func (f *FakeBackend) Configured() bool { return !f.Unconfigured }

func (f *FakeBackend) Submit(ctx context.Context, prompt string) (*providers.Submission, error) {
	f.submits.Add(1)
	f.mu.Lock()
	f.prompts = append(f.prompts, prompt)
	f.mu.Unlock()

	if f.Gate != nil {
		select {
		case <-f.Gate:
		case <-ctx.Done():
			return nil, &providers.SubmissionError{Provider: f.Name(), Cause: ctx.Err()}
		}
	}
	if f.Unconfigured {
		return nil, &providers.ConfigError{Provider: f.Name(), Field: "api_key", Message: "not set"}
	}
	if f.SubmitErr != nil {
		return nil, f.SubmitErr
	}
	if f.Sync != nil {
		return &providers.Submission{Result: f.Sync}, nil
	}
	id := "fake-" + strconv.FormatInt(f.seq.Add(1), 10)
	return &providers.Submission{Handle: providers.Handle{ID: id}}, nil
}

func (f *FakeBackend) Poll(ctx context.Context, h providers.Handle) (*providers.PollResult, error) {
	if err := ctx.Err(); err != nil {
		return nil, &providers.PollError{Provider: f.Name(), TaskID: h.ID, Cause: err}
	}
	if f.PollErr != nil {
		return nil, f.PollErr
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	if f.polls == nil {
		f.polls = make(map[string]int)
	}
	n := f.polls[h.ID]
	f.polls[h.ID]++

	if len(f.Results) == 0 {
		return Running(), nil
	}
	return f.Results[min(n, len(f.Results)-1)], nil
}

// Submits returns the number of Submit calls.
func (f *FakeBackend) Submits() int { return int(f.submits.Load()) }

// Prompts returns the submitted prompts in order.
func (f *FakeBackend) Prompts() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.prompts...)
}

