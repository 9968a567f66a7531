package manus

import (
	"context"
	"errors"
	"net/http"
	"testing"
	"time"

	mocks "zoi/sentinel/internal/providers"
	"zoi/sentinel/pkg/providers"
)

func newTestClient(url string) *Client {
	return New(Config{
		BaseURL:      url,
		APIKey:       "manus-test-key",
		MaxRetries:   1,
		RetryBackoff: time.Millisecond,
	})
}

func TestClient_SubmitAndPoll(t *testing.T) {
	ms := mocks.NewMockServer()
	defer ms.Close()

	ms.SetResponse("/tasks", mocks.MockResponse{Body: mocks.ManusCreated("task-1")})
	ms.SetSequence("/tasks/task-1",
		mocks.MockResponse{Body: mocks.ManusTask("task-1", "pending", "")},
		mocks.MockResponse{Body: mocks.ManusTask("task-1", "running", "")},
		mocks.MockResponse{Body: mocks.ManusTask("task-1", "completed", "done")},
	)

	c := newTestClient(ms.URL())
	ctx := context.Background()

	sub, err := c.Submit(ctx, "pesquisar café")
	mocks.AssertNoError(t, err)
	if sub.Handle.ID != "task-1" || sub.Result != nil {
		t.Fatalf("Submission = %+v", sub)
	}

	want := []providers.PollStatus{providers.PollPending, providers.PollRunning, providers.PollCompleted}
	for i, w := range want {
		res, err := c.Poll(ctx, sub.Handle)
		mocks.AssertNoError(t, err)
		if res.Status != w {
			t.Fatalf("poll %d status = %s, want %s", i, res.Status, w)
		}
		if w == providers.PollCompleted {
			doc, ok := res.Payload.(map[string]any)
			if !ok || doc["output"] == nil {
				t.Errorf("Payload = %#v, want task document", res.Payload)
			}
		}
	}

	reqs := ms.Requests()
	var body createTaskRequest
	if err := reqs[0].JSON(&body); err != nil {
		t.Fatal(err)
	}
	if body.Prompt != "pesquisar café" || body.AgentProfile != DefaultAgentProfile || body.TaskMode != DefaultTaskMode {
		t.Errorf("create body = %+v", body)
	}
	if got := reqs[0].Header.Get("API_KEY"); got != "manus-test-key" {
		t.Errorf("API_KEY header = %q", got)
	}
	if reqs[0].Method != http.MethodPost || reqs[1].Method != http.MethodGet {
		t.Errorf("methods = %s, %s", reqs[0].Method, reqs[1].Method)
	}
}

func TestClient_NotConfigured(t *testing.T) {
	ms := mocks.NewMockServer()
	defer ms.Close()

	c := New(Config{BaseURL: ms.URL()})
	if c.Configured() {
		t.Fatal("Configured() = true without API key")
	}
	_, err := c.Submit(context.Background(), "x")
	cfgErr := mocks.AssertErrorAs[*providers.ConfigError](t, err)
	if cfgErr.Field != "api_key" {
		t.Errorf("Field = %q", cfgErr.Field)
	}
	if n := len(ms.Requests()); n != 0 {
		t.Errorf("unconfigured client made %d requests", n)
	}
}

func TestClient_SubmitErrors(t *testing.T) {
	tests := []struct {
		name     string
		response mocks.MockResponse
		cause    func(error) bool
	}{
		{"server error", mocks.MockResponse{StatusCode: http.StatusInternalServerError}, func(err error) bool {
			var pe *providers.ProviderError
			return errors.As(err, &pe)
		}},
		{"unauthorized", mocks.MockResponse{StatusCode: http.StatusUnauthorized, Body: `{"error":"bad key"}`}, func(err error) bool {
			var ae *providers.AuthError
			return errors.As(err, &ae)
		}},
		{"missing task id", mocks.MockResponse{Body: map[string]any{"task_url": "x"}}, func(err error) bool { return err != nil }},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ms := mocks.NewMockServer()
			defer ms.Close()
			ms.SetResponse("/tasks", tt.response)

			_, err := newTestClient(ms.URL()).Submit(context.Background(), "x")
			mocks.AssertErrorAs[*providers.SubmissionError](t, err)
			if !tt.cause(err) {
				t.Errorf("unexpected cause: %v", err)
			}
		})
	}
}

func TestClient_PollFailureAndError(t *testing.T) {
	ms := mocks.NewMockServer()
	defer ms.Close()

	failed := mocks.ManusTask("t-f", "failed", "")
	failed["error"] = "agent crashed"
	ms.SetResponse("/tasks/t-f", mocks.MockResponse{Body: failed})
	ms.SetResponse("/tasks/t-e", mocks.MockResponse{StatusCode: http.StatusBadGateway})

	c := newTestClient(ms.URL())

	res, err := c.Poll(context.Background(), providers.Handle{ID: "t-f"})
	mocks.AssertNoError(t, err)
	if res.Status != providers.PollFailed || res.Reason != "failed: agent crashed" {
		t.Errorf("PollResult = %+v", res)
	}

	_, err = c.Poll(context.Background(), providers.Handle{ID: "t-e"})
	pe := mocks.AssertErrorAs[*providers.PollError](t, err)
	if pe.TaskID != "t-e" {
		t.Errorf("TaskID = %q", pe.TaskID)
	}
}

func TestMapStatus(t *testing.T) {
	tests := map[string]providers.PollStatus{
		"completed": providers.PollCompleted,
		"Completed": providers.PollCompleted,
		"failed":    providers.PollFailed,
		"error":     providers.PollFailed,
		"running":   providers.PollRunning,
		"pending":   providers.PollPending,
		"":          providers.PollPending,
		"queued":    providers.PollPending,
	}
	for status, want := range tests {
		if got := mapStatus(status, map[string]any{}).Status; got != want {
			t.Errorf("mapStatus(%q) = %s, want %s", status, got, want)
		}
	}
}
