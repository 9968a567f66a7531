// Package manus adapts the Manus task API to providers.Backend.
//
// Manus is poll-style: POST /tasks creates a task and returns its id, and
// GET /tasks/{id} reports pending, running, completed, failed or error.
// Completed tasks return the full task document as the payload.
package manus

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"zoi/sentinel/pkg/providers"
)

const (
	// Name is the backend identifier.
	Name = "manus"

	DefaultBaseURL      = "https://api.manus.ai/v1"
	DefaultAgentProfile = "manus-1.6"

	// DefaultTaskMode trades depth for latency: "chat" is fast, "agent"
	// browses more thoroughly.
	DefaultTaskMode = "chat"

	headerAPIKey = "API_KEY"
)

// Config configures the client.
type Config struct {
	BaseURL      string
	APIKey       string
	AgentProfile string
	TaskMode     string
	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client is the Manus backend adapter.
type Client struct {
	*providers.HTTPProvider
	cfg    Config
	logger *slog.Logger
}

var _ providers.Backend = (*Client)(nil)

type createTaskRequest struct {
	Prompt       string `json:"prompt"`
	AgentProfile string `json:"agentProfile"`
	TaskMode     string `json:"taskMode"`
}

type createTaskResponse struct {
	TaskID    string `json:"task_id"`
	TaskTitle string `json:"task_title"`
	TaskURL   string `json:"task_url"`
}

// New creates a client. A client without an API key is valid but reports
// Configured() == false.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.AgentProfile == "" {
		cfg.AgentProfile = DefaultAgentProfile
	}
	if cfg.TaskMode == "" {
		cfg.TaskMode = DefaultTaskMode
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 30 * time.Second
	}

	base := providers.NewHTTPProvider(providers.Config{
		Name:                Name,
		BaseURL:             cfg.BaseURL,
		APIKey:              cfg.APIKey,
		Timeout:             cfg.Timeout,
		MaxRetries:          cfg.MaxRetries,
		RetryBackoff:        cfg.RetryBackoff,
		MaxIdleConns:        10,
		MaxIdleConnsPerHost: 4,
		IdleConnTimeout:     90 * time.Second,
	})

	return &Client{
		HTTPProvider: base,
		cfg:          cfg,
		logger:       slog.Default().With("component", "providers", "provider", Name),
	}
}

// Name implements providers.Backend.
func (c *Client) Name() string { return Name }

// Configured implements providers.Backend.
func (c *Client) Configured() bool { return c.cfg.APIKey != "" }

func (c *Client) headers() map[string]string {
	return map[string]string{headerAPIKey: c.cfg.APIKey}
}

// Submit creates a research task.
func (c *Client) Submit(ctx context.Context, prompt string) (*providers.Submission, error) {
	if !c.Configured() {
		return nil, &providers.ConfigError{Provider: Name, Field: "api_key", Message: "API key not configured"}
	}

	req := createTaskRequest{Prompt: prompt, AgentProfile: c.cfg.AgentProfile, TaskMode: c.cfg.TaskMode}
	var resp createTaskResponse
	if err := c.DoJSONRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/tasks", req, &resp, c.headers()); err != nil {
		return nil, &providers.SubmissionError{Provider: Name, Cause: err}
	}
	if resp.TaskID == "" {
		return nil, &providers.SubmissionError{Provider: Name, Cause: errors.New("response carried no task_id")}
	}

	c.logger.Info("task created",
		"task_id", resp.TaskID,
		"task_url", resp.TaskURL,
		"agent_profile", c.cfg.AgentProfile,
		"task_mode", c.cfg.TaskMode,
	)
	return &providers.Submission{Handle: providers.Handle{ID: resp.TaskID, URL: resp.TaskURL}}, nil
}

// Poll fetches the task document and maps its status.
func (c *Client) Poll(ctx context.Context, h providers.Handle) (*providers.PollResult, error) {
	if !c.Configured() {
		return nil, &providers.ConfigError{Provider: Name, Field: "api_key", Message: "API key not configured"}
	}
	if h.ID == "" {
		return nil, &providers.PollError{Provider: Name, Cause: errors.New("empty task id")}
	}

	var doc map[string]any
	endpoint := fmt.Sprintf("%s/tasks/%s", c.cfg.BaseURL, url.PathEscape(h.ID))
	if err := c.DoJSONRequest(ctx, http.MethodGet, endpoint, nil, &doc, c.headers()); err != nil {
		return nil, &providers.PollError{Provider: Name, TaskID: h.ID, Cause: err}
	}
	if doc == nil {
		return nil, &providers.PollError{Provider: Name, TaskID: h.ID, Cause: errors.New("empty task document")}
	}

	status, _ := doc["status"].(string)
	c.logger.Debug("task polled", "task_id", h.ID, "status", status)
	return mapStatus(status, doc), nil
}

// mapStatus converts a Manus task document into a PollResult. Unrecognized
// statuses are treated as still running.
func mapStatus(status string, doc map[string]any) *providers.PollResult {
	switch strings.ToLower(strings.TrimSpace(status)) {
	case "completed", "complete", "succeeded", "success":
		return &providers.PollResult{Status: providers.PollCompleted, Payload: doc}
	case "failed", "error", "cancelled", "canceled":
		return &providers.PollResult{Status: providers.PollFailed, Reason: failureReason(status, doc)}
	case "running", "in_progress", "processing":
		return &providers.PollResult{Status: providers.PollRunning}
	default:
		return &providers.PollResult{Status: providers.PollPending}
	}
}

func failureReason(status string, doc map[string]any) string {
	for _, key := range []string{"error", "message", "reason"} {
		switch v := doc[key].(type) {
		case string:
			if v != "" {
				return status + ": " + v
			}
		case map[string]any:
			if msg, ok := v["message"].(string); ok && msg != "" {
				return status + ": " + msg
			}
		}
	}
	return status
}
