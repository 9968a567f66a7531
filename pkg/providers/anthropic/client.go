package anthropic

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"zoi/sentinel/pkg/providers"
)

const (
	// Name is the backend identifier.
	Name = "anthropic"

	DefaultBaseURL   = "https://api.anthropic.com"
	DefaultVersion   = "2023-06-01"
	DefaultModel     = "claude-sonnet-4-5"
	DefaultMaxTokens = 8192
	DefaultMaxRounds = 6
)

// Config configures the client.
type Config struct {
	BaseURL   string
	APIKey    string
	Model     string
	MaxTokens int

	// MaxRounds bounds the number of Messages API calls per Submit
	MaxRounds int

	// WebSearchMaxUses caps server-side searches; zero disables the tool
	WebSearchMaxUses int

	Timeout      time.Duration
	MaxRetries   int
	RetryBackoff time.Duration
}

// Client is the Anthropic backend adapter.
type Client struct {
	*providers.HTTPProvider
	cfg    Config
	logger *slog.Logger
}

var _ providers.Backend = (*Client)(nil)

// New creates a client. A client without an API key is valid but reports
// Configured() == false.
func New(cfg Config) *Client {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	cfg.BaseURL = strings.TrimRight(cfg.BaseURL, "/")
	if cfg.Model == "" {
		cfg.Model = DefaultModel
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = DefaultMaxTokens
	}
	if cfg.MaxRounds <= 0 {
		cfg.MaxRounds = DefaultMaxRounds
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 120 * time.Second
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

// Submit runs the turn loop to completion and returns the terminal result in
// the Submission.
func (c *Client) Submit(ctx context.Context, prompt string) (*providers.Submission, error) {
	if !c.Configured() {
		return nil, &providers.ConfigError{Provider: Name, Field: "api_key", Message: "API key not configured"}
	}

	first, err := json.Marshal(prompt)
	if err != nil {
		return nil, &providers.SubmissionError{Provider: Name, Cause: err}
	}
	req := messagesRequest{
		Model:     c.cfg.Model,
		MaxTokens: c.cfg.MaxTokens,
		Messages:  []message{{Role: roleUser, Content: first}},
	}
	if c.cfg.WebSearchMaxUses > 0 {
		req.Tools = []tool{{Type: webSearchType, Name: webSearchName, MaxUses: c.cfg.WebSearchMaxUses}}
	}

	var text strings.Builder
	var lastID string
	for round := 1; round <= c.cfg.MaxRounds; round++ {
		resp, err := c.send(ctx, &req)
		if err != nil {
			return nil, &providers.SubmissionError{Provider: Name, Cause: err}
		}
		lastID = resp.ID

		toolUses, err := collect(resp.Content, &text)
		if err != nil {
			return nil, &providers.SubmissionError{Provider: Name, Cause: err}
		}

		c.logger.Debug("turn completed",
			"round", round,
			"stop_reason", resp.StopReason,
			"tool_uses", len(toolUses),
			"output_tokens", resp.Usage.OutputTokens,
		)

		switch resp.StopReason {
		case StopEndTurn, StopSequence:
			return done(lastID, &providers.PollResult{
				Status:  providers.PollCompleted,
				Payload: strings.TrimSpace(text.String()),
			}), nil

		case StopToolUse, StopPauseTurn:
			assistant, err := json.Marshal(resp.Content)
			if err != nil {
				return nil, &providers.SubmissionError{Provider: Name, Cause: err}
			}
			req.Messages = append(req.Messages, message{Role: roleAssistant, Content: assistant})
			if len(toolUses) > 0 {
				acks, err := acknowledgements(toolUses)
				if err != nil {
					return nil, &providers.SubmissionError{Provider: Name, Cause: err}
				}
				req.Messages = append(req.Messages, message{Role: roleUser, Content: acks})
			}

		default:
			return done(lastID, &providers.PollResult{
				Status: providers.PollFailed,
				Reason: fmt.Sprintf("stop_reason %q", resp.StopReason),
			}), nil
		}
	}

	return done(lastID, &providers.PollResult{
		Status: providers.PollFailed,
		Reason: fmt.Sprintf("no end_turn after %d rounds", c.cfg.MaxRounds),
	}), nil
}

// Poll always fails: results are delivered by Submit.
func (c *Client) Poll(ctx context.Context, h providers.Handle) (*providers.PollResult, error) {
	return nil, &providers.PollError{
		Provider: Name,
		TaskID:   h.ID,
		Cause:    errors.New("synchronous backend has no pollable tasks"),
	}
}

func (c *Client) send(ctx context.Context, req *messagesRequest) (*messagesResponse, error) {
	headers := map[string]string{
		"x-api-key":         c.cfg.APIKey,
		"anthropic-version": DefaultVersion,
	}
	var resp messagesResponse
	if err := c.DoJSONRequest(ctx, http.MethodPost, c.cfg.BaseURL+"/v1/messages", req, &resp, headers); err != nil {
		return nil, err
	}
	return &resp, nil
}

// collect appends text blocks to text and returns the ids of client
// tool_use blocks.
func collect(content []json.RawMessage, text *strings.Builder) ([]string, error) {
	var ids []string
	for _, raw := range content {
		var b contentBlock
		if err := json.Unmarshal(raw, &b); err != nil {
			return nil, &providers.ParseError{Provider: Name, RawResponse: string(raw), Cause: err}
		}
		switch b.Type {
		case blockText:
			if b.Text == "" {
				continue
			}
			if text.Len() > 0 {
				text.WriteString("\n")
			}
			text.WriteString(b.Text)
		case blockToolUse:
			ids = append(ids, b.ID)
		}
	}
	return ids, nil
}

func acknowledgements(ids []string) (json.RawMessage, error) {
	blocks := make([]toolResultBlock, len(ids))
	for i, id := range ids {
		blocks[i] = toolResultBlock{Type: blockToolResult, ToolUseID: id, Content: toolResultAckMsg}
	}
	return json.Marshal(blocks)
}

func done(id string, result *providers.PollResult) *providers.Submission {
	return &providers.Submission{Handle: providers.Handle{ID: id}, Result: result}
}
