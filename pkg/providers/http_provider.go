package providers

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"
	"time"
)

// Config configures the HTTP transport of a backend adapter.
type Config struct {
	// Name is the backend identifier (e.g., "manus", "anthropic")
	Name string

	BaseURL string
	APIKey  string

	// Timeout bounds a single HTTP request, retries excluded
	Timeout time.Duration

	// MaxRetries is the number of retries after the first attempt
	MaxRetries int

	// RetryBackoff is the first backoff delay; it doubles per retry
	RetryBackoff time.Duration

	MaxIdleConns        int
	MaxIdleConnsPerHost int
	IdleConnTimeout     time.Duration
}

// Health is a snapshot of a backend's transport health.
type Health struct {
	Healthy               bool      `json:"healthy"`
	LastCheck             time.Time `json:"last_check"`
	LastError             string    `json:"last_error,omitempty"`
	ConsecutiveFailures   int       `json:"consecutive_failures"`
	LastSuccessfulRequest time.Time `json:"last_successful_request,omitzero"`
	TotalRequests         int64     `json:"total_requests"`
	FailedRequests        int64     `json:"failed_requests"`
}

// unhealthyAfter is the consecutive failure count that marks a backend
// unhealthy.
const unhealthyAfter = 3

// HTTPProvider is the base for HTTP backend adapters. Adapters embed it and
// build requests with DoJSONRequest.
type HTTPProvider struct {
	config Config
	client *http.Client
	logger *slog.Logger

	healthMu sync.RWMutex
	health   Health
}

// NewHTTPProvider creates a base provider with a pooled transport.
func NewHTTPProvider(config Config) *HTTPProvider {
	if config.RetryBackoff <= 0 {
		config.RetryBackoff = time.Second
	}
	transport := &http.Transport{
		Proxy:               http.ProxyFromEnvironment,
		MaxIdleConns:        config.MaxIdleConns,
		MaxIdleConnsPerHost: config.MaxIdleConnsPerHost,
		IdleConnTimeout:     config.IdleConnTimeout,
		ForceAttemptHTTP2:   true,
	}

	return &HTTPProvider{
		config: config,
		client: &http.Client{Transport: transport, Timeout: config.Timeout},
		logger: slog.Default().With("component", "providers", "provider", config.Name),
		health: Health{Healthy: true, LastCheck: time.Now()},
	}
}

// Config returns the provider's configuration.
func (p *HTTPProvider) Config() Config {
	return p.config
}

// Health returns a snapshot of the provider's transport health.
func (p *HTTPProvider) Health() Health {
	p.healthMu.RLock()
	defer p.healthMu.RUnlock()
	return p.health
}

func (p *HTTPProvider) record(success bool, err error) {
	p.healthMu.Lock()
	defer p.healthMu.Unlock()

	now := time.Now()
	p.health.LastCheck = now
	p.health.TotalRequests++
	if success {
		p.health.Healthy = true
		p.health.ConsecutiveFailures = 0
		p.health.LastError = ""
		p.health.LastSuccessfulRequest = now
		return
	}

	p.health.FailedRequests++
	p.health.ConsecutiveFailures++
	if err != nil {
		p.health.LastError = err.Error()
	}
	if p.health.ConsecutiveFailures >= unhealthyAfter && p.health.Healthy {
		p.health.Healthy = false
		p.logger.Warn("provider marked unhealthy",
			"consecutive_failures", p.health.ConsecutiveFailures,
			"error", err,
		)
	}
}

// DoRequest performs an HTTP request, retrying network errors and 5xx
// responses with exponential backoff. The caller closes the response body.
func (p *HTTPProvider) DoRequest(ctx context.Context, method, url string, body []byte, headers map[string]string) (*http.Response, error) {
	var lastErr error

	for attempt := 0; attempt <= p.config.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := p.config.RetryBackoff << (attempt - 1)
			p.logger.Debug("retrying request",
				"attempt", attempt,
				"max_retries", p.config.MaxRetries,
				"backoff", backoff,
			)
			select {
			case <-ctx.Done():
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctx.Err()}
			case <-time.After(backoff):
			}
		}

		var bodyReader io.Reader
		if body != nil {
			bodyReader = bytes.NewReader(body)
		}
		req, err := http.NewRequestWithContext(ctx, method, url, bodyReader)
		if err != nil {
			return nil, fmt.Errorf("failed to create request: %w", err)
		}
		for key, value := range headers {
			req.Header.Set(key, value)
		}
		if req.Header.Get("Content-Type") == "" && body != nil {
			req.Header.Set("Content-Type", "application/json")
		}
		req.Header.Set("Accept", "application/json")

		p.logger.Debug("sending request", "method", method, "url", url)

		resp, err := p.client.Do(req)
		if err != nil {
			if ctx.Err() != nil {
				p.record(false, err)
				return nil, &TimeoutError{Provider: p.config.Name, Timeout: p.config.Timeout, Cause: ctx.Err()}
			}
			lastErr = &ProviderError{Provider: p.config.Name, Message: "request failed", Cause: err}
			p.record(false, err)
			p.logger.Warn("request failed, will retry", "attempt", attempt+1, "error", err)
			continue
		}

		if resp.StatusCode >= 200 && resp.StatusCode < 300 {
			p.record(true, nil)
			return resp, nil
		}

		errorBody, _ := io.ReadAll(io.LimitReader(resp.Body, 64<<10))
		resp.Body.Close()

		switch {
		case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
			err := &AuthError{Provider: p.config.Name, Message: string(errorBody)}
			p.record(false, err)
			return nil, err

		case resp.StatusCode == http.StatusTooManyRequests:
			err := &RateLimitError{
				Provider:   p.config.Name,
				RetryAfter: parseRetryAfter(resp.Header.Get("Retry-After")),
				Message:    string(errorBody),
			}
			p.record(false, err)
			return nil, err

		case resp.StatusCode < 500:
			err := &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: string(errorBody)}
			p.record(false, err)
			return nil, err

		default:
			lastErr = &ProviderError{Provider: p.config.Name, StatusCode: resp.StatusCode, Message: string(errorBody)}
			p.record(false, lastErr)
			p.logger.Warn("request returned error status, will retry",
				"status", resp.StatusCode,
				"attempt", attempt+1,
			)
		}
	}

	return nil, lastErr
}

// DoJSONRequest marshals reqBody, performs the request and decodes the
// response into respBody. Either body may be nil.
func (p *HTTPProvider) DoJSONRequest(ctx context.Context, method, url string, reqBody, respBody any, headers map[string]string) error {
	var bodyBytes []byte
	if reqBody != nil {
		var err error
		bodyBytes, err = json.Marshal(reqBody)
		if err != nil {
			return fmt.Errorf("failed to marshal request: %w", err)
		}
	}

	resp, err := p.DoRequest(ctx, method, url, bodyBytes, headers)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	responseBytes, err := io.ReadAll(resp.Body)
	if err != nil {
		return &ParseError{Provider: p.config.Name, Cause: fmt.Errorf("failed to read response: %w", err)}
	}
	if respBody != nil && len(responseBytes) > 0 {
		if err := json.Unmarshal(responseBytes, respBody); err != nil {
			return &ParseError{
				Provider:    p.config.Name,
				RawResponse: string(responseBytes),
				Cause:       fmt.Errorf("failed to unmarshal response: %w", err),
			}
		}
	}
	return nil
}

// Close releases idle connections.
func (p *HTTPProvider) Close() error {
	p.client.CloseIdleConnections()
	return nil
}

// parseRetryAfter parses a Retry-After header in delay-seconds or HTTP-date
// form.
func parseRetryAfter(header string) time.Duration {
	if header == "" {
		return 0
	}
	if seconds, err := strconv.Atoi(header); err == nil {
		return time.Duration(seconds) * time.Second
	}
	if t, err := http.ParseTime(header); err == nil {
		return time.Until(t)
	}
	return 0
}
