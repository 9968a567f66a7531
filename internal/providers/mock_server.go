// Package providers holds test doubles for research backend adapters.
package providers

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"sync"
	"time"
)

// MockServer is an HTTP server that replays scripted responses per path.
type MockServer struct {
	server *httptest.Server

	mu        sync.Mutex
	responses map[string][]MockResponse
	requests  []RecordedRequest
}

// MockResponse defines one scripted response.
type MockResponse struct {
	StatusCode int
	Body       any
	Delay      time.Duration
	Headers    map[string]string
}

// RecordedRequest is a request the server received.
type RecordedRequest struct {
	Method string
	Path   string
	Header http.Header
	Body   []byte
}

// JSON decodes the recorded body into v.
func (r RecordedRequest) JSON(v any) error {
	return json.Unmarshal(r.Body, v)
}

// NewMockServer creates and starts a mock server.
func NewMockServer() *MockServer {
	ms := &MockServer{responses: make(map[string][]MockResponse)}
	ms.server = httptest.NewServer(http.HandlerFunc(ms.handler))
	return ms
}

// URL returns the mock server's base URL.
func (ms *MockServer) URL() string {
	return ms.server.URL
}

// Close closes the mock server.
func (ms *MockServer) Close() {
	ms.server.Close()
}

// SetResponse makes path always answer with response.
func (ms *MockServer) SetResponse(path string, response MockResponse) {
	ms.SetSequence(path, response)
}

// SetSequence makes path answer with responses in order; the last one
// repeats once the sequence is exhausted.
func (ms *MockServer) SetSequence(path string, responses ...MockResponse) {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	ms.responses[path] = responses
}

// Requests returns the requests received so far.
func (ms *MockServer) Requests() []RecordedRequest {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	out := make([]RecordedRequest, len(ms.requests))
	copy(out, ms.requests)
	return out
}

// RequestCount returns the number of requests received on path.
func (ms *MockServer) RequestCount(path string) int {
	ms.mu.Lock()
	defer ms.mu.Unlock()
	n := 0
	for _, r := range ms.requests {
		if r.Path == path {
			n++
		}
	}
	return n
}

func (ms *MockServer) handler(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	ms.mu.Lock()
	ms.requests = append(ms.requests, RecordedRequest{
		Method: r.Method,
		Path:   r.URL.Path,
		Header: r.Header.Clone(),
		Body:   body,
	})
	seq, ok := ms.responses[r.URL.Path]
	var response MockResponse
	if ok && len(seq) > 0 {
		response = seq[0]
		if len(seq) > 1 {
			ms.responses[r.URL.Path] = seq[1:]
		}
	}
	ms.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}

	if response.Delay > 0 {
		select {
		case <-r.Context().Done():
			return
		case <-time.After(response.Delay):
		}
	}

	for key, value := range response.Headers {
		w.Header().Set(key, value)
	}
	if response.StatusCode == 0 {
		response.StatusCode = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(response.StatusCode)

	switch v := response.Body.(type) {
	case nil:
	case string:
		_, _ = w.Write([]byte(v))
	case []byte:
		_, _ = w.Write(v)
	default:
		_ = json.NewEncoder(w).Encode(v)
	}
}

// ManusCreated is the body of a successful task creation.
func ManusCreated(taskID string) map[string]any {
	return map[string]any{
		"task_id":    taskID,
		"task_title": "compliance research",
		"task_url":   "https://manus.im/app/" + taskID,
	}
}

// ManusTask is a task document with the given status. A non-empty answer
// is attached as the assistant's latest output message.
func ManusTask(taskID, status, answer string) map[string]any {
	doc := map[string]any{"id": taskID, "status": status}
	if answer != "" {
		doc["output"] = []any{
			map[string]any{
				"role": "user",
				"content": []any{
					map[string]any{"type": "input_text", "text": "Pesquise compliance para exportação."},
				},
			},
			map[string]any{
				"role": "assistant",
				"content": []any{
					map[string]any{"type": "output_text", "text": answer},
				},
			},
		}
	}
	return doc
}

// AnthropicMessage is a Messages API response. blocks are content blocks
// built with TextBlock and ToolUseBlock.
func AnthropicMessage(stopReason string, blocks ...map[string]any) map[string]any {
	content := make([]any, len(blocks))
	for i, b := range blocks {
		content[i] = b
	}
	return map[string]any{
		"id":          "msg_test",
		"type":        "message",
		"role":        "assistant",
		"model":       "claude-test",
		"stop_reason": stopReason,
		"content":     content,
		"usage":       map[string]any{"input_tokens": 10, "output_tokens": 20},
	}
}

// TextBlock is a text content block.
func TextBlock(text string) map[string]any {
	return map[string]any{"type": "text", "text": text}
}

// ToolUseBlock is a tool_use content block.
func ToolUseBlock(id, name string, input map[string]any) map[string]any {
	return map[string]any{"type": "tool_use", "id": id, "name": name, "input": input}
}
