package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var entry map[string]any
	if err := json.Unmarshal(buf.Bytes(), &entry); err != nil {
		t.Fatalf("failed to decode log line %q: %v", buf.String(), err)
	}
	return entry
}

func TestNew_RedactsSensitiveKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "info", Format: "json", Writer: &buf})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	logger.Info("backend configured",
		"api_key", "live-secret",
		"manus_api_key", "live-secret",
		"max_tokens", 8192,
		"backend", "manus",
	)

	entry := decodeLine(t, &buf)
	for _, key := range []string{"api_key", "manus_api_key"} {
		if entry[key] != Redacted {
			t.Errorf("%s = %v, want %s", key, entry[key], Redacted)
		}
	}
	if entry["max_tokens"] != float64(8192) {
		t.Errorf("max_tokens must not be redacted, got %v", entry["max_tokens"])
	}
	if entry["backend"] != "manus" {
		t.Errorf("backend = %v", entry["backend"])
	}
}

func TestNew_RedactsValues(t *testing.T) {
	tests := []struct {
		name  string
		value any
		leak  string
	}{
		{"anthropic key", "request failed for sk-ant-api03-abcdefghijkl", "abcdefghijkl"},
		{"bearer token", "header Bearer eyJhbGciOiJIUzI1NiJ9.payload", "eyJhbGci"},
		{"api key header", `API_KEY: "mk_live_0123456789"`, "mk_live_0123456789"},
		{"error value", errors.New("auth with sk-0123456789abcdef rejected"), "0123456789abcdef"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var buf bytes.Buffer
			logger, err := New(Config{Writer: &buf})
			if err != nil {
				t.Fatal(err)
			}
			logger.Warn("provider error", "detail", tt.value)
			if strings.Contains(buf.String(), tt.leak) {
				t.Errorf("log line leaks %q: %s", tt.leak, buf.String())
			}
		})
	}
}

func TestNew_ExtraRedactKeys(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf, RedactKeys: []string{"Cookie"}})
	if err != nil {
		t.Fatal(err)
	}
	logger.Info("request", "session_cookie", "abc")

	if entry := decodeLine(t, &buf); entry["session_cookie"] != Redacted {
		t.Errorf("session_cookie = %v", entry["session_cookie"])
	}
}

func TestNew_Level(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Level: "warn", Format: "text", Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	logger.Info("dropped")
	if buf.Len() != 0 {
		t.Fatalf("info must be filtered at warn level, got %q", buf.String())
	}
	logger.Warn("kept")
	if !strings.Contains(buf.String(), "msg=kept") {
		t.Errorf("expected text output, got %q", buf.String())
	}
}

func TestNew_InvalidConfig(t *testing.T) {
	if _, err := New(Config{Level: "loud"}); err == nil {
		t.Error("expected error for unknown level")
	}
	if _, err := New(Config{Format: "xml"}); err == nil {
		t.Error("expected error for unknown format")
	}
}

func TestContextHandler(t *testing.T) {
	var buf bytes.Buffer
	logger, err := New(Config{Writer: &buf})
	if err != nil {
		t.Fatal(err)
	}

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithProductKey(ctx, "acai")
	ctx = WithTaskID(ctx, "task-9")
	logger.With("component", "coordinator").InfoContext(ctx, "lookup served")

	entry := decodeLine(t, &buf)
	want := map[string]string{
		"request_id":  "req-1",
		"product_key": "acai",
		"task_id":     "task-9",
		"component":   "coordinator",
	}
	for k, v := range want {
		if entry[k] != v {
			t.Errorf("%s = %v, want %q", k, entry[k], v)
		}
	}
}

func TestContextAccessors(t *testing.T) {
	ctx := context.Background()
	if RequestID(ctx) != "" || ProductKeyFrom(ctx) != "" || TaskID(ctx) != "" {
		t.Error("empty context must yield empty values")
	}
	ctx = WithProductKey(ctx, "cafe")
	if got := ProductKeyFrom(ctx); got != "cafe" {
		t.Errorf("ProductKeyFrom = %q", got)
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"":        slog.LevelInfo,
		"DEBUG":   slog.LevelDebug,
		"warning": slog.LevelWarn,
		"error":   slog.LevelError,
	}
	for in, want := range tests {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Errorf("ParseLevel(%q) = %v, %v; want %v", in, got, err, want)
		}
	}
}
