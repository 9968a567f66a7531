package extraction

import (
	"encoding/json"
	"fmt"
	"strings"
	"unicode/utf8"

	"zoi/sentinel/pkg/compliance"
)

// SignatureFields mark a mapping as a compliance record candidate.
var SignatureFields = []string{"ncm_code", "risk_score", "product_name"}

// containerFields are searched, in order, on a top-level mapping.
var containerFields = []string{"output", "result", "message", "content", "response", "answer", "events"}

// nestedFields are searched on items found inside containers.
var nestedFields = []string{"text", "content", "message", "data", "body"}

var allFields = []string{
	"output", "result", "message", "content", "response", "answer", "events",
	"text", "data", "body",
}

const (
	// DefaultMinTextLength is the length a text blob must exceed to qualify.
	DefaultMinTextLength = 50

	// DefaultPreviewLength bounds the preview attached to failures.
	DefaultPreviewLength = 300

	// maxDepth bounds recursion through nested containers.
	maxDepth = 8
)

// Engine extracts compliance records from backend payloads.
// The zero value is not usable; call New.
type Engine struct {
	strategies    []TextStrategy
	minTextLength int
	previewLength int
}

// Option configures an Engine.
type Option func(*Engine)

// WithStrategies replaces the text strategy chain.
func WithStrategies(s ...TextStrategy) Option {
	return func(e *Engine) { e.strategies = s }
}

// WithMinTextLength sets the container text threshold.
func WithMinTextLength(n int) Option {
	return func(e *Engine) { e.minTextLength = n }
}

// WithPreviewLength sets the failure preview length in runes.
func WithPreviewLength(n int) Option {
	return func(e *Engine) { e.previewLength = n }
}

// New creates an Engine with the default strategy chain.
func New(opts ...Option) *Engine {
	e := &Engine{
		strategies:    DefaultTextStrategies,
		minTextLength: DefaultMinTextLength,
		previewLength: DefaultPreviewLength,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Extract finds a compliance record in payload.
func (e *Engine) Extract(payload any) (*compliance.Record, error) {
	return e.ExtractFor("", payload)
}

// ExtractFor is Extract with the product key used to default a missing
// product name.
func (e *Engine) ExtractFor(key string, payload any) (*compliance.Record, error) {
	m, err := e.locate(payload)
	if err != nil {
		return nil, err
	}
	return Decode(key, m), nil
}

// locate runs the strategy chain and returns the winning mapping.
func (e *Engine) locate(payload any) (map[string]any, error) {
	switch p := payload.(type) {
	case nil:
		return nil, &ExtractionFailure{Reason: ReasonEmptyPayload}
	case []byte:
		return e.locate(string(p))
	case json.RawMessage:
		return e.locate(string(p))
	case string:
		if strings.TrimSpace(p) == "" {
			return nil, &ExtractionFailure{Reason: ReasonEmptyPayload}
		}
		if m, ok := e.fromText(p); ok {
			return m, nil
		}
		return nil, e.failure(p)
	case map[string]any:
		if hasSignature(p) {
			return p, nil
		}
	case []any:
	default:
		return nil, &ExtractionFailure{
			Reason:  ReasonUnsupportedFormat,
			Preview: e.preview(fmt.Sprintf("%T", payload)),
		}
	}

	text, m := e.search(payload, 0)
	if m != nil {
		return m, nil
	}
	if text != "" {
		if m, ok := e.fromText(text); ok {
			return m, nil
		}
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return nil, &ExtractionFailure{Reason: ReasonUnsupportedFormat, Preview: e.preview(text)}
	}
	if m, ok := e.fromText(string(raw)); ok {
		return m, nil
	}
	if text == "" {
		text = string(raw)
	}
	return nil, e.failure(text)
}

// search walks container fields for a signature mapping or a qualifying
// text blob. List items are visited most recent first.
func (e *Engine) search(v any, depth int) (string, map[string]any) {
	if depth > maxDepth {
		return "", nil
	}
	switch t := v.(type) {
	case string:
		if utf8.RuneCountInString(strings.TrimSpace(t)) > e.minTextLength {
			return t, nil
		}
		// Short text still counts when it parses to a record on its own.
		if m, ok := e.fromText(t); ok {
			return "", m
		}
	case map[string]any:
		if depth > 0 && hasSignature(t) {
			return "", t
		}
		fields := nestedFields
		if depth == 0 {
			fields = containerFields
		}
		for _, f := range fields {
			val, ok := t[f]
			if !ok || val == nil {
				continue
			}
			if text, m := e.search(val, depth+1); text != "" || m != nil {
				return text, m
			}
		}
	case []any:
		for i := len(t) - 1; i >= 0; i-- {
			if text, m := e.search(t[i], depth+1); text != "" || m != nil {
				return text, m
			}
		}
	}
	return "", nil
}

// fromText applies the text strategies in order.
func (e *Engine) fromText(text string) (map[string]any, bool) {
	for _, s := range e.strategies {
		for _, candidate := range s.Candidates(text) {
			var v any
			if err := json.Unmarshal([]byte(candidate), &v); err != nil {
				continue
			}
			if m := findSignature(v, 0); m != nil {
				return m, true
			}
		}
	}
	return nil, false
}

func (e *Engine) failure(text string) *ExtractionFailure {
	return &ExtractionFailure{Reason: ReasonNoStructuredData, Preview: e.preview(text)}
}

func (e *Engine) preview(s string) string {
	return Truncate(strings.TrimSpace(s), e.previewLength)
}

// Truncate shortens s to at most n runes.
func Truncate(s string, n int) string {
	if n <= 0 || utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// findSignature returns the shallowest mapping in v that carries a
// signature field.
func findSignature(v any, depth int) map[string]any {
	if depth > maxDepth {
		return nil
	}
	switch t := v.(type) {
	case map[string]any:
		if hasSignature(t) {
			return t
		}
		for _, f := range allFields {
			if m := findSignature(t[f], depth+1); m != nil {
				return m
			}
		}
	case []any:
		for i := len(t) - 1; i >= 0; i-- {
			if m := findSignature(t[i], depth+1); m != nil {
				return m
			}
		}
	}
	return nil
}

func hasSignature(m map[string]any) bool {
	for _, f := range SignatureFields {
		if _, ok := m[f]; ok {
			return true
		}
	}
	return false
}
