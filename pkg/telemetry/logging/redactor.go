package logging

import (
	"log/slog"
	"regexp"
	"slices"
	"strings"
)

// Redacted replaces masked values.
const Redacted = "[REDACTED]"

// DefaultSensitiveKeys are attribute keys whose values are never logged. A
// key also matches as a suffix, so "manus_api_key" is sensitive while
// "max_tokens" is not.
var DefaultSensitiveKeys = []string{
	"api_key",
	"apikey",
	"authorization",
	"token",
	"secret",
	"password",
}

// Redactor masks credentials in log attributes.
type Redactor struct {
	keys     []string
	patterns []valuePattern
}

type valuePattern struct {
	regex       *regexp.Regexp
	replacement string
}

// NewRedactor creates a redactor for DefaultSensitiveKeys plus extra.
func NewRedactor(extra ...string) *Redactor {
	keys := make([]string, 0, len(DefaultSensitiveKeys)+len(extra))
	for _, k := range slices.Concat(DefaultSensitiveKeys, extra) {
		if k = normalizeKey(k); k != "" {
			keys = append(keys, k)
		}
	}
	return &Redactor{
		keys: keys,
		patterns: []valuePattern{
			// Anthropic and other sk- style keys
			{regexp.MustCompile(`sk-[A-Za-z0-9_\-]{8,}`), "sk-***"},
			{regexp.MustCompile(`(?i)bearer\s+[A-Za-z0-9\-._~+/]+=*`), "Bearer ***"},
			// API_KEY header as sent to poll-style backends
			{regexp.MustCompile(`(?i)(api[_-]?key["']?\s*[:=]\s*["']?)[A-Za-z0-9_\-]+`), "${1}***"},
		},
	}
}

// IsSensitiveKey reports whether the attribute key names a credential.
func (r *Redactor) IsSensitiveKey(key string) bool {
	key = normalizeKey(key)
	for _, k := range r.keys {
		if key == k || strings.HasSuffix(key, "_"+k) {
			return true
		}
	}
	return false
}

// RedactString masks credentials embedded in s.
func (r *Redactor) RedactString(s string) string {
	for _, p := range r.patterns {
		s = p.regex.ReplaceAllString(s, p.replacement)
	}
	return s
}

// ReplaceAttr is a slog.HandlerOptions.ReplaceAttr hook.
func (r *Redactor) ReplaceAttr(_ []string, a slog.Attr) slog.Attr {
	return r.redactAttr(a)
}

func (r *Redactor) redactAttr(a slog.Attr) slog.Attr {
	if r.IsSensitiveKey(a.Key) {
		return slog.String(a.Key, Redacted)
	}

	v := a.Value.Resolve()
	switch v.Kind() {
	case slog.KindString:
		return slog.String(a.Key, r.RedactString(v.String()))
	case slog.KindGroup:
		attrs := v.Group()
		out := make([]slog.Attr, len(attrs))
		for i, ga := range attrs {
			out[i] = r.redactAttr(ga)
		}
		return slog.Attr{Key: a.Key, Value: slog.GroupValue(out...)}
	case slog.KindAny:
		if err, ok := v.Any().(error); ok {
			return slog.String(a.Key, r.RedactString(err.Error()))
		}
	}
	return slog.Attr{Key: a.Key, Value: v}
}

func normalizeKey(k string) string {
	return strings.ReplaceAll(strings.ToLower(strings.TrimSpace(k)), "-", "_")
}
