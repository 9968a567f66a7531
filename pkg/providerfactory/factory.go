// Package providerfactory builds research backends from configuration.
package providerfactory

import (
	"fmt"
	"log/slog"

	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/providers"
	"zoi/sentinel/pkg/providers/anthropic"
	"zoi/sentinel/pkg/providers/manus"
)

// Backend is a research backend that owns an HTTP transport.
type Backend interface {
	providers.Backend
	providers.HealthReporter
	Close() error
}

var (
	_ Backend = (*manus.Client)(nil)
	_ Backend = (*anthropic.Client)(nil)
)

// Names lists the supported backends in a stable order.
var Names = []string{config.BackendManus, config.BackendAnthropic}

// NewBackend creates the backend called name from pc. A backend without an
// API key is returned as well; it reports Configured() == false.
func NewBackend(name string, pc config.ProvidersConfig) (Backend, error) {
	var b Backend

	switch name {
	case config.BackendManus:
		b = manus.New(ManusConfig(pc.Manus))
	case config.BackendAnthropic:
		b = anthropic.New(AnthropicConfig(pc.Anthropic))
	default:
		return nil, &providers.ConfigError{
			Provider: name,
			Field:    "research.backend",
			Message:  fmt.Sprintf("unsupported backend %q (supported: %s, %s)", name, config.BackendManus, config.BackendAnthropic),
		}
	}

	slog.Debug("research backend created", "backend", name, "configured", b.Configured())
	return b, nil
}

// ManusConfig maps the configuration section to the client config.
func ManusConfig(c config.ManusConfig) manus.Config {
	return manus.Config{
		BaseURL:      c.BaseURL,
		APIKey:       c.APIKey,
		AgentProfile: c.AgentProfile,
		TaskMode:     c.TaskMode,
		Timeout:      c.Timeout,
		MaxRetries:   c.MaxRetries,
	}
}

// AnthropicConfig maps the configuration section to the client config. A
// negative web search budget disables the tool.
func AnthropicConfig(c config.AnthropicConfig) anthropic.Config {
	return anthropic.Config{
		BaseURL:          c.BaseURL,
		APIKey:           c.APIKey,
		Model:            c.Model,
		MaxTokens:        c.MaxTokens,
		MaxRounds:        c.MaxRounds,
		WebSearchMaxUses: max(c.WebSearchMaxUses, 0),
		Timeout:          c.Timeout,
		MaxRetries:       c.MaxRetries,
	}
}
