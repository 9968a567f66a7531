package providerfactory

import (
	"errors"
	"testing"

	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/providers"
)

func TestNewBackend(t *testing.T) {
	pc := config.Default().Providers
	pc.Anthropic.APIKey = "sk-ant-test"

	tests := []struct {
		name           string
		wantConfigured bool
	}{
		{name: config.BackendManus, wantConfigured: false},
		{name: config.BackendAnthropic, wantConfigured: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			b, err := NewBackend(tt.name, pc)
			if err != nil {
				t.Fatalf("NewBackend: %v", err)
			}
			defer b.Close()

			if b.Name() != tt.name {
				t.Errorf("expected name %q, got %q", tt.name, b.Name())
			}
			if b.Configured() != tt.wantConfigured {
				t.Errorf("expected configured=%v", tt.wantConfigured)
			}
		})
	}
}

func TestNewBackend_Unknown(t *testing.T) {
	_, err := NewBackend("openai", config.Default().Providers)

	var cfgErr *providers.ConfigError
	if !errors.As(err, &cfgErr) {
		t.Fatalf("expected ConfigError, got %v", err)
	}
	if cfgErr.Provider != "openai" {
		t.Errorf("unexpected provider %q", cfgErr.Provider)
	}
}

func TestAnthropicConfig_WebSearch(t *testing.T) {
	tests := []struct {
		in   int
		want int
	}{
		{in: 5, want: 5},
		{in: -1, want: 0},
	}
	for _, tt := range tests {
		c := config.Default().Providers.Anthropic
		c.WebSearchMaxUses = tt.in
		if got := AnthropicConfig(c).WebSearchMaxUses; got != tt.want {
			t.Errorf("WebSearchMaxUses(%d) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestManusConfig(t *testing.T) {
	c := config.Default().Providers.Manus
	c.APIKey = "key"
	c.TaskMode = "agent"

	got := ManusConfig(c)
	if got.APIKey != "key" || got.TaskMode != "agent" || got.AgentProfile != config.DefaultManusAgentProfile {
		t.Errorf("unexpected manus config %+v", got)
	}
	if got.BaseURL != config.DefaultManusBaseURL || got.MaxRetries != config.DefaultProviderMaxRetries {
		t.Errorf("unexpected transport config %+v", got)
	}
}
