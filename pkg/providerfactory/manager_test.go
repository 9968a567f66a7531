package providerfactory

import (
	"slices"
	"testing"

	"zoi/sentinel/pkg/config"
)

func TestNewManager(t *testing.T) {
	cfg := config.Default()
	cfg.Providers.Manus.APIKey = "manus-key"

	m, err := NewManager(cfg)
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if got := m.Active().Name(); got != config.BackendManus {
		t.Errorf("expected manus active, got %q", got)
	}
	if got := m.ConfiguredNames(); !slices.Equal(got, []string{config.BackendManus}) {
		t.Errorf("unexpected configured backends %v", got)
	}
	if h := m.Health(); len(h) != len(Names) {
		t.Errorf("expected health for %d backends, got %d", len(Names), len(h))
	}
}

func TestManager_SetActive(t *testing.T) {
	m, err := NewManager(config.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if err := m.SetActive(config.BackendAnthropic); err != nil {
		t.Fatalf("SetActive: %v", err)
	}
	if got := m.Active().Name(); got != config.BackendAnthropic {
		t.Errorf("expected anthropic active, got %q", got)
	}

	if err := m.SetActive("carrier-pigeon"); err == nil {
		t.Error("expected error for unknown backend")
	}
	if got := m.Active().Name(); got != config.BackendAnthropic {
		t.Errorf("failed SetActive must keep %q, got %q", config.BackendAnthropic, got)
	}
}

func TestManager_Get(t *testing.T) {
	m, err := NewManager(config.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	defer m.Close()

	if _, err := m.Get(config.BackendAnthropic); err != nil {
		t.Errorf("Get: %v", err)
	}
	if _, err := m.Get("missing"); err == nil {
		t.Error("expected error for missing backend")
	}
}

func TestNewManager_UnknownActive(t *testing.T) {
	cfg := config.Default()
	cfg.Research.Backend = "openai"

	if _, err := NewManager(cfg); err == nil {
		t.Fatal("expected error")
	}
}

func TestManager_CloseIdempotent(t *testing.T) {
	m, err := NewManager(config.Default())
	if err != nil {
		t.Fatalf("NewManager: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("first Close: %v", err)
	}
	if err := m.Close(); err != nil {
		t.Errorf("second Close: %v", err)
	}
}
