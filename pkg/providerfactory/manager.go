package providerfactory

import (
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"

	"zoi/sentinel/pkg/config"
	"zoi/sentinel/pkg/providers"
)

// Manager owns every backend built from configuration and designates the
// active one. It is safe for concurrent use.
type Manager struct {
	mu       sync.RWMutex
	backends map[string]Backend
	active   string
	closed   bool
}

// NewManager builds all supported backends from cfg and activates
// cfg.Research.Backend.
func NewManager(cfg *config.Config) (*Manager, error) {
	m := &Manager{backends: make(map[string]Backend, len(Names))}
	for _, name := range Names {
		b, err := NewBackend(name, cfg.Providers)
		if err != nil {
			m.Close()
			return nil, fmt.Errorf("failed to create backend %q: %w", name, err)
		}
		m.backends[name] = b
	}
	if err := m.SetActive(cfg.Research.Backend); err != nil {
		m.Close()
		return nil, err
	}

	slog.Info("research backends loaded",
		"active", m.active,
		"configured", m.ConfiguredNames(),
	)
	return m, nil
}

// Get returns the backend called name.
func (m *Manager) Get(name string) (Backend, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	b, ok := m.backends[name]
	if !ok {
		return nil, fmt.Errorf("backend %q not found", name)
	}
	return b, nil
}

// Active returns the backend research runs against.
func (m *Manager) Active() Backend {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.backends[m.active]
}

// SetActive switches the active backend.
func (m *Manager) SetActive(name string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, ok := m.backends[name]; !ok {
		return &providers.ConfigError{Provider: name, Field: "research.backend", Message: "unknown backend"}
	}
	m.active = name
	return nil
}

// ConfiguredNames lists the backends that have credentials, sorted.
func (m *Manager) ConfiguredNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var names []string
	for name, b := range m.backends {
		if b.Configured() {
			names = append(names, name)
		}
	}
	slices.Sort(names)
	return names
}

// Health returns the transport health of every backend.
func (m *Manager) Health() map[string]providers.Health {
	m.mu.RLock()
	defer m.mu.RUnlock()

	out := make(map[string]providers.Health, len(m.backends))
	for name, b := range m.backends {
		out[name] = b.Health()
	}
	return out
}

// Close closes every backend transport.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true

	var errs []error
	for name, b := range m.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, fmt.Errorf("failed to close backend %q: %w", name, err))
		}
	}
	return errors.Join(errs...)
}
