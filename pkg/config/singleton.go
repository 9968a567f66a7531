package config

import (
	"fmt"
	"sync"
)

var (
	// global holds the process-wide configuration.
	global *Config

	globalMu sync.RWMutex

	initOnce sync.Once
	initErr  error
)

// Initialize loads configuration from path with environment overrides and
// stores it as the process-wide configuration. Only the first call loads;
// later calls return the first call's error.
func Initialize(path string) error {
	initOnce.Do(func() {
		cfg, err := LoadConfigWithEnvOverrides(path)
		if err != nil {
			initErr = err
			return
		}
		Set(cfg)
	})
	return initErr
}

// Get returns the process-wide configuration, or nil before a successful
// Initialize or Set.
func Get() *Config {
	globalMu.RLock()
	defer globalMu.RUnlock()
	return global
}

// Set replaces the process-wide configuration. Intended for tests and for
// commands that build a Config themselves.
func Set(cfg *Config) {
	globalMu.Lock()
	defer globalMu.Unlock()
	global = cfg
}

// Reload loads path again and replaces the process-wide configuration only
// if loading and validation succeed.
func Reload(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	Set(cfg)
	return nil
}

// MustGet returns the process-wide configuration and panics if it has not
// been initialized.
func MustGet() *Config {
	cfg := Get()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}

// reset clears the singleton state.
func reset() {
	globalMu.Lock()
	global = nil
	globalMu.Unlock()
	initOnce = sync.Once{}
	initErr = nil
}
