package health

import (
	"context"
	"fmt"

	"zoi/sentinel/pkg/providers"
)

// BackendCheck fails while the backend's transport is marked unhealthy.
func BackendCheck(name string, r providers.HealthReporter) Check {
	return Check{
		Name: "backend",
		Func: func(context.Context) error {
			h := r.Health()
			if h.Healthy {
				return nil
			}
			return fmt.Errorf("%s unhealthy after %d consecutive failures: %s",
				name, h.ConsecutiveFailures, h.LastError)
		},
	}
}

// ConfiguredCheck fails when the research backend has no credential. It is
// advisory: lookups are still answered from reference data and placeholders.
func ConfiguredCheck(b providers.Backend) Check {
	return Check{
		Name: "research",
		Func: func(context.Context) error {
			if b.Configured() {
				return nil
			}
			return fmt.Errorf("%s backend not configured; research disabled", b.Name())
		},
	}
}

// StoreCheck is a required check that runs probe, typically a cheap count
// query against a persistent store.
func StoreCheck(name string, probe CheckFunc) Check {
	return Check{Name: name, Required: true, Func: probe}
}
