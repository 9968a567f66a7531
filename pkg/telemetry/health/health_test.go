package health

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"zoi/sentinel/pkg/providers"
)

func ok(context.Context) error { return nil }

func failing(msg string) CheckFunc {
	return func(context.Context) error { return errors.New(msg) }
}

func TestChecker_Run(t *testing.T) {
	tests := []struct {
		name   string
		checks []Check
		want   string
	}{
		{name: "no checks", want: StatusHealthy},
		{
			name:   "all passing",
			checks: []Check{{Name: "cache", Func: ok, Required: true}, {Name: "backend", Func: ok}},
			want:   StatusHealthy,
		},
		{
			name:   "advisory failure degrades",
			checks: []Check{{Name: "cache", Func: ok, Required: true}, {Name: "backend", Func: failing("down")}},
			want:   StatusDegraded,
		},
		{
			name: "required failure wins",
			checks: []Check{
				{Name: "backend", Func: failing("down")},
				{Name: "cache", Func: failing("disk full"), Required: true},
			},
			want: StatusUnhealthy,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := New(time.Second)
			for _, check := range tt.checks {
				c.Register(check)
			}
			report := c.Run(context.Background())
			if report.Status != tt.want {
				t.Errorf("status = %q, want %q (%+v)", report.Status, tt.want, report.Checks)
			}
			if len(report.Checks) != len(tt.checks) {
				t.Errorf("got %d results, want %d", len(report.Checks), len(tt.checks))
			}
		})
	}
}

func TestChecker_Timeout(t *testing.T) {
	c := New(20 * time.Millisecond)
	c.Register(Check{Name: "slow", Required: true, Func: func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(50 * time.Millisecond)
		return nil
	}})

	report := c.Run(context.Background())
	res := report.Checks["slow"]
	if res.Status != StatusUnhealthy || res.Message != ErrCheckTimeout.Error() {
		t.Errorf("unexpected result %+v", res)
	}
}

type fakeBackend struct {
	providers.Backend
	configured bool
	health     providers.Health
}

func (f fakeBackend) Name() string { return "manus" }
func (f fakeBackend) Configured() bool { return f.configured }
func (f fakeBackend) Health() providers.Health { return f.health }

func TestDomainChecks(t *testing.T) {
	ctx := context.Background()

	if err := ConfiguredCheck(fakeBackend{}).Func(ctx); err == nil {
		t.Error("unconfigured backend must fail the research check")
	}
	if err := ConfiguredCheck(fakeBackend{configured: true}).Func(ctx); err != nil {
		t.Errorf("configured backend: %v", err)
	}

	sick := fakeBackend{health: providers.Health{Healthy: false, ConsecutiveFailures: 3, LastError: "503"}}
	if err := BackendCheck("manus", sick).Func(ctx); err == nil {
		t.Error("unhealthy transport must fail the backend check")
	}
	if check := StoreCheck("cache_store", ok); !check.Required {
		t.Error("store checks must be required")
	}
}

func TestReadinessHandler(t *testing.T) {
	c := New(time.Second)
	c.Register(Check{Name: "backend", Func: failing("down")})

	rec := httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusOK {
		t.Errorf("degraded service must stay ready, got %d", rec.Code)
	}

	var report Report
	if err := json.NewDecoder(rec.Body).Decode(&report); err != nil {
		t.Fatal(err)
	}
	if report.Status != StatusDegraded || report.Checks["backend"].Message != "down" {
		t.Errorf("unexpected report %+v", report)
	}

	c.Register(Check{Name: "tasks", Required: true, Func: failing("locked")})
	rec = httptest.NewRecorder()
	c.ReadinessHandler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if rec.Code != http.StatusServiceUnavailable {
		t.Errorf("required failure must answer 503, got %d", rec.Code)
	}
}
