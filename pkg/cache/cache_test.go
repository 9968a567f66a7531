package cache

import (
	"context"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"zoi/sentinel/pkg/compliance"
)

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

func newClock() *clock {
	return &clock{now: time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)}
}

func stores(t *testing.T) map[string]Store {
	t.Helper()
	sqlite, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "cache", "compliance.db")})
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { sqlite.Close() })
	return map[string]Store{
		"memory": NewMemoryStore(),
		"sqlite": sqlite,
	}
}

func record(slug string, score int) *compliance.Record {
	return &compliance.Record{
		Slug:        slug,
		ProductName: compliance.DisplayName(slug),
		NCMCode:     "0801.12.00",
		RiskScore:   score,
		RiskLevel:   compliance.LevelForScore(score),
		Status:      compliance.StatusApproved,
		Alerts:      []string{"Verificar certificado fitossanitário"},
		MaxResidueLimits: map[string]compliance.ResidueLimit{
			"glyphosate": {Limit: "0.1 mg/kg", Status: "conforme"},
		},
		DataSource: compliance.DataSourceResearch,
	}
}

func TestCache_TTLBoundary(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			clk := newClock()
			c := New(store, WithTTL(24*time.Hour), WithClock(clk.Now))

			if err := c.Set(ctx, "acai", record("acai", 85)); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			clk.Advance(24*time.Hour - time.Second)
			if _, ok := c.Get(ctx, "acai"); !ok {
				t.Error("Get() at ttl-1s = miss, want hit")
			}

			clk.Advance(2 * time.Second)
			if _, ok := c.Get(ctx, "acai"); ok {
				t.Error("Get() at ttl+1s = hit, want miss")
			}

			e, ok := c.Peek(ctx, "acai")
			if !ok || e.Record.Slug != "acai" {
				t.Fatalf("Peek() = %v, %v, want stale entry", e, ok)
			}
			if c.IsFresh(e) {
				t.Error("IsFresh() = true for expired entry")
			}
			if got := e.Age(clk.Now()); got != 24*time.Hour+time.Second {
				t.Errorf("Age() = %s", got)
			}
		})
	}
}

func TestCache_RoundTrip(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			c := New(store)
			in := record("cafe", 78)
			if err := c.Set(ctx, "cafe", in); err != nil {
				t.Fatal(err)
			}

			// Mutating the caller's copy must not reach the cache.
			in.Alerts[0] = "changed"
			in.MaxResidueLimits["glyphosate"] = compliance.ResidueLimit{Status: "banned"}

			got, ok := c.Get(ctx, "cafe")
			if !ok {
				t.Fatal("Get() = miss")
			}
			if got.Alerts[0] != "Verificar certificado fitossanitário" {
				t.Errorf("Alerts = %v", got.Alerts)
			}
			if got.MaxResidueLimits["glyphosate"].Status != "conforme" {
				t.Errorf("residues = %v", got.MaxResidueLimits)
			}
			if got.RiskScore != 78 || got.DataSource != compliance.DataSourceResearch {
				t.Errorf("record = %+v", got)
			}

			got.Alerts = nil
			again, _ := c.Get(ctx, "cafe")
			if len(again.Alerts) != 1 {
				t.Error("Get() returned shared record memory")
			}
		})
	}
}

func TestCache_InvalidateAndLen(t *testing.T) {
	for name, store := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			metrics := &sizeMetrics{}
			c := New(store, WithMetrics(metrics))

			for _, k := range []string{"acai", "cafe", "soja_grao"} {
				if err := c.Set(ctx, k, record(k, 80)); err != nil {
					t.Fatal(err)
				}
			}
			if c.Len(ctx) != 3 || metrics.size != 3 {
				t.Fatalf("Len() = %d, gauge = %d", c.Len(ctx), metrics.size)
			}

			if err := c.Invalidate(ctx, "cafe"); err != nil {
				t.Fatal(err)
			}
			if err := c.Invalidate(ctx, "missing"); err != nil {
				t.Errorf("Invalidate(missing) error = %v", err)
			}
			if _, ok := c.Get(ctx, "cafe"); ok {
				t.Error("Get() after Invalidate = hit")
			}
			if c.Len(ctx) != 2 || metrics.size != 2 {
				t.Errorf("Len() = %d, gauge = %d", c.Len(ctx), metrics.size)
			}
			if metrics.hits != 0 || metrics.misses != 1 {
				t.Errorf("hits/misses = %d/%d", metrics.hits, metrics.misses)
			}
		})
	}
}

func TestCache_LastWriterWins(t *testing.T) {
	ctx := context.Background()
	c := New(NewMemoryStore())

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Go(func() { _ = c.Set(ctx, "acai", record("acai", i)) })
	}
	wg.Wait()

	if _, ok := c.Get(ctx, "acai"); !ok {
		t.Fatal("Get() = miss after concurrent writes")
	}
	if c.Len(ctx) != 1 {
		t.Errorf("Len() = %d, want 1", c.Len(ctx))
	}
}

func TestSQLiteStore_MalformedTimestamp(t *testing.T) {
	ctx := context.Background()
	store, err := NewSQLiteStore(SQLiteConfig{Path: filepath.Join(t.TempDir(), "cache.db")})
	if err != nil {
		t.Fatal(err)
	}
	defer store.Close()

	c := New(store)
	if err := c.Set(ctx, "acai", record("acai", 85)); err != nil {
		t.Fatal(err)
	}
	if _, err := store.db.ExecContext(ctx,
		`UPDATE compliance_cache SET stored_at = 'not-a-timestamp' WHERE key = ?`, "acai"); err != nil {
		t.Fatal(err)
	}

	if _, ok := c.Get(ctx, "acai"); ok {
		t.Error("Get() = hit for malformed timestamp")
	}
	if _, ok := c.Peek(ctx, "acai"); ok {
		t.Error("Peek() = hit for malformed timestamp")
	}

	n, err := c.Evict(ctx, time.Hour)
	if err != nil {
		t.Fatalf("Evict() error = %v", err)
	}
	if n != 1 || c.Len(ctx) != 0 {
		t.Errorf("Evict() = %d, Len() = %d; malformed row should be swept", n, c.Len(ctx))
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	ctx := context.Background()
	path := filepath.Join(t.TempDir(), "cache.db")

	store, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	if err := New(store).Set(ctx, "acai", record("acai", 85)); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Fatal(err)
	}
	if err := store.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}

	reopened, err := NewSQLiteStore(SQLiteConfig{Path: path})
	if err != nil {
		t.Fatal(err)
	}
	defer reopened.Close()

	got, ok := New(reopened).Get(ctx, "acai")
	if !ok || got.RiskScore != 85 {
		t.Errorf("Get() after reopen = %+v, %v", got, ok)
	}
}

type sizeMetrics struct {
	mu           sync.Mutex
	hits, misses int
	size         int
}

func (m *sizeMetrics) ObserveCacheLookup(hit bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if hit {
		m.hits++
	} else {
		m.misses++
	}
}

func (m *sizeMetrics) SetCacheSize(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.size = n
}
