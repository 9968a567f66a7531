package storage

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"
)

func stores(t *testing.T) map[string]Store {
	t.Helper()
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "tasks.db")
	sqlite, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("NewSQLiteStore() error = %v", err)
	}
	t.Cleanup(func() { _ = sqlite.Close() })
	return map[string]Store{"memory": NewMemoryStore(), "sqlite": sqlite}
}

func record(id, key, status string, started time.Time) *TaskRecord {
	return &TaskRecord{
		ID:          id,
		Key:         key,
		ProductName: "Produto " + key,
		Backend:     "manus",
		RemoteID:    "remote-" + id,
		Status:      status,
		Polls:       3,
		Background:  true,
		StartedAt:   started,
		FinishedAt:  started.Add(15 * time.Second),
		Duration:    15 * time.Second,
	}
}

func TestStore_SaveGetLatest(t *testing.T) {
	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for _, r := range []*TaskRecord{
				record("a", "cafe", "COMPLETED", base),
				record("b", "cafe", "TIMED_OUT", base.Add(time.Hour)),
				record("c", "acai", "FAILED", base.Add(2*time.Hour)),
			} {
				if err := s.Save(ctx, r); err != nil {
					t.Fatalf("Save() error = %v", err)
				}
			}

			got, err := s.Get(ctx, "a")
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if got.RemoteID != "remote-a" || !got.StartedAt.Equal(base) || got.Duration != 15*time.Second || !got.Background {
				t.Errorf("Get() = %+v", got)
			}

			latest, err := s.Latest(ctx, "cafe")
			if err != nil {
				t.Fatalf("Latest() error = %v", err)
			}
			if latest.ID != "b" {
				t.Errorf("Latest().ID = %q, want b", latest.ID)
			}

			if _, err := s.Get(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Get(missing) error = %v, want ErrNotFound", err)
			}
			if _, err := s.Latest(ctx, "missing"); !errors.Is(err, ErrNotFound) {
				t.Errorf("Latest(missing) error = %v, want ErrNotFound", err)
			}

			// Save replaces by ID.
			updated := record("a", "cafe", "PARSE_ERROR", base)
			updated.Reason = "parse_error"
			if err := s.Save(ctx, updated); err != nil {
				t.Fatal(err)
			}
			if n, _ := s.Count(ctx); n != 3 {
				t.Errorf("Count() = %d, want 3", n)
			}
			got, _ = s.Get(ctx, "a")
			if got.Status != "PARSE_ERROR" || got.Reason != "parse_error" {
				t.Errorf("replaced record = %+v", got)
			}
		})
	}
}

func TestStore_Query(t *testing.T) {
	base := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i, status := range []string{"COMPLETED", "FAILED", "COMPLETED", "TIMED_OUT"} {
				id := string(rune('a' + i))
				if err := s.Save(ctx, record(id, "soja_grao", status, base.Add(time.Duration(i)*time.Hour))); err != nil {
					t.Fatal(err)
				}
			}

			tests := []struct {
				name  string
				query *Query
				want  []string
			}{
				{"all newest first", nil, []string{"d", "c", "b", "a"}},
				{"by status", &Query{Status: "COMPLETED"}, []string{"c", "a"}},
				{"since", &Query{Since: base.Add(2 * time.Hour)}, []string{"d", "c"}},
				{"until", &Query{Until: base.Add(time.Hour)}, []string{"a"}},
				{"limit", &Query{Limit: 2}, []string{"d", "c"}},
				{"other key", &Query{Key: "cafe"}, nil},
			}
			for _, tt := range tests {
				got, err := s.Query(ctx, tt.query)
				if err != nil {
					t.Fatalf("%s: Query() error = %v", tt.name, err)
				}
				var ids []string
				for _, r := range got {
					ids = append(ids, r.ID)
				}
				if len(ids) != len(tt.want) {
					t.Errorf("%s: ids = %v, want %v", tt.name, ids, tt.want)
					continue
				}
				for i := range ids {
					if ids[i] != tt.want[i] {
						t.Errorf("%s: ids = %v, want %v", tt.name, ids, tt.want)
						break
					}
				}
			}
		})
	}
}

func TestStore_Delete(t *testing.T) {
	base := time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC)
	for name, s := range stores(t) {
		t.Run(name, func(t *testing.T) {
			ctx := context.Background()
			for i := range 5 {
				id := string(rune('a' + i))
				if err := s.Save(ctx, record(id, "k", "COMPLETED", base.AddDate(0, 0, i))); err != nil {
					t.Fatal(err)
				}
			}

			n, err := s.DeleteBefore(ctx, base.AddDate(0, 0, 2))
			if err != nil {
				t.Fatalf("DeleteBefore() error = %v", err)
			}
			if n != 2 {
				t.Errorf("DeleteBefore() = %d, want 2", n)
			}

			n, err = s.DeleteOldest(ctx, 1)
			if err != nil {
				t.Fatalf("DeleteOldest() error = %v", err)
			}
			if n != 2 {
				t.Errorf("DeleteOldest() = %d, want 2", n)
			}
			latest, err := s.Latest(ctx, "k")
			if err != nil || latest.ID != "e" {
				t.Errorf("Latest() = %+v, %v; want e", latest, err)
			}
			if c, _ := s.Count(ctx); c != 1 {
				t.Errorf("Count() = %d, want 1", c)
			}
		})
	}
}

func TestSQLiteStore_Reopen(t *testing.T) {
	cfg := DefaultSQLiteConfig()
	cfg.Path = filepath.Join(t.TempDir(), "nested", "tasks.db")

	s, err := NewSQLiteStore(cfg)
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Save(context.Background(), record("x", "cafe", "COMPLETED", time.Now())); err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}

	s, err = NewSQLiteStore(cfg)
	if err != nil {
		t.Fatalf("reopen error = %v", err)
	}
	defer s.Close()
	if _, err := s.Get(context.Background(), "x"); err != nil {
		t.Errorf("Get() after reopen error = %v", err)
	}
}
