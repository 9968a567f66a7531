package storage

import (
	"cmp"
	"context"
	"slices"
	"sync"
	"time"
)

// MemoryStore keeps task records in process memory.
type MemoryStore struct {
	mu      sync.RWMutex
	records map[string]*TaskRecord
}

var _ Store = (*MemoryStore)(nil)

// NewMemoryStore creates an empty store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{records: make(map[string]*TaskRecord)}
}

func (s *MemoryStore) Save(ctx context.Context, r *TaskRecord) error {
	if err := ctx.Err(); err != nil {
		return newStorageError("memory", "save", err)
	}
	c := *r
	s.mu.Lock()
	s.records[r.ID] = &c
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(ctx context.Context, id string) (*TaskRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.records[id]
	if !ok {
		return nil, ErrNotFound
	}
	c := *r
	return &c, nil
}

func (s *MemoryStore) Latest(ctx context.Context, key string) (*TaskRecord, error) {
	out, err := s.Query(ctx, &Query{Key: key, Limit: 1})
	if err != nil {
		return nil, err
	}
	if len(out) == 0 {
		return nil, ErrNotFound
	}
	return out[0], nil
}

func (s *MemoryStore) Query(ctx context.Context, q *Query) ([]*TaskRecord, error) {
	if q == nil {
		q = &Query{}
	}
	s.mu.RLock()
	out := make([]*TaskRecord, 0, len(s.records))
	for _, r := range s.records {
		if matches(r, q) {
			c := *r
			out = append(out, &c)
		}
	}
	s.mu.RUnlock()

	sortNewestFirst(out)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out, nil
}

func (s *MemoryStore) Count(ctx context.Context) (int64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.records)), nil
}

func (s *MemoryStore) DeleteBefore(ctx context.Context, t time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for id, r := range s.records {
		if r.FinishedAt.Before(t) {
			delete(s.records, id)
			n++
		}
	}
	return n, nil
}

func (s *MemoryStore) DeleteOldest(ctx context.Context, keep int64) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if int64(len(s.records)) <= keep {
		return 0, nil
	}
	all := make([]*TaskRecord, 0, len(s.records))
	for _, r := range s.records {
		all = append(all, r)
	}
	sortNewestFirst(all)
	var n int64
	for _, r := range all[keep:] {
		delete(s.records, r.ID)
		n++
	}
	return n, nil
}

func (s *MemoryStore) Close() error { return nil }

func matches(r *TaskRecord, q *Query) bool {
	if q.Key != "" && r.Key != q.Key {
		return false
	}
	if q.Status != "" && r.Status != q.Status {
		return false
	}
	if !q.Since.IsZero() && r.StartedAt.Before(q.Since) {
		return false
	}
	if !q.Until.IsZero() && !r.StartedAt.Before(q.Until) {
		return false
	}
	return true
}

func sortNewestFirst(rs []*TaskRecord) {
	slices.SortFunc(rs, func(a, b *TaskRecord) int {
		if c := b.StartedAt.Compare(a.StartedAt); c != 0 {
			return c
		}
		return cmp.Compare(b.ID, a.ID)
	})
}
