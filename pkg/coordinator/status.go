package coordinator

import (
	"context"
	"errors"
	"time"

	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/research"
	"zoi/sentinel/pkg/research/storage"
)

// ResearchStatus is the research state of one product key.
type ResearchStatus struct {
	Key              string `json:"slug"`
	ResearchComplete bool   `json:"research_complete"`

	// DataSource and LastUpdated describe the cached record, if any.
	DataSource  compliance.DataSource `json:"data_source,omitempty"`
	LastUpdated time.Time             `json:"last_updated,omitzero"`

	HasCache   bool `json:"has_cache"`
	CacheFresh bool `json:"cache_fresh"`

	// Task is the most recent research task for the key.
	Task *research.Task `json:"task,omitempty"`

	ActiveTasks       int  `json:"active_tasks"`
	BackgroundPending bool `json:"background_pending"`
}

// Stats summarizes the coordinator for health reporting.
type Stats struct {
	Backend        string `json:"backend"`
	Configured     bool   `json:"configured"`
	CacheSize      int    `json:"cache_size"`
	ActiveResearch int    `json:"active_research"`
	InFlight       int    `json:"background_in_flight"`
	KnownProducts  int    `json:"known_products"`
}

// Status reports the research state of rawKey.
func (c *Coordinator) Status(ctx context.Context, rawKey string) *ResearchStatus {
	key := c.catalog.Normalize(rawKey)
	st := &ResearchStatus{
		Key:               key,
		ActiveTasks:       len(c.orch.Tracker().ActiveFor(key)),
		BackgroundPending: c.sup.Pending(key),
	}

	if e, ok := c.cache.Peek(ctx, key); ok {
		st.HasCache = true
		st.CacheFresh = c.cache.IsFresh(e)
		st.DataSource = e.Record.DataSource
		st.LastUpdated = e.Record.LastUpdated
		st.ResearchComplete = e.Record.DataSource == compliance.DataSourceResearch
	}

	if t, ok := c.orch.Tracker().Latest(key); ok {
		st.Task = &t
	} else if t := c.auditedTask(ctx, key); t != nil {
		st.Task = t
	}
	return st
}

func (c *Coordinator) auditedTask(ctx context.Context, key string) *research.Task {
	if c.store == nil {
		return nil
	}
	rec, err := c.store.Latest(ctx, key)
	if err != nil {
		if !errors.Is(err, storage.ErrNotFound) {
			c.logger.Warn("task audit lookup failed", "key", key, "error", err)
		}
		return nil
	}
	return &research.Task{
		ID:          rec.ID,
		Key:         rec.Key,
		ProductName: rec.ProductName,
		Backend:     rec.Backend,
		RemoteID:    rec.RemoteID,
		Status:      research.Status(rec.Status),
		Reason:      research.Reason(rec.Reason),
		Polls:       rec.Polls,
		Background:  rec.Background,
		StartedAt:   rec.StartedAt,
		FinishedAt:  rec.FinishedAt,
	}
}

// Stats returns a snapshot for health reporting.
func (c *Coordinator) Stats(ctx context.Context) Stats {
	return Stats{
		Backend:        c.orch.Backend(),
		Configured:     c.orch.Configured(),
		CacheSize:      c.cache.Len(ctx),
		ActiveResearch: c.orch.Tracker().Active(),
		InFlight:       c.sup.InFlight(),
		KnownProducts:  c.catalog.Base().Len(),
	}
}
