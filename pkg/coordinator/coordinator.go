package coordinator

import (
	"context"
	"errors"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"

	"zoi/sentinel/pkg/cache"
	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/reference"
	"zoi/sentinel/pkg/research"
	"zoi/sentinel/pkg/research/storage"
	"zoi/sentinel/pkg/telemetry/tracing"
	"zoi/sentinel/pkg/truth"
)

var tracer = otel.Tracer(tracing.InstrumentationName + "/coordinator")

// Source names the step of the fallback chain that produced a result.
type Source string

const (
	SourceCache       Source = "cache"
	SourceResearch    Source = "research"
	SourceReference   Source = "reference"
	SourceStale       Source = "stale"
	SourcePlaceholder Source = "placeholder"
)

// Background research states reported on records.
const (
	ResearchStarted = "started_in_background"
	ResearchPending = "pending_in_background"
)

const (
	noteCache     = "Dados em cache"
	noteReference = "Dados de referência. Pesquisa IA em andamento..."
	noteStale     = "Dados de pesquisa expirados. Atualização em andamento..."
)

// Provenance describes how a result was obtained.
type Provenance struct {
	Source Source `json:"source"`
	Key    string `json:"key"`

	// BackgroundScheduled is set when this lookup started a background run.
	BackgroundScheduled bool `json:"background_scheduled"`

	// RefreshReason is set when a forced refresh did not produce a record.
	RefreshReason research.Reason `json:"refresh_reason,omitempty"`

	TaskID string `json:"task_id,omitempty"`
}

// Result is the answer to a lookup. Record is never nil.
type Result struct {
	Record     *compliance.Record `json:"product"`
	Provenance Provenance         `json:"provenance"`
}

// Metrics receives coordinator and research observations.
type Metrics interface {
	research.Metrics
	ObserveLookup(source string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTask(string, research.Status, time.Duration) {}
func (noopMetrics) ObserveExtractionFailure(string)                    {}
func (noopMetrics) ObserveCorrections(int)                             {}
func (noopMetrics) SetInFlight(int)                                    {}
func (noopMetrics) ObserveLookup(string)                               {}

// Config tunes a Coordinator.
type Config struct {
	// MaxConcurrent bounds background research runs.
	MaxConcurrent int

	// TradeRoute is stamped on placeholders.
	TradeRoute compliance.TradeRoute
}

// Deps are the collaborators of a Coordinator. Cache, Catalog and
// Orchestrator are required. Store, when set, backs Status for tasks that
// predate the process.
type Deps struct {
	Cache        *cache.Cache
	Catalog      *reference.Catalog
	Validator    *truth.Validator
	Orchestrator *research.Orchestrator
	Store        storage.Store
	Metrics      Metrics
}

// Coordinator serves lookups. It is safe for concurrent use.
type Coordinator struct {
	cache     *cache.Cache
	catalog   *reference.Catalog
	validator *truth.Validator
	orch      *research.Orchestrator
	sup       *research.Supervisor
	store     storage.Store
	metrics   Metrics
	route     compliance.TradeRoute
	logger    *slog.Logger

	mu     sync.Mutex
	seeded map[string]struct{}
}

// New creates a coordinator and its research supervisor.
func New(cfg Config, deps Deps) *Coordinator {
	if deps.Validator == nil {
		deps.Validator = truth.NewValidator(nil)
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}
	if cfg.TradeRoute.Origin == "" {
		cfg.TradeRoute = research.DefaultTradeRoute
	}

	c := &Coordinator{
		cache:     deps.Cache,
		catalog:   deps.Catalog,
		validator: deps.Validator,
		orch:      deps.Orchestrator,
		store:     deps.Store,
		metrics:   deps.Metrics,
		route:     cfg.TradeRoute,
		logger:    slog.Default().With("component", "coordinator"),
		seeded:    make(map[string]struct{}),
	}
	c.sup = research.NewSupervisor(deps.Orchestrator, research.SupervisorConfig{
		MaxConcurrent: cfg.MaxConcurrent,
		OnDone:        c.recordOutcome,
		Metrics:       deps.Metrics,
	})
	return c
}

// Lookup resolves rawKey to a compliance record. forceRefresh skips the
// cache and waits for a research run when the backend is configured.
func (c *Coordinator) Lookup(ctx context.Context, rawKey string, forceRefresh bool) *Result {
	key := c.catalog.Normalize(rawKey)
	name := compliance.DisplayName(rawKey)
	prov := Provenance{Key: key}

	ctx, span := tracer.Start(ctx, "coordinator.lookup")
	defer span.End()

	res := c.resolve(ctx, key, name, forceRefresh, prov)
	span.SetAttributes(tracing.LookupAttributes(key, string(res.Provenance.Source), forceRefresh)...)
	c.metrics.ObserveLookup(string(res.Provenance.Source))
	c.logger.Debug("lookup resolved",
		"key", key,
		"source", res.Provenance.Source,
		"force_refresh", forceRefresh,
		"background_scheduled", res.Provenance.BackgroundScheduled,
	)
	return res
}

func (c *Coordinator) resolve(ctx context.Context, key, name string, force bool, prov Provenance) *Result {
	if !force {
		if rec, ok := c.cache.Get(ctx, key); ok {
			rec = c.validator.Validate(rec)
			rec.SourceNote = noteCache
			prov.Source = SourceCache
			prov.TaskID = rec.ResearchTaskID
			return &Result{Record: rec, Provenance: prov}
		}
	}

	if force && c.orch.Configured() {
		c.logger.Info("forced refresh", "key", key)
		out := c.sup.Run(ctx, research.Request{Key: key, ProductName: name})
		prov.TaskID = out.Task.ID
		if out.OK() {
			prov.Source = SourceResearch
			return &Result{Record: out.Record.Clone(), Provenance: prov}
		}
		prov.RefreshReason = out.Task.Reason
		c.logger.Warn("forced refresh failed, falling back",
			"key", key,
			"status", out.Task.Status,
			"reason", out.Task.Reason,
			"error", out.Err,
		)
	}

	if rec, ok := c.catalog.Lookup(key); ok {
		rec = c.validator.Validate(rec)
		rec.NeedsAIUpdate = true
		rec.LastUpdated = time.Now().UTC()
		rec.SourceNote = noteReference
		if err := c.cache.Set(ctx, key, rec); err != nil {
			c.logger.Warn("failed to cache reference record", "key", key, "error", err)
		}

		if c.firstSeed(key) {
			prov.BackgroundScheduled = c.schedule(key, name)
		}
		rec.ResearchStatus = c.backgroundState(key, prov.BackgroundScheduled)
		prov.Source = SourceReference
		return &Result{Record: rec, Provenance: prov}
	}

	if e, ok := c.cache.Peek(ctx, key); ok && e.Record.DataSource == compliance.DataSourceResearch {
		rec := c.validator.Validate(e.Record)
		if c.cache.IsFresh(e) {
			rec.SourceNote = noteCache
			prov.Source = SourceCache
		} else {
			rec.SourceNote = noteStale
			prov.Source = SourceStale
			prov.BackgroundScheduled = c.schedule(key, name)
			rec.ResearchStatus = c.backgroundState(key, prov.BackgroundScheduled)
		}
		prov.TaskID = rec.ResearchTaskID
		return &Result{Record: rec, Provenance: prov}
	}

	configured := c.orch.Configured()
	rec := reference.Placeholder(key, name, c.route, configured)
	if configured {
		prov.BackgroundScheduled = c.schedule(key, name)
		rec.ResearchStatus = c.backgroundState(key, prov.BackgroundScheduled)
	}
	prov.Source = SourcePlaceholder
	return &Result{Record: rec, Provenance: prov}
}

// schedule starts background research for key when the backend can run.
func (c *Coordinator) schedule(key, name string) bool {
	if !c.orch.Configured() {
		return false
	}
	return c.sup.Schedule(research.Request{Key: key, ProductName: name})
}

func (c *Coordinator) backgroundState(key string, scheduled bool) string {
	switch {
	case scheduled:
		return ResearchStarted
	case c.sup.Pending(key):
		return ResearchPending
	}
	return ""
}

// firstSeed reports whether key is being served from the reference base for
// the first time.
func (c *Coordinator) firstSeed(key string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, ok := c.seeded[key]; ok {
		return false
	}
	c.seeded[key] = struct{}{}
	return true
}

// recordOutcome caches successful research. It runs on the supervisor's
// goroutines.
func (c *Coordinator) recordOutcome(out *research.Outcome) {
	if !out.OK() {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.cache.Set(ctx, out.Task.Key, out.Record); err != nil {
		c.logger.Error("failed to cache research result", "key", out.Task.Key, "task_id", out.Task.ID, "error", err)
	}
}

// Products lists the reference knowledge base.
func (c *Coordinator) Products() []reference.Summary {
	return c.catalog.Products()
}

// Close waits for background research. If ctx ends first the remaining
// runs are cancelled.
func (c *Coordinator) Close(ctx context.Context) error {
	err := c.sup.Close(ctx)
	if errors.Is(err, context.DeadlineExceeded) {
		c.logger.Warn("background research cancelled at shutdown")
	}
	return err
}
