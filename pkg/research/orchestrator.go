package research

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/extraction"
	"zoi/sentinel/pkg/providers"
	"zoi/sentinel/pkg/research/storage"
	"zoi/sentinel/pkg/telemetry/tracing"
	"zoi/sentinel/pkg/truth"
)

const (
	DefaultPollInterval = 5 * time.Second
	DefaultDeadline     = 300 * time.Second

	// auditTimeout bounds the audit write after a task ends.
	auditTimeout = 5 * time.Second
)

var tracer = otel.Tracer(tracing.InstrumentationName + "/research")

// Metrics receives research observations. A nil Metrics in Deps disables
// them.
type Metrics interface {
	ObserveTask(backend string, status Status, d time.Duration)
	ObserveExtractionFailure(reason string)
	ObserveCorrections(n int)
	SetInFlight(n int)
}

type noopMetrics struct{}

func (noopMetrics) ObserveTask(string, Status, time.Duration) {}
func (noopMetrics) ObserveExtractionFailure(string)           {}
func (noopMetrics) ObserveCorrections(int)                    {}
func (noopMetrics) SetInFlight(int)                           {}

// Config tunes an Orchestrator.
type Config struct {
	// PollInterval is the wait between polls.
	PollInterval time.Duration

	// Deadline bounds a task from submission to its last poll.
	Deadline time.Duration

	// TradeRoute is stamped on records that do not name one.
	TradeRoute compliance.TradeRoute

	// PreviewLength bounds the payload preview kept in the audit trail.
	PreviewLength int
}

// Deps are the collaborators of an Orchestrator. Backend is required; the
// others default to fresh instances.
type Deps struct {
	Backend   providers.Backend
	Engine    *extraction.Engine
	Validator *truth.Validator
	Tracker   *Tracker
	Store     storage.Store
	Metrics   Metrics
}

// Request asks for research on one product.
type Request struct {
	Key         string
	ProductName string
	Background  bool
}

// Outcome is the result of one research attempt. Record is set only when
// Task.Status is StatusCompleted.
type Outcome struct {
	Task   Task
	Record *compliance.Record
	Err    error
}

// OK reports whether the attempt produced a record.
func (o *Outcome) OK() bool {
	return o != nil && o.Record != nil && o.Task.Status == StatusCompleted
}

// Orchestrator runs research tasks against one backend.
type Orchestrator struct {
	cfg       Config
	backend   providers.Backend
	engine    *extraction.Engine
	validator *truth.Validator
	tracker   *Tracker
	store     storage.Store
	metrics   Metrics
	prompts   *PromptBuilder
	logger    *slog.Logger

	now func() time.Time
}

// New creates an orchestrator.
func New(cfg Config, deps Deps) *Orchestrator {
	if cfg.PollInterval <= 0 {
		cfg.PollInterval = DefaultPollInterval
	}
	if cfg.Deadline <= 0 {
		cfg.Deadline = DefaultDeadline
	}
	if cfg.PreviewLength <= 0 {
		cfg.PreviewLength = extraction.DefaultPreviewLength
	}
	if deps.Engine == nil {
		deps.Engine = extraction.New()
	}
	if deps.Validator == nil {
		deps.Validator = truth.NewValidator(nil)
	}
	if deps.Tracker == nil {
		deps.Tracker = NewTracker()
	}
	if deps.Metrics == nil {
		deps.Metrics = noopMetrics{}
	}

	prompts := NewPromptBuilder(cfg.TradeRoute)
	cfg.TradeRoute = prompts.Route

	return &Orchestrator{
		cfg:       cfg,
		backend:   deps.Backend,
		engine:    deps.Engine,
		validator: deps.Validator,
		tracker:   deps.Tracker,
		store:     deps.Store,
		metrics:   deps.Metrics,
		prompts:   prompts,
		logger:    slog.Default().With("component", "research", "backend", deps.Backend.Name()),
		now:       time.Now,
	}
}

// Backend returns the backend name.
func (o *Orchestrator) Backend() string { return o.backend.Name() }

// Configured reports whether the backend can run.
func (o *Orchestrator) Configured() bool { return o.backend.Configured() }

// Deadline returns the task deadline.
func (o *Orchestrator) Deadline() time.Duration { return o.cfg.Deadline }

// Tracker returns the task tracker.
func (o *Orchestrator) Tracker() *Tracker { return o.tracker }

// Run performs one research attempt. It never returns nil; failures are
// described by the outcome's task status and reason.
func (o *Orchestrator) Run(ctx context.Context, req Request) *Outcome {
	if req.ProductName == "" {
		req.ProductName = compliance.DisplayName(req.Key)
	}
	t := &Task{
		ID:          uuid.NewString(),
		Key:         req.Key,
		ProductName: req.ProductName,
		Backend:     o.backend.Name(),
		Status:      StatusSubmitted,
		Background:  req.Background,
		StartedAt:   o.now(),
	}
	o.tracker.Update(*t)

	ctx, span := tracer.Start(ctx, "research.run", trace.WithAttributes(
		tracing.KeyProductKey.String(t.Key),
		attribute.Bool("sentinel.research.background", t.Background),
	))
	defer span.End()

	logger := o.logger.With("task_id", t.ID, "key", t.Key, "background", t.Background)
	logger.Info("research task submitted", "product", t.ProductName)

	out, payload := o.run(ctx, t, req)
	t.FinishedAt = o.now()
	out.Task = *t

	span.SetAttributes(tracing.ResearchAttributes(t.Backend, t.ID, string(t.Status), string(t.Reason))...)
	span.SetAttributes(attribute.Int("sentinel.research.polls", t.Polls))
	tracing.RecordError(span, out.Err)

	o.tracker.Update(*t)
	o.metrics.ObserveTask(t.Backend, t.Status, t.Duration())
	o.audit(ctx, t, payload, logger)

	if out.OK() {
		logger.Info("research task completed",
			"remote_id", t.RemoteID,
			"polls", t.Polls,
			"duration", t.Duration(),
			"status", out.Record.Status,
			"risk_score", out.Record.RiskScore,
		)
	} else {
		logger.Warn("research task ended without a record",
			"remote_id", t.RemoteID,
			"status", t.Status,
			"reason", t.Reason,
			"polls", t.Polls,
			"duration", t.Duration(),
			"error", out.Err,
		)
	}
	return out
}

// run drives t to a terminal state and returns the outcome with the raw
// payload, if any.
func (o *Orchestrator) run(ctx context.Context, t *Task, req Request) (*Outcome, any) {
	if !o.backend.Configured() {
		err := &providers.ConfigError{Provider: o.backend.Name(), Field: "api_key", Message: "not set"}
		return o.fail(t, ReasonNotConfigured, err), nil
	}

	runCtx, cancel := context.WithTimeout(ctx, o.cfg.Deadline)
	defer cancel()

	sub, err := o.backend.Submit(runCtx, o.prompts.Build(req.ProductName))
	if err != nil {
		return o.fail(t, o.classify(ctx, runCtx, err, ReasonSubmissionFailed), err), nil
	}
	t.RemoteID = sub.Handle.ID

	result := sub.Result
	if result == nil {
		t.Status = StatusPolling
		o.tracker.Update(*t)
	}
	for result == nil || !result.Status.Terminal() {
		if t.Polls > 0 {
			if err := o.wait(runCtx); err != nil {
				return o.fail(t, o.classify(ctx, runCtx, err, ReasonTimedOut), err), nil
			}
		}
		res, err := o.backend.Poll(runCtx, sub.Handle)
		t.Polls++
		if err != nil {
			return o.fail(t, o.classify(ctx, runCtx, err, ReasonPollFailed), err), nil
		}
		result = res
		o.tracker.Update(*t)
	}

	if result.Status == providers.PollFailed {
		err := fmt.Errorf("backend reported failure: %s", result.Reason)
		t.Detail = result.Reason
		return o.fail(t, ReasonBackendFailed, err), result.Payload
	}

	rec, err := o.engine.ExtractFor(req.Key, result.Payload)
	if err != nil {
		var failure *extraction.ExtractionFailure
		if errors.As(err, &failure) {
			o.metrics.ObserveExtractionFailure(failure.Reason)
			t.Detail = failure.Preview
		}
		return o.fail(t, ReasonParseError, err), result.Payload
	}

	rec, report := o.validator.Apply(o.stamp(rec, t))
	if report.Corrected > 0 {
		o.metrics.ObserveCorrections(report.Corrected)
	}
	t.Status = StatusCompleted
	return &Outcome{Record: rec}, result.Payload
}

// stamp attaches provenance to an extracted record.
func (o *Orchestrator) stamp(rec *compliance.Record, t *Task) *compliance.Record {
	rec.Slug = t.Key
	rec.DataSource = compliance.DataSourceResearch
	rec.LastUpdated = o.now().UTC()
	rec.ResearchTaskID = t.ID
	rec.NeedsAIUpdate = false
	rec.ResearchStatus = "completed"
	rec.SourceNote = fmt.Sprintf("Pesquisa realizada via %s", t.Backend)
	if rec.TradeRoute.Origin == "" && rec.TradeRoute.Destination == "" {
		rec.TradeRoute = o.cfg.TradeRoute
	}
	return rec
}

func (o *Orchestrator) fail(t *Task, reason Reason, err error) *Outcome {
	t.Status = statusFor(reason)
	t.Reason = reason
	if t.Detail == "" && err != nil {
		t.Detail = err.Error()
	}
	return &Outcome{Err: err}
}

// classify prefers the state of the contexts over the error: a cancelled
// parent means the caller went away, an expired run context means the
// deadline passed.
func (o *Orchestrator) classify(parent, run context.Context, err error, fallback Reason) Reason {
	switch {
	case errors.Is(parent.Err(), context.Canceled):
		return ReasonCancelled
	case run.Err() != nil:
		return ReasonTimedOut
	}
	return Classify(err, fallback)
}

func (o *Orchestrator) wait(ctx context.Context) error {
	timer := time.NewTimer(o.cfg.PollInterval)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

func (o *Orchestrator) audit(ctx context.Context, t *Task, payload any, logger *slog.Logger) {
	if o.store == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), auditTimeout)
	defer cancel()

	rec := &storage.TaskRecord{
		ID:          t.ID,
		Key:         t.Key,
		ProductName: t.ProductName,
		Backend:     t.Backend,
		RemoteID:    t.RemoteID,
		Status:      string(t.Status),
		Reason:      string(t.Reason),
		Polls:       t.Polls,
		Background:  t.Background,
		Preview:     o.preview(t, payload),
		StartedAt:   t.StartedAt,
		FinishedAt:  t.FinishedAt,
		Duration:    t.Duration(),
	}
	if err := o.store.Save(ctx, rec); err != nil {
		logger.Error("failed to save research task", "error", err)
	}
}

func (o *Orchestrator) preview(t *Task, payload any) string {
	var text string
	switch p := payload.(type) {
	case nil:
		text = t.Detail
	case string:
		text = p
	default:
		b, err := json.Marshal(p)
		if err != nil {
			return ""
		}
		text = string(b)
	}
	return extraction.Truncate(text, o.cfg.PreviewLength)
}
