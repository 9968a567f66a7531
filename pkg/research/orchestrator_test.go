package research

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	mocks "zoi/sentinel/internal/providers"
	"zoi/sentinel/pkg/compliance"
	"zoi/sentinel/pkg/providers"
	"zoi/sentinel/pkg/research/storage"
)

type recordingMetrics struct {
	mu          sync.Mutex
	tasks       map[Status]int
	failures    []string
	corrections int
	inFlight    []int
}

func newRecordingMetrics() *recordingMetrics {
	return &recordingMetrics{tasks: make(map[Status]int)}
}

func (m *recordingMetrics) ObserveTask(_ string, s Status, _ time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tasks[s]++
}

func (m *recordingMetrics) ObserveExtractionFailure(reason string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failures = append(m.failures, reason)
}

func (m *recordingMetrics) ObserveCorrections(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.corrections += n
}

func (m *recordingMetrics) SetInFlight(n int) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.inFlight = append(m.inFlight, n)
}

type fixture struct {
	backend *mocks.FakeBackend
	store   *storage.MemoryStore
	metrics *recordingMetrics
	orch    *Orchestrator
}

func newFixture(fb *mocks.FakeBackend, deadline time.Duration) *fixture {
	store := storage.NewMemoryStore()
	metrics := newRecordingMetrics()
	orch := New(Config{PollInterval: 5 * time.Millisecond, Deadline: deadline}, Deps{
		Backend: fb,
		Store:   store,
		Metrics: metrics,
	})
	return &fixture{backend: fb, store: store, metrics: metrics, orch: orch}
}

func acaiAnswer() any {
	doc := mocks.RecordJSON("Açaí", "0811.90.00", 85, "APPROVED")
	return mocks.ManusTask("fake-1", "completed", mocks.FencedRecord(doc))
}

func TestOrchestrator_Completed(t *testing.T) {
	fb := &mocks.FakeBackend{Results: []*providers.PollResult{
		mocks.Running(), mocks.Running(), mocks.Completed(acaiAnswer()),
	}}
	f := newFixture(fb, time.Second)

	out := f.orch.Run(context.Background(), Request{Key: "acai", ProductName: "Açaí"})
	if !out.OK() {
		t.Fatalf("Outcome = %+v, want completed", out)
	}

	task := out.Task
	if task.Status != StatusCompleted || task.Reason != ReasonNone {
		t.Errorf("task status = %s/%q", task.Status, task.Reason)
	}
	if task.Polls != 3 {
		t.Errorf("Polls = %d, want 3", task.Polls)
	}
	if task.RemoteID != "fake-1" {
		t.Errorf("RemoteID = %q", task.RemoteID)
	}

	rec := out.Record
	if rec.Status != compliance.StatusApproved || rec.RiskScore != 85 {
		t.Errorf("record = %s/%d", rec.Status, rec.RiskScore)
	}
	if rec.DataSource != compliance.DataSourceResearch || rec.ResearchTaskID != task.ID || rec.NeedsAIUpdate {
		t.Errorf("provenance = %s/%q/%v", rec.DataSource, rec.ResearchTaskID, rec.NeedsAIUpdate)
	}
	if rec.Slug != "acai" || rec.TradeRoute != DefaultTradeRoute {
		t.Errorf("slug/route = %q/%+v", rec.Slug, rec.TradeRoute)
	}
	if rec.LastUpdated.IsZero() {
		t.Error("LastUpdated not set")
	}

	prompt := fb.Prompts()[0]
	for _, want := range []string{`"Açaí"`, "Brasil", "Itália", "EUR-Lex"} {
		if !strings.Contains(prompt, want) {
			t.Errorf("prompt missing %q", want)
		}
	}

	saved, err := f.store.Get(context.Background(), task.ID)
	if err != nil {
		t.Fatalf("audit record: %v", err)
	}
	if saved.Status != string(StatusCompleted) || saved.Polls != 3 || saved.Preview == "" {
		t.Errorf("audit = %+v", saved)
	}
	if f.metrics.tasks[StatusCompleted] != 1 {
		t.Errorf("metrics = %v", f.metrics.tasks)
	}

	latest, ok := f.orch.Tracker().Latest("acai")
	if !ok || latest.ID != task.ID || latest.Status != StatusCompleted {
		t.Errorf("tracker latest = %+v", latest)
	}
	if f.orch.Tracker().Active() != 0 {
		t.Errorf("Active() = %d after completion", f.orch.Tracker().Active())
	}
}

func TestOrchestrator_Failures(t *testing.T) {
	tests := []struct {
		name       string
		backend    *mocks.FakeBackend
		wantStatus Status
		wantReason Reason
		wantSubmit int
	}{
		{
			name:       "not configured",
			backend:    &mocks.FakeBackend{Unconfigured: true},
			wantStatus: StatusFailed,
			wantReason: ReasonNotConfigured,
			wantSubmit: 0,
		},
		{
			name: "submission failed",
			backend: &mocks.FakeBackend{SubmitErr: &providers.SubmissionError{
				Provider: "fake", Cause: errors.New("connection refused"),
			}},
			wantStatus: StatusFailed,
			wantReason: ReasonSubmissionFailed,
			wantSubmit: 1,
		},
		{
			name: "poll failed",
			backend: &mocks.FakeBackend{PollErr: &providers.PollError{
				Provider: "fake", TaskID: "fake-1", Cause: errors.New("bad gateway"),
			}},
			wantStatus: StatusFailed,
			wantReason: ReasonPollFailed,
			wantSubmit: 1,
		},
		{
			name:       "backend failed",
			backend:    &mocks.FakeBackend{Results: []*providers.PollResult{mocks.Failed("error: quota exhausted")}},
			wantStatus: StatusFailed,
			wantReason: ReasonBackendFailed,
			wantSubmit: 1,
		},
		{
			name:       "deadline",
			backend:    &mocks.FakeBackend{Results: []*providers.PollResult{mocks.Running()}},
			wantStatus: StatusTimedOut,
			wantReason: ReasonTimedOut,
			wantSubmit: 1,
		},
		{
			name: "unparseable answer",
			backend: &mocks.FakeBackend{Results: []*providers.PollResult{
				mocks.Completed("Não foi possível concluir a pesquisa solicitada para este produto hoje."),
			}},
			wantStatus: StatusParseError,
			wantReason: ReasonParseError,
			wantSubmit: 1,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(tt.backend, 40*time.Millisecond)
			out := f.orch.Run(context.Background(), Request{Key: "cafe"})

			if out.OK() || out.Record != nil {
				t.Fatalf("Outcome = %+v, want failure", out)
			}
			if out.Task.Status != tt.wantStatus || out.Task.Reason != tt.wantReason {
				t.Errorf("task = %s/%s, want %s/%s", out.Task.Status, out.Task.Reason, tt.wantStatus, tt.wantReason)
			}
			if out.Err == nil {
				t.Error("Err = nil")
			}
			if got := tt.backend.Submits(); got != tt.wantSubmit {
				t.Errorf("Submits() = %d, want %d", got, tt.wantSubmit)
			}

			saved, err := f.store.Latest(context.Background(), "cafe")
			if err != nil {
				t.Fatalf("audit record: %v", err)
			}
			if saved.Status != string(tt.wantStatus) || saved.Reason != string(tt.wantReason) {
				t.Errorf("audit = %s/%s", saved.Status, saved.Reason)
			}
			if f.metrics.tasks[tt.wantStatus] != 1 {
				t.Errorf("metrics = %v", f.metrics.tasks)
			}
		})
	}
}

func TestOrchestrator_ParseErrorMetrics(t *testing.T) {
	fb := &mocks.FakeBackend{Sync: mocks.Completed("")}
	f := newFixture(fb, time.Second)

	out := f.orch.Run(context.Background(), Request{Key: "cafe"})
	if out.Task.Status != StatusParseError {
		t.Fatalf("status = %s", out.Task.Status)
	}
	if len(f.metrics.failures) != 1 || f.metrics.failures[0] != "empty_payload" {
		t.Errorf("extraction failures = %v", f.metrics.failures)
	}
}

func TestOrchestrator_Cancelled(t *testing.T) {
	fb := &mocks.FakeBackend{Gate: make(chan struct{})}
	f := newFixture(fb, time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(10*time.Millisecond, cancel)

	out := f.orch.Run(ctx, Request{Key: "cafe"})
	if out.Task.Status != StatusFailed || out.Task.Reason != ReasonCancelled {
		t.Errorf("task = %s/%s, want FAILED/cancelled", out.Task.Status, out.Task.Reason)
	}
}

func TestOrchestrator_SyncBackend(t *testing.T) {
	fb := &mocks.FakeBackend{Sync: mocks.Completed(mocks.FencedRecord(
		mocks.RecordJSON("Café", "0901.11.10", 78, "RESTRICTED"),
	))}
	f := newFixture(fb, time.Second)

	out := f.orch.Run(context.Background(), Request{Key: "cafe"})
	if !out.OK() {
		t.Fatalf("Outcome = %+v", out)
	}
	if out.Task.Polls != 0 || out.Task.RemoteID != "" {
		t.Errorf("polls/remote = %d/%q", out.Task.Polls, out.Task.RemoteID)
	}
	if out.Record.Status != compliance.StatusRequiresAttention {
		t.Errorf("Status = %s", out.Record.Status)
	}
}

func TestOrchestrator_TruthCorrection(t *testing.T) {
	doc := `{"product_name": "Manga", "ncm_code": "0804.50.20", "risk_score": 92, "risk_level": "LOW",
		"status": "APPROVED", "max_residue_limits": {"Carbendazim": {"limit": "0.1 mg/kg", "status": "conforme"}}}`
	fb := &mocks.FakeBackend{Sync: mocks.Completed(mocks.FencedRecord(doc))}
	f := newFixture(fb, time.Second)

	out := f.orch.Run(context.Background(), Request{Key: "manga"})
	if !out.OK() {
		t.Fatalf("Outcome = %+v", out)
	}
	rec := out.Record
	if rec.Status == compliance.StatusApproved || rec.RiskScore > 40 || rec.RiskLevel != compliance.RiskHigh {
		t.Errorf("record = %s/%d/%s, want demoted", rec.Status, rec.RiskScore, rec.RiskLevel)
	}
	if rec.MaxResidueLimits["Carbendazim"].Status != "banned" {
		t.Errorf("residue = %+v", rec.MaxResidueLimits["Carbendazim"])
	}
	if f.metrics.corrections != 1 {
		t.Errorf("corrections = %d, want 1", f.metrics.corrections)
	}
}

func TestOrchestrator_TradeRoute(t *testing.T) {
	fb := &mocks.FakeBackend{Sync: mocks.Completed(mocks.FencedRecord(
		mocks.RecordJSON("Café", "0901.11.10", 78, "APPROVED"),
	))}
	route := compliance.TradeRoute{Origin: "BR", Destination: "DE", OriginName: "Brasil", DestinationName: "Alemanha"}
	orch := New(Config{TradeRoute: route}, Deps{Backend: fb})

	out := orch.Run(context.Background(), Request{Key: "cafe"})
	if !out.OK() {
		t.Fatalf("Outcome = %+v", out)
	}
	if out.Record.TradeRoute != route {
		t.Errorf("TradeRoute = %+v", out.Record.TradeRoute)
	}
	if !strings.Contains(fb.Prompts()[0], "Alemanha/UE") {
		t.Errorf("prompt = %q", fb.Prompts()[0])
	}
	if out.Task.ProductName != "Cafe" {
		t.Errorf("ProductName = %q, want display name of key", out.Task.ProductName)
	}
}
