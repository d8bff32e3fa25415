package service

import (
	"context"
	"fmt"
	"time"

	"github.com/goccy/go-json"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
)

// Orchestrator runs the sync pipeline of one provider.
//
// A run moves FETCHING → ENRICHING → UPLOADING_MEDIA → SUMMARIZING →
// PERSISTING → DONE. Only FETCHING and PERSISTING can end it in FAILED; the
// other phases degrade.
type Orchestrator interface {
	Provider() string
	Sync(ctx context.Context) (domain.SyncResult, *domain.SyncRun)
}

// Pipeline holds the collaborators shared by every orchestrator.
type Pipeline struct {
	Docs       domain.DocumentStore
	Media      *MediaSync
	Summarizer domain.Summarizer // nil disables the summary step
	Now        func() time.Time
	Logger     *zap.Logger
}

func (p *Pipeline) now() time.Time {
	if p.Now != nil {
		return p.Now()
	}
	return time.Now()
}

// runTracker follows one run through its phases.
type runTracker struct {
	run    *domain.SyncRun
	now    func() time.Time
	logger *zap.Logger
}

func (p *Pipeline) track(provider string) *runTracker {
	return &runTracker{
		run: &domain.SyncRun{
			Provider:  provider,
			Phase:     domain.PhaseFetching,
			StartedAt: p.now(),
		},
		now:    p.now,
		logger: p.Logger.With(zap.String("provider", provider)),
	}
}

func (t *runTracker) enter(phase domain.SyncPhase) {
	t.run.Phase = phase
	t.logger.Debug("sync phase", zap.String("phase", string(phase)))
}

// degrade records a best-effort step that failed without failing the run.
func (t *runTracker) degrade(step string, err error) {
	t.run.Degraded = append(t.run.Degraded, step)
	metrics.SyncDegradedSteps.WithLabelValues(t.run.Provider, step).Inc()
	if err != nil {
		t.logger.Warn("sync step degraded",
			zap.String("step", step),
			zap.String("phase", string(t.run.Phase)),
			zap.Error(err),
		)
	}
}

func (t *runTracker) fail(err error) (domain.SyncResult, *domain.SyncRun) {
	t.logger.Error("sync failed",
		zap.String("phase", string(t.run.Phase)),
		zap.Error(err),
	)
	t.run.Phase = domain.PhaseFailed
	t.run.Result = domain.SyncFailure
	t.run.Error = err.Error()
	t.run.FinishedAt = t.now()

	return domain.Failed(err), t.run
}

func (t *runTracker) done(data any) (domain.SyncResult, *domain.SyncRun) {
	t.run.Phase = domain.PhaseDone
	t.run.Result = domain.SyncSuccess
	t.run.FinishedAt = t.now()

	t.logger.Info("sync completed",
		zap.Int("enriched", t.run.Enriched),
		zap.Int("uploaded", t.run.Uploaded),
		zap.Strings("degraded", t.run.Degraded),
		zap.Duration("duration", t.run.Duration()),
	)

	return domain.Succeeded(data), t.run
}

// loadPrevious decodes the last persisted widget of a provider, or nil.
func loadPrevious[W any](ctx context.Context, docs domain.DocumentStore, provider string) (*W, error) {
	raw, err := docs.Get(ctx, provider, domain.DocWidgetContent)
	if err != nil {
		return nil, fmt.Errorf("reading previous widget: %w", err)
	}
	if len(raw) == 0 {
		return nil, nil
	}

	var w W
	if err := json.Unmarshal(raw, &w); err != nil {
		return nil, fmt.Errorf("decoding previous widget: %w", err)
	}
	return &w, nil
}

// summarize asks the summarizer for a summary of doc. Returns "" when the
// step is disabled or failed.
func (p *Pipeline) summarize(ctx context.Context, t *runTracker, doc any) string {
	if p.Summarizer == nil {
		return ""
	}

	t.enter(domain.PhaseSummarizing)
	text, ok := runOptional(ctx, t.logger, "summary", func(ctx context.Context) (string, error) {
		return p.Summarizer.Summarize(ctx, t.run.Provider, doc)
	})
	if !ok {
		t.degrade("summary", nil)
		return ""
	}
	return text
}

// docWrite is one document of the persistence step.
type docWrite struct {
	id    string
	value any
}

// persist writes the documents in order. Writes are independent; an earlier
// write is not rolled back when a later one fails.
func (p *Pipeline) persist(ctx context.Context, t *runTracker, writes []docWrite) error {
	t.enter(domain.PhasePersisting)

	for _, w := range writes {
		if err := p.Docs.Set(ctx, t.run.Provider, w.id, w.value); err != nil {
			return fmt.Errorf("persisting %s: %w", w.id, err)
		}
	}
	return nil
}

// summaryWrite returns the summary document write, if there is a summary.
func summaryWrite(summary string, synced time.Time) []docWrite {
	if summary == "" {
		return nil
	}
	return []docWrite{{
		id:    domain.DocAISummary,
		value: domain.SummaryDocument{Summary: summary, Meta: domain.Meta{Synced: synced}},
	}}
}

// countFailed returns how many uploads failed.
func countFailed(results []domain.UploadResult) int {
	n := 0
	for _, r := range results {
		if !r.OK() {
			n++
		}
	}
	return n
}
