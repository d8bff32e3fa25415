package domain

import "time"

// Document IDs written per provider collection.
const (
	DocWidgetContent = "widget-content"
	DocAISummary     = "ai-summary"
)

// RawSnapshotID names the document holding a raw upstream response.
func RawSnapshotID(name string) string {
	return "last-response_" + name
}

// WidgetContent is the per-provider aggregate served to the frontend widget.
// Each sync run builds it from scratch and overwrites the previous version.
type WidgetContent[C any, P any] struct {
	Collections C        `json:"collections"`
	Profile     P        `json:"profile"`
	Metrics     []Metric `json:"metrics"`
	Meta        Meta     `json:"meta"`
	AISummary   string   `json:"aiSummary,omitempty"`
}

// Meta holds document metadata.
type Meta struct {
	Synced time.Time `json:"synced"`
}

// SummaryDocument is the persisted AI summary of a widget.
type SummaryDocument struct {
	Summary string `json:"summary"`
	Meta    Meta   `json:"meta"`
}

// Metric is a named numeric figure shown on a widget.
type Metric struct {
	DisplayName string `json:"displayName"`
	ID          string `json:"id"`
	Value       int    `json:"value"`
}

// SyncOutcome is the result discriminator of a sync envelope.
type SyncOutcome string

const (
	SyncSuccess SyncOutcome = "SUCCESS"
	SyncFailure SyncOutcome = "FAILURE"
)

// SyncResult is the uniform envelope returned by every orchestrator run.
type SyncResult struct {
	Result SyncOutcome `json:"result"`
	Data   any         `json:"data,omitempty"`
	Error  string      `json:"error,omitempty"`
}

// Succeeded builds a SUCCESS envelope.
func Succeeded(data any) SyncResult {
	return SyncResult{Result: SyncSuccess, Data: data}
}

// Failed builds a FAILURE envelope from err.
func Failed(err error) SyncResult {
	msg := "unknown error"
	if err != nil {
		msg = err.Error()
	}
	return SyncResult{Result: SyncFailure, Error: msg}
}

// OK reports whether the envelope is a success.
func (r SyncResult) OK() bool {
	return r.Result == SyncSuccess
}

// SyncPhase is a state of the per-run orchestrator state machine.
type SyncPhase string

const (
	PhaseFetching       SyncPhase = "FETCHING"
	PhaseEnriching      SyncPhase = "ENRICHING"
	PhaseUploadingMedia SyncPhase = "UPLOADING_MEDIA"
	PhaseSummarizing    SyncPhase = "SUMMARIZING"
	PhasePersisting     SyncPhase = "PERSISTING"
	PhaseDone           SyncPhase = "DONE"
	PhaseFailed         SyncPhase = "FAILED"
)

// SyncRun records one orchestrator invocation for the run history.
type SyncRun struct {
	ID         string      `json:"id"`
	Provider   string      `json:"provider"`
	Result     SyncOutcome `json:"result"`
	Phase      SyncPhase   `json:"phase"`
	Error      string      `json:"error,omitempty"`
	Degraded   []string    `json:"degraded,omitempty"` // best-effort steps that failed
	Enriched   int         `json:"enriched"`
	Uploaded   int         `json:"uploaded"`
	StartedAt  time.Time   `json:"startedAt"`
	FinishedAt time.Time   `json:"finishedAt"`
}

// Duration returns the wall time of the run.
func (r *SyncRun) Duration() time.Duration {
	if r.FinishedAt.IsZero() {
		return 0
	}
	return r.FinishedAt.Sub(r.StartedAt)
}
