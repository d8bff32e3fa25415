package dto

import (
	"time"

	"personal-metrics-service/internal/app/service"
	"personal-metrics-service/internal/domain"
)

// RunResponse is one sync run in the history.
type RunResponse struct {
	ID         string   `json:"id"`
	Provider   string   `json:"provider"`
	Result     string   `json:"result"`
	Phase      string   `json:"phase"`
	Error      string   `json:"error,omitempty"`
	Degraded   []string `json:"degraded,omitempty"`
	Enriched   int      `json:"enriched"`
	Uploaded   int      `json:"uploaded"`
	StartedAt  string   `json:"started_at"`
	FinishedAt string   `json:"finished_at"`
	Duration   string   `json:"duration"`
}

// FromSyncRun converts a domain.SyncRun to RunResponse.
func FromSyncRun(r *domain.SyncRun) RunResponse {
	return RunResponse{
		ID:         r.ID,
		Provider:   r.Provider,
		Result:     string(r.Result),
		Phase:      string(r.Phase),
		Error:      r.Error,
		Degraded:   r.Degraded,
		Enriched:   r.Enriched,
		Uploaded:   r.Uploaded,
		StartedAt:  r.StartedAt.Format(time.RFC3339),
		FinishedAt: r.FinishedAt.Format(time.RFC3339),
		Duration:   r.Duration().String(),
	}
}

// RunsResponse lists sync runs, newest first.
type RunsResponse struct {
	Runs []RunResponse `json:"runs"`
}

// FromSyncRuns converts a run slice to RunsResponse.
func FromSyncRuns(runs []*domain.SyncRun) RunsResponse {
	resp := RunsResponse{Runs: make([]RunResponse, len(runs))}
	for i, r := range runs {
		resp.Runs[i] = FromSyncRun(r)
	}
	return resp
}

// ProviderSyncResponse is one provider's outcome of a sync-all request.
type ProviderSyncResponse struct {
	Provider string            `json:"provider"`
	Result   domain.SyncResult `json:"envelope"`
	RunID    string            `json:"run_id,omitempty"`
}

// SyncAllResponse represents the response of a sync-all request.
type SyncAllResponse struct {
	Results []ProviderSyncResponse `json:"results"`
	Summary SyncSummary            `json:"summary"`
}

// SyncSummary holds the provider counts of a sync-all request.
type SyncSummary struct {
	ProvidersOK   int `json:"providers_ok"`
	ProvidersFail int `json:"providers_fail"`
}

// FromProviderResults converts service.ProviderResult slice to SyncAllResponse.
func FromProviderResults(results []service.ProviderResult) SyncAllResponse {
	resp := SyncAllResponse{Results: make([]ProviderSyncResponse, len(results))}

	for i, r := range results {
		if r.Failed() {
			resp.Summary.ProvidersFail++
		} else {
			resp.Summary.ProvidersOK++
		}

		resp.Results[i] = ProviderSyncResponse{Provider: r.Provider, Result: r.Result}
		if r.Run != nil {
			resp.Results[i].RunID = r.Run.ID
		}
	}

	return resp
}

// ProvidersResponse lists the registered providers.
type ProvidersResponse struct {
	Providers []string `json:"providers"`
}

// ErrorResponse represents an error response.
type ErrorResponse struct {
	Error   string `json:"error"`
	Code    string `json:"code,omitempty"`
	Details any    `json:"details,omitempty"`
}
