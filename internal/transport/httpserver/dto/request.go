// Package dto provides Data Transfer Objects for HTTP requests and responses.
package dto

// DefaultRunsLimit is the page size of run history listings.
const DefaultRunsLimit = 20

// ProviderParams identifies the provider of a widget route.
type ProviderParams struct {
	Provider string `params:"provider" json:"provider" validate:"required,min=2,max=32,lowercase,alphanum"`
}

// RunsQuery holds the query parameters of a run history listing.
type RunsQuery struct {
	Limit int `query:"limit" json:"limit" validate:"omitempty,min=1,max=100"`
}

// EffectiveLimit returns Limit, or DefaultRunsLimit when unset.
func (q *RunsQuery) EffectiveLimit() int {
	if q.Limit <= 0 {
		return DefaultRunsLimit
	}
	return q.Limit
}
