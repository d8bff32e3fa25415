package dto

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"personal-metrics-service/internal/validator"
)

// TestProviderParams_Validation tests provider name validation.
func TestProviderParams_Validation(t *testing.T) {
	v := validator.New()

	tests := []struct {
		name      string
		provider  string
		expectTag string
	}{
		{name: "goodreads", provider: "goodreads"},
		{name: "digits allowed", provider: "steam2"},
		{name: "empty", provider: "", expectTag: "required"},
		{name: "too short", provider: "g", expectTag: "min"},
		{name: "too long", provider: strings.Repeat("a", 33), expectTag: "max"},
		{name: "uppercase", provider: "Discogs", expectTag: "lowercase"},
		{name: "path traversal", provider: "..%2f", expectTag: "alphanum"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			err := v.Validate(&ProviderParams{Provider: tt.provider})
			if tt.expectTag == "" {
				assert.NoError(t, err)
				return
			}

			require.Error(t, err)
			validationErrs, ok := err.(validator.ValidationErrors)
			require.True(t, ok, "expected ValidationErrors type")
			require.Len(t, validationErrs, 1)
			assert.Equal(t, "provider", validationErrs[0].Field)
			assert.Equal(t, tt.expectTag, validationErrs[0].Tag)
		})
	}
}

// TestRunsQuery_Validation tests the run history limit bounds.
func TestRunsQuery_Validation(t *testing.T) {
	v := validator.New()

	assert.NoError(t, v.Validate(&RunsQuery{}))
	assert.NoError(t, v.Validate(&RunsQuery{Limit: 100}))

	err := v.Validate(&RunsQuery{Limit: 101})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be at most 100")

	err = v.Validate(&RunsQuery{Limit: -1})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "limit must be at least 1")
}

// TestRunsQuery_EffectiveLimit tests the default page size.
func TestRunsQuery_EffectiveLimit(t *testing.T) {
	assert.Equal(t, DefaultRunsLimit, (&RunsQuery{}).EffectiveLimit())
	assert.Equal(t, 5, (&RunsQuery{Limit: 5}).EffectiveLimit())
}
