package googlebooks

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/jarcoal/httpmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/infra/provider"
)

const testEndpoint = "https://books.example.com/books/v1/volumes"

type recordingSleeper struct {
	delays []time.Duration
}

func (s *recordingSleeper) sleep(_ context.Context, d time.Duration) error {
	s.delays = append(s.delays, d)
	return nil
}

func newTestClient(sleeper *recordingSleeper) *Client {
	cfg := Config{
		Client: provider.ClientConfig{
			BaseURL: "https://books.example.com/books/v1",
			Timeout: 5 * time.Second,
		},
		APIKey:      "test-key",
		MaxAttempts: 3,
	}
	client := New(cfg, zap.NewNop()).WithSleeper(sleeper.sleep)

	// Activate httpmock for this client's HTTP transport
	httpmock.ActivateNonDefault(client.client.GetClient())

	return client
}

func mockVolumes() VolumesResponse {
	return VolumesResponse{
		TotalItems: 1,
		Items: []Volume{
			{
				ID: "vol-overstory",
				VolumeInfo: VolumeInfo{
					Title:   "The Overstory",
					Authors: []string{"Richard Powers"},
					IndustryIdentifiers: []IndustryIdentifier{
						{Type: "ISBN_10", Identifier: "0393635538"},
						{Type: "ISBN_13", Identifier: "9780393635539"},
					},
					ImageLinks: ImageLinks{
						SmallThumbnail: "http://books.google.com/books/content?id=x&zoom=5",
						Thumbnail:      "http://books.google.com/books/content?id=x&zoom=1&edge=curl",
					},
				},
			},
		},
	}
}

// TestFetchByISBN_Success tests lookup and conversion of the first volume.
func TestFetchByISBN_Success(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	var gotQuery string
	httpmock.RegisterResponder("GET", testEndpoint,
		func(req *http.Request) (*http.Response, error) {
			gotQuery = req.URL.Query().Get("q")
			assert.Equal(t, "test-key", req.URL.Query().Get("key"))
			return httpmock.NewJsonResponse(200, mockVolumes())
		})

	client := newTestClient(&recordingSleeper{})
	book, err := client.FetchByISBN(context.Background(), "978-0-393-63553-9")

	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, "isbn:9780393635539", gotQuery)
	assert.Equal(t, "vol-overstory", book.ID)
	assert.Equal(t, "9780393635539", book.ISBN13)
	assert.Equal(t, "0393635538", book.ISBN10)
	assert.Equal(t, "https://books.google.com/books/content?id=x&zoom=0", book.Thumbnail)
	assert.Equal(t, []string{"Richard Powers"}, book.Authors)
}

// TestFetchByISBN_EmptyKey tests that an empty ISBN is rejected without a request.
func TestFetchByISBN_EmptyKey(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	client := newTestClient(&recordingSleeper{})
	book, err := client.FetchByISBN(context.Background(), " - ")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, book)
	assert.Equal(t, 0, httpmock.GetTotalCallCount())
}

// TestFetchByISBN_NotFound tests that zero results is a nil record, not an error.
func TestFetchByISBN_NotFound(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint,
		httpmock.NewJsonResponderOrPanic(200, VolumesResponse{TotalItems: 0}))

	client := newTestClient(&recordingSleeper{})
	book, err := client.FetchByISBN(context.Background(), "9780000000000")

	require.NoError(t, err)
	assert.Nil(t, book)
}

// TestFetchByISBN_ThrottledThenSuccess tests backoff delays of 2s then 4s.
func TestFetchByISBN_ThrottledThenSuccess(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	calls := 0
	httpmock.RegisterResponder("GET", testEndpoint,
		func(_ *http.Request) (*http.Response, error) {
			calls++
			if calls < 3 {
				return httpmock.NewStringResponse(429, `{"error":{"code":429,"message":"Rate limit exceeded"}}`), nil
			}
			return httpmock.NewJsonResponse(200, mockVolumes())
		})

	sleeper := &recordingSleeper{}
	client := newTestClient(sleeper)
	book, err := client.FetchByISBN(context.Background(), "9780393635539")

	require.NoError(t, err)
	require.NotNil(t, book)
	assert.Equal(t, 3, calls)
	assert.Equal(t, []time.Duration{2 * time.Second, 4 * time.Second}, sleeper.delays)
}

// TestFetchByISBN_QuotaExhausted tests that a daily quota cap gives up after one call.
func TestFetchByISBN_QuotaExhausted(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	body := `{"error":{"code":429,"message":"Quota exceeded for quota metric 'Queries' and limit 'Queries per day'","status":"RESOURCE_EXHAUSTED"}}`
	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(429, body))

	sleeper := &recordingSleeper{}
	client := newTestClient(sleeper)
	book, err := client.FetchByISBN(context.Background(), "9780393635539")

	require.NoError(t, err)
	assert.Nil(t, book)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
	assert.Empty(t, sleeper.delays)
}

// TestFetchByISBN_ServerError tests that non-throttling errors degrade to nil without retry.
func TestFetchByISBN_ServerError(t *testing.T) {
	defer httpmock.DeactivateAndReset()

	httpmock.RegisterResponder("GET", testEndpoint, httpmock.NewStringResponder(400, "bad request"))

	client := newTestClient(&recordingSleeper{})
	book, err := client.FetchByISBN(context.Background(), "9780393635539")

	require.NoError(t, err)
	assert.Nil(t, book)
	assert.Equal(t, 1, httpmock.GetTotalCallCount())
}

// TestSearchByTitleAuthor_Query tests query construction with and without author.
func TestSearchByTitleAuthor_Query(t *testing.T) {
	tests := []struct {
		name   string
		title  string
		author string
		want   string
	}{
		{"title and author", "Piranesi", "Susanna Clarke", "intitle:Piranesi inauthor:Susanna Clarke"},
		{"title only", "Piranesi", "", "intitle:Piranesi"},
		{"blank author", "Piranesi", "  ", "intitle:Piranesi"},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			defer httpmock.DeactivateAndReset()

			var gotQuery string
			httpmock.RegisterResponder("GET", testEndpoint,
				func(req *http.Request) (*http.Response, error) {
					gotQuery = req.URL.Query().Get("q")
					assert.Equal(t, "1", req.URL.Query().Get("maxResults"))
					return httpmock.NewJsonResponse(200, mockVolumes())
				})

			client := newTestClient(&recordingSleeper{})
			book, err := client.SearchByTitleAuthor(context.Background(), tt.title, tt.author)

			require.NoError(t, err)
			require.NotNil(t, book)
			assert.Equal(t, tt.want, gotQuery)
		})
	}
}

// TestSearchByTitleAuthor_EmptyTitle tests that a blank title is rejected.
func TestSearchByTitleAuthor_EmptyTitle(t *testing.T) {
	client := New(Config{MaxAttempts: 1}, zap.NewNop())

	book, err := client.SearchByTitleAuthor(context.Background(), "  ", "Someone")

	require.ErrorIs(t, err, domain.ErrInvalidInput)
	assert.Nil(t, book)
}
