package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
)

func release(id int, artist, cover string) domain.Release {
	return domain.Release{
		ID:         id,
		InstanceID: id * 10,
		BasicInformation: domain.BasicInformation{
			ID:         id,
			Title:      "Release",
			Artists:    []domain.Artist{{Name: artist}},
			CoverImage: cover,
		},
	}
}

func newDiscogsTest(source *fakeDiscogsSource, store *fakeObjectStore, docs *fakeDocumentStore, interval time.Duration) *DiscogsSync {
	pipe := &Pipeline{
		Docs:   docs,
		Media:  NewMediaSync(store, &fakeDownloader{}, 4, testCDN, zap.NewNop()),
		Now:    func() time.Time { return fixedNow },
		Logger: zap.NewNop(),
	}
	return NewDiscogsSync(pipe, source, interval)
}

func defaultDiscogsSource() *fakeDiscogsSource {
	return &fakeDiscogsSource{
		profile: domain.DiscogsProfile{Username: "digger", NumCollection: 3, NumWantlist: 9},
		releases: []domain.Release{
			release(1, "Can", "https://img/1"),
			release(2, "Can", "https://img/2"),
			release(3, "Neu!", ""),
		},
		details: map[int]*domain.ReleaseDetails{
			1: {ID: 1, Title: "Tago Mago", Country: "Germany"},
			2: {ID: 2, Title: "Ege Bamyasi"},
		},
	}
}

// TestDiscogsSync_Success tests details, covers and metrics of a full run.
func TestDiscogsSync_Success(t *testing.T) {
	source := defaultDiscogsSource()
	store := newFakeObjectStore()
	docs := newFakeDocumentStore()

	result, run := newDiscogsTest(source, store, docs, 0).Sync(context.Background())

	require.True(t, result.OK(), result.Error)
	assert.Equal(t, domain.PhaseDone, run.Phase)
	assert.Equal(t, []string{"last-response_collection", "last-response_profile", domain.DocWidgetContent}, docs.writes)

	doc := result.Data.(domain.DiscogsWidget)
	assert.Equal(t, []domain.Metric{
		{DisplayName: "Releases", ID: "releases", Value: 3},
		{DisplayName: "Artists", ID: "artists", Value: 2},
		{DisplayName: "Want List", ID: "wantlist", Value: 9},
	}, doc.Metrics)

	releases := doc.Collections.Releases
	require.Len(t, releases, 3)
	assert.Equal(t, "Tago Mago", releases[0].Details.Title)
	assert.Nil(t, releases[2].Details, "unknown release degrades to no details")
	assert.Equal(t, testCDN+"/discogs/1_cover.jpg", releases[0].CDNMediaURL)
	assert.Equal(t, "discogs/3_cover.jpg", releases[2].MediaDestinationPath)
	assert.Empty(t, releases[2].CDNMediaURL, "release without cover has nothing stored")

	assert.Equal(t, []int{1, 2, 3}, source.detailCalls)
	assert.Equal(t, 2, run.Uploaded)
	assert.Equal(t, 2, run.Enriched)
	assert.Nil(t, source.releases[0].Details, "fetched collection is not mutated")
}

// TestDiscogsSync_IncrementalDetails tests that details already persisted are not fetched again.
func TestDiscogsSync_IncrementalDetails(t *testing.T) {
	source := defaultDiscogsSource()
	store := newFakeObjectStore()
	docs := newFakeDocumentStore()
	o := newDiscogsTest(source, store, docs, 0)

	first, _ := o.Sync(context.Background())
	require.True(t, first.OK())

	source.detailCalls = nil
	source.releases = append(source.releases, release(4, "Faust", "https://img/4"))
	source.details[4] = &domain.ReleaseDetails{ID: 4, Title: "Faust IV"}

	second, run := o.Sync(context.Background())

	require.True(t, second.OK())
	assert.Equal(t, []int{3, 4}, source.detailCalls, "only releases without details are fetched")
	assert.Equal(t, 1, run.Uploaded, "only the new cover is uploaded")
	assert.Equal(t, "Tago Mago", second.Data.(domain.DiscogsWidget).Collections.Releases[0].Details.Title)
}

// TestDiscogsSync_DuplicateReleasesFetchedOnce tests that repeated collection entries share one lookup.
func TestDiscogsSync_DuplicateReleasesFetchedOnce(t *testing.T) {
	source := defaultDiscogsSource()
	source.releases = []domain.Release{release(1, "Can", "https://img/1"), release(1, "Can", "https://img/1")}

	store := newFakeObjectStore()
	result, run := newDiscogsTest(source, store, newFakeDocumentStore(), 0).Sync(context.Background())

	require.True(t, result.OK())
	assert.Equal(t, []int{1}, source.detailCalls)
	assert.Equal(t, 1, store.uploadCount())
	assert.Equal(t, 2, run.Enriched)
}

// TestDiscogsSync_DetailFloorDelay tests the spacing between release lookups.
func TestDiscogsSync_DetailFloorDelay(t *testing.T) {
	source := defaultDiscogsSource()

	start := time.Now()
	result, _ := newDiscogsTest(source, newFakeObjectStore(), newFakeDocumentStore(), 25*time.Millisecond).Sync(context.Background())

	require.True(t, result.OK())
	assert.Len(t, source.detailCalls, 3)
	assert.GreaterOrEqual(t, time.Since(start), 50*time.Millisecond)
}

// TestDiscogsSync_CollectionFailure tests the FAILED transition from fetching.
func TestDiscogsSync_CollectionFailure(t *testing.T) {
	source := defaultDiscogsSource()
	source.collectionErr = errors.New("connection reset")
	docs := newFakeDocumentStore()

	result, run := newDiscogsTest(source, newFakeObjectStore(), docs, 0).Sync(context.Background())

	assert.False(t, result.OK())
	assert.Contains(t, result.Error, "connection reset")
	assert.Equal(t, domain.PhaseFailed, run.Phase)
	assert.Empty(t, docs.writes)
	assert.Empty(t, source.detailCalls)
}

// TestDiscogsSync_UploadFailureDegrades tests that a failed cover upload keeps the run successful.
func TestDiscogsSync_UploadFailureDegrades(t *testing.T) {
	source := defaultDiscogsSource()
	store := newFakeObjectStore()
	store.failKeys["discogs/2_cover.jpg"] = true

	result, run := newDiscogsTest(source, store, newFakeDocumentStore(), 0).Sync(context.Background())

	require.True(t, result.OK())
	assert.Contains(t, run.Degraded, "media-upload")
	assert.Equal(t, 1, run.Uploaded)

	releases := result.Data.(domain.DiscogsWidget).Collections.Releases
	assert.NotEmpty(t, releases[0].CDNMediaURL)
	assert.Empty(t, releases[1].CDNMediaURL)
}

// TestCountArtists tests distinct artist counting by ID, then name.
func TestCountArtists(t *testing.T) {
	releases := []domain.Release{
		{BasicInformation: domain.BasicInformation{Artists: []domain.Artist{{ID: 1, Name: "Can"}, {ID: 2, Name: "Damo Suzuki"}}}},
		{BasicInformation: domain.BasicInformation{Artists: []domain.Artist{{ID: 1, Name: "Can"}}}},
		{BasicInformation: domain.BasicInformation{Artists: []domain.Artist{{Name: "Unknown"}}}},
	}

	assert.Equal(t, 3, countArtists(releases))
}
