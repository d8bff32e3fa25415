package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
)

// DiscogsSync builds the Discogs widget.
type DiscogsSync struct {
	pipe     *Pipeline
	source   domain.DiscogsSource
	dispatch *serialDispatcher
}

// NewDiscogsSync creates a new DiscogsSync. interval is the floor between
// release detail lookups.
func NewDiscogsSync(pipe *Pipeline, source domain.DiscogsSource, interval time.Duration) *DiscogsSync {
	return &DiscogsSync{
		pipe:     pipe,
		source:   source,
		dispatch: newSerialDispatcher(interval),
	}
}

// Provider implements Orchestrator.
func (s *DiscogsSync) Provider() string {
	return domain.ProviderDiscogs
}

// Sync implements Orchestrator.
func (s *DiscogsSync) Sync(ctx context.Context) (domain.SyncResult, *domain.SyncRun) {
	t := s.pipe.track(domain.ProviderDiscogs)

	var (
		wg            sync.WaitGroup
		profile       *domain.Fetched[domain.DiscogsProfile]
		collection    *domain.Fetched[[]domain.Release]
		prev          *domain.DiscogsWidget
		stored        domain.KeySet
		profileErr    error
		collectionErr error
		prevErr       error
		storedErr     error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		profile, profileErr = s.source.FetchProfile(ctx)
	}()
	go func() {
		defer wg.Done()
		collection, collectionErr = s.source.FetchCollection(ctx)
	}()
	go func() {
		defer wg.Done()
		prev, prevErr = loadPrevious[domain.DiscogsWidget](ctx, s.pipe.Docs, domain.ProviderDiscogs)
	}()
	go func() {
		defer wg.Done()
		stored, storedErr = s.pipe.Media.StoredKeys(ctx, "discogs/")
	}()
	wg.Wait()

	if err := errors.Join(profileErr, collectionErr); err != nil {
		return t.fail(fmt.Errorf("fetching discogs: %w", err))
	}
	if prevErr != nil {
		t.degrade("previous-document", prevErr)
	}
	if storedErr != nil {
		t.degrade("list-media", storedErr)
	}

	// ENRICHING
	t.enter(domain.PhaseEnriching)

	known := map[int]*domain.ReleaseDetails{}
	if prev != nil {
		known = prev.Collections.DetailsByID()
	}

	releases := make([]domain.Release, len(collection.Data))
	copy(releases, collection.Data)
	t.run.Enriched = s.enrichReleases(ctx, t, releases, known)

	// UPLOADING_MEDIA
	t.enter(domain.PhaseUploadingMedia)

	refs := make([]domain.MediaReference, 0, len(releases))
	for i := range releases {
		refs = append(refs, domain.MediaReference{
			DestinationKey: releases[i].CoverKey(),
			SourceURL:      releases[i].CoverSourceURL(),
			LogicalID:      fmt.Sprint(releases[i].ID),
		})
	}

	uploads := s.pipe.Media.UploadAll(ctx, ComputeMissing(refs, stored))
	failed := countFailed(uploads)
	t.run.Uploaded = len(uploads) - failed
	if failed > 0 {
		t.degrade("media-upload", fmt.Errorf("%d of %d uploads failed", failed, len(uploads)))
	}

	stored = stored.With(SucceededKeys(uploads)...)
	for i := range releases {
		key := releases[i].CoverKey()
		releases[i].MediaDestinationPath = key
		if stored.Has(key) {
			releases[i].CDNMediaURL = s.pipe.Media.PublicURL(key)
		}
	}

	synced := s.pipe.now()
	doc := domain.DiscogsWidget{
		Collections: domain.DiscogsCollections{Releases: releases},
		Profile:     profile.Data,
		Metrics: []domain.Metric{
			{DisplayName: "Releases", ID: "releases", Value: len(releases)},
			{DisplayName: "Artists", ID: "artists", Value: countArtists(releases)},
			{DisplayName: "Want List", ID: "wantlist", Value: profile.Data.NumWantlist},
		},
		Meta: domain.Meta{Synced: synced},
	}

	// SUMMARIZING
	doc.AISummary = s.pipe.summarize(ctx, t, doc)

	// PERSISTING
	writes := []docWrite{
		{id: domain.RawSnapshotID("collection"), value: collection.Raw},
		{id: domain.RawSnapshotID("profile"), value: profile.Raw},
		{id: domain.DocWidgetContent, value: doc},
	}
	writes = append(writes, summaryWrite(doc.AISummary, synced)...)

	if err := s.pipe.persist(ctx, t, writes); err != nil {
		return t.fail(err)
	}

	return t.done(doc)
}

// enrichReleases attaches release details, reusing the ones persisted by the
// previous run and fetching the rest one at a time. Returns the number of
// releases carrying details.
func (s *DiscogsSync) enrichReleases(ctx context.Context, t *runTracker, releases []domain.Release, known map[int]*domain.ReleaseDetails) int {
	missing := make([]int, 0)
	seen := make(map[int]bool)
	for i := range releases {
		id := releases[i].ID
		if d, ok := known[id]; ok {
			releases[i].Details = d
			continue
		}
		if id > 0 && !seen[id] {
			seen[id] = true
			missing = append(missing, id)
		}
	}

	fetched := make(map[int]*domain.ReleaseDetails, len(missing))
	err := s.dispatch.each(ctx, len(missing), func(ctx context.Context, i int) {
		details, err := s.source.FetchRelease(ctx, missing[i])
		metrics.RecordLookup("release", details != nil)
		if err != nil {
			t.logger.Warn("release lookup rejected", zap.Int("release_id", missing[i]), zap.Error(err))
			return
		}
		if details != nil {
			fetched[missing[i]] = details
		}
	})
	if err != nil {
		t.degrade("release-details", err)
	}

	enriched := 0
	for i := range releases {
		if d, ok := fetched[releases[i].ID]; ok {
			releases[i].Details = d
		}
		if releases[i].Details != nil {
			enriched++
		}
	}
	return enriched
}

// countArtists returns the number of distinct credited artists.
func countArtists(releases []domain.Release) int {
	seen := make(map[string]struct{})
	for _, r := range releases {
		for _, a := range r.BasicInformation.Artists {
			key := a.Name
			if a.ID != 0 {
				key = fmt.Sprint(a.ID)
			}
			seen[key] = struct{}{}
		}
	}
	return len(seen)
}
