package service

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"

	"personal-metrics-service/internal/domain"
)

// DefaultRecentBooks caps the read shelf items kept on the widget.
const DefaultRecentBooks = 50

// GoodreadsSync builds the Goodreads widget.
type GoodreadsSync struct {
	pipe        *Pipeline
	source      domain.GoodreadsSource
	correlator  *Correlator
	recentBooks int
}

// NewGoodreadsSync creates a new GoodreadsSync.
func NewGoodreadsSync(pipe *Pipeline, source domain.GoodreadsSource, correlator *Correlator, recentBooks int) *GoodreadsSync {
	if recentBooks <= 0 {
		recentBooks = DefaultRecentBooks
	}
	return &GoodreadsSync{
		pipe:        pipe,
		source:      source,
		correlator:  correlator,
		recentBooks: recentBooks,
	}
}

// Provider implements Orchestrator.
func (s *GoodreadsSync) Provider() string {
	return domain.ProviderGoodreads
}

// Sync implements Orchestrator.
func (s *GoodreadsSync) Sync(ctx context.Context) (domain.SyncResult, *domain.SyncRun) {
	t := s.pipe.track(domain.ProviderGoodreads)

	var (
		wg        sync.WaitGroup
		feed      *domain.Fetched[domain.GoodreadsFeed]
		shelf     *domain.Fetched[[]domain.ReadBook]
		prev      *domain.GoodreadsWidget
		stored    domain.KeySet
		feedErr   error
		shelfErr  error
		prevErr   error
		storedErr error
	)

	wg.Add(4)
	go func() {
		defer wg.Done()
		feed, feedErr = s.source.FetchProfile(ctx)
	}()
	go func() {
		defer wg.Done()
		shelf, shelfErr = s.source.FetchShelf(ctx)
	}()
	go func() {
		defer wg.Done()
		prev, prevErr = loadPrevious[domain.GoodreadsWidget](ctx, s.pipe.Docs, domain.ProviderGoodreads)
	}()
	go func() {
		defer wg.Done()
		stored, storedErr = s.pipe.Media.StoredKeys(ctx, "books/", "goodreads/")
	}()
	wg.Wait()

	if err := errors.Join(feedErr, shelfErr); err != nil {
		return t.fail(fmt.Errorf("fetching goodreads: %w", err))
	}
	if prevErr != nil {
		t.degrade("previous-document", prevErr)
	}
	if storedErr != nil {
		t.degrade("list-media", storedErr)
	}

	// ENRICHING
	t.enter(domain.PhaseEnriching)

	var known []domain.Book
	if prev != nil {
		known = prev.Collections.MatchedBooks()
	}

	run := NewEnrichmentRun(stored)
	collections := domain.GoodreadsCollections{
		RecentlyReadBooks: s.enrichShelf(ctx, run, shelf.Data, known),
	}
	collections.Updates = s.enrichUpdates(ctx, run, feed.Data.Updates, collections.MatchedBooks())
	t.run.Enriched = run.Enriched()

	// UPLOADING_MEDIA
	t.enter(domain.PhaseUploadingMedia)

	profile := feed.Data.Profile
	uploads := append(slices.Clone(run.Uploads()), s.uploadAvatar(ctx, &profile, stored)...)
	t.run.Uploaded = len(uploads) - countFailed(uploads)
	if failed := countFailed(uploads); failed > 0 {
		t.degrade("media-upload", fmt.Errorf("%d of %d uploads failed", failed, len(uploads)))
	}

	synced := s.pipe.now()
	doc := domain.GoodreadsWidget{
		Collections: collections,
		Profile:     profile,
		Metrics: []domain.Metric{
			{DisplayName: "Books Read", ID: "books-read", Value: profile.ReadCount()},
			{DisplayName: "Friends", ID: "friends", Value: profile.FriendsCount},
			{DisplayName: "Reviews", ID: "reviews", Value: profile.ReviewsCount},
		},
		Meta: domain.Meta{Synced: synced},
	}

	// SUMMARIZING
	doc.AISummary = s.pipe.summarize(ctx, t, doc)

	// PERSISTING
	writes := []docWrite{
		{id: domain.RawSnapshotID("profile"), value: feed.Raw},
		{id: domain.RawSnapshotID("shelf"), value: shelf.Raw},
		{id: domain.DocWidgetContent, value: doc},
	}
	writes = append(writes, summaryWrite(doc.AISummary, synced)...)

	if err := s.pipe.persist(ctx, t, writes); err != nil {
		return t.fail(err)
	}

	return t.done(doc)
}

// enrichShelf correlates the most recent read books against the books matched
// by the previous run.
func (s *GoodreadsSync) enrichShelf(ctx context.Context, run *EnrichmentRun, shelf []domain.ReadBook, known []domain.Book) []domain.ReadBook {
	n := min(len(shelf), s.recentBooks)
	books := make([]domain.ReadBook, n)
	copy(books, shelf[:n])

	items := make([]domain.PrimaryItem, n)
	for i := range books {
		items[i] = books[i].PrimaryItem
	}

	for i, item := range s.correlator.Correlate(ctx, run, items, known) {
		books[i].PrimaryItem = item
	}
	return books
}

// enrichUpdates correlates status updates against the books matched on the
// shelf in this run.
func (s *GoodreadsSync) enrichUpdates(ctx context.Context, run *EnrichmentRun, feed []domain.StatusUpdate, known []domain.Book) []domain.StatusUpdate {
	updates := make([]domain.StatusUpdate, len(feed))
	copy(updates, feed)

	items := make([]domain.PrimaryItem, len(updates))
	for i := range updates {
		items[i] = updates[i].PrimaryItem
	}

	for i, item := range s.correlator.Correlate(ctx, run, items, known) {
		updates[i].PrimaryItem = item
	}
	return updates
}

// uploadAvatar stores the profile image and points the profile at it.
func (s *GoodreadsSync) uploadAvatar(ctx context.Context, profile *domain.GoodreadsProfile, stored domain.KeySet) []domain.UploadResult {
	if profile.ID == "" || profile.ImageURL == "" {
		return nil
	}

	key := profile.AvatarKey()
	ref := domain.MediaReference{DestinationKey: key, SourceURL: profile.ImageURL, LogicalID: profile.ID}

	results := s.pipe.Media.UploadAll(ctx, ComputeMissing([]domain.MediaReference{ref}, stored))
	if stored.With(SucceededKeys(results)...).Has(key) {
		profile.CDNImageURL = s.pipe.Media.PublicURL(key)
	}
	return results
}
