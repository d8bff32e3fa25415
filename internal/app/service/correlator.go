package service

import (
	"context"
	"time"

	"go.uber.org/zap"

	"personal-metrics-service/internal/domain"
	"personal-metrics-service/internal/metrics"
)

// Match strategy names, in the order they are tried during re-merge.
const (
	MatchDirect   = "direct"
	MatchIdentity = "identity"
	MatchLink     = "link"
	MatchISBN     = "isbn"
	MatchTitle    = "title"
)

// Correlator enriches primary items with external book records.
//
// A correlation runs in four phases: direct match against already-known
// records, deduplicated serial lookups for the rest, media upload for the
// newly fetched records, and a re-merge of the lookup results onto every
// still-unresolved item.
type Correlator struct {
	books    domain.BookSource
	media    *MediaSync
	dispatch *serialDispatcher
	logger   *zap.Logger
}

// NewCorrelator creates a new Correlator. interval is the floor between
// lookup starts.
func NewCorrelator(books domain.BookSource, media *MediaSync, interval time.Duration, logger *zap.Logger) *Correlator {
	return &Correlator{
		books:    books,
		media:    media,
		dispatch: newSerialDispatcher(interval),
		logger:   logger,
	}
}

// EnrichmentRun carries state shared by the correlations of one sync run:
// the stored-keys snapshot, the keys uploaded so far and the lookups already
// made, so a key is fetched at most once per run.
type EnrichmentRun struct {
	stored   domain.KeySet
	lookups  map[domain.EnrichmentKey]*domain.Book
	uploaded []domain.UploadResult
	enriched int
}

// NewEnrichmentRun starts a run against a stored-keys snapshot.
func NewEnrichmentRun(stored domain.KeySet) *EnrichmentRun {
	return &EnrichmentRun{
		stored:  stored,
		lookups: make(map[domain.EnrichmentKey]*domain.Book),
	}
}

// Enriched returns the number of items matched so far.
func (r *EnrichmentRun) Enriched() int { return r.enriched }

// Uploads returns the upload results so far.
func (r *EnrichmentRun) Uploads() []domain.UploadResult { return r.uploaded }

// lookupGroup is one deduplicated lookup and the items waiting on it.
type lookupGroup struct {
	key     domain.EnrichmentKey
	members []int
	book    *domain.Book
}

// Correlate returns a copy of items, each enriched where a match was found.
// The result always has the same length and order as items; lookup, upload
// and parse failures only leave items unenriched.
func (c *Correlator) Correlate(ctx context.Context, run *EnrichmentRun, items []domain.PrimaryItem, secondary []domain.Book) []domain.PrimaryItem {
	out := make([]domain.PrimaryItem, len(items))
	copy(out, items)
	resolved := make([]bool, len(out))

	// Phase 1
	direct := indexByISBN(secondary)
	for i := range out {
		if book := lookupResolvedISBN(direct, out[i].Book.ISBNCandidates()); book != nil {
			c.attach(run, &out[i], book, MatchDirect)
			resolved[i] = true
		}
	}

	// Phase 2
	groups := c.groupUnresolved(out, resolved)
	c.fetchGroups(ctx, run, out, groups)

	// Phase 3
	fetched := make([]*domain.Book, 0, len(groups))
	for _, g := range groups {
		if g.book != nil {
			fetched = append(fetched, g.book)
		}
	}
	c.uploadMedia(ctx, run, fetched)

	// Phase 4
	matchers := buildMatchers(out, groups)
	for i := range out {
		if resolved[i] {
			continue
		}
		for _, m := range matchers {
			if book := m.lookup(i, &out[i]); book != nil {
				c.attach(run, &out[i], book, m.name)
				break
			}
		}
	}

	return out
}

// groupUnresolved groups unresolved items by enrichment key in order of first
// appearance. Items with no key cannot be looked up and are skipped.
func (c *Correlator) groupUnresolved(items []domain.PrimaryItem, resolved []bool) []*lookupGroup {
	byKey := make(map[domain.EnrichmentKey]*lookupGroup)
	groups := make([]*lookupGroup, 0)

	for i := range items {
		if resolved[i] {
			continue
		}
		key := items[i].Book.EnrichmentKey()
		if key == "" {
			continue
		}
		g, ok := byKey[key]
		if !ok {
			g = &lookupGroup{key: key}
			byKey[key] = g
			groups = append(groups, g)
		}
		g.members = append(g.members, i)
	}

	return groups
}

// fetchGroups performs one lookup per group, serially, reusing lookups
// already made earlier in the run.
func (c *Correlator) fetchGroups(ctx context.Context, run *EnrichmentRun, items []domain.PrimaryItem, groups []*lookupGroup) {
	pending := make([]*lookupGroup, 0, len(groups))
	for _, g := range groups {
		if book, seen := run.lookups[g.key]; seen {
			g.book = book
			continue
		}
		pending = append(pending, g)
	}

	err := c.dispatch.each(ctx, len(pending), func(ctx context.Context, i int) {
		g := pending[i]
		g.book = c.lookup(ctx, items[g.members[0]].Book)
		run.lookups[g.key] = g.book

		if g.book == nil {
			c.logger.Debug("no external record found",
				zap.String("key", string(g.key)),
				zap.Int("items", len(g.members)),
			)
		}
	})
	if err != nil {
		c.logger.Warn("enrichment lookups interrupted", zap.Error(err))
	}
}

// lookup tries the ISBN first, then a title/author search.
func (c *Correlator) lookup(ctx context.Context, ref domain.BookRef) *domain.Book {
	if isbn := ref.PreferredISBN(); isbn != "" {
		book, err := c.books.FetchByISBN(ctx, isbn)
		if err != nil {
			c.logger.Warn("isbn lookup rejected", zap.String("isbn", isbn), zap.Error(err))
		}
		if book != nil {
			return book
		}
	}

	if ref.Title == "" {
		return nil
	}

	book, err := c.books.SearchByTitleAuthor(ctx, ref.Title, ref.AuthorName())
	if err != nil {
		c.logger.Warn("title search rejected", zap.String("title", ref.Title), zap.Error(err))
		return nil
	}

	return book
}

// uploadMedia stores the thumbnails of fetched records and points each record
// at its stored copy when one exists.
func (c *Correlator) uploadMedia(ctx context.Context, run *EnrichmentRun, books []*domain.Book) {
	refs := make([]domain.MediaReference, 0, len(books))
	for _, b := range books {
		if b.ID == "" {
			continue
		}
		refs = append(refs, domain.MediaReference{
			DestinationKey: b.MediaKey(),
			SourceURL:      b.ThumbnailURL(),
			LogicalID:      b.ID,
		})
	}

	results := c.media.UploadAll(ctx, ComputeMissing(refs, run.stored))
	run.uploaded = append(run.uploaded, results...)
	run.stored = run.stored.With(SucceededKeys(results)...)

	for _, b := range books {
		if b.ID == "" {
			continue
		}
		key := b.MediaKey()
		b.MediaDestinationPath = key
		if run.stored.Has(key) {
			b.CDNMediaURL = c.media.PublicURL(key)
		}
	}
}

func (c *Correlator) attach(run *EnrichmentRun, item *domain.PrimaryItem, book *domain.Book, strategy string) {
	match := *book
	item.Match = &match
	run.enriched++
	metrics.EnrichmentMatches.WithLabelValues(strategy).Inc()
}

// matcher is one re-merge strategy.
type matcher struct {
	name   string
	lookup func(idx int, item *domain.PrimaryItem) *domain.Book
}

// buildMatchers indexes the lookup results and returns the re-merge
// strategies in priority order: identity, link, ISBN, title.
func buildMatchers(items []domain.PrimaryItem, groups []*lookupGroup) []matcher {
	byIdentity := make(map[int]*domain.Book)
	byLink := make(map[string]*domain.Book)
	byISBN := make(map[string]*domain.Book)
	byTitle := make(map[string]*domain.Book)

	// later groups never override earlier ones
	put := func(idx map[string]*domain.Book, key string, book *domain.Book) {
		if key == "" {
			return
		}
		if _, exists := idx[key]; !exists {
			idx[key] = book
		}
	}

	for _, g := range groups {
		if g.book == nil {
			continue
		}
		for _, k := range g.book.ISBNCandidates() {
			put(byISBN, k, g.book)
		}
		put(byTitle, domain.NormalizeTitle(g.book.Title), g.book)
		for _, m := range g.members {
			byIdentity[m] = g.book
			put(byLink, items[m].Link, g.book)
		}
	}

	return []matcher{
		{MatchIdentity, func(idx int, _ *domain.PrimaryItem) *domain.Book {
			return byIdentity[idx]
		}},
		{MatchLink, func(_ int, item *domain.PrimaryItem) *domain.Book {
			if item.Link == "" {
				return nil
			}
			return byLink[item.Link]
		}},
		{MatchISBN, func(_ int, item *domain.PrimaryItem) *domain.Book {
			return lookupISBN(byISBN, item.Book.ISBNCandidates())
		}},
		{MatchTitle, func(_ int, item *domain.PrimaryItem) *domain.Book {
			return byTitle[domain.NormalizeTitle(item.Book.Title)]
		}},
	}
}

// indexByISBN maps every ISBN key to the first book carrying it, except that
// a book with resolved media replaces an earlier one without.
func indexByISBN(books []domain.Book) map[string]*domain.Book {
	idx := make(map[string]*domain.Book, len(books)*2)
	for i := range books {
		for _, k := range books[i].ISBNCandidates() {
			cur, exists := idx[k]
			if !exists || (!cur.HasResolvedMedia() && books[i].HasResolvedMedia()) {
				idx[k] = &books[i]
			}
		}
	}
	return idx
}

// lookupResolvedISBN returns the first candidate hit that already points at
// stored media.
func lookupResolvedISBN(idx map[string]*domain.Book, candidates []string) *domain.Book {
	for _, k := range candidates {
		if book := idx[k]; book.HasResolvedMedia() {
			return book
		}
	}
	return nil
}

func lookupISBN(idx map[string]*domain.Book, candidates []string) *domain.Book {
	for _, k := range candidates {
		if book, ok := idx[k]; ok {
			return book
		}
	}
	return nil
}
