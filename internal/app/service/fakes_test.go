package service

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"strings"
	"sync"

	"personal-metrics-service/internal/domain"
)

// fakeBookSource serves books by normalized ISBN and lowercase title.
type fakeBookSource struct {
	mu           sync.Mutex
	byISBN       map[string]*domain.Book
	byTitle      map[string]*domain.Book
	isbnCalls    []string
	searchCalls  []string
	searchAuthor []string
}

func newFakeBookSource(books ...*domain.Book) *fakeBookSource {
	f := &fakeBookSource{byISBN: map[string]*domain.Book{}, byTitle: map[string]*domain.Book{}}
	for _, b := range books {
		for _, k := range b.ISBNCandidates() {
			f.byISBN[domain.NormalizeISBN(k)] = b
		}
		f.byTitle[strings.ToLower(b.Title)] = b
	}
	return f
}

func (f *fakeBookSource) FetchByISBN(_ context.Context, isbn string) (*domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.isbnCalls = append(f.isbnCalls, isbn)
	if b, ok := f.byISBN[isbn]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeBookSource) SearchByTitleAuthor(_ context.Context, title, author string) (*domain.Book, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.searchCalls = append(f.searchCalls, title)
	f.searchAuthor = append(f.searchAuthor, author)
	if b, ok := f.byTitle[strings.ToLower(strings.TrimSpace(title))]; ok {
		cp := *b
		return &cp, nil
	}
	return nil, nil
}

func (f *fakeBookSource) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.isbnCalls) + len(f.searchCalls)
}

// fakeObjectStore keeps uploaded keys in memory.
type fakeObjectStore struct {
	mu       sync.Mutex
	keys     map[string][]byte
	uploads  []string
	failKeys map[string]bool
	listErr  error
}

func newFakeObjectStore(keys ...string) *fakeObjectStore {
	s := &fakeObjectStore{keys: map[string][]byte{}, failKeys: map[string]bool{}}
	for _, k := range keys {
		s.keys[k] = []byte("existing")
	}
	return s
}

func (s *fakeObjectStore) ListKeys(_ context.Context, prefix string) ([]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	var out []string
	for k := range s.keys {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	return out, nil
}

func (s *fakeObjectStore) Upload(_ context.Context, key string, r io.Reader, _ int64, _ string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.failKeys[key] {
		return "", errors.New("bucket unavailable")
	}
	body, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}
	s.keys[key] = body
	s.uploads = append(s.uploads, key)
	return key, nil
}

func (s *fakeObjectStore) uploadCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.uploads)
}

// fakeDownloader returns a fixed body for every URL except failURLs.
type fakeDownloader struct {
	mu       sync.Mutex
	failURLs map[string]bool
	panicURL string
	active   int
	peak     int
	gate     chan struct{}
}

func (d *fakeDownloader) Download(_ context.Context, url string) (*domain.DownloadedMedia, error) {
	d.mu.Lock()
	d.active++
	if d.active > d.peak {
		d.peak = d.active
	}
	d.mu.Unlock()

	defer func() {
		d.mu.Lock()
		d.active--
		d.mu.Unlock()
	}()

	if d.gate != nil {
		<-d.gate
	}
	if url == d.panicURL && url != "" {
		panic("decoder exploded")
	}
	if d.failURLs[url] {
		return nil, errors.New("404 from image host")
	}
	return &domain.DownloadedMedia{Body: []byte("jpeg:" + url), ContentType: "image/jpeg"}, nil
}

// fakeDocumentStore is an in-memory document store.
type fakeDocumentStore struct {
	mu      sync.Mutex
	docs    map[string]json.RawMessage
	writes  []string
	failIDs map[string]error
}

func newFakeDocumentStore() *fakeDocumentStore {
	return &fakeDocumentStore{docs: map[string]json.RawMessage{}, failIDs: map[string]error{}}
}

func (s *fakeDocumentStore) Get(_ context.Context, collection, docID string) (json.RawMessage, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.docs[collection+"/"+docID], nil
}

func (s *fakeDocumentStore) Set(_ context.Context, collection, docID string, value any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.failIDs[docID]; err != nil {
		return err
	}
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	s.docs[collection+"/"+docID] = raw
	s.writes = append(s.writes, docID)
	return nil
}

func (s *fakeDocumentStore) has(collection, docID string) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.docs[collection+"/"+docID]
	return ok
}

// fakeSummarizer returns a fixed summary or error.
type fakeSummarizer struct {
	text  string
	err   error
	calls int
}

func (s *fakeSummarizer) Summarize(_ context.Context, _ string, _ any) (string, error) {
	s.calls++
	return s.text, s.err
}

// fakeGoodreadsSource serves a fixed feed and shelf.
type fakeGoodreadsSource struct {
	feed     domain.GoodreadsFeed
	shelf    []domain.ReadBook
	feedErr  error
	shelfErr error
}

func (f *fakeGoodreadsSource) FetchProfile(_ context.Context) (*domain.Fetched[domain.GoodreadsFeed], error) {
	if f.feedErr != nil {
		return nil, f.feedErr
	}
	return &domain.Fetched[domain.GoodreadsFeed]{Data: f.feed, Raw: map[string]any{"user": f.feed.Profile.ID}}, nil
}

func (f *fakeGoodreadsSource) FetchShelf(_ context.Context) (*domain.Fetched[[]domain.ReadBook], error) {
	if f.shelfErr != nil {
		return nil, f.shelfErr
	}
	return &domain.Fetched[[]domain.ReadBook]{Data: f.shelf, Raw: map[string]any{"reviews": len(f.shelf)}}, nil
}

// fakeDiscogsSource serves a fixed profile and collection and counts detail lookups.
type fakeDiscogsSource struct {
	mu            sync.Mutex
	profile       domain.DiscogsProfile
	releases      []domain.Release
	details       map[int]*domain.ReleaseDetails
	collectionErr error
	detailCalls   []int
}

func (f *fakeDiscogsSource) FetchProfile(_ context.Context) (*domain.Fetched[domain.DiscogsProfile], error) {
	return &domain.Fetched[domain.DiscogsProfile]{Data: f.profile, Raw: map[string]any{"username": f.profile.Username}}, nil
}

func (f *fakeDiscogsSource) FetchCollection(_ context.Context) (*domain.Fetched[[]domain.Release], error) {
	if f.collectionErr != nil {
		return nil, f.collectionErr
	}
	return &domain.Fetched[[]domain.Release]{Data: f.releases, Raw: map[string]any{"releases": len(f.releases)}}, nil
}

func (f *fakeDiscogsSource) FetchRelease(_ context.Context, releaseID int) (*domain.ReleaseDetails, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.detailCalls = append(f.detailCalls, releaseID)
	return f.details[releaseID], nil
}
