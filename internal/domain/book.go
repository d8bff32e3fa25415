// Package domain contains the core business entities and pure matching rules.
// This package has no external dependencies (only stdlib).
package domain

import (
	"strings"
)

// Book is an external record fetched from a book metadata source (Google Books).
// It is never mutated after fetching; copies carry the resolved media fields.
type Book struct {
	ID            string   `json:"id"`
	Title         string   `json:"title"`
	Subtitle      string   `json:"subtitle,omitempty"`
	Authors       []string `json:"authors,omitempty"`
	Categories    []string `json:"categories,omitempty"`
	Description   string   `json:"description,omitempty"`
	PageCount     int      `json:"pageCount,omitempty"`
	PublishedDate string   `json:"publishedDate,omitempty"`
	InfoLink      string   `json:"infoLink,omitempty"`
	ISBN10        string   `json:"isbn10,omitempty"`
	ISBN13        string   `json:"isbn13,omitempty"`

	// Source image URLs as returned by the metadata source.
	SmallThumbnail string `json:"smallThumbnail,omitempty"`
	Thumbnail      string `json:"thumbnail,omitempty"`

	// Resolved media, set once the thumbnail lives in object storage.
	MediaDestinationPath string `json:"mediaDestinationPath,omitempty"`
	CDNMediaURL          string `json:"cdnMediaURL,omitempty"`
}

// ThumbnailURL returns the best available source image URL.
func (b *Book) ThumbnailURL() string {
	if b.Thumbnail != "" {
		return b.Thumbnail
	}
	return b.SmallThumbnail
}

// MediaKey returns the object key the book thumbnail is stored under.
func (b *Book) MediaKey() string {
	return "books/" + b.ID + "-thumbnail.jpg"
}

// HasResolvedMedia reports whether the book already points at stored media.
func (b *Book) HasResolvedMedia() bool {
	return b != nil && b.CDNMediaURL != ""
}

// BookRef is the partial book reference embedded in a primary item.
type BookRef struct {
	ID       string     `json:"id,omitempty"`
	Title    string     `json:"title"`
	ISBN     string     `json:"isbn,omitempty"`
	ISBN13   string     `json:"isbn13,omitempty"`
	Author   *AuthorRef `json:"author,omitempty"`
	ImageURL string     `json:"imageURL,omitempty"`
	Link     string     `json:"link,omitempty"`
}

// AuthorRef holds the author shapes upstream payloads use interchangeably.
type AuthorRef struct {
	Name        string `json:"name,omitempty"`
	DisplayName string `json:"displayName,omitempty"`
	SortByName  string `json:"sortByName,omitempty"`
}

// authorAccessors lists author fields in preference order.
var authorAccessors = []func(*AuthorRef) string{
	func(a *AuthorRef) string { return a.Name },
	func(a *AuthorRef) string { return a.DisplayName },
	func(a *AuthorRef) string { return a.SortByName },
}

// AuthorName returns the first non-empty author field, or "".
func (r BookRef) AuthorName() string {
	if r.Author == nil {
		return ""
	}
	for _, get := range authorAccessors {
		if name := strings.TrimSpace(get(r.Author)); name != "" {
			return name
		}
	}
	return ""
}

// NormalizeISBN strips hyphens and spaces from an ISBN.
func NormalizeISBN(isbn string) string {
	normalized := strings.ReplaceAll(isbn, "-", "")
	normalized = strings.ReplaceAll(normalized, " ", "")
	return strings.TrimSpace(normalized)
}

// NormalizeTitle lowercases and trims a title for loose matching.
func NormalizeTitle(title string) string {
	return strings.ToLower(strings.TrimSpace(title))
}

// ISBNCandidates returns the lookup keys for a reference: ISBN-13 first, then
// ISBN-10, each in its raw and dash-stripped form, without duplicates.
func (r BookRef) ISBNCandidates() []string {
	return isbnCandidates(r.ISBN13, r.ISBN)
}

// ISBNCandidates returns the index keys a book is reachable under.
func (b *Book) ISBNCandidates() []string {
	return isbnCandidates(b.ISBN13, b.ISBN10)
}

func isbnCandidates(values ...string) []string {
	seen := make(map[string]struct{}, len(values)*2)
	keys := make([]string, 0, len(values)*2)

	for _, v := range values {
		raw := strings.TrimSpace(v)
		if raw == "" {
			continue
		}
		for _, k := range []string{raw, NormalizeISBN(raw)} {
			if _, ok := seen[k]; ok {
				continue
			}
			seen[k] = struct{}{}
			keys = append(keys, k)
		}
	}

	return keys
}

// PreferredISBN returns the dash-stripped ISBN used to drive a lookup,
// preferring ISBN-13 over ISBN-10.
func (r BookRef) PreferredISBN() string {
	if isbn := NormalizeISBN(r.ISBN13); isbn != "" {
		return isbn
	}
	return NormalizeISBN(r.ISBN)
}

// EnrichmentKey is the deduplication key for enrichment lookups.
type EnrichmentKey string

// EnrichmentKey derives the key: the preferred ISBN if any, else the
// normalized title. Returns "" when the reference carries neither.
func (r BookRef) EnrichmentKey() EnrichmentKey {
	if isbn := r.PreferredISBN(); isbn != "" {
		return EnrichmentKey("isbn:" + isbn)
	}
	if title := NormalizeTitle(r.Title); title != "" {
		return EnrichmentKey("title:" + title)
	}
	return ""
}
