package domain

import (
	"reflect"
	"testing"
)

func TestNormalizeISBN(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"978-0-14-312755-0", "9780143127550"},
		{"0 14 312755 X", "014312755X"},
		{"9780143127550", "9780143127550"},
		{"", ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.in, func(t *testing.T) {
			if got := NormalizeISBN(tt.in); got != tt.want {
				t.Errorf("NormalizeISBN(%q) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestBookRef_ISBNCandidates(t *testing.T) {
	ref := BookRef{ISBN13: "978-0-14-312755-0", ISBN: "0143127551"}

	got := ref.ISBNCandidates()
	want := []string{"978-0-14-312755-0", "9780143127550", "0143127551"}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("ISBNCandidates() = %v, want %v", got, want)
	}

	if got := (BookRef{Title: "No ISBN"}).ISBNCandidates(); len(got) != 0 {
		t.Errorf("expected no candidates, got %v", got)
	}
}

func TestBookRef_EnrichmentKey(t *testing.T) {
	tests := []struct {
		name string
		ref  BookRef
		want EnrichmentKey
	}{
		{"isbn13 preferred", BookRef{ISBN13: "978-0-14-312755-0", ISBN: "0143127551", Title: "X"}, "isbn:9780143127550"},
		{"isbn10 fallback", BookRef{ISBN: "0-14-312755-1", Title: "X"}, "isbn:0143127551"},
		{"title fallback", BookRef{Title: "  The Overstory "}, "title:the overstory"},
		{"empty", BookRef{}, ""},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.ref.EnrichmentKey(); got != tt.want {
				t.Errorf("EnrichmentKey() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBookRef_EnrichmentKey_SameTitleDifferentCase(t *testing.T) {
	a := BookRef{Title: "Piranesi"}
	b := BookRef{Title: " piranesi"}

	if a.EnrichmentKey() != b.EnrichmentKey() {
		t.Errorf("expected equal keys, got %q and %q", a.EnrichmentKey(), b.EnrichmentKey())
	}
}

func TestBookRef_AuthorName(t *testing.T) {
	tests := []struct {
		name   string
		author *AuthorRef
		want   string
	}{
		{"nil author", nil, ""},
		{"direct name wins", &AuthorRef{Name: "Ursula K. Le Guin", DisplayName: "Le Guin", SortByName: "Le Guin, Ursula"}, "Ursula K. Le Guin"},
		{"display name second", &AuthorRef{DisplayName: "Susanna Clarke", SortByName: "Clarke, Susanna"}, "Susanna Clarke"},
		{"sort name last", &AuthorRef{SortByName: "Powers, Richard"}, "Powers, Richard"},
		{"blank fields skipped", &AuthorRef{Name: "  ", SortByName: "Jemisin, N.K."}, "Jemisin, N.K."},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			ref := BookRef{Author: tt.author}
			if got := ref.AuthorName(); got != tt.want {
				t.Errorf("AuthorName() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestBook_ThumbnailURL(t *testing.T) {
	b := &Book{SmallThumbnail: "small"}
	if b.ThumbnailURL() != "small" {
		t.Errorf("expected small thumbnail fallback, got %q", b.ThumbnailURL())
	}

	b.Thumbnail = "large"
	if b.ThumbnailURL() != "large" {
		t.Errorf("expected thumbnail, got %q", b.ThumbnailURL())
	}
}

func TestBook_HasResolvedMedia(t *testing.T) {
	var nilBook *Book
	if nilBook.HasResolvedMedia() {
		t.Error("nil book must not be resolved")
	}
	if (&Book{Thumbnail: "x"}).HasResolvedMedia() {
		t.Error("source thumbnail alone is not resolved media")
	}
	if !(&Book{CDNMediaURL: "https://cdn/x.jpg"}).HasResolvedMedia() {
		t.Error("expected resolved media")
	}
}
