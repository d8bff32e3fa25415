package domain

import "time"

// ProviderGoodreads is the Goodreads provider name.
const ProviderGoodreads = "goodreads"

// StatusUpdate is a Goodreads activity entry (reading progress, review, shelf change).
type StatusUpdate struct {
	PrimaryItem
	ActionText string    `json:"actionText,omitempty"`
	Body       string    `json:"body,omitempty"`
	Rating     int       `json:"rating,omitempty"`
	Percent    int       `json:"percent,omitempty"`
	UpdatedAt  time.Time `json:"updated"`
}

// ReadBook is a book from the user's "read" shelf.
type ReadBook struct {
	PrimaryItem
	ReviewID  string `json:"reviewID,omitempty"`
	Rating    int    `json:"rating,omitempty"`
	ReadAt    string `json:"readAt,omitempty"`
	DateAdded string `json:"dateAdded,omitempty"`
}

// GoodreadsShelf is a named shelf with its size.
type GoodreadsShelf struct {
	Name      string `json:"name"`
	BookCount int    `json:"bookCount"`
}

// GoodreadsProfile is the widget profile block.
type GoodreadsProfile struct {
	ID           string           `json:"id"`
	Name         string           `json:"name"`
	Username     string           `json:"username,omitempty"`
	Link         string           `json:"link,omitempty"`
	ImageURL     string           `json:"imageURL,omitempty"`
	FriendsCount int              `json:"friendsCount"`
	ReviewsCount int              `json:"reviewsCount"`
	Shelves      []GoodreadsShelf `json:"shelves,omitempty"`
	CDNImageURL  string           `json:"cdnImageURL,omitempty"`
}

// AvatarKey returns the object key the profile image is stored under.
func (p *GoodreadsProfile) AvatarKey() string {
	return "goodreads/avatar-" + p.ID + ".jpg"
}

// ReadCount returns the size of the "read" shelf, or 0.
func (p *GoodreadsProfile) ReadCount() int {
	for _, s := range p.Shelves {
		if s.Name == "read" {
			return s.BookCount
		}
	}
	return 0
}

// GoodreadsCollections are the named arrays of the Goodreads widget.
type GoodreadsCollections struct {
	RecentlyReadBooks []ReadBook     `json:"recentlyReadBooks"`
	Updates           []StatusUpdate `json:"updates"`
}

// GoodreadsWidget is the persisted Goodreads widget document.
type GoodreadsWidget = WidgetContent[GoodreadsCollections, GoodreadsProfile]

// MatchedBooks returns the external records attached to read books.
func (c *GoodreadsCollections) MatchedBooks() []Book {
	books := make([]Book, 0, len(c.RecentlyReadBooks))
	for _, rb := range c.RecentlyReadBooks {
		if rb.Match != nil {
			books = append(books, *rb.Match)
		}
	}
	return books
}
