package goodreads

import (
	"encoding/xml"
	"strings"
	"time"

	"personal-metrics-service/internal/domain"
)

// timeLayout is the Goodreads timestamp format ("Tue Jan 02 10:00:00 -0800 2024").
const timeLayout = "Mon Jan 02 15:04:05 -0700 2006"

// UserResponse is the /user/show/{id}.xml response.
type UserResponse struct {
	XMLName xml.Name `xml:"GoodreadsResponse" json:"-"`
	User    User     `xml:"user" json:"user"`
}

// User is the Goodreads user block.
type User struct {
	ID           string   `xml:"id" json:"id"`
	Name         string   `xml:"name" json:"name"`
	UserName     string   `xml:"user_name" json:"userName"`
	Link         string   `xml:"link" json:"link"`
	ImageURL     string   `xml:"image_url" json:"imageURL"`
	FriendsCount int      `xml:"friends_count" json:"friendsCount"`
	ReviewsCount int      `xml:"reviews_count" json:"reviewsCount"`
	Shelves      []Shelf  `xml:"user_shelves>user_shelf" json:"shelves"`
	Updates      []Update `xml:"updates>update" json:"updates"`
}

// Shelf is a user shelf summary.
type Shelf struct {
	Name      string `xml:"name" json:"name"`
	BookCount int    `xml:"book_count" json:"bookCount"`
}

// Update is an activity entry. The book sits under a different element per
// update type.
type Update struct {
	Type       string       `xml:"type,attr" json:"type"`
	ActionText string       `xml:"action_text" json:"actionText"`
	Link       string       `xml:"link" json:"link"`
	UpdatedAt  string       `xml:"updated_at" json:"updatedAt"`
	Body       string       `xml:"body" json:"body,omitempty"`
	Action     UpdateAction `xml:"action" json:"action"`
	Object     UpdateObject `xml:"object" json:"object"`
}

// UpdateAction carries the rating of review updates.
type UpdateAction struct {
	Rating int `xml:"rating" json:"rating,omitempty"`
}

// UpdateObject holds the possible book locations of an update.
type UpdateObject struct {
	Book       *Book       `xml:"book" json:"book,omitempty"`
	UserStatus *UserStatus `xml:"user_status" json:"userStatus,omitempty"`
	ReadStatus *ReadStatus `xml:"read_status" json:"readStatus,omitempty"`
}

// UserStatus is a reading-progress update.
type UserStatus struct {
	Percent int   `xml:"percent" json:"percent"`
	Book    *Book `xml:"book" json:"book,omitempty"`
}

// ReadStatus is a shelf-change update.
type ReadStatus struct {
	Status string       `xml:"status" json:"status"`
	Review *ReviewBlock `xml:"review" json:"review,omitempty"`
}

// ReviewBlock wraps the book of a read status.
type ReviewBlock struct {
	Book *Book `xml:"book" json:"book,omitempty"`
}

// Book is the Goodreads book reference.
type Book struct {
	ID       string   `xml:"id" json:"id"`
	Title    string   `xml:"title" json:"title"`
	ISBN     string   `xml:"isbn" json:"isbn"`
	ISBN13   string   `xml:"isbn13" json:"isbn13"`
	ImageURL string   `xml:"image_url" json:"imageURL"`
	Link     string   `xml:"link" json:"link"`
	Author   *Author  `xml:"author" json:"author,omitempty"`
	Authors  []Author `xml:"authors>author" json:"authors,omitempty"`
}

// Author is one of the author shapes Goodreads emits.
type Author struct {
	Name        string `xml:"name" json:"name,omitempty"`
	DisplayName string `xml:"display_name" json:"displayName,omitempty"`
	SortByName  string `xml:"sort_by_name" json:"sortByName,omitempty"`
}

// ReviewsResponse is a /review/list/{id}.xml page.
type ReviewsResponse struct {
	XMLName xml.Name `xml:"GoodreadsResponse" json:"-"`
	Reviews Reviews  `xml:"reviews" json:"reviews"`
}

// Reviews is the paginated review list.
type Reviews struct {
	Start   int      `xml:"start,attr" json:"start"`
	End     int      `xml:"end,attr" json:"end"`
	Total   int      `xml:"total,attr" json:"total"`
	Reviews []Review `xml:"review" json:"review"`
}

// Review is a shelf entry.
type Review struct {
	ID        string `xml:"id" json:"id"`
	Book      Book   `xml:"book" json:"book"`
	Rating    int    `xml:"rating" json:"rating"`
	ReadAt    string `xml:"read_at" json:"readAt"`
	DateAdded string `xml:"date_added" json:"dateAdded"`
	Link      string `xml:"link" json:"link"`
}

// updateBookAccessors lists the book locations of an update in preference order.
var updateBookAccessors = []func(*UpdateObject) *Book{
	func(o *UpdateObject) *Book { return o.Book },
	func(o *UpdateObject) *Book {
		if o.UserStatus == nil {
			return nil
		}
		return o.UserStatus.Book
	},
	func(o *UpdateObject) *Book {
		if o.ReadStatus == nil || o.ReadStatus.Review == nil {
			return nil
		}
		return o.ReadStatus.Review.Book
	},
}

// book returns the first book found on the update object.
func (o *UpdateObject) book() *Book {
	for _, get := range updateBookAccessors {
		if b := get(o); b != nil {
			return b
		}
	}
	return nil
}

// ToRef converts a Goodreads book to domain.BookRef.
func (b *Book) ToRef() domain.BookRef {
	ref := domain.BookRef{
		ID:       strings.TrimSpace(b.ID),
		Title:    strings.TrimSpace(b.Title),
		ISBN:     strings.TrimSpace(b.ISBN),
		ISBN13:   strings.TrimSpace(b.ISBN13),
		ImageURL: strings.TrimSpace(b.ImageURL),
		Link:     strings.TrimSpace(b.Link),
	}

	author := b.Author
	if author == nil && len(b.Authors) > 0 {
		author = &b.Authors[0]
	}
	if author != nil {
		ref.Author = &domain.AuthorRef{
			Name:        strings.TrimSpace(author.Name),
			DisplayName: strings.TrimSpace(author.DisplayName),
			SortByName:  strings.TrimSpace(author.SortByName),
		}
	}

	return ref
}

// ToDomain converts the user block to the widget profile.
func (u *User) ToDomain() domain.GoodreadsProfile {
	shelves := make([]domain.GoodreadsShelf, 0, len(u.Shelves))
	for _, s := range u.Shelves {
		shelves = append(shelves, domain.GoodreadsShelf{Name: s.Name, BookCount: s.BookCount})
	}

	return domain.GoodreadsProfile{
		ID:           u.ID,
		Name:         u.Name,
		Username:     u.UserName,
		Link:         u.Link,
		ImageURL:     u.ImageURL,
		FriendsCount: u.FriendsCount,
		ReviewsCount: u.ReviewsCount,
		Shelves:      shelves,
	}
}

// ToDomain converts an update. ok is false for update types that carry no book.
func (u *Update) ToDomain() (update domain.StatusUpdate, ok bool) {
	b := u.Object.book()
	if b == nil {
		return domain.StatusUpdate{}, false
	}

	update = domain.StatusUpdate{
		PrimaryItem: domain.PrimaryItem{
			Type: domain.ItemType(u.Type),
			Link: strings.TrimSpace(u.Link),
			Book: b.ToRef(),
		},
		ActionText: strings.TrimSpace(u.ActionText),
		Body:       strings.TrimSpace(u.Body),
		Rating:     u.Action.Rating,
	}
	if u.Object.UserStatus != nil {
		update.Percent = u.Object.UserStatus.Percent
	}
	if t, err := time.Parse(timeLayout, strings.TrimSpace(u.UpdatedAt)); err == nil {
		update.UpdatedAt = t
	}

	return update, true
}

// ToDomain converts a shelf review to a read book.
func (r *Review) ToDomain() domain.ReadBook {
	return domain.ReadBook{
		PrimaryItem: domain.PrimaryItem{
			Type: domain.ItemTypeReview,
			Link: strings.TrimSpace(r.Link),
			Book: r.Book.ToRef(),
		},
		ReviewID:  strings.TrimSpace(r.ID),
		Rating:    r.Rating,
		ReadAt:    strings.TrimSpace(r.ReadAt),
		DateAdded: strings.TrimSpace(r.DateAdded),
	}
}
