package discogs

import (
	"personal-metrics-service/internal/domain"
)

// UserResponse is the /users/{username} response.
type UserResponse struct {
	ID            int    `json:"id"`
	Username      string `json:"username"`
	Name          string `json:"name"`
	AvatarURL     string `json:"avatar_url"`
	URI           string `json:"uri"`
	NumCollection int    `json:"num_collection"`
	NumWantlist   int    `json:"num_wantlist"`
}

// CollectionResponse is one page of a collection folder listing.
type CollectionResponse struct {
	Pagination Pagination          `json:"pagination"`
	Releases   []CollectionRelease `json:"releases"`
}

// Pagination holds pagination info.
type Pagination struct {
	Page    int `json:"page"`
	Pages   int `json:"pages"`
	PerPage int `json:"per_page"`
	Items   int `json:"items"`
}

// CollectionRelease is a collection folder entry.
type CollectionRelease struct {
	ID               int              `json:"id"`
	InstanceID       int              `json:"instance_id"`
	DateAdded        string           `json:"date_added"`
	Rating           int              `json:"rating"`
	BasicInformation BasicInformation `json:"basic_information"`
}

// BasicInformation is the release summary.
type BasicInformation struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Year        int      `json:"year"`
	Artists     []Artist `json:"artists"`
	Formats     []Format `json:"formats"`
	Genres      []string `json:"genres"`
	Styles      []string `json:"styles"`
	CoverImage  string   `json:"cover_image"`
	Thumb       string   `json:"thumb"`
	ResourceURL string   `json:"resource_url"`
}

// Artist is a credited artist.
type Artist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// Format is a release format.
type Format struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty"`
	Descriptions []string `json:"descriptions"`
}

// ReleaseResponse is the /releases/{id} response.
type ReleaseResponse struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Country     string   `json:"country"`
	Released    string   `json:"released"`
	Notes       string   `json:"notes"`
	URI         string   `json:"uri"`
	Genres      []string `json:"genres"`
	Styles      []string `json:"styles"`
	Tracklist   []Track  `json:"tracklist"`
	LowestPrice float64  `json:"lowest_price"`
	NumForSale  int      `json:"num_for_sale"`
}

// Track is a tracklist entry.
type Track struct {
	Position string `json:"position"`
	Title    string `json:"title"`
	Duration string `json:"duration"`
}

// ToDomain converts the user response to the widget profile.
func (u *UserResponse) ToDomain() domain.DiscogsProfile {
	return domain.DiscogsProfile{
		Username:      u.Username,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
		ProfileURL:    u.URI,
		NumCollection: u.NumCollection,
		NumWantlist:   u.NumWantlist,
	}
}

// ToDomain converts a collection entry to domain.Release.
func (r *CollectionRelease) ToDomain() domain.Release {
	bi := r.BasicInformation

	artists := make([]domain.Artist, 0, len(bi.Artists))
	for _, a := range bi.Artists {
		artists = append(artists, domain.Artist{ID: a.ID, Name: a.Name})
	}

	formats := make([]domain.ReleaseFormat, 0, len(bi.Formats))
	for _, f := range bi.Formats {
		formats = append(formats, domain.ReleaseFormat{Name: f.Name, Qty: f.Qty, Descriptions: f.Descriptions})
	}

	return domain.Release{
		ID:         r.ID,
		InstanceID: r.InstanceID,
		DateAdded:  r.DateAdded,
		Rating:     r.Rating,
		BasicInformation: domain.BasicInformation{
			ID:          bi.ID,
			Title:       bi.Title,
			Year:        bi.Year,
			Artists:     artists,
			Formats:     formats,
			Genres:      bi.Genres,
			Styles:      bi.Styles,
			CoverImage:  bi.CoverImage,
			Thumb:       bi.Thumb,
			ResourceURL: bi.ResourceURL,
		},
	}
}

// ToDomain converts a release response to domain.ReleaseDetails.
func (r *ReleaseResponse) ToDomain() *domain.ReleaseDetails {
	tracks := make([]domain.Track, 0, len(r.Tracklist))
	for _, t := range r.Tracklist {
		tracks = append(tracks, domain.Track{Position: t.Position, Title: t.Title, Duration: t.Duration})
	}

	return &domain.ReleaseDetails{
		ID:          r.ID,
		Title:       r.Title,
		Country:     r.Country,
		Released:    r.Released,
		Notes:       r.Notes,
		URI:         r.URI,
		Genres:      r.Genres,
		Styles:      r.Styles,
		Tracklist:   tracks,
		LowestPrice: r.LowestPrice,
		NumForSale:  r.NumForSale,
	}
}
