package domain

import "strconv"

// ProviderDiscogs is the Discogs provider name.
const ProviderDiscogs = "discogs"

// Artist is a credited release artist.
type Artist struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

// ReleaseFormat describes a physical format (e.g. "Vinyl", ["LP", "Album"]).
type ReleaseFormat struct {
	Name         string   `json:"name"`
	Qty          string   `json:"qty,omitempty"`
	Descriptions []string `json:"descriptions,omitempty"`
}

// BasicInformation is the release summary embedded in collection listings.
type BasicInformation struct {
	ID          int             `json:"id"`
	Title       string          `json:"title"`
	Year        int             `json:"year"`
	Artists     []Artist        `json:"artists"`
	Formats     []ReleaseFormat `json:"formats,omitempty"`
	Genres      []string        `json:"genres,omitempty"`
	Styles      []string        `json:"styles,omitempty"`
	CoverImage  string          `json:"coverImage,omitempty"`
	Thumb       string          `json:"thumb,omitempty"`
	ResourceURL string          `json:"resourceURL,omitempty"`
}

// Track is a single tracklist entry.
type Track struct {
	Position string `json:"position"`
	Title    string `json:"title"`
	Duration string `json:"duration,omitempty"`
}

// ReleaseDetails is the full release record fetched per release.
type ReleaseDetails struct {
	ID          int      `json:"id"`
	Title       string   `json:"title"`
	Country     string   `json:"country,omitempty"`
	Released    string   `json:"released,omitempty"`
	Notes       string   `json:"notes,omitempty"`
	URI         string   `json:"uri,omitempty"`
	Genres      []string `json:"genres,omitempty"`
	Styles      []string `json:"styles,omitempty"`
	Tracklist   []Track  `json:"tracklist,omitempty"`
	LowestPrice float64  `json:"lowestPrice,omitempty"`
	NumForSale  int      `json:"numForSale,omitempty"`
}

// Release is a collection entry, optionally enriched with details and stored cover.
type Release struct {
	ID               int              `json:"id"`
	InstanceID       int              `json:"instanceID"`
	DateAdded        string           `json:"dateAdded"`
	Rating           int              `json:"rating"`
	BasicInformation BasicInformation `json:"basicInformation"`
	Details          *ReleaseDetails  `json:"details,omitempty"`

	MediaDestinationPath string `json:"mediaDestinationPath,omitempty"`
	CDNMediaURL          string `json:"cdnMediaURL,omitempty"`
}

// CoverKey returns the object key the release cover is stored under.
func (r *Release) CoverKey() string {
	return "discogs/" + strconv.Itoa(r.ID) + "_cover.jpg"
}

// CoverSourceURL returns the best upstream cover image URL.
func (r *Release) CoverSourceURL() string {
	if r.BasicInformation.CoverImage != "" {
		return r.BasicInformation.CoverImage
	}
	return r.BasicInformation.Thumb
}

// DiscogsProfile is the widget profile block.
type DiscogsProfile struct {
	Username      string `json:"username"`
	Name          string `json:"name,omitempty"`
	AvatarURL     string `json:"avatarURL,omitempty"`
	ProfileURL    string `json:"profileURL,omitempty"`
	NumCollection int    `json:"numCollection"`
	NumWantlist   int    `json:"numWantlist"`
}

// DiscogsCollections are the named arrays of the Discogs widget.
type DiscogsCollections struct {
	Releases []Release `json:"releases"`
}

// DiscogsWidget is the persisted Discogs widget document.
type DiscogsWidget = WidgetContent[DiscogsCollections, DiscogsProfile]

// DetailsByID indexes the already-fetched release details.
func (c *DiscogsCollections) DetailsByID() map[int]*ReleaseDetails {
	idx := make(map[int]*ReleaseDetails, len(c.Releases))
	for i := range c.Releases {
		if d := c.Releases[i].Details; d != nil {
			idx[c.Releases[i].ID] = d
		}
	}
	return idx
}
