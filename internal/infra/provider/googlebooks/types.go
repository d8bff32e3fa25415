package googlebooks

import (
	"strings"

	"personal-metrics-service/internal/domain"
)

// VolumesResponse is the Google Books /volumes response.
type VolumesResponse struct {
	TotalItems int      `json:"totalItems"`
	Items      []Volume `json:"items"`
}

// Volume is a single Google Books volume.
type Volume struct {
	ID         string     `json:"id"`
	VolumeInfo VolumeInfo `json:"volumeInfo"`
}

// VolumeInfo holds the volume metadata.
type VolumeInfo struct {
	Title               string               `json:"title"`
	Subtitle            string               `json:"subtitle"`
	Authors             []string             `json:"authors"`
	PublishedDate       string               `json:"publishedDate"`
	Description         string               `json:"description"`
	PageCount           int                  `json:"pageCount"`
	Categories          []string             `json:"categories"`
	InfoLink            string               `json:"infoLink"`
	IndustryIdentifiers []IndustryIdentifier `json:"industryIdentifiers"`
	ImageLinks          ImageLinks           `json:"imageLinks"`
}

// IndustryIdentifier is an ISBN_10 / ISBN_13 / OTHER identifier.
type IndustryIdentifier struct {
	Type       string `json:"type"`
	Identifier string `json:"identifier"`
}

// ImageLinks holds cover image URLs.
type ImageLinks struct {
	SmallThumbnail string `json:"smallThumbnail"`
	Thumbnail      string `json:"thumbnail"`
}

// ToDomain converts a Volume to domain.Book.
func (v *Volume) ToDomain() *domain.Book {
	info := v.VolumeInfo

	book := &domain.Book{
		ID:             v.ID,
		Title:          info.Title,
		Subtitle:       info.Subtitle,
		Authors:        info.Authors,
		Categories:     info.Categories,
		Description:    info.Description,
		PageCount:      info.PageCount,
		PublishedDate:  info.PublishedDate,
		InfoLink:       info.InfoLink,
		SmallThumbnail: imageURL(info.ImageLinks.SmallThumbnail),
		Thumbnail:      imageURL(info.ImageLinks.Thumbnail),
	}

	for _, id := range info.IndustryIdentifiers {
		switch id.Type {
		case "ISBN_13":
			book.ISBN13 = id.Identifier
		case "ISBN_10":
			book.ISBN10 = id.Identifier
		}
	}

	return book
}

// imageURL upgrades to https and drops the zoom restriction for a larger image.
func imageURL(raw string) string {
	if raw == "" {
		return ""
	}
	u := strings.Replace(raw, "http://", "https://", 1)
	u = strings.Replace(u, "zoom=1", "zoom=0", 1)
	return strings.Replace(u, "&edge=curl", "", 1)
}
