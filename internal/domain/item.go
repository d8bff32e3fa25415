package domain

// ItemType discriminates the kinds of primary items a provider emits.
type ItemType string

const (
	ItemTypeUserStatus ItemType = "userstatus"
	ItemTypeReview     ItemType = "review"
	ItemTypeReadStatus ItemType = "readstatus"
)

// PrimaryItem is an item from a synced collection that may be enriched with an
// external Book record.
type PrimaryItem struct {
	Type ItemType `json:"type"`
	Link string   `json:"link,omitempty"` // unique, stable across copies when present
	Book BookRef  `json:"book"`

	// Match is the external record attached by the correlator.
	Match *Book `json:"match,omitempty"`
}

// Resolved reports whether the item carries stored media.
func (p *PrimaryItem) Resolved() bool {
	return p.Match.HasResolvedMedia()
}
