package domain

import "strings"

// MediaReference is a pending binary asset transfer: download SourceURL and
// store it under DestinationKey.
type MediaReference struct {
	DestinationKey string `json:"destinationKey"`
	SourceURL      string `json:"sourceURL"`
	LogicalID      string `json:"logicalID,omitempty"`
}

// UploadResult is the per-item outcome of a media upload.
type UploadResult struct {
	Ref MediaReference
	Key string
	Err error
}

// OK reports whether the upload succeeded.
func (r UploadResult) OK() bool {
	return r.Err == nil && r.Key != ""
}

// KeySet is a snapshot of object keys already present in storage.
type KeySet map[string]struct{}

// NewKeySet builds a KeySet from a key listing.
func NewKeySet(keys []string) KeySet {
	set := make(KeySet, len(keys))
	for _, k := range keys {
		set[k] = struct{}{}
	}
	return set
}

// Has reports whether key is present. A nil set contains nothing.
func (s KeySet) Has(key string) bool {
	_, ok := s[key]
	return ok
}

// With returns a copy of the set that also contains keys.
func (s KeySet) With(keys ...string) KeySet {
	out := make(KeySet, len(s)+len(keys))
	for k := range s {
		out[k] = struct{}{}
	}
	for _, k := range keys {
		out[k] = struct{}{}
	}
	return out
}

// PublicURL joins a public base URL and an object key.
func PublicURL(baseURL, key string) string {
	if baseURL == "" {
		return key
	}
	return strings.TrimRight(baseURL, "/") + "/" + strings.TrimLeft(key, "/")
}
