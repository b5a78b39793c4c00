package domain

import "time"

// SourceKind tells which family of upstream produced an item.
type SourceKind string

const (
	SourceFeed  SourceKind = "feed"
	SourceForum SourceKind = "forum"
	SourceVideo SourceKind = "video"
)

// Valid reports whether k is one of the known kinds.
func (k SourceKind) Valid() bool {
	switch k {
	case SourceFeed, SourceForum, SourceVideo:
		return true
	default:
		return false
	}
}

// CollectedItem is the canonical record every source is normalised into.
// Fingerprint is the identity key for deduplication and the ContentID of
// every insight derived from the item.
type CollectedItem struct {
	SourceURL   string         `json:"sourceUrl"`
	Title       string         `json:"title"`
	Body        string         `json:"body"`
	SourceKind  SourceKind     `json:"sourceKind"`
	Source      string         `json:"source"`
	PublishedAt time.Time      `json:"publishedAt"`
	Author      string         `json:"author,omitempty"`
	Tags        []string       `json:"tags"`
	Fingerprint string         `json:"fingerprint"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// RawEntry is what a fetcher hands back before normalisation.
type RawEntry struct {
	URL         string
	Title       string
	Body        string
	PublishedAt time.Time
	Author      string
	Tags        []string
	Metadata    map[string]any
}
