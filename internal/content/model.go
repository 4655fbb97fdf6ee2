// Package content provides the content snapshot model and repositories
// backing candidate retrieval for the feed pipeline.
package content

import "time"

// Status represents the moderation/visibility status of a content item.
type Status string

// Content status values. Only StatusActive content is eligible for ranking.
const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
	StatusRemoved  Status = "removed"
)

// GeoPoint is a latitude/longitude pair in degrees.
type GeoPoint struct {
	Lat float64 `json:"lat" cbor:"lat"`
	Lng float64 `json:"lng" cbor:"lng"`
}

// ContentSummary is an immutable snapshot of a content item taken at read
// time. It is never mutated in place; fresher state comes from a re-fetch.
type ContentSummary struct {
	ID        string    `json:"id" cbor:"id"`
	AuthorID  string    `json:"author_id" cbor:"author_id"`
	Body      string    `json:"body" cbor:"body"`
	Status    Status    `json:"status" cbor:"status"`
	Likes     int       `json:"likes" cbor:"likes"`
	Comments  int       `json:"comments" cbor:"comments"`
	HasMedia  bool      `json:"has_media" cbor:"has_media"`
	Location  *GeoPoint `json:"location,omitempty" cbor:"location,omitempty"`
	CreatedAt time.Time `json:"created_at" cbor:"created_at"`
}

// AgeHours returns the content age in hours at time now.
func (c ContentSummary) AgeHours(now time.Time) float64 {
	return now.Sub(c.CreatedAt).Hours()
}
