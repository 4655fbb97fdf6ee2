// Package interaction records user engagement events (likes, comments,
// views) and answers the activity queries the warmup cycle depends on.
package interaction

import "time"

// Type identifies the kind of engagement event.
type Type string

// Supported interaction types.
const (
	TypeLike    Type = "like"
	TypeComment Type = "comment"
	TypeView    Type = "view"
)

// Valid reports whether t is a known interaction type.
func (t Type) Valid() bool {
	switch t {
	case TypeLike, TypeComment, TypeView:
		return true
	}
	return false
}

// Interaction is one engagement event by a user on a content item.
type Interaction struct {
	ID        string        `json:"id"`
	UserID    string        `json:"user_id"`
	ContentID string        `json:"content_id"`
	Type      Type          `json:"type"`
	Duration  time.Duration `json:"duration,omitempty"` // view dwell time, zero otherwise
	CreatedAt time.Time     `json:"created_at"`
}
