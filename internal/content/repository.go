package content

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for content operations.
var (
	ErrContentNotFound = errors.New("content not found")
)

// Repository defines read access to content snapshots.
// Reads are eventually-consistent; no transaction semantics are assumed.
type Repository interface {
	// GetByID retrieves a content item by id.
	GetByID(ctx context.Context, id string) (*ContentSummary, error)

	// ListByAuthors returns active content authored by any of the given
	// author ids, created at or after since. Ordered created_at DESC.
	ListByAuthors(ctx context.Context, authorIDs []string, since time.Time) ([]ContentSummary, error)

	// ListRecentActive returns active content created at or after since,
	// regardless of author. Ordered created_at DESC.
	ListRecentActive(ctx context.Context, since time.Time) ([]ContentSummary, error)

	// ListActive returns all active content ordered created_at DESC.
	// This is the corpus for the recency fallback feed.
	ListActive(ctx context.Context) ([]ContentSummary, error)
}

// FollowRepository defines read access to follow edges.
type FollowRepository interface {
	// GetFollowedIDs returns the ids of users the given user follows.
	GetFollowedIDs(ctx context.Context, userID string) ([]string, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu    sync.RWMutex
	items map[string]*ContentSummary
}

// NewInMemoryRepository creates a new in-memory content repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{
		items: make(map[string]*ContentSummary),
	}
}

// Add stores a content snapshot, generating an id if absent.
// Returns the stored id.
func (r *InMemoryRepository) Add(c ContentSummary) string {
	r.mu.Lock()
	defer r.mu.Unlock()

	if c.ID == "" {
		c.ID = uuid.New().String()
	}
	if c.CreatedAt.IsZero() {
		c.CreatedAt = time.Now()
	}
	if c.Status == "" {
		c.Status = StatusActive
	}

	stored := c
	r.items[c.ID] = &stored
	return c.ID
}

// GetByID retrieves a content item by id.
func (r *InMemoryRepository) GetByID(ctx context.Context, id string) (*ContentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	item, ok := r.items[id]
	if !ok {
		return nil, ErrContentNotFound
	}

	itemCopy := *item
	return &itemCopy, nil
}

// ListByAuthors returns active content by the given authors since the cutoff.
func (r *InMemoryRepository) ListByAuthors(ctx context.Context, authorIDs []string, since time.Time) ([]ContentSummary, error) {
	authors := make(map[string]bool, len(authorIDs))
	for _, id := range authorIDs {
		authors[id] = true
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []ContentSummary
	for _, item := range r.items {
		if item.Status != StatusActive {
			continue
		}
		if !authors[item.AuthorID] {
			continue
		}
		if item.CreatedAt.Before(since) {
			continue
		}
		results = append(results, *item)
	}

	sortByCreatedDesc(results)
	return results, nil
}

// ListRecentActive returns active content created at or after since.
func (r *InMemoryRepository) ListRecentActive(ctx context.Context, since time.Time) ([]ContentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []ContentSummary
	for _, item := range r.items {
		if item.Status != StatusActive {
			continue
		}
		if item.CreatedAt.Before(since) {
			continue
		}
		results = append(results, *item)
	}

	sortByCreatedDesc(results)
	return results, nil
}

// ListActive returns all active content ordered created_at DESC.
func (r *InMemoryRepository) ListActive(ctx context.Context) ([]ContentSummary, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []ContentSummary
	for _, item := range r.items {
		if item.Status != StatusActive {
			continue
		}
		results = append(results, *item)
	}

	sortByCreatedDesc(results)
	return results, nil
}

// sortByCreatedDesc sorts content by created_at DESC, id ASC on ties.
// The id tie-breaker keeps ordering stable for identical timestamps.
func sortByCreatedDesc(items []ContentSummary) {
	sort.Slice(items, func(i, j int) bool {
		if items[i].CreatedAt.After(items[j].CreatedAt) {
			return true
		}
		if items[i].CreatedAt.Before(items[j].CreatedAt) {
			return false
		}
		return items[i].ID < items[j].ID
	})
}

// InMemoryFollowRepository is an in-memory implementation of FollowRepository.
// Thread-safe via RWMutex.
type InMemoryFollowRepository struct {
	mu      sync.RWMutex
	follows map[string][]string // follower -> followed ids
}

// NewInMemoryFollowRepository creates a new in-memory follow repository.
func NewInMemoryFollowRepository() *InMemoryFollowRepository {
	return &InMemoryFollowRepository{
		follows: make(map[string][]string),
	}
}

// Follow records that follower follows followed.
func (r *InMemoryFollowRepository) Follow(follower, followed string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, id := range r.follows[follower] {
		if id == followed {
			return
		}
	}
	r.follows[follower] = append(r.follows[follower], followed)
}

// GetFollowedIDs returns the ids of users the given user follows.
func (r *InMemoryFollowRepository) GetFollowedIDs(ctx context.Context, userID string) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	followed := r.follows[userID]
	result := make([]string, len(followed))
	copy(result, followed)
	return result, nil
}
