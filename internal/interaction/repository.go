package interaction

import (
	"context"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Common errors for interaction operations.
var (
	ErrInvalidType = errors.New("invalid interaction type")
)

// Repository defines storage for interaction events.
type Repository interface {
	// Record stores an interaction. An empty id is generated.
	Record(ctx context.Context, in Interaction) (*Interaction, error)

	// ListByUser returns a user's interactions, newest first.
	ListByUser(ctx context.Context, userID string) ([]Interaction, error)

	// ListActiveUserIDs returns the distinct ids of users with at least
	// one interaction at or after since, sorted ascending for stable
	// batching.
	ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error)
}

// InMemoryRepository is an in-memory implementation of Repository.
// Thread-safe via RWMutex.
type InMemoryRepository struct {
	mu     sync.RWMutex
	events []Interaction
}

// NewInMemoryRepository creates a new in-memory interaction repository.
func NewInMemoryRepository() *InMemoryRepository {
	return &InMemoryRepository{}
}

// Record stores an interaction.
func (r *InMemoryRepository) Record(ctx context.Context, in Interaction) (*Interaction, error) {
	if !in.Type.Valid() {
		return nil, ErrInvalidType
	}
	if in.ID == "" {
		in.ID = uuid.New().String()
	}
	if in.CreatedAt.IsZero() {
		in.CreatedAt = time.Now()
	}

	r.mu.Lock()
	r.events = append(r.events, in)
	r.mu.Unlock()

	stored := in
	return &stored, nil
}

// ListByUser returns a user's interactions, newest first.
func (r *InMemoryRepository) ListByUser(ctx context.Context, userID string) ([]Interaction, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	var results []Interaction
	for _, e := range r.events {
		if e.UserID == userID {
			results = append(results, e)
		}
	}

	sort.Slice(results, func(i, j int) bool {
		if results[i].CreatedAt.After(results[j].CreatedAt) {
			return true
		}
		if results[i].CreatedAt.Before(results[j].CreatedAt) {
			return false
		}
		return results[i].ID < results[j].ID
	})
	return results, nil
}

// ListActiveUserIDs returns distinct users active at or after since.
func (r *InMemoryRepository) ListActiveUserIDs(ctx context.Context, since time.Time) ([]string, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	seen := make(map[string]bool)
	var ids []string
	for _, e := range r.events {
		if e.CreatedAt.Before(since) {
			continue
		}
		if seen[e.UserID] {
			continue
		}
		seen[e.UserID] = true
		ids = append(ids, e.UserID)
	}

	sort.Strings(ids)
	return ids, nil
}
