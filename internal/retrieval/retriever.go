// Package retrieval selects the bounded candidate pool that feeds the
// ranking stage: content from followed authors plus recent global content.
package retrieval

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"time"

	"github.com/onnwee/trailfeed/internal/cache"
	"github.com/onnwee/trailfeed/internal/content"
)

// Pool and caching policy.
const (
	// MaxCandidatePool is the hard upper bound on pool size. It protects
	// downstream per-item scoring cost.
	MaxCandidatePool = 200

	// RecentWindow is how far back global content is considered.
	RecentWindow = 6 * time.Hour

	// FollowedSetTTL is how long the per-user followed-id set stays cached.
	FollowedSetTTL = time.Hour
)

// FollowedSetKey returns the cache key for a user's followed-id set.
func FollowedSetKey(userID string) string {
	return fmt.Sprintf("feed:follows:%s", userID)
}

// Retriever assembles candidate pools for feed ranking.
type Retriever struct {
	contents content.Repository
	follows  content.FollowRepository
	cache    cache.Cache
	logger   *slog.Logger
	now      func() time.Time
}

// RetrieverConfig configures a Retriever.
type RetrieverConfig struct {
	Logger *slog.Logger
	// Now overrides the clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// NewRetriever creates a Retriever over the given repositories and cache.
func NewRetriever(contents content.Repository, follows content.FollowRepository, c cache.Cache, cfg RetrieverConfig) *Retriever {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Retriever{
		contents: contents,
		follows:  follows,
		cache:    c,
		logger:   logger,
		now:      now,
	}
}

// GetCandidates returns the candidate pool for a user: the union of content
// by followed authors and active content from the last six hours, ordered by
// creation time descending and capped at MaxCandidatePool.
//
// An empty pool is a valid result; downstream stages degrade gracefully.
func (r *Retriever) GetCandidates(ctx context.Context, userID string) ([]content.ContentSummary, error) {
	followedIDs, err := r.followedIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("resolve followed set for %s: %w", userID, err)
	}

	var fromFollowed []content.ContentSummary
	if len(followedIDs) > 0 {
		fromFollowed, err = r.contents.ListByAuthors(ctx, followedIDs, time.Time{})
		if err != nil {
			return nil, fmt.Errorf("list followed-author content: %w", err)
		}
	}

	since := r.now().Add(-RecentWindow)
	recent, err := r.contents.ListRecentActive(ctx, since)
	if err != nil {
		return nil, fmt.Errorf("list recent content: %w", err)
	}

	pool := mergeCandidates(fromFollowed, recent)
	if len(pool) > MaxCandidatePool {
		pool = pool[:MaxCandidatePool]
	}
	return pool, nil
}

// followedIDs returns the user's followed-id set, served from cache when
// fresh. A cache failure falls through to the repository rather than
// failing retrieval.
func (r *Retriever) followedIDs(ctx context.Context, userID string) ([]string, error) {
	key := FollowedSetKey(userID)

	var cached []string
	found, err := r.cache.Get(ctx, key, &cached)
	if err != nil {
		r.logger.Warn("followed-set cache read failed",
			"user_id", userID,
			"error", err)
	} else if found {
		return cached, nil
	}

	ids, err := r.follows.GetFollowedIDs(ctx, userID)
	if err != nil {
		return nil, err
	}

	if err := r.cache.Set(ctx, key, ids, FollowedSetTTL); err != nil {
		r.logger.Warn("followed-set cache write failed",
			"user_id", userID,
			"error", err)
	}
	return ids, nil
}

// mergeCandidates unions the two slices, deduplicating by content id, and
// orders the result created_at DESC with id ASC on ties.
func mergeCandidates(a, b []content.ContentSummary) []content.ContentSummary {
	seen := make(map[string]bool, len(a)+len(b))
	merged := make([]content.ContentSummary, 0, len(a)+len(b))

	for _, list := range [][]content.ContentSummary{a, b} {
		for _, item := range list {
			if seen[item.ID] {
				continue
			}
			seen[item.ID] = true
			merged = append(merged, item)
		}
	}

	sort.Slice(merged, func(i, j int) bool {
		if merged[i].CreatedAt.After(merged[j].CreatedAt) {
			return true
		}
		if merged[i].CreatedAt.Before(merged[j].CreatedAt) {
			return false
		}
		return merged[i].ID < merged[j].ID
	})
	return merged
}
