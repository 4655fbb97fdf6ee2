// Package feed wires candidate retrieval, ranking, and contextual boosting
// behind a cache-aside coordinator, and runs the background warmup job.
package feed

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/onnwee/trailfeed/internal/cache"
	"github.com/onnwee/trailfeed/internal/content"
	"github.com/onnwee/trailfeed/internal/enrich"
	"github.com/onnwee/trailfeed/internal/feature"
	"github.com/onnwee/trailfeed/internal/interaction"
	"github.com/onnwee/trailfeed/internal/presence"
	"github.com/onnwee/trailfeed/internal/ranking"
	"github.com/onnwee/trailfeed/internal/tracing"
)

// Cache policy.
const (
	// FeedTTL is how long a computed feed page stays cached.
	FeedTTL = 15 * time.Minute

	// invalidateTimeout bounds the fire-and-forget invalidation after an
	// interaction.
	invalidateTimeout = 5 * time.Second
)

// FeedKey returns the cache key for one page of a user's feed.
func FeedKey(userID string, page, pageSize int) string {
	return fmt.Sprintf("feed:user:%s:page:%d:size:%d", userID, page, pageSize)
}

// UserFeedPrefix returns the key prefix covering all of a user's cached
// pages.
func UserFeedPrefix(userID string) string {
	return fmt.Sprintf("feed:user:%s:", userID)
}

// CachedFeedPage is the cacheable feed page returned to callers.
type CachedFeedPage struct {
	Items           []ranking.ScoredCandidate `json:"items" cbor:"items"`
	Page            int                       `json:"page" cbor:"page"`
	PageSize        int                       `json:"page_size" cbor:"page_size"`
	TotalCandidates int                       `json:"total_candidates" cbor:"total_candidates"`
	TotalPages      int                       `json:"total_pages" cbor:"total_pages"`
	GeneratedAt     time.Time                 `json:"generated_at" cbor:"generated_at"`
	Fallback        bool                      `json:"fallback,omitempty" cbor:"fallback,omitempty"`
}

// CandidateSource selects the candidate pool for a user.
// *retrieval.Retriever satisfies this.
type CandidateSource interface {
	GetCandidates(ctx context.Context, userID string) ([]content.ContentSummary, error)
}

// Ranker scores and pages a candidate pool. *ranking.Ranker satisfies this.
type Ranker interface {
	Rank(ctx context.Context, userID string, candidates []content.ContentSummary, page, pageSize int) (ranking.Page, error)
}

// Coordinator is the feed cache coordinator: it wraps the ranking pipeline
// with cache-key derivation, TTL policy, invalidation, and the recency
// fallback.
type Coordinator struct {
	cache        cache.Cache
	retriever    CandidateSource
	ranker       Ranker
	enricher     *enrich.Enricher
	contents     content.Repository
	interactions interaction.Repository
	presence     *presence.Tracker
	features     feature.Provider
	metrics      *Metrics
	logger       *slog.Logger
	now          func() time.Time
}

// CoordinatorConfig configures a Coordinator.
type CoordinatorConfig struct {
	Cache     cache.Cache
	Retriever CandidateSource
	Ranker    Ranker
	Enricher  *enrich.Enricher
	// Contents supplies the fallback corpus.
	Contents content.Repository
	// Interactions stores recorded engagement events.
	Interactions interaction.Repository
	// Presence is optional; interactions touch it when set.
	Presence *presence.Tracker
	// Features is optional; RefreshFeedCache uses its profile-refresh hook.
	Features feature.Provider
	// Metrics is optional.
	Metrics *Metrics
	Logger  *slog.Logger
	// Now overrides the clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// NewCoordinator creates a Coordinator.
func NewCoordinator(cfg CoordinatorConfig) *Coordinator {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Coordinator{
		cache:        cfg.Cache,
		retriever:    cfg.Retriever,
		ranker:       cfg.Ranker,
		enricher:     cfg.Enricher,
		contents:     cfg.Contents,
		interactions: cfg.Interactions,
		presence:     cfg.Presence,
		features:     cfg.Features,
		metrics:      cfg.Metrics,
		logger:       logger,
		now:          now,
	}
}

// GetPersonalizedFeed returns one page of the user's personalized feed,
// cache-aside. On a miss the pipeline runs and the result is cached with
// FeedTTL. On any unrecoverable pipeline failure the recency fallback is
// returned instead; this method does not surface pipeline errors.
func (c *Coordinator) GetPersonalizedFeed(ctx context.Context, userID string, page, pageSize int) CachedFeedPage {
	start := c.now()
	key := FeedKey(userID, page, pageSize)

	var cached CachedFeedPage
	found, err := c.cache.Get(ctx, key, &cached)
	if err != nil {
		c.logger.Warn("feed cache read failed",
			"user_id", userID,
			"key", key,
			"error", err)
	}
	if found {
		if c.metrics != nil {
			c.metrics.IncCacheHits(OpPersonalized)
		}
		return cached
	}
	if c.metrics != nil {
		c.metrics.IncCacheMisses(OpPersonalized)
	}

	result := c.computePage(ctx, userID, page, pageSize)
	if !result.Fallback {
		if err := c.cache.Set(ctx, key, result, FeedTTL); err != nil {
			c.logger.Warn("feed cache write failed",
				"user_id", userID,
				"key", key,
				"error", err)
		}
	}

	if c.metrics != nil {
		c.metrics.ObserveDuration(OpPersonalized, c.now().Sub(start).Seconds())
	}
	return result
}

// computePage runs the retrieval and ranking stages for one page, degrading
// to the recency fallback on failure. Fallback pages are not cached.
func (c *Coordinator) computePage(ctx context.Context, userID string, page, pageSize int) CachedFeedPage {
	ctx, endSpan := tracing.StartSpan(ctx, "compute_feed_page")
	defer endSpan(nil)

	candidates, err := c.retriever.GetCandidates(ctx, userID)
	if err != nil {
		c.logger.Error("candidate retrieval failed, serving fallback",
			"user_id", userID,
			"error", err)
		return c.fallbackPage(ctx, userID, page, pageSize)
	}

	ranked, err := c.ranker.Rank(ctx, userID, candidates, page, pageSize)
	if err != nil {
		c.logger.Error("ranking failed, serving fallback",
			"user_id", userID,
			"error", err)
		return c.fallbackPage(ctx, userID, page, pageSize)
	}

	return c.fromRankingPage(ranked, false)
}

// fallbackPage builds a recency-sorted page over the active corpus. It is
// allowed to return results even when every upstream stage failed; an empty
// page is the floor.
func (c *Coordinator) fallbackPage(ctx context.Context, userID string, page, pageSize int) CachedFeedPage {
	if c.metrics != nil {
		c.metrics.IncFallbacks(OpPersonalized)
	}

	corpus, err := c.contents.ListActive(ctx)
	if err != nil {
		c.logger.Error("fallback corpus fetch failed, serving empty page",
			"user_id", userID,
			"error", err)
		corpus = nil
	}

	result := c.fromRankingPage(ranking.RecencyPage(corpus, page, pageSize), true)
	return result
}

// fromRankingPage converts a ranking page into the cacheable representation.
func (c *Coordinator) fromRankingPage(p ranking.Page, fallback bool) CachedFeedPage {
	return CachedFeedPage{
		Items:           p.Items,
		Page:            p.Page,
		PageSize:        p.PageSize,
		TotalCandidates: p.TotalCandidates,
		TotalPages:      p.TotalPages,
		GeneratedAt:     c.now(),
		Fallback:        fallback,
	}
}

// GetContextualizedFeed returns up to count candidates re-scored by the
// contextual boost: each ranking score is multiplied by the enricher's
// boost for the given context, then the list is re-sorted and truncated.
// Results are not cached; the context varies per request. Pipeline failures
// degrade to the recency fallback like the personalized path.
func (c *Coordinator) GetContextualizedFeed(ctx context.Context, userID string, uc enrich.UserContext, count int) []ranking.ScoredCandidate {
	start := c.now()
	if count <= 0 {
		return []ranking.ScoredCandidate{}
	}

	ctx, endSpan := tracing.StartSpan(ctx, "contextualize_feed")
	defer endSpan(nil)

	candidates, err := c.retriever.GetCandidates(ctx, userID)
	if err != nil {
		c.logger.Error("candidate retrieval failed, serving fallback",
			"user_id", userID,
			"error", err)
		return c.contextualFallback(ctx, userID, count)
	}

	// Rank the whole pool; truncation happens after boosting.
	ranked, err := c.ranker.Rank(ctx, userID, candidates, 1, len(candidates))
	if err != nil {
		c.logger.Error("ranking failed, serving fallback",
			"user_id", userID,
			"error", err)
		return c.contextualFallback(ctx, userID, count)
	}

	items := ranked.Items
	for i := range items {
		boost := c.enricher.Boost(items[i].Content, uc)
		items[i].Score *= boost
	}
	ranking.SortByScore(items)

	if len(items) > count {
		items = items[:count]
	}
	if c.metrics != nil {
		c.metrics.ObserveDuration(OpContextualized, c.now().Sub(start).Seconds())
	}
	return items
}

// contextualFallback returns the newest count active items with zero scores.
func (c *Coordinator) contextualFallback(ctx context.Context, userID string, count int) []ranking.ScoredCandidate {
	if c.metrics != nil {
		c.metrics.IncFallbacks(OpContextualized)
	}

	corpus, err := c.contents.ListActive(ctx)
	if err != nil {
		c.logger.Error("fallback corpus fetch failed, serving empty list",
			"user_id", userID,
			"error", err)
		return []ranking.ScoredCandidate{}
	}
	return ranking.RecencyPage(corpus, 1, count).Items
}

// RecordInteraction stores an engagement event, touches presence, and
// invalidates the user's cached pages. Invalidation is fire-and-forget:
// failures are logged, never surfaced, and the caller does not wait for it.
func (c *Coordinator) RecordInteraction(ctx context.Context, in interaction.Interaction) (*interaction.Interaction, error) {
	stored, err := c.interactions.Record(ctx, in)
	if err != nil {
		return nil, fmt.Errorf("record interaction: %w", err)
	}

	if c.presence != nil {
		c.presence.Touch(in.UserID)
	}

	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
		defer cancel()

		if _, err := c.Invalidate(ctx, in.UserID); err != nil {
			c.logger.Warn("post-interaction invalidation failed",
				"user_id", in.UserID,
				"error", err)
		}
	}()

	return stored, nil
}

// Invalidate removes every cached feed page for the user. Returns the number
// of keys removed.
func (c *Coordinator) Invalidate(ctx context.Context, userID string) (int, error) {
	removed, err := c.cache.RemoveByPattern(ctx, UserFeedPrefix(userID))
	if err != nil {
		return 0, fmt.Errorf("invalidate feed for %s: %w", userID, err)
	}

	c.logger.Debug("invalidated cached feed pages",
		"user_id", userID,
		"removed", removed)
	return removed, nil
}

// RefreshFeedCache invalidates the user's cached pages, kicks off an
// asynchronous interest-profile refresh, and warms the first page
// synchronously so the next request hits.
func (c *Coordinator) RefreshFeedCache(ctx context.Context, userID string, pageSize int) error {
	if _, err := c.Invalidate(ctx, userID); err != nil {
		return err
	}

	if c.features != nil {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), invalidateTimeout)
			defer cancel()

			if err := c.features.RefreshUserProfile(ctx, userID); err != nil {
				c.logger.Warn("interest-profile refresh failed",
					"user_id", userID,
					"error", err)
			}
		}()
	}

	c.GetPersonalizedFeed(ctx, userID, 1, pageSize)
	return nil
}

// WarmUser recomputes and caches the first n pages for a user, bypassing
// any cached entries. Used by the warmup job.
func (c *Coordinator) WarmUser(ctx context.Context, userID string, pages, pageSize int) error {
	for page := 1; page <= pages; page++ {
		result := c.computePage(ctx, userID, page, pageSize)
		if result.Fallback {
			return fmt.Errorf("warm user %s page %d: pipeline degraded to fallback", userID, page)
		}

		key := FeedKey(userID, page, pageSize)
		if err := c.cache.Set(ctx, key, result, FeedTTL); err != nil {
			return fmt.Errorf("warm user %s page %d: %w", userID, page, err)
		}
	}
	return nil
}
