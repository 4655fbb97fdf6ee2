package feed

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/onnwee/trailfeed/internal/cache"
	"github.com/onnwee/trailfeed/internal/content"
	"github.com/onnwee/trailfeed/internal/enrich"
	"github.com/onnwee/trailfeed/internal/feature"
	"github.com/onnwee/trailfeed/internal/interaction"
	"github.com/onnwee/trailfeed/internal/presence"
	"github.com/onnwee/trailfeed/internal/ranking"
	"github.com/onnwee/trailfeed/internal/retrieval"
)

var fixedNow = time.Date(2026, 7, 15, 12, 0, 0, 0, time.UTC)

// countingSource wraps a CandidateSource and counts calls, so tests can
// prove cache hits skip the pipeline.
type countingSource struct {
	inner CandidateSource

	mu    sync.Mutex
	calls int
}

func (s *countingSource) GetCandidates(ctx context.Context, userID string) ([]content.ContentSummary, error) {
	s.mu.Lock()
	s.calls++
	s.mu.Unlock()
	return s.inner.GetCandidates(ctx, userID)
}

func (s *countingSource) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.calls
}

// pipeline bundles a fully wired in-memory coordinator for tests.
type pipeline struct {
	coordinator *Coordinator
	cache       *cache.InMemoryCache
	contents    *content.InMemoryRepository
	provider    *feature.StaticProvider
	source      *countingSource
	presence    *presence.Tracker
}

// newTestPipeline wires the whole feed stack over in-memory backends. The
// viewer follows "friend"; two active posts exist.
func newTestPipeline(t *testing.T) *pipeline {
	t.Helper()

	contents := content.NewInMemoryRepository()
	follows := content.NewInMemoryFollowRepository()
	follows.Follow("viewer", "friend")

	contents.Add(content.ContentSummary{
		ID:        "c-friend",
		AuthorID:  "friend",
		Body:      "Notes from the office, nothing special.",
		Likes:     4,
		Comments:  1,
		CreatedAt: fixedNow.Add(-time.Hour),
	})
	contents.Add(content.ContentSummary{
		ID:        "c-recent",
		AuthorID:  "stranger",
		Body:      "Another unremarkable status update.",
		Likes:     1,
		CreatedAt: fixedNow.Add(-30 * time.Minute),
	})

	provider := feature.NewStaticProvider()
	provider.SetUser("viewer", feature.Vector{"a": 0.5})
	provider.SetContent("c-friend", feature.Vector{"a": 0.4})
	provider.SetContent("c-recent", feature.Vector{"a": 0.6})

	c := cache.NewInMemoryCache()
	now := func() time.Time { return fixedNow }

	retriever := retrieval.NewRetriever(contents, follows, c, retrieval.RetrieverConfig{Now: now})
	source := &countingSource{inner: retriever}
	ranker := ranking.NewRanker(provider, feature.NewStaticPredictor(0.5), ranking.RankerConfig{Now: now})
	tracker := presence.NewTracker()

	coordinator := NewCoordinator(CoordinatorConfig{
		Cache:        c,
		Retriever:    source,
		Ranker:       ranker,
		Enricher:     enrich.NewEnricher(nil),
		Contents:     contents,
		Interactions: interaction.NewInMemoryRepository(),
		Presence:     tracker,
		Features:     provider,
		Metrics:      NewMetrics(),
		Now:          now,
	})

	return &pipeline{
		coordinator: coordinator,
		cache:       c,
		contents:    contents,
		provider:    provider,
		source:      source,
		presence:    tracker,
	}
}

// waitForMiss polls until the key disappears from the cache, for asserting
// fire-and-forget invalidation.
func waitForMiss(t *testing.T, c cache.Cache, key string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		exists, err := c.Exists(context.Background(), key)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !exists {
			return
		}
		time.Sleep(10 * time.Millisecond)
	}
	t.Fatalf("key %s still cached after invalidation", key)
}

func TestGetPersonalizedFeed_CacheAside(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	first := p.coordinator.GetPersonalizedFeed(ctx, "viewer", 1, 20)
	if len(first.Items) != 2 {
		t.Fatalf("expected 2 items, got %d", len(first.Items))
	}
	if first.Fallback {
		t.Error("healthy pipeline should not serve fallback")
	}

	exists, err := p.cache.Exists(ctx, FeedKey("viewer", 1, 20))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("expected computed page to be cached")
	}

	// The second call is served from cache: the retriever is not consulted
	// again and the page comes back verbatim.
	callsBefore := p.source.callCount()
	second := p.coordinator.GetPersonalizedFeed(ctx, "viewer", 1, 20)
	if p.source.callCount() != callsBefore {
		t.Error("cache hit should not re-run candidate retrieval")
	}
	if len(second.Items) != len(first.Items) {
		t.Fatalf("cached page differs: %d vs %d items", len(second.Items), len(first.Items))
	}
	for i := range first.Items {
		if second.Items[i].Content.ID != first.Items[i].Content.ID {
			t.Errorf("cached item %d differs: %s vs %s",
				i, second.Items[i].Content.ID, first.Items[i].Content.ID)
		}
		if second.Items[i].Score != first.Items[i].Score {
			t.Errorf("cached score %d differs", i)
		}
	}
}

func TestGetPersonalizedFeed_DistinctPagesCacheSeparately(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	p.coordinator.GetPersonalizedFeed(ctx, "viewer", 1, 1)
	p.coordinator.GetPersonalizedFeed(ctx, "viewer", 2, 1)

	for _, key := range []string{FeedKey("viewer", 1, 1), FeedKey("viewer", 2, 1)} {
		exists, err := p.cache.Exists(ctx, key)
		if err != nil {
			t.Fatalf("Exists() error = %v", err)
		}
		if !exists {
			t.Errorf("expected %s to be cached", key)
		}
	}
}

func TestRecordInteraction_InvalidatesCachedPages(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	p.coordinator.GetPersonalizedFeed(ctx, "viewer", 1, 20)
	key := FeedKey("viewer", 1, 20)
	if exists, _ := p.cache.Exists(ctx, key); !exists {
		t.Fatal("page should be cached before the interaction")
	}

	_, err := p.coordinator.RecordInteraction(ctx, interaction.Interaction{
		UserID:    "viewer",
		ContentID: "c-friend",
		Type:      interaction.TypeLike,
	})
	if err != nil {
		t.Fatalf("RecordInteraction() error = %v", err)
	}

	// Invalidation is fire-and-forget; wait for it to land.
	waitForMiss(t, p.cache, key)

	// Presence was touched.
	if _, ok := p.presence.LastSeen("viewer"); !ok {
		t.Error("interaction should touch presence")
	}
}

func TestRecordInteraction_RejectsInvalidType(t *testing.T) {
	p := newTestPipeline(t)

	_, err := p.coordinator.RecordInteraction(context.Background(), interaction.Interaction{
		UserID:    "viewer",
		ContentID: "c-friend",
		Type:      interaction.Type("teleport"),
	})
	if err == nil {
		t.Error("expected error for invalid interaction type")
	}
}

func TestGetPersonalizedFeed_FallbackWhenPipelineFails(t *testing.T) {
	p := newTestPipeline(t)
	p.provider.Err = context.DeadlineExceeded // every feature call fails

	page := p.coordinator.GetPersonalizedFeed(context.Background(), "viewer", 1, 20)
	if !page.Fallback {
		t.Error("expected fallback page when feature provider is down")
	}
	if len(page.Items) == 0 {
		t.Fatal("fallback must still return a non-empty recency page")
	}
	// Recency order: newest first.
	if page.Items[0].Content.ID != "c-recent" {
		t.Errorf("expected newest item first in fallback, got %s", page.Items[0].Content.ID)
	}
	for _, item := range page.Items {
		if item.Score != 0 {
			t.Errorf("fallback item %s should carry zero score", item.Content.ID)
		}
	}

	// Fallback pages are not cached; recovery serves fresh results.
	exists, err := p.cache.Exists(context.Background(), FeedKey("viewer", 1, 20))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if exists {
		t.Error("fallback pages must not be cached")
	}
}

func TestGetContextualizedFeed_BoostReordersByProximity(t *testing.T) {
	p := newTestPipeline(t)

	// Two fresh posts with identical base scores; only location differs.
	p.contents.Add(content.ContentSummary{
		ID:        "c-near",
		AuthorID:  "stranger",
		Body:      "Plain update from the neighborhood.",
		Location:  &content.GeoPoint{Lat: 41.0, Lng: 29.0},
		CreatedAt: fixedNow.Add(-10 * time.Minute),
	})
	p.contents.Add(content.ContentSummary{
		ID:        "c-far",
		AuthorID:  "stranger",
		Body:      "Plain update from across the continent.",
		Location:  &content.GeoPoint{Lat: 10.0, Lng: 10.0},
		CreatedAt: fixedNow.Add(-10 * time.Minute),
	})
	p.provider.SetContent("c-near", feature.Vector{"a": 0.5})
	p.provider.SetContent("c-far", feature.Vector{"a": 0.5})

	uc := enrich.UserContext{
		UserID:          "viewer",
		Timestamp:       fixedNow,
		DeviceClass:     enrich.DeviceTablet,
		Location:        &content.GeoPoint{Lat: 41.0, Lng: 29.0},
		SessionDuration: 10 * time.Minute,
	}

	items := p.coordinator.GetContextualizedFeed(context.Background(), "viewer", uc, 4)
	if len(items) != 4 {
		t.Fatalf("expected 4 items, got %d", len(items))
	}
	if items[0].Content.ID != "c-near" {
		t.Errorf("nearby content should rank first after boosting, got %s", items[0].Content.ID)
	}

	// Truncation respects count.
	items = p.coordinator.GetContextualizedFeed(context.Background(), "viewer", uc, 2)
	if len(items) != 2 {
		t.Errorf("expected truncation to 2 items, got %d", len(items))
	}
}

func TestGetContextualizedFeed_FallbackOnFailure(t *testing.T) {
	p := newTestPipeline(t)
	p.provider.Err = context.DeadlineExceeded

	items := p.coordinator.GetContextualizedFeed(context.Background(), "viewer", enrich.UserContext{
		UserID:    "viewer",
		Timestamp: fixedNow,
	}, 5)
	if len(items) == 0 {
		t.Fatal("contextual fallback must still return recency items")
	}
	if items[0].Content.ID != "c-recent" {
		t.Errorf("expected newest first, got %s", items[0].Content.ID)
	}
}

func TestInvalidate_RemovesOnlyThatUser(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	p.coordinator.GetPersonalizedFeed(ctx, "viewer", 1, 20)
	if err := p.cache.Set(ctx, FeedKey("other", 1, 20), CachedFeedPage{}, time.Minute); err != nil {
		t.Fatal(err)
	}

	removed, err := p.coordinator.Invalidate(ctx, "viewer")
	if err != nil {
		t.Fatalf("Invalidate() error = %v", err)
	}
	if removed != 1 {
		t.Errorf("expected 1 key removed, got %d", removed)
	}

	if exists, _ := p.cache.Exists(ctx, FeedKey("other", 1, 20)); !exists {
		t.Error("other user's cached page should survive")
	}
}

func TestRefreshFeedCache_WarmsFirstPage(t *testing.T) {
	p := newTestPipeline(t)
	ctx := context.Background()

	if err := p.coordinator.RefreshFeedCache(ctx, "viewer", 20); err != nil {
		t.Fatalf("RefreshFeedCache() error = %v", err)
	}

	exists, err := p.cache.Exists(ctx, FeedKey("viewer", 1, 20))
	if err != nil {
		t.Fatalf("Exists() error = %v", err)
	}
	if !exists {
		t.Error("expected page 1 to be warm after refresh")
	}
}

func TestFeedKeys(t *testing.T) {
	if got := FeedKey("u1", 2, 20); got != "feed:user:u1:page:2:size:20" {
		t.Errorf("FeedKey() = %q", got)
	}
	if got := UserFeedPrefix("u1"); got != "feed:user:u1:" {
		t.Errorf("UserFeedPrefix() = %q", got)
	}
}
