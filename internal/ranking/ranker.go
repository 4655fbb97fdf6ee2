package ranking

import (
	"context"
	"fmt"
	"log/slog"
	"math"
	"sort"
	"time"

	"github.com/onnwee/trailfeed/internal/content"
	"github.com/onnwee/trailfeed/internal/feature"
)

// ContentType passed to the feature provider for feed candidates.
const ContentType = "post"

// ScoredCandidate pairs a content snapshot with its score at the current
// ranking stage. Ownership is local to one ranking pass.
type ScoredCandidate struct {
	Content content.ContentSummary `json:"content" cbor:"content"`
	Score   float64                `json:"personalization_score" cbor:"score"`
}

// Page is one page of ranked results with offset-pagination bookkeeping.
type Page struct {
	Items           []ScoredCandidate `json:"items" cbor:"items"`
	Page            int               `json:"page" cbor:"page"`
	PageSize        int               `json:"page_size" cbor:"page_size"`
	TotalCandidates int               `json:"total_candidates" cbor:"total_candidates"`
	TotalPages      int               `json:"total_pages" cbor:"total_pages"`
}

// RankerConfig configures a Ranker.
type RankerConfig struct {
	// Weights are the scoring coefficients. Nil uses defaults.
	Weights *Weights
	// Logger for per-candidate exclusion events.
	Logger *slog.Logger
	// Now overrides the clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// Ranker scores and orders a closed candidate pool.
type Ranker struct {
	provider  feature.Provider
	predictor feature.Predictor
	weights   *Weights
	logger    *slog.Logger
	now       func() time.Time
}

// NewRanker creates a Ranker over the given feature capabilities.
func NewRanker(provider feature.Provider, predictor feature.Predictor, cfg RankerConfig) *Ranker {
	weights := cfg.Weights
	if weights == nil {
		weights = DefaultWeights()
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &Ranker{
		provider:  provider,
		predictor: predictor,
		weights:   weights,
		logger:    logger,
		now:       now,
	}
}

// Rank scores the candidate pool and returns the requested page.
//
// The pool is closed before scoring begins; no candidates are added
// mid-pass. Candidates whose feature extraction or prediction fails are
// excluded rather than aborting the pass. A failure to obtain the
// requesting user's features makes the whole pass unusable and is returned
// as an error; callers fall back to a recency page.
func (r *Ranker) Rank(ctx context.Context, userID string, candidates []content.ContentSummary, page, pageSize int) (Page, error) {
	userVec, err := r.provider.ExtractUserFeatures(ctx, userID)
	if err != nil {
		return Page{}, fmt.Errorf("extract user features for %s: %w", userID, err)
	}

	now := r.now()
	scored := make([]ScoredCandidate, 0, len(candidates))

	for _, c := range candidates {
		contentVec, err := r.provider.ExtractContentFeatures(ctx, c.ID, ContentType)
		if err != nil {
			r.logger.Debug("excluding candidate, content features unavailable",
				"content_id", c.ID,
				"error", err)
			continue
		}

		engagement, err := r.predictor.Predict(ctx, userVec, contentVec)
		if err != nil {
			r.logger.Debug("excluding candidate, prediction failed",
				"content_id", c.ID,
				"error", err)
			continue
		}

		decay := TimeDecay(c.AgeHours(now), r.weights.DecayHours)
		boost := EngagementBoost(c.Likes, c.Comments, r.weights.CommentWeight)
		score := FinalScore(engagement, decay, boost, r.weights.BoostCoefficient)

		if math.IsNaN(score) || math.IsInf(score, 0) {
			r.logger.Debug("excluding candidate, non-finite score",
				"content_id", c.ID)
			continue
		}

		scored = append(scored, ScoredCandidate{Content: c, Score: score})
	}

	SortByScore(scored)
	return Paginate(scored, page, pageSize), nil
}

// RecencyPage builds an unranked page over the given corpus preserving its
// order (callers pass recency-sorted content). This is the fallback when the
// scoring pipeline is unusable; items carry a zero score.
func RecencyPage(corpus []content.ContentSummary, page, pageSize int) Page {
	items := make([]ScoredCandidate, len(corpus))
	for i, c := range corpus {
		items[i] = ScoredCandidate{Content: c}
	}
	return Paginate(items, page, pageSize)
}

// SortByScore orders candidates by score descending. The sort is stable so
// ties preserve retrieval order, keeping output deterministic.
func SortByScore(items []ScoredCandidate) {
	sort.SliceStable(items, func(i, j int) bool {
		return items[i].Score > items[j].Score
	})
}

// Paginate slices items with standard offset semantics:
// skip = (page-1)*pageSize. An out-of-range page yields an empty page, not
// an error.
func Paginate(items []ScoredCandidate, page, pageSize int) Page {
	if pageSize <= 0 {
		return Page{Page: page, PageSize: pageSize, Items: []ScoredCandidate{}}
	}
	if page < 1 {
		page = 1
	}

	total := len(items)
	totalPages := (total + pageSize - 1) / pageSize

	skip := (page - 1) * pageSize
	if skip >= total {
		return Page{
			Items:           []ScoredCandidate{},
			Page:            page,
			PageSize:        pageSize,
			TotalCandidates: total,
			TotalPages:      totalPages,
		}
	}

	end := skip + pageSize
	if end > total {
		end = total
	}

	pageItems := make([]ScoredCandidate, end-skip)
	copy(pageItems, items[skip:end])

	return Page{
		Items:           pageItems,
		Page:            page,
		PageSize:        pageSize,
		TotalCandidates: total,
		TotalPages:      totalPages,
	}
}
