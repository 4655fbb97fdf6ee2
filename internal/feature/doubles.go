package feature

import (
	"context"
	"sync"
)

// StaticProvider is a Provider returning fixed vectors, for tests that need
// exact control over feature values. Thread-safe.
type StaticProvider struct {
	mu       sync.RWMutex
	users    map[string]Vector
	contents map[string]Vector

	// Err, when set, is returned by every extraction call.
	Err error
}

// NewStaticProvider creates an empty static provider.
func NewStaticProvider() *StaticProvider {
	return &StaticProvider{
		users:    make(map[string]Vector),
		contents: make(map[string]Vector),
	}
}

// SetUser fixes the vector returned for a user id.
func (p *StaticProvider) SetUser(userID string, v Vector) {
	p.mu.Lock()
	p.users[userID] = v
	p.mu.Unlock()
}

// SetContent fixes the vector returned for a content id.
func (p *StaticProvider) SetContent(contentID string, v Vector) {
	p.mu.Lock()
	p.contents[contentID] = v
	p.mu.Unlock()
}

// ExtractUserFeatures returns the fixed user vector, or an empty vector if
// none was set.
func (p *StaticProvider) ExtractUserFeatures(ctx context.Context, userID string) (Vector, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.users[userID]; ok {
		return v, nil
	}
	return Vector{}, nil
}

// ExtractContentFeatures returns the fixed content vector, or ErrUnavailable
// for unknown ids so tests can exercise per-candidate exclusion.
func (p *StaticProvider) ExtractContentFeatures(ctx context.Context, contentID, contentType string) (Vector, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	if v, ok := p.contents[contentID]; ok {
		return v, nil
	}
	return nil, ErrUnavailable
}

// CalculateSimilarity returns a fixed neutral similarity.
func (p *StaticProvider) CalculateSimilarity(ctx context.Context, idA, idB string) (map[string]float64, error) {
	if p.Err != nil {
		return nil, p.Err
	}
	return map[string]float64{"cosine": 0.5}, nil
}

// RefreshUserProfile records nothing; static vectors do not change.
func (p *StaticProvider) RefreshUserProfile(ctx context.Context, userID string) error {
	return p.Err
}

// StaticPredictor is a Predictor returning fixed scores keyed by a content
// feature, with a fallback default. Thread-safe for concurrent reads.
type StaticPredictor struct {
	// Default is returned when no per-content score matches.
	Default float64

	// Err, when set, is returned by every call.
	Err error

	mu     sync.RWMutex
	scores map[int]float64 // keyed by the content vector's "tag" feature
}

// NewStaticPredictor creates a predictor returning def for every pair.
func NewStaticPredictor(def float64) *StaticPredictor {
	return &StaticPredictor{
		Default: def,
		scores:  make(map[int]float64),
	}
}

// SetScoreForTag fixes the score returned when the content vector carries a
// "tag" feature equal to tag.
func (p *StaticPredictor) SetScoreForTag(tag int, score float64) {
	p.mu.Lock()
	p.scores[tag] = score
	p.mu.Unlock()
}

// Predict returns the configured score for the content vector's "tag"
// feature, or Default.
func (p *StaticPredictor) Predict(ctx context.Context, user, content Vector) (float64, error) {
	if p.Err != nil {
		return 0, p.Err
	}
	if tag, ok := content["tag"]; ok {
		p.mu.RLock()
		score, found := p.scores[int(tag)]
		p.mu.RUnlock()
		if found {
			return score, nil
		}
	}
	return p.Default, nil
}
