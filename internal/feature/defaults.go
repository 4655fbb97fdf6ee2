package feature

import (
	"context"
	"hash/fnv"
	"math"
	"sync"
)

// featureNames are the dimensions produced by the hash provider.
// The exact dimensions are arbitrary; what matters is that vectors are
// deterministic per id so ranking output is reproducible.
var featureNames = []string{
	"affinity_outdoor",
	"affinity_social",
	"affinity_media",
	"activity_level",
	"topic_breadth",
}

// HashProvider is a deterministic Provider that derives feature vectors
// from an FNV hash of the entity id. It needs no external model service,
// which makes it the default in standalone mode and the reference double
// in tests. Thread-safe.
type HashProvider struct {
	mu        sync.RWMutex
	refreshed map[string]int // userID -> refresh count, bumps the vector seed
}

// NewHashProvider creates a new hash-based feature provider.
func NewHashProvider() *HashProvider {
	return &HashProvider{
		refreshed: make(map[string]int),
	}
}

// ExtractUserFeatures returns a deterministic vector for the user.
func (p *HashProvider) ExtractUserFeatures(ctx context.Context, userID string) (Vector, error) {
	p.mu.RLock()
	seed := p.refreshed[userID]
	p.mu.RUnlock()
	return hashVector("user:"+userID, seed), nil
}

// ExtractContentFeatures returns a deterministic vector for the content item.
func (p *HashProvider) ExtractContentFeatures(ctx context.Context, contentID, contentType string) (Vector, error) {
	return hashVector(contentType+":"+contentID, 0), nil
}

// CalculateSimilarity returns a cosine similarity between the hash vectors
// of the two ids, mapped into [0, 1].
func (p *HashProvider) CalculateSimilarity(ctx context.Context, idA, idB string) (map[string]float64, error) {
	a := hashVector("item:"+idA, 0)
	b := hashVector("item:"+idB, 0)

	var dot, normA, normB float64
	for _, name := range featureNames {
		dot += a[name] * b[name]
		normA += a[name] * a[name]
		normB += b[name] * b[name]
	}

	cosine := 0.0
	if normA > 0 && normB > 0 {
		cosine = dot / (math.Sqrt(normA) * math.Sqrt(normB))
	}

	return map[string]float64{
		"cosine": (cosine + 1) / 2,
	}, nil
}

// RefreshUserProfile reseeds the user's vector, modelling a profile rebuild.
func (p *HashProvider) RefreshUserProfile(ctx context.Context, userID string) error {
	p.mu.Lock()
	p.refreshed[userID]++
	p.mu.Unlock()
	return nil
}

// hashVector derives a feature vector from the FNV-1a hash of key.
// Each dimension lands in [0, 1].
func hashVector(key string, seed int) Vector {
	h := fnv.New64a()
	_, _ = h.Write([]byte(key))
	state := h.Sum64() + uint64(seed)

	v := make(Vector, len(featureNames))
	for _, name := range featureNames {
		// xorshift step per dimension for cheap, stable pseudo-randomness
		state ^= state << 13
		state ^= state >> 7
		state ^= state << 17
		v[name] = float64(state%10000) / 10000.0
	}
	return v
}

// DotPredictor is a deterministic Predictor computing a logistic score over
// the dot product of the two vectors. Output is always in [0, 1].
type DotPredictor struct{}

// NewDotPredictor creates a new dot-product predictor.
func NewDotPredictor() *DotPredictor {
	return &DotPredictor{}
}

// Predict returns a logistic engagement probability for the vector pair.
// Rejects vectors with non-finite values.
func (p *DotPredictor) Predict(ctx context.Context, user, content Vector) (float64, error) {
	if !user.Valid() || !content.Valid() {
		return 0, ErrInvalidVector
	}

	var dot float64
	for name, uv := range user {
		if cv, ok := content[name]; ok {
			dot += uv * cv
		}
	}

	// Logistic squash centered so typical dot products spread across (0, 1).
	return 1.0 / (1.0 + math.Exp(-(dot*4-2))), nil
}
