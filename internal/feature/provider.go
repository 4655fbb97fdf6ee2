// Package feature defines the injected ML capabilities the ranking pipeline
// depends on: feature extraction and engagement prediction. Both are opaque
// to the core; deterministic implementations in this package double as test
// fixtures and as a standalone-mode fallback when no model service is wired.
package feature

import (
	"context"
	"errors"
	"math"
)

// Vector maps named features to numeric values for a user or content item.
// The core enforces no structure beyond "finite numeric values only".
type Vector map[string]float64

// Valid reports whether every value in the vector is finite.
func (v Vector) Valid() bool {
	for _, val := range v {
		if math.IsNaN(val) || math.IsInf(val, 0) {
			return false
		}
	}
	return true
}

// Common errors for feature operations.
var (
	ErrUnavailable   = errors.New("feature backend unavailable")
	ErrInvalidVector = errors.New("feature vector contains non-finite values")
)

// Provider extracts feature vectors for users and content items.
type Provider interface {
	// ExtractUserFeatures returns the feature vector for a user.
	ExtractUserFeatures(ctx context.Context, userID string) (Vector, error)

	// ExtractContentFeatures returns the feature vector for a content item.
	// contentType distinguishes item kinds (e.g. "post").
	ExtractContentFeatures(ctx context.Context, contentID, contentType string) (Vector, error)

	// CalculateSimilarity returns named similarity metrics between two
	// items, each in [0, 1].
	CalculateSimilarity(ctx context.Context, idA, idB string) (map[string]float64, error)

	// RefreshUserProfile asks the backend to rebuild the user's interest
	// profile. Best effort; callers treat failures as non-fatal.
	RefreshUserProfile(ctx context.Context, userID string) error
}

// Predictor estimates engagement probability from feature vectors.
type Predictor interface {
	// Predict returns an engagement probability in [0, 1] for the given
	// user and content feature vectors.
	Predict(ctx context.Context, user, content Vector) (float64, error)
}
