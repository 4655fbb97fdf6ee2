package feature

import (
	"context"
	"math"
	"testing"
)

func TestHashProvider_Deterministic(t *testing.T) {
	p := NewHashProvider()
	ctx := context.Background()

	a, err := p.ExtractUserFeatures(ctx, "u1")
	if err != nil {
		t.Fatalf("ExtractUserFeatures() error = %v", err)
	}
	b, _ := p.ExtractUserFeatures(ctx, "u1")

	if len(a) != len(featureNames) {
		t.Fatalf("expected %d features, got %d", len(featureNames), len(a))
	}
	for name, av := range a {
		if b[name] != av {
			t.Errorf("feature %q not deterministic: %v vs %v", name, av, b[name])
		}
	}

	other, _ := p.ExtractUserFeatures(ctx, "u2")
	same := true
	for name, av := range a {
		if other[name] != av {
			same = false
		}
	}
	if same {
		t.Error("distinct users should not share identical vectors")
	}
}

func TestHashProvider_VectorsAreFinite(t *testing.T) {
	p := NewHashProvider()
	ctx := context.Background()

	for _, id := range []string{"u1", "u2", "c1", "c2", ""} {
		v, err := p.ExtractContentFeatures(ctx, id, "post")
		if err != nil {
			t.Fatalf("ExtractContentFeatures(%q) error = %v", id, err)
		}
		if !v.Valid() {
			t.Errorf("vector for %q contains non-finite values: %v", id, v)
		}
		for name, val := range v {
			if val < 0 || val > 1 {
				t.Errorf("feature %q out of [0,1]: %v", name, val)
			}
		}
	}
}

func TestHashProvider_RefreshChangesUserVector(t *testing.T) {
	p := NewHashProvider()
	ctx := context.Background()

	before, _ := p.ExtractUserFeatures(ctx, "u1")
	if err := p.RefreshUserProfile(ctx, "u1"); err != nil {
		t.Fatalf("RefreshUserProfile() error = %v", err)
	}
	after, _ := p.ExtractUserFeatures(ctx, "u1")

	changed := false
	for name, bv := range before {
		if after[name] != bv {
			changed = true
		}
	}
	if !changed {
		t.Error("profile refresh should reseed the user vector")
	}
}

func TestHashProvider_SimilarityRange(t *testing.T) {
	p := NewHashProvider()
	ctx := context.Background()

	sim, err := p.CalculateSimilarity(ctx, "c1", "c2")
	if err != nil {
		t.Fatalf("CalculateSimilarity() error = %v", err)
	}
	cosine, ok := sim["cosine"]
	if !ok {
		t.Fatal("expected cosine metric")
	}
	if cosine < 0 || cosine > 1 {
		t.Errorf("cosine out of [0,1]: %v", cosine)
	}

	self, _ := p.CalculateSimilarity(ctx, "c1", "c1")
	if math.Abs(self["cosine"]-1.0) > 1e-9 {
		t.Errorf("self-similarity should be 1.0, got %v", self["cosine"])
	}
}

func TestDotPredictor_Range(t *testing.T) {
	p := NewDotPredictor()
	ctx := context.Background()

	tests := []struct {
		name          string
		user, content Vector
	}{
		{"empty vectors", Vector{}, Vector{}},
		{"aligned", Vector{"a": 1, "b": 1}, Vector{"a": 1, "b": 1}},
		{"disjoint dims", Vector{"a": 1}, Vector{"b": 1}},
		{"large values", Vector{"a": 100}, Vector{"a": 100}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := p.Predict(ctx, tt.user, tt.content)
			if err != nil {
				t.Fatalf("Predict() error = %v", err)
			}
			if got < 0 || got > 1 {
				t.Errorf("prediction out of [0,1]: %v", got)
			}
		})
	}
}

func TestDotPredictor_RejectsNonFinite(t *testing.T) {
	p := NewDotPredictor()

	_, err := p.Predict(context.Background(), Vector{"a": math.NaN()}, Vector{})
	if err != ErrInvalidVector {
		t.Errorf("expected ErrInvalidVector, got %v", err)
	}

	_, err = p.Predict(context.Background(), Vector{}, Vector{"a": math.Inf(1)})
	if err != ErrInvalidVector {
		t.Errorf("expected ErrInvalidVector, got %v", err)
	}
}

func TestStaticPredictor_TaggedScores(t *testing.T) {
	p := NewStaticPredictor(0.5)
	p.SetScoreForTag(1, 0.9)
	ctx := context.Background()

	got, err := p.Predict(ctx, Vector{}, Vector{"tag": 1})
	if err != nil {
		t.Fatalf("Predict() error = %v", err)
	}
	if got != 0.9 {
		t.Errorf("expected tagged score 0.9, got %v", got)
	}

	got, _ = p.Predict(ctx, Vector{}, Vector{"tag": 7})
	if got != 0.5 {
		t.Errorf("expected default 0.5, got %v", got)
	}
}
