package geo

import (
	"math"
	"testing"
)

func TestHaversineKm_KnownDistances(t *testing.T) {
	tests := []struct {
		name       string
		lat1, lng1 float64
		lat2, lng2 float64
		wantKm     float64
		tolerance  float64
	}{
		{
			name: "same point",
			lat1: 41.0082, lng1: 28.9784,
			lat2: 41.0082, lng2: 28.9784,
			wantKm:    0,
			tolerance: 0.001,
		},
		{
			name: "istanbul to ankara",
			lat1: 41.0082, lng1: 28.9784,
			lat2: 39.9334, lng2: 32.8597,
			wantKm:    350,
			tolerance: 10,
		},
		{
			name: "one degree of latitude",
			lat1: 0, lng1: 0,
			lat2: 1, lng2: 0,
			wantKm:    111.19,
			tolerance: 0.5,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := HaversineKm(tt.lat1, tt.lng1, tt.lat2, tt.lng2)
			if math.Abs(got-tt.wantKm) > tt.tolerance {
				t.Errorf("HaversineKm() = %v, want %v (±%v)", got, tt.wantKm, tt.tolerance)
			}
		})
	}
}

func TestDistanceBoost_Tiers(t *testing.T) {
	tests := []struct {
		name       string
		distanceKm float64
		want       float64
	}{
		{"very close", 5, 2.0},
		{"just under nearby threshold", 9.99, 2.0},
		{"at nearby threshold", 10, 1.5},
		{"regional", 75, 1.2},
		{"edge of distant", 199.9, 1.2},
		{"far away", 500, 1.0},
		{"zero distance", 0, 2.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := DistanceBoost(tt.distanceKm); got != tt.want {
				t.Errorf("DistanceBoost(%v) = %v, want %v", tt.distanceKm, got, tt.want)
			}
		})
	}
}

func TestEncodeBucket_StableAndValid(t *testing.T) {
	a := EncodeBucket(41.0082, 28.9784)
	b := EncodeBucket(41.0082, 28.9784)

	if a != b {
		t.Errorf("EncodeBucket not deterministic: %q vs %q", a, b)
	}
	if len(a) != BucketPrecision {
		t.Errorf("expected length %d, got %d", BucketPrecision, len(a))
	}
	for _, c := range a {
		if !strings32Contains(c) {
			t.Errorf("invalid geohash character %q in %q", c, a)
		}
	}

	// Nearby points should share a coarse bucket; far points should not.
	near := EncodeBucket(41.0083, 28.9785)
	if a != near {
		t.Errorf("nearby points should share a bucket: %q vs %q", a, near)
	}
	far := EncodeBucket(-33.8688, 151.2093)
	if a == far {
		t.Errorf("distant points should not share a bucket")
	}
}

func strings32Contains(c rune) bool {
	for _, v := range base32 {
		if v == c {
			return true
		}
	}
	return false
}
