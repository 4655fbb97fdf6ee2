package ranking

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w.DecayHours != 24.0 {
		t.Errorf("expected decay_hours 24, got %v", w.DecayHours)
	}
	if w.CommentWeight != 2.0 {
		t.Errorf("expected comment_weight 2, got %v", w.CommentWeight)
	}
	if w.BoostCoefficient != 0.1 {
		t.Errorf("expected boost_coefficient 0.1, got %v", w.BoostCoefficient)
	}
}

func TestLoadCalibration_EmptyPathReturnsDefaults(t *testing.T) {
	w, err := LoadCalibration("")
	if err != nil {
		t.Fatalf("LoadCalibration(\"\") error = %v", err)
	}
	if *w != *DefaultWeights() {
		t.Errorf("expected defaults, got %+v", w)
	}
}

func TestLoadCalibration_MissingFileReturnsDefaultsWithError(t *testing.T) {
	w, err := LoadCalibration("/nonexistent/calibration.json")
	if err == nil {
		t.Error("expected error for missing file")
	}
	if w == nil || *w != *DefaultWeights() {
		t.Errorf("expected defaults on error, got %+v", w)
	}
}

func TestLoadCalibration_InvalidJSONReturnsDefaultsWithError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	if err := os.WriteFile(path, []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := LoadCalibration(path)
	if err == nil {
		t.Error("expected error for invalid JSON")
	}
	if w == nil || *w != *DefaultWeights() {
		t.Errorf("expected defaults on error, got %+v", w)
	}
}

func TestLoadCalibration_PartialOverride(t *testing.T) {
	path := filepath.Join(t.TempDir(), "calibration.json")
	content := `{"version": "1", "weights": {"decay_hours": 12}}`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatal(err)
	}

	w, err := LoadCalibration(path)
	if err != nil {
		t.Fatalf("LoadCalibration() error = %v", err)
	}
	if w.DecayHours != 12 {
		t.Errorf("expected decay_hours override 12, got %v", w.DecayHours)
	}
	// Untouched fields keep defaults.
	if w.CommentWeight != DefaultCommentWeight {
		t.Errorf("expected default comment_weight, got %v", w.CommentWeight)
	}
	if w.BoostCoefficient != DefaultBoostCoefficient {
		t.Errorf("expected default boost_coefficient, got %v", w.BoostCoefficient)
	}
}

func TestMergeCalibration(t *testing.T) {
	tests := []struct {
		name     string
		base     *Weights
		override *Weights
		want     Weights
	}{
		{
			name:     "nil base falls back to defaults",
			base:     nil,
			override: &Weights{DecayHours: 6},
			want:     *DefaultWeights(),
		},
		{
			name:     "nil override copies base",
			base:     &Weights{DecayHours: 10, CommentWeight: 3, BoostCoefficient: 0.2},
			override: nil,
			want:     Weights{DecayHours: 10, CommentWeight: 3, BoostCoefficient: 0.2},
		},
		{
			name:     "zero values do not override",
			base:     DefaultWeights(),
			override: &Weights{},
			want:     *DefaultWeights(),
		},
		{
			name:     "full override",
			base:     DefaultWeights(),
			override: &Weights{DecayHours: 48, CommentWeight: 1, BoostCoefficient: 0.05},
			want:     Weights{DecayHours: 48, CommentWeight: 1, BoostCoefficient: 0.05},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := MergeCalibration(tt.base, tt.override)
			if *got != tt.want {
				t.Errorf("MergeCalibration() = %+v, want %+v", *got, tt.want)
			}
		})
	}
}

func TestMergeCalibration_DoesNotMutateBase(t *testing.T) {
	base := DefaultWeights()
	_ = MergeCalibration(base, &Weights{DecayHours: 99})
	if base.DecayHours != DefaultDecayHours {
		t.Error("MergeCalibration mutated the base weights")
	}
}
