package ranking

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
)

// Default scoring coefficients.
const (
	DefaultDecayHours       = 24.0
	DefaultCommentWeight    = 2.0
	DefaultBoostCoefficient = 0.1
)

// Weights holds the calibrated scoring coefficients.
type Weights struct {
	DecayHours       float64 `json:"decay_hours"`       // Time-decay constant in hours (default: 24)
	CommentWeight    float64 `json:"comment_weight"`    // Comment weight relative to a like (default: 2)
	BoostCoefficient float64 `json:"boost_coefficient"` // Popularity amplifier scale (default: 0.1)
}

// CalibrationConfig represents the JSON structure of the calibration file.
type CalibrationConfig struct {
	Version string  `json:"version"` // Config version for future compatibility
	Weights Weights `json:"weights"` // Coefficient overrides
}

// DefaultWeights returns the default scoring coefficients.
func DefaultWeights() *Weights {
	return &Weights{
		DecayHours:       DefaultDecayHours,
		CommentWeight:    DefaultCommentWeight,
		BoostCoefficient: DefaultBoostCoefficient,
	}
}

// LoadCalibration loads scoring coefficients from a JSON calibration file.
// Partial configurations merge over defaults. On any error the defaults are
// returned alongside the error so callers can degrade gracefully.
func LoadCalibration(filePath string) (*Weights, error) {
	if filePath == "" {
		return DefaultWeights(), nil
	}

	data, err := os.ReadFile(filePath)
	if err != nil {
		slog.Warn("failed to read ranking calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to read calibration file: %w", err)
	}

	var config CalibrationConfig
	if err := json.Unmarshal(data, &config); err != nil {
		slog.Warn("failed to parse ranking calibration file, using defaults",
			"path", filePath,
			"error", err)
		return DefaultWeights(), fmt.Errorf("failed to parse calibration file: %w", err)
	}

	defaults := DefaultWeights()
	merged := MergeCalibration(defaults, &config.Weights)
	logCalibrationOverrides(defaults, merged)

	return merged, nil
}

// MergeCalibration merges override coefficients with base coefficients.
// Only non-zero override values are applied, allowing partial calibration
// files.
func MergeCalibration(base *Weights, override *Weights) *Weights {
	if base == nil {
		return DefaultWeights()
	}
	if override == nil {
		result := *base
		return &result
	}

	result := *base

	if override.DecayHours != 0 {
		result.DecayHours = override.DecayHours
	}
	if override.CommentWeight != 0 {
		result.CommentWeight = override.CommentWeight
	}
	if override.BoostCoefficient != 0 {
		result.BoostCoefficient = override.BoostCoefficient
	}

	return &result
}

// logCalibrationOverrides logs which coefficients were overridden.
func logCalibrationOverrides(defaults *Weights, loaded *Weights) {
	var overrides []string

	if loaded.DecayHours != defaults.DecayHours {
		overrides = append(overrides, fmt.Sprintf("decay_hours: %.2f -> %.2f",
			defaults.DecayHours, loaded.DecayHours))
	}
	if loaded.CommentWeight != defaults.CommentWeight {
		overrides = append(overrides, fmt.Sprintf("comment_weight: %.2f -> %.2f",
			defaults.CommentWeight, loaded.CommentWeight))
	}
	if loaded.BoostCoefficient != defaults.BoostCoefficient {
		overrides = append(overrides, fmt.Sprintf("boost_coefficient: %.2f -> %.2f",
			defaults.BoostCoefficient, loaded.BoostCoefficient))
	}

	if len(overrides) > 0 {
		slog.Info("loaded ranking calibration with overrides",
			"overrides", overrides)
	} else {
		slog.Info("loaded ranking calibration (using all defaults)")
	}
}
