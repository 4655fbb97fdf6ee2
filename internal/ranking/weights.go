package ranking

import "math"

// TimeDecay computes the exponential age down-weighting for a candidate.
//
// Parameters:
//   - ageHours: hours since the content was created (negative ages clamp to 0)
//   - decayHours: the decay constant; influence halves every decayHours*ln(2)
//
// Returns a value in (0, 1]: 1.0 at age 0, approaching but never reaching 0
// as age grows.
func TimeDecay(ageHours, decayHours float64) float64 {
	if ageHours < 0 {
		ageHours = 0
	}
	if decayHours <= 0 {
		decayHours = DefaultDecayHours
	}
	return math.Exp(-ageHours / decayHours)
}

// EngagementBoost computes the diminishing-returns popularity amplifier.
//
// Parameters:
//   - likes, comments: raw engagement counters (negative counts clamp to 0)
//   - commentWeight: how much a comment counts relative to a like
//
// Returns ln(1 + likes + commentWeight*comments), monotonically increasing
// in both counters and 0 for content with no engagement.
func EngagementBoost(likes, comments int, commentWeight float64) float64 {
	if likes < 0 {
		likes = 0
	}
	if comments < 0 {
		comments = 0
	}
	return math.Log(1 + float64(likes) + commentWeight*float64(comments))
}

// FinalScore composes the base relevance score for a candidate.
//
// Parameters:
//   - engagement: predicted engagement probability in [0, 1]
//   - timeDecay: output of TimeDecay
//   - engagementBoost: output of EngagementBoost
//   - boostCoefficient: scale applied to the popularity amplifier
//
// Returns engagement * timeDecay * (1 + boostCoefficient*engagementBoost).
func FinalScore(engagement, timeDecay, engagementBoost, boostCoefficient float64) float64 {
	return engagement * timeDecay * (1 + boostCoefficient*engagementBoost)
}
