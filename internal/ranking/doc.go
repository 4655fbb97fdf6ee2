// Package ranking provides the feed scoring pipeline: per-candidate
// engagement scoring, time decay, popularity boosting, stable ordering, and
// offset pagination.
//
// Score composition per candidate:
//
//	engagement      = Predictor(userFeatures, contentFeatures)   // [0, 1]
//	timeDecay       = exp(-ageHours / decay_hours)               // (0, 1]
//	engagementBoost = ln(1 + likes + comment_weight*comments)
//	finalScore      = engagement * timeDecay * (1 + boost_coefficient*engagementBoost)
//
// With the default calibration (decay_hours=24, comment_weight=2,
// boost_coefficient=0.1) a score's influence halves roughly every 16.6 hours
// and raw popularity amplifies with diminishing returns.
//
// Coefficients can be overridden through a JSON calibration file; partial
// files merge over defaults so a missing or malformed calibration degrades
// gracefully.
//
// Determinism: for identical candidate sets and identical feature values the
// output order is identical. Ties in finalScore preserve candidate retrieval
// order (stable sort), which downstream caching relies on.
package ranking
