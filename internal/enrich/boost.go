package enrich

import (
	"log/slog"
	"math"
	"time"
	"unicode/utf8"

	"github.com/onnwee/trailfeed/internal/content"
	"github.com/onnwee/trailfeed/internal/geo"
)

// Boost clamp bounds. The composed multiplier never leaves this range.
const (
	MinBoost = 0.1
	MaxBoost = 3.0
)

// Content-length thresholds (in characters) for device and session factors.
const (
	shortContentChars   = 200
	longContentChars    = 500
	snackContentChars   = 150
	highEngagementCount = 10
)

// Temperature thresholds in Celsius.
const (
	hotTempC  = 25.0
	coldTempC = 10.0
)

// Enricher computes contextual boost multipliers over ranked candidates.
type Enricher struct {
	logger *slog.Logger
}

// NewEnricher creates an Enricher.
func NewEnricher(logger *slog.Logger) *Enricher {
	if logger == nil {
		logger = slog.Default()
	}
	return &Enricher{logger: logger}
}

// Boost computes the contextual multiplier for one candidate: the product of
// weather, time-of-day, geo-distance, device, session, and season factors,
// clamped to [MinBoost, MaxBoost]. Any per-post failure yields a neutral 1.0
// instead of aborting the enrichment pass.
func (e *Enricher) Boost(c content.ContentSummary, uc UserContext) (boost float64) {
	defer func() {
		if r := recover(); r != nil {
			e.logger.Warn("boost computation failed, using neutral multiplier",
				"content_id", c.ID,
				"panic", r)
			boost = 1.0
		}
	}()

	product := weatherFactor(c, uc) *
		timeOfDayFactor(c, uc) *
		geoFactor(c, uc) *
		deviceFactor(c, uc) *
		sessionFactor(c, uc) *
		seasonFactor(c, uc)

	if math.IsNaN(product) || math.IsInf(product, 0) {
		e.logger.Warn("boost computation produced non-finite multiplier",
			"content_id", c.ID)
		return 1.0
	}
	return clampBoost(product)
}

// clampBoost confines a multiplier to [MinBoost, MaxBoost].
func clampBoost(v float64) float64 {
	if v < MinBoost {
		return MinBoost
	}
	if v > MaxBoost {
		return MaxBoost
	}
	return v
}

// weatherFactor favors weather-matched themes. No snapshot means neutral.
func weatherFactor(c content.ContentSummary, uc UserContext) float64 {
	w := uc.Weather
	if w == nil {
		return 1.0
	}

	factor := 1.0
	if w.CampingSuitable && MatchesTheme(c.Body, ThemeCamping) {
		factor *= 1 + 0.5*w.CampingScore
	}
	if !w.CampingSuitable && MatchesTheme(c.Body, ThemeIndoor) {
		factor *= 1.3
	}
	if w.TempC > hotTempC && MatchesTheme(c.Body, ThemeHot) {
		factor *= 1.2
	}
	if w.TempC < coldTempC && MatchesTheme(c.Body, ThemeCold) {
		factor *= 1.2
	}
	return factor
}

// timeOfDayFactor favors themes matching the local hour and day, plus a
// recency nudge for content under a day old.
func timeOfDayFactor(c content.ContentSummary, uc UserContext) float64 {
	localHour := (uc.Timestamp.UTC().Hour() + uc.TimezoneOffset + 24) % 24

	factor := 1.0
	if localHour >= 6 && localHour <= 10 && MatchesTheme(c.Body, ThemeInspirational) {
		factor *= 1.2
	}
	if localHour >= 18 && localHour <= 22 && MatchesTheme(c.Body, ThemePlanning) {
		factor *= 1.25
	}

	weekday := uc.Timestamp.UTC().Weekday()
	if (weekday == time.Saturday || weekday == time.Sunday) && MatchesTheme(c.Body, ThemeAdventure) {
		factor *= 1.15
	}

	if hours := c.AgeHours(uc.Timestamp); hours >= 0 && hours < 24 {
		factor *= 1 + 0.1*math.Exp(-hours/12)
	}
	return factor
}

// geoFactor applies the distance-tier boost when both coordinates exist.
func geoFactor(c content.ContentSummary, uc UserContext) float64 {
	if uc.Location == nil || c.Location == nil {
		return 1.0
	}
	km := geo.HaversineKm(uc.Location.Lat, uc.Location.Lng, c.Location.Lat, c.Location.Lng)
	return geo.DistanceBoost(km)
}

// deviceFactor matches content shape to the device class.
func deviceFactor(c content.ContentSummary, uc UserContext) float64 {
	length := utf8.RuneCountInString(c.Body)

	factor := 1.0
	switch uc.DeviceClass {
	case DeviceMobile:
		if length < shortContentChars {
			factor *= 1.1
		}
		if c.HasMedia {
			factor *= 1.15
		}
	case DeviceDesktop:
		if length > longContentChars {
			factor *= 1.1
		}
	}
	return factor
}

// sessionFactor favors deep content in long sessions and quick reads in
// short ones.
func sessionFactor(c content.ContentSummary, uc UserContext) float64 {
	length := utf8.RuneCountInString(c.Body)

	factor := 1.0
	if uc.SessionDuration > 30*time.Minute && c.Likes+c.Comments > highEngagementCount {
		factor *= 1.1
	}
	if uc.SessionDuration < 5*time.Minute && length < snackContentChars {
		factor *= 1.15
	}
	return factor
}

// seasonThemes maps each meteorological season to its theme and multiplier.
var seasonThemes = map[string]struct {
	theme      Theme
	multiplier float64
}{
	"spring": {ThemeNature, 1.2},
	"summer": {ThemeCamping, 1.3},
	"fall":   {ThemeHiking, 1.25},
	"winter": {ThemeWinter, 1.2},
}

// seasonFactor favors the current season's theme.
func seasonFactor(c content.ContentSummary, uc UserContext) float64 {
	st := seasonThemes[seasonOf(uc.Timestamp.UTC().Month())]
	if MatchesTheme(c.Body, st.theme) {
		return st.multiplier
	}
	return 1.0
}

// seasonOf maps a month to its northern-hemisphere meteorological season.
func seasonOf(m time.Month) string {
	switch m {
	case time.March, time.April, time.May:
		return "spring"
	case time.June, time.July, time.August:
		return "summer"
	case time.September, time.October, time.November:
		return "fall"
	default:
		return "winter"
	}
}
