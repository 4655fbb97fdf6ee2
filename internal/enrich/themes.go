package enrich

import "strings"

// Theme identifies a content theme used by contextual boosting.
type Theme string

// Themes referenced by the boost factors.
const (
	ThemeCamping       Theme = "camping"
	ThemeIndoor        Theme = "indoor"
	ThemeHot           Theme = "hot"
	ThemeCold          Theme = "cold"
	ThemeInspirational Theme = "inspirational"
	ThemePlanning      Theme = "planning"
	ThemeAdventure     Theme = "adventure"
	ThemeNature        Theme = "nature"
	ThemeHiking        Theme = "hiking"
	ThemeWinter        Theme = "winter"
)

// themeKeywords maps each theme to its bounded keyword set. The corpus is
// multilingual, so each set carries English and Turkish terms. Keywords are
// lowercase; matching is case-insensitive substring over the content body.
var themeKeywords = map[Theme][]string{
	ThemeCamping:       {"camp", "tent", "campfire", "bivouac", "kamp", "çadır"},
	ThemeIndoor:        {"indoor", "cozy", "cabin", "museum", "iç mekan", "kulübe"},
	ThemeHot:           {"swim", "beach", "lake day", "sunscreen", "yüzme", "plaj"},
	ThemeCold:          {"snow", "ski", "frost", "thermal", "kar", "kayak"},
	ThemeInspirational: {"sunrise", "summit view", "motivation", "inspire", "gün doğumu", "ilham"},
	ThemePlanning:      {"plan", "route", "gear list", "itinerary", "rota", "hazırlık"},
	ThemeAdventure:     {"adventure", "trail", "summit", "expedition", "macera", "zirve"},
	ThemeNature:        {"wildflower", "bloom", "forest", "nature", "doğa", "orman"},
	ThemeHiking:        {"hike", "trek", "foliage", "ridge", "yürüyüş", "patika"},
	ThemeWinter:        {"winter", "snowshoe", "ice climb", "kış", "kar yürüyüşü"},
}

// MatchesTheme reports whether the body matches the theme's keyword set,
// case-insensitive.
func MatchesTheme(body string, theme Theme) bool {
	keywords, ok := themeKeywords[theme]
	if !ok {
		return false
	}

	lower := strings.ToLower(body)
	for _, kw := range keywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}
