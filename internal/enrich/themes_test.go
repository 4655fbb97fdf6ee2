package enrich

import "testing"

func TestMatchesTheme(t *testing.T) {
	tests := []struct {
		name  string
		body  string
		theme Theme
		want  bool
	}{
		{"english camping keyword", "Set up the tent before dark", ThemeCamping, true},
		{"turkish camping keyword", "Hafta sonu kamp planı", ThemeCamping, true},
		{"case insensitive", "CAMPFIRE stories tonight", ThemeCamping, true},
		{"turkish hiking keyword", "Sabah yürüyüşü rotası", ThemeHiking, true},
		{"no match", "Quarterly budget review", ThemeCamping, false},
		{"wrong theme", "Set up the tent", ThemeWinter, false},
		{"unknown theme", "anything", Theme("mystery"), false},
		{"empty body", "", ThemeAdventure, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := MatchesTheme(tt.body, tt.theme); got != tt.want {
				t.Errorf("MatchesTheme(%q, %s) = %v, want %v", tt.body, tt.theme, got, tt.want)
			}
		})
	}
}

func TestThemeKeywordsAreLowercase(t *testing.T) {
	// Matching lowercases the body only, so keyword sets must stay lowercase.
	for theme, keywords := range themeKeywords {
		for _, kw := range keywords {
			if !MatchesTheme(kw, theme) {
				t.Errorf("keyword %q does not match its own theme %s", kw, theme)
			}
		}
	}
}
