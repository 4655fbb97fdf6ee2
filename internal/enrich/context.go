// Package enrich builds per-request user contexts and computes the
// contextual multiplicative boost layered on top of ranking output.
package enrich

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/onnwee/trailfeed/internal/cache"
	"github.com/onnwee/trailfeed/internal/content"
	"github.com/onnwee/trailfeed/internal/geo"
	"github.com/onnwee/trailfeed/internal/validate"
)

// DeviceClass buckets the requesting device.
type DeviceClass string

// Device classes derived from the user agent.
const (
	DeviceMobile  DeviceClass = "mobile"
	DeviceTablet  DeviceClass = "tablet"
	DeviceDesktop DeviceClass = "desktop"
)

// Request headers and query parameters carrying location hints.
const (
	HeaderLat       = "X-User-Lat"
	HeaderLng       = "X-User-Lng"
	HeaderSessionID = "X-Session-ID"
	QueryLat        = "lat"
	QueryLng        = "lng"
)

// SessionMarkerTTL bounds how long a session-start marker survives.
const SessionMarkerTTL = 24 * time.Hour

// WeatherSnapshot is the weather observation used by contextual boosting.
type WeatherSnapshot struct {
	TempC           float64 `json:"temp_c"`
	CampingSuitable bool    `json:"camping_suitable"`
	CampingScore    float64 `json:"camping_score"` // suitability in [0,1]
}

// UserContext is the per-request context the boost factors read from.
type UserContext struct {
	UserID          string
	SessionID       string
	Timestamp       time.Time
	DeviceClass     DeviceClass
	Location        *content.GeoPoint
	LocationType    string
	TimezoneOffset  int
	Weather         *WeatherSnapshot
	SessionDuration time.Duration
	Signals         map[string]string
}

// LocationClassifier classifies coordinates into a coarse location type and
// timezone offset. The default implementation is deliberately coarse; a real
// geocoding service can be injected.
type LocationClassifier interface {
	Classify(lat, lng float64) (locationType string, tzOffset int)
}

// CoarseClassifier derives the location type from the latitude band and the
// timezone offset from the longitude, truncated toward zero. Not a real
// timezone lookup.
type CoarseClassifier struct{}

// Classify implements LocationClassifier.
func (CoarseClassifier) Classify(lat, lng float64) (string, int) {
	locType := "temperate"
	switch abs := absFloat(lat); {
	case abs < 23.5:
		locType = "tropical"
	case abs > 66.5:
		locType = "polar"
	}
	return locType, int(lng / 15)
}

func absFloat(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

// WeatherProvider supplies a weather snapshot for coordinates. Nil snapshots
// are valid: boosting simply skips the weather factor.
type WeatherProvider interface {
	Snapshot(ctx context.Context, lat, lng float64) (*WeatherSnapshot, error)
}

// StaticWeatherProvider returns a fixed snapshot. Useful for development and
// tests.
type StaticWeatherProvider struct {
	Weather *WeatherSnapshot
}

// Snapshot implements WeatherProvider.
func (p *StaticWeatherProvider) Snapshot(ctx context.Context, lat, lng float64) (*WeatherSnapshot, error) {
	return p.Weather, nil
}

// ContextBuilder assembles UserContext values from request metadata.
type ContextBuilder struct {
	sessions   cache.Cache
	weather    WeatherProvider
	classifier LocationClassifier
	logger     *slog.Logger
	now        func() time.Time
}

// ContextBuilderConfig configures a ContextBuilder.
type ContextBuilderConfig struct {
	// Weather is optional; nil disables the weather factor.
	Weather WeatherProvider
	// Classifier defaults to CoarseClassifier.
	Classifier LocationClassifier
	Logger     *slog.Logger
	// Now overrides the clock, for tests. Nil uses time.Now.
	Now func() time.Time
}

// NewContextBuilder creates a ContextBuilder backed by the given session
// store.
func NewContextBuilder(sessions cache.Cache, cfg ContextBuilderConfig) *ContextBuilder {
	classifier := cfg.Classifier
	if classifier == nil {
		classifier = CoarseClassifier{}
	}
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}

	return &ContextBuilder{
		sessions:   sessions,
		weather:    cfg.Weather,
		classifier: classifier,
		logger:     logger,
		now:        now,
	}
}

// BuildContext derives a UserContext from the request. Missing or malformed
// metadata degrades to neutral defaults; this never fails the request.
func (b *ContextBuilder) BuildContext(ctx context.Context, userID string, r *http.Request) UserContext {
	now := b.now()
	uc := UserContext{
		UserID:      userID,
		SessionID:   sessionID(r),
		Timestamp:   now,
		DeviceClass: classifyDevice(r.UserAgent()),
		Signals:     make(map[string]string),
	}

	if loc := parseLocation(r); loc != nil {
		uc.Location = loc
		uc.LocationType, uc.TimezoneOffset = b.classifier.Classify(loc.Lat, loc.Lng)
		uc.Signals["geo_bucket"] = geo.EncodeBucket(loc.Lat, loc.Lng)
		uc.Signals["location_type"] = uc.LocationType
		uc.Signals["tz_offset"] = strconv.Itoa(uc.TimezoneOffset)

		if b.weather != nil {
			snapshot, err := b.weather.Snapshot(ctx, loc.Lat, loc.Lng)
			if err != nil {
				b.logger.Warn("weather lookup failed",
					"user_id", userID,
					"error", err)
			} else {
				uc.Weather = snapshot
			}
		}
	}

	uc.SessionDuration = b.sessionDuration(ctx, uc.SessionID, now)
	return uc
}

// sessionDuration reads the session-start marker; absent a marker the
// duration is zero and a marker is set for future calls.
func (b *ContextBuilder) sessionDuration(ctx context.Context, sessionID string, now time.Time) time.Duration {
	key := sessionStartKey(sessionID)

	var startedUnix int64
	found, err := b.sessions.Get(ctx, key, &startedUnix)
	if err != nil {
		b.logger.Warn("session marker read failed",
			"session_id", sessionID,
			"error", err)
		return 0
	}
	if found {
		started := time.Unix(startedUnix, 0)
		if d := now.Sub(started); d > 0 {
			return d
		}
		return 0
	}

	if err := b.sessions.Set(ctx, key, now.Unix(), SessionMarkerTTL); err != nil {
		b.logger.Warn("session marker write failed",
			"session_id", sessionID,
			"error", err)
	}
	return 0
}

func sessionStartKey(sessionID string) string {
	return fmt.Sprintf("session:start:%s", sessionID)
}

// sessionID returns the caller-supplied session id or generates one.
func sessionID(r *http.Request) string {
	if id := r.Header.Get(HeaderSessionID); id != "" {
		return id
	}
	return uuid.New().String()
}

// classifyDevice buckets a user agent by substring match.
func classifyDevice(userAgent string) DeviceClass {
	ua := strings.ToLower(userAgent)
	switch {
	case strings.Contains(ua, "tablet") || strings.Contains(ua, "ipad"):
		return DeviceTablet
	case strings.Contains(ua, "mobile") || strings.Contains(ua, "android") || strings.Contains(ua, "iphone"):
		return DeviceMobile
	default:
		return DeviceDesktop
	}
}

// parseLocation reads coordinates from headers, falling back to query
// parameters. Any parse failure yields no location.
func parseLocation(r *http.Request) *content.GeoPoint {
	latStr, lngStr := r.Header.Get(HeaderLat), r.Header.Get(HeaderLng)
	if latStr == "" || lngStr == "" {
		q := r.URL.Query()
		latStr, lngStr = q.Get(QueryLat), q.Get(QueryLng)
	}
	if latStr == "" || lngStr == "" {
		return nil
	}

	lat, err := strconv.ParseFloat(latStr, 64)
	if err != nil {
		return nil
	}
	lng, err := strconv.ParseFloat(lngStr, 64)
	if err != nil {
		return nil
	}
	if err := validate.Coordinates(lat, lng); err != nil {
		return nil
	}
	return &content.GeoPoint{Lat: lat, Lng: lng}
}
