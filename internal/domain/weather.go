package domain

import "context"

// WeatherCondition is a coarse category for the conditions at a coordinate.
type WeatherCondition string

const (
	ConditionClear   WeatherCondition = "clear"
	ConditionCloudy  WeatherCondition = "cloudy"
	ConditionRain    WeatherCondition = "rain"
	ConditionUnknown WeatherCondition = "unknown"
)

// Weather is a point-in-time snapshot of conditions at a report's
// coordinates, obtained once at submission.
type Weather struct {
	Condition       WeatherCondition `json:"condition"`
	PrecipitationMM float64          `json:"precipitation_mm"` // current precipitation rate, mm/h
}

// NeutralWeather is the fallback snapshot substituted when the weather
// lookup fails. It never classifies as a hazard.
func NeutralWeather() Weather {
	return Weather{Condition: ConditionUnknown}
}

// Raining reports whether the snapshot indicates active precipitation.
func (w Weather) Raining() bool {
	return w.Condition == ConditionRain || w.PrecipitationMM > 0
}

// WeatherService looks up current conditions for a coordinate. Failures are
// never fatal: callers substitute NeutralWeather and proceed.
type WeatherService interface {
	CheckWeather(ctx context.Context, lat, lng float64) (Weather, error)
}

// Geocoder resolves a coordinate to a human-readable address. Failures are
// non-fatal; callers fall back to a generic address string.
type Geocoder interface {
	ReverseGeocode(ctx context.Context, lat, lng float64) (string, error)
}

// Locator acquires the submitting device's position. On any failure
// (permission denied, position unavailable, timeout) callers substitute a
// fixed demo coordinate rather than blocking or retrying.
type Locator interface {
	CurrentLocation(ctx context.Context) (LatLng, error)
}
