package domain

import "context"

// WeatherSnapshot is the normalized current-conditions record for a city.
// It is created per request and never modified.
type WeatherSnapshot struct {
	Temperature float64 `json:"temp"`     // °C
	Humidity    float64 `json:"humidity"` // %
	Pressure    float64 `json:"pressure"` // hPa
	Rainfall    float64 `json:"rainfall"` // mm over the last hour
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// WeatherProvider fetches live conditions for a named city.
type WeatherProvider interface {
	// Current returns the snapshot for city, or an error wrapping
	// ErrCityNotFound when the provider rejects the lookup.
	Current(ctx context.Context, city string) (WeatherSnapshot, error)
}

// ElevationProvider resolves terrain elevation in meters for a coordinate.
type ElevationProvider interface {
	Elevation(ctx context.Context, lat, lon float64) (float64, error)
}
