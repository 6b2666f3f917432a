package domain

import (
	"context"
	"log/slog"
)

// FallbackElevation is an ElevationProvider that never fails. When the inner
// provider is nil or returns an error, it answers with a fixed default, logs a
// warning, and calls onFallback so the substitution is counted.
type FallbackElevation struct {
	inner      ElevationProvider
	defaultM   float64
	logger     *slog.Logger
	onFallback func()
}

// NewFallbackElevation wraps inner. Pass a nil inner to always use the default.
func NewFallbackElevation(inner ElevationProvider, defaultM float64, logger *slog.Logger, onFallback func()) *FallbackElevation {
	if onFallback == nil {
		onFallback = func() {}
	}
	return &FallbackElevation{
		inner:      inner,
		defaultM:   defaultM,
		logger:     logger,
		onFallback: onFallback,
	}
}

func (f *FallbackElevation) Elevation(ctx context.Context, lat, lon float64) (float64, error) {
	if f.inner == nil {
		f.logger.Warn("elevation lookup disabled, using default",
			"lat", lat,
			"lon", lon,
			"default_m", f.defaultM,
		)
		f.onFallback()
		return f.defaultM, nil
	}

	v, err := f.inner.Elevation(ctx, lat, lon)
	if err != nil {
		f.logger.Warn("elevation lookup failed, using default",
			"lat", lat,
			"lon", lon,
			"default_m", f.defaultM,
			"error", err,
		)
		f.onFallback()
		return f.defaultM, nil
	}
	return v, nil
}
