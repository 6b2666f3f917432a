package domain

import "errors"

var (
	// ErrCityNotFound is returned when the weather provider cannot resolve a city
	// or responds with a non-success status.
	ErrCityNotFound = errors.New("city not found")

	// ErrUnresolvedFeature is returned when a classifier declares a feature that
	// neither the rule table nor the nearest historical record can supply.
	ErrUnresolvedFeature = errors.New("unresolved feature")

	// ErrSchemaMismatch is returned when a feature vector does not match the
	// classifier's declared input schema name-for-name and in order.
	ErrSchemaMismatch = errors.New("feature schema mismatch")

	// ErrEmptyDataset is returned when a historical table has no records.
	ErrEmptyDataset = errors.New("empty historical dataset")
)
