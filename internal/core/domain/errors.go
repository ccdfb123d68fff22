package domain

import "errors"

var (
	// ErrNotFound is returned when the geocoder has no place for a query.
	ErrNotFound = errors.New("place not found")

	// ErrEmptyQuery is returned for a blank search text.
	ErrEmptyQuery = errors.New("search query must not be empty")

	// ErrQueryTooLong is returned when the search text exceeds the limit.
	ErrQueryTooLong = errors.New("search query too long")

	// ErrInvalidCoordinates is returned for non-numeric or out-of-range input.
	ErrInvalidCoordinates = errors.New("invalid coordinates")

	// ErrUpstream wraps transport and protocol failures of the geocoder.
	ErrUpstream = errors.New("geocoding service error")
)
