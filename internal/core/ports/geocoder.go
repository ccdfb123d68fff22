package ports

import (
	"context"

	"github.com/samirrijal/citysearch/internal/core/domain"
)

// Geocoder resolves place names and coordinates against a geocoding service.
type Geocoder interface {
	// Search returns candidate places whose city name matches text.
	Search(ctx context.Context, text string) ([]domain.SearchResult, error)
	// Reverse returns the place at a coordinate, or domain.ErrNotFound.
	Reverse(ctx context.Context, lat, lon float64) (*domain.ReverseResult, error)
	// Details returns enriched attributes for a single OSM object.
	Details(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error)
}
