package usecases

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"
	"unicode/utf8"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"golang.org/x/sync/singleflight"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/ports"
	"github.com/samirrijal/citysearch/internal/pkg/geospatial"
	"github.com/samirrijal/citysearch/internal/pkg/metrics"
)

const (
	defaultCacheTTL    = 5 * time.Minute
	defaultMaxQueryLen = 200
)

// LookupConfig tunes a LookupService. Zero values pick defaults.
type LookupConfig struct {
	CacheTTL    time.Duration
	MaxQueryLen int
	Logger      *slog.Logger
}

// CoordinateLookup is the outcome of the coordinate path: the validated
// input, the reverse-geocoded place and its details.
type CoordinateLookup struct {
	Coordinates    domain.Coordinates    `json:"coordinates"`
	Place          *domain.ReverseResult `json:"place"`
	Details        *domain.PlaceDetails  `json:"details"`
	DistanceMeters *float64              `json:"distance_m,omitempty"`
}

// LookupService handles city search, reverse geocoding and place details.
type LookupService struct {
	geo       ports.Geocoder
	cache     ports.CacheService
	events    ports.EventPublisher
	validator *CoordinateValidator
	logger    *slog.Logger

	cacheTTL    time.Duration
	maxQueryLen int

	group singleflight.Group
	now   func() time.Time
}

// NewLookupService creates a LookupService. cache and events may be nil.
func NewLookupService(geo ports.Geocoder, cache ports.CacheService, events ports.EventPublisher, cfg LookupConfig) *LookupService {
	if cfg.CacheTTL <= 0 {
		cfg.CacheTTL = defaultCacheTTL
	}
	if cfg.MaxQueryLen <= 0 {
		cfg.MaxQueryLen = defaultMaxQueryLen
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &LookupService{
		geo:         geo,
		cache:       cache,
		events:      events,
		validator:   NewCoordinateValidator(),
		logger:      cfg.Logger.With(slog.String("service", "lookup")),
		cacheTTL:    cfg.CacheTTL,
		maxQueryLen: cfg.MaxQueryLen,
		now:         time.Now,
	}
}

// Search returns candidate places for a city name.
func (s *LookupService) Search(ctx context.Context, text string) ([]domain.SearchResult, error) {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "Search")
	defer span.End()

	query := strings.TrimSpace(text)
	if query == "" {
		metrics.Lookups.WithLabelValues("search", "invalid").Inc()
		return nil, domain.ErrEmptyQuery
	}
	if utf8.RuneCountInString(query) > s.maxQueryLen {
		metrics.Lookups.WithLabelValues("search", "invalid").Inc()
		return nil, fmt.Errorf("%w (max %d characters)", domain.ErrQueryTooLong, s.maxQueryLen)
	}
	span.SetAttributes(attribute.String("lookup.query", query))

	l := s.logger.With(slog.String("method", "Search"), slog.String("query", query))

	key := "search:" + strings.ToLower(query)
	results, err := fetchCached(ctx, s, "search", key, func(ctx context.Context) ([]domain.SearchResult, error) {
		return s.geo.Search(ctx, query)
	})
	if err != nil {
		l.WarnContext(ctx, "search failed", slog.Any("error", err))
		s.fail(span, "search", err)
		return nil, err
	}

	l.DebugContext(ctx, "search completed", slog.Int("count", len(results)))
	span.SetAttributes(attribute.Int("lookup.results", len(results)))
	span.SetStatus(codes.Ok, "search completed")
	metrics.Lookups.WithLabelValues("search", "ok").Inc()

	s.publish(ctx, &domain.LookupEvent{
		Kind:    domain.LookupSearch,
		Query:   query,
		Results: len(results),
	})
	return results, nil
}

// Details returns the enriched attributes of one place.
func (s *LookupService) Details(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "Details")
	defer span.End()

	if !ref.Valid() {
		metrics.Lookups.WithLabelValues("details", "invalid").Inc()
		return nil, fmt.Errorf("%w: invalid osm reference", domain.ErrNotFound)
	}
	span.SetAttributes(attribute.String("lookup.osm", ref.String()))

	details, err := fetchCached(ctx, s, "details", "details:"+ref.String(), func(ctx context.Context) (*domain.PlaceDetails, error) {
		return s.geo.Details(ctx, ref)
	})
	if err != nil {
		s.logger.WarnContext(ctx, "details failed", slog.String("osm", ref.String()), slog.Any("error", err))
		s.fail(span, "details", err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "details fetched")
	metrics.Lookups.WithLabelValues("details", "ok").Inc()

	s.publish(ctx, &domain.LookupEvent{
		Kind:    domain.LookupDetails,
		OSM:     &ref,
		Results: 1,
		Title:   details.Title(),
	})
	return details, nil
}

// Reverse returns the place at c. Invalid coordinates never reach the
// geocoder.
func (s *LookupService) Reverse(ctx context.Context, c domain.Coordinates) (*domain.ReverseResult, error) {
	ctx, span := otel.Tracer("LookupService").Start(ctx, "Reverse")
	defer span.End()

	if err := s.validator.Check(c); err != nil {
		metrics.Lookups.WithLabelValues("reverse", "invalid").Inc()
		return nil, err
	}
	span.SetAttributes(attribute.Float64("lookup.lat", c.Lat), attribute.Float64("lookup.lon", c.Lon))

	key := fmt.Sprintf("reverse:%.6f:%.6f", c.Lat, c.Lon)
	place, err := fetchCached(ctx, s, "reverse", key, func(ctx context.Context) (*domain.ReverseResult, error) {
		return s.geo.Reverse(ctx, c.Lat, c.Lon)
	})
	if err != nil {
		s.fail(span, "reverse", err)
		return nil, err
	}

	span.SetStatus(codes.Ok, "reverse geocoded")
	metrics.Lookups.WithLabelValues("reverse", "ok").Inc()

	point := c.Point()
	s.publish(ctx, &domain.LookupEvent{
		Kind:    domain.LookupReverse,
		OSM:     &place.OSM,
		Point:   &point,
		Results: 1,
		Title:   place.DisplayName,
	})
	return place, nil
}

// ParseCoordinates validates user-entered latitude/longitude text.
func (s *LookupService) ParseCoordinates(lat, lon string) (domain.Coordinates, error) {
	return s.validator.Parse(lat, lon)
}

// DetailsAt runs the coordinate path: validate, reverse geocode, fetch
// details for the hit. It reports ok=false without error when either field is
// blank, in which case nothing was requested.
func (s *LookupService) DetailsAt(ctx context.Context, lat, lon string) (*CoordinateLookup, bool, error) {
	if strings.TrimSpace(lat) == "" || strings.TrimSpace(lon) == "" {
		return nil, false, nil
	}

	coords, err := s.validator.Parse(lat, lon)
	if err != nil {
		metrics.Lookups.WithLabelValues("reverse", "invalid").Inc()
		return nil, true, err
	}

	place, err := s.Reverse(ctx, coords)
	if err != nil {
		return nil, true, err
	}

	details, err := s.Details(ctx, place.OSM)
	if err != nil {
		return nil, true, err
	}

	out := &CoordinateLookup{Coordinates: coords, Place: place, Details: details}
	if details.Centroid != nil {
		d := geospatial.Haversine(coords.Lat, coords.Lon, details.Centroid.Lat, details.Centroid.Lon)
		out.DistanceMeters = &d
	}
	return out, true, nil
}

func (s *LookupService) fail(span trace.Span, kind string, err error) {
	outcome := "error"
	switch {
	case errors.Is(err, domain.ErrNotFound):
		outcome = "not_found"
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		outcome = "canceled"
	}
	metrics.Lookups.WithLabelValues(kind, outcome).Inc()
	if outcome == "error" {
		span.RecordError(err)
		span.SetStatus(codes.Error, kind+" failed")
	}
}

func (s *LookupService) publish(ctx context.Context, event *domain.LookupEvent) {
	if s.events == nil {
		return
	}
	event.Time = s.now().UTC()
	if err := s.events.PublishLookup(ctx, event); err != nil {
		s.logger.WarnContext(ctx, "publish lookup event failed", slog.String("kind", string(event.Kind)), slog.Any("error", err))
	}
}

// fetchCached reads key from the cache, falling back to fetch. Concurrent
// callers for the same key share one fetch; a caller whose ctx ends stops
// waiting while the shared fetch completes and fills the cache.
func fetchCached[T any](ctx context.Context, s *LookupService, op, key string, fetch func(context.Context) (T, error)) (T, error) {
	var zero T

	if s.cache != nil {
		if data, err := s.cache.Get(ctx, key); err == nil {
			var v T
			if err := json.Unmarshal(data, &v); err == nil {
				metrics.CacheHits.WithLabelValues(op).Inc()
				return v, nil
			}
			// entry written by an incompatible version; refetch replaces it
			if err := s.cache.Delete(ctx, key); err != nil {
				s.logger.DebugContext(ctx, "cache delete failed", slog.String("key", key), slog.Any("error", err))
			}
		}
		metrics.CacheMisses.WithLabelValues(op).Inc()
	}

	ch := s.group.DoChan(key, func() (any, error) {
		fctx := context.WithoutCancel(ctx)
		v, err := fetch(fctx)
		if err != nil {
			return nil, err
		}
		if s.cache != nil {
			if data, err := json.Marshal(v); err == nil {
				if err := s.cache.Set(fctx, key, data, s.cacheTTL); err != nil {
					s.logger.DebugContext(fctx, "cache set failed", slog.String("key", key), slog.Any("error", err))
				}
			}
		}
		return v, nil
	})

	select {
	case <-ctx.Done():
		return zero, ctx.Err()
	case res := <-ch:
		if res.Err != nil {
			return zero, res.Err
		}
		return res.Val.(T), nil
	}
}
