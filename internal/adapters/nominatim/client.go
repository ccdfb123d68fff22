package nominatim

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/pkg/metrics"
)

// reverseZoom asks the reverse endpoint for city-level detail.
const reverseZoom = 10

// Options configures a Client.
type Options struct {
	BaseURL        string
	UserAgent      string
	Email          string
	AcceptLanguage string
	Timeout        time.Duration
	HTTPClient     *http.Client
	Logger         *slog.Logger
}

// Client implements ports.Geocoder against a Nominatim server.
type Client struct {
	base           *url.URL
	userAgent      string
	email          string
	acceptLanguage string
	http           *http.Client
	log            *slog.Logger
}

// New creates a Nominatim client.
func New(opts Options) (*Client, error) {
	base, err := url.Parse(strings.TrimRight(opts.BaseURL, "/"))
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if base.Scheme == "" || base.Host == "" {
		return nil, fmt.Errorf("base url must be absolute: %q", opts.BaseURL)
	}

	hc := opts.HTTPClient
	if hc == nil {
		timeout := opts.Timeout
		if timeout <= 0 {
			timeout = 10 * time.Second
		}
		hc = &http.Client{Timeout: timeout}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Client{
		base:           base,
		userAgent:      opts.UserAgent,
		email:          opts.Email,
		acceptLanguage: opts.AcceptLanguage,
		http:           hc,
		log:            logger.With(slog.String("component", "nominatim")),
	}, nil
}

// Search queries search.php for places whose city matches text.
func (c *Client) Search(ctx context.Context, text string) ([]domain.SearchResult, error) {
	params := url.Values{}
	params.Set("city", text)
	params.Set("format", "jsonv2")

	var items []searchItem
	if err := c.get(ctx, "search", "/search.php", params, &items); err != nil {
		return nil, err
	}

	results := make([]domain.SearchResult, 0, len(items))
	for _, it := range items {
		osmType, err := domain.ParseOSMType(it.OSMType)
		if err != nil || it.OSMID <= 0 {
			c.log.DebugContext(ctx, "skipping search hit without osm reference", "display_name", it.DisplayName)
			continue
		}
		results = append(results, domain.SearchResult{
			OSM:         domain.OSMRef{Type: osmType, ID: int64(it.OSMID)},
			DisplayName: it.DisplayName,
			Lat:         parseFloat(it.Lat),
			Lon:         parseFloat(it.Lon),
		})
	}
	return results, nil
}

// Reverse resolves a coordinate to the containing place at city zoom.
func (c *Client) Reverse(ctx context.Context, lat, lon float64) (*domain.ReverseResult, error) {
	params := url.Values{}
	params.Set("lat", strconv.FormatFloat(lat, 'f', -1, 64))
	params.Set("lon", strconv.FormatFloat(lon, 'f', -1, 64))
	params.Set("zoom", strconv.Itoa(reverseZoom))
	params.Set("format", "json")

	var resp reverseResponse
	if err := c.get(ctx, "reverse", "/reverse", params, &resp); err != nil {
		return nil, err
	}
	if resp.Error != "" || resp.OSMType == "" || resp.OSMID <= 0 {
		return nil, domain.ErrNotFound
	}

	osmType, err := domain.ParseOSMType(resp.OSMType)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", domain.ErrUpstream, err)
	}
	return &domain.ReverseResult{
		OSM:         domain.OSMRef{Type: osmType, ID: int64(resp.OSMID)},
		DisplayName: resp.DisplayName,
		Lat:         parseFloat(resp.Lat),
		Lon:         parseFloat(resp.Lon),
	}, nil
}

// Details fetches the enriched attributes of a single OSM object.
func (c *Client) Details(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) {
	if !ref.Valid() {
		return nil, fmt.Errorf("details: invalid osm reference %+v", ref)
	}

	params := url.Values{}
	params.Set("osmtype", ref.Type.Letter())
	params.Set("osmid", strconv.FormatInt(ref.ID, 10))
	params.Set("format", "json")

	var resp detailsResponse
	if err := c.get(ctx, "details", "/details", params, &resp); err != nil {
		return nil, err
	}
	if len(resp.Error) > 0 && string(resp.Error) != "null" {
		return nil, domain.ErrNotFound
	}

	details := &domain.PlaceDetails{
		OSM:         ref,
		LocalName:   resp.LocalName,
		DisplayName: resp.DisplayName,
		CountryCode: resp.CountryCode,
		AddressTags: resp.AddressTags,
		AdminLevel:  int(resp.AdminLevel),
		Type:        resp.Type,
		Category:    resp.Category,
		ExtraTags:   resp.ExtraTags,
	}
	if details.LocalName == "" && details.DisplayName == "" {
		details.LocalName = resp.Names["name"]
	}
	if resp.Importance != nil {
		details.Importance = *resp.Importance
	}
	if resp.Centroid != nil && len(resp.Centroid.Coordinates) >= 2 {
		details.Centroid = &domain.GeoPoint{
			Lat: resp.Centroid.Coordinates[1],
			Lon: resp.Centroid.Coordinates[0],
		}
	}
	return details, nil
}

// get performs one GET and decodes the JSON body into out.
func (c *Client) get(ctx context.Context, endpoint, path string, params url.Values, out any) (err error) {
	ctx, span := otel.Tracer("NominatimClient").Start(ctx, endpoint)
	defer span.End()

	start := time.Now()
	defer func() {
		// a miss is a valid answer, not a transport failure
		if errors.Is(err, domain.ErrNotFound) {
			metrics.ObserveUpstream(endpoint, start, nil)
			return
		}
		metrics.ObserveUpstream(endpoint, start, err)
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, "geocoding request failed")
		}
	}()

	if c.email != "" {
		params.Set("email", c.email)
	}
	u := *c.base
	u.Path = c.base.Path + path
	u.RawQuery = params.Encode()
	span.SetAttributes(attribute.String("http.url", u.String()))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u.String(), nil)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	req.Header.Set("User-Agent", c.userAgent)
	req.Header.Set("Accept", "application/json")
	if c.acceptLanguage != "" {
		req.Header.Set("Accept-Language", c.acceptLanguage)
	}

	resp, err := c.http.Do(req)
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.log.ErrorContext(ctx, "nominatim request failed", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: %s: %v", domain.ErrUpstream, endpoint, err)
	}
	defer func() {
		_ = resp.Body.Close()
	}()

	span.SetAttributes(attribute.Int("http.status_code", resp.StatusCode))

	if resp.StatusCode == http.StatusNotFound {
		return domain.ErrNotFound
	}
	if resp.StatusCode != http.StatusOK {
		_, _ = io.Copy(io.Discard, io.LimitReader(resp.Body, 4096))
		c.log.ErrorContext(ctx, "nominatim upstream error", "endpoint", endpoint, "status", resp.StatusCode)
		return fmt.Errorf("%w: %s: HTTP %d", domain.ErrUpstream, endpoint, resp.StatusCode)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		c.log.ErrorContext(ctx, "failed to decode nominatim payload", "endpoint", endpoint, "error", err)
		return fmt.Errorf("%w: %s: decode: %v", domain.ErrUpstream, endpoint, err)
	}
	return nil
}

func parseFloat(s string) float64 {
	f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
	if err != nil {
		return 0
	}
	return f
}
