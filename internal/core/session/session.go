// Package session holds the page-level lookup controller: the state behind
// one interactive city search, shared by every renderer.
package session

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/usecases"
	"github.com/samirrijal/citysearch/internal/pkg/debounce"
)

// ErrNoSuchResult is returned by Select for an index outside the result list.
var ErrNoSuchResult = errors.New("no such search result")

// Lookup is the subset of the lookup use case a Session drives.
type Lookup interface {
	Search(ctx context.Context, text string) ([]domain.SearchResult, error)
	Details(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error)
	DetailsAt(ctx context.Context, lat, lon string) (*usecases.CoordinateLookup, bool, error)
}

// Options configures a Session.
type Options struct {
	Debounce time.Duration
	Logger   *slog.Logger
}

// View is an immutable snapshot of a session's state.
type View struct {
	ID      string `json:"id"`
	Version uint64 `json:"version"`

	SearchText string `json:"search_text"`
	Lat        string `json:"lat"`
	Lon        string `json:"lon"`

	Results       []domain.SearchResult `json:"results"`
	Loading       bool                  `json:"loading"`
	SearchPending bool                  `json:"search_pending"`
	SearchError   string                `json:"search_error,omitempty"`
	ShowResults   bool                  `json:"show_results"`
	NoResults     bool                  `json:"no_results"`

	Details        *domain.PlaceDetails `json:"details,omitempty"`
	DistanceMeters *float64             `json:"distance_m,omitempty"`
	DetailsError   string               `json:"details_error,omitempty"`

	CoordError       bool   `json:"coord_error"`
	CoordErrorReason string `json:"coord_error_reason,omitempty"`
}

// Session is the lookup controller for one user. All methods are safe for
// concurrent use; listeners are called outside the lock.
type Session struct {
	id        string
	lookup    Lookup
	debouncer *debounce.Debouncer
	logger    *slog.Logger

	ctx    context.Context
	cancel context.CancelFunc

	mu         sync.Mutex
	st         View
	searchGen  uint64
	placeGen   uint64
	stopSearch context.CancelFunc
	listeners  map[int]func(View)
	nextID     int
	closed     bool
}

// New creates a Session with a fresh random ID.
func New(lookup Lookup, opts Options) *Session {
	if opts.Logger == nil {
		opts.Logger = slog.Default()
	}
	id := uuid.NewString()
	ctx, cancel := context.WithCancel(context.Background())
	s := &Session{
		id:        id,
		lookup:    lookup,
		debouncer: debounce.New(opts.Debounce),
		logger:    opts.Logger.With(slog.String("session", id)),
		ctx:       ctx,
		cancel:    cancel,
		listeners: make(map[int]func(View)),
	}
	s.st.ID = id
	return s
}

func (s *Session) ID() string { return s.id }

// View returns the current state.
func (s *Session) View() View {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshot()
}

// OnChange registers fn to receive every new state. The returned func
// removes it.
func (s *Session) OnChange(fn func(View)) func() {
	s.mu.Lock()
	defer s.mu.Unlock()
	id := s.nextID
	s.nextID++
	s.listeners[id] = fn
	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// SetSearchText records an edit of the search box. It clears any shown
// details and coordinate error, supersedes the in-flight search and schedules
// a debounced search for non-empty text.
func (s *Session) SetSearchText(text string) {
	gen, ok := s.editSearch(text)
	if !ok {
		return
	}
	if strings.TrimSpace(text) == "" {
		s.debouncer.Cancel()
	} else {
		s.debouncer.Trigger(func() { s.runSearch(s.ctx, gen, text) })
	}
	s.notify()
}

// Flush runs a pending debounced search now. It reports whether one was
// pending.
func (s *Session) Flush() bool {
	return s.debouncer.Flush()
}

// SearchNow sets the search text and searches synchronously, bypassing the
// debounce.
func (s *Session) SearchNow(ctx context.Context, text string) {
	gen, ok := s.editSearch(text)
	if !ok {
		return
	}
	s.debouncer.Cancel()
	s.notify()
	if strings.TrimSpace(text) != "" {
		s.runSearch(ctx, gen, text)
	}
}

func (s *Session) SetLatitude(lat string) {
	if s.update(func(st *View) { st.Lat = lat }) {
		s.notify()
	}
}

func (s *Session) SetLongitude(lon string) {
	if s.update(func(st *View) { st.Lon = lon }) {
		s.notify()
	}
}

// SubmitCoordinates looks up the place at the entered coordinates. Blank
// latitude or longitude does nothing. The returned error is already reflected
// in the view.
func (s *Session) SubmitCoordinates(ctx context.Context) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	lat, lon := s.st.Lat, s.st.Lon
	if strings.TrimSpace(lat) == "" || strings.TrimSpace(lon) == "" {
		s.mu.Unlock()
		return nil
	}
	s.placeGen++
	gen := s.placeGen
	s.mu.Unlock()

	out, ok, err := s.lookup.DetailsAt(ctx, lat, lon)
	if !ok {
		return nil
	}

	s.mu.Lock()
	if gen != s.placeGen || s.closed {
		s.mu.Unlock()
		return err
	}
	switch {
	case err == nil:
		s.st.Details = out.Details
		s.st.DistanceMeters = out.DistanceMeters
		s.st.DetailsError = ""
		s.st.CoordError = false
		s.st.CoordErrorReason = ""
		s.clearSearch()
	case errors.Is(err, domain.ErrInvalidCoordinates):
		s.st.Details = nil
		s.st.DistanceMeters = nil
		s.st.CoordError = true
		s.st.CoordErrorReason = strings.TrimPrefix(err.Error(), domain.ErrInvalidCoordinates.Error()+": ")
	case errors.Is(err, domain.ErrNotFound):
		s.st.Details = nil
		s.st.DistanceMeters = nil
		s.st.CoordError = true
		s.st.CoordErrorReason = "no place found at these coordinates"
	default:
		s.logger.WarnContext(ctx, "coordinate lookup failed", slog.String("lat", lat), slog.String("lon", lon), slog.Any("error", err))
		s.st.CoordError = true
		s.st.CoordErrorReason = "lookup failed"
	}
	s.st.Version++
	s.mu.Unlock()
	s.notify()
	return err
}

// Select shows the details of the search result at index.
func (s *Session) Select(ctx context.Context, index int) error {
	s.mu.Lock()
	if index < 0 || index >= len(s.st.Results) {
		n := len(s.st.Results)
		s.mu.Unlock()
		return fmt.Errorf("%w: index %d of %d", ErrNoSuchResult, index, n)
	}
	ref := s.st.Results[index].OSM
	s.mu.Unlock()
	return s.SelectRef(ctx, ref)
}

// SelectRef clears the search text and coordinate error, then fetches the
// details of ref. A failed fetch is logged and leaves the shown details as
// they were.
func (s *Session) SelectRef(ctx context.Context, ref domain.OSMRef) error {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		return nil
	}
	s.clearSearch()
	s.st.CoordError = false
	s.st.CoordErrorReason = ""
	s.st.DetailsError = ""
	s.placeGen++
	gen := s.placeGen
	s.st.Version++
	s.mu.Unlock()
	s.debouncer.Cancel()
	s.notify()

	details, err := s.lookup.Details(ctx, ref)

	s.mu.Lock()
	if gen != s.placeGen || s.closed {
		s.mu.Unlock()
		return err
	}
	if err != nil {
		s.logger.WarnContext(ctx, "error fetching details", slog.String("osm", ref.String()), slog.Any("error", err))
		s.st.DetailsError = err.Error()
	} else {
		s.st.Details = details
		s.st.DistanceMeters = nil
	}
	s.st.Version++
	s.mu.Unlock()
	s.notify()
	return err
}

// Close cancels pending work and drops all listeners.
func (s *Session) Close() {
	s.debouncer.Stop()
	s.cancel()
	s.mu.Lock()
	s.closed = true
	if s.stopSearch != nil {
		s.stopSearch()
		s.stopSearch = nil
	}
	s.listeners = map[int]func(View){}
	s.mu.Unlock()
}

func (s *Session) editSearch(text string) (uint64, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return 0, false
	}
	s.bumpSearch()
	s.st.SearchText = text
	s.st.Details = nil
	s.st.DistanceMeters = nil
	s.st.DetailsError = ""
	s.st.CoordError = false
	s.st.CoordErrorReason = ""
	s.placeGen++
	// results always describe SearchText; a new text has none until searched
	s.st.Results = nil
	s.st.SearchError = ""
	s.st.Loading = strings.TrimSpace(text) != ""
	s.st.Version++
	return s.searchGen, true
}

func (s *Session) runSearch(ctx context.Context, gen uint64, text string) {
	s.mu.Lock()
	if gen != s.searchGen || s.closed {
		s.mu.Unlock()
		return
	}
	ctx, cancel := context.WithCancel(ctx)
	defer cancel()
	s.stopSearch = cancel
	s.st.Loading = true
	s.st.Results = nil
	s.st.SearchError = ""
	s.st.Version++
	s.mu.Unlock()
	s.notify()

	results, err := s.lookup.Search(ctx, text)

	s.mu.Lock()
	if gen != s.searchGen || s.closed {
		s.mu.Unlock()
		return
	}
	s.stopSearch = nil
	s.st.Loading = false
	if err != nil {
		s.logger.WarnContext(ctx, "search failed", slog.String("query", text), slog.Any("error", err))
		s.st.SearchError = err.Error()
	} else {
		if results == nil {
			results = []domain.SearchResult{}
		}
		s.st.Results = results
	}
	s.st.Version++
	s.mu.Unlock()
	s.notify()
}

// clearSearch empties the search box and drops its results. mu must be held.
func (s *Session) clearSearch() {
	s.bumpSearch()
	s.st.SearchText = ""
	s.st.Results = nil
	s.st.Loading = false
	s.st.SearchError = ""
}

// bumpSearch supersedes the current search. mu must be held.
func (s *Session) bumpSearch() {
	s.searchGen++
	if s.stopSearch != nil {
		s.stopSearch()
		s.stopSearch = nil
	}
}

func (s *Session) update(fn func(*View)) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return false
	}
	fn(&s.st)
	s.st.Version++
	return true
}

// snapshot must be called with mu held. The debouncer never calls back into
// the session while holding its own lock, so taking it here is safe.
func (s *Session) snapshot() View {
	v := s.st
	if v.Results != nil {
		v.Results = append(make([]domain.SearchResult, 0, len(v.Results)), v.Results...)
	}
	v.SearchPending = s.debouncer.Pending()
	v.ShowResults = strings.TrimSpace(v.SearchText) != "" && v.Details == nil
	v.NoResults = v.ShowResults && !v.Loading && v.SearchError == "" && v.Results != nil && len(v.Results) == 0
	return v
}

func (s *Session) notify() {
	s.mu.Lock()
	v := s.snapshot()
	fns := make([]func(View), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(v)
	}
}
