package session_test

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/session"
	"github.com/samirrijal/citysearch/internal/core/usecases"
)

// --- Mock Lookup ---

type mockLookup struct {
	searchFn    func(ctx context.Context, text string) ([]domain.SearchResult, error)
	detailsFn   func(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error)
	detailsAtFn func(ctx context.Context, lat, lon string) (*usecases.CoordinateLookup, bool, error)

	mu       sync.Mutex
	searches []string
}

func (m *mockLookup) Search(ctx context.Context, text string) ([]domain.SearchResult, error) {
	m.mu.Lock()
	m.searches = append(m.searches, text)
	m.mu.Unlock()
	if m.searchFn != nil {
		return m.searchFn(ctx, text)
	}
	return nil, nil
}

func (m *mockLookup) Details(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) {
	if m.detailsFn != nil {
		return m.detailsFn(ctx, ref)
	}
	return nil, domain.ErrNotFound
}

func (m *mockLookup) DetailsAt(ctx context.Context, lat, lon string) (*usecases.CoordinateLookup, bool, error) {
	if m.detailsAtFn != nil {
		return m.detailsAtFn(ctx, lat, lon)
	}
	return nil, true, domain.ErrNotFound
}

func (m *mockLookup) searched() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.searches...)
}

var (
	hanoiRef = domain.OSMRef{Type: domain.OSMRelation, ID: 1903516}
	hanoi    = &domain.PlaceDetails{OSM: hanoiRef, LocalName: "Hà Nội", CountryCode: "vn"}
)

func cityResults(ctx context.Context, text string) ([]domain.SearchResult, error) {
	return []domain.SearchResult{
		{OSM: hanoiRef, DisplayName: "Hà Nội, Việt Nam", Lat: 21.0283, Lon: 105.854},
	}, nil
}

// --- Tests ---

func TestSession_SearchNow(t *testing.T) {
	lk := &mockLookup{searchFn: cityResults}
	s := session.New(lk, session.Options{})
	defer s.Close()

	s.SearchNow(context.Background(), "Hanoi")

	v := s.View()
	assert.Equal(t, "Hanoi", v.SearchText)
	assert.False(t, v.Loading)
	require.Len(t, v.Results, 1)
	assert.True(t, v.ShowResults)
	assert.False(t, v.NoResults)
	assert.NotEmpty(t, v.ID)
}

func TestSession_SearchNow_Empty(t *testing.T) {
	lk := &mockLookup{searchFn: func(ctx context.Context, text string) ([]domain.SearchResult, error) {
		return nil, nil
	}}
	s := session.New(lk, session.Options{})
	defer s.Close()

	s.SearchNow(context.Background(), "Atlantis")

	v := s.View()
	assert.True(t, v.NoResults)
	assert.Empty(t, v.Results)
}

func TestSession_SetSearchText_Debounced(t *testing.T) {
	lk := &mockLookup{searchFn: cityResults}
	s := session.New(lk, session.Options{Debounce: 20 * time.Millisecond})
	defer s.Close()

	done := make(chan struct{})
	var once sync.Once
	s.OnChange(func(v session.View) {
		if len(v.Results) > 0 {
			once.Do(func() { close(done) })
		}
	})

	s.SetSearchText("H")
	s.SetSearchText("Ha")
	s.SetSearchText("Hanoi")

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("search did not complete")
	}
	assert.Equal(t, []string{"Hanoi"}, lk.searched())
}

func TestSession_Flush(t *testing.T) {
	lk := &mockLookup{searchFn: cityResults}
	s := session.New(lk, session.Options{Debounce: time.Hour})
	defer s.Close()

	s.SetSearchText("Hanoi")
	assert.Empty(t, lk.searched())

	require.True(t, s.Flush())
	assert.Equal(t, []string{"Hanoi"}, lk.searched())
	assert.Len(t, s.View().Results, 1)
}

func TestSession_SetSearchText_ClearsDetailsAndCoordError(t *testing.T) {
	lk := &mockLookup{
		searchFn:  cityResults,
		detailsFn: func(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) { return hanoi, nil },
	}
	s := session.New(lk, session.Options{Debounce: time.Hour})
	defer s.Close()

	s.SetLatitude("1")
	s.SetLongitude("1")
	_ = s.SubmitCoordinates(context.Background())
	require.True(t, s.View().CoordError)

	require.NoError(t, s.SelectRef(context.Background(), hanoiRef))
	require.NotNil(t, s.View().Details)

	s.SetSearchText("Da")
	v := s.View()
	assert.Nil(t, v.Details)
	assert.False(t, v.CoordError)
	assert.True(t, v.ShowResults)
}

func TestSession_SetSearchText_EmptyClearsResults(t *testing.T) {
	lk := &mockLookup{searchFn: cityResults}
	s := session.New(lk, session.Options{Debounce: time.Hour})
	defer s.Close()

	s.SearchNow(context.Background(), "Hanoi")
	require.Len(t, s.View().Results, 1)

	s.SetSearchText("")
	v := s.View()
	assert.Nil(t, v.Results)
	assert.False(t, v.ShowResults)
	assert.False(t, s.Flush())
}

func TestSession_SetSearchText_DropsPreviousResults(t *testing.T) {
	lk := &mockLookup{searchFn: func(ctx context.Context, text string) ([]domain.SearchResult, error) {
		if text == "zzz" {
			return nil, nil
		}
		return cityResults(ctx, text)
	}}
	s := session.New(lk, session.Options{Debounce: time.Hour})
	defer s.Close()

	s.SearchNow(context.Background(), "zzz")
	require.True(t, s.View().NoResults)

	s.SetSearchText("Hanoi")
	v := s.View()
	assert.Equal(t, "Hanoi", v.SearchText)
	assert.Nil(t, v.Results)
	assert.True(t, v.Loading)
	assert.True(t, v.SearchPending)
	assert.True(t, v.ShowResults)
	assert.False(t, v.NoResults)

	require.True(t, s.Flush())
	v = s.View()
	assert.False(t, v.Loading)
	assert.False(t, v.SearchPending)
	require.Len(t, v.Results, 1)

	s.SetSearchText("Hanoi, VN")
	v = s.View()
	assert.Nil(t, v.Results, "results of the previous text must not be shown")
	assert.True(t, v.Loading)
}

func TestSession_SetSearchText_WhitespaceOnly(t *testing.T) {
	lk := &mockLookup{searchFn: cityResults}
	s := session.New(lk, session.Options{Debounce: time.Hour})
	defer s.Close()

	s.SearchNow(context.Background(), "Hanoi")
	s.SetSearchText("   ")

	v := s.View()
	assert.Equal(t, "   ", v.SearchText)
	assert.False(t, v.ShowResults)
	assert.False(t, v.Loading)
	assert.False(t, v.SearchPending)
	assert.False(t, v.NoResults)
	assert.False(t, s.Flush())
	assert.Equal(t, []string{"Hanoi"}, lk.searched())
}

func TestSession_StaleSearchDropped(t *testing.T) {
	release := make(chan struct{})
	lk := &mockLookup{searchFn: func(ctx context.Context, text string) ([]domain.SearchResult, error) {
		if text == "slow" {
			<-release
			return []domain.SearchResult{{DisplayName: "stale"}}, nil
		}
		return []domain.SearchResult{{DisplayName: "fresh"}}, nil
	}}
	s := session.New(lk, session.Options{})
	defer s.Close()

	finished := make(chan struct{})
	go func() {
		s.SearchNow(context.Background(), "slow")
		close(finished)
	}()
	time.Sleep(20 * time.Millisecond)

	s.SearchNow(context.Background(), "fast")
	close(release)
	<-finished

	v := s.View()
	require.Len(t, v.Results, 1)
	assert.Equal(t, "fresh", v.Results[0].DisplayName)
	assert.Equal(t, "fast", v.SearchText)
}

func TestSession_Select(t *testing.T) {
	var gotRef domain.OSMRef
	lk := &mockLookup{
		searchFn: cityResults,
		detailsFn: func(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) {
			gotRef = ref
			return hanoi, nil
		},
	}
	s := session.New(lk, session.Options{})
	defer s.Close()

	s.SearchNow(context.Background(), "Hanoi")
	require.NoError(t, s.Select(context.Background(), 0))

	v := s.View()
	assert.Equal(t, hanoiRef, gotRef)
	assert.Equal(t, "", v.SearchText)
	assert.False(t, v.ShowResults)
	require.NotNil(t, v.Details)
	assert.Equal(t, "Hà Nội", v.Details.Title())
}

func TestSession_Select_OutOfRange(t *testing.T) {
	s := session.New(&mockLookup{}, session.Options{})
	defer s.Close()

	err := s.Select(context.Background(), 3)
	assert.ErrorIs(t, err, session.ErrNoSuchResult)
}

func TestSession_Select_FailureKeepsDetails(t *testing.T) {
	calls := 0
	lk := &mockLookup{detailsFn: func(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) {
		calls++
		if calls == 1 {
			return hanoi, nil
		}
		return nil, domain.ErrUpstream
	}}
	s := session.New(lk, session.Options{})
	defer s.Close()

	require.NoError(t, s.SelectRef(context.Background(), hanoiRef))
	err := s.SelectRef(context.Background(), domain.OSMRef{Type: domain.OSMNode, ID: 1})
	assert.ErrorIs(t, err, domain.ErrUpstream)

	v := s.View()
	assert.Equal(t, hanoi, v.Details)
	assert.NotEmpty(t, v.DetailsError)
}

func TestSession_SubmitCoordinates(t *testing.T) {
	dist := 30.0
	lk := &mockLookup{
		searchFn: cityResults,
		detailsAtFn: func(ctx context.Context, lat, lon string) (*usecases.CoordinateLookup, bool, error) {
			assert.Equal(t, "21.0285", lat)
			assert.Equal(t, "105.8542", lon)
			return &usecases.CoordinateLookup{Details: hanoi, DistanceMeters: &dist}, true, nil
		},
	}
	s := session.New(lk, session.Options{})
	defer s.Close()

	s.SearchNow(context.Background(), "Hanoi")
	s.SetLatitude("21.0285")
	s.SetLongitude("105.8542")
	require.NoError(t, s.SubmitCoordinates(context.Background()))

	v := s.View()
	assert.Equal(t, hanoi, v.Details)
	assert.Equal(t, "", v.SearchText)
	assert.False(t, v.CoordError)
	assert.Equal(t, &dist, v.DistanceMeters)
}

func TestSession_SubmitCoordinates_Blank(t *testing.T) {
	called := false
	lk := &mockLookup{detailsAtFn: func(ctx context.Context, lat, lon string) (*usecases.CoordinateLookup, bool, error) {
		called = true
		return nil, false, nil
	}}
	s := session.New(lk, session.Options{})
	defer s.Close()

	s.SetLatitude("21")
	require.NoError(t, s.SubmitCoordinates(context.Background()))
	assert.False(t, called)
	assert.False(t, s.View().CoordError)
}

func TestSession_SubmitCoordinates_Errors(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		keeps      bool
		wantReason string
	}{
		{"invalid", fmt.Errorf("%w: latitude is required", domain.ErrInvalidCoordinates), false, "latitude is required"},
		{"not found", domain.ErrNotFound, false, "no place found at these coordinates"},
		{"transport", domain.ErrUpstream, true, "lookup failed"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lk := &mockLookup{
				detailsFn: func(ctx context.Context, ref domain.OSMRef) (*domain.PlaceDetails, error) { return hanoi, nil },
				detailsAtFn: func(ctx context.Context, lat, lon string) (*usecases.CoordinateLookup, bool, error) {
					return nil, true, tt.err
				},
			}
			s := session.New(lk, session.Options{})
			defer s.Close()

			require.NoError(t, s.SelectRef(context.Background(), hanoiRef))
			s.SetLatitude("0")
			s.SetLongitude("0")
			err := s.SubmitCoordinates(context.Background())
			assert.ErrorIs(t, err, tt.err)

			v := s.View()
			assert.True(t, v.CoordError)
			if tt.wantReason != "" {
				assert.Equal(t, tt.wantReason, v.CoordErrorReason)
			}
			if tt.keeps {
				assert.Equal(t, hanoi, v.Details)
			} else {
				assert.Nil(t, v.Details)
			}
		})
	}
}

func TestSession_OnChange_Unsubscribe(t *testing.T) {
	s := session.New(&mockLookup{}, session.Options{})
	defer s.Close()

	var mu sync.Mutex
	var versions []uint64
	stop := s.OnChange(func(v session.View) {
		mu.Lock()
		versions = append(versions, v.Version)
		mu.Unlock()
	})

	s.SetLatitude("1")
	stop()
	s.SetLongitude("2")

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, versions, 1)
	assert.Equal(t, "1", s.View().Lat)
}

func TestSession_Close(t *testing.T) {
	lk := &mockLookup{searchFn: cityResults}
	s := session.New(lk, session.Options{Debounce: 10 * time.Millisecond})

	s.SetSearchText("Hanoi")
	s.Close()
	time.Sleep(30 * time.Millisecond)

	assert.Empty(t, lk.searched())
}
