package usecases_test

import (
	"errors"
	"math"
	"testing"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/usecases"
)

func TestCoordinateValidator_Parse(t *testing.T) {
	cv := usecases.NewCoordinateValidator()

	tests := []struct {
		name     string
		lat, lon string
		want     domain.Coordinates
		wantErr  bool
	}{
		{"hanoi", "21.0285", "105.8542", domain.Coordinates{Lat: 21.0285, Lon: 105.8542}, false},
		{"whitespace", "  48.8566 ", " 2.3522", domain.Coordinates{Lat: 48.8566, Lon: 2.3522}, false},
		{"negative", "-33.8688", "-70.6693", domain.Coordinates{Lat: -33.8688, Lon: -70.6693}, false},
		{"bounds", "90", "-180", domain.Coordinates{Lat: 90, Lon: -180}, false},
		{"leading dot", ".5", "105.8", domain.Coordinates{Lat: 0.5, Lon: 105.8}, false},
		{"leading zero", "05", "105.8", domain.Coordinates{Lat: 5, Lon: 105.8}, false},
		{"trailing dot", "21.", "105.", domain.Coordinates{Lat: 21, Lon: 105}, false},
		{"exponent", "2.1e1", "1.05e2", domain.Coordinates{Lat: 21, Lon: 105}, false},
		{"zero", "0", "-0", domain.Coordinates{Lat: 0, Lon: 0}, false},
		{"lat out of range", "91", "10", domain.Coordinates{}, true},
		{"lon out of range", "10", "180.5", domain.Coordinates{}, true},
		{"not a number", "abc", "10", domain.Coordinates{}, true},
		{"nan", "NaN", "10", domain.Coordinates{}, true},
		{"lon nan", "10", "nan", domain.Coordinates{}, true},
		{"infinity", "Inf", "10", domain.Coordinates{}, true},
		{"exponent out of range", "1e3", "10", domain.Coordinates{}, true},
		{"trailing garbage", "21.5x", "10", domain.Coordinates{}, true},
		{"missing lon", "10", "", domain.Coordinates{}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := cv.Parse(tt.lat, tt.lon)
			if tt.wantErr {
				if !errors.Is(err, domain.ErrInvalidCoordinates) {
					t.Fatalf("expected ErrInvalidCoordinates, got %v", err)
				}
				return
			}
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != tt.want {
				t.Errorf("got %+v, want %+v", got, tt.want)
			}
		})
	}
}

func TestCoordinateValidator_ParseMessage(t *testing.T) {
	cv := usecases.NewCoordinateValidator()

	_, err := cv.Parse("95", "0")
	if err == nil || err.Error() != "invalid coordinates: latitude must be a number between -90 and 90" {
		t.Errorf("unexpected message: %v", err)
	}

	_, err = cv.Parse("abc", "0")
	if err == nil || err.Error() != "invalid coordinates: latitude must be a number between -90 and 90" {
		t.Errorf("unexpected message: %v", err)
	}

	_, err = cv.Parse("0", "-181")
	if err == nil || err.Error() != "invalid coordinates: longitude must be a number between -180 and 180" {
		t.Errorf("unexpected message: %v", err)
	}

	_, err = cv.Parse("0", " ")
	if err == nil || err.Error() != "invalid coordinates: longitude is required" {
		t.Errorf("unexpected message: %v", err)
	}
}

func TestCoordinateValidator_Check(t *testing.T) {
	cv := usecases.NewCoordinateValidator()

	if err := cv.Check(domain.Coordinates{Lat: 0, Lon: 0}); err != nil {
		t.Errorf("expected origin to be valid, got %v", err)
	}
	if err := cv.Check(domain.Coordinates{Lat: -120, Lon: 0}); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates, got %v", err)
	}
	if err := cv.Check(domain.Coordinates{Lat: 0, Lon: math.NaN()}); !errors.Is(err, domain.ErrInvalidCoordinates) {
		t.Errorf("expected ErrInvalidCoordinates for NaN, got %v", err)
	}
}
