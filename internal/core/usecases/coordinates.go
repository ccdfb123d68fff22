package usecases

import (
	"errors"
	"fmt"
	"math"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/samirrijal/citysearch/internal/core/domain"
)

// min/max fail on ±Inf but not on NaN, which Check rejects separately.
type coordinateInput struct {
	Lat float64 `validate:"min=-90,max=90"`
	Lon float64 `validate:"min=-180,max=180"`
}

// CoordinateValidator turns user-entered latitude/longitude text into
// coordinates, rejecting non-numeric and out-of-range values.
type CoordinateValidator struct {
	v *validator.Validate
}

// NewCoordinateValidator creates a CoordinateValidator.
func NewCoordinateValidator() *CoordinateValidator {
	return &CoordinateValidator{v: validator.New()}
}

// Parse validates lat and lon and returns the parsed coordinates. Any form
// strconv.ParseFloat accepts is a number (".5", "05", "21.", "2.1e1").
// Errors wrap domain.ErrInvalidCoordinates.
func (cv *CoordinateValidator) Parse(lat, lon string) (domain.Coordinates, error) {
	latF, err := parseAxis("Lat", lat)
	if err != nil {
		return domain.Coordinates{}, err
	}
	lonF, err := parseAxis("Lon", lon)
	if err != nil {
		return domain.Coordinates{}, err
	}

	c := domain.Coordinates{Lat: latF, Lon: lonF}
	if err := cv.Check(c); err != nil {
		return domain.Coordinates{}, err
	}
	return c, nil
}

// Check validates already-parsed coordinates.
func (cv *CoordinateValidator) Check(c domain.Coordinates) error {
	if math.IsNaN(c.Lat) {
		return invalidAxis("Lat")
	}
	if math.IsNaN(c.Lon) {
		return invalidAxis("Lon")
	}

	err := cv.v.Struct(coordinateInput{Lat: c.Lat, Lon: c.Lon})
	if err == nil {
		return nil
	}
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		return invalidAxis(verrs[0].Field())
	}
	return fmt.Errorf("%w: %v", domain.ErrInvalidCoordinates, err)
}

func parseAxis(field, raw string) (float64, error) {
	s := strings.TrimSpace(raw)
	if s == "" {
		name, _ := axis(field)
		return 0, fmt.Errorf("%w: %s is required", domain.ErrInvalidCoordinates, name)
	}
	f, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, invalidAxis(field)
	}
	return f, nil
}

func invalidAxis(field string) error {
	name, bound := axis(field)
	return fmt.Errorf("%w: %s must be a number between -%s and %s", domain.ErrInvalidCoordinates, name, bound, bound)
}

func axis(field string) (name, bound string) {
	if field == "Lon" {
		return "longitude", "180"
	}
	return "latitude", "90"
}
