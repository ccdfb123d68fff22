package http

import (
	"errors"
	"strconv"

	"github.com/gofiber/fiber/v2"

	"github.com/samirrijal/citysearch/internal/core/domain"
)

const maxSearchPage = 50

// SearchCitiesHandler returns places whose city name matches q.
func SearchCitiesHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		results, err := deps.Lookup.Search(c.UserContext(), c.Query("q"))
		if err != nil {
			return errLookup(c, err)
		}

		offset, limit := pageParams(c, maxSearchPage)
		start, end := paginate(len(results), offset, limit)

		pg := Pagination{Offset: offset, Limit: limit, Total: len(results)}
		SetLinkHeaders(c, pg)
		return c.JSON(PaginatedResponse{Data: results[start:end], Pagination: pg})
	}
}

// ReverseHandler returns the place at lat/lon without its details.
func ReverseHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		coords, err := deps.Lookup.ParseCoordinates(c.Query("lat"), c.Query("lon"))
		if err != nil {
			return errLookup(c, err)
		}

		place, err := deps.Lookup.Reverse(c.UserContext(), coords)
		if err != nil {
			return errLookup(c, err)
		}
		return c.JSON(place)
	}
}

// CoordinateLookupHandler runs the full coordinate path: reverse geocode,
// then fetch details of the hit.
func CoordinateLookupHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		out, ok, err := deps.Lookup.DetailsAt(c.UserContext(), c.Query("lat"), c.Query("lon"))
		if err != nil {
			return errLookup(c, err)
		}
		if !ok {
			return errBadRequest(c, "lat and lon are required")
		}
		return c.JSON(out)
	}
}

// PlaceDetailsHandler returns the details of one OSM object. osm_type takes
// the long or single-letter form.
func PlaceDetailsHandler(deps *Dependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ref, err := parseRef(c.Params("osm_type"), c.Params("osm_id"))
		if err != nil {
			return errBadRequest(c, err.Error())
		}

		details, err := deps.Lookup.Details(c.UserContext(), ref)
		if err != nil {
			return errLookup(c, err)
		}
		return c.JSON(details)
	}
}

func parseRef(osmType, osmID string) (domain.OSMRef, error) {
	t, err := domain.ParseOSMType(osmType)
	if err != nil {
		return domain.OSMRef{}, err
	}
	id, err := strconv.ParseInt(osmID, 10, 64)
	if err != nil || id <= 0 {
		return domain.OSMRef{}, errors.New("osm_id must be a positive integer")
	}
	return domain.OSMRef{Type: t, ID: id}, nil
}
