package http

import (
	"strconv"

	"github.com/gofiber/fiber/v2"
	"github.com/graphql-go/graphql"

	"github.com/samirrijal/citysearch/internal/core/domain"
	"github.com/samirrijal/citysearch/internal/core/usecases"
)

// placeField resolves a computed PlaceDetails attribute.
func placeField(fn func(*domain.PlaceDetails) string) *graphql.Field {
	return &graphql.Field{
		Type: graphql.String,
		Resolve: func(p graphql.ResolveParams) (interface{}, error) {
			d, ok := p.Source.(*domain.PlaceDetails)
			if !ok || d == nil {
				return nil, nil
			}
			if v := fn(d); v != "" {
				return v, nil
			}
			return nil, nil
		},
	}
}

// buildSchema creates the GraphQL schema wired to the lookup service.
func buildSchema(deps *Dependencies) (graphql.Schema, error) {
	geoPointType := graphql.NewObject(graphql.ObjectConfig{
		Name: "GeoPoint",
		Fields: graphql.Fields{
			"lat": &graphql.Field{Type: graphql.Float},
			"lon": &graphql.Field{Type: graphql.Float},
		},
	})

	osmRefType := graphql.NewObject(graphql.ObjectConfig{
		Name: "OSMRef",
		Fields: graphql.Fields{
			"osm_type": &graphql.Field{Type: graphql.String},
			"osm_id":   &graphql.Field{Type: graphql.String},
		},
	})

	searchResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "SearchResult",
		Fields: graphql.Fields{
			"osm":          &graphql.Field{Type: osmRefType},
			"display_name": &graphql.Field{Type: graphql.String},
			"lat":          &graphql.Field{Type: graphql.Float},
			"lon":          &graphql.Field{Type: graphql.Float},
		},
	})

	reverseResultType := graphql.NewObject(graphql.ObjectConfig{
		Name: "ReverseResult",
		Fields: graphql.Fields{
			"osm":          &graphql.Field{Type: osmRefType},
			"display_name": &graphql.Field{Type: graphql.String},
			"lat":          &graphql.Field{Type: graphql.Float},
			"lon":          &graphql.Field{Type: graphql.Float},
		},
	})

	placeType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Place",
		Fields: graphql.Fields{
			"osm":          &graphql.Field{Type: osmRefType},
			"title":        placeField((*domain.PlaceDetails).Title),
			"local_name":   &graphql.Field{Type: graphql.String},
			"display_name": &graphql.Field{Type: graphql.String},
			"country_code": placeField((*domain.PlaceDetails).CountryCodeUpper),
			"state":        placeField((*domain.PlaceDetails).State),
			"country":      placeField((*domain.PlaceDetails).Country),
			"admin_level":  &graphql.Field{Type: graphql.Int},
			"type":         &graphql.Field{Type: graphql.String},
			"category":     &graphql.Field{Type: graphql.String},
			"importance":   &graphql.Field{Type: graphql.Float},
			"centroid":     &graphql.Field{Type: geoPointType},
			"population":   placeField((*domain.PlaceDetails).Population),
			"website":      placeField((*domain.PlaceDetails).Website),
			"wikidata":     placeField((*domain.PlaceDetails).Wikidata),
			"wikipedia":    placeField((*domain.PlaceDetails).Wikipedia),
		},
	})

	coordinateLookupType := graphql.NewObject(graphql.ObjectConfig{
		Name: "CoordinateLookup",
		Fields: graphql.Fields{
			"coordinates": &graphql.Field{Type: geoPointType},
			"place":       &graphql.Field{Type: reverseResultType},
			"details":     &graphql.Field{Type: placeType},
			"distance_m": &graphql.Field{
				Type: graphql.Float,
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					if out, ok := p.Source.(*usecases.CoordinateLookup); ok && out.DistanceMeters != nil {
						return *out.DistanceMeters, nil
					}
					return nil, nil
				},
			},
		},
	})

	queryType := graphql.NewObject(graphql.ObjectConfig{
		Name: "Query",
		Fields: graphql.Fields{
			"searchCities": &graphql.Field{
				Type:        graphql.NewList(searchResultType),
				Description: "Search places by city name",
				Args: graphql.FieldConfigArgument{
					"query": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					return deps.Lookup.Search(p.Context, p.Args["query"].(string))
				},
			},
			"place": &graphql.Field{
				Type:        placeType,
				Description: "Details of one OpenStreetMap object",
				Args: graphql.FieldConfigArgument{
					"osmType": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
					"osmId":   &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.String)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					ref, err := parseRef(p.Args["osmType"].(string), p.Args["osmId"].(string))
					if err != nil {
						return nil, err
					}
					return deps.Lookup.Details(p.Context, ref)
				},
			},
			"placeAt": &graphql.Field{
				Type:        coordinateLookupType,
				Description: "Reverse geocode a coordinate and fetch the place details",
				Args: graphql.FieldConfigArgument{
					"lat": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
					"lon": &graphql.ArgumentConfig{Type: graphql.NewNonNull(graphql.Float)},
				},
				Resolve: func(p graphql.ResolveParams) (interface{}, error) {
					lat := strconv.FormatFloat(p.Args["lat"].(float64), 'f', -1, 64)
					lon := strconv.FormatFloat(p.Args["lon"].(float64), 'f', -1, 64)
					out, _, err := deps.Lookup.DetailsAt(p.Context, lat, lon)
					if err != nil {
						return nil, err
					}
					return out, nil
				},
			},
		},
	})

	return graphql.NewSchema(graphql.SchemaConfig{
		Query: queryType,
	})
}

// GraphQLHandler serves the GraphQL endpoint.
func GraphQLHandler(deps *Dependencies) fiber.Handler {
	schema, err := buildSchema(deps)
	if err != nil {
		// This would be a programming error in the schema definition
		panic("graphql schema build: " + err.Error())
	}

	type gqlRequest struct {
		Query         string                 `json:"query"`
		OperationName string                 `json:"operationName"`
		Variables     map[string]interface{} `json:"variables"`
	}

	return func(c *fiber.Ctx) error {
		var req gqlRequest
		if err := c.BodyParser(&req); err != nil {
			return errBadRequest(c, "invalid request body")
		}

		result := graphql.Do(graphql.Params{
			Schema:         schema,
			RequestString:  req.Query,
			VariableValues: req.Variables,
			OperationName:  req.OperationName,
			Context:        c.UserContext(),
		})

		return c.JSON(result)
	}
}
