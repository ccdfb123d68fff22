package domain

import (
	"fmt"
	"strings"
	"time"
)

// OSMType is the kind of OpenStreetMap object a place is built from.
type OSMType string

const (
	OSMNode     OSMType = "node"
	OSMWay      OSMType = "way"
	OSMRelation OSMType = "relation"
)

// ParseOSMType accepts the long form ("node") or the single letter form ("N"),
// case-insensitively.
func ParseOSMType(s string) (OSMType, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "n", "node":
		return OSMNode, nil
	case "w", "way":
		return OSMWay, nil
	case "r", "relation":
		return OSMRelation, nil
	}
	return "", fmt.Errorf("unknown osm type %q", s)
}

// Letter returns the upper-case single letter used by the details endpoint.
func (t OSMType) Letter() string {
	if t == "" {
		return ""
	}
	return strings.ToUpper(string(t)[:1])
}

// OSMRef identifies an object in the OpenStreetMap database.
type OSMRef struct {
	Type OSMType `json:"osm_type"`
	ID   int64   `json:"osm_id"`
}

// Valid reports whether both parts of the reference are set.
func (r OSMRef) Valid() bool {
	return r.Type != "" && r.ID > 0
}

func (r OSMRef) String() string {
	return fmt.Sprintf("%s%d", r.Type.Letter(), r.ID)
}

// SearchResult is one candidate place returned by a name search.
type SearchResult struct {
	OSM         OSMRef  `json:"osm"`
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// ReverseResult is the place found at a coordinate.
type ReverseResult struct {
	OSM         OSMRef  `json:"osm"`
	DisplayName string  `json:"display_name"`
	Lat         float64 `json:"lat"`
	Lon         float64 `json:"lon"`
}

// PlaceDetails holds the enriched attributes of a single place.
type PlaceDetails struct {
	OSM         OSMRef            `json:"osm"`
	LocalName   string            `json:"local_name,omitempty"`
	DisplayName string            `json:"display_name,omitempty"`
	CountryCode string            `json:"country_code,omitempty"`
	AddressTags map[string]string `json:"address_tags,omitempty"`
	AdminLevel  int               `json:"admin_level,omitempty"`
	Type        string            `json:"type,omitempty"`
	Category    string            `json:"category,omitempty"`
	Importance  float64           `json:"importance,omitempty"`
	Centroid    *GeoPoint         `json:"centroid,omitempty"`
	ExtraTags   map[string]string `json:"extra_tags,omitempty"`
}

// Title is the heading shown for a place: the local name, falling back to the
// display name.
func (p *PlaceDetails) Title() string {
	if p.LocalName != "" {
		return p.LocalName
	}
	return p.DisplayName
}

// CountryCodeUpper returns the ISO country code in upper case.
func (p *PlaceDetails) CountryCodeUpper() string {
	return strings.ToUpper(p.CountryCode)
}

func (p *PlaceDetails) State() string   { return p.AddressTags["state"] }
func (p *PlaceDetails) Country() string { return p.AddressTags["country"] }

func (p *PlaceDetails) Population() string { return p.ExtraTags["population"] }
func (p *PlaceDetails) Website() string    { return p.ExtraTags["website"] }
func (p *PlaceDetails) Wikidata() string   { return p.ExtraTags["wikidata"] }
func (p *PlaceDetails) Wikipedia() string  { return p.ExtraTags["wikipedia"] }

// LookupKind names the operation a LookupEvent records.
type LookupKind string

const (
	LookupSearch  LookupKind = "search"
	LookupReverse LookupKind = "reverse"
	LookupDetails LookupKind = "details"
)

// LookupEvent is emitted after each geocoding lookup.
type LookupEvent struct {
	Time    time.Time  `json:"time"`
	Kind    LookupKind `json:"kind"`
	Query   string     `json:"query,omitempty"`
	OSM     *OSMRef    `json:"osm,omitempty"`
	Point   *GeoPoint  `json:"point,omitempty"`
	Results int        `json:"results"`
	Title   string     `json:"title,omitempty"`
}
