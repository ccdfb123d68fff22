package nominatim

import (
	"bytes"
	"encoding/json"
	"strconv"
)

// searchItem mirrors the fields of a search.php jsonv2 hit that we use.
type searchItem struct {
	OSMType     string  `json:"osm_type"`
	OSMID       flexInt `json:"osm_id"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
}

// reverseResponse mirrors the reverse endpoint payload. Misses carry only
// an "error" string.
type reverseResponse struct {
	Error       string  `json:"error"`
	OSMType     string  `json:"osm_type"`
	OSMID       flexInt `json:"osm_id"`
	DisplayName string  `json:"display_name"`
	Lat         string  `json:"lat"`
	Lon         string  `json:"lon"`
}

// detailsResponse mirrors the details endpoint payload.
type detailsResponse struct {
	Error       json.RawMessage   `json:"error"`
	OSMType     string            `json:"osm_type"`
	OSMID       flexInt           `json:"osm_id"`
	LocalName   string            `json:"localname"`
	DisplayName string            `json:"display_name"`
	Names       map[string]string `json:"names"`
	CountryCode string            `json:"country_code"`
	AddressTags map[string]string `json:"addresstags"`
	AdminLevel  flexInt           `json:"admin_level"`
	Type        string            `json:"type"`
	Category    string            `json:"category"`
	Importance  *float64          `json:"importance"`
	Centroid    *struct {
		Type        string    `json:"type"`
		Coordinates []float64 `json:"coordinates"` // [lon, lat]
	} `json:"centroid"`
	ExtraTags map[string]string `json:"extratags"`
}

// flexInt decodes integers that the service sometimes sends as strings.
type flexInt int64

func (f *flexInt) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if len(b) == 0 || bytes.Equal(b, []byte("null")) {
		*f = 0
		return nil
	}
	if b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return err
		}
		if s == "" {
			*f = 0
			return nil
		}
		n, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			return err
		}
		*f = flexInt(n)
		return nil
	}
	var n int64
	if err := json.Unmarshal(b, &n); err != nil {
		return err
	}
	*f = flexInt(n)
	return nil
}
