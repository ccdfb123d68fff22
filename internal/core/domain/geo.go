package domain

// GeoPoint represents a geographic coordinate (WGS 84).
type GeoPoint struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Coordinates is a validated latitude/longitude pair entered by a user.
type Coordinates struct {
	Lat float64 `json:"lat"`
	Lon float64 `json:"lon"`
}

// Point converts the coordinates to a GeoPoint.
func (c Coordinates) Point() GeoPoint {
	return GeoPoint{Lat: c.Lat, Lon: c.Lon}
}
