package main

import (
	"fmt"
	"io"
	"strconv"

	"github.com/samirrijal/citysearch/internal/core/domain"
)

func printResults(w io.Writer, results []domain.SearchResult) {
	if len(results) == 0 {
		fmt.Fprintln(w, "Không tìm thấy kết quả!")
		return
	}
	for i, r := range results {
		fmt.Fprintf(w, "%2d. %s\n    Lat: %s, Lon: %s  [%s]\n", i+1, r.DisplayName,
			formatFloat(r.Lat), formatFloat(r.Lon), r.OSM)
	}
}

// printDetails writes the same fields, in the same order, as the details panel
// of the web page. Empty fields are skipped.
func printDetails(w io.Writer, d *domain.PlaceDetails) {
	fmt.Fprintln(w, d.Title())

	line := func(label, value string) {
		if value != "" {
			fmt.Fprintf(w, "%s: %s\n", label, value)
		}
	}
	line("State", d.State())
	line("Country", d.Country())
	line("Country Code", d.CountryCodeUpper())
	if d.AdminLevel != 0 {
		line("Admin Level", strconv.Itoa(d.AdminLevel))
	}
	line("Type", d.Type)
	line("Category", d.Category)
	if d.Importance != 0 {
		line("Importance", formatFloat(d.Importance))
	}
	if d.Centroid != nil {
		line("Latitude", formatFloat(d.Centroid.Lat))
		line("Longitude", formatFloat(d.Centroid.Lon))
	}
	line("Population", d.Population())
	line("Website", d.Website())
	line("Wikidata", d.Wikidata())
	line("Wikipedia", d.Wikipedia())
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'f', -1, 64)
}
