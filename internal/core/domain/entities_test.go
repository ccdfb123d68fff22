package domain_test

import (
	"testing"

	"github.com/samirrijal/citysearch/internal/core/domain"
)

func TestParseOSMType(t *testing.T) {
	tests := []struct {
		in   string
		want domain.OSMType
		err  bool
	}{
		{"node", domain.OSMNode, false},
		{"N", domain.OSMNode, false},
		{" way ", domain.OSMWay, false},
		{"r", domain.OSMRelation, false},
		{"RELATION", domain.OSMRelation, false},
		{"x", "", true},
		{"", "", true},
	}

	for _, tt := range tests {
		got, err := domain.ParseOSMType(tt.in)
		if tt.err {
			if err == nil {
				t.Errorf("ParseOSMType(%q): expected error", tt.in)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseOSMType(%q): unexpected error: %v", tt.in, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseOSMType(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestOSMType_Letter(t *testing.T) {
	if got := domain.OSMRelation.Letter(); got != "R" {
		t.Errorf("expected R, got %s", got)
	}
	if got := domain.OSMType("").Letter(); got != "" {
		t.Errorf("expected empty letter, got %q", got)
	}
}

func TestOSMRef(t *testing.T) {
	ref := domain.OSMRef{Type: domain.OSMWay, ID: 42}
	if !ref.Valid() {
		t.Fatal("expected ref to be valid")
	}
	if ref.String() != "W42" {
		t.Errorf("expected W42, got %s", ref.String())
	}
	if (domain.OSMRef{Type: domain.OSMWay}).Valid() {
		t.Error("ref without id must be invalid")
	}
}

func TestPlaceDetails_Title(t *testing.T) {
	p := &domain.PlaceDetails{DisplayName: "Hà Nội, Việt Nam"}
	if p.Title() != "Hà Nội, Việt Nam" {
		t.Errorf("expected display name fallback, got %s", p.Title())
	}
	p.LocalName = "Hà Nội"
	if p.Title() != "Hà Nội" {
		t.Errorf("expected local name, got %s", p.Title())
	}
}

func TestPlaceDetails_Tags(t *testing.T) {
	p := &domain.PlaceDetails{
		CountryCode: "vn",
		AddressTags: map[string]string{"state": "Hà Nội", "country": "Việt Nam"},
		ExtraTags:   map[string]string{"population": "8053663", "wikidata": "Q1858"},
	}
	if p.CountryCodeUpper() != "VN" {
		t.Errorf("expected VN, got %s", p.CountryCodeUpper())
	}
	if p.State() != "Hà Nội" || p.Country() != "Việt Nam" {
		t.Errorf("unexpected address tags: %s / %s", p.State(), p.Country())
	}
	if p.Population() != "8053663" || p.Wikidata() != "Q1858" {
		t.Errorf("unexpected extra tags: %s / %s", p.Population(), p.Wikidata())
	}
	if p.Website() != "" || p.Wikipedia() != "" {
		t.Error("missing tags must be empty")
	}
}
