package geospatial_test

import (
	"testing"

	"github.com/geowerks/specklegeo/internal/pkg/geospatial"
)

func TestParseCRSAuthority(t *testing.T) {
	cases := []struct {
		in      string
		want    string
		wantErr bool
	}{
		{"epsg:4326", "epsg:4326", false},
		{"EPSG:25830", "epsg:25830", false},
		{" epsg:4326 ", "epsg:4326", false},
		{"esri:102100", "esri:102100", false},
		{"ogc:crs84", "ogc:crs84", false},
		{"iau:30100", "iau:30100", false},
		{"", "", true},
		{"epsg", "", true},
		{"epsg:", "", true},
		{":4326", "", true},
		{"wgs84:4326", "", true},
		{"epsg:43 26", "", true},
		{"epsg:4326;drop", "", true},
	}

	for _, c := range cases {
		ref, err := geospatial.ParseCRSAuthority(c.in)
		if c.wantErr {
			if err == nil {
				t.Errorf("%q: expected error, got %v", c.in, ref)
			}
			continue
		}
		if err != nil {
			t.Errorf("%q: unexpected error: %v", c.in, err)
			continue
		}
		if ref.String() != c.want {
			t.Errorf("%q: got %s, want %s", c.in, ref.String(), c.want)
		}
	}
}
