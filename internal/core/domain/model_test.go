package domain_test

import (
	"errors"
	"testing"

	"github.com/geowerks/specklegeo/internal/core/domain"
)

func TestParseModelURL(t *testing.T) {
	cases := []struct {
		name string
		in   string
		want domain.ModelRef
	}{
		{
			name: "https latest version",
			in:   "https://app.speckle.systems/projects/abc123/models/def456",
			want: domain.ModelRef{Host: "app.speckle.systems", UseTLS: true, ProjectID: "abc123", ModelID: "def456"},
		},
		{
			name: "pinned version",
			in:   "https://app.speckle.systems/projects/abc123/models/def456@v789",
			want: domain.ModelRef{Host: "app.speckle.systems", UseTLS: true, ProjectID: "abc123", ModelID: "def456", VersionID: "v789"},
		},
		{
			name: "http self-hosted with port",
			in:   "http://speckle.local:8000/projects/p/models/m",
			want: domain.ModelRef{Host: "speckle.local:8000", UseTLS: false, ProjectID: "p", ModelID: "m"},
		},
		{
			name: "surrounding whitespace",
			in:   "  https://app.speckle.systems/projects/abc/models/def  ",
			want: domain.ModelRef{Host: "app.speckle.systems", UseTLS: true, ProjectID: "abc", ModelID: "def"},
		},
	}

	for _, c := range cases {
		t.Run(c.name, func(t *testing.T) {
			got, err := domain.ParseModelURL(c.in)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if got != c.want {
				t.Errorf("got %+v, want %+v", got, c.want)
			}
		})
	}
}

func TestParseModelURL_Invalid(t *testing.T) {
	cases := []string{
		"",
		"   ",
		"not a url",
		"ftp://host/projects/p/models/m",
		"/projects/p/models/m",
		"https://host/streams/p/commits/c",
		"https://host/projects/p",
		"https://host/projects/p/models/",
		"https://host/projects//models/m",
		"https://host/projects/p/models/@v1",
		"https://host/projects/p/models/m@",
	}
	for _, in := range cases {
		if _, err := domain.ParseModelURL(in); !errors.Is(err, domain.ErrInvalidParameter) {
			t.Errorf("%q: expected ErrInvalidParameter, got %v", in, err)
		}
	}
}

func TestModelRef_String(t *testing.T) {
	ref, err := domain.ParseModelURL("https://app.speckle.systems/projects/abc/models/def@v1")
	if err != nil {
		t.Fatal(err)
	}
	if ref.BaseURL() != "https://app.speckle.systems" {
		t.Errorf("base url: got %s", ref.BaseURL())
	}
	want := "https://app.speckle.systems/projects/abc/models/def@v1"
	if ref.String() != want {
		t.Errorf("string: got %s, want %s", ref.String(), want)
	}
}
