package geospatial

import (
	"fmt"
	"strings"
)

// knownAuthorities are the CRS registries accepted in authority:code ids.
var knownAuthorities = map[string]bool{
	"epsg": true,
	"esri": true,
	"ogc":  true,
	"iau":  true,
}

// CRSRef is a parsed authority:code pair, e.g. epsg:4326.
type CRSRef struct {
	Authority string
	Code      string
}

func (c CRSRef) String() string {
	return c.Authority + ":" + c.Code
}

// ParseCRSAuthority validates an authority:code string against the set of
// recognized registries. Codes must be non-empty and alphanumeric.
func ParseCRSAuthority(s string) (CRSRef, error) {
	s = strings.TrimSpace(strings.ToLower(s))
	i := strings.IndexByte(s, ':')
	if i <= 0 || i == len(s)-1 {
		return CRSRef{}, fmt.Errorf("crs id %q is not authority:code form", s)
	}

	ref := CRSRef{Authority: s[:i], Code: s[i+1:]}
	if !knownAuthorities[ref.Authority] {
		return CRSRef{}, fmt.Errorf("unknown crs authority %q", ref.Authority)
	}
	for _, r := range ref.Code {
		if (r < '0' || r > '9') && (r < 'a' || r > 'z') {
			return CRSRef{}, fmt.Errorf("crs code %q contains invalid character %q", ref.Code, r)
		}
	}
	return ref, nil
}
