package geospatial

import (
	"fmt"
	"math"
)

// metersPerDegree is the length of one degree of latitude (and of longitude at
// the equator) in meters.
const metersPerDegree = 111320.0

// Transform maps a model-local 3-component coordinate into the target CRS.
// It is built once per request, is stateless after construction, and is safe
// to apply concurrently.
type Transform struct {
	identity bool
	lat      float64 // anchor latitude, degrees
	lon      float64 // anchor longitude, degrees
	sinN     float64
	cosN     float64
	lonScale float64 // meters per degree of longitude at the anchor
	crsName  string
}

// IdentityTransform returns the transform used when the caller supplied an
// explicit target CRS: model coordinates are assumed already expressed in it.
func IdentityTransform(crs CRSRef) *Transform {
	return &Transform{identity: true, crsName: crs.String()}
}

// NewAnchorTransform builds the local-to-WGS84 transform for a model anchored
// at (lat, lon) with its +Y axis rotated northDegrees away from true north.
//
// The projection is an equirectangular tangent-plane approximation: rotated
// X/Y offsets are treated as meters east/north of the anchor and divided by
// the meters-per-degree scale at the anchor latitude. Relative error stays
// under ~0.5% for offsets within 10 km of the anchor at latitudes below ~80°;
// it is not a geodesic solution.
func NewAnchorTransform(lat, lon, northDegrees float64) *Transform {
	rad := northDegrees * math.Pi / 180
	return &Transform{
		lat:      lat,
		lon:      lon,
		sinN:     math.Sin(rad),
		cosN:     math.Cos(rad),
		lonScale: metersPerDegree * math.Cos(lat*math.Pi/180),
		crsName:  "epsg:4326",
	}
}

// CRSName reports the resolved target CRS as an authority:code string.
func (t *Transform) CRSName() string { return t.crsName }

// Apply maps one local coordinate. Z passes through unchanged. Out-of-range
// results (e.g. longitude wrap) are returned as computed; only non-finite
// arithmetic is reported as an error.
func (t *Transform) Apply(x, y, z float64) (float64, float64, float64, error) {
	if t.identity {
		return x, y, z, checkFinite(x, y, z)
	}

	// rotate the local frame so +Y aligns with true north
	east := x*t.cosN - y*t.sinN
	north := x*t.sinN + y*t.cosN

	lon := t.lon + east/t.lonScale
	lat := t.lat + north/metersPerDegree
	return lon, lat, z, checkFinite(lon, lat, z)
}

// Inverse maps a target-CRS coordinate back to the local frame. It is the
// exact inverse of Apply up to floating-point rounding.
func (t *Transform) Inverse(lon, lat, z float64) (float64, float64, float64, error) {
	if t.identity {
		return lon, lat, z, checkFinite(lon, lat, z)
	}

	east := (lon - t.lon) * t.lonScale
	north := (lat - t.lat) * metersPerDegree

	// rotate back
	x := east*t.cosN + north*t.sinN
	y := -east*t.sinN + north*t.cosN
	return x, y, z, checkFinite(x, y, z)
}

func checkFinite(vals ...float64) error {
	for _, v := range vals {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return fmt.Errorf("non-finite coordinate %v", v)
		}
	}
	return nil
}
