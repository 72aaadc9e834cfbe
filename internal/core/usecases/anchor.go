package usecases

import (
	"fmt"

	"github.com/geowerks/specklegeo/internal/core/domain"
	"github.com/geowerks/specklegeo/internal/pkg/geospatial"
)

// AnchorParams are the raw georeferencing inputs of a request. Pointer fields
// distinguish "absent" from zero values.
type AnchorParams struct {
	CRSAuthID    string
	Lat          *float64
	Lon          *float64
	NorthDegrees *float64
}

// ResolveTransform builds the per-request coordinate transform.
//
// An explicit crsAuthid wins outright: the anchor parameters are not consulted
// at all (even malformed ones), and the transform is the identity, since model
// coordinates are assumed already expressed in that CRS. Without it, lat and
// lon are required and the transform georeferences the local frame against the
// anchor, northDegrees defaulting to 0.
func ResolveTransform(p AnchorParams) (*geospatial.Transform, error) {
	if p.CRSAuthID != "" {
		crs, err := geospatial.ParseCRSAuthority(p.CRSAuthID)
		if err != nil {
			return nil, fmt.Errorf("%w: crsAuthid: %v", domain.ErrInvalidParameter, err)
		}
		return geospatial.IdentityTransform(crs), nil
	}

	if p.Lat == nil || p.Lon == nil {
		return nil, fmt.Errorf("%w: either crsAuthid or both lat and lon are required", domain.ErrInvalidParameter)
	}
	if *p.Lat < -90 || *p.Lat > 90 {
		return nil, fmt.Errorf("%w: lat %v outside [-90, 90]", domain.ErrInvalidParameter, *p.Lat)
	}
	if *p.Lon < -180 || *p.Lon > 180 {
		return nil, fmt.Errorf("%w: lon %v outside [-180, 180]", domain.ErrInvalidParameter, *p.Lon)
	}

	north := 0.0
	if p.NorthDegrees != nil {
		north = *p.NorthDegrees
		if north < -180 || north > 180 {
			return nil, fmt.Errorf("%w: northDegrees %v outside [-180, 180]", domain.ErrInvalidParameter, north)
		}
	}

	return geospatial.NewAnchorTransform(*p.Lat, *p.Lon, north), nil
}
