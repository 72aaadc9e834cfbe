package domain

import (
	"encoding/json"
	"fmt"
)

// Vertex is a single coordinate. Before transformation X/Y/Z are model-local
// units; afterwards X is longitude (or easting), Y latitude (or northing),
// Z unchanged.
type Vertex struct {
	X float64
	Y float64
	Z float64
}

// GeometryType enumerates the geometry kinds the converter emits.
type GeometryType string

const (
	GeometryPoint        GeometryType = "Point"
	GeometryLineString   GeometryType = "LineString"
	GeometryPolygon      GeometryType = "Polygon"
	GeometryMultiPolygon GeometryType = "MultiPolygon"
)

// Geometry is a tagged variant over the supported geometry kinds. Exactly one
// of the payload fields is populated, matching Type.
type Geometry struct {
	Type     GeometryType
	Point    Vertex       // GeometryPoint
	Path     []Vertex     // GeometryLineString
	Rings    [][]Vertex   // GeometryPolygon, outer ring first
	Polygons [][][]Vertex // GeometryMultiPolygon
}

// MapVertices returns a copy of g with fn applied to every vertex. fn must be
// deterministic and side-effect free; errors abort and propagate unchanged.
func (g Geometry) MapVertices(fn func(Vertex) (Vertex, error)) (Geometry, error) {
	var err error
	out := Geometry{Type: g.Type}
	switch g.Type {
	case GeometryPoint:
		out.Point, err = fn(g.Point)
		if err != nil {
			return Geometry{}, err
		}
	case GeometryLineString:
		out.Path = make([]Vertex, len(g.Path))
		for i, v := range g.Path {
			if out.Path[i], err = fn(v); err != nil {
				return Geometry{}, err
			}
		}
	case GeometryPolygon:
		out.Rings = make([][]Vertex, len(g.Rings))
		for i, ring := range g.Rings {
			out.Rings[i] = make([]Vertex, len(ring))
			for j, v := range ring {
				if out.Rings[i][j], err = fn(v); err != nil {
					return Geometry{}, err
				}
			}
		}
	case GeometryMultiPolygon:
		out.Polygons = make([][][]Vertex, len(g.Polygons))
		for i, poly := range g.Polygons {
			out.Polygons[i] = make([][]Vertex, len(poly))
			for j, ring := range poly {
				out.Polygons[i][j] = make([]Vertex, len(ring))
				for k, v := range ring {
					if out.Polygons[i][j][k], err = fn(v); err != nil {
						return Geometry{}, err
					}
				}
			}
		}
	default:
		return Geometry{}, fmt.Errorf("%w: geometry type %q", ErrUnsupportedGeometry, g.Type)
	}
	return out, nil
}

// VertexCount returns the total number of vertices across all parts.
func (g Geometry) VertexCount() int {
	switch g.Type {
	case GeometryPoint:
		return 1
	case GeometryLineString:
		return len(g.Path)
	case GeometryPolygon:
		n := 0
		for _, ring := range g.Rings {
			n += len(ring)
		}
		return n
	case GeometryMultiPolygon:
		n := 0
		for _, poly := range g.Polygons {
			for _, ring := range poly {
				n += len(ring)
			}
		}
		return n
	}
	return 0
}

func coord(v Vertex) []float64 { return []float64{v.X, v.Y, v.Z} }

func coords(vs []Vertex) [][]float64 {
	out := make([][]float64, len(vs))
	for i, v := range vs {
		out[i] = coord(v)
	}
	return out
}

// MarshalJSON encodes the geometry as a GeoJSON geometry object.
func (g Geometry) MarshalJSON() ([]byte, error) {
	var coordinates any
	switch g.Type {
	case GeometryPoint:
		coordinates = coord(g.Point)
	case GeometryLineString:
		coordinates = coords(g.Path)
	case GeometryPolygon:
		rings := make([][][]float64, len(g.Rings))
		for i, ring := range g.Rings {
			rings[i] = coords(ring)
		}
		coordinates = rings
	case GeometryMultiPolygon:
		polys := make([][][][]float64, len(g.Polygons))
		for i, poly := range g.Polygons {
			polys[i] = make([][][]float64, len(poly))
			for j, ring := range poly {
				polys[i][j] = coords(ring)
			}
		}
		coordinates = polys
	default:
		return nil, fmt.Errorf("marshal geometry: unknown type %q", g.Type)
	}
	return json.Marshal(struct {
		Type        GeometryType `json:"type"`
		Coordinates any          `json:"coordinates"`
	}{g.Type, coordinates})
}

// Feature is a single geometry plus attributes, the atomic unit of the output
// collection.
type Feature struct {
	Type       string         `json:"type"`
	ID         string         `json:"id"`
	Geometry   Geometry       `json:"geometry"`
	Properties map[string]any `json:"properties"`
}

// NewFeature builds a Feature for a geometry-bearing node. FID is the 1-based
// emission index.
func NewFeature(node *Node, fid int, geom Geometry) Feature {
	return Feature{
		Type:     "Feature",
		ID:       node.ID,
		Geometry: geom,
		Properties: map[string]any{
			"id":           node.ID,
			"FID":          fid,
			"speckle_type": node.TypeTag(),
		},
	}
}

// NamedCRS is the GeoJSON named-CRS member attached to the collection.
type NamedCRS struct {
	Type       string            `json:"type"`
	Properties map[string]string `json:"properties"`
}

// CRS84 is the coordinate system of anchor-georeferenced output.
func CRS84() *NamedCRS {
	return &NamedCRS{
		Type:       "name",
		Properties: map[string]string{"name": "urn:ogc:def:crs:OGC:1.3:CRS84"},
	}
}

// FeatureCollection is the bounded, ordered unit returned to the caller.
type FeatureCollection struct {
	Type           string    `json:"type"`
	Project        string    `json:"project,omitempty"`
	Model          string    `json:"model,omitempty"`
	CRS            *NamedCRS `json:"crs,omitempty"`
	TargetCRS      string    `json:"target_crs,omitempty"`
	NumberReturned int       `json:"numberReturned"`
	Features       []Feature `json:"features"`
}
