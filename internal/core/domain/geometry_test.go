package domain_test

import (
	"encoding/json"
	"errors"
	"testing"

	"github.com/geowerks/specklegeo/internal/core/domain"
)

func TestGeometryMarshal_Point(t *testing.T) {
	g := domain.Geometry{Type: domain.GeometryPoint, Point: domain.Vertex{X: 1, Y: 2, Z: 3}}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"Point","coordinates":[1,2,3]}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestGeometryMarshal_LineString(t *testing.T) {
	g := domain.Geometry{
		Type: domain.GeometryLineString,
		Path: []domain.Vertex{{X: 0, Y: 0, Z: 0}, {X: 1, Y: 1, Z: 0}},
	}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}
	want := `{"type":"LineString","coordinates":[[0,0,0],[1,1,0]]}`
	if string(b) != want {
		t.Errorf("got %s, want %s", b, want)
	}
}

func TestGeometryMarshal_MultiPolygonNesting(t *testing.T) {
	ring := []domain.Vertex{{0, 0, 0}, {1, 0, 0}, {0, 1, 0}, {0, 0, 0}}
	g := domain.Geometry{
		Type:     domain.GeometryMultiPolygon,
		Polygons: [][][]domain.Vertex{{ring}},
	}
	b, err := json.Marshal(g)
	if err != nil {
		t.Fatal(err)
	}

	var decoded struct {
		Type        string            `json:"type"`
		Coordinates [][][][3]float64 `json:"coordinates"`
	}
	if err := json.Unmarshal(b, &decoded); err != nil {
		t.Fatalf("nesting depth wrong: %v", err)
	}
	if decoded.Type != "MultiPolygon" {
		t.Errorf("type: %s", decoded.Type)
	}
	if len(decoded.Coordinates) != 1 || len(decoded.Coordinates[0]) != 1 || len(decoded.Coordinates[0][0]) != 4 {
		t.Errorf("coordinates shape: %v", decoded.Coordinates)
	}
}

func TestGeometryMarshal_UnknownType(t *testing.T) {
	g := domain.Geometry{Type: "Blob"}
	if _, err := json.Marshal(g); err == nil {
		t.Error("expected error for unknown geometry type")
	}
}

func TestMapVertices_CopiesWithoutMutating(t *testing.T) {
	orig := domain.Geometry{
		Type: domain.GeometryLineString,
		Path: []domain.Vertex{{X: 1, Y: 2, Z: 3}, {X: 4, Y: 5, Z: 6}},
	}

	shifted, err := orig.MapVertices(func(v domain.Vertex) (domain.Vertex, error) {
		return domain.Vertex{X: v.X + 10, Y: v.Y + 10, Z: v.Z}, nil
	})
	if err != nil {
		t.Fatal(err)
	}
	if shifted.Path[0].X != 11 || shifted.Path[1].Y != 15 {
		t.Errorf("transform not applied: %+v", shifted.Path)
	}
	if orig.Path[0].X != 1 || orig.Path[1].Y != 5 {
		t.Errorf("original mutated: %+v", orig.Path)
	}
}

func TestMapVertices_PropagatesError(t *testing.T) {
	sentinel := errors.New("boom")
	g := domain.Geometry{
		Type:     domain.GeometryMultiPolygon,
		Polygons: [][][]domain.Vertex{{{{X: 1}, {X: 2}, {X: 3}, {X: 1}}}},
	}
	_, err := g.MapVertices(func(v domain.Vertex) (domain.Vertex, error) {
		if v.X == 2 {
			return domain.Vertex{}, sentinel
		}
		return v, nil
	})
	if !errors.Is(err, sentinel) {
		t.Errorf("expected sentinel error, got %v", err)
	}
}

func TestVertexCount(t *testing.T) {
	cases := []struct {
		g    domain.Geometry
		want int
	}{
		{domain.Geometry{Type: domain.GeometryPoint}, 1},
		{domain.Geometry{Type: domain.GeometryLineString, Path: make([]domain.Vertex, 5)}, 5},
		{domain.Geometry{Type: domain.GeometryPolygon, Rings: [][]domain.Vertex{make([]domain.Vertex, 4), make([]domain.Vertex, 4)}}, 8},
		{domain.Geometry{Type: "Blob"}, 0},
	}
	for _, c := range cases {
		if got := c.g.VertexCount(); got != c.want {
			t.Errorf("%s: got %d, want %d", c.g.Type, got, c.want)
		}
	}
}

func TestNewFeature_Properties(t *testing.T) {
	n := mustDecode(t, `{"id": "obj1", "speckle_type": "Objects.Geometry.Mesh"}`)
	f := domain.NewFeature(n, 7, domain.Geometry{Type: domain.GeometryPoint})

	if f.Type != "Feature" || f.ID != "obj1" {
		t.Errorf("header: %+v", f)
	}
	if f.Properties["id"] != "obj1" {
		t.Errorf("properties id: %v", f.Properties["id"])
	}
	if f.Properties["FID"] != 7 {
		t.Errorf("properties FID: %v", f.Properties["FID"])
	}
	if f.Properties["speckle_type"] != "Objects.Geometry.Mesh" {
		t.Errorf("properties speckle_type: %v", f.Properties["speckle_type"])
	}
}

func TestCRS84(t *testing.T) {
	crs := domain.CRS84()
	if crs.Type != "name" {
		t.Errorf("type: %s", crs.Type)
	}
	if crs.Properties["name"] != "urn:ogc:def:crs:OGC:1.3:CRS84" {
		t.Errorf("name: %s", crs.Properties["name"])
	}
}
