package usecases_test

import (
	"errors"
	"strings"
	"testing"

	"github.com/geowerks/specklegeo/internal/core/domain"
	"github.com/geowerks/specklegeo/internal/core/usecases"
)

func node(t *testing.T, raw string) *domain.Node {
	t.Helper()
	n, err := domain.DecodeNode([]byte(raw))
	if err != nil {
		t.Fatalf("decode: %v", err)
	}
	return n
}

func TestExtractGeometry_Point(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "p1", "speckle_type": "Objects.Geometry.Point",
		"x": 1.5, "y": -2.5, "z": 3
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != domain.GeometryPoint {
		t.Fatalf("type: %s", g.Type)
	}
	if g.Point != (domain.Vertex{X: 1.5, Y: -2.5, Z: 3}) {
		t.Errorf("point: %+v", g.Point)
	}
}

func TestExtractGeometry_PointWithoutZ(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "p1", "speckle_type": "Objects.Geometry.Point", "x": 1, "y": 2
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Point.Z != 0 {
		t.Errorf("missing z must default to 0, got %v", g.Point.Z)
	}
}

func TestExtractGeometry_PointMissingCoordinate(t *testing.T) {
	_, err := usecases.ExtractGeometry(node(t, `{
		"id": "p1", "speckle_type": "Objects.Geometry.Point", "x": 1
	}`))
	if !errors.Is(err, domain.ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}

func TestExtractGeometry_Line(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "l1", "speckle_type": "Objects.Geometry.Line",
		"start": {"speckle_type": "Objects.Geometry.Point", "x": 0, "y": 0, "z": 0},
		"end":   {"speckle_type": "Objects.Geometry.Point", "x": 1, "y": 2, "z": 3}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != domain.GeometryLineString || len(g.Path) != 2 {
		t.Fatalf("line: %+v", g)
	}
	if g.Path[1] != (domain.Vertex{X: 1, Y: 2, Z: 3}) {
		t.Errorf("end vertex: %+v", g.Path[1])
	}
}

func TestExtractGeometry_PolylineOpen(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "pl1", "speckle_type": "Objects.Geometry.Polyline",
		"value": [0,0,0, 1,0,0, 1,1,0],
		"closed": false
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Path) != 3 {
		t.Errorf("expected 3 vertices, got %d", len(g.Path))
	}
}

func TestExtractGeometry_PolylineClosedAppendsFirst(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "pl1", "speckle_type": "Objects.Geometry.Polyline",
		"value": [0,0,0, 1,0,0, 1,1,0],
		"closed": true
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Path) != 4 {
		t.Fatalf("expected closing vertex appended, got %d vertices", len(g.Path))
	}
	if g.Path[0] != g.Path[3] {
		t.Errorf("path must close on the first vertex: %+v vs %+v", g.Path[0], g.Path[3])
	}
}

func TestExtractGeometry_PolylineBadValueList(t *testing.T) {
	cases := []string{
		`{"speckle_type": "Objects.Geometry.Polyline", "value": [0,0,0]}`,
		`{"speckle_type": "Objects.Geometry.Polyline", "value": [0,0,0, 1,0]}`,
		`{"speckle_type": "Objects.Geometry.Polyline"}`,
	}
	for _, in := range cases {
		if _, err := usecases.ExtractGeometry(node(t, in)); !errors.Is(err, domain.ErrUnsupportedGeometry) {
			t.Errorf("%s: expected ErrUnsupportedGeometry, got %v", in, err)
		}
	}
}

func TestExtractGeometry_MeshLegacyFaceCodes(t *testing.T) {
	// face code 0 means triangle, 1 means quad
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "m1", "speckle_type": "Objects.Geometry.Mesh",
		"vertices": [0,0,0, 1,0,0, 1,1,0, 0,1,0],
		"faces": [0, 0,1,2, 1, 0,1,2,3]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != domain.GeometryMultiPolygon {
		t.Fatalf("type: %s", g.Type)
	}
	if len(g.Polygons) != 2 {
		t.Fatalf("expected 2 polygons, got %d", len(g.Polygons))
	}
	// triangle ring closes back to its first vertex
	if n := len(g.Polygons[0][0]); n != 4 {
		t.Errorf("triangle ring length: %d", n)
	}
	if n := len(g.Polygons[1][0]); n != 5 {
		t.Errorf("quad ring length: %d", n)
	}
	if g.Polygons[0][0][0] != g.Polygons[0][0][3] {
		t.Error("triangle ring must be closed")
	}
}

func TestExtractGeometry_MeshNGonFaces(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "m1", "speckle_type": "Objects.Geometry.Mesh",
		"vertices": [0,0,0, 2,0,0, 2,1,0, 1,2,0, 0,1,0],
		"faces": [5, 0,1,2,3,4]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if len(g.Polygons) != 1 || len(g.Polygons[0][0]) != 6 {
		t.Errorf("pentagon: %+v", g.Polygons)
	}
}

func TestExtractGeometry_MeshFaceIndexOutOfRange(t *testing.T) {
	_, err := usecases.ExtractGeometry(node(t, `{
		"id": "m1", "speckle_type": "Objects.Geometry.Mesh",
		"vertices": [0,0,0, 1,0,0, 1,1,0],
		"faces": [0, 0,1,9]
	}`))
	if !errors.Is(err, domain.ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}

func TestExtractGeometry_MeshTruncatedFaceList(t *testing.T) {
	_, err := usecases.ExtractGeometry(node(t, `{
		"id": "m1", "speckle_type": "Objects.Geometry.Mesh",
		"vertices": [0,0,0, 1,0,0, 1,1,0],
		"faces": [0, 0,1]
	}`))
	if !errors.Is(err, domain.ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}

func TestExtractGeometry_MeshWithoutFacesFanTriangulates(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "m1", "speckle_type": "Objects.Geometry.Mesh",
		"vertices": [0,0,0, 1,0,0, 1,1,0, 0,1,0]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	// 4 vertices fan into 2 triangles around vertex 0
	if len(g.Polygons) != 2 {
		t.Errorf("expected 2 fan triangles, got %d", len(g.Polygons))
	}
}

func TestExtractGeometry_DisplayValueIndirection(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "w1", "speckle_type": "Objects.BuiltElements.Wall",
		"displayValue": [
			{"id": "m1", "speckle_type": "Objects.Geometry.Mesh",
			 "vertices": [0,0,0, 1,0,0, 1,1,0],
			 "faces": [0, 0,1,2]}
		]
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != domain.GeometryMultiPolygon {
		t.Errorf("type via displayValue: %s", g.Type)
	}
}

func TestExtractGeometry_AtDisplayValueVariant(t *testing.T) {
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "b1", "speckle_type": "Objects.Geometry.Brep",
		"@displayValue": {"id": "p1", "speckle_type": "Objects.Geometry.Point", "x": 1, "y": 2}
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != domain.GeometryPoint {
		t.Errorf("type via @displayValue: %s", g.Type)
	}
}

func TestExtractGeometry_DisplayValueDepthBounded(t *testing.T) {
	// a chain of display objects deeper than the indirection cap
	inner := `{"speckle_type": "Base.Nothing"}`
	for i := 0; i < 6; i++ {
		inner = `{"speckle_type": "Base.Wrapper", "displayValue": ` + inner + `}`
	}
	if !strings.Contains(inner, "Base.Nothing") {
		t.Fatal("bad fixture")
	}
	_, err := usecases.ExtractGeometry(node(t, inner))
	if !errors.Is(err, domain.ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}

func TestExtractGeometry_CompositeRevitType(t *testing.T) {
	// composite types discriminate on the segment after the colon
	g, err := usecases.ExtractGeometry(node(t, `{
		"id": "c1",
		"speckle_type": "Objects.Other.Instance:Objects.Geometry.Point",
		"x": 3, "y": 4
	}`))
	if err != nil {
		t.Fatal(err)
	}
	if g.Type != domain.GeometryPoint {
		t.Errorf("composite type: %s", g.Type)
	}
}

func TestExtractGeometry_Unsupported(t *testing.T) {
	_, err := usecases.ExtractGeometry(node(t, `{
		"id": "x1", "speckle_type": "Objects.Organization.Collection", "name": "Level 1"
	}`))
	if !errors.Is(err, domain.ErrUnsupportedGeometry) {
		t.Errorf("expected ErrUnsupportedGeometry, got %v", err)
	}
}
