package usecases

import (
	"fmt"
	"strings"

	"github.com/geowerks/specklegeo/internal/core/domain"
)

// baseType is the trailing dot-segment of a node's type tag, which is the
// discriminator the extraction rules match on ("Objects.Geometry.Mesh" ->
// "Mesh").
func baseType(node *domain.Node) string {
	tag := node.TypeTag()
	if i := strings.LastIndexByte(tag, '.'); i >= 0 {
		return tag[i+1:]
	}
	return tag
}

// ExtractGeometry converts a node's raw geometric payload into a normalized
// local-space Geometry. Payload shapes recognized by no rule return
// ErrUnsupportedGeometry; callers skip such nodes without aborting.
func ExtractGeometry(node *domain.Node) (domain.Geometry, error) {
	return extract(node, 0)
}

// maxDisplayDepth bounds the displayValue indirection chain so a malformed
// self-referential display object cannot recurse unboundedly.
const maxDisplayDepth = 4

func extract(node *domain.Node, depth int) (domain.Geometry, error) {
	switch baseType(node) {
	case "Point":
		return extractPoint(node)
	case "Line":
		return extractLine(node)
	case "Polyline":
		return extractPolyline(node)
	case "Mesh":
		return extractMesh(node)
	}

	// Breps, curves and BIM elements (walls, floors, ...) carry their render
	// geometry in a displayValue child.
	if depth < maxDisplayDepth {
		if display, ok := displayNode(node); ok {
			return extract(display, depth+1)
		}
	}
	return domain.Geometry{}, fmt.Errorf("%w: %s", domain.ErrUnsupportedGeometry, node.TypeTag())
}

// displayNode returns the first display object of a node, if any.
func displayNode(node *domain.Node) (*domain.Node, bool) {
	for _, name := range []string{"displayValue", "@displayValue"} {
		v, ok := node.Prop(name)
		if !ok {
			continue
		}
		switch v.Kind {
		case domain.KindNode:
			return v.Node, true
		case domain.KindSequence:
			for _, el := range v.Sequence {
				if el.Kind == domain.KindNode {
					return el.Node, true
				}
			}
		}
	}
	return nil, false
}

func extractPoint(node *domain.Node) (domain.Geometry, error) {
	x, okX := node.Float("x")
	y, okY := node.Float("y")
	if !okX || !okY {
		return domain.Geometry{}, fmt.Errorf("%w: point without x/y", domain.ErrUnsupportedGeometry)
	}
	z, _ := node.Float("z")
	return domain.Geometry{
		Type:  domain.GeometryPoint,
		Point: domain.Vertex{X: x, Y: y, Z: z},
	}, nil
}

func extractLine(node *domain.Node) (domain.Geometry, error) {
	start, okS := node.ChildNode("start")
	end, okE := node.ChildNode("end")
	if !okS || !okE {
		return domain.Geometry{}, fmt.Errorf("%w: line without start/end", domain.ErrUnsupportedGeometry)
	}
	sg, err := extractPoint(start)
	if err != nil {
		return domain.Geometry{}, err
	}
	eg, err := extractPoint(end)
	if err != nil {
		return domain.Geometry{}, err
	}
	return domain.Geometry{
		Type: domain.GeometryLineString,
		Path: []domain.Vertex{sg.Point, eg.Point},
	}, nil
}

func extractPolyline(node *domain.Node) (domain.Geometry, error) {
	flat, ok := node.Floats("value")
	if !ok || len(flat) < 6 || len(flat)%3 != 0 {
		return domain.Geometry{}, fmt.Errorf("%w: polyline value list", domain.ErrUnsupportedGeometry)
	}

	path := make([]domain.Vertex, 0, len(flat)/3+1)
	for i := 0; i+2 < len(flat); i += 3 {
		path = append(path, domain.Vertex{X: flat[i], Y: flat[i+1], Z: flat[i+2]})
	}
	if closed, _ := node.Bool("closed"); closed && len(path) > 2 && path[0] != path[len(path)-1] {
		path = append(path, path[0])
	}
	return domain.Geometry{Type: domain.GeometryLineString, Path: path}, nil
}

func extractMesh(node *domain.Node) (domain.Geometry, error) {
	flat, ok := node.Floats("vertices")
	if !ok || len(flat) < 9 || len(flat)%3 != 0 {
		return domain.Geometry{}, fmt.Errorf("%w: mesh vertex list", domain.ErrUnsupportedGeometry)
	}
	vertices := make([]domain.Vertex, 0, len(flat)/3)
	for i := 0; i+2 < len(flat); i += 3 {
		vertices = append(vertices, domain.Vertex{X: flat[i], Y: flat[i+1], Z: flat[i+2]})
	}

	faces, hasFaces := node.Floats("faces")
	if !hasFaces || len(faces) == 0 {
		return fanPolygons(vertices)
	}

	var polygons [][][]domain.Vertex
	for i := 0; i < len(faces); {
		n := int(faces[i])
		// legacy encoding: 0 marks a triangle, 1 a quad
		if n == 0 {
			n = 3
		} else if n == 1 {
			n = 4
		}
		if n < 3 || i+1+n > len(faces) {
			return domain.Geometry{}, fmt.Errorf("%w: mesh face index list", domain.ErrUnsupportedGeometry)
		}

		ring := make([]domain.Vertex, 0, n+1)
		for _, fi := range faces[i+1 : i+1+n] {
			vi := int(fi)
			if vi < 0 || vi >= len(vertices) {
				return domain.Geometry{}, fmt.Errorf("%w: mesh face vertex index out of range", domain.ErrUnsupportedGeometry)
			}
			ring = append(ring, vertices[vi])
		}
		ring = append(ring, ring[0]) // close the ring
		polygons = append(polygons, [][]domain.Vertex{ring})
		i += n + 1
	}
	return domain.Geometry{Type: domain.GeometryMultiPolygon, Polygons: polygons}, nil
}

// fanPolygons triangulates an unindexed vertex list as a fan around the first
// vertex.
func fanPolygons(vertices []domain.Vertex) (domain.Geometry, error) {
	if len(vertices) < 3 {
		return domain.Geometry{}, fmt.Errorf("%w: mesh with fewer than 3 vertices", domain.ErrUnsupportedGeometry)
	}
	var polygons [][][]domain.Vertex
	for i := 1; i+1 < len(vertices); i++ {
		ring := []domain.Vertex{vertices[0], vertices[i], vertices[i+1], vertices[0]}
		polygons = append(polygons, [][]domain.Vertex{ring})
	}
	return domain.Geometry{Type: domain.GeometryMultiPolygon, Polygons: polygons}, nil
}
