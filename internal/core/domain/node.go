package domain

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"strings"
)

// ValueKind discriminates the closed set of shapes a node property can take.
// Remote objects are dynamically typed; everything they contain is folded into
// this variant so downstream code can pattern-match instead of type-asserting
// arbitrary JSON.
type ValueKind int

const (
	KindNull ValueKind = iota
	KindScalar
	KindNode
	KindReference
	KindSequence
)

// Value is a single property value of a Node.
type Value struct {
	Kind     ValueKind
	Scalar   any     // string, float64 or bool when Kind == KindScalar
	Node     *Node   // inline child object when Kind == KindNode
	Ref      string  // referenced object id when Kind == KindReference
	Sequence []Value // ordered elements when Kind == KindSequence
}

// Property is a named value. The slice form (instead of a map) keeps the order
// in which the store serialized the object, which is what makes traversal
// deterministic.
type Property struct {
	Name  string
	Value Value
}

// Node is one object of the remote model graph. Nodes may be referenced by
// several parents and, in malformed models, may form reference cycles; the
// traversal layer deduplicates by ID.
type Node struct {
	ID          string
	SpeckleType string
	Props       []Property
}

// Prop returns the named property value.
func (n *Node) Prop(name string) (Value, bool) {
	for _, p := range n.Props {
		if p.Name == name {
			return p.Value, true
		}
	}
	return Value{}, false
}

// Float returns the named property as a float64.
func (n *Node) Float(name string) (float64, bool) {
	v, ok := n.Prop(name)
	if !ok || v.Kind != KindScalar {
		return 0, false
	}
	f, ok := v.Scalar.(float64)
	return f, ok
}

// Bool returns the named property as a bool.
func (n *Node) Bool(name string) (bool, bool) {
	v, ok := n.Prop(name)
	if !ok || v.Kind != KindScalar {
		return false, false
	}
	b, ok := v.Scalar.(bool)
	return b, ok
}

// Text returns the named property as a string.
func (n *Node) Text(name string) (string, bool) {
	v, ok := n.Prop(name)
	if !ok || v.Kind != KindScalar {
		return "", false
	}
	s, ok := v.Scalar.(string)
	return s, ok
}

// ChildNode returns the named property as an inline node.
func (n *Node) ChildNode(name string) (*Node, bool) {
	v, ok := n.Prop(name)
	if !ok || v.Kind != KindNode {
		return nil, false
	}
	return v.Node, true
}

// Floats returns the named property as a flat numeric list. Non-numeric
// elements are rejected.
func (n *Node) Floats(name string) ([]float64, bool) {
	v, ok := n.Prop(name)
	if !ok || v.Kind != KindSequence {
		return nil, false
	}
	out := make([]float64, 0, len(v.Sequence))
	for _, el := range v.Sequence {
		if el.Kind != KindScalar {
			return nil, false
		}
		f, ok := el.Scalar.(float64)
		if !ok {
			return nil, false
		}
		out = append(out, f)
	}
	return out, true
}

// TypeTag returns the trailing segment of the node's speckle_type, which is
// what feature properties report (e.g. "Objects.Geometry.Mesh" -> "Mesh"
// stays "Objects.Geometry.Mesh"; composite "a:b" types report "b").
func (n *Node) TypeTag() string {
	if i := strings.LastIndexByte(n.SpeckleType, ':'); i >= 0 {
		return n.SpeckleType[i+1:]
	}
	return n.SpeckleType
}

const referenceType = "reference"

// DecodeNode parses a raw object payload from the store into a Node. A plain
// map decode would lose key order, so this walks the token stream directly.
func DecodeNode(data []byte) (*Node, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	tok, err := dec.Token()
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelMalformed, err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return nil, fmt.Errorf("%w: payload is not an object", ErrModelMalformed)
	}

	v, err := decodeObject(dec)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrModelMalformed, err)
	}
	if v.Kind != KindNode {
		// a bare {"referencedId": ...} root is not a usable graph
		return nil, fmt.Errorf("%w: root object is a reference", ErrModelMalformed)
	}
	return v.Node, nil
}

// decodeObject consumes the members of an object whose '{' was already read.
// Objects carrying speckle_type "reference" collapse to a KindReference value.
func decodeObject(dec *json.Decoder) (Value, error) {
	node := &Node{}
	refID := ""
	for dec.More() {
		keyTok, err := dec.Token()
		if err != nil {
			return Value{}, err
		}
		key := keyTok.(string)

		val, err := decodeValue(dec)
		if err != nil {
			return Value{}, err
		}

		switch key {
		case "id":
			if s, ok := val.Scalar.(string); ok {
				node.ID = s
			}
		case "speckle_type":
			if s, ok := val.Scalar.(string); ok {
				node.SpeckleType = s
			}
		case "referencedId":
			if s, ok := val.Scalar.(string); ok {
				refID = s
			}
		case "__closure", "totalChildrenCount":
			// transport bookkeeping, not model content
		default:
			node.Props = append(node.Props, Property{Name: key, Value: val})
		}
	}
	if _, err := dec.Token(); err != nil { // consume '}'
		return Value{}, err
	}

	if refID != "" && (node.SpeckleType == referenceType || strings.HasSuffix(node.SpeckleType, ".ObjectReference")) {
		return Value{Kind: KindReference, Ref: refID}, nil
	}
	return Value{Kind: KindNode, Node: node}, nil
}

func decodeValue(dec *json.Decoder) (Value, error) {
	tok, err := dec.Token()
	if err != nil {
		if err == io.EOF {
			return Value{}, io.ErrUnexpectedEOF
		}
		return Value{}, err
	}

	switch t := tok.(type) {
	case json.Delim:
		switch t {
		case '{':
			return decodeObject(dec)
		case '[':
			var seq []Value
			for dec.More() {
				el, err := decodeValue(dec)
				if err != nil {
					return Value{}, err
				}
				seq = append(seq, el)
			}
			if _, err := dec.Token(); err != nil { // consume ']'
				return Value{}, err
			}
			return Value{Kind: KindSequence, Sequence: seq}, nil
		}
		return Value{}, fmt.Errorf("unexpected delimiter %v", t)
	case json.Number:
		f, err := t.Float64()
		if err != nil {
			return Value{}, err
		}
		return Value{Kind: KindScalar, Scalar: f}, nil
	case string:
		return Value{Kind: KindScalar, Scalar: t}, nil
	case bool:
		return Value{Kind: KindScalar, Scalar: t}, nil
	case nil:
		return Value{Kind: KindNull}, nil
	}
	return Value{}, fmt.Errorf("unexpected token %v", tok)
}
