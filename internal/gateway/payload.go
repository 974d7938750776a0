package gateway

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RawPayload is a decoded gateway body: a tree of objects, arrays, strings,
// booleans and json.Number values keyed by resource identifiers.
//
// Accessors take a path of resource identifiers (array elements are
// addressed by decimal index) and return (value, ok, err): ok is false when
// any segment is absent, err is non-nil when the tree has the wrong shape.
type RawPayload struct {
	root any
}

// ParsePayload decodes a single JSON document into a RawPayload.
func ParsePayload(data []byte) (RawPayload, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var v any
	if err := dec.Decode(&v); err != nil {
		return RawPayload{}, err
	}
	if dec.More() {
		return RawPayload{}, fmt.Errorf("trailing data after JSON value")
	}
	return RawPayload{root: v}, nil
}

// IsEmpty reports whether the payload carries no body at all.
func (p RawPayload) IsEmpty() bool {
	return p.root == nil
}

// Raw returns the underlying tree.
func (p RawPayload) Raw() any {
	return p.root
}

// MarshalJSON encodes the tree back to JSON.
func (p RawPayload) MarshalJSON() ([]byte, error) {
	return json.Marshal(p.root)
}

// Lookup walks path and returns the node found there.
func (p RawPayload) Lookup(path ...string) (any, bool, error) {
	node := p.root
	for i, seg := range path {
		switch n := node.(type) {
		case map[string]any:
			v, ok := n[seg]
			if !ok {
				return nil, false, nil
			}
			node = v
		case []any:
			idx, err := strconv.Atoi(seg)
			if err != nil || idx < 0 {
				return nil, false, shapeError(path[:i+1], "array index", seg)
			}
			if idx >= len(n) {
				return nil, false, nil
			}
			node = n[idx]
		case nil:
			return nil, false, nil
		default:
			return nil, false, shapeError(path[:i], "object or array", n)
		}
	}
	if node == nil {
		return nil, false, nil
	}
	return node, true, nil
}

// Int returns an integral number at path.
func (p RawPayload) Int(path ...string) (int, bool, error) {
	v, ok, err := p.Lookup(path...)
	if !ok || err != nil {
		return 0, ok, err
	}
	n, err := asInt(v)
	if err != nil {
		return 0, false, shapeError(path, "integer", v)
	}
	return n, true, nil
}

// String returns a string at path.
func (p RawPayload) String(path ...string) (string, bool, error) {
	v, ok, err := p.Lookup(path...)
	if !ok || err != nil {
		return "", ok, err
	}
	s, isStr := v.(string)
	if !isStr {
		return "", false, shapeError(path, "string", v)
	}
	return s, true, nil
}

// Bool returns the truthiness of a boolean or numeric flag at path; the
// gateway encodes switches as 0/1.
func (p RawPayload) Bool(path ...string) (bool, bool, error) {
	v, ok, err := p.Lookup(path...)
	if !ok || err != nil {
		return false, ok, err
	}
	switch b := v.(type) {
	case bool:
		return b, true, nil
	case json.Number:
		f, err := b.Float64()
		if err != nil {
			return false, false, shapeError(path, "boolean", v)
		}
		return f != 0, true, nil
	}
	if f, isNum := toFloat(v); isNum {
		return f != 0, true, nil
	}
	return false, false, shapeError(path, "boolean", v)
}

// Ints returns an array of integers at path.
func (p RawPayload) Ints(path ...string) ([]int, bool, error) {
	v, ok, err := p.Lookup(path...)
	if !ok || err != nil {
		return nil, ok, err
	}
	arr, isArr := v.([]any)
	if !isArr {
		return nil, false, shapeError(path, "array", v)
	}
	out := make([]int, 0, len(arr))
	for i, el := range arr {
		n, err := asInt(el)
		if err != nil {
			return nil, false, shapeError(append(append([]string{}, path...), strconv.Itoa(i)), "integer", el)
		}
		out = append(out, n)
	}
	return out, true, nil
}

// Node returns the node at path as a RawPayload of its own.
func (p RawPayload) Node(path ...string) (RawPayload, bool, error) {
	v, ok, err := p.Lookup(path...)
	if !ok || err != nil {
		return RawPayload{}, ok, err
	}
	return RawPayload{root: v}, true, nil
}

func asInt(v any) (int, error) {
	switch n := v.(type) {
	case json.Number:
		if i, err := strconv.ParseInt(n.String(), 10, 0); err == nil {
			return int(i), nil
		}
		f, err := n.Float64()
		if err != nil {
			return 0, err
		}
		return floatToInt(f)
	case int:
		return n, nil
	}
	if f, ok := toFloat(v); ok {
		return floatToInt(f)
	}
	return 0, fmt.Errorf("not a number: %T", v)
}

func floatToInt(f float64) (int, error) {
	if f != math.Trunc(f) || f >= math.MaxInt || f < math.MinInt {
		return 0, fmt.Errorf("not an integer: %v", f)
	}
	return int(f), nil
}

func shapeError(path []string, want string, got any) error {
	return fmt.Errorf("%w: %s: want %s, got %T", ErrDataTransform, strings.Join(path, "/"), want, got)
}
