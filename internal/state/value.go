package state

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
)

// Kind is the kind of a node.
type Kind uint8

const (
	// KindMissing is the kind of a path with no value.
	KindMissing Kind = iota
	KindScalar
	KindObject
	KindList
)

// String returns the kind name.
func (k Kind) String() string {
	switch k {
	case KindScalar:
		return "scalar"
	case KindObject:
		return "object"
	case KindList:
		return "list"
	default:
		return "missing"
	}
}

// node is an immutable tree node. Nodes are never modified once reachable
// from a published root.
type node struct {
	kind   Kind
	scalar any
	fields map[string]*node
	items  []*node
}

var emptyObject = &node{kind: KindObject, fields: map[string]*node{}}

// Value is a read-only view of a state node.
// The zero Value represents a missing path.
type Value struct {
	n *node
}

// Exists reports whether the value is present.
func (v Value) Exists() bool {
	return v.n != nil
}

// Kind returns the kind of the value.
func (v Value) Kind() Kind {
	if v.n == nil {
		return KindMissing
	}
	return v.n.kind
}

// Same reports whether two values are the same node. Between writes that
// do not touch a path, repeated reads of that path are Same.
func (v Value) Same(other Value) bool {
	return v.n == other.n
}

// Get returns the value at a relative dot path.
func (v Value) Get(path string) Value {
	segs, err := ParsePath(path)
	if err != nil {
		return Value{}
	}
	return Value{n: lookup(v.n, segs)}
}

// Field returns a direct child of an object.
func (v Value) Field(key string) Value {
	if v.n == nil || v.n.kind != KindObject {
		return Value{}
	}
	return Value{n: v.n.fields[key]}
}

// Index returns an element of a list.
func (v Value) Index(i int) Value {
	if v.n == nil || v.n.kind != KindList || i < 0 || i >= len(v.n.items) {
		return Value{}
	}
	return Value{n: v.n.items[i]}
}

// Keys returns the sorted keys of an object.
func (v Value) Keys() []string {
	if v.n == nil || v.n.kind != KindObject {
		return nil
	}
	keys := make([]string, 0, len(v.n.fields))
	for k := range v.n.fields {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// Len returns the number of fields of an object or items of a list.
func (v Value) Len() int {
	if v.n == nil {
		return 0
	}
	switch v.n.kind {
	case KindObject:
		return len(v.n.fields)
	case KindList:
		return len(v.n.items)
	default:
		return 0
	}
}

// Scalar returns the scalar held by the value, or nil.
func (v Value) Scalar() any {
	if v.n == nil || v.n.kind != KindScalar {
		return nil
	}
	return v.n.scalar
}

// String returns the scalar formatted with %v, or "" for non-scalars.
func (v Value) String() string {
	if v.n == nil || v.n.kind != KindScalar || v.n.scalar == nil {
		return ""
	}
	if s, ok := v.n.scalar.(string); ok {
		return s
	}
	return fmt.Sprint(v.n.scalar)
}

// Interface returns a fresh deep copy of the value as plain Go data:
// map[string]any for objects, []any for lists. Changing the result does
// not affect the store.
func (v Value) Interface() any {
	return toGo(v.n)
}

// MarshalJSON encodes the value as JSON.
func (v Value) MarshalJSON() ([]byte, error) {
	return json.Marshal(toGo(v.n))
}

func lookup(n *node, segs []string) *node {
	for _, s := range segs {
		if n == nil || n.kind != KindObject {
			return nil
		}
		n = n.fields[s]
	}
	return n
}

func toGo(n *node) any {
	if n == nil {
		return nil
	}
	switch n.kind {
	case KindObject:
		m := make(map[string]any, len(n.fields))
		for k, c := range n.fields {
			m[k] = toGo(c)
		}
		return m
	case KindList:
		l := make([]any, len(n.items))
		for i, c := range n.items {
			l[i] = toGo(c)
		}
		return l
	default:
		return n.scalar
	}
}

// fromGo converts Go data into a fresh node tree that shares no memory
// with v. Maps with string keys become objects and slices or arrays become
// lists; pointers and interfaces are followed; a Value is reused as-is.
// Structs and maps with other key types are converted through their JSON
// encoding. Funcs, channels and complex numbers are rejected.
func fromGo(v any) (*node, error) {
	switch x := v.(type) {
	case Value:
		if x.n == nil {
			return &node{kind: KindScalar}, nil
		}
		return x.n, nil
	case map[string]any:
		n := &node{kind: KindObject, fields: make(map[string]*node, len(x))}
		for k, c := range x {
			child, err := fromGo(c)
			if err != nil {
				return nil, err
			}
			n.fields[k] = child
		}
		return n, nil
	case []any:
		n := &node{kind: KindList, items: make([]*node, len(x))}
		for i, c := range x {
			child, err := fromGo(c)
			if err != nil {
				return nil, err
			}
			n.items[i] = child
		}
		return n, nil
	case []byte:
		return &node{kind: KindScalar, scalar: string(x)}, nil
	case nil, string, bool, int, int8, int16, int32, int64,
		uint, uint8, uint16, uint32, uint64, float32, float64:
		return &node{kind: KindScalar, scalar: x}, nil
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Interface:
		if rv.IsNil() {
			return &node{kind: KindScalar}, nil
		}
		return fromGo(rv.Elem().Interface())
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			return fromJSON(v)
		}
		n := &node{kind: KindObject, fields: make(map[string]*node, rv.Len())}
		iter := rv.MapRange()
		for iter.Next() {
			child, err := fromGo(iter.Value().Interface())
			if err != nil {
				return nil, err
			}
			n.fields[iter.Key().String()] = child
		}
		return n, nil
	case reflect.Slice, reflect.Array:
		if rv.Kind() == reflect.Slice && rv.IsNil() {
			return &node{kind: KindList}, nil
		}
		n := &node{kind: KindList, items: make([]*node, rv.Len())}
		for i := 0; i < rv.Len(); i++ {
			child, err := fromGo(rv.Index(i).Interface())
			if err != nil {
				return nil, err
			}
			n.items[i] = child
		}
		return n, nil
	case reflect.Struct:
		return fromJSON(v)
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64,
		reflect.Float32, reflect.Float64:
		// Named scalar types are values; nothing can alias them.
		return &node{kind: KindScalar, scalar: v}, nil
	}
	return nil, fmt.Errorf("unsupported value of type %T", v)
}

func fromJSON(v any) (*node, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("unsupported value of type %T: %w", v, err)
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil, err
	}
	return fromGo(plain)
}

// Of wraps a deep copy of Go data in a detached Value. Data that cannot
// be represented yields a missing Value.
func Of(v any) Value {
	n, err := fromGo(v)
	if err != nil {
		return Value{}
	}
	return Value{n: n}
}
