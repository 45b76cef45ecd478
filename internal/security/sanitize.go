package security

import (
	"encoding/json"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"
)

// Keys that can reach an object's prototype chain when a payload is merged
// by a consumer that treats maps as objects.
var dangerousKeys = map[string]bool{
	"__proto__":   true,
	"constructor": true,
	"prototype":   true,
}

// IsDangerousKey reports whether a key is stripped by SanitizeObject.
func IsDangerousKey(key string) bool {
	return dangerousKeys[key]
}

// SanitizeObject returns a copy of v with dangerous keys removed from every
// nested map, together with the sorted, dotted paths of the removed keys. Slices are
// walked element by element; list indices appear in paths as numbers.
// Pointers and interfaces are followed, and structs are copied into maps
// keyed by their JSON field names (or through their own JSON encoding), so the result shares no mutable memory
// with v. A pointer cycle is cut with nil. Scalars are returned unchanged.
func SanitizeObject(v any) (any, []string) {
	w := walker{visiting: make(map[uintptr]bool)}
	out := w.value(v, "")
	sort.Strings(w.stripped)
	return out, w.stripped
}

type walker struct {
	stripped []string
	visiting map[uintptr]bool
}

func (w *walker) value(v any, path string) any {
	switch t := v.(type) {
	case nil:
		return nil
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, child := range t {
			w.field(out, k, child, path)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, child := range t {
			out[i] = w.value(child, joinKey(path, strconv.Itoa(i)))
		}
		return out
	case []byte:
		return string(t)
	case string, bool, int, int64, float64:
		return v
	}

	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer:
		if rv.IsNil() {
			return nil
		}
		addr := rv.Pointer()
		if w.visiting[addr] {
			return nil
		}
		w.visiting[addr] = true
		defer delete(w.visiting, addr)
		return w.value(rv.Elem().Interface(), path)
	case reflect.Interface:
		if rv.IsNil() {
			return nil
		}
		return w.value(rv.Elem().Interface(), path)
	case reflect.Map:
		out := make(map[string]any, rv.Len())
		iter := rv.MapRange()
		for iter.Next() {
			k := iter.Key()
			key := fmt.Sprint(k.Interface())
			if k.Kind() == reflect.String {
				key = k.String()
			}
			w.field(out, key, iter.Value().Interface(), path)
		}
		return out
	case reflect.Slice, reflect.Array:
		out := make([]any, rv.Len())
		for i := 0; i < rv.Len(); i++ {
			out[i] = w.value(rv.Index(i).Interface(), joinKey(path, strconv.Itoa(i)))
		}
		return out
	case reflect.Struct:
		if m, ok := v.(json.Marshaler); ok {
			return w.marshaled(m, path)
		}
		out := make(map[string]any, rv.NumField())
		rt := rv.Type()
		for i := 0; i < rt.NumField(); i++ {
			f := rt.Field(i)
			if !f.IsExported() {
				continue
			}
			name, skip := jsonName(f)
			if skip {
				continue
			}
			w.field(out, name, rv.Field(i).Interface(), path)
		}
		return out
	default:
		return v
	}
}

// marshaled copies a struct with custom JSON encoding, such as time.Time,
// through that encoding.
func (w *walker) marshaled(m json.Marshaler, path string) any {
	data, err := m.MarshalJSON()
	if err != nil {
		return nil
	}
	var plain any
	if err := json.Unmarshal(data, &plain); err != nil {
		return nil
	}
	return w.value(plain, path)
}

func (w *walker) field(out map[string]any, key string, child any, path string) {
	p := joinKey(path, key)
	if dangerousKeys[key] {
		w.stripped = append(w.stripped, p)
		return
	}
	out[key] = w.value(child, p)
}

func jsonName(f reflect.StructField) (string, bool) {
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", true
	}
	if name, _, _ := strings.Cut(tag, ","); name != "" {
		return name, false
	}
	return f.Name, false
}

func joinKey(path, key string) string {
	if path == "" {
		return key
	}
	return path + "." + key
}
