package script

import (
	"reflect"
	"strconv"
	"time"

	lua "github.com/yuin/gopher-lua"

	"github.com/dshills/switchboard"
)

// toGo converts a Lua value to plain Go data. Integral numbers become
// int64, sequence tables become []any and other tables map[string]any.
// Functions and cyclic references become nil.
func toGo(lv lua.LValue) any {
	return toGoVisited(lv, make(map[*lua.LTable]bool))
}

func toGoVisited(lv lua.LValue, visited map[*lua.LTable]bool) any {
	switch v := lv.(type) {
	case nil:
		return nil
	case lua.LBool:
		return bool(v)
	case lua.LNumber:
		f := float64(v)
		if f == float64(int64(f)) {
			return int64(f)
		}
		return f
	case lua.LString:
		return string(v)
	case *lua.LTable:
		if visited[v] {
			return nil
		}
		visited[v] = true
		defer delete(visited, v)
		return tableToGo(v, visited)
	case *lua.LUserData:
		return v.Value
	default:
		return nil
	}
}

// tableToGo converts a table to a slice if its keys are exactly 1..n,
// otherwise to a map.
func tableToGo(t *lua.LTable, visited map[*lua.LTable]bool) any {
	isArray := true
	count, maxN := 0, 0
	t.ForEach(func(k, _ lua.LValue) {
		count++
		if kn, ok := k.(lua.LNumber); ok {
			n := int(kn)
			if float64(n) == float64(kn) && n > 0 {
				if n > maxN {
					maxN = n
				}
				return
			}
		}
		isArray = false
	})

	if isArray && maxN > 0 && count == maxN {
		arr := make([]any, maxN)
		for i := 1; i <= maxN; i++ {
			arr[i-1] = toGoVisited(t.RawGetInt(i), visited)
		}
		return arr
	}

	m := make(map[string]any, count)
	t.ForEach(func(k, v lua.LValue) {
		var key string
		switch kv := k.(type) {
		case lua.LString:
			key = string(kv)
		case lua.LNumber:
			key = strconv.FormatFloat(float64(kv), 'f', -1, 64)
		default:
			key = k.String()
		}
		m[key] = toGoVisited(v, visited)
	})
	return m
}

// toLua converts Go data to a Lua value.
func toLua(L *lua.LState, v any) lua.LValue {
	switch val := v.(type) {
	case nil:
		return lua.LNil
	case lua.LValue:
		return val
	case bool:
		return lua.LBool(val)
	case string:
		return lua.LString(val)
	case []byte:
		return lua.LString(val)
	case int:
		return lua.LNumber(val)
	case int8:
		return lua.LNumber(val)
	case int16:
		return lua.LNumber(val)
	case int32:
		return lua.LNumber(val)
	case int64:
		return lua.LNumber(val)
	case uint:
		return lua.LNumber(val)
	case uint8:
		return lua.LNumber(val)
	case uint16:
		return lua.LNumber(val)
	case uint32:
		return lua.LNumber(val)
	case uint64:
		return lua.LNumber(val)
	case float32:
		return lua.LNumber(val)
	case float64:
		return lua.LNumber(val)
	case time.Time:
		return lua.LString(val.Format(time.RFC3339Nano))
	case switchboard.Value:
		return toLua(L, val.Interface())
	case []any:
		t := L.NewTable()
		for i, item := range val {
			t.RawSetInt(i+1, toLua(L, item))
		}
		return t
	case map[string]any:
		t := L.NewTable()
		for k, item := range val {
			t.RawSetString(k, toLua(L, item))
		}
		return t
	}
	return reflectToLua(L, v)
}

// reflectToLua uses reflection for typed slices and string-keyed maps.
func reflectToLua(L *lua.LState, v any) lua.LValue {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Ptr:
		if rv.IsNil() {
			return lua.LNil
		}
		return toLua(L, rv.Elem().Interface())
	case reflect.Slice, reflect.Array:
		t := L.NewTable()
		for i := 0; i < rv.Len(); i++ {
			t.RawSetInt(i+1, toLua(L, rv.Index(i).Interface()))
		}
		return t
	case reflect.Map:
		if rv.Type().Key().Kind() != reflect.String {
			break
		}
		t := L.NewTable()
		iter := rv.MapRange()
		for iter.Next() {
			t.RawSetString(iter.Key().String(), toLua(L, iter.Value().Interface()))
		}
		return t
	}
	ud := L.NewUserData()
	ud.Value = v
	return ud
}

// eventTable converts an event for a Lua handler.
func eventTable(L *lua.LState, e switchboard.Event) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("id", lua.LString(e.ID))
	t.RawSetString("name", lua.LString(e.Name))
	t.RawSetString("source", lua.LString(e.Source))
	t.RawSetString("payload", toLua(L, e.Payload))
	t.RawSetString("priority", lua.LString(e.Priority.String()))
	t.RawSetString("replayed", lua.LBool(e.Replayed))
	return t
}

// changeTable converts a state change for a Lua callback.
func changeTable(L *lua.LState, c switchboard.Change) *lua.LTable {
	t := L.NewTable()
	t.RawSetString("path", lua.LString(c.Path))
	t.RawSetString("changed_path", lua.LString(c.ChangedPath))
	t.RawSetString("type", lua.LString(c.Type.String()))
	t.RawSetString("value", toLua(L, c.Value.Interface()))
	t.RawSetString("old_value", toLua(L, c.OldValue.Interface()))
	t.RawSetString("source", lua.LString(c.Source))
	return t
}
