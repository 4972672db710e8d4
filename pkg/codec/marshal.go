package codec

import (
	"encoding/base64"
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Marshal encodes args in the argument wire format understood by Decode.
// It is the client side of the codec and is used by Go callers and tests.
func Marshal(args ...any) ([]byte, error) {
	m := &marshaler{
		marks: newMarker(nil),
		index: make(map[refKey]int),
	}
	list := reflect.ValueOf(args)
	m.marks.mark(list, nil, 0)
	out := make([]any, len(args))
	for i := range args {
		v, err := m.value(list.Index(i), "$["+strconv.Itoa(i)+"]", 1)
		if err != nil {
			return nil, err
		}
		out[i] = v
	}
	return json.Marshal(out)
}

type marshaler struct {
	marks *marker
	index map[refKey]int
	next  int
}

func tag(t string, v any) map[string]any {
	return map[string]any{"$t": t, "v": v}
}

func (m *marshaler) value(v reflect.Value, path string, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, &CodecError{Path: path, Type: "depth", Err: ErrMaxDepth}
	}
	v = indirectInterface(v)
	if !v.IsValid() {
		return map[string]any{"$t": "undef"}, nil
	}
	t := v.Type()
	switch t {
	case undefType:
		return map[string]any{"$t": "undef"}, nil
	case nullTypeT:
		return nil, nil
	case timeType:
		return tag("date", v.Interface().(time.Time).UTC().Format(time.RFC3339Nano)), nil
	}
	if v.Kind() == reflect.Pointer && v.IsNil() {
		return nil, nil
	}
	if t.Kind() == reflect.Pointer && t.Elem() == bigIntType {
		return tag("bigint", v.Interface().(*big.Int).String()), nil
	}
	if t.Kind() == reflect.Pointer && t.Elem() == promiseType {
		return nil, unsupported(path, t.String())
	}
	if t.Implements(errorType) {
		err := v.Interface().(error)
		name, msg := "Error", err.Error()
		if ce, ok := err.(*Error); ok {
			msg = ce.Message
			if ce.Name != "" {
				name = ce.Name
			}
		}
		return map[string]any{"$t": "error", "n": name, "m": msg}, nil
	}

	// Shared containers carry an index; later occurrences become refs.
	var idx = -1
	if k, ok := identity(v); ok && m.marks.shared(k) {
		if i, seen := m.index[k]; seen {
			return map[string]any{"$t": "ref", "i": i}, nil
		}
		idx = m.next
		m.next++
		m.index[k] = idx
	}

	switch v.Kind() {
	case reflect.Bool:
		return v.Bool(), nil
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int(), nil
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint(), nil
	case reflect.Float32, reflect.Float64:
		f := v.Float()
		if math.IsNaN(f) || math.IsInf(f, 0) || (f == 0 && math.Signbit(f)) {
			return tag("num", formatFloat(f, 64)), nil
		}
		return f, nil
	case reflect.String:
		return v.String(), nil
	case reflect.Pointer:
		inner, err := m.value(v.Elem(), path, depth+1)
		if err != nil || idx < 0 {
			return inner, err
		}
		return indexed(inner, idx), nil
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			return nil, nil
		}
		return m.list(v, path, depth, idx)
	case reflect.Map:
		if v.IsNil() {
			return nil, nil
		}
		return m.object(v, path, depth, idx)
	case reflect.Struct:
		fields := make(map[string]any)
		for _, f := range cachedFields(t) {
			fv, err := v.FieldByIndexErr(f.index)
			if err != nil || (f.omitEmpty && isEmptyValue(fv)) {
				continue
			}
			w, err := m.value(fv, path+"."+f.name, depth+1)
			if err != nil {
				return nil, err
			}
			fields[f.name] = w
		}
		return indexed(fields, idx), nil
	}
	return nil, unsupported(path, t.String())
}

// indexed tags a container with its reference index.
func indexed(v any, idx int) any {
	if idx < 0 {
		return v
	}
	switch x := v.(type) {
	case map[string]any:
		if _, tagged := x["$t"]; tagged {
			return v
		}
		return map[string]any{"$t": "obj", "i": idx, "v": x}
	case []any:
		return map[string]any{"$t": "arr", "i": idx, "v": x}
	}
	return v
}

func (m *marshaler) list(v reflect.Value, path string, depth, idx int) (any, error) {
	t := v.Type()
	if t.Elem().Kind() == reflect.Uint8 {
		b := make([]byte, v.Len())
		reflect.Copy(reflect.ValueOf(b), v)
		return tag("bytes", base64.StdEncoding.EncodeToString(b)), nil
	}
	if t == mapType {
		pairs := make([]any, v.Len())
		for i := range pairs {
			e := v.Index(i)
			k, err := m.value(e.Field(0), fmt.Sprintf("%s<key %d>", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			val, err := m.value(e.Field(1), fmt.Sprintf("%s<value %d>", path, i), depth+1)
			if err != nil {
				return nil, err
			}
			pairs[i] = []any{k, val}
		}
		return tag("map", pairs), nil
	}
	items := make([]any, v.Len())
	for i := range items {
		w, err := m.value(v.Index(i), path+"["+strconv.Itoa(i)+"]", depth+1)
		if err != nil {
			return nil, err
		}
		items[i] = w
	}
	if t == setType {
		return tag("set", items), nil
	}
	return indexed(items, idx), nil
}

func (m *marshaler) object(v reflect.Value, path string, depth, idx int) (any, error) {
	keys := v.MapKeys()
	if v.Type().Key().Kind() != reflect.String {
		sort.Slice(keys, func(i, j int) bool {
			return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
		})
		pairs := make([]any, len(keys))
		for i, key := range keys {
			k, err := m.value(key, path, depth+1)
			if err != nil {
				return nil, err
			}
			val, err := m.value(v.MapIndex(key), fmt.Sprintf("%s<%v>", path, key.Interface()), depth+1)
			if err != nil {
				return nil, err
			}
			pairs[i] = []any{k, val}
		}
		return tag("map", pairs), nil
	}
	fields := make(map[string]any, len(keys))
	for _, key := range keys {
		w, err := m.value(v.MapIndex(key), path+"."+key.String(), depth+1)
		if err != nil {
			return nil, err
		}
		fields[key.String()] = w
	}
	return indexed(fields, idx), nil
}
