package codec

import (
	"math/big"
	"reflect"
	"strings"
	"sync"
	"time"
)

var (
	errorType   = reflect.TypeOf((*error)(nil)).Elem()
	timeType    = reflect.TypeOf(time.Time{})
	bigIntType  = reflect.TypeOf(big.Int{})
	promiseType = reflect.TypeOf(Promise{})
	undefType   = reflect.TypeOf(undefinedType{})
	nullTypeT   = reflect.TypeOf(nullType{})
	setType     = reflect.TypeOf(Set(nil))
	mapType     = reflect.TypeOf(Map(nil))
)

// refKey identifies a value whose identity is observable on the client:
// pointers, maps and non-empty slices.
type refKey struct {
	typ reflect.Type
	ptr uintptr
	n   int
}

// identity returns the identity key of v, if it has one.
func identity(v reflect.Value) (refKey, bool) {
	switch v.Kind() {
	case reflect.Pointer:
		if v.IsNil() || v.Type().Elem() == bigIntType {
			return refKey{}, false
		}
		return refKey{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Map:
		if v.IsNil() {
			return refKey{}, false
		}
		return refKey{typ: v.Type(), ptr: v.Pointer()}, true
	case reflect.Slice:
		if v.IsNil() || v.Len() == 0 || v.Type().Elem().Kind() == reflect.Uint8 {
			return refKey{}, false
		}
		return refKey{typ: v.Type(), ptr: v.Pointer(), n: v.Len()}, true
	}
	return refKey{}, false
}

// isLeaf reports whether v is encoded without visiting children.
func isLeaf(v reflect.Value) bool {
	t := v.Type()
	switch t {
	case timeType, undefType, nullTypeT:
		return true
	}
	if t.Kind() == reflect.Pointer && (t.Elem() == bigIntType || t.Elem() == promiseType) {
		return true
	}
	return t.Implements(errorType)
}

// indirectInterface unwraps interface values.
func indirectInterface(v reflect.Value) reflect.Value {
	for v.IsValid() && v.Kind() == reflect.Interface {
		if v.IsNil() {
			return reflect.Value{}
		}
		v = v.Elem()
	}
	return v
}

// marker counts how often each identity is reachable so shared values can
// be emitted once and referenced afterwards.
type marker struct {
	counts   map[refKey]int
	needSlot map[refKey]bool
	onStack  map[refKey]bool
	known    func(refKey) bool
}

func newMarker(known func(refKey) bool) *marker {
	return &marker{
		counts:   make(map[refKey]int),
		needSlot: make(map[refKey]bool),
		onStack:  make(map[refKey]bool),
		known:    known,
	}
}

// shared reports whether k must be stored in a slot.
func (m *marker) shared(k refKey) bool {
	return m.counts[k] > 1 || m.needSlot[k]
}

func (m *marker) mark(v reflect.Value, anchor *refKey, depth int) {
	v = indirectInterface(v)
	if !v.IsValid() || depth > MaxDepth {
		return
	}
	if k, ok := identity(v); ok {
		if m.known != nil && m.known(k) {
			return
		}
		m.counts[k]++
		if m.onStack[k] {
			if anchor != nil {
				m.needSlot[*anchor] = true
			}
			return
		}
		if m.counts[k] > 1 {
			return
		}
		m.onStack[k] = true
		defer delete(m.onStack, k)
		anchor = &k
	}
	if isLeaf(v) {
		return
	}
	switch v.Kind() {
	case reflect.Pointer:
		m.mark(v.Elem(), anchor, depth+1)
	case reflect.Slice, reflect.Array:
		if v.Type().Elem().Kind() == reflect.Uint8 {
			return
		}
		if v.Type() == mapType {
			for i := 0; i < v.Len(); i++ {
				m.mark(v.Index(i).Field(0), anchor, depth+1)
				m.mark(v.Index(i).Field(1), anchor, depth+1)
			}
			return
		}
		for i := 0; i < v.Len(); i++ {
			m.mark(v.Index(i), anchor, depth+1)
		}
	case reflect.Map:
		iter := v.MapRange()
		for iter.Next() {
			m.mark(iter.Key(), anchor, depth+1)
			m.mark(iter.Value(), anchor, depth+1)
		}
	case reflect.Struct:
		for _, f := range cachedFields(v.Type()) {
			fv, err := v.FieldByIndexErr(f.index)
			if err != nil {
				continue
			}
			m.mark(fv, anchor, depth+1)
		}
	}
}

// field describes one encoded struct field.
type field struct {
	name      string
	index     []int
	omitEmpty bool
}

var fieldCache sync.Map // map[reflect.Type][]field

// cachedFields returns the encoded fields of a struct type, honouring json
// tags and flattening untagged embedded structs.
func cachedFields(t reflect.Type) []field {
	if f, ok := fieldCache.Load(t); ok {
		return f.([]field)
	}
	fields := typeFields(t, nil)
	f, _ := fieldCache.LoadOrStore(t, fields)
	return f.([]field)
}

func typeFields(t reflect.Type, prefix []int) []field {
	var out []field
	for i := 0; i < t.NumField(); i++ {
		sf := t.Field(i)
		tag := sf.Tag.Get("json")
		if tag == "-" {
			continue
		}
		name, opts, _ := strings.Cut(tag, ",")
		index := append(append([]int(nil), prefix...), i)

		if sf.Anonymous && name == "" {
			ft := sf.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				out = append(out, typeFields(ft, index)...)
				continue
			}
		}
		if !sf.IsExported() {
			continue
		}
		if name == "" {
			name = sf.Name
		}
		out = append(out, field{
			name:      name,
			index:     index,
			omitEmpty: strings.Contains(opts, "omitempty"),
		})
	}
	return out
}

// isEmptyValue mirrors encoding/json's omitempty rules.
func isEmptyValue(v reflect.Value) bool {
	switch v.Kind() {
	case reflect.Array, reflect.Map, reflect.Slice, reflect.String:
		return v.Len() == 0
	case reflect.Bool:
		return !v.Bool()
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return v.Int() == 0
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		return v.Uint() == 0
	case reflect.Float32, reflect.Float64:
		return v.Float() == 0
	case reflect.Interface, reflect.Pointer:
		return v.IsNil()
	}
	return false
}
