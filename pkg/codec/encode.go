package codec

import (
	"fmt"
	"math"
	"math/big"
	"reflect"
	"sort"
	"strconv"
	"strings"
	"time"
)

// anchor is the nearest slotted ancestor of the value being emitted plus
// the accessor path from it. Post-assignments for cycles hang off it.
type anchor struct {
	expr   string
	access string
}

func (a anchor) with(access string) anchor {
	if a.expr == "" {
		return a
	}
	return anchor{expr: a.expr, access: a.access + access}
}

// backRef is returned by encode when v is an ancestor still being emitted.
type backRef struct {
	slot int
}

func (b *backRef) Error() string { return "codec: back reference" }

// pending is a promise emitted as a deferred slot and not settled yet.
type pending struct {
	slot    int
	promise *Promise
}

// encoder turns Go values into JavaScript expressions bound to one scope.
// Slots persist across frames so later frames can reference earlier values.
type encoder struct {
	id      string
	scope   string
	slots   map[refKey]int
	next    int
	active  map[refKey]bool
	marks   *marker
	posts   []string
	pending []pending
}

func newEncoder(id string) *encoder {
	return &encoder{
		id:     id,
		scope:  "$R[" + quote(id) + "]",
		slots:  make(map[refKey]int),
		active: make(map[refKey]bool),
	}
}

func (e *encoder) slotRef(n int) string {
	return e.scope + "[" + strconv.Itoa(n) + "]"
}

func (e *encoder) alloc() int {
	n := e.next
	e.next++
	return n
}

// takePending returns promises discovered since the last call.
func (e *encoder) takePending() []pending {
	p := e.pending
	e.pending = nil
	return p
}

// expression encodes v as one self-contained expression. Cycles are closed
// with post-assignments and the value is yielded last.
func (e *encoder) expression(v any) (string, error) {
	rv := reflect.ValueOf(v)
	e.marks = newMarker(func(k refKey) bool {
		_, ok := e.slots[k]
		return ok
	})
	e.marks.mark(rv, nil, 0)
	e.posts = nil

	var b strings.Builder
	if err := e.encode(&b, rv, "$", 0, anchor{}); err != nil {
		if _, ok := err.(*backRef); ok {
			return "", &CodecError{Path: "$", Type: "cycle", Err: ErrUnsupported}
		}
		return "", err
	}
	if len(e.posts) == 0 {
		return b.String(), nil
	}
	ref := e.slotRef(e.alloc())
	return "(" + ref + "=" + b.String() + "," + strings.Join(e.posts, ",") + "," + ref + ")", nil
}

func (e *encoder) encode(b *strings.Builder, v reflect.Value, path string, depth int, a anchor) error {
	if depth > MaxDepth {
		return &CodecError{Path: path, Type: "depth", Err: ErrMaxDepth}
	}
	v = indirectInterface(v)
	if !v.IsValid() {
		b.WriteString("void 0")
		return nil
	}

	if v.Kind() == reflect.Pointer && v.Type().Elem() == promiseType && !v.IsNil() {
		return e.encodePromise(b, v, v.Interface().(*Promise))
	}

	if k, ok := identity(v); ok {
		if slot, seen := e.slots[k]; seen {
			if e.active[k] {
				return &backRef{slot: slot}
			}
			b.WriteString(e.slotRef(slot))
			return nil
		}
		if e.marks.shared(k) {
			slot := e.alloc()
			e.slots[k] = slot
			ref := e.slotRef(slot)
			b.WriteString(ref)
			b.WriteByte('=')
			a = anchor{expr: ref}
		}
		e.active[k] = true
		defer delete(e.active, k)
	}
	return e.encodeValue(b, v, path, depth, a)
}

func (e *encoder) encodePromise(b *strings.Builder, v reflect.Value, p *Promise) error {
	k, _ := identity(v)
	if slot, seen := e.slots[k]; seen {
		b.WriteString(e.slotRef(slot))
		return nil
	}
	slot := e.alloc()
	e.slots[k] = slot
	b.WriteString(e.slotRef(slot))
	b.WriteString("=$R.d()")
	e.pending = append(e.pending, pending{slot: slot, promise: p})
	return nil
}

func (e *encoder) encodeValue(b *strings.Builder, v reflect.Value, path string, depth int, a anchor) error {
	t := v.Type()
	switch t {
	case undefType:
		b.WriteString("void 0")
		return nil
	case nullTypeT:
		b.WriteString("null")
		return nil
	case timeType:
		b.WriteString("new Date(")
		b.WriteString(quote(v.Interface().(time.Time).UTC().Format(time.RFC3339Nano)))
		b.WriteByte(')')
		return nil
	}

	if v.Kind() == reflect.Pointer && v.IsNil() {
		b.WriteString("null")
		return nil
	}
	if t.Kind() == reflect.Pointer && t.Elem() == bigIntType {
		b.WriteString(v.Interface().(*big.Int).String())
		b.WriteByte('n')
		return nil
	}
	if t.Implements(errorType) {
		b.WriteString(errorExpr(v.Interface().(error)))
		return nil
	}

	switch v.Kind() {
	case reflect.Bool:
		b.WriteString(strconv.FormatBool(v.Bool()))
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		b.WriteString(strconv.FormatInt(v.Int(), 10))
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr:
		b.WriteString(strconv.FormatUint(v.Uint(), 10))
	case reflect.Float32:
		b.WriteString(formatFloat(v.Float(), 32))
	case reflect.Float64:
		b.WriteString(formatFloat(v.Float(), 64))
	case reflect.String:
		b.WriteString(quote(v.String()))
	case reflect.Pointer:
		return e.encode(b, v.Elem(), path, depth+1, a)
	case reflect.Slice, reflect.Array:
		if v.Kind() == reflect.Slice && v.IsNil() {
			b.WriteString("null")
			return nil
		}
		return e.encodeList(b, v, path, depth, a)
	case reflect.Map:
		if v.IsNil() {
			b.WriteString("null")
			return nil
		}
		return e.encodeMap(b, v, path, depth, a)
	case reflect.Struct:
		return e.encodeStruct(b, v, path, depth, a)
	default:
		return unsupported(path, t.String())
	}
	return nil
}

// child encodes a nested value, turning a back reference into a
// placeholder plus a post-assignment.
func (e *encoder) child(b *strings.Builder, v reflect.Value, path string, depth int, a anchor, access string) error {
	err := e.encode(b, v, path, depth+1, a.with(access))
	br, ok := err.(*backRef)
	if !ok {
		return err
	}
	if a.expr == "" {
		return &CodecError{Path: path, Type: "cycle", Err: ErrUnsupported}
	}
	b.WriteString("void 0")
	e.posts = append(e.posts, a.expr+a.access+access+"="+e.slotRef(br.slot))
	return nil
}

func (e *encoder) encodeList(b *strings.Builder, v reflect.Value, path string, depth int, a anchor) error {
	t := v.Type()
	switch {
	case t.Elem().Kind() == reflect.Uint8:
		b.WriteString("new Uint8Array([")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			b.WriteString(strconv.FormatUint(v.Index(i).Uint(), 10))
		}
		b.WriteString("])")
		return nil
	case t == mapType:
		b.WriteString("new Map([")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			entry := v.Index(i)
			b.WriteByte('[')
			if err := e.child(b, entry.Field(0), fmt.Sprintf("%s<key %d>", path, i), depth, anchor{}, ""); err != nil {
				return err
			}
			b.WriteByte(',')
			if err := e.child(b, entry.Field(1), fmt.Sprintf("%s<value %d>", path, i), depth, anchor{}, ""); err != nil {
				return err
			}
			b.WriteByte(']')
		}
		b.WriteString("])")
		return nil
	case t == setType:
		b.WriteString("new Set([")
		for i := 0; i < v.Len(); i++ {
			if i > 0 {
				b.WriteByte(',')
			}
			if err := e.child(b, v.Index(i), fmt.Sprintf("%s<%d>", path, i), depth, anchor{}, ""); err != nil {
				return err
			}
		}
		b.WriteString("])")
		return nil
	}

	b.WriteByte('[')
	for i := 0; i < v.Len(); i++ {
		if i > 0 {
			b.WriteByte(',')
		}
		access := "[" + strconv.Itoa(i) + "]"
		if err := e.child(b, v.Index(i), path+access, depth, a, access); err != nil {
			return err
		}
	}
	b.WriteByte(']')
	return nil
}

func (e *encoder) encodeMap(b *strings.Builder, v reflect.Value, path string, depth int, a anchor) error {
	keys := v.MapKeys()
	if v.Type().Key().Kind() == reflect.String {
		sort.Slice(keys, func(i, j int) bool { return keys[i].String() < keys[j].String() })
		b.WriteByte('{')
		for i, key := range keys {
			if i > 0 {
				b.WriteByte(',')
			}
			name := quote(key.String())
			b.WriteString(name)
			b.WriteByte(':')
			access := "[" + name + "]"
			if err := e.child(b, v.MapIndex(key), path+access, depth, a, access); err != nil {
				return err
			}
		}
		b.WriteByte('}')
		return nil
	}

	sort.Slice(keys, func(i, j int) bool {
		return fmt.Sprint(keys[i].Interface()) < fmt.Sprint(keys[j].Interface())
	})
	b.WriteString("new Map([")
	for i, key := range keys {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteByte('[')
		if err := e.child(b, key, fmt.Sprintf("%s<key %v>", path, key.Interface()), depth, anchor{}, ""); err != nil {
			return err
		}
		b.WriteByte(',')
		if err := e.child(b, v.MapIndex(key), fmt.Sprintf("%s<%v>", path, key.Interface()), depth, anchor{}, ""); err != nil {
			return err
		}
		b.WriteByte(']')
	}
	b.WriteString("])")
	return nil
}

func (e *encoder) encodeStruct(b *strings.Builder, v reflect.Value, path string, depth int, a anchor) error {
	b.WriteByte('{')
	first := true
	for _, f := range cachedFields(v.Type()) {
		fv, err := v.FieldByIndexErr(f.index)
		if err != nil {
			continue
		}
		if f.omitEmpty && isEmptyValue(fv) {
			continue
		}
		if !first {
			b.WriteByte(',')
		}
		first = false
		name := quote(f.name)
		b.WriteString(name)
		b.WriteByte(':')
		access := "[" + name + "]"
		if err := e.child(b, fv, path+"."+f.name, depth, a, access); err != nil {
			return err
		}
	}
	b.WriteByte('}')
	return nil
}

// errorExpr renders err as a JavaScript Error object.
func errorExpr(err error) string {
	name := "Error"
	msg := err.Error()
	if ce, ok := err.(*Error); ok {
		msg = ce.Message
		if ce.Name != "" {
			name = ce.Name
		}
	}
	return "Object.assign(new Error(" + quote(msg) + "),{name:" + quote(name) + "})"
}

func formatFloat(f float64, bits int) string {
	switch {
	case math.IsNaN(f):
		return "NaN"
	case math.IsInf(f, 1):
		return "Infinity"
	case math.IsInf(f, -1):
		return "-Infinity"
	case f == 0 && math.Signbit(f):
		return "-0"
	}
	return strconv.FormatFloat(f, 'g', -1, bits)
}

// quote returns s as a double-quoted JavaScript string literal that is safe
// to embed inside a script element.
func quote(s string) string {
	var b strings.Builder
	b.Grow(len(s) + 2)
	b.WriteByte('"')
	for _, r := range s {
		switch r {
		case '"':
			b.WriteString(`\"`)
		case '\\':
			b.WriteString(`\\`)
		case '\n':
			b.WriteString(`\n`)
		case '\r':
			b.WriteString(`\r`)
		case '\t':
			b.WriteString(`\t`)
		case '<':
			b.WriteString(`\x3C`)
		case '\u2028':
			b.WriteString(`\u2028`)
		case '\u2029':
			b.WriteString(`\u2029`)
		default:
			if r < 0x20 || r == 0x7f {
				fmt.Fprintf(&b, `\x%02X`, r)
				continue
			}
			b.WriteRune(r)
		}
	}
	b.WriteByte('"')
	return b.String()
}

// Quote is the JavaScript string literal form used in frames. Callers that
// inject scripts use it to embed URLs and ids.
func Quote(s string) string {
	return quote(s)
}
