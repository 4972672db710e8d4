package codec

import (
	"bytes"
	"encoding/base64"
	"math"
	"math/big"
	"strconv"
	"time"

	"github.com/goccy/go-json"
)

// Decode parses an argument payload. A top-level array is the argument
// list; any other value is a single argument. An empty payload has no
// arguments.
//
// Objects decode to map[string]any, arrays to []any, numbers to float64,
// null to Null and undefined to Undefined.
func Decode(raw []byte) ([]any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return nil, nil
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.UseNumber()
	var doc any
	if err := dec.Decode(&doc); err != nil {
		return nil, &CodecError{Type: "json", Err: err}
	}

	d := &decoder{refs: make(map[int64]any)}
	v, err := d.value(doc, "$", 0)
	if err != nil {
		return nil, err
	}
	if args, ok := v.([]any); ok {
		if _, tagged := doc.(map[string]any); !tagged {
			return args, nil
		}
	}
	return []any{v}, nil
}

type decoder struct {
	refs map[int64]any
}

func (d *decoder) value(v any, path string, depth int) (any, error) {
	if depth > MaxDepth {
		return nil, &CodecError{Path: path, Type: "depth", Err: ErrMaxDepth}
	}
	switch x := v.(type) {
	case nil:
		return Null, nil
	case bool, string:
		return x, nil
	case json.Number:
		f, err := strconv.ParseFloat(string(x), 64)
		if err != nil {
			return nil, &CodecError{Path: path, Type: "number", Err: err}
		}
		return f, nil
	case []any:
		out := make([]any, len(x))
		if err := d.fillArray(out, x, path, depth); err != nil {
			return nil, err
		}
		return out, nil
	case map[string]any:
		tag, ok := x["$t"].(string)
		if !ok {
			out := make(map[string]any, len(x))
			if err := d.fillObject(out, x, path, depth); err != nil {
				return nil, err
			}
			return out, nil
		}
		return d.tagged(tag, x, path, depth)
	}
	return nil, unsupported(path, "json")
}

func (d *decoder) fillArray(out, in []any, path string, depth int) error {
	for i, elem := range in {
		v, err := d.value(elem, path+"["+strconv.Itoa(i)+"]", depth+1)
		if err != nil {
			return err
		}
		out[i] = v
	}
	return nil
}

func (d *decoder) fillObject(out, in map[string]any, path string, depth int) error {
	for k, elem := range in {
		v, err := d.value(elem, path+"."+k, depth+1)
		if err != nil {
			return err
		}
		out[k] = v
	}
	return nil
}

func (d *decoder) tagged(tag string, node map[string]any, path string, depth int) (any, error) {
	bad := func(err error) (any, error) {
		if err == nil {
			err = ErrUnsupported
		}
		return nil, &CodecError{Path: path, Type: tag, Err: err}
	}
	str, _ := node["v"].(string)

	switch tag {
	case "undef":
		return Undefined, nil

	case "num":
		switch str {
		case "NaN":
			return math.NaN(), nil
		case "Infinity":
			return math.Inf(1), nil
		case "-Infinity":
			return math.Inf(-1), nil
		case "-0":
			return math.Copysign(0, -1), nil
		}
		return bad(nil)

	case "date":
		t, err := time.Parse(time.RFC3339Nano, str)
		if err != nil {
			return bad(err)
		}
		return t, nil

	case "bigint":
		n, ok := new(big.Int).SetString(str, 10)
		if !ok {
			return bad(nil)
		}
		return n, nil

	case "error":
		name, _ := node["n"].(string)
		msg, _ := node["m"].(string)
		return &Error{Name: name, Message: msg}, nil

	case "bytes":
		b, err := base64.StdEncoding.DecodeString(str)
		if err != nil {
			return bad(err)
		}
		return b, nil

	case "set":
		items, ok := node["v"].([]any)
		if !ok {
			return bad(nil)
		}
		out := make(Set, len(items))
		if err := d.fillArray(out, items, path, depth); err != nil {
			return nil, err
		}
		return out, nil

	case "map":
		pairs, ok := node["v"].([]any)
		if !ok {
			return bad(nil)
		}
		out := make(Map, 0, len(pairs))
		for i, p := range pairs {
			kv, ok := p.([]any)
			if !ok || len(kv) != 2 {
				return bad(nil)
			}
			entryPath := path + "<" + strconv.Itoa(i) + ">"
			k, err := d.value(kv[0], entryPath, depth+1)
			if err != nil {
				return nil, err
			}
			v, err := d.value(kv[1], entryPath, depth+1)
			if err != nil {
				return nil, err
			}
			out = append(out, Entry{Key: k, Value: v})
		}
		return out, nil

	case "obj":
		fields, ok := node["v"].(map[string]any)
		if !ok {
			return bad(nil)
		}
		out := make(map[string]any, len(fields))
		if idx, ok := index(node); ok {
			d.refs[idx] = out
		}
		if err := d.fillObject(out, fields, path, depth); err != nil {
			return nil, err
		}
		return out, nil

	case "arr":
		items, ok := node["v"].([]any)
		if !ok {
			return bad(nil)
		}
		out := make([]any, len(items))
		if idx, ok := index(node); ok {
			d.refs[idx] = out
		}
		if err := d.fillArray(out, items, path, depth); err != nil {
			return nil, err
		}
		return out, nil

	case "ref":
		idx, ok := index(node)
		if !ok {
			return bad(nil)
		}
		v, ok := d.refs[idx]
		if !ok {
			return nil, &CodecError{Path: path, Type: tag, Err: unknownRef(idx)}
		}
		return v, nil
	}
	return bad(nil)
}

func index(node map[string]any) (int64, bool) {
	n, ok := node["i"].(json.Number)
	if !ok {
		return 0, false
	}
	i, err := n.Int64()
	return i, err == nil
}

type unknownRef int64

func (u unknownRef) Error() string {
	return "unknown reference " + strconv.FormatInt(int64(u), 10)
}
