package codec

import (
	"context"
	"errors"
	"io"
	"math"
	"math/big"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func encodeString(t *testing.T, v any) string {
	t.Helper()
	out, err := Encode(context.Background(), "s", v)
	if err != nil {
		t.Fatalf("Encode() error = %v", err)
	}
	return string(out)
}

func TestEncodeValues(t *testing.T) {
	type user struct {
		Name  string `json:"name"`
		Email string `json:"email,omitempty"`
		Age   int
		skip  bool
	}

	tests := []struct {
		name  string
		value any
		want  string
	}{
		{"undefined", nil, "void 0"},
		{"explicit undefined", Undefined, "void 0"},
		{"null", Null, "null"},
		{"nil map", map[string]int(nil), "null"},
		{"bool", true, "true"},
		{"int", -42, "-42"},
		{"float", 1.5, "1.5"},
		{"nan", math.NaN(), "NaN"},
		{"inf", math.Inf(-1), "-Infinity"},
		{"negative zero", math.Copysign(0, -1), "-0"},
		{"string", "a\"b\n", `"a\"b\n"`},
		{"script close", "</script>", `"\x3C/script>"`},
		{"line separator", "a\u2028b", `"a\u2028b"`},
		{"bytes", []byte{1, 2}, "new Uint8Array([1,2])"},
		{"slice", []int{1, 2}, "[1,2]"},
		{"empty slice", []int{}, "[]"},
		{"sorted object", map[string]int{"b": 2, "a": 1}, `{"a":1,"b":2}`},
		{"int keys", map[int]string{2: "b", 1: "a"}, `new Map([[1,"a"],[2,"b"]])`},
		{"set", Set{"a", 1}, `new Set(["a",1])`},
		{"map", Map{{Key: []int{1}, Value: "x"}}, `new Map([[[1],"x"]])`},
		{"struct", user{Name: "ada", Age: 36}, `{"name":"ada","Age":36}`},
		{"date", time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC), `new Date("2024-01-02T03:04:05Z")`},
		{"bigint", big.NewInt(123), "123n"},
		{"error", errors.New("boom"), `Object.assign(new Error("boom"),{name:"Error"})`},
		{"named error", &Error{Name: "TypeError", Message: "bad"}, `Object.assign(new Error("bad"),{name:"TypeError"})`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := encodeString(t, tt.value)
			want := `($R["s"]=[],` + tt.want + ");\n" + `delete $R["s"];` + "\n"
			if got != want {
				t.Errorf("Encode() = %q, want %q", got, want)
			}
		})
	}
}

func TestEncodeSharedReference(t *testing.T) {
	type item struct {
		Name string `json:"name"`
	}
	shared := &item{Name: "a"}

	got := encodeString(t, []any{shared, shared})
	want := `($R["s"]=[],[$R["s"][0]={"name":"a"},$R["s"][0]]);` + "\n" + `delete $R["s"];` + "\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeCycle(t *testing.T) {
	type node struct {
		Name string `json:"name"`
		Self *node  `json:"self"`
	}
	n := &node{Name: "a"}
	n.Self = n

	got := encodeString(t, n)
	want := `($R["s"]=[],($R["s"][1]=$R["s"][0]={"name":"a","self":void 0},$R["s"][0]["self"]=$R["s"][0],$R["s"][1]));` + "\n" +
		`delete $R["s"];` + "\n"
	if got != want {
		t.Errorf("Encode() = %q, want %q", got, want)
	}
}

func TestEncodeCycleThroughSlice(t *testing.T) {
	list := make([]any, 2)
	list[0] = "x"
	list[1] = list

	got := encodeString(t, list)
	if !strings.Contains(got, `$R["s"][0][1]=$R["s"][0]`) {
		t.Errorf("Encode() = %q, want post-assignment closing the cycle", got)
	}
}

func TestEncodeUnsupported(t *testing.T) {
	for name, v := range map[string]any{
		"func":    func() {},
		"chan":    make(chan int),
		"complex": complex(1, 2),
		"nested":  map[string]any{"cb": func() {}},
	} {
		t.Run(name, func(t *testing.T) {
			got := encodeString(t, v)
			if !strings.HasPrefix(got, `$R["s"]=[];`+"\n") {
				t.Errorf("first frame = %q, want marker frame", got)
			}
			if !strings.Contains(got, `$R.e("s",`) || !strings.HasSuffix(got, `delete $R["s"];`+"\n") {
				t.Errorf("Encode() = %q, want error frame last", got)
			}
			if !strings.Contains(got, "unsupported value") {
				t.Errorf("Encode() = %q, want codec error message", got)
			}
		})
	}
}

func TestExpressionReturnsCodecError(t *testing.T) {
	_, err := newEncoder("s").expression(map[string]any{"cb": func() {}})
	var ce *CodecError
	if !errors.As(err, &ce) {
		t.Fatalf("expression() error = %v, want *CodecError", err)
	}
	if ce.Path != `$["cb"]` {
		t.Errorf("Path = %q, want %q", ce.Path, `$["cb"]`)
	}
	if !errors.Is(err, ErrUnsupported) {
		t.Errorf("errors.Is(err, ErrUnsupported) = false")
	}
}

func TestStreamPromise(t *testing.T) {
	p := NewPromise()
	s := EncodeStream(context.Background(), "s", map[string]any{"user": p})
	defer s.Close()

	frames := []string{
		`($R["s"]=[],{"user":$R["s"][0]=$R.d()});` + "\n",
		`$R.r($R["s"][0],"ada");` + "\n",
		`delete $R["s"];` + "\n",
	}

	frame, err := s.Next()
	if err != nil || string(frame) != frames[0] {
		t.Fatalf("Next() = %q, %v, want %q", frame, err, frames[0])
	}
	p.Resolve("ada")
	for _, want := range frames[1:] {
		frame, err := s.Next()
		if err != nil || string(frame) != want {
			t.Fatalf("Next() = %q, %v, want %q", frame, err, want)
		}
	}
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("Next() after terminal error = %v, want io.EOF", err)
	}
}

func TestStreamNestedPromise(t *testing.T) {
	inner := Resolved(2)
	outer := Resolved(map[string]any{"n": inner})

	out, err := io.ReadAll(EncodeStream(context.Background(), "s", outer))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	want := `($R["s"]=[],$R["s"][0]=$R.d());` + "\n" +
		`$R.r($R["s"][0],{"n":$R["s"][1]=$R.d()});` + "\n" +
		`$R.r($R["s"][1],2);` + "\n" +
		`delete $R["s"];` + "\n"
	if string(out) != want {
		t.Errorf("stream = %q, want %q", out, want)
	}
}

func TestStreamReject(t *testing.T) {
	p := NewPromise()
	p.Reject(&Error{Name: "TypeError", Message: "nope"})

	out, err := io.ReadAll(EncodeStream(context.Background(), "s", p))
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if !strings.Contains(string(out), `$R.j($R["s"][0],Object.assign(new Error("nope"),{name:"TypeError"}));`) {
		t.Errorf("stream = %q, want reject frame", out)
	}
	if !strings.HasSuffix(string(out), `delete $R["s"];`+"\n") {
		t.Errorf("stream = %q, want close frame last", out)
	}
}

func TestStreamContextCanceled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	s := EncodeStream(ctx, "s", NewPromise())

	if _, err := s.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	cancel()
	frame, err := s.Next()
	if err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !strings.HasPrefix(string(frame), `$R.e("s",`) || !strings.Contains(string(frame), "context canceled") {
		t.Errorf("Next() = %q, want error frame", frame)
	}
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("Next() = %v, want io.EOF", err)
	}
}

func TestStreamCloseBeforeTerminal(t *testing.T) {
	reg := NewRegistry(nil)
	s := EncodeStream(context.Background(), "s", NewPromise(), WithRegistry(reg))

	if _, err := s.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}
	if !reg.IsOpen("s") {
		t.Fatal("scope not open after initial frame")
	}
	s.Close()

	if reg.Len() != 0 {
		t.Errorf("Len() = %d, want 0", reg.Len())
	}
	if reg.Violations() != 1 {
		t.Errorf("Violations() = %d, want 1", reg.Violations())
	}
	if _, err := s.Next(); err != io.EOF {
		t.Errorf("Next() after Close = %v, want io.EOF", err)
	}
}

func TestStreamCloseAfterTerminal(t *testing.T) {
	reg := NewRegistry(nil)
	s := EncodeStream(context.Background(), "s", 1, WithRegistry(reg))
	if _, err := io.ReadAll(s); err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	s.Close()
	if reg.Violations() != 0 {
		t.Errorf("Violations() = %d, want 0", reg.Violations())
	}
}

func TestStreamScopeInUse(t *testing.T) {
	reg := NewRegistry(nil)
	a := EncodeStream(context.Background(), "s", NewPromise(), WithRegistry(reg))
	defer a.Close()
	if _, err := a.Next(); err != nil {
		t.Fatalf("Next() error = %v", err)
	}

	b := EncodeStream(context.Background(), "s", 1, WithRegistry(reg))
	if err := b.Open(); !errors.Is(err, ErrScopeInUse) {
		t.Errorf("Open() error = %v, want ErrScopeInUse", err)
	}
	out, err := io.ReadAll(b)
	if err != nil {
		t.Fatalf("ReadAll() error = %v", err)
	}
	if got := string(out); !strings.HasPrefix(got, `$R.e("s",`) || strings.Contains(got, "delete") {
		t.Errorf("frames = %q, want a lone error frame", got)
	}
	if !reg.IsOpen("s") || reg.Len() != 1 {
		t.Errorf("first stream's scope was released")
	}
	if reg.Violations() != 0 {
		t.Errorf("Violations() = %d, want 0", reg.Violations())
	}
}

func TestStreamWriteToFlushes(t *testing.T) {
	rec := httptest.NewRecorder()
	n, err := EncodeStream(context.Background(), "s", Resolved("x")).WriteTo(rec)
	if err != nil {
		t.Fatalf("WriteTo() error = %v", err)
	}
	if n != int64(rec.Body.Len()) {
		t.Errorf("WriteTo() = %d, want %d", n, rec.Body.Len())
	}
	if !rec.Flushed {
		t.Error("WriteTo() did not flush")
	}
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("broken pipe") }

func TestStreamWriteToAbortsOnWriteError(t *testing.T) {
	reg := NewRegistry(nil)
	s := EncodeStream(context.Background(), "s", NewPromise(), WithRegistry(reg))
	if _, err := s.WriteTo(failingWriter{}); err == nil {
		t.Fatal("WriteTo() error = nil, want write error")
	}
	if reg.Len() != 0 || reg.Violations() != 0 {
		t.Errorf("Len() = %d, Violations() = %d, want 0, 0", reg.Len(), reg.Violations())
	}
}

func TestDecode(t *testing.T) {
	args, err := Decode([]byte(`[1,"a",null,{"$t":"undef"},{"$t":"num","v":"NaN"},{"$t":"date","v":"2024-01-02T03:04:05Z"},{"$t":"bigint","v":"99"},{"$t":"error","n":"TypeError","m":"bad"}]`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(args) != 8 {
		t.Fatalf("len(args) = %d, want 8", len(args))
	}
	if args[0] != 1.0 {
		t.Errorf("args[0] = %v, want 1", args[0])
	}
	if args[1] != "a" {
		t.Errorf("args[1] = %v, want a", args[1])
	}
	if args[2] != Null {
		t.Errorf("args[2] = %v, want Null", args[2])
	}
	if !IsUndefined(args[3]) {
		t.Errorf("args[3] = %v, want Undefined", args[3])
	}
	if f, ok := args[4].(float64); !ok || !math.IsNaN(f) {
		t.Errorf("args[4] = %v, want NaN", args[4])
	}
	if d, ok := args[5].(time.Time); !ok || d.Year() != 2024 {
		t.Errorf("args[5] = %v, want 2024 date", args[5])
	}
	if n, ok := args[6].(*big.Int); !ok || n.Int64() != 99 {
		t.Errorf("args[6] = %v, want 99", args[6])
	}
	if e, ok := args[7].(*Error); !ok || e.Name != "TypeError" || e.Message != "bad" {
		t.Errorf("args[7] = %v, want TypeError", args[7])
	}
}

func TestDecodeSingleValue(t *testing.T) {
	args, err := Decode([]byte(`{"a":1}`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(args) != 1 {
		t.Fatalf("len(args) = %d, want 1", len(args))
	}
	if m, ok := args[0].(map[string]any); !ok || m["a"] != 1.0 {
		t.Errorf("args[0] = %v, want object", args[0])
	}

	args, err = Decode(nil)
	if err != nil || len(args) != 0 {
		t.Errorf("Decode(nil) = %v, %v, want no arguments", args, err)
	}
}

func TestDecodeCycle(t *testing.T) {
	args, err := Decode([]byte(`[{"$t":"obj","i":0,"v":{"name":"a","self":{"$t":"ref","i":0}}}]`))
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	obj := args[0].(map[string]any)
	self, ok := obj["self"].(map[string]any)
	if !ok {
		t.Fatalf("self = %T, want map", obj["self"])
	}
	self["marker"] = true
	if obj["marker"] != true {
		t.Error("self does not share identity with its parent")
	}
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
	}{
		{"malformed", `[1,`},
		{"unknown tag", `[{"$t":"weird"}]`},
		{"unknown ref", `[{"$t":"ref","i":3}]`},
		{"bad date", `[{"$t":"date","v":"yesterday"}]`},
		{"too deep", strings.Repeat("[", MaxDepth+2) + strings.Repeat("]", MaxDepth+2)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.raw))
			var ce *CodecError
			if !errors.As(err, &ce) {
				t.Errorf("Decode() error = %v, want *CodecError", err)
			}
		})
	}
}

func TestMarshalDecodesBack(t *testing.T) {
	type point struct {
		X int `json:"x"`
	}
	shared := &point{X: 1}
	when := time.Date(2024, 5, 6, 0, 0, 0, 0, time.UTC)

	raw, err := Marshal("a", shared, shared, when, Set{1}, []byte("hi"), math.Inf(1), nil)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}
	args, err := Decode(raw)
	if err != nil {
		t.Fatalf("Decode() error = %v", err)
	}
	if len(args) != 8 {
		t.Fatalf("len(args) = %d, want 8", len(args))
	}

	first := args[1].(map[string]any)
	second := args[2].(map[string]any)
	first["y"] = 2.0
	if second["y"] != 2.0 {
		t.Error("shared pointer decoded as two objects")
	}
	if d := args[3].(time.Time); !d.Equal(when) {
		t.Errorf("date = %v, want %v", d, when)
	}
	if s, ok := args[4].(Set); !ok || len(s) != 1 {
		t.Errorf("set = %v, want Set{1}", args[4])
	}
	if string(args[5].([]byte)) != "hi" {
		t.Errorf("bytes = %v, want hi", args[5])
	}
	if !math.IsInf(args[6].(float64), 1) {
		t.Errorf("inf = %v, want +Inf", args[6])
	}
	if !IsUndefined(args[7]) {
		t.Errorf("nil = %v, want Undefined", args[7])
	}
}

func TestMarshalRejectsPromise(t *testing.T) {
	if _, err := Marshal(NewPromise()); !errors.Is(err, ErrUnsupported) {
		t.Errorf("Marshal() error = %v, want ErrUnsupported", err)
	}
}
