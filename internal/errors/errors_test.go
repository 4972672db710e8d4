package errors

import (
	"bytes"
	stderrors "errors"
	"fmt"
	"strings"
	"testing"

	"github.com/goccy/go-json"

	"github.com/vango-dev/start/pkg/chunks"
	"github.com/vango-dev/start/pkg/codec"
	"github.com/vango-dev/start/pkg/features/islands"
	"github.com/vango-dev/start/pkg/render"
	"github.com/vango-dev/start/pkg/server"
	"github.com/vango-dev/start/pkg/static"
)

func TestNew(t *testing.T) {
	tests := []struct {
		name    string
		code    string
		wantMsg string
		wantCat Category
	}{
		{"codec error", "E100", "Value cannot be serialized", CategoryCodec},
		{"rpc error", "E112", "Server function not found", CategoryRPC},
		{"islands error", "E130", "Outlet markers missing or malformed", CategoryIslands},
		{"unknown error code", "E999", "Unknown error", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := New(tt.code)
			if err.Message != tt.wantMsg {
				t.Errorf("Message = %q, want %q", err.Message, tt.wantMsg)
			}
			if err.Category != tt.wantCat {
				t.Errorf("Category = %q, want %q", err.Category, tt.wantCat)
			}
		})
	}
}

func TestFromError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{"unsupported value", &codec.CodecError{Path: "$.fn", Type: "func", Err: codec.ErrUnsupported}, "E100"},
		{"max depth", &codec.CodecError{Type: "depth", Err: codec.ErrMaxDepth}, "E101"},
		{"malformed json", &codec.CodecError{Type: "json", Err: stderrors.New("unexpected EOF")}, "E104"},
		{"body too large", fmt.Errorf("read: %w", server.ErrBodyTooLarge), "E111"},
		{"bad request", &server.ClassificationError{Reason: server.MethodNotAllowed}, "E110"},
		{"missing export", fmt.Errorf("%w: todos#nope", chunks.ErrExportNotFound), "E112"},
		{"function failed", &server.InvocationError{Module: "m", Export: "e", Err: stderrors.New("x")}, "E113"},
		{"no static source", render.ErrNoStaticSource, "E120"},
		{"outlet markers", &islands.PatchExtractionError{OutletID: "a", Reason: "missing"}, "E130"},
		{"static not found", fmt.Errorf("doc: %w", static.ErrNotFound), "E140"},
		{"static bad path", static.ErrBadPath, "E141"},
		{"unknown uses fallback", stderrors.New("bind: address already in use"), "E160"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := FromError(tt.err, "E160")
			if got.Code != tt.want {
				t.Errorf("FromError().Code = %q, want %q", got.Code, tt.want)
			}
			if !stderrors.Is(got, tt.err) {
				t.Error("FromError() does not wrap the original error")
			}
		})
	}

	if FromError(nil, "E160") != nil {
		t.Error("FromError(nil) should be nil")
	}
	se := New("E150")
	if FromError(se, "E160") != se {
		t.Error("FromError should return a StartError unchanged")
	}
}

func TestStartErrorError(t *testing.T) {
	err := New("E160").Wrap(stderrors.New("bind: address already in use"))
	want := "E160: Server failed: bind: address already in use"
	if err.Error() != want {
		t.Errorf("Error() = %q, want %q", err.Error(), want)
	}
	if got := Newf(CategoryConfig, "bad %s", "mode").Error(); got != "bad mode" {
		t.Errorf("Newf().Error() = %q, want %q", got, "bad mode")
	}
}

func TestFormat(t *testing.T) {
	DisableColors()
	defer EnableColors()

	out := New("E112").Wrap(stderrors.New("chunks: export not found: todos#x")).Format()
	for _, want := range []string{
		"ERROR E112: Server function not found",
		"chunks: export not found: todos#x",
		"Hint: Check that the module is registered",
		"Learn more: https://start.vango.dev/docs/errors/E112",
	} {
		if !strings.Contains(out, want) {
			t.Errorf("Format() missing %q:\n%s", want, out)
		}
	}
	if strings.Contains(out, "\033[") {
		t.Error("Format() contains ANSI codes with colors disabled")
	}
}

func TestFormatJSON(t *testing.T) {
	var got map[string]string
	if err := json.Unmarshal([]byte(New("E141").Wrap(static.ErrBadPath).FormatJSON()), &got); err != nil {
		t.Fatalf("FormatJSON() is not JSON: %v", err)
	}
	if got["code"] != "E141" || got["category"] != "static" || got["cause"] != static.ErrBadPath.Error() {
		t.Errorf("FormatJSON() = %v", got)
	}
}

func TestFprint(t *testing.T) {
	DisableColors()
	defer EnableColors()

	var buf bytes.Buffer
	Fprint(&buf, stderrors.New("plain"))
	if !strings.Contains(buf.String(), "ERROR: plain") {
		t.Errorf("Fprint() = %q", buf.String())
	}
}

func TestWrapText(t *testing.T) {
	lines := wrapText(strings.Repeat("word ", 30), 20)
	for _, l := range lines {
		if len(l) > 20 {
			t.Errorf("line %q longer than 20", l)
		}
	}
	if wrapText("", 10) != nil {
		t.Error("wrapText(\"\") should be nil")
	}
}

func TestRegistryCodes(t *testing.T) {
	codes := GetAllCodes()
	for i := 1; i < len(codes); i++ {
		if codes[i-1] >= codes[i] {
			t.Fatalf("GetAllCodes() not sorted: %v", codes)
		}
	}
	for _, code := range codes {
		tmpl, _ := GetTemplate(code)
		if tmpl.Message == "" || tmpl.Category == "" {
			t.Errorf("%s has an empty message or category", code)
		}
		if !strings.HasSuffix(tmpl.DocURL, code) {
			t.Errorf("%s DocURL = %q", code, tmpl.DocURL)
		}
	}
}
