package server

import (
	"errors"
	"io"
	"mime"
	"mime/multipart"
	"net/http"
	"net/url"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vango-dev/start/pkg/codec"
)

// DefaultMaxBodyBytes bounds RPC bodies when no limit is configured.
const DefaultMaxBodyBytes = 1 << 20

// Call is one server function invocation.
type Call struct {
	Module string
	Export string
	Args   []any

	// Instance correlates the streamed result with the client. Empty means
	// the client has no JavaScript.
	Instance string

	ContentType string

	// Form is set when the body was a form submission. It is also the only
	// argument.
	Form *FormEntries
}

// Target returns "module#export".
func (c *Call) Target() string {
	return c.Module + "#" + c.Export
}

// FormEntry is one submitted field. File fields carry the file name in
// Value and the content in Data.
type FormEntry struct {
	Name     string
	Value    string
	Filename string
	Data     []byte
}

// FormEntries is a submitted form in submission order.
type FormEntries struct {
	entries []FormEntry
}

// NewFormEntries builds entries from name/value pairs.
func NewFormEntries(pairs ...string) *FormEntries {
	f := &FormEntries{}
	for i := 0; i+1 < len(pairs); i += 2 {
		f.entries = append(f.entries, FormEntry{Name: pairs[i], Value: pairs[i+1]})
	}
	return f
}

// Get returns the first value of name.
func (f *FormEntries) Get(name string) string {
	for _, e := range f.entries {
		if e.Name == name {
			return e.Value
		}
	}
	return ""
}

// Values returns every value of name.
func (f *FormEntries) Values(name string) []string {
	var out []string
	for _, e := range f.entries {
		if e.Name == name {
			out = append(out, e.Value)
		}
	}
	return out
}

// Entries returns all entries in submission order.
func (f *FormEntries) Entries() []FormEntry {
	return append([]FormEntry(nil), f.entries...)
}

// Len returns the number of entries.
func (f *FormEntries) Len() int {
	return len(f.entries)
}

// MarshalJSON encodes the entries as [[name, value], ...].
func (f *FormEntries) MarshalJSON() ([]byte, error) {
	pairs := make([][2]string, len(f.entries))
	for i, e := range f.entries {
		pairs[i] = [2]string{e.Name, e.Value}
	}
	return json.Marshal(pairs)
}

// ParseCall reads the call addressed by r. Bodies larger than maxBody are
// rejected; maxBody <= 0 uses DefaultMaxBodyBytes.
func ParseCall(w http.ResponseWriter, r *http.Request, maxBody int64) (*Call, error) {
	if r.Method != http.MethodPost {
		return nil, &ClassificationError{Reason: MethodNotAllowed, Message: r.Method + " " + r.URL.Path}
	}

	call := &Call{
		Instance:    r.Header.Get(HeaderInstance),
		ContentType: r.Header.Get("Content-Type"),
	}
	if id := r.Header.Get(HeaderServerID); id != "" {
		module, export, ok := strings.Cut(id, "#")
		if !ok {
			return nil, invalid("malformed "+HeaderServerID+" "+id, nil)
		}
		call.Module, call.Export = module, export
	} else {
		q := r.URL.Query()
		call.Module, call.Export = q.Get(QueryID), q.Get(QueryName)
	}
	if call.Module == "" || call.Export == "" {
		return nil, invalid("missing server function id", nil)
	}

	if maxBody <= 0 {
		maxBody = DefaultMaxBodyBytes
	}
	body := http.MaxBytesReader(w, r.Body, maxBody)

	mediaType, params, _ := mime.ParseMediaType(call.ContentType)
	switch mediaType {
	case "multipart/form-data":
		form, err := readMultipart(body, params["boundary"])
		if err != nil {
			return nil, invalid("read multipart body", bodyError(err))
		}
		call.Form = form
		call.Args = []any{form}
	case "application/x-www-form-urlencoded":
		form, err := readURLEncoded(body)
		if err != nil {
			return nil, invalid("read form body", bodyError(err))
		}
		call.Form = form
		call.Args = []any{form}
	default:
		raw, err := io.ReadAll(body)
		if err != nil {
			return nil, invalid("read body", bodyError(err))
		}
		args, err := codec.Decode(raw)
		if err != nil {
			return nil, invalid("decode arguments", err)
		}
		call.Args = args
	}
	return call, nil
}

func bodyError(err error) error {
	var mbe *http.MaxBytesError
	if errors.As(err, &mbe) {
		return ErrBodyTooLarge
	}
	return err
}

func readURLEncoded(body io.Reader) (*FormEntries, error) {
	raw, err := io.ReadAll(body)
	if err != nil {
		return nil, err
	}
	f := &FormEntries{}
	for _, part := range strings.Split(string(raw), "&") {
		if part == "" {
			continue
		}
		k, v, _ := strings.Cut(part, "=")
		name, err := url.QueryUnescape(k)
		if err != nil {
			return nil, err
		}
		value, err := url.QueryUnescape(v)
		if err != nil {
			return nil, err
		}
		f.entries = append(f.entries, FormEntry{Name: name, Value: value})
	}
	return f, nil
}

func readMultipart(body io.Reader, boundary string) (*FormEntries, error) {
	if boundary == "" {
		return nil, errors.New("missing boundary")
	}
	mr := multipart.NewReader(body, boundary)
	f := &FormEntries{}
	for {
		part, err := mr.NextPart()
		if err == io.EOF {
			return f, nil
		}
		if err != nil {
			return nil, err
		}
		data, err := io.ReadAll(part)
		part.Close()
		if err != nil {
			return nil, err
		}
		entry := FormEntry{Name: part.FormName()}
		if name := part.FileName(); name != "" {
			entry.Filename = name
			entry.Value = name
			entry.Data = data
		} else {
			entry.Value = string(data)
		}
		f.entries = append(f.entries, entry)
	}
}
