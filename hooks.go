package start

import (
	"net/http"

	"github.com/vango-dev/start/pkg/event"
)

// RequestHook runs before a request is classified. Returning true means
// the hook wrote the response and the request stops there.
type RequestHook func(w http.ResponseWriter, r *http.Request, fe *event.FetchEvent) bool

// ResponseHook runs once per request just before the status line is
// written. It may change the headers but not the status or the body. To
// replace a response, use a RequestHook that writes it and returns true.
type ResponseHook func(fe *event.FetchEvent, status int, header http.Header)

// hookWriter runs the response hooks on the first write.
type hookWriter struct {
	http.ResponseWriter
	fe     *event.FetchEvent
	hooks  []ResponseHook
	called bool
}

func (w *hookWriter) before(status int) {
	if w.called {
		return
	}
	w.called = true
	for _, h := range w.hooks {
		h(w.fe, status, w.Header())
	}
}

func (w *hookWriter) WriteHeader(code int) {
	w.before(code)
	w.ResponseWriter.WriteHeader(code)
}

func (w *hookWriter) Write(p []byte) (int, error) {
	w.before(http.StatusOK)
	return w.ResponseWriter.Write(p)
}

func (w *hookWriter) Flush() {
	w.before(http.StatusOK)
	if f, ok := w.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

// Unwrap lets http.ResponseController reach the underlying writer.
func (w *hookWriter) Unwrap() http.ResponseWriter {
	return w.ResponseWriter
}
