package render

import (
	"bytes"
	"context"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"sync"

	"github.com/vango-dev/start/pkg/codec"
	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/vdom"
)

// Writer appends markup to a streamed response. Observers receive one.
type Writer interface {
	Write(html string)
}

// Observer is called at a stream lifecycle point.
type Observer func(w Writer)

// streamWriter is the transport side of a streamed render. Writes before
// commit are buffered so a late redirect can still replace the response.
// After the first failed write, or once the client is gone, every write is
// a no-op and outstanding boundaries are cancelled.
type streamWriter struct {
	w       http.ResponseWriter
	flusher http.Flusher
	ctx     context.Context
	cancel  context.CancelFunc
	logger  *slog.Logger

	pending    bytes.Buffer
	committed  bool
	redirected bool
	failed     bool
}

func newStreamWriter(ctx context.Context, cancel context.CancelFunc, w http.ResponseWriter, logger *slog.Logger) *streamWriter {
	flusher, _ := w.(http.Flusher)
	return &streamWriter{w: w, flusher: flusher, ctx: ctx, cancel: cancel, logger: logger}
}

func (sw *streamWriter) Write(html string) {
	if sw.failed || sw.redirected {
		return
	}
	if !sw.committed {
		sw.pending.WriteString(html)
		return
	}
	sw.write(html)
}

func (sw *streamWriter) write(html string) {
	if sw.ctx.Err() != nil {
		sw.fail(sw.ctx.Err())
		return
	}
	if _, err := io.WriteString(sw.w, html); err != nil {
		sw.fail(err)
	}
}

func (sw *streamWriter) fail(err error) {
	sw.failed = true
	sw.cancel()
	sw.logger.Debug("client went away during stream", "error", err)
}

// commit sends the status line, headers and anything buffered so far.
func (sw *streamWriter) commit(status int, header http.Header) {
	if sw.committed || sw.redirected {
		return
	}
	copyHeader(sw.w.Header(), header)
	sw.w.WriteHeader(status)
	sw.committed = true
	if sw.pending.Len() > 0 {
		sw.write(sw.pending.String())
		sw.pending.Reset()
	}
	sw.flush()
}

// redirect turns the response into a 302 when nothing was committed yet.
// It reports whether it did.
func (sw *streamWriter) redirect(url string, header http.Header) bool {
	if sw.committed || sw.redirected {
		return false
	}
	writeRedirect(sw.w, url, header)
	sw.redirected = true
	sw.pending.Reset()
	return true
}

func (sw *streamWriter) flush() {
	if sw.flusher != nil && sw.committed && !sw.failed {
		sw.flusher.Flush()
	}
}

// redirector emits the client-side navigation directive for a redirect
// requested after the stream was committed. The directive is written at
// most once however many observers ask for it.
type redirector struct {
	pe    *event.PageEvent
	nonce string
	once  sync.Once
}

func (rd *redirector) emit(w Writer) {
	url := rd.pe.RedirectURL()
	if url == "" {
		return
	}
	rd.once.Do(func() {
		w.Write(script(rd.nonce, "window.location="+codec.Quote(url)))
	})
}

func script(nonce, body string) string {
	if nonce == "" {
		return "<script>" + body + "</script>"
	}
	return `<script nonce="` + escapeAttr(nonce) + `">` + body + "</script>"
}

// swapFunc replaces a boundary placeholder with its streamed template.
const swapFunc = `function $sw(i){var t=document.getElementById("B:"+i),f=document.getElementById("S:"+i);if(t&&f){f.replaceWith(t.content);t.remove()}}`

type boundary struct {
	id   string
	node *vdom.VNode
	err  error
}

// streamer resolves boundaries for a streamed render. The shell shows each
// boundary's fallback inside <start-suspense id="S:n">; resolved content
// follows as <template id="B:n"> plus a script swapping it in.
type streamer struct {
	ctx    context.Context
	prefix string
	nonce  string
	logger *slog.Logger

	results chan boundary
	wg      sync.WaitGroup

	// Owned by the rendering goroutine.
	next        int
	outstanding int
	swapSent    bool
}

func newStreamer(ctx context.Context, prefix, nonce string, logger *slog.Logger) *streamer {
	return &streamer{
		ctx:     ctx,
		prefix:  prefix,
		nonce:   nonce,
		logger:  logger,
		results: make(chan boundary),
	}
}

func (s *streamer) suspense(r *renderer, buf *bytes.Buffer, node *vdom.VNode) error {
	id := s.prefix + strconv.Itoa(s.next)
	s.next++
	s.outstanding++
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		out, err := resolve(s.ctx, node)
		select {
		case s.results <- boundary{id: id, node: out, err: err}:
		case <-s.ctx.Done():
		}
	}()

	buf.WriteString(`<start-suspense id="S:` + escapeAttr(id) + `">`)
	if err := r.render(buf, node.Fallback); err != nil {
		return err
	}
	buf.WriteString("</start-suspense>")
	return nil
}

// chunk renders resolved boundary content as a template plus swap script.
func (s *streamer) chunk(r *renderer, b boundary) (string, error) {
	var buf bytes.Buffer
	if !s.swapSent {
		buf.WriteString(script(s.nonce, swapFunc))
		s.swapSent = true
	}
	buf.WriteString(`<template id="B:` + escapeAttr(b.id) + `">`)
	if err := r.render(&buf, b.node); err != nil {
		return "", err
	}
	buf.WriteString("</template>")
	buf.WriteString(script(s.nonce, `$sw(`+codec.Quote(b.id)+`)`))
	return buf.String(), nil
}

// wait joins the loader goroutines. The context must be done or every
// result consumed first.
func (s *streamer) wait() {
	s.wg.Wait()
}

func writeRedirect(w http.ResponseWriter, url string, header http.Header) {
	copyHeader(w.Header(), header)
	w.Header().Set("Location", url)
	w.WriteHeader(http.StatusFound)
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		dst.Del(k)
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
