// Package render produces page responses from a vdom component tree.
//
// An Orchestrator renders in one of three modes:
//
//   - ModeSync renders once; suspense boundaries show their fallback.
//   - ModeAsync loads every suspense boundary concurrently and renders the
//     finished document.
//   - ModeStream flushes the shell with fallbacks first, then appends each
//     boundary as a <template> plus a swap script as soon as it resolves.
//
// # Redirects
//
// Any component may call PageEvent.Redirect. Buffered and awaited renders
// check for it after rendering and answer 302 without any document bytes.
// A streamed render does the same while nothing has been sent. Once the
// shell is committed the redirect becomes a
// <script>window.location="..."</script> directive appended to the stream,
// written at most once whichever lifecycle observer notices it.
//
// # Basic Usage
//
//	o := render.New(func(pe *event.PageEvent) *vdom.VNode {
//	    return render.Document(pe, render.PageData{Title: "Home"}, vdom.H1("Hello"))
//	}, render.WithMode(render.ModeStream))
//	http.Handle("/", o)
//
// # Security
//
// All text content and attribute values are escaped. Raw nodes are written
// verbatim and should only carry trusted markup.
package render
