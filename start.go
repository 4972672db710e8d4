// Package start is the server core of a full-stack web framework.
//
// An App receives every request and sends it down one of three paths:
//
//   - server function calls (header x-server-id, or id and name query
//     parameters) run a function from the chunk manifest and stream its
//     result, error or redirect back;
//   - API routes matched on method and path run their handler;
//   - everything else renders a page from a vdom tree, buffered, fully
//     awaited or streamed.
//
// This is the recommended import for most applications:
//
//	import "github.com/vango-dev/start"
//
// Usage:
//
//	func Root(pe *start.PageEvent) *start.VNode {
//	    return render.Document(pe, render.PageData{Title: "Home"},
//	        start.Suspense(Div(Text("loading")), func(ctx context.Context) (*start.VNode, error) {
//	            user, err := db.User(ctx)
//	            if err != nil {
//	                return nil, err
//	            }
//	            if user == nil {
//	                pe.Redirect("/login")
//	            }
//	            return Div(Text(user.Name)), nil
//	        }),
//	    )
//	}
package start

import (
	"context"

	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/server"
	"github.com/vango-dev/start/pkg/vdom"
)

// =============================================================================
// Events
// =============================================================================

// FetchEvent is the request-scoped context of server code.
type FetchEvent = event.FetchEvent

// PageEvent is the FetchEvent of a page render.
type PageEvent = event.PageEvent

// RequestEvent returns the FetchEvent of the request ctx belongs to, or
// nil outside a request.
func RequestEvent(ctx context.Context) *FetchEvent {
	return event.FromContext(ctx)
}

// Page returns the PageEvent of the render ctx belongs to, or nil outside
// a page render.
func Page(ctx context.Context) *PageEvent {
	return event.PageFromContext(ctx)
}

// =============================================================================
// Server Functions
// =============================================================================

// Function is a server function.
type Function = server.Function

// Exports maps export names to server functions.
type Exports = server.Exports

// Redirect returns an error that makes a server function or API handler
// answer with a redirect to url.
func Redirect(url string) *server.Redirect {
	return server.RedirectTo(url)
}

// =============================================================================
// Components
// =============================================================================

// VNode is a node of the component tree.
type VNode = vdom.VNode

// Component is anything that renders to a VNode.
type Component = vdom.Component

// Suspense renders fallback until resolve returns.
func Suspense(fallback *VNode, resolve vdom.ResolveFunc) *VNode {
	return vdom.Suspense(fallback, resolve)
}

// Outlet wraps route content so client navigations can replace it.
func Outlet(id string, children ...any) *VNode {
	return vdom.Outlet(id, children...)
}
