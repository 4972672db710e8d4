// Package server turns HTTP requests into server function calls and API
// route dispatches.
//
// # Classification
//
// A request is an RPC when it carries the x-server-id header, or both the
// id and name query parameters. Otherwise it is an API request when its
// method and path match the route table, and a page request in every other
// case:
//
//	switch server.Classify(r, routes) {
//	case server.KindRPC:
//	    rpc.ServeHTTP(w, r)
//	case server.KindAPI:
//	    routes.ServeHTTP(w, r)
//	default:
//	    render(w, r)
//	}
//
// # Calls
//
// RPCs must be POST. The target is "module#export" in x-server-id, or the
// id and name query parameters. Form bodies arrive as a single *FormEntries
// argument; any other body is decoded with the codec.
//
// # Outcomes
//
// Invoker.Invoke runs the function with the request's FetchEvent bound to
// the context and returns a tagged Outcome. A function requests a redirect
// by returning RedirectTo(url) as its error:
//
//	func logout(ctx context.Context, args []any) (any, error) {
//	    return nil, server.RedirectTo("/login")
//	}
//
// # Delivery
//
// With x-server-instance set the result is streamed back as codec frames
// (text/javascript, 500 for failures, 204 plus Location for redirects).
// Without it the client has no JavaScript: the response is a 302 back to
// the referring page carrying the result in the form query parameter.
package server
