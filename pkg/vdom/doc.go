// Package vdom is the component tree rendered by package render.
//
// VNode is the building block: elements, text, fragments, components and
// raw HTML, plus three nodes the renderer treats specially:
//
//   - Suspense, an async boundary whose content is loaded on its own
//     goroutine while the fallback stands in for it
//   - Outlet, a region a partial navigation can replace on its own
//   - Island, a client-hydrated region recorded on the page event
//
// Elements are created using variadic factory functions:
//
//	Div(Class("card"), ID("main"),
//	    H1(Text("Title")),
//	    Suspense(P(Text("Loading")), loadPosts),
//	)
package vdom
