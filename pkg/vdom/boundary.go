package vdom

import (
	"log/slog"

	"github.com/goccy/go-json"
)

// Suspense creates an async boundary. Buffered renders show fallback,
// awaited renders wait for resolve, streamed renders show fallback first
// and swap in the resolved content once it is ready.
func Suspense(fallback *VNode, resolve ResolveFunc) *VNode {
	return &VNode{Kind: KindSuspense, Fallback: fallback, Resolve: resolve}
}

// OutletWrapperTag is the element wrapping an outlet's content.
const OutletWrapperTag = "outlet-wrapper"

// Outlet renders a replaceable region. Its content is bracketed by
// <!--id--> comments and wrapped in <outlet-wrapper id="id"> so a partial
// navigation can cut it out of the rendered document.
func Outlet(id string, children ...any) *VNode {
	marker := Raw("<!--" + id + "-->")
	return Fragment(marker, El(OutletWrapperTag, append([]any{ID(id)}, children...)...), marker)
}

// Island creates a client-hydrated region. The renderer records id on the
// page event when the island is actually rendered.
func Island(id, module string, props map[string]any, children ...any) *VNode {
	node := El("start-island", children...)
	node.Kind = KindIsland
	node.Key = id
	node.Props["data-island"] = id
	node.Props["data-module"] = module
	if len(props) > 0 {
		b, err := json.Marshal(props)
		if err != nil {
			slog.Default().With("component", "vdom").Error("island props not serializable", "island", id, "error", err)
		} else {
			node.Props["data-props"] = string(b)
		}
	}
	return node
}
