package vdom

import "context"

// VKind is the node type discriminator.
type VKind uint8

const (
	KindElement   VKind = iota // <div>, <button>, etc.
	KindText                   // Plain text node
	KindFragment               // Grouping without wrapper
	KindComponent              // Nested component
	KindRaw                    // Raw HTML (dangerous)
	KindSuspense               // Async boundary with a fallback
	KindIsland                 // Client-hydrated region
)

// String returns the string representation of the VKind.
func (k VKind) String() string {
	switch k {
	case KindElement:
		return "Element"
	case KindText:
		return "Text"
	case KindFragment:
		return "Fragment"
	case KindComponent:
		return "Component"
	case KindRaw:
		return "Raw"
	case KindSuspense:
		return "Suspense"
	case KindIsland:
		return "Island"
	default:
		return "Unknown"
	}
}

// ResolveFunc loads the content of a suspense boundary. It runs on its own
// goroutine and must honour ctx.
type ResolveFunc func(ctx context.Context) (*VNode, error)

// VNode is a node of the component tree.
type VNode struct {
	Kind     VKind     // Node type
	Tag      string    // Element tag name (e.g., "div")
	Props    Props     // Attributes
	Children []*VNode  // Child nodes
	Key      string    // Island id for KindIsland, otherwise free for callers
	Text     string    // For KindText and KindRaw
	Comp     Component // For KindComponent

	// Fallback and Resolve are set for KindSuspense.
	Fallback *VNode
	Resolve  ResolveFunc
}

// Props holds attributes.
type Props map[string]any

// Attr represents a single attribute.
type Attr struct {
	Key   string
	Value any
}

// IsEmpty returns true if this is an empty/nil attribute.
func (a Attr) IsEmpty() bool {
	return a.Key == ""
}

// Component is anything that can render to a VNode.
type Component interface {
	Render() *VNode
}

// Func creates a component from a render function.
func Func(render func() *VNode) Component {
	return funcComponent(render)
}

type funcComponent func() *VNode

func (f funcComponent) Render() *VNode { return f() }
