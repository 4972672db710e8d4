package vdom

// voidElements are elements that cannot have children.
var voidElements = map[string]bool{
	"area":   true,
	"base":   true,
	"br":     true,
	"col":    true,
	"embed":  true,
	"hr":     true,
	"img":    true,
	"input":  true,
	"link":   true,
	"meta":   true,
	"param":  true,
	"source": true,
	"track":  true,
	"wbr":    true,
}

// IsVoidElement returns true if the tag is a void element.
func IsVoidElement(tag string) bool {
	return voidElements[tag]
}

// El creates an element with the given tag.
// Arguments can be: nil, Attr, []Attr, *VNode, []*VNode, Component, string.
func El(tag string, args ...any) *VNode {
	node := &VNode{Kind: KindElement, Tag: tag, Props: make(Props)}
	for _, arg := range args {
		switch v := arg.(type) {
		case Attr:
			node.setAttr(v)
		case []Attr:
			for _, a := range v {
				node.setAttr(a)
			}
		default:
			node.Children = appendChild(node.Children, arg)
		}
	}
	return node
}

func (v *VNode) setAttr(a Attr) {
	if a.Key == "" {
		return
	}
	if a.Key == "class" {
		prev, _ := v.Props["class"].(string)
		next, ok := a.Value.(string)
		if ok && prev != "" {
			a.Value = prev + " " + next
		}
	}
	v.Props[a.Key] = a.Value
}

// appendChild appends arg to children when it is a node, a node list, a
// component or a string. Anything else, including nil, is ignored so
// conditional helpers can be inlined.
func appendChild(children []*VNode, arg any) []*VNode {
	switch v := arg.(type) {
	case *VNode:
		if v != nil {
			children = append(children, v)
		}
	case []*VNode:
		for _, c := range v {
			if c != nil {
				children = append(children, c)
			}
		}
	case Component:
		if v != nil {
			children = append(children, &VNode{Kind: KindComponent, Comp: v})
		}
	case string:
		children = append(children, Text(v))
	}
	return children
}

// Document structure

func Html(args ...any) *VNode  { return El("html", args...) }
func Head(args ...any) *VNode  { return El("head", args...) }
func Body(args ...any) *VNode  { return El("body", args...) }
func Title(args ...any) *VNode { return El("title", args...) }
func Meta(args ...any) *VNode  { return El("meta", args...) }
func Link(args ...any) *VNode  { return El("link", args...) }

// Sectioning

func Header(args ...any) *VNode  { return El("header", args...) }
func Footer(args ...any) *VNode  { return El("footer", args...) }
func Main(args ...any) *VNode    { return El("main", args...) }
func Nav(args ...any) *VNode     { return El("nav", args...) }
func Section(args ...any) *VNode { return El("section", args...) }
func H1(args ...any) *VNode      { return El("h1", args...) }
func H2(args ...any) *VNode      { return El("h2", args...) }

// Text content

func Div(args ...any) *VNode  { return El("div", args...) }
func P(args ...any) *VNode    { return El("p", args...) }
func Span(args ...any) *VNode { return El("span", args...) }
func Pre(args ...any) *VNode  { return El("pre", args...) }
func Ul(args ...any) *VNode   { return El("ul", args...) }
func Li(args ...any) *VNode   { return El("li", args...) }
func A(args ...any) *VNode    { return El("a", args...) }
func Em(args ...any) *VNode   { return El("em", args...) }
func Code(args ...any) *VNode { return El("code", args...) }
func Br(args ...any) *VNode   { return El("br", args...) }

// Forms

func Form(args ...any) *VNode   { return El("form", args...) }
func Input(args ...any) *VNode  { return El("input", args...) }
func Button(args ...any) *VNode { return El("button", args...) }
func Label(args ...any) *VNode  { return El("label", args...) }

// Scripting

func Script(args ...any) *VNode   { return El("script", args...) }
func Noscript(args ...any) *VNode { return El("noscript", args...) }
func Template(args ...any) *VNode { return El("template", args...) }
func Style(args ...any) *VNode    { return El("style", args...) }
