package render

import (
	"strings"

	"github.com/vango-dev/start/pkg/assets"
	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/vdom"
)

// DefaultClientScript is the client entry loaded by Document.
const DefaultClientScript = "/_build/entry-client.js"

// PageData describes the document around a page body.
type PageData struct {
	Title string

	// Lang is the language attribute for the html element.
	// Defaults to "en" if not specified.
	Lang string

	Meta []MetaTag

	// Assets are emitted as stylesheet links and module scripts.
	Assets []assets.Asset

	// ClientScript is the client entry. Defaults to DefaultClientScript;
	// "-" omits it.
	ClientScript string

	// Nonce is set on the client script.
	Nonce string
}

// MetaTag represents a meta element in the document head.
type MetaTag struct {
	Name     string
	Property string
	Content  string
}

// Document wraps body in a complete HTML document. Head tags added to pe
// before the head renders are included.
func Document(pe *event.PageEvent, page PageData, body ...any) *vdom.VNode {
	lang := page.Lang
	if lang == "" {
		lang = "en"
	}

	head := []any{
		vdom.Meta(vdom.Charset("utf-8")),
		vdom.Meta(vdom.Name("viewport"), vdom.Content("width=device-width, initial-scale=1")),
	}
	if page.Title != "" {
		head = append(head, vdom.Title(page.Title))
	}
	for _, m := range page.Meta {
		head = append(head, metaTag(m))
	}
	for _, a := range page.Assets {
		head = append(head, assetTag(a, page.Nonce))
	}
	head = append(head, vdom.Func(func() *vdom.VNode {
		return vdom.Raw(strings.Join(pe.Tags(), ""))
	}))

	if src := page.ClientScript; src != "-" {
		if src == "" {
			src = DefaultClientScript
		}
		body = append(body, moduleScript(page.Nonce, src))
	}

	return vdom.Fragment(
		vdom.Raw("<!DOCTYPE html>"),
		vdom.Html(vdom.Lang(lang),
			vdom.Head(head...),
			vdom.Body(body...),
		),
	)
}

func metaTag(m MetaTag) *vdom.VNode {
	node := vdom.Meta(vdom.Content(m.Content))
	if m.Name != "" {
		node.Props["name"] = m.Name
	}
	if m.Property != "" {
		node.Props["property"] = m.Property
	}
	return node
}

func assetTag(a assets.Asset, nonce string) *vdom.VNode {
	if a.Type == "style" {
		return vdom.Link(vdom.Rel("stylesheet"), vdom.Href(a.Href))
	}
	return moduleScript(nonce, a.Href)
}

func moduleScript(nonce, src string) *vdom.VNode {
	node := vdom.Script(vdom.Type("module"), vdom.Src(src), vdom.Async())
	if nonce != "" {
		node.Props["nonce"] = nonce
	}
	return node
}
