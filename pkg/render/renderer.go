package render

import (
	"bytes"
	"context"
	"fmt"
	"reflect"
	"sort"
	"strconv"
	"strings"

	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/vdom"
)

// suspenseFunc renders a suspense boundary. The mode decides whether that
// means the fallback, the awaited content or a streamed placeholder.
type suspenseFunc func(r *renderer, buf *bytes.Buffer, node *vdom.VNode) error

// renderer turns a component tree into HTML. It is used by one goroutine;
// only suspense resolution happens elsewhere.
type renderer struct {
	pe       *event.PageEvent
	suspense suspenseFunc

	// Components render once per request even when the tree is walked
	// again, so their side effects on the page event happen once.
	comps map[*vdom.VNode]*vdom.VNode
}

func newRenderer(pe *event.PageEvent, suspense suspenseFunc) *renderer {
	if suspense == nil {
		suspense = renderFallback
	}
	return &renderer{pe: pe, suspense: suspense, comps: make(map[*vdom.VNode]*vdom.VNode)}
}

// renderFallback is the buffered-mode boundary: show the fallback.
func renderFallback(r *renderer, buf *bytes.Buffer, node *vdom.VNode) error {
	return r.render(buf, node.Fallback)
}

func (r *renderer) render(buf *bytes.Buffer, node *vdom.VNode) error {
	if node == nil {
		return nil
	}

	switch node.Kind {
	case vdom.KindElement:
		return r.renderElement(buf, node)
	case vdom.KindIsland:
		r.pe.TouchIsland(node.Key)
		return r.renderElement(buf, node)
	case vdom.KindText:
		buf.WriteString(escapeHTML(node.Text))
		return nil
	case vdom.KindRaw:
		buf.WriteString(node.Text)
		return nil
	case vdom.KindFragment:
		return r.renderChildren(buf, node)
	case vdom.KindComponent:
		return r.render(buf, r.component(node))
	case vdom.KindSuspense:
		return r.suspense(r, buf, node)
	default:
		return fmt.Errorf("render: unknown node kind: %d", node.Kind)
	}
}

func (r *renderer) component(node *vdom.VNode) *vdom.VNode {
	if out, ok := r.comps[node]; ok {
		return out
	}
	var out *vdom.VNode
	if node.Comp != nil {
		out = node.Comp.Render()
	}
	r.comps[node] = out
	return out
}

func (r *renderer) renderChildren(buf *bytes.Buffer, node *vdom.VNode) error {
	for _, child := range node.Children {
		if err := r.render(buf, child); err != nil {
			return err
		}
	}
	return nil
}

func (r *renderer) renderElement(buf *bytes.Buffer, node *vdom.VNode) error {
	buf.WriteByte('<')
	buf.WriteString(node.Tag)
	renderAttributes(buf, node.Props)
	buf.WriteByte('>')

	if isVoidElement(node.Tag) {
		return nil
	}
	if raw, ok := node.Props["dangerouslySetInnerHTML"].(string); ok {
		buf.WriteString(raw)
	} else if err := r.renderChildren(buf, node); err != nil {
		return err
	}

	buf.WriteString("</")
	buf.WriteString(node.Tag)
	buf.WriteByte('>')
	return nil
}

// renderAttributes writes props in sorted order for deterministic output.
func renderAttributes(buf *bytes.Buffer, props vdom.Props) {
	keys := make([]string, 0, len(props))
	for key := range props {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	for _, key := range keys {
		value := props[key]
		if strings.HasPrefix(key, "_") || isFunc(value) {
			continue
		}

		switch key {
		case "className":
			key = "class"
		case "htmlFor":
			key = "for"
		case "dangerouslySetInnerHTML":
			continue
		}

		if isBooleanAttr(key) {
			if on, ok := value.(bool); ok {
				if on {
					buf.WriteByte(' ')
					buf.WriteString(key)
				}
				continue
			}
		}

		if s := attrToString(value); s != "" {
			fmt.Fprintf(buf, ` %s="%s"`, key, escapeAttr(s))
		}
	}
}

func isFunc(value any) bool {
	return value != nil && reflect.TypeOf(value).Kind() == reflect.Func
}

func attrToString(value any) string {
	switch v := value.(type) {
	case nil:
		return ""
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	case float64:
		return strconv.FormatFloat(v, 'g', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}

// resolve runs a boundary's loader, turning a panic into an error.
func resolve(ctx context.Context, node *vdom.VNode) (out *vdom.VNode, err error) {
	defer func() {
		if p := recover(); p != nil {
			err = fmt.Errorf("render: suspense boundary panicked: %v", p)
		}
	}()
	if node.Resolve == nil {
		return nil, nil
	}
	return node.Resolve(ctx)
}
