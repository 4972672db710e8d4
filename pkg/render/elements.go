package render

import "github.com/vango-dev/start/pkg/vdom"

// booleanAttrs are attributes that don't need a value.
// When true, they're rendered as just the attribute name.
var booleanAttrs = map[string]bool{
	"async":          true,
	"autofocus":      true,
	"checked":        true,
	"defer":          true,
	"disabled":       true,
	"formnovalidate": true,
	"hidden":         true,
	"multiple":       true,
	"nomodule":       true,
	"novalidate":     true,
	"open":           true,
	"readonly":       true,
	"required":       true,
	"selected":       true,
}

func isBooleanAttr(name string) bool {
	return booleanAttrs[name]
}

func isVoidElement(tag string) bool {
	return vdom.IsVoidElement(tag)
}
