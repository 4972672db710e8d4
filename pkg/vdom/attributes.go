package vdom

import "strings"

func attr(key string, value any) Attr {
	return Attr{Key: key, Value: value}
}

// ID sets the id attribute.
func ID(id string) Attr { return attr("id", id) }

// Class sets the class attribute, joining multiple classes with spaces.
// Repeated Class attributes on one element accumulate.
func Class(classes ...string) Attr { return attr("class", strings.Join(classes, " ")) }

// StyleAttr sets the style attribute.
func StyleAttr(style string) Attr { return attr("style", style) }

// Data creates a data-* attribute.
// Example: Data("id", "123") → data-id="123"
func Data(key, value string) Attr { return attr("data-"+key, value) }

// Lang sets the lang attribute.
func Lang(lang string) Attr { return attr("lang", lang) }

// Charset sets the charset attribute.
func Charset(cs string) Attr { return attr("charset", cs) }

// Content sets the content attribute.
func Content(c string) Attr { return attr("content", c) }

// Href sets the href attribute.
func Href(url string) Attr { return attr("href", url) }

// Rel sets the rel attribute.
func Rel(rel string) Attr { return attr("rel", rel) }

// Src sets the src attribute.
func Src(url string) Attr { return attr("src", url) }

// Name sets the name attribute.
func Name(name string) Attr { return attr("name", name) }

// Value sets the value attribute.
func Value(v string) Attr { return attr("value", v) }

// Type sets the type attribute.
func Type(t string) Attr { return attr("type", t) }

// Placeholder sets the placeholder attribute.
func Placeholder(p string) Attr { return attr("placeholder", p) }

// Action sets the form action attribute.
func Action(url string) Attr { return attr("action", url) }

// Method sets the form method attribute.
func Method(m string) Attr { return attr("method", m) }

// Enctype sets the form enctype attribute.
func Enctype(e string) Attr { return attr("enctype", e) }

// Disabled sets the boolean disabled attribute.
func Disabled(on bool) Attr { return attr("disabled", on) }

// Required sets the boolean required attribute.
func Required() Attr { return attr("required", true) }

// Hidden sets the hidden attribute.
func Hidden() Attr { return attr("hidden", true) }

// Async sets the boolean async attribute of a script.
func Async() Attr { return attr("async", true) }

// Nonce sets the CSP nonce attribute.
func Nonce(n string) Attr { return attr("nonce", n) }

// Attribute sets an arbitrary attribute.
func Attribute(key string, value any) Attr { return attr(key, value) }
