package islands

import (
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/vango-dev/start/pkg/assets"
	"github.com/vango-dev/start/pkg/event"
	"github.com/vango-dev/start/pkg/vdom"
)

// ContentType is the media type of a patch response.
const ContentType = "text/solid-diff"

const (
	assetsPrefix = "assets="
	closeWrapper = "</" + vdom.OutletWrapperTag + ">"
)

// PatchExtractionError reports outlet markers that are missing or malformed.
type PatchExtractionError struct {
	OutletID string
	Reason   string
}

func (e *PatchExtractionError) Error() string {
	return fmt.Sprintf("islands: outlet %q: %s", e.OutletID, e.Reason)
}

// Patch is a parsed patch body.
type Patch struct {
	Assets []assets.Asset
	OldID  string
	NewID  string
	HTML   string
}

// Encode encodes the patch body.
func (p Patch) Encode() (string, error) {
	var b strings.Builder
	if p.Assets != nil {
		data, err := json.Marshal(p.Assets)
		if err != nil {
			return "", fmt.Errorf("islands: encode assets: %w", err)
		}
		b.WriteString(assetsPrefix)
		b.Write(data)
		b.WriteByte(';')
	}
	b.WriteString(p.OldID)
	b.WriteByte(':')
	b.WriteString(p.NewID)
	b.WriteByte('=')
	b.WriteString(p.HTML)
	return b.String(), nil
}

// Markup returns the outlet as vdom.Outlet renders it.
func (p Patch) Markup() string {
	marker := "<!--" + p.NewID + "-->"
	return marker + openWrapper(p.NewID) + p.HTML + closeWrapper + marker
}

func openWrapper(id string) string {
	return "<" + vdom.OutletWrapperTag + ` id="` + id + `">`
}

// Extract cuts the outlet rc.NewOutletID out of markup and encodes it as a
// patch replacing rc.ReplaceOutletID. The outlet runs from the first to the
// last <!--id--> marker; the wrapper must open right after the first and
// close right before the last.
func Extract(markup string, rc event.RouterContext) (string, error) {
	id := rc.NewOutletID
	if id == "" {
		return "", &PatchExtractionError{Reason: "no outlet id"}
	}
	marker := "<!--" + id + "-->"

	start := strings.Index(markup, marker)
	if start < 0 {
		return "", &PatchExtractionError{OutletID: id, Reason: "start marker not found"}
	}
	end := strings.LastIndex(markup, marker)
	if end == start {
		return "", &PatchExtractionError{OutletID: id, Reason: "end marker not found"}
	}

	body := markup[start+len(marker) : end]
	open := openWrapper(id)
	if !strings.HasPrefix(body, open) {
		return "", &PatchExtractionError{OutletID: id, Reason: "wrapper does not open after start marker"}
	}
	body = body[len(open):]
	if !strings.HasSuffix(body, closeWrapper) {
		return "", &PatchExtractionError{OutletID: id, Reason: "wrapper does not close before end marker"}
	}

	p := Patch{
		OldID: rc.ReplaceOutletID,
		NewID: id,
		HTML:  strings.TrimSuffix(body, closeWrapper),
	}
	if len(rc.Assets) > 0 {
		p.Assets = rc.Assets
	}
	return p.Encode()
}

// ParsePatch decodes a patch body produced by Extract.
func ParsePatch(body string) (Patch, error) {
	var p Patch
	if strings.HasPrefix(body, assetsPrefix) {
		// The asset list is JSON, so find where it ends rather than
		// splitting on the first ';'.
		dec := json.NewDecoder(strings.NewReader(body[len(assetsPrefix):]))
		if err := dec.Decode(&p.Assets); err != nil {
			return Patch{}, fmt.Errorf("islands: bad asset list: %w", err)
		}
		rest := body[len(assetsPrefix)+int(dec.InputOffset()):]
		if !strings.HasPrefix(rest, ";") {
			return Patch{}, fmt.Errorf("islands: asset list not terminated")
		}
		body = rest[1:]
	}

	ids, html, ok := strings.Cut(body, "=")
	if !ok {
		return Patch{}, fmt.Errorf("islands: missing '=' in patch")
	}
	p.OldID, p.NewID, ok = strings.Cut(ids, ":")
	if !ok || p.NewID == "" {
		return Patch{}, fmt.Errorf("islands: malformed outlet ids %q", ids)
	}
	p.HTML = html
	return p, nil
}

// Apply rewrites markup into a patch when the page event asks for an outlet
// replacement, switching the response headers accordingly. Otherwise markup
// is returned unchanged.
func Apply(pe *event.PageEvent, markup string) (string, error) {
	rc := pe.Router()
	if rc.ReplaceOutletID == "" {
		return markup, nil
	}
	patch, err := Extract(markup, rc)
	if err != nil {
		return "", err
	}
	pe.SetHeader("Content-Type", ContentType)
	pe.SetHeader(event.HeaderLocation, pe.Request.URL.RequestURI())
	return patch, nil
}
