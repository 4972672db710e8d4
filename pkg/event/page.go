package event

import (
	"net/http"
	"sort"
	"sync"

	"github.com/vango-dev/start/pkg/assets"
)

// Header names shared with the client router.
const (
	HeaderReferrer = "x-solid-referrer"
	HeaderLocation = "x-solid-location"
)

// RouterContext is the router state collected while rendering.
type RouterContext struct {
	// URL is set when a component requests a redirect.
	URL string

	// ReplaceOutletID and NewOutletID are set when the client already holds
	// the shell and only the outlet NewOutletID must replace ReplaceOutletID.
	ReplaceOutletID string
	NewOutletID     string

	// Assets required by the newly rendered outlet.
	Assets []assets.Asset
}

// PageEvent is the mutable state of one render. Rendering may run boundaries
// concurrently, so all state is behind accessors.
type PageEvent struct {
	*FetchEvent

	// PrevURL is the route the client navigated from, if any.
	PrevURL string

	mu      sync.Mutex
	status  int
	header  http.Header
	router  RouterContext
	islands map[string]struct{}
	tags    []string
}

// NewPageEvent creates the page event for a render of fe.
func NewPageEvent(fe *FetchEvent) *PageEvent {
	return &PageEvent{
		FetchEvent: fe,
		PrevURL:    fe.Request.Header.Get(HeaderReferrer),
		status:     http.StatusOK,
		header:     http.Header{"Content-Type": {"text/html"}},
		islands:    make(map[string]struct{}),
	}
}

// Status returns the response status. It defaults to 200.
func (pe *PageEvent) Status() int {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return pe.status
}

// SetStatus sets the response status. The last call wins.
func (pe *PageEvent) SetStatus(code int) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.status = code
}

// SetHeader sets a response header.
func (pe *PageEvent) SetHeader(key, value string) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.header.Set(key, value)
}

// AddHeader appends a response header value.
func (pe *PageEvent) AddHeader(key, value string) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.header.Add(key, value)
}

// Header returns a copy of the response headers.
func (pe *PageEvent) Header() http.Header {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return pe.header.Clone()
}

// Redirect asks for the response to become a redirect to url. It may be
// called from any depth of the component tree at any time during render.
func (pe *PageEvent) Redirect(url string) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.router.URL = url
}

// RedirectURL returns the requested redirect target, or "".
func (pe *PageEvent) RedirectURL() string {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return pe.router.URL
}

// ReplaceOutlet records that outlet newID replaces the client's oldID.
func (pe *PageEvent) ReplaceOutlet(oldID, newID string, list ...assets.Asset) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.router.ReplaceOutletID = oldID
	pe.router.NewOutletID = newID
	pe.router.Assets = append(pe.router.Assets, list...)
}

// Router returns a snapshot of the router context.
func (pe *PageEvent) Router() RouterContext {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	rc := pe.router
	rc.Assets = append([]assets.Asset(nil), pe.router.Assets...)
	return rc
}

// TouchIsland records that the island id was rendered.
func (pe *PageEvent) TouchIsland(id string) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.islands[id] = struct{}{}
}

// Islands returns the touched island ids, sorted.
func (pe *PageEvent) Islands() []string {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	ids := make([]string, 0, len(pe.islands))
	for id := range pe.islands {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// AddTag appends raw markup for the document head.
func (pe *PageEvent) AddTag(tag string) {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	pe.tags = append(pe.tags, tag)
}

// Tags returns the head tags added so far.
func (pe *PageEvent) Tags() []string {
	pe.mu.Lock()
	defer pe.mu.Unlock()
	return append([]string(nil), pe.tags...)
}
