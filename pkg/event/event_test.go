package event

import (
	"context"
	"net/http/httptest"
	"sync"
	"testing"

	"github.com/vango-dev/start/pkg/assets"
)

func TestNewPageEventDefaults(t *testing.T) {
	r := httptest.NewRequest("GET", "/dashboard", nil)
	r.Header.Set(HeaderReferrer, "/home")
	pe := NewPageEvent(NewFetchEvent(r, Env{}))

	if pe.Status() != 200 {
		t.Errorf("Status() = %d, want 200", pe.Status())
	}
	if got := pe.Header().Get("Content-Type"); got != "text/html" {
		t.Errorf("Content-Type = %q, want text/html", got)
	}
	if pe.PrevURL != "/home" {
		t.Errorf("PrevURL = %q, want /home", pe.PrevURL)
	}
	if len(pe.Islands()) != 0 {
		t.Errorf("Islands() = %v, want empty", pe.Islands())
	}
	if pe.ID == "" {
		t.Error("ID is empty")
	}
}

func TestPageEventStatusLastWriteWins(t *testing.T) {
	pe := NewPageEvent(NewFetchEvent(httptest.NewRequest("GET", "/", nil), Env{}))
	pe.SetStatus(404)
	pe.SetStatus(500)
	if pe.Status() != 500 {
		t.Errorf("Status() = %d, want 500", pe.Status())
	}
}

func TestPageEventConcurrentWriters(t *testing.T) {
	pe := NewPageEvent(NewFetchEvent(httptest.NewRequest("GET", "/", nil), Env{}))

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			pe.TouchIsland("island")
			pe.SetHeader("X-Test", "1")
			pe.SetStatus(200 + i)
			pe.AddTag("<meta>")
		}(i)
	}
	wg.Wait()

	if got := pe.Islands(); len(got) != 1 || got[0] != "island" {
		t.Errorf("Islands() = %v, want [island]", got)
	}
	if len(pe.Tags()) != 20 {
		t.Errorf("len(Tags()) = %d, want 20", len(pe.Tags()))
	}
}

func TestPageEventRouter(t *testing.T) {
	pe := NewPageEvent(NewFetchEvent(httptest.NewRequest("GET", "/", nil), Env{}))
	pe.Redirect("/login")
	pe.ReplaceOutlet("old1", "new1", assets.Asset{Type: "style", Href: "/a.css"})

	rc := pe.Router()
	if rc.URL != "/login" || pe.RedirectURL() != "/login" {
		t.Errorf("URL = %q, want /login", rc.URL)
	}
	if rc.ReplaceOutletID != "old1" || rc.NewOutletID != "new1" {
		t.Errorf("outlets = %q -> %q, want old1 -> new1", rc.ReplaceOutletID, rc.NewOutletID)
	}

	rc.Assets[0].Href = "changed"
	if pe.Router().Assets[0].Href != "/a.css" {
		t.Error("Router() returned shared asset slice")
	}
}

func TestContextBinding(t *testing.T) {
	r := httptest.NewRequest("GET", "/", nil)
	fe := NewFetchEvent(r, Env{})

	if FromContext(context.Background()) != nil {
		t.Error("FromContext(empty) != nil")
	}
	ctx := WithFetchEvent(context.Background(), fe)
	if FromContext(ctx) != fe {
		t.Error("FromContext() did not return the bound event")
	}

	pe := NewPageEvent(fe)
	ctx = WithPageEvent(context.Background(), pe)
	if PageFromContext(ctx) != pe {
		t.Error("PageFromContext() did not return the bound page event")
	}
	if FromContext(ctx) != fe {
		t.Error("FromContext() did not return the page's fetch event")
	}
}

func TestLocals(t *testing.T) {
	fe := NewFetchEvent(httptest.NewRequest("GET", "/", nil), Env{})
	fe.Set("user", "ada")
	if v, ok := fe.Get("user"); !ok || v != "ada" {
		t.Errorf("Get(user) = %v, %v, want ada, true", v, ok)
	}
	if _, ok := fe.Get("missing"); ok {
		t.Error("Get(missing) ok = true")
	}
}
