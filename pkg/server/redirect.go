package server

import (
	"errors"
	"net/http"
	"net/url"
	"strings"
)

// Redirect asks for the response to become a redirect. Server functions
// return it as their error (or their value) instead of a result.
type Redirect struct {
	URL    string
	Status int
	Header http.Header
}

// RedirectTo returns a 302 redirect to url.
func RedirectTo(url string) *Redirect {
	return &Redirect{URL: url, Status: http.StatusFound, Header: http.Header{}}
}

// WithStatus sets the redirect status used when the client has no
// JavaScript.
func (r *Redirect) WithStatus(code int) *Redirect {
	r.Status = code
	return r
}

// WithHeader adds a header to the redirect response.
func (r *Redirect) WithHeader(key, value string) *Redirect {
	if r.Header == nil {
		r.Header = http.Header{}
	}
	r.Header.Add(key, value)
	return r
}

// Error implements error so a redirect can be returned as one.
func (r *Redirect) Error() string {
	return "redirect to " + r.URL
}

// AsRedirect reports whether err is, or wraps, a *Redirect.
func AsRedirect(err error) (*Redirect, bool) {
	var r *Redirect
	if errors.As(err, &r) {
		return r, true
	}
	return nil, false
}

// ValidateExternalRedirectURL validates an absolute redirect URL against an
// allowlist. It returns the canonical URL and true when allowed.
func ValidateExternalRedirectURL(rawURL string, allowedHosts []string) (string, bool) {
	return validateExternalRedirect(rawURL, normalizeRedirectAllowlist(allowedHosts))
}

// safeRedirect returns target unchanged when no allowlist is configured,
// when it is a same-origin path, or when it is an absolute URL to an
// allowed host.
func safeRedirect(target string, allowlist map[string]struct{}) (string, bool) {
	if len(allowlist) == 0 {
		return target, true
	}
	if strings.HasPrefix(target, "/") && !strings.HasPrefix(target, "//") && !strings.HasPrefix(target, "/\\") {
		return target, true
	}
	return validateExternalRedirect(target, allowlist)
}

func validateExternalRedirect(rawURL string, allowlist map[string]struct{}) (string, bool) {
	if len(allowlist) == 0 {
		return "", false
	}
	u, err := url.Parse(rawURL)
	if err != nil || u.Host == "" {
		return "", false
	}
	if u.Scheme != "https" && u.Scheme != "http" {
		return "", false
	}
	if _, ok := allowlist[strings.ToLower(u.Hostname())]; !ok {
		return "", false
	}
	return u.String(), true
}

func normalizeRedirectAllowlist(allowedHosts []string) map[string]struct{} {
	if len(allowedHosts) == 0 {
		return nil
	}
	allowlist := make(map[string]struct{}, len(allowedHosts))
	for _, host := range allowedHosts {
		h := strings.ToLower(strings.TrimSpace(host))
		if h == "" {
			continue
		}
		allowlist[h] = struct{}{}
	}
	return allowlist
}

// refererPath returns the path and query of the Referer header, or "/".
// The host is dropped so the redirect stays on this origin.
func refererPath(r *http.Request) string {
	ref := r.Header.Get("Referer")
	if ref == "" {
		return "/"
	}
	u, err := url.Parse(ref)
	if err != nil || u.Path == "" || !strings.HasPrefix(u.Path, "/") || strings.HasPrefix(u.Path, "//") {
		return "/"
	}
	return u.RequestURI()
}
