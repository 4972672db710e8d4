package server

import "net/http"

// Header and query names of the RPC protocol.
const (
	HeaderServerID = "x-server-id"
	HeaderInstance = "x-server-instance"

	QueryID   = "id"
	QueryName = "name"
	QueryForm = "form"
)

// Kind is the handling path of a request.
type Kind int

const (
	KindPage Kind = iota
	KindRPC
	KindAPI
)

// String returns the kind name, used as a metrics label.
func (k Kind) String() string {
	switch k {
	case KindRPC:
		return "rpc"
	case KindAPI:
		return "api"
	default:
		return "page"
	}
}

// IsRPC reports whether r addresses a server function.
func IsRPC(r *http.Request) bool {
	if r.Header.Get(HeaderServerID) != "" {
		return true
	}
	q := r.URL.Query()
	return q.Has(QueryID) && q.Has(QueryName)
}

// Classify picks the handling path for r. RPC addressing takes precedence
// over the route table; routes may be nil.
func Classify(r *http.Request, routes *Routes) Kind {
	switch {
	case IsRPC(r):
		return KindRPC
	case routes.Match(r):
		return KindAPI
	default:
		return KindPage
	}
}
