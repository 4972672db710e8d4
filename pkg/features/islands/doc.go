// Package islands turns a rendered document into a partial-document patch.
//
// When the client router already holds the page shell it asks only for the
// outlet that changed. The server still renders the whole tree, then cuts
// the new outlet out of the markup and answers with
//
//	[assets=<json>;]<oldOutletId>:<newOutletId>=<html>
//
// under Content-Type text/solid-diff. Outlets are produced by vdom.Outlet.
package islands
