// Package errors provides structured, actionable error messages for the
// start command.
//
// Each error has a unique code (e.g., "E112") that maps to a short message,
// a detailed explanation, an optional fix hint and a documentation URL.
// Codes are grouped by category:
//
//   - E100-E109 codec
//   - E110-E119 rpc
//   - E120-E129 render
//   - E130-E139 islands
//   - E140-E149 static
//   - E150-E159 config
//   - E160-E169 cli
//
// FromError recognizes the errors of the framework packages and picks
// their code, so callers only supply a fallback:
//
//	if err := srv.ListenAndServe(); err != nil {
//	    errors.PrintError(errors.FromError(err, "E160"))
//	}
//
// Output:
//
//	ERROR E160: Server failed
//
//	  listen tcp :3000: bind: address already in use
//
//	  Hint: Check that server.addr is free.
//
//	  Learn more: https://start.vango.dev/docs/errors/E160
package errors
