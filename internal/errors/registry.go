package errors

import (
	stderrors "errors"
	"sort"

	"github.com/vango-dev/start/pkg/chunks"
	"github.com/vango-dev/start/pkg/codec"
	"github.com/vango-dev/start/pkg/features/islands"
	"github.com/vango-dev/start/pkg/render"
	"github.com/vango-dev/start/pkg/server"
	"github.com/vango-dev/start/pkg/static"
)

// ErrorTemplate defines a registered error type.
type ErrorTemplate struct {
	Category   Category
	Message    string
	Detail     string
	Suggestion string
	DocURL     string
}

const docBase = "https://start.vango.dev/docs/errors/"

// registry maps error codes to their templates.
var registry = map[string]ErrorTemplate{
	// ============================================
	// Codec Errors (E100-E109)
	// ============================================

	"E100": {
		Category:   CategoryCodec,
		Message:    "Value cannot be serialized",
		Detail:     "A server function returned a value with no wire encoding, such as a channel or a function.",
		Suggestion: "Return plain data: maps, slices, strings, numbers, time.Time or codec.Promise.",
		DocURL:     docBase + "E100",
	},
	"E101": {
		Category: CategoryCodec,
		Message:  "Value nests too deeply",
		Detail:   "The payload exceeded the maximum nesting depth.",
		DocURL:   docBase + "E101",
	},
	"E102": {
		Category: CategoryCodec,
		Message:  "Result stream abandoned",
		Detail:   "The result stream was closed before its terminal frame was written.",
		DocURL:   docBase + "E102",
	},
	"E103": {
		Category: CategoryCodec,
		Message:  "Stream id already open",
		Detail:   "Two result streams were opened with the same instance id.",
		DocURL:   docBase + "E103",
	},
	"E104": {
		Category: CategoryCodec,
		Message:  "Malformed argument payload",
		Detail:   "The request body could not be decoded into server function arguments.",
		DocURL:   docBase + "E104",
	},

	// ============================================
	// RPC Errors (E110-E119)
	// ============================================

	"E110": {
		Category: CategoryRPC,
		Message:  "Invalid server function request",
		Detail:   "The request was addressed to a server function but its method, id or body was not acceptable.",
		DocURL:   docBase + "E110",
	},
	"E111": {
		Category:   CategoryRPC,
		Message:    "Request body too large",
		Suggestion: "Raise rpc.max_body_bytes in start.yaml.",
		DocURL:     docBase + "E111",
	},
	"E112": {
		Category:   CategoryRPC,
		Message:    "Server function not found",
		Detail:     "The function id names a module or export missing from the chunk manifest.",
		Suggestion: "Check that the module is registered and the export name matches.",
		DocURL:     docBase + "E112",
	},
	"E113": {
		Category: CategoryRPC,
		Message:  "Server function failed",
		DocURL:   docBase + "E113",
	},

	// ============================================
	// Render Errors (E120-E129)
	// ============================================

	"E120": {
		Category:   CategoryRender,
		Message:    "No static document source",
		Detail:     "Server rendering is disabled but no static directory or bucket is configured.",
		Suggestion: "Set static.dir or static.s3.bucket, or enable render.ssr.",
		DocURL:     docBase + "E120",
	},
	"E121": {
		Category: CategoryRender,
		Message:  "Unknown render mode",
		Detail:   "render.mode must be one of sync, async or stream.",
		DocURL:   docBase + "E121",
	},

	// ============================================
	// Islands Errors (E130-E139)
	// ============================================

	"E130": {
		Category:   CategoryIslands,
		Message:    "Outlet markers missing or malformed",
		Detail:     "A partial navigation named an outlet that the rendered page does not wrap in markers.",
		Suggestion: "Render route content through vdom.Outlet so the markers are emitted.",
		DocURL:     docBase + "E130",
	},

	// ============================================
	// Static Errors (E140-E149)
	// ============================================

	"E140": {
		Category: CategoryStatic,
		Message:  "Static document not found",
		DocURL:   docBase + "E140",
	},
	"E141": {
		Category: CategoryStatic,
		Message:  "Invalid static path",
		Detail:   "The path escapes the document root or contains forbidden characters.",
		DocURL:   docBase + "E141",
	},
	"E142": {
		Category:   CategoryStatic,
		Message:    "S3 credentials missing",
		Suggestion: "Export AWS_ACCESS_KEY_ID and AWS_SECRET_ACCESS_KEY.",
		DocURL:     docBase + "E142",
	},
	"E143": {
		Category:   CategoryStatic,
		Message:    "Asset manifest unreadable",
		Suggestion: "Rebuild the client or remove the stale manifest.json.",
		DocURL:     docBase + "E143",
	},

	// ============================================
	// Config Errors (E150-E159)
	// ============================================

	"E150": {
		Category: CategoryConfig,
		Message:  "Invalid configuration",
		DocURL:   docBase + "E150",
	},
	"E151": {
		Category: CategoryConfig,
		Message:  "Configuration file unreadable",
		Detail:   "start.yaml exists but could not be parsed.",
		DocURL:   docBase + "E151",
	},

	// ============================================
	// CLI Errors (E160-E169)
	// ============================================

	"E160": {
		Category:   CategoryCLI,
		Message:    "Server failed",
		Suggestion: "Check that server.addr is free.",
		DocURL:     docBase + "E160",
	},
}

// codeFor returns the registered code for a framework error, or "".
func codeFor(err error) string {
	var (
		codecErr   *codec.CodecError
		classErr   *server.ClassificationError
		invokeErr  *server.InvocationError
		extractErr *islands.PatchExtractionError
	)
	switch {
	case stderrors.Is(err, codec.ErrMaxDepth):
		return "E101"
	case stderrors.Is(err, codec.ErrAbandoned):
		return "E102"
	case stderrors.Is(err, codec.ErrScopeInUse):
		return "E103"
	case stderrors.Is(err, codec.ErrUnsupported):
		return "E100"
	case stderrors.As(err, &codecErr):
		return "E104"
	case stderrors.Is(err, server.ErrBodyTooLarge):
		return "E111"
	case stderrors.As(err, &classErr):
		return "E110"
	case stderrors.Is(err, chunks.ErrChunkNotFound), stderrors.Is(err, chunks.ErrExportNotFound):
		return "E112"
	case stderrors.As(err, &invokeErr):
		return "E113"
	case stderrors.Is(err, render.ErrNoStaticSource):
		return "E120"
	case stderrors.As(err, &extractErr):
		return "E130"
	case stderrors.Is(err, static.ErrNotFound):
		return "E140"
	case stderrors.Is(err, static.ErrBadPath):
		return "E141"
	}
	return ""
}

// GetAllCodes returns all registered error codes, sorted.
func GetAllCodes() []string {
	codes := make([]string, 0, len(registry))
	for code := range registry {
		codes = append(codes, code)
	}
	sort.Strings(codes)
	return codes
}

// GetTemplate returns the template for an error code.
func GetTemplate(code string) (ErrorTemplate, bool) {
	t, ok := registry[code]
	return t, ok
}

// Register adds a new error template to the registry.
func Register(code string, template ErrorTemplate) {
	registry[code] = template
}
