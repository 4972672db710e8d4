package server

import (
	"errors"
	"log/slog"
	"net/http"
	"net/url"

	"github.com/goccy/go-json"

	"github.com/vango-dev/start/pkg/codec"
	"github.com/vango-dev/start/pkg/event"
)

// RPCConfig configures an RPCHandler.
type RPCConfig struct {
	// MaxBodyBytes bounds request bodies. Zero uses DefaultMaxBodyBytes.
	MaxBodyBytes int64

	// AllowedRedirectHosts lists hosts a server function may redirect to
	// with an absolute URL. Relative redirects are always allowed. When
	// empty, every redirect target is passed through.
	AllowedRedirectHosts []string

	// Registry tracks open result streams. Optional.
	Registry *codec.Registry

	Logger *slog.Logger
}

// RPCHandler serves server function calls.
type RPCHandler struct {
	invoker   *Invoker
	config    RPCConfig
	allowlist map[string]struct{}
	logger    *slog.Logger
}

// NewRPCHandler creates the handler.
func NewRPCHandler(inv *Invoker, cfg RPCConfig) *RPCHandler {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &RPCHandler{
		invoker:   inv,
		config:    cfg,
		allowlist: normalizeRedirectAllowlist(cfg.AllowedRedirectHosts),
		logger:    logger.With("component", "rpc"),
	}
}

// ServeHTTP implements http.Handler.
func (h *RPCHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	call, err := ParseCall(w, r, h.config.MaxBodyBytes)
	if err != nil {
		h.reject(w, err)
		return
	}

	ctx := r.Context()
	if event.FromContext(ctx) == nil {
		ctx = event.WithFetchEvent(ctx, event.NewFetchEvent(r, event.Env{}))
		r = r.WithContext(ctx)
	}

	out, err := h.invoker.Invoke(ctx, call)
	if err != nil {
		h.logger.Error("server function not resolved", "target", call.Target(), "error", err)
		http.Error(w, http.StatusText(http.StatusInternalServerError), http.StatusInternalServerError)
		return
	}

	switch {
	case out.Kind == OutcomeRedirect:
		h.redirect(w, call, out.Redirect)
	case call.Instance == "":
		h.respondNoJS(w, r, call, out)
	default:
		h.respondStream(w, r, call, out)
	}
}

func (h *RPCHandler) reject(w http.ResponseWriter, err error) {
	var ce *ClassificationError
	if !errors.As(err, &ce) {
		http.Error(w, err.Error(), http.StatusBadRequest)
		return
	}
	if ce.Reason == MethodNotAllowed {
		w.Header().Set("Allow", http.MethodPost)
	}
	h.logger.Debug("rejected rpc request", "reason", ce.Reason, "error", err)
	http.Error(w, ce.Error(), ce.StatusCode())
}

// redirect answers a function that asked for a redirect. A client with
// JavaScript gets 204 so its fetch layer does not follow the Location.
func (h *RPCHandler) redirect(w http.ResponseWriter, call *Call, rd *Redirect) {
	target, ok := safeRedirect(rd.URL, h.allowlist)
	if !ok {
		h.logger.Warn("blocked redirect", "target", call.Target(), "url", rd.URL)
		http.Error(w, "redirect not allowed", http.StatusInternalServerError)
		return
	}
	copyHeader(w.Header(), rd.Header)
	w.Header().Set("Location", target)

	status := rd.Status
	if status == 0 {
		status = http.StatusFound
	}
	if call.Instance != "" {
		status = http.StatusNoContent
	}
	w.WriteHeader(status)
}

// formResult is the payload of the form query parameter.
type formResult struct {
	URL     string       `json:"url"`
	Result  any          `json:"result"`
	Error   bool         `json:"error"`
	Entries *FormEntries `json:"entries"`
}

// respondNoJS redirects back to the referring page with the result attached.
func (h *RPCHandler) respondNoJS(w http.ResponseWriter, r *http.Request, call *Call, out Outcome) {
	back, err := url.Parse(refererPath(r))
	if err != nil {
		back = &url.URL{Path: "/"}
	}
	q := back.Query()

	result := formResult{URL: r.URL.RequestURI(), Entries: call.Form}
	if result.Entries == nil {
		result.Entries = &FormEntries{}
	}

	var value any
	switch {
	case out.Kind == OutcomeFailure:
		result.Error = true
		value = out.Err.Cause().Error()
	default:
		value = out.Value
		if e, ok := value.(error); ok {
			result.Error = true
			value = e.Error()
		}
	}

	if !result.Error && codec.IsUndefined(value) {
		q.Del(QueryForm)
	} else {
		result.Result = value
		if value == codec.Null {
			result.Result = nil
		}
		payload, err := json.Marshal(result)
		if err != nil {
			h.logger.Warn("form result not representable", "target", call.Target(), "error", err)
			result.Result = err.Error()
			result.Error = true
			payload, _ = json.Marshal(result)
		}
		q.Set(QueryForm, string(payload))
	}
	back.RawQuery = q.Encode()

	copyHeader(w.Header(), out.Header)
	w.Header().Set("Location", back.String())
	w.WriteHeader(http.StatusFound)
}

// respondStream streams the result, or the error, as codec frames.
func (h *RPCHandler) respondStream(w http.ResponseWriter, r *http.Request, call *Call, out Outcome) {
	status := out.Status
	if status == 0 {
		status = http.StatusOK
	}
	value := out.Value
	if out.Kind == OutcomeFailure {
		status = http.StatusInternalServerError
		value = out.Err.Cause()
	}

	stream := codec.EncodeStream(r.Context(), call.Instance, value,
		codec.WithRegistry(h.config.Registry),
		codec.WithLogger(h.logger))
	defer stream.Close()
	if err := stream.Open(); err != nil {
		h.logger.Error("result scope already open", "target", call.Target(), "instance", call.Instance, "error", err)
		status = http.StatusInternalServerError
	}

	copyHeader(w.Header(), out.Header)
	w.Header().Set("Content-Type", "text/javascript")
	w.WriteHeader(status)
	if _, err := stream.WriteTo(w); err != nil {
		h.logger.Debug("result stream interrupted", "target", call.Target(), "error", err)
	}
}

func copyHeader(dst, src http.Header) {
	for k, vv := range src {
		for _, v := range vv {
			dst.Add(k, v)
		}
	}
}
