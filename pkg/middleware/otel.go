package middleware

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/vango-dev/start/pkg/server"
)

// Default tracer name.
const defaultTracerName = "start"

// OTelConfig configures tracing.
type OTelConfig struct {
	// TracerName is the name of the tracer (default: "start").
	TracerName string

	// Provider supplies the tracer. Default: the global provider.
	Provider trace.TracerProvider

	// Filter determines which requests to trace. If nil, all are traced.
	Filter func(r *http.Request) bool

	// AttributeExtractor adds custom attributes to request spans.
	AttributeExtractor func(r *http.Request) []attribute.KeyValue
}

// OTelOption configures tracing.
type OTelOption func(*OTelConfig)

// WithTracerName sets the tracer name.
func WithTracerName(name string) OTelOption {
	return func(c *OTelConfig) {
		c.TracerName = name
	}
}

// WithTracerProvider sets the tracer provider.
func WithTracerProvider(tp trace.TracerProvider) OTelOption {
	return func(c *OTelConfig) {
		c.Provider = tp
	}
}

// WithRequestFilter sets a filter function for requests.
func WithRequestFilter(filter func(r *http.Request) bool) OTelOption {
	return func(c *OTelConfig) {
		c.Filter = filter
	}
}

// WithAttributeExtractor sets a custom attribute extractor.
func WithAttributeExtractor(extractor func(r *http.Request) []attribute.KeyValue) OTelOption {
	return func(c *OTelConfig) {
		c.AttributeExtractor = extractor
	}
}

// Tracer traces requests and server function invocations.
type Tracer struct {
	config OTelConfig
	tracer trace.Tracer
}

// OpenTelemetry creates a Tracer.
//
// The tracer uses the global OpenTelemetry tracer provider unless
// WithTracerProvider is given. Configure it in main():
//
//	tp := sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter))
//	otel.SetTracerProvider(tp)
func OpenTelemetry(opts ...OTelOption) *Tracer {
	config := OTelConfig{TracerName: defaultTracerName}
	for _, opt := range opts {
		opt(&config)
	}
	provider := config.Provider
	if provider == nil {
		provider = otel.GetTracerProvider()
	}
	return &Tracer{config: config, tracer: provider.Tracer(config.TracerName)}
}

// Handler returns HTTP middleware opening a server span per request. The
// span rides on the request context, so render and server functions
// inherit it.
func (t *Tracer) Handler(classify func(*http.Request) string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if t.config.Filter != nil && !t.config.Filter(r) {
				next.ServeHTTP(w, r)
				return
			}

			kind := "page"
			if classify != nil {
				kind = classify(r)
			}
			attrs := []attribute.KeyValue{
				attribute.String("http.method", r.Method),
				attribute.String("http.target", r.URL.Path),
				attribute.String("start.kind", kind),
			}
			if t.config.AttributeExtractor != nil {
				attrs = append(attrs, t.config.AttributeExtractor(r)...)
			}

			ctx, span := t.tracer.Start(r.Context(), formatSpanName(r, kind),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(attrs...),
				trace.WithTimestamp(time.Now()),
			)
			defer span.End()

			rec := newStatusRecorder(w)
			next.ServeHTTP(rec, r.WithContext(ctx))

			status := rec.Status()
			span.SetAttributes(attribute.Int("http.status_code", status))
			if status >= http.StatusInternalServerError {
				span.SetStatus(codes.Error, http.StatusText(status))
			} else {
				span.SetStatus(codes.Ok, "")
			}
		})
	}
}

// InvokeStart implements server.InvokeHook by opening a child span.
func (t *Tracer) InvokeStart(ctx context.Context, call *server.Call) context.Context {
	ctx, _ = t.tracer.Start(ctx, "rpc "+call.Target(),
		trace.WithSpanKind(trace.SpanKindInternal),
		trace.WithAttributes(
			attribute.String("start.module", call.Module),
			attribute.String("start.export", call.Export),
			attribute.Bool("start.nojs", call.Instance == ""),
		),
	)
	return ctx
}

// InvokeEnd implements server.InvokeHook by closing the span InvokeStart
// opened.
func (t *Tracer) InvokeEnd(ctx context.Context, call *server.Call, out server.Outcome, elapsed time.Duration) {
	span := trace.SpanFromContext(ctx)
	span.SetAttributes(attribute.String("start.outcome", out.Kind.String()))
	switch out.Kind {
	case server.OutcomeFailure:
		span.RecordError(out.Err)
		span.SetStatus(codes.Error, out.Err.Error())
	case server.OutcomeRedirect:
		span.SetAttributes(attribute.String("start.redirect", out.Redirect.URL))
		span.SetStatus(codes.Ok, "")
	default:
		span.SetStatus(codes.Ok, "")
	}
	span.End()
}

var _ server.InvokeHook = (*Tracer)(nil)

func formatSpanName(r *http.Request, kind string) string {
	path := r.URL.Path
	if path == "" {
		path = "/"
	}
	return fmt.Sprintf("%s %s %s", kind, r.Method, path)
}
