// Package middleware provides observability for Start applications.
//
// This package includes:
//   - Prometheus collectors for requests and server functions
//   - OpenTelemetry spans for requests and server functions
//
// Both types offer a Handler method returning standard HTTP middleware and
// implement server.InvokeHook, so the same value can wrap the router and
// observe the invoker.
//
// # Prometheus Metrics
//
//	m := middleware.NewMetrics()
//	inv := server.NewInvoker(manifest, server.WithHooks(m))
//	r.Use(m.Handler(app.Kind))
//	r.Handle("/metrics", promhttp.Handler())
//
// # OpenTelemetry
//
//	tr := middleware.OpenTelemetry(
//	    middleware.WithTracerName("my-app"),
//	    middleware.WithRequestFilter(func(r *http.Request) bool {
//	        return r.URL.Path != "/healthz"
//	    }),
//	)
//	inv := server.NewInvoker(manifest, server.WithHooks(tr))
//	r.Use(tr.Handler(app.Kind))
//
// Request spans are stored on the request context. Server functions and
// suspense resolvers receive that context, so outgoing calls made with it
// join the trace.
package middleware
