package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"strings"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/klauspost/compress/gzhttp"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/exporters/stdout/stdouttrace"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"

	"github.com/vango-dev/start"
	"github.com/vango-dev/start/internal/config"
	"github.com/vango-dev/start/internal/demo"
	"github.com/vango-dev/start/internal/errors"
	"github.com/vango-dev/start/internal/logging"
	"github.com/vango-dev/start/pkg/assets"
	"github.com/vango-dev/start/pkg/middleware"
	"github.com/vango-dev/start/pkg/static"
)

func serveCmd(configPath *string) *cobra.Command {
	var addr string

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP server",
		Long: `Start the HTTP server for the demo application.

Log level changes in the config file apply without a restart; every
other setting is read once at startup.

Examples:
  start serve
  start serve --addr=:8080
  START_RENDER_MODE=async start serve`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(*configPath, addr)
		},
	}

	cmd.Flags().StringVarP(&addr, "addr", "a", "", "Address to listen on (default from config)")

	return cmd
}

func runServe(configPath, addr string) error {
	cfg, err := config.Load(configPath)
	if err != nil {
		return err
	}
	if addr != "" {
		cfg.Server.Address = addr
	}

	logger, level := logging.New(cfg.Logging.Level, cfg.Logging.AddSource, cfg.Server.Environment)
	slog.SetDefault(logger)
	if cfg.Watch(logger, func(next *config.Config) {
		level.Set(logging.ParseLevel(next.Logging.Level))
	}) {
		logger.Debug("watching config", "file", cfg.File())
	}

	ac, err := appConfig(cfg, logger)
	if err != nil {
		return err
	}

	registry := prometheus.NewRegistry()
	var metrics *middleware.Metrics
	if cfg.Metrics.Enabled {
		registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
		metrics = middleware.NewMetrics(middleware.WithRegistry(registry))
		ac.InvokeHooks = append(ac.InvokeHooks, metrics)
	}

	var tracer *middleware.Tracer
	shutdownTracing := func(context.Context) error { return nil }
	if cfg.Tracing.Stdout {
		tp, err := newTracerProvider()
		if err != nil {
			return err
		}
		shutdownTracing = tp.Shutdown
		tracer = middleware.OpenTelemetry(middleware.WithTracerProvider(tp))
		ac.InvokeHooks = append(ac.InvokeHooks, tracer)
	}

	app := start.New(ac)

	r := chi.NewRouter()
	r.Use(chimw.RequestID, chimw.RealIP, chimw.Recoverer)
	if metrics != nil {
		r.Method(http.MethodGet, cfg.Metrics.Path, promhttp.HandlerFor(registry, promhttp.HandlerOpts{Registry: registry}))
	}
	r.Group(func(r chi.Router) {
		if tracer != nil {
			r.Use(tracer.Handler(app.Kind))
		}
		if metrics != nil {
			r.Use(metrics.Handler(app.Kind))
		}
		if cfg.Compression.Enabled {
			r.Use(func(next http.Handler) http.Handler { return gzhttp.GzipHandler(next) })
		}
		r.Handle("/*", app)
	})

	srv := &http.Server{
		Addr:              cfg.Server.Address,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.ListenAndServe()
	}()

	success("Listening on %s", cfg.Server.Address)
	info("render mode: %s", cfg.RenderMode())
	if metrics != nil {
		info("metrics:     %s", cfg.Metrics.Path)
	}

	select {
	case err := <-errCh:
		if err != http.ErrServerClosed {
			return err
		}
		return nil
	case <-ctx.Done():
	}

	fmt.Println("\n  Shutting down...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown failed", "error", err)
	}
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("flushing traces failed", "error", err)
	}
	return nil
}

// appConfig builds the demo application from the loaded configuration.
// A manifest.json under the assets directory is optional.
func appConfig(cfg *config.Config, logger *slog.Logger) (start.Config, error) {
	var manifest *assets.Manifest
	if cfg.Static.Dir != "" {
		path := filepath.Join(cfg.Static.Dir, strings.Trim(cfg.Static.AssetsPrefix, "/"), "manifest.json")
		m, err := assets.Load(path)
		switch {
		case err == nil:
			manifest = m
			logger.Debug("loaded asset manifest", "file", path, "files", m.Len())
		case !os.IsNotExist(err):
			return start.Config{}, errors.New("E143").WithDetail(path).Wrap(err)
		}
	}

	store := demo.NewStore(demo.DefaultLatency, "Read the docs", "Stream a page")
	ac := demo.Config(store, demo.WithManifest(manifest, cfg.Static.AssetsPrefix))
	ac.Render = cfg.RenderOptions()
	ac.RPC = start.RPCConfig{
		MaxBodyBytes:         cfg.RPC.MaxBodyBytes,
		AllowedRedirectHosts: cfg.RPC.AllowedRedirectHosts,
	}
	ac.Static.AssetsPrefix = cfg.Static.AssetsPrefix

	switch {
	case cfg.Static.Dir != "":
		ac.Static.FS = os.DirFS(cfg.Static.Dir)
	case cfg.Static.S3.Bucket != "":
		client := static.NewS3Client(static.S3Config{
			Region:    cfg.Static.S3.Region,
			Endpoint:  cfg.Static.S3.Endpoint,
			PathStyle: cfg.Static.S3.PathStyle,
		})
		ac.Static.Documents = static.NewS3Source(client, cfg.Static.S3.Bucket, cfg.Static.S3.Prefix)
	}

	ac.DevMode = cfg.Server.Environment == config.EnvDev
	ac.Logger = logger
	return ac, nil
}

func newTracerProvider() (*sdktrace.TracerProvider, error) {
	exporter, err := stdouttrace.New(stdouttrace.WithPrettyPrint())
	if err != nil {
		return nil, err
	}
	return sdktrace.NewTracerProvider(sdktrace.WithBatcher(exporter)), nil
}
