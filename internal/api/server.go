// Package api configures and exposes the HTTP server, routes,
// metrics, docs and related middleware for the SCIM provisioning service.
package api

import (
	_ "embed"
	"fmt"
	"net/http"
	"scim/internal/api/handler/scimhandler"
	"scim/internal/api/handler/webhandler"
	"scim/internal/config"
	"scim/internal/provisioning"
	"scim/pkg/controller"
	"scim/pkg/logger"
	"time"

	"github.com/go-faster/jx"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/swaggest/swgui/v5emb"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.uber.org/zap"
)

// scimSpec contains the embedded OpenAPI specification of the SCIM API.
//
//go:embed specs/scim.yaml
var scimSpec []byte

// Options holds configuration for the HTTP server and its dependencies.
// It is typically created from a config.Config via NewOptions.
// All durations are used to configure server timeouts, and zero values
// should be considered as using the defaults provided by net/http where applicable.
type Options struct {
	// SecHandlerOptions configures bearer token authentication of the SCIM endpoints.
	SecHandlerOptions *scimhandler.SecHandlerOptions

	// Addr is the TCP address the server listens on, e.g. ":8080".
	Addr string
	// ReadTimeout is the maximum duration for reading the entire request, including the body.
	ReadTimeout time.Duration
	// ReadHeaderTimeout is the amount of time allowed to read request headers.
	ReadHeaderTimeout time.Duration
	// WriteTimeout is the maximum duration before timing out writes of the response.
	WriteTimeout time.Duration
	// IdleTimeout is the maximum amount of time to wait for the next request when keep-alives are enabled.
	IdleTimeout time.Duration
	// RequestTimeout is the global timeout applied via http.TimeoutHandler for handling requests.
	RequestTimeout time.Duration
	// MaxHeaderBytes controls the maximum number of bytes the server
	// will read parsing the request header's keys and values, including the request line.
	MaxHeaderBytes int
	// MaxBodyBytes limits the size of SCIM request bodies.
	MaxBodyBytes int64
	// MetricsPath is the HTTP path at which Prometheus metrics are served.
	MetricsPath string
}

// NewOptions constructs an Options value from the provided application configuration.
// It maps HTTP server-related settings from config.Config to the Options used by the API server.
func NewOptions(cfg *config.Config) Options {
	return Options{
		SecHandlerOptions: scimhandler.NewSecHandlerOptions(cfg),

		Addr:              cfg.HTTP.Addr,
		ReadTimeout:       cfg.HTTP.ReadTimeout,
		ReadHeaderTimeout: cfg.HTTP.ReadHeaderTimeout,
		WriteTimeout:      cfg.HTTP.WriteTimeout,
		IdleTimeout:       cfg.HTTP.IdleTimeout,
		RequestTimeout:    cfg.HTTP.RequestTimeout,
		MaxHeaderBytes:    cfg.HTTP.MaxHeaderBytes,
		MaxBodyBytes:      cfg.HTTP.MaxBodyBytes,
		MetricsPath:       cfg.HTTP.MetricsPath,
	}
}

type Deps struct {
	Provisioner provisioning.Provisioner
	// AuditSink receives one record per incoming request. Nil disables auditing.
	AuditSink *zap.Logger
	// Registry collects Prometheus metrics. Nil means the process wide default registry.
	Registry *prometheus.Registry
}

func (d Deps) registry() (prometheus.Registerer, prometheus.Gatherer) {
	if d.Registry == nil {
		return prometheus.DefaultRegisterer, prometheus.DefaultGatherer
	}

	return d.Registry, d.Registry
}

// NewServer wires up and returns a configured *http.Server using the provided Options.
// It sets up:
// - Prometheus metrics endpoint (MetricsPath)
// - OpenTelemetry metrics exporter (Prometheus)
// - Embedded OpenAPI spec and Swagger UI
// - SCIM Users routes behind bearer authentication
// - index page and health check
// - pprof endpoints for profiling
// It also wraps the mux with audit, CORS and logging middlewares and applies a request timeout.
func NewServer(deps Deps, opts Options) (*http.Server, error) {
	mux := http.NewServeMux()
	registerer, gatherer := deps.registry()

	// prometheus metrics server
	if opts.MetricsPath == "" {
		opts.MetricsPath = "/metrics"
	}
	mux.Handle(opts.MetricsPath, promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	// otel
	exp, err := otelprom.New(otelprom.WithRegisterer(registerer))
	if err != nil {
		return nil, fmt.Errorf("could not create otel exporter: %w", err)
	}
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(exp))

	// specs file
	mux.HandleFunc("GET /specs/scim.yaml", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/yaml")
		_, _ = w.Write(scimSpec)
	})
	// swagger playground
	mux.Handle("/docs/", v5emb.New(
		"SCIM Provisioning Service",
		"/specs/scim.yaml",
		"/docs/",
	))

	// scim api
	secHandler, err := scimhandler.NewSecHandler(opts.SecHandlerOptions)
	if err != nil {
		return nil, fmt.Errorf("could not create sec handler: %w", err)
	}
	scimHandler, err := scimhandler.New(scimhandler.Deps{Provisioner: deps.Provisioner}, scimhandler.Options{
		MaxBodyBytes:  opts.MaxBodyBytes,
		MeterProvider: mp,
	})
	if err != nil {
		return nil, fmt.Errorf("could not create scim handler: %w", err)
	}
	scimHandler.Register(mux, secHandler)

	// index page
	mux.HandleFunc("GET /{$}", webhandler.New(webhandler.Deps{Provisioner: deps.Provisioner}).Index)

	// health
	mux.HandleFunc("GET /healthz", healthz(deps.Provisioner))

	// pprof
	mux.Handle("/debug/pprof/", controller.PprofMux())

	// audit
	var handler http.Handler = mux
	if deps.AuditSink != nil {
		handler = controller.WithAudit(deps.AuditSink, controller.DefaultAuditBodyLimit, handler)
	}

	// cors
	handler = controller.WithCORS(handler)

	// logger
	handler = controller.WithLogger(handler)

	if opts.RequestTimeout > 0 {
		handler = http.TimeoutHandler(handler, opts.RequestTimeout, `{"error":"request timed out"}`)
	}

	return &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadTimeout:       opts.ReadTimeout,
		ReadHeaderTimeout: opts.ReadHeaderTimeout,
		WriteTimeout:      opts.WriteTimeout,
		IdleTimeout:       opts.IdleTimeout,
		MaxHeaderBytes:    opts.MaxHeaderBytes,
	}, nil
}

func healthz(p provisioning.Provisioner) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		ctx := r.Context()

		status, body := http.StatusOK, "ok"
		if err := p.Ready(ctx); err != nil {
			logger.Warn(ctx, "health check failed", zap.Error(err))
			status, body = http.StatusServiceUnavailable, "unavailable"
		}

		e := jx.GetEncoder()
		defer jx.PutEncoder(e)
		e.ObjStart()
		e.FieldStart("status")
		e.Str(body)
		e.ObjEnd()

		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write(e.Bytes())
	}
}
