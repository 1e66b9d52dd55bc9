// Package scimhandler serves the SCIM v2 Users resource.
package scimhandler

import (
	"fmt"
	"net/http"
	"scim/internal/provisioning"
	"scim/pkg/controller"
	"scim/pkg/metrics"
	"time"

	"go.opentelemetry.io/otel/metric"
)

// UsersPath is the collection path of the Users resource.
const UsersPath = "/scim/v2/Users"

// DefaultMaxBodyBytes caps request bodies when Options.MaxBodyBytes is unset.
const DefaultMaxBodyBytes int64 = 1 << 20

type Deps struct {
	Provisioner provisioning.Provisioner
}

type Options struct {
	// MaxBodyBytes limits POST and PUT bodies. Zero means DefaultMaxBodyBytes.
	MaxBodyBytes int64
	// MeterProvider receives per-operation request metrics. Nil disables them.
	MeterProvider metric.MeterProvider
}

type Handler struct {
	deps         Deps
	maxBodyBytes int64
	operations   *metrics.Operations
}

func New(deps Deps, opts Options) (*Handler, error) {
	ops, err := metrics.NewOperations(opts.MeterProvider)
	if err != nil {
		return nil, fmt.Errorf("could not create operation metrics: %w", err)
	}
	if opts.MaxBodyBytes <= 0 {
		opts.MaxBodyBytes = DefaultMaxBodyBytes
	}

	return &Handler{
		deps:         deps,
		maxBodyBytes: opts.MaxBodyBytes,
		operations:   ops,
	}, nil
}

// Register mounts the Users routes on mux, each behind sec.
func (h *Handler) Register(mux *http.ServeMux, sec *SecHandler) {
	routes := []struct {
		pattern   string
		operation string
		handler   http.HandlerFunc
	}{
		{pattern: "GET " + UsersPath, operation: "listUsers", handler: h.ListUsers},
		{pattern: "POST " + UsersPath, operation: "createUser", handler: h.CreateUser},
		{pattern: "GET " + UsersPath + "/{id}", operation: "getUser", handler: h.GetUser},
		{pattern: "PUT " + UsersPath + "/{id}", operation: "replaceUser", handler: h.ReplaceUser},
		{pattern: "DELETE " + UsersPath + "/{id}", operation: "deleteUser", handler: h.DeleteUser},
	}
	for _, route := range routes {
		mux.Handle(route.pattern, h.instrument(route.operation, sec.Require(route.handler)))
	}
}

func (h *Handler) instrument(operation string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := controller.NewStatusRecorder(w)

		next.ServeHTTP(rec, r)

		h.operations.Record(r.Context(), operation, rec.Status(), time.Since(start))
	})
}
