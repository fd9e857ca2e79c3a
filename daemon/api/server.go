// SPDX-License-Identifier: LGPL-3.0-or-later

// Package api is the HTTP façade over the pool and lifecycle controllers:
// acquire/release/resume for callers that want a warm VM, plus read-only
// template/pool/VM inspection and a WebSocket stream of VM state changes.
package api

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"hyperwarm/daemon/metrics"
	"hyperwarm/daemon/openapi"
	"hyperwarm/daemon/store"
	"hyperwarm/daemon/tracing"
	"hyperwarm/hverr"
	"hyperwarm/logger"
	"hyperwarm/pool"
)

// Version is the orchestrator's release version, reported by the CLI's
// --version flag and by GET /health.
const Version = "0.1.0"

// resumer is the single lifecycle.Controller method the direct-resume
// endpoint needs; kept narrow so the façade does not depend on the whole
// lifecycle package surface.
type resumer interface {
	Resume(ctx context.Context, vmID string) (ip string, resumeMS int64, err error)
}

// Server handles HTTP API requests over the pool controller and store.
type Server struct {
	pools      *pool.Controller
	lifecycle  resumer
	store      store.Store
	logger     logger.Logger
	hub        *Hub
	httpServer *http.Server
	mcpPort    int
}

// NewServer builds a Server and wires its routes. tracer may be nil, in
// which case spans are not recorded. mcpPort is reported back in acquire
// responses as the guest port callers reach the VM's MCP endpoint on; it
// is never dialed by the orchestrator itself.
func NewServer(pools *pool.Controller, lc resumer, st store.Store, log logger.Logger, addr string, tracer *tracing.HTTPMiddleware, mcpPort int) *Server {
	hub := NewHub(log)

	s := &Server{
		pools:     pools,
		lifecycle: lc,
		store:     st,
		logger:    log,
		hub:       hub,
		mcpPort:   mcpPort,
	}

	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(s.metricsMiddleware)
	handler := http.Handler(r)
	if tracer != nil {
		handler = tracer.Handler(r)
	}

	r.Get("/health", s.handleHealth)
	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1", func(r chi.Router) {
		r.Get("/templates", s.handleListTemplates)
		r.Get("/pools/{pool}", s.handleGetPool)
		r.Get("/pools/{pool}/vms", s.handleListVMs)
		r.Get("/vms/{name}", s.handleGetVM)

		r.Post("/acquire", s.handleAcquire)
		r.Post("/vms/{name}/release", s.handleRelease)
		r.Post("/vms/{name}/resume", s.handleResume)
	})

	r.Get("/ws", s.handleWebSocket)

	docs := openapi.NewGenerator(openapi.DefaultConfig())
	r.Get("/api/openapi.json", docs.Handler())
	r.Get("/api/docs", openapi.SwaggerUIHandler("/api/openapi.json"))

	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      handler,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s
}

// Start runs the hub's broadcast loop and starts serving HTTP, blocking
// until Shutdown or a listener error.
func (s *Server) Start(ctx context.Context) error {
	go s.hub.Run(ctx)
	s.logger.Info("starting API server", "addr", s.httpServer.Addr)
	err := s.httpServer.ListenAndServe()
	if err == http.ErrServerClosed {
		return nil
	}
	return err
}

// Shutdown gracefully shuts down the server.
func (s *Server) Shutdown(ctx context.Context) error {
	s.logger.Info("shutting down API server")
	return s.httpServer.Shutdown(ctx)
}

// BroadcastVMEvent pushes a VM lifecycle state change to every connected
// WebSocket client. Called by the acquire, release and resume handlers.
func (s *Server) BroadcastVMEvent(vmName, from, to string) {
	s.hub.Broadcast(WSMessage{
		Type: "vm_state_change",
		Data: map[string]string{
			"vm":   vmName,
			"from": from,
			"to":   to,
		},
		Timestamp: time.Now(),
	})
}

// metricsMiddleware records API request counts and latency.
func (s *Server) metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}
		next.ServeHTTP(rec, r)

		route := chi.RouteContext(r.Context()).RoutePattern()
		if route == "" {
			route = r.URL.Path
		}
		metrics.RecordAPIRequest(r.Method, route, http.StatusText(rec.statusCode), time.Since(start).Seconds())
	})
}

type statusRecorder struct {
	http.ResponseWriter
	statusCode int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.statusCode = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	s.jsonResponse(w, http.StatusOK, map[string]string{
		"status":    "healthy",
		"version":   Version,
		"timestamp": time.Now().Format(time.RFC3339),
	})
}

// jsonResponse sends a JSON-encoded response with the given status.
func (s *Server) jsonResponse(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(data)
}

// errorResponse maps an hverr.Error to its HTTP status and logs it; an
// error with no taxonomy kind is answered 500. The body carries the kind
// under "error" and the full error text under "message".
func (s *Server) errorResponse(w http.ResponseWriter, err error) {
	status := hverr.HTTPStatus(err)
	s.logger.Warn("api error", "status", status, "error", err)
	s.jsonResponse(w, status, map[string]string{
		"error":     string(hverr.KindOf(err)),
		"message":   err.Error(),
		"timestamp": time.Now().Format(time.RFC3339),
	})
}
