// Package telemetry's server.go exposes the optional /metrics and
// /healthz HTTP endpoints for long-running `run-all` batch mode (§6).
//
// Grounded on the teacher's internal/interfaces/http/server.go: a
// gorilla/mux router built once in a constructor, routes registered in
// a single setupRoutes-equivalent method, wrapped in a *http.Server with
// explicit timeouts.
package telemetry

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// ServerConfig mirrors the teacher's ServerConfig shape.
type ServerConfig struct {
	Addr         string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	IdleTimeout  time.Duration
}

// DefaultServerConfig returns sane defaults for a local-only telemetry
// listener.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:         "127.0.0.1:9090",
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
		IdleTimeout:  60 * time.Second,
	}
}

// Server is the optional telemetry HTTP server for `run-all` batch mode:
// Prometheus scrape endpoint, a liveness check, and the progress
// websocket stream.
type Server struct {
	router *mux.Router
	http   *http.Server
	stream *Stream
}

// NewServer builds a Server exposing /metrics (via gatherer), /healthz,
// and /stream (the progress websocket, served under "run-all --serve").
func NewServer(cfg ServerConfig, gatherer prometheus.Gatherer, stream *Stream) *Server {
	router := mux.NewRouter()
	s := &Server{router: router, stream: stream}

	router.Handle("/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	router.HandleFunc("/healthz", s.handleHealthz).Methods(http.MethodGet)
	router.HandleFunc("/stream", stream.ServeHTTP)

	s.http = &http.Server{
		Addr:         cfg.Addr,
		Handler:      router,
		ReadTimeout:  cfg.ReadTimeout,
		WriteTimeout: cfg.WriteTimeout,
		IdleTimeout:  cfg.IdleTimeout,
	}
	return s
}

// ListenAndServe runs the telemetry server until the process stops it
// or an unrecoverable error occurs.
func (s *Server) ListenAndServe() error {
	return s.http.ListenAndServe()
}

func (s *Server) handleHealthz(w http.ResponseWriter, _ *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte(`{"status":"ok"}`))
}
