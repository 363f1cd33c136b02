package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"
)

const (
	// DefaultAPIAddr is the default address for the public API server.
	DefaultAPIAddr = ":8080"

	defaultReadHeaderTimeout = 10 * time.Second
	defaultWriteTimeout      = 60 * time.Second
	defaultIdleTimeout       = 120 * time.Second
)

// APIServer is the public HTTP listener: webhook, session, connect flow and
// health probes.
type APIServer struct {
	httpServer *http.Server
	health     *HealthChecker
	addr       string
}

// NewAPIServer builds the API server over the server context's router.
func NewAPIServer(sc *ServerContext, addr string) *APIServer {
	if addr == "" {
		addr = DefaultAPIAddr
	}

	health := NewHealthChecker(sc)

	router := sc.Router()
	router.Handle("/healthz", health.LivenessHandler()).Methods(http.MethodGet)
	router.Handle("/readyz", health.ReadinessHandler()).Methods(http.MethodGet)

	return &APIServer{
		httpServer: &http.Server{
			Addr:              addr,
			Handler:           router,
			ReadHeaderTimeout: defaultReadHeaderTimeout,
			WriteTimeout:      defaultWriteTimeout,
			IdleTimeout:       defaultIdleTimeout,
		},
		health: health,
		addr:   addr,
	}
}

// Router exposes the underlying router for tests.
func (s *APIServer) Router() http.Handler {
	return s.httpServer.Handler
}

// Start runs the server until it is shut down.
func (s *APIServer) Start() error {
	if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return fmt.Errorf("api server failed: %w", err)
	}
	return nil
}

// Shutdown drains in-flight requests: readiness flips false first so the
// load balancer stops routing before connections close.
func (s *APIServer) Shutdown(ctx context.Context) error {
	s.health.SetReady(false)
	return s.httpServer.Shutdown(ctx)
}

// Addr returns the configured listen address.
func (s *APIServer) Addr() string {
	return s.addr
}
