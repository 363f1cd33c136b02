package server

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/giantswarm/mcp-oauth/storage/memory"

	"github.com/calvoice/calvoice/internal/calendar"
	"github.com/calvoice/calvoice/internal/google"
	"github.com/calvoice/calvoice/internal/instrumentation"
	"github.com/calvoice/calvoice/internal/session"
	"github.com/calvoice/calvoice/internal/vapi"
)

// Config holds the dependencies and settings for a server context.
type Config struct {
	GoogleClientID     string
	GoogleClientSecret string
	GoogleRedirectURL  string

	// SessionTokenTTL bounds how long an unredeemed session token lives.
	// Zero means the registry default.
	SessionTokenTTL time.Duration

	Logger          *slog.Logger
	Instrumentation *instrumentation.Provider
}

// ServerContext owns the long-lived collaborators behind the HTTP handlers.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
	registry *session.Registry
	calls    *session.CallCache
	provider google.TokenProvider
	oauthCfg *google.OAuthConfig

	scheduler  *calendar.Scheduler
	dispatcher *vapi.Dispatcher

	stopStore func()

	mu       sync.RWMutex
	shutdown bool
}

// NewServerContext creates the full collaborator graph from configuration.
func NewServerContext(ctx context.Context, cfg Config) (*ServerContext, error) {
	logger := cfg.Logger
	if logger == nil {
		logger = slog.Default()
	}

	oauthCfg, err := google.NewOAuthConfig(cfg.GoogleClientID, cfg.GoogleClientSecret, cfg.GoogleRedirectURL)
	if err != nil {
		return nil, err
	}

	var metrics *instrumentation.Metrics
	var audit *instrumentation.AuditLogger
	if cfg.Instrumentation != nil {
		metrics = cfg.Instrumentation.Metrics()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	audit = instrumentation.NewAuditLogger(logger, instrumentation.DefaultConfig().AuditLogging)

	ttl := cfg.SessionTokenTTL
	if ttl <= 0 {
		ttl = session.DefaultTokenTTL
	}
	registry := session.NewRegistryWithTTL(ttl, logger)
	calls := session.NewCallCache()

	store := memory.New()
	provider := google.NewStoreTokenProvider(store)

	scheduler := calendar.NewScheduler(oauthCfg, provider, logger, metrics)
	resolver := vapi.NewResolver(registry, calls, logger)
	dispatcher := vapi.NewDispatcher(resolver, scheduler, logger, metrics, audit)

	shutdownCtx, cancel := context.WithCancel(ctx)

	return &ServerContext{
		ctx:        shutdownCtx,
		cancel:     cancel,
		logger:     logger,
		metrics:    metrics,
		audit:      audit,
		registry:   registry,
		calls:      calls,
		provider:   provider,
		oauthCfg:   oauthCfg,
		scheduler:  scheduler,
		dispatcher: dispatcher,
		stopStore:  store.Stop,
	}, nil
}

// Context returns the server's lifetime context.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Registry returns the session token registry.
func (sc *ServerContext) Registry() *session.Registry {
	return sc.registry
}

// Dispatcher returns the webhook dispatcher.
func (sc *ServerContext) Dispatcher() *vapi.Dispatcher {
	return sc.dispatcher
}

// TokenProvider returns the per-user Google token provider.
func (sc *ServerContext) TokenProvider() google.TokenProvider {
	return sc.provider
}

// OAuthConfig returns the Google OAuth configuration.
func (sc *ServerContext) OAuthConfig() *google.OAuthConfig {
	return sc.oauthCfg
}

// Scheduler returns the calendar scheduler.
func (sc *ServerContext) Scheduler() *calendar.Scheduler {
	return sc.scheduler
}

// Shutdown releases the context's resources. Safe to call more than once.
func (sc *ServerContext) Shutdown() {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	if sc.shutdown {
		return
	}
	sc.shutdown = true

	sc.registry.Stop()
	if sc.stopStore != nil {
		sc.stopStore()
	}
	sc.cancel()
}

// IsShutdown returns whether the server context has been shut down.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}
