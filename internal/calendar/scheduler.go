package calendar

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/calvoice/calvoice/internal/google"
	"github.com/calvoice/calvoice/internal/instrumentation"
	"github.com/calvoice/calvoice/internal/logging"
)

// Scheduler serves calendar operations across users, caching one client per
// user so token sources and HTTP connections are reused between tool calls.
type Scheduler struct {
	oauthCfg *google.OAuthConfig
	provider google.TokenProvider
	logger   *slog.Logger
	metrics  *instrumentation.Metrics

	mu      sync.Mutex
	clients map[string]*Client
}

// NewScheduler creates a scheduler over the OAuth configuration and token
// provider.
func NewScheduler(oauthCfg *google.OAuthConfig, provider google.TokenProvider, logger *slog.Logger, metrics *instrumentation.Metrics) *Scheduler {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Scheduler{
		oauthCfg: oauthCfg,
		provider: provider,
		logger:   logger,
		metrics:  metrics,
		clients:  make(map[string]*Client),
	}
}

// clientFor returns the cached client for the user, creating one on first
// use. Client construction is cheap enough to hold the lock across it.
func (s *Scheduler) clientFor(ctx context.Context, userID string) (*Client, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if client, ok := s.clients[userID]; ok {
		return client, nil
	}

	// context.Background: the token source outlives the request that
	// first built the client.
	client, err := NewClient(context.Background(), userID, s.oauthCfg, s.provider)
	if err != nil {
		return nil, err
	}
	s.clients[userID] = client
	return client, nil
}

// Evict drops the cached client for a user, forcing the next operation to
// rebuild it from the stored token. Used after a reconnect.
func (s *Scheduler) Evict(userID string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.clients, userID)
}

// CreateEvent inserts an event into the user's primary calendar.
func (s *Scheduler) CreateEvent(ctx context.Context, userID string, req EventRequest) (*EventConfirmation, error) {
	start := time.Now()

	client, err := s.clientFor(ctx, userID)
	if err != nil {
		s.metrics.RecordCalendarOperation(ctx, "create_event", instrumentation.StatusError, time.Since(start))
		return nil, err
	}

	confirmation, err := client.CreateEvent(ctx, req)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordCalendarOperation(ctx, "create_event", status, time.Since(start))

	if err != nil {
		s.logger.Error("Calendar event creation failed",
			logging.Operation("create_event"),
			logging.UserHash(userID),
			logging.Err(err),
		)
		return nil, err
	}

	s.logger.Info("Calendar event created",
		logging.Operation("create_event"),
		logging.UserHash(userID),
		"event_id", confirmation.EventID,
	)
	return confirmation, nil
}

// CheckAvailability queries the user's primary calendar for conflicts in the
// requested interval.
func (s *Scheduler) CheckAvailability(ctx context.Context, userID, startISO, endISO string) (*Availability, error) {
	start := time.Now()

	client, err := s.clientFor(ctx, userID)
	if err != nil {
		s.metrics.RecordCalendarOperation(ctx, "freebusy", instrumentation.StatusError, time.Since(start))
		return nil, err
	}

	availability, err := client.QueryFreeBusy(ctx, startISO, endISO)
	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
	}
	s.metrics.RecordCalendarOperation(ctx, "freebusy", status, time.Since(start))

	if err != nil {
		s.logger.Error("Free/busy query failed",
			logging.Operation("freebusy"),
			logging.UserHash(userID),
			logging.Err(err),
		)
		return nil, err
	}

	return availability, nil
}
