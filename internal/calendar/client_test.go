package calendar

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	calendarapi "google.golang.org/api/calendar/v3"

	"github.com/giantswarm/mcp-oauth/storage/memory"

	"github.com/calvoice/calvoice/internal/google"
)

func TestParseBusyPeriod(t *testing.T) {
	conflict, err := parseBusyPeriod(&calendarapi.TimePeriod{
		Start: "2026-09-03T14:00:00Z",
		End:   "2026-09-03T15:00:00Z",
	})
	require.NoError(t, err)
	assert.Equal(t, time.Date(2026, 9, 3, 14, 0, 0, 0, time.UTC), conflict.Start)
	assert.Equal(t, time.Hour, conflict.End.Sub(conflict.Start))

	_, err = parseBusyPeriod(&calendarapi.TimePeriod{Start: "not a time", End: "2026-09-03T15:00:00Z"})
	assert.Error(t, err)
}

func newTestScheduler(t *testing.T) *Scheduler {
	t.Helper()
	store := memory.New()
	t.Cleanup(store.Stop)

	oauthCfg, err := google.NewOAuthConfig("client-id", "client-secret", "http://localhost/auth/callback")
	require.NoError(t, err)

	return NewScheduler(oauthCfg, google.NewStoreTokenProvider(store), nil, nil)
}

func TestScheduler_UnconnectedUser(t *testing.T) {
	scheduler := newTestScheduler(t)
	ctx := context.Background()

	_, err := scheduler.CreateEvent(ctx, "nobody@example.com", EventRequest{
		Title:    "Standup",
		StartISO: "2026-09-03T09:00:00Z",
		EndISO:   "2026-09-03T09:15:00Z",
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not connected")

	_, err = scheduler.CheckAvailability(ctx, "nobody@example.com", "2026-09-03T09:00:00Z", "2026-09-03T10:00:00Z")
	assert.Error(t, err)
}

func TestScheduler_EvictIsIdempotent(t *testing.T) {
	scheduler := newTestScheduler(t)

	assert.NotPanics(t, func() {
		scheduler.Evict("nobody@example.com")
		scheduler.Evict("nobody@example.com")
	})
}
