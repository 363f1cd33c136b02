package calendar

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	calendar "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/calvoice/calvoice/internal/google"
)

// primaryCalendarID is the connected user's default calendar.
const primaryCalendarID = "primary"

// Client wraps the Google Calendar service for one connected user.
type Client struct {
	svc    *calendar.Service
	userID string
}

// UserID returns the user this client acts for.
func (c *Client) UserID() string {
	return c.userID
}

// NewClient creates a Calendar client for the given user. The stored token
// seeds a refreshing source; refreshed tokens are written back to the
// provider.
func NewClient(ctx context.Context, userID string, oauthCfg *google.OAuthConfig, provider google.TokenProvider) (*Client, error) {
	token, err := provider.GetToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("calendar is not connected for this user: %w", err)
	}

	source := google.NewPersistingTokenSource(ctx, provider, userID,
		oauthCfg.TokenSource(ctx, token), token)

	client := oauth2.NewClient(ctx, source)

	// Force HTTP/1.1: the Calendar API intermittently resets HTTP/2
	// streams under long-lived clients.
	if transport, ok := client.Transport.(*oauth2.Transport); ok {
		transport.Base = &http.Transport{ForceAttemptHTTP2: false}
	}

	svc, err := calendar.NewService(ctx, option.WithHTTPClient(client))
	if err != nil {
		return nil, fmt.Errorf("failed to create Calendar service: %w", err)
	}

	return &Client{svc: svc, userID: userID}, nil
}

// CreateEvent inserts an event into the user's primary calendar. Start and
// end are forwarded verbatim; the Calendar API is the authority on whether
// they parse.
func (c *Client) CreateEvent(ctx context.Context, req EventRequest) (*EventConfirmation, error) {
	timezone := req.Timezone
	if timezone == "" {
		timezone = "UTC"
	}

	event := &calendar.Event{
		Summary:     req.Title,
		Description: req.Description,
		Start: &calendar.EventDateTime{
			DateTime: req.StartISO,
			TimeZone: timezone,
		},
		End: &calendar.EventDateTime{
			DateTime: req.EndISO,
			TimeZone: timezone,
		},
	}

	created, err := c.svc.Events.Insert(primaryCalendarID, event).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to create event: %w", err)
	}

	return &EventConfirmation{
		EventID:  created.Id,
		HTMLLink: created.HtmlLink,
		Status:   created.Status,
	}, nil
}

// QueryFreeBusy checks the user's primary calendar for busy intervals
// overlapping [startISO, endISO).
func (c *Client) QueryFreeBusy(ctx context.Context, startISO, endISO string) (*Availability, error) {
	query := &calendar.FreeBusyRequest{
		TimeMin: startISO,
		TimeMax: endISO,
		Items:   []*calendar.FreeBusyRequestItem{{Id: primaryCalendarID}},
	}

	result, err := c.svc.Freebusy.Query(query).Context(ctx).Do()
	if err != nil {
		return nil, fmt.Errorf("failed to query free/busy: %w", err)
	}

	availability := &Availability{Available: true}
	cal, ok := result.Calendars[primaryCalendarID]
	if !ok {
		return availability, nil
	}

	for _, period := range cal.Busy {
		conflict, err := parseBusyPeriod(period)
		if err != nil {
			return nil, err
		}
		availability.Conflicts = append(availability.Conflicts, conflict)
	}
	availability.Available = len(availability.Conflicts) == 0

	return availability, nil
}

func parseBusyPeriod(period *calendar.TimePeriod) (Conflict, error) {
	start, err := time.Parse(time.RFC3339, period.Start)
	if err != nil {
		return Conflict{}, fmt.Errorf("unexpected busy period start %q: %w", period.Start, err)
	}
	end, err := time.Parse(time.RFC3339, period.End)
	if err != nil {
		return Conflict{}, fmt.Errorf("unexpected busy period end %q: %w", period.End, err)
	}
	return Conflict{Start: start, End: end}, nil
}
