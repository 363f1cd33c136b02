package vapi

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/calvoice/calvoice/internal/calendar"
	"github.com/calvoice/calvoice/internal/clock"
	"github.com/calvoice/calvoice/internal/instrumentation"
	"github.com/calvoice/calvoice/internal/logging"
)

// Tool names the assistant platform dispatches.
const (
	ToolGetCurrentTime      = "get_current_time"
	ToolCreateCalendarEvent = "create_calendar_event"
	ToolCheckAvailability   = "check_availability"
)

// DefaultToolTimeout bounds a single outbound calendar operation.
const DefaultToolTimeout = 30 * time.Second

// CalendarService is the calendar collaborator the dispatcher drives.
// Implemented by calendar.Scheduler.
type CalendarService interface {
	CreateEvent(ctx context.Context, userID string, req calendar.EventRequest) (*calendar.EventConfirmation, error)
	CheckAvailability(ctx context.Context, userID, startISO, endISO string) (*calendar.Availability, error)
}

// Dispatcher turns inbound webhook messages into responses. It owns no state
// of its own beyond its collaborators, so one instance serves all deliveries
// concurrently.
type Dispatcher struct {
	resolver *Resolver
	calendar CalendarService
	timeout  time.Duration
	logger   *slog.Logger
	metrics  *instrumentation.Metrics
	audit    *instrumentation.AuditLogger
}

// NewDispatcher wires a dispatcher over the resolver and calendar service.
// Metrics and audit may be nil-valued recorders when instrumentation is off.
func NewDispatcher(resolver *Resolver, svc CalendarService, logger *slog.Logger, metrics *instrumentation.Metrics, audit *instrumentation.AuditLogger) *Dispatcher {
	if logger == nil {
		logger = slog.Default()
	}
	if metrics == nil {
		metrics = &instrumentation.Metrics{}
	}
	return &Dispatcher{
		resolver: resolver,
		calendar: svc,
		timeout:  DefaultToolTimeout,
		logger:   logger,
		metrics:  metrics,
		audit:    audit,
	}
}

// Handle processes one webhook message. It never returns nil and never
// escalates a tool-level failure to the transport: the platform retries
// failed HTTP deliveries, and a retry of a half-applied batch is worse than
// an in-band error result.
func (d *Dispatcher) Handle(ctx context.Context, msg *Message) *Response {
	eventType := "unknown"
	if msg != nil {
		eventType = msg.Type
	}

	ctx, span := instrumentation.StartWebhookSpan(ctx, eventType)
	defer span.End()

	var resp *Response
	switch eventType {
	case EventAssistantRequest:
		resp = d.handleAssistantRequest(ctx, msg)
	case EventEndOfCallReport:
		resp = d.handleEndOfCall(ctx, msg)
	case EventToolCalls:
		resp = d.handleToolCalls(ctx, msg)
	default:
		// Transcripts, status updates and future event types are
		// acknowledged without action.
		d.logger.Debug("Ignoring webhook event", logging.EventType(eventType))
		resp = &Response{OK: true}
	}

	d.metrics.RecordWebhookEvent(ctx, eventType, instrumentation.StatusSuccess)
	instrumentation.SetSpanSuccess(span)
	return resp
}

// handleAssistantRequest grounds the conversation in the current time before
// the assistant says a word. Identity resolution here is best-effort: it warms
// the call cache when the platform forwarded the session variables, but a miss
// is not an error because tool-calls events get their own resolution pass.
func (d *Dispatcher) handleAssistantRequest(ctx context.Context, msg *Message) *Response {
	userID, source, err := d.resolver.Resolve(msg)
	if err != nil {
		d.metrics.RecordIdentityResolution(ctx, "none", instrumentation.StatusError)
		d.logger.Info("Assistant request without resolvable identity",
			logging.EventType(EventAssistantRequest),
			logging.CallID(callID(msg)),
		)
	} else {
		d.metrics.RecordIdentityResolution(ctx, source, instrumentation.StatusSuccess)
		d.logger.Info("Assistant request resolved",
			logging.EventType(EventAssistantRequest),
			logging.CallID(callID(msg)),
			logging.UserHash(userID),
		)
	}

	d.metrics.IncrementActiveCalls(ctx)

	snap := clock.Now("")
	return &Response{
		Messages: []SystemMessage{{Role: "system", Content: groundingContent(snap)}},
	}
}

func (d *Dispatcher) handleEndOfCall(ctx context.Context, msg *Message) *Response {
	id := callID(msg)
	d.resolver.EndCall(id)
	d.metrics.DecrementActiveCalls(ctx)
	d.logger.Info("Call ended",
		logging.EventType(EventEndOfCallReport),
		logging.CallID(id),
	)
	return &Response{OK: true}
}

// handleToolCalls resolves the caller once, computes one snapshot for the
// whole batch, then dispatches each tool call in isolation. Every tool call
// gets exactly one result; a failure in one never suppresses its siblings.
func (d *Dispatcher) handleToolCalls(ctx context.Context, msg *Message) *Response {
	userID, source, resolveErr := d.resolver.Resolve(msg)
	if resolveErr != nil {
		d.metrics.RecordIdentityResolution(ctx, "none", instrumentation.StatusError)
	} else {
		d.metrics.RecordIdentityResolution(ctx, source, instrumentation.StatusSuccess)
	}

	snap := clock.Now(timezoneHint(msg.ToolCallList))

	results := make([]ToolCallResult, 0, len(msg.ToolCallList))
	for _, tc := range msg.ToolCallList {
		results = append(results, d.dispatchTool(ctx, msg, tc, userID, resolveErr, snap))
	}

	return &Response{
		Results:  results,
		Messages: []SystemMessage{{Role: "system", Content: groundingContent(snap)}},
	}
}

// dispatchTool runs one tool call and always produces a result, folding every
// failure class into an in-band error payload.
func (d *Dispatcher) dispatchTool(ctx context.Context, msg *Message, tc ToolCall, userID string, resolveErr error, snap clock.Snapshot) ToolCallResult {
	start := time.Now()
	ctx, span := instrumentation.StartToolSpan(ctx, tc.Name, callID(msg))
	defer span.End()

	payload, err := d.runTool(ctx, tc, userID, resolveErr, snap)

	status := instrumentation.StatusSuccess
	if err != nil {
		status = instrumentation.StatusError
		payload = errorPayloadFor(err, snap)
		instrumentation.SetSpanError(span, err)
		d.logger.Warn("Tool call failed",
			logging.Tool(tc.Name),
			logging.CallID(callID(msg)),
			logging.Err(err),
		)
	} else {
		instrumentation.SetSpanSuccess(span)
	}

	duration := time.Since(start)
	d.metrics.RecordToolInvocation(ctx, tc.Name, status, duration)
	d.audit.LogToolInvocation(ctx, instrumentation.ToolInvocation{
		Tool:      tc.Name,
		UserID:    userID,
		CallID:    callID(msg),
		EventType: EventToolCalls,
		Duration:  duration,
		Success:   err == nil,
		Error:     errString(err),
		TraceID:   instrumentation.GetTraceID(ctx),
	})

	return ToolCallResult{
		ToolCallID: tc.ID,
		Name:       tc.Name,
		Result:     marshalResult(payload),
	}
}

func (d *Dispatcher) runTool(ctx context.Context, tc ToolCall, userID string, resolveErr error, snap clock.Snapshot) (any, error) {
	// An unresolved identity fails the whole batch: every tool call gets
	// the remediation result, and nothing reaches the calendar.
	if resolveErr != nil {
		return nil, resolveErr
	}

	switch tc.Name {
	case ToolGetCurrentTime:
		// No arguments beyond the timezone hint already folded into the
		// batch snapshot.
		return snap, nil

	case ToolCreateCalendarEvent:
		return d.createEvent(ctx, tc, userID, snap)

	case ToolCheckAvailability:
		return d.checkAvailability(ctx, tc, userID, snap)

	default:
		return nil, fmt.Errorf("unknown tool %q", tc.Name)
	}
}

func (d *Dispatcher) createEvent(ctx context.Context, tc ToolCall, userID string, snap clock.Snapshot) (any, error) {
	args, err := tc.NormalizedArguments()
	if err != nil {
		return nil, &ProtocolError{Err: err}
	}

	title := stringArg(args, "title")
	startISO := stringArg(args, "startIso")
	endISO := stringArg(args, "endIso")

	var missing []string
	if title == "" {
		missing = append(missing, "title")
	}
	if startISO == "" {
		missing = append(missing, "startIso")
	}
	if endISO == "" {
		missing = append(missing, "endIso")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	// Voice assistants routinely hallucinate dates from their training
	// cutoff. A start that parses and lies strictly in the past is
	// rejected with the server time attached so the model can re-derive
	// it; a start that does not parse is passed through for the Calendar
	// API to judge.
	if start, ok := parseEventTime(startISO, snap.Timezone); ok {
		now, _ := snap.Instant()
		if start.Before(now) {
			return nil, &TemporalRejection{StartISO: startISO}
		}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	confirmation, err := d.calendar.CreateEvent(ctx, userID, calendar.EventRequest{
		Title:       title,
		Description: stringArg(args, "description"),
		StartISO:    startISO,
		EndISO:      endISO,
		Timezone:    snap.Timezone,
	})
	if err != nil {
		return nil, &UpstreamFailure{Op: "create calendar event", Err: err}
	}

	return eventCreatedPayload{
		Status:            "ok",
		EventID:           confirmation.EventID,
		HTMLLink:          confirmation.HTMLLink,
		EventStatus:       confirmation.Status,
		ServerCurrentTime: snap.HumanReadable,
	}, nil
}

func (d *Dispatcher) checkAvailability(ctx context.Context, tc ToolCall, userID string, snap clock.Snapshot) (any, error) {
	args, err := tc.NormalizedArguments()
	if err != nil {
		return nil, &ProtocolError{Err: err}
	}

	startISO := stringArg(args, "startIso")
	endISO := stringArg(args, "endIso")

	var missing []string
	if startISO == "" {
		missing = append(missing, "startIso")
	}
	if endISO == "" {
		missing = append(missing, "endIso")
	}
	if len(missing) > 0 {
		return nil, &ValidationError{Missing: missing}
	}

	ctx, cancel := context.WithTimeout(ctx, d.timeout)
	defer cancel()

	availability, err := d.calendar.CheckAvailability(ctx, userID, startISO, endISO)
	if err != nil {
		return nil, &UpstreamFailure{Op: "availability check", Err: err}
	}

	loc := time.UTC
	if l, err := time.LoadLocation(snap.Timezone); err == nil {
		loc = l
	}

	conflicts := make([]conflictPayload, 0, len(availability.Conflicts))
	for _, c := range availability.Conflicts {
		start := c.Start.In(loc)
		end := c.End.In(loc)
		conflicts = append(conflicts, conflictPayload{
			Start:    start.Format("3:04 PM"),
			End:      end.Format("3:04 PM"),
			Date:     start.Format("2006-01-02"),
			StartISO: start.Format(time.RFC3339),
			EndISO:   end.Format(time.RFC3339),
		})
	}

	message := "The requested time is available."
	if !availability.Available {
		message = fmt.Sprintf("The requested time conflicts with %d existing event(s).", len(conflicts))
	}

	return availabilityPayload{
		Available:         availability.Available,
		Conflicts:         conflicts,
		Message:           message,
		ServerCurrentTime: snap.HumanReadable,
	}, nil
}

// eventCreatedPayload is the create_calendar_event success result.
type eventCreatedPayload struct {
	Status            string `json:"status"`
	EventID           string `json:"eventId"`
	HTMLLink          string `json:"htmlLink"`
	EventStatus       string `json:"eventStatus"`
	ServerCurrentTime string `json:"serverCurrentTime"`
}

// availabilityPayload is the check_availability result. Conflicts is always
// a JSON array, never null.
type availabilityPayload struct {
	Available         bool              `json:"available"`
	Conflicts         []conflictPayload `json:"conflicts"`
	Message           string            `json:"message,omitempty"`
	ServerCurrentTime string            `json:"serverCurrentTime"`
}

type conflictPayload struct {
	Start    string `json:"start"`
	End      string `json:"end"`
	Date     string `json:"date"`
	StartISO string `json:"startIso"`
	EndISO   string `json:"endIso"`
}

// errorPayload is the uniform in-band failure shape.
type errorPayload struct {
	Error             bool   `json:"error"`
	Message           string `json:"message"`
	ServerCurrentTime string `json:"serverCurrentTime,omitempty"`
}

// errorPayloadFor maps an error to its wire payload. Every failure except an
// unresolved identity carries the server time so the model can self-correct.
func errorPayloadFor(err error, snap clock.Snapshot) errorPayload {
	if errors.Is(err, ErrIdentityUnresolved) {
		return errorPayload{Error: true, Message: identityRemediation}
	}
	return errorPayload{Error: true, Message: err.Error(), ServerCurrentTime: snap.HumanReadable}
}

// marshalResult serializes a tool payload into the protocol's JSON-string
// result field.
func marshalResult(payload any) string {
	data, err := json.Marshal(payload)
	if err != nil {
		return `{"error":true,"message":"internal serialization failure"}`
	}
	return string(data)
}

// timezoneHint scans a batch for the first timezone argument so the whole
// batch shares one localized snapshot.
func timezoneHint(toolCalls []ToolCall) string {
	for _, tc := range toolCalls {
		args, err := tc.NormalizedArguments()
		if err != nil {
			continue
		}
		if tz := stringArg(args, "timezone"); tz != "" {
			return tz
		}
	}
	return ""
}

// parseEventTime parses an event timestamp for the past-check. RFC 3339 first,
// then a naive local timestamp interpreted in the snapshot's zone.
func parseEventTime(iso, timezone string) (time.Time, bool) {
	if t, err := time.Parse(time.RFC3339, iso); err == nil {
		return t, true
	}
	loc := time.UTC
	if l, err := time.LoadLocation(timezone); err == nil {
		loc = l
	}
	if t, err := time.ParseInLocation("2006-01-02T15:04:05", iso, loc); err == nil {
		return t, true
	}
	return time.Time{}, false
}

func groundingContent(snap clock.Snapshot) string {
	return fmt.Sprintf("%s Treat this as the authoritative current time; resolve any relative dates like \"tomorrow\" or \"next Tuesday\" against it.", snap.HumanReadable)
}

func stringArg(args map[string]any, key string) string {
	if v, ok := args[key].(string); ok {
		return v
	}
	return ""
}

func errString(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}
