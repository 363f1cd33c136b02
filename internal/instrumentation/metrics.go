package instrumentation

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

// Metric attribute keys.
const (
	attrMethod    = "method"
	attrPath      = "path"
	attrStatus    = "status"
	attrEventType = "event_type"
	attrTool      = "tool"
	attrSource    = "source"
	attrOperation = "operation"
	attrResult    = "result"
)

// Metrics provides methods for recording observability metrics. The zero
// value is a safe no-op recorder.
type Metrics struct {
	// HTTP metrics
	httpRequestsTotal   metric.Int64Counter
	httpRequestDuration metric.Float64Histogram

	// Webhook protocol metrics
	webhookEventsTotal metric.Int64Counter
	toolInvocations    metric.Int64Counter
	toolDuration       metric.Float64Histogram

	// Identity metrics
	identityResolutions metric.Int64Counter
	sessionTokensIssued metric.Int64Counter
	activeCalls         metric.Int64UpDownCounter

	// Calendar collaborator metrics
	calendarOperationsTotal   metric.Int64Counter
	calendarOperationDuration metric.Float64Histogram

	// OAuth connect flow metrics
	oauthConnectTotal metric.Int64Counter
}

// NewMetrics creates a Metrics instance with all instruments initialized.
func NewMetrics(meter metric.Meter) (*Metrics, error) {
	m := &Metrics{}

	var err error

	m.httpRequestsTotal, err = meter.Int64Counter(
		"http_requests_total",
		metric.WithDescription("Total number of HTTP requests"),
		metric.WithUnit("{request}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_requests_total counter: %w", err)
	}

	m.httpRequestDuration, err = meter.Float64Histogram(
		"http_request_duration_seconds",
		metric.WithDescription("HTTP request duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.001, 0.01, 0.1, 0.5, 1.0, 2.5, 5.0, 10.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create http_request_duration_seconds histogram: %w", err)
	}

	m.webhookEventsTotal, err = meter.Int64Counter(
		"webhook_events_total",
		metric.WithDescription("Total number of webhook events by type"),
		metric.WithUnit("{event}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create webhook_events_total counter: %w", err)
	}

	m.toolInvocations, err = meter.Int64Counter(
		"tool_invocations_total",
		metric.WithDescription("Total number of tool invocations"),
		metric.WithUnit("{invocation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_invocations_total counter: %w", err)
	}

	m.toolDuration, err = meter.Float64Histogram(
		"tool_duration_seconds",
		metric.WithDescription("Tool execution duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create tool_duration_seconds histogram: %w", err)
	}

	m.identityResolutions, err = meter.Int64Counter(
		"identity_resolutions_total",
		metric.WithDescription("Total number of call identity resolution attempts by source"),
		metric.WithUnit("{resolution}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create identity_resolutions_total counter: %w", err)
	}

	m.sessionTokensIssued, err = meter.Int64Counter(
		"session_tokens_issued_total",
		metric.WithDescription("Total number of session tokens minted"),
		metric.WithUnit("{token}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create session_tokens_issued_total counter: %w", err)
	}

	m.activeCalls, err = meter.Int64UpDownCounter(
		"active_calls",
		metric.WithDescription("Number of calls with a cached identity"),
		metric.WithUnit("{call}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create active_calls gauge: %w", err)
	}

	m.calendarOperationsTotal, err = meter.Int64Counter(
		"google_calendar_operations_total",
		metric.WithDescription("Total number of Google Calendar API operations"),
		metric.WithUnit("{operation}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_calendar_operations_total counter: %w", err)
	}

	m.calendarOperationDuration, err = meter.Float64Histogram(
		"google_calendar_operation_duration_seconds",
		metric.WithDescription("Google Calendar API operation duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(0.01, 0.05, 0.1, 0.25, 0.5, 1.0, 2.5, 5.0, 10.0, 30.0),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create google_calendar_operation_duration_seconds histogram: %w", err)
	}

	m.oauthConnectTotal, err = meter.Int64Counter(
		"oauth_connect_total",
		metric.WithDescription("Total number of Google OAuth connect attempts"),
		metric.WithUnit("{attempt}"),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to create oauth_connect_total counter: %w", err)
	}

	return m, nil
}

// RecordHTTPRequest records an HTTP request with method, path, status code and duration.
func (m *Metrics) RecordHTTPRequest(ctx context.Context, method, path string, statusCode int, duration time.Duration) {
	if m == nil || m.httpRequestsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrMethod, method),
		attribute.String(attrPath, path),
		attribute.String(attrStatus, strconv.Itoa(statusCode)),
	}

	m.httpRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.httpRequestDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordWebhookEvent records a handled webhook event by type.
func (m *Metrics) RecordWebhookEvent(ctx context.Context, eventType, status string) {
	if m == nil || m.webhookEventsTotal == nil {
		return
	}

	m.webhookEventsTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrEventType, eventType),
		attribute.String(attrStatus, status),
	))
}

// RecordToolInvocation records a tool invocation with name, status and duration.
func (m *Metrics) RecordToolInvocation(ctx context.Context, tool, status string, duration time.Duration) {
	if m == nil || m.toolInvocations == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrTool, tool),
		attribute.String(attrStatus, status),
	}

	m.toolInvocations.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.toolDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordIdentityResolution records an identity resolution attempt. For a
// successful resolution, source names the strategy that won; failed attempts
// record source "none".
func (m *Metrics) RecordIdentityResolution(ctx context.Context, source, status string) {
	if m == nil || m.identityResolutions == nil {
		return
	}

	m.identityResolutions.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSource, source),
		attribute.String(attrStatus, status),
	))
}

// RecordSessionTokenIssued counts a minted session token.
func (m *Metrics) RecordSessionTokenIssued(ctx context.Context) {
	if m == nil || m.sessionTokensIssued == nil {
		return
	}
	m.sessionTokensIssued.Add(ctx, 1)
}

// IncrementActiveCalls increments the active-call gauge.
func (m *Metrics) IncrementActiveCalls(ctx context.Context) {
	if m == nil || m.activeCalls == nil {
		return
	}
	m.activeCalls.Add(ctx, 1)
}

// DecrementActiveCalls decrements the active-call gauge.
func (m *Metrics) DecrementActiveCalls(ctx context.Context) {
	if m == nil || m.activeCalls == nil {
		return
	}
	m.activeCalls.Add(ctx, -1)
}

// RecordCalendarOperation records a Google Calendar API operation.
func (m *Metrics) RecordCalendarOperation(ctx context.Context, operation, status string, duration time.Duration) {
	if m == nil || m.calendarOperationsTotal == nil {
		return
	}

	attrs := []attribute.KeyValue{
		attribute.String(attrOperation, operation),
		attribute.String(attrStatus, status),
	}

	m.calendarOperationsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
	m.calendarOperationDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(attrs...))
}

// RecordOAuthConnect records an OAuth connect (authorization code exchange)
// attempt. Result is "success" or "failure".
func (m *Metrics) RecordOAuthConnect(ctx context.Context, result string) {
	if m == nil || m.oauthConnectTotal == nil {
		return
	}

	m.oauthConnectTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrResult, result),
	))
}
