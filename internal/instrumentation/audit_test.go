package instrumentation

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func auditRecord(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))
	return record
}

func TestAuditLoggerHashesUserByDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	audit := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true})
	audit.LogToolInvocation(context.Background(), ToolInvocation{
		Tool:      "create_calendar_event",
		UserID:    "alice@example.com",
		CallID:    "call-1",
		EventType: "tool-calls",
		Duration:  50 * time.Millisecond,
		Success:   true,
	})

	record := auditRecord(t, &buf)
	assert.Equal(t, "create_calendar_event", record["tool"])
	assert.Equal(t, StatusSuccess, record["status"])
	assert.NotContains(t, buf.String(), "alice@example.com")
	assert.Contains(t, record["user"], "user:")
}

func TestAuditLoggerIncludePII(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	audit := NewAuditLogger(logger, AuditLoggingConfig{Enabled: true, IncludePII: true})
	audit.LogToolInvocation(context.Background(), ToolInvocation{
		Tool:    "check_availability",
		UserID:  "alice@example.com",
		CallID:  "call-2",
		Success: false,
		Error:   "token expired",
	})

	record := auditRecord(t, &buf)
	assert.Equal(t, "alice@example.com", record["user"])
	assert.Equal(t, StatusError, record["status"])
	assert.Equal(t, "token expired", record["error"])
}

func TestAuditLoggerDisabled(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewJSONHandler(&buf, nil))

	audit := NewAuditLogger(logger, AuditLoggingConfig{Enabled: false})
	audit.LogToolInvocation(context.Background(), ToolInvocation{
		Tool:   "get_current_time",
		UserID: "alice@example.com",
	})

	assert.Zero(t, buf.Len())
}

func TestProviderDisabled(t *testing.T) {
	cfg := DefaultConfig()
	cfg.Enabled = false

	provider, err := NewProvider(context.Background(), cfg)
	require.NoError(t, err)
	assert.False(t, provider.Enabled())
	assert.NotNil(t, provider.Metrics())
	assert.NotNil(t, provider.Tracer("test"))
	assert.NoError(t, provider.Shutdown(context.Background()))
}
