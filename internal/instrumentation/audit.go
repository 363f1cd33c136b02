package instrumentation

import (
	"context"
	"log/slog"
	"time"

	"github.com/calvoice/calvoice/internal/logging"
)

// ToolInvocation captures the details of a single tool call for audit logging.
type ToolInvocation struct {
	Tool      string
	UserID    string
	CallID    string
	EventType string
	Duration  time.Duration
	Success   bool
	Error     string
	TraceID   string
}

// AuditLogger emits structured audit records for tool invocations.
//
// User identifiers are hashed by default; IncludePII must be explicitly
// enabled to log them verbatim.
type AuditLogger struct {
	logger *slog.Logger
	config AuditLoggingConfig
}

// NewAuditLogger creates an audit logger. A nil slog.Logger falls back to
// slog.Default().
func NewAuditLogger(logger *slog.Logger, config AuditLoggingConfig) *AuditLogger {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuditLogger{
		logger: logger.With("component", "audit"),
		config: config,
	}
}

// LogToolInvocation records a tool invocation. No-op when audit logging is
// disabled.
func (a *AuditLogger) LogToolInvocation(ctx context.Context, inv ToolInvocation) {
	if a == nil || !a.config.Enabled {
		return
	}

	user := logging.AnonymizeUser(inv.UserID)
	if a.config.IncludePII {
		user = inv.UserID
	}

	status := StatusSuccess
	if !inv.Success {
		status = StatusError
	}

	attrs := []slog.Attr{
		slog.String("tool", inv.Tool),
		slog.String("user", user),
		slog.String("call_id", inv.CallID),
		slog.String("event_type", inv.EventType),
		slog.Duration("duration", inv.Duration),
		slog.String("status", status),
	}
	if inv.TraceID != "" {
		attrs = append(attrs, slog.String("trace_id", inv.TraceID))
	}
	if inv.Error != "" {
		attrs = append(attrs, slog.String("error", inv.Error))
	}

	a.logger.LogAttrs(ctx, slog.LevelInfo, "tool invocation", attrs...)
}
