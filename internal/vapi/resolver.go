package vapi

import (
	"log/slog"

	"github.com/calvoice/calvoice/internal/logging"
	"github.com/calvoice/calvoice/internal/session"
)

// Identity resolution sources, in priority order. Exported for metrics labels.
const (
	SourceCache        = "cache"
	SourceSessionToken = "session_token"
	SourceVariable     = "variable"
	SourceMetadata     = "metadata"
)

// Resolver determines the user identity for a call. The platform is not
// guaranteed to forward session metadata consistently across lifecycle and
// tool-call events, so the resolver tries an ordered sequence of sources and
// short-circuits once a call's identity is known.
type Resolver struct {
	registry *session.Registry
	calls    *session.CallCache
	logger   *slog.Logger
}

// NewResolver creates a resolver over the shared registry and call cache.
func NewResolver(registry *session.Registry, calls *session.CallCache, logger *slog.Logger) *Resolver {
	if logger == nil {
		logger = slog.Default()
	}
	return &Resolver{
		registry: registry,
		calls:    calls,
		logger:   logger,
	}
}

// resolution is one lookup strategy. It returns the resolved user ID and
// whether it succeeded.
type resolution func(msg *Message) (string, bool)

// Resolve returns the user identity for the call behind the message, along
// with the name of the source that produced it. Fails with
// ErrIdentityUnresolved when every source comes up empty.
func (r *Resolver) Resolve(msg *Message) (string, string, error) {
	sources := []struct {
		name    string
		resolve resolution
	}{
		{SourceCache, r.fromCache},
		{SourceSessionToken, r.fromSessionToken},
		{SourceVariable, r.fromVariable},
		{SourceMetadata, r.fromMetadata},
	}

	for _, source := range sources {
		if userID, ok := source.resolve(msg); ok {
			r.logger.Debug("Resolved call identity",
				logging.CallID(callID(msg)),
				logging.UserHash(userID),
				"source", source.name,
			)
			return userID, source.name, nil
		}
	}

	r.logger.Warn("Call identity unresolved", logging.CallID(callID(msg)))
	return "", "", ErrIdentityUnresolved
}

// fromCache is the fast path for every tool-call batch after the first.
func (r *Resolver) fromCache(msg *Message) (string, bool) {
	id := callID(msg)
	if id == "" {
		return "", false
	}
	return r.calls.Get(id)
}

// fromSessionToken redeems a pre-registered session token carried in the
// call-scoped variables. Redemption is destructive, so the result is cached
// immediately for the rest of the call.
func (r *Resolver) fromSessionToken(msg *Message) (string, bool) {
	token := msg.Call.Variable(VarSessionToken)
	if token == "" {
		return "", false
	}
	userID, ok := r.registry.Redeem(token)
	if !ok {
		r.logger.Debug("Session token did not redeem",
			logging.CallID(callID(msg)),
			"token", logging.SanitizeToken(token),
		)
		return "", false
	}
	r.calls.Set(callID(msg), userID)
	return userID, true
}

// fromVariable is the bypass path for integrations that cannot pre-register
// a session.
func (r *Resolver) fromVariable(msg *Message) (string, bool) {
	userID := msg.Call.Variable(VarUserID)
	if userID == "" {
		return "", false
	}
	r.calls.Set(callID(msg), userID)
	return userID, true
}

// fromMetadata reads the legacy fallback field in call metadata.
func (r *Resolver) fromMetadata(msg *Message) (string, bool) {
	userID := msg.Call.MetadataString(MetadataUserID)
	if userID == "" {
		return "", false
	}
	r.calls.Set(callID(msg), userID)
	return userID, true
}

// EndCall evicts the call's identity entry. Idempotent.
func (r *Resolver) EndCall(id string) {
	r.calls.Delete(id)
}

func callID(msg *Message) string {
	if msg == nil || msg.Call == nil {
		return ""
	}
	return msg.Call.ID
}
