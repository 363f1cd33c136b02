package vapi

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calvoice/calvoice/internal/session"
)

func newTestResolver(t *testing.T) (*Resolver, *session.Registry, *session.CallCache) {
	t.Helper()
	registry := session.NewRegistry(nil)
	t.Cleanup(registry.Stop)
	calls := session.NewCallCache()
	return NewResolver(registry, calls, nil), registry, calls
}

func messageWithVariables(callID string, vars map[string]any) *Message {
	return &Message{
		Type: EventToolCalls,
		Call: &Call{
			ID:                 callID,
			AssistantOverrides: AssistantOverrides{VariableValues: vars},
		},
	}
}

func TestResolver_SessionTokenRedeemsAndCaches(t *testing.T) {
	resolver, registry, calls := newTestResolver(t)

	token, err := registry.Register("alice@example.com")
	require.NoError(t, err)

	msg := messageWithVariables("call-1", map[string]any{VarSessionToken: token})

	userID, source, err := resolver.Resolve(msg)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", userID)
	assert.Equal(t, SourceSessionToken, source)

	// The token is consumed, but the identity survives in the call cache.
	_, ok := registry.Redeem(token)
	assert.False(t, ok)

	cached, ok := calls.Get("call-1")
	require.True(t, ok)
	assert.Equal(t, "alice@example.com", cached)
}

func TestResolver_CacheFastPathBypassesRegistry(t *testing.T) {
	resolver, registry, _ := newTestResolver(t)

	token, err := registry.Register("alice@example.com")
	require.NoError(t, err)

	msg := messageWithVariables("call-2", map[string]any{VarSessionToken: token})

	_, source, err := resolver.Resolve(msg)
	require.NoError(t, err)
	require.Equal(t, SourceSessionToken, source)

	// Second batch for the same call: the stale (already redeemed) token is
	// still in the variables, but the cache answers first.
	userID, source, err := resolver.Resolve(msg)
	require.NoError(t, err)
	assert.Equal(t, "alice@example.com", userID)
	assert.Equal(t, SourceCache, source)
}

func TestResolver_PriorityOrder(t *testing.T) {
	resolver, registry, _ := newTestResolver(t)

	token, err := registry.Register("token-user@example.com")
	require.NoError(t, err)

	// All sources present at once: the session token wins over the direct
	// variable and the metadata fallback.
	msg := messageWithVariables("call-3", map[string]any{
		VarSessionToken: token,
		VarUserID:       "variable-user@example.com",
	})
	msg.Call.Metadata = map[string]any{MetadataUserID: "metadata-user@example.com"}

	userID, source, err := resolver.Resolve(msg)
	require.NoError(t, err)
	assert.Equal(t, "token-user@example.com", userID)
	assert.Equal(t, SourceSessionToken, source)
}

func TestResolver_VariableFallback(t *testing.T) {
	resolver, _, calls := newTestResolver(t)

	msg := messageWithVariables("call-4", map[string]any{VarUserID: "bob@example.com"})

	userID, source, err := resolver.Resolve(msg)
	require.NoError(t, err)
	assert.Equal(t, "bob@example.com", userID)
	assert.Equal(t, SourceVariable, source)

	cached, ok := calls.Get("call-4")
	require.True(t, ok)
	assert.Equal(t, "bob@example.com", cached)
}

func TestResolver_MetadataFallback(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	msg := &Message{
		Type: EventToolCalls,
		Call: &Call{
			ID:       "call-5",
			Metadata: map[string]any{MetadataUserID: "carol@example.com"},
		},
	}

	userID, source, err := resolver.Resolve(msg)
	require.NoError(t, err)
	assert.Equal(t, "carol@example.com", userID)
	assert.Equal(t, SourceMetadata, source)
}

func TestResolver_Unresolved(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	_, _, err := resolver.Resolve(messageWithVariables("call-6", nil))
	assert.ErrorIs(t, err, ErrIdentityUnresolved)

	_, _, err = resolver.Resolve(&Message{Type: EventToolCalls})
	assert.ErrorIs(t, err, ErrIdentityUnresolved, "message without call context")
}

func TestResolver_EndCallEvictsIdentity(t *testing.T) {
	resolver, _, _ := newTestResolver(t)

	msg := messageWithVariables("call-7", map[string]any{VarUserID: "dave@example.com"})

	_, _, err := resolver.Resolve(msg)
	require.NoError(t, err)

	resolver.EndCall("call-7")

	// The direct-variable path still resolves, but a cache-only message
	// (as the platform sends after the call ended) no longer does.
	_, _, err = resolver.Resolve(messageWithVariables("call-7", nil))
	assert.ErrorIs(t, err, ErrIdentityUnresolved)
}
