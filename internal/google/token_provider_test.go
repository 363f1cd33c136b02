package google

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-oauth/storage/memory"
)

func TestStoreTokenProvider_RoundTrip(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	provider := NewStoreTokenProvider(store)
	ctx := context.Background()
	userID := "alice@example.com"

	assert.False(t, provider.HasToken(ctx, userID))

	token := &oauth2.Token{
		AccessToken:  "access-1",
		RefreshToken: "refresh-1",
		TokenType:    "Bearer",
		Expiry:       time.Now().Add(time.Hour),
	}
	require.NoError(t, provider.SaveToken(ctx, userID, token))
	assert.True(t, provider.HasToken(ctx, userID))

	got, err := provider.GetToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "access-1", got.AccessToken)
	assert.Equal(t, "refresh-1", got.RefreshToken)
}

func TestStoreTokenProvider_UnknownUser(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	provider := NewStoreTokenProvider(store)

	_, err := provider.GetToken(context.Background(), "nobody@example.com")
	assert.Error(t, err)
}

// staticTokenSource returns a fixed token, standing in for a refresh.
type staticTokenSource struct {
	token *oauth2.Token
}

func (s staticTokenSource) Token() (*oauth2.Token, error) {
	return s.token, nil
}

func TestPersistingTokenSource_SavesRefreshedToken(t *testing.T) {
	store := memory.New()
	defer store.Stop()

	provider := NewStoreTokenProvider(store)
	ctx := context.Background()
	userID := "alice@example.com"

	seed := &oauth2.Token{AccessToken: "old-access", RefreshToken: "refresh-1"}
	require.NoError(t, provider.SaveToken(ctx, userID, seed))

	refreshed := &oauth2.Token{
		AccessToken:  "new-access",
		RefreshToken: "refresh-1",
		Expiry:       time.Now().Add(time.Hour),
	}
	source := NewPersistingTokenSource(ctx, provider, userID, staticTokenSource{token: refreshed}, seed)

	got, err := source.Token()
	require.NoError(t, err)
	assert.Equal(t, "new-access", got.AccessToken)

	stored, err := provider.GetToken(ctx, userID)
	require.NoError(t, err)
	assert.Equal(t, "new-access", stored.AccessToken, "refreshed token written back to the store")
}

func TestNewOAuthConfig_RequiresCredentials(t *testing.T) {
	_, err := NewOAuthConfig("", "", "http://localhost/auth/callback")
	assert.Error(t, err)

	_, err = NewOAuthConfig("id", "secret", "")
	assert.Error(t, err)

	cfg, err := NewOAuthConfig("id", "secret", "http://localhost/auth/callback")
	require.NoError(t, err)

	url := cfg.AuthCodeURL("state-123")
	assert.Contains(t, url, "access_type=offline")
	assert.Contains(t, url, "prompt=consent")
	assert.Contains(t, url, "state=state-123")
}
