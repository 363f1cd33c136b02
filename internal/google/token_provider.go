package google

import (
	"context"
	"fmt"
	"sync"

	"golang.org/x/oauth2"

	"github.com/giantswarm/mcp-oauth/storage"
)

// TokenProvider supplies per-user Google OAuth tokens. The HTTP layer saves
// tokens after the connect flow; the calendar layer reads them and writes
// back refreshed ones.
type TokenProvider interface {
	GetToken(ctx context.Context, userID string) (*oauth2.Token, error)
	SaveToken(ctx context.Context, userID string, token *oauth2.Token) error
	HasToken(ctx context.Context, userID string) bool
}

// StoreTokenProvider bridges the mcp-oauth TokenStore to the TokenProvider
// interface, keyed by user ID instead of OAuth client.
type StoreTokenProvider struct {
	store storage.TokenStore
}

// NewStoreTokenProvider creates a provider over an mcp-oauth TokenStore.
func NewStoreTokenProvider(store storage.TokenStore) *StoreTokenProvider {
	return &StoreTokenProvider{store: store}
}

// GetToken retrieves the Google OAuth token for the given user ID.
func (p *StoreTokenProvider) GetToken(ctx context.Context, userID string) (*oauth2.Token, error) {
	token, err := p.store.GetToken(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("no token for user: %w", err)
	}
	return token, nil
}

// SaveToken persists a token for the given user ID. Used after the connect
// flow and after refresh.
func (p *StoreTokenProvider) SaveToken(ctx context.Context, userID string, token *oauth2.Token) error {
	if err := p.store.SaveToken(ctx, userID, token); err != nil {
		return fmt.Errorf("failed to save token: %w", err)
	}
	return nil
}

// HasToken reports whether a token exists for the user.
func (p *StoreTokenProvider) HasToken(ctx context.Context, userID string) bool {
	_, err := p.store.GetToken(ctx, userID)
	return err == nil
}

// persistingTokenSource wraps a refreshing token source and writes every
// newly minted token back to the store so refresh survives restarts of the
// calendar client cache.
type persistingTokenSource struct {
	ctx      context.Context
	userID   string
	provider TokenProvider
	source   oauth2.TokenSource

	mu   sync.Mutex
	last *oauth2.Token
}

// NewPersistingTokenSource wraps source so refreshed tokens are saved under
// userID.
func NewPersistingTokenSource(ctx context.Context, provider TokenProvider, userID string, source oauth2.TokenSource, seed *oauth2.Token) oauth2.TokenSource {
	return &persistingTokenSource{
		ctx:      ctx,
		userID:   userID,
		provider: provider,
		source:   source,
		last:     seed,
	}
}

func (s *persistingTokenSource) Token() (*oauth2.Token, error) {
	token, err := s.source.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.last == nil || token.AccessToken != s.last.AccessToken {
		if saveErr := s.provider.SaveToken(s.ctx, s.userID, token); saveErr != nil {
			// A failed write-back is not fatal: the refreshed token is
			// still valid for this process.
			return token, nil
		}
		s.last = token
	}
	return token, nil
}
