package google

import (
	"context"
	"fmt"
	"os"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	calendar "google.golang.org/api/calendar/v3"
)

// OAuthConfig wraps the oauth2 client configuration for the connect flow.
type OAuthConfig struct {
	conf *oauth2.Config
}

// NewOAuthConfigFromEnv builds the OAuth configuration from
// GOOGLE_CLIENT_ID, GOOGLE_CLIENT_SECRET and GOOGLE_REDIRECT_URL.
func NewOAuthConfigFromEnv() (*OAuthConfig, error) {
	return NewOAuthConfig(
		os.Getenv("GOOGLE_CLIENT_ID"),
		os.Getenv("GOOGLE_CLIENT_SECRET"),
		os.Getenv("GOOGLE_REDIRECT_URL"),
	)
}

// NewOAuthConfig builds the OAuth configuration for the calendar scopes.
func NewOAuthConfig(clientID, clientSecret, redirectURL string) (*OAuthConfig, error) {
	if clientID == "" || clientSecret == "" {
		return nil, fmt.Errorf("google OAuth client credentials are not configured (GOOGLE_CLIENT_ID / GOOGLE_CLIENT_SECRET)")
	}
	if redirectURL == "" {
		return nil, fmt.Errorf("google OAuth redirect URL is not configured (GOOGLE_REDIRECT_URL)")
	}

	return &OAuthConfig{
		conf: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Endpoint:     google.Endpoint,
			RedirectURL:  redirectURL,
			Scopes: []string{
				calendar.CalendarEventsScope, // create and modify events
				calendar.CalendarReadonlyScope,
				"openid",
				"https://www.googleapis.com/auth/userinfo.email",
			},
		},
	}, nil
}

// AuthCodeURL returns the consent-screen URL. Offline access plus forced
// consent guarantees a refresh token even on repeat connects, which the
// background refresh depends on.
func (c *OAuthConfig) AuthCodeURL(state string) string {
	return c.conf.AuthCodeURL(state,
		oauth2.AccessTypeOffline,
		oauth2.SetAuthURLParam("prompt", "consent"),
	)
}

// Exchange trades an authorization code for a token.
func (c *OAuthConfig) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := c.conf.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("failed to exchange auth code: %w", err)
	}
	return token, nil
}

// TokenSource returns a refreshing token source seeded with the stored token.
func (c *OAuthConfig) TokenSource(ctx context.Context, token *oauth2.Token) oauth2.TokenSource {
	return c.conf.TokenSource(ctx, token)
}
