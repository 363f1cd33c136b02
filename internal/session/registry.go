package session

import (
	"crypto/rand"
	"encoding/base64"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

const (
	// DefaultTokenTTL bounds how long an unredeemed token is kept. Tokens are
	// expected to be redeemed within seconds of issuance, at call start.
	DefaultTokenTTL = 10 * time.Minute

	// tokenBytes is the entropy of a minted token (256 bits).
	tokenBytes = 32
)

// tokenEntry tracks a pending session token until it is redeemed or expires.
type tokenEntry struct {
	userID   string
	issuedAt time.Time
}

// Registry issues and redeems short-lived opaque tokens mapping to a user
// identity. Redemption is destructive: a token resolves at most once, which
// prevents replay across unrelated calls.
type Registry struct {
	mu       sync.Mutex
	tokens   map[string]tokenEntry
	ttl      time.Duration
	ticker   *time.Ticker
	done     chan struct{}
	stopOnce sync.Once
	logger   *slog.Logger
}

// NewRegistry creates a registry with the default token TTL.
func NewRegistry(logger *slog.Logger) *Registry {
	return NewRegistryWithTTL(DefaultTokenTTL, logger)
}

// NewRegistryWithTTL creates a registry that evicts unredeemed tokens after
// the given TTL.
func NewRegistryWithTTL(ttl time.Duration, logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	if ttl <= 0 {
		ttl = DefaultTokenTTL
	}

	r := &Registry{
		tokens: make(map[string]tokenEntry),
		ttl:    ttl,
		ticker: time.NewTicker(time.Minute),
		done:   make(chan struct{}),
		logger: logger,
	}

	go r.cleanup()

	return r
}

// Register mints a cryptographically random opaque token and stores the
// token → userID mapping. Unlimited concurrent sessions are permitted.
func (r *Registry) Register(userID string) (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate session token: %w", err)
	}
	token := base64.RawURLEncoding.EncodeToString(buf)

	r.mu.Lock()
	r.tokens[token] = tokenEntry{userID: userID, issuedAt: time.Now()}
	r.mu.Unlock()

	r.logger.Debug("Registered session token",
		"user_id", userID,
		"token_ttl", r.ttl,
	)

	return token, nil
}

// Redeem atomically looks up and removes the entry for the token. The second
// return value is false when the token was never issued, already redeemed, or
// expired. For concurrent redemptions of the same token exactly one caller
// succeeds.
func (r *Registry) Redeem(token string) (string, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	entry, ok := r.tokens[token]
	if !ok {
		return "", false
	}

	// Delete immediately so a racing caller cannot redeem the same token.
	delete(r.tokens, token)

	if time.Since(entry.issuedAt) > r.ttl {
		return "", false
	}

	r.logger.Debug("Session token redeemed", "user_id", entry.userID)
	return entry.userID, true
}

// Len reports the number of pending (unredeemed) tokens.
func (r *Registry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.tokens)
}

// cleanup periodically evicts tokens that were never redeemed.
func (r *Registry) cleanup() {
	for {
		select {
		case <-r.ticker.C:
			r.evictExpired()
		case <-r.done:
			return
		}
	}
}

func (r *Registry) evictExpired() {
	r.mu.Lock()
	now := time.Now()
	evicted := 0
	for token, entry := range r.tokens {
		if now.Sub(entry.issuedAt) > r.ttl {
			delete(r.tokens, token)
			evicted++
		}
	}
	r.mu.Unlock()

	if evicted > 0 {
		r.logger.Debug("Evicted expired session tokens", "count", evicted)
	}
}

// Stop stops the background eviction goroutine.
func (r *Registry) Stop() {
	r.stopOnce.Do(func() {
		r.ticker.Stop()
		close(r.done)
	})
}
