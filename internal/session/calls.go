package session

import "sync"

// CallCache maps an in-flight call ID to the user identity resolved for it.
// At most one user per call ID at any time. Entries are removed when the
// platform reports the end of the call; a later reference to the same call ID
// must re-resolve from scratch.
type CallCache struct {
	mu    sync.RWMutex
	calls map[string]string
}

// NewCallCache creates an empty call identity cache.
func NewCallCache() *CallCache {
	return &CallCache{
		calls: make(map[string]string),
	}
}

// Get returns the cached user ID for a call, if any.
func (c *CallCache) Get(callID string) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	userID, ok := c.calls[callID]
	return userID, ok
}

// Set records the resolved user identity for a call. A no-op for an empty
// call ID so resolution paths that lack one don't pollute the cache.
func (c *CallCache) Set(callID, userID string) {
	if callID == "" {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.calls[callID] = userID
}

// Delete evicts the entry for a call. Idempotent: evicting an absent key is
// a no-op.
func (c *CallCache) Delete(callID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.calls, callID)
}

// Len reports the number of calls with a cached identity.
func (c *CallCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.calls)
}
