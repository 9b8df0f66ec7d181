// Package client provides the request coordinator used by front ends and the
// CLI to fetch vocabulary illustrations.
package client

import (
	"fmt"
	"sync"

	"github.com/linguahub/vocabimage/internal/vocab"
)

// SessionCache remembers image URLs already fetched during one client
// session, so repeated requests for the same vocabulary pair are answered
// without a network call. It holds no persistence guarantee: create it on
// app init and drop it with the session.
type SessionCache struct {
	mu      sync.Mutex
	entries map[string]string
}

// NewSessionCache creates an empty session cache.
func NewSessionCache() *SessionCache {
	return &SessionCache{
		entries: map[string]string{},
	}
}

// Key builds the session cache key for a vocabulary pair, using the same
// normalization as the server's persistent cache.
func Key(vocabulary string, language vocab.Language) string {
	return fmt.Sprintf("%s_%s", vocab.NormalizeKey(vocabulary), language)
}

// Get returns the cached URL for a key, if present.
func (c *SessionCache) Get(key string) (string, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	url, ok := c.entries[key]
	return url, ok
}

// Put stores a fetched URL. Only successful results are stored; failures
// are never cached so a later fetch retries.
func (c *SessionCache) Put(key, url string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = url
}

// Len returns the number of cached entries.
func (c *SessionCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
