// Package credentials keeps users' passwords in process memory and runs the
// chat protocol for collecting them.
//
// Passwords are never written to disk or logs. There is no logout: an entry
// lives until it is replaced or the process exits.
package credentials

import "sync"

// Cache maps users to their current password.
type Cache struct {
	mu        sync.RWMutex
	passwords map[int64]string
}

// NewCache creates an empty cache.
func NewCache() *Cache {
	return &Cache{passwords: make(map[int64]string)}
}

// Set stores or replaces the user's password.
func (c *Cache) Set(userID int64, password string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.passwords[userID] = password
}

// Get returns the user's password, if any.
func (c *Cache) Get(userID int64) (string, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	pw, ok := c.passwords[userID]
	return pw, ok
}
