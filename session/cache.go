package session

import "sync"

// Cache is a mutex-guarded map of human user ID to cached agent
// session. It is the single source of truth for "is this agent
// currently authenticated" within one process.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]Agent
}

// NewCache returns an empty Cache ready for concurrent use.
func NewCache() *Cache {
	return &Cache{
		entries: make(map[string]Agent),
	}
}

// Get returns the cached session for userID and whether one exists.
// Freshness is the caller's concern; see [Agent.Fresh].
func (c *Cache) Get(userID string) (Agent, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()

	agent, ok := c.entries[userID]
	return agent, ok
}

// Put stores or replaces the session for userID.
func (c *Cache) Put(userID string, agent Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries[userID] = agent
}

// Evict removes the session for userID. Missing entries are a no-op.
func (c *Cache) Evict(userID string) {
	c.mu.Lock()
	defer c.mu.Unlock()

	delete(c.entries, userID)
}

// EvictAll drops every cached session.
func (c *Cache) EvictAll() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.entries = make(map[string]Agent)
}

// Len returns the number of cached sessions.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return len(c.entries)
}
