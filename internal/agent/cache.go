package agent

import (
	"sync"
	"time"

	"github.com/flux-life/flux-planner/internal/planner"
)

// Cache holds live agents by conversation ID.
type Cache interface {
	Get(conversationID string) (*planner.Agent, bool)
	Put(conversationID string, a *planner.Agent)
	Delete(conversationID string)
}

type cacheEntry struct {
	agent    *planner.Agent
	lastUsed time.Time
}

// MemoryCache is an in-process Cache whose entries expire ttl after their
// last use. Expired entries are dropped on access and by Sweep.
type MemoryCache struct {
	mu      sync.Mutex
	entries map[string]cacheEntry
	ttl     time.Duration
	now     func() time.Time
}

// NewMemoryCache creates a cache with the given idle TTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
		now:     time.Now,
	}
}

// Get returns a live agent and refreshes its expiry.
func (c *MemoryCache) Get(conversationID string) (*planner.Agent, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[conversationID]
	if !ok {
		return nil, false
	}
	now := c.now()
	if now.Sub(entry.lastUsed) > c.ttl {
		delete(c.entries, conversationID)
		return nil, false
	}
	entry.lastUsed = now
	c.entries[conversationID] = entry
	return entry.agent, true
}

// Put stores an agent.
func (c *MemoryCache) Put(conversationID string, a *planner.Agent) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[conversationID] = cacheEntry{agent: a, lastUsed: c.now()}
}

// Delete removes an agent.
func (c *MemoryCache) Delete(conversationID string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, conversationID)
}

// Sweep removes expired entries and returns how many were removed.
func (c *MemoryCache) Sweep() int {
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	removed := 0
	for id, entry := range c.entries {
		if now.Sub(entry.lastUsed) > c.ttl {
			delete(c.entries, id)
			removed++
		}
	}
	return removed
}

// Len reports the number of cached agents, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
