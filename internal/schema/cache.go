package schema

import (
	"sync"

	"github.com/rowforge/rowforge/pkg/types"
)

// Cache memoizes derived schemas by entity type name. It is owned by the
// caller and scoped to one pipeline run, never process-wide, so two runs over
// different batches can never observe each other's schemas.
type Cache struct {
	mu      sync.RWMutex
	schemas map[string]*types.Schema
}

// NewCache creates an empty schema cache.
func NewCache() *Cache {
	return &Cache{schemas: make(map[string]*types.Schema)}
}

// Get returns the cached schema for an entity type name.
func (c *Cache) Get(entity string) (*types.Schema, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.schemas[entity]
	return s, ok
}

// Put stores a derived schema.
func (c *Cache) Put(entity string, s *types.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.schemas[entity] = s
}

// Len returns the number of cached schemas.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.schemas)
}
