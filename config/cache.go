package config

import (
	"sync"

	"go.lsp.dev/uri"
)

// Cache holds the global settings and the settings resolved per document.
// It is shared with the config file watcher, hence the lock.
type Cache struct {
	mu     sync.RWMutex
	global Settings
	perDoc map[uri.URI]Settings
}

func NewCache(global Settings) *Cache {
	return &Cache{global: global, perDoc: map[uri.URI]Settings{}}
}

func (c *Cache) Global() Settings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.global
}

// SetGlobal replaces the global settings and forgets every per-document
// entry.
func (c *Cache) SetGlobal(s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.global = s
	c.perDoc = map[uri.URI]Settings{}
}

func (c *Cache) Get(u uri.URI) (Settings, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	s, ok := c.perDoc[u]
	return s, ok
}

// Resolve returns the settings of a document, or the global settings when
// none were fetched for it.
func (c *Cache) Resolve(u uri.URI) Settings {
	if s, ok := c.Get(u); ok {
		return s
	}
	return c.Global()
}

func (c *Cache) Put(u uri.URI, s Settings) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perDoc[u] = s
}

func (c *Cache) Drop(u uri.URI) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.perDoc, u)
}

func (c *Cache) Clear() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.perDoc = map[uri.URI]Settings{}
}
