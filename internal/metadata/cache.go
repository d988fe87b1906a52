package metadata

import (
	"sync"
	"time"

	"github.com/soubhik-sen/FLUXPORT/internal/domain"
)

// documentCache — ленивый TTL-кэш разобранных документов политик.
// Ключ — источник (db:<type>, file:<path>), обновление происходит только
// при чтении: фоновых горутин нет, протухшая запись просто перечитывается.
type documentCache struct {
	mu      sync.RWMutex
	ttl     time.Duration
	now     func() time.Time
	entries map[string]cacheEntry
}

type cacheEntry struct {
	doc       *domain.PolicyDocument
	expiresAt time.Time
}

func newDocumentCache(ttl time.Duration) *documentCache {
	return &documentCache{
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[string]cacheEntry),
	}
}

func (c *documentCache) Get(key string) (*domain.PolicyDocument, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	e, ok := c.entries[key]
	if !ok || c.now().After(e.expiresAt) {
		return nil, false
	}
	return e.doc, true
}

func (c *documentCache) Put(key string, doc *domain.PolicyDocument) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = cacheEntry{doc: doc, expiresAt: c.now().Add(c.ttl)}
}

// Invalidate сбрасывает весь кэш. Вызывается по сигналу публикации из Redis.
func (c *documentCache) Invalidate() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = make(map[string]cacheEntry)
}
