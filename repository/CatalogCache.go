package repository

import (
	"context"
	"encoding/json"
	"errors"
	"log"
	"time"

	"bagStore/entities"
	"bagStore/models"
)

const DefaultCatalogTTL = time.Hour

// CatalogCache memoizes listing pages. Freshness is decided by the stored
// timestamp, the backend expiry only reclaims space.
type CatalogCache struct {
	store     KVStore
	ttl       time.Duration
	namespace string
	now       func() time.Time
}

func NewCatalogCache(store KVStore, ttl time.Duration) (*CatalogCache, error) {
	if store == nil {
		return nil, errors.New("store must be non-nil")
	}
	if ttl <= 0 {
		ttl = DefaultCatalogTTL
	}
	return &CatalogCache{
		store: store,
		ttl:   ttl,
		now:   time.Now,
	}, nil
}

// WithClock replaces the time source; used by tests.
func (c *CatalogCache) WithClock(now func() time.Time) *CatalogCache {
	c.now = now
	return c
}

// Namespaced returns a view of the same store whose keys are prefixed with ns.
func (c *CatalogCache) Namespaced(ns string) *CatalogCache {
	cp := *c
	cp.namespace = c.namespace + ns
	return &cp
}

func (c *CatalogCache) TTL() time.Duration {
	return c.ttl
}

func (c *CatalogCache) fullKey(key string) string {
	return c.namespace + key
}

// Get returns the entry only while now - timestamp < ttl. Stale and
// unreadable entries are deleted and reported as a miss.
func (c *CatalogCache) Get(ctx context.Context, key string) (entities.CatalogCacheEntry, bool, error) {
	var entry entities.CatalogCacheEntry
	k := c.fullKey(key)
	val, found, err := c.store.Get(ctx, k)
	if err != nil || !found {
		return entry, false, err
	}
	if e := json.Unmarshal(val, &entry); e != nil {
		log.Printf("CatalogCache.Get: malformed entry %s: %v", k, e)
		return entities.CatalogCacheEntry{}, false, c.store.Delete(ctx, k)
	}
	age := c.now().Sub(time.UnixMilli(entry.Timestamp))
	if age >= c.ttl {
		return entities.CatalogCacheEntry{}, false, c.store.Delete(ctx, k)
	}
	return entry, true, nil
}

// Put overwrites unconditionally and stamps the current time.
func (c *CatalogCache) Put(ctx context.Context, key string, page entities.CatalogPage) (entities.CatalogCacheEntry, error) {
	entry := entities.CatalogCacheEntry{
		Timestamp: c.now().UnixMilli(),
		Data:      page,
	}
	if entry.Data.Products == nil {
		entry.Data.Products = []entities.ProductSummary{}
	}
	jsonData, err := json.Marshal(entry)
	if err != nil {
		log.Printf("CatalogCache.Put: marshal: %v", err)
		return entry, models.ErrServerError
	}
	err = c.store.Set(ctx, c.fullKey(key), jsonData, 2*c.ttl)
	return entry, err
}

func (c *CatalogCache) Delete(ctx context.Context, key string) error {
	return c.store.Delete(ctx, c.fullKey(key))
}

// EvictPrefix removes every entry whose key starts with prefix.
func (c *CatalogCache) EvictPrefix(ctx context.Context, prefix string) (int, error) {
	return c.store.DeletePrefix(ctx, c.fullKey(prefix))
}
