package registry

import (
	"container/list"
	"context"
	"fmt"
	"sync"

	"github.com/couchcryptid/storm-atcf-tracker/internal/domain"
	"github.com/couchcryptid/storm-atcf-tracker/internal/identity"
	"github.com/couchcryptid/storm-atcf-tracker/internal/observability"
)

// CachedMatcher wraps a Matcher with an in-memory LRU cache keyed on the fix
// rounded to a tenth of a degree and the hour.
type CachedMatcher struct {
	inner   identity.Matcher
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedMatcher creates a cache decorator around a matcher.
func NewCachedMatcher(inner identity.Matcher, maxEntries int, metrics *observability.Metrics) *CachedMatcher {
	return &CachedMatcher{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedMatcher) MatchByPositionTime(ctx context.Context, q identity.Query) (domain.StormID, bool, error) {
	key := fmt.Sprintf("%.1f,%.1f@%s", q.Lat, q.Lon, domain.FormatDTG(q.Time))
	if id, ok := c.cache.get(key); ok {
		c.metrics.RegistryCache.WithLabelValues("hit").Inc()
		return id, true, nil
	}
	c.metrics.RegistryCache.WithLabelValues("miss").Inc()

	id, found, err := c.inner.MatchByPositionTime(ctx, q)
	if err != nil {
		return id, found, err
	}
	// Only cache matches so a storm not yet in the registry can be retried.
	if found {
		c.cache.put(key, id)
	}
	return id, found, nil
}

// lruCache is a thread-safe LRU cache of storm identifiers. The front of
// order is the most recently used entry.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*list.Element
	order      *list.List
}

type entry struct {
	key   string
	value domain.StormID
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*list.Element),
		order:      list.New(),
	}
}

func (c *lruCache) get(key string) (domain.StormID, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	el, ok := c.entries[key]
	if !ok {
		return domain.StormID{}, false
	}
	c.order.MoveToFront(el)
	return el.Value.(*entry).value, true
}

func (c *lruCache) put(key string, value domain.StormID) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if el, ok := c.entries[key]; ok {
		el.Value.(*entry).value = value
		c.order.MoveToFront(el)
		return
	}

	c.entries[key] = c.order.PushFront(&entry{key: key, value: value})
	if c.order.Len() > c.maxEntries {
		oldest := c.order.Back()
		c.order.Remove(oldest)
		delete(c.entries, oldest.Value.(*entry).key)
	}
}
