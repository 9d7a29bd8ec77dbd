package glm

import (
	"context"
	"sync"

	"github.com/couchcryptid/storm-flash-track/internal/domain"
	"github.com/couchcryptid/storm-flash-track/internal/observability"
)

// CachedReader wraps an EventReader with an in-memory LRU cache keyed by
// scan source. Reruns over the same catalog skip re-decoding files.
type CachedReader struct {
	inner   domain.EventReader
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedReader creates a cache decorator around a reader.
func NewCachedReader(inner domain.EventReader, maxEntries int, metrics *observability.Metrics) *CachedReader {
	return &CachedReader{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedReader) ReadEvents(ctx context.Context, scan domain.ScanRecord) (domain.EventCoordinates, error) {
	if events, ok := c.cache.get(scan.Source); ok {
		c.metrics.ScanCache.WithLabelValues("hit").Inc()
		return events, nil
	}
	c.metrics.ScanCache.WithLabelValues("miss").Inc()

	events, err := c.inner.ReadEvents(ctx, scan)
	if err != nil {
		// Failures are not cached so a repaired file is picked up on the next run.
		return events, err
	}
	c.cache.put(scan.Source, events)
	return events, nil
}

// lruCache is a thread-safe LRU cache of decoded scan events.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.EventCoordinates
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	if maxEntries < 1 {
		maxEntries = 1
	}
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.EventCoordinates, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.EventCoordinates{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.EventCoordinates) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if e, ok := c.entries[key]; ok {
		e.value = value
		c.moveToFront(e)
		return
	}

	e := &entry{key: key, value: value}
	c.entries[key] = e
	c.addToFront(e)

	if len(c.entries) > c.maxEntries {
		c.evictTail()
	}
}

func (c *lruCache) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}

func (c *lruCache) moveToFront(e *entry) {
	if e == c.head {
		return
	}
	c.remove(e)
	c.addToFront(e)
}

func (c *lruCache) addToFront(e *entry) {
	e.next = c.head
	e.prev = nil
	if c.head != nil {
		c.head.prev = e
	}
	c.head = e
	if c.tail == nil {
		c.tail = e
	}
}

func (c *lruCache) remove(e *entry) {
	if e.prev != nil {
		e.prev.next = e.next
	} else {
		c.head = e.next
	}
	if e.next != nil {
		e.next.prev = e.prev
	} else {
		c.tail = e.prev
	}
}

func (c *lruCache) evictTail() {
	if c.tail == nil {
		return
	}
	delete(c.entries, c.tail.key)
	c.remove(c.tail)
}
