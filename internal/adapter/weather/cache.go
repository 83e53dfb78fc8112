package weather

import (
	"context"
	"fmt"
	"sync"

	"github.com/civicgrid/civic-report-service/internal/domain"
	"github.com/civicgrid/civic-report-service/internal/observability"
)

// CachedService wraps a WeatherService with an in-memory LRU cache keyed by
// coordinate at 4-decimal precision (~11 m), coarse enough that co-located
// submissions share an entry. Weather snapshots are only consulted at
// submission time, so short-lived staleness is acceptable.
type CachedService struct {
	inner   domain.WeatherService
	cache   *lruCache
	metrics *observability.Metrics
}

// NewCachedService creates a cache decorator around a weather service.
func NewCachedService(inner domain.WeatherService, maxEntries int, metrics *observability.Metrics) *CachedService {
	return &CachedService{
		inner:   inner,
		cache:   newLRUCache(maxEntries),
		metrics: metrics,
	}
}

func (c *CachedService) CheckWeather(ctx context.Context, lat, lng float64) (domain.Weather, error) {
	key := fmt.Sprintf("%.4f,%.4f", lat, lng)
	if snapshot, ok := c.cache.get(key); ok {
		c.metrics.WeatherCache.WithLabelValues("hit").Inc()
		return snapshot, nil
	}
	c.metrics.WeatherCache.WithLabelValues("miss").Inc()

	snapshot, err := c.inner.CheckWeather(ctx, lat, lng)
	if err != nil {
		return snapshot, err
	}
	// Only cache resolved conditions so transient unknowns can be retried.
	if snapshot.Condition != domain.ConditionUnknown {
		c.cache.put(key, snapshot)
	}
	return snapshot, nil
}

// lruCache is a simple thread-safe LRU cache for weather snapshots.
type lruCache struct {
	maxEntries int
	mu         sync.Mutex
	entries    map[string]*entry
	head       *entry // most recently used
	tail       *entry // least recently used
}

type entry struct {
	key   string
	value domain.Weather
	prev  *entry
	next  *entry
}

func newLRUCache(maxEntries int) *lruCache {
	return &lruCache{
		maxEntries: maxEntries,
		entries:    make(map[string]*entry),
	}
}

func (c *lruCache) get(key string) (domain.Weather, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return domain.Weather{}, false
	}
	c.moveToFront(e)
	return e.value, true
}

func (c *lruCache) put(key string, value domain.Weather) {
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
