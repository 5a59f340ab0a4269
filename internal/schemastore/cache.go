package schemastore

import (
	"container/list"
	"sync"

	"github.com/jsonls/jsonls/internal/schema"
)

const defaultCapacity = 32

// lruEntry holds a resolved schema alongside the URI it was fetched from,
// so the list element can report its own key back to the eviction path.
type lruEntry struct {
	uri string
	s   *schema.Schema
}

// lru is a fixed-capacity, least-recently-used cache from schema URI to
// parsed Schema. A *schema.Schema is built once by FromValue and read-only
// after that; set may swap an existing entry's schema pointer, but only
// under mu, so concurrent Gets racing an eviction never observe a
// half-built value.
type lru struct {
	mu       sync.Mutex
	capacity int
	items    map[string]*list.Element
	order    *list.List
}

func newLRU(capacity int) *lru {
	if capacity <= 0 {
		capacity = defaultCapacity
	}
	return &lru{
		capacity: capacity,
		items:    make(map[string]*list.Element, capacity),
		order:    list.New(),
	}
}

func (c *lru) get(uri string) (*schema.Schema, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[uri]
	if !ok {
		return nil, false
	}
	c.order.MoveToFront(elem)
	return elem.Value.(*lruEntry).s, true
}

func (c *lru) set(uri string, s *schema.Schema) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if elem, ok := c.items[uri]; ok {
		c.order.MoveToFront(elem)
		elem.Value.(*lruEntry).s = s
		return
	}
	if c.order.Len() >= c.capacity {
		c.evictOldest()
	}
	elem := c.order.PushFront(&lruEntry{uri: uri, s: s})
	c.items[uri] = elem
}

func (c *lru) evictOldest() {
	elem := c.order.Back()
	if elem == nil {
		return
	}
	c.order.Remove(elem)
	delete(c.items, elem.Value.(*lruEntry).uri)
}

func (c *lru) len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.order.Len()
}

func (c *lru) purge() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element, c.capacity)
	c.order.Init()
}
