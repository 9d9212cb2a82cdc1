package cache

import (
	"container/list"
	"sync"
	"time"
)

// MemoryCache is an in-memory LRU bounded by total value size in bytes.
type MemoryCache struct {
	capacity int64
	ttl      time.Duration
	size     int64

	items    map[string]*list.Element
	eviction *list.List

	mu    sync.Mutex
	stats Stats

	now func() time.Time
}

type memoryEntry struct {
	key       string
	value     []byte
	timestamp time.Time
}

// NewMemoryCache creates an LRU holding up to capacity bytes. Entries older
// than ttl are treated as missing; a zero ttl disables expiry.
func NewMemoryCache(capacity int64, ttl time.Duration) *MemoryCache {
	return &MemoryCache{
		capacity: capacity,
		ttl:      ttl,
		items:    make(map[string]*list.Element),
		eviction: list.New(),
		stats:    Stats{Capacity: capacity},
		now:      time.Now,
	}
}

// Get returns the value for key and marks it most recently used.
func (c *MemoryCache) Get(key string) ([]byte, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	elem, ok := c.items[key]
	if !ok {
		c.stats.Misses++
		return nil, false
	}
	entry := elem.Value.(*memoryEntry)
	if expired(entry.timestamp, c.ttl, c.now()) {
		c.removeElement(elem)
		c.stats.Misses++
		return nil, false
	}

	c.eviction.MoveToFront(elem)
	c.stats.Hits++
	return entry.value, true
}

// Put stores value under key, evicting least recently used entries as needed.
func (c *MemoryCache) Put(key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	size := int64(len(value))
	if size > c.capacity {
		return ErrItemTooLarge
	}
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	for c.size+size > c.capacity && c.eviction.Len() > 0 {
		c.removeElement(c.eviction.Back())
		c.stats.Evictions++
	}

	entry := &memoryEntry{key: key, value: value, timestamp: c.now()}
	c.items[key] = c.eviction.PushFront(entry)
	c.size += size
	return nil
}

// Delete removes key.
func (c *MemoryCache) Delete(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if elem, ok := c.items[key]; ok {
		c.removeElement(elem)
	}
	return nil
}

// Clear removes every entry.
func (c *MemoryCache) Clear() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = make(map[string]*list.Element)
	c.eviction.Init()
	c.size = 0
	return nil
}

// Stats returns a snapshot of the counters.
func (c *MemoryCache) Stats() Stats {
	c.mu.Lock()
	defer c.mu.Unlock()
	s := c.stats
	s.Size = c.size
	s.Items = int64(len(c.items))
	return s
}

func (c *MemoryCache) removeElement(elem *list.Element) {
	entry := c.eviction.Remove(elem).(*memoryEntry)
	delete(c.items, entry.key)
	c.size -= int64(len(entry.value))
}
