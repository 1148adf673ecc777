package cache

import (
	"fmt"
	"sync"
)

type node[K comparable, V any] struct {
	key   K
	value V
	prev  *node[K, V]
	next  *node[K, V]
}

// BoundedCache is a fixed-capacity key-value store with least-recently-used
// eviction. Both reads and writes count as use of an entry.
//
// All operations are safe for concurrent use.
type BoundedCache[K comparable, V any] struct {
	mutex    sync.Mutex
	capacity int
	entries  map[K]*node[K, V]
	head     *node[K, V] // most recently used
	tail     *node[K, V] // least recently used
}

func NewBoundedCache[K comparable, V any](capacity int) (*BoundedCache[K, V], error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("cache capacity must be positive, got %d", capacity)
	}

	return &BoundedCache[K, V]{
		capacity: capacity,
		entries:  make(map[K]*node[K, V], capacity),
	}, nil
}

// Get returns the value stored for key and marks the entry as most recently
// used.
func (c *BoundedCache[K, V]) Get(key K) (V, bool) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		var zero V
		return zero, false
	}

	c.moveToFront(entry)
	return entry.value, true
}

// Put stores value for key and marks the entry as most recently used. When
// the cache is full the least recently used entry is evicted to make room.
func (c *BoundedCache[K, V]) Put(key K, value V) {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	if entry, ok := c.entries[key]; ok {
		entry.value = value
		c.moveToFront(entry)
		return
	}

	if len(c.entries) >= c.capacity {
		c.evictLeastRecentlyUsed()
	}

	entry := &node[K, V]{key: key, value: value}
	c.entries[key] = entry
	c.pushFront(entry)
}

func (c *BoundedCache[K, V]) Size() int {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	return len(c.entries)
}

func (c *BoundedCache[K, V]) Capacity() int {
	return c.capacity
}

// Clear removes all entries from the cache.
func (c *BoundedCache[K, V]) Clear() {
	c.mutex.Lock()
	defer c.mutex.Unlock()

	c.entries = make(map[K]*node[K, V], c.capacity)
	c.head = nil
	c.tail = nil
}

func (c *BoundedCache[K, V]) pushFront(entry *node[K, V]) {
	entry.prev = nil
	entry.next = c.head
	if c.head != nil {
		c.head.prev = entry
	} else {
		c.tail = entry
	}
	c.head = entry
}

func (c *BoundedCache[K, V]) unlink(entry *node[K, V]) {
	if entry.prev != nil {
		entry.prev.next = entry.next
	} else {
		c.head = entry.next
	}
	if entry.next != nil {
		entry.next.prev = entry.prev
	} else {
		c.tail = entry.prev
	}
	entry.prev = nil
	entry.next = nil
}

func (c *BoundedCache[K, V]) moveToFront(entry *node[K, V]) {
	if c.head == entry {
		return
	}
	c.unlink(entry)
	c.pushFront(entry)
}

func (c *BoundedCache[K, V]) evictLeastRecentlyUsed() {
	victim := c.tail
	if victim == nil {
		return
	}
	c.unlink(victim)
	delete(c.entries, victim.key)
}
