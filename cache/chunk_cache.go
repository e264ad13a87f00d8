package cache

import (
	"sync"
	"time"
)

type CacheStats struct {
	Reads   int
	Created time.Time
}

type cacheEntry struct {
	data     []byte
	lastRead uint64
	stats    CacheStats
}

// ChunkCache keeps a bounded number of decoded chunks keyed by their file
// offset. When full, the least recently read entry is evicted. Cached slices
// are shared and must not be modified.
type ChunkCache struct {
	capacity int

	storage       map[uint64]*cacheEntry
	storageLocker sync.Mutex
	tick          uint64
}

// NewChunkCache returns a cache of at most capacity chunks. A cache with
// capacity zero keeps nothing.
func NewChunkCache(capacity int) *ChunkCache {
	return &ChunkCache{
		capacity: max(capacity, 0),
		storage:  make(map[uint64]*cacheEntry, max(capacity, 0)),
	}
}

func (c *ChunkCache) Get(key uint64) ([]byte, bool) {
	if c == nil {
		return nil, false
	}

	c.storageLocker.Lock()
	defer c.storageLocker.Unlock()

	entry, ok := c.storage[key]
	if !ok {
		return nil, false
	}

	c.tick++
	entry.lastRead = c.tick
	entry.stats.Reads++

	return entry.data, true
}

func (c *ChunkCache) Put(key uint64, data []byte) {
	if c == nil || c.capacity == 0 {
		return
	}

	c.storageLocker.Lock()
	defer c.storageLocker.Unlock()

	c.tick++

	if entry, ok := c.storage[key]; ok {
		entry.data = data
		entry.lastRead = c.tick
		return
	}

	if len(c.storage) >= c.capacity {
		c.evict()
	}

	c.storage[key] = &cacheEntry{
		data:     data,
		lastRead: c.tick,
		stats:    CacheStats{Created: time.Now()},
	}
}

func (c *ChunkCache) evict() {
	var (
		victim uint64
		oldest uint64
		found  bool
	)

	for key, entry := range c.storage {
		if !found || entry.lastRead < oldest {
			victim, oldest, found = key, entry.lastRead, true
		}
	}

	if found {
		delete(c.storage, victim)
	}
}

func (c *ChunkCache) Stats(key uint64) (CacheStats, bool) {
	if c == nil {
		return CacheStats{}, false
	}

	c.storageLocker.Lock()
	defer c.storageLocker.Unlock()

	entry, ok := c.storage[key]
	if !ok {
		return CacheStats{}, false
	}
	return entry.stats, true
}

func (c *ChunkCache) Len() int {
	if c == nil {
		return 0
	}

	c.storageLocker.Lock()
	defer c.storageLocker.Unlock()
	return len(c.storage)
}
