package cache

import (
	"container/list"
	"context"
	"sync"
	"sync/atomic"

	"github.com/hupe1980/fvapprox/resource"
)

// LRU is an in-memory Cache bounded by total value size in bytes.
type LRU struct {
	mu        sync.Mutex
	capacity  int64
	size      int64
	items     map[string]*list.Element
	evictList *list.List
	rc        *resource.Controller

	hits   atomic.Int64
	misses atomic.Int64
}

type entry struct {
	key   string
	value []byte
}

// NewLRU creates an LRU holding at most capacity bytes. If rc is not nil,
// cached bytes are also charged against its memory budget; entries the
// budget cannot admit are not cached.
func NewLRU(capacity int64, rc *resource.Controller) *LRU {
	return &LRU{
		capacity:  capacity,
		items:     make(map[string]*list.Element),
		evictList: list.New(),
		rc:        rc,
	}
}

// Lookup implements Cache.
func (c *LRU) Lookup(_ context.Context, key string) ([]byte, bool, error) {
	c.mu.Lock()
	defer c.mu.Unlock()

	if ent, ok := c.items[key]; ok {
		c.hits.Add(1)
		c.evictList.MoveToFront(ent)
		return ent.Value.(*entry).value, true, nil
	}
	c.misses.Add(1)
	return nil, false, nil
}

// Store implements Cache.
func (c *LRU) Store(_ context.Context, key string, value []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	itemSize := int64(len(value))
	if ent, ok := c.items[key]; ok {
		// Keys determine values, so a repeated store only refreshes recency.
		c.evictList.MoveToFront(ent)
		return nil
	}
	if itemSize > c.capacity {
		return nil
	}

	// Evicting first returns budget to rc before acquiring it again.
	for c.size+itemSize > c.capacity {
		back := c.evictList.Back()
		if back == nil {
			break
		}
		c.removeElement(back)
	}
	if !c.rc.TryAcquireMemory(itemSize) {
		return nil
	}

	c.items[key] = c.evictList.PushFront(&entry{key: key, value: value})
	c.size += itemSize
	return nil
}

func (c *LRU) removeElement(e *list.Element) {
	c.evictList.Remove(e)
	kv := e.Value.(*entry)
	delete(c.items, kv.key)
	itemSize := int64(len(kv.value))
	c.size -= itemSize
	c.rc.ReleaseMemory(itemSize)
}

// Purge drops every entry and returns their memory to the controller.
func (c *LRU) Purge() {
	c.mu.Lock()
	defer c.mu.Unlock()

	for c.evictList.Len() > 0 {
		c.removeElement(c.evictList.Back())
	}
}

// Len returns the number of cached entries.
func (c *LRU) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.evictList.Len()
}

// Size returns the cached bytes.
func (c *LRU) Size() int64 {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.size
}

// Stats returns hit and miss counts.
func (c *LRU) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
