// Package dedupe remembers intent idempotency keys so a double-submitted
// action is applied once.
package dedupe

import (
	"context"
	"sync"

	"github.com/golang/groupcache/lru"
)

// Deduper records seen intent IDs to ensure at-most-once application.
type Deduper interface {
	// SeenAndRecord atomically checks if id was seen and records it if not.
	// Returns true if id was already seen, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, id string) bool

	// Unrecord forgets an ID so the intent can be retried, e.g. after the
	// queue rejected it.
	Unrecord(ctx context.Context, id string)

	Size() int64
}

// inMemoryDeduper keeps the most recently used IDs in an LRU cache.
// maxSize <= 0 means unbounded.
type inMemoryDeduper struct {
	mu      sync.Mutex
	seen    *lru.Cache
	maxSize int
}

// NewInMemoryDeduper creates a new in-memory deduper with configuration options.
func NewInMemoryDeduper(opts ...Option) Deduper {
	d := &inMemoryDeduper{
		maxSize: 4096,
	}
	for _, opt := range opts {
		opt(d)
	}
	limit := d.maxSize
	if limit < 0 {
		limit = 0
	}
	d.seen = lru.New(limit)
	return d
}

func (d *inMemoryDeduper) SeenAndRecord(_ context.Context, id string) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, ok := d.seen.Get(id); ok {
		return true
	}
	d.seen.Add(id, struct{}{})
	return false
}

func (d *inMemoryDeduper) Unrecord(_ context.Context, id string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.seen.Remove(id)
}

// Size returns the current number of remembered IDs.
func (d *inMemoryDeduper) Size() int64 {
	d.mu.Lock()
	defer d.mu.Unlock()
	return int64(d.seen.Len())
}
