// Package dedupe tracks which (judge, contestant, category) triples already
// hold an evaluation.
package dedupe

import (
	"context"
	"sync"
	"sync/atomic"

	"github.com/okian/inkscore/internal/domain/model"
)

// Index records occupied evaluation triples.
type Index interface {
	// Seen reports whether key is occupied without recording it.
	Seen(ctx context.Context, key model.Key) bool

	// SeenAndRecord atomically checks if key is occupied and records it if not.
	// Returns true if key was already occupied, false if it was newly recorded.
	SeenAndRecord(ctx context.Context, key model.Key) bool

	// Unrecord frees key. Used when an admitted evaluation fails to commit
	// or is deleted.
	Unrecord(ctx context.Context, key model.Key)

	// Rebuild replaces the content with keys.
	Rebuild(ctx context.Context, keys []model.Key)

	Size() int64
}

// inMemoryIndex implements Index with a mutex-guarded set. A triple leaves
// the set only through Unrecord, when its evaluation is deleted, or Rebuild.
type inMemoryIndex struct {
	mu       sync.RWMutex
	seen     map[model.Key]struct{}
	capacity int
	size     atomic.Int64
}

// NewInMemoryIndex creates an empty index.
func NewInMemoryIndex(opts ...Option) Index {
	d := &inMemoryIndex{}
	for _, opt := range opts {
		opt(d)
	}
	d.seen = make(map[model.Key]struct{}, d.capacity)
	return d
}

func (d *inMemoryIndex) Seen(_ context.Context, key model.Key) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()
	_, ok := d.seen[key]
	return ok
}

func (d *inMemoryIndex) SeenAndRecord(_ context.Context, key model.Key) bool {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		return true
	}
	d.seen[key] = struct{}{}
	d.size.Add(1)
	return false
}

func (d *inMemoryIndex) Unrecord(_ context.Context, key model.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	if _, exists := d.seen[key]; exists {
		delete(d.seen, key)
		d.size.Add(-1)
	}
}

func (d *inMemoryIndex) Rebuild(_ context.Context, keys []model.Key) {
	d.mu.Lock()
	defer d.mu.Unlock()

	d.seen = make(map[model.Key]struct{}, max(len(keys), d.capacity))
	for _, k := range keys {
		d.seen[k] = struct{}{}
	}
	d.size.Store(int64(len(d.seen)))
}

// Size returns the current number of occupied triples.
func (d *inMemoryIndex) Size() int64 {
	return d.size.Load()
}
