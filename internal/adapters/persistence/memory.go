package persistence

import (
	"context"
	"sync"

	"github.com/okian/inkscore/internal/domain/model"
)

// MemoryBackend keeps the last saved state in memory.
type MemoryBackend struct {
	mu    sync.Mutex
	state model.State
	saved bool
	saves int
}

// NewMemoryBackend creates an empty MemoryBackend.
func NewMemoryBackend() *MemoryBackend {
	return &MemoryBackend{}
}

func (b *MemoryBackend) Load(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.saved {
		return emptyState(), nil
	}
	return b.state.Clone(), nil
}

func (b *MemoryBackend) Save(ctx context.Context, state model.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	b.mu.Lock()
	defer b.mu.Unlock()
	b.state = state.Clone()
	b.saved = true
	b.saves++
	return nil
}

// Saves reports how many times Save succeeded.
func (b *MemoryBackend) Saves() int {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.saves
}

func (b *MemoryBackend) Close() error { return nil }
