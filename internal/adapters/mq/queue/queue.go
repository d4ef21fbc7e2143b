// Package queue holds state snapshots waiting to be persisted.
//
// The queue is bounded and never blocks producers: when it is full the
// oldest pending snapshot is dropped, since every later snapshot contains
// the complete state anyway.
package queue

import (
	"context"
	"sync"

	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/pkg/metrics"
)

const defaultCapacity = 64

// Snapshot is one committed version of the contest state.
type Snapshot struct {
	Version uint64
	State   model.State
}

// Queue provides non-blocking enqueue and blocking dequeue of snapshots.
type Queue interface {
	// Enqueue adds a snapshot, evicting the oldest one when full.
	Enqueue(version uint64, state model.State)

	// Next blocks until a snapshot is available, ctx is done, or the queue
	// is closed and drained.
	Next(ctx context.Context) (Snapshot, error)

	// Done marks the snapshot returned by the last Next as handled.
	Done()

	// Len returns the number of pending snapshots.
	Len() int

	// Idle reports whether nothing is pending or being handled.
	Idle() bool

	// Close stops accepting snapshots. Pending ones can still be read.
	Close() error
}

// SnapshotQueue implements Queue with a slice guarded by a mutex.
type SnapshotQueue struct {
	mu       sync.Mutex
	items    []Snapshot
	capacity int
	closed   bool
	inflight int
	// ready gets a token whenever items becomes non-empty or the queue closes.
	ready chan struct{}
}

// NewSnapshotQueue creates an empty queue.
func NewSnapshotQueue(opts ...Option) *SnapshotQueue {
	q := &SnapshotQueue{
		capacity: defaultCapacity,
		ready:    make(chan struct{}, 1),
	}
	for _, opt := range opts {
		opt(q)
	}
	q.items = make([]Snapshot, 0, q.capacity)
	metrics.UpdateSyncQueueSize(0)
	return q
}

// Enqueue satisfies repository.Persister. It is called with the store's
// write lock held, so it must not block.
func (q *SnapshotQueue) Enqueue(version uint64, state model.State) {
	q.mu.Lock()
	defer q.mu.Unlock()

	if q.closed {
		metrics.RecordErrorByComponent("queue", "closed")
		return
	}
	if len(q.items) >= q.capacity {
		copy(q.items, q.items[1:])
		q.items = q.items[:len(q.items)-1]
		metrics.RecordSyncQueueDropped()
	}
	q.items = append(q.items, Snapshot{Version: version, State: state})
	metrics.UpdateSyncQueueSize(len(q.items))
	q.signal()
}

func (q *SnapshotQueue) signal() {
	select {
	case q.ready <- struct{}{}:
	default:
	}
}

func (q *SnapshotQueue) Next(ctx context.Context) (Snapshot, error) {
	for {
		q.mu.Lock()
		if len(q.items) > 0 {
			s := q.items[0]
			q.items[0] = Snapshot{}
			q.items = q.items[1:]
			q.inflight++
			if len(q.items) > 0 || q.closed {
				q.signal()
			}
			metrics.UpdateSyncQueueSize(len(q.items))
			q.mu.Unlock()
			return s, nil
		}
		if q.closed {
			q.signal()
			q.mu.Unlock()
			return Snapshot{}, ErrClosed
		}
		q.mu.Unlock()

		select {
		case <-ctx.Done():
			return Snapshot{}, ctx.Err()
		case <-q.ready:
		}
	}
}

func (q *SnapshotQueue) Done() {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.inflight > 0 {
		q.inflight--
	}
}

func (q *SnapshotQueue) Idle() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items) == 0 && q.inflight == 0
}

func (q *SnapshotQueue) Len() int {
	q.mu.Lock()
	defer q.mu.Unlock()
	return len(q.items)
}

func (q *SnapshotQueue) Close() error {
	q.mu.Lock()
	defer q.mu.Unlock()
	if q.closed {
		return nil
	}
	q.closed = true
	q.signal()
	return nil
}

// IsClosed returns true if the queue has been closed.
func (q *SnapshotQueue) IsClosed() bool {
	q.mu.Lock()
	defer q.mu.Unlock()
	return q.closed
}
