package queue

// Option applies a configuration option to the SnapshotQueue.
type Option func(*SnapshotQueue)

// WithCapacity sets how many snapshots may wait before the oldest is dropped.
func WithCapacity(capacity int) Option {
	return func(q *SnapshotQueue) {
		if capacity > 0 {
			q.capacity = capacity
		}
	}
}
