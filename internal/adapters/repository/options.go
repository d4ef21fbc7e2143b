package repository

// Option applies a configuration option to the MemoryStore.
type Option func(*MemoryStore)

// WithPersister forwards every mutation's snapshot to p.
func WithPersister(p Persister) Option {
	return func(s *MemoryStore) {
		if p != nil {
			s.persister = p
		}
	}
}
