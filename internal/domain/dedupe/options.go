package dedupe

// Option applies a configuration option to the in-memory index.
type Option func(*inMemoryIndex)

// WithCapacity pre-sizes the index for n triples.
func WithCapacity(n int) Option {
	return func(d *inMemoryIndex) {
		if n > 0 {
			d.capacity = n
		}
	}
}
