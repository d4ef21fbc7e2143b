package queue

import "errors"

// Sentinel errors.
var (
	ErrClosed = errors.New("snapshot queue closed")
)
