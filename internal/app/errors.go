package service

import "errors"

// Sentinel errors.
var (
	ErrStopped = errors.New("service stopped")
)
