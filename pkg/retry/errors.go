package retry

import "errors"

// Policy validation and exhaustion errors.
var (
	ErrMaxAttemptsInvalid     = errors.New("max attempts must be positive")
	ErrInitialIntervalInvalid = errors.New("initial interval must be positive")
	ErrMaxIntervalInvalid     = errors.New("max interval must be >= initial interval")
	ErrMultiplierInvalid      = errors.New("multiplier must be >= 1")
	ErrExhausted              = errors.New("all retry attempts exhausted")
)
