package repository

import "errors"

// ErrInvalidState is returned by Restore for states whose identities collide.
var ErrInvalidState = errors.New("invalid state")
