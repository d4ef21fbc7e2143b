// Package persistence stores and loads the complete contest state.
//
// Save overwrites whatever was stored before, so saving the same state
// twice leaves the same content. Load of a backend that has never been
// written returns an empty state and no error.
package persistence

import (
	"context"
	"errors"
	"fmt"

	"github.com/okian/inkscore/internal/domain/model"
)

// Backend is a durable home for model.State.
type Backend interface {
	Load(ctx context.Context) (model.State, error)
	Save(ctx context.Context, state model.State) error
	Close() error
}

// Drivers understood by Open.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

// Sentinel errors.
var (
	ErrUnknownDriver = errors.New("unknown storage driver")
	ErrCorrupt       = errors.New("stored state is corrupt")
)

// Options selects and configures a backend.
type Options struct {
	Driver      string
	Path        string
	DatabaseURL string
}

// Open builds the backend named by opts.Driver.
func Open(ctx context.Context, opts Options) (Backend, error) {
	switch opts.Driver {
	case DriverFile:
		return NewFileBackend(opts.Path), nil
	case DriverSQLite, DriverPostgres:
		return OpenSQL(ctx, opts.Driver, opts.DatabaseURL)
	case DriverMemory:
		return NewMemoryBackend(), nil
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownDriver, opts.Driver)
	}
}

func emptyState() model.State {
	return model.State{}.Clone()
}
