package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/okian/inkscore/internal/domain/model"
)

// fileFormatVersion is written into every state file.
const fileFormatVersion = 1

type fileEnvelope struct {
	Format int         `json:"format"`
	State  model.State `json:"state"`
}

// FileBackend keeps the state in one JSON file, replaced atomically.
type FileBackend struct {
	mu   sync.Mutex
	path string
}

// NewFileBackend stores state at path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

func (b *FileBackend) Load(ctx context.Context) (model.State, error) {
	if err := ctx.Err(); err != nil {
		return model.State{}, err
	}
	b.mu.Lock()
	defer b.mu.Unlock()

	data, err := os.ReadFile(b.path)
	if errors.Is(err, fs.ErrNotExist) {
		return emptyState(), nil
	}
	if err != nil {
		return model.State{}, fmt.Errorf("read %s: %w", b.path, err)
	}
	var env fileEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return model.State{}, fmt.Errorf("%w: %s: %w", ErrCorrupt, b.path, err)
	}
	if env.Format != fileFormatVersion {
		return model.State{}, fmt.Errorf("%w: %s: format %d", ErrCorrupt, b.path, env.Format)
	}
	return env.State.Clone(), nil
}

// Save writes to a temporary file in the same directory and renames it
// over the target, so readers never see a partial file.
func (b *FileBackend) Save(ctx context.Context, state model.State) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	data, err := json.MarshalIndent(fileEnvelope{Format: fileFormatVersion, State: state.Clone()}, "", "  ")
	if err != nil {
		return fmt.Errorf("encode state: %w", err)
	}

	b.mu.Lock()
	defer b.mu.Unlock()

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create %s: %w", dir, err)
	}
	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp file: %w", err)
	}
	defer func() { _ = os.Remove(tmp.Name()) }()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write %s: %w", tmp.Name(), err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync %s: %w", tmp.Name(), err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close %s: %w", tmp.Name(), err)
	}
	if err := os.Rename(tmp.Name(), b.path); err != nil {
		return fmt.Errorf("replace %s: %w", b.path, err)
	}
	return nil
}

func (b *FileBackend) Close() error { return nil }
