// Package worker persists queued state snapshots in the background.
package worker

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/inkscore/internal/adapters/mq/queue"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/metrics"
	"github.com/okian/inkscore/pkg/retry"
)

// Default worker configuration constants.
const (
	defaultAttemptTimeout = 5 * time.Second
	defaultRatePerSecond  = 20
	flushPollInterval     = 5 * time.Millisecond
)

// PersistenceFailure prefixes the warning sent when a snapshot could not
// be saved.
const PersistenceFailure = "PersistenceFailure"

// Saver stores a complete state, overwriting the previous one.
type Saver interface {
	Save(ctx context.Context, state model.State) error
}

// Queue defines how the worker receives snapshots.
type Queue interface {
	Next(ctx context.Context) (queue.Snapshot, error)
	Done()
	Len() int
	Idle() bool
}

// Worker persists snapshots until stopped.
type Worker interface {
	// Start marks the worker running and runs the loop in a goroutine.
	Start(ctx context.Context)

	// Run starts the worker loop until ctx is canceled or the queue is
	// closed and drained.
	Run(ctx context.Context)

	// Flush waits until every pending snapshot has been handled.
	Flush(ctx context.Context) error

	// Shutdown closes the queue and waits for Run to finish.
	Shutdown(ctx context.Context) error
}

// SyncWorker saves the newest snapshot with retries. Older snapshots that
// are still pending when a newer one exists are skipped.
type SyncWorker struct {
	queue          Queue
	saver          Saver
	name           string
	policy         retry.Policy
	attemptTimeout time.Duration
	limiter        *rate.Limiter
	notifier       notify.Notifier

	saved  atomic.Uint64
	failed atomic.Uint64

	started  atomic.Bool
	stopOnce sync.Once
	done     chan struct{}

	logger logger.Logger
}

// NewSyncWorker creates a worker reading from q and writing to saver.
func NewSyncWorker(q Queue, saver Saver, opts ...Option) *SyncWorker {
	w := &SyncWorker{
		queue:          q,
		saver:          saver,
		name:           "sync",
		policy:         retry.DefaultPolicy(),
		attemptTimeout: defaultAttemptTimeout,
		limiter:        rate.NewLimiter(rate.Limit(defaultRatePerSecond), 1),
		notifier:       notify.Nop{},
		done:           make(chan struct{}),
		logger:         logger.Get().Named("worker"),
	}

	for _, opt := range opts {
		opt(w)
	}
	w.logger = w.logger.Named(w.name)

	return w
}

// Start dispatches Run. Shutdown called any time after Start returns
// waits for the pending snapshots to be saved.
func (w *SyncWorker) Start(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}
	go w.loop(ctx)
}

// Run runs the worker loop on the calling goroutine.
func (w *SyncWorker) Run(ctx context.Context) {
	if w.started.Swap(true) {
		return
	}
	w.loop(ctx)
}

func (w *SyncWorker) loop(ctx context.Context) {
	defer close(w.done)

	for {
		s, err := w.queue.Next(ctx)
		if err != nil {
			if !errors.Is(err, queue.ErrClosed) && !errors.Is(err, context.Canceled) {
				w.logger.Warn(ctx, "sync worker stopped", logger.Error(err))
			}
			return
		}
		w.handle(ctx, s)
	}
}

func (w *SyncWorker) handle(ctx context.Context, s queue.Snapshot) {
	defer w.queue.Done()

	// Only the newest pending snapshot is worth saving.
	for w.queue.Len() > 0 {
		newer, err := w.queue.Next(ctx)
		if err != nil {
			break
		}
		w.queue.Done()
		metrics.RecordPersistSkipped()
		s = newer
	}

	if s.Version <= w.saved.Load() {
		metrics.RecordPersistSkipped()
		return
	}

	if err := w.persist(ctx, s); err != nil {
		w.failed.Store(s.Version)
		metrics.RecordPersistFailure()
		metrics.RecordErrorByComponent("worker", "persist_failed")
		w.logger.Error(ctx, "failed to persist snapshot",
			logger.Int64("version", int64(s.Version)), //nolint:gosec // versions stay far below MaxInt64
			logger.Error(err),
		)
		w.notifier.Notify(ctx, notify.Warning,
			fmt.Sprintf("%s: changes are kept locally but could not be saved: %v", PersistenceFailure, err))
		return
	}
	w.saved.Store(s.Version)
}

func (w *SyncWorker) persist(ctx context.Context, s queue.Snapshot) error {
	start := time.Now()
	defer func() {
		metrics.RecordPersistLatency(metrics.Since(start))
	}()

	return retry.Do(ctx, w.policy, func(ctx context.Context, attempt int) error {
		if err := w.limiter.Wait(ctx); err != nil {
			return retry.Permanent(err)
		}
		metrics.RecordPersistAttempt()

		attemptCtx, cancel := context.WithTimeout(ctx, w.attemptTimeout)
		defer cancel()
		if err := w.saver.Save(attemptCtx, s.State); err != nil {
			w.logger.Warn(ctx, "persist attempt failed",
				logger.Int("attempt", attempt),
				logger.Error(err),
			)
			return err
		}
		return nil
	})
}

// Flush waits for the queue to drain.
func (w *SyncWorker) Flush(ctx context.Context) error {
	ticker := time.NewTicker(flushPollInterval)
	defer ticker.Stop()
	for {
		if w.queue.Idle() {
			return nil
		}
		select {
		case <-ctx.Done():
			return fmt.Errorf("flush: %w", ctx.Err())
		case <-w.done:
			return nil
		case <-ticker.C:
		}
	}
}

// Shutdown closes the queue, lets Run save what is pending, and waits.
func (w *SyncWorker) Shutdown(ctx context.Context) error {
	w.stopOnce.Do(func() {
		if closer, ok := w.queue.(interface{ Close() error }); ok {
			if err := closer.Close(); err != nil {
				w.logger.Error(ctx, "error closing queue", logger.Error(err))
			}
		}
	})
	if !w.started.Load() {
		return nil
	}

	select {
	case <-w.done:
		return nil
	case <-ctx.Done():
		w.logger.Warn(ctx, "shutdown timed out")
		return fmt.Errorf("shutdown timed out: %w", ctx.Err())
	}
}

// SavedVersion is the newest version known to be stored.
func (w *SyncWorker) SavedVersion() uint64 { return w.saved.Load() }

// FailedVersion is the newest version whose save gave up, or zero.
func (w *SyncWorker) FailedVersion() uint64 { return w.failed.Load() }
