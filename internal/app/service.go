// Package service owns the application state of a running contest and
// implements the operations the HTTP API exposes.
//
// A Service is built by the composition root and passed to the adapters.
// Every operation notifies its outcome and returns any error so the caller
// can pick a status code; no failure is fatal.
package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/okian/inkscore/internal/adapters/mq/queue"
	"github.com/okian/inkscore/internal/adapters/mq/worker"
	"github.com/okian/inkscore/internal/adapters/persistence"
	"github.com/okian/inkscore/internal/adapters/repository"
	"github.com/okian/inkscore/internal/domain/dedupe"
	"github.com/okian/inkscore/internal/domain/model"
	"github.com/okian/inkscore/internal/domain/recorder"
	"github.com/okian/inkscore/internal/domain/rules"
	"github.com/okian/inkscore/internal/domain/scoring"
	"github.com/okian/inkscore/internal/domain/section"
	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/metrics"
	"github.com/okian/inkscore/pkg/retry"
)

const tracerName = "github.com/okian/inkscore/internal/app"

// Default service configuration constants.
const (
	defaultQueueSize           = 64
	defaultMaxLeaderboardLimit = 100
	defaultNotificationHistory = 200
	defaultPersistTimeout      = 3 * time.Second
	defaultPersistRate         = 20
	defaultPersistBurst        = 5
)

// Service implements the API dependencies for a contest.
type Service struct {
	mu sync.RWMutex

	// Core components
	rules     *rules.Set
	store     *repository.MemoryStore
	index     dedupe.Index
	recorder  *recorder.Recorder
	backend   persistence.Backend
	snapshots *queue.SnapshotQueue
	syncer    *worker.SyncWorker
	history   *notify.History
	notifier  notify.Notifier
	extra     []notify.Notifier
	validate  *validator.Validate
	tracer    trace.Tracer

	// Configuration
	queueSize           int
	policy              retry.Policy
	persistTimeout      time.Duration
	persistRate         float64
	persistBurst        int
	maxLeaderboardLimit int
	historySize         int
	now                 func() time.Time
	newID               func() string

	// State
	started bool

	// Logging
	logger logger.Logger
}

// Option applies a configuration option to the Service.
type Option func(*Service)

// WithRules replaces rules.Default.
func WithRules(set *rules.Set) Option {
	return func(s *Service) {
		if set != nil {
			s.rules = set
		}
	}
}

// WithBackend sets the durable backend. The default keeps state in memory.
func WithBackend(b persistence.Backend) Option {
	return func(s *Service) {
		if b != nil {
			s.backend = b
		}
	}
}

// WithQueueSize sets how many snapshots may wait for persistence.
func WithQueueSize(size int) Option {
	return func(s *Service) {
		if size > 0 {
			s.queueSize = size
		}
	}
}

// WithRetryPolicy sets the persistence retry policy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(s *Service) {
		if p.Validate() == nil {
			s.policy = p
		}
	}
}

// WithPersistTimeout bounds one save attempt.
func WithPersistTimeout(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.persistTimeout = d
		}
	}
}

// WithPersistRate throttles backend writes. A non-positive rate disables it.
func WithPersistRate(perSecond float64, burst int) Option {
	return func(s *Service) {
		s.persistRate = perSecond
		s.persistBurst = burst
	}
}

// WithMaxLeaderboardLimit caps the leaderboard length.
func WithMaxLeaderboardLimit(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.maxLeaderboardLimit = n
		}
	}
}

// WithNotificationHistory sets how many notifications are retained.
func WithNotificationHistory(n int) Option {
	return func(s *Service) {
		if n > 0 {
			s.historySize = n
		}
	}
}

// WithNotifier adds a notification sink next to the log and history.
func WithNotifier(n notify.Notifier) Option {
	return func(s *Service) {
		if n != nil {
			s.extra = append(s.extra, n)
		}
	}
}

// WithClock sets the timestamp source for records and notifications.
func WithClock(now func() time.Time) Option {
	return func(s *Service) {
		if now != nil {
			s.now = now
		}
	}
}

// WithIDGenerator sets the id source for new records.
func WithIDGenerator(gen func() string) Option {
	return func(s *Service) {
		if gen != nil {
			s.newID = gen
		}
	}
}

// WithLogger sets a custom logger for the service.
func WithLogger(logger logger.Logger) Option {
	return func(s *Service) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithTracer sets the tracer used for operation spans.
func WithTracer(t trace.Tracer) Option {
	return func(s *Service) {
		if t != nil {
			s.tracer = t
		}
	}
}

// New constructs a Service. Call Start before serving requests.
func New(opts ...Option) *Service {
	s := &Service{
		rules:               rules.Default(),
		backend:             persistence.NewMemoryBackend(),
		queueSize:           defaultQueueSize,
		policy:              retry.DefaultPolicy(),
		persistTimeout:      defaultPersistTimeout,
		persistRate:         defaultPersistRate,
		persistBurst:        defaultPersistBurst,
		maxLeaderboardLimit: defaultMaxLeaderboardLimit,
		historySize:         defaultNotificationHistory,
		now:                 time.Now,
		newID:               uuid.NewString,
	}

	// Apply all options
	for _, opt := range opts {
		opt(s)
	}

	if s.logger == nil {
		s.logger = logger.Get().Named("service")
	}
	if s.tracer == nil {
		s.tracer = otel.Tracer(tracerName)
	}

	s.history = notify.NewHistory(s.historySize, notify.WithClock(s.now))
	s.notifier = append(notify.Multi{notify.NewLogNotifier(s.logger.Named("notify")), s.history}, s.extra...)

	s.snapshots = queue.NewSnapshotQueue(queue.WithCapacity(s.queueSize))
	s.store = repository.NewMemoryStore(repository.WithPersister(s.snapshots))
	s.index = dedupe.NewInMemoryIndex()
	s.recorder = recorder.New(s.store, s.index,
		recorder.WithScorer(scoring.New(scoring.WithRules(s.rules))),
		recorder.WithClock(s.now),
		recorder.WithIDGenerator(s.newID),
	)
	s.syncer = worker.NewSyncWorker(s.snapshots, s.backend,
		worker.WithLogger(s.logger),
		worker.WithRetryPolicy(s.policy),
		worker.WithAttemptTimeout(s.persistTimeout),
		worker.WithRateLimit(s.persistRate, s.persistBurst),
		worker.WithNotifier(s.notifier),
	)
	s.validate = newValidator()

	return s
}

// Start loads the stored state and starts the sync worker. A state that
// cannot be loaded is replaced by an empty one and reported as a warning.
func (s *Service) Start(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.started {
		return nil
	}
	if s.snapshots.IsClosed() {
		return ErrStopped
	}

	ctx, span := s.tracer.Start(ctx, "service.Start")
	defer span.End()

	s.logger.Info(ctx, "starting contest service...")

	state, err := s.backend.Load(ctx)
	if err == nil {
		var report repository.RestoreReport
		report, err = s.store.Restore(ctx, state)
		if err == nil && report.DroppedEvaluations > 0 {
			s.notify(ctx, section.Administration, notify.Warning,
				fmt.Sprintf("%d stored evaluations referenced missing records and were dropped", report.DroppedEvaluations))
		}
	}
	if err != nil {
		metrics.RecordLoadFailure()
		metrics.RecordErrorByComponent("service", "load_failed")
		span.RecordError(err)
		s.logger.Warn(ctx, "failed to load stored state, starting empty", logger.Error(err))
		s.notify(ctx, section.Administration, notify.Warning,
			fmt.Sprintf("%s: stored state could not be loaded, starting empty: %v", worker.PersistenceFailure, err))
		_, _ = s.store.Restore(ctx, model.State{})
	}
	s.recorder.Rebuild(ctx, s.store.Evaluations(ctx, repository.EvaluationFilter{}))

	s.syncer.Start(context.WithoutCancel(ctx))

	s.started = true
	counts := s.store.Counts(ctx)
	s.logger.Info(ctx, "contest service started",
		logger.Int("contestants", counts.Contestants),
		logger.Int("judges", counts.Judges),
		logger.Int("evaluations", counts.Evaluations),
		logger.Int("queueSize", s.queueSize),
	)

	return nil
}

// Stop saves pending snapshots, stops the sync worker and closes the
// backend. A stopped Service cannot be started again.
func (s *Service) Stop(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if !s.started {
		return nil
	}

	s.logger.Info(ctx, "stopping contest service...")

	var errs []error
	if err := s.syncer.Shutdown(ctx); err != nil {
		errs = append(errs, err)
	}
	if err := s.backend.Close(); err != nil {
		errs = append(errs, fmt.Errorf("close backend: %w", err))
	}

	s.started = false
	s.logger.Info(ctx, "contest service stopped")
	return errors.Join(errs...)
}

// Flush waits until every committed change has been handed to the backend.
func (s *Service) Flush(ctx context.Context) error {
	return s.syncer.Flush(ctx)
}

// Started reports whether Start has completed.
func (s *Service) Started() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.started
}

// Rules returns the rule set in use.
func (s *Service) Rules() *rules.Set { return s.rules }

// Counts returns the number of records per collection.
func (s *Service) Counts(ctx context.Context) repository.Counts {
	return s.store.Counts(ctx)
}

// Notifications returns up to limit recent notifications, newest first.
func (s *Service) Notifications(limit int) []notify.Notification {
	return s.history.Recent(limit)
}

// GetStats returns service statistics for monitoring.
func (s *Service) GetStats(ctx context.Context) map[string]any {
	counts := s.store.Counts(ctx)
	_, version := s.store.Snapshot(ctx)
	return map[string]any{
		"started":       s.Started(),
		"contestants":   counts.Contestants,
		"judges":        counts.Judges,
		"evaluations":   counts.Evaluations,
		"version":       version,
		"savedVersion":  s.syncer.SavedVersion(),
		"pendingSyncs":  s.snapshots.Len(),
		"dedupeSize":    s.index.Size(),
		"categoryCount": len(s.rules.Categories()),
		"maxScore":      s.rules.MaxScore(),
	}
}

func (s *Service) notify(ctx context.Context, sec section.Section, severity notify.Severity, message string) {
	s.notifier.Notify(ctx, severity, sec.Title()+": "+message)
}

// fail records a rejected operation and returns err unchanged.
func (s *Service) fail(ctx context.Context, span trace.Span, sec section.Section, op string, err error) error {
	reason := model.Reason(err)
	span.RecordError(err)
	span.SetStatus(codes.Error, reason)
	metrics.RecordErrorByComponent("service", reason)

	severity := notify.Error
	switch {
	case errors.Is(err, model.ErrDuplicateEvaluation), errors.Is(err, model.ErrDuplicateEntity):
		severity = notify.Warning
	case reason == "internal":
		s.logger.Error(ctx, "operation failed", logger.String("op", op), logger.Error(err))
	}
	s.logger.Debug(ctx, "operation rejected",
		logger.String("op", op),
		logger.String("section", sec.String()),
		logger.String("reason", reason),
		logger.Error(err),
	)
	s.notify(ctx, sec, severity, err.Error())
	return err
}

func (s *Service) span(ctx context.Context, op string, attrs ...attribute.KeyValue) (context.Context, trace.Span) {
	return s.tracer.Start(ctx, op, trace.WithAttributes(attrs...))
}
