package worker

import (
	"time"

	"golang.org/x/time/rate"

	"github.com/okian/inkscore/internal/notify"
	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/retry"
)

// Option applies a configuration option to the SyncWorker.
type Option func(*SyncWorker)

// WithName sets the worker name for identification and logging.
func WithName(name string) Option {
	return func(w *SyncWorker) {
		if name != "" {
			w.name = name
		}
	}
}

// WithLogger sets a custom logger for the worker.
func WithLogger(logger logger.Logger) Option {
	return func(w *SyncWorker) {
		if logger != nil {
			w.logger = logger
		}
	}
}

// WithRetryPolicy replaces retry.DefaultPolicy.
func WithRetryPolicy(p retry.Policy) Option {
	return func(w *SyncWorker) {
		if p.Validate() == nil {
			w.policy = p
		}
	}
}

// WithAttemptTimeout bounds a single Save call.
func WithAttemptTimeout(d time.Duration) Option {
	return func(w *SyncWorker) {
		if d > 0 {
			w.attemptTimeout = d
		}
	}
}

// WithRateLimit caps Save attempts per second across retries.
// A non-positive limit disables limiting.
func WithRateLimit(perSecond float64, burst int) Option {
	return func(w *SyncWorker) {
		if perSecond <= 0 {
			w.limiter = rate.NewLimiter(rate.Inf, 1)
			return
		}
		if burst < 1 {
			burst = 1
		}
		w.limiter = rate.NewLimiter(rate.Limit(perSecond), burst)
	}
}

// WithNotifier receives persistence failure warnings.
func WithNotifier(n notify.Notifier) Option {
	return func(w *SyncWorker) {
		if n != nil {
			w.notifier = n
		}
	}
}
