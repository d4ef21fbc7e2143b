// Package notify delivers user-facing messages. Delivery is fire-and-forget.
package notify

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/okian/inkscore/pkg/logger"
	"github.com/okian/inkscore/pkg/metrics"
)

// Severity classifies a notification.
type Severity string

// Known severities.
const (
	Info    Severity = "info"
	Success Severity = "success"
	Warning Severity = "warning"
	Error   Severity = "error"
)

// ParseSeverity accepts the four severities case-insensitively.
func ParseSeverity(s string) (Severity, error) {
	switch v := Severity(strings.ToLower(strings.TrimSpace(s))); v {
	case Info, Success, Warning, Error:
		return v, nil
	default:
		return "", fmt.Errorf("unknown severity %q", s)
	}
}

// Notification is one delivered message.
type Notification struct {
	Severity Severity  `json:"severity"`
	Message  string    `json:"message"`
	At       time.Time `json:"at"`
}

// Notifier delivers a message. Implementations must not block for long
// and never fail.
type Notifier interface {
	Notify(ctx context.Context, severity Severity, message string)
}

// LogNotifier writes notifications to a logger.
type LogNotifier struct {
	log logger.Logger
}

// NewLogNotifier creates a LogNotifier.
func NewLogNotifier(log logger.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (n *LogNotifier) Notify(ctx context.Context, severity Severity, message string) {
	metrics.RecordNotification(string(severity))
	f := logger.String("severity", string(severity))
	switch severity {
	case Error:
		n.log.Error(ctx, message, f)
	case Warning:
		n.log.Warn(ctx, message, f)
	default:
		n.log.Info(ctx, message, f)
	}
}

// History keeps the most recent notifications in a ring.
type History struct {
	mu    sync.Mutex
	buf   []Notification
	next  int
	full  bool
	clock func() time.Time
}

// HistoryOption configures a History.
type HistoryOption func(*History)

// WithClock sets the timestamp source.
func WithClock(now func() time.Time) HistoryOption {
	return func(h *History) {
		if now != nil {
			h.clock = now
		}
	}
}

// NewHistory keeps up to capacity notifications (minimum 1).
func NewHistory(capacity int, opts ...HistoryOption) *History {
	if capacity < 1 {
		capacity = 1
	}
	h := &History{buf: make([]Notification, capacity), clock: time.Now}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *History) Notify(_ context.Context, severity Severity, message string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.buf[h.next] = Notification{Severity: severity, Message: message, At: h.clock()}
	h.next = (h.next + 1) % len(h.buf)
	if h.next == 0 {
		h.full = true
	}
}

// Recent returns up to limit notifications, newest first. limit <= 0 means all kept.
func (h *History) Recent(limit int) []Notification {
	h.mu.Lock()
	defer h.mu.Unlock()

	n := h.next
	if h.full {
		n = len(h.buf)
	}
	if limit <= 0 || limit > n {
		limit = n
	}
	out := make([]Notification, 0, limit)
	for i := 1; i <= limit; i++ {
		idx := (h.next - i + len(h.buf)) % len(h.buf)
		out = append(out, h.buf[idx])
	}
	return out
}

// Multi fans a notification out to every notifier.
type Multi []Notifier

func (m Multi) Notify(ctx context.Context, severity Severity, message string) {
	for _, n := range m {
		if n != nil {
			n.Notify(ctx, severity, message)
		}
	}
}

// Nop discards notifications.
type Nop struct{}

func (Nop) Notify(context.Context, Severity, string) {}
