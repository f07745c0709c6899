// Package notify turns classified transitions into severity-typed user
// messages and delivers them to a pluggable sink. It has no opinion on how
// notifications are rendered.
package notify

import (
	"sync"
	"time"

	"live-sync/internal/util"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// Severity of a user-facing message.
type Severity string

const (
	SeveritySuccess Severity = "success"
	SeverityInfo    Severity = "info"
	SeverityWarning Severity = "warning"
	SeverityError   Severity = "error"
)

// Notification is one emitted message.
type Notification struct {
	ID        string    `json:"id"`
	Severity  Severity  `json:"severity"`
	Title     string    `json:"title"`
	Message   string    `json:"message"`
	CreatedAt time.Time `json:"created_at"`
}

// Sink receives emitted notifications.
type Sink interface {
	Notify(severity Severity, title, message string)
}

// LogSink writes notifications to the service log.
type LogSink struct {
	logger *zap.Logger
}

// NewLogSink returns a sink backed by the global logger.
func NewLogSink() *LogSink {
	return &LogSink{logger: util.NamedLogger("notify")}
}

func (s *LogSink) Notify(severity Severity, title, message string) {
	s.logger.Info("notification",
		zap.String("severity", string(severity)),
		zap.String("title", title),
		zap.String("message", message))
}

// RingSink keeps the most recent notifications in a bounded buffer so the
// presentation layer can poll them.
type RingSink struct {
	mu    sync.Mutex
	buf   []Notification
	limit int
}

// NewRingSink returns a sink holding at most limit notifications.
func NewRingSink(limit int) *RingSink {
	if limit <= 0 {
		limit = 50
	}
	return &RingSink{limit: limit}
}

func (s *RingSink) Notify(severity Severity, title, message string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.buf = append(s.buf, Notification{
		ID:        uuid.New().String(),
		Severity:  severity,
		Title:     title,
		Message:   message,
		CreatedAt: time.Now(),
	})
	if len(s.buf) > s.limit {
		s.buf = s.buf[len(s.buf)-s.limit:]
	}
}

// List returns a copy of the buffered notifications, oldest first.
func (s *RingSink) List() []Notification {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]Notification, len(s.buf))
	copy(out, s.buf)
	return out
}

// MultiSink fans a notification out to several sinks.
type MultiSink []Sink

func (m MultiSink) Notify(severity Severity, title, message string) {
	for _, s := range m {
		s.Notify(severity, title, message)
	}
}
