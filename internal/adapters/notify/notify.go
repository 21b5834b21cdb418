// Package notify delivers transient user notifications.
package notify

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
)

// Level classifies a notification.
type Level string

// Notification levels
const (
	LevelInfo    Level = "info"
	LevelSuccess Level = "success"
	LevelError   Level = "error"
)

// Notification is a transient message; it is never persisted.
type Notification struct {
	ID        string
	Level     Level
	Message   string
	CreatedAt time.Time
}

// New creates a notification with a fresh ID.
func New(level Level, message string) Notification {
	return Notification{
		ID:        uuid.New().String(),
		Level:     level,
		Message:   message,
		CreatedAt: time.Now(),
	}
}

// Notifier receives notifications.
type Notifier interface {
	Notify(n Notification)
}

// Slog writes every notification to the default logger. Errors log at WARN.
type Slog struct{}

// Notify logs n.
func (Slog) Notify(n Notification) {
	level := slog.LevelInfo
	if n.Level == LevelError {
		level = slog.LevelWarn
	}
	slog.Log(context.Background(), level, "notification", "id", n.ID, "level", string(n.Level), "message", n.Message)
}

// Func adapts a function to Notifier.
type Func func(Notification)

// Notify calls f(n).
func (f Func) Notify(n Notification) { f(n) }

// Multi fans a notification out to several notifiers.
type Multi []Notifier

// Notify delivers n to each notifier in order.
func (m Multi) Notify(n Notification) {
	for _, nt := range m {
		nt.Notify(n)
	}
}

// Recorder keeps every notification in memory.
type Recorder struct {
	mu  sync.Mutex
	all []Notification
}

// Notify records n.
func (r *Recorder) Notify(n Notification) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = append(r.all, n)
}

// All returns a copy of the recorded notifications.
func (r *Recorder) All() []Notification {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]Notification(nil), r.all...)
}

// Errors returns only error-level notifications.
func (r *Recorder) Errors() []Notification {
	var out []Notification
	for _, n := range r.All() {
		if n.Level == LevelError {
			out = append(out, n)
		}
	}
	return out
}

// Reset discards everything recorded.
func (r *Recorder) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.all = nil
}
