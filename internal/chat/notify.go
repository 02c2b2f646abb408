package chat

import (
	"context"
	"log/slog"
	"time"
)

// NotificationKind categorizes a notification so the shell can pick its copy and color
type NotificationKind string

const (
	KindConnectionError  NotificationKind = "connection-error"
	KindGenericError     NotificationKind = "generic-error"
	KindCapabilityAbsent NotificationKind = "capability-absent"
	KindCaptureError     NotificationKind = "capture-error"
	KindInfo             NotificationKind = "info"
)

// Notification is a transient, user-visible message outside the transcript
type Notification struct {
	Kind   NotificationKind
	Title  string
	Detail string
	At     time.Time
}

// IsError reports whether the notification describes a failure
func (n Notification) IsError() bool {
	switch n.Kind {
	case KindConnectionError, KindGenericError, KindCaptureError:
		return true
	}
	return false
}

// ChannelNotifier queues notifications for a consumer such as the TUI.
// Notifications are dropped when the queue is full.
type ChannelNotifier struct {
	ch chan Notification
}

// NewChannelNotifier creates a notifier with the given queue size
func NewChannelNotifier(size int) *ChannelNotifier {
	if size <= 0 {
		size = 1
	}
	return &ChannelNotifier{ch: make(chan Notification, size)}
}

// Notify enqueues n without blocking
func (c *ChannelNotifier) Notify(n Notification) {
	if n.At.IsZero() {
		n.At = time.Now()
	}
	select {
	case c.ch <- n:
	default:
	}
}

// C returns the receive side of the queue
func (c *ChannelNotifier) C() <-chan Notification {
	return c.ch
}

// LogNotifier writes notifications to a logger
type LogNotifier struct {
	log *slog.Logger
}

// NewLogNotifier creates a notifier that logs through log
func NewLogNotifier(log *slog.Logger) *LogNotifier {
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(n Notification) {
	level := slog.LevelInfo
	if n.IsError() {
		level = slog.LevelWarn
	}
	l.log.Log(context.Background(), level, n.Title, "kind", string(n.Kind), "detail", n.Detail)
}

// NopNotifier discards notifications
type NopNotifier struct{}

func (NopNotifier) Notify(Notification) {}
