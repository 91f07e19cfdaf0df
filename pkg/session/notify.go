package session

import "context"

// Level is the severity of a [Notifier] message.
type Level string

const (
	LevelInfo    Level = "info"
	LevelWarning Level = "warning"
)

// Notifier displays short messages to the user of the host.
type Notifier interface {
	Notify(ctx context.Context, message string, level Level)
}

// NotifierFunc adapts a function to a [Notifier].
type NotifierFunc func(ctx context.Context, message string, level Level)

// Notify calls f.
func (f NotifierFunc) Notify(ctx context.Context, message string, level Level) {
	f(ctx, message, level)
}

type nopNotifier struct{}

func (nopNotifier) Notify(context.Context, string, Level) {}
