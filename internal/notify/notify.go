package notify

import (
	"context"
	"log/slog"

	"pizzawars/internal/game"
)

// Log writes every notification to the structured log. It is the fallback
// sink when no chat transport is configured.
type Log struct {
	log *slog.Logger
}

func NewLog(logger *slog.Logger) *Log {
	return &Log{log: logger}
}

func (l *Log) Notify(ctx context.Context, playerID, message string) {
	l.log.InfoContext(ctx, "player notification", "player_id", playerID, "message", message)
}

// Multi fans a notification out to several sinks.
type Multi []game.Notifier

func (m Multi) Notify(ctx context.Context, playerID, message string) {
	for _, n := range m {
		n.Notify(ctx, playerID, message)
	}
}
