package engine

import (
	"context"
)

// Interface for a type that mirrors moderation log entries to an external service
type Notifier interface {
	SendLogEntry(ctx context.Context, communityID string, entry *LogEntry) error
}
