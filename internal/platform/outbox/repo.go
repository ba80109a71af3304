package outbox

import (
	"context"
	"time"
)

type Repository interface {
	// Append inserts the event using the transaction on ctx when present.
	Append(ctx context.Context, e *Event) error
	// FetchPending locks up to limit unprocessed events that have not
	// exhausted their retries. Call it inside a transaction.
	FetchPending(ctx context.Context, maxRetries, limit int) ([]*Event, error)
	MarkProcessed(ctx context.Context, id int64) error
	MarkFailed(ctx context.Context, id int64, reason string) error
	PendingCount(ctx context.Context) (int, error)
	// Purge deletes delivered events and dead letters (events that used up
	// maxRetries) created or processed more than olderThan ago.
	Purge(ctx context.Context, olderThan time.Duration, maxRetries int) (int64, error)
}
