package outbox

import (
	"context"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svviitzerland/Medisync/internal/platform/db"
)

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepo(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

type querier interface {
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
}

func (r *repoPG) conn(ctx context.Context) querier {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

func (r *repoPG) Append(ctx context.Context, e *Event) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO outbox_events (aggregate_type, aggregate_id, event_type, payload)
		VALUES ($1, $2, $3, $4)
		RETURNING id, created_at`,
		e.AggregateType, e.AggregateID, e.EventType, e.Payload,
	).Scan(&e.ID, &e.CreatedAt)
}

func (r *repoPG) FetchPending(ctx context.Context, maxRetries, limit int) ([]*Event, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, aggregate_type, aggregate_id, event_type, payload,
		       created_at, processed_at, error_message, retry_count
		FROM outbox_events
		WHERE processed_at IS NULL AND retry_count < $1
		ORDER BY id
		LIMIT $2
		FOR UPDATE SKIP LOCKED`, maxRetries, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []*Event
	for rows.Next() {
		var e Event
		if err := rows.Scan(&e.ID, &e.AggregateType, &e.AggregateID, &e.EventType, &e.Payload,
			&e.CreatedAt, &e.ProcessedAt, &e.ErrorMessage, &e.RetryCount); err != nil {
			return nil, err
		}
		events = append(events, &e)
	}
	return events, rows.Err()
}

func (r *repoPG) MarkProcessed(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE outbox_events SET processed_at = NOW(), error_message = NULL WHERE id = $1`, id)
	return err
}

func (r *repoPG) MarkFailed(ctx context.Context, id int64, reason string) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE outbox_events SET retry_count = retry_count + 1, error_message = $2 WHERE id = $1`, id, reason)
	return err
}

func (r *repoPG) PendingCount(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM outbox_events WHERE processed_at IS NULL`).Scan(&n)
	return n, err
}

func (r *repoPG) Purge(ctx context.Context, olderThan time.Duration, maxRetries int) (int64, error) {
	tag, err := r.conn(ctx).Exec(ctx, `
		DELETE FROM outbox_events
		WHERE (processed_at IS NOT NULL AND processed_at < NOW() - make_interval(secs => $1))
		   OR (processed_at IS NULL AND retry_count >= $2 AND created_at < NOW() - make_interval(secs => $1))`,
		olderThan.Seconds(), maxRetries)
	if err != nil {
		return 0, err
	}
	return tag.RowsAffected(), nil
}
