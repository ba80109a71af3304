package resource

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/db"
)

// teamLockKey is the pg_advisory_xact_lock key guarding nurse-team selection.
const teamLockKey = 724_113_002

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const roomCols = `id, name, type, status`

func scanRoom(row pgx.Row) (*Room, error) {
	var rm Room
	if err := row.Scan(&rm.ID, &rm.Name, &rm.Type, &rm.Status); err != nil {
		return nil, err
	}
	return &rm, nil
}

func (r *repoPG) ClaimAvailableRoom(ctx context.Context) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, `
		UPDATE rooms SET status = 'occupied'
		WHERE id = (
			SELECT id FROM rooms
			WHERE status = 'available'
			ORDER BY id
			LIMIT 1
			FOR UPDATE SKIP LOCKED
		)
		RETURNING `+roomCols))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return rm, err
}

func (r *repoPG) ReleaseRoom(ctx context.Context, id int64) error {
	_, err := r.conn(ctx).Exec(ctx,
		`UPDATE rooms SET status = 'available' WHERE id = $1 AND status <> 'available'`, id)
	return err
}

func (r *repoPG) GetRoom(ctx context.Context, id int64) (*Room, error) {
	rm, err := scanRoom(r.conn(ctx).QueryRow(ctx, `SELECT `+roomCols+` FROM rooms WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("room %d not found", id)
	}
	return rm, err
}

func (r *repoPG) ListRooms(ctx context.Context, status string) ([]*Room, error) {
	query := `SELECT ` + roomCols + ` FROM rooms`
	var args []interface{}
	if status != "" {
		query += ` WHERE status = $1`
		args = append(args, status)
	}
	query += ` ORDER BY id`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rooms []*Room
	for rows.Next() {
		rm, err := scanRoom(rows)
		if err != nil {
			return nil, err
		}
		rooms = append(rooms, rm)
	}
	return rooms, rows.Err()
}

func (r *repoPG) CreateRoom(ctx context.Context, rm *Room) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO rooms (name, type, status) VALUES ($1, $2, $3)
		RETURNING id`, rm.Name, rm.Type, rm.Status).Scan(&rm.ID)
}

func (r *repoPG) TeamIDs(ctx context.Context) ([]int, error) {
	return r.ints(ctx, `SELECT DISTINCT team_id FROM nurses ORDER BY team_id`)
}

func (r *repoPG) ActiveTeamRefs(ctx context.Context) ([]int, error) {
	return r.ints(ctx, `
		SELECT nurse_team_id FROM tickets
		WHERE nurse_team_id IS NOT NULL
		  AND status IN ('in_progress', 'inpatient', 'operation')`)
}

func (r *repoPG) LockTeams(ctx context.Context) error {
	_, err := r.conn(ctx).Exec(ctx, `SELECT pg_advisory_xact_lock($1)`, teamLockKey)
	return err
}

func (r *repoPG) ints(ctx context.Context, query string) ([]int, error) {
	rows, err := r.conn(ctx).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []int
	for rows.Next() {
		var v int
		if err := rows.Scan(&v); err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, rows.Err()
}
