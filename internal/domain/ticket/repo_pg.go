package ticket

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/db"
)

type queryable interface {
	Query(ctx context.Context, sql string, args ...interface{}) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...interface{}) pgx.Row
	Exec(ctx context.Context, sql string, args ...interface{}) (pgconn.CommandTag, error)
}

type repoPG struct {
	pool *pgxpool.Pool
}

func NewRepoPG(pool *pgxpool.Pool) Repository {
	return &repoPG{pool: pool}
}

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const ticketCols = `id, patient_id, fo_note, doctor_note, status, severity_level, doctor_id,
	nurse_team_id, room_id, requires_inpatient, ai_reasoning, created_at, updated_at`

func scanTicket(row pgx.Row) (*Ticket, error) {
	var t Ticket
	err := row.Scan(&t.ID, &t.PatientID, &t.FONote, &t.DoctorNote, &t.Status, &t.Severity, &t.DoctorID,
		&t.NurseTeamID, &t.RoomID, &t.RequiresInpatient, &t.AIReasoning, &t.CreatedAt, &t.UpdatedAt)
	if err != nil {
		return nil, err
	}
	if canon, ok := NormalizeStatus(t.Status); ok {
		t.Status = canon
	}
	return &t, nil
}

func (r *repoPG) one(ctx context.Context, id int64, query string, args ...interface{}) (*Ticket, error) {
	t, err := scanTicket(r.conn(ctx).QueryRow(ctx, query, args...))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("ticket %d not found", id)
	}
	return t, err
}

// missingRef turns a foreign key violation on patient or doctor into NotFound.
func missingRef(err error) error {
	var pgErr *pgconn.PgError
	if !errors.As(err, &pgErr) || pgErr.Code != "23503" {
		return err
	}
	switch {
	case strings.Contains(pgErr.ConstraintName, "patient"):
		return apperr.NotFound("patient not found")
	case strings.Contains(pgErr.ConstraintName, "doctor"):
		return apperr.NotFound("doctor not found")
	}
	return err
}

func (r *repoPG) Create(ctx context.Context, t *Ticket) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO tickets (patient_id, fo_note, status, severity_level, doctor_id,
			nurse_team_id, room_id, requires_inpatient, ai_reasoning)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
		RETURNING id, created_at, updated_at`,
		t.PatientID, t.FONote, t.Status, t.Severity, t.DoctorID,
		t.NurseTeamID, t.RoomID, t.RequiresInpatient, t.AIReasoning,
	).Scan(&t.ID, &t.CreatedAt, &t.UpdatedAt)
	return missingRef(err)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Ticket, error) {
	return r.one(ctx, id, `SELECT `+ticketCols+` FROM tickets WHERE id = $1`, id)
}

func (r *repoPG) GetForUpdate(ctx context.Context, id int64) (*Ticket, error) {
	return r.one(ctx, id, `SELECT `+ticketCols+` FROM tickets WHERE id = $1 FOR UPDATE`, id)
}

func (r *repoPG) AssignDoctor(ctx context.Context, id int64, doctorID uuid.UUID, status string) (*Ticket, error) {
	t, err := r.one(ctx, id, `
		UPDATE tickets SET doctor_id = $2, status = $3, updated_at = now()
		WHERE id = $1
		RETURNING `+ticketCols, id, doctorID, status)
	return t, missingRef(err)
}

func (r *repoPG) Complete(ctx context.Context, id int64, doctorID uuid.UUID, doctorNote string) (*Ticket, error) {
	t, err := r.one(ctx, id, `
		UPDATE tickets
		SET doctor_note = $2, doctor_id = $3, status = 'completed',
			room_id = NULL, nurse_team_id = NULL, updated_at = now()
		WHERE id = $1
		RETURNING `+ticketCols, id, doctorNote, doctorID)
	return t, missingRef(err)
}

func (r *repoPG) List(ctx context.Context, f Filter) ([]*Ticket, int, error) {
	var (
		where []string
		args  []interface{}
	)
	add := func(cond string, v interface{}) {
		args = append(args, v)
		where = append(where, fmt.Sprintf(cond, len(args)))
	}
	if f.Status != "" {
		// Legacy rows may still carry an alias of the requested state.
		statuses := []string{f.Status}
		for alias, canon := range statusAliases {
			if canon == f.Status {
				statuses = append(statuses, alias)
			}
		}
		add("status = ANY($%d)", statuses)
	}
	if f.PatientID != nil {
		add("patient_id = $%d", *f.PatientID)
	}
	if f.DoctorID != nil {
		add("doctor_id = $%d", *f.DoctorID)
	}
	if f.NurseTeamID > 0 {
		add("nurse_team_id = $%d", f.NurseTeamID)
	}
	clause := ""
	if len(where) > 0 {
		clause = " WHERE " + strings.Join(where, " AND ")
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM tickets`+clause, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, f.Limit, f.Offset)
	rows, err := r.conn(ctx).Query(ctx, fmt.Sprintf(`SELECT `+ticketCols+` FROM tickets%s
		ORDER BY created_at DESC, id DESC LIMIT $%d OFFSET $%d`, clause, len(args)-1, len(args)), args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Ticket
	for rows.Next() {
		t, err := scanTicket(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, t)
	}
	return items, total, rows.Err()
}

func (r *repoPG) History(ctx context.Context, patientID uuid.UUID, limit int) ([]*HistoryEntry, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT id, fo_note, doctor_note, status, severity_level, created_at
		FROM tickets
		WHERE patient_id = $1
		ORDER BY created_at DESC, id DESC
		LIMIT $2`, patientID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*HistoryEntry
	for rows.Next() {
		var h HistoryEntry
		if err := rows.Scan(&h.TicketID, &h.FONote, &h.DoctorNote, &h.Status, &h.Severity, &h.CreatedAt); err != nil {
			return nil, err
		}
		if canon, ok := NormalizeStatus(h.Status); ok {
			h.Status = canon
		}
		out = append(out, &h)
	}
	return out, rows.Err()
}

func (r *repoPG) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Ticket, error) {
	t, err := scanTicket(r.conn(ctx).QueryRow(ctx, `
		SELECT `+ticketCols+` FROM tickets
		WHERE patient_id = $1 AND status IN ('in_progress', 'assigned_doctor', 'inpatient', 'operation')
		ORDER BY created_at DESC, id DESC
		LIMIT 1`, patientID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return t, err
}

func (r *repoPG) Count(ctx context.Context) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM tickets`).Scan(&n)
	return n, err
}
