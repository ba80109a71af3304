package billing

import (
	"context"
	"errors"

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

type repoPG struct{ pool *pgxpool.Pool }

func NewRepoPG(pool *pgxpool.Pool) Repository { return &repoPG{pool: pool} }

func (r *repoPG) conn(ctx context.Context) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return r.pool
}

const invCols = `id, ticket_id, doctor_fee, medicine_fee, room_fee, total_amount, status, issued_at, paid_at`

func scanInvoice(row pgx.Row) (*Invoice, error) {
	var inv Invoice
	err := row.Scan(&inv.ID, &inv.TicketID, &inv.DoctorFee, &inv.MedicineFee, &inv.RoomFee,
		&inv.TotalAmount, &inv.Status, &inv.IssuedAt, &inv.PaidAt)
	if err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *repoPG) Create(ctx context.Context, inv *Invoice) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO invoices (ticket_id, doctor_fee, medicine_fee, room_fee, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, total_amount, issued_at`,
		inv.TicketID, inv.DoctorFee, inv.MedicineFee, inv.RoomFee, inv.Status,
	).Scan(&inv.ID, &inv.TotalAmount, &inv.IssuedAt)
}

func (r *repoPG) GetByID(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invCols+` FROM invoices WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice %d not found", id)
	}
	return inv, err
}

func (r *repoPG) GetByTicket(ctx context.Context, ticketID int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, `SELECT `+invCols+` FROM invoices WHERE ticket_id = $1`, ticketID))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no invoice for ticket %d", ticketID)
	}
	return inv, err
}

func (r *repoPG) List(ctx context.Context, status string, limit, offset int) ([]*Invoice, int, error) {
	where := ``
	args := []interface{}{}
	if status != "" {
		where = ` WHERE status = $1`
		args = append(args, status)
	}

	var total int
	if err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM invoices`+where, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	args = append(args, limit, offset)
	query := `SELECT ` + invCols + ` FROM invoices` + where + ` ORDER BY issued_at DESC, id DESC`
	if status != "" {
		query += ` LIMIT $2 OFFSET $3`
	} else {
		query += ` LIMIT $1 OFFSET $2`
	}

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, inv)
	}
	return items, total, rows.Err()
}

func (r *repoPG) MarkPaid(ctx context.Context, id int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, `
		UPDATE invoices SET status = 'paid', paid_at = now()
		WHERE id = $1 AND status = 'unpaid'
		RETURNING `+invCols, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return inv, err
}

func (r *repoPG) SetRoomFee(ctx context.Context, id int64, fee int64) (*Invoice, error) {
	inv, err := scanInvoice(r.conn(ctx).QueryRow(ctx, `
		UPDATE invoices SET room_fee = $2
		WHERE id = $1
		RETURNING `+invCols, id, fee))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("invoice %d not found", id)
	}
	return inv, err
}

func (r *repoPG) Revenue(ctx context.Context) (*Revenue, error) {
	var rev Revenue
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT COUNT(*),
		       COALESCE(SUM(total_amount), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'paid'), 0),
		       COALESCE(SUM(total_amount) FILTER (WHERE status = 'unpaid'), 0)
		FROM invoices`).Scan(&rev.Invoices, &rev.Billed, &rev.Collected, &rev.Outstanding)
	if err != nil {
		return nil, err
	}
	return &rev, nil
}
