package pharmacy

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

func connFor(ctx context.Context, pool *pgxpool.Pool) queryable {
	if tx := db.TxFromContext(ctx); tx != nil {
		return tx
	}
	return pool
}

// =========== Medicine Repository ===========

type medicineRepoPG struct{ pool *pgxpool.Pool }

func NewMedicineRepoPG(pool *pgxpool.Pool) MedicineRepository { return &medicineRepoPG{pool: pool} }

func (r *medicineRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const medCols = `id, name, unit, price, stock`

func scanMedicine(row pgx.Row) (*Medicine, error) {
	var m Medicine
	if err := row.Scan(&m.ID, &m.Name, &m.Unit, &m.Price, &m.Stock); err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *medicineRepoPG) List(ctx context.Context, inStockOnly bool) ([]*Medicine, error) {
	query := `SELECT ` + medCols + ` FROM catalog_medicines`
	if inStockOnly {
		query += ` WHERE stock > 0`
	}
	query += ` ORDER BY name`
	return r.collect(ctx, query)
}

func (r *medicineRepoPG) GetByID(ctx context.Context, id int64) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `SELECT `+medCols+` FROM catalog_medicines WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("medicine %d not found", id)
	}
	return m, err
}

func (r *medicineRepoPG) ByIDs(ctx context.Context, ids []int64) (map[int64]*Medicine, error) {
	out := make(map[int64]*Medicine, len(ids))
	if len(ids) == 0 {
		return out, nil
	}
	items, err := r.collect(ctx, `SELECT `+medCols+` FROM catalog_medicines WHERE id = ANY($1)`, ids)
	if err != nil {
		return nil, err
	}
	for _, m := range items {
		out[m.ID] = m
	}
	return out, nil
}

func (r *medicineRepoPG) Create(ctx context.Context, m *Medicine) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO catalog_medicines (name, unit, price, stock)
		VALUES ($1, $2, $3, $4)
		RETURNING id`, m.Name, m.Unit, m.Price, m.Stock).Scan(&m.ID)
}

func (r *medicineRepoPG) AdjustStock(ctx context.Context, id int64, delta int) (*Medicine, error) {
	m, err := scanMedicine(r.conn(ctx).QueryRow(ctx, `
		UPDATE catalog_medicines SET stock = stock + $2
		WHERE id = $1 AND stock + $2 >= 0
		RETURNING `+medCols, id, delta))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	return m, err
}

func (r *medicineRepoPG) collect(ctx context.Context, query string, args ...interface{}) ([]*Medicine, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Medicine
	for rows.Next() {
		m, err := scanMedicine(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, m)
	}
	return items, rows.Err()
}

// =========== Prescription Repository ===========

type prescriptionRepoPG struct{ pool *pgxpool.Pool }

func NewPrescriptionRepoPG(pool *pgxpool.Pool) PrescriptionRepository {
	return &prescriptionRepoPG{pool: pool}
}

func (r *prescriptionRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const rxCols = `p.id, p.ticket_id, p.medicine_id, m.name, p.quantity, p.notes, p.status, p.created_at`

const rxFrom = ` FROM prescriptions p LEFT JOIN catalog_medicines m ON m.id = p.medicine_id`

func scanPrescription(row pgx.Row) (*Prescription, error) {
	var p Prescription
	err := row.Scan(&p.ID, &p.TicketID, &p.MedicineID, &p.MedicineName, &p.Quantity, &p.Notes, &p.Status, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *prescriptionRepoPG) Create(ctx context.Context, p *Prescription) error {
	return r.conn(ctx).QueryRow(ctx, `
		INSERT INTO prescriptions (ticket_id, medicine_id, quantity, notes, status)
		VALUES ($1, $2, $3, $4, $5)
		RETURNING id, created_at`,
		p.TicketID, p.MedicineID, p.Quantity, p.Notes, p.Status,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *prescriptionRepoPG) ListByTicket(ctx context.Context, ticketID int64) ([]*Prescription, error) {
	return r.collect(ctx, `SELECT `+rxCols+rxFrom+` WHERE p.ticket_id = $1 ORDER BY p.id`, ticketID)
}

func (r *prescriptionRepoPG) ListPending(ctx context.Context) ([]*Prescription, error) {
	return r.collect(ctx, `SELECT `+rxCols+rxFrom+` WHERE p.status = 'pending' ORDER BY p.ticket_id, p.id`)
}

func (r *prescriptionRepoPG) MarkDispensed(ctx context.Context, ticketID int64) ([]*Prescription, error) {
	return r.collect(ctx, `
		WITH updated AS (
			UPDATE prescriptions SET status = 'dispensed'
			WHERE ticket_id = $1 AND status = 'pending'
			RETURNING *
		)
		SELECT `+rxCols+` FROM updated p
		LEFT JOIN catalog_medicines m ON m.id = p.medicine_id
		ORDER BY p.id`, ticketID)
}

func (r *prescriptionRepoPG) collect(ctx context.Context, query string, args ...interface{}) ([]*Prescription, error) {
	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []*Prescription
	for rows.Next() {
		p, err := scanPrescription(rows)
		if err != nil {
			return nil, err
		}
		items = append(items, p)
	}
	return items, rows.Err()
}
