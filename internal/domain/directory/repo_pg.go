package directory

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/db"
)

const uniqueViolation = "23505"

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

// =========== Profile Repository ===========

type profileRepoPG struct{ pool *pgxpool.Pool }

func NewProfileRepoPG(pool *pgxpool.Pool) ProfileRepository { return &profileRepoPG{pool: pool} }

func (r *profileRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

const profileCols = `id, role, name, nik, age, phone, email, created_at`

func scanProfile(row pgx.Row) (*Profile, error) {
	var p Profile
	if err := row.Scan(&p.ID, &p.Role, &p.Name, &p.NIK, &p.Age, &p.Phone, &p.Email, &p.CreatedAt); err != nil {
		return nil, err
	}
	return &p, nil
}

func (r *profileRepoPG) Create(ctx context.Context, p *Profile) error {
	err := r.conn(ctx).QueryRow(ctx, `
		INSERT INTO profiles (role, name, nik, age, phone, email)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at`,
		p.Role, p.Name, p.NIK, p.Age, p.Phone, p.Email,
	).Scan(&p.ID, &p.CreatedAt)

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == uniqueViolation {
		return apperr.Validation("a profile with this NIK already exists")
	}
	return err
}

func (r *profileRepoPG) GetByID(ctx context.Context, id uuid.UUID) (*Profile, error) {
	p, err := scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("profile %s not found", id)
	}
	return p, err
}

func (r *profileRepoPG) GetByNIK(ctx context.Context, nik string) (*Profile, error) {
	p, err := scanProfile(r.conn(ctx).QueryRow(ctx, `SELECT `+profileCols+` FROM profiles WHERE nik = $1`, nik))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("no patient with NIK %s", nik)
	}
	return p, err
}

func (r *profileRepoPG) ListByRole(ctx context.Context, role string, limit, offset int) ([]*Profile, int, error) {
	total, err := r.CountByRole(ctx, role)
	if err != nil {
		return nil, 0, err
	}

	rows, err := r.conn(ctx).Query(ctx, `
		SELECT `+profileCols+` FROM profiles
		WHERE role = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`, role, limit, offset)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	var items []*Profile
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, 0, err
		}
		items = append(items, p)
	}
	return items, total, rows.Err()
}

func (r *profileRepoPG) CountByRole(ctx context.Context, role string) (int, error) {
	var n int
	err := r.conn(ctx).QueryRow(ctx, `SELECT COUNT(*) FROM profiles WHERE role = $1`, role).Scan(&n)
	return n, err
}

// =========== Staff Repository ===========

type staffRepoPG struct{ pool *pgxpool.Pool }

func NewStaffRepoPG(pool *pgxpool.Pool) StaffRepository { return &staffRepoPG{pool: pool} }

func (r *staffRepoPG) conn(ctx context.Context) queryable { return connFor(ctx, r.pool) }

func (r *staffRepoPG) CreateDoctor(ctx context.Context, d *Doctor) error {
	_, err := r.conn(ctx).Exec(ctx,
		`INSERT INTO doctors (id, specialization) VALUES ($1, $2)`, d.ID, d.Specialization)
	return err
}

func (r *staffRepoPG) GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error) {
	var d Doctor
	err := r.conn(ctx).QueryRow(ctx, `
		SELECT d.id, p.name, d.specialization
		FROM doctors d JOIN profiles p ON p.id = d.id
		WHERE d.id = $1`, id).Scan(&d.ID, &d.Name, &d.Specialization)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, apperr.NotFound("doctor %s not found", id)
	}
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func (r *staffRepoPG) ListDoctors(ctx context.Context) ([]*Doctor, error) {
	rows, err := r.conn(ctx).Query(ctx, `
		SELECT d.id, p.name, d.specialization
		FROM doctors d JOIN profiles p ON p.id = d.id
		ORDER BY d.specialization, p.name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Doctor
	for rows.Next() {
		var d Doctor
		if err := rows.Scan(&d.ID, &d.Name, &d.Specialization); err != nil {
			return nil, err
		}
		out = append(out, &d)
	}
	return out, rows.Err()
}

func (r *staffRepoPG) CreateNurse(ctx context.Context, n *Nurse) error {
	_, err := r.conn(ctx).Exec(ctx, `INSERT INTO nurses (id, team_id) VALUES ($1, $2)`, n.ID, n.TeamID)
	return err
}

func (r *staffRepoPG) ListNurses(ctx context.Context, teamID int) ([]*Nurse, error) {
	query := `
		SELECT n.id, p.name, n.team_id
		FROM nurses n JOIN profiles p ON p.id = n.id`
	var args []interface{}
	if teamID > 0 {
		query += ` WHERE n.team_id = $1`
		args = append(args, teamID)
	}
	query += ` ORDER BY n.team_id, p.name`

	rows, err := r.conn(ctx).Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*Nurse
	for rows.Next() {
		var n Nurse
		if err := rows.Scan(&n.ID, &n.Name, &n.TeamID); err != nil {
			return nil, err
		}
		out = append(out, &n)
	}
	return out, rows.Err()
}
