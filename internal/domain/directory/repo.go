package directory

import (
	"context"

	"github.com/google/uuid"
)

type ProfileRepository interface {
	Create(ctx context.Context, p *Profile) error
	GetByID(ctx context.Context, id uuid.UUID) (*Profile, error)
	GetByNIK(ctx context.Context, nik string) (*Profile, error)
	ListByRole(ctx context.Context, role string, limit, offset int) ([]*Profile, int, error)
	CountByRole(ctx context.Context, role string) (int, error)
}

type StaffRepository interface {
	CreateDoctor(ctx context.Context, d *Doctor) error
	GetDoctor(ctx context.Context, id uuid.UUID) (*Doctor, error)
	ListDoctors(ctx context.Context) ([]*Doctor, error)
	CreateNurse(ctx context.Context, n *Nurse) error
	// ListNurses returns every nurse, or only one team's when teamID > 0.
	ListNurses(ctx context.Context, teamID int) ([]*Nurse, error)
}
