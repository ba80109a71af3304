package ticket

import (
	"context"

	"github.com/google/uuid"
)

type Repository interface {
	Create(ctx context.Context, t *Ticket) error
	GetByID(ctx context.Context, id int64) (*Ticket, error)
	// GetForUpdate locks the row until the surrounding transaction ends.
	GetForUpdate(ctx context.Context, id int64) (*Ticket, error)
	AssignDoctor(ctx context.Context, id int64, doctorID uuid.UUID, status string) (*Ticket, error)
	// Complete stores the doctor note, marks the ticket completed and clears
	// its room and nurse team.
	Complete(ctx context.Context, id int64, doctorID uuid.UUID, doctorNote string) (*Ticket, error)
	List(ctx context.Context, f Filter) ([]*Ticket, int, error)
	History(ctx context.Context, patientID uuid.UUID, limit int) ([]*HistoryEntry, error)
	// ActiveForPatient returns the patient's latest in-progress ticket, or
	// nil when there is none.
	ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Ticket, error)
	Count(ctx context.Context) (int, error)
}
