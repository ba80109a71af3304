package ticket

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/svviitzerland/Medisync/internal/domain/billing"
	"github.com/svviitzerland/Medisync/internal/domain/pharmacy"
	"github.com/svviitzerland/Medisync/internal/domain/resource"
	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/outbox"
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventAppender interface {
	Append(ctx context.Context, e *outbox.Event) error
}

// Resources is the slice of the resource pool used during admission and
// checkout.
type Resources interface {
	AssignRoom(ctx context.Context) (*resource.Room, error)
	AssignNurseTeam(ctx context.Context) (int, error)
	ReleaseRoom(ctx context.Context, id int64) error
}

type Pharmacy interface {
	Prices(ctx context.Context, ids []int64) (map[int64]int64, error)
	Prescribe(ctx context.Context, ticketID int64, lines []pharmacy.Line) (int, error)
}

type Billing interface {
	Issue(ctx context.Context, ticketID, doctorFee, medicineFee int64) (*billing.Invoice, error)
}

type Service struct {
	repo      Repository
	resources Resources
	pharmacy  Pharmacy
	billing   Billing
	tx        TxRunner
	events    EventAppender
}

func NewService(repo Repository, resources Resources, pharm Pharmacy, bill Billing, tx TxRunner, events EventAppender) *Service {
	return &Service{repo: repo, resources: resources, pharmacy: pharm, billing: bill, tx: tx, events: events}
}

// Create admits a patient. Inpatient tickets claim a room and a nurse team in
// the same transaction as the insert, so a failed claim leaves nothing behind.
func (s *Service) Create(ctx context.Context, req CreateRequest) (*CreateResult, error) {
	if req.PatientID == uuid.Nil {
		return nil, apperr.Validation("patient_id is required")
	}
	req.FONote = strings.TrimSpace(req.FONote)
	if req.FONote == "" {
		return nil, apperr.Validation("fo_note is required")
	}
	if req.Severity != nil && *req.Severity == "" {
		req.Severity = nil
	}
	if req.Severity != nil && !ValidSeverity(*req.Severity) {
		return nil, apperr.Validation("severity_level must be one of low, medium, high")
	}

	t := &Ticket{
		PatientID:         req.PatientID,
		FONote:            req.FONote,
		Status:            StatusPending,
		Severity:          req.Severity,
		DoctorID:          req.DoctorID,
		RequiresInpatient: req.RequiresInpatient,
		AIReasoning:       req.AIReasoning,
	}
	if req.DoctorID != nil {
		t.Status = StatusInProgress
	}

	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if req.RequiresInpatient {
			room, err := s.resources.AssignRoom(ctx)
			if err != nil {
				return err
			}
			team, err := s.resources.AssignNurseTeam(ctx)
			if err != nil {
				return err
			}
			t.RoomID = &room.ID
			t.NurseTeamID = &team
		}
		if err := s.repo.Create(ctx, t); err != nil {
			return fmt.Errorf("create ticket: %w", err)
		}
		return s.emit(ctx, t.ID, "ticket.created", t)
	})
	if err != nil {
		return nil, err
	}
	return &CreateResult{Ticket: t, AssignedNurseTeam: t.NurseTeamID}, nil
}

// AssignDoctor sets the examining doctor and moves the ticket to in_progress.
// Completed tickets are terminal.
func (s *Service) AssignDoctor(ctx context.Context, id int64, doctorID uuid.UUID) (*Ticket, error) {
	if doctorID == uuid.Nil {
		return nil, apperr.Validation("doctor_id is required")
	}
	var updated *Ticket
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == StatusCompleted {
			return apperr.Validation("ticket %d is already completed", id)
		}
		t, err := s.repo.AssignDoctor(ctx, id, doctorID, StatusInProgress)
		if err != nil {
			return fmt.Errorf("assign doctor: %w", err)
		}
		updated = t
		return s.emit(ctx, t.ID, "ticket.doctor_assigned", t)
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

type completedEvent struct {
	TicketID          int64     `json:"ticket_id"`
	PatientID         uuid.UUID `json:"patient_id"`
	NurseTeamID       *int      `json:"nurse_team_id,omitempty"`
	RoomID            *int64    `json:"room_id,omitempty"`
	PrescriptionCount int       `json:"prescription_count"`
	InvoiceID         int64     `json:"invoice_id"`
	TotalAmount       int64     `json:"total_amount"`
}

// CompleteCheckup closes the ticket: it stores the doctor note, frees the
// room, writes the prescriptions and issues the invoice, all or nothing.
func (s *Service) CompleteCheckup(ctx context.Context, id int64, req CheckupRequest) (*CheckupResult, error) {
	if req.DoctorFee < 0 {
		return nil, apperr.Validation("doctor_fee must not be negative")
	}
	if err := pharmacy.ValidateLines(req.Prescriptions); err != nil {
		return nil, err
	}

	res := &CheckupResult{}
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		cur, err := s.repo.GetForUpdate(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == StatusCompleted {
			return apperr.Validation("ticket %d is already completed", id)
		}
		doctorID := cur.DoctorID
		if doctorID == nil {
			doctorID = req.DoctorID
		}
		if doctorID == nil {
			return apperr.Validation("ticket %d has no doctor assigned", id)
		}

		t, err := s.repo.Complete(ctx, id, *doctorID, req.DoctorNote)
		if err != nil {
			return fmt.Errorf("complete ticket: %w", err)
		}
		res.Ticket = t

		if cur.RoomID != nil {
			if err := s.resources.ReleaseRoom(ctx, *cur.RoomID); err != nil {
				return err
			}
		}

		ids := make([]int64, 0, len(req.Prescriptions))
		lines := make([]billing.Line, 0, len(req.Prescriptions))
		for _, l := range req.Prescriptions {
			ids = append(ids, l.MedicineID)
			lines = append(lines, billing.Line{MedicineID: l.MedicineID, Quantity: l.Quantity})
		}
		prices, err := s.pharmacy.Prices(ctx, ids)
		if err != nil {
			return fmt.Errorf("look up prices: %w", err)
		}
		if res.PrescriptionCount, err = s.pharmacy.Prescribe(ctx, id, req.Prescriptions); err != nil {
			return err
		}

		inv, err := s.billing.Issue(ctx, id, req.DoctorFee, billing.MedicineFee(lines, prices))
		if err != nil {
			return err
		}
		res.Invoice = inv
		res.InvoiceID = inv.ID

		return s.emit(ctx, id, "ticket.completed", completedEvent{
			TicketID:          id,
			PatientID:         t.PatientID,
			NurseTeamID:       cur.NurseTeamID,
			RoomID:            cur.RoomID,
			PrescriptionCount: res.PrescriptionCount,
			InvoiceID:         inv.ID,
			TotalAmount:       inv.TotalAmount,
		})
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Ticket, error) {
	return s.repo.GetByID(ctx, id)
}

func (s *Service) List(ctx context.Context, f Filter) ([]*Ticket, int, error) {
	if f.Status != "" {
		canon, ok := NormalizeStatus(f.Status)
		if !ok {
			return nil, 0, apperr.Validation("invalid ticket status: %s", f.Status)
		}
		f.Status = canon
	}
	return s.repo.List(ctx, f)
}

// History returns the patient's most recent visits, newest first.
func (s *Service) History(ctx context.Context, patientID uuid.UUID, limit int) ([]*HistoryEntry, error) {
	if limit <= 0 {
		limit = 10
	}
	return s.repo.History(ctx, patientID, limit)
}

func (s *Service) ActiveForPatient(ctx context.Context, patientID uuid.UUID) (*Ticket, error) {
	return s.repo.ActiveForPatient(ctx, patientID)
}

// WardPatients lists the active inpatient tickets a nurse team looks after.
func (s *Service) WardPatients(ctx context.Context, teamID int, limit, offset int) ([]*Ticket, int, error) {
	if teamID <= 0 {
		return nil, 0, apperr.Validation("team_id must be positive")
	}
	return s.repo.List(ctx, Filter{Status: StatusInProgress, NurseTeamID: teamID, Limit: limit, Offset: offset})
}

func (s *Service) Count(ctx context.Context) (int, error) {
	return s.repo.Count(ctx)
}

func (s *Service) emit(ctx context.Context, id int64, eventType string, payload interface{}) error {
	e, err := outbox.NewEvent("ticket", strconv.FormatInt(id, 10), eventType, payload)
	if err != nil {
		return err
	}
	if err := s.events.Append(ctx, e); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}
