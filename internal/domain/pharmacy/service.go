package pharmacy

import (
	"context"
	"fmt"
	"strconv"

	"github.com/svviitzerland/Medisync/internal/platform/apperr"
	"github.com/svviitzerland/Medisync/internal/platform/outbox"
)

type TxRunner interface {
	InTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type EventAppender interface {
	Append(ctx context.Context, e *outbox.Event) error
}

type Service struct {
	medicines     MedicineRepository
	prescriptions PrescriptionRepository
	tx            TxRunner
	events        EventAppender
}

func NewService(meds MedicineRepository, rx PrescriptionRepository, tx TxRunner, events EventAppender) *Service {
	return &Service{medicines: meds, prescriptions: rx, tx: tx, events: events}
}

// -- Catalog --

func (s *Service) ListCatalog(ctx context.Context, inStockOnly bool) ([]*Medicine, error) {
	return s.medicines.List(ctx, inStockOnly)
}

func (s *Service) GetMedicine(ctx context.Context, id int64) (*Medicine, error) {
	return s.medicines.GetByID(ctx, id)
}

func (s *Service) CreateMedicine(ctx context.Context, m *Medicine) error {
	if m.Name == "" {
		return apperr.Validation("name is required")
	}
	if m.Price < 0 {
		return apperr.Validation("price must not be negative")
	}
	if m.Stock < 0 {
		return apperr.Validation("stock must not be negative")
	}
	if m.Unit == "" {
		m.Unit = "tablet"
	}
	return s.medicines.Create(ctx, m)
}

// Restock adds delta units (negative to write off) to a medicine's stock.
func (s *Service) Restock(ctx context.Context, id int64, delta int) (*Medicine, error) {
	if delta == 0 {
		return nil, apperr.Validation("delta must not be zero")
	}
	if _, err := s.medicines.GetByID(ctx, id); err != nil {
		return nil, err
	}
	m, err := s.medicines.AdjustStock(ctx, id, delta)
	if err != nil {
		return nil, fmt.Errorf("adjust stock: %w", err)
	}
	if m == nil {
		return nil, apperr.Validation("stock of medicine %d cannot go below zero", id)
	}
	return m, nil
}

// Prices returns the unit price of every catalogued id. Unknown ids are left
// out so callers can treat them as free.
func (s *Service) Prices(ctx context.Context, ids []int64) (map[int64]int64, error) {
	meds, err := s.medicines.ByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("look up medicine prices: %w", err)
	}
	prices := make(map[int64]int64, len(meds))
	for id, m := range meds {
		prices[id] = m.Price
	}
	return prices, nil
}

// -- Prescriptions --

func ValidateLines(lines []Line) error {
	for i, l := range lines {
		if l.MedicineID <= 0 {
			return apperr.Validation("prescriptions[%d]: medicine_id is required", i)
		}
		if l.Quantity <= 0 {
			return apperr.Validation("prescriptions[%d]: quantity must be positive", i)
		}
	}
	return nil
}

// Prescribe writes one pending prescription per line and returns how many
// were written. It joins the caller's transaction when there is one.
func (s *Service) Prescribe(ctx context.Context, ticketID int64, lines []Line) (int, error) {
	if err := ValidateLines(lines); err != nil {
		return 0, err
	}
	for _, l := range lines {
		p := &Prescription{
			TicketID:   ticketID,
			MedicineID: l.MedicineID,
			Quantity:   l.Quantity,
			Status:     StatusPending,
		}
		if l.Notes != "" {
			notes := l.Notes
			p.Notes = &notes
		}
		if err := s.prescriptions.Create(ctx, p); err != nil {
			return 0, fmt.Errorf("create prescription: %w", err)
		}
	}
	return len(lines), nil
}

func (s *Service) ListByTicket(ctx context.Context, ticketID int64) ([]*Prescription, error) {
	return s.prescriptions.ListByTicket(ctx, ticketID)
}

func (s *Service) Queue(ctx context.Context) ([]Order, error) {
	items, err := s.prescriptions.ListPending(ctx)
	if err != nil {
		return nil, err
	}
	return GroupByTicket(items), nil
}

// Dispense hands out every pending prescription of a ticket and takes the
// quantities off the shelf. Either all of it happens or none.
func (s *Service) Dispense(ctx context.Context, ticketID int64) ([]*Prescription, error) {
	var dispensed []*Prescription
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		items, err := s.prescriptions.MarkDispensed(ctx, ticketID)
		if err != nil {
			return fmt.Errorf("mark prescriptions dispensed: %w", err)
		}
		if len(items) == 0 {
			return apperr.Validation("ticket %d has no pending prescriptions", ticketID)
		}

		ids := make([]int64, 0, len(items))
		for _, p := range items {
			ids = append(ids, p.MedicineID)
		}
		catalog, err := s.medicines.ByIDs(ctx, ids)
		if err != nil {
			return fmt.Errorf("look up medicines: %w", err)
		}

		for _, p := range items {
			if _, known := catalog[p.MedicineID]; !known {
				continue
			}
			m, err := s.medicines.AdjustStock(ctx, p.MedicineID, -p.Quantity)
			if err != nil {
				return fmt.Errorf("take stock: %w", err)
			}
			if m == nil {
				return apperr.Validation("insufficient stock for medicine %d", p.MedicineID)
			}
		}

		e, err := outbox.NewEvent("ticket", strconv.FormatInt(ticketID, 10), "ticket.dispensed", map[string]interface{}{
			"ticket_id": ticketID,
			"items":     items,
		})
		if err != nil {
			return err
		}
		if err := s.events.Append(ctx, e); err != nil {
			return fmt.Errorf("append dispensed event: %w", err)
		}
		dispensed = items
		return nil
	})
	if err != nil {
		return nil, err
	}
	return dispensed, nil
}
