package billing

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

var validStatuses = map[string]bool{StatusUnpaid: true, StatusPaid: true}

type Service struct {
	invoices Repository
	tx       TxRunner
	events   EventAppender
}

func NewService(invoices Repository, tx TxRunner, events EventAppender) *Service {
	return &Service{invoices: invoices, tx: tx, events: events}
}

// Issue creates the single unpaid invoice for a completed ticket. It joins
// the caller's transaction when there is one.
func (s *Service) Issue(ctx context.Context, ticketID, doctorFee, medicineFee int64) (*Invoice, error) {
	if doctorFee < 0 {
		return nil, apperr.Validation("doctor_fee must not be negative")
	}
	if medicineFee < 0 {
		return nil, apperr.Validation("medicine_fee must not be negative")
	}
	inv := NewInvoice(ticketID, doctorFee, medicineFee)
	if err := s.invoices.Create(ctx, inv); err != nil {
		return nil, fmt.Errorf("create invoice: %w", err)
	}
	return inv, nil
}

func (s *Service) Get(ctx context.Context, id int64) (*Invoice, error) {
	return s.invoices.GetByID(ctx, id)
}

func (s *Service) GetByTicket(ctx context.Context, ticketID int64) (*Invoice, error) {
	return s.invoices.GetByTicket(ctx, ticketID)
}

func (s *Service) List(ctx context.Context, status string, limit, offset int) ([]*Invoice, int, error) {
	if status != "" && !validStatuses[status] {
		return nil, 0, apperr.Validation("invalid invoice status: %s", status)
	}
	return s.invoices.List(ctx, status, limit, offset)
}

func (s *Service) MarkPaid(ctx context.Context, id int64) (*Invoice, error) {
	var paid *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		if _, err := s.invoices.GetByID(ctx, id); err != nil {
			return err
		}
		inv, err := s.invoices.MarkPaid(ctx, id)
		if err != nil {
			return fmt.Errorf("mark invoice paid: %w", err)
		}
		if inv == nil {
			return apperr.Validation("invoice %d is already paid", id)
		}
		paid = inv
		return s.emit(ctx, inv, "invoice.paid")
	})
	if err != nil {
		return nil, err
	}
	return paid, nil
}

// SetRoomFee records the room charge of an inpatient stay. Paid invoices are
// frozen.
func (s *Service) SetRoomFee(ctx context.Context, id int64, fee int64) (*Invoice, error) {
	if fee < 0 {
		return nil, apperr.Validation("room_fee must not be negative")
	}
	var updated *Invoice
	err := s.tx.InTx(ctx, func(ctx context.Context) error {
		cur, err := s.invoices.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if cur.Status == StatusPaid {
			return apperr.Validation("invoice %d is already paid", id)
		}
		inv, err := s.invoices.SetRoomFee(ctx, id, fee)
		if err != nil {
			return err
		}
		updated = inv
		return s.emit(ctx, inv, "invoice.room_fee_set")
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

func (s *Service) Revenue(ctx context.Context) (*Revenue, error) {
	return s.invoices.Revenue(ctx)
}

func (s *Service) emit(ctx context.Context, inv *Invoice, eventType string) error {
	e, err := outbox.NewEvent("invoice", strconv.FormatInt(inv.ID, 10), eventType, inv)
	if err != nil {
		return err
	}
	if err := s.events.Append(ctx, e); err != nil {
		return fmt.Errorf("append %s event: %w", eventType, err)
	}
	return nil
}
