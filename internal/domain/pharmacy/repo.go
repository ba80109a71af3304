package pharmacy

import "context"

type MedicineRepository interface {
	List(ctx context.Context, inStockOnly bool) ([]*Medicine, error)
	GetByID(ctx context.Context, id int64) (*Medicine, error)
	// ByIDs returns the catalog entries for ids. Unknown ids are absent.
	ByIDs(ctx context.Context, ids []int64) (map[int64]*Medicine, error)
	Create(ctx context.Context, m *Medicine) error
	// AdjustStock adds delta to the stock unless the result would be
	// negative, in which case it returns nil.
	AdjustStock(ctx context.Context, id int64, delta int) (*Medicine, error)
}

type PrescriptionRepository interface {
	Create(ctx context.Context, p *Prescription) error
	ListByTicket(ctx context.Context, ticketID int64) ([]*Prescription, error)
	ListPending(ctx context.Context) ([]*Prescription, error)
	// MarkDispensed flips every pending prescription of a ticket and returns
	// the rows it changed.
	MarkDispensed(ctx context.Context, ticketID int64) ([]*Prescription, error)
}
