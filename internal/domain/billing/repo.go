package billing

import "context"

type Repository interface {
	Create(ctx context.Context, inv *Invoice) error
	GetByID(ctx context.Context, id int64) (*Invoice, error)
	GetByTicket(ctx context.Context, ticketID int64) (*Invoice, error)
	List(ctx context.Context, status string, limit, offset int) ([]*Invoice, int, error)
	// MarkPaid flips an unpaid invoice to paid. It returns nil when the
	// invoice was already paid.
	MarkPaid(ctx context.Context, id int64) (*Invoice, error)
	SetRoomFee(ctx context.Context, id int64, fee int64) (*Invoice, error)
	Revenue(ctx context.Context) (*Revenue, error)
}
