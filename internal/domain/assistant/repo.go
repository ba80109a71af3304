package assistant

import (
	"context"

	"github.com/google/uuid"
)

type ChatRepository interface {
	// Recent returns the last limit messages of a ticket, oldest first.
	Recent(ctx context.Context, ticketID int64, limit int) ([]*ChatMessage, error)
	// AppendExchange stores the patient message and the reply, in that order.
	AppendExchange(ctx context.Context, ticketID int64, patientID uuid.UUID, message, reply string) error
}
