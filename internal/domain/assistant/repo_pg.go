package assistant

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
)

type chatRepoPG struct {
	pool *pgxpool.Pool
}

func NewChatRepoPG(pool *pgxpool.Pool) ChatRepository {
	return &chatRepoPG{pool: pool}
}

func (r *chatRepoPG) Recent(ctx context.Context, ticketID int64, limit int) ([]*ChatMessage, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, ticket_id, patient_id, sender, message, created_at FROM (
			SELECT id, ticket_id, patient_id, sender, message, created_at
			FROM chat_messages
			WHERE ticket_id = $1
			ORDER BY id DESC
			LIMIT $2
		) recent
		ORDER BY id`, ticketID, limit)
	if err != nil {
		return nil, fmt.Errorf("query chat messages: %w", err)
	}
	defer rows.Close()

	var out []*ChatMessage
	for rows.Next() {
		var m ChatMessage
		if err := rows.Scan(&m.ID, &m.TicketID, &m.PatientID, &m.Sender, &m.Message, &m.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, &m)
	}
	return out, rows.Err()
}

func (r *chatRepoPG) AppendExchange(ctx context.Context, ticketID int64, patientID uuid.UUID, message, reply string) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO chat_messages (ticket_id, patient_id, sender, message)
		VALUES ($1, $2, 'patient', $3), ($1, $2, 'ai', $4)`,
		ticketID, patientID, message, reply)
	if err != nil {
		return fmt.Errorf("insert chat exchange: %w", err)
	}
	return nil
}
