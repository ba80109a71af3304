// Package outbox stores domain events in the same transaction as the write
// that produced them and relays committed events to downstream publishers.
package outbox

import (
	"encoding/json"
	"fmt"
	"time"
)

// Event is one row of outbox_events.
type Event struct {
	ID            int64           `json:"id"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	EventType     string          `json:"event_type"`
	Payload       json.RawMessage `json:"payload"`
	CreatedAt     time.Time       `json:"created_at"`
	ProcessedAt   *time.Time      `json:"processed_at,omitempty"`
	ErrorMessage  *string         `json:"error_message,omitempty"`
	RetryCount    int             `json:"retry_count"`
}

// NewEvent marshals payload and returns an unsaved event.
func NewEvent(aggregateType, aggregateID, eventType string, payload interface{}) (*Event, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, fmt.Errorf("marshal %s payload: %w", eventType, err)
	}
	return &Event{
		AggregateType: aggregateType,
		AggregateID:   aggregateID,
		EventType:     eventType,
		Payload:       data,
	}, nil
}

// Key is the partition key used when publishing.
func (e *Event) Key() string {
	return e.AggregateType + "-" + e.AggregateID
}

// Envelope is the wire form published to Kafka.
type Envelope struct {
	ID            int64           `json:"id"`
	Type          string          `json:"type"`
	AggregateType string          `json:"aggregate_type"`
	AggregateID   string          `json:"aggregate_id"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Data          json.RawMessage `json:"data"`
}

func (e *Event) Envelope() Envelope {
	return Envelope{
		ID:            e.ID,
		Type:          e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		OccurredAt:    e.CreatedAt,
		Data:          e.Payload,
	}
}
