package websocket

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/svviitzerland/Medisync/internal/platform/outbox"
)

// routing holds the payload fields used to pick extra topics.
type routing struct {
	PatientID   string `json:"patient_id"`
	NurseTeamID *int   `json:"nurse_team_id"`
	RoomID      *int64 `json:"room_id"`
}

// OutboxPublisher relays committed outbox events to websocket subscribers.
type OutboxPublisher struct {
	hub *Hub
}

func NewOutboxPublisher(hub *Hub) *OutboxPublisher {
	return &OutboxPublisher{hub: hub}
}

func (p *OutboxPublisher) Name() string { return "websocket" }

func (p *OutboxPublisher) Publish(_ context.Context, e *outbox.Event) error {
	ev := Event{
		Type:          e.EventType,
		AggregateType: e.AggregateType,
		AggregateID:   e.AggregateID,
		Timestamp:     e.CreatedAt,
		Data:          e.Payload,
	}
	for _, topic := range Topics(e) {
		p.hub.Broadcast(topic, ev)
	}
	return nil
}

// Topics lists every topic an outbox event is broadcast to.
func Topics(e *outbox.Event) []string {
	collection := e.AggregateType + "s"
	topics := []string{collection, collection + "/" + e.AggregateID}

	var r routing
	if err := json.Unmarshal(e.Payload, &r); err != nil {
		return topics
	}
	if r.PatientID != "" {
		topics = append(topics, "patients/"+r.PatientID)
	}
	if r.NurseTeamID != nil {
		topics = append(topics, fmt.Sprintf("nurse-teams/%d", *r.NurseTeamID))
	}
	if r.RoomID != nil {
		topics = append(topics, "rooms")
	}
	return topics
}
