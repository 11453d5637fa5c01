package kafka

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/segmentio/kafka-go"
)

const (
	EventReservationConfirmed = "reservation_confirmed"
	EventReservationCancelled = "reservation_cancelled"
)

// ReservationEvent is published to the notifications topic.
type ReservationEvent struct {
	Type               string          `json:"type"`
	ReservationID      string          `json:"reservation_id"`
	SlotID             string          `json:"slot_id"`
	ResourceIdentifier string          `json:"resource_identifier"`
	ServiceTag         string          `json:"service_tag,omitempty"`
	StartTime          time.Time       `json:"start_time"`
	EndTime            time.Time       `json:"end_time"`
	ActorToken         string          `json:"actor_token"`
	SubjectDetails     json.RawMessage `json:"subject_details,omitempty"`
	OccurredAt         time.Time       `json:"occurred_at"`
}

// AuditEvent mirrors one audit log entry on the audit topic.
type AuditEvent struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	ActorToken string          `json:"actor_token,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func DecodeReservationEvent(msg kafka.Message) (ReservationEvent, error) {
	var event ReservationEvent
	if err := json.Unmarshal(msg.Value, &event); err != nil {
		return ReservationEvent{}, fmt.Errorf("decode reservation event at offset %d: %w", msg.Offset, err)
	}
	return event, nil
}
