package api

import (
	"encoding/json"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
)

type slotResponse struct {
	ID                 string     `json:"id"`
	ResourceClass      string     `json:"resource_class"`
	ResourceIdentifier string     `json:"resource_identifier"`
	ServiceTag         string     `json:"service_tag,omitempty"`
	StartTime          time.Time  `json:"start_time"`
	EndTime            time.Time  `json:"end_time"`
	Status             string     `json:"status"`
	HoldExpiry         *time.Time `json:"hold_expiry,omitempty"`
}

// Hold owners and reservers are not exposed: tokens identify dialogue sessions.
func toSlotResponse(s domain.Slot) slotResponse {
	return slotResponse{
		ID:                 s.ID,
		ResourceClass:      string(s.ResourceClass),
		ResourceIdentifier: s.ResourceIdentifier,
		ServiceTag:         s.ServiceTag,
		StartTime:          s.StartTime.UTC(),
		EndTime:            s.EndTime.UTC(),
		Status:             string(s.Status),
		HoldExpiry:         s.HoldExpiry,
	}
}

type reservationResponse struct {
	ID             string          `json:"id"`
	SlotID         string          `json:"slot_id"`
	Status         string          `json:"status"`
	SubjectDetails json.RawMessage `json:"subject_details,omitempty"`
	CreatedAt      time.Time       `json:"created_at"`
	UpdatedAt      time.Time       `json:"updated_at"`
}

func toReservationResponse(r domain.Reservation) reservationResponse {
	return reservationResponse{
		ID:             r.ID,
		SlotID:         r.SlotID,
		Status:         string(r.Status),
		SubjectDetails: r.SubjectDetails,
		CreatedAt:      r.CreatedAt.UTC(),
		UpdatedAt:      r.UpdatedAt.UTC(),
	}
}

type auditEntryResponse struct {
	ID         string          `json:"id"`
	Action     string          `json:"action"`
	EntityType string          `json:"entity_type"`
	EntityID   string          `json:"entity_id"`
	ActorToken string          `json:"actor_token,omitempty"`
	Details    json.RawMessage `json:"details,omitempty"`
	Timestamp  time.Time       `json:"timestamp"`
}

func toAuditEntryResponse(e domain.AuditEntry) auditEntryResponse {
	return auditEntryResponse{
		ID:         e.ID,
		Action:     string(e.Action),
		EntityType: string(e.EntityType),
		EntityID:   e.EntityID,
		ActorToken: e.ActorToken,
		Details:    e.Details,
		Timestamp:  e.Timestamp.UTC(),
	}
}
