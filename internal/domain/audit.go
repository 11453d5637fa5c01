package domain

import (
	"encoding/json"
	"time"
)

type AuditAction string

const (
	AuditHoldGranted          AuditAction = "hold_granted"
	AuditHoldReleased         AuditAction = "hold_released"
	AuditHoldsExpired         AuditAction = "holds_expired"
	AuditReservationConfirmed AuditAction = "reservation_confirmed"
	AuditReservationCancelled AuditAction = "reservation_cancelled"
	AuditSlotsGenerated       AuditAction = "slots_generated"
)

type EntityType string

const (
	EntitySlot        EntityType = "slot"
	EntityReservation EntityType = "reservation"
	EntityResource    EntityType = "resource"
	EntitySweep       EntityType = "sweep"
)

// AuditEntry is immutable once appended.
type AuditEntry struct {
	ID         string
	Action     AuditAction
	EntityType EntityType
	EntityID   string
	ActorToken string
	Details    json.RawMessage
	Timestamp  time.Time
}
