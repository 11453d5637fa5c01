package domain

import (
	"encoding/json"
	"time"
)

type ReservationStatus string

const (
	ReservationStatusConfirmed ReservationStatus = "confirmed"
	ReservationStatusCancelled ReservationStatus = "cancelled"
)

// Reservation is a confirmed booking of exactly one slot. SubjectDetails is
// stored as received from the dialogue layer and never interpreted here.
type Reservation struct {
	ID             string
	SlotID         string
	SubjectDetails json.RawMessage
	Status         ReservationStatus
	ReservedBy     string
	CancelledBy    string
	CreatedAt      time.Time
	UpdatedAt      time.Time
}
