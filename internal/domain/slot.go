package domain

import "time"

type ResourceClass string

const (
	ResourceClassAppointment ResourceClass = "appointment"
	ResourceClassParking     ResourceClass = "parking"
)

func (c ResourceClass) Valid() bool {
	switch c {
	case ResourceClassAppointment, ResourceClassParking:
		return true
	}
	return false
}

type SlotStatus string

const (
	SlotStatusFree     SlotStatus = "free"
	SlotStatusHeld     SlotStatus = "held"
	SlotStatusReserved SlotStatus = "reserved"
)

// Slot is a bookable half-open window [StartTime, EndTime) of one resource.
type Slot struct {
	ID                 string
	ResourceClass      ResourceClass
	ResourceIdentifier string
	ServiceTag         string
	StartTime          time.Time
	EndTime            time.Time
	Status             SlotStatus
	HoldOwner          string
	HoldExpiry         *time.Time
	ReservedBy         string
	CreatedAt          time.Time
	UpdatedAt          time.Time
}

// HoldLive reports whether the slot is held by a lease that has not elapsed at now.
func (s Slot) HoldLive(now time.Time) bool {
	return s.Status == SlotStatusHeld && s.HoldExpiry != nil && s.HoldExpiry.After(now)
}

// EffectivelyFree is true for free slots and for held slots whose lease elapsed
// but which the sweeper has not reclaimed yet.
func (s Slot) EffectivelyFree(now time.Time) bool {
	switch s.Status {
	case SlotStatusFree:
		return true
	case SlotStatusHeld:
		return !s.HoldLive(now)
	}
	return false
}

func (s Slot) Overlaps(start, end time.Time) bool {
	return s.StartTime.Before(end) && start.Before(s.EndTime)
}

// SlotFilter narrows availability queries. Zero values mean "any".
type SlotFilter struct {
	ResourceIdentifier string
	ServiceTag         string
	From               time.Time
	To                 time.Time
}
