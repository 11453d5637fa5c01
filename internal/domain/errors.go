package domain

import (
	"errors"
	"time"
)

var (
	ErrValidation          = errors.New("validation error")
	ErrSlotNotFound        = errors.New("slot not found")
	ErrReservationNotFound = errors.New("reservation not found")
	ErrHoldConflict        = errors.New("slot is held or reserved")
	ErrNotHeld             = errors.New("slot is not held")
	ErrOwnerMismatch       = errors.New("hold belongs to another owner")
	ErrHoldExpired         = errors.New("hold expired")
)

// HoldFailure explains why a conditional write that required a live hold by
// owner matched no row, given the slot state read right after the miss.
func HoldFailure(s Slot, owner string, now time.Time) error {
	if s.Status != SlotStatusHeld {
		return ErrNotHeld
	}
	if s.HoldOwner != owner {
		return ErrOwnerMismatch
	}
	if !s.HoldLive(now) {
		return ErrHoldExpired
	}
	// The hold is live and ours now, so it changed between the write and the read.
	return ErrHoldConflict
}
