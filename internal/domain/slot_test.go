package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestSlot_EffectivelyFree(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Second)
	future := now.Add(time.Minute)

	testCases := []struct {
		name string
		slot Slot
		want bool
	}{
		{name: "free", slot: Slot{Status: SlotStatusFree}, want: true},
		{name: "held live", slot: Slot{Status: SlotStatusHeld, HoldOwner: "a", HoldExpiry: &future}, want: false},
		{name: "held expired", slot: Slot{Status: SlotStatusHeld, HoldOwner: "a", HoldExpiry: &past}, want: true},
		{name: "held expiring now", slot: Slot{Status: SlotStatusHeld, HoldOwner: "a", HoldExpiry: &now}, want: true},
		{name: "reserved", slot: Slot{Status: SlotStatusReserved, ReservedBy: "a"}, want: false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, tc.slot.EffectivelyFree(now))
		})
	}
}

func TestSlot_Overlaps(t *testing.T) {
	base := time.Date(2025, 3, 3, 9, 0, 0, 0, time.UTC)
	s := Slot{StartTime: base, EndTime: base.Add(30 * time.Minute)}

	assert.True(t, s.Overlaps(base.Add(15*time.Minute), base.Add(45*time.Minute)))
	assert.True(t, s.Overlaps(base, base.Add(30*time.Minute)))
	assert.False(t, s.Overlaps(base.Add(30*time.Minute), base.Add(time.Hour)), "half-open windows touching at the edge")
	assert.False(t, s.Overlaps(base.Add(-time.Hour), base))
}

func TestHoldFailure(t *testing.T) {
	now := time.Date(2025, 3, 3, 10, 0, 0, 0, time.UTC)
	past := now.Add(-time.Minute)
	future := now.Add(time.Minute)

	testCases := []struct {
		name string
		slot Slot
		want error
	}{
		{name: "free", slot: Slot{Status: SlotStatusFree}, want: ErrNotHeld},
		{name: "reserved", slot: Slot{Status: SlotStatusReserved}, want: ErrNotHeld},
		{name: "other owner", slot: Slot{Status: SlotStatusHeld, HoldOwner: "other", HoldExpiry: &future}, want: ErrOwnerMismatch},
		{name: "other owner expired", slot: Slot{Status: SlotStatusHeld, HoldOwner: "other", HoldExpiry: &past}, want: ErrOwnerMismatch},
		{name: "expired", slot: Slot{Status: SlotStatusHeld, HoldOwner: "me", HoldExpiry: &past}, want: ErrHoldExpired},
		{name: "live", slot: Slot{Status: SlotStatusHeld, HoldOwner: "me", HoldExpiry: &future}, want: ErrHoldConflict},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			assert.ErrorIs(t, HoldFailure(tc.slot, "me", now), tc.want)
		})
	}
}

func TestResourceClass_Valid(t *testing.T) {
	assert.True(t, ResourceClassAppointment.Valid())
	assert.True(t, ResourceClassParking.Valid())
	assert.False(t, ResourceClass("boat").Valid())
	assert.False(t, ResourceClass("").Valid())
}
