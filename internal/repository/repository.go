package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

// SlotRepository performs every slot state transition as one conditional write.
type SlotRepository interface {
	// InsertMany stores new free slots, skipping any that already exist or
	// overlap an existing slot of the same resource. Returns how many were created.
	InsertMany(ctx context.Context, slots []domain.Slot) (int, error)
	GetByID(ctx context.Context, id string) (*domain.Slot, error)
	ListAvailable(ctx context.Context, filter domain.SlotFilter, now time.Time) ([]domain.Slot, error)
	Hold(ctx context.Context, id, owner string, now, expiresAt time.Time) (*domain.Slot, error)
	ReleaseHold(ctx context.Context, id, owner string, now time.Time) (*domain.Slot, error)
	ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]domain.Slot, error)
}

type ReservationRepository interface {
	// Confirm turns the owner's live hold into a reservation and stores r in
	// the same transaction.
	Confirm(ctx context.Context, r *domain.Reservation, owner string, now time.Time) error
	// Cancel returns the reservation and whether this call changed it.
	// Cancelling an already cancelled reservation is not an error.
	Cancel(ctx context.Context, id, actor string, now time.Time) (*domain.Reservation, bool, error)
	GetByID(ctx context.Context, id string) (*domain.Reservation, error)
}

type AuditRepository interface {
	Append(ctx context.Context, entry domain.AuditEntry) error
	ListByEntity(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error)
}

// Store groups the repositories of one backing database.
type Store struct {
	Slots        SlotRepository
	Reservations ReservationRepository
	Audit        AuditRepository
}

func emptyJSON(b []byte) []byte {
	if len(b) == 0 {
		return []byte("{}")
	}
	return b
}

func nullable(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}

func deref(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func NewPGStore(pool *pgxpool.Pool) Store {
	return Store{
		Slots:        NewSlotRepository(pool),
		Reservations: NewReservationRepository(pool),
		Audit:        NewAuditRepository(pool),
	}
}

func NewSQLiteStore(db *sql.DB) Store {
	return Store{
		Slots:        NewSQLiteSlotRepository(db),
		Reservations: NewSQLiteReservationRepository(db),
		Audit:        NewSQLiteAuditRepository(db),
	}
}
