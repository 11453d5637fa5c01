package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const reservationColumns = `id, slot_id, subject_details, status, reserved_by, cancelled_by, created_at, updated_at`

type PGReservationRepository struct {
	pgBase
	slots *PGSlotRepository
}

func NewReservationRepository(db *pgxpool.Pool) ReservationRepository {
	return &PGReservationRepository{pgBase: pgBase{db: db}, slots: &PGSlotRepository{pgBase{db: db}}}
}

func scanReservationPG(row pgx.Row) (domain.Reservation, error) {
	var (
		r           domain.Reservation
		details     []byte
		cancelledBy *string
	)
	if err := row.Scan(&r.ID, &r.SlotID, &details, &r.Status, &r.ReservedBy, &cancelledBy, &r.CreatedAt, &r.UpdatedAt); err != nil {
		return domain.Reservation{}, err
	}
	r.SubjectDetails = details
	r.CancelledBy = deref(cancelledBy)
	return r, nil
}

func (r *PGReservationRepository) Confirm(ctx context.Context, res *domain.Reservation, owner string, now time.Time) error {
	return r.withTx(ctx, func(ctx context.Context) error {
		tag, err := r.exec(ctx, `UPDATE slots
			SET status = 'reserved', reserved_by = $2, hold_owner = NULL, hold_expiry = NULL, updated_at = $3
			WHERE id = $1 AND status = 'held' AND hold_owner = $2 AND hold_expiry > $3`,
			res.SlotID, owner, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			current, err := r.slots.GetByID(ctx, res.SlotID)
			if err != nil {
				return err
			}
			return domain.HoldFailure(*current, owner, now)
		}

		res.Status = domain.ReservationStatusConfirmed
		res.ReservedBy = owner
		res.SubjectDetails = emptyJSON(res.SubjectDetails)
		res.CreatedAt = now
		res.UpdatedAt = now
		if _, err := r.exec(ctx, `INSERT INTO reservations (id, slot_id, subject_details, status, reserved_by, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, $6)`,
			res.ID, res.SlotID, []byte(res.SubjectDetails), res.Status, res.ReservedBy, now); err != nil {
			if isUniqueViolation(err) {
				return domain.ErrHoldConflict
			}
			return err
		}
		return nil
	})
}

func (r *PGReservationRepository) Cancel(ctx context.Context, id, actor string, now time.Time) (*domain.Reservation, bool, error) {
	var (
		out     domain.Reservation
		changed bool
	)
	err := r.withTx(ctx, func(ctx context.Context) error {
		res, err := scanReservationPG(r.queryRow(ctx, `UPDATE reservations
			SET status = 'cancelled', cancelled_by = $2, updated_at = $3
			WHERE id = $1 AND status = 'confirmed'
			RETURNING `+reservationColumns, id, nullable(actor), now))
		if errors.Is(err, pgx.ErrNoRows) {
			existing, err := r.GetByID(ctx, id)
			if err != nil {
				return err
			}
			out = *existing
			return nil
		}
		if err != nil {
			return err
		}

		tag, err := r.exec(ctx, `UPDATE slots
			SET status = 'free', reserved_by = NULL, updated_at = $2
			WHERE id = $1 AND status = 'reserved'`, res.SlotID, now)
		if err != nil {
			return err
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("slot %s of reservation %s is not reserved", res.SlotID, id)
		}
		out, changed = res, true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return &out, changed, nil
}

func (r *PGReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := scanReservationPG(r.queryRow(ctx, `SELECT `+reservationColumns+` FROM reservations WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

var _ ReservationRepository = (*PGReservationRepository)(nil)
