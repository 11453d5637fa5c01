package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
)

const reservationColumnsSQLite = `id, slot_id, subject_details, status, reserved_by, cancelled_by, created_at_ns, updated_at_ns`

type SQLiteReservationRepository struct {
	sqliteBase
}

func NewSQLiteReservationRepository(db *sql.DB) ReservationRepository {
	return &SQLiteReservationRepository{sqliteBase{db: db}}
}

func scanReservationSQLite(row rowScanner) (domain.Reservation, error) {
	var (
		r                    domain.Reservation
		details, status      string
		cancelledBy          sql.NullString
		createdNS, updatedNS int64
	)
	if err := row.Scan(&r.ID, &r.SlotID, &details, &status, &r.ReservedBy, &cancelledBy, &createdNS, &updatedNS); err != nil {
		return domain.Reservation{}, err
	}
	r.SubjectDetails = []byte(details)
	r.Status = domain.ReservationStatus(status)
	r.CancelledBy = cancelledBy.String
	r.CreatedAt = fromNS(createdNS)
	r.UpdatedAt = fromNS(updatedNS)
	return r, nil
}

func (r *SQLiteReservationRepository) Confirm(ctx context.Context, res *domain.Reservation, owner string, now time.Time) error {
	return r.withTx(ctx, func(tx *sql.Tx) error {
		result, err := tx.ExecContext(ctx, `UPDATE slots
			SET status = 'reserved', reserved_by = ?, hold_owner = NULL, hold_expiry_ns = NULL, updated_at_ns = ?
			WHERE id = ? AND status = 'held' AND hold_owner = ? AND hold_expiry_ns > ?`,
			owner, toNS(now), res.SlotID, owner, toNS(now))
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
			current, err := getSlotSQLite(ctx, tx, res.SlotID)
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
		if _, err := tx.ExecContext(ctx, `INSERT INTO reservations (id, slot_id, subject_details, status, reserved_by, created_at_ns, updated_at_ns)
			VALUES (?, ?, ?, ?, ?, ?, ?)`,
			res.ID, res.SlotID, string(res.SubjectDetails), string(res.Status), res.ReservedBy, toNS(now), toNS(now)); err != nil {
			if isSQLiteUniqueViolation(err) {
				return domain.ErrHoldConflict
			}
			return err
		}
		return nil
	})
}

func (r *SQLiteReservationRepository) Cancel(ctx context.Context, id, actor string, now time.Time) (*domain.Reservation, bool, error) {
	var (
		out     domain.Reservation
		changed bool
	)
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		res, err := scanReservationSQLite(tx.QueryRowContext(ctx, `UPDATE reservations
			SET status = 'cancelled', cancelled_by = ?, updated_at_ns = ?
			WHERE id = ? AND status = 'confirmed'
			RETURNING `+reservationColumnsSQLite, nullable(actor), toNS(now), id))
		if errors.Is(err, sql.ErrNoRows) {
			existing, err := scanReservationSQLite(tx.QueryRowContext(ctx, `SELECT `+reservationColumnsSQLite+` FROM reservations WHERE id = ?`, id))
			if errors.Is(err, sql.ErrNoRows) {
				return domain.ErrReservationNotFound
			}
			if err != nil {
				return err
			}
			out = existing
			return nil
		}
		if err != nil {
			return err
		}

		result, err := tx.ExecContext(ctx, `UPDATE slots
			SET status = 'free', reserved_by = NULL, updated_at_ns = ?
			WHERE id = ? AND status = 'reserved'`, toNS(now), res.SlotID)
		if err != nil {
			return err
		}
		n, err := result.RowsAffected()
		if err != nil {
			return err
		}
		if n == 0 {
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

func (r *SQLiteReservationRepository) GetByID(ctx context.Context, id string) (*domain.Reservation, error) {
	res, err := scanReservationSQLite(r.db.QueryRowContext(ctx, `SELECT `+reservationColumnsSQLite+` FROM reservations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrReservationNotFound
	}
	if err != nil {
		return nil, err
	}
	return &res, nil
}

var _ ReservationRepository = (*SQLiteReservationRepository)(nil)
