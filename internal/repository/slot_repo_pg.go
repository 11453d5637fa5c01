package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const slotColumns = `id, resource_class, resource_identifier, service_tag, start_time, end_time, status, hold_owner, hold_expiry, reserved_by, created_at, updated_at`

// A held slot whose lease is not after now counts as free everywhere.
const slotAvailablePG = `(status = 'free' OR (status = 'held' AND hold_expiry <= $1))`

type PGSlotRepository struct {
	pgBase
}

func NewSlotRepository(db *pgxpool.Pool) SlotRepository {
	return &PGSlotRepository{pgBase{db: db}}
}

func scanSlotPG(row pgx.Row) (domain.Slot, error) {
	var (
		s                     domain.Slot
		holdOwner, reservedBy *string
	)
	if err := row.Scan(&s.ID, &s.ResourceClass, &s.ResourceIdentifier, &s.ServiceTag, &s.StartTime, &s.EndTime,
		&s.Status, &holdOwner, &s.HoldExpiry, &reservedBy, &s.CreatedAt, &s.UpdatedAt); err != nil {
		return domain.Slot{}, err
	}
	s.HoldOwner = deref(holdOwner)
	s.ReservedBy = deref(reservedBy)
	return s, nil
}

func collectSlotsPG(rows pgx.Rows) ([]domain.Slot, error) {
	defer rows.Close()
	var slots []domain.Slot
	for rows.Next() {
		s, err := scanSlotPG(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func (r *PGSlotRepository) InsertMany(ctx context.Context, slots []domain.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	// ON CONFLICT DO NOTHING also swallows slots_no_overlap violations.
	batch := &pgx.Batch{}
	for _, s := range slots {
		batch.Queue(`INSERT INTO slots (id, resource_class, resource_identifier, service_tag, start_time, end_time, status, created_at, updated_at)
			VALUES ($1, $2, $3, $4, $5, $6, 'free', $7, $7)
			ON CONFLICT DO NOTHING`,
			s.ID, s.ResourceClass, s.ResourceIdentifier, s.ServiceTag, s.StartTime, s.EndTime, s.CreatedAt)
	}

	created := 0
	err := r.withTx(ctx, func(ctx context.Context) error {
		br := txFromContext(ctx).SendBatch(ctx, batch)
		for range slots {
			tag, err := br.Exec()
			if err != nil {
				_ = br.Close()
				return err
			}
			created += int(tag.RowsAffected())
		}
		return br.Close()
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *PGSlotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	s, err := scanSlotPG(r.queryRow(ctx, `SELECT `+slotColumns+` FROM slots WHERE id = $1`, id))
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *PGSlotRepository) ListAvailable(ctx context.Context, filter domain.SlotFilter, now time.Time) ([]domain.Slot, error) {
	var q strings.Builder
	args := []any{now}
	q.WriteString(`SELECT ` + slotColumns + ` FROM slots WHERE ` + slotAvailablePG)
	if filter.ResourceIdentifier != "" {
		args = append(args, filter.ResourceIdentifier)
		fmt.Fprintf(&q, ` AND resource_identifier = $%d`, len(args))
	}
	if filter.ServiceTag != "" {
		args = append(args, filter.ServiceTag)
		fmt.Fprintf(&q, ` AND service_tag = $%d`, len(args))
	}
	if !filter.From.IsZero() {
		args = append(args, filter.From)
		fmt.Fprintf(&q, ` AND start_time >= $%d`, len(args))
	}
	if !filter.To.IsZero() {
		args = append(args, filter.To)
		fmt.Fprintf(&q, ` AND start_time < $%d`, len(args))
	}
	q.WriteString(` ORDER BY start_time, resource_identifier`)

	rows, err := r.query(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectSlotsPG(rows)
}

func (r *PGSlotRepository) Hold(ctx context.Context, id, owner string, now, expiresAt time.Time) (*domain.Slot, error) {
	s, err := scanSlotPG(r.queryRow(ctx, `UPDATE slots
		SET status = 'held', hold_owner = $2, hold_expiry = $3, updated_at = $1
		WHERE id = $4 AND `+slotAvailablePG+`
		RETURNING `+slotColumns, now, owner, expiresAt, id))
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	var exists bool
	if err := r.queryRow(ctx, `SELECT EXISTS (SELECT 1 FROM slots WHERE id = $1)`, id).Scan(&exists); err != nil {
		return nil, err
	}
	if !exists {
		return nil, domain.ErrSlotNotFound
	}
	return nil, domain.ErrHoldConflict
}

func (r *PGSlotRepository) ReleaseHold(ctx context.Context, id, owner string, now time.Time) (*domain.Slot, error) {
	s, err := scanSlotPG(r.queryRow(ctx, `UPDATE slots
		SET status = 'free', hold_owner = NULL, hold_expiry = NULL, updated_at = $3
		WHERE id = $1 AND status = 'held' AND hold_owner = $2 AND hold_expiry > $3
		RETURNING `+slotColumns, id, owner, now))
	if err == nil {
		return &s, nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return nil, err
	}

	current, err := r.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	return nil, domain.HoldFailure(*current, owner, now)
}

func (r *PGSlotRepository) ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]domain.Slot, error) {
	rows, err := r.query(ctx, `UPDATE slots
		SET status = 'free', hold_owner = NULL, hold_expiry = NULL, updated_at = $1
		WHERE status = 'held' AND hold_expiry <= $1
		RETURNING `+slotColumns, now)
	if err != nil {
		return nil, err
	}
	return collectSlotsPG(rows)
}

var _ SlotRepository = (*PGSlotRepository)(nil)
