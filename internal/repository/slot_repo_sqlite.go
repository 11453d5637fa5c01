package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/Domenick1991/slotbooking/internal/domain"
)

const slotColumnsSQLite = `id, resource_class, resource_identifier, service_tag, start_ns, end_ns, status, hold_owner, hold_expiry_ns, reserved_by, created_at_ns, updated_at_ns`

const slotAvailableSQLite = `(status = 'free' OR (status = 'held' AND hold_expiry_ns <= ?))`

type SQLiteSlotRepository struct {
	sqliteBase
}

func NewSQLiteSlotRepository(db *sql.DB) SlotRepository {
	return &SQLiteSlotRepository{sqliteBase{db: db}}
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanSlotSQLite(row rowScanner) (domain.Slot, error) {
	var (
		s                     domain.Slot
		class, status         string
		startNS, endNS        int64
		createdNS, updatedNS  int64
		holdOwner, reservedBy sql.NullString
		holdExpiry            sql.NullInt64
	)
	if err := row.Scan(&s.ID, &class, &s.ResourceIdentifier, &s.ServiceTag, &startNS, &endNS,
		&status, &holdOwner, &holdExpiry, &reservedBy, &createdNS, &updatedNS); err != nil {
		return domain.Slot{}, err
	}
	s.ResourceClass = domain.ResourceClass(class)
	s.Status = domain.SlotStatus(status)
	s.StartTime = fromNS(startNS)
	s.EndTime = fromNS(endNS)
	s.HoldOwner = holdOwner.String
	s.ReservedBy = reservedBy.String
	if holdExpiry.Valid {
		t := fromNS(holdExpiry.Int64)
		s.HoldExpiry = &t
	}
	s.CreatedAt = fromNS(createdNS)
	s.UpdatedAt = fromNS(updatedNS)
	return s, nil
}

func collectSlotsSQLite(rows *sql.Rows) ([]domain.Slot, error) {
	defer rows.Close()
	var slots []domain.Slot
	for rows.Next() {
		s, err := scanSlotSQLite(rows)
		if err != nil {
			return nil, err
		}
		slots = append(slots, s)
	}
	return slots, rows.Err()
}

func getSlotSQLite(ctx context.Context, tx *sql.Tx, id string) (*domain.Slot, error) {
	s, err := scanSlotSQLite(tx.QueryRowContext(ctx, `SELECT `+slotColumnsSQLite+` FROM slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSlotRepository) InsertMany(ctx context.Context, slots []domain.Slot) (int, error) {
	if len(slots) == 0 {
		return 0, nil
	}

	created := 0
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		stmt, err := tx.PrepareContext(ctx, `INSERT INTO slots (id, resource_class, resource_identifier, service_tag, start_ns, end_ns, status, created_at_ns, updated_at_ns)
			SELECT ?, ?, ?, ?, ?, ?, 'free', ?, ?
			WHERE NOT EXISTS (
				SELECT 1 FROM slots WHERE resource_identifier = ? AND start_ns < ? AND end_ns > ?
			)
			ON CONFLICT (id) DO NOTHING`)
		if err != nil {
			return err
		}
		defer stmt.Close()

		for _, s := range slots {
			start, end, at := toNS(s.StartTime), toNS(s.EndTime), toNS(s.CreatedAt)
			res, err := stmt.ExecContext(ctx,
				s.ID, string(s.ResourceClass), s.ResourceIdentifier, s.ServiceTag, start, end, at, at,
				s.ResourceIdentifier, end, start)
			if err != nil {
				return err
			}
			n, err := res.RowsAffected()
			if err != nil {
				return err
			}
			created += int(n)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return created, nil
}

func (r *SQLiteSlotRepository) GetByID(ctx context.Context, id string) (*domain.Slot, error) {
	s, err := scanSlotSQLite(r.db.QueryRowContext(ctx, `SELECT `+slotColumnsSQLite+` FROM slots WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, domain.ErrSlotNotFound
	}
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func (r *SQLiteSlotRepository) ListAvailable(ctx context.Context, filter domain.SlotFilter, now time.Time) ([]domain.Slot, error) {
	var q strings.Builder
	args := []any{toNS(now)}
	q.WriteString(`SELECT ` + slotColumnsSQLite + ` FROM slots WHERE ` + slotAvailableSQLite)
	if filter.ResourceIdentifier != "" {
		q.WriteString(` AND resource_identifier = ?`)
		args = append(args, filter.ResourceIdentifier)
	}
	if filter.ServiceTag != "" {
		q.WriteString(` AND service_tag = ?`)
		args = append(args, filter.ServiceTag)
	}
	if !filter.From.IsZero() {
		q.WriteString(` AND start_ns >= ?`)
		args = append(args, toNS(filter.From))
	}
	if !filter.To.IsZero() {
		q.WriteString(` AND start_ns < ?`)
		args = append(args, toNS(filter.To))
	}
	q.WriteString(` ORDER BY start_ns, resource_identifier`)

	rows, err := r.db.QueryContext(ctx, q.String(), args...)
	if err != nil {
		return nil, err
	}
	return collectSlotsSQLite(rows)
}

func (r *SQLiteSlotRepository) Hold(ctx context.Context, id, owner string, now, expiresAt time.Time) (*domain.Slot, error) {
	var out *domain.Slot
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		s, err := scanSlotSQLite(tx.QueryRowContext(ctx, `UPDATE slots
			SET status = 'held', hold_owner = ?, hold_expiry_ns = ?, updated_at_ns = ?
			WHERE id = ? AND `+slotAvailableSQLite+`
			RETURNING `+slotColumnsSQLite, owner, toNS(expiresAt), toNS(now), id, toNS(now)))
		if err == nil {
			out = &s
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		if _, err := getSlotSQLite(ctx, tx, id); err != nil {
			return err
		}
		return domain.ErrHoldConflict
	})
	return out, err
}

func (r *SQLiteSlotRepository) ReleaseHold(ctx context.Context, id, owner string, now time.Time) (*domain.Slot, error) {
	var out *domain.Slot
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		s, err := scanSlotSQLite(tx.QueryRowContext(ctx, `UPDATE slots
			SET status = 'free', hold_owner = NULL, hold_expiry_ns = NULL, updated_at_ns = ?
			WHERE id = ? AND status = 'held' AND hold_owner = ? AND hold_expiry_ns > ?
			RETURNING `+slotColumnsSQLite, toNS(now), id, owner, toNS(now)))
		if err == nil {
			out = &s
			return nil
		}
		if !errors.Is(err, sql.ErrNoRows) {
			return err
		}
		current, err := getSlotSQLite(ctx, tx, id)
		if err != nil {
			return err
		}
		return domain.HoldFailure(*current, owner, now)
	})
	return out, err
}

func (r *SQLiteSlotRepository) ReleaseExpiredHolds(ctx context.Context, now time.Time) ([]domain.Slot, error) {
	var released []domain.Slot
	err := r.withTx(ctx, func(tx *sql.Tx) error {
		rows, err := tx.QueryContext(ctx, `UPDATE slots
			SET status = 'free', hold_owner = NULL, hold_expiry_ns = NULL, updated_at_ns = ?
			WHERE status = 'held' AND hold_expiry_ns <= ?
			RETURNING `+slotColumnsSQLite, toNS(now), toNS(now))
		if err != nil {
			return err
		}
		released, err = collectSlotsSQLite(rows)
		return err
	})
	if err != nil {
		return nil, err
	}
	return released, nil
}

var _ SlotRepository = (*SQLiteSlotRepository)(nil)
