package repository

import (
	"context"
	"database/sql"

	"github.com/Domenick1991/slotbooking/internal/domain"
)

type SQLiteAuditRepository struct {
	sqliteBase
}

func NewSQLiteAuditRepository(db *sql.DB) AuditRepository {
	return &SQLiteAuditRepository{sqliteBase{db: db}}
}

func (r *SQLiteAuditRepository) Append(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.db.ExecContext(ctx, `INSERT INTO audit_log (id, action_type, entity_type, entity_id, actor_token, details, recorded_at_ns)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		e.ID, string(e.Action), string(e.EntityType), e.EntityID, e.ActorToken, string(emptyJSON(e.Details)), toNS(e.Timestamp))
	return err
}

func (r *SQLiteAuditRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, action_type, entity_type, entity_id, actor_token, details, recorded_at_ns
		FROM audit_log WHERE entity_id = ?
		ORDER BY recorded_at_ns, id
		LIMIT ?`, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e                      domain.AuditEntry
			action, entity, detail string
			recordedNS             int64
		)
		if err := rows.Scan(&e.ID, &action, &entity, &e.EntityID, &e.ActorToken, &detail, &recordedNS); err != nil {
			return nil, err
		}
		e.Action = domain.AuditAction(action)
		e.EntityType = domain.EntityType(entity)
		e.Details = []byte(detail)
		e.Timestamp = fromNS(recordedNS)
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ AuditRepository = (*SQLiteAuditRepository)(nil)
