package repository

import (
	"context"

	"github.com/Domenick1991/slotbooking/internal/domain"
	"github.com/jackc/pgx/v5/pgxpool"
)

type PGAuditRepository struct {
	pgBase
}

func NewAuditRepository(db *pgxpool.Pool) AuditRepository {
	return &PGAuditRepository{pgBase{db: db}}
}

func (r *PGAuditRepository) Append(ctx context.Context, e domain.AuditEntry) error {
	_, err := r.exec(ctx, `INSERT INTO audit_log (id, action_type, entity_type, entity_id, actor_token, details, recorded_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		e.ID, e.Action, e.EntityType, e.EntityID, e.ActorToken, emptyJSON(e.Details), e.Timestamp)
	return err
}

func (r *PGAuditRepository) ListByEntity(ctx context.Context, entityID string, limit int) ([]domain.AuditEntry, error) {
	rows, err := r.query(ctx, `SELECT id, action_type, entity_type, entity_id, actor_token, details, recorded_at
		FROM audit_log WHERE entity_id = $1
		ORDER BY recorded_at, id
		LIMIT $2`, entityID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []domain.AuditEntry
	for rows.Next() {
		var (
			e       domain.AuditEntry
			details []byte
		)
		if err := rows.Scan(&e.ID, &e.Action, &e.EntityType, &e.EntityID, &e.ActorToken, &details, &e.Timestamp); err != nil {
			return nil, err
		}
		e.Details = details
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

var _ AuditRepository = (*PGAuditRepository)(nil)
