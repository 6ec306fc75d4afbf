package repository

import (
	"context"
	"database/sql"

	"github.com/tsuruyu/SimplyBeauty-IMS/pkg/domain"
)

// AuditRepository persists audit records. It only inserts and reads; the
// table rejects updates and deletes.
type AuditRepository struct {
	db *sql.DB
}

// NewAuditRepository creates a new audit repository.
func NewAuditRepository(db *sql.DB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Append inserts one record.
func (r *AuditRepository) Append(ctx context.Context, rec domain.AuditRecord) error {
	query := `
		INSERT INTO audit_log (id, actor_id, actor_label, event_kind, target_entity_id, quantity,
		                       prior_value, new_value, description, outcome, client_address, created_at)
		VALUES ($1, $2, NULLIF($3, ''), $4, $5, $6, $7, $8, $9, $10, NULLIF($11, ''), $12)
	`
	_, err := r.db.ExecContext(ctx, query,
		rec.ID, rec.ActorID, rec.ActorLabel, string(rec.EventKind), rec.TargetEntityID, rec.Quantity,
		rec.PriorValue, rec.NewValue, rec.Description, string(rec.Outcome), rec.ClientAddress, rec.Timestamp,
	)
	return err
}

// List returns the most recent records, newest first.
func (r *AuditRepository) List(ctx context.Context, limit int) ([]domain.AuditRecord, error) {
	query := `
		SELECT id, actor_id, COALESCE(actor_label, ''), event_kind, target_entity_id, quantity,
		       prior_value, new_value, description, outcome, COALESCE(client_address, ''), created_at
		FROM audit_log
		ORDER BY created_at DESC
		LIMIT $1
	`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.AuditRecord
	for rows.Next() {
		var (
			rec     domain.AuditRecord
			kind    string
			outcome string
		)
		if err := rows.Scan(
			&rec.ID, &rec.ActorID, &rec.ActorLabel, &kind, &rec.TargetEntityID, &rec.Quantity,
			&rec.PriorValue, &rec.NewValue, &rec.Description, &outcome, &rec.ClientAddress, &rec.Timestamp,
		); err != nil {
			return nil, err
		}
		rec.EventKind = domain.AuditEventKind(kind)
		rec.Outcome = domain.AuditOutcome(outcome)
		out = append(out, rec)
	}
	return out, rows.Err()
}
