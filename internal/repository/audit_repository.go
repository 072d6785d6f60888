package repository

import (
	"context"
	"fmt"
	"time"

	"airfeeld/internal/domain"
	"airfeeld/pkg/database"
)

// AuditRepository persists the privacy audit trail.
type AuditRepository struct {
	db *database.PostgresDB
}

// NewAuditRepository creates a new audit repository instance
func NewAuditRepository(db *database.PostgresDB) *AuditRepository {
	return &AuditRepository{db: db}
}

// Insert appends an audit entry.
func (r *AuditRepository) Insert(ctx context.Context, e *domain.AuditEntry) error {
	query := `
		INSERT INTO audit_entries (id, action, actor_type, actor_digest,
			target_digest, ip_digest, detail, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		e.ID, e.Action, e.ActorType, e.ActorDigest,
		e.TargetDigest, e.IPDigest, e.Detail, e.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert audit entry: %w", err)
	}

	return nil
}

// DeleteOlderThan trims the trail to the retention horizon.
func (r *AuditRepository) DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM audit_entries WHERE created_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to trim audit trail: %w", err)
	}

	return tag.RowsAffected(), nil
}

// Recent returns the latest entries, newest first.
func (r *AuditRepository) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	query := `
		SELECT id, action, actor_type, actor_digest, target_digest, ip_digest, detail, created_at
		FROM audit_entries
		ORDER BY created_at DESC
		LIMIT $1
	`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query audit entries: %w", err)
	}
	defer rows.Close()

	var entries []*domain.AuditEntry
	for rows.Next() {
		var e domain.AuditEntry
		if err := rows.Scan(&e.ID, &e.Action, &e.ActorType, &e.ActorDigest,
			&e.TargetDigest, &e.IPDigest, &e.Detail, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		entries = append(entries, &e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating audit rows: %w", err)
	}

	return entries, nil
}
