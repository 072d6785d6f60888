package service

import (
	"context"
	"time"

	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/logger"
)

// AuditRecorder is the write side of the audit trail as the other services
// see it. Recording is best effort; implementations never fail the caller.
type AuditRecorder interface {
	Record(ctx context.Context, action domain.AuditAction, actor domain.ActorType, actorDigest, targetDigest, ipDigest, detail string)
}

// AuditService owns the append-only privacy audit trail. Every identifier
// that reaches it must already be a digest.
type AuditService struct {
	store repository.AuditStore
	log   *logger.Logger
}

// NewAuditService creates a new audit service instance
func NewAuditService(store repository.AuditStore, log *logger.Logger) *AuditService {
	return &AuditService{store: store, log: log}
}

// Record appends one entry. Failures are logged and swallowed so an audit
// outage never blocks gameplay or abuse controls.
func (s *AuditService) Record(ctx context.Context, action domain.AuditAction, actor domain.ActorType, actorDigest, targetDigest, ipDigest, detail string) {
	entry := domain.NewAuditEntry(action, actor, actorDigest, targetDigest, ipDigest, detail)

	if err := s.store.Insert(ctx, entry); err != nil {
		s.log.WithError(err).WithField("action", string(action)).Warn("audit entry dropped")
	}
}

// Recent returns the latest entries for operational inspection.
func (s *AuditService) Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error) {
	if limit <= 0 || limit > 500 {
		limit = 100
	}
	return s.store.Recent(ctx, limit)
}

// Sweep trims entries older than the retention period.
func (s *AuditService) Sweep(ctx context.Context, retention time.Duration) (int64, error) {
	return s.store.DeleteOlderThan(ctx, time.Now().UTC().Add(-retention))
}
