package domain

import (
	"time"

	"github.com/google/uuid"
)

// AuditAction identifies what happened in an audit entry.
type AuditAction string

const (
	AuditPlayerCreated      AuditAction = "player_created"
	AuditPlayerDeleted      AuditAction = "player_deleted"
	AuditPhotoUploaded      AuditAction = "photo_uploaded"
	AuditPhotoModerated     AuditAction = "photo_moderated"
	AuditDataExport         AuditAction = "data_export"
	AuditRateLimitTriggered AuditAction = "rate_limit_triggered"
	AuditPowFailed          AuditAction = "pow_failed"
)

// ActorType classifies who performed an audited action.
type ActorType string

const (
	ActorSystem    ActorType = "system"
	ActorPlayer    ActorType = "player"
	ActorAdmin     ActorType = "admin"
	ActorAnonymous ActorType = "anonymous"
)

// AuditEntry records a privacy-relevant event. Actor, target and IP are
// stored only as SHA-256 digests so the trail itself holds no raw identity.
type AuditEntry struct {
	ID           uuid.UUID   `json:"id" db:"id"`
	Action       AuditAction `json:"action" db:"action"`
	ActorType    ActorType   `json:"actor_type" db:"actor_type"`
	ActorDigest  string      `json:"actor_digest" db:"actor_digest"`
	TargetDigest string      `json:"target_digest,omitempty" db:"target_digest"`
	IPDigest     string      `json:"-" db:"ip_digest"`
	Detail       string      `json:"detail,omitempty" db:"detail"`
	CreatedAt    time.Time   `json:"created_at" db:"created_at"`
}

// NewAuditEntry builds an entry timestamped now. All digest arguments must
// already be hashed by the caller.
func NewAuditEntry(action AuditAction, actorType ActorType, actorDigest, targetDigest, ipDigest, detail string) *AuditEntry {
	return &AuditEntry{
		ID:           uuid.New(),
		Action:       action,
		ActorType:    actorType,
		ActorDigest:  actorDigest,
		TargetDigest: targetDigest,
		IPDigest:     ipDigest,
		Detail:       detail,
		CreatedAt:    time.Now().UTC(),
	}
}
