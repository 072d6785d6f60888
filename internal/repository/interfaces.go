package repository

import (
	"context"
	"time"

	"github.com/google/uuid"

	"airfeeld/internal/domain"
)

// ChallengeStore persists proof-of-work challenges.
type ChallengeStore interface {
	Create(ctx context.Context, c *domain.Challenge) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error)
	// MarkSolved atomically consumes a challenge; false means it was already
	// solved by a concurrent request.
	MarkSolved(ctx context.Context, id uuid.UUID, solutionNonce string) (bool, error)
	DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// RateWindowStore persists fixed rate limiting windows.
type RateWindowStore interface {
	// Consume atomically increments the live window for (ipDigest, endpoint),
	// starting or resetting it when expired, and returns the resulting window.
	// The caller decides allowance from the returned count.
	Consume(ctx context.Context, ipDigest, endpoint string, windowSeconds int, now time.Time) (*domain.RateWindow, error)
	Get(ctx context.Context, ipDigest, endpoint string) (*domain.RateWindow, error)
	DeleteExpiredBefore(ctx context.Context, now time.Time, graceSeconds int) (int64, error)
}

// RoundStore persists rounds and their guesses.
type RoundStore interface {
	Create(ctx context.Context, r *domain.Round) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Round, error)
	Update(ctx context.Context, r *domain.Round) error
	// RecentPhotoIDs lists photos the player saw most recently, newest first.
	RecentPhotoIDs(ctx context.Context, playerID uuid.UUID, limit int) ([]uuid.UUID, error)
	ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.Round, error)
	AddGuess(ctx context.Context, g *domain.Guess) error
	ListGuesses(ctx context.Context, roundID uuid.UUID) ([]*domain.Guess, error)
	// SweepStaleActive abandons every active round past its expiry and
	// returns how many it transitioned.
	SweepStaleActive(ctx context.Context, now time.Time) (int64, error)
}

// PhotoStore persists photos and their dedup fingerprints.
type PhotoStore interface {
	Create(ctx context.Context, p *domain.Photo) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error)
	RandomApproved(ctx context.Context, exclude []uuid.UUID) (*domain.Photo, error)
	Fingerprints(ctx context.Context) ([]domain.PhotoFingerprint, error)
	ExistsByFileDigest(ctx context.Context, fileDigest string) (bool, error)
	SetStatus(ctx context.Context, id uuid.UUID, status domain.PhotoStatus) error
	// RecordUsage folds one settled round into the photo's play statistics.
	RecordUsage(ctx context.Context, id uuid.UUID, roundScore int) error
	// AddFlag increments the flag counter and returns the new count.
	AddFlag(ctx context.Context, id uuid.UUID) (int, error)
	CountApproved(ctx context.Context) (int, error)
}

// PlayerStore persists player accounts.
type PlayerStore interface {
	Create(ctx context.Context, p *domain.Player) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error)
	GetByUsername(ctx context.Context, username string) (*domain.Player, error)
	AddScore(ctx context.Context, id uuid.UUID, scoreDelta, roundsDelta int) error
	IncrementPhotosUploaded(ctx context.Context, id uuid.UUID) error
	// Delete removes the account and its gameplay history in one transaction
	// and unlinks uploaded photos from the account.
	Delete(ctx context.Context, id uuid.UUID) error
	TopByScore(ctx context.Context, limit int) ([]*domain.Player, error)
}

// AirportStore reads the airport reference table.
type AirportStore interface {
	GetByCode(ctx context.Context, code string) (*domain.Airport, error)
	Search(ctx context.Context, query string, limit int) ([]*domain.Airport, error)
}

// AuditStore persists the privacy audit trail.
type AuditStore interface {
	Insert(ctx context.Context, e *domain.AuditEntry) error
	Recent(ctx context.Context, limit int) ([]*domain.AuditEntry, error)
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)
}
