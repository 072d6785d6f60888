package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"airfeeld/internal/domain"
	"airfeeld/pkg/database"
)

// ChallengeRepository handles proof-of-work challenge persistence.
type ChallengeRepository struct {
	db *database.PostgresDB
}

// NewChallengeRepository creates a new challenge repository instance
func NewChallengeRepository(db *database.PostgresDB) *ChallengeRepository {
	return &ChallengeRepository{db: db}
}

// Create inserts a freshly issued challenge.
func (r *ChallengeRepository) Create(ctx context.Context, c *domain.Challenge) error {
	query := `
		INSERT INTO pow_challenges (id, challenge_nonce, difficulty, client_ip_digest, created_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		c.ID, c.ChallengeNonce, c.Difficulty, c.ClientIPDigest, c.CreatedAt, c.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to insert challenge: %w", err)
	}

	return nil
}

// GetByID fetches a challenge by ID. Returns (nil, nil) when no such
// challenge exists.
func (r *ChallengeRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Challenge, error) {
	query := `
		SELECT id, challenge_nonce, difficulty, client_ip_digest, solved_nonce, solved_at, created_at, expires_at
		FROM pow_challenges
		WHERE id = $1
	`

	var c domain.Challenge
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(
		&c.ID, &c.ChallengeNonce, &c.Difficulty, &c.ClientIPDigest,
		&c.SolvedNonce, &c.SolvedAt, &c.CreatedAt, &c.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query challenge: %w", err)
	}

	return &c, nil
}

// MarkSolved consumes a challenge with a compare-and-swap on the unsolved
// state. Returns false when another request already solved it.
func (r *ChallengeRepository) MarkSolved(ctx context.Context, id uuid.UUID, solutionNonce string) (bool, error) {
	query := `
		UPDATE pow_challenges
		SET solved_nonce = $2, solved_at = NOW()
		WHERE id = $1 AND solved_nonce IS NULL
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, solutionNonce)
	if err != nil {
		return false, fmt.Errorf("failed to mark challenge solved: %w", err)
	}

	return tag.RowsAffected() == 1, nil
}

// DeleteExpiredBefore removes challenges whose expiry predates the cutoff.
func (r *ChallengeRepository) DeleteExpiredBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	query := `DELETE FROM pow_challenges WHERE expires_at < $1`

	tag, err := r.db.Pool.Exec(ctx, query, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired challenges: %w", err)
	}

	return tag.RowsAffected(), nil
}
