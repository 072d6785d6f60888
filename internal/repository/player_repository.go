package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"airfeeld/internal/domain"
	"airfeeld/pkg/database"
	"airfeeld/pkg/privacy"
)

// PlayerRepository handles player account persistence.
type PlayerRepository struct {
	db *database.PostgresDB
}

// NewPlayerRepository creates a new player repository instance
func NewPlayerRepository(db *database.PostgresDB) *PlayerRepository {
	return &PlayerRepository{db: db}
}

// Create inserts a new player account.
func (r *PlayerRepository) Create(ctx context.Context, p *domain.Player) error {
	query := `
		INSERT INTO players (id, username, registration_ip_digest, total_score,
			rounds_played, photos_uploaded, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, p.Username, p.RegistrationIPDigest, p.TotalScore,
		p.RoundsPlayed, p.PhotosUploaded, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert player: %w", err)
	}

	return nil
}

// GetByID fetches a player by ID. Returns (nil, nil) when no such player
// exists.
func (r *PlayerRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	query := playerSelect + ` WHERE id = $1`

	p, err := scanPlayer(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query player: %w", err)
	}

	return p, nil
}

// GetByUsername fetches a player by username, case-insensitively. Returns
// (nil, nil) when the name is free.
func (r *PlayerRepository) GetByUsername(ctx context.Context, username string) (*domain.Player, error) {
	query := playerSelect + ` WHERE LOWER(username) = LOWER($1)`

	p, err := scanPlayer(r.db.Pool.QueryRow(ctx, query, username))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query player by username: %w", err)
	}

	return p, nil
}

// AddScore credits a completed round to the player's lifetime totals.
func (r *PlayerRepository) AddScore(ctx context.Context, id uuid.UUID, scoreDelta, roundsDelta int) error {
	query := `
		UPDATE players
		SET total_score = total_score + $2, rounds_played = rounds_played + $3
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, id, scoreDelta, roundsDelta)
	if err != nil {
		return fmt.Errorf("failed to add player score: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("player %s not found for score update", id)
	}

	return nil
}

// IncrementPhotosUploaded bumps the player's upload counter.
func (r *PlayerRepository) IncrementPhotosUploaded(ctx context.Context, id uuid.UUID) error {
	query := `UPDATE players SET photos_uploaded = photos_uploaded + 1 WHERE id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, id); err != nil {
		return fmt.Errorf("failed to increment upload count: %w", err)
	}

	return nil
}

// Delete removes the account, its rounds and guesses in one transaction.
// Uploaded photos stay in the pool but lose their uploader link.
func (r *PlayerRepository) Delete(ctx context.Context, id uuid.UUID) error {
	return r.db.InTx(ctx, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx,
			`DELETE FROM guesses WHERE round_id IN (SELECT id FROM rounds WHERE player_id = $1)`, id); err != nil {
			return fmt.Errorf("failed to delete player guesses: %w", err)
		}

		if _, err := tx.Exec(ctx, `DELETE FROM rounds WHERE player_id = $1`, id); err != nil {
			return fmt.Errorf("failed to delete player rounds: %w", err)
		}

		if _, err := tx.Exec(ctx, `UPDATE photos SET uploader_digest = '' WHERE uploader_digest = $1`,
			digestOfPlayer(id)); err != nil {
			return fmt.Errorf("failed to unlink player photos: %w", err)
		}

		tag, err := tx.Exec(ctx, `DELETE FROM players WHERE id = $1`, id)
		if err != nil {
			return fmt.Errorf("failed to delete player: %w", err)
		}
		if tag.RowsAffected() == 0 {
			return fmt.Errorf("player %s not found for deletion", id)
		}

		return nil
	})
}

// TopByScore returns players ordered by lifetime score for leaderboard
// rebuilds.
func (r *PlayerRepository) TopByScore(ctx context.Context, limit int) ([]*domain.Player, error) {
	query := playerSelect + ` ORDER BY total_score DESC, created_at ASC LIMIT $1`

	rows, err := r.db.Pool.Query(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query top players: %w", err)
	}
	defer rows.Close()

	var players []*domain.Player
	for rows.Next() {
		p, err := scanPlayer(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan player row: %w", err)
		}
		players = append(players, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating player rows: %w", err)
	}

	return players, nil
}

// digestOfPlayer is the pseudonymous uploader link stored on photo rows.
func digestOfPlayer(id uuid.UUID) string {
	return privacy.HashID(id.String())
}

const playerSelect = `
	SELECT id, username, registration_ip_digest, total_score,
		rounds_played, photos_uploaded, created_at
	FROM players`

// scanPlayer reads one full player row.
func scanPlayer(row pgx.Row) (*domain.Player, error) {
	var p domain.Player
	err := row.Scan(&p.ID, &p.Username, &p.RegistrationIPDigest, &p.TotalScore,
		&p.RoundsPlayed, &p.PhotosUploaded, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
