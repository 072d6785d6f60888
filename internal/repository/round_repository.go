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

// RoundRepository handles round and guess persistence.
type RoundRepository struct {
	db *database.PostgresDB
}

// NewRoundRepository creates a new round repository instance
func NewRoundRepository(db *database.PostgresDB) *RoundRepository {
	return &RoundRepository{db: db}
}

// Create inserts a freshly started round.
func (r *RoundRepository) Create(ctx context.Context, round *domain.Round) error {
	query := `
		INSERT INTO rounds (id, player_id, photo_id, status, started_at, expires_at,
			guesses_made, max_guesses, aircraft_score, location_score, final_score)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		round.ID, round.PlayerID, round.PhotoID, round.Status, round.StartedAt, round.ExpiresAt,
		round.GuessesMade, round.MaxGuesses, round.AircraftScore, round.LocationScore, round.FinalScore)
	if err != nil {
		return fmt.Errorf("failed to insert round: %w", err)
	}

	return nil
}

// GetByID fetches a round by ID. Returns (nil, nil) when no such round
// exists.
func (r *RoundRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Round, error) {
	query := `
		SELECT id, player_id, photo_id, status, started_at, expires_at, completed_at,
			guesses_made, max_guesses, aircraft_score, location_score, final_score,
			best_aircraft_guess, best_location_lat, best_location_lon
		FROM rounds
		WHERE id = $1
	`

	round, err := scanRound(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query round: %w", err)
	}

	return round, nil
}

// Update persists the round's mutable state after a guess or transition.
func (r *RoundRepository) Update(ctx context.Context, round *domain.Round) error {
	query := `
		UPDATE rounds
		SET status = $2, completed_at = $3, guesses_made = $4,
			aircraft_score = $5, location_score = $6, final_score = $7,
			best_aircraft_guess = $8, best_location_lat = $9, best_location_lon = $10
		WHERE id = $1
	`

	tag, err := r.db.Pool.Exec(ctx, query,
		round.ID, round.Status, round.CompletedAt, round.GuessesMade,
		round.AircraftScore, round.LocationScore, round.FinalScore,
		round.BestAircraft, round.BestLocationLat, round.BestLocationLon)
	if err != nil {
		return fmt.Errorf("failed to update round: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("round %s not found for update", round.ID)
	}

	return nil
}

// RecentPhotoIDs lists the photos a player was served most recently.
func (r *RoundRepository) RecentPhotoIDs(ctx context.Context, playerID uuid.UUID, limit int) ([]uuid.UUID, error) {
	query := `
		SELECT photo_id
		FROM rounds
		WHERE player_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query recent photos: %w", err)
	}
	defer rows.Close()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan photo id: %w", err)
		}
		ids = append(ids, id)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating recent photo rows: %w", err)
	}

	return ids, nil
}

// ListByPlayer returns a player's rounds, newest first.
func (r *RoundRepository) ListByPlayer(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.Round, error) {
	query := `
		SELECT id, player_id, photo_id, status, started_at, expires_at, completed_at,
			guesses_made, max_guesses, aircraft_score, location_score, final_score,
			best_aircraft_guess, best_location_lat, best_location_lon
		FROM rounds
		WHERE player_id = $1
		ORDER BY started_at DESC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, query, playerID, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query player rounds: %w", err)
	}
	defer rows.Close()

	var rounds []*domain.Round
	for rows.Next() {
		round, err := scanRound(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan round row: %w", err)
		}
		rounds = append(rounds, round)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating round rows: %w", err)
	}

	return rounds, nil
}

// AddGuess inserts a scored guess.
func (r *RoundRepository) AddGuess(ctx context.Context, g *domain.Guess) error {
	query := `
		INSERT INTO guesses (id, round_id, guess_number, aircraft_guess,
			location_lat, location_lon, aircraft_score, location_score, distance_km, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		g.ID, g.RoundID, g.GuessNumber, g.AircraftGuess,
		g.LocationLat, g.LocationLon, g.AircraftScore, g.LocationScore, g.DistanceKM, g.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert guess: %w", err)
	}

	return nil
}

// ListGuesses returns a round's guesses in submission order.
func (r *RoundRepository) ListGuesses(ctx context.Context, roundID uuid.UUID) ([]*domain.Guess, error) {
	query := `
		SELECT id, round_id, guess_number, aircraft_guess,
			location_lat, location_lon, aircraft_score, location_score, distance_km, created_at
		FROM guesses
		WHERE round_id = $1
		ORDER BY guess_number ASC
	`

	rows, err := r.db.Pool.Query(ctx, query, roundID)
	if err != nil {
		return nil, fmt.Errorf("failed to query guesses: %w", err)
	}
	defer rows.Close()

	var guesses []*domain.Guess
	for rows.Next() {
		var g domain.Guess
		if err := rows.Scan(&g.ID, &g.RoundID, &g.GuessNumber, &g.AircraftGuess,
			&g.LocationLat, &g.LocationLon, &g.AircraftScore, &g.LocationScore, &g.DistanceKM, &g.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan guess row: %w", err)
		}
		guesses = append(guesses, &g)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating guess rows: %w", err)
	}

	return guesses, nil
}

// SweepStaleActive abandons every active round past its expiry. Abandonment
// carries no score settlement, so a count is all the caller needs.
func (r *RoundRepository) SweepStaleActive(ctx context.Context, now time.Time) (int64, error) {
	query := `
		UPDATE rounds
		SET status = 'abandoned', completed_at = $1
		WHERE status = 'active' AND expires_at < $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, now)
	if err != nil {
		return 0, fmt.Errorf("failed to sweep stale rounds: %w", err)
	}

	return tag.RowsAffected(), nil
}

// scanRound reads one full round row from either a Row or Rows source.
func scanRound(row pgx.Row) (*domain.Round, error) {
	var round domain.Round
	err := row.Scan(
		&round.ID, &round.PlayerID, &round.PhotoID, &round.Status,
		&round.StartedAt, &round.ExpiresAt, &round.CompletedAt,
		&round.GuessesMade, &round.MaxGuesses,
		&round.AircraftScore, &round.LocationScore, &round.FinalScore,
		&round.BestAircraft, &round.BestLocationLat, &round.BestLocationLon)
	if err != nil {
		return nil, err
	}
	return &round, nil
}
