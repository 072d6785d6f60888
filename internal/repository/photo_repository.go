package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"

	"airfeeld/internal/domain"
	"airfeeld/pkg/database"
)

// PhotoRepository handles photo persistence and dedup fingerprint reads.
type PhotoRepository struct {
	db *database.PostgresDB
}

// NewPhotoRepository creates a new photo repository instance
func NewPhotoRepository(db *database.PostgresDB) *PhotoRepository {
	return &PhotoRepository{db: db}
}

// Create inserts a new photo in pending state.
func (r *PhotoRepository) Create(ctx context.Context, p *domain.Photo) error {
	query := `
		INSERT INTO photos (id, uploader_digest, storage_key, file_digest, perceptual_hash,
			aircraft_type, registration, airline, airport_code, latitude, longitude,
			width, height, status, flag_count, times_used, score_sum, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)
	`

	_, err := r.db.Pool.Exec(ctx, query,
		p.ID, p.UploaderDigest, p.StorageKey, p.FileDigest, p.PerceptualHash,
		p.AircraftType, p.Registration, p.Airline, p.AirportCode, p.Latitude, p.Longitude,
		p.Width, p.Height, p.Status, p.FlagCount, p.TimesUsed, p.ScoreSum, p.CreatedAt)
	if err != nil {
		return fmt.Errorf("failed to insert photo: %w", err)
	}

	return nil
}

// GetByID fetches a photo by ID. Returns (nil, nil) when no such photo
// exists.
func (r *PhotoRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.Photo, error) {
	query := photoSelect + ` WHERE id = $1`

	p, err := scanPhoto(r.db.Pool.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query photo: %w", err)
	}

	return p, nil
}

// RandomApproved picks a uniformly random approved photo, preferring one the
// player has not just seen. Returns (nil, nil) when no candidate exists.
func (r *PhotoRepository) RandomApproved(ctx context.Context, exclude []uuid.UUID) (*domain.Photo, error) {
	if exclude == nil {
		// a nil slice would reach Postgres as NULL and exclude everything
		exclude = []uuid.UUID{}
	}

	query := photoSelect + `
		WHERE status = 'approved' AND NOT (id = ANY($1))
		ORDER BY random()
		LIMIT 1
	`

	p, err := scanPhoto(r.db.Pool.QueryRow(ctx, query, exclude))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to pick random photo: %w", err)
	}

	return p, nil
}

// Fingerprints returns the dedup projection of every non-rejected photo.
func (r *PhotoRepository) Fingerprints(ctx context.Context) ([]domain.PhotoFingerprint, error) {
	query := `
		SELECT id, file_digest, perceptual_hash
		FROM photos
		WHERE status <> 'rejected'
	`

	rows, err := r.db.Pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to query fingerprints: %w", err)
	}
	defer rows.Close()

	var fps []domain.PhotoFingerprint
	for rows.Next() {
		var fp domain.PhotoFingerprint
		if err := rows.Scan(&fp.PhotoID, &fp.FileDigest, &fp.PerceptualHash); err != nil {
			return nil, fmt.Errorf("failed to scan fingerprint row: %w", err)
		}
		fps = append(fps, fp)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating fingerprint rows: %w", err)
	}

	return fps, nil
}

// ExistsByFileDigest reports whether an exact byte-identical upload exists.
func (r *PhotoRepository) ExistsByFileDigest(ctx context.Context, fileDigest string) (bool, error) {
	query := `SELECT EXISTS(SELECT 1 FROM photos WHERE file_digest = $1 AND status <> 'rejected')`

	var exists bool
	if err := r.db.Pool.QueryRow(ctx, query, fileDigest).Scan(&exists); err != nil {
		return false, fmt.Errorf("failed to check file digest: %w", err)
	}

	return exists, nil
}

// SetStatus moves a photo to a new moderation state.
func (r *PhotoRepository) SetStatus(ctx context.Context, id uuid.UUID, status domain.PhotoStatus) error {
	query := `UPDATE photos SET status = $2 WHERE id = $1`

	tag, err := r.db.Pool.Exec(ctx, query, id, status)
	if err != nil {
		return fmt.Errorf("failed to set photo status: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return fmt.Errorf("photo %s not found for status update", id)
	}

	return nil
}

// RecordUsage folds one settled round into the photo's play statistics.
func (r *PhotoRepository) RecordUsage(ctx context.Context, id uuid.UUID, roundScore int) error {
	query := `UPDATE photos SET times_used = times_used + 1, score_sum = score_sum + $2 WHERE id = $1`

	if _, err := r.db.Pool.Exec(ctx, query, id, roundScore); err != nil {
		return fmt.Errorf("failed to record photo usage: %w", err)
	}

	return nil
}

// AddFlag increments the flag counter and returns the new count.
func (r *PhotoRepository) AddFlag(ctx context.Context, id uuid.UUID) (int, error) {
	query := `
		UPDATE photos
		SET flag_count = flag_count + 1
		WHERE id = $1
		RETURNING flag_count
	`

	var count int
	err := r.db.Pool.QueryRow(ctx, query, id).Scan(&count)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return 0, fmt.Errorf("photo %s not found for flagging", id)
		}
		return 0, fmt.Errorf("failed to flag photo: %w", err)
	}

	return count, nil
}

// CountApproved counts photos currently in rotation.
func (r *PhotoRepository) CountApproved(ctx context.Context) (int, error) {
	query := `SELECT COUNT(*) FROM photos WHERE status = 'approved'`

	var count int
	if err := r.db.Pool.QueryRow(ctx, query).Scan(&count); err != nil {
		return 0, fmt.Errorf("failed to count approved photos: %w", err)
	}

	return count, nil
}

const photoSelect = `
	SELECT id, uploader_digest, storage_key, file_digest, perceptual_hash,
		aircraft_type, registration, airline, airport_code, latitude, longitude,
		width, height, status, flag_count, times_used, score_sum, created_at
	FROM photos`

// scanPhoto reads one full photo row.
func scanPhoto(row pgx.Row) (*domain.Photo, error) {
	var p domain.Photo
	err := row.Scan(
		&p.ID, &p.UploaderDigest, &p.StorageKey, &p.FileDigest, &p.PerceptualHash,
		&p.AircraftType, &p.Registration, &p.Airline, &p.AirportCode, &p.Latitude, &p.Longitude,
		&p.Width, &p.Height, &p.Status, &p.FlagCount, &p.TimesUsed, &p.ScoreSum, &p.CreatedAt)
	if err != nil {
		return nil, err
	}
	return &p, nil
}
