package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"

	"airfeeld/internal/domain"
	"airfeeld/pkg/database"
)

// RateWindowRepository handles fixed-window rate limit persistence.
type RateWindowRepository struct {
	db *database.PostgresDB
}

// NewRateWindowRepository creates a new rate window repository instance
func NewRateWindowRepository(db *database.PostgresDB) *RateWindowRepository {
	return &RateWindowRepository{db: db}
}

// Consume increments the live window for (ipDigest, endpoint) in a single
// statement. An expired window restarts at count 1; otherwise the count keeps
// climbing past the limit so the caller can tell denied requests apart. The
// upsert makes concurrent requests serialize on the row without losing
// increments.
func (r *RateWindowRepository) Consume(ctx context.Context, ipDigest, endpoint string, windowSeconds int, now time.Time) (*domain.RateWindow, error) {
	query := `
		INSERT INTO rate_windows (ip_digest, endpoint, request_count, window_start, window_seconds)
		VALUES ($1, $2, 1, $3, $4)
		ON CONFLICT (ip_digest, endpoint) DO UPDATE SET
			request_count = CASE
				WHEN rate_windows.window_start + make_interval(secs => rate_windows.window_seconds) < $3
					THEN 1
				ELSE rate_windows.request_count + 1
			END,
			window_start = CASE
				WHEN rate_windows.window_start + make_interval(secs => rate_windows.window_seconds) < $3
					THEN $3
				ELSE rate_windows.window_start
			END,
			window_seconds = CASE
				WHEN rate_windows.window_start + make_interval(secs => rate_windows.window_seconds) < $3
					THEN $4
				ELSE rate_windows.window_seconds
			END
		RETURNING ip_digest, endpoint, request_count, window_start, window_seconds
	`

	var w domain.RateWindow
	err := r.db.Pool.QueryRow(ctx, query, ipDigest, endpoint, now, windowSeconds).Scan(
		&w.IPDigest, &w.Endpoint, &w.RequestCount, &w.WindowStart, &w.WindowSeconds)
	if err != nil {
		return nil, fmt.Errorf("failed to consume rate window: %w", err)
	}

	return &w, nil
}

// Get fetches the live window without mutating it. Returns (nil, nil) when
// the key has no window yet.
func (r *RateWindowRepository) Get(ctx context.Context, ipDigest, endpoint string) (*domain.RateWindow, error) {
	query := `
		SELECT ip_digest, endpoint, request_count, window_start, window_seconds
		FROM rate_windows
		WHERE ip_digest = $1 AND endpoint = $2
	`

	var w domain.RateWindow
	err := r.db.Pool.QueryRow(ctx, query, ipDigest, endpoint).Scan(
		&w.IPDigest, &w.Endpoint, &w.RequestCount, &w.WindowStart, &w.WindowSeconds)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query rate window: %w", err)
	}

	return &w, nil
}

// DeleteExpiredBefore removes windows that expired more than graceSeconds
// ago. The grace period keeps just-expired windows around for inspection.
func (r *RateWindowRepository) DeleteExpiredBefore(ctx context.Context, now time.Time, graceSeconds int) (int64, error) {
	query := `
		DELETE FROM rate_windows
		WHERE window_start + make_interval(secs => window_seconds + $2) < $1
	`

	tag, err := r.db.Pool.Exec(ctx, query, now, graceSeconds)
	if err != nil {
		return 0, fmt.Errorf("failed to delete expired rate windows: %w", err)
	}

	return tag.RowsAffected(), nil
}
