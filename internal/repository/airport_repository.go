package repository

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"

	"airfeeld/internal/domain"
	"airfeeld/pkg/database"
)

// AirportRepository reads the airport reference table.
type AirportRepository struct {
	db *database.PostgresDB
}

// NewAirportRepository creates a new airport repository instance
func NewAirportRepository(db *database.PostgresDB) *AirportRepository {
	return &AirportRepository{db: db}
}

// GetByCode fetches an airport by IATA code. Returns (nil, nil) when the
// code is unknown.
func (r *AirportRepository) GetByCode(ctx context.Context, code string) (*domain.Airport, error) {
	query := `
		SELECT code, name, city, country, latitude, longitude
		FROM airports
		WHERE code = $1
	`

	var a domain.Airport
	err := r.db.Pool.QueryRow(ctx, query, strings.ToUpper(code)).Scan(
		&a.Code, &a.Name, &a.City, &a.Country, &a.Latitude, &a.Longitude)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to query airport: %w", err)
	}

	return &a, nil
}

// Search finds airports whose code, name or city matches the query,
// case-insensitively, ordered by code.
func (r *AirportRepository) Search(ctx context.Context, query string, limit int) ([]*domain.Airport, error) {
	sql := `
		SELECT code, name, city, country, latitude, longitude
		FROM airports
		WHERE code ILIKE $1 OR name ILIKE $1 OR city ILIKE $1
		ORDER BY code ASC
		LIMIT $2
	`

	rows, err := r.db.Pool.Query(ctx, sql, "%"+query+"%", limit)
	if err != nil {
		return nil, fmt.Errorf("failed to search airports: %w", err)
	}
	defer rows.Close()

	var airports []*domain.Airport
	for rows.Next() {
		var a domain.Airport
		if err := rows.Scan(&a.Code, &a.Name, &a.City, &a.Country, &a.Latitude, &a.Longitude); err != nil {
			return nil, fmt.Errorf("failed to scan airport row: %w", err)
		}
		airports = append(airports, &a)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating airport rows: %w", err)
	}

	return airports, nil
}
