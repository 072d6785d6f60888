package service

import (
	"context"
	"strings"

	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

const maxAirportResults = 20

// AirportService answers airport lookups for the location autocomplete.
type AirportService struct {
	airports repository.AirportStore
	log      *logger.Logger
}

// NewAirportService creates a new airport service instance
func NewAirportService(airports repository.AirportStore, log *logger.Logger) *AirportService {
	return &AirportService{airports: airports, log: log}
}

// GetByCode resolves an IATA or ICAO code.
func (s *AirportService) GetByCode(ctx context.Context, code string) (*domain.Airport, error) {
	code = strings.ToUpper(strings.TrimSpace(code))
	if len(code) < 3 || len(code) > 4 {
		return nil, errors.NewValidationError("airport code must be 3 or 4 letters",
			map[string]interface{}{"field": "code"})
	}

	airport, err := s.airports.GetByCode(ctx, code)
	if err != nil {
		return nil, errors.NewInternalError("airport lookup failed", err)
	}
	if airport == nil {
		return nil, errors.NewNotFoundError("airport")
	}
	return airport, nil
}

// Search matches airports by code, name or city.
func (s *AirportService) Search(ctx context.Context, query string, limit int) ([]*domain.Airport, error) {
	query = strings.TrimSpace(query)
	if len(query) < 2 {
		return nil, errors.NewValidationError("query must be at least 2 characters",
			map[string]interface{}{"field": "q"})
	}
	if limit <= 0 || limit > maxAirportResults {
		limit = maxAirportResults
	}

	airports, err := s.airports.Search(ctx, query, limit)
	if err != nil {
		return nil, errors.NewInternalError("airport search failed", err)
	}
	return airports, nil
}
