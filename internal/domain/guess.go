package domain

import (
	"time"

	"github.com/google/uuid"
)

// Guess is one submitted answer inside a round. Immutable once scored; a
// guess may carry an aircraft answer, a location answer, or both.
type Guess struct {
	ID            uuid.UUID `json:"id" db:"id"`
	RoundID       uuid.UUID `json:"round_id" db:"round_id"`
	GuessNumber   int       `json:"guess_number" db:"guess_number"`
	AircraftGuess *string   `json:"aircraft_guess,omitempty" db:"aircraft_guess"`
	LocationLat   *float64  `json:"location_lat,omitempty" db:"location_lat"`
	LocationLon   *float64  `json:"location_lon,omitempty" db:"location_lon"`
	AircraftScore int       `json:"aircraft_score" db:"aircraft_score"`
	LocationScore int       `json:"location_score" db:"location_score"`
	DistanceKM    *float64  `json:"distance_km,omitempty" db:"distance_km"`
	CreatedAt     time.Time `json:"created_at" db:"created_at"`
}

// NewGuess builds a scored guess for the given round slot.
func NewGuess(roundID uuid.UUID, number int, aircraft *string, lat, lon *float64, aircraftScore, locationScore int) *Guess {
	return &Guess{
		ID:            uuid.New(),
		RoundID:       roundID,
		GuessNumber:   number,
		AircraftGuess: aircraft,
		LocationLat:   lat,
		LocationLon:   lon,
		AircraftScore: aircraftScore,
		LocationScore: locationScore,
		CreatedAt:     time.Now().UTC(),
	}
}

// HasAircraft reports whether an aircraft answer was submitted.
func (g *Guess) HasAircraft() bool {
	return g.AircraftGuess != nil && *g.AircraftGuess != ""
}

// HasLocation reports whether a location answer was submitted.
func (g *Guess) HasLocation() bool {
	return g.LocationLat != nil && g.LocationLon != nil
}
