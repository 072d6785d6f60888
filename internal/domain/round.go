package domain

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus is the round state machine position.
type RoundStatus string

const (
	RoundActive    RoundStatus = "active"    // currently playable
	RoundCompleted RoundStatus = "completed" // time expiry, budget exhaustion or give-up
	RoundAbandoned RoundStatus = "abandoned" // player left; terminal, analytics only
)

// Round is one guessing session for a player on one photo. FinalScore is
// always the sum of the best-ever aircraft and location sub-scores across
// the round's guesses and never decreases.
type Round struct {
	ID              uuid.UUID   `json:"id" db:"id"`
	PlayerID        uuid.UUID   `json:"player_id" db:"player_id"`
	PhotoID         uuid.UUID   `json:"photo_id" db:"photo_id"`
	Status          RoundStatus `json:"status" db:"status"`
	StartedAt       time.Time   `json:"started_at" db:"started_at"`
	ExpiresAt       time.Time   `json:"expires_at" db:"expires_at"`
	CompletedAt     *time.Time  `json:"completed_at,omitempty" db:"completed_at"`
	GuessesMade     int         `json:"guesses_made" db:"guesses_made"`
	MaxGuesses      int         `json:"max_guesses" db:"max_guesses"`
	AircraftScore   int         `json:"aircraft_score" db:"aircraft_score"`
	LocationScore   int         `json:"location_score" db:"location_score"`
	FinalScore      int         `json:"final_score" db:"final_score"`
	BestAircraft    *string     `json:"best_aircraft_guess,omitempty" db:"best_aircraft_guess"`
	BestLocationLat *float64    `json:"best_location_lat,omitempty" db:"best_location_lat"`
	BestLocationLon *float64    `json:"best_location_lon,omitempty" db:"best_location_lon"`
}

// NewRound starts an active round with a fresh time and guess budget.
func NewRound(playerID, photoID uuid.UUID, duration time.Duration, maxGuesses int) *Round {
	now := time.Now().UTC()
	return &Round{
		ID:         uuid.New(),
		PlayerID:   playerID,
		PhotoID:    photoID,
		Status:     RoundActive,
		StartedAt:  now,
		ExpiresAt:  now.Add(duration),
		MaxGuesses: maxGuesses,
	}
}

// IsTerminal reports whether the round accepts no further guesses.
func (r *Round) IsTerminal() bool {
	return r.Status != RoundActive
}

// IsPlayable reports whether a guess may still be submitted right now.
func (r *Round) IsPlayable(now time.Time) bool {
	return r.Status == RoundActive &&
		!now.After(r.ExpiresAt) &&
		r.GuessesMade < r.MaxGuesses
}

// TimeRemaining returns whole seconds left to play, clamped at 0 once the
// round is no longer playable.
func (r *Round) TimeRemaining(now time.Time) int {
	if !r.IsPlayable(now) {
		return 0
	}
	remaining := int(r.ExpiresAt.Sub(now).Seconds())
	if remaining < 0 {
		return 0
	}
	return remaining
}

// RecordGuess consumes one guess slot and folds the guess's scores into the
// round's best-ever totals. A sub-score replaces the previous best only when
// strictly greater; the associated guess value travels with it.
func (r *Round) RecordGuess(g *Guess) {
	r.GuessesMade++

	if g.AircraftScore > r.AircraftScore {
		r.AircraftScore = g.AircraftScore
		if g.AircraftGuess != nil {
			r.BestAircraft = g.AircraftGuess
		}
	}

	if g.LocationScore > r.LocationScore {
		r.LocationScore = g.LocationScore
		if g.LocationLat != nil {
			r.BestLocationLat = g.LocationLat
		}
		if g.LocationLon != nil {
			r.BestLocationLon = g.LocationLon
		}
	}

	r.FinalScore = r.AircraftScore + r.LocationScore
}

// Complete transitions the round to its normal terminal state. Idempotent on
// already-terminal rounds.
func (r *Round) Complete() {
	if r.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	r.Status = RoundCompleted
	r.CompletedAt = &now
}

// Abandon marks the round as left without completion. Only reachable from
// the active state.
func (r *Round) Abandon() {
	if r.IsTerminal() {
		return
	}
	now := time.Now().UTC()
	r.Status = RoundAbandoned
	r.CompletedAt = &now
}
