package service

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"airfeeld/internal/config"
	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// recentPhotoWindow is how many recently served photos a new round tries to
// avoid repeating.
const recentPhotoWindow = 20

// GuessScorer turns guesses into sub-scores.
type GuessScorer interface {
	ScoreAircraft(guess, actual string) int
	ScoreLocation(guessLat, guessLon, truthLat, truthLon float64) (int, float64)
}

// ScoreReporter receives settled round scores, typically a leaderboard
// write-through.
type ScoreReporter interface {
	AddScore(ctx context.Context, playerID uuid.UUID, delta int) error
}

// GameService drives the round state machine: starting rounds, scoring
// guesses against a photo's ground truth, and settling completed rounds into
// player and photo statistics.
type GameService struct {
	rounds   repository.RoundStore
	photos   repository.PhotoStore
	players  repository.PlayerStore
	airports repository.AirportStore
	scorer   GuessScorer
	board    ScoreReporter
	log      *logger.Logger

	roundDuration time.Duration
	maxGuesses    int

	now func() time.Time

	// locks serialize guess handling per round so guesses_made stays
	// monotone under concurrent submissions.
	locks [64]sync.Mutex
}

// NewGameService creates a new game service instance
func NewGameService(rounds repository.RoundStore, photos repository.PhotoStore, players repository.PlayerStore,
	airports repository.AirportStore, scorer GuessScorer, board ScoreReporter, cfg *config.Config, log *logger.Logger) *GameService {
	return &GameService{
		rounds:        rounds,
		photos:        photos,
		players:       players,
		airports:      airports,
		scorer:        scorer,
		board:         board,
		log:           log,
		roundDuration: time.Duration(cfg.RoundDurationSeconds) * time.Second,
		maxGuesses:    cfg.MaxGuessesPerRound,
		now:           func() time.Time { return time.Now().UTC() },
	}
}

func (s *GameService) lockFor(roundID uuid.UUID) *sync.Mutex {
	return &s.locks[int(roundID[0])%len(s.locks)]
}

// StartRound opens a fresh round on a random approved photo, avoiding the
// player's recently served photos when the pool allows it.
func (s *GameService) StartRound(ctx context.Context, playerID uuid.UUID) (*domain.Round, *domain.Photo, error) {
	player, err := s.players.GetByID(ctx, playerID)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to load player", err)
	}
	if player == nil {
		return nil, nil, errors.NewNotFoundError("player")
	}

	recent, err := s.rounds.RecentPhotoIDs(ctx, playerID, recentPhotoWindow)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to load recent photos", err)
	}

	photo, err := s.photos.RandomApproved(ctx, recent)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to pick a photo", err)
	}
	if photo == nil && len(recent) > 0 {
		// Small pools fall back to repeats rather than refusing to play.
		photo, err = s.photos.RandomApproved(ctx, nil)
		if err != nil {
			return nil, nil, errors.NewInternalError("failed to pick a photo", err)
		}
	}
	if photo == nil {
		return nil, nil, errors.NewNotFoundError("photo")
	}

	round := domain.NewRound(playerID, photo.ID, s.roundDuration, s.maxGuesses)
	round.StartedAt = s.now()
	round.ExpiresAt = round.StartedAt.Add(s.roundDuration)

	if err := s.rounds.Create(ctx, round); err != nil {
		return nil, nil, errors.NewInternalError("failed to create round", err)
	}

	s.log.WithFields(map[string]interface{}{
		"round_id":  round.ID,
		"player_id": playerID,
	}).Info("round started")

	return round, photo, nil
}

// SubmitGuess scores one guess against the round's photo. Terminal and
// expired rounds fail after transitioning; reaching the guess budget
// completes the round as a side effect.
func (s *GameService) SubmitGuess(ctx context.Context, roundID, playerID uuid.UUID, aircraftGuess *string, lat, lon *float64) (*domain.Guess, *domain.Round, error) {
	mu := s.lockFor(roundID)
	mu.Lock()
	defer mu.Unlock()

	round, err := s.ownedRound(ctx, roundID, playerID)
	if err != nil {
		return nil, nil, err
	}

	if round.IsTerminal() {
		return nil, nil, errors.NewGameplayError(errors.ReasonRoundNotActive, "round is no longer active")
	}

	if s.now().After(round.ExpiresAt) {
		round.Complete()
		s.settle(ctx, round)
		if err := s.rounds.Update(ctx, round); err != nil {
			return nil, nil, errors.NewInternalError("failed to update round", err)
		}
		return nil, nil, errors.NewGameplayError(errors.ReasonRoundExpired, "round time is up")
	}

	if round.GuessesMade >= round.MaxGuesses {
		round.Complete()
		s.settle(ctx, round)
		if err := s.rounds.Update(ctx, round); err != nil {
			return nil, nil, errors.NewInternalError("failed to update round", err)
		}
		return nil, nil, errors.NewGameplayError(errors.ReasonRoundNotActive, "guess budget exhausted")
	}

	photo, err := s.photos.GetByID(ctx, round.PhotoID)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to load photo", err)
	}

	var aircraftScore, locationScore int
	var distanceKM *float64

	if photo != nil && aircraftGuess != nil && *aircraftGuess != "" {
		aircraftScore = s.scorer.ScoreAircraft(*aircraftGuess, photo.AircraftType)
	}

	if photo != nil && lat != nil && lon != nil {
		if truthLat, truthLon, ok := s.truthCoords(ctx, photo); ok {
			var d float64
			locationScore, d = s.scorer.ScoreLocation(*lat, *lon, truthLat, truthLon)
			distanceKM = &d
		}
	}

	guess := domain.NewGuess(round.ID, round.GuessesMade+1, aircraftGuess, lat, lon, aircraftScore, locationScore)
	guess.DistanceKM = distanceKM

	if err := s.rounds.AddGuess(ctx, guess); err != nil {
		return nil, nil, errors.NewInternalError("failed to store guess", err)
	}

	round.RecordGuess(guess)

	if round.GuessesMade >= round.MaxGuesses {
		round.Complete()
		s.settle(ctx, round)
	}

	if err := s.rounds.Update(ctx, round); err != nil {
		return nil, nil, errors.NewInternalError("failed to update round", err)
	}

	s.log.WithFields(map[string]interface{}{
		"round_id":       round.ID,
		"guess_number":   guess.GuessNumber,
		"aircraft_score": aircraftScore,
		"location_score": locationScore,
	}).Info("guess scored")

	return guess, round, nil
}

// CompleteRound is the explicit give-up. Idempotent on terminal rounds.
func (s *GameService) CompleteRound(ctx context.Context, roundID, playerID uuid.UUID) (*domain.Round, error) {
	mu := s.lockFor(roundID)
	mu.Lock()
	defer mu.Unlock()

	round, err := s.ownedRound(ctx, roundID, playerID)
	if err != nil {
		return nil, err
	}

	if round.Status == domain.RoundActive {
		round.Complete()
		s.settle(ctx, round)
		if err := s.rounds.Update(ctx, round); err != nil {
			return nil, errors.NewInternalError("failed to update round", err)
		}
	}

	return round, nil
}

// AbandonRound marks an active round as walked away from. No scores settle.
// Completed rounds cannot be retroactively abandoned.
func (s *GameService) AbandonRound(ctx context.Context, roundID, playerID uuid.UUID) (*domain.Round, error) {
	mu := s.lockFor(roundID)
	mu.Lock()
	defer mu.Unlock()

	round, err := s.ownedRound(ctx, roundID, playerID)
	if err != nil {
		return nil, err
	}

	switch round.Status {
	case domain.RoundAbandoned:
		return round, nil
	case domain.RoundCompleted:
		return nil, errors.NewGameplayError(errors.ReasonRoundNotActive, "completed rounds cannot be abandoned")
	}

	round.Abandon()
	if err := s.rounds.Update(ctx, round); err != nil {
		return nil, errors.NewInternalError("failed to update round", err)
	}

	return round, nil
}

// GetRound returns a round and its guesses to its owner.
func (s *GameService) GetRound(ctx context.Context, roundID, playerID uuid.UUID) (*domain.Round, []*domain.Guess, error) {
	round, err := s.ownedRound(ctx, roundID, playerID)
	if err != nil {
		return nil, nil, err
	}

	guesses, err := s.rounds.ListGuesses(ctx, roundID)
	if err != nil {
		return nil, nil, errors.NewInternalError("failed to load guesses", err)
	}

	return round, guesses, nil
}

// GetPlayerRounds lists a player's recent rounds.
func (s *GameService) GetPlayerRounds(ctx context.Context, playerID uuid.UUID, limit int) ([]*domain.Round, error) {
	if limit <= 0 || limit > 50 {
		limit = 10
	}
	rounds, err := s.rounds.ListByPlayer(ctx, playerID, limit)
	if err != nil {
		return nil, errors.NewInternalError("failed to load rounds", err)
	}
	return rounds, nil
}

// SweepStale abandons active rounds whose expiry has passed. Run
// periodically by the maintenance loop.
func (s *GameService) SweepStale(ctx context.Context) (int64, error) {
	return s.rounds.SweepStaleActive(ctx, s.now())
}

// ownedRound loads a round and hides foreign rounds behind not-found.
func (s *GameService) ownedRound(ctx context.Context, roundID, playerID uuid.UUID) (*domain.Round, error) {
	round, err := s.rounds.GetByID(ctx, roundID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load round", err)
	}
	if round == nil || round.PlayerID != playerID {
		return nil, errors.NewNotFoundError("round")
	}
	return round, nil
}

// truthCoords resolves the photo's true position, preferring the tagged
// airport's coordinates over the photo's own.
func (s *GameService) truthCoords(ctx context.Context, photo *domain.Photo) (float64, float64, bool) {
	if photo.AirportCode != "" {
		airport, err := s.airports.GetByCode(ctx, photo.AirportCode)
		if err != nil {
			s.log.WithError(err).Warn("airport lookup failed, falling back to photo coordinates")
		} else if airport != nil {
			return airport.Latitude, airport.Longitude, true
		}
	}

	if photo.Latitude == 0 && photo.Longitude == 0 {
		return 0, 0, false
	}
	return photo.Latitude, photo.Longitude, true
}

// settle folds a freshly completed round into player totals, photo usage
// stats and the leaderboard. Stat failures are logged, never surfaced; the
// round transition itself has already happened.
func (s *GameService) settle(ctx context.Context, round *domain.Round) {
	if err := s.players.AddScore(ctx, round.PlayerID, round.FinalScore, 1); err != nil {
		s.log.WithError(err).WithField("round_id", round.ID).Error("failed to credit player score")
	}

	if err := s.photos.RecordUsage(ctx, round.PhotoID, round.FinalScore); err != nil {
		s.log.WithError(err).WithField("round_id", round.ID).Warn("failed to record photo usage")
	}

	if s.board != nil {
		if err := s.board.AddScore(ctx, round.PlayerID, round.FinalScore); err != nil {
			s.log.WithError(err).WithField("round_id", round.ID).Warn("leaderboard update failed")
		}
	}
}
