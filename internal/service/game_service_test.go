package service

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airfeeld/internal/domain"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// scriptedScorer returns pre-programmed sub-scores per call so round math
// can be asserted exactly.
type scriptedScorer struct {
	aircraft []int
	location []int
	aIdx     int
	lIdx     int
}

func (s *scriptedScorer) ScoreAircraft(_, _ string) int {
	score := s.aircraft[s.aIdx]
	s.aIdx++
	return score
}

func (s *scriptedScorer) ScoreLocation(_, _, _, _ float64) (int, float64) {
	score := s.location[s.lIdx]
	s.lIdx++
	return score, 123.4
}

type gameFixture struct {
	svc     *GameService
	rounds  *fakeRoundStore
	photos  *fakePhotoStore
	players *fakePlayerStore
	player  *domain.Player
	photo   *domain.Photo
}

func newGameFixture(t *testing.T, scorer GuessScorer, maxGuesses int) *gameFixture {
	t.Helper()

	cfg := testConfig()
	cfg.MaxGuessesPerRound = maxGuesses

	rounds := newFakeRoundStore()
	photos := newFakePhotoStore()
	players := newFakePlayerStore()
	airports := newFakeAirportStore()

	player := domain.NewPlayer("pilot_1", "digest")
	require.NoError(t, players.Create(context.Background(), player))

	photo := &domain.Photo{
		ID:           uuid.New(),
		AircraftType: "Boeing 737-800",
		Latitude:     51.47,
		Longitude:    -0.4543,
		Status:       domain.PhotoApproved,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, photos.Create(context.Background(), photo))

	svc := NewGameService(rounds, photos, players, airports, scorer, nil, cfg, logger.NewNop())

	return &gameFixture{svc: svc, rounds: rounds, photos: photos, players: players, player: player, photo: photo}
}

func TestSubmitGuessKeepsBestOfEachSubScore(t *testing.T) {
	scorer := &scriptedScorer{aircraft: []int{300, 800}, location: []int{900, 100}}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, updated, err := fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("A320"), f64Ptr(50.0), f64Ptr(0.0))
	require.NoError(t, err)
	assert.Equal(t, 1200, updated.FinalScore)

	guess, updated, err := fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("B737"), f64Ptr(40.0), f64Ptr(10.0))
	require.NoError(t, err)
	assert.Equal(t, 2, guess.GuessNumber)
	assert.Equal(t, 800, updated.AircraftScore)
	assert.Equal(t, 900, updated.LocationScore, "location best must not regress")
	assert.Equal(t, 1700, updated.FinalScore)
	require.NotNil(t, guess.DistanceKM)
	assert.Equal(t, 123.4, *guess.DistanceKM)
}

func TestSubmitGuessBudgetExhaustionCompletesAndSettles(t *testing.T) {
	scorer := &scriptedScorer{aircraft: []int{200, 600}, location: []int{100, 50}}
	fx := newGameFixture(t, scorer, 2)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("x"), f64Ptr(0), f64Ptr(0))
	require.NoError(t, err)
	_, updated, err := fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("y"), f64Ptr(0), f64Ptr(0))
	require.NoError(t, err)

	assert.Equal(t, domain.RoundCompleted, updated.Status)
	assert.Equal(t, 700, updated.FinalScore)

	// Settlement credited the player exactly once.
	player, _ := fx.players.GetByID(ctx, fx.player.ID)
	assert.Equal(t, 700, player.TotalScore)
	assert.Equal(t, 1, player.RoundsPlayed)

	// Photo usage carries the settled score.
	photo, _ := fx.photos.GetByID(ctx, fx.photo.ID)
	assert.Equal(t, 1, photo.TimesUsed)
	assert.Equal(t, 700, photo.ScoreSum)

	// A further guess fails without touching anything.
	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("z"), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonRoundNotActive))
	player, _ = fx.players.GetByID(ctx, fx.player.ID)
	assert.Equal(t, 700, player.TotalScore)
}

func TestSubmitGuessAfterExpiryCompletesRound(t *testing.T) {
	scorer := &scriptedScorer{aircraft: []int{500}, location: []int{500}}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("x"), f64Ptr(0), f64Ptr(0))
	require.NoError(t, err)

	fx.svc.now = func() time.Time { return round.ExpiresAt.Add(time.Second) }

	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("y"), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonRoundExpired))

	stored, _ := fx.rounds.GetByID(ctx, round.ID)
	assert.Equal(t, domain.RoundCompleted, stored.Status)

	// The partial score still settles.
	player, _ := fx.players.GetByID(ctx, fx.player.ID)
	assert.Equal(t, 1000, player.TotalScore)
}

func TestSubmitGuessHidesForeignRounds(t *testing.T) {
	scorer := &scriptedScorer{aircraft: []int{1}, location: []int{1}}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, uuid.New(), strPtr("x"), nil, nil)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestStartRoundAvoidsRecentPhotos(t *testing.T) {
	scorer := &scriptedScorer{}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	second := &domain.Photo{
		ID:           uuid.New(),
		AircraftType: "Airbus A380",
		Status:       domain.PhotoApproved,
		CreatedAt:    time.Now().UTC(),
	}
	require.NoError(t, fx.photos.Create(ctx, second))

	_, first, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, next, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)
	assert.NotEqual(t, first.ID, next.ID, "recently served photo should be avoided")

	// With the whole pool recently seen the fallback still serves a photo.
	_, again, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)
	assert.NotNil(t, again)
}

func TestStartRoundWithoutPhotos(t *testing.T) {
	scorer := &scriptedScorer{}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	require.NoError(t, fx.photos.SetStatus(ctx, fx.photo.ID, domain.PhotoArchived))

	_, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestCompleteRoundIsIdempotent(t *testing.T) {
	scorer := &scriptedScorer{aircraft: []int{400}, location: []int{100}}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("x"), f64Ptr(0), f64Ptr(0))
	require.NoError(t, err)

	done, err := fx.svc.CompleteRound(ctx, round.ID, fx.player.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundCompleted, done.Status)

	_, err = fx.svc.CompleteRound(ctx, round.ID, fx.player.ID)
	require.NoError(t, err)

	player, _ := fx.players.GetByID(ctx, fx.player.ID)
	assert.Equal(t, 500, player.TotalScore, "settlement happens once")
	assert.Equal(t, 1, player.RoundsPlayed)
}

func TestAbandonRoundSettlesNothing(t *testing.T) {
	scorer := &scriptedScorer{aircraft: []int{999}, location: []int{999}}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	_, _, err = fx.svc.SubmitGuess(ctx, round.ID, fx.player.ID, strPtr("x"), f64Ptr(0), f64Ptr(0))
	require.NoError(t, err)

	abandoned, err := fx.svc.AbandonRound(ctx, round.ID, fx.player.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RoundAbandoned, abandoned.Status)

	player, _ := fx.players.GetByID(ctx, fx.player.ID)
	assert.Zero(t, player.TotalScore)

	// Abandoning again is a no-op; completing first forbids abandoning.
	_, err = fx.svc.AbandonRound(ctx, round.ID, fx.player.ID)
	require.NoError(t, err)
}

func TestSweepStaleAbandonsExpiredRounds(t *testing.T) {
	scorer := &scriptedScorer{}
	fx := newGameFixture(t, scorer, 5)
	ctx := context.Background()

	round, _, err := fx.svc.StartRound(ctx, fx.player.ID)
	require.NoError(t, err)

	fx.svc.now = func() time.Time { return round.ExpiresAt.Add(time.Hour) }

	swept, err := fx.svc.SweepStale(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(1), swept)

	stored, _ := fx.rounds.GetByID(ctx, round.ID)
	assert.Equal(t, domain.RoundAbandoned, stored.Status)
}
