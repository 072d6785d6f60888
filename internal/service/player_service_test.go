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

// stubVerifier accepts or rejects every proof-of-work presentation.
type stubVerifier struct {
	err   error
	calls int
}

func (v *stubVerifier) VerifySolution(context.Context, uuid.UUID, string, string) error {
	v.calls++
	return v.err
}

type playerFixture struct {
	svc      *PlayerService
	players  *fakePlayerStore
	rounds   *fakeRoundStore
	verifier *stubVerifier
	audit    *recordingAudit
}

func newPlayerFixture(t *testing.T) *playerFixture {
	t.Helper()

	players := newFakePlayerStore()
	rounds := newFakeRoundStore()
	verifier := &stubVerifier{}
	audit := &recordingAudit{}
	profanity := NewProfanityFilter([]string{"crud"})

	svc := NewPlayerService(players, rounds, allowAllLimiter{}, verifier, profanity, nil, audit, logger.NewNop())

	return &playerFixture{svc: svc, players: players, rounds: rounds, verifier: verifier, audit: audit}
}

func TestRegisterCreatesPlayer(t *testing.T) {
	fx := newPlayerFixture(t)
	ctx := context.Background()

	player, err := fx.svc.Register(ctx, "  sky_watcher  ", "203.0.113.9", uuid.New(), "42")
	require.NoError(t, err)

	assert.Equal(t, "sky_watcher", player.Username)
	assert.NotEmpty(t, player.RegistrationIPDigest)
	assert.NotContains(t, player.RegistrationIPDigest, "203.0.113.9")
	assert.Equal(t, 1, fx.verifier.calls)
	assert.Contains(t, fx.audit.actions(), domain.AuditPlayerCreated)
}

func TestRegisterRejectsBadUsernames(t *testing.T) {
	fx := newPlayerFixture(t)
	ctx := context.Background()

	cases := []string{"ab", "way_too_long_username_here", "has space", "dash-name", ""}
	for _, username := range cases {
		_, err := fx.svc.Register(ctx, username, "ip", uuid.New(), "42")
		require.Error(t, err, "username %q", username)
		assert.True(t, errors.IsType(err, errors.ErrorTypeValidation), "username %q", username)
	}

	// Validation failures never burn a proof-of-work challenge.
	assert.Zero(t, fx.verifier.calls)
}

func TestRegisterRejectsProfaneUsernames(t *testing.T) {
	fx := newPlayerFixture(t)

	_, err := fx.svc.Register(context.Background(), "crud_lord", "ip", uuid.New(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeContent))
	assert.Zero(t, fx.verifier.calls)
}

func TestRegisterPropagatesProofOfWorkFailure(t *testing.T) {
	fx := newPlayerFixture(t)
	fx.verifier.err = errors.NewProofOfWorkError(errors.ReasonInvalidSolution, "solution does not meet difficulty")

	_, err := fx.svc.Register(context.Background(), "honest_bot", "ip", uuid.New(), "42")
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonInvalidSolution))
}

func TestRegisterRejectsTakenUsernameCaseInsensitively(t *testing.T) {
	fx := newPlayerFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Register(ctx, "AvGeek", "ip", uuid.New(), "42")
	require.NoError(t, err)

	_, err = fx.svc.Register(ctx, "avgeek", "other-ip", uuid.New(), "42")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConflict))
}

func TestExportIncludesRoundsAndAudits(t *testing.T) {
	fx := newPlayerFixture(t)
	ctx := context.Background()

	player, err := fx.svc.Register(ctx, "exporter", "ip", uuid.New(), "42")
	require.NoError(t, err)

	round := domain.NewRound(player.ID, uuid.New(), 2*time.Minute, 5)
	require.NoError(t, fx.rounds.Create(ctx, round))

	export, err := fx.svc.Export(ctx, player.ID)
	require.NoError(t, err)
	assert.Equal(t, player.ID, export.Player.ID)
	require.Len(t, export.Rounds, 1)
	assert.Equal(t, round.ID, export.Rounds[0].ID)
	assert.Contains(t, fx.audit.actions(), domain.AuditDataExport)
}

func TestDeleteRemovesPlayer(t *testing.T) {
	fx := newPlayerFixture(t)
	ctx := context.Background()

	player, err := fx.svc.Register(ctx, "goner", "ip", uuid.New(), "42")
	require.NoError(t, err)

	require.NoError(t, fx.svc.Delete(ctx, player.ID))

	_, err = fx.svc.Get(ctx, player.ID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
	assert.Contains(t, fx.audit.actions(), domain.AuditPlayerDeleted)

	// Deleting twice reports not found rather than succeeding silently.
	err = fx.svc.Delete(ctx, player.ID)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}
