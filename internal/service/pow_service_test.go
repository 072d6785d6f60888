package service

import (
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airfeeld/internal/domain"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

func newTestPoW(t *testing.T) (*PoWService, *fakeChallengeStore, *recordingAudit) {
	t.Helper()

	cfg := testConfig()
	cfg.PowDifficulty = 2
	cfg.PowReducedDifficulty = 2

	store := newFakeChallengeStore()
	audit := &recordingAudit{}
	return NewPoWService(store, allowAllLimiter{}, audit, cfg, logger.NewNop()), store, audit
}

// solveChallenge brute forces a nonce satisfying the difficulty target.
// Difficulty 2 needs ~256 attempts on average.
func solveChallenge(t *testing.T, c *domain.Challenge) string {
	t.Helper()
	for i := 0; i < 1_000_000; i++ {
		nonce := strconv.Itoa(i)
		if domain.SolvesChallenge(c.ChallengeNonce, nonce, c.Difficulty) {
			return nonce
		}
	}
	t.Fatal("no solution found")
	return ""
}

func TestIssueAndVerifyRoundTrip(t *testing.T) {
	svc, _, _ := newTestPoW(t)
	ctx := context.Background()

	c, err := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err)
	assert.Len(t, c.ChallengeNonce, 32)
	assert.Equal(t, 2, c.Difficulty)

	err = svc.VerifySolution(ctx, c.ID, solveChallenge(t, c), "203.0.113.9")
	assert.NoError(t, err)
}

func TestVerifyRejectsReplay(t *testing.T) {
	svc, _, audit := newTestPoW(t)
	ctx := context.Background()

	c, err := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err)

	solution := solveChallenge(t, c)
	require.NoError(t, svc.VerifySolution(ctx, c.ID, solution, "203.0.113.9"))

	// The same valid solution never verifies twice.
	err = svc.VerifySolution(ctx, c.ID, solution, "203.0.113.9")
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonChallengeUsed))
	assert.Equal(t, []domain.AuditAction{domain.AuditPowFailed}, audit.actions())
}

func TestVerifyFailureOrder(t *testing.T) {
	svc, store, _ := newTestPoW(t)
	ctx := context.Background()

	// Unknown challenge wins over everything.
	err := svc.VerifySolution(ctx, uuid.New(), "whatever", "203.0.113.9")
	assert.True(t, errors.HasReason(err, errors.ReasonChallengeNotFound))

	// Already-used beats expired: consume a challenge, then age it out.
	c, err2 := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err2)
	require.NoError(t, svc.VerifySolution(ctx, c.ID, solveChallenge(t, c), "203.0.113.9"))
	svc.now = func() time.Time { return c.ExpiresAt.Add(time.Minute) }
	err = svc.VerifySolution(ctx, c.ID, "whatever", "203.0.113.9")
	assert.True(t, errors.HasReason(err, errors.ReasonChallengeUsed))

	// Expired beats IP mismatch.
	svc.now = func() time.Time { return time.Now().UTC() }
	c2, err3 := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err3)
	svc.now = func() time.Time { return c2.ExpiresAt.Add(time.Minute) }
	err = svc.VerifySolution(ctx, c2.ID, "whatever", "198.51.100.7")
	assert.True(t, errors.HasReason(err, errors.ReasonChallengeExpired))

	// IP mismatch beats an invalid solution.
	svc.now = func() time.Time { return time.Now().UTC() }
	c3, err4 := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err4)
	err = svc.VerifySolution(ctx, c3.ID, "whatever", "198.51.100.7")
	assert.True(t, errors.HasReason(err, errors.ReasonIPMismatch))

	// Finally the hash rule itself.
	err = svc.VerifySolution(ctx, c3.ID, "not-a-solution", "203.0.113.9")
	assert.True(t, errors.HasReason(err, errors.ReasonInvalidSolution))

	// Nothing above consumed c3.
	stored, _ := store.GetByID(ctx, c3.ID)
	assert.False(t, stored.IsSolved())
}

func TestIssueChallengePropagatesLimiterError(t *testing.T) {
	cfg := testConfig()
	audit := &recordingAudit{}
	limiter := NewRateLimitService(newFakeRateWindowStore(), audit, cfg, logger.NewNop())
	svc := NewPoWService(newFakeChallengeStore(), limiter, audit, cfg, logger.NewNop())
	ctx := context.Background()

	// pow:create allows 10 per window.
	for i := 0; i < 10; i++ {
		_, err := svc.IssueChallenge(ctx, "203.0.113.9", false)
		require.NoError(t, err)
	}

	_, err := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeRateLimit))
}

func TestAccessibilityModeLowersDifficulty(t *testing.T) {
	cfg := testConfig()
	svc := NewPoWService(newFakeChallengeStore(), allowAllLimiter{}, &recordingAudit{}, cfg, logger.NewNop())
	ctx := context.Background()

	normal, err := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err)
	reduced, err := svc.IssueChallenge(ctx, "203.0.113.9", true)
	require.NoError(t, err)

	assert.Equal(t, cfg.PowDifficulty, normal.Difficulty)
	assert.Equal(t, cfg.PowReducedDifficulty, reduced.Difficulty)
	assert.True(t, reduced.ExpiresAt.Sub(reduced.CreatedAt) > normal.ExpiresAt.Sub(normal.CreatedAt))
}

func TestCleanupExpiredChallenges(t *testing.T) {
	svc, store, _ := newTestPoW(t)
	ctx := context.Background()

	c, err := svc.IssueChallenge(ctx, "203.0.113.9", false)
	require.NoError(t, err)

	svc.now = func() time.Time { return c.ExpiresAt.Add(25 * time.Hour) }
	deleted, err := svc.CleanupExpired(ctx, 24*time.Hour)
	require.NoError(t, err)
	assert.Equal(t, int64(1), deleted)

	stored, _ := store.GetByID(ctx, c.ID)
	assert.Nil(t, stored)
}
