package service

import (
	"context"
	"time"

	"github.com/google/uuid"

	"airfeeld/internal/config"
	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/privacy"
)

// PoWService issues and verifies proof-of-work challenges. A challenge is
// bound to the digest of the IP it was issued to and can be consumed exactly
// once.
type PoWService struct {
	challenges repository.ChallengeStore
	limiter    EndpointLimiter
	audit      AuditRecorder
	log        *logger.Logger

	difficulty        int
	ttl               time.Duration
	reducedDifficulty int
	reducedTTL        time.Duration

	now func() time.Time
}

// NewPoWService creates a new proof-of-work service instance
func NewPoWService(challenges repository.ChallengeStore, limiter EndpointLimiter, audit AuditRecorder, cfg *config.Config, log *logger.Logger) *PoWService {
	return &PoWService{
		challenges:        challenges,
		limiter:           limiter,
		audit:             audit,
		log:               log,
		difficulty:        cfg.PowDifficulty,
		ttl:               time.Duration(cfg.PowTTLSeconds) * time.Second,
		reducedDifficulty: cfg.PowReducedDifficulty,
		reducedTTL:        time.Duration(cfg.PowReducedTTLSeconds) * time.Second,
		now:               func() time.Time { return time.Now().UTC() },
	}
}

// IssueChallenge creates a fresh challenge for the caller's IP, spending
// from the dedicated pow:create budget. Accessibility mode trades a longer
// TTL for lower difficulty so slow devices can still register.
func (s *PoWService) IssueChallenge(ctx context.Context, clientIP string, accessibilityMode bool) (*domain.Challenge, error) {
	if _, err := s.limiter.CheckAndConsume(ctx, clientIP, "pow:create"); err != nil {
		return nil, err
	}

	difficulty, ttl := s.difficulty, s.ttl
	if accessibilityMode {
		difficulty, ttl = s.reducedDifficulty, s.reducedTTL
	}

	challenge := domain.NewChallenge(privacy.HashIP(clientIP), difficulty, ttl)
	if err := s.challenges.Create(ctx, challenge); err != nil {
		return nil, errors.NewInternalError("failed to issue challenge", err)
	}

	s.log.WithFields(map[string]interface{}{
		"challenge_id": challenge.ID,
		"difficulty":   difficulty,
	}).Debug("challenge issued")

	return challenge, nil
}

// VerifySolution checks a solution against a previously issued challenge.
// Failure checks run in a fixed order: unknown challenge, already used,
// expired, wrong IP, then the hash rule itself. Success consumes the
// challenge; a concurrent duplicate verify loses the compare-and-swap and
// fails as already used.
func (s *PoWService) VerifySolution(ctx context.Context, challengeID uuid.UUID, solutionNonce, clientIP string) error {
	ipDigest := privacy.HashIP(clientIP)

	challenge, err := s.challenges.GetByID(ctx, challengeID)
	if err != nil {
		return errors.NewInternalError("failed to load challenge", err)
	}
	if challenge == nil {
		return s.fail(ctx, challengeID, ipDigest, errors.ReasonChallengeNotFound, "challenge not found")
	}

	if challenge.IsSolved() {
		return s.fail(ctx, challengeID, ipDigest, errors.ReasonChallengeUsed, "challenge already used")
	}

	if challenge.IsExpired(s.now()) {
		return s.fail(ctx, challengeID, ipDigest, errors.ReasonChallengeExpired, "challenge expired")
	}

	if challenge.ClientIPDigest != ipDigest {
		return s.fail(ctx, challengeID, ipDigest, errors.ReasonIPMismatch, "challenge was issued to a different client")
	}

	if !challenge.CheckSolution(solutionNonce) {
		return s.fail(ctx, challengeID, ipDigest, errors.ReasonInvalidSolution, "solution does not satisfy the difficulty target")
	}

	consumed, err := s.challenges.MarkSolved(ctx, challengeID, solutionNonce)
	if err != nil {
		return errors.NewInternalError("failed to consume challenge", err)
	}
	if !consumed {
		return s.fail(ctx, challengeID, ipDigest, errors.ReasonChallengeUsed, "challenge already used")
	}

	return nil
}

// CleanupExpired deletes challenges whose expiry predates now minus the
// retention period.
func (s *PoWService) CleanupExpired(ctx context.Context, retention time.Duration) (int64, error) {
	return s.challenges.DeleteExpiredBefore(ctx, s.now().Add(-retention))
}

// fail audits a verification failure and returns the matching error.
func (s *PoWService) fail(ctx context.Context, challengeID uuid.UUID, ipDigest, reason, message string) error {
	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditPowFailed, domain.ActorAnonymous,
			"", privacy.HashID(challengeID.String()), ipDigest, reason)
	}
	s.log.WithFields(map[string]interface{}{
		"challenge_id": challengeID,
		"reason":       reason,
	}).Debug("challenge verification failed")

	return errors.NewProofOfWorkError(reason, message)
}
