package service

import (
	"context"
	"strings"

	"github.com/google/uuid"

	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/privacy"
)

// SolutionVerifier is the proof-of-work gate registration sits behind.
type SolutionVerifier interface {
	VerifySolution(ctx context.Context, challengeID uuid.UUID, solutionNonce, clientIP string) error
}

// PlayerExport is everything stored about one account, shaped for a
// data-portability download.
type PlayerExport struct {
	Player *domain.Player  `json:"player"`
	Rounds []*domain.Round `json:"rounds"`
}

// PlayerService manages accounts: proof-of-work gated registration, lookup,
// data export and full deletion.
type PlayerService struct {
	players   repository.PlayerStore
	rounds    repository.RoundStore
	limiter   EndpointLimiter
	verifier  SolutionVerifier
	profanity *ProfanityFilter
	board     *LeaderboardService
	audit     AuditRecorder
	log       *logger.Logger
}

// NewPlayerService creates a new player service instance
func NewPlayerService(players repository.PlayerStore, rounds repository.RoundStore, limiter EndpointLimiter,
	verifier SolutionVerifier, profanity *ProfanityFilter, board *LeaderboardService, audit AuditRecorder, log *logger.Logger) *PlayerService {
	return &PlayerService{
		players:   players,
		rounds:    rounds,
		limiter:   limiter,
		verifier:  verifier,
		profanity: profanity,
		board:     board,
		audit:     audit,
		log:       log,
	}
}

// Register creates an account. The caller must present a solvable
// proof-of-work challenge; the username must be well formed, clean and
// unused. Only the digest of the registering IP is kept.
func (s *PlayerService) Register(ctx context.Context, username, clientIP string, challengeID uuid.UUID, solutionNonce string) (*domain.Player, error) {
	if _, err := s.limiter.CheckAndConsume(ctx, clientIP, "players:register"); err != nil {
		return nil, err
	}

	username = strings.TrimSpace(username)
	if err := domain.ValidateUsername(username); err != nil {
		return nil, err
	}

	if s.profanity.ContainsProfanity(username) {
		return nil, errors.NewContentRejectedError(errors.ReasonModerationFailed, "username is not allowed")
	}

	if err := s.verifier.VerifySolution(ctx, challengeID, solutionNonce, clientIP); err != nil {
		return nil, err
	}

	existing, err := s.players.GetByUsername(ctx, username)
	if err != nil {
		return nil, errors.NewInternalError("failed to check username", err)
	}
	if existing != nil {
		return nil, errors.NewConflictError("username is already taken", "username")
	}

	player := domain.NewPlayer(username, privacy.HashIP(clientIP))
	if err := s.players.Create(ctx, player); err != nil {
		return nil, errors.NewInternalError("failed to create player", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditPlayerCreated, domain.ActorPlayer,
			privacy.HashID(player.ID.String()), "", privacy.HashIP(clientIP), "")
	}
	s.log.WithField("player_id", player.ID).Info("player registered")

	return player, nil
}

// Get fetches an account by ID.
func (s *PlayerService) Get(ctx context.Context, id uuid.UUID) (*domain.Player, error) {
	player, err := s.players.GetByID(ctx, id)
	if err != nil {
		return nil, errors.NewInternalError("failed to load player", err)
	}
	if player == nil {
		return nil, errors.NewNotFoundError("player")
	}
	return player, nil
}

// Export assembles everything stored about the account.
func (s *PlayerService) Export(ctx context.Context, id uuid.UUID) (*PlayerExport, error) {
	player, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	rounds, err := s.rounds.ListByPlayer(ctx, id, 1000)
	if err != nil {
		return nil, errors.NewInternalError("failed to load rounds", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditDataExport, domain.ActorPlayer,
			privacy.HashID(id.String()), "", "", "")
	}

	return &PlayerExport{Player: player, Rounds: rounds}, nil
}

// Delete removes the account and its gameplay history, and drops it from
// the leaderboard. Uploaded photos stay in the pool without their uploader
// link.
func (s *PlayerService) Delete(ctx context.Context, id uuid.UUID) error {
	if _, err := s.Get(ctx, id); err != nil {
		return err
	}

	if err := s.players.Delete(ctx, id); err != nil {
		return errors.NewInternalError("failed to delete player", err)
	}

	if s.board != nil {
		if err := s.board.RemovePlayer(ctx, id); err != nil {
			s.log.WithError(err).Warn("failed to drop deleted player from leaderboard")
		}
	}

	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditPlayerDeleted, domain.ActorPlayer,
			privacy.HashID(id.String()), "", "", "")
	}
	s.log.WithField("player_id", id).Info("player deleted")

	return nil
}
