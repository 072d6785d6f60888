package service

import (
	"context"
	"strconv"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/redis"
)

// LeaderboardEntry is one ranked row of the global leaderboard.
type LeaderboardEntry struct {
	Rank     int       `json:"rank"`
	PlayerID uuid.UUID `json:"player_id"`
	Username string    `json:"username"`
	Score    int       `json:"score"`
}

// LeaderboardService keeps the global score ranking in a Redis sorted set.
// Round settlements write through; a cold or flushed set is rebuilt from
// Postgres on first read.
type LeaderboardService struct {
	cache   *redis.Client
	players repository.PlayerStore
	size    int
	log     *logger.Logger
}

// NewLeaderboardService creates a new leaderboard service instance
func NewLeaderboardService(cache *redis.Client, players repository.PlayerStore, size int, log *logger.Logger) *LeaderboardService {
	return &LeaderboardService{cache: cache, players: players, size: size, log: log}
}

// AddScore write-throughs a settled round score for a player.
func (s *LeaderboardService) AddScore(ctx context.Context, playerID uuid.UUID, delta int) error {
	if delta == 0 {
		return nil
	}
	_, err := s.cache.ZIncrBy(ctx, s.cache.KeyBuilder.KeyLeaderboardGlobal(), float64(delta), playerID.String())
	return err
}

// RemovePlayer drops a deleted account from the ranking.
func (s *LeaderboardService) RemovePlayer(ctx context.Context, playerID uuid.UUID) error {
	return s.cache.ZRem(ctx, s.cache.KeyBuilder.KeyLeaderboardGlobal(), playerID.String())
}

// Top returns the first n ranked entries, rebuilding the set from Postgres
// when it is cold.
func (s *LeaderboardService) Top(ctx context.Context, n int) ([]LeaderboardEntry, error) {
	if n <= 0 || n > s.size {
		n = s.size
	}

	key := s.cache.KeyBuilder.KeyLeaderboardGlobal()

	card, err := s.cache.ZCard(ctx, key)
	if err != nil {
		return nil, errors.NewInternalError("leaderboard unavailable", err)
	}
	if card == 0 {
		if err := s.Rebuild(ctx); err != nil {
			return nil, err
		}
	}

	rows, err := s.cache.ZRevRangeWithScores(ctx, key, 0, int64(n-1))
	if err != nil {
		return nil, errors.NewInternalError("leaderboard unavailable", err)
	}

	entries := make([]LeaderboardEntry, 0, len(rows))
	for i, row := range rows {
		member, _ := row.Member.(string)
		playerID, err := uuid.Parse(member)
		if err != nil {
			s.log.WithField("member", member).Warn("skipping malformed leaderboard member")
			continue
		}

		entry := LeaderboardEntry{
			Rank:     i + 1,
			PlayerID: playerID,
			Score:    int(row.Score),
		}
		if player, err := s.players.GetByID(ctx, playerID); err == nil && player != nil {
			entry.Username = player.Username
		}
		entries = append(entries, entry)
	}

	return entries, nil
}

// PlayerRank returns a player's entry, or nil when unranked.
func (s *LeaderboardService) PlayerRank(ctx context.Context, playerID uuid.UUID) (*LeaderboardEntry, error) {
	key := s.cache.KeyBuilder.KeyLeaderboardGlobal()
	member := playerID.String()

	rank, err := s.cache.ZRevRank(ctx, key, member)
	if err != nil {
		if redis.IsNil(err) {
			return nil, nil
		}
		return nil, errors.NewInternalError("leaderboard unavailable", err)
	}

	score, err := s.cache.ZScore(ctx, key, member)
	if err != nil && !redis.IsNil(err) {
		return nil, errors.NewInternalError("leaderboard unavailable", err)
	}

	entry := &LeaderboardEntry{
		Rank:     int(rank) + 1,
		PlayerID: playerID,
		Score:    int(score),
	}
	if player, err := s.players.GetByID(ctx, playerID); err == nil && player != nil {
		entry.Username = player.Username
	}

	return entry, nil
}

// Rebuild reloads the sorted set from the persistent player totals.
func (s *LeaderboardService) Rebuild(ctx context.Context) error {
	players, err := s.players.TopByScore(ctx, s.size)
	if err != nil {
		return errors.NewInternalError("leaderboard rebuild failed", err)
	}

	key := s.cache.KeyBuilder.KeyLeaderboardGlobal()

	members := make([]goredis.Z, 0, len(players))
	for _, p := range players {
		members = append(members, goredis.Z{Score: float64(p.TotalScore), Member: p.ID.String()})
	}
	if len(members) > 0 {
		if err := s.cache.ZAdd(ctx, key, members...); err != nil {
			return errors.NewInternalError("leaderboard rebuild failed", err)
		}
	}

	if err := s.cache.Set(ctx, s.cache.KeyBuilder.KeyLeaderboardSynced(),
		strconv.FormatInt(time.Now().UTC().Unix(), 10), 0); err != nil {
		s.log.WithError(err).Warn("failed to record leaderboard rebuild time")
	}

	s.log.WithField("players", len(members)).Info("leaderboard rebuilt")
	return nil
}
