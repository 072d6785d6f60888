package container

import (
	"airfeeld/internal/config"
	"airfeeld/internal/repository"
	"airfeeld/internal/service"
	"airfeeld/pkg/database"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/redis"
)

// Container holds all application dependencies. Built once at startup so
// handlers share single service and repository instances.
type Container struct {
	Config *config.Config
	Logger *logger.Logger
	DB     *database.PostgresDB
	Cache  *redis.Client

	// Repositories
	Challenges  *repository.ChallengeRepository
	RateWindows *repository.RateWindowRepository
	Players     *repository.PlayerRepository
	Photos      *repository.PhotoRepository
	Rounds      *repository.RoundRepository
	Airports    *repository.AirportRepository
	AuditLog    *repository.AuditRepository

	// Services
	Audit       *service.AuditService
	RateLimit   *service.RateLimitService
	PoW         *service.PoWService
	Profanity   *service.ProfanityFilter
	Leaderboard *service.LeaderboardService
	Player      *service.PlayerService
	Photo       *service.PhotoService
	Game        *service.GameService
	Airport     *service.AirportService
}

// New wires every repository and service. Cache may be nil; the leaderboard
// is skipped and dependent services fall back to Postgres-only paths.
func New(cfg *config.Config, log *logger.Logger, db *database.PostgresDB, cache *redis.Client) *Container {
	c := &Container{
		Config: cfg,
		Logger: log,
		DB:     db,
		Cache:  cache,
	}

	c.Challenges = repository.NewChallengeRepository(db)
	c.RateWindows = repository.NewRateWindowRepository(db)
	c.Players = repository.NewPlayerRepository(db)
	c.Photos = repository.NewPhotoRepository(db)
	c.Rounds = repository.NewRoundRepository(db)
	c.Airports = repository.NewAirportRepository(db)
	c.AuditLog = repository.NewAuditRepository(db)

	c.Audit = service.NewAuditService(c.AuditLog, log)
	c.RateLimit = service.NewRateLimitService(c.RateWindows, c.Audit, cfg, log)
	c.PoW = service.NewPoWService(c.Challenges, c.RateLimit, c.Audit, cfg, log)
	c.Profanity = service.NewProfanityFilter(cfg.ProfanityWords)

	if cache != nil {
		c.Leaderboard = service.NewLeaderboardService(cache, c.Players, cfg.LeaderboardSize, log)
	}

	scorer := service.NewScoringEngine()
	var board service.ScoreReporter
	if c.Leaderboard != nil {
		board = c.Leaderboard
	}
	c.Game = service.NewGameService(c.Rounds, c.Photos, c.Players, c.Airports, scorer, board, cfg, log)

	c.Player = service.NewPlayerService(c.Players, c.Rounds, c.RateLimit, c.PoW, c.Profanity, c.Leaderboard, c.Audit, log)

	duplicates := service.NewDuplicateDetector(c.Photos, cfg.DuplicateThreshold, log)
	moderation := service.NewModerationService(cfg.MinPhotoWidth, cfg.MinPhotoHeight)
	c.Photo = service.NewPhotoService(c.Photos, c.Players, c.RateLimit, duplicates, moderation,
		c.Profanity, cache, c.Audit, cfg, log)

	c.Airport = service.NewAirportService(c.Airports, log)

	return c
}
