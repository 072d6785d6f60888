package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"airfeeld/internal/config"
	"airfeeld/internal/handler"
	"airfeeld/internal/middleware"
	"airfeeld/pkg/container"
	"airfeeld/pkg/database"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/redis"
)

// Resources holds all resources that need cleanup
type Resources struct {
	db          *database.PostgresDB
	redisClient *redis.Client
	server      *http.Server
	stopSweeper func()
	log         *logger.Logger
	mu          sync.Mutex
	closed      bool
}

// Cleanup gracefully closes all resources
func (r *Resources) Cleanup(ctx context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.closed {
		return nil
	}
	r.closed = true

	var errs []error

	r.log.Info("Starting graceful shutdown...")

	// Shutdown HTTP server first to stop accepting new requests
	if r.server != nil {
		r.log.Info("Shutting down HTTP server...")
		if err := r.server.Shutdown(ctx); err != nil {
			r.log.WithError(err).Error("Failed to shutdown HTTP server")
			errs = append(errs, fmt.Errorf("HTTP server shutdown: %w", err))
		} else {
			r.log.Info("HTTP server shutdown complete")
		}
	}

	if r.stopSweeper != nil {
		r.log.Info("Stopping maintenance sweeper...")
		r.stopSweeper()
	}

	if r.redisClient != nil {
		r.log.Info("Closing Redis connection...")
		if err := r.redisClient.Close(); err != nil {
			r.log.WithError(err).Error("Failed to close Redis connection")
			errs = append(errs, fmt.Errorf("Redis close: %w", err))
		}
	}

	if r.db != nil {
		r.log.Info("Closing database connection pool...")
		r.db.Close()
	}

	if len(errs) > 0 {
		r.log.WithField("error_count", len(errs)).Error("Cleanup completed with errors")
		return fmt.Errorf("cleanup completed with %d errors: %v", len(errs), errs)
	}

	r.log.Info("Graceful shutdown completed successfully")
	return nil
}

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	log, err := logger.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}

	log.WithFields(map[string]interface{}{
		"port":        cfg.Port,
		"log_level":   cfg.LogLevel,
		"environment": cfg.Environment,
	}).Info("Starting airfeeld server")

	// Initialize database connection
	ctx := context.Background()
	db, err := database.NewPostgresDB(ctx, cfg.DatabaseURL)
	if err != nil {
		log.WithError(err).Fatal("Failed to connect to database")
	}

	// Initialize Redis connection. The leaderboard degrades to Postgres-only
	// reads without it.
	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = redis.NewClient(cfg.RedisURL, cfg.Environment, log.Logger)
		if err != nil {
			log.WithError(err).Warn("Failed to connect to Redis, continuing without cache")
			redisClient = nil
		}
	}

	// Wire repositories, services and handlers
	c := container.New(cfg, log, db, redisClient)

	router := setupRouter(c, db, redisClient)

	server := &http.Server{
		Addr:           ":" + cfg.Port,
		Handler:        router,
		ReadTimeout:    10 * time.Second,
		WriteTimeout:   60 * time.Second,
		IdleTimeout:    120 * time.Second,
		MaxHeaderBytes: 1 << 20,
	}

	resources := &Resources{
		db:          db,
		redisClient: redisClient,
		server:      server,
		stopSweeper: startSweeper(c),
		log:         log,
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM, os.Interrupt)

	defer func() {
		cleanupCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
		defer cancel()
		if err := resources.Cleanup(cleanupCtx); err != nil {
			log.WithError(err).Error("Cleanup completed with errors")
		}
	}()

	serverErrChan := make(chan error, 1)
	go func() {
		log.Info("Server starting on port " + cfg.Port)
		if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.WithError(err).Error("Server error occurred")
			serverErrChan <- err
		}
	}()

	select {
	case sig := <-quit:
		log.WithField("signal", sig.String()).Info("Received shutdown signal")
	case err := <-serverErrChan:
		log.WithError(err).Error("Server failed, initiating shutdown")
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 25*time.Second)
	defer cancel()

	if err := resources.Cleanup(shutdownCtx); err != nil {
		log.WithError(err).Error("Graceful shutdown completed with errors")
		os.Exit(1)
	}

	log.Info("Application shutdown complete")
}

// startSweeper runs periodic maintenance: expired challenges, stale rate
// windows, timed-out rounds and old audit entries. Returns a stop function.
func startSweeper(c *container.Container) func() {
	cfg := c.Config
	log := c.Logger

	interval := time.Duration(cfg.SweepIntervalSeconds) * time.Second
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				ctx, cancel := context.WithTimeout(context.Background(), time.Minute)

				retention := time.Duration(cfg.ChallengeRetentionHours) * time.Hour
				if n, err := c.PoW.CleanupExpired(ctx, retention); err != nil {
					log.WithError(err).Warn("challenge sweep failed")
				} else if n > 0 {
					log.WithField("deleted", n).Debug("expired challenges swept")
				}

				if n, err := c.RateLimit.CleanupExpired(ctx); err != nil {
					log.WithError(err).Warn("rate window sweep failed")
				} else if n > 0 {
					log.WithField("deleted", n).Debug("stale rate windows swept")
				}

				if n, err := c.Game.SweepStale(ctx); err != nil {
					log.WithError(err).Warn("round sweep failed")
				} else if n > 0 {
					log.WithField("abandoned", n).Info("stale rounds abandoned")
				}

				auditRetention := time.Duration(cfg.AuditRetentionDays) * 24 * time.Hour
				if n, err := c.Audit.Sweep(ctx, auditRetention); err != nil {
					log.WithError(err).Warn("audit sweep failed")
				} else if n > 0 {
					log.WithField("deleted", n).Debug("old audit entries swept")
				}

				cancel()
			}
		}
	}()

	return func() {
		ticker.Stop()
		close(done)
	}
}

// setupRouter configures and returns the HTTP router
func setupRouter(c *container.Container, db *database.PostgresDB, redisClient *redis.Client) *chi.Mux {
	cfg := c.Config
	log := c.Logger

	r := chi.NewRouter()

	corsConfig := middleware.DefaultCORSConfig()
	corsConfig.AllowedOrigins = cfg.AllowedOrigins

	r.Use(middleware.CORS(corsConfig, log))
	r.Use(chiMiddleware.RequestID)
	r.Use(chiMiddleware.RealIP)
	r.Use(chiMiddleware.Recoverer)
	r.Use(chiMiddleware.Compress(5))
	r.Use(chiMiddleware.Timeout(60 * time.Second))

	healthHandler := handler.NewHealthHandler(db, redisClient, log)
	challengeHandler := handler.NewChallengeHandler(c.PoW, log)
	playerHandler := handler.NewPlayerHandler(c.Player, c.Game, log)
	gameHandler := handler.NewGameHandler(c.Game, log)
	photoHandler := handler.NewPhotoHandler(c.Photo, log)
	airportHandler := handler.NewAirportHandler(c.Airport, log)

	// Health check
	r.Get("/health", healthHandler.Check)

	r.Route("/api/v1", func(r chi.Router) {
		// Challenge issuance and registration spend their budgets inside the
		// service layer; no limiter middleware on these.
		r.Post("/challenges", challengeHandler.Create)

		r.Route("/players", func(r chi.Router) {
			r.Post("/", playerHandler.Register)
			r.Get("/{playerID}", playerHandler.Get)
			r.Get("/{playerID}/export", playerHandler.Export)
			r.Delete("/{playerID}", playerHandler.Delete)
			r.Get("/{playerID}/rounds", playerHandler.Rounds)
		})

		r.Route("/rounds", func(r chi.Router) {
			r.Post("/", gameHandler.Start)
			r.Get("/{roundID}", gameHandler.Get)
			r.With(middleware.RateLimit(c.RateLimit, "game:guess", log)).
				Post("/{roundID}/guesses", gameHandler.Guess)
			r.Post("/{roundID}/complete", gameHandler.Complete)
			r.Post("/{roundID}/abandon", gameHandler.Abandon)
		})

		r.Route("/photos", func(r chi.Router) {
			r.Post("/", photoHandler.Upload)
			r.Get("/stats", photoHandler.Stats)
			r.Get("/{photoID}", photoHandler.Get)
			r.Post("/{photoID}/flag", photoHandler.Flag)
			r.Post("/{photoID}/review", photoHandler.Review)
		})

		r.Route("/airports", func(r chi.Router) {
			r.With(middleware.RateLimit(c.RateLimit, "airports:search", log)).
				Get("/search", airportHandler.Search)
			r.Get("/{code}", airportHandler.Get)
		})

		if c.Leaderboard != nil {
			leaderboardHandler := handler.NewLeaderboardHandler(c.Leaderboard, log)
			r.Route("/leaderboard", func(r chi.Router) {
				r.Get("/", leaderboardHandler.Top)
				r.Get("/players/{playerID}", leaderboardHandler.PlayerRank)
			})
		}
	})

	return r
}
