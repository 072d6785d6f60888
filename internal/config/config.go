package config

import (
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// RateLimitRule is a per-endpoint request budget.
type RateLimitRule struct {
	MaxRequests   int
	WindowSeconds int
}

// Config holds all configuration values for the application
type Config struct {
	Port           string
	Environment    string
	LogLevel       string
	AllowedOrigins []string
	DatabaseURL    string
	RedisURL       string

	// Proof of work. Difficulty is the number of leading zero hex characters
	// required of SHA256(challenge_nonce + solution_nonce).
	PowDifficulty        int // normal mode, clamped to [2,6]
	PowTTLSeconds        int // normal mode, clamped to [5,120]
	PowReducedDifficulty int // accessibility mode, clamped to [2,6]
	PowReducedTTLSeconds int // accessibility mode, clamped to [5,120]

	// Rate limiting
	RateLimitEnabled       bool
	RateLimits             map[string]RateLimitRule
	RateLimitDefault       RateLimitRule
	RateWindowGraceSeconds int

	// Gameplay
	RoundDurationSeconds int // clamped to [30,600]
	MaxGuessesPerRound   int // clamped to [1,10]

	// Photos
	DuplicateThreshold int // max Hamming distance treated as near-duplicate
	MinPhotoWidth      int
	MinPhotoHeight     int
	FlagThreshold      int // flags before a photo re-enters review

	// Username and metadata screening. Loaded from the environment so the
	// word list never lives in source.
	ProfanityWords []string

	// Maintenance
	ChallengeRetentionHours int
	AuditRetentionDays      int
	SweepIntervalSeconds    int

	// Leaderboard
	LeaderboardSize int
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file if it exists
	_ = godotenv.Load()

	cfg := &Config{
		Port:           getEnv("PORT", "8080"),
		Environment:    getEnv("ENVIRONMENT", "production"),
		LogLevel:       getEnv("LOG_LEVEL", "info"),
		AllowedOrigins: parseOrigins(getEnv("ALLOWED_ORIGINS", "http://localhost:5173,http://localhost:3000")),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		RedisURL:       getEnv("REDIS_URL", ""),

		PowDifficulty:        clamp(getIntEnv("POW_DIFFICULTY", 4), 2, 6),
		PowTTLSeconds:        clamp(getIntEnv("POW_TTL_SECONDS", 10), 5, 120),
		PowReducedDifficulty: clamp(getIntEnv("POW_REDUCED_DIFFICULTY", 2), 2, 6),
		PowReducedTTLSeconds: clamp(getIntEnv("POW_REDUCED_TTL_SECONDS", 30), 5, 120),

		RateLimitEnabled:       getBoolEnv("RATE_LIMIT_ENABLED", true),
		RateLimits:             defaultRateLimits(),
		RateLimitDefault:       RateLimitRule{MaxRequests: 100, WindowSeconds: 60},
		RateWindowGraceSeconds: getIntEnv("RATE_WINDOW_GRACE_SECONDS", 3600),

		RoundDurationSeconds: clamp(getIntEnv("ROUND_DURATION_SECONDS", 120), 30, 600),
		MaxGuessesPerRound:   clamp(getIntEnv("MAX_GUESSES_PER_ROUND", 5), 1, 10),

		DuplicateThreshold: getIntEnv("DUPLICATE_THRESHOLD", 10),
		MinPhotoWidth:      getIntEnv("MIN_PHOTO_WIDTH", 400),
		MinPhotoHeight:     getIntEnv("MIN_PHOTO_HEIGHT", 300),
		FlagThreshold:      getIntEnv("FLAG_THRESHOLD", 3),

		ProfanityWords: parseList(getEnv("PROFANITY_WORDS", "")),

		ChallengeRetentionHours: getIntEnv("CHALLENGE_RETENTION_HOURS", 24),
		AuditRetentionDays:      getIntEnv("AUDIT_RETENTION_DAYS", 90),
		SweepIntervalSeconds:    getIntEnv("SWEEP_INTERVAL_SECONDS", 600),

		LeaderboardSize: getIntEnv("LEADERBOARD_SIZE", 100),
	}

	return cfg, nil
}

// defaultRateLimits is the static endpoint budget table. Keys are matched
// exactly first, then by longest prefix; pow:create is the dedicated key the
// challenge issuer consumes.
func defaultRateLimits() map[string]RateLimitRule {
	return map[string]RateLimitRule{
		"pow:create":       {MaxRequests: 10, WindowSeconds: 900},
		"players:register": {MaxRequests: 3, WindowSeconds: 86400},
		"photos:upload":    {MaxRequests: 5, WindowSeconds: 3600},
		"photos:flag":      {MaxRequests: 5, WindowSeconds: 86400},
		"game:guess":       {MaxRequests: 100, WindowSeconds: 3600},
		"airports:search":  {MaxRequests: 60, WindowSeconds: 60},
	}
}

// getEnv gets an environment variable with a fallback value
func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// getIntEnv gets an integer environment variable with a fallback value
func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// getBoolEnv gets a boolean environment variable with a fallback value
func getBoolEnv(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.ParseBool(value); err == nil {
			return parsed
		}
	}
	return fallback
}

// parseList splits a comma-separated value, dropping empty entries
func parseList(value string) []string {
	if value == "" {
		return nil
	}
	parts := strings.Split(value, ",")
	result := make([]string, 0, len(parts))
	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}
	return result
}

// parseOrigins parses comma-separated origins into a slice
func parseOrigins(origins string) []string {
	if origins == "" {
		return []string{}
	}

	parts := strings.Split(origins, ",")
	result := make([]string, 0, len(parts))

	for _, part := range parts {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			result = append(result, trimmed)
		}
	}

	return result
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
