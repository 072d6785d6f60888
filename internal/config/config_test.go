package config

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 4, cfg.PowDifficulty)
	assert.Equal(t, 10, cfg.PowTTLSeconds)
	assert.Equal(t, 2, cfg.PowReducedDifficulty)
	assert.Equal(t, 30, cfg.PowReducedTTLSeconds)
	assert.Equal(t, 120, cfg.RoundDurationSeconds)
	assert.Equal(t, 5, cfg.MaxGuessesPerRound)
	assert.Equal(t, 10, cfg.DuplicateThreshold)
	assert.True(t, cfg.RateLimitEnabled)
}

func TestLoadClampsPowSettings(t *testing.T) {
	t.Setenv("POW_DIFFICULTY", "9")
	t.Setenv("POW_TTL_SECONDS", "1")
	t.Setenv("POW_REDUCED_DIFFICULTY", "0")
	t.Setenv("POW_REDUCED_TTL_SECONDS", "500")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 6, cfg.PowDifficulty, "difficulty is capped at 6")
	assert.Equal(t, 5, cfg.PowTTLSeconds, "TTL has a 5s floor")
	assert.Equal(t, 2, cfg.PowReducedDifficulty, "difficulty has a floor of 2")
	assert.Equal(t, 120, cfg.PowReducedTTLSeconds, "TTL is capped at 120s")
}

func TestDefaultRateLimitTable(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, RateLimitRule{MaxRequests: 10, WindowSeconds: 900}, cfg.RateLimits["pow:create"])
	assert.Equal(t, RateLimitRule{MaxRequests: 3, WindowSeconds: 86400}, cfg.RateLimits["players:register"])
	assert.Equal(t, RateLimitRule{MaxRequests: 100, WindowSeconds: 60}, cfg.RateLimitDefault)
}
