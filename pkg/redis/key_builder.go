package redis

import "fmt"

// KeyBuilder provides environment-aware Redis key building functionality
type KeyBuilder struct {
	prefix string // Environment prefix (staging/prod)
}

// NewKeyBuilder creates a new key builder with environment-based prefix
func NewKeyBuilder(environment string) *KeyBuilder {
	prefix := "prod"
	if environment == "development" || environment == "staging" {
		prefix = "staging"
	}

	return &KeyBuilder{prefix: prefix}
}

// BuildKey constructs a Redis key with the environment prefix
func (kb *KeyBuilder) BuildKey(key string) string {
	return fmt.Sprintf("%s:%s", kb.prefix, key)
}

// GetPrefix returns the current environment prefix
func (kb *KeyBuilder) GetPrefix() string {
	return kb.prefix
}

// Leaderboard key builders
func (kb *KeyBuilder) KeyLeaderboardGlobal() string {
	return kb.BuildKey(KeyLeaderboardGlobal)
}

func (kb *KeyBuilder) KeyLeaderboardSynced() string {
	return kb.BuildKey(KeyLeaderboardSynced)
}

// Gameplay key builders
func (kb *KeyBuilder) KeyApprovedPhotoCount() string {
	return kb.BuildKey(KeyApprovedPhotoCount)
}

// KeyCustom builds an arbitrary prefixed key from a pattern
func (kb *KeyBuilder) KeyCustom(pattern string, args ...interface{}) string {
	return kb.BuildKey(fmt.Sprintf(pattern, args...))
}
