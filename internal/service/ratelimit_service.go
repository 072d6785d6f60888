package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"airfeeld/internal/config"
	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/privacy"
)

// RateLimitResult describes the state of a window after a successful
// consume, for X-RateLimit response headers.
type RateLimitResult struct {
	Limit     int
	Remaining int
	ResetAt   time.Time
}

// EndpointLimiter is the consume side of rate limiting as other services
// see it.
type EndpointLimiter interface {
	CheckAndConsume(ctx context.Context, clientIP, endpoint string) (*RateLimitResult, error)
}

// RateLimitService enforces fixed-window budgets per (ip digest, endpoint)
// key. Expired windows reset to a count of 1 on the next request, so a
// client that waits out the window starts clean regardless of how far past
// the limit it ran.
type RateLimitService struct {
	store       repository.RateWindowStore
	audit       AuditRecorder
	log         *logger.Logger
	enabled     bool
	rules       map[string]config.RateLimitRule
	defaultRule config.RateLimitRule
	graceSecs   int

	// now is swappable in tests to move windows through time.
	now func() time.Time
}

// NewRateLimitService creates a new rate limit service instance
func NewRateLimitService(store repository.RateWindowStore, audit AuditRecorder, cfg *config.Config, log *logger.Logger) *RateLimitService {
	return &RateLimitService{
		store:       store,
		audit:       audit,
		log:         log,
		enabled:     cfg.RateLimitEnabled,
		rules:       cfg.RateLimits,
		defaultRule: cfg.RateLimitDefault,
		graceSecs:   cfg.RateWindowGraceSeconds,
		now:         func() time.Time { return time.Now().UTC() },
	}
}

// CheckAndConsume spends one request from the caller's budget for the given
// endpoint key. Over-limit calls return a rate_limit AppError carrying a
// retry-after of at least one second; everything else returns header state.
func (s *RateLimitService) CheckAndConsume(ctx context.Context, clientIP, endpoint string) (*RateLimitResult, error) {
	rule := s.ruleFor(endpoint)

	if !s.enabled {
		return &RateLimitResult{
			Limit:     rule.MaxRequests,
			Remaining: rule.MaxRequests,
			ResetAt:   s.now().Add(time.Duration(rule.WindowSeconds) * time.Second),
		}, nil
	}

	ipDigest := privacy.HashIP(clientIP)
	now := s.now()

	w, err := s.store.Consume(ctx, ipDigest, endpoint, rule.WindowSeconds, now)
	if err != nil {
		return nil, errors.NewInternalError("rate limit check failed", err)
	}

	if w.RequestCount > rule.MaxRequests {
		retryAfter := int(w.WindowEnd().Sub(now).Seconds())
		if retryAfter < 1 {
			retryAfter = 1
		}

		if s.audit != nil {
			s.audit.Record(ctx, domain.AuditRateLimitTriggered, domain.ActorAnonymous,
				"", "", ipDigest, fmt.Sprintf("endpoint=%s count=%d", endpoint, w.RequestCount))
		}
		s.log.WithFields(map[string]interface{}{
			"endpoint":  endpoint,
			"ip_digest": shortDigest(ipDigest),
			"count":     w.RequestCount,
		}).Warn("rate limit exceeded")

		return nil, errors.NewRateLimitError(retryAfter, rule.MaxRequests, rule.WindowSeconds)
	}

	return &RateLimitResult{
		Limit:     rule.MaxRequests,
		Remaining: clampNonNegative(rule.MaxRequests - w.RequestCount),
		ResetAt:   w.WindowEnd(),
	}, nil
}

// GetRemaining reports the caller's budget without spending from it.
func (s *RateLimitService) GetRemaining(ctx context.Context, clientIP, endpoint string) (*RateLimitResult, error) {
	rule := s.ruleFor(endpoint)
	now := s.now()

	fresh := &RateLimitResult{
		Limit:     rule.MaxRequests,
		Remaining: rule.MaxRequests,
		ResetAt:   now.Add(time.Duration(rule.WindowSeconds) * time.Second),
	}

	if !s.enabled {
		return fresh, nil
	}

	w, err := s.store.Get(ctx, privacy.HashIP(clientIP), endpoint)
	if err != nil {
		return nil, errors.NewInternalError("rate limit lookup failed", err)
	}
	if w == nil || w.IsExpired(now) {
		return fresh, nil
	}

	return &RateLimitResult{
		Limit:     rule.MaxRequests,
		Remaining: clampNonNegative(rule.MaxRequests - w.RequestCount),
		ResetAt:   w.WindowEnd(),
	}, nil
}

// CleanupExpired drops windows that have been expired for longer than the
// grace period. Windows inside their grace period survive the sweep.
func (s *RateLimitService) CleanupExpired(ctx context.Context) (int64, error) {
	return s.store.DeleteExpiredBefore(ctx, s.now(), s.graceSecs)
}

// ruleFor resolves the budget for an endpoint key: exact match first, then
// the longest configured prefix, then the default.
func (s *RateLimitService) ruleFor(endpoint string) config.RateLimitRule {
	if rule, ok := s.rules[endpoint]; ok {
		return rule
	}

	bestLen := -1
	best := s.defaultRule
	for key, rule := range s.rules {
		if strings.HasPrefix(endpoint, key) && len(key) > bestLen {
			bestLen = len(key)
			best = rule
		}
	}

	return best
}

func clampNonNegative(v int) int {
	if v < 0 {
		return 0
	}
	return v
}

// shortDigest truncates a digest for log fields; full digests stay in
// storage only.
func shortDigest(d string) string {
	if len(d) > 12 {
		return d[:12]
	}
	return d
}
