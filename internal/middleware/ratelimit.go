package middleware

import (
	"encoding/json"
	"net/http"
	"strconv"
	"time"

	chiMiddleware "github.com/go-chi/chi/v5/middleware"

	"airfeeld/internal/service"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// RateLimit spends one request from the caller's budget for the given
// endpoint key before the handler runs. Successful requests carry
// X-RateLimit headers; over-limit requests get a 429 with a Retry-After.
//
// Endpoints whose service layer consumes a budget itself (challenge
// issuance, registration, uploads, flags) are not wrapped here; wrapping
// them too would double-spend.
func RateLimit(limiter *service.RateLimitService, endpoint string, log *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			result, err := limiter.CheckAndConsume(r.Context(), ClientIP(r), endpoint)
			if err != nil {
				writeLimitError(w, r, err, log)
				return
			}

			setRateLimitHeaders(w, result)
			next.ServeHTTP(w, r)
		})
	}
}

func setRateLimitHeaders(w http.ResponseWriter, result *service.RateLimitResult) {
	w.Header().Set("X-RateLimit-Limit", strconv.Itoa(result.Limit))
	w.Header().Set("X-RateLimit-Remaining", strconv.Itoa(result.Remaining))
	w.Header().Set("X-RateLimit-Reset", strconv.FormatInt(result.ResetAt.Unix(), 10))
}

func writeLimitError(w http.ResponseWriter, r *http.Request, err error, log *logger.Logger) {
	appErr := errors.From(err)
	if appErr == nil {
		appErr = errors.NewInternalError("rate limit check failed", err)
	}

	if retryAfter := appErr.RetryAfterSeconds(); retryAfter > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(retryAfter))
	}

	var response errors.ErrorResponse
	response.Error.Type = appErr.Type
	response.Error.Message = appErr.Message
	response.Error.Details = appErr.Details
	response.Error.RequestID = chiMiddleware.GetReqID(r.Context())
	response.Error.Timestamp = time.Now().UTC().Format(time.RFC3339)

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	if err := json.NewEncoder(w).Encode(response); err != nil {
		log.WithError(err).Error("failed to encode rate limit response")
	}
}
