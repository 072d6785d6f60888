package handler

import (
	"net/http"
	"time"

	"airfeeld/pkg/database"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/redis"
)

// HealthHandler handles health check requests
type HealthHandler struct {
	db    *database.PostgresDB
	cache *redis.Client
	log   *logger.Logger
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(db *database.PostgresDB, cache *redis.Client, log *logger.Logger) *HealthHandler {
	return &HealthHandler{db: db, cache: cache, log: log}
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp time.Time         `json:"timestamp"`
	Service   string            `json:"service"`
	Checks    map[string]string `json:"checks"`
}

// Check handles GET /health
func (h *HealthHandler) Check(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	checks := map[string]string{}
	status := "healthy"
	code := http.StatusOK

	if err := h.db.Health(ctx); err != nil {
		h.log.WithError(err).Error("database health check failed")
		checks["database"] = "unhealthy"
		status = "unhealthy"
		code = http.StatusServiceUnavailable
	} else {
		checks["database"] = "ok"
	}

	if h.cache != nil {
		if err := h.cache.Health(ctx); err != nil {
			h.log.WithError(err).Warn("redis health check failed")
			checks["redis"] = "unhealthy"
			if status == "healthy" {
				status = "degraded"
			}
		} else {
			checks["redis"] = "ok"
		}
	} else {
		checks["redis"] = "disabled"
	}

	respondJSON(w, code, HealthResponse{
		Status:    status,
		Timestamp: time.Now().UTC(),
		Service:   "airfeeld",
		Checks:    checks,
	}, h.log)
}
