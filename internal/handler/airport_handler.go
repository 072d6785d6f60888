package handler

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"airfeeld/internal/service"
	"airfeeld/pkg/logger"
)

// AirportHandler serves the airport reference data used by the location
// guess autocomplete.
type AirportHandler struct {
	airports *service.AirportService
	log      *logger.Logger
}

// NewAirportHandler creates a new airport handler
func NewAirportHandler(airports *service.AirportService, log *logger.Logger) *AirportHandler {
	return &AirportHandler{airports: airports, log: log}
}

// Search handles GET /api/v1/airports/search?q=
func (h *AirportHandler) Search(w http.ResponseWriter, r *http.Request) {
	airports, err := h.airports.Search(r.Context(), r.URL.Query().Get("q"), queryInt(r, "limit", 10))
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=300")
	respondJSON(w, http.StatusOK, map[string]interface{}{"airports": airports}, h.log)
}

// Get handles GET /api/v1/airports/{code}
func (h *AirportHandler) Get(w http.ResponseWriter, r *http.Request) {
	airport, err := h.airports.GetByCode(r.Context(), chi.URLParam(r, "code"))
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	w.Header().Set("Cache-Control", "public, max-age=86400")
	respondJSON(w, http.StatusOK, airport, h.log)
}
