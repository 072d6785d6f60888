package handler

import (
	"bytes"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"image"
	_ "image/jpeg"
	_ "image/png"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"airfeeld/internal/middleware"
	"airfeeld/internal/service"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

// maxUploadBytes bounds how much of an upload is read before the size check
// in moderation runs. Slightly above the moderation limit so oversized files
// fail with the size message rather than a truncated decode.
const maxUploadBytes = 12 << 20

// PhotoHandler handles photo uploads, flags and pool statistics.
type PhotoHandler struct {
	photos *service.PhotoService
	log    *logger.Logger
}

// NewPhotoHandler creates a new photo handler
func NewPhotoHandler(photos *service.PhotoService, log *logger.Logger) *PhotoHandler {
	return &PhotoHandler{photos: photos, log: log}
}

// Upload handles POST /api/v1/photos (multipart form)
func (h *PhotoHandler) Upload(w http.ResponseWriter, r *http.Request) {
	if err := r.ParseMultipartForm(maxUploadBytes); err != nil {
		respondError(w, r, errors.NewValidationError("invalid multipart form",
			map[string]interface{}{"cause": err.Error()}), h.log)
		return
	}

	uploaderID, err := uuid.Parse(r.FormValue("player_id"))
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid player_id",
			map[string]interface{}{"field": "player_id"}), h.log)
		return
	}

	file, _, err := r.FormFile("photo")
	if err != nil {
		respondError(w, r, errors.NewValidationError("photo file is required",
			map[string]interface{}{"field": "photo"}), h.log)
		return
	}
	defer file.Close()

	raw, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
	if err != nil {
		respondError(w, r, errors.NewInternalError("failed to read upload", err), h.log)
		return
	}

	img, _, err := image.Decode(bytes.NewReader(raw))
	if err != nil {
		respondError(w, r, errors.NewValidationError("unsupported or corrupt image",
			map[string]interface{}{"field": "photo"}), h.log)
		return
	}

	digest := sha256.Sum256(raw)
	fileDigest := hex.EncodeToString(digest[:])

	upload := service.PhotoUpload{
		Image:        img,
		SizeBytes:    len(raw),
		FileDigest:   fileDigest,
		StorageKey:   fmt.Sprintf("photos/%s", fileDigest),
		AircraftType: r.FormValue("aircraft_type"),
		Registration: optionalFormValue(r, "registration"),
		Airline:      optionalFormValue(r, "airline"),
		AirportCode:  r.FormValue("airport_code"),
	}

	if lat := r.FormValue("latitude"); lat != "" {
		v, err := strconv.ParseFloat(lat, 64)
		if err != nil {
			respondError(w, r, errors.NewValidationError("invalid latitude",
				map[string]interface{}{"field": "latitude"}), h.log)
			return
		}
		upload.Latitude = v
	}
	if lon := r.FormValue("longitude"); lon != "" {
		v, err := strconv.ParseFloat(lon, 64)
		if err != nil {
			respondError(w, r, errors.NewValidationError("invalid longitude",
				map[string]interface{}{"field": "longitude"}), h.log)
			return
		}
		upload.Longitude = v
	}

	photo, err := h.photos.Ingest(r.Context(), uploaderID, middleware.ClientIP(r), upload)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusCreated, photo, h.log)
}

type flagRequest struct {
	PlayerID string `json:"player_id"`
}

// Flag handles POST /api/v1/photos/{photoID}/flag
func (h *PhotoHandler) Flag(w http.ResponseWriter, r *http.Request) {
	photoID, err := uuidParam(r, "photoID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	var req flagRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	reporterID, err := uuid.Parse(req.PlayerID)
	if err != nil {
		respondError(w, r, errors.NewValidationError("invalid player_id",
			map[string]interface{}{"field": "player_id"}), h.log)
		return
	}

	if err := h.photos.Flag(r.Context(), photoID, reporterID, middleware.ClientIP(r)); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusAccepted, map[string]string{"status": "flag recorded"}, h.log)
}

type reviewRequest struct {
	Approve bool `json:"approve"`
}

// Review handles POST /api/v1/photos/{photoID}/review. Operator endpoint;
// deployments expose it only on the internal listener.
func (h *PhotoHandler) Review(w http.ResponseWriter, r *http.Request) {
	photoID, err := uuidParam(r, "photoID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	var req reviewRequest
	if err := decodeJSON(r, &req); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	if err := h.photos.Review(r.Context(), photoID, req.Approve); err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]string{"status": "reviewed"}, h.log)
}

// Get handles GET /api/v1/photos/{photoID}
func (h *PhotoHandler) Get(w http.ResponseWriter, r *http.Request) {
	photoID, err := uuidParam(r, "photoID")
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	photo, err := h.photos.Get(r.Context(), photoID)
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, photo, h.log)
}

// Stats handles GET /api/v1/photos/stats
func (h *PhotoHandler) Stats(w http.ResponseWriter, r *http.Request) {
	count, err := h.photos.ApprovedCount(r.Context())
	if err != nil {
		respondError(w, r, err, h.log)
		return
	}

	respondJSON(w, http.StatusOK, map[string]int{"approved_photos": count}, h.log)
}

func optionalFormValue(r *http.Request, name string) *string {
	v := strings.TrimSpace(r.FormValue(name))
	if v == "" {
		return nil
	}
	return &v
}
