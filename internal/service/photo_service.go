package service

import (
	"context"
	"image"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"airfeeld/internal/config"
	"airfeeld/internal/domain"
	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/phash"
	"airfeeld/pkg/privacy"
	"airfeeld/pkg/redis"
)

// PhotoUpload carries a decoded upload and its ground-truth answers into the
// ingest pipeline. FileDigest is the SHA-256 of the raw bytes, computed by the
// transport layer before decoding.
type PhotoUpload struct {
	Image      image.Image
	SizeBytes  int
	FileDigest string
	StorageKey string

	AircraftType string
	Registration *string
	Airline      *string
	AirportCode  string
	Latitude     float64
	Longitude    float64
}

// PhotoService runs the upload pipeline: validation, dedup, local moderation
// and the flag-driven re-review loop for photos already in the pool.
type PhotoService struct {
	photos     repository.PhotoStore
	players    repository.PlayerStore
	limiter    EndpointLimiter
	duplicates *DuplicateDetector
	moderation *ModerationService
	profanity  *ProfanityFilter
	cache      *redis.Client
	audit      AuditRecorder
	cfg        *config.Config
	log        *logger.Logger
}

// NewPhotoService creates a new photo service instance
func NewPhotoService(photos repository.PhotoStore, players repository.PlayerStore, limiter EndpointLimiter,
	duplicates *DuplicateDetector, moderation *ModerationService, profanity *ProfanityFilter,
	cache *redis.Client, audit AuditRecorder, cfg *config.Config, log *logger.Logger) *PhotoService {
	return &PhotoService{
		photos:     photos,
		players:    players,
		limiter:    limiter,
		duplicates: duplicates,
		moderation: moderation,
		profanity:  profanity,
		cache:      cache,
		audit:      audit,
		cfg:        cfg,
		log:        log,
	}
}

// Ingest validates, dedups and moderates an upload. Safe photos are approved
// immediately; heuristic hits land in pending for review; hard failures are
// rejected outright.
func (s *PhotoService) Ingest(ctx context.Context, uploaderID uuid.UUID, clientIP string, up PhotoUpload) (*domain.Photo, error) {
	if _, err := s.limiter.CheckAndConsume(ctx, clientIP, "photos:upload"); err != nil {
		return nil, err
	}

	uploader, err := s.players.GetByID(ctx, uploaderID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load uploader", err)
	}
	if uploader == nil {
		return nil, errors.NewNotFoundError("player")
	}

	if err := s.validateUpload(&up); err != nil {
		return nil, err
	}

	perceptualHash := phash.AverageHash(up.Image)

	if err := s.duplicates.Check(ctx, up.FileDigest, perceptualHash); err != nil {
		return nil, err
	}

	verdict := s.moderation.CheckImage(up.Image, up.SizeBytes)
	if !verdict.IsSafe && verdict.Confidence == 1.0 {
		return nil, errors.NewValidationError(verdict.Reason, map[string]interface{}{"field": "image"})
	}

	status := domain.PhotoApproved
	if !verdict.IsSafe {
		status = domain.PhotoPending
	}

	bounds := up.Image.Bounds()
	photo := &domain.Photo{
		ID:             uuid.New(),
		UploaderDigest: privacy.HashID(uploaderID.String()),
		StorageKey:     up.StorageKey,
		FileDigest:     up.FileDigest,
		PerceptualHash: perceptualHash,
		AircraftType:   strings.TrimSpace(up.AircraftType),
		Registration:   up.Registration,
		Airline:        up.Airline,
		AirportCode:    strings.ToUpper(strings.TrimSpace(up.AirportCode)),
		Latitude:       up.Latitude,
		Longitude:      up.Longitude,
		Width:          bounds.Dx(),
		Height:         bounds.Dy(),
		Status:         status,
	}

	if err := s.photos.Create(ctx, photo); err != nil {
		return nil, errors.NewInternalError("failed to store photo", err)
	}

	if err := s.players.IncrementPhotosUploaded(ctx, uploaderID); err != nil {
		s.log.WithError(err).Warn("failed to bump uploader photo count")
	}

	actorDigest := privacy.HashID(uploaderID.String())
	targetDigest := privacy.HashID(photo.ID.String())
	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditPhotoUploaded, domain.ActorPlayer,
			actorDigest, targetDigest, privacy.HashIP(clientIP), "")
		s.audit.Record(ctx, domain.AuditPhotoModerated, domain.ActorSystem,
			"", targetDigest, "", string(status))
	}

	s.invalidateApprovedCount(ctx)

	s.log.WithFields(map[string]interface{}{
		"photo_id": photo.ID,
		"status":   status,
		"flags":    verdict.Flags,
	}).Info("photo ingested")

	return photo, nil
}

// Flag records a player report against an approved photo. At the configured
// threshold the photo leaves rotation and re-enters review.
func (s *PhotoService) Flag(ctx context.Context, photoID, reporterID uuid.UUID, clientIP string) error {
	if _, err := s.limiter.CheckAndConsume(ctx, clientIP, "photos:flag"); err != nil {
		return err
	}

	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return errors.NewInternalError("failed to load photo", err)
	}
	if photo == nil {
		return errors.NewNotFoundError("photo")
	}

	count, err := s.photos.AddFlag(ctx, photoID)
	if err != nil {
		return errors.NewInternalError("failed to record flag", err)
	}

	if count >= s.cfg.FlagThreshold && photo.Status == domain.PhotoApproved {
		if err := s.photos.SetStatus(ctx, photoID, domain.PhotoPending); err != nil {
			return errors.NewInternalError("failed to pull flagged photo", err)
		}
		if s.audit != nil {
			s.audit.Record(ctx, domain.AuditPhotoModerated, domain.ActorSystem,
				"", privacy.HashID(photoID.String()), "", "flag_threshold")
		}
		s.invalidateApprovedCount(ctx)
		s.log.WithFields(map[string]interface{}{
			"photo_id": photoID,
			"flags":    count,
		}).Info("photo pulled for review")
	}

	return nil
}

// Review settles a pending photo. Approval returns it to rotation with a
// cleared flag count effect; rejection removes it for good.
func (s *PhotoService) Review(ctx context.Context, photoID uuid.UUID, approve bool) error {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return errors.NewInternalError("failed to load photo", err)
	}
	if photo == nil {
		return errors.NewNotFoundError("photo")
	}

	status := domain.PhotoRejected
	if approve {
		status = domain.PhotoApproved
	}
	if err := s.photos.SetStatus(ctx, photoID, status); err != nil {
		return errors.NewInternalError("failed to update photo status", err)
	}

	if s.audit != nil {
		s.audit.Record(ctx, domain.AuditPhotoModerated, domain.ActorAdmin,
			"", privacy.HashID(photoID.String()), "", string(status))
	}
	s.invalidateApprovedCount(ctx)

	return nil
}

// Get returns a photo by ID.
func (s *PhotoService) Get(ctx context.Context, photoID uuid.UUID) (*domain.Photo, error) {
	photo, err := s.photos.GetByID(ctx, photoID)
	if err != nil {
		return nil, errors.NewInternalError("failed to load photo", err)
	}
	if photo == nil {
		return nil, errors.NewNotFoundError("photo")
	}
	return photo, nil
}

// ApprovedCount returns the size of the playable pool, cached briefly.
func (s *PhotoService) ApprovedCount(ctx context.Context) (int, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, s.cache.KeyBuilder.KeyApprovedPhotoCount()); err == nil {
			if n, convErr := strconv.Atoi(cached); convErr == nil {
				return n, nil
			}
		}
	}

	count, err := s.photos.CountApproved(ctx)
	if err != nil {
		return 0, errors.NewInternalError("failed to count photos", err)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, s.cache.KeyBuilder.KeyApprovedPhotoCount(),
			strconv.Itoa(count), redis.TTLApprovedPhotoCount); err != nil {
			s.log.WithError(err).Warn("failed to cache approved photo count")
		}
	}

	return count, nil
}

func (s *PhotoService) validateUpload(up *PhotoUpload) error {
	if up.Image == nil {
		return errors.NewValidationError("image is required", map[string]interface{}{"field": "image"})
	}
	if strings.TrimSpace(up.FileDigest) == "" {
		return errors.NewValidationError("file digest is required", map[string]interface{}{"field": "file_digest"})
	}
	if strings.TrimSpace(up.AircraftType) == "" {
		return errors.NewValidationError("aircraft type is required", map[string]interface{}{"field": "aircraft_type"})
	}
	if code := strings.TrimSpace(up.AirportCode); code != "" && (len(code) < 3 || len(code) > 4) {
		return errors.NewValidationError("airport code must be 3 or 4 letters", map[string]interface{}{"field": "airport_code"})
	}
	if up.Latitude < -90 || up.Latitude > 90 || up.Longitude < -180 || up.Longitude > 180 {
		return errors.NewValidationError("coordinates out of range", map[string]interface{}{"field": "location"})
	}

	for _, text := range []string{up.AircraftType, up.AirportCode, strValue(up.Registration), strValue(up.Airline)} {
		if text != "" && s.profanity.ContainsProfanity(text) {
			return errors.NewContentRejectedError(errors.ReasonModerationFailed, "photo metadata is not allowed")
		}
	}

	return nil
}

func (s *PhotoService) invalidateApprovedCount(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Delete(ctx, s.cache.KeyBuilder.KeyApprovedPhotoCount()); err != nil {
		s.log.WithError(err).Warn("failed to invalidate approved photo count")
	}
}

func strValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
