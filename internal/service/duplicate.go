package service

import (
	"context"

	"airfeeld/internal/repository"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
	"airfeeld/pkg/phash"
)

// DuplicateDetector rejects re-uploads of photos already in the pool, both
// byte-identical copies and near-duplicates that survive resizing or
// re-encoding.
type DuplicateDetector struct {
	photos    repository.PhotoStore
	threshold int
	log       *logger.Logger
}

// NewDuplicateDetector creates a new duplicate detector instance
func NewDuplicateDetector(photos repository.PhotoStore, threshold int, log *logger.Logger) *DuplicateDetector {
	return &DuplicateDetector{photos: photos, threshold: threshold, log: log}
}

// Check returns a conflict error when the upload duplicates an existing
// photo. Exact content digests are checked first, then perceptual hashes
// within the Hamming threshold. Malformed stored hashes are skipped.
func (d *DuplicateDetector) Check(ctx context.Context, fileDigest, perceptualHash string) error {
	exists, err := d.photos.ExistsByFileDigest(ctx, fileDigest)
	if err != nil {
		return errors.NewInternalError("duplicate check failed", err)
	}
	if exists {
		return duplicateError("an identical photo already exists")
	}

	fingerprints, err := d.photos.Fingerprints(ctx)
	if err != nil {
		return errors.NewInternalError("duplicate check failed", err)
	}

	for _, fp := range fingerprints {
		distance, err := phash.HammingDistance(perceptualHash, fp.PerceptualHash)
		if err != nil {
			d.log.WithField("photo_id", fp.PhotoID).Warn("skipping malformed stored perceptual hash")
			continue
		}
		if distance <= d.threshold {
			d.log.WithFields(map[string]interface{}{
				"photo_id": fp.PhotoID,
				"distance": distance,
			}).Info("near-duplicate upload rejected")
			return duplicateError("a visually similar photo already exists")
		}
	}

	return nil
}

func duplicateError(message string) error {
	appErr := errors.NewConflictError(message, "")
	appErr.Details["reason"] = errors.ReasonDuplicatePhoto
	return appErr
}
