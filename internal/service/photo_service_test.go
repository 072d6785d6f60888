package service

import (
	"context"
	"fmt"
	"image/color"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airfeeld/internal/domain"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

type photoFixture struct {
	svc      *PhotoService
	photos   *fakePhotoStore
	players  *fakePlayerStore
	audit    *recordingAudit
	uploader *domain.Player
}

func newPhotoFixture(t *testing.T) *photoFixture {
	t.Helper()

	cfg := testConfig()
	photos := newFakePhotoStore()
	players := newFakePlayerStore()
	audit := &recordingAudit{}
	log := logger.NewNop()

	uploader := domain.NewPlayer("spotter", "digest")
	require.NoError(t, players.Create(context.Background(), uploader))

	svc := NewPhotoService(photos, players, allowAllLimiter{},
		NewDuplicateDetector(photos, cfg.DuplicateThreshold, log),
		NewModerationService(cfg.MinPhotoWidth, cfg.MinPhotoHeight),
		NewProfanityFilter([]string{"crud"}),
		nil, audit, cfg, log)

	return &photoFixture{svc: svc, photos: photos, players: players, audit: audit, uploader: uploader}
}

// detailedUpload builds an upload that passes every moderation heuristic:
// big enough, textured and nowhere near skin tones.
func detailedUpload(digest string) PhotoUpload {
	sky := color.RGBA{R: 30, G: 60, B: 200, A: 255}
	cloud := color.RGBA{R: 240, G: 240, B: 240, A: 255}
	return PhotoUpload{
		Image:        checkerboard(800, 600, 25, sky, cloud),
		SizeBytes:    2 << 20,
		FileDigest:   digest,
		StorageKey:   "photos/" + digest,
		AircraftType: "Boeing 747-400",
		AirportCode:  "lhr",
		Latitude:     51.47,
		Longitude:    -0.4543,
	}
}

func TestIngestApprovesCleanPhoto(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	photo, err := fx.svc.Ingest(ctx, fx.uploader.ID, "198.51.100.7", detailedUpload("d1"))
	require.NoError(t, err)

	assert.Equal(t, domain.PhotoApproved, photo.Status)
	assert.Equal(t, "LHR", photo.AirportCode)
	assert.Equal(t, 800, photo.Width)
	assert.Equal(t, 600, photo.Height)
	assert.Len(t, photo.PerceptualHash, 64)
	assert.NotContains(t, photo.UploaderDigest, fx.uploader.ID.String())

	uploader, _ := fx.players.GetByID(ctx, fx.uploader.ID)
	assert.Equal(t, 1, uploader.PhotosUploaded)

	actions := fx.audit.actions()
	assert.Contains(t, actions, domain.AuditPhotoUploaded)
	assert.Contains(t, actions, domain.AuditPhotoModerated)
}

func TestIngestRejectsExactDuplicate(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", detailedUpload("same"))
	require.NoError(t, err)

	_, err = fx.svc.Ingest(ctx, fx.uploader.ID, "ip", detailedUpload("same"))
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonDuplicatePhoto))
}

func TestIngestRejectsNearDuplicate(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", detailedUpload("first"))
	require.NoError(t, err)

	// Same pixels, different bytes. The perceptual hash still matches.
	_, err = fx.svc.Ingest(ctx, fx.uploader.ID, "ip", detailedUpload("second"))
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonDuplicatePhoto))
}

func TestIngestHardFailuresAreRejected(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	small := detailedUpload("tiny")
	small.Image = checkerboard(100, 80, 10,
		color.RGBA{R: 30, G: 60, B: 200, A: 255}, color.RGBA{R: 240, G: 240, B: 240, A: 255})

	_, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", small)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	oversized := detailedUpload("huge")
	oversized.SizeBytes = 11 << 20
	_, err = fx.svc.Ingest(ctx, fx.uploader.ID, "ip", oversized)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))
}

func TestIngestHeuristicHitGoesToPending(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	flat := detailedUpload("flat")
	flat.Image = uniformImage(800, 600, color.RGBA{R: 30, G: 60, B: 200, A: 255})

	photo, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", flat)
	require.NoError(t, err)
	assert.Equal(t, domain.PhotoPending, photo.Status)
}

func TestIngestValidatesMetadata(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	missingType := detailedUpload("m1")
	missingType.AircraftType = "  "
	_, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", missingType)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	badCode := detailedUpload("m2")
	badCode.AirportCode = "TOOLONG"
	_, err = fx.svc.Ingest(ctx, fx.uploader.ID, "ip", badCode)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	badCoords := detailedUpload("m3")
	badCoords.Latitude = 91
	_, err = fx.svc.Ingest(ctx, fx.uploader.ID, "ip", badCoords)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeValidation))

	profane := detailedUpload("m4")
	profane.Airline = strPtr("Crud Airways")
	_, err = fx.svc.Ingest(ctx, fx.uploader.ID, "ip", profane)
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeContent))
}

func TestIngestUnknownUploader(t *testing.T) {
	fx := newPhotoFixture(t)

	_, err := fx.svc.Ingest(context.Background(), uuid.New(), "ip", detailedUpload("d"))
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestFlagThresholdPullsPhoto(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	photo, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", detailedUpload("d"))
	require.NoError(t, err)

	for i := 0; i < fx.svc.cfg.FlagThreshold-1; i++ {
		require.NoError(t, fx.svc.Flag(ctx, photo.ID, uuid.New(), fmt.Sprintf("ip-%d", i)))
		stored, _ := fx.photos.GetByID(ctx, photo.ID)
		assert.Equal(t, domain.PhotoApproved, stored.Status)
	}

	require.NoError(t, fx.svc.Flag(ctx, photo.ID, uuid.New(), "ip-final"))
	stored, _ := fx.photos.GetByID(ctx, photo.ID)
	assert.Equal(t, domain.PhotoPending, stored.Status)
	assert.Equal(t, fx.svc.cfg.FlagThreshold, stored.FlagCount)
}

func TestFlagUnknownPhoto(t *testing.T) {
	fx := newPhotoFixture(t)

	err := fx.svc.Flag(context.Background(), uuid.New(), uuid.New(), "ip")
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeNotFound))
}

func TestReviewSettlesPendingPhoto(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	flat := detailedUpload("flat")
	flat.Image = uniformImage(800, 600, color.RGBA{R: 30, G: 60, B: 200, A: 255})
	photo, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", flat)
	require.NoError(t, err)

	require.NoError(t, fx.svc.Review(ctx, photo.ID, true))
	stored, _ := fx.photos.GetByID(ctx, photo.ID)
	assert.Equal(t, domain.PhotoApproved, stored.Status)

	require.NoError(t, fx.svc.Review(ctx, photo.ID, false))
	stored, _ = fx.photos.GetByID(ctx, photo.ID)
	assert.Equal(t, domain.PhotoRejected, stored.Status)
}

func TestApprovedCountWithoutCache(t *testing.T) {
	fx := newPhotoFixture(t)
	ctx := context.Background()

	_, err := fx.svc.Ingest(ctx, fx.uploader.ID, "ip", detailedUpload("d"))
	require.NoError(t, err)

	count, err := fx.svc.ApprovedCount(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)
}
