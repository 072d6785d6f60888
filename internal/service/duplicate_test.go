package service

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"airfeeld/internal/domain"
	"airfeeld/pkg/errors"
	"airfeeld/pkg/logger"
)

func seedPhoto(t *testing.T, store *fakePhotoStore, fileDigest, perceptualHash string, status domain.PhotoStatus) *domain.Photo {
	t.Helper()
	p := &domain.Photo{
		ID:             uuid.New(),
		FileDigest:     fileDigest,
		PerceptualHash: perceptualHash,
		Status:         status,
		CreatedAt:      time.Now().UTC(),
	}
	require.NoError(t, store.Create(context.Background(), p))
	return p
}

func TestCheckRejectsExactDuplicate(t *testing.T) {
	store := newFakePhotoStore()
	seedPhoto(t, store, "digest-a", strings.Repeat("0", 64), domain.PhotoApproved)
	d := NewDuplicateDetector(store, 10, logger.NewNop())

	err := d.Check(context.Background(), "digest-a", strings.Repeat("f", 64))
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonDuplicatePhoto))
}

func TestCheckRejectsNearDuplicate(t *testing.T) {
	store := newFakePhotoStore()
	// Stored hash is all zero bits; candidate differs in exactly 8 bits.
	seedPhoto(t, store, "digest-a", strings.Repeat("0", 64), domain.PhotoApproved)
	d := NewDuplicateDetector(store, 10, logger.NewNop())

	near := "ff" + strings.Repeat("0", 62)
	err := d.Check(context.Background(), "digest-b", near)
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonDuplicatePhoto))
}

func TestCheckAcceptsDistinctPhoto(t *testing.T) {
	store := newFakePhotoStore()
	seedPhoto(t, store, "digest-a", strings.Repeat("0", 64), domain.PhotoApproved)
	d := NewDuplicateDetector(store, 10, logger.NewNop())

	// All 256 bits differ.
	err := d.Check(context.Background(), "digest-b", strings.Repeat("f", 64))
	assert.NoError(t, err)
}

func TestCheckSkipsMalformedStoredHashes(t *testing.T) {
	store := newFakePhotoStore()
	seedPhoto(t, store, "digest-a", "not-hex!", domain.PhotoApproved)
	seedPhoto(t, store, "digest-b", strings.Repeat("0", 64), domain.PhotoApproved)
	d := NewDuplicateDetector(store, 10, logger.NewNop())

	// The malformed row is skipped, the valid one still matches.
	err := d.Check(context.Background(), "digest-c", strings.Repeat("0", 64))
	require.Error(t, err)
	assert.True(t, errors.HasReason(err, errors.ReasonDuplicatePhoto))
}

func TestCheckIgnoresRejectedPhotos(t *testing.T) {
	store := newFakePhotoStore()
	seedPhoto(t, store, "digest-a", strings.Repeat("0", 64), domain.PhotoRejected)
	d := NewDuplicateDetector(store, 10, logger.NewNop())

	err := d.Check(context.Background(), "digest-a", strings.Repeat("0", 64))
	assert.NoError(t, err, "rejected photos do not block re-submission")
}
