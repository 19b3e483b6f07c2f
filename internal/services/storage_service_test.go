package services

import (
	"bytes"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapin/server/internal/models"
)

func newTestStorage(t *testing.T) *PhotoStorageService {
	t.Helper()
	svc, err := NewPhotoStorageService(t.TempDir(), []string{".jpg", ".png"}, 1)
	require.NoError(t, err)
	return svc
}

func TestPhotoStorageStore(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("today photo lands under the group cycle folder", func(t *testing.T) {
		svc := newTestStorage(t)

		path, err := svc.StoreToday(bytes.NewReader([]byte("jpeg-bytes")),
			"g1", "2024-01-01", "u1", "photo.jpg", 10, now)
		require.NoError(t, err)

		assert.Equal(t, "groups/g1/today/2024-01-01/u1/today_1704103200000.jpg", path)
		assert.True(t, svc.Exists(path))
	})

	t.Run("blitz photo lands under the round folder", func(t *testing.T) {
		svc := newTestStorage(t)

		path, err := svc.StoreBlitz(bytes.NewReader([]byte("jpeg-bytes")),
			"g1", "r1", "u1", "photo.png", 10, now)
		require.NoError(t, err)

		assert.True(t, strings.HasPrefix(path, "groups/g1/blitz/r1/u1/blitz_"))
		assert.True(t, svc.Exists(path))
	})

	t.Run("rejects disallowed extensions", func(t *testing.T) {
		svc := newTestStorage(t)

		_, err := svc.StoreToday(bytes.NewReader(nil), "g1", "2024-01-01", "u1", "script.exe", 10, now)
		assert.ErrorIs(t, err, models.ErrInvalidExtension)
	})

	t.Run("rejects oversized files", func(t *testing.T) {
		svc := newTestStorage(t)

		_, err := svc.StoreToday(bytes.NewReader(nil), "g1", "2024-01-01", "u1", "photo.jpg", 2*1024*1024, now)
		assert.ErrorIs(t, err, models.ErrFileTooLarge)
	})

	t.Run("delete removes the stored file", func(t *testing.T) {
		svc := newTestStorage(t)

		path, err := svc.StoreToday(bytes.NewReader([]byte("x")), "g1", "2024-01-01", "u1", "photo.jpg", 1, now)
		require.NoError(t, err)

		assert.True(t, svc.Delete(path))
		assert.False(t, svc.Exists(path))
	})
}

func TestGetFullPathTraversal(t *testing.T) {
	svc := newTestStorage(t)

	_, err := svc.GetFullPath("../../etc/passwd")
	assert.ErrorIs(t, err, models.ErrPathTraversal)
}
