package models

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewTodayPhoto(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("creates photo with valid parameters", func(t *testing.T) {
		photo, err := NewTodayPhoto("g1", "u1", "2024-01-01", "photos/a.jpg", createdAt, nil)

		require.NoError(t, err)
		assert.Equal(t, "g1", photo.GroupID)
		assert.Equal(t, "u1", photo.UserID)
		assert.Equal(t, PhotoKindToday, photo.Kind)
		assert.Equal(t, "2024-01-01", photo.DateKey)
		assert.Empty(t, photo.RoundID)
		assert.Equal(t, createdAt, photo.CreatedAt)
	})

	t.Run("photo id composes group, kind, user, and timestamp", func(t *testing.T) {
		photo, err := NewTodayPhoto("g1", "u1", "2024-01-01", "photos/a.jpg", createdAt, nil)

		require.NoError(t, err)
		expected := fmt.Sprintf("g1_today_u1_%d", createdAt.UnixMilli())
		assert.Equal(t, expected, photo.PhotoID)
	})

	t.Run("rejects empty date key", func(t *testing.T) {
		_, err := NewTodayPhoto("g1", "u1", "", "photos/a.jpg", createdAt, nil)
		assert.ErrorIs(t, err, ErrEmptyDateKey)
	})

	t.Run("rejects empty group id", func(t *testing.T) {
		_, err := NewTodayPhoto("", "u1", "2024-01-01", "photos/a.jpg", createdAt, nil)
		assert.ErrorIs(t, err, ErrEmptyGroupID)
	})

	t.Run("rejects invalid overlay size", func(t *testing.T) {
		overlay := &TextOverlay{Text: "hi", Size: "XL", Color: "#fff"}
		_, err := NewTodayPhoto("g1", "u1", "2024-01-01", "photos/a.jpg", createdAt, overlay)
		assert.ErrorIs(t, err, ErrInvalidOverlaySize)
	})

	t.Run("accepts valid overlay", func(t *testing.T) {
		overlay := &TextOverlay{Text: "hi", X: 10, Y: 20, Size: OverlayMedium, Color: "#fff"}
		photo, err := NewTodayPhoto("g1", "u1", "2024-01-01", "photos/a.jpg", createdAt, overlay)
		require.NoError(t, err)
		assert.Equal(t, overlay, photo.TextOverlay)
	})
}

func TestNewBlitzPhoto(t *testing.T) {
	createdAt := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("creates photo attached to round", func(t *testing.T) {
		photo, err := NewBlitzPhoto("g1", "u1", "r1", "photos/b.jpg", createdAt, nil)

		require.NoError(t, err)
		assert.Equal(t, PhotoKindBlitz, photo.Kind)
		assert.Equal(t, "r1", photo.RoundID)
		assert.Empty(t, photo.DateKey)
	})

	t.Run("rejects empty round id", func(t *testing.T) {
		_, err := NewBlitzPhoto("g1", "u1", "", "photos/b.jpg", createdAt, nil)
		assert.ErrorIs(t, err, ErrEmptyRoundID)
	})

	t.Run("ids differ across kinds for the same tuple", func(t *testing.T) {
		today, err := NewTodayPhoto("g1", "u1", "2024-01-01", "photos/a.jpg", createdAt, nil)
		require.NoError(t, err)
		blitz, err := NewBlitzPhoto("g1", "u1", "r1", "photos/b.jpg", createdAt, nil)
		require.NoError(t, err)

		assert.NotEqual(t, today.PhotoID, blitz.PhotoID)
	})
}

func TestTextOverlayValidate(t *testing.T) {
	t.Run("rejects blank text", func(t *testing.T) {
		o := &TextOverlay{Text: "   ", Size: OverlaySmall}
		assert.ErrorIs(t, o.Validate(), ErrEmptyOverlayText)
	})

	t.Run("accepts all size presets", func(t *testing.T) {
		for _, size := range []OverlaySize{OverlaySmall, OverlayMedium, OverlayLarge} {
			o := &TextOverlay{Text: "hey", Size: size}
			assert.NoError(t, o.Validate())
		}
	})
}
