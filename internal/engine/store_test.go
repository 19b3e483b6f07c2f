package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapin/server/internal/models"
)

func TestPhotoStoreAppend(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("append then re-append same id does not duplicate", func(t *testing.T) {
		store := NewPhotoStore()
		p := photoAt(t, "a", base)

		store.Append(p)
		store.Append(p)

		assert.Equal(t, 1, store.Len())
	})

	t.Run("re-append replaces the stored record", func(t *testing.T) {
		store := NewPhotoStore()
		store.Append(photoAt(t, "a", base))

		confirmed := photoAt(t, "a", base)
		confirmed.ImageURI = "https://cdn.example/a.jpg"
		store.Append(confirmed)

		require.Equal(t, 1, store.Len())
		assert.Equal(t, "https://cdn.example/a.jpg", store.Get("a").ImageURI)
	})

	t.Run("preserves insertion order", func(t *testing.T) {
		store := NewPhotoStore()
		store.Append(photoAt(t, "first", base.Add(time.Hour)))
		store.Append(photoAt(t, "second", base))

		all := store.All()
		require.Len(t, all, 2)
		assert.Equal(t, "first", all[0].PhotoID)
		assert.Equal(t, "second", all[1].PhotoID)
	})
}

func TestPhotoStoreViews(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	store := NewPhotoStore()

	g1d1 := photoAt(t, "g1d1", base)
	g2d1 := photoAt(t, "g2d1", base)
	g2d1.GroupID = "g2"
	g1d2 := photoAt(t, "g1d2", base.Add(24*time.Hour))
	g1d2.DateKey = "2024-01-02"
	store.Append(g1d1)
	store.Append(g2d1)
	store.Append(g1d2)

	t.Run("filters by group and cycle", func(t *testing.T) {
		got := store.ForGroupAndCycle("g1", "2024-01-01")
		require.Len(t, got, 1)
		assert.Equal(t, "g1d1", got[0].PhotoID)
	})

	t.Run("filters by round", func(t *testing.T) {
		blitz := NewPhotoStore()
		p1 := &models.Photo{PhotoID: "b1", GroupID: "g1", UserID: "u1", Kind: models.PhotoKindBlitz, RoundID: "r1", CreatedAt: base}
		p2 := &models.Photo{PhotoID: "b2", GroupID: "g1", UserID: "u2", Kind: models.PhotoKindBlitz, RoundID: "r2", CreatedAt: base}
		blitz.Append(p1)
		blitz.Append(p2)

		got := blitz.ForRound("g1", "r1")
		require.Len(t, got, 1)
		assert.Equal(t, "b1", got[0].PhotoID)
	})

	t.Run("date keys newest first", func(t *testing.T) {
		assert.Equal(t, []string{"2024-01-02", "2024-01-01"}, store.DateKeys())
	})
}

func TestPhotoStoreUpdatePosition(t *testing.T) {
	base := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("updates a known photo", func(t *testing.T) {
		store := NewPhotoStore()
		store.Append(photoAt(t, "a", base))

		assert.True(t, store.UpdatePosition("a", 42, 24, 7))

		p := store.Get("a")
		assert.Equal(t, 42.0, p.X)
		assert.Equal(t, 24.0, p.Y)
		assert.Equal(t, 7, p.ZIndex)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		store := NewPhotoStore()
		assert.False(t, store.UpdatePosition("missing", 1, 2, 3))
	})
}
