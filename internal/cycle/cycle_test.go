package cycle

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestDateKey(t *testing.T) {
	t.Run("formats with zero padding", func(t *testing.T) {
		now := time.Date(2024, 1, 5, 10, 0, 0, 0, time.UTC)
		assert.Equal(t, "2024-01-05", DateKey(now))
	})

	t.Run("changes across midnight", func(t *testing.T) {
		before := time.Date(2024, 3, 15, 23, 59, 59, 0, time.UTC)
		after := before.Add(time.Second)
		assert.NotEqual(t, DateKey(before), DateKey(after))
	})
}

func TestWindow(t *testing.T) {
	t.Run("spans the full local day", func(t *testing.T) {
		now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
		start, end := Window(now)

		assert.Equal(t, time.Date(2024, 3, 15, 0, 0, 0, 0, time.UTC), start)
		assert.Equal(t, time.Date(2024, 3, 15, 23, 59, 59, 999000000, time.UTC), end)
	})

	t.Run("preserves location", func(t *testing.T) {
		loc := time.FixedZone("UTC+9", 9*3600)
		now := time.Date(2024, 3, 15, 1, 0, 0, 0, loc)
		start, _ := Window(now)
		assert.Equal(t, loc, start.Location())
	})

	t.Run("agrees with date key membership", func(t *testing.T) {
		// Any instant inside the window must carry the same date key
		// as the instant the window was derived from.
		now := time.Date(2024, 3, 15, 14, 30, 0, 0, time.UTC)
		start, end := Window(now)

		for _, probe := range []time.Time{start, now, end} {
			assert.True(t, Contains(probe, start, end))
			assert.Equal(t, DateKey(now), DateKey(probe))
		}

		outside := end.Add(time.Millisecond)
		assert.False(t, Contains(outside, start, end))
		assert.NotEqual(t, DateKey(now), DateKey(outside))
	})
}

func TestContains(t *testing.T) {
	now := time.Date(2024, 3, 15, 12, 0, 0, 0, time.UTC)
	start, end := Window(now)

	assert.True(t, Contains(start, start, end))
	assert.True(t, Contains(end, start, end))
	assert.False(t, Contains(start.Add(-time.Nanosecond), start, end))
	assert.False(t, Contains(end.Add(time.Nanosecond), start, end))
}
