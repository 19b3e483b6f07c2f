package engine

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapin/server/internal/models"
)

// memoryStateStore is an in-memory StateStore with write failure
// injection for exercising the persistence paths.
type memoryStateStore struct {
	mu         sync.Mutex
	blobs      map[string][]byte
	failWrites bool
	setCalls   int
}

func newMemoryStateStore() *memoryStateStore {
	return &memoryStateStore{blobs: make(map[string][]byte)}
}

func (s *memoryStateStore) Get(_ context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	blob, ok := s.blobs[key]
	return blob, ok, nil
}

func (s *memoryStateStore) Set(_ context.Context, key string, value []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.setCalls++
	if s.failWrites {
		return errors.New("disk unavailable")
	}
	s.blobs[key] = value
	return nil
}

func newTestEngine(t *testing.T, now time.Time) (*Engine, *memoryStateStore) {
	t.Helper()
	store := newMemoryStateStore()
	e := New(store, models.DefaultRoundDuration)
	e.clock = func() time.Time { return now }
	return e, store
}

func TestPostToday(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("first post succeeds, repeat is rejected, other user may post", func(t *testing.T) {
		e, _ := newTestEngine(t, now)

		first, err := e.PostToday(ctx, "u1", "g1", "photos/u1.jpg", nil)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-01", first.Photo.DateKey)
		assert.Equal(t, 1, first.Photo.ZIndex)

		_, err = e.PostToday(ctx, "u1", "g1", "photos/u1-again.jpg", nil)
		assert.ErrorIs(t, err, models.ErrAlreadyPosted)

		second, err := e.PostToday(ctx, "u2", "g1", "photos/u2.jpg", nil)
		require.NoError(t, err)
		assert.Equal(t, 2, second.Photo.ZIndex)

		_, photos, _ := e.TodayFeed("u1", "g1")
		assert.Len(t, photos, 2)
	})

	t.Run("empty user id is not authenticated", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		_, err := e.PostToday(ctx, "", "g1", "photos/x.jpg", nil)
		assert.ErrorIs(t, err, models.ErrNotAuthenticated)
	})

	t.Run("new cycle allows posting again", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		_, err := e.PostToday(ctx, "u1", "g1", "photos/day1.jpg", nil)
		require.NoError(t, err)

		e.clock = func() time.Time { return now.Add(24 * time.Hour) }
		result, err := e.PostToday(ctx, "u1", "g1", "photos/day2.jpg", nil)
		require.NoError(t, err)
		assert.Equal(t, "2024-01-02", result.Photo.DateKey)
	})

	t.Run("canvas placement stays inside the spawn band", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		result, err := e.PostToday(ctx, "u1", "g1", "photos/x.jpg", nil)
		require.NoError(t, err)
		assert.GreaterOrEqual(t, result.Photo.X, 20.0)
		assert.Less(t, result.Photo.X, 120.0)
		assert.GreaterOrEqual(t, result.Photo.Y, 20.0)
		assert.Less(t, result.Photo.Y, 120.0)
	})

	t.Run("feed reports hasPosted", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		_, _, posted := e.TodayFeed("u1", "g1")
		assert.False(t, posted)

		_, err := e.PostToday(ctx, "u1", "g1", "photos/x.jpg", nil)
		require.NoError(t, err)

		_, _, posted = e.TodayFeed("u1", "g1")
		assert.True(t, posted)
		_, _, posted = e.TodayFeed("u2", "g1")
		assert.False(t, posted)
	})
}

func TestPostBlitzLifecycle(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("first post starts the round with a five minute deadline", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)

		result, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)
		assert.True(t, result.RoundStarted)
		assert.Equal(t, models.RoundLive, result.Round.Status)
		require.NotNil(t, result.Round.EndsAt)
		assert.Equal(t, t0.Add(5*time.Minute), *result.Round.EndsAt)
	})

	t.Run("second poster joins the live round without restarting it", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)

		first, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)

		second, err := e.PostBlitz(ctx, "u2", "g1", "photos/b2.jpg", nil)
		require.NoError(t, err)
		assert.False(t, second.RoundStarted)
		assert.Equal(t, first.Round.RoundID, second.Round.RoundID)
		assert.Equal(t, first.Round.EndsAt, second.Round.EndsAt)
		assert.Equal(t, 2, second.Photo.ZIndex)
	})

	t.Run("duplicate post into the same round is rejected", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)

		_, err = e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)
		_, err = e.PostBlitz(ctx, "u1", "g1", "photos/b1-again.jpg", nil)
		assert.ErrorIs(t, err, models.ErrAlreadyPosted)
	})

	t.Run("posting after the deadline rolls over and lands in the fresh round", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)

		first, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)

		e.clock = func() time.Time { return t0.Add(5*time.Minute + time.Millisecond) }
		late, err := e.PostBlitz(ctx, "u1", "g1", "photos/b2.jpg", nil)
		require.NoError(t, err)

		assert.NotEqual(t, first.Round.RoundID, late.Round.RoundID)
		assert.NotEqual(t, first.Round.Prompt, late.Round.Prompt)
		assert.True(t, late.RoundStarted)

		// The retired round keeps its photo; the new round holds only
		// the late post.
		_, photos, _, err := e.BlitzFeed("u1", "g1")
		require.NoError(t, err)
		require.Len(t, photos, 1)
		assert.Equal(t, late.Photo.PhotoID, photos[0].PhotoID)
	})

	t.Run("a round exactly at its deadline is expired", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		first, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)

		e.clock = func() time.Time { return t0.Add(5 * time.Minute) }
		result, err := e.PostBlitz(ctx, "u2", "g1", "photos/b2.jpg", nil)
		require.NoError(t, err)
		assert.NotEqual(t, first.Round.RoundID, result.Round.RoundID)
	})

	t.Run("no round means no active round", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		assert.ErrorIs(t, err, models.ErrNoActiveRound)
	})

	t.Run("locked round rejects posts", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		_, err = e.LockRound(ctx, "g1")
		require.NoError(t, err)

		_, err = e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		assert.ErrorIs(t, err, models.ErrRoundLocked)
	})

	t.Run("empty user id is not authenticated", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.PostBlitz(ctx, "", "g1", "photos/b1.jpg", nil)
		assert.ErrorIs(t, err, models.ErrNotAuthenticated)
	})
}

func TestEnsureRound(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	e, _ := newTestEngine(t, now)

	first, err := e.EnsureRound(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, models.RoundWaiting, first.Status)
	assert.NotEmpty(t, first.Prompt)

	again, err := e.EnsureRound(ctx, "g1")
	require.NoError(t, err)
	assert.Equal(t, first.RoundID, again.RoundID)
}

func TestEndRound(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("rolls the round over and reports both ids", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		old, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)

		event, err := e.EndRound(ctx, "g1")
		require.NoError(t, err)
		assert.Equal(t, old.RoundID, event.OldRoundID)
		assert.NotEqual(t, old.RoundID, event.NewRound.RoundID)
		assert.Equal(t, models.RoundWaiting, event.NewRound.Status)
	})

	t.Run("unknown group", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		_, err := e.EndRound(ctx, "missing")
		assert.ErrorIs(t, err, models.ErrRoundNotFound)
	})
}

func TestExpireRound(t *testing.T) {
	ctx := context.Background()
	t0 := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("expired round with matching observed id rolls over", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		live, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)

		e.clock = func() time.Time { return t0.Add(6 * time.Minute) }
		event, err := e.ExpireRound(ctx, "g1", live.Round.RoundID)
		require.NoError(t, err)
		require.NotNil(t, event)
		assert.Equal(t, live.Round.RoundID, event.OldRoundID)
	})

	t.Run("stale observed id is a no-op", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		live, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)

		e.clock = func() time.Time { return t0.Add(6 * time.Minute) }
		_, err = e.EndRound(ctx, "g1")
		require.NoError(t, err)

		event, err := e.ExpireRound(ctx, "g1", live.Round.RoundID)
		require.NoError(t, err)
		assert.Nil(t, event)
	})

	t.Run("round still in flight is a no-op", func(t *testing.T) {
		e, _ := newTestEngine(t, t0)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		live, err := e.PostBlitz(ctx, "u1", "g1", "photos/b1.jpg", nil)
		require.NoError(t, err)

		e.clock = func() time.Time { return t0.Add(4 * time.Minute) }
		event, err := e.ExpireRound(ctx, "g1", live.Round.RoundID)
		require.NoError(t, err)
		assert.Nil(t, event)
	})
}

func TestUpdatePosition(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("moves a today photo", func(t *testing.T) {
		e, _ := newTestEngine(t, now)
		result, err := e.PostToday(ctx, "u1", "g1", "photos/x.jpg", nil)
		require.NoError(t, err)

		require.NoError(t, e.UpdatePosition(ctx, result.Photo.PhotoID, 50, 60, 3))

		_, photos, _ := e.TodayFeed("u1", "g1")
		require.Len(t, photos, 1)
		assert.Equal(t, 50.0, photos[0].X)
		assert.Equal(t, 60.0, photos[0].Y)
		assert.Equal(t, 3, photos[0].ZIndex)
	})

	t.Run("unknown id is a silent no-op", func(t *testing.T) {
		e, store := newTestEngine(t, now)
		require.NoError(t, e.UpdatePosition(ctx, "missing", 1, 2, 3))
		assert.Zero(t, store.setCalls)
	})
}

func TestPersistence(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("posted state survives a reload", func(t *testing.T) {
		e, store := newTestEngine(t, now)
		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		_, err = e.PostToday(ctx, "u1", "g1", "photos/x.jpg", nil)
		require.NoError(t, err)
		live, err := e.PostBlitz(ctx, "u1", "g1", "photos/b.jpg", nil)
		require.NoError(t, err)

		restored := New(store, models.DefaultRoundDuration)
		restored.clock = func() time.Time { return now }
		require.NoError(t, restored.Load(ctx))

		_, photos, posted := restored.TodayFeed("u1", "g1")
		assert.Len(t, photos, 1)
		assert.True(t, posted)

		round, blitzPhotos, _, err := restored.BlitzFeed("u1", "g1")
		require.NoError(t, err)
		assert.Equal(t, live.Round.RoundID, round.RoundID)
		assert.Len(t, blitzPhotos, 1)
	})

	t.Run("failed write keeps optimistic state and Flush retries it", func(t *testing.T) {
		e, store := newTestEngine(t, now)
		store.failWrites = true

		_, err := e.PostToday(ctx, "u1", "g1", "photos/x.jpg", nil)
		require.Error(t, err)

		// The photo stays visible and the gate stays closed even
		// though nothing reached disk.
		_, photos, posted := e.TodayFeed("u1", "g1")
		assert.Len(t, photos, 1)
		assert.True(t, posted)
		assert.Empty(t, store.blobs)

		store.failWrites = false
		require.NoError(t, e.Flush(ctx))

		var persisted []*models.Photo
		blob, ok, err := store.Get(ctx, StateKeyTodayPhotos)
		require.NoError(t, err)
		require.True(t, ok)
		require.NoError(t, json.Unmarshal(blob, &persisted))
		require.Len(t, persisted, 1)
		assert.Equal(t, photos[0].PhotoID, persisted[0].PhotoID)
	})

	t.Run("clean engine Flush writes nothing", func(t *testing.T) {
		e, store := newTestEngine(t, now)
		require.NoError(t, e.Flush(ctx))
		assert.Zero(t, store.setCalls)
	})

	t.Run("empty persisted blobs never wipe live state", func(t *testing.T) {
		e, store := newTestEngine(t, now)
		store.blobs[StateKeyTodayPhotos] = []byte("[]")
		store.blobs[StateKeyBlitzRounds] = []byte("[]")

		_, err := e.EnsureRound(ctx, "g1")
		require.NoError(t, err)
		_, err = e.PostToday(ctx, "u1", "g1", "photos/x.jpg", nil)
		require.NoError(t, err)

		require.NoError(t, e.Load(ctx))

		_, photos, _ := e.TodayFeed("u1", "g1")
		assert.Len(t, photos, 1)
		_, found := e.CurrentRound("g1")
		assert.True(t, found)
	})
}
