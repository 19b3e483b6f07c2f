// Package engine implements the round and posting lifecycle: cycle
// and round identity, the photo record store, the round state
// machine, the posting gate, and the persistence merge layer. All
// mutations run to completion under one mutex, the Go rendition of a
// single event loop; durable writes go through a key-value snapshot
// store and never block a decision mid-mutation.
package engine

import (
	"context"
	"encoding/json"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/tapin/server/internal/cycle"
	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/observability"
	"github.com/tapin/server/internal/prompts"
	"github.com/tapin/server/internal/repository"
)

// Snapshot keys. The split layout keeps write amplification down: a
// Today post rewrites only the today blob, not the whole app state.
const (
	StateKeyTodayPhotos = "today_photos"
	StateKeyBlitzPhotos = "blitz_photos"
	StateKeyBlitzRounds = "blitz_rounds"
)

// RolloverEvent describes one round replacement, for broadcasting.
type RolloverEvent struct {
	GroupID    string
	OldRoundID string
	NewRound   models.BlitzRound
}

// PostResult is the outcome of a successful post.
type PostResult struct {
	Photo        *models.Photo
	Round        *models.BlitzRound // Blitz only
	RoundStarted bool               // true when this post flipped waiting to live
}

// Engine owns the in-memory photo and round state and its snapshots.
type Engine struct {
	mu     sync.Mutex
	today  *PhotoStore
	blitz  *PhotoStore
	rounds *RoundTable

	state         repository.StateStore
	roundDuration time.Duration
	clock         func() time.Time
	dirty         map[string]bool
	metrics       *observability.BusinessMetrics
}

// New creates an engine backed by the given snapshot store.
func New(state repository.StateStore, roundDuration time.Duration) *Engine {
	if roundDuration <= 0 {
		roundDuration = models.DefaultRoundDuration
	}
	return &Engine{
		today:         NewPhotoStore(),
		blitz:         NewPhotoStore(),
		rounds:        NewRoundTable(),
		state:         state,
		roundDuration: roundDuration,
		clock:         time.Now,
		dirty:         make(map[string]bool),
	}
}

// SetMetrics attaches snapshot-write metrics. Optional.
func (e *Engine) SetMetrics(m *observability.BusinessMetrics) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.metrics = m
}

// Load restores state from the snapshot store, merging whatever is
// durable with anything already in memory (in-memory records win on
// id collision, and an empty blob never wipes live state).
func (e *Engine) Load(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	var todayPhotos, blitzPhotos []*models.Photo
	if err := e.readBlob(ctx, StateKeyTodayPhotos, &todayPhotos); err != nil {
		return err
	}
	if err := e.readBlob(ctx, StateKeyBlitzPhotos, &blitzPhotos); err != nil {
		return err
	}

	var rounds []*models.BlitzRound
	if err := e.readBlob(ctx, StateKeyBlitzRounds, &rounds); err != nil {
		return err
	}

	e.today.Replace(MergePhotos(todayPhotos, e.today.All()))
	e.blitz.Replace(MergePhotos(blitzPhotos, e.blitz.All()))
	if len(rounds) > 0 {
		e.rounds.Replace(rounds)
	}

	observability.Infof("Engine loaded: %d today photos, %d blitz photos, %d rounds",
		e.today.Len(), e.blitz.Len(), len(e.rounds.All()))
	return nil
}

func (e *Engine) readBlob(ctx context.Context, key string, dst interface{}) error {
	data, ok, err := e.state.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("read state %q: %w", key, err)
	}
	if !ok {
		return nil
	}
	if err := json.Unmarshal(data, dst); err != nil {
		return fmt.Errorf("decode state %q: %w", key, err)
	}
	return nil
}

// EnsureRound guarantees the group has a round, creating a waiting
// one with a random prompt if needed. Called when a group is created.
func (e *Engine) EnsureRound(ctx context.Context, groupID string) (models.BlitzRound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	if existing := e.rounds.ForGroup(groupID); existing != nil {
		return *existing, nil
	}

	round := e.rounds.Put(models.NewWaitingRound(groupID, prompts.Random(""), e.clock()))
	e.dirty[StateKeyBlitzRounds] = true
	if err := e.persistLocked(ctx); err != nil {
		return *round, err
	}
	return *round, nil
}

// PostToday creates a Today photo for the user in the group, subject
// to the one-post-per-cycle gate.
func (e *Engine) PostToday(ctx context.Context, userID, groupID, imageURI string, overlay *models.TextOverlay) (*PostResult, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	if !CanPostToday(e.today, userID, groupID, now) {
		return nil, models.ErrAlreadyPosted
	}

	photo, err := models.NewTodayPhoto(groupID, userID, cycle.DateKey(now), imageURI, now, overlay)
	if err != nil {
		return nil, err
	}
	e.placeOnCanvas(photo, len(e.today.ForGroupAndCycle(groupID, photo.DateKey)))

	e.today.Replace(MergePhotos(e.today.All(), []*models.Photo{photo}))
	e.dirty[StateKeyTodayPhotos] = true

	result := &PostResult{Photo: photo}
	return result, e.persistLocked(ctx)
}

// PostBlitz creates a Blitz photo in the group's current round. An
// expired round is rolled over first; posting into a waiting round
// starts it. Locked rounds reject posts.
func (e *Engine) PostBlitz(ctx context.Context, userID, groupID, imageURI string, overlay *models.TextOverlay) (*PostResult, error) {
	if userID == "" {
		return nil, models.ErrNotAuthenticated
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	round := e.rounds.ForGroup(groupID)
	if round == nil {
		// Rounds are created alongside groups, so this is an invariant
		// violation; handled defensively rather than trusted.
		return nil, models.ErrNoActiveRound
	}
	if round.Status == models.RoundLocked {
		return nil, models.ErrRoundLocked
	}
	if round.IsExpired(now) {
		round = e.rounds.Rollover(groupID, now)
		e.dirty[StateKeyBlitzRounds] = true
	}

	if !CanPostBlitz(e.blitz, userID, round) {
		return nil, models.ErrAlreadyPosted
	}

	result := &PostResult{}
	if round.Status == models.RoundWaiting {
		round.Start(now, e.roundDuration)
		e.dirty[StateKeyBlitzRounds] = true
		result.RoundStarted = true
	}

	photo, err := models.NewBlitzPhoto(groupID, userID, round.RoundID, imageURI, now, overlay)
	if err != nil {
		return nil, err
	}
	e.placeOnCanvas(photo, len(e.blitz.ForRound(groupID, round.RoundID)))

	e.blitz.Replace(MergePhotos(e.blitz.All(), []*models.Photo{photo}))
	e.dirty[StateKeyBlitzPhotos] = true

	result.Photo = photo
	roundCopy := *round
	result.Round = &roundCopy
	return result, e.persistLocked(ctx)
}

// placeOnCanvas gives a new photo its random starting position and
// stacks it on top of the photos already visible in its bucket.
func (e *Engine) placeOnCanvas(p *models.Photo, visible int) {
	p.X = rand.Float64()*100 + 20
	p.Y = rand.Float64()*100 + 20
	p.ZIndex = visible + 1
}

// UpdatePosition moves a photo on the canvas. Unknown ids are a
// silent no-op.
func (e *Engine) UpdatePosition(ctx context.Context, photoID string, x, y float64, zIndex int) error {
	e.mu.Lock()
	defer e.mu.Unlock()

	if e.today.UpdatePosition(photoID, x, y, zIndex) {
		e.dirty[StateKeyTodayPhotos] = true
		return e.persistLocked(ctx)
	}
	if e.blitz.UpdatePosition(photoID, x, y, zIndex) {
		e.dirty[StateKeyBlitzPhotos] = true
		return e.persistLocked(ctx)
	}
	return nil
}

// EndRound explicitly rolls the group's round over to a fresh waiting
// round.
func (e *Engine) EndRound(ctx context.Context, groupID string) (*RolloverEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	old := e.rounds.ForGroup(groupID)
	if old == nil {
		return nil, models.ErrRoundNotFound
	}
	oldID := old.RoundID

	fresh := e.rounds.Rollover(groupID, e.clock())
	e.dirty[StateKeyBlitzRounds] = true

	event := &RolloverEvent{GroupID: groupID, OldRoundID: oldID, NewRound: *fresh}
	return event, e.persistLocked(ctx)
}

// ExpireRound rolls the group's round over only if the round the
// caller observed is still current and its deadline has elapsed. A
// sweeper tick that fires after the round already changed is a no-op,
// so stale timers can never act on a retired round.
func (e *Engine) ExpireRound(ctx context.Context, groupID, observedRoundID string) (*RolloverEvent, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	current := e.rounds.ForGroup(groupID)
	if current == nil || current.RoundID != observedRoundID {
		return nil, nil
	}
	if !current.IsExpired(e.clock()) {
		return nil, nil
	}

	fresh := e.rounds.Rollover(groupID, e.clock())
	e.dirty[StateKeyBlitzRounds] = true

	event := &RolloverEvent{GroupID: groupID, OldRoundID: observedRoundID, NewRound: *fresh}
	return event, e.persistLocked(ctx)
}

// LockRound freezes the group's round. No automatic transition ever
// produces a locked round; this is the explicit owner action.
func (e *Engine) LockRound(ctx context.Context, groupID string) (models.BlitzRound, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds.ForGroup(groupID)
	if round == nil {
		return models.BlitzRound{}, models.ErrRoundNotFound
	}

	round.Status = models.RoundLocked
	round.EndsAt = nil
	e.dirty[StateKeyBlitzRounds] = true
	return *round, e.persistLocked(ctx)
}

// CurrentRound returns a copy of the group's round, or found=false.
func (e *Engine) CurrentRound(groupID string) (models.BlitzRound, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds.ForGroup(groupID)
	if round == nil {
		return models.BlitzRound{}, false
	}
	return *round, true
}

// RoundsSnapshot returns copies of every group's current round, for
// the expiry sweeper.
func (e *Engine) RoundsSnapshot() []models.BlitzRound {
	e.mu.Lock()
	defer e.mu.Unlock()

	out := make([]models.BlitzRound, 0, len(e.rounds.All()))
	for _, r := range e.rounds.All() {
		out = append(out, *r)
	}
	return out
}

// TodayFeed returns the group's photos for the current cycle and
// whether the user has already posted in it.
func (e *Engine) TodayFeed(userID, groupID string) (string, []*models.Photo, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()

	now := e.clock()
	dateKey := cycle.DateKey(now)
	photos := e.today.ForGroupAndCycle(groupID, dateKey)
	return dateKey, photos, !CanPostToday(e.today, userID, groupID, now)
}

// BlitzFeed returns the group's current round, its photos, and
// whether the user has already posted into it.
func (e *Engine) BlitzFeed(userID, groupID string) (models.BlitzRound, []*models.Photo, bool, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	round := e.rounds.ForGroup(groupID)
	if round == nil {
		return models.BlitzRound{}, nil, false, models.ErrNoActiveRound
	}
	photos := e.blitz.ForRound(groupID, round.RoundID)
	return *round, photos, !CanPostBlitz(e.blitz, userID, round), nil
}

// RecapKeys returns every date key with Today photos, newest first.
func (e *Engine) RecapKeys() []string {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.today.DateKeys()
}

// RecapForDate returns all Today photos for a past cycle.
func (e *Engine) RecapForDate(dateKey string) []*models.Photo {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.today.ForDateKey(dateKey)
}

// Flush retries persisting any state a failed write left dirty.
func (e *Engine) Flush(ctx context.Context) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.persistLocked(ctx)
}

// persistLocked writes every dirty snapshot section. A failed write
// keeps its section dirty so a later call retries it; the in-memory
// optimistic state is never rolled back.
func (e *Engine) persistLocked(ctx context.Context) error {
	sections := []struct {
		key  string
		data interface{}
	}{
		{StateKeyTodayPhotos, e.today.All()},
		{StateKeyBlitzPhotos, e.blitz.All()},
		{StateKeyBlitzRounds, e.rounds.All()},
	}

	for _, section := range sections {
		if !e.dirty[section.key] {
			continue
		}
		blob, err := json.Marshal(section.data)
		if err != nil {
			return fmt.Errorf("encode state %q: %w", section.key, err)
		}
		err = e.state.Set(ctx, section.key, blob)
		if e.metrics != nil {
			e.metrics.RecordStateWrite(ctx, err == nil)
		}
		if err != nil {
			observability.Warnf("State write failed for %q, will retry: %v", section.key, err)
			return fmt.Errorf("write state %q: %w", section.key, err)
		}
		delete(e.dirty, section.key)
	}
	return nil
}
