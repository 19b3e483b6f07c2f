package models

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewWaitingRound(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	round := NewWaitingRound("g1", "Floor check", now)

	assert.NotEmpty(t, round.RoundID)
	assert.Equal(t, "g1", round.GroupID)
	assert.Equal(t, RoundWaiting, round.Status)
	assert.Nil(t, round.EndsAt)
	assert.Equal(t, "Floor check", round.Prompt)
}

func TestRoundStart(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	round := NewWaitingRound("g1", "Floor check", now)

	round.Start(now, DefaultRoundDuration)

	assert.Equal(t, RoundLive, round.Status)
	require.NotNil(t, round.EndsAt)
	assert.Equal(t, now.Add(5*time.Minute), *round.EndsAt)
}

func TestRoundIsExpired(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("waiting round never expires", func(t *testing.T) {
		round := NewWaitingRound("g1", "Floor check", now)
		assert.False(t, round.IsExpired(now.Add(time.Hour)))
	})

	t.Run("live round is not expired before its deadline", func(t *testing.T) {
		round := NewWaitingRound("g1", "Floor check", now)
		round.Start(now, DefaultRoundDuration)
		assert.False(t, round.IsExpired(now.Add(5*time.Minute-time.Millisecond)))
	})

	t.Run("deadline instant counts as expired", func(t *testing.T) {
		round := NewWaitingRound("g1", "Floor check", now)
		round.Start(now, DefaultRoundDuration)
		assert.True(t, round.IsExpired(now.Add(5*time.Minute)))
		assert.True(t, round.IsExpired(now.Add(5*time.Minute+time.Millisecond)))
	})
}

func TestRoundSecondsRemaining(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	round := NewWaitingRound("g1", "Floor check", now)

	assert.Zero(t, round.SecondsRemaining(now))

	round.Start(now, DefaultRoundDuration)
	assert.Equal(t, int64(300), round.SecondsRemaining(now))
	assert.Equal(t, int64(120), round.SecondsRemaining(now.Add(3*time.Minute)))
	assert.Zero(t, round.SecondsRemaining(now.Add(10*time.Minute)))
}

func TestRoundToResponse(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	round := NewWaitingRound("g1", "Floor check", now)
	round.Start(now, DefaultRoundDuration)

	t.Run("reports live with remaining time", func(t *testing.T) {
		resp := RoundToResponse(round, now.Add(time.Minute))
		assert.Equal(t, RoundLive, resp.Status)
		assert.Equal(t, int64(240), resp.SecondsRemaining)
	})

	t.Run("stale live status past the deadline is not reported as live", func(t *testing.T) {
		resp := RoundToResponse(round, now.Add(6*time.Minute))
		assert.NotEqual(t, RoundLive, resp.Status)
		assert.Zero(t, resp.SecondsRemaining)
	})
}
