package models

import (
	"time"

	"github.com/google/uuid"
)

// RoundStatus is the Blitz round lifecycle state. Locked is reachable
// only through an explicit owner action; automatic transitions cycle
// between waiting and live.
type RoundStatus string

const (
	RoundWaiting RoundStatus = "waiting"
	RoundLive    RoundStatus = "live"
	RoundLocked  RoundStatus = "locked"
)

// DefaultRoundDuration is how long a round stays live after its first
// photo lands.
const DefaultRoundDuration = 5 * time.Minute

// BlitzRound is one timed group challenge. At most one round exists
// per group at any time; rollover retires the old RoundID and mints a
// fresh one.
type BlitzRound struct {
	RoundID   string      `json:"roundId"`
	GroupID   string      `json:"groupId"`
	Status    RoundStatus `json:"status"`
	EndsAt    *time.Time  `json:"endsAt,omitempty"` // set only while live
	Prompt    string      `json:"prompt"`
	CreatedAt time.Time   `json:"createdAt"`
}

// NewWaitingRound creates a fresh waiting round for a group.
func NewWaitingRound(groupID, prompt string, now time.Time) *BlitzRound {
	return &BlitzRound{
		RoundID:   uuid.New().String(),
		GroupID:   groupID,
		Status:    RoundWaiting,
		Prompt:    prompt,
		CreatedAt: now,
	}
}

// Start transitions a waiting round to live with a deadline.
func (r *BlitzRound) Start(now time.Time, duration time.Duration) {
	ends := now.Add(duration)
	r.Status = RoundLive
	r.EndsAt = &ends
}

// IsExpired reports whether a live round's deadline has elapsed. The
// check uses >= so a round with zero seconds remaining counts as
// expired even before any rollover side effect has run. Pure function
// of the round and the given clock, callable from a sweeper tick, a
// post attempt, or an explicit poll.
func (r *BlitzRound) IsExpired(now time.Time) bool {
	return r.Status == RoundLive && r.EndsAt != nil && !now.Before(*r.EndsAt)
}

// SecondsRemaining returns the whole seconds left on a live round,
// never negative. Zero for waiting and locked rounds.
func (r *BlitzRound) SecondsRemaining(now time.Time) int64 {
	if r.Status != RoundLive || r.EndsAt == nil {
		return 0
	}
	remaining := r.EndsAt.Sub(now)
	if remaining <= 0 {
		return 0
	}
	return int64(remaining / time.Second)
}

// Round errors
type RoundError struct {
	Message string
}

func (e RoundError) Error() string {
	return e.Message
}

var (
	ErrRoundNotFound = RoundError{"round not found"}
	ErrRoundLocked   = RoundError{"round is locked"}
)
