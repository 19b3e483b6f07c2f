package engine

import (
	"time"

	"github.com/tapin/server/internal/cycle"
	"github.com/tapin/server/internal/models"
)

// CanPostToday reports whether the user may create a Today photo in
// the group right now: true iff no existing Today photo by that user
// in that group has a creation time inside the current cycle window.
// The window test and the date-key filter agree by construction; both
// are applied, matching how eligibility was defined.
func CanPostToday(store *PhotoStore, userID, groupID string, now time.Time) bool {
	start, end := cycle.Window(now)
	dateKey := cycle.DateKey(now)
	for _, p := range store.ForGroupAndCycle(groupID, dateKey) {
		if p.UserID == userID && cycle.Contains(p.CreatedAt, start, end) {
			return false
		}
	}
	return true
}

// CanPostBlitz reports whether the user may post into the given
// round: true iff the round exists and the user has no photo attached
// to it yet.
func CanPostBlitz(store *PhotoStore, userID string, round *models.BlitzRound) bool {
	if round == nil {
		return false
	}
	for _, p := range store.ForRound(round.GroupID, round.RoundID) {
		if p.UserID == userID {
			return false
		}
	}
	return true
}
