package engine

import (
	"time"

	"github.com/tapin/server/internal/models"
	"github.com/tapin/server/internal/prompts"
)

// RoundTable holds the current Blitz round per group. The invariant
// is exactly one round per group; Rollover enforces it with a
// deterministic dedup pass so a timer tick and a post attempt racing
// to roll the same round over cannot leave duplicates behind. Not
// safe for concurrent use on its own; the Engine serializes access.
type RoundTable struct {
	rounds []*models.BlitzRound
}

// NewRoundTable creates an empty table.
func NewRoundTable() *RoundTable {
	return &RoundTable{}
}

// ForGroup returns the group's current round, or nil.
func (t *RoundTable) ForGroup(groupID string) *models.BlitzRound {
	for _, r := range t.rounds {
		if r.GroupID == groupID {
			return r
		}
	}
	return nil
}

// Put inserts a round for a group that has none yet. When the group
// already has a round the call is a no-op and the existing round is
// returned, keeping the one-round-per-group invariant.
func (t *RoundTable) Put(round *models.BlitzRound) *models.BlitzRound {
	if existing := t.ForGroup(round.GroupID); existing != nil {
		return existing
	}
	t.rounds = append(t.rounds, round)
	return round
}

// Rollover retires the group's current round and installs a fresh
// waiting round with a re-rolled prompt, excluding the outgoing
// round's prompt from the draw. The replacement happens in place and
// is followed by a first-seen-wins dedup keyed on GroupID, so calling
// Rollover twice in immediate succession still leaves exactly one
// round for the group. Returns the new round, or nil when the group
// has no round to roll over.
func (t *RoundTable) Rollover(groupID string, now time.Time) *models.BlitzRound {
	old := t.ForGroup(groupID)
	if old == nil {
		return nil
	}

	fresh := models.NewWaitingRound(groupID, prompts.Random(old.Prompt), now)

	replaced := make([]*models.BlitzRound, 0, len(t.rounds))
	seen := make(map[string]bool, len(t.rounds))
	for _, r := range t.rounds {
		candidate := r
		if r.GroupID == groupID {
			candidate = fresh
		}
		if seen[candidate.GroupID] {
			continue
		}
		seen[candidate.GroupID] = true
		replaced = append(replaced, candidate)
	}
	t.rounds = replaced

	return fresh
}

// All returns the backing slice. Callers must not mutate it.
func (t *RoundTable) All() []*models.BlitzRound {
	return t.rounds
}

// Replace swaps the table's contents, dropping any duplicate rounds
// per group (first seen wins). Used when restoring a snapshot.
func (t *RoundTable) Replace(rounds []*models.BlitzRound) {
	deduped := make([]*models.BlitzRound, 0, len(rounds))
	seen := make(map[string]bool, len(rounds))
	for _, r := range rounds {
		if seen[r.GroupID] {
			continue
		}
		seen[r.GroupID] = true
		deduped = append(deduped, r)
	}
	t.rounds = deduped
}
