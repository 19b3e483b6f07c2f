package engine

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/tapin/server/internal/models"
)

func TestRoundTablePut(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	table := NewRoundTable()

	first := table.Put(models.NewWaitingRound("g1", "Floor check", now))
	second := table.Put(models.NewWaitingRound("g1", "Shadow selfie", now))

	assert.Same(t, first, second)
	assert.Len(t, table.All(), 1)
}

func TestRoundTableRollover(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)

	t.Run("retires the round id and re-rolls the prompt", func(t *testing.T) {
		table := NewRoundTable()
		old := table.Put(models.NewWaitingRound("g1", "Floor check", now))

		fresh := table.Rollover("g1", now)

		require.NotNil(t, fresh)
		assert.NotEqual(t, old.RoundID, fresh.RoundID)
		assert.NotEqual(t, old.Prompt, fresh.Prompt)
		assert.Equal(t, models.RoundWaiting, fresh.Status)
		assert.Nil(t, fresh.EndsAt)
	})

	t.Run("double rollover leaves exactly one round per group", func(t *testing.T) {
		table := NewRoundTable()
		table.Put(models.NewWaitingRound("g1", "Floor check", now))
		table.Put(models.NewWaitingRound("g2", "Shadow selfie", now))

		table.Rollover("g1", now)
		table.Rollover("g1", now)

		count := 0
		for _, r := range table.All() {
			if r.GroupID == "g1" {
				count++
			}
		}
		assert.Equal(t, 1, count)
		assert.Len(t, table.All(), 2)
	})

	t.Run("unknown group returns nil", func(t *testing.T) {
		table := NewRoundTable()
		assert.Nil(t, table.Rollover("missing", now))
	})

	t.Run("other groups are untouched", func(t *testing.T) {
		table := NewRoundTable()
		table.Put(models.NewWaitingRound("g1", "Floor check", now))
		g2 := table.Put(models.NewWaitingRound("g2", "Shadow selfie", now))

		table.Rollover("g1", now)

		assert.Same(t, g2, table.ForGroup("g2"))
	})
}

func TestRoundTableReplace(t *testing.T) {
	now := time.Date(2024, 1, 1, 10, 0, 0, 0, time.UTC)
	table := NewRoundTable()

	a := models.NewWaitingRound("g1", "Floor check", now)
	duplicate := models.NewWaitingRound("g1", "Shadow selfie", now)
	b := models.NewWaitingRound("g2", "Reflection photo", now)

	table.Replace([]*models.BlitzRound{a, duplicate, b})

	assert.Len(t, table.All(), 2)
	assert.Equal(t, a.RoundID, table.ForGroup("g1").RoundID)
}
