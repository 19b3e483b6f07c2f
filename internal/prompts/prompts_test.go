package prompts

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRandom(t *testing.T) {
	t.Run("draws from the pool", func(t *testing.T) {
		got := Random("")
		assert.Contains(t, Pool, got)
	})

	t.Run("never repeats the excluded prompt", func(t *testing.T) {
		for _, excluded := range Pool {
			for i := 0; i < 20; i++ {
				assert.NotEqual(t, excluded, Random(excluded))
			}
		}
	})

	t.Run("exclusion of unknown prompt keeps full pool", func(t *testing.T) {
		got := Random("not a real prompt")
		assert.Contains(t, Pool, got)
	})
}

func TestPool(t *testing.T) {
	t.Run("has no duplicates", func(t *testing.T) {
		seen := make(map[string]bool, len(Pool))
		for _, p := range Pool {
			assert.False(t, seen[p], "duplicate prompt: %s", p)
			seen[p] = true
		}
	})

	t.Run("is large enough for rotation", func(t *testing.T) {
		assert.Greater(t, len(Pool), 1)
	})
}
