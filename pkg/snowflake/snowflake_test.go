package snowflake

import (
	"sync"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewGenerator(t *testing.T) {
	t.Run("valid worker id", func(t *testing.T) {
		g, err := NewGenerator(42)
		require.NoError(t, err)
		assert.NotNil(t, g)
	})

	t.Run("worker id out of range", func(t *testing.T) {
		_, err := NewGenerator(1024)
		assert.ErrorIs(t, err, ErrInvalidWorkerID)

		_, err = NewGenerator(-1)
		assert.ErrorIs(t, err, ErrInvalidWorkerID)
	})
}

func TestNextID_MonotonicAndDecodable(t *testing.T) {
	g, err := NewGenerator(7)
	require.NoError(t, err)

	var prev int64
	for range 1000 {
		id, err := g.NextID()
		require.NoError(t, err)
		assert.Greater(t, id, prev)
		assert.EqualValues(t, 7, WorkerID(id))
		prev = id
	}
}

func TestProperty_IDUniqueness(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("all generated IDs are unique", prop.ForAll(
		func(count int) bool {
			g, err := NewGenerator(1)
			if err != nil {
				return false
			}

			ids := make(map[int64]bool)
			for range count {
				id, err := g.NextID()
				if err != nil {
					return false
				}
				if ids[id] {
					return false
				}
				ids[id] = true
			}
			return len(ids) == count
		},
		gen.IntRange(100, 1000),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}

func TestProperty_IDUniqueness_Concurrent(t *testing.T) {
	properties := gopter.NewProperties(nil)

	properties.Property("IDs generated concurrently are unique", prop.ForAll(
		func(goroutines, perGoroutine int) bool {
			g, err := NewGenerator(1)
			if err != nil {
				return false
			}

			var mu sync.Mutex
			ids := make(map[int64]bool)
			dup := false

			var wg sync.WaitGroup
			for range goroutines {
				wg.Add(1)
				go func() {
					defer wg.Done()
					for range perGoroutine {
						id, err := g.NextID()
						if err != nil {
							return
						}
						mu.Lock()
						if ids[id] {
							dup = true
						}
						ids[id] = true
						mu.Unlock()
					}
				}()
			}
			wg.Wait()

			return !dup && len(ids) == goroutines*perGoroutine
		},
		gen.IntRange(2, 8),
		gen.IntRange(50, 200),
	))

	properties.TestingRun(t, gopter.ConsoleReporter(false))
}
