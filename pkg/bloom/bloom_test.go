package bloom

import (
	"fmt"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"pgregory.net/rapid"
)

func TestFilter_AddTest(t *testing.T) {
	f := New(1000, 0.01)

	assert.False(t, f.Test([]byte("code-abc")))
	f.Add([]byte("code-abc"))
	assert.True(t, f.Test([]byte("code-abc")))
}

func TestFilter_TestAndAdd(t *testing.T) {
	f := New(1000, 0.01)

	assert.False(t, f.TestAndAdd([]byte("code-abc")))
	assert.True(t, f.TestAndAdd([]byte("code-abc")))
}

// Count tracks additions only; Test must not change it.
func TestFilter_CountTracksAdditions(t *testing.T) {
	f := New(1000, 0.01)

	assert.EqualValues(t, 0, f.Count())
	f.Add([]byte("a"))
	f.TestAndAdd([]byte("b"))
	f.Test([]byte("a"))
	assert.EqualValues(t, 2, f.Count())
}

func TestFilter_Concurrent(t *testing.T) {
	f := New(10000, 0.01)

	var wg sync.WaitGroup
	for i := range 20 {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := range 100 {
				f.Add(fmt.Appendf(nil, "item-%d-%d", n, j))
			}
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 2000, f.Count())
	for i := range 20 {
		for j := range 100 {
			assert.True(t, f.Test(fmt.Appendf(nil, "item-%d-%d", i, j)))
		}
	}
}

// Property: an added item is always reported present (no false negatives).
func TestProperty_NoFalseNegatives(t *testing.T) {
	rapid.Check(t, func(t *rapid.T) {
		items := rapid.SliceOfN(rapid.SliceOfN(rapid.Byte(), 1, 64), 1, 200).Draw(t, "items")

		f := New(uint(len(items)), 0.01)
		for _, item := range items {
			f.Add(item)
		}
		for _, item := range items {
			if !f.Test(item) {
				t.Fatalf("added item reported absent: %q", item)
			}
		}
	})
}

// Property: the false positive rate stays near the configured bound.
func TestProperty_FalsePositiveRate(t *testing.T) {
	const n = 5000
	f := New(n, 0.01)

	for i := range n {
		f.Add(fmt.Appendf(nil, "present-%d", i))
	}

	falsePositives := 0
	const probes = 10000
	for i := range probes {
		if f.Test(fmt.Appendf(nil, "absent-%d", i)) {
			falsePositives++
		}
	}

	// Allow generous slack over the 1% target to keep the test stable.
	assert.Less(t, float64(falsePositives)/probes, 0.05)
}
