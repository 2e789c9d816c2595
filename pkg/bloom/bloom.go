package bloom

import (
	"math"
	"sync"

	"github.com/bits-and-blooms/bitset"
	"github.com/twmb/murmur3"
)

// Filter is a thread-safe bloom filter used as a fast local replay guard
// (e.g. already-seen OAuth authorization codes). False positives are
// possible, false negatives are not.
type Filter struct {
	mu    sync.RWMutex
	bits  *bitset.BitSet
	m     uint // number of bits
	k     uint // number of hash functions
	added uint // items added
}

// New sizes a filter for the expected number of items n at the given
// false-positive rate using the standard optimal m/k formulas.
func New(n uint, fpRate float64) *Filter {
	if n == 0 {
		n = 1
	}
	if fpRate <= 0 || fpRate >= 1 {
		fpRate = 0.01
	}
	m := uint(math.Ceil(-1 * float64(n) * math.Log(fpRate) / (math.Ln2 * math.Ln2)))
	k := uint(math.Round(float64(m) / float64(n) * math.Ln2))
	if k < 1 {
		k = 1
	}
	return &Filter{
		bits: bitset.New(m),
		m:    m,
		k:    k,
	}
}

// positions derives k bit positions via double hashing over murmur3's
// two 64-bit outputs.
func (f *Filter) positions(data []byte) []uint {
	h1, h2 := murmur3.Sum128(data)
	positions := make([]uint, f.k)
	for i := uint(0); i < f.k; i++ {
		positions[i] = uint((h1 + uint64(i)*h2) % uint64(f.m))
	}
	return positions
}

// Add records an item.
func (f *Filter) Add(data []byte) {
	positions := f.positions(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	for _, p := range positions {
		f.bits.Set(p)
	}
	f.added++
}

// Test reports whether the item may have been added before.
func (f *Filter) Test(data []byte) bool {
	positions := f.positions(data)
	f.mu.RLock()
	defer f.mu.RUnlock()
	for _, p := range positions {
		if !f.bits.Test(p) {
			return false
		}
	}
	return true
}

// TestAndAdd tests then adds in one critical section. Returns true when
// the item was possibly present already.
func (f *Filter) TestAndAdd(data []byte) bool {
	positions := f.positions(data)
	f.mu.Lock()
	defer f.mu.Unlock()
	present := true
	for _, p := range positions {
		if !f.bits.Test(p) {
			present = false
		}
		f.bits.Set(p)
	}
	f.added++
	return present
}

// Count returns the number of items added.
func (f *Filter) Count() uint {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.added
}
