package profiling

import (
	"math/rand"
	"sort"

	"fieldforge/internal/apperr"
)

// Table is a counted multiset over a comparable key type, supporting
// weighted sampling once finalized. Profile instantiates it with string keys
// (patterns), rune keys (leading characters and the derived per-class
// character tables), int keys (lengths), and FactKey tuples (facts).
type Table[K comparable] struct {
	less      func(a, b K) bool
	counts    map[K]uint64
	keys      []K
	cum       []uint64
	total     uint64
	finalized bool
}

// NewTable builds an empty Table ordered by less, the natural-key comparator
// for K (code-point order for strings, numeric order for ints).
func NewTable[K comparable](less func(a, b K) bool) *Table[K] {
	return &Table[K]{
		less:   less,
		counts: make(map[K]uint64),
	}
}

// Add increments the count of key by one. Adding after Finalize clears the
// finalized mark, so the next Sample re-finalizes; Keys keeps returning the
// old order until Finalize runs again. Table itself does not track phases;
// the Profile's own phase discipline forbids training after finalize.
func (t *Table[K]) Add(key K) {
	t.counts[key]++
	t.total++
	t.finalized = false
}

// Finalize computes the cumulative-weight vector over entries sorted by
// key. Idempotent: calling it again after the key set hasn't changed simply
// recomputes the same vector.
func (t *Table[K]) Finalize() {
	keys := make([]K, 0, len(t.counts))
	for k := range t.counts {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool { return t.less(keys[i], keys[j]) })

	cum := make([]uint64, len(keys))
	var running uint64
	for i, k := range keys {
		running += t.counts[k]
		cum[i] = running
	}
	t.keys = keys
	t.cum = cum
	t.finalized = true
}

// Total returns the sum of all counts added so far.
func (t *Table[K]) Total() uint64 {
	return t.total
}

// Count returns the current count for key, zero if never added.
func (t *Table[K]) Count(key K) uint64 {
	return t.counts[key]
}

// Len reports the number of distinct keys.
func (t *Table[K]) Len() int {
	return len(t.counts)
}

// Keys returns the finalized, sorted key order. Call Finalize first.
func (t *Table[K]) Keys() []K {
	return t.keys
}

// Sample draws a key with probability proportional to its count, using a
// uniform draw over [0, total) and a binary search over the cumulative
// vector. sort.Search returns the first index whose cumulative weight
// exceeds the draw, so key i owns the draws in [cum[i-1], cum[i]) and a draw
// equal to cum[i] selects key i+1; every draw maps to exactly one key.
func (t *Table[K]) Sample(rng *rand.Rand) (K, error) {
	var zero K
	if !t.finalized {
		t.Finalize()
	}
	if t.total == 0 {
		return zero, apperr.ErrEmptyTable
	}
	draw := uint64(rng.Int63n(int64(t.total)))
	idx := sort.Search(len(t.cum), func(i int) bool { return t.cum[i] > draw })
	if idx >= len(t.keys) {
		idx = len(t.keys) - 1
	}
	return t.keys[idx], nil
}

// AddN increments key's count by n directly, used to bulk-load counts when
// deriving one table's statistics from another (e.g. rebuilding the
// prior/bucket-conditioned lookup tables from a class's canonical facts
// table) or when restoring a table from an archive.
func (t *Table[K]) AddN(key K, n uint64) {
	if n == 0 {
		return
	}
	t.counts[key] += n
	t.total += n
	t.finalized = false
}

// Merge folds another table's raw counts into t, used to combine per-worker
// scratch tables accumulated during parallel training. Because counts are
// summed per key, the result is identical regardless of merge order.
func (t *Table[K]) Merge(other *Table[K]) {
	for k, c := range other.counts {
		t.counts[k] += c
		t.total += c
	}
	t.finalized = false
}

// StringLess orders strings by code-point (rune) comparison.
func StringLess(a, b string) bool {
	ra, rb := []rune(a), []rune(b)
	for i := 0; i < len(ra) && i < len(rb); i++ {
		if ra[i] != rb[i] {
			return ra[i] < rb[i]
		}
	}
	return len(ra) < len(rb)
}

// IntLess orders ints numerically.
func IntLess(a, b int) bool {
	return a < b
}
