package profiling

import "fieldforge/domain/pattern"

// Sentinel is the prior/next character used at a value's boundary. -1 is
// not a Unicode code point, so it can never collide with a real decoded
// character from valid input text.
const Sentinel rune = -1

// PositionBucket coarsens a character's index within its value to one of
// three buckets: start when index_from_start is 0, end when index_from_end
// is 0, middle otherwise.
type PositionBucket string

const (
	BucketStart  PositionBucket = "start"
	BucketMiddle PositionBucket = "middle"
	BucketEnd    PositionBucket = "end"
)

func bucketFor(indexFromStart, indexFromEnd int) PositionBucket {
	switch {
	case indexFromStart == 0:
		return BucketStart
	case indexFromEnd == 0:
		return BucketEnd
	default:
		return BucketMiddle
	}
}

// Fact is an immutable observation of one character in context. Facts are
// never mutated after construction; they reference characters by value, not
// by pointer into the source string, so the original sample is unreachable
// once training completes.
type Fact struct {
	CharValue      rune
	CharClass      pattern.Tag
	PriorChar      rune
	NextChar       rune
	IndexFromStart int
	IndexFromEnd   int
	WordLength     int
}

// FactKey is the lookup key within a class-partitioned facts Frequency
// Table: (prior_char, position_bucket, char_value).
type FactKey struct {
	Prior  rune
	Bucket PositionBucket
	Char   rune
}

// FactKeyLess orders FactKeys by prior char, then bucket name, then char,
// each compared in code-point/lexical order, giving a stable deterministic
// sort for Finalize.
func FactKeyLess(a, b FactKey) bool {
	if a.Prior != b.Prior {
		return a.Prior < b.Prior
	}
	if a.Bucket != b.Bucket {
		return a.Bucket < b.Bucket
	}
	return a.Char < b.Char
}

// factsFromValue emits one Fact per code point of value, in order.
func factsFromValue(value string, classify func(rune) pattern.Tag) []Fact {
	runes := []rune(value)
	n := len(runes)
	facts := make([]Fact, n)
	for i, r := range runes {
		prior := Sentinel
		if i > 0 {
			prior = runes[i-1]
		}
		next := Sentinel
		if i < n-1 {
			next = runes[i+1]
		}
		facts[i] = Fact{
			CharValue:      r,
			CharClass:      classify(r),
			PriorChar:      prior,
			NextChar:       next,
			IndexFromStart: i,
			IndexFromEnd:   n - 1 - i,
			WordLength:     n,
		}
	}
	return facts
}
