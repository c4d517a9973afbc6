// Package ports declares the small interfaces fieldforge's adapters
// implement.
package ports

import (
	"context"
	"math/rand"
)

// RNGPort is fieldforge's deterministic random source. Every stream is
// derived from a caller-supplied seed and name so that two streams requested
// with the same (name, seed) pair always produce identical draw sequences,
// and streams for distinct names never share state.
type RNGPort interface {
	Stream(ctx context.Context, name string, seed int64) (*rand.Rand, error)
}
