// Package rng implements ports.RNGPort over math/rand.
package rng

import (
	"context"
	"hash/fnv"
	"math/rand"

	"fieldforge/ports"
)

// Source is the concrete ports.RNGPort adapter.
type Source struct{}

// New builds an RNGPort backed by math/rand.
func New() *Source { return &Source{} }

var _ ports.RNGPort = (*Source)(nil)

// Stream mixes name's FNV-1a hash into seed so that distinct names produce
// independent, reproducible streams from one shared base seed.
func (s *Source) Stream(_ context.Context, name string, seed int64) (*rand.Rand, error) {
	h := fnv.New64a()
	_, _ = h.Write([]byte(name))
	mixed := seed ^ int64(h.Sum64())
	return rand.New(rand.NewSource(mixed)), nil
}
