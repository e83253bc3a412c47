// Package rng provides the production RNGPort: deterministic math/rand
// streams derived from a base seed, a stream name and an iteration index.
package rng

import (
	"context"
	"math/rand"

	"gobunch/ports"
)

// Adapter implements ports.RNGPort.
type Adapter struct{}

var _ ports.RNGPort = (*Adapter)(nil)

// NewAdapter returns a seeded RNG adapter
func NewAdapter() *Adapter {
	return &Adapter{}
}

// Stream creates the generator for iteration index of the named loop
func (a *Adapter) Stream(ctx context.Context, name string, baseSeed int64, index int) (*rand.Rand, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return rand.New(rand.NewSource(DeriveSeed(name, baseSeed, index))), nil
}

// DeriveSeed mixes the stream name, base seed and index into one seed.
// The mapping is injective in index for a fixed name and base seed.
func DeriveSeed(name string, baseSeed int64, index int) int64 {
	x := uint64(baseSeed)
	x = splitmix64(x ^ uint64(hashString(name)))
	x = splitmix64(x + uint64(index))
	return int64(x)
}

// splitmix64 is the finalizer from Steele, Lea & Flood (2014).
func splitmix64(x uint64) uint64 {
	x += 0x9e3779b97f4a7c15
	x = (x ^ (x >> 30)) * 0xbf58476d1ce4e5b9
	x = (x ^ (x >> 27)) * 0x94d049bb133111eb
	return x ^ (x >> 31)
}

// hashString creates a simple hash for deterministic seeding
func hashString(s string) uint32 {
	var hash uint32 = 5381
	for _, c := range s {
		hash = ((hash << 5) + hash) + uint32(c) // djb2 algorithm
	}
	return hash
}
