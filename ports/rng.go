package ports

import (
	"context"
	"math/rand"
)

// RNGPort provides seeded random number generation for deterministic operations
type RNGPort interface {
	// Stream creates the generator for one iteration of a named bootstrap loop.
	// The result depends only on (name, baseSeed, index), so iterations can run
	// in any order or in parallel and still reproduce bit-for-bit.
	Stream(ctx context.Context, name string, baseSeed int64, index int) (*rand.Rand, error)
}
