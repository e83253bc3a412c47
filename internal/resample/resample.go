// Package resample draws bootstrap samples with replacement.
package resample

import (
	"math/rand"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
)

// Draw returns a bootstrap resample of the same size as s.
func Draw(rng *rand.Rand, s bunching.Sample) (bunching.Sample, error) {
	return DrawN(rng, s, s.Len())
}

// DrawN draws size observations from s independently and uniformly, with
// replacement. Weights travel with their observations.
func DrawN(rng *rand.Rand, s bunching.Sample, size int) (bunching.Sample, error) {
	if rng == nil {
		return bunching.Sample{}, errors.InvalidInput("resample needs an explicit random source")
	}
	if s.IsEmpty() {
		return bunching.Sample{}, errors.InvalidInput("cannot resample an empty sample")
	}
	if size < 0 {
		return bunching.Sample{}, errors.InvalidInput("resample size must be non-negative, got %d", size)
	}

	n := s.Len()
	values := make([]float64, size)
	if !s.Weighted() {
		for i := range values {
			values[i] = s.Value(rng.Intn(n))
		}
		return bunching.NewSample(values), nil
	}

	weights := make([]float64, size)
	for i := range values {
		j := rng.Intn(n)
		values[i] = s.Value(j)
		weights[i] = s.Weight(j)
	}
	return bunching.NewWeightedSample(values, weights)
}

// Pool concatenates samples. The result is weighted if any input is.
func Pool(samples ...bunching.Sample) (bunching.Sample, error) {
	var values, weights []float64
	weighted := false
	for _, s := range samples {
		weighted = weighted || s.Weighted()
	}
	for _, s := range samples {
		for i := 0; i < s.Len(); i++ {
			values = append(values, s.Value(i))
			if weighted {
				weights = append(weights, s.Weight(i))
			}
		}
	}
	if len(values) == 0 {
		return bunching.Sample{}, errors.InvalidInput("cannot pool empty samples")
	}
	if weighted {
		return bunching.NewWeightedSample(values, weights)
	}
	return bunching.NewSample(values), nil
}
