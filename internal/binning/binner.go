// Package binning turns raw observations into per-midpoint frequencies on a
// fixed BinGrid.
package binning

import (
	"math"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
)

// EdgePolicy decides what happens to observations outside the grid.
type EdgePolicy int

const (
	// EdgeReject fails the whole binning with InvalidInput.
	EdgeReject EdgePolicy = iota
	// EdgeClamp counts the observation in the nearest edge bin.
	EdgeClamp
)

func (p EdgePolicy) String() string {
	switch p {
	case EdgeReject:
		return "reject"
	case EdgeClamp:
		return "clamp"
	default:
		return "unknown"
	}
}

// ParseEdgePolicy parses "reject" or "clamp".
func ParseEdgePolicy(s string) (EdgePolicy, error) {
	switch s {
	case "reject", "":
		return EdgeReject, nil
	case "clamp":
		return EdgeClamp, nil
	}
	return EdgeReject, errors.InvalidInput("unknown edge policy %q", s)
}

// NoRounding disables rounding before assignment.
const NoRounding = -1

// Binner assigns observations to the containing bin. Bins are half-open
// [lo, hi) except the last one, which is closed.
type Binner struct {
	// Precision rounds observations to that many decimal digits before
	// assignment; 0 rounds to whole numbers and a negative value disables
	// rounding.
	Precision int
	// Normalize scales frequencies to sum to 1.
	Normalize bool
	Edge      EdgePolicy
}

// Bin counts s (weight sums for weighted samples) per grid midpoint.
func (b Binner) Bin(s bunching.Sample, grid bunching.BinGrid) (bunching.BinnedFrequency, error) {
	if s.IsEmpty() {
		return bunching.BinnedFrequency{}, errors.InvalidInput("cannot bin an empty sample")
	}
	if grid.Len() == 0 {
		return bunching.BinnedFrequency{}, errors.InvalidInput("cannot bin against an empty grid")
	}

	freq := make([]float64, grid.Len())
	for i := 0; i < s.Len(); i++ {
		idx, err := b.Assign(s.Value(i), grid)
		if err != nil {
			return bunching.BinnedFrequency{}, err
		}
		freq[idx] += s.Weight(i)
	}

	if b.Normalize {
		total := 0.0
		for _, f := range freq {
			total += f
		}
		if total == 0 {
			return bunching.BinnedFrequency{}, errors.InvalidInput("sample has zero total weight")
		}
		for i := range freq {
			freq[i] /= total
		}
	}
	return bunching.BinnedFrequency{Grid: grid, Values: freq}, nil
}

// Assign returns the index of the bin containing x.
func (b Binner) Assign(x float64, grid bunching.BinGrid) (int, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return -1, errors.InvalidInput("observation %v is not finite", x)
	}
	if b.Precision >= 0 {
		x = roundDigits(x, b.Precision)
	}

	n := grid.Len()
	lower, upper := edge(grid, 0), edge(grid, n)
	tol := 1e-9 * grid.Width()
	switch {
	case x < lower-tol || x > upper+tol:
		if b.Edge != EdgeClamp {
			return -1, errors.InvalidInput("observation %g is outside the grid range [%g, %g]", x, lower, upper)
		}
		if x < lower {
			return 0, nil
		}
		return n - 1, nil
	case x <= lower:
		return 0, nil
	case x >= upper:
		return n - 1, nil
	}

	idx := int(math.Floor((x - lower) / grid.Width()))
	if idx < 0 {
		idx = 0
	}
	if idx > n-1 {
		idx = n - 1
	}
	// Floor of the quotient can be one off next to an edge.
	for idx > 0 && x < edge(grid, idx) {
		idx--
	}
	for idx < n-1 && x >= edge(grid, idx+1) {
		idx++
	}
	return idx, nil
}

// Label returns the lower edge of the bin containing x.
func (b Binner) Label(x float64, grid bunching.BinGrid) (float64, error) {
	idx, err := b.Assign(x, grid)
	if err != nil {
		return 0, err
	}
	return edge(grid, idx), nil
}

// edge returns the lower edge of bin k (k == Len gives the upper bound).
func edge(grid bunching.BinGrid, k int) float64 {
	return roundDigits(grid.Lower()+float64(k)*grid.Width(), 10)
}

func roundDigits(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}
