// Package bunching holds the value types of the bunching diagnostic: samples,
// bin grids, binned frequencies, exclusion policies and bootstrap results.
package bunching

import (
	"math"
	"sort"

	"gobunch/internal/errors"
)

// gridTolerance is the relative tolerance (in bin widths) used to match a
// value to a grid midpoint.
const gridTolerance = 1e-9

// Sample is an ordered sequence of observations with optional weights.
// A Sample never changes after construction; accessors return copies.
type Sample struct {
	values  []float64
	weights []float64
}

// NewSample builds an unweighted sample. The input slice is copied.
func NewSample(values []float64) Sample {
	return Sample{values: append([]float64(nil), values...)}
}

// NewWeightedSample builds a weighted sample. Weights must match values in
// length and be finite and non-negative. Zero-weight observations are
// dropped, so every non-empty weighted sample has positive total weight.
func NewWeightedSample(values, weights []float64) (Sample, error) {
	if len(values) != len(weights) {
		return Sample{}, errors.InvalidInput("sample has %d values but %d weights", len(values), len(weights))
	}
	kept := Sample{
		values:  make([]float64, 0, len(values)),
		weights: make([]float64, 0, len(weights)),
	}
	for i, w := range weights {
		if w < 0 || math.IsNaN(w) || math.IsInf(w, 0) {
			return Sample{}, errors.InvalidInput("weight %d is %v; weights must be finite and non-negative", i, w)
		}
		if w == 0 {
			continue
		}
		kept.values = append(kept.values, values[i])
		kept.weights = append(kept.weights, w)
	}
	if len(values) > 0 && kept.IsEmpty() {
		return Sample{}, errors.InvalidInput("sample has zero total weight")
	}
	return kept, nil
}

// Len returns the number of observations.
func (s Sample) Len() int { return len(s.values) }

// IsEmpty reports whether the sample has no observations.
func (s Sample) IsEmpty() bool { return len(s.values) == 0 }

// Weighted reports whether the sample carries explicit weights.
func (s Sample) Weighted() bool { return s.weights != nil }

// Value returns observation i.
func (s Sample) Value(i int) float64 { return s.values[i] }

// Weight returns the weight of observation i (1 for unweighted samples).
func (s Sample) Weight(i int) float64 {
	if s.weights == nil {
		return 1
	}
	return s.weights[i]
}

// Values returns a copy of the observations.
func (s Sample) Values() []float64 { return append([]float64(nil), s.values...) }

// Weights returns a copy of the weights, or nil for an unweighted sample.
func (s Sample) Weights() []float64 {
	if s.weights == nil {
		return nil
	}
	return append([]float64(nil), s.weights...)
}

// TotalWeight is the sum of weights (the length for unweighted samples).
func (s Sample) TotalWeight() float64 {
	if s.weights == nil {
		return float64(len(s.values))
	}
	total := 0.0
	for _, w := range s.weights {
		total += w
	}
	return total
}

// Sorted returns the observations in ascending order.
func (s Sample) Sorted() []float64 {
	out := s.Values()
	sort.Float64s(out)
	return out
}

// BinGrid is a strictly increasing sequence of bin midpoints with a fixed
// bin width.
type BinGrid struct {
	midpoints []float64
	width     float64
}

// NewBinGrid builds a grid from explicit midpoints. At least two midpoints
// are needed to infer the width, and spacing must be uniform.
func NewBinGrid(midpoints []float64) (BinGrid, error) {
	if len(midpoints) < 2 {
		return BinGrid{}, errors.InvalidInput("bin grid needs at least 2 midpoints, got %d", len(midpoints))
	}
	width := midpoints[1] - midpoints[0]
	if !(width > 0) || math.IsInf(width, 0) {
		return BinGrid{}, errors.InvalidInput("bin grid midpoints must be strictly increasing")
	}
	for i := 1; i < len(midpoints); i++ {
		step := midpoints[i] - midpoints[i-1]
		if !(step > 0) {
			return BinGrid{}, errors.InvalidInput("bin grid midpoints must be strictly increasing (index %d)", i)
		}
		if math.Abs(step-width) > gridTolerance*math.Max(1, width)*float64(len(midpoints)) {
			return BinGrid{}, errors.InvalidInput("bin grid must have a fixed width: step %d is %g, expected %g", i, step, width)
		}
	}
	return BinGrid{midpoints: append([]float64(nil), midpoints...), width: width}, nil
}

// GridFromBounds covers [lower, upper] with bins of the given width and
// returns their midpoints. The range must be a whole number of bins.
func GridFromBounds(lower, upper, width float64) (BinGrid, error) {
	if !(width > 0) || math.IsInf(width, 0) {
		return BinGrid{}, errors.InvalidInput("bin width must be positive, got %g", width)
	}
	if !(upper > lower) {
		return BinGrid{}, errors.InvalidInput("upper bound %g must exceed lower bound %g", upper, lower)
	}
	span := upper - lower
	n := math.Round(span / width)
	if n < 1 || math.Abs(n*width-span) > gridTolerance*span*n {
		return BinGrid{}, errors.InvalidInput("range [%g, %g] is not a whole number of bins of width %g", lower, upper, width)
	}
	mids := make([]float64, int(n))
	for i := range mids {
		mids[i] = roundDigits(lower+(float64(i)+0.5)*width, 10)
	}
	return BinGrid{midpoints: mids, width: width}, nil
}

// Len returns the number of bins.
func (g BinGrid) Len() int { return len(g.midpoints) }

// Width returns the bin width.
func (g BinGrid) Width() float64 { return g.width }

// Midpoint returns the midpoint of bin i.
func (g BinGrid) Midpoint(i int) float64 { return g.midpoints[i] }

// Midpoints returns a copy of the midpoints.
func (g BinGrid) Midpoints() []float64 { return append([]float64(nil), g.midpoints...) }

// Lower is the lower edge of the first bin.
func (g BinGrid) Lower() float64 { return g.midpoints[0] - g.width/2 }

// Upper is the upper edge of the last bin.
func (g BinGrid) Upper() float64 { return g.midpoints[len(g.midpoints)-1] + g.width/2 }

// Index returns the bin whose midpoint equals m, within a tiny fraction of
// the bin width.
func (g BinGrid) Index(m float64) (int, bool) {
	tol := gridTolerance * g.width
	i := sort.SearchFloat64s(g.midpoints, m-tol)
	if i < len(g.midpoints) && math.Abs(g.midpoints[i]-m) <= tol {
		return i, true
	}
	return -1, false
}

// Equal reports whether two grids have the same midpoints and width.
func (g BinGrid) Equal(o BinGrid) bool {
	if len(g.midpoints) != len(o.midpoints) || g.width != o.width {
		return false
	}
	for i := range g.midpoints {
		if g.midpoints[i] != o.midpoints[i] {
			return false
		}
	}
	return true
}

// BinnedFrequency is the frequency observed at each grid midpoint. Values is
// aligned with the grid and never negative.
type BinnedFrequency struct {
	Grid   BinGrid
	Values []float64
}

// Total returns the sum of all bin frequencies.
func (b BinnedFrequency) Total() float64 {
	total := 0.0
	for _, v := range b.Values {
		total += v
	}
	return total
}

// FitResult is a polynomial fitted to a binned distribution and evaluated at
// every grid midpoint, excluded ones included.
type FitResult struct {
	Degree int
	// Coefficients in increasing power of the midpoint, len = Degree+1.
	Coefficients []float64
	// Predicted holds the fitted value at every grid midpoint.
	Predicted []float64
	// Excluded lists the midpoints that were left out of the regression.
	Excluded []float64
}

func roundDigits(x float64, digits int) float64 {
	p := math.Pow(10, float64(digits))
	return math.Round(x*p) / p
}
