// Package ecdf builds empirical cumulative distribution functions evaluated
// on a shared support grid.
package ecdf

import (
	"math"
	"sort"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
)

// Point is one step of an ECDF: P(sample ≤ X).
type Point struct {
	X float64
	P float64
}

// ECDF is a right-continuous step function built from a sample.
type ECDF struct {
	sorted []float64
	cum    []float64
	points []Point
}

// PooledSupport returns the sorted, de-duplicated union of the samples'
// values. Comparing ECDFs on this grid is exact: both step functions only
// change at these points.
func PooledSupport(samples ...bunching.Sample) []float64 {
	var all []float64
	for _, s := range samples {
		for i := 0; i < s.Len(); i++ {
			all = append(all, s.Value(i))
		}
	}
	sort.Float64s(all)
	out := all[:0]
	for i, v := range all {
		if i == 0 || v != all[i-1] {
			out = append(out, v)
		}
	}
	return out
}

// Build computes the ECDF of s and evaluates it on support. Weighted samples
// give weighted cumulative probabilities.
func Build(s bunching.Sample, support []float64) (*ECDF, error) {
	if s.IsEmpty() {
		return nil, errors.InvalidInput("cannot build an ECDF from an empty sample")
	}
	if len(support) == 0 {
		return nil, errors.InvalidInput("ECDF support grid is empty")
	}

	idx := make([]int, s.Len())
	for i := range idx {
		v := s.Value(i)
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, errors.InvalidInput("observation %d is not finite", i)
		}
		idx[i] = i
	}
	sort.SliceStable(idx, func(a, b int) bool { return s.Value(idx[a]) < s.Value(idx[b]) })

	e := &ECDF{
		sorted: make([]float64, len(idx)),
		cum:    make([]float64, len(idx)),
	}
	running := 0.0
	for k, i := range idx {
		running += s.Weight(i)
		e.sorted[k] = s.Value(i)
		e.cum[k] = running
	}
	if running <= 0 {
		return nil, errors.InvalidInput("sample has zero total weight")
	}

	e.points = make([]Point, len(support))
	for i, x := range support {
		e.points[i] = Point{X: x, P: e.Evaluate(x)}
	}
	return e, nil
}

// Evaluate returns P(sample ≤ x).
func (e *ECDF) Evaluate(x float64) float64 {
	k := sort.Search(len(e.sorted), func(i int) bool { return e.sorted[i] > x })
	if k == 0 {
		return 0
	}
	if k == len(e.sorted) {
		return 1
	}
	return e.cum[k-1] / e.cum[len(e.cum)-1]
}

// Points returns the ECDF on its support grid.
func (e *ECDF) Points() []Point {
	return append([]Point(nil), e.points...)
}

// tieTolerance absorbs rounding in cumulative ratios when locating the
// first point attaining the supremum.
const tieTolerance = 1e-12

// SupDistance returns sup |F(x) − G(x)| over the shared support of f and g,
// the first x attaining it and the sign of F(x) − G(x) there.
func SupDistance(f, g *ECDF) (stat, argSup float64, sign int, err error) {
	if len(f.points) != len(g.points) {
		return 0, 0, 0, errors.InvalidInput("ECDFs are evaluated on different supports (%d vs %d points)", len(f.points), len(g.points))
	}
	argSup = f.points[0].X
	for i, p := range f.points {
		if p.X != g.points[i].X {
			return 0, 0, 0, errors.InvalidInput("ECDF supports differ at index %d", i)
		}
		d := p.P - g.points[i].P
		if math.Abs(d) > stat+tieTolerance {
			stat = math.Abs(d)
			argSup = p.X
			sign = 1
			if d < 0 {
				sign = -1
			}
		}
	}
	return stat, argSup, sign, nil
}
