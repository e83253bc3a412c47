// Package polyfit fits least-squares polynomials to binned frequencies,
// optionally leaving bins out of the regression while still evaluating the
// curve on the full grid.
package polyfit

import (
	stderrors "errors"
	"math"
	"sort"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"

	"gonum.org/v1/gonum/mat"
)

// Fit regresses frequency on midpoint with ordinary least squares over the
// bins not listed in excluded, then evaluates the polynomial at every grid
// midpoint. Excluded bins therefore receive extrapolated (counterfactual)
// values.
func Fit(binned bunching.BinnedFrequency, degree int, excluded []float64) (bunching.FitResult, error) {
	grid := binned.Grid
	n := grid.Len()
	if n == 0 || len(binned.Values) != n {
		return bunching.FitResult{}, errors.InvalidInput("binned frequencies (%d) do not match the grid (%d bins)", len(binned.Values), n)
	}
	if degree < 0 {
		return bunching.FitResult{}, errors.InvalidInput("polynomial degree must be non-negative, got %d", degree)
	}

	skip := make([]bool, n)
	for _, m := range excluded {
		i, ok := grid.Index(m)
		if !ok {
			return bunching.FitResult{}, errors.InvalidInput("excluded midpoint %g is not on the bin grid", m)
		}
		skip[i] = true
	}

	var xs, ys []float64
	var dropped []float64
	for i := 0; i < n; i++ {
		if skip[i] {
			dropped = append(dropped, grid.Midpoint(i))
			continue
		}
		xs = append(xs, grid.Midpoint(i))
		ys = append(ys, binned.Values[i])
	}
	if len(xs) <= degree {
		return bunching.FitResult{}, errors.InsufficientData("%d included bins cannot determine a degree-%d polynomial", len(xs), degree)
	}

	center, scale := standardize(xs)
	a, err := solve(xs, ys, degree, center, scale)
	if err != nil {
		return bunching.FitResult{}, err
	}

	predicted := make([]float64, n)
	for i := 0; i < n; i++ {
		predicted[i] = horner(a, (grid.Midpoint(i)-center)/scale)
	}
	sort.Float64s(dropped)

	return bunching.FitResult{
		Degree:       degree,
		Coefficients: toRawBasis(a, center, scale),
		Predicted:    predicted,
		Excluded:     dropped,
	}, nil
}

// solve returns the least-squares coefficients in the standardized variable
// t = (x − center)/scale. Working in t keeps the Vandermonde matrix well
// conditioned for midpoints far from zero.
func solve(xs, ys []float64, degree int, center, scale float64) ([]float64, error) {
	rows, cols := len(xs), degree+1
	v := mat.NewDense(rows, cols, nil)
	for r, x := range xs {
		t := (x - center) / scale
		p := 1.0
		for c := 0; c < cols; c++ {
			v.Set(r, c, p)
			p *= t
		}
	}

	var qr mat.QR
	qr.Factorize(v)
	var sol mat.VecDense
	if err := qr.SolveVecTo(&sol, false, mat.NewVecDense(rows, ys)); err != nil {
		var cond mat.Condition
		if stderrors.As(err, &cond) {
			return nil, errors.InsufficientData("regression is numerically singular (condition number %g)", float64(cond))
		}
		return nil, errors.Wrap(err, "least squares solve failed")
	}

	out := make([]float64, cols)
	for i := range out {
		out[i] = sol.AtVec(i)
	}
	return out, nil
}

func standardize(xs []float64) (center, scale float64) {
	lo, hi := xs[0], xs[0]
	for _, x := range xs {
		lo = math.Min(lo, x)
		hi = math.Max(hi, x)
	}
	center = (lo + hi) / 2
	scale = (hi - lo) / 2
	if scale == 0 {
		scale = 1
	}
	return center, scale
}

// toRawBasis rewrites Σ a_k ((x − c)/s)^k as Σ b_j x^j.
func toRawBasis(a []float64, c, s float64) []float64 {
	b := make([]float64, len(a))
	for k, ak := range a {
		coef := ak / math.Pow(s, float64(k))
		for j := 0; j <= k; j++ {
			b[j] += coef * binomial(k, j) * math.Pow(-c, float64(k-j))
		}
	}
	return b
}

func binomial(n, k int) float64 {
	r := 1.0
	for i := 1; i <= k; i++ {
		r = r * float64(n-k+i) / float64(i)
	}
	return r
}

func horner(coefficients []float64, x float64) float64 {
	y := 0.0
	for i := len(coefficients) - 1; i >= 0; i-- {
		y = y*x + coefficients[i]
	}
	return y
}
