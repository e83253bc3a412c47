package bunching

import (
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// ScenarioResult holds every bootstrap replicate of one scenario as a row of
// Matrix, with the per-bin mean and sample standard deviation across rows.
// The standard deviation is the bootstrapped standard error of the predicted
// density at that bin.
type ScenarioResult struct {
	Key    string
	Policy ExclusionPolicy
	Grid   BinGrid
	Degree int
	Seed   int64

	Matrix *mat.Dense
	Mean   []float64
	StdDev []float64
}

// NewScenarioResult takes ownership of data, a row-major buffer of
// rows × grid.Len() predictions, and computes the column summaries.
func NewScenarioResult(key string, policy ExclusionPolicy, grid BinGrid, degree int, seed int64, rows int, data []float64) *ScenarioResult {
	m := mat.NewDense(rows, grid.Len(), data)
	r := &ScenarioResult{
		Key:    key,
		Policy: policy,
		Grid:   grid,
		Degree: degree,
		Seed:   seed,
		Matrix: m,
		Mean:   make([]float64, grid.Len()),
		StdDev: make([]float64, grid.Len()),
	}
	col := make([]float64, rows)
	for j := 0; j < grid.Len(); j++ {
		mat.Col(col, j, m)
		r.Mean[j], r.StdDev[j] = stat.MeanStdDev(col, nil)
	}
	return r
}

// Iterations returns the number of bootstrap replicates.
func (r *ScenarioResult) Iterations() int {
	rows, _ := r.Matrix.Dims()
	return rows
}

// Row returns a copy of replicate i.
func (r *ScenarioResult) Row(i int) []float64 {
	return mat.Row(nil, i, r.Matrix)
}

// MeanStandardError is the Monte-Carlo error of Mean, StdDev/√iterations.
// It shrinks as iterations grow while StdDev stays put.
func (r *ScenarioResult) MeanStandardError() []float64 {
	n := math.Sqrt(float64(r.Iterations()))
	out := make([]float64, len(r.StdDev))
	for i, s := range r.StdDev {
		out[i] = s / n
	}
	return out
}

// BinExcess compares the observed frequency at an excluded bin with the
// counterfactual predicted there.
type BinExcess struct {
	Midpoint  float64 `json:"midpoint"`
	Observed  float64 `json:"observed"`
	Predicted float64 `json:"predicted"`
	StdErr    float64 `json:"std_err"`
	Excess    float64 `json:"excess"`
	// Z is Excess/StdErr, or 0 when StdErr is 0.
	Z float64 `json:"z"`
}

// ExcessMass summarises bunching over the excluded bins of a scenario.
type ExcessMass struct {
	Key         string      `json:"key"`
	Bins        []BinExcess `json:"bins"`
	Total       float64     `json:"total"`
	TotalStdErr float64     `json:"total_std_err"`
}
