// Package profiling describes the shape of an input sample before the
// bunching diagnostic runs on it.
package profiling

import (
	"math"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"

	"github.com/montanaflynn/stats"
)

// SampleProfile holds summary statistics of an unweighted view of a sample.
type SampleProfile struct {
	Count    int     `json:"count"`
	Mean     float64 `json:"mean"`
	StdDev   float64 `json:"std_dev"`
	Min      float64 `json:"min"`
	Max      float64 `json:"max"`
	Median   float64 `json:"median"`
	Q25      float64 `json:"q25"`
	Q75      float64 `json:"q75"`
	Skewness float64 `json:"skewness"`
	// Outliers counts observations beyond 1.5 IQR of the quartiles.
	Outliers int `json:"outliers"`
	// HeapedShare is the share of observations lying on a multiple of the
	// heaping step. Round-number reporting inflates it.
	HeapedShare float64 `json:"heaped_share"`
}

// Profiler computes sample profiles.
type Profiler struct {
	// HeapingStep is the spacing of "round" values, e.g. 0.05.
	HeapingStep float64
}

// NewProfiler creates a profiler that counts heaping on multiples of step.
func NewProfiler(step float64) *Profiler {
	return &Profiler{HeapingStep: step}
}

// Profile summarises s.
func (p *Profiler) Profile(s bunching.Sample) (SampleProfile, error) {
	if s.IsEmpty() {
		return SampleProfile{}, errors.InvalidInput("cannot profile an empty sample")
	}
	data := stats.Float64Data(s.Values())
	out := SampleProfile{Count: len(data)}

	var err error
	if out.Mean, err = data.Mean(); err != nil {
		return out, errors.Wrap(err, "sample mean")
	}
	if len(data) > 1 {
		if out.StdDev, err = data.StandardDeviationSample(); err != nil {
			return out, errors.Wrap(err, "sample standard deviation")
		}
	}
	if out.Min, err = data.Min(); err != nil {
		return out, errors.Wrap(err, "sample minimum")
	}
	if out.Max, err = data.Max(); err != nil {
		return out, errors.Wrap(err, "sample maximum")
	}
	if out.Median, err = data.Median(); err != nil {
		return out, errors.Wrap(err, "sample median")
	}
	if out.Q25, err = data.Percentile(25); err != nil {
		return out, errors.Wrap(err, "sample 25th percentile")
	}
	if out.Q75, err = data.Percentile(75); err != nil {
		return out, errors.Wrap(err, "sample 75th percentile")
	}

	out.Skewness = skewness(data, out.Mean, out.StdDev)
	out.Outliers = outliers(data, out.Q25, out.Q75)
	out.HeapedShare = heapedShare(data, p.HeapingStep)
	return out, nil
}

// skewness is the adjusted Fisher-Pearson coefficient.
func skewness(data []float64, mean, stdDev float64) float64 {
	if len(data) < 3 || stdDev == 0 {
		return 0
	}
	n := float64(len(data))
	sum := 0.0
	for _, x := range data {
		d := (x - mean) / stdDev
		sum += d * d * d
	}
	return sum / n * math.Sqrt(n*(n-1)) / (n - 2)
}

func outliers(data []float64, q25, q75 float64) int {
	iqr := q75 - q25
	lo, hi := q25-1.5*iqr, q75+1.5*iqr
	count := 0
	for _, x := range data {
		if x < lo || x > hi {
			count++
		}
	}
	return count
}

func heapedShare(data []float64, step float64) float64 {
	if !(step > 0) {
		return 0
	}
	heaped := 0
	for _, x := range data {
		k := x / step
		if math.Abs(k-math.Round(k)) < 1e-6 {
			heaped++
		}
	}
	return float64(heaped) / float64(len(data))
}
