// Package dominance holds the outcome of a first-order stochastic dominance
// comparison between two samples.
package dominance

// Direction names the sample whose distribution leads at the arg-sup point.
type Direction string

const (
	// DirectionA means F_A(x*) < F_B(x*): A puts less mass on low outcomes.
	DirectionA Direction = "a"
	// DirectionB means F_B(x*) < F_A(x*).
	DirectionB Direction = "b"
	// DirectionNone means the ECDFs coincide at x* (statistic 0).
	DirectionNone Direction = "none"
)

// DirectionFromSign maps the sign of F_A(x*) − F_B(x*) to a Direction.
func DirectionFromSign(sign int) Direction {
	switch {
	case sign < 0:
		return DirectionA
	case sign > 0:
		return DirectionB
	default:
		return DirectionNone
	}
}

// NullSummary describes the bootstrap null distribution of the statistic.
type NullSummary struct {
	Mean         float64 `json:"mean"`
	StdDev       float64 `json:"std_dev"`
	Min          float64 `json:"min"`
	Max          float64 `json:"max"`
	Percentile95 float64 `json:"p95"`
	Percentile99 float64 `json:"p99"`
}

// Result is the outcome of one Barrett–Donald test. It is never modified
// after the test returns.
type Result struct {
	// Statistic is sup_x |F_A(x) − F_B(x)| over the pooled support.
	Statistic float64 `json:"statistic"`
	// CriticalValue is the (1 − Alpha) empirical quantile of the null.
	CriticalValue float64 `json:"critical_value"`
	// Reject is Statistic > CriticalValue.
	Reject bool `json:"reject"`
	// PValue is the share of null statistics at least as large as Statistic.
	PValue float64 `json:"p_value"`
	// ArgSup is the first support point attaining Statistic.
	ArgSup float64 `json:"arg_sup"`
	// Sign is the sign of F_A(ArgSup) − F_B(ArgSup).
	Sign      int       `json:"sign"`
	Direction Direction `json:"direction"`

	Alpha      float64     `json:"alpha"`
	Iterations int         `json:"iterations"`
	SizeA      int         `json:"size_a"`
	SizeB      int         `json:"size_b"`
	Null       NullSummary `json:"null"`
}

// Dominant returns the sample judged to dominate, or DirectionNone when the
// null was not rejected.
func (r *Result) Dominant() Direction {
	if !r.Reject {
		return DirectionNone
	}
	return r.Direction
}
