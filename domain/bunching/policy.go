package bunching

import (
	"strconv"

	"gobunch/internal/errors"
)

// ExclusionPolicy selects the grid midpoints left out of a regression. The
// set of policies is closed: NoExclusion, LocalExclusion and WindowExclusion.
type ExclusionPolicy interface {
	// Key identifies the scenario the policy defines, e.g. "exclude_0.175".
	Key() string
	// Excluded resolves the policy against a grid.
	Excluded(grid BinGrid) ([]float64, error)

	sealed()
}

// NoExclusion fits every bin (the baseline scenario).
type NoExclusion struct{}

// LocalExclusion leaves out a single midpoint.
type LocalExclusion struct {
	Midpoint float64
}

// WindowExclusion leaves out every midpoint within one bin width of Threshold.
type WindowExclusion struct {
	Threshold float64
}

func (NoExclusion) Key() string { return "baseline" }

func (NoExclusion) Excluded(BinGrid) ([]float64, error) { return nil, nil }

func (NoExclusion) sealed() {}

func (p LocalExclusion) Key() string { return "exclude_" + formatValue(p.Midpoint) }

func (p LocalExclusion) Excluded(grid BinGrid) ([]float64, error) {
	i, ok := grid.Index(p.Midpoint)
	if !ok {
		return nil, errors.InvalidInput("midpoint %g is not on the bin grid", p.Midpoint)
	}
	return []float64{grid.Midpoint(i)}, nil
}

func (LocalExclusion) sealed() {}

func (p WindowExclusion) Key() string { return "window_" + formatValue(p.Threshold) + "±bw" }

func (p WindowExclusion) Excluded(grid BinGrid) ([]float64, error) {
	reach := grid.Width() * (1 + gridTolerance)
	var out []float64
	for _, m := range grid.midpoints {
		if d := m - p.Threshold; d <= reach && d >= -reach {
			out = append(out, m)
		}
	}
	if len(out) == 0 {
		return nil, errors.InvalidInput("window around %g excludes no bins", p.Threshold)
	}
	return out, nil
}

func (WindowExclusion) sealed() {}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}
