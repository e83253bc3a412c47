package scenario

import (
	"gobunch/domain/bunching"
	"gobunch/internal/errors"

	"gonum.org/v1/gonum/stat"
)

// Excess compares observed frequencies with the counterfactual mean at each
// bin the scenario excluded. The standard error of the total comes from the
// per-replicate totals, so it accounts for covariance between bins.
func Excess(observed bunching.BinnedFrequency, result *bunching.ScenarioResult) (bunching.ExcessMass, error) {
	if result == nil || result.Policy == nil {
		return bunching.ExcessMass{}, errors.InvalidInput("excess mass needs a scenario with an exclusion policy")
	}
	if !observed.Grid.Equal(result.Grid) {
		return bunching.ExcessMass{}, errors.InvalidInput("observed frequencies use a different grid than scenario %s", result.Key)
	}
	excluded, err := result.Policy.Excluded(result.Grid)
	if err != nil {
		return bunching.ExcessMass{}, err
	}
	if len(excluded) == 0 {
		return bunching.ExcessMass{}, errors.InvalidInput("scenario %s excludes no bins", result.Key)
	}

	out := bunching.ExcessMass{Key: result.Key}
	cols := make([]int, 0, len(excluded))
	for _, m := range excluded {
		j, _ := result.Grid.Index(m)
		cols = append(cols, j)
		be := bunching.BinExcess{
			Midpoint:  m,
			Observed:  observed.Values[j],
			Predicted: result.Mean[j],
			StdErr:    result.StdDev[j],
		}
		be.Excess = be.Observed - be.Predicted
		if be.StdErr > 0 {
			be.Z = be.Excess / be.StdErr
		}
		out.Bins = append(out.Bins, be)
		out.Total += be.Excess
	}

	totals := make([]float64, result.Iterations())
	for i := range totals {
		row := result.Matrix.RawRowView(i)
		for _, j := range cols {
			totals[i] += row[j]
		}
	}
	out.TotalStdErr = stat.StdDev(totals, nil)
	return out, nil
}
