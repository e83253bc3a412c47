package scenario

import (
	"context"
	stderrors "errors"
	"testing"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
	"gobunch/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestExcessDetectsBunching(t *testing.T) {
	kit := testkit.NewTestKit()
	runner := newTestRunner(t, kit)
	sample := kit.BunchedSample(11)
	grid := percentGrid(t)

	result, err := runner.Run(context.Background(), Spec{
		Key:        "window_0.2±bw",
		Sample:     sample,
		Grid:       grid,
		Degree:     4,
		Policy:     bunching.WindowExclusion{Threshold: 0.20},
		Iterations: 200,
		Seed:       1,
	})
	require.NoError(t, err)

	observed, err := runner.Binner.Bin(sample, grid)
	require.NoError(t, err)

	mass, err := Excess(observed, result)
	require.NoError(t, err)
	require.Len(t, mass.Bins, 2)
	assert.Equal(t, 0.175, mass.Bins[0].Midpoint)
	assert.Equal(t, 0.225, mass.Bins[1].Midpoint)

	// The spike sits in [0.20, 0.24), i.e. the 0.225 bin.
	spike := mass.Bins[1]
	assert.Greater(t, spike.Excess, 0.0)
	assert.Greater(t, spike.Z, 3.0)
	assert.Greater(t, mass.Total, 0.0)
	assert.Greater(t, mass.TotalStdErr, 0.0)
}

func TestExcessNeedsExcludedBins(t *testing.T) {
	grid := percentGrid(t)
	baseline := bunching.NewScenarioResult("baseline", bunching.NoExclusion{}, grid, 1, 0, 2, make([]float64, 40))
	observed := bunching.BinnedFrequency{Grid: grid, Values: make([]float64, 20)}

	_, err := Excess(observed, baseline)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	stacked := bunching.NewScenarioResult("stacked", nil, grid, 1, 0, 2, make([]float64, 40))
	_, err = Excess(observed, stacked)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}
