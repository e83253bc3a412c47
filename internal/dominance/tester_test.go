package dominance

import (
	"context"
	stderrors "errors"
	"testing"

	"gobunch/domain/bunching"
	domainDominance "gobunch/domain/dominance"
	"gobunch/internal/errors"
	"gobunch/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

func newTestTester(t *testing.T) *Tester {
	t.Helper()
	return NewTester(testkit.NewTestKit().RNGAdapter(), zaptest.NewLogger(t))
}

func TestIdenticalSamplesAreNotRejected(t *testing.T) {
	tester := newTestTester(t)
	tester.Iterations = 1000
	tester.Alpha = 0.05

	a := bunching.NewSample([]float64{1, 2, 3, 4, 5})
	b := bunching.NewSample([]float64{1, 2, 3, 4, 5})

	result, err := tester.Test(context.Background(), a, b)
	require.NoError(t, err)
	assert.False(t, result.Reject)
	assert.Equal(t, 0.0, result.Statistic)
	assert.Equal(t, domainDominance.DirectionNone, result.Direction)
	assert.Equal(t, domainDominance.DirectionNone, result.Dominant())
	assert.Equal(t, 1.0, result.PValue)
	assert.Equal(t, 1000, result.Iterations)
	assert.GreaterOrEqual(t, result.CriticalValue, 0.0)
}

func TestFalsePositiveRateIsControlled(t *testing.T) {
	kit := testkit.NewTestKit()
	const trials = 40

	rejected := 0
	for trial := 0; trial < trials; trial++ {
		tester := newTestTester(t)
		tester.Iterations = 200
		tester.Seed = int64(trial)

		a := kit.SmoothSample(uint64(1000+trial), 60)
		b := kit.SmoothSample(uint64(2000+trial), 60)
		result, err := tester.Test(context.Background(), a, b)
		require.NoError(t, err)
		if result.Reject {
			rejected++
		}
	}
	assert.LessOrEqual(t, float64(rejected)/trials, 0.2, "rejections: %d/%d", rejected, trials)
}

func TestIdenticalMultisetsNeverRejectAcrossTrials(t *testing.T) {
	kit := testkit.NewTestKit()
	notRejected := 0
	for trial := 0; trial < 20; trial++ {
		s := kit.SmoothSample(uint64(trial), 40)
		tester := newTestTester(t)
		tester.Iterations = 500
		tester.Seed = int64(trial)

		result, err := tester.Test(context.Background(), s, bunching.NewSample(s.Values()))
		require.NoError(t, err)
		if !result.Reject {
			notRejected++
		}
	}
	assert.GreaterOrEqual(t, notRejected, 18)
}

func TestShiftedSampleDominates(t *testing.T) {
	gen := testkit.NewProportionGenerator(testkit.DefaultProportionConfig())
	high := gen.Shifted(200, 0.3)
	low := gen.Shifted(200, 0)

	tester := newTestTester(t)
	tester.Iterations = 500
	result, err := tester.Test(context.Background(), high, low)
	require.NoError(t, err)

	assert.True(t, result.Reject)
	assert.Equal(t, -1, result.Sign)
	assert.Equal(t, domainDominance.DirectionA, result.Direction)
	assert.Equal(t, domainDominance.DirectionA, result.Dominant())
	assert.Greater(t, result.Statistic, result.CriticalValue)
	assert.Less(t, result.PValue, 0.01)
	assert.Equal(t, 200, result.SizeA)
	assert.LessOrEqual(t, result.Null.Min, result.Null.Percentile95)
	assert.LessOrEqual(t, result.Null.Percentile95, result.Null.Max)

	reversed, err := tester.Test(context.Background(), low, high)
	require.NoError(t, err)
	assert.Equal(t, domainDominance.DirectionB, reversed.Direction)
}

func TestResultIsReproducible(t *testing.T) {
	kit := testkit.NewTestKit()
	a := kit.SmoothSample(1, 80)
	b := kit.SmoothSample(2, 90)

	tester := newTestTester(t)
	tester.Iterations = 300
	tester.Seed = 77
	first, err := tester.Test(context.Background(), a, b)
	require.NoError(t, err)

	tester.Workers = 1
	second, err := tester.Test(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, first, second)
}

func TestDisjointSupport(t *testing.T) {
	_, err := newTestTester(t).Test(context.Background(),
		bunching.NewSample([]float64{0.2, 0.2}),
		bunching.NewSample([]float64{0.2}))
	require.Error(t, err)
	assert.True(t, stderrors.Is(err, errors.ErrDisjointSupport))
}

func TestZeroWeightObservationsNeverReachTheNull(t *testing.T) {
	a, err := bunching.NewWeightedSample([]float64{1, 2, 3}, []float64{1, 1, 0})
	require.NoError(t, err)
	b := bunching.NewSample([]float64{1, 2, 3})

	for seed := int64(0); seed < 10; seed++ {
		tester := newTestTester(t)
		tester.Seed = seed + 7
		tester.Iterations = 1000

		result, err := tester.Test(context.Background(), a, b)
		require.NoError(t, err, "seed %d", tester.Seed)
		assert.Equal(t, 2, result.SizeA)
		assert.Equal(t, 3, result.SizeB)
	}
}

func TestInvalidInputs(t *testing.T) {
	ok := bunching.NewSample([]float64{1, 2})

	_, err := newTestTester(t).Test(context.Background(), bunching.NewSample(nil), ok)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	tester := newTestTester(t)
	tester.Alpha = 1
	_, err = tester.Test(context.Background(), ok, ok)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	tester = newTestTester(t)
	tester.Iterations = 0
	_, err = tester.Test(context.Background(), ok, ok)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))

	tester = newTestTester(t)
	tester.RNG = nil
	_, err = tester.Test(context.Background(), ok, ok)
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
	assert.Contains(t, err.Error(), "random source")
}

func TestTesterRNGIsReplaceable(t *testing.T) {
	kit := testkit.NewTestKit()
	tester := NewTester(kit.RNGAdapter(), nil)
	require.NotNil(t, tester.RNG)

	tester.Iterations = 50
	tester.Seed = 3
	a := bunching.NewSample([]float64{1, 2, 3, 4})
	b := bunching.NewSample([]float64{2, 3, 4, 5})
	first, err := tester.Test(context.Background(), a, b)
	require.NoError(t, err)

	swapped := *tester
	swapped.RNG = kit.RNGAdapter()
	second, err := swapped.Test(context.Background(), a, b)
	require.NoError(t, err)
	assert.Equal(t, first.CriticalValue, second.CriticalValue)
}
