package app

import (
	"context"
	stderrors "errors"
	"testing"

	"gobunch/domain/bunching"
	"gobunch/domain/core"
	domainDominance "gobunch/domain/dominance"
	"gobunch/internal/dominance"
	"gobunch/internal/errors"
	"gobunch/internal/scenario"
	"gobunch/internal/testkit"
	"gobunch/ports"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zaptest"
)

// MockResultRepository is a mock implementation of ports.ResultRepository
type MockResultRepository struct {
	mock.Mock
}

func (m *MockResultRepository) SaveScenario(ctx context.Context, runID core.RunID, fingerprint core.Hash, result *bunching.ScenarioResult) error {
	args := m.Called(ctx, runID, fingerprint, result)
	return args.Error(0)
}

func (m *MockResultRepository) SaveDominance(ctx context.Context, runID core.RunID, key string, result *domainDominance.Result) error {
	args := m.Called(ctx, runID, key, result)
	return args.Error(0)
}

func (m *MockResultRepository) ListScenarios(ctx context.Context, runID core.RunID) ([]ports.ScenarioRecord, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]ports.ScenarioRecord), args.Error(1)
}

func (m *MockResultRepository) ListDominance(ctx context.Context, runID core.RunID) ([]ports.DominanceRecord, error) {
	args := m.Called(ctx, runID)
	return args.Get(0).([]ports.DominanceRecord), args.Error(1)
}

func newTestService(t *testing.T, repo ports.ResultRepository) *AnalysisService {
	t.Helper()
	kit := testkit.NewTestKit()
	logger := zaptest.NewLogger(t)
	runner := scenario.NewRunner(kit.RNGAdapter(), logger)
	tester := dominance.NewTester(kit.RNGAdapter(), logger)
	tester.Iterations = 200
	return NewAnalysisService(runner, tester, repo, logger)
}

func familyConfig(t *testing.T, targets ...float64) scenario.FamilyConfig {
	t.Helper()
	grid, err := bunching.GridFromBounds(0, 1, 0.05)
	require.NoError(t, err)
	return scenario.FamilyConfig{
		Grid:       grid,
		Degree:     4,
		Targets:    targets,
		Threshold:  0.20,
		Iterations: 50,
		Seed:       123,
	}
}

func TestRunBunchingPersistsEveryScenario(t *testing.T) {
	repo := &MockResultRepository{}
	repo.On("SaveScenario", mock.Anything, core.RunID("run-1"), mock.AnythingOfType("core.Hash"), mock.AnythingOfType("*bunching.ScenarioResult")).Return(nil)

	svc := newTestService(t, repo)
	sample := testkit.NewTestKit().BunchedSample(42)

	report, err := svc.RunBunching(context.Background(), BunchingRequest{
		Sample:   sample,
		Families: familyConfig(t, 0.175, 0.225),
		RunID:    "run-1",
	})
	require.NoError(t, err)

	assert.Empty(t, report.Failures)
	assert.Len(t, report.Scenarios, 5)
	assert.Len(t, report.Excess, 3)
	assert.Len(t, report.Observed, 20)
	assert.Equal(t, 1000, report.Profile.Count)
	assert.False(t, report.Fingerprint.IsEmpty())
	repo.AssertNumberOfCalls(t, "SaveScenario", 5)

	combined := report.Results[LocalCombinedKey]
	require.NotNil(t, combined)
	assert.Equal(t, 100, combined.Iterations())

	var window *bunching.ExcessMass
	for i := range report.Excess {
		if report.Excess[i].Key == "window_0.2±bw" {
			window = &report.Excess[i]
		}
	}
	require.NotNil(t, window)
	assert.Greater(t, window.Total, 0.0)
}

func TestRunBunchingIsolatesFailedScenarios(t *testing.T) {
	svc := newTestService(t, nil)
	sample := testkit.NewTestKit().BunchedSample(7)

	report, err := svc.RunBunching(context.Background(), BunchingRequest{
		Sample:   sample,
		Families: familyConfig(t, 0.175, 0.18),
	})
	require.NoError(t, err)
	require.Len(t, report.Failures, 1)
	assert.Equal(t, "exclude_0.18", report.Failures[0].Key)
	assert.Equal(t, errors.CodeInvalidInput, report.Failures[0].Code)

	assert.Contains(t, report.Results, "exclude_0.175")
	assert.Contains(t, report.Results, "baseline")
	assert.Contains(t, report.Results, "window_0.2±bw")
	assert.NotContains(t, report.Results, LocalCombinedKey)
	assert.NotEmpty(t, report.RunID)
}

func TestRunBunchingRejectsEmptySample(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.RunBunching(context.Background(), BunchingRequest{
		Sample:   bunching.NewSample(nil),
		Families: familyConfig(t, 0.175),
	})
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}

func TestRunBunchingReportsPersistenceErrors(t *testing.T) {
	repo := &MockResultRepository{}
	repo.On("SaveScenario", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(stderrors.New("connection refused"))

	svc := newTestService(t, repo)
	cfg := familyConfig(t)
	cfg.Families = []scenario.Family{scenario.FamilyBaseline}

	_, err := svc.RunBunching(context.Background(), BunchingRequest{
		Sample:   testkit.NewTestKit().SmoothSample(3, 300),
		Families: cfg,
	})
	require.Error(t, err)
	assert.Equal(t, errors.CodeDatabaseError, errors.GetCode(err))
	repo.AssertNumberOfCalls(t, "SaveScenario", 1)
}

func TestCompareSamples(t *testing.T) {
	repo := &MockResultRepository{}
	repo.On("SaveDominance", mock.Anything, mock.Anything, "shifted", mock.AnythingOfType("*dominance.Result")).Return(nil)

	gen := testkit.NewProportionGenerator(testkit.DefaultProportionConfig())
	svc := newTestService(t, repo)

	report, err := svc.CompareSamples(context.Background(), DominanceRequest{
		Key: "shifted",
		A:   gen.Shifted(150, 0.3),
		B:   gen.Shifted(150, 0),
	})
	require.NoError(t, err)
	assert.True(t, report.Result.Reject)
	assert.Equal(t, domainDominance.DirectionA, report.Result.Dominant())
	repo.AssertExpectations(t)
}

func TestCompareSamplesDisjointSupport(t *testing.T) {
	svc := newTestService(t, nil)
	_, err := svc.CompareSamples(context.Background(), DominanceRequest{
		A: bunching.NewSample([]float64{1}),
		B: bunching.NewSample([]float64{1, 1}),
	})
	assert.True(t, stderrors.Is(err, errors.ErrDisjointSupport))
}

func TestResultsCanBeListedAfterARun(t *testing.T) {
	ctx := context.Background()
	kit := testkit.NewTestKit()
	repo := kit.ResultRepository()
	svc := newTestService(t, repo)

	runID := core.NewRunID()
	cfg := familyConfig(t, 0.225)
	cfg.Families = []scenario.Family{scenario.FamilyLocal, scenario.FamilyWindow}
	_, err := svc.RunBunching(ctx, BunchingRequest{Sample: kit.BunchedSample(1), Families: cfg, RunID: runID})
	require.NoError(t, err)

	gen := testkit.NewProportionGenerator(testkit.DefaultProportionConfig())
	_, err = svc.CompareSamples(ctx, DominanceRequest{Key: "same", A: gen.Shifted(80, 0), B: gen.Shifted(80, 0), RunID: runID})
	require.NoError(t, err)

	scenarios, err := repo.ListScenarios(ctx, runID)
	require.NoError(t, err)
	require.Len(t, scenarios, 2)
	assert.Equal(t, "exclude_0.225", scenarios[0].Key)
	assert.Equal(t, "window_0.2±bw", scenarios[1].Key)
	assert.Equal(t, 50, scenarios[0].Iterations)

	comparisons, err := repo.ListDominance(ctx, runID)
	require.NoError(t, err)
	require.Len(t, comparisons, 1)
	assert.Equal(t, 80, comparisons[0].Result.SizeA)
}
