package app

import (
	"context"
	"time"

	"gobunch/domain/bunching"
	"gobunch/domain/core"
	domainDominance "gobunch/domain/dominance"
	"gobunch/internal/dominance"
	"gobunch/internal/errors"
	"gobunch/internal/profiling"
	"gobunch/internal/scenario"
	"gobunch/ports"

	"go.uber.org/zap"
)

// LocalCombinedKey names the stacked result of the local family.
const LocalCombinedKey = "local_combined"

// AnalysisService runs the bunching diagnostic and dominance comparisons,
// isolating failures per scenario and optionally persisting results.
type AnalysisService struct {
	runner *scenario.Runner
	tester *dominance.Tester
	// repo may be nil, in which case nothing is persisted.
	repo   ports.ResultRepository
	logger *zap.Logger
}

// NewAnalysisService creates an analysis service
func NewAnalysisService(runner *scenario.Runner, tester *dominance.Tester, repo ports.ResultRepository, logger *zap.Logger) *AnalysisService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnalysisService{
		runner: runner,
		tester: tester,
		repo:   repo,
		logger: logger,
	}
}

// BunchingRequest defines the inputs of one bunching run
type BunchingRequest struct {
	Sample   bunching.Sample
	Families scenario.FamilyConfig
	RunID    core.RunID // optional, generated if empty
}

// ScenarioSummary is the presentable part of a ScenarioResult.
type ScenarioSummary struct {
	Key        string          `json:"key"`
	Family     scenario.Family `json:"family,omitempty"`
	Iterations int             `json:"iterations"`
	Midpoints  []float64       `json:"midpoints"`
	Mean       []float64       `json:"mean"`
	StdDev     []float64       `json:"std_dev"`
}

// Failure records a scenario or comparison that did not complete.
type Failure struct {
	Key     string `json:"key"`
	Code    string `json:"code"`
	Message string `json:"message"`
}

// BunchingReport contains the complete output of a bunching run
type BunchingReport struct {
	RunID       core.RunID              `json:"run_id"`
	Fingerprint core.Hash               `json:"fingerprint"`
	Profile     profiling.SampleProfile `json:"profile"`
	Observed    []float64               `json:"observed"`
	Scenarios   []ScenarioSummary       `json:"scenarios"`
	Excess      []bunching.ExcessMass   `json:"excess"`
	Failures    []Failure               `json:"failures,omitempty"`
	RuntimeMs   int64                   `json:"runtime_ms"`

	// Results holds the full replicate matrices by scenario key.
	Results map[string]*bunching.ScenarioResult `json:"-"`
}

// RunBunching plans and runs every scenario family. A scenario that fails is
// recorded in Failures and the remaining scenarios still run. Errors are
// returned only when the request itself is unusable or persistence fails.
func (s *AnalysisService) RunBunching(ctx context.Context, req BunchingRequest) (*BunchingReport, error) {
	startTime := time.Now()

	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}
	grid := req.Families.Grid
	fingerprint := core.Fingerprint(req.Sample.Values(), req.Sample.Weights(), grid.Midpoints())
	logger := s.logger.With(zap.String("run_id", runID.String()), zap.String("fingerprint", fingerprint.Short()))

	observed, err := s.runner.Binner.Bin(req.Sample, grid)
	if err != nil {
		return nil, errors.Wrap(err, "failed to bin observed sample")
	}
	profile, err := profiling.NewProfiler(grid.Width()).Profile(req.Sample)
	if err != nil {
		return nil, errors.Wrap(err, "failed to profile sample")
	}
	specs, err := scenario.Plan(req.Sample, req.Families)
	if err != nil {
		return nil, errors.Wrap(err, "failed to plan scenarios")
	}

	report := &BunchingReport{
		RunID:       runID,
		Fingerprint: fingerprint,
		Profile:     profile,
		Observed:    observed.Values,
		Results:     make(map[string]*bunching.ScenarioResult, len(specs)+1),
	}

	var local []*bunching.ScenarioResult
	for _, spec := range specs {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		result, err := s.runner.Run(ctx, spec)
		if err != nil {
			if ctx.Err() != nil {
				return nil, ctx.Err()
			}
			logger.Warn("scenario failed", zap.String("scenario", spec.Key), zap.Error(err))
			report.Failures = append(report.Failures, failureOf(spec.Key, err))
			continue
		}

		report.Results[spec.Key] = result
		report.Scenarios = append(report.Scenarios, summarize(result, spec.Family))
		if spec.Family == scenario.FamilyLocal {
			local = append(local, result)
		}
		if spec.Family != scenario.FamilyBaseline {
			excess, err := scenario.Excess(observed, result)
			if err != nil {
				report.Failures = append(report.Failures, failureOf(spec.Key, err))
			} else {
				report.Excess = append(report.Excess, excess)
			}
		}
		if err := s.saveScenario(ctx, runID, fingerprint, result); err != nil {
			return nil, err
		}
	}

	if len(local) > 1 {
		combined, err := scenario.Stack(LocalCombinedKey, local...)
		if err != nil {
			report.Failures = append(report.Failures, failureOf(LocalCombinedKey, err))
		} else {
			report.Results[LocalCombinedKey] = combined
			report.Scenarios = append(report.Scenarios, summarize(combined, scenario.FamilyLocal))
			if err := s.saveScenario(ctx, runID, fingerprint, combined); err != nil {
				return nil, err
			}
		}
	}

	report.RuntimeMs = time.Since(startTime).Milliseconds()
	logger.Info("bunching run finished",
		zap.Int("scenarios", len(report.Scenarios)),
		zap.Int("failures", len(report.Failures)),
		zap.Int64("runtime_ms", report.RuntimeMs))
	return report, nil
}

// DominanceRequest defines one comparison between two samples
type DominanceRequest struct {
	Key   string
	A     bunching.Sample
	B     bunching.Sample
	RunID core.RunID // optional, generated if empty
}

// DominanceReport wraps a test result with its run identity
type DominanceReport struct {
	RunID  core.RunID              `json:"run_id"`
	Key    string                  `json:"key"`
	Result *domainDominance.Result `json:"result"`
}

// CompareSamples runs the dominance test for one pair of samples.
func (s *AnalysisService) CompareSamples(ctx context.Context, req DominanceRequest) (*DominanceReport, error) {
	runID := req.RunID
	if runID == "" {
		runID = core.NewRunID()
	}
	key := req.Key
	if key == "" {
		key = "a_vs_b"
	}

	result, err := s.tester.Test(ctx, req.A, req.B)
	if err != nil {
		return nil, errors.Wrapf(err, "dominance comparison %s", key)
	}
	if s.repo != nil {
		if err := s.repo.SaveDominance(ctx, runID, key, result); err != nil {
			return nil, errors.DatabaseError("failed to save dominance result "+key, err)
		}
	}
	return &DominanceReport{RunID: runID, Key: key, Result: result}, nil
}

func (s *AnalysisService) saveScenario(ctx context.Context, runID core.RunID, fingerprint core.Hash, result *bunching.ScenarioResult) error {
	if s.repo == nil {
		return nil
	}
	if err := s.repo.SaveScenario(ctx, runID, fingerprint, result); err != nil {
		return errors.DatabaseError("failed to save scenario "+result.Key, err)
	}
	return nil
}

func summarize(r *bunching.ScenarioResult, family scenario.Family) ScenarioSummary {
	return ScenarioSummary{
		Key:        r.Key,
		Family:     family,
		Iterations: r.Iterations(),
		Midpoints:  r.Grid.Midpoints(),
		Mean:       append([]float64(nil), r.Mean...),
		StdDev:     append([]float64(nil), r.StdDev...),
	}
}

func failureOf(key string, err error) Failure {
	return Failure{Key: key, Code: errors.GetCode(err), Message: err.Error()}
}
