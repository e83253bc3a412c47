// Package scenario runs the bootstrap bunching diagnostic: repeated
// resample → bin → fit cycles under one exclusion policy, accumulated into a
// replicate matrix.
package scenario

import (
	"context"
	"runtime"
	"time"

	"gobunch/domain/bunching"
	"gobunch/internal/binning"
	"gobunch/internal/errors"
	"gobunch/internal/polyfit"
	"gobunch/internal/resample"
	"gobunch/ports"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// DefaultIterations is the conventional number of bootstrap replicates.
// Fewer are allowed but logged.
const DefaultIterations = 500

// streamName keys the per-iteration RNG streams. It does not include the
// scenario key, so scenarios run with the same seed share their bootstrap
// draws.
const streamName = "bunching-bootstrap"

// Spec describes one scenario run.
type Spec struct {
	Key        string
	Family     Family
	Sample     bunching.Sample
	Grid       bunching.BinGrid
	Degree     int
	Policy     bunching.ExclusionPolicy
	Iterations int
	Seed       int64
}

// Runner executes scenarios.
type Runner struct {
	RNG    ports.RNGPort
	Binner binning.Binner
	// Workers bounds concurrent iterations; <= 0 means GOMAXPROCS.
	Workers int
	// ClipNegative floors predicted densities at 0.
	ClipNegative bool
	Logger       *zap.Logger
}

// NewRunner creates a runner with the conventional defaults:
// observations rounded to 2 decimals and negative predictions clipped.
func NewRunner(rng ports.RNGPort, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Runner{
		RNG:          rng,
		Binner:       binning.Binner{Precision: 2},
		ClipNegative: true,
		Logger:       logger,
	}
}

// Run performs spec.Iterations bootstrap iterations and returns the
// finalized result. Row i depends only on (Seed, i), so the matrix is the
// same for any worker count.
func (r *Runner) Run(ctx context.Context, spec Spec) (*bunching.ScenarioResult, error) {
	excluded, err := r.validate(spec)
	if err != nil {
		return nil, errors.Wrapf(err, "scenario %s", spec.Key)
	}
	logger := r.logger().With(zap.String("scenario", spec.Key))
	if spec.Iterations < DefaultIterations {
		logger.Warn("iterations below convention",
			zap.Int("iterations", spec.Iterations),
			zap.Int("convention", DefaultIterations))
	}

	start := time.Now()
	cols := spec.Grid.Len()
	data := make([]float64, spec.Iterations*cols)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.workers())
	for i := 0; i < spec.Iterations; i++ {
		if gctx.Err() != nil {
			break
		}
		i := i
		row := data[i*cols : (i+1)*cols]
		g.Go(func() error {
			if err := r.iterate(gctx, spec, excluded, i, row); err != nil {
				return errors.Wrapf(err, "scenario %s iteration %d", spec.Key, i)
			}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	result := bunching.NewScenarioResult(spec.Key, spec.Policy, spec.Grid, spec.Degree, spec.Seed, spec.Iterations, data)
	logger.Info("scenario finished",
		zap.Int("iterations", spec.Iterations),
		zap.Int("excluded_bins", len(excluded)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

// iterate produces one replicate into row. It touches nothing else.
func (r *Runner) iterate(ctx context.Context, spec Spec, excluded []float64, i int, row []float64) error {
	rng, err := r.RNG.Stream(ctx, streamName, spec.Seed, i)
	if err != nil {
		return err
	}
	draw, err := resample.Draw(rng, spec.Sample)
	if err != nil {
		return err
	}
	binned, err := r.Binner.Bin(draw, spec.Grid)
	if err != nil {
		return err
	}
	fit, err := polyfit.Fit(binned, spec.Degree, excluded)
	if err != nil {
		return err
	}
	copy(row, fit.Predicted)
	if r.ClipNegative {
		for j, v := range row {
			if v < 0 {
				row[j] = 0
			}
		}
	}
	return nil
}

// validate checks everything that would make every iteration fail, so a bad
// scenario is reported once instead of per iteration.
func (r *Runner) validate(spec Spec) ([]float64, error) {
	if r.RNG == nil {
		return nil, errors.InvalidInput("runner has no random source")
	}
	if spec.Sample.IsEmpty() {
		return nil, errors.InvalidInput("sample is empty")
	}
	if spec.Grid.Len() == 0 {
		return nil, errors.InvalidInput("bin grid is empty")
	}
	if spec.Iterations < 2 {
		return nil, errors.InvalidInput("need at least 2 iterations for a standard deviation, got %d", spec.Iterations)
	}
	if spec.Degree < 0 {
		return nil, errors.InvalidInput("polynomial degree must be non-negative, got %d", spec.Degree)
	}
	policy := spec.Policy
	if policy == nil {
		return nil, errors.InvalidInput("exclusion policy is required")
	}
	excluded, err := policy.Excluded(spec.Grid)
	if err != nil {
		return nil, err
	}
	if included := spec.Grid.Len() - len(excluded); included <= spec.Degree {
		return nil, errors.InsufficientData("%d included bins cannot determine a degree-%d polynomial", included, spec.Degree)
	}
	if _, err := r.Binner.Bin(spec.Sample, spec.Grid); err != nil {
		return nil, err
	}
	return excluded, nil
}

func (r *Runner) workers() int {
	if r.Workers > 0 {
		return r.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (r *Runner) logger() *zap.Logger {
	if r.Logger == nil {
		return zap.NewNop()
	}
	return r.Logger
}
