// Package dominance implements the Barrett–Donald test of first-order
// stochastic dominance with a bootstrap critical value.
package dominance

import (
	"context"
	"runtime"
	"sort"
	"time"

	"gobunch/domain/bunching"
	domainDominance "gobunch/domain/dominance"
	"gobunch/internal/ecdf"
	"gobunch/internal/errors"
	"gobunch/internal/resample"
	"gobunch/ports"

	"github.com/montanaflynn/stats"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	gonumstat "gonum.org/v1/gonum/stat"
)

const (
	// DefaultIterations is the default number of bootstrap repetitions.
	DefaultIterations = 1000
	// MinRecommendedIterations is the convention below which a warning is logged.
	MinRecommendedIterations = 500
	// DefaultAlpha is the default significance level.
	DefaultAlpha = 0.05

	streamName = "dominance-null"
)

// Tester runs Barrett–Donald comparisons.
type Tester struct {
	RNG        ports.RNGPort
	Iterations int
	Alpha      float64
	// Workers bounds concurrent repetitions; <= 0 means GOMAXPROCS.
	Workers int
	Seed    int64
	Logger  *zap.Logger
}

// NewTester creates a tester with default settings
func NewTester(rng ports.RNGPort, logger *zap.Logger) *Tester {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Tester{
		RNG:        rng,
		Iterations: DefaultIterations,
		Alpha:      DefaultAlpha,
		Logger:     logger,
	}
}

// Test compares sample a against sample b. The null hypothesis (no
// dominance) is rejected when the observed sup-distance between the ECDFs
// exceeds the (1 − Alpha) quantile of its bootstrap distribution under a
// pooled sample.
func (t *Tester) Test(ctx context.Context, a, b bunching.Sample) (*domainDominance.Result, error) {
	if err := t.validate(a, b); err != nil {
		return nil, err
	}

	support := ecdf.PooledSupport(a, b)
	if len(support) < 2 {
		return nil, errors.DisjointSupport("pooled support has %d distinct value(s); the statistic is degenerate", len(support))
	}
	observed, argSup, sign, err := supStatistic(a, b, support)
	if err != nil {
		return nil, err
	}

	pool, err := resample.Pool(a, b)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	null, err := t.nullDistribution(ctx, pool, a.Len(), b.Len())
	if err != nil {
		return nil, err
	}

	sorted := append([]float64(nil), null...)
	sort.Float64s(sorted)
	critical := gonumstat.Quantile(1-t.Alpha, gonumstat.Empirical, sorted, nil)

	extreme := 0
	for _, s := range null {
		if s >= observed {
			extreme++
		}
	}

	summary, err := summarize(null)
	if err != nil {
		return nil, err
	}

	result := &domainDominance.Result{
		Statistic:     observed,
		CriticalValue: critical,
		Reject:        observed > critical,
		PValue:        float64(extreme) / float64(len(null)),
		ArgSup:        argSup,
		Sign:          sign,
		Direction:     domainDominance.DirectionFromSign(sign),
		Alpha:         t.Alpha,
		Iterations:    t.Iterations,
		SizeA:         a.Len(),
		SizeB:         b.Len(),
		Null:          summary,
	}
	t.logger().Info("dominance test finished",
		zap.Float64("statistic", observed),
		zap.Float64("critical_value", critical),
		zap.Bool("reject", result.Reject),
		zap.String("direction", string(result.Direction)),
		zap.Duration("elapsed", time.Since(start)))
	return result, nil
}

func (t *Tester) validate(a, b bunching.Sample) error {
	if t.RNG == nil {
		return errors.InvalidInput("tester has no random source")
	}
	if a.IsEmpty() || b.IsEmpty() {
		return errors.InvalidInput("dominance test needs two non-empty samples (got %d and %d)", a.Len(), b.Len())
	}
	if !(t.Alpha > 0 && t.Alpha < 1) {
		return errors.InvalidInput("significance level must be in (0, 1), got %g", t.Alpha)
	}
	if t.Iterations < 1 {
		return errors.InvalidInput("bootstrap iterations must be positive, got %d", t.Iterations)
	}
	if t.Iterations < MinRecommendedIterations {
		t.logger().Warn("bootstrap iterations below convention",
			zap.Int("iterations", t.Iterations),
			zap.Int("convention", MinRecommendedIterations))
	}
	return nil
}

// nullDistribution resamples both groups from the pooled sample. Slot r is
// written only by repetition r.
func (t *Tester) nullDistribution(ctx context.Context, pool bunching.Sample, nA, nB int) ([]float64, error) {
	null := make([]float64, t.Iterations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(t.workers())
	for r := 0; r < t.Iterations; r++ {
		if gctx.Err() != nil {
			break
		}
		r := r
		g.Go(func() error {
			s, err := t.repetition(gctx, pool, nA, nB, r)
			if err != nil {
				return errors.Wrapf(err, "null repetition %d", r)
			}
			null[r] = s
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return null, nil
}

func (t *Tester) repetition(ctx context.Context, pool bunching.Sample, nA, nB, r int) (float64, error) {
	rng, err := t.RNG.Stream(ctx, streamName, t.Seed, r)
	if err != nil {
		return 0, err
	}
	ra, err := resample.DrawN(rng, pool, nA)
	if err != nil {
		return 0, err
	}
	rb, err := resample.DrawN(rng, pool, nB)
	if err != nil {
		return 0, err
	}
	s, _, _, err := supStatistic(ra, rb, ecdf.PooledSupport(ra, rb))
	return s, err
}

func supStatistic(a, b bunching.Sample, support []float64) (float64, float64, int, error) {
	f, err := ecdf.Build(a, support)
	if err != nil {
		return 0, 0, 0, err
	}
	g, err := ecdf.Build(b, support)
	if err != nil {
		return 0, 0, 0, err
	}
	return ecdf.SupDistance(f, g)
}

func summarize(null []float64) (domainDominance.NullSummary, error) {
	var out domainDominance.NullSummary
	var err error
	if out.Mean, err = stats.Mean(null); err != nil {
		return out, errors.Wrap(err, "null mean")
	}
	if len(null) > 1 {
		if out.StdDev, err = stats.StandardDeviationSample(null); err != nil {
			return out, errors.Wrap(err, "null standard deviation")
		}
	}
	if out.Min, err = stats.Min(null); err != nil {
		return out, errors.Wrap(err, "null minimum")
	}
	if out.Max, err = stats.Max(null); err != nil {
		return out, errors.Wrap(err, "null maximum")
	}
	if out.Percentile95, err = stats.Percentile(null, 95); err != nil {
		return out, errors.Wrap(err, "null 95th percentile")
	}
	if out.Percentile99, err = stats.Percentile(null, 99); err != nil {
		return out, errors.Wrap(err, "null 99th percentile")
	}
	return out, nil
}

func (t *Tester) workers() int {
	if t.Workers > 0 {
		return t.Workers
	}
	return runtime.GOMAXPROCS(0)
}

func (t *Tester) logger() *zap.Logger {
	if t.Logger == nil {
		return zap.NewNop()
	}
	return t.Logger
}
