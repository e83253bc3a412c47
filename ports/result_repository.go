package ports

import (
	"context"
	"time"

	"gobunch/domain/bunching"
	"gobunch/domain/core"
	"gobunch/domain/dominance"
)

// ScenarioRecord is the persisted summary of a ScenarioResult. The replicate
// matrix is not stored.
type ScenarioRecord struct {
	RunID       core.RunID
	Key         string
	Degree      int
	Seed        int64
	Iterations  int
	Fingerprint core.Hash
	Midpoints   []float64
	Mean        []float64
	StdDev      []float64
	CreatedAt   time.Time
}

// DominanceRecord is the persisted outcome of one dominance comparison.
type DominanceRecord struct {
	RunID     core.RunID
	Key       string
	Result    dominance.Result
	CreatedAt time.Time
}

// ResultRepository stores analysis outputs for later presentation.
type ResultRepository interface {
	SaveScenario(ctx context.Context, runID core.RunID, fingerprint core.Hash, result *bunching.ScenarioResult) error
	SaveDominance(ctx context.Context, runID core.RunID, key string, result *dominance.Result) error
	ListScenarios(ctx context.Context, runID core.RunID) ([]ScenarioRecord, error)
	ListDominance(ctx context.Context, runID core.RunID) ([]DominanceRecord, error)
}
