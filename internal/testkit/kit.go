// Package testkit provides fixtures shared by package tests: seeded RNG,
// synthetic samples and an in-memory result repository.
package testkit

import (
	"context"
	"sort"
	"sync"
	"time"

	"gobunch/adapters/rng"
	"gobunch/domain/bunching"
	"gobunch/domain/core"
	"gobunch/domain/dominance"
	"gobunch/ports"
)

// TestKit provides testing utilities and fixtures
type TestKit struct {
	repo *InMemoryResultRepository
}

// NewTestKit creates a new test kit instance
func NewTestKit() *TestKit {
	return &TestKit{repo: NewInMemoryResultRepository()}
}

// RNGAdapter returns the production seeded RNG adapter
func (t *TestKit) RNGAdapter() ports.RNGPort {
	return rng.NewAdapter()
}

// ResultRepository returns the shared in-memory repository
func (t *TestKit) ResultRepository() *InMemoryResultRepository {
	return t.repo
}

// BunchedSample returns the default synthetic sample with a spike above 20%
func (t *TestKit) BunchedSample(seed uint64) bunching.Sample {
	cfg := DefaultProportionConfig()
	cfg.Seed = seed
	return NewProportionGenerator(cfg).Sample()
}

// SmoothSample returns a Beta(2,5) sample without bunching
func (t *TestKit) SmoothSample(seed uint64, n int) bunching.Sample {
	cfg := DefaultProportionConfig()
	cfg.Seed = seed
	cfg.Count = n
	cfg.SpikeShare = 0
	return NewProportionGenerator(cfg).Sample()
}

// InMemoryResultRepository implements ports.ResultRepository for tests
type InMemoryResultRepository struct {
	mu        sync.Mutex
	scenarios map[core.RunID][]ports.ScenarioRecord
	dominance map[core.RunID][]ports.DominanceRecord
}

var _ ports.ResultRepository = (*InMemoryResultRepository)(nil)

// NewInMemoryResultRepository creates an empty repository
func NewInMemoryResultRepository() *InMemoryResultRepository {
	return &InMemoryResultRepository{
		scenarios: make(map[core.RunID][]ports.ScenarioRecord),
		dominance: make(map[core.RunID][]ports.DominanceRecord),
	}
}

func (r *InMemoryResultRepository) SaveScenario(ctx context.Context, runID core.RunID, fingerprint core.Hash, result *bunching.ScenarioResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.scenarios[runID] = append(r.scenarios[runID], ports.ScenarioRecord{
		RunID:       runID,
		Key:         result.Key,
		Degree:      result.Degree,
		Seed:        result.Seed,
		Iterations:  result.Iterations(),
		Fingerprint: fingerprint,
		Midpoints:   result.Grid.Midpoints(),
		Mean:        append([]float64(nil), result.Mean...),
		StdDev:      append([]float64(nil), result.StdDev...),
		CreatedAt:   time.Now(),
	})
	return nil
}

func (r *InMemoryResultRepository) SaveDominance(ctx context.Context, runID core.RunID, key string, result *dominance.Result) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.dominance[runID] = append(r.dominance[runID], ports.DominanceRecord{
		RunID:     runID,
		Key:       key,
		Result:    *result,
		CreatedAt: time.Now(),
	})
	return nil
}

func (r *InMemoryResultRepository) ListScenarios(ctx context.Context, runID core.RunID) ([]ports.ScenarioRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]ports.ScenarioRecord(nil), r.scenarios[runID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (r *InMemoryResultRepository) ListDominance(ctx context.Context, runID core.RunID) ([]ports.DominanceRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := append([]ports.DominanceRecord(nil), r.dominance[runID]...)
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}
