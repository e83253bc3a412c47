package testkit

import (
	"math"
	"math/rand/v2"

	"gobunch/domain/bunching"

	"gonum.org/v1/gonum/stat/distuv"
)

// ProportionGeneratorConfig configures synthetic proportion samples: a smooth
// Beta background plus an optional spike of bunched observations.
type ProportionGeneratorConfig struct {
	Count int     `json:"count"`
	Alpha float64 `json:"alpha"`
	Beta  float64 `json:"beta"`
	// SpikeShare is the fraction of observations placed uniformly in
	// [SpikeLow, SpikeHigh).
	SpikeShare float64 `json:"spike_share"`
	SpikeLow   float64 `json:"spike_low"`
	SpikeHigh  float64 `json:"spike_high"`
	Seed       uint64  `json:"seed"`
}

// DefaultProportionConfig mimics a population share variable with visible
// bunching just above 20%.
func DefaultProportionConfig() ProportionGeneratorConfig {
	return ProportionGeneratorConfig{
		Count:      1000,
		Alpha:      2,
		Beta:       5,
		SpikeShare: 0.15,
		SpikeLow:   0.20,
		SpikeHigh:  0.24,
		Seed:       42,
	}
}

// ProportionGenerator draws synthetic samples on [0, 1].
type ProportionGenerator struct {
	config ProportionGeneratorConfig
	rng    *rand.Rand
	beta   distuv.Beta
}

// NewProportionGenerator creates a generator seeded from config.Seed
func NewProportionGenerator(config ProportionGeneratorConfig) *ProportionGenerator {
	src := rand.NewPCG(config.Seed, config.Seed^0x5851f42d4c957f2d)
	rng := rand.New(src)
	return &ProportionGenerator{
		config: config,
		rng:    rng,
		beta:   distuv.Beta{Alpha: config.Alpha, Beta: config.Beta, Src: src},
	}
}

// Sample draws config.Count observations
func (g *ProportionGenerator) Sample() bunching.Sample {
	values := make([]float64, g.config.Count)
	spike := int(math.Round(g.config.SpikeShare * float64(g.config.Count)))
	for i := range values {
		if i < spike {
			values[i] = g.config.SpikeLow + g.rng.Float64()*(g.config.SpikeHigh-g.config.SpikeLow)
			continue
		}
		values[i] = g.beta.Rand()
	}
	g.rng.Shuffle(len(values), func(i, j int) { values[i], values[j] = values[j], values[i] })
	return bunching.NewSample(values)
}

// Shifted returns a sample of n draws from Beta(alpha, beta) moved right by
// shift and capped at 1. Used for dominance fixtures.
func (g *ProportionGenerator) Shifted(n int, shift float64) bunching.Sample {
	values := make([]float64, n)
	for i := range values {
		values[i] = math.Min(1, g.beta.Rand()+shift)
	}
	return bunching.NewSample(values)
}
