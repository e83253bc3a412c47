package scenario

import (
	"gobunch/domain/bunching"
	"gobunch/internal/errors"
)

// Family groups the scenarios of one exclusion strategy.
type Family string

const (
	// FamilyLocal excludes each target midpoint in its own run.
	FamilyLocal Family = "local"
	// FamilyBaseline excludes nothing.
	FamilyBaseline Family = "baseline"
	// FamilyWindow excludes every midpoint within one bin width of a threshold.
	FamilyWindow Family = "window"
)

// AllFamilies lists the families in run order.
var AllFamilies = []Family{FamilyLocal, FamilyBaseline, FamilyWindow}

// FamilyConfig configures the three scenario families over one grid.
type FamilyConfig struct {
	Grid      bunching.BinGrid
	Degree    int
	Targets   []float64
	Threshold float64
	// Iterations per scenario.
	Iterations int
	Seed       int64
	// MatchLocalRuns scales the baseline and window iterations by the number
	// of local targets, so each family performs the same total number of fits.
	MatchLocalRuns bool
	// Families restricts the plan; nil means AllFamilies.
	Families []Family
}

// Plan expands cfg into one Spec per scenario instance.
func Plan(sample bunching.Sample, cfg FamilyConfig) ([]Spec, error) {
	families := cfg.Families
	if families == nil {
		families = AllFamilies
	}

	scaled := cfg.Iterations
	if cfg.MatchLocalRuns && len(cfg.Targets) > 0 {
		scaled = cfg.Iterations * len(cfg.Targets)
	}

	var specs []Spec
	add := func(f Family, p bunching.ExclusionPolicy, iterations int) {
		specs = append(specs, Spec{
			Key:        p.Key(),
			Family:     f,
			Sample:     sample,
			Grid:       cfg.Grid,
			Degree:     cfg.Degree,
			Policy:     p,
			Iterations: iterations,
			Seed:       cfg.Seed,
		})
	}

	seen := make(map[Family]bool)
	for _, f := range families {
		if seen[f] {
			continue
		}
		seen[f] = true
		switch f {
		case FamilyLocal:
			if len(cfg.Targets) == 0 {
				return nil, errors.InvalidInput("local family needs at least one target midpoint")
			}
			for _, m := range cfg.Targets {
				add(f, bunching.LocalExclusion{Midpoint: m}, cfg.Iterations)
			}
		case FamilyBaseline:
			add(f, bunching.NoExclusion{}, scaled)
		case FamilyWindow:
			add(f, bunching.WindowExclusion{Threshold: cfg.Threshold}, scaled)
		default:
			return nil, errors.InvalidInput("unknown scenario family %q", f)
		}
	}
	return specs, nil
}

// ParseFamily parses a family name.
func ParseFamily(s string) (Family, error) {
	for _, f := range AllFamilies {
		if string(f) == s {
			return f, nil
		}
	}
	return "", errors.InvalidInput("unknown scenario family %q", s)
}

// Stack concatenates the replicate rows of results that share a grid and
// degree into one combined result under key.
func Stack(key string, results ...*bunching.ScenarioResult) (*bunching.ScenarioResult, error) {
	if len(results) == 0 {
		return nil, errors.InvalidInput("nothing to stack")
	}
	first := results[0]
	cols := first.Grid.Len()
	rows := 0
	for _, r := range results {
		if !r.Grid.Equal(first.Grid) {
			return nil, errors.InvalidInput("cannot stack %s onto %s: grids differ", r.Key, first.Key)
		}
		if r.Degree != first.Degree {
			return nil, errors.InvalidInput("cannot stack %s onto %s: degree %d vs %d", r.Key, first.Key, r.Degree, first.Degree)
		}
		rows += r.Iterations()
	}

	data := make([]float64, 0, rows*cols)
	for _, r := range results {
		for i := 0; i < r.Iterations(); i++ {
			data = append(data, r.Matrix.RawRowView(i)...)
		}
	}
	return bunching.NewScenarioResult(key, nil, first.Grid, first.Degree, first.Seed, rows, data), nil
}
