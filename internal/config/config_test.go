package config

import (
	"testing"

	"gobunch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 0.05, cfg.Bunching.BinWidth)
	assert.Equal(t, 2, cfg.Bunching.Precision)
	assert.Equal(t, 4, cfg.Bunching.Degree)
	assert.Equal(t, []float64{0.175, 0.225, 0.275, 0.325}, cfg.Bunching.Targets)
	assert.Equal(t, int64(123), cfg.Bunching.Seed)
	assert.True(t, cfg.Bunching.MatchLocalRuns)
	assert.Equal(t, 0.05, cfg.Dominance.Alpha)
	assert.Empty(t, cfg.Database.URL)

	grid, err := cfg.Grid()
	require.NoError(t, err)
	assert.Equal(t, 20, grid.Len())

	fc := cfg.FamilyConfig(grid)
	assert.Equal(t, 500, fc.Iterations)
	assert.Equal(t, 0.20, fc.Threshold)
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("BUNCH_BINWIDTH", "0.1")
	t.Setenv("BUNCH_TARGETS", "0.15, 0.25")
	t.Setenv("BUNCH_MATCH_LOCAL_RUNS", "false")
	t.Setenv("BUNCH_SEED", "7")
	t.Setenv("DOMINANCE_ALPHA", "0.1")
	t.Setenv("DATABASE_URL", "postgres://localhost/bunch")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0.1, cfg.Bunching.BinWidth)
	assert.Equal(t, []float64{0.15, 0.25}, cfg.Bunching.Targets)
	assert.False(t, cfg.Bunching.MatchLocalRuns)
	assert.Equal(t, int64(7), cfg.Bunching.Seed)
	assert.Equal(t, 0.1, cfg.Dominance.Alpha)
	assert.Equal(t, "postgres://localhost/bunch", cfg.Database.URL)
}

func TestPrecisionBounds(t *testing.T) {
	t.Setenv("BUNCH_PRECISION", "0")
	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 0, cfg.Bunching.Precision)

	t.Setenv("BUNCH_PRECISION", "-1")
	cfg, err = Load()
	require.NoError(t, err)
	assert.Equal(t, -1, cfg.Bunching.Precision)
}

func TestLoadRejectsBadValues(t *testing.T) {
	cases := map[string]string{
		"BUNCH_DEGREE":     "four",
		"BUNCH_TARGETS":    "0.1,x",
		"BUNCH_ITERATIONS": "1",
		"DOMINANCE_ALPHA":  "1.5",
		"BUNCH_UPPER":      "-1",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			_, err := Load()
			require.Error(t, err)
			assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
		})
	}
}
