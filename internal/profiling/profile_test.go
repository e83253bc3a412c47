package profiling

import (
	stderrors "errors"
	"testing"

	"gobunch/domain/bunching"
	"gobunch/internal/errors"
	"gobunch/internal/testkit"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProfile(t *testing.T) {
	s := bunching.NewSample([]float64{0.10, 0.20, 0.20, 0.25, 0.33, 0.90})
	profile, err := NewProfiler(0.05).Profile(s)
	require.NoError(t, err)

	assert.Equal(t, 6, profile.Count)
	assert.InDelta(t, 0.33, profile.Mean, 1e-12)
	assert.Equal(t, 0.10, profile.Min)
	assert.Equal(t, 0.90, profile.Max)
	assert.InDelta(t, 0.225, profile.Median, 1e-12)
	assert.Greater(t, profile.Skewness, 0.0)
	assert.Equal(t, 1, profile.Outliers)
	assert.InDelta(t, 5.0/6.0, profile.HeapedShare, 1e-12)
}

func TestProfileSpikeRaisesHeaping(t *testing.T) {
	kit := testkit.NewTestKit()
	p := NewProfiler(0.05)

	smooth, err := p.Profile(kit.SmoothSample(1, 2000))
	require.NoError(t, err)
	assert.Less(t, smooth.HeapedShare, 0.01)
	assert.Equal(t, 2000, smooth.Count)
}

func TestProfileEmpty(t *testing.T) {
	_, err := NewProfiler(0.05).Profile(bunching.NewSample(nil))
	assert.True(t, stderrors.Is(err, errors.ErrInvalidInput))
}
