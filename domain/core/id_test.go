package core

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestNewIDUniqueness tests that NewID generates unique identifiers
func TestNewIDUniqueness(t *testing.T) {
	const numIDs = 10000

	ids := make(map[ID]bool, numIDs)
	for i := 0; i < numIDs; i++ {
		id := NewID()
		if id.IsEmpty() {
			t.Fatalf("Generated empty ID at iteration %d", i)
		}
		if ids[id] {
			t.Fatalf("Generated duplicate ID: %s", id)
		}
		ids[id] = true
	}
}

func TestParseRunID(t *testing.T) {
	id := NewRunID()
	parsed, err := ParseRunID(id.String())
	require.NoError(t, err)
	assert.Equal(t, id, parsed)

	_, err = ParseRunID("  ")
	assert.Error(t, err)
	_, err = ParseRunID("not-a-uuid")
	assert.Error(t, err)
}

func TestFingerprint(t *testing.T) {
	a := Fingerprint([]float64{1, 2, 3}, nil)
	b := Fingerprint([]float64{1, 2, 3}, nil)
	c := Fingerprint([]float64{1, 2}, []float64{3})

	assert.Equal(t, a, b)
	assert.NotEqual(t, a, c, "sequence boundaries are part of the fingerprint")
	assert.Len(t, a.Short(), 12)
}
