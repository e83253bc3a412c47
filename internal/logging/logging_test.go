package logging

import (
	"testing"

	"gobunch/internal/errors"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zapcore.Level{
		"":        zapcore.InfoLevel,
		"info":    zapcore.InfoLevel,
		"ERROR":   zapcore.ErrorLevel,
		"Warn":    zapcore.WarnLevel,
		"DEBUG":   zapcore.DebugLevel,
		" TRACE ": zapcore.DebugLevel,
	}
	for name, want := range cases {
		got, err := ParseLevel(name)
		require.NoError(t, err, name)
		assert.Equal(t, want, got, name)
	}

	_, err := ParseLevel("loud")
	assert.Equal(t, errors.CodeConfigInvalid, errors.GetCode(err))
}

func TestNewHonoursVerbose(t *testing.T) {
	logger, err := New("ERROR", false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))

	logger, err = New("ERROR", true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}
