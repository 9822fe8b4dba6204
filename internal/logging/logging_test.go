package logging

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLevels(t *testing.T) {
	logger, err := New("warn", false, false)
	require.NoError(t, err)
	assert.False(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, logger.Core().Enabled(zapcore.WarnLevel))

	logger, err = New("warn", true, true)
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("chatty", false, false)
	assert.Error(t, err)
}
