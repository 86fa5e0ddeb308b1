package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"binanceTracker/config"
	"binanceTracker/internal/adapters/logger"
)

func TestNewAppLogger_LogFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "tracker.log")
	cfg := &config.Config{LogFile: path, LogLevel: logger.LevelInfo, DashboardEnabled: true}

	appLogger, closeLog, err := newAppLogger(cfg)
	require.NoError(t, err)
	appLogger.Info(context.Background(), "hello", map[string]interface{}{"k": "v"})
	require.NoError(t, closeLog())

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "[INFO] hello | k=v")

	// The file is really closed.
	assert.Error(t, closeLog())
}

func TestNewAppLogger_NoFile(t *testing.T) {
	for _, dashboard := range []bool{true, false} {
		appLogger, closeLog, err := newAppLogger(&config.Config{DashboardEnabled: dashboard, LogLevel: logger.LevelError})
		require.NoError(t, err)
		assert.NotNil(t, appLogger)
		assert.NoError(t, closeLog())
	}
}

func TestNewAppLogger_BadPath(t *testing.T) {
	_, closeLog, err := newAppLogger(&config.Config{LogFile: filepath.Join(t.TempDir(), "missing", "x.log")})
	assert.Error(t, err)
	assert.NoError(t, closeLog())
}
